package ingest

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/turtacn/CiteRank-Engine/internal/domain/caselaw"
	"github.com/turtacn/CiteRank-Engine/pkg/errors"
)

func TestCitationEvent_EncodeDecodeRoundTrip(t *testing.T) {
	t.Parallel()
	decided := time.Date(2019, 3, 14, 0, 0, 0, 0, time.UTC)
	in := &CitationEvent{
		CitingCaseID: "obergefell-v-hodges",
		CitedCaseID:  "loving-v-virginia",
		CitingMetadata: &CaseMetadata{
			CourtLevel:   "supreme",
			Jurisdiction: "US",
			DecidedAt:    &decided,
		},
	}

	data, err := in.Encode()
	require.NoError(t, err)

	out, err := DecodeEvent(data)
	require.NoError(t, err)
	assert.Equal(t, in, out)
}

func TestDecodeEvent_MalformedJSON(t *testing.T) {
	t.Parallel()
	_, err := DecodeEvent([]byte(`{"citing_case_id": `))
	require.Error(t, err)
	assert.True(t, errors.IsCode(err, errors.ErrCodeEventInvalid))
	assert.True(t, errors.IsValidation(err))
}

func TestDecodeEvent_ValidatesPayload(t *testing.T) {
	t.Parallel()
	_, err := DecodeEvent([]byte(`{"citing_case_id":"a","cited_case_id":"a"}`))
	require.Error(t, err)
	assert.True(t, errors.IsCode(err, errors.ErrCodeSelfCitation))
}

func TestCitationEvent_Validate(t *testing.T) {
	t.Parallel()
	tests := []struct {
		name     string
		event    CitationEvent
		wantCode errors.ErrorCode
	}{
		{
			name:     "blank citing ID",
			event:    CitationEvent{CitedCaseID: "b"},
			wantCode: errors.ErrCodeEventInvalid,
		},
		{
			name:     "whitespace cited ID",
			event:    CitationEvent{CitingCaseID: "a", CitedCaseID: "   "},
			wantCode: errors.ErrCodeEventInvalid,
		},
		{
			name:     "self citation",
			event:    CitationEvent{CitingCaseID: "a", CitedCaseID: "a"},
			wantCode: errors.ErrCodeSelfCitation,
		},
	}
	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			err := tt.event.Validate()
			require.Error(t, err)
			assert.True(t, errors.IsCode(err, tt.wantCode))
			assert.True(t, errors.IsValidation(err))
		})
	}
}

func TestCaseMetadata_Case(t *testing.T) {
	t.Parallel()

	t.Run("parses court level case-insensitively", func(t *testing.T) {
		t.Parallel()
		m := &CaseMetadata{CourtLevel: "Supreme", Jurisdiction: "  US  "}
		c, err := m.Case("roe-v-wade")
		require.NoError(t, err)
		assert.Equal(t, caselaw.CourtSupreme, c.CourtLevel)
		assert.Equal(t, "US", c.Jurisdiction)
		assert.False(t, c.Stub)
	})

	t.Run("empty court level means unknown", func(t *testing.T) {
		t.Parallel()
		c, err := (&CaseMetadata{Jurisdiction: "DE"}).Case("x")
		require.NoError(t, err)
		assert.Equal(t, caselaw.CourtUnknown, c.CourtLevel)
	})

	t.Run("unsupported court level is invalid metadata", func(t *testing.T) {
		t.Parallel()
		_, err := (&CaseMetadata{CourtLevel: "tribunal"}).Case("x")
		require.Error(t, err)
		assert.True(t, errors.IsCode(err, errors.ErrCodeCaseInvalidMetadata))
	})
}
