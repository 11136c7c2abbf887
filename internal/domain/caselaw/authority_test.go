package caselaw

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func courtCase(level CourtLevel, jurisdiction string) *Case {
	return &Case{ID: "test-case", CourtLevel: level, Jurisdiction: jurisdiction}
}

func TestClassifyAuthority(t *testing.T) {
	t.Parallel()

	cases := []struct {
		name   string
		citing *Case
		cited  *Case
		want   AuthorityStrength
	}{
		{
			name:   "trial citing supreme in same jurisdiction is binding",
			citing: courtCase(CourtTrial, "US"),
			cited:  courtCase(CourtSupreme, "US"),
			want:   StrengthBinding,
		},
		{
			name:   "same level in same jurisdiction is binding",
			citing: courtCase(CourtAppellate, "US"),
			cited:  courtCase(CourtAppellate, "US"),
			want:   StrengthBinding,
		},
		{
			name:   "supreme citing trial is persuasive",
			citing: courtCase(CourtSupreme, "US"),
			cited:  courtCase(CourtTrial, "US"),
			want:   StrengthPersuasive,
		},
		{
			name:   "different jurisdiction is persuasive regardless of level",
			citing: courtCase(CourtTrial, "CA-9"),
			cited:  courtCase(CourtSupreme, "NY"),
			want:   StrengthPersuasive,
		},
		{
			name:   "missing citing jurisdiction is unknown",
			citing: courtCase(CourtTrial, ""),
			cited:  courtCase(CourtSupreme, "US"),
			want:   StrengthUnknown,
		},
		{
			name:   "unknown cited court level is unknown",
			citing: courtCase(CourtTrial, "US"),
			cited:  courtCase(CourtUnknown, "US"),
			want:   StrengthUnknown,
		},
		{
			name:   "zero-value court level is unknown not binding",
			citing: courtCase(CourtLevel(""), "US"),
			cited:  courtCase(CourtSupreme, "US"),
			want:   StrengthUnknown,
		},
		{
			name:   "nil cited case is unknown",
			citing: courtCase(CourtTrial, "US"),
			cited:  nil,
			want:   StrengthUnknown,
		},
	}

	for _, tc := range cases {
		tc := tc
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()
			assert.Equal(t, tc.want, ClassifyAuthority(tc.citing, tc.cited))
		})
	}
}

func TestAuthorityStrength_ChainWeight(t *testing.T) {
	t.Parallel()

	assert.Equal(t, 2, StrengthBinding.ChainWeight())
	assert.Equal(t, 1, StrengthPersuasive.ChainWeight())
	assert.Equal(t, 0, StrengthUnknown.ChainWeight())
}

func TestAuthorityStrength_PropagationWeight(t *testing.T) {
	t.Parallel()

	assert.Equal(t, 2.0, StrengthBinding.PropagationWeight())
	assert.Equal(t, 1.0, StrengthPersuasive.PropagationWeight())
	assert.Equal(t, 1.0, StrengthUnknown.PropagationWeight())
}

func TestParseAuthorityStrength(t *testing.T) {
	t.Parallel()

	got, err := ParseAuthorityStrength("BINDING")
	require.NoError(t, err)
	assert.Equal(t, StrengthBinding, got)

	got, err = ParseAuthorityStrength("")
	require.NoError(t, err)
	assert.Equal(t, StrengthUnknown, got)

	_, err = ParseAuthorityStrength("mandatory")
	require.Error(t, err)
}
