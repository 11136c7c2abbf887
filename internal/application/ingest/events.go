// Package ingest turns citation-extraction events into graph mutations.
// Events arrive as JSON, one object per Kafka message or per spooled JSONL
// line; both transports decode through the same codec and apply through the
// same Pipeline, which keeps the recompute scheduler informed of changes.
package ingest

import (
	"encoding/json"
	"strings"
	"time"

	"github.com/turtacn/CiteRank-Engine/internal/domain/caselaw"
	"github.com/turtacn/CiteRank-Engine/pkg/errors"
)

// CaseMetadata is the case descriptor a citation event may carry for either
// endpoint.  Everything is optional; whatever is present upgrades the node.
type CaseMetadata struct {
	CourtLevel   string     `json:"court_level,omitempty"`
	Jurisdiction string     `json:"jurisdiction,omitempty"`
	DecidedAt    *time.Time `json:"decided_at,omitempty"`
}

// Case materializes the metadata as a graph node for the given ID.  The
// court level is parsed case-insensitively; an unsupported level is invalid
// metadata, not a silent downgrade to unknown.
func (m *CaseMetadata) Case(id caselaw.CaseID) (*caselaw.Case, error) {
	level, err := caselaw.ParseCourtLevel(m.CourtLevel)
	if err != nil {
		return nil, err
	}
	return &caselaw.Case{
		ID:           id,
		CourtLevel:   level,
		Jurisdiction: strings.TrimSpace(m.Jurisdiction),
		DecidedAt:    m.DecidedAt,
	}, nil
}

// CitationEvent is one extracted citation: the citing case referencing the
// cited case, each endpoint optionally described.
type CitationEvent struct {
	CitingCaseID   caselaw.CaseID `json:"citing_case_id"`
	CitedCaseID    caselaw.CaseID `json:"cited_case_id"`
	CitingMetadata *CaseMetadata  `json:"citing_metadata,omitempty"`
	CitedMetadata  *CaseMetadata  `json:"cited_metadata,omitempty"`
}

// Validate rejects events that can never be applied: blank endpoint IDs or a
// case citing itself.
func (e *CitationEvent) Validate() error {
	if strings.TrimSpace(string(e.CitingCaseID)) == "" {
		return errors.New(errors.ErrCodeEventInvalid, "citation event is missing the citing case ID")
	}
	if strings.TrimSpace(string(e.CitedCaseID)) == "" {
		return errors.New(errors.ErrCodeEventInvalid, "citation event is missing the cited case ID")
	}
	if e.CitingCaseID == e.CitedCaseID {
		return errors.New(errors.ErrCodeSelfCitation, "case cannot cite itself: "+string(e.CitingCaseID))
	}
	return nil
}

// DecodeEvent parses and validates one JSON-encoded citation event.
func DecodeEvent(data []byte) (*CitationEvent, error) {
	var e CitationEvent
	if err := json.Unmarshal(data, &e); err != nil {
		return nil, errors.Wrap(err, errors.ErrCodeEventInvalid, "malformed citation event")
	}
	if err := e.Validate(); err != nil {
		return nil, err
	}
	return &e, nil
}

// Encode serializes the event for the feed.
func (e *CitationEvent) Encode() ([]byte, error) {
	data, err := json.Marshal(e)
	if err != nil {
		return nil, errors.Wrap(err, errors.ErrCodeSerialization, "encode citation event")
	}
	return data, nil
}
