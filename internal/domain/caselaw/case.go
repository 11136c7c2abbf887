// Package caselaw holds the core entities of the citation graph: cases,
// court hierarchy, and the authority classification of a citation.
package caselaw

import (
	"strings"
	"time"

	"github.com/turtacn/CiteRank-Engine/pkg/errors"
)

// CaseID identifies a case by its citation string or an opaque ID.
// IDs compare lexicographically, which the ranking tie-break chain relies on.
type CaseID string

// String returns the string representation of the case ID.
func (id CaseID) String() string { return string(id) }

// CourtLevel places a court in the precedent hierarchy.
type CourtLevel string

const (
	CourtUnknown        CourtLevel = "unknown"
	CourtTrial          CourtLevel = "trial"
	CourtAppellate      CourtLevel = "appellate"
	CourtFederalCircuit CourtLevel = "federal-circuit"
	CourtSupreme        CourtLevel = "supreme"
)

// IsValid checks if the court level is one of the enumerated values.
func (l CourtLevel) IsValid() bool {
	switch l {
	case CourtUnknown, CourtTrial, CourtAppellate, CourtFederalCircuit, CourtSupreme:
		return true
	default:
		return false
	}
}

// String returns the string representation of the court level.
func (l CourtLevel) String() string { return string(l) }

// Rank returns the court's position in the precedent hierarchy; higher ranks
// bind lower ones.  CourtUnknown ranks zero and never participates in a
// binding classification.
func (l CourtLevel) Rank() int {
	switch l {
	case CourtTrial:
		return 1
	case CourtAppellate:
		return 2
	case CourtFederalCircuit:
		return 3
	case CourtSupreme:
		return 4
	default:
		return 0
	}
}

// ParseCourtLevel parses a string into a CourtLevel.  Matching is
// case-insensitive; the empty string parses to CourtUnknown.
func ParseCourtLevel(s string) (CourtLevel, error) {
	if s == "" {
		return CourtUnknown, nil
	}
	l := CourtLevel(strings.ToLower(s))
	if l.IsValid() {
		return l, nil
	}
	return CourtUnknown, errors.New(errors.ErrCodeCaseInvalidMetadata, "unsupported court level: "+s)
}

// Case is a node of the citation graph.  Identity is immutable once created;
// metadata and the derived citation count change over the node's lifetime.
type Case struct {
	ID           CaseID     `json:"id"`
	CourtLevel   CourtLevel `json:"court_level"`
	Jurisdiction string     `json:"jurisdiction"`
	// DecidedAt is nil when the decision date is unknown; temporal signals
	// treat that as missing rather than substituting an epoch.
	DecidedAt *time.Time `json:"decided_at,omitempty"`
	// CitationCount is the raw incoming-citation count, maintained by the
	// graph store as edges are inserted and removed.
	CitationCount int `json:"citation_count"`
	// Stub marks a node auto-created by an edge that referenced it before any
	// metadata arrived; stubs are flagged for later enrichment.
	Stub bool `json:"stub,omitempty"`
}

// NewStub returns a placeholder Case for an ID that was referenced by a
// citation before its metadata was ingested.
func NewStub(id CaseID) *Case {
	return &Case{
		ID:         id,
		CourtLevel: CourtUnknown,
		Stub:       true,
	}
}

// Validate checks the structural integrity of the case metadata.
func (c *Case) Validate() error {
	if strings.TrimSpace(string(c.ID)) == "" {
		return errors.New(errors.ErrCodeValidation, "case ID must not be blank")
	}
	if !c.CourtLevel.IsValid() {
		return errors.Newf(errors.ErrCodeCaseInvalidMetadata, "case %s has unsupported court level %q", c.ID, c.CourtLevel)
	}
	return nil
}

// HasDecisionDate reports whether the decision date is known.
func (c *Case) HasDecisionDate() bool {
	return c.DecidedAt != nil && !c.DecidedAt.IsZero()
}

// Clone returns an independent copy of the case, so snapshots never alias
// store-owned values.
func (c *Case) Clone() *Case {
	cp := *c
	if c.DecidedAt != nil {
		t := *c.DecidedAt
		cp.DecidedAt = &t
	}
	return &cp
}
