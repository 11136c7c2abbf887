// Package graph implements the in-memory directed citation graph: a single
// long-lived mutable store guarded by a writer lock, and immutable snapshots
// the ranking calculators iterate without any locking.
package graph

import (
	"github.com/turtacn/CiteRank-Engine/internal/domain/caselaw"
)

// DefaultEdgeWeight is the uniform weight assigned when a citation arrives
// without an explicit weight.
const DefaultEdgeWeight = 1.0

// Edge is one directed citation: the citing case points at the cited case.
// At most one edge exists per ordered pair; re-inserting the pair updates
// strength and weight in place.
type Edge struct {
	From     caselaw.CaseID            `json:"from"`
	To       caselaw.CaseID            `json:"to"`
	Strength caselaw.AuthorityStrength `json:"strength"`
	Weight   float64                   `json:"weight"`
}

// PropagationWeight returns the weight PageRank uses for this edge.
// In strength-weighted mode the authority classification drives propagation;
// otherwise the stored weight applies.
func (e Edge) PropagationWeight(strengthWeighted bool) float64 {
	if strengthWeighted {
		return e.Strength.PropagationWeight()
	}
	return e.Weight
}
