package graph

import (
	"github.com/turtacn/CiteRank-Engine/internal/domain/caselaw"
)

// Snapshot is an immutable copy of the graph taken at one store generation.
// All ranking computation, chain finding, and statistics run against a
// Snapshot and never against live store state, so a recomputation pass sees
// one consistent graph regardless of concurrent mutation.
//
// Accessors return internal slices for iteration efficiency; callers must
// treat them as read-only.
type Snapshot struct {
	generation uint64
	nodes      map[caselaw.CaseID]*caselaw.Case
	out        map[caselaw.CaseID][]Edge
	in         map[caselaw.CaseID][]Edge
	ids        []caselaw.CaseID // sorted; fixes iteration order for reproducible float accumulation
	edgeCount  int
}

// Generation returns the store generation this snapshot was taken at.
// Two snapshots with equal generations are the same object.
func (s *Snapshot) Generation() uint64 { return s.generation }

// NodeCount returns the number of nodes.
func (s *Snapshot) NodeCount() int { return len(s.nodes) }

// EdgeCount returns the number of edges.
func (s *Snapshot) EdgeCount() int { return s.edgeCount }

// HasNode reports whether the node exists in this snapshot.
func (s *Snapshot) HasNode(id caselaw.CaseID) bool {
	_, ok := s.nodes[id]
	return ok
}

// Node returns the case for id, or false when it is not part of this
// snapshot.  The returned case is owned by the snapshot and must not be
// mutated.
func (s *Snapshot) Node(id caselaw.CaseID) (*caselaw.Case, bool) {
	c, ok := s.nodes[id]
	return c, ok
}

// IDs returns every node ID in lexicographic order.  Iterating in this order
// keeps floating-point accumulation deterministic across runs, which the
// convergence tests rely on.
func (s *Snapshot) IDs() []caselaw.CaseID { return s.ids }

// Out returns the out-edges of id (citations made by the case), ordered by
// target ID.  Nil when the node has no out-edges or does not exist.
func (s *Snapshot) Out(id caselaw.CaseID) []Edge { return s.out[id] }

// In returns the in-edges of id (citations received by the case), ordered by
// source ID.  Nil when the node has no in-edges or does not exist.
func (s *Snapshot) In(id caselaw.CaseID) []Edge { return s.in[id] }

// OutDegree returns the number of citations the case makes.
func (s *Snapshot) OutDegree(id caselaw.CaseID) int { return len(s.out[id]) }

// InDegree returns the number of citations the case receives.
func (s *Snapshot) InDegree(id caselaw.CaseID) int { return len(s.in[id]) }
