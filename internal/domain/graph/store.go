package graph

import (
	"sort"
	"strings"
	"sync"

	"github.com/turtacn/CiteRank-Engine/internal/domain/caselaw"
	"github.com/turtacn/CiteRank-Engine/pkg/errors"
)

// StoreOptions configures store behaviour.
type StoreOptions struct {
	// AutoCreateStubs creates placeholder nodes for citation endpoints that
	// have not been inserted yet.  When false, such citations fail with a
	// not-found error instead.
	AutoCreateStubs bool
}

// DefaultStoreOptions returns the default ingestion behaviour: endpoints are
// auto-created as stubs flagged for later enrichment.
func DefaultStoreOptions() StoreOptions {
	return StoreOptions{AutoCreateStubs: true}
}

// Store is the single mutable citation graph.  All mutation happens under a
// writer lock; reads and snapshot handout take the read side.  Nodes are
// keyed by stable case IDs rather than linked by pointers, so cycles in the
// citation structure carry no ownership hazards.
type Store struct {
	mu   sync.RWMutex
	opts StoreOptions

	nodes map[caselaw.CaseID]*caselaw.Case
	// out[from][to] and in[to][from] reference the same *Edge, so an in-place
	// strength/weight update is visible through both adjacency views.
	out map[caselaw.CaseID]map[caselaw.CaseID]*Edge
	in  map[caselaw.CaseID]map[caselaw.CaseID]*Edge

	edgeCount  int
	generation uint64
	snap       *Snapshot // cached; valid while snap.generation == generation
}

// NewStore constructs an empty Store.
func NewStore(opts StoreOptions) *Store {
	return &Store{
		opts:  opts,
		nodes: make(map[caselaw.CaseID]*caselaw.Case),
		out:   make(map[caselaw.CaseID]map[caselaw.CaseID]*Edge),
		in:    make(map[caselaw.CaseID]map[caselaw.CaseID]*Edge),
	}
}

// ─────────────────────────────────────────────────────────────────────────────
// Mutation
// ─────────────────────────────────────────────────────────────────────────────

// UpsertNode inserts the case or replaces its metadata.  The store owns the
// derived citation count: whatever the caller passes is overwritten with the
// current in-degree.  Upserting a stub over an already-enriched node is a
// no-op, so a late-arriving placeholder can never erase real metadata.
func (s *Store) UpsertNode(c *caselaw.Case) error {
	if c == nil {
		return errors.Validation("case must not be nil")
	}
	if err := c.Validate(); err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	existing, ok := s.nodes[c.ID]
	if ok && c.Stub && !existing.Stub {
		return nil
	}

	stored := c.Clone()
	stored.CitationCount = len(s.in[c.ID])
	s.nodes[c.ID] = stored
	s.generation++
	return nil
}

// UpsertEdge inserts the directed citation from → to, or updates the
// existing edge's strength and weight when the pair is already present.
// A non-positive weight is replaced by DefaultEdgeWeight.  Self-citations
// are rejected.  Unknown endpoints are auto-created as stubs, or rejected
// with a not-found error when auto-creation is disabled.
func (s *Store) UpsertEdge(from, to caselaw.CaseID, strength caselaw.AuthorityStrength, weight float64) error {
	if strings.TrimSpace(string(from)) == "" || strings.TrimSpace(string(to)) == "" {
		return errors.Validation("citation endpoints must not be blank")
	}
	if from == to {
		return errors.Newf(errors.ErrCodeSelfCitation, "case %s cannot cite itself", from)
	}
	if !strength.IsValid() {
		strength = caselaw.StrengthUnknown
	}
	if weight <= 0 {
		weight = DefaultEdgeWeight
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	for _, id := range []caselaw.CaseID{from, to} {
		if _, ok := s.nodes[id]; ok {
			continue
		}
		if !s.opts.AutoCreateStubs {
			return errors.Newf(errors.ErrCodeEdgeEndpointMissing, "citation endpoint %s not found", id)
		}
		s.nodes[id] = caselaw.NewStub(id)
	}

	if e, ok := s.out[from][to]; ok {
		// Duplicate pair: update in place, never a parallel edge.
		e.Strength = strength
		e.Weight = weight
		s.generation++
		return nil
	}

	e := &Edge{From: from, To: to, Strength: strength, Weight: weight}
	if s.out[from] == nil {
		s.out[from] = make(map[caselaw.CaseID]*Edge)
	}
	if s.in[to] == nil {
		s.in[to] = make(map[caselaw.CaseID]*Edge)
	}
	s.out[from][to] = e
	s.in[to][from] = e
	s.edgeCount++
	s.nodes[to].CitationCount = len(s.in[to])
	s.generation++
	return nil
}

// RemoveNode deletes the case and every incident citation.  Removing an
// unknown ID is a no-op, not an error.
func (s *Store) RemoveNode(id caselaw.CaseID) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.nodes[id]; !ok {
		return nil
	}

	for to := range s.out[id] {
		delete(s.in[to], id)
		s.edgeCount--
		s.nodes[to].CitationCount = len(s.in[to])
	}
	for from := range s.in[id] {
		delete(s.out[from], id)
		s.edgeCount--
	}
	delete(s.out, id)
	delete(s.in, id)
	delete(s.nodes, id)
	s.generation++
	return nil
}

// ─────────────────────────────────────────────────────────────────────────────
// Queries
// ─────────────────────────────────────────────────────────────────────────────

// Node returns a copy of the case, or a not-found error.
func (s *Store) Node(id caselaw.CaseID) (*caselaw.Case, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	c, ok := s.nodes[id]
	if !ok {
		return nil, errors.CaseNotFound(string(id))
	}
	return c.Clone(), nil
}

// NodeCount returns the number of cases in the store.
func (s *Store) NodeCount() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.nodes)
}

// EdgeCount returns the number of citations in the store.
func (s *Store) EdgeCount() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.edgeCount
}

// StubIDs returns the IDs of all auto-created placeholder nodes in
// lexicographic order.  The enrichment loop polls this to learn which cases
// still need metadata.
func (s *Store) StubIDs() []caselaw.CaseID {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var ids []caselaw.CaseID
	for id, c := range s.nodes {
		if c.Stub {
			ids = append(ids, id)
		}
	}
	sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })
	return ids
}

// Generation returns the current mutation counter.  It increments on every
// successful mutation and never decreases.
func (s *Store) Generation() uint64 {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.generation
}

// ─────────────────────────────────────────────────────────────────────────────
// Snapshot
// ─────────────────────────────────────────────────────────────────────────────

// Snapshot returns an immutable copy of the current graph.  The copy is
// cached per generation: repeated calls between mutations return the same
// object, so hot query paths pay the copy cost only after a change.
func (s *Store) Snapshot() *Snapshot {
	s.mu.RLock()
	if snap := s.snap; snap != nil && snap.generation == s.generation {
		s.mu.RUnlock()
		return snap
	}
	s.mu.RUnlock()

	s.mu.Lock()
	defer s.mu.Unlock()
	// Re-check: another goroutine may have rebuilt while we waited.
	if s.snap == nil || s.snap.generation != s.generation {
		s.snap = s.buildSnapshotLocked()
	}
	return s.snap
}

// buildSnapshotLocked deep-copies nodes and flattens the adjacency maps into
// sorted slices.  Caller must hold the write lock.
func (s *Store) buildSnapshotLocked() *Snapshot {
	snap := &Snapshot{
		generation: s.generation,
		nodes:      make(map[caselaw.CaseID]*caselaw.Case, len(s.nodes)),
		out:        make(map[caselaw.CaseID][]Edge, len(s.out)),
		in:         make(map[caselaw.CaseID][]Edge, len(s.in)),
		ids:        make([]caselaw.CaseID, 0, len(s.nodes)),
		edgeCount:  s.edgeCount,
	}

	for id, c := range s.nodes {
		snap.nodes[id] = c.Clone()
		snap.ids = append(snap.ids, id)
	}
	sort.Slice(snap.ids, func(i, j int) bool { return snap.ids[i] < snap.ids[j] })

	for from, targets := range s.out {
		if len(targets) == 0 {
			continue
		}
		edges := make([]Edge, 0, len(targets))
		for _, e := range targets {
			edges = append(edges, *e)
		}
		sort.Slice(edges, func(i, j int) bool { return edges[i].To < edges[j].To })
		snap.out[from] = edges
	}
	for to, sources := range s.in {
		if len(sources) == 0 {
			continue
		}
		edges := make([]Edge, 0, len(sources))
		for _, e := range sources {
			edges = append(edges, *e)
		}
		sort.Slice(edges, func(i, j int) bool { return edges[i].From < edges[j].From })
		snap.in[to] = edges
	}
	return snap
}
