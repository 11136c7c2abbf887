// Package testutil provides shared fixtures for CiteRank-Engine tests:
// deterministic citation-graph builders, a citation-feed file writer, and a
// recording logger.
package testutil

import (
	"encoding/json"
	"fmt"
	"math/rand"
	"os"
	"strings"
	"testing"

	"github.com/turtacn/CiteRank-Engine/internal/domain/caselaw"
	"github.com/turtacn/CiteRank-Engine/internal/domain/graph"
)

// Citation is one directed edge of a fixture graph, citing case first.
type Citation struct {
	From caselaw.CaseID
	To   caselaw.CaseID
}

// CaseID returns the fixture identifier for node i.  Identifiers are
// zero-padded so lexicographic order matches numeric order, which keeps
// assertions against sorted listings readable.
func CaseID(i int) caselaw.CaseID {
	return caselaw.CaseID(fmt.Sprintf("case-%03d", i))
}

// CycleEdges returns a ring of n nodes where each cites its successor and
// the last cites the first.  Every node in a ring ends up with identical
// PageRank, which makes convergence assertions exact.
func CycleEdges(n int) []Citation {
	edges := make([]Citation, 0, n)
	for i := 0; i < n; i++ {
		edges = append(edges, Citation{From: CaseID(i), To: CaseID((i + 1) % n)})
	}
	return edges
}

// ChainEdges returns a path of n nodes: case-000 cites case-001 and so on
// down the line.  The tail node is dangling.
func ChainEdges(n int) []Citation {
	edges := make([]Citation, 0, n-1)
	for i := 0; i < n-1; i++ {
		edges = append(edges, Citation{From: CaseID(i), To: CaseID(i + 1)})
	}
	return edges
}

// StarEdges returns n nodes where every other node cites case-000, which
// then dominates every authority-flavoured score.
func StarEdges(n int) []Citation {
	edges := make([]Citation, 0, n-1)
	for i := 1; i < n; i++ {
		edges = append(edges, Citation{From: CaseID(i), To: CaseID(0)})
	}
	return edges
}

// SeededEdges returns a pseudo-random graph over nodes cases, each with
// degree distinct out-citations (self-citations excluded; degree is capped
// at nodes-1).  The same seed always yields the same edge list.
func SeededEdges(nodes, degree int, seed int64) []Citation {
	r := rand.New(rand.NewSource(seed))
	var edges []Citation
	for i := 0; i < nodes; i++ {
		seen := make(map[int]bool, degree)
		for len(seen) < degree && len(seen) < nodes-1 {
			j := r.Intn(nodes)
			if j == i || seen[j] {
				continue
			}
			seen[j] = true
			edges = append(edges, Citation{From: CaseID(i), To: CaseID(j)})
		}
	}
	return edges
}

// BuildStore applies the edge list to a fresh in-memory store.  Endpoints
// are auto-created as stubs and strengths start unknown, mirroring how
// citation events without metadata land.
func BuildStore(t testing.TB, citations []Citation) *graph.Store {
	t.Helper()
	store := graph.NewStore(graph.DefaultStoreOptions())
	for _, c := range citations {
		if err := store.UpsertEdge(c.From, c.To, caselaw.StrengthUnknown, 0); err != nil {
			t.Fatalf("seed edge %s -> %s: %v", c.From, c.To, err)
		}
	}
	return store
}

// WriteEventsFile writes the edge list to path as citation-feed JSON lines,
// the wire format the kafka and spool transports carry.
func WriteEventsFile(t testing.TB, path string, citations []Citation) {
	t.Helper()
	var b strings.Builder
	for _, c := range citations {
		line, err := json.Marshal(struct {
			Citing string `json:"citing_case_id"`
			Cited  string `json:"cited_case_id"`
		}{string(c.From), string(c.To)})
		if err != nil {
			t.Fatalf("encode event %s -> %s: %v", c.From, c.To, err)
		}
		b.Write(line)
		b.WriteByte('\n')
	}
	if err := os.WriteFile(path, []byte(b.String()), 0o644); err != nil {
		t.Fatalf("write events file %s: %v", path, err)
	}
}
