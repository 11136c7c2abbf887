// Package stats derives structural reports from graph snapshots: corpus
// size, connectivity, and degree distributions.  Everything here is a pure
// function over an immutable snapshot.
package stats

import (
	"sort"

	"github.com/turtacn/CiteRank-Engine/internal/domain/caselaw"
	"github.com/turtacn/CiteRank-Engine/internal/domain/graph"
)

// DegreeSummary describes one degree distribution.  Percentiles are linearly
// interpolated over the sorted sample.
type DegreeSummary struct {
	Min  int     `json:"min"`
	Max  int     `json:"max"`
	Mean float64 `json:"mean"`
	P50  float64 `json:"p50"`
	P95  float64 `json:"p95"`
	P99  float64 `json:"p99"`
}

// Summary is a point-in-time structural report of the citation graph.
type Summary struct {
	Nodes int `json:"nodes"`
	Edges int `json:"edges"`
	// Density is E / (N·(N−1)), the filled share of possible citations.
	Density   float64       `json:"density"`
	InDegree  DegreeSummary `json:"in_degree"`
	OutDegree DegreeSummary `json:"out_degree"`
	// Components counts weakly connected components: islands of cases that
	// share no citation route even ignoring direction.
	Components int `json:"components"`
	// DanglingFraction is the share of cases with no outgoing citations.
	DanglingFraction float64 `json:"dangling_fraction"`
}

// Report computes the structural summary of one snapshot.
func Report(snap *graph.Snapshot) Summary {
	ids := snap.IDs()
	n := len(ids)

	s := Summary{
		Nodes: n,
		Edges: snap.EdgeCount(),
	}
	if n == 0 {
		return s
	}

	if n > 1 {
		s.Density = float64(s.Edges) / (float64(n) * float64(n-1))
	}

	inDegrees := make([]int, 0, n)
	outDegrees := make([]int, 0, n)
	dangling := 0
	for _, id := range ids {
		inDegrees = append(inDegrees, snap.InDegree(id))
		out := snap.OutDegree(id)
		outDegrees = append(outDegrees, out)
		if out == 0 {
			dangling++
		}
	}
	s.InDegree = summarizeDegrees(inDegrees)
	s.OutDegree = summarizeDegrees(outDegrees)
	s.DanglingFraction = float64(dangling) / float64(n)
	s.Components = countComponents(snap, ids)

	return s
}

func summarizeDegrees(degrees []int) DegreeSummary {
	n := len(degrees)
	if n == 0 {
		return DegreeSummary{}
	}

	sorted := make([]int, n)
	copy(sorted, degrees)
	sort.Ints(sorted)

	var sum int
	for _, d := range sorted {
		sum += d
	}

	return DegreeSummary{
		Min:  sorted[0],
		Max:  sorted[n-1],
		Mean: float64(sum) / float64(n),
		P50:  percentile(sorted, 50),
		P95:  percentile(sorted, 95),
		P99:  percentile(sorted, 99),
	}
}

// percentile interpolates linearly between the two nearest ranks of the
// sorted sample (the PERCENTILE.INC variant).
func percentile(sorted []int, p float64) float64 {
	n := len(sorted)
	if n == 0 {
		return 0
	}
	if p <= 0 {
		return float64(sorted[0])
	}
	if p >= 100 {
		return float64(sorted[n-1])
	}

	rank := (p / 100) * float64(n-1)
	lower := int(rank)
	frac := rank - float64(lower)
	if lower+1 >= n {
		return float64(sorted[n-1])
	}
	return float64(sorted[lower]) + frac*float64(sorted[lower+1]-sorted[lower])
}

// countComponents runs BFS over the undirected view of the graph.
func countComponents(snap *graph.Snapshot, ids []caselaw.CaseID) int {
	visited := make(map[caselaw.CaseID]bool, len(ids))
	components := 0

	for _, seed := range ids {
		if visited[seed] {
			continue
		}
		components++
		visited[seed] = true
		queue := []caselaw.CaseID{seed}
		for len(queue) > 0 {
			id := queue[0]
			queue = queue[1:]
			for _, e := range snap.Out(id) {
				if !visited[e.To] {
					visited[e.To] = true
					queue = append(queue, e.To)
				}
			}
			for _, e := range snap.In(id) {
				if !visited[e.From] {
					visited[e.From] = true
					queue = append(queue, e.From)
				}
			}
		}
	}
	return components
}
