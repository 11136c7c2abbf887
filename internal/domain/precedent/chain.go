// Package precedent traces citation chains between cases: the hop-minimal
// route a researcher would follow from a citing case to the precedent it
// ultimately rests on.
package precedent

import (
	"github.com/turtacn/CiteRank-Engine/internal/domain/caselaw"
	"github.com/turtacn/CiteRank-Engine/internal/domain/graph"
	"github.com/turtacn/CiteRank-Engine/pkg/errors"
)

// DefaultMaxHops bounds chain searches unless the caller overrides it.
const DefaultMaxHops = 6

// Step is one citation along a chain, annotated with its authority
// classification.
type Step struct {
	From     caselaw.CaseID            `json:"from"`
	To       caselaw.CaseID            `json:"to"`
	Strength caselaw.AuthorityStrength `json:"strength"`
}

// Chain is the result of a chain search.  Found false is a legitimate
// outcome, not an error: the cases exist but no citation route connects
// them within the hop budget.
type Chain struct {
	Found bool           `json:"found"`
	From  caselaw.CaseID `json:"from"`
	To    caselaw.CaseID `json:"to"`
	// Steps is empty for the zero-hop chain of a case to itself.
	Steps []Step `json:"steps"`
}

// Hops returns the chain length in citations.
func (c Chain) Hops() int { return len(c.Steps) }

// Weight returns the cumulative authority weight of the chain.
func (c Chain) Weight() int {
	var w int
	for _, s := range c.Steps {
		w += s.Strength.ChainWeight()
	}
	return w
}

// Path returns the node sequence from the citing end to the cited end.
func (c Chain) Path() []caselaw.CaseID {
	if !c.Found {
		return nil
	}
	path := make([]caselaw.CaseID, 0, len(c.Steps)+1)
	path = append(path, c.From)
	for _, s := range c.Steps {
		path = append(path, s.To)
	}
	return path
}

// candidate is a settled best route to one node of the current BFS layer.
type candidate struct {
	weight int
	path   []caselaw.CaseID
}

// FindChain searches citing→cited edges for the shortest chain from one
// case to another, visiting at most maxHops citations.  Among equal-length
// chains the one with the highest cumulative authority weight wins; a
// remaining tie goes to the lexicographically smallest node-ID path, so the
// result is deterministic for any snapshot.
//
// Unknown endpoints return CodeCaseNotFound.  maxHops below zero is
// treated as zero, which can only satisfy a case paired with itself.
func FindChain(snap *graph.Snapshot, from, to caselaw.CaseID, maxHops int) (Chain, error) {
	if !snap.HasNode(from) {
		return Chain{}, errors.CaseNotFound(string(from))
	}
	if !snap.HasNode(to) {
		return Chain{}, errors.CaseNotFound(string(to))
	}
	if from == to {
		return Chain{Found: true, From: from, To: to, Steps: []Step{}}, nil
	}
	if maxHops < 0 {
		maxHops = 0
	}

	dist := map[caselaw.CaseID]int{from: 0}
	bests := map[caselaw.CaseID]candidate{from: {path: []caselaw.CaseID{from}}}
	frontier := []caselaw.CaseID{from}

	for hop := 0; hop < maxHops && len(frontier) > 0; hop++ {
		var next []caselaw.CaseID
		for _, u := range frontier {
			for _, e := range snap.Out(u) {
				if _, seen := dist[e.To]; !seen {
					dist[e.To] = hop + 1
					next = append(next, e.To)
				}
			}
		}

		// Settle the best route into each newly discovered node by looking
		// back at every predecessor on the previous layer.  All such routes
		// are shortest; weight then path order break the tie.
		for _, v := range next {
			var best candidate
			found := false
			for _, e := range snap.In(v) {
				du, seen := dist[e.From]
				if !seen || du != hop {
					continue
				}
				prev, ok := bests[e.From]
				if !ok {
					continue
				}
				cand := candidate{
					weight: prev.weight + e.Strength.ChainWeight(),
					path:   appendPath(prev.path, v),
				}
				if !found || betterCandidate(cand, best) {
					best = cand
					found = true
				}
			}
			bests[v] = best
		}

		if _, reached := dist[to]; reached {
			break
		}
		frontier = next
	}

	best, ok := bests[to]
	if !ok {
		return Chain{Found: false, From: from, To: to}, nil
	}

	steps := make([]Step, 0, len(best.path)-1)
	for i := 0; i+1 < len(best.path); i++ {
		steps = append(steps, Step{
			From:     best.path[i],
			To:       best.path[i+1],
			Strength: edgeStrength(snap, best.path[i], best.path[i+1]),
		})
	}
	return Chain{Found: true, From: from, To: to, Steps: steps}, nil
}

func appendPath(prefix []caselaw.CaseID, v caselaw.CaseID) []caselaw.CaseID {
	path := make([]caselaw.CaseID, 0, len(prefix)+1)
	path = append(path, prefix...)
	return append(path, v)
}

// betterCandidate prefers higher cumulative weight, then the
// lexicographically smaller path.  Both paths have equal length.
func betterCandidate(a, b candidate) bool {
	if a.weight != b.weight {
		return a.weight > b.weight
	}
	for i := range a.path {
		if a.path[i] != b.path[i] {
			return a.path[i] < b.path[i]
		}
	}
	return false
}

// edgeStrength looks up the stored classification of one citation.  The
// store keeps at most one edge per ordered pair, so the match is unique.
func edgeStrength(snap *graph.Snapshot, from, to caselaw.CaseID) caselaw.AuthorityStrength {
	for _, e := range snap.Out(from) {
		if e.To == to {
			return e.Strength
		}
	}
	return caselaw.StrengthUnknown
}
