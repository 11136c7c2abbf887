package ranking

import (
	"context"
	"math"

	"github.com/turtacn/CiteRank-Engine/internal/domain/caselaw"
	"github.com/turtacn/CiteRank-Engine/internal/domain/graph"
	"github.com/turtacn/CiteRank-Engine/pkg/errors"
)

// PageRankResult holds the outcome of one power-iteration run.
type PageRankResult struct {
	// Scores maps every case to its rank mass.  The values sum to 1.
	Scores map[caselaw.CaseID]float64
	// Iterations is the number of passes actually executed.
	Iterations int
	// Converged is false when the iteration cap was hit before the L1 change
	// dropped below tolerance.  The scores are still usable; callers should
	// surface a warning rather than fail.
	Converged bool
	// Delta is the L1 score change of the final pass.
	Delta float64
}

// ComputePageRank runs power iteration over the snapshot until the summed
// absolute score change falls below opts.Tolerance or the iteration cap is
// reached.  Rank flows along citations: a case cited by well-ranked cases
// ranks well itself.  Rank held by cases with no outgoing citations is
// redistributed uniformly each pass so total mass stays at 1.
//
// Cancellation is checked between passes; a cancelled run returns a
// CodeCancelled error and no result.
func ComputePageRank(ctx context.Context, snap *graph.Snapshot, opts PageRankOptions) (*PageRankResult, error) {
	opts = opts.withDefaults()
	if err := opts.Validate(); err != nil {
		return nil, err
	}

	ids := snap.IDs()
	n := len(ids)
	if n == 0 {
		return &PageRankResult{Scores: map[caselaw.CaseID]float64{}, Converged: true}, nil
	}

	// Propagation mass per case: the summed weight of its outgoing citations.
	// Zero mass marks a dangling case.
	outWeight := make(map[caselaw.CaseID]float64, n)
	for _, id := range ids {
		var w float64
		for _, e := range snap.Out(id) {
			w += e.PropagationWeight(opts.StrengthWeighted)
		}
		outWeight[id] = w
	}

	scores := make(map[caselaw.CaseID]float64, n)
	next := make(map[caselaw.CaseID]float64, n)
	for _, id := range ids {
		scores[id] = 1.0 / float64(n)
	}

	base := (1 - opts.Damping) / float64(n)
	var (
		iter      int
		delta     float64
		converged bool
	)
	for iter < opts.MaxIterations {
		if err := ctx.Err(); err != nil {
			return nil, errors.Cancelled(err)
		}
		iter++

		var danglingMass float64
		for _, id := range ids {
			if outWeight[id] == 0 {
				danglingMass += scores[id]
			}
		}
		danglingShare := opts.Damping * danglingMass / float64(n)

		delta = 0
		for _, id := range ids {
			var sum float64
			for _, e := range snap.In(id) {
				w := e.PropagationWeight(opts.StrengthWeighted)
				sum += scores[e.From] * w / outWeight[e.From]
			}
			s := base + danglingShare + opts.Damping*sum
			next[id] = s
			delta += math.Abs(s - scores[id])
		}
		scores, next = next, scores

		if delta < opts.Tolerance {
			converged = true
			break
		}
	}

	return &PageRankResult{
		Scores:     scores,
		Iterations: iter,
		Converged:  converged,
		Delta:      delta,
	}, nil
}
