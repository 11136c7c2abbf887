package ranking

import (
	"context"
	"math"

	"github.com/turtacn/CiteRank-Engine/internal/domain/caselaw"
	"github.com/turtacn/CiteRank-Engine/internal/domain/graph"
	"github.com/turtacn/CiteRank-Engine/pkg/errors"
)

// HITSResult holds the hub and authority vectors of one run.
type HITSResult struct {
	// Authorities scores cases by how strongly well-connected hubs cite them.
	// In a citation graph this surfaces foundational precedent.
	Authorities map[caselaw.CaseID]float64
	// Hubs scores cases by how well they cite strong authorities.  Survey-style
	// opinions that collect the leading precedent score high here.
	Hubs map[caselaw.CaseID]float64
	// Iterations is the number of passes actually executed.
	Iterations int
	// Converged mirrors PageRankResult.Converged.
	Converged bool
	// Delta is the summed absolute change of both vectors in the final pass.
	Delta float64
}

// ComputeHITS runs the alternating hub/authority iteration: each pass
// recomputes authority as the hub mass of a case's citers, then hub as the
// authority mass of the cases it cites, normalizing each vector to unit L2
// length.  Convergence and cancellation follow the PageRank policy.
//
// A graph without edges yields all-zero vectors and converges immediately.
func ComputeHITS(ctx context.Context, snap *graph.Snapshot, opts HITSOptions) (*HITSResult, error) {
	opts = opts.withDefaults()
	if err := opts.Validate(); err != nil {
		return nil, err
	}

	ids := snap.IDs()
	n := len(ids)
	auth := make(map[caselaw.CaseID]float64, n)
	hubs := make(map[caselaw.CaseID]float64, n)

	if snap.EdgeCount() == 0 {
		for _, id := range ids {
			auth[id] = 0
			hubs[id] = 0
		}
		return &HITSResult{Authorities: auth, Hubs: hubs, Converged: true}, nil
	}

	init := 1.0 / math.Sqrt(float64(n))
	for _, id := range ids {
		auth[id] = init
		hubs[id] = init
	}

	nextAuth := make(map[caselaw.CaseID]float64, n)
	nextHubs := make(map[caselaw.CaseID]float64, n)
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

		for _, id := range ids {
			var s float64
			for _, e := range snap.In(id) {
				s += hubs[e.From]
			}
			nextAuth[id] = s
		}
		normalizeL2(ids, nextAuth)

		for _, id := range ids {
			var s float64
			for _, e := range snap.Out(id) {
				s += nextAuth[e.To]
			}
			nextHubs[id] = s
		}
		normalizeL2(ids, nextHubs)

		delta = 0
		for _, id := range ids {
			delta += math.Abs(nextAuth[id]-auth[id]) + math.Abs(nextHubs[id]-hubs[id])
		}
		auth, nextAuth = nextAuth, auth
		hubs, nextHubs = nextHubs, hubs

		if delta < opts.Tolerance {
			converged = true
			break
		}
	}

	return &HITSResult{
		Authorities: auth,
		Hubs:        hubs,
		Iterations:  iter,
		Converged:   converged,
		Delta:       delta,
	}, nil
}

// normalizeL2 scales the vector to unit Euclidean length in place.  A zero
// vector is left untouched.
func normalizeL2(ids []caselaw.CaseID, v map[caselaw.CaseID]float64) {
	var ss float64
	for _, id := range ids {
		ss += v[id] * v[id]
	}
	if ss == 0 {
		return
	}
	norm := math.Sqrt(ss)
	for _, id := range ids {
		v[id] /= norm
	}
}
