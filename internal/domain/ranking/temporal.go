package ranking

import (
	"context"
	"math"
	"time"

	"github.com/turtacn/CiteRank-Engine/internal/domain/caselaw"
	"github.com/turtacn/CiteRank-Engine/internal/domain/graph"
	"github.com/turtacn/CiteRank-Engine/pkg/errors"
)

// hoursPerYear converts durations to fractional Julian years.
const hoursPerYear = 24 * 365.25

// TemporalResult holds the temporal influence scores of one run.
type TemporalResult struct {
	// Scores maps every case to 0.5·decay + 0.5·normalized velocity, both
	// components in [0, 1].  Cases without a decision date score 0.
	Scores map[caselaw.CaseID]float64
}

// ComputeTemporal scores each case by recency: an exponential age decay
// exp(-λ·age) anchored at opts.AsOf, blended with citation velocity — the
// per-year rate of incoming citations whose citing case was decided inside
// the rolling window, min-max normalized across cases with known dates.
//
// The velocity denominator is min(window, age) floored at one year, so
// very young cases are not inflated by a sub-year divisor.
func ComputeTemporal(ctx context.Context, snap *graph.Snapshot, opts TemporalOptions) (*TemporalResult, error) {
	opts = opts.withDefaults()
	if err := opts.Validate(); err != nil {
		return nil, err
	}
	if err := ctx.Err(); err != nil {
		return nil, errors.Cancelled(err)
	}

	ids := snap.IDs()
	lambda := opts.Lambda()
	decay := make(map[caselaw.CaseID]float64, len(ids))
	velocity := make(map[caselaw.CaseID]float64, len(ids))

	for _, id := range ids {
		c, ok := snap.Node(id)
		if !ok || !c.HasDecisionDate() {
			continue
		}
		age := yearsBetween(*c.DecidedAt, opts.AsOf)
		if age < 0 {
			age = 0
		}
		decay[id] = math.Exp(-lambda * age)

		var recent int
		for _, e := range snap.In(id) {
			citing, ok := snap.Node(e.From)
			if !ok || !citing.HasDecisionDate() {
				continue
			}
			citingAge := yearsBetween(*citing.DecidedAt, opts.AsOf)
			if citingAge < 0 || citingAge > opts.VelocityWindowYears {
				continue
			}
			recent++
		}
		span := math.Min(opts.VelocityWindowYears, age)
		if span < 1 {
			span = 1
		}
		velocity[id] = float64(recent) / span
	}

	// Velocity normalizes over dated cases only, so missing dates do not
	// drag the minimum to zero for everyone else.
	var vmin, vmax float64
	seen := false
	for _, id := range ids {
		v, ok := velocityValue(snap, velocity, id)
		if !ok {
			continue
		}
		if !seen {
			vmin, vmax = v, v
			seen = true
			continue
		}
		if v < vmin {
			vmin = v
		}
		if v > vmax {
			vmax = v
		}
	}

	scores := make(map[caselaw.CaseID]float64, len(ids))
	for _, id := range ids {
		v, ok := velocityValue(snap, velocity, id)
		if !ok {
			scores[id] = 0
			continue
		}
		var velNorm float64
		if vmax > vmin {
			velNorm = (v - vmin) / (vmax - vmin)
		}
		scores[id] = 0.5*decay[id] + 0.5*velNorm
	}

	return &TemporalResult{Scores: scores}, nil
}

// velocityValue reports the raw velocity of a case and whether the case has a
// decision date at all.
func velocityValue(snap *graph.Snapshot, velocity map[caselaw.CaseID]float64, id caselaw.CaseID) (float64, bool) {
	c, ok := snap.Node(id)
	if !ok || !c.HasDecisionDate() {
		return 0, false
	}
	return velocity[id], true
}

// yearsBetween returns the signed span from one instant to another in
// fractional years.
func yearsBetween(from, to time.Time) float64 {
	return to.Sub(from).Hours() / hoursPerYear
}
