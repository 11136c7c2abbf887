// Package ranking implements the score calculators of the citation graph:
// PageRank, HITS, temporal influence, and the composite fusion that merges
// them into one published ScoreSnapshot.  Every calculator is a pure
// function over an immutable graph snapshot, so convergence behaviour is
// testable in isolation and concurrent execution needs no locking.
package ranking

import (
	"math"
	"time"

	"github.com/turtacn/CiteRank-Engine/pkg/errors"
)

// Algorithm defaults.
const (
	// DefaultDamping is the probability of following a citation rather than
	// jumping to a random case, per the original PageRank formulation.
	DefaultDamping = 0.85

	// DefaultTolerance is the L1 convergence threshold: iteration stops once
	// the summed absolute score change falls below it.
	DefaultTolerance = 1e-6

	// DefaultMaxIterations caps power iteration.  Hitting the cap is a
	// convergence warning, not an error.
	DefaultMaxIterations = 100

	// DefaultHalfLifeYears tunes age decay so a 20-year-old case retains
	// half of its decay multiplier: λ = ln(2)/20.
	DefaultHalfLifeYears = 20.0

	// DefaultVelocityWindowYears is the rolling window over which recent
	// incoming citations are counted.
	DefaultVelocityWindowYears = 5.0
)

// weightSumTolerance bounds the allowed drift of the fusion-weight sum from 1.
const weightSumTolerance = 1e-9

// ─────────────────────────────────────────────────────────────────────────────
// PageRank options
// ─────────────────────────────────────────────────────────────────────────────

// PageRankOptions configures the PageRank power iteration.
type PageRankOptions struct {
	// Damping must be strictly between 0 and 1.
	Damping float64
	// Tolerance is the L1 convergence threshold.
	Tolerance float64
	// MaxIterations caps the iteration count.
	MaxIterations int
	// StrengthWeighted distributes rank proportionally to each citation's
	// authority strength instead of uniformly over out-citations.
	StrengthWeighted bool
}

// DefaultPageRankOptions returns the standard configuration.
func DefaultPageRankOptions() PageRankOptions {
	return PageRankOptions{
		Damping:       DefaultDamping,
		Tolerance:     DefaultTolerance,
		MaxIterations: DefaultMaxIterations,
	}
}

// withDefaults fills zero-valued fields with the standard configuration.
func (o PageRankOptions) withDefaults() PageRankOptions {
	if o.Damping == 0 {
		o.Damping = DefaultDamping
	}
	if o.Tolerance == 0 {
		o.Tolerance = DefaultTolerance
	}
	if o.MaxIterations == 0 {
		o.MaxIterations = DefaultMaxIterations
	}
	return o
}

// Validate checks the options after defaulting.
func (o PageRankOptions) Validate() error {
	if o.Damping <= 0 || o.Damping >= 1 {
		return errors.Newf(errors.ErrCodeRankingOptionsInvalid, "damping %v is out of range (0, 1)", o.Damping)
	}
	if o.Tolerance <= 0 {
		return errors.Newf(errors.ErrCodeRankingOptionsInvalid, "tolerance must be > 0, got %v", o.Tolerance)
	}
	if o.MaxIterations < 1 {
		return errors.Newf(errors.ErrCodeRankingOptionsInvalid, "max iterations must be ≥ 1, got %d", o.MaxIterations)
	}
	return nil
}

// ─────────────────────────────────────────────────────────────────────────────
// HITS options
// ─────────────────────────────────────────────────────────────────────────────

// HITSOptions configures the alternating hub/authority iteration.
type HITSOptions struct {
	// Tolerance is the L1 convergence threshold over both vectors.
	Tolerance float64
	// MaxIterations caps the iteration count.
	MaxIterations int
}

// DefaultHITSOptions returns the standard configuration.
func DefaultHITSOptions() HITSOptions {
	return HITSOptions{
		Tolerance:     DefaultTolerance,
		MaxIterations: DefaultMaxIterations,
	}
}

func (o HITSOptions) withDefaults() HITSOptions {
	if o.Tolerance == 0 {
		o.Tolerance = DefaultTolerance
	}
	if o.MaxIterations == 0 {
		o.MaxIterations = DefaultMaxIterations
	}
	return o
}

// Validate checks the options after defaulting.
func (o HITSOptions) Validate() error {
	if o.Tolerance <= 0 {
		return errors.Newf(errors.ErrCodeRankingOptionsInvalid, "tolerance must be > 0, got %v", o.Tolerance)
	}
	if o.MaxIterations < 1 {
		return errors.Newf(errors.ErrCodeRankingOptionsInvalid, "max iterations must be ≥ 1, got %d", o.MaxIterations)
	}
	return nil
}

// ─────────────────────────────────────────────────────────────────────────────
// Temporal options
// ─────────────────────────────────────────────────────────────────────────────

// TemporalOptions configures the age-decay and citation-velocity signals.
type TemporalOptions struct {
	// HalfLifeYears sets the decay constant λ = ln(2)/HalfLifeYears.
	HalfLifeYears float64
	// VelocityWindowYears is the rolling window for recent-citation counting.
	VelocityWindowYears float64
	// AsOf anchors all age computation.  Zero means time.Now at call time;
	// tests pin it for reproducibility.
	AsOf time.Time
}

// DefaultTemporalOptions returns the standard configuration.
func DefaultTemporalOptions() TemporalOptions {
	return TemporalOptions{
		HalfLifeYears:       DefaultHalfLifeYears,
		VelocityWindowYears: DefaultVelocityWindowYears,
	}
}

func (o TemporalOptions) withDefaults() TemporalOptions {
	if o.HalfLifeYears == 0 {
		o.HalfLifeYears = DefaultHalfLifeYears
	}
	if o.VelocityWindowYears == 0 {
		o.VelocityWindowYears = DefaultVelocityWindowYears
	}
	if o.AsOf.IsZero() {
		o.AsOf = time.Now()
	}
	return o
}

// Validate checks the options after defaulting.
func (o TemporalOptions) Validate() error {
	if o.HalfLifeYears <= 0 {
		return errors.Newf(errors.ErrCodeRankingOptionsInvalid, "half-life must be > 0, got %v", o.HalfLifeYears)
	}
	if o.VelocityWindowYears <= 0 {
		return errors.Newf(errors.ErrCodeRankingOptionsInvalid, "velocity window must be > 0, got %v", o.VelocityWindowYears)
	}
	return nil
}

// Lambda returns the decay constant derived from the half-life.
func (o TemporalOptions) Lambda() float64 {
	return math.Ln2 / o.HalfLifeYears
}

// ─────────────────────────────────────────────────────────────────────────────
// Fusion weights
// ─────────────────────────────────────────────────────────────────────────────

// FusionWeights holds the relative contribution of each signal to the
// composite score.  They must be non-negative and sum to 1.
type FusionWeights struct {
	PageRank  float64
	Authority float64
	Temporal  float64
	Citations float64
}

// DefaultFusionWeights returns the standard 40/30/20/10 split.
func DefaultFusionWeights() FusionWeights {
	return FusionWeights{
		PageRank:  0.40,
		Authority: 0.30,
		Temporal:  0.20,
		Citations: 0.10,
	}
}

// withDefaults substitutes the standard split for an all-zero value.
// Partially-set weights are left alone so Validate can reject them.
func (w FusionWeights) withDefaults() FusionWeights {
	if w == (FusionWeights{}) {
		return DefaultFusionWeights()
	}
	return w
}

// Validate checks that the weights form a convex combination.
func (w FusionWeights) Validate() error {
	if w.PageRank < 0 || w.Authority < 0 || w.Temporal < 0 || w.Citations < 0 {
		return errors.New(errors.ErrCodeRankingOptionsInvalid, "fusion weights must be ≥ 0")
	}
	if sum := w.PageRank + w.Authority + w.Temporal + w.Citations; math.Abs(sum-1) > weightSumTolerance {
		return errors.Newf(errors.ErrCodeRankingOptionsInvalid, "fusion weights must sum to 1, got %v", sum)
	}
	return nil
}
