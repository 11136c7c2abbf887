package ranking

import (
	"sort"
	"time"

	"github.com/google/uuid"

	"github.com/turtacn/CiteRank-Engine/internal/domain/caselaw"
	"github.com/turtacn/CiteRank-Engine/internal/domain/graph"
	"github.com/turtacn/CiteRank-Engine/pkg/errors"
)

// BuildScoreSnapshot fuses the three signal results and the raw citation
// counts into a single immutable ScoreSnapshot with a precomputed total
// order.  PageRank, authority, and citation count are min-max normalized
// independently before weighting; temporal is already in [0, 1].
//
// When no case in the snapshot has a decision date the temporal signal
// carries no information, so its weight is renormalized away over the
// remaining signals instead of silently deflating every composite.
func BuildScoreSnapshot(snap *graph.Snapshot, pr *PageRankResult, hits *HITSResult, temporal *TemporalResult, weights FusionWeights, computedAt time.Time) (*ScoreSnapshot, error) {
	if snap == nil || pr == nil || hits == nil || temporal == nil {
		return nil, errors.New(errors.ErrCodeRankingOptionsInvalid, "all ranking signals are required")
	}
	weights = weights.withDefaults()
	if err := weights.Validate(); err != nil {
		return nil, err
	}
	if computedAt.IsZero() {
		computedAt = time.Now()
	}

	ids := snap.IDs()
	prNorm := normalizeMinMax(ids, pr.Scores)
	authNorm := normalizeMinMax(ids, hits.Authorities)

	citations := make(map[caselaw.CaseID]float64, len(ids))
	for _, id := range ids {
		citations[id] = float64(snap.InDegree(id))
	}
	citNorm := normalizeMinMax(ids, citations)

	scale := 1.0
	if !anyDecisionDate(snap, ids) {
		if denom := weights.PageRank + weights.Authority + weights.Citations; denom > 0 {
			scale = 1 / denom
		} else {
			scale = 0
		}
	}

	entries := make(map[caselaw.CaseID]ScoreEntry, len(ids))
	for _, id := range ids {
		e := ScoreEntry{
			PageRank:  pr.Scores[id],
			Hub:       hits.Hubs[id],
			Authority: hits.Authorities[id],
			Temporal:  temporal.Scores[id],
			Citations: snap.InDegree(id),
		}
		e.Composite = scale * (weights.PageRank*prNorm[id] +
			weights.Authority*authNorm[id] +
			weights.Temporal*temporal.Scores[id] +
			weights.Citations*citNorm[id])
		entries[id] = e
	}

	ranked := make([]RankedCase, 0, len(ids))
	for _, id := range ids {
		ranked = append(ranked, RankedCase{ID: id, Composite: entries[id].Composite})
	}
	sort.Slice(ranked, func(i, j int) bool {
		return lessRanked(snap, entries, ranked[i].ID, ranked[j].ID)
	})
	for i := range ranked {
		ranked[i].Rank = i + 1
	}

	return &ScoreSnapshot{
		Version:    uuid.NewString(),
		Generation: snap.Generation(),
		ComputedAt: computedAt,
		Graph:      snap,
		Entries:    entries,
		Ranked:     ranked,

		PageRankIterations: pr.Iterations,
		PageRankConverged:  pr.Converged,
		HITSIterations:     hits.Iterations,
		HITSConverged:      hits.Converged,
	}, nil
}

// lessRanked is the published total order: composite descending, citation
// count descending, decision date descending with undated cases last, then
// case ID ascending.  Every query path shares it so pagination is stable.
func lessRanked(snap *graph.Snapshot, entries map[caselaw.CaseID]ScoreEntry, a, b caselaw.CaseID) bool {
	ea, eb := entries[a], entries[b]
	if ea.Composite != eb.Composite {
		return ea.Composite > eb.Composite
	}
	if ea.Citations != eb.Citations {
		return ea.Citations > eb.Citations
	}
	da, db := decisionDate(snap, a), decisionDate(snap, b)
	switch {
	case da != nil && db != nil && !da.Equal(*db):
		return da.After(*db)
	case da != nil && db == nil:
		return true
	case da == nil && db != nil:
		return false
	}
	return a < b
}

func anyDecisionDate(snap *graph.Snapshot, ids []caselaw.CaseID) bool {
	for _, id := range ids {
		if c, ok := snap.Node(id); ok && c.HasDecisionDate() {
			return true
		}
	}
	return false
}

func decisionDate(snap *graph.Snapshot, id caselaw.CaseID) *time.Time {
	c, ok := snap.Node(id)
	if !ok || !c.HasDecisionDate() {
		return nil
	}
	return c.DecidedAt
}

// normalizeMinMax rescales the values to [0, 1].  A constant vector maps to
// all zeros so a degenerate signal cannot dominate the fusion.
func normalizeMinMax(ids []caselaw.CaseID, vals map[caselaw.CaseID]float64) map[caselaw.CaseID]float64 {
	out := make(map[caselaw.CaseID]float64, len(ids))
	if len(ids) == 0 {
		return out
	}
	lo, hi := vals[ids[0]], vals[ids[0]]
	for _, id := range ids[1:] {
		v := vals[id]
		if v < lo {
			lo = v
		}
		if v > hi {
			hi = v
		}
	}
	if hi == lo {
		for _, id := range ids {
			out[id] = 0
		}
		return out
	}
	for _, id := range ids {
		out[id] = (vals[id] - lo) / (hi - lo)
	}
	return out
}
