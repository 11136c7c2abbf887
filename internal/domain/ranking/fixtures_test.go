package ranking

import (
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/turtacn/CiteRank-Engine/internal/domain/caselaw"
	"github.com/turtacn/CiteRank-Engine/internal/domain/graph"
)

// citation is one from→to edge consumed by the snapshot builders.
type citation struct {
	from, to caselaw.CaseID
	strength caselaw.AuthorityStrength
}

func cites(from, to caselaw.CaseID) citation {
	return citation{from: from, to: to, strength: caselaw.StrengthUnknown}
}

func newTestStore(t *testing.T, citations ...citation) *graph.Store {
	t.Helper()
	s := graph.NewStore(graph.DefaultStoreOptions())
	for _, c := range citations {
		require.NoError(t, s.UpsertEdge(c.from, c.to, c.strength, 0))
	}
	return s
}

func buildSnapshot(t *testing.T, citations ...citation) *graph.Snapshot {
	t.Helper()
	return newTestStore(t, citations...).Snapshot()
}

// decideCase stamps decision metadata onto an existing (or new) node.
func decideCase(t *testing.T, s *graph.Store, id caselaw.CaseID, decided time.Time) {
	t.Helper()
	require.NoError(t, s.UpsertNode(&caselaw.Case{
		ID:           id,
		CourtLevel:   caselaw.CourtSupreme,
		Jurisdiction: "US",
		DecidedAt:    &decided,
	}))
}

// cycleSnapshot builds a→b→c→a.
func cycleSnapshot(t *testing.T) *graph.Snapshot {
	t.Helper()
	return buildSnapshot(t,
		cites("a", "b"),
		cites("b", "c"),
		cites("c", "a"),
	)
}

// starSnapshot builds s1..s3 all citing hub.
func starSnapshot(t *testing.T) *graph.Snapshot {
	t.Helper()
	return buildSnapshot(t,
		cites("s1", "hub"),
		cites("s2", "hub"),
		cites("s3", "hub"),
	)
}

func scoreSum(scores map[caselaw.CaseID]float64) float64 {
	var sum float64
	for _, v := range scores {
		sum += v
	}
	return sum
}
