package ranking

import (
	"strings"
	"time"

	"github.com/turtacn/CiteRank-Engine/internal/domain/caselaw"
	"github.com/turtacn/CiteRank-Engine/internal/domain/graph"
	"github.com/turtacn/CiteRank-Engine/pkg/types/common"
)

// ScoreEntry collects every ranking signal for one case.
type ScoreEntry struct {
	PageRank  float64 `json:"pagerank"`
	Hub       float64 `json:"hub"`
	Authority float64 `json:"authority"`
	Temporal  float64 `json:"temporal"`
	Citations int     `json:"citations"`
	Composite float64 `json:"composite"`
}

// RankedCase is one row of the published total order.
type RankedCase struct {
	Rank      int            `json:"rank"`
	ID        caselaw.CaseID `json:"case_id"`
	Composite float64        `json:"composite"`
}

// ScoreSnapshot is an immutable scoring of one graph snapshot.  It keeps a
// reference to the graph it was computed from so queries can filter on case
// metadata that is guaranteed consistent with the scores.
type ScoreSnapshot struct {
	// Version uniquely identifies this scoring run.
	Version string `json:"version"`
	// Generation is the graph generation the scores were computed from.
	Generation uint64 `json:"generation"`
	// ComputedAt anchors the temporal signal and timestamps the run.
	ComputedAt time.Time `json:"computed_at"`

	Graph   *graph.Snapshot               `json:"-"`
	Entries map[caselaw.CaseID]ScoreEntry `json:"entries"`
	// Ranked is the full total order, best first.
	Ranked []RankedCase `json:"ranked"`

	PageRankIterations int  `json:"pagerank_iterations"`
	PageRankConverged  bool `json:"pagerank_converged"`
	HITSIterations     int  `json:"hits_iterations"`
	HITSConverged      bool `json:"hits_converged"`
}

// Len returns the number of scored cases.
func (s *ScoreSnapshot) Len() int { return len(s.Entries) }

// Converged reports whether every iterative signal converged within its cap.
func (s *ScoreSnapshot) Converged() bool {
	return s.PageRankConverged && s.HITSConverged
}

// Entry returns the signals for one case.
func (s *ScoreSnapshot) Entry(id caselaw.CaseID) (ScoreEntry, bool) {
	e, ok := s.Entries[id]
	return e, ok
}

// Filter restricts a TopK query.  Zero-valued fields do not filter.
type Filter struct {
	// Jurisdiction matches case-insensitively.
	Jurisdiction string
	// CourtLevel matches exactly.
	CourtLevel caselaw.CourtLevel
	// Decided keeps only cases whose decision date falls in the range; open
	// ends are unbounded.  Cases without a date never match a set range.
	Decided *common.DateRange
}

func (f *Filter) matches(c *caselaw.Case) bool {
	if f == nil {
		return true
	}
	if f.Jurisdiction != "" && !strings.EqualFold(c.Jurisdiction, f.Jurisdiction) {
		return false
	}
	if f.CourtLevel != "" && c.CourtLevel != f.CourtLevel {
		return false
	}
	if f.Decided != nil {
		if !c.HasDecisionDate() {
			return false
		}
		if !f.Decided.Contains(*c.DecidedAt) {
			return false
		}
	}
	return true
}

// TopK returns the best-ranked cases that pass the filter, at most n of
// them.  Ordering follows the snapshot's published total order, so repeated
// calls with the same arguments return identical slices.
func (s *ScoreSnapshot) TopK(n int, f *Filter) []RankedCase {
	if n <= 0 {
		return []RankedCase{}
	}
	out := make([]RankedCase, 0, n)
	for _, rc := range s.Ranked {
		c, ok := s.Graph.Node(rc.ID)
		if !ok || !f.matches(c) {
			continue
		}
		out = append(out, rc)
		if len(out) == n {
			break
		}
	}
	return out
}
