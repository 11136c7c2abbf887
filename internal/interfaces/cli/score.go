package cli

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/turtacn/CiteRank-Engine/internal/domain/caselaw"
	scoring "github.com/turtacn/CiteRank-Engine/internal/domain/ranking"
)

// scoreReport is the printable score breakdown for one case.
type scoreReport struct {
	ID       caselaw.CaseID     `json:"case_id"`
	Snapshot string             `json:"snapshot"`
	Scores   scoring.ScoreEntry `json:"scores"`
}

func (r scoreReport) String() string {
	var sb strings.Builder
	fmt.Fprintf(&sb, "%s (snapshot %s)\n", r.ID, r.Snapshot)
	fmt.Fprintf(&sb, "  pagerank:  %.6f\n", r.Scores.PageRank)
	fmt.Fprintf(&sb, "  hub:       %.6f\n", r.Scores.Hub)
	fmt.Fprintf(&sb, "  authority: %.6f\n", r.Scores.Authority)
	fmt.Fprintf(&sb, "  temporal:  %.6f\n", r.Scores.Temporal)
	fmt.Fprintf(&sb, "  citations: %d\n", r.Scores.Citations)
	fmt.Fprintf(&sb, "  composite: %.6f", r.Scores.Composite)
	return sb.String()
}

func (r scoreReport) TableHeaders() []string { return []string{"Signal", "Value"} }

func (r scoreReport) TableRows() [][]string {
	return [][]string{
		{"pagerank", fmt.Sprintf("%.6f", r.Scores.PageRank)},
		{"hub", fmt.Sprintf("%.6f", r.Scores.Hub)},
		{"authority", fmt.Sprintf("%.6f", r.Scores.Authority)},
		{"temporal", fmt.Sprintf("%.6f", r.Scores.Temporal)},
		{"citations", fmt.Sprintf("%d", r.Scores.Citations)},
		{"composite", fmt.Sprintf("%.6f", r.Scores.Composite)},
	}
}

// NewScoreCmd creates the score command.
func NewScoreCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "score CASE_ID",
		Short: "Show every ranking signal for one case",
		Long: "Score recomputes the ranking and prints the full signal breakdown for\n" +
			"one case: PageRank, HITS hub and authority, temporal influence, raw\n" +
			"citation count, and the fused composite.",
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			engine, _, err := rankedEngine(cmd)
			if err != nil {
				return err
			}
			id := caselaw.CaseID(args[0])
			entry, err := engine.Ranking.GetScore(id)
			if err != nil {
				return err
			}
			return PrintResult(cmd, scoreReport{
				ID:       id,
				Snapshot: engine.Ranking.Version(),
				Scores:   entry,
			})
		},
	}
}
