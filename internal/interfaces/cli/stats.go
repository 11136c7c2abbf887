package cli

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/turtacn/CiteRank-Engine/internal/domain/stats"
)

// statsReport wraps the structural summary for printing.
type statsReport struct {
	stats.Summary
}

func formatDegrees(d stats.DegreeSummary) string {
	return fmt.Sprintf("min %d, mean %.2f, p50 %.1f, p95 %.1f, p99 %.1f, max %d",
		d.Min, d.Mean, d.P50, d.P95, d.P99, d.Max)
}

func (r statsReport) String() string {
	var sb strings.Builder
	fmt.Fprintf(&sb, "cases:       %d\n", r.Nodes)
	fmt.Fprintf(&sb, "citations:   %d\n", r.Edges)
	fmt.Fprintf(&sb, "density:     %.6f\n", r.Density)
	fmt.Fprintf(&sb, "components:  %d\n", r.Components)
	fmt.Fprintf(&sb, "dangling:    %.2f%%\n", r.DanglingFraction*100)
	fmt.Fprintf(&sb, "in-degree:   %s\n", formatDegrees(r.InDegree))
	fmt.Fprintf(&sb, "out-degree:  %s", formatDegrees(r.OutDegree))
	return sb.String()
}

func (r statsReport) TableHeaders() []string { return []string{"Metric", "Value"} }

func (r statsReport) TableRows() [][]string {
	return [][]string{
		{"cases", fmt.Sprintf("%d", r.Nodes)},
		{"citations", fmt.Sprintf("%d", r.Edges)},
		{"density", fmt.Sprintf("%.6f", r.Density)},
		{"components", fmt.Sprintf("%d", r.Components)},
		{"dangling fraction", fmt.Sprintf("%.2f%%", r.DanglingFraction*100)},
		{"in-degree", formatDegrees(r.InDegree)},
		{"out-degree", formatDegrees(r.OutDegree)},
	}
}

// NewStatsCmd creates the stats command.
func NewStatsCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "stats",
		Short: "Summarize the citation graph's structure",
		Long: "Stats reports the structural shape of the loaded citation graph: node\n" +
			"and edge counts, density, degree distributions, weakly connected\n" +
			"components, and the share of cases that cite nothing.",
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			// Statistics read the graph directly; no score snapshot needed.
			engine, _, err := buildEngine(cmd)
			if err != nil {
				return err
			}
			return PrintResult(cmd, statsReport{Summary: engine.Ranking.Statistics()})
		},
	}
}
