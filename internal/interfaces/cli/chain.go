package cli

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/turtacn/CiteRank-Engine/internal/domain/caselaw"
	"github.com/turtacn/CiteRank-Engine/internal/domain/precedent"
)

var chainMaxHops int

// chainReport is the printable result of a chain search.  Found false is a
// result, not an error: both cases exist but no citation route connects them
// within the hop budget.
type chainReport struct {
	Found  bool             `json:"found"`
	From   caselaw.CaseID   `json:"from"`
	To     caselaw.CaseID   `json:"to"`
	Hops   int              `json:"hops"`
	Weight int              `json:"weight"`
	Steps  []precedent.Step `json:"steps,omitempty"`
}

func (r chainReport) String() string {
	if !r.Found {
		return fmt.Sprintf("no citation chain from %s to %s", r.From, r.To)
	}
	path := make([]string, 0, len(r.Steps)+1)
	path = append(path, string(r.From))
	for _, s := range r.Steps {
		path = append(path, string(s.To))
	}
	return fmt.Sprintf("%s (%d hops, weight %d)", strings.Join(path, " -> "), r.Hops, r.Weight)
}

func (r chainReport) TableHeaders() []string { return []string{"Step", "Citing", "Cited", "Strength"} }

func (r chainReport) TableRows() [][]string {
	rows := make([][]string, 0, len(r.Steps))
	for i, s := range r.Steps {
		rows = append(rows, []string{
			fmt.Sprintf("%d", i+1),
			string(s.From),
			string(s.To),
			string(s.Strength),
		})
	}
	return rows
}

// NewChainCmd creates the chain command.
func NewChainCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "chain FROM TO",
		Short: "Find the shortest citation chain between two cases",
		Long: "Chain searches the citation graph for the shortest route from one case\n" +
			"to another, following citations in the direction they were made.  Among\n" +
			"routes of equal length, the one with the highest cumulative authority\n" +
			"weight wins.",
		Args: cobra.ExactArgs(2),
		RunE: runChain,
	}
	cmd.Flags().IntVar(&chainMaxHops, "max-hops", 0, "hop budget (0 uses the configured default)")
	return cmd
}

func runChain(cmd *cobra.Command, args []string) error {
	// Chain search reads the graph directly; it needs no score snapshot.
	engine, _, err := buildEngine(cmd)
	if err != nil {
		return err
	}
	chain, err := engine.Ranking.FindChain(caselaw.CaseID(args[0]), caselaw.CaseID(args[1]), chainMaxHops)
	if err != nil {
		return err
	}
	return PrintResult(cmd, chainReport{
		Found:  chain.Found,
		From:   chain.From,
		To:     chain.To,
		Hops:   chain.Hops(),
		Weight: chain.Weight(),
		Steps:  chain.Steps,
	})
}
