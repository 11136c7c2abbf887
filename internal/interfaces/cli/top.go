package cli

import (
	"fmt"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/turtacn/CiteRank-Engine/internal/domain/caselaw"
	scoring "github.com/turtacn/CiteRank-Engine/internal/domain/ranking"
	"github.com/turtacn/CiteRank-Engine/pkg/errors"
	"github.com/turtacn/CiteRank-Engine/pkg/types/common"
)

var (
	topLimit        int
	topJurisdiction string
	topCourt        string
	topSince        string
	topUntil        string
)

// topListing is the printable result of a top query.
type topListing struct {
	Snapshot string               `json:"snapshot"`
	Cases    []scoring.RankedCase `json:"cases"`
}

func (l topListing) String() string {
	if len(l.Cases) == 0 {
		return "no cases matched"
	}
	var sb strings.Builder
	for _, c := range l.Cases {
		fmt.Fprintf(&sb, "%4d  %-40s  %.6f\n", c.Rank, string(c.ID), c.Composite)
	}
	fmt.Fprintf(&sb, "snapshot %s", l.Snapshot)
	return sb.String()
}

func (l topListing) TableHeaders() []string { return []string{"Rank", "Case", "Composite"} }

func (l topListing) TableRows() [][]string {
	rows := make([][]string, 0, len(l.Cases))
	for _, c := range l.Cases {
		rows = append(rows, []string{
			fmt.Sprintf("%d", c.Rank),
			string(c.ID),
			fmt.Sprintf("%.6f", c.Composite),
		})
	}
	return rows
}

// NewTopCmd creates the top command.
func NewTopCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "top",
		Short: "List the best-ranked cases",
		Long: "Top recomputes the composite ranking over the loaded citation graph and\n" +
			"lists the best-ranked cases.  Filters narrow the listing without\n" +
			"renumbering: a filtered case keeps its global rank.",
		Args: cobra.NoArgs,
		RunE: runTop,
	}

	cmd.Flags().IntVar(&topLimit, "limit", 10, "maximum number of cases to list")
	cmd.Flags().StringVar(&topJurisdiction, "jurisdiction", "", "only cases from this jurisdiction")
	cmd.Flags().StringVar(&topCourt, "court", "", "only cases at this court level (trial|appellate|federal-circuit|supreme)")
	cmd.Flags().StringVar(&topSince, "since", "", "only cases decided on or after this date (YYYY-MM-DD)")
	cmd.Flags().StringVar(&topUntil, "until", "", "only cases decided on or before this date (YYYY-MM-DD)")

	return cmd
}

func runTop(cmd *cobra.Command, args []string) error {
	if topLimit < 1 {
		return errors.Newf(errors.ErrCodeValidation, "limit must be positive, got %d", topLimit)
	}
	filter, err := buildTopFilter()
	if err != nil {
		return err
	}

	engine, _, err := rankedEngine(cmd)
	if err != nil {
		return err
	}
	ranked, err := engine.Ranking.TopK(topLimit, filter)
	if err != nil {
		return err
	}
	return PrintResult(cmd, topListing{Snapshot: engine.Ranking.Version(), Cases: ranked})
}

func buildTopFilter() (*scoring.Filter, error) {
	filter := scoring.Filter{Jurisdiction: topJurisdiction}

	// An empty court flag means no filter; parsing it would yield
	// CourtUnknown, which only matches unclassified cases.
	if topCourt != "" {
		level, err := caselaw.ParseCourtLevel(topCourt)
		if err != nil {
			return nil, err
		}
		filter.CourtLevel = level
	}

	var since, until time.Time
	var err error
	if topSince != "" {
		since, err = time.Parse("2006-01-02", topSince)
		if err != nil {
			return nil, errors.Newf(errors.ErrCodeValidation, "invalid since date %q (must be YYYY-MM-DD)", topSince)
		}
	}
	if topUntil != "" {
		until, err = time.Parse("2006-01-02", topUntil)
		if err != nil {
			return nil, errors.Newf(errors.ErrCodeValidation, "invalid until date %q (must be YYYY-MM-DD)", topUntil)
		}
	}
	if !since.IsZero() && !until.IsZero() && since.After(until) {
		return nil, errors.New(errors.ErrCodeValidation, "since cannot be later than until")
	}
	if !since.IsZero() || !until.IsZero() {
		filter.Decided = &common.DateRange{From: common.Timestamp(since), To: common.Timestamp(until)}
	}

	return &filter, nil
}
