package cli

import (
	"bufio"
	"bytes"
	"context"
	"os"

	"github.com/spf13/cobra"

	"github.com/turtacn/CiteRank-Engine/internal/application/ingest"
	"github.com/turtacn/CiteRank-Engine/internal/application/ranking"
	"github.com/turtacn/CiteRank-Engine/internal/domain/graph"
	"github.com/turtacn/CiteRank-Engine/internal/infrastructure/monitoring/logging"
	"github.com/turtacn/CiteRank-Engine/pkg/errors"
)

// maxEventLineBytes bounds a single event line, matching the spool watcher's
// limit so a file accepted here is accepted there.
const maxEventLineBytes = 1 << 20

// Engine bundles the in-process components one CLI invocation drives: the
// graph store, the ingest pipeline, and the ranking service.
type Engine struct {
	Store    *graph.Store
	Pipeline *ingest.Pipeline
	Ranking  *ranking.Service

	// Loaded accumulates what the events file did to the graph.
	Loaded ingest.BatchResult
}

// buildEngine constructs the engine and loads the events file named by the
// global --file flag.  Commands that only inspect graph structure use this
// directly; ranking queries go through rankedEngine.
func buildEngine(cmd *cobra.Command) (*Engine, *CLIContext, error) {
	cliCtx, err := GetCLIContext(cmd)
	if err != nil {
		return nil, nil, err
	}
	if cliCtx.EventsPath == "" {
		return nil, nil, errors.New(errors.ErrCodeValidation, "no citation events file: provide --file")
	}

	opts := graph.DefaultStoreOptions()
	opts.AutoCreateStubs = !cliCtx.Config.Graph.StrictEndpoints
	store := graph.NewStore(opts)

	e := &Engine{
		Store:    store,
		Pipeline: ingest.NewPipeline(store, nil, nil, nil, cliCtx.Logger, nil),
		Ranking:  ranking.NewService(store, cliCtx.Config.Ranking, cliCtx.Logger, nil),
	}
	if err := e.loadEvents(cmd.Context(), cliCtx); err != nil {
		return nil, nil, err
	}
	return e, cliCtx, nil
}

// rankedEngine builds the engine and runs one recompute pass so queries have
// a published snapshot to answer from.
func rankedEngine(cmd *cobra.Command) (*Engine, *CLIContext, error) {
	e, cliCtx, err := buildEngine(cmd)
	if err != nil {
		return nil, nil, err
	}
	if _, err := e.Ranking.Recompute(cmd.Context()); err != nil {
		return nil, nil, err
	}
	return e, cliCtx, nil
}

// loadEvents streams the events file through the ingest pipeline one line at
// a time.  Blank lines are skipped; rejected events are counted, not fatal.
func (e *Engine) loadEvents(ctx context.Context, cliCtx *CLIContext) error {
	f, err := os.Open(cliCtx.EventsPath)
	if err != nil {
		return errors.Wrap(err, errors.ErrCodeValidation, "open citation events file")
	}
	defer f.Close()

	scanner := bufio.NewScanner(f)
	scanner.Buffer(make([]byte, 0, 64*1024), maxEventLineBytes)
	for scanner.Scan() {
		data := bytes.TrimSpace(scanner.Bytes())
		if len(data) == 0 {
			continue
		}
		res, err := e.Pipeline.ApplyRaw(ctx, "cli", data)
		if err != nil {
			return err
		}
		e.Loaded.Applied += res.Applied
		e.Loaded.Rejected += res.Rejected
	}
	if err := scanner.Err(); err != nil {
		return errors.Wrap(err, errors.ErrCodeInternal, "read citation events file")
	}

	cliCtx.Logger.Debug("citation events loaded",
		logging.String("file", cliCtx.EventsPath),
		logging.Int("applied", e.Loaded.Applied),
		logging.Int("rejected", e.Loaded.Rejected))
	return nil
}
