// Command citerank is the command-line client for CiteRank-Engine: it loads
// citation events into an in-process engine and answers ranking, chain, and
// statistics queries over them.
package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/turtacn/CiteRank-Engine/internal/interfaces/cli"
)

// Build-time variables injected via ldflags.
var (
	version   = "dev"
	commit    = "unknown"
	buildDate = "unknown"
)

func init() {
	cli.Version = version
	cli.GitCommit = commit
	cli.BuildDate = buildDate
}

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	// Execute prints the failure itself; main only sets the exit code.
	if err := cli.Execute(ctx); err != nil {
		os.Exit(1)
	}
}
