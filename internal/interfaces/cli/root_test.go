package cli

import (
	"bytes"
	"context"
	"encoding/json"
	"path/filepath"
	"testing"

	"github.com/spf13/cobra"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/turtacn/CiteRank-Engine/internal/testutil"
	"github.com/turtacn/CiteRank-Engine/pkg/errors"
)

// Command tests run serially: flag values live in package vars, and every
// runCLI builds a fresh command tree that re-registers their defaults.

// runCLI executes the citerank command with the given args and returns
// captured stdout.
func runCLI(t *testing.T, args ...string) (string, error) {
	t.Helper()

	cmd := NewRootCommand()
	var out, errBuf bytes.Buffer
	cmd.SetOut(&out)
	cmd.SetErr(&errBuf)
	cmd.SetArgs(args)
	err := cmd.ExecuteContext(context.Background())
	return out.String(), err
}

// writeEvents materializes citations as a JSONL feed file under a per-test
// temp dir and returns its path.
func writeEvents(t *testing.T, citations []testutil.Citation) string {
	t.Helper()

	path := filepath.Join(t.TempDir(), "events.jsonl")
	testutil.WriteEventsFile(t, path, citations)
	return path
}

func TestNewRootCommand_Subcommands(t *testing.T) {
	cmd := NewRootCommand()

	assert.Equal(t, "citerank", cmd.Use)

	names := make([]string, 0, len(cmd.Commands()))
	for _, sub := range cmd.Commands() {
		names = append(names, sub.Name())
	}
	for _, want := range []string{"load", "top", "score", "chain", "stats", "version"} {
		assert.Contains(t, names, want)
	}
}

func TestNewRootCommand_GlobalFlags(t *testing.T) {
	pf := NewRootCommand().PersistentFlags()

	file := pf.Lookup("file")
	require.NotNil(t, file)
	assert.Equal(t, "f", file.Shorthand)
	assert.Equal(t, "", file.DefValue)

	output := pf.Lookup("output")
	require.NotNil(t, output)
	assert.Equal(t, "o", output.Shorthand)
	assert.Equal(t, "text", output.DefValue)

	level := pf.Lookup("log-level")
	require.NotNil(t, level)
	assert.Equal(t, "info", level.DefValue)

	assert.NotNil(t, pf.Lookup("config"))
	assert.NotNil(t, pf.Lookup("verbose"))
}

func TestRootCommand_HelpListsCommands(t *testing.T) {
	out, err := runCLI(t, "--help")
	require.NoError(t, err)

	assert.Contains(t, out, "Available Commands:")
	assert.Contains(t, out, "load")
	assert.Contains(t, out, "chain")
	assert.Contains(t, out, "stats")
}

func TestRootCommand_UnknownSubcommand(t *testing.T) {
	_, err := runCLI(t, "bogus")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "unknown command")
}

func TestVersionCommand_Text(t *testing.T) {
	out, err := runCLI(t, "version")
	require.NoError(t, err)
	assert.Equal(t, "citerank dev (commit: unknown, built: unknown)\n", out)
}

func TestVersionCommand_JSON(t *testing.T) {
	out, err := runCLI(t, "version", "-o", "json")
	require.NoError(t, err)

	var info BuildInfo
	require.NoError(t, json.Unmarshal([]byte(out), &info))
	assert.Equal(t, "dev", info.Version)
	assert.Equal(t, "unknown", info.GitCommit)
	assert.Equal(t, "unknown", info.BuildDate)
}

func TestGetCLIContext_MissingContext(t *testing.T) {
	_, err := GetCLIContext(&cobra.Command{})
	require.Error(t, err)
	assert.True(t, errors.IsCode(err, errors.ErrCodeInternal))
}

func TestPrintResult_JSONFallbackWithoutContext(t *testing.T) {
	cmd := &cobra.Command{}
	var out bytes.Buffer
	cmd.SetOut(&out)

	require.NoError(t, PrintResult(cmd, map[string]string{"status": "ok"}))
	assert.JSONEq(t, `{"status": "ok"}`, out.String())
}

func TestPrintError(t *testing.T) {
	cmd := &cobra.Command{}
	var errBuf bytes.Buffer
	cmd.SetErr(&errBuf)

	PrintError(cmd, assert.AnError)
	assert.Contains(t, errBuf.String(), "Error: ")

	errBuf.Reset()
	PrintError(cmd, nil)
	assert.Empty(t, errBuf.String())
}

func TestFormatTable(t *testing.T) {
	out := FormatTable(
		[]string{"Rank", "Case"},
		[][]string{
			{"1", "case-000"},
			{"2", "x"},
		},
	)

	want := "Rank  Case    \n" +
		"----  --------\n" +
		"1     case-000\n" +
		"2     x       \n"
	assert.Equal(t, want, out)
}

func TestFormatTable_NoHeaders(t *testing.T) {
	assert.Empty(t, FormatTable(nil, [][]string{{"a"}}))
}

func TestFormatTable_ShortRowPadsMissingCells(t *testing.T) {
	out := FormatTable([]string{"A", "B"}, [][]string{{"only"}})
	assert.Equal(t, "A     B\n----  -\nonly   \n", out)
}

func TestPadRight(t *testing.T) {
	assert.Equal(t, "ab   ", padRight("ab", 5))
	assert.Equal(t, "abcdef", padRight("abcdef", 3))
}
