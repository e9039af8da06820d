package cmd

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/spf13/cobra"
	"github.com/spf13/pflag"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/lance13c/mlbstats/internal/logging"
	"github.com/lance13c/mlbstats/internal/stats"
)

const fixturePage = "../internal/stats/testdata/stats.html"

// run executes the root command with args and fresh flag state.
func run(t *testing.T, args ...string) (string, error) {
	t.Helper()
	t.Setenv("HOME", t.TempDir())
	resetFlags(rootCmd)
	cfgFile = ""

	var out bytes.Buffer
	rootCmd.SetOut(&out)
	rootCmd.SetErr(&out)
	rootCmd.SetArgs(append(args, "--project", t.TempDir()))
	err := Execute(context.Background())
	return out.String(), err
}

func resetFlags(c *cobra.Command) {
	reset := func(f *pflag.Flag) {
		_ = f.Value.Set(f.DefValue)
		f.Changed = false
	}
	c.PersistentFlags().VisitAll(reset)
	c.Flags().VisitAll(reset)
	for _, sub := range c.Commands() {
		resetFlags(sub)
	}
}

func TestParseSavedPage(t *testing.T) {
	out, err := run(t, "parse", fixturePage, "--format", "json", "--fetch", "sequential")
	require.NoError(t, err)

	var snap stats.Snapshot
	require.NoError(t, json.Unmarshal([]byte(out), &snap))
	assert.Equal(t, stats.Standard, snap.Variant)
	assert.Equal(t, "pos", snap.Columns[1])
	require.Len(t, snap.Rows, 3)
	assert.Equal(t, "Aaron Judge", snap.Rows[0].Player())
	assert.Contains(t, snap.URL, "file://")
	assert.Contains(t, snap.URL, filepath.Base(fixturePage))
}

func TestParseCSV(t *testing.T) {
	out, err := run(t, "parse", fixturePage, "--format", "csv", "--concurrency", "2")
	require.NoError(t, err)
	assert.Contains(t, out, "player,pos,team")
	assert.Contains(t, out, "Bobby Witt Jr.,SS,KC")
}

func TestParseCannotToggleSavedPage(t *testing.T) {
	_, err := run(t, "parse", fixturePage, "--variant", "expanded")
	assert.True(t, errors.Is(err, stats.ErrVariantMismatch), "got %v", err)
}

func TestParseRejectsBadFlags(t *testing.T) {
	_, err := run(t, "parse", fixturePage, "--fetch", "random")
	assert.Error(t, err)

	_, err = run(t, "parse", fixturePage, "--concurrency", "-1")
	assert.Error(t, err)

	_, err = run(t, "parse", filepath.Join(t.TempDir(), "missing.html"))
	assert.Error(t, err)
}

func TestHistoryEmpty(t *testing.T) {
	out, err := run(t, "history", "list")
	require.NoError(t, err)
	assert.Contains(t, out, "No saved snapshots")

	_, err = run(t, "history", "show", "abc")
	assert.Error(t, err)
}

func TestVersion(t *testing.T) {
	SetVersion("1.2.3")
	out, err := run(t, "version")
	require.NoError(t, err)
	assert.Equal(t, "mlbstats version 1.2.3\n", out)
}

func TestParseFetchFlag(t *testing.T) {
	out, err := run(t, "parse", fixturePage, "--format", "csv", "--fetch", "parallel", "--variant", "standard")
	require.NoError(t, err)
	assert.Contains(t, out, "Aaron Judge")

	_, err = run(t, "parse", fixturePage, "--variant", "all")
	assert.ErrorContains(t, err, "invalid argument")
}

func TestHistoryPlayerVariantFlag(t *testing.T) {
	_, err := run(t, "history", "player", "Aaron Judge", "--variant", "weird")
	assert.ErrorIs(t, err, stats.ErrUnknownVariant)

	_, err = run(t, "history", "player", "Aaron Judge", "--variant", "expanded")
	assert.ErrorContains(t, err, "no expanded rows saved")
}

func TestLogClosedAfterFailedCommand(t *testing.T) {
	_, err := run(t, "parse", filepath.Join(t.TempDir(), "missing.html"))
	require.Error(t, err)

	path := logging.GetLogger().GetLogPath()
	require.NotEmpty(t, path)
	logging.Error("written after the command returned")

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Contains(t, string(data), "missing.html", "the failure is logged before closing")
	assert.False(t, strings.Contains(string(data), "written after the command returned"))
}

func TestDoctorShowsLogFile(t *testing.T) {
	out, _ := run(t, "doctor")
	assert.Contains(t, out, "Log file: ")
	assert.Contains(t, out, filepath.Join(".mlbstats", "logs", "mlbstats.log"))
}
