package cli

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/fatih/color"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/HartBrook/keyfit/internal/config"
	"github.com/HartBrook/keyfit/internal/errors"
	"github.com/HartBrook/keyfit/internal/oracle"
)

const (
	overText = "The oil type matters. Oil changes help."

	oilTargets = `keyword: oil type
base_units: [oil]
compound_units: [oil type]
char_range: {min: 10, max: 1000}
base_range: {min: 1, max: 1}
compound_range: {min: 1, max: 1}
`
)

// setupHome points HOME at a temp dir holding an "oil" target file.
func setupHome(t *testing.T) string {
	t.Helper()
	color.NoColor = true

	home := t.TempDir()
	t.Setenv("HOME", home)
	t.Setenv("KEYFIT_GITHUB_TOKEN", "")

	targets := filepath.Join(home, ".config", "keyfit", "targets")
	require.NoError(t, os.MkdirAll(targets, 0755))
	require.NoError(t, os.WriteFile(filepath.Join(targets, "oil.yaml"), []byte(oilTargets), 0644))
	return home
}

func execute(t *testing.T, stdin string, args ...string) (string, string, error) {
	t.Helper()
	var stdout, stderr bytes.Buffer
	cmd := NewRootCmd()
	cmd.SetOut(&stdout)
	cmd.SetErr(&stderr)
	cmd.SetIn(strings.NewReader(stdin))
	cmd.SetArgs(args)
	err := cmd.ExecuteContext(context.Background())
	return stdout.String(), stderr.String(), err
}

func TestNewRootCmd_Subcommands(t *testing.T) {
	cmd := NewRootCmd()

	var names []string
	for _, sub := range cmd.Commands() {
		names = append(names, sub.Name())
	}
	for _, want := range []string{"optimize", "analyze", "batch", "history", "info", "version"} {
		assert.Contains(t, names, want)
	}
	assert.NotNil(t, cmd.PersistentFlags().Lookup("config"))
	assert.NotNil(t, cmd.PersistentFlags().ShorthandLookup("v"))
}

func TestNewOptimizeCmd_Flags(t *testing.T) {
	cmd := NewOptimizeCmd(&app{})

	assert.Equal(t, "optimize", cmd.Name())
	assert.NotEmpty(t, cmd.Short)
	assert.NotEmpty(t, cmd.Long)
	assert.NotEmpty(t, cmd.Example)

	flags := []string{"targets", "repo", "output", "diff", "quiet", "oracle", "deterministic", "no-cache", "no-history", "seed"}
	for _, flag := range flags {
		require.NotNil(t, cmd.Flags().Lookup(flag), "flag %q should exist", flag)
	}

	shortFlags := map[string]string{
		"t": "targets",
		"o": "output",
		"q": "quiet",
	}
	for short, long := range shortFlags {
		f := cmd.Flags().ShorthandLookup(short)
		require.NotNil(t, f, "short flag %q should exist", short)
		assert.Equal(t, long, f.Name)
	}

	deterministic, _ := cmd.Flags().GetBool("deterministic")
	assert.False(t, deterministic)
}

func TestNewBatchCmd_Flags(t *testing.T) {
	cmd := NewBatchCmd(&app{})

	for _, flag := range []string{"targets", "out-dir", "in-place", "concurrency", "oracle", "no-cache"} {
		require.NotNil(t, cmd.Flags().Lookup(flag), "flag %q should exist", flag)
	}
	concurrency, _ := cmd.Flags().GetInt("concurrency")
	assert.Equal(t, 0, concurrency)
}

func TestVersion(t *testing.T) {
	stdout, _, err := execute(t, "", "version")

	require.NoError(t, err)
	assert.Equal(t, "keyfit dev\n", stdout)
}

func TestOptimize_Stdin(t *testing.T) {
	setupHome(t)

	stdout, stderr, err := execute(t, overText, "optimize", "-t", "oil", "--deterministic")

	require.NoError(t, err)
	assert.Equal(t, "The oil type matters.\n", stdout)
	assert.Contains(t, stderr, "Converged")
	assert.Contains(t, stderr, "Before")
}

func TestOptimize_Quiet(t *testing.T) {
	setupHome(t)

	stdout, stderr, err := execute(t, overText, "optimize", "-t", "oil", "-q", "--no-history")

	require.NoError(t, err)
	assert.Equal(t, "The oil type matters.\n", stdout)
	assert.Empty(t, stderr)
}

func TestOptimize_OutputFileAndHistory(t *testing.T) {
	home := setupHome(t)
	in := filepath.Join(home, "draft.md")
	out := filepath.Join(home, "out.md")
	require.NoError(t, os.WriteFile(in, []byte(overText+"\n"), 0644))

	stdout, stderr, err := execute(t, "", "optimize", in, "-t", "oil", "-o", out, "--diff")
	require.NoError(t, err)
	assert.Empty(t, stdout)
	assert.Contains(t, stderr, "Wrote "+out)
	assert.Contains(t, stderr, "--- original")

	data, err := os.ReadFile(out)
	require.NoError(t, err)
	assert.Equal(t, "The oil type matters.", string(data))

	stdout, _, err = execute(t, "", "history")
	require.NoError(t, err)
	assert.Contains(t, stdout, in)
	assert.Contains(t, stdout, "converged")
}

func TestOptimize_SecondRunUsesCache(t *testing.T) {
	setupHome(t)

	_, _, err := execute(t, overText, "optimize", "-t", "oil", "--no-history")
	require.NoError(t, err)

	stdout, stderr, err := execute(t, overText, "optimize", "-t", "oil", "--no-history")
	require.NoError(t, err)
	assert.Equal(t, "The oil type matters.\n", stdout)
	assert.Contains(t, stderr, "(from cache)")
}

func TestOptimize_Errors(t *testing.T) {
	tests := []struct {
		name string
		args []string
		code errors.ErrorCode
	}{
		{"no targets", []string{"optimize"}, errors.ErrTargetInvalid},
		{"missing targets", []string{"optimize", "-t", "nope"}, errors.ErrTargetInvalid},
		{"unknown oracle", []string{"optimize", "-t", "oil", "--oracle", "bogus"}, errors.ErrConfigInvalid},
		{"missing config", []string{"optimize", "-t", "oil", "--config", "/does/not/exist.yaml"}, errors.ErrConfigNotFound},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			setupHome(t)

			_, _, err := execute(t, overText, tt.args...)

			require.Error(t, err)
			assert.True(t, errors.Is(err, tt.code), "got %v", err)
			assert.NotEmpty(t, hintFor(err))
		})
	}
}

func TestOptimize_EmptyDocument(t *testing.T) {
	setupHome(t)

	_, _, err := execute(t, "  \n", "optimize", "-t", "oil", "--no-history")

	assert.True(t, errors.Is(err, errors.ErrEmptyDocument))
}

func TestAnalyze_JSON(t *testing.T) {
	setupHome(t)

	stdout, _, err := execute(t, overText, "analyze", "-t", "oil", "--json")
	require.NoError(t, err)

	var report analysisReport
	require.NoError(t, json.Unmarshal([]byte(stdout), &report))
	assert.Equal(t, "stdin", report.Source)
	assert.Equal(t, "oil type", report.Keyword)
	assert.False(t, report.FullyOptimized)
	require.Len(t, report.Units, 2)
	assert.Equal(t, "oil", report.Units[0].Unit)
	assert.Equal(t, "base", report.Units[0].Kind)
	assert.Equal(t, 2, report.Units[0].Count)
	assert.False(t, report.Units[0].Valid)
	assert.NotEmpty(t, report.Violations)
}

func TestAnalyze_Check(t *testing.T) {
	setupHome(t)

	stdout, _, err := execute(t, "The oil type matters.", "analyze", "-t", "oil", "--check")
	require.NoError(t, err)
	assert.Contains(t, stdout, "All targets met")

	_, _, err = execute(t, overText, "analyze", "-t", "oil", "--check")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "misses")
}

func TestBatch(t *testing.T) {
	home := setupHome(t)
	outDir := filepath.Join(home, "optimized")

	var args []string
	for i, text := range []string{overText, overText, "   "} {
		path := filepath.Join(home, fmt.Sprintf("doc-%d.md", i))
		require.NoError(t, os.WriteFile(path, []byte(text), 0644))
		args = append(args, path)
	}

	stdout, _, err := execute(t, "", append([]string{"batch", "-t", "oil", "--out-dir", outDir, "--no-history"}, args...)...)

	require.Error(t, err)
	assert.Contains(t, err.Error(), "1 of 3 documents failed")
	assert.Contains(t, stdout, "Converged")

	for i := 0; i < 2; i++ {
		data, err := os.ReadFile(filepath.Join(outDir, fmt.Sprintf("doc-%d.md", i)))
		require.NoError(t, err)
		assert.Equal(t, "The oil type matters.", string(data))
	}
	_, err = os.Stat(filepath.Join(outDir, "doc-2.md"))
	assert.True(t, os.IsNotExist(err))
}

func TestBatch_RequiresOneDestination(t *testing.T) {
	setupHome(t)

	_, _, err := execute(t, "", "batch", "-t", "oil", "a.md")
	require.Error(t, err)

	_, _, err = execute(t, "", "batch", "-t", "oil", "--out-dir", "x", "--in-place", "a.md")
	require.Error(t, err)
}

func TestHistory_Empty(t *testing.T) {
	setupHome(t)

	stdout, _, err := execute(t, "", "history")

	require.NoError(t, err)
	assert.Contains(t, stdout, "No runs recorded yet")
}

func TestHistoryShow(t *testing.T) {
	setupHome(t)

	_, _, err := execute(t, overText, "optimize", "-t", "oil")
	require.NoError(t, err)

	_, _, err = execute(t, "", "history", "show", "zzz")
	assert.True(t, errors.Is(err, errors.ErrHistoryFailed))

	list, _, err := execute(t, "", "history")
	require.NoError(t, err)
	id := strings.Fields(list)[1]

	stdout, _, err := execute(t, "", "history", "show", id)
	require.NoError(t, err)
	assert.Contains(t, stdout, "stdin")
	assert.Contains(t, stdout, "oil type")
	assert.Contains(t, stdout, "33 -> 18")
}

func TestInfo(t *testing.T) {
	setupHome(t)

	_, _, err := execute(t, overText, "optimize", "-t", "oil", "--no-history")
	require.NoError(t, err)

	stdout, _, err := execute(t, "", "info")
	require.NoError(t, err)
	assert.Contains(t, stdout, "not found, using defaults")
	assert.Contains(t, stdout, "Oracle: none")
	assert.Contains(t, stdout, "Available: oil")
	assert.Contains(t, stdout, "Entries: 1")

	stdout, _, err = execute(t, "", "info", "--clear-cache")
	require.NoError(t, err)
	assert.Contains(t, stdout, "Cleared result cache")

	stdout, _, err = execute(t, "", "info")
	require.NoError(t, err)
	assert.Contains(t, stdout, "Entries: 0")
}

func TestCacheSalt(t *testing.T) {
	base := cacheSalt("none", "", 1, config.OptimizerConfig{MaxIterations: 100, HardCapAttempts: 20})

	assert.NotEqual(t, base, cacheSalt("anthropic", "", 1, config.OptimizerConfig{MaxIterations: 100, HardCapAttempts: 20}))
	assert.NotEqual(t, base, cacheSalt("none", "", 2, config.OptimizerConfig{MaxIterations: 100, HardCapAttempts: 20}))
	assert.NotEqual(t, base, cacheSalt("none", "", 1, config.OptimizerConfig{MaxIterations: 50, HardCapAttempts: 20}))
}

type downOracle struct{}

func (downOracle) Suppress(context.Context, string, string) (string, error) {
	return "", fmt.Errorf("connection refused")
}

func TestRunSession_OracleUsage(t *testing.T) {
	assert.Empty(t, (&runSession{oracle: oracle.None{}}).oracleUsage())

	res := oracle.NewResilient(downOracle{}, oracle.Policy{MaxAttempts: 1})
	s := &runSession{oracle: res}
	assert.Empty(t, s.oracleUsage())

	got, err := res.Suppress(context.Background(), "Oil changes help.", "oil")
	require.NoError(t, err)
	assert.Equal(t, "Oil changes help.", got)
	assert.Equal(t, "1 calls, 1 fell back", s.oracleUsage())
}
