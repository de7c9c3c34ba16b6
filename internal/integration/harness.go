// Package integration provides integration testing utilities for keyfit.
package integration

import (
	"context"
	"os"
	"path/filepath"
	"sync"
	"testing"

	"gopkg.in/yaml.v3"

	"github.com/HartBrook/keyfit/internal/cache"
	"github.com/HartBrook/keyfit/internal/config"
	"github.com/HartBrook/keyfit/internal/history"
	"github.com/HartBrook/keyfit/internal/optimize"
	"github.com/HartBrook/keyfit/internal/oracle"
	"github.com/HartBrook/keyfit/internal/pipeline"
)

// TestEnv provides an isolated test environment with overridden paths.
type TestEnv struct {
	t         *testing.T
	RootDir   string        // t.TempDir() root
	ConfigDir string        // ~/.config/keyfit
	CacheDir  string        // ~/.cache/keyfit
	Paths     *config.Paths // Configured paths pointing to temp dirs
}

// NewTestEnv creates an isolated test environment.
// All paths are configured to use temporary directories.
func NewTestEnv(t *testing.T) *TestEnv {
	t.Helper()

	rootDir := t.TempDir()
	configDir := filepath.Join(rootDir, "home", ".config", "keyfit")
	cacheDir := filepath.Join(rootDir, "home", ".cache", "keyfit")

	paths := config.NewPathsWithOverrides(configDir, cacheDir)
	for _, dir := range []string{configDir, cacheDir, paths.TargetsDir} {
		if err := os.MkdirAll(dir, config.DefaultDirMode); err != nil {
			t.Fatalf("failed to create %s: %v", dir, err)
		}
	}

	return &TestEnv{
		t:         t,
		RootDir:   rootDir,
		ConfigDir: configDir,
		CacheDir:  cacheDir,
		Paths:     paths,
	}
}

// SetupConfig writes config.yaml.
func (e *TestEnv) SetupConfig(cfg *config.Config) error {
	return config.SaveTo(cfg, e.Paths.ConfigFile)
}

// SetupTargets writes a named target file and returns its path.
func (e *TestEnv) SetupTargets(name string, tf *config.TargetFile) (string, error) {
	data, err := yaml.Marshal(tf)
	if err != nil {
		return "", err
	}
	path := e.Paths.TargetFile(name)
	return path, os.WriteFile(path, data, config.DefaultFileMode)
}

// RunOptimize loads config and targets from disk, the way the CLI does, and
// runs one document through the pipeline with cache and history enabled.
func (e *TestEnv) RunOptimize(ctx context.Context, source, targetsPath, text string, orc oracle.Oracle) (*pipeline.Outcome, error) {
	cfg, err := config.LoadFrom(e.Paths.ConfigFile)
	if err != nil {
		return nil, err
	}
	spec, err := config.LoadTargets(targetsPath)
	if err != nil {
		return nil, err
	}

	opts := []optimize.Option{
		optimize.WithOracle(orc),
		optimize.WithLexicon(optimize.NewStaticLexicon(cfg.Lexicon)),
		optimize.WithMaxIterations(cfg.Optimizer.MaxIterations),
		optimize.WithHardCapAttempts(cfg.Optimizer.HardCapAttempts),
		optimize.WithSeed(cfg.Optimizer.Seed),
	}
	if len(cfg.Fillers) > 0 {
		fillers, err := optimize.WithExtraFillers(cfg.Fillers)
		if err != nil {
			return nil, err
		}
		opts = append(opts, fillers)
	}

	store, err := history.Open(e.Paths.HistoryDB)
	if err != nil {
		return nil, err
	}
	defer store.Close()

	runner := pipeline.New(optimize.New(opts...),
		pipeline.WithCache(cache.New(e.Paths)),
		pipeline.WithHistory(store))
	return runner.Run(ctx, pipeline.Source{Name: source, Text: text}, spec)
}

// History returns recorded runs, newest first.
func (e *TestEnv) History(ctx context.Context) ([]history.Run, error) {
	store, err := history.Open(e.Paths.HistoryDB)
	if err != nil {
		return nil, err
	}
	defer store.Close()
	return store.Recent(ctx, 100)
}

// ScriptedOracle answers from a fixed table and counts calls.
type ScriptedOracle struct {
	mu      sync.Mutex
	replies map[string]string
	calls   int
}

// NewScriptedOracle creates an oracle that returns replies[sentence], or the
// sentence itself when it is not listed.
func NewScriptedOracle(replies map[string]string) *ScriptedOracle {
	return &ScriptedOracle{replies: replies}
}

// Suppress implements oracle.Oracle.
func (o *ScriptedOracle) Suppress(_ context.Context, sentence, _ string) (string, error) {
	o.mu.Lock()
	defer o.mu.Unlock()
	o.calls++
	if reply, ok := o.replies[sentence]; ok {
		return reply, nil
	}
	return sentence, nil
}

// Calls returns how many times Suppress ran.
func (o *ScriptedOracle) Calls() int {
	o.mu.Lock()
	defer o.mu.Unlock()
	return o.calls
}
