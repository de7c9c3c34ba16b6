package cli

import (
	"context"
	"fmt"
	"io"
	"os"
	"strings"
	"sync"

	"github.com/spf13/pflag"
	"go.uber.org/zap"

	"github.com/HartBrook/keyfit/internal/analyze"
	"github.com/HartBrook/keyfit/internal/cache"
	"github.com/HartBrook/keyfit/internal/config"
	"github.com/HartBrook/keyfit/internal/errors"
	"github.com/HartBrook/keyfit/internal/github"
	"github.com/HartBrook/keyfit/internal/history"
	"github.com/HartBrook/keyfit/internal/optimize"
	"github.com/HartBrook/keyfit/internal/oracle"
	"github.com/HartBrook/keyfit/internal/pipeline"
)

// runnerOptions are the per-invocation switches shared by optimize and batch.
type runnerOptions struct {
	provider      string
	deterministic bool
	noCache       bool
	noHistory     bool
	seed          uint64
	concurrency   int
	progress      pipeline.ProgressFunc
}

// addRunnerFlags registers the flags behind runnerOptions.
func addRunnerFlags(flags *pflag.FlagSet, opts *runnerOptions) {
	flags.StringVar(&opts.provider, "oracle", "", "Rewrite oracle: anthropic, gemini, or none (default from config)")
	flags.BoolVar(&opts.deterministic, "deterministic", false, "Skip the rewrite oracle (same as --oracle none)")
	flags.BoolVar(&opts.noCache, "no-cache", false, "Ignore and do not write the result cache")
	flags.BoolVar(&opts.noHistory, "no-history", false, "Do not record this run in history")
	flags.Uint64Var(&opts.seed, "seed", 0, "Random seed for template choice (default from config)")
}

func (a *app) providerFor(opts *runnerOptions) string {
	switch {
	case opts.deterministic:
		return config.ProviderNone
	case opts.provider != "":
		return opts.provider
	default:
		return a.cfg.Oracle.Provider
	}
}

// buildOracle creates the configured rewrite oracle. Network backends are
// wrapped in retries that fall back to leaving the sentence unchanged.
func (a *app) buildOracle(ctx context.Context, provider string) (oracle.Oracle, error) {
	oc := a.cfg.Oracle

	var inner oracle.Oracle
	switch provider {
	case config.ProviderNone:
		return oracle.None{}, nil
	case config.ProviderAnthropic:
		client, err := oracle.NewAnthropicClient(oracle.WithModel(oc.Model))
		if err != nil {
			return nil, err
		}
		inner = client
	case config.ProviderGemini:
		client, err := oracle.NewGeminiClient(ctx, oc.Model)
		if err != nil {
			return nil, err
		}
		inner = client
	default:
		return nil, errors.ConfigInvalid(fmt.Sprintf("unknown oracle provider %q (want anthropic, gemini, or none)", provider))
	}

	return oracle.NewResilient(inner, oc.Policy(),
		oracle.WithLogger(a.logger),
		oracle.WithRetryUnchanged(oc.RetryUnchanged)), nil
}

// buildOptimizer applies optimizer, lexicon and filler settings from config.
func (a *app) buildOptimizer(orc oracle.Oracle, seed uint64) (*optimize.Optimizer, error) {
	opts := []optimize.Option{
		optimize.WithOracle(orc),
		optimize.WithLexicon(optimize.NewStaticLexicon(a.cfg.Lexicon)),
		optimize.WithMaxIterations(a.cfg.Optimizer.MaxIterations),
		optimize.WithHardCapAttempts(a.cfg.Optimizer.HardCapAttempts),
		optimize.WithSeed(seed),
		optimize.WithLogger(a.logger),
	}
	if len(a.cfg.Fillers) > 0 {
		fillers, err := optimize.WithExtraFillers(a.cfg.Fillers)
		if err != nil {
			return nil, errors.Wrap(errors.ErrConfigInvalid, "invalid filler pattern", "Each entry under fillers must be a valid regular expression", err)
		}
		opts = append(opts, fillers)
	}
	return optimize.New(opts...), nil
}

// runSession is a built runner plus the oracle behind it. close releases the
// history database.
type runSession struct {
	*pipeline.Runner
	oracle oracle.Oracle
	close  func()
}

// oracleUsage summarizes network oracle calls, or returns "" when none were
// made.
func (s *runSession) oracleUsage() string {
	res, ok := s.oracle.(*oracle.Resilient)
	if !ok {
		return ""
	}
	calls, failures := res.Stats()
	if calls == 0 {
		return ""
	}
	return fmt.Sprintf("%d calls, %d fell back", calls, failures)
}

// buildRunner wires the optimizer, cache and history together.
func (a *app) buildRunner(ctx context.Context, opts *runnerOptions) (*runSession, error) {
	provider := a.providerFor(opts)
	orc, err := a.buildOracle(ctx, provider)
	if err != nil {
		return nil, err
	}

	seed := a.cfg.Optimizer.Seed
	if opts.seed != 0 {
		seed = opts.seed
	}
	opt, err := a.buildOptimizer(orc, seed)
	if err != nil {
		return nil, err
	}

	concurrency := a.cfg.Optimizer.Concurrency
	if opts.concurrency > 0 {
		concurrency = opts.concurrency
	}

	runOpts := []pipeline.Option{
		pipeline.WithSalt(cacheSalt(provider, a.cfg.Oracle.Model, seed, a.cfg.Optimizer)),
		pipeline.WithConcurrency(concurrency),
		pipeline.WithLogger(a.logger),
		pipeline.WithProgress(opts.progress),
	}
	if a.cfg.Cache.IsEnabled() && !opts.noCache {
		runOpts = append(runOpts, pipeline.WithCache(cache.New(a.paths)))
	}

	cleanup := func() {}
	if a.cfg.History.IsEnabled() && !opts.noHistory {
		store, err := history.Open(a.paths.HistoryDB)
		if err != nil {
			a.logger.Warn("run history unavailable", zap.Error(err))
		} else {
			runOpts = append(runOpts, pipeline.WithHistory(store))
			cleanup = func() { _ = store.Close() }
		}
	}

	return &runSession{
		Runner: pipeline.New(opt, runOpts...),
		oracle: orc,
		close:  cleanup,
	}, nil
}

// cacheSalt folds every setting that changes optimizer output into cache
// keys.
func cacheSalt(provider, model string, seed uint64, oc config.OptimizerConfig) string {
	return fmt.Sprintf("%s:%s:%d:%d:%d", provider, model, seed, oc.MaxIterations, oc.HardCapAttempts)
}

// loadTargets resolves a target name or path and loads it.
func (a *app) loadTargets(name string) (*analyze.TargetSpec, error) {
	if name == "" {
		return nil, errors.New(errors.ErrTargetInvalid, "no targets given", "Pass --targets with a target file or a name under ~/.config/keyfit/targets")
	}
	return config.LoadTargets(a.paths.TargetFile(name))
}

// readSource reads the document from a repository reference, a file, or
// stdin when the argument is absent or "-".
func readSource(ctx context.Context, args []string, repoRef string, stdin io.Reader) (pipeline.Source, error) {
	if repoRef != "" {
		if len(args) > 0 {
			return pipeline.Source{}, fmt.Errorf("pass either a file or --repo, not both")
		}
		ref, err := github.ParseFileRef(repoRef)
		if err != nil {
			return pipeline.Source{}, err
		}
		client, err := github.NewClient()
		if err != nil {
			return pipeline.Source{}, err
		}
		file, err := client.FetchFile(ctx, ref)
		if err != nil {
			return pipeline.Source{}, err
		}
		return pipeline.Source{Name: ref.String(), Text: file.Content}, nil
	}

	if len(args) == 0 || args[0] == "-" {
		data, err := io.ReadAll(stdin)
		if err != nil {
			return pipeline.Source{}, fmt.Errorf("failed to read stdin: %w", err)
		}
		return pipeline.Source{Name: "stdin", Text: string(data)}, nil
	}

	data, err := os.ReadFile(args[0])
	if err != nil {
		return pipeline.Source{}, fmt.Errorf("failed to read %s: %w", args[0], err)
	}
	return pipeline.Source{Name: args[0], Text: string(data)}, nil
}

// progressPrinter writes one dim line per optimizer event. Batch runs call
// it from several goroutines.
func progressPrinter(w io.Writer, multi bool) pipeline.ProgressFunc {
	var mu sync.Mutex
	return func(source string, e optimize.Event) {
		mu.Lock()
		defer mu.Unlock()
		prefix := ""
		if multi {
			prefix = source + ": "
		}
		msg := strings.TrimSpace(e.Message)
		switch e.Status {
		case optimize.ProgressFailed:
			fmt.Fprintf(w, "  %s%s %s\n", prefix, warningIcon, msg)
		default:
			fmt.Fprintf(w, "  %s\n", dim(fmt.Sprintf("%s[%3d%%] %s", prefix, e.Percent, msg)))
		}
	}
}
