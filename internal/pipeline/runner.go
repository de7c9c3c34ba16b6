// Package pipeline runs optimizations end to end: cache lookup, the
// optimizer itself, cache write-back and run history.
package pipeline

import (
	"context"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/HartBrook/keyfit/internal/analyze"
	"github.com/HartBrook/keyfit/internal/cache"
	"github.com/HartBrook/keyfit/internal/history"
	"github.com/HartBrook/keyfit/internal/optimize"
)

// DefaultConcurrency bounds RunAll when no limit is configured.
const DefaultConcurrency = 4

// Source is a document to optimize. Name identifies it in logs and history:
// a file path, "stdin" or a repository reference.
type Source struct {
	Name string
	Text string
}

// Outcome is the result of optimizing one source. Err holds a per-document
// failure such as an empty document; Result is nil then.
type Outcome struct {
	ID       string
	Source   string
	Result   *optimize.Result
	Cached   bool
	Err      error
	Duration time.Duration
}

// ProgressFunc receives optimizer events tagged with the source they belong
// to. It may be called from several goroutines at once.
type ProgressFunc func(source string, e optimize.Event)

// Runner ties the optimizer to its persistence. It is safe for concurrent
// use.
type Runner struct {
	optimizer   *optimize.Optimizer
	cache       *cache.ResultCache
	history     *history.Store
	salt        string
	concurrency int
	logger      *zap.Logger
	progress    ProgressFunc
	newID       func() string
	now         func() time.Time
}

// Option configures a Runner.
type Option func(*Runner)

// WithCache enables the result cache.
func WithCache(c *cache.ResultCache) Option {
	return func(r *Runner) {
		r.cache = c
	}
}

// WithHistory records every run in s.
func WithHistory(s *history.Store) Option {
	return func(r *Runner) {
		r.history = s
	}
}

// WithSalt mixes settings that change the output, such as the oracle, into
// cache keys.
func WithSalt(salt string) Option {
	return func(r *Runner) {
		r.salt = salt
	}
}

// WithConcurrency bounds how many documents RunAll optimizes at once.
func WithConcurrency(n int) Option {
	return func(r *Runner) {
		if n > 0 {
			r.concurrency = n
		}
	}
}

// WithLogger sets the logger.
func WithLogger(logger *zap.Logger) Option {
	return func(r *Runner) {
		if logger != nil {
			r.logger = logger
		}
	}
}

// WithProgress sets the progress callback.
func WithProgress(fn ProgressFunc) Option {
	return func(r *Runner) {
		r.progress = fn
	}
}

// New creates a Runner around opt.
func New(opt *optimize.Optimizer, opts ...Option) *Runner {
	r := &Runner{
		optimizer:   opt,
		concurrency: DefaultConcurrency,
		logger:      zap.NewNop(),
		newID:       uuid.NewString,
		now:         time.Now,
	}
	for _, o := range opts {
		o(r)
	}
	return r
}

// Run optimizes one source. Configuration errors and cancellation are
// returned as errors; everything else lands in the outcome.
func (r *Runner) Run(ctx context.Context, src Source, spec *analyze.TargetSpec) (*Outcome, error) {
	if err := spec.Validate(); err != nil {
		return nil, err
	}
	out := r.run(ctx, src, spec)
	if ctx.Err() != nil {
		return out, ctx.Err()
	}
	return out, nil
}

// RunAll optimizes every source against spec, at most the configured number
// at a time. Outcomes come back in source order.
func (r *Runner) RunAll(ctx context.Context, srcs []Source, spec *analyze.TargetSpec) ([]*Outcome, error) {
	if err := spec.Validate(); err != nil {
		return nil, err
	}

	outcomes := make([]*Outcome, len(srcs))
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(r.concurrency)
	for i, src := range srcs {
		g.Go(func() error {
			if err := gctx.Err(); err != nil {
				return err
			}
			outcomes[i] = r.run(gctx, src, spec)
			return gctx.Err()
		})
	}
	if err := g.Wait(); err != nil {
		return outcomes, err
	}
	return outcomes, nil
}

func (r *Runner) run(ctx context.Context, src Source, spec *analyze.TargetSpec) *Outcome {
	start := r.now()
	out := &Outcome{ID: r.newID(), Source: src.Name}
	log := r.logger.With(zap.String("run_id", out.ID), zap.String("source", src.Name))

	key := cache.Key(src.Text, spec, r.salt)
	if res, ok := r.lookup(key, spec, log); ok {
		out.Result, out.Cached = res, true
	} else {
		out.Result, out.Err = r.optimizerFor(src.Name, log).Optimize(ctx, src.Text, spec)
		if out.Err == nil {
			r.store(key, src, spec, out.Result, log)
		}
	}
	out.Duration = r.now().Sub(start)

	if out.Err != nil {
		log.Warn("optimization failed", zap.Error(out.Err))
	} else {
		log.Info("optimization done",
			zap.String("status", string(out.Result.Status)),
			zap.Bool("cached", out.Cached),
			zap.Duration("duration", out.Duration))
	}
	if ctx.Err() == nil {
		r.record(ctx, out, src, spec, start, log)
	}
	return out
}

func (r *Runner) optimizerFor(source string, log *zap.Logger) *optimize.Optimizer {
	opts := []optimize.Option{optimize.WithLogger(log)}
	if r.progress != nil {
		fn := r.progress
		opts = append(opts, optimize.WithProgress(func(e optimize.Event) { fn(source, e) }))
	}
	return r.optimizer.With(opts...)
}

// lookup returns a cached result. Cached text is re-analyzed and only used
// when it still satisfies every constraint.
func (r *Runner) lookup(key string, spec *analyze.TargetSpec, log *zap.Logger) (*optimize.Result, bool) {
	if r.cache == nil {
		return nil, false
	}
	text, meta, err := r.cache.Read(key)
	if err != nil {
		log.Warn("result cache read failed", zap.Error(err))
		return nil, false
	}
	if meta == nil {
		return nil, false
	}

	res, err := analyze.Analyze(text, spec)
	if err != nil || !res.FullyOptimized {
		log.Debug("cached result no longer satisfies targets, discarding", zap.String("key", key))
		_ = r.cache.Clear(key)
		return nil, false
	}
	log.Debug("using cached result", zap.String("key", key), zap.String("age", meta.Age()))
	return &optimize.Result{
		Text:       text,
		Status:     optimize.StatusConverged,
		Iterations: meta.Iterations,
		Analysis:   res,
	}, true
}

func (r *Runner) store(key string, src Source, spec *analyze.TargetSpec, res *optimize.Result, log *zap.Logger) {
	if r.cache == nil || !res.Analysis.FullyOptimized {
		return
	}
	meta := &cache.Metadata{
		Keyword:     spec.Keyword,
		Status:      string(res.Status),
		Iterations:  res.Iterations,
		SourceChars: analyze.Measure(src.Text, spec).CharCount,
		ResultChars: res.Analysis.CharCount,
		Oracle:      r.salt,
	}
	if err := r.cache.Write(key, res.Text, meta); err != nil {
		log.Warn("result cache write failed", zap.Error(err))
	}
}

func (r *Runner) record(ctx context.Context, out *Outcome, src Source, spec *analyze.TargetSpec, start time.Time, log *zap.Logger) {
	if r.history == nil || out.Err != nil {
		return
	}
	res := out.Result
	run := &history.Run{
		ID:             out.ID,
		Source:         src.Name,
		Keyword:        spec.Keyword,
		Status:         string(res.Status),
		Iterations:     res.Iterations,
		SourceChars:    analyze.Measure(src.Text, spec).CharCount,
		ResultChars:    res.Analysis.CharCount,
		FullyOptimized: res.Analysis.FullyOptimized,
		Cached:         out.Cached,
		Unsatisfied:    append(append([]string(nil), res.Unsatisfied...), res.CeilingViolations...),
		StartedAt:      start,
		Duration:       out.Duration,
	}
	for _, uc := range res.Analysis.Units {
		run.Units = append(run.Units, history.UnitRecord{
			Unit:  uc.Unit.Text(),
			Kind:  uc.Unit.Kind().String(),
			Count: uc.Count,
			Min:   uc.Range.Min,
			Max:   uc.Range.Max,
			Valid: uc.Valid,
		})
	}
	if err := r.history.Record(ctx, run); err != nil {
		log.Warn("failed to record run history", zap.Error(err))
	}
}
