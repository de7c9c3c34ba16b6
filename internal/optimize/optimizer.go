// Package optimize rewrites prose until its length and target unit counts
// fall inside the windows of an analyze.TargetSpec.
//
// One Optimize call runs a sequential loop: analyze, pick a corrective pass
// (units before length), edit, repeat. The loop ends converged, stuck or out
// of budget, and a hard cap pass then keeps every unit below its ceiling.
package optimize

import (
	"context"
	"fmt"
	"math/rand/v2"
	"strings"

	"go.uber.org/zap"

	"github.com/HartBrook/keyfit/internal/analyze"
	"github.com/HartBrook/keyfit/internal/document"
	"github.com/HartBrook/keyfit/internal/errors"
	"github.com/HartBrook/keyfit/internal/oracle"
)

const (
	DefaultMaxIterations   = 100
	DefaultHardCapAttempts = 20
	DefaultSeed            = 1

	// unitReduceAttempts bounds one unit-reduction pass.
	unitReduceAttempts = 30
)

// Status is how the main loop ended.
type Status string

const (
	StatusConverged       Status = "converged"
	StatusStuck           Status = "stuck"
	StatusBudgetExhausted Status = "budget_exhausted"
)

// Result is the outcome of one optimization. A result that is not converged
// is a partial success: Text is the best text seen and Unsatisfied names
// what still fails.
type Result struct {
	Text              string
	Status            Status
	Iterations        int
	Analysis          *analyze.Result
	Unsatisfied       []string
	CeilingViolations []string
}

// Optimizer holds the collaborators and limits shared by every run. It is
// immutable once built and safe for concurrent use.
type Optimizer struct {
	oracle          oracle.Oracle
	lexicon         Lexicon
	tokenizer       Tokenizer
	fillers         []filler
	maxIterations   int
	hardCapAttempts int
	seed            uint64
	logger          *zap.Logger
	progress        ProgressFunc
}

// Option configures an Optimizer.
type Option func(*Optimizer)

// WithOracle sets the rewrite oracle. The default never edits.
func WithOracle(o oracle.Oracle) Option {
	return func(opt *Optimizer) {
		if o != nil {
			opt.oracle = o
		}
	}
}

// WithLexicon sets the synonym source.
func WithLexicon(l Lexicon) Option {
	return func(o *Optimizer) {
		if l != nil {
			o.lexicon = l
		}
	}
}

// WithTokenizer sets the noun phrase extractor.
func WithTokenizer(t Tokenizer) Option {
	return func(o *Optimizer) {
		if t != nil {
			o.tokenizer = t
		}
	}
}

// WithExtraFillers adds regular expressions whose matches are stripped
// during local edits.
func WithExtraFillers(patterns []string) (Option, error) {
	extra, err := compileFillers(patterns)
	if err != nil {
		return nil, err
	}
	return func(o *Optimizer) {
		o.fillers = append(append([]filler(nil), o.fillers...), extra...)
	}, nil
}

// WithMaxIterations sets the main loop budget.
func WithMaxIterations(n int) Option {
	return func(o *Optimizer) {
		if n > 0 {
			o.maxIterations = n
		}
	}
}

// WithHardCapAttempts sets the hard cap pass budget.
func WithHardCapAttempts(n int) Option {
	return func(o *Optimizer) {
		if n > 0 {
			o.hardCapAttempts = n
		}
	}
}

// WithSeed seeds the random source behind template and position choices.
func WithSeed(seed uint64) Option {
	return func(o *Optimizer) {
		o.seed = seed
	}
}

// WithLogger sets the logger.
func WithLogger(logger *zap.Logger) Option {
	return func(o *Optimizer) {
		if logger != nil {
			o.logger = logger
		}
	}
}

// WithProgress sets the progress callback.
func WithProgress(fn ProgressFunc) Option {
	return func(o *Optimizer) {
		o.progress = fn
	}
}

// New creates an Optimizer.
func New(opts ...Option) *Optimizer {
	o := &Optimizer{
		oracle:          oracle.None{},
		lexicon:         DefaultLexicon(),
		tokenizer:       NewChunkTokenizer(),
		fillers:         defaultFillers,
		maxIterations:   DefaultMaxIterations,
		hardCapAttempts: DefaultHardCapAttempts,
		seed:            DefaultSeed,
		logger:          zap.NewNop(),
	}
	for _, opt := range opts {
		opt(o)
	}
	return o
}

// With returns a copy of o with opts applied.
func (o *Optimizer) With(opts ...Option) *Optimizer {
	c := *o
	for _, opt := range opts {
		opt(&c)
	}
	return &c
}

// run is the state of one Optimize call.
type run struct {
	*Optimizer
	ctx  context.Context
	spec *analyze.TargetSpec
	doc  *document.Document
	rng  *rand.Rand
	log  *zap.Logger

	// Sentences added by expansion, kept out of phrase extraction.
	inserted map[string]bool
}

// Optimize rewrites text until it satisfies spec or no further progress is
// possible. Invalid specs and empty text with a nonzero length target are
// errors; failing to converge is not.
func (o *Optimizer) Optimize(ctx context.Context, text string, spec *analyze.TargetSpec) (*Result, error) {
	if err := spec.Validate(); err != nil {
		o.emit(Event{Status: ProgressFailed, Message: err.Error()})
		return nil, err
	}

	doc := document.Parse(text)
	if strings.TrimSpace(doc.Body()) == "" && spec.CharRange.Min > 0 {
		err := errors.EmptyDocument(spec.CharRange.Min)
		o.emit(Event{Status: ProgressFailed, Message: err.Error()})
		return nil, err
	}

	initial := analyze.Measure(text, spec)
	if initial.FullyOptimized {
		o.logger.Info("text already satisfies every constraint", zap.Int("chars", initial.CharCount))
		o.emit(Event{Status: ProgressCompleted, Percent: 100, Message: "already optimized", CharValid: true, UnitsValid: true})
		return &Result{Text: text, Status: StatusConverged, Analysis: initial}, nil
	}

	r := &run{
		Optimizer: o,
		ctx:       ctx,
		spec:      spec,
		doc:       doc,
		rng:       rand.New(rand.NewPCG(o.seed, o.seed^0x9e3779b97f4a7c15)),
		log:       o.logger.With(zap.String("keyword", spec.Keyword)),
	}

	status, iterations, err := r.loop()
	if err != nil {
		o.emit(Event{Status: ProgressFailed, Attempt: iterations, Message: err.Error()})
		return nil, err
	}

	ceiling := r.enforceCeiling()
	final := r.measure()
	res := &Result{
		Text:              r.doc.String(),
		Status:            status,
		Iterations:        iterations,
		Analysis:          final,
		Unsatisfied:       final.Violations(),
		CeilingViolations: ceiling,
	}

	r.log.Info("optimization finished",
		zap.String("status", string(status)),
		zap.Int("iterations", iterations),
		zap.Int("chars", final.CharCount),
		zap.Bool("fully_optimized", final.FullyOptimized))
	o.emit(Event{
		Status:     ProgressCompleted,
		Percent:    100,
		Message:    completionMessage(status, final),
		Attempt:    iterations,
		CharValid:  final.ValidCharCount,
		UnitsValid: final.ValidUnits,
	})
	return res, nil
}

func (r *run) loop() (Status, int, error) {
	bestDoc, bestRes := r.doc.Clone(), (*analyze.Result)(nil)
	track := func(res *analyze.Result) {
		if res.Better(bestRes) {
			bestDoc, bestRes = r.doc.Clone(), res
		}
	}

	status := StatusBudgetExhausted
	iterations := 0
	for attempt := 1; attempt <= r.maxIterations; attempt++ {
		if err := r.ctx.Err(); err != nil {
			return "", iterations, err
		}

		res := r.measure()
		track(res)
		if res.FullyOptimized {
			status = StatusConverged
			break
		}

		iterations = attempt
		before := r.doc.String()
		if !res.ValidUnits {
			r.log.Debug("adjusting units", zap.Int("attempt", attempt), zap.Strings("violations", res.Violations()))
			r.adjustUnits(res)
		} else {
			r.log.Debug("adjusting length", zap.Int("attempt", attempt), zap.Int("chars", res.CharCount))
			r.adjustLength(res)
		}

		r.emit(Event{
			Status:     ProgressProcessing,
			Percent:    attempt * 100 / r.maxIterations,
			Message:    fmt.Sprintf("attempt %d: %d chars", attempt, res.CharCount),
			Attempt:    attempt,
			CharValid:  res.ValidCharCount,
			UnitsValid: res.ValidUnits,
		})

		if r.doc.String() == before {
			r.log.Warn("optimization stuck, no edit changed the text", zap.Int("attempt", attempt))
			status = StatusStuck
			break
		}
	}

	if status == StatusBudgetExhausted {
		res := r.measure()
		track(res)
		if res.FullyOptimized {
			status = StatusConverged
		} else {
			r.log.Warn("iteration budget exhausted", zap.Int("budget", r.maxIterations))
		}
	}

	r.doc = bestDoc
	return status, iterations, nil
}

// adjustUnits corrects every invalid unit in spec order. Counts are re-read
// before each unit because earlier edits move them.
func (r *run) adjustUnits(res *analyze.Result) {
	for _, uc := range res.Invalid() {
		count := analyze.Count(uc.Unit, r.doc.Body())
		switch {
		case count > uc.Range.Max:
			r.reduceUnit(uc.Unit, uc.Range.Mid(), false)
		case count < uc.Range.Min:
			r.expandUnit(uc.Unit, uc.Range.Min-count)
		}
	}
}

func (r *run) adjustLength(res *analyze.Result) {
	switch {
	case res.CharCount < r.spec.CharRange.Min:
		r.expandLength(r.spec.CharRange.Min - res.CharCount)
	case res.CharCount > r.spec.CharRange.Max:
		r.reduceLength(res.CharCount - r.spec.CharRange.Max)
	}
}

func (r *run) measure() *analyze.Result {
	return analyze.Measure(r.doc.Body(), r.spec)
}

func (o *Optimizer) emit(e Event) {
	if o.progress != nil {
		o.progress(e)
	}
}

func completionMessage(status Status, res *analyze.Result) string {
	if res.FullyOptimized {
		return "all constraints satisfied"
	}
	return fmt.Sprintf("%s with %d unsatisfied constraints", status, len(res.Violations()))
}
