package pipeline

import (
	"context"
	"fmt"
	"path/filepath"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"

	"github.com/HartBrook/keyfit/internal/analyze"
	"github.com/HartBrook/keyfit/internal/cache"
	"github.com/HartBrook/keyfit/internal/config"
	"github.com/HartBrook/keyfit/internal/errors"
	"github.com/HartBrook/keyfit/internal/history"
	"github.com/HartBrook/keyfit/internal/optimize"
)

const overText = "The oil type matters. Oil changes help."

func oilSpec(t *testing.T) *analyze.TargetSpec {
	t.Helper()
	spec, err := analyze.NewTargetSpec("oil type", []string{"oil"}, []string{"oil type"})
	require.NoError(t, err)
	spec.CharRange = analyze.Range{Min: 10, Max: 1000}
	spec.BaseRange = analyze.Range{Min: 1, Max: 1}
	spec.CompoundRange = analyze.Range{Min: 1, Max: 1}
	return spec
}

func newCache(t *testing.T) *cache.ResultCache {
	t.Helper()
	dir := t.TempDir()
	return cache.New(config.NewPathsWithOverrides(dir, dir))
}

// slowOracle never edits and tracks how many calls overlap.
type slowOracle struct {
	active, peak atomic.Int32
	delay        time.Duration
}

func (o *slowOracle) Suppress(_ context.Context, sentence, _ string) (string, error) {
	n := o.active.Add(1)
	defer o.active.Add(-1)
	for {
		p := o.peak.Load()
		if n <= p || o.peak.CompareAndSwap(p, n) {
			break
		}
	}
	time.Sleep(o.delay)
	return sentence, nil
}

func TestRun_CachesConvergedResults(t *testing.T) {
	c := newCache(t)
	r := New(optimize.New(), WithCache(c), WithSalt("none"))
	spec := oilSpec(t)

	first, err := r.Run(context.Background(), Source{Name: "a.md", Text: overText}, spec)
	require.NoError(t, err)
	require.NoError(t, first.Err)
	assert.False(t, first.Cached)
	assert.Equal(t, "The oil type matters.", first.Result.Text)

	second, err := r.Run(context.Background(), Source{Name: "a.md", Text: overText}, spec)
	require.NoError(t, err)
	assert.True(t, second.Cached)
	assert.Equal(t, first.Result.Text, second.Result.Text)
	assert.True(t, second.Result.Analysis.FullyOptimized)
	assert.NotEqual(t, first.ID, second.ID)

	keys, err := c.ListCached()
	require.NoError(t, err)
	assert.Len(t, keys, 1)
}

func TestRun_ReanalyzesCachedResults(t *testing.T) {
	c := newCache(t)
	spec := oilSpec(t)
	key := cache.Key(overText, spec, "")
	require.NoError(t, c.Write(key, "Oil oil oil.", &cache.Metadata{Status: "converged"}))

	out, err := New(optimize.New(), WithCache(c)).Run(context.Background(), Source{Name: "a.md", Text: overText}, spec)

	require.NoError(t, err)
	assert.False(t, out.Cached)
	assert.Equal(t, "The oil type matters.", out.Result.Text)
}

func TestRun_RecordsHistory(t *testing.T) {
	store, err := history.Open(filepath.Join(t.TempDir(), "history.db"))
	require.NoError(t, err)
	t.Cleanup(func() { store.Close() })

	r := New(optimize.New(), WithHistory(store))
	r.newID = func() string { return "run-1" }

	out, err := r.Run(context.Background(), Source{Name: "a.md", Text: overText}, oilSpec(t))
	require.NoError(t, err)
	require.Equal(t, "run-1", out.ID)

	run, err := store.Get(context.Background(), "run-1")
	require.NoError(t, err)
	assert.Equal(t, "a.md", run.Source)
	assert.Equal(t, "oil type", run.Keyword)
	assert.Equal(t, "converged", run.Status)
	assert.True(t, run.FullyOptimized)
	assert.Equal(t, 33, run.SourceChars)
	assert.Equal(t, 18, run.ResultChars)
	require.Len(t, run.Units, 2)
	assert.Equal(t, history.UnitRecord{Unit: "oil", Kind: "base", Count: 1, Min: 1, Max: 1, Valid: true}, run.Units[0])
}

func TestRun_InvalidSpec(t *testing.T) {
	spec := &analyze.TargetSpec{CharRange: analyze.Range{Min: 5, Max: 1}}

	_, err := New(optimize.New()).Run(context.Background(), Source{Name: "a", Text: "x"}, spec)

	assert.True(t, errors.Is(err, errors.ErrTargetInvalid))
}

func TestRunAll(t *testing.T) {
	defer goleak.VerifyNone(t)

	oracle := &slowOracle{delay: 5 * time.Millisecond}
	var (
		mu      sync.Mutex
		tagged  = make(map[string]bool)
		sources []Source
	)
	for i := 0; i < 10; i++ {
		sources = append(sources, Source{Name: fmt.Sprintf("doc-%d", i), Text: overText})
	}
	sources = append(sources, Source{Name: "empty", Text: "   "})

	r := New(optimize.New(optimize.WithOracle(oracle)),
		WithConcurrency(3),
		WithProgress(func(source string, e optimize.Event) {
			mu.Lock()
			defer mu.Unlock()
			if e.Status == optimize.ProgressCompleted {
				tagged[source] = true
			}
		}))

	outcomes, err := r.RunAll(context.Background(), sources, oilSpec(t))
	require.NoError(t, err)
	require.Len(t, outcomes, len(sources))

	for i, out := range outcomes[:10] {
		assert.Equal(t, sources[i].Name, out.Source)
		require.NoError(t, out.Err)
		assert.Equal(t, "The oil type matters.", out.Result.Text)
		assert.True(t, tagged[out.Source])
	}
	assert.True(t, errors.Is(outcomes[10].Err, errors.ErrEmptyDocument))
	assert.Nil(t, outcomes[10].Result)

	assert.LessOrEqual(t, oracle.peak.Load(), int32(3))
	assert.Equal(t, int32(0), oracle.active.Load())
}

func TestRunAll_Canceled(t *testing.T) {
	defer goleak.VerifyNone(t)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := New(optimize.New()).RunAll(ctx, []Source{{Name: "a", Text: overText}}, oilSpec(t))

	assert.ErrorIs(t, err, context.Canceled)
}
