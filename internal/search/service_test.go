package search

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"path/filepath"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	docerrors "github.com/Aman-CERP/docsearch/internal/errors"
	"github.com/Aman-CERP/docsearch/internal/section"
	"github.com/Aman-CERP/docsearch/internal/store"
)

const (
	time2s = 2 * time.Second
	tick   = 5 * time.Millisecond
)

var corpus = []section.Section{
	{Title: "Events", Slug: "events", URL: "/concepts/events", Content: "Events are fired on submit."},
	{Title: "Getting Started", Slug: "getting-started", URL: "/get-started", Content: "Install the library and create a form."},
	{Title: "Form stores", Slug: "form-stores", URL: "/concepts/stores", Content: "The form store holds the data.", Code: "const { form } = superForm(data.form);\n"},
	{Title: "Tainted fields", Slug: "tainted-fields", URL: "/concepts/tainted", Content: "Detect modified fields before navigating away."},
}

func buildIndex(t *testing.T, sections ...section.Section) *store.Index {
	t.Helper()
	b, err := store.NewBuilder()
	require.NoError(t, err)
	idx, err := b.Create()
	require.NoError(t, err)
	require.NoError(t, idx.InsertBatch(sections))
	return idx
}

// countingLoader returns idx and counts invocations.
func countingLoader(idx *store.Index, calls *atomic.Int32) Loader {
	return func(ctx context.Context) (*store.Index, error) {
		calls.Add(1)
		return idx, nil
	}
}

func newService(t *testing.T, load Loader) *Service {
	t.Helper()
	svc, err := NewService(load, DefaultConfig())
	require.NoError(t, err)
	return svc
}

func TestNewService_RequiresLoader(t *testing.T) {
	_, err := NewService(nil, DefaultConfig())

	assert.ErrorIs(t, err, ErrNilDependency)
}

func TestSearch_ShortTermNeverLoads(t *testing.T) {
	// Given: a service whose loader counts calls
	var calls atomic.Int32
	svc := newService(t, countingLoader(buildIndex(t, corpus...), &calls))

	for _, term := range []string{"", "e", "é"} {
		// When: searching with fewer than two characters
		results, err := svc.Search(context.Background(), term)

		// Then: an empty, non-nil result and no load
		require.NoError(t, err)
		assert.NotNil(t, results)
		assert.Empty(t, results)
	}
	assert.Equal(t, int32(0), calls.Load())
	assert.Equal(t, StateUninitialized, svc.State())
}

func TestSearch_TwoRuneTermIsSearched(t *testing.T) {
	var calls atomic.Int32
	svc := newService(t, countingLoader(buildIndex(t, corpus...), &calls))

	_, err := svc.Search(context.Background(), "év")

	require.NoError(t, err)
	assert.Equal(t, int32(1), calls.Load())
}

func TestSearch_ReturnsTitleSlugURL(t *testing.T) {
	var calls atomic.Int32
	svc := newService(t, countingLoader(buildIndex(t, corpus...), &calls))

	results, err := svc.Search(context.Background(), "events")

	require.NoError(t, err)
	require.NotEmpty(t, results)
	assert.Equal(t, Result{Title: "Events", Slug: "events", URL: "/concepts/events"}, results[0])
	assert.Equal(t, StateReady, svc.State())
}

func TestSearch_AtMostLimitResults(t *testing.T) {
	var sections []section.Section
	for i := 0; i < 30; i++ {
		sections = append(sections, section.Section{
			Title: fmt.Sprintf("Form %d", i), Slug: fmt.Sprintf("form-%d", i), URL: "/forms", Content: "form form",
		})
	}
	var calls atomic.Int32
	svc := newService(t, countingLoader(buildIndex(t, sections...), &calls))

	results, err := svc.Search(context.Background(), "form")

	require.NoError(t, err)
	assert.Len(t, results, 8)
}

func TestSearch_ConcurrentFirstQueriesShareOneLoad(t *testing.T) {
	// Given: a loader that blocks until released
	idx := buildIndex(t, corpus...)
	var calls atomic.Int32
	release := make(chan struct{})
	svc := newService(t, func(ctx context.Context) (*store.Index, error) {
		calls.Add(1)
		<-release
		return idx, nil
	})

	// When: many queries arrive before the load completes
	const n = 16
	var wg sync.WaitGroup
	errs := make([]error, n)
	counts := make([]int, n)
	for i := 0; i < n; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			res, err := svc.Search(context.Background(), fmt.Sprintf("event%d", i%2))
			errs[i] = err
			counts[i] = len(res)
		}(i)
	}
	require.Eventually(t, func() bool { return svc.State() == StateLoading }, time2s, tick)
	close(release)
	wg.Wait()

	// Then: exactly one load happened and every query succeeded
	assert.Equal(t, int32(1), calls.Load())
	for i := 0; i < n; i++ {
		require.NoError(t, errs[i])
		assert.Positive(t, counts[i])
	}
}

func TestSearch_FailedLoadIsRetried(t *testing.T) {
	// Given: a loader that fails once
	idx := buildIndex(t, corpus...)
	var calls atomic.Int32
	svc := newService(t, func(ctx context.Context) (*store.Index, error) {
		if calls.Add(1) == 1 {
			return nil, errors.New("disk on fire")
		}
		return idx, nil
	})

	// When: the first query fails
	_, err := svc.Search(context.Background(), "events")
	require.Error(t, err)
	assert.Equal(t, StateFailed, svc.State())

	// Then: the next query loads again and succeeds
	results, err := svc.Search(context.Background(), "events")
	require.NoError(t, err)
	assert.NotEmpty(t, results)
	assert.Equal(t, int32(2), calls.Load())
}

func TestSearch_WaitersShareFailedLoad(t *testing.T) {
	// Given: a blocking loader that will fail
	var calls atomic.Int32
	release := make(chan struct{})
	loadErr := errors.New("boom")
	svc := newService(t, func(ctx context.Context) (*store.Index, error) {
		calls.Add(1)
		<-release
		return nil, loadErr
	})

	const n = 8
	var wg sync.WaitGroup
	errs := make([]error, n)
	for i := 0; i < n; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			_, errs[i] = svc.Search(context.Background(), "forms")
		}(i)
	}
	require.Eventually(t, func() bool { return svc.State() == StateLoading }, time2s, tick)
	close(release)
	wg.Wait()

	// Then: every caller sees an error; no caller saw an empty success
	for _, err := range errs {
		assert.ErrorIs(t, err, loadErr)
	}
	assert.Positive(t, calls.Load())
}

func TestSearch_CorruptIndexSurfacesAsError(t *testing.T) {
	// Given: a service pointed at a missing artifact
	svc := newService(t, FileLoader(filepath.Join(t.TempDir(), "searchindex.db")))

	// When: searching
	results, err := svc.Search(context.Background(), "events")

	// Then: a corrupt index error, distinct from an empty result
	require.Error(t, err)
	assert.Nil(t, results)
	assert.True(t, docerrors.HasCode(err, docerrors.ErrCodeCorruptIndex))
	assert.Equal(t, StateFailed, svc.State())
}

func TestFileLoader_LoadsArtifact(t *testing.T) {
	target := filepath.Join(t.TempDir(), "searchindex.db")
	require.NoError(t, store.Save(buildIndex(t, corpus...), target))
	svc := newService(t, FileLoader(target))
	defer svc.Close()

	require.NoError(t, svc.Warm(context.Background()))
	results, err := svc.Search(context.Background(), "tainted")

	require.NoError(t, err)
	require.NotEmpty(t, results)
	assert.Equal(t, "/concepts/tainted", results[0].URL)
	info, ok := svc.Info()
	assert.True(t, ok)
	assert.Equal(t, len(corpus), info.Count)
}

func TestReload_FailureKeepsServingOldIndex(t *testing.T) {
	// Given: a ready service
	idx := buildIndex(t, corpus...)
	fail := atomic.Bool{}
	svc := newService(t, func(ctx context.Context) (*store.Index, error) {
		if fail.Load() {
			return nil, errors.New("artifact truncated")
		}
		return idx, nil
	})
	require.NoError(t, svc.Warm(context.Background()))

	// When: a reload fails
	fail.Store(true)
	err := svc.Reload(context.Background())

	// Then: the error is returned but queries still work
	require.Error(t, err)
	assert.Equal(t, StateReady, svc.State())
	results, err := svc.Search(context.Background(), "events")
	require.NoError(t, err)
	assert.NotEmpty(t, results)
}

func TestReload_SwapsIndexAndClearsCache(t *testing.T) {
	// Given: a ready service with a cached query
	first := buildIndex(t, corpus...)
	second := buildIndex(t, section.Section{Title: "Migration", Slug: "migration", URL: "/migration", Content: "Events changed in v2."})
	current := atomic.Pointer[store.Index]{}
	current.Store(first)
	svc := newService(t, func(ctx context.Context) (*store.Index, error) {
		return current.Load(), nil
	})
	before, err := svc.Search(context.Background(), "events")
	require.NoError(t, err)
	assert.Equal(t, 1, svc.cache.Len())

	// When: reloading onto a different index
	current.Store(second)
	require.NoError(t, svc.Reload(context.Background()))

	// Then: results come from the new index
	after, err := svc.Search(context.Background(), "events")
	require.NoError(t, err)
	assert.NotEqual(t, before, after)
	assert.Equal(t, "/migration", after[0].URL)
}

// reloadOnSearch reloads the service the first time a search logs its hits,
// which lands the reload between the query and the cache write.
type reloadOnSearch struct {
	svc  *Service
	once sync.Once
}

func (h *reloadOnSearch) Enabled(context.Context, slog.Level) bool { return true }
func (h *reloadOnSearch) WithAttrs([]slog.Attr) slog.Handler { return h }
func (h *reloadOnSearch) WithGroup(string) slog.Handler { return h }

func (h *reloadOnSearch) Handle(_ context.Context, r slog.Record) error {
	if r.Message == "search_executed" {
		h.once.Do(func() { _ = h.svc.Reload(context.Background()) })
	}
	return nil
}

func TestSearch_ReloadDuringSearchDoesNotCacheOldResults(t *testing.T) {
	// Given: a service whose index is swapped while a query is in flight
	old := buildIndex(t, section.Section{Title: "Events", Slug: "events", URL: "/old", Content: "Events before."})
	fresh := buildIndex(t, section.Section{Title: "Events", Slug: "events", URL: "/new", Content: "Events after."})
	var loads atomic.Int32
	h := &reloadOnSearch{}
	svc, err := NewService(func(ctx context.Context) (*store.Index, error) {
		if loads.Add(1) == 1 {
			return old, nil
		}
		return fresh, nil
	}, DefaultConfig(), WithLogger(slog.New(h)))
	require.NoError(t, err)
	h.svc = svc

	// When: searching across the reload, then searching again
	first, err := svc.Search(context.Background(), "events")
	require.NoError(t, err)
	second, err := svc.Search(context.Background(), "events")
	require.NoError(t, err)

	// Then: the in-flight query answered from the old index, but its results
	// were not cached over the new one
	assert.Equal(t, int32(2), loads.Load())
	assert.Equal(t, "/old", first[0].URL)
	assert.Equal(t, "/new", second[0].URL)
}

func TestSearch_CancelledFirstCallerDoesNotFailLoad(t *testing.T) {
	// Given: a slow loader that honours cancellation
	idx := buildIndex(t, corpus...)
	var calls atomic.Int32
	release := make(chan struct{})
	svc := newService(t, func(ctx context.Context) (*store.Index, error) {
		calls.Add(1)
		<-release
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		return idx, nil
	})

	// When: the caller that started the load goes away before it finishes
	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		defer close(done)
		_, _ = svc.Search(ctx, "events")
	}()
	require.Eventually(t, func() bool { return svc.State() == StateLoading }, time2s, tick)
	cancel()
	close(release)
	<-done

	// Then: the load still completes and later queries reuse it
	assert.Equal(t, StateReady, svc.State())
	results, err := svc.Search(context.Background(), "events")
	require.NoError(t, err)
	assert.NotEmpty(t, results)
	assert.Equal(t, int32(1), calls.Load())
}

func TestNewService_RejectsOutOfRangeConfig(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(c *Config)
	}{
		{"zero limit", func(c *Config) { c.Limit = 0 }},
		{"limit above max", func(c *Config) { c.Limit = MaxLimit + 1 }},
		{"one rune terms", func(c *Config) { c.MinTermLength = 1 }},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := DefaultConfig()
			tt.mutate(&cfg)

			_, err := NewService(countingLoader(nil, new(atomic.Int32)), cfg)

			assert.Error(t, err)
		})
	}
}

func TestReload_FromUninitializedReadies(t *testing.T) {
	var calls atomic.Int32
	svc := newService(t, countingLoader(buildIndex(t, corpus...), &calls))

	require.NoError(t, svc.Reload(context.Background()))

	assert.Equal(t, StateReady, svc.State())
	assert.Equal(t, int32(1), calls.Load())
}

func TestSearch_CachedResultsAreCopies(t *testing.T) {
	var calls atomic.Int32
	svc := newService(t, countingLoader(buildIndex(t, corpus...), &calls))

	first, err := svc.Search(context.Background(), "events")
	require.NoError(t, err)
	first[0].Title = "mutated"

	second, err := svc.Search(context.Background(), "events")
	require.NoError(t, err)
	assert.Equal(t, "Events", second[0].Title)
}

func TestState_String(t *testing.T) {
	assert.Equal(t, "uninitialized", StateUninitialized.String())
	assert.Equal(t, "loading", StateLoading.String())
	assert.Equal(t, "ready", StateReady.String())
	assert.Equal(t, "failed", StateFailed.String())
	assert.Equal(t, "State(9)", State(9).String())
}
