// Package search serves ranked section lookups from a persisted index.
//
// The index is loaded on first use and shared read-only by all queries.
// Concurrent first queries share a single load; a failed load is retried by
// the next query.
package search

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"slices"
	"sync"
	"unicode/utf8"

	lru "github.com/hashicorp/golang-lru/v2"

	docerrors "github.com/Aman-CERP/docsearch/internal/errors"
	"github.com/Aman-CERP/docsearch/internal/store"
)

// ErrNilDependency is returned when a required dependency is nil.
var ErrNilDependency = errors.New("nil dependency")

// Result is one search hit as returned to clients.
type Result struct {
	Title string `json:"title"`
	Slug  string `json:"slug"`
	URL   string `json:"url"`
}

// scoredHit is the debug log shape of a hit.
type scoredHit struct {
	Score float64 `json:"score"`
	Title string  `json:"title"`
	URL   string  `json:"url"`
}

// Loader produces the index to serve.
type Loader func(ctx context.Context) (*store.Index, error)

// FileLoader loads the artifact at path.
func FileLoader(path string) Loader {
	return func(ctx context.Context) (*store.Index, error) {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		return store.Load(path)
	}
}

// State is the lifecycle of the served index.
type State int

const (
	StateUninitialized State = iota
	StateLoading
	StateReady
	StateFailed
)

// String implements fmt.Stringer.
func (s State) String() string {
	switch s {
	case StateUninitialized:
		return "uninitialized"
	case StateLoading:
		return "loading"
	case StateReady:
		return "ready"
	case StateFailed:
		return "failed"
	default:
		return fmt.Sprintf("State(%d)", int(s))
	}
}

// Config controls matching and ranking.
type Config struct {
	// Tolerance is the edit distance allowed per term.
	Tolerance int
	// Limit caps the number of results.
	Limit int
	// MinTermLength is the shortest term, in runes, that is searched.
	MinTermLength int
	// Boost weighs title, content and code matches.
	Boost store.Boost
	// CacheSize bounds the result cache; 0 disables it.
	CacheSize int
}

const (
	// MaxLimit is the most results a query ever returns.
	MaxLimit = 8
	// MinTermLength is the shortest term that may reach the index.
	MinTermLength = 2
)

// DefaultConfig returns the default search configuration.
func DefaultConfig() Config {
	return Config{
		Tolerance:     1,
		Limit:         MaxLimit,
		MinTermLength: MinTermLength,
		Boost:         store.DefaultBoost,
		CacheSize:     256,
	}
}

// ServiceOption configures the service.
type ServiceOption func(*Service)

// WithLogger sets the logger. Scored hits are logged at debug level.
func WithLogger(l *slog.Logger) ServiceOption {
	return func(s *Service) {
		s.logger = l
	}
}

// Service answers queries against a lazily loaded index.
type Service struct {
	load   Loader
	config Config
	logger *slog.Logger
	cache  *lru.Cache[string, []Result]

	mu    sync.Mutex
	cond  *sync.Cond
	state State
	index *store.Index
	err   error
	// gen changes whenever a different index is installed. Results are only
	// cached under the generation they were computed from.
	gen uint64
}

// NewService creates a query service. Nothing is loaded until the first
// query, Warm or Reload.
func NewService(load Loader, cfg Config, opts ...ServiceOption) (*Service, error) {
	if load == nil {
		return nil, fmt.Errorf("%w: loader is required", ErrNilDependency)
	}
	if cfg.Limit <= 0 || cfg.Limit > MaxLimit {
		return nil, fmt.Errorf("limit must be between 1 and %d, got %d", MaxLimit, cfg.Limit)
	}
	if cfg.MinTermLength < MinTermLength {
		return nil, fmt.Errorf("min term length must be at least %d, got %d", MinTermLength, cfg.MinTermLength)
	}

	s := &Service{
		load:   load,
		config: cfg,
		logger: slog.Default(),
	}
	s.cond = sync.NewCond(&s.mu)

	if cfg.CacheSize > 0 {
		cache, err := lru.New[string, []Result](cfg.CacheSize)
		if err != nil {
			return nil, fmt.Errorf("failed to create result cache: %w", err)
		}
		s.cache = cache
	}

	for _, opt := range opts {
		opt(s)
	}
	return s, nil
}

// Search returns up to Limit sections matching term, best first.
// Terms shorter than MinTermLength return an empty result without touching
// the index. A load failure is returned as an error, never as no results.
func (s *Service) Search(ctx context.Context, term string) ([]Result, error) {
	if utf8.RuneCountInString(term) < s.config.MinTermLength {
		return []Result{}, nil
	}

	if s.cache != nil {
		if cached, ok := s.cache.Get(term); ok {
			return slices.Clone(cached), nil
		}
	}

	idx, gen, err := s.acquire(ctx)
	if err != nil {
		return nil, err
	}

	hits, err := idx.Search(ctx, store.Query{
		Term:      term,
		Fuzziness: s.config.Tolerance,
		Limit:     s.config.Limit,
		Boost:     s.config.Boost,
	})
	if err != nil {
		return nil, docerrors.New(docerrors.ErrCodeSearchFailed, "search failed", err).
			WithDetail("term", term)
	}

	results := make([]Result, 0, len(hits))
	for _, h := range hits {
		results = append(results, Result{Title: h.Section.Title, Slug: h.Section.Slug, URL: h.Section.URL})
	}

	if s.logger.Enabled(ctx, slog.LevelDebug) {
		scored := make([]scoredHit, 0, len(hits))
		for _, h := range hits {
			scored = append(scored, scoredHit{
				Score: h.Score,
				Title: h.Section.Title,
				URL:   h.Section.URL + "#" + h.Section.Slug,
			})
		}
		s.logger.DebugContext(ctx, "search_executed",
			slog.String("term", term),
			slog.Int("results", len(results)),
			slog.Any("hits", scored))
	}

	if s.cache != nil {
		// Holding mu orders the add against Reload's purge.
		s.mu.Lock()
		if s.gen == gen {
			s.cache.Add(term, slices.Clone(results))
		}
		s.mu.Unlock()
	}
	return results, nil
}

// Warm loads the index now instead of on the first query.
func (s *Service) Warm(ctx context.Context) error {
	_, _, err := s.acquire(ctx)
	return err
}

// acquire returns the loaded index and its generation, loading it if
// needed. Callers arriving while a load is in flight wait for it and share
// its outcome. The load is not cancelled with the caller's context.
func (s *Service) acquire(ctx context.Context) (*store.Index, uint64, error) {
	s.mu.Lock()
	for s.state == StateLoading {
		s.cond.Wait()
		if s.state == StateFailed {
			err := s.err
			s.mu.Unlock()
			return nil, 0, err
		}
	}
	if s.state == StateReady {
		idx, gen := s.index, s.gen
		s.mu.Unlock()
		return idx, gen, nil
	}

	prev := s.state
	s.state = StateLoading
	s.mu.Unlock()

	s.logger.Debug("search_index_loading", slog.String("previous_state", prev.String()))
	idx, err := s.load(context.WithoutCancel(ctx))

	s.mu.Lock()
	defer s.mu.Unlock()
	defer s.cond.Broadcast()

	if err != nil {
		s.state = StateFailed
		s.err = err
		s.logger.Error("search_index_load_failed", slog.String("error", err.Error()))
		return nil, 0, err
	}

	s.state = StateReady
	s.index = idx
	s.gen++
	s.err = nil
	s.logger.Info("search_index_ready", slog.Int("sections", idx.Len()))
	return idx, s.gen, nil
}

// Reload loads the index again, typically after a rebuild. On failure a
// previously loaded index keeps serving and the error is returned.
func (s *Service) Reload(ctx context.Context) error {
	idx, err := s.load(ctx)

	s.mu.Lock()
	defer s.mu.Unlock()
	defer s.cond.Broadcast()

	if err != nil {
		if s.state != StateReady && s.state != StateLoading {
			s.state = StateFailed
			s.err = err
		}
		s.logger.Warn("search_index_reload_failed",
			slog.String("error", err.Error()),
			slog.String("state", s.state.String()))
		return err
	}

	// In-flight searches may still hold the old index, so it is not closed
	// here.
	s.index = idx
	s.gen++
	s.state = StateReady
	s.err = nil
	if s.cache != nil {
		s.cache.Purge()
	}
	s.logger.Info("search_index_reloaded", slog.Int("sections", idx.Len()))
	return nil
}

// State reports the lifecycle state of the index.
func (s *Service) State() State {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state
}

// Info returns the metadata of the served index, if one is loaded.
func (s *Service) Info() (store.Info, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.index == nil {
		return store.Info{}, false
	}
	return s.index.Info(), true
}

// Close releases the served index.
func (s *Service) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.index == nil {
		return nil
	}
	err := s.index.Close()
	s.index = nil
	s.state = StateUninitialized
	return err
}
