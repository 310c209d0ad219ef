// Package searcher queries a docsearch index artifact from Go code.
//
//	s, err := searcher.Open("static/searchindex.db", searcher.WithLimit(5))
//	if err != nil {
//	    return err
//	}
//	defer s.Close()
//
//	results, err := s.Search(ctx, "validation")
//
// The artifact is loaded on the first query and shared by concurrent callers.
package searcher

import (
	"context"
	"errors"
	"log/slog"

	"github.com/Aman-CERP/docsearch/internal/search"
)

// ErrEmptyArtifact is returned by Open when no artifact path is given.
var ErrEmptyArtifact = errors.New("artifact path is required")

// Result is one matching section.
type Result = search.Result

// Option configures a Searcher.
type Option func(*options)

type options struct {
	cfg    search.Config
	logger *slog.Logger
}

// WithTolerance sets the edit distance allowed per query word (0-2).
func WithTolerance(n int) Option {
	return func(o *options) {
		o.cfg.Tolerance = n
	}
}

// WithLimit caps the number of results.
func WithLimit(n int) Option {
	return func(o *options) {
		o.cfg.Limit = n
	}
}

// WithBoost sets the title, content and code score multipliers.
func WithBoost(title, content, code float64) Option {
	return func(o *options) {
		o.cfg.Boost.Title = title
		o.cfg.Boost.Content = content
		o.cfg.Boost.Code = code
	}
}

// WithLogger sets the logger. Scored hits are logged at debug level.
func WithLogger(l *slog.Logger) Option {
	return func(o *options) {
		o.logger = l
	}
}

// Searcher answers queries against one artifact.
//
// Searcher is safe for concurrent use.
type Searcher struct {
	svc *search.Service
}

// Open prepares a Searcher for the artifact at path. The artifact is not
// read until the first Search.
func Open(path string, opts ...Option) (*Searcher, error) {
	if path == "" {
		return nil, ErrEmptyArtifact
	}

	o := options{cfg: search.DefaultConfig(), logger: slog.Default()}
	for _, opt := range opts {
		opt(&o)
	}

	svc, err := search.NewService(search.FileLoader(path), o.cfg, search.WithLogger(o.logger))
	if err != nil {
		return nil, err
	}
	return &Searcher{svc: svc}, nil
}

// Search returns the best matching sections for query. Queries shorter than
// two characters return no results.
func (s *Searcher) Search(ctx context.Context, query string) ([]Result, error) {
	return s.svc.Search(ctx, query)
}

// Reload reads the artifact again after a rebuild.
func (s *Searcher) Reload(ctx context.Context) error {
	return s.svc.Reload(ctx)
}

// Close releases the loaded index.
func (s *Searcher) Close() error {
	return s.svc.Close()
}
