// Package indexer builds a docsearch index artifact from Go code, for
// example from a site generator's build step.
//
//	res, err := indexer.Build(ctx, "src/routes", "static/searchindex.db")
package indexer

import (
	"context"
	"log/slog"

	"github.com/Aman-CERP/docsearch/internal/index"
)

// Result summarizes a build.
type Result = index.Result

// Option configures a build.
type Option func(*options)

type options struct {
	cfg    index.RunnerConfig
	force  bool
	logger *slog.Logger
}

// WithPageFile sets the file name that marks a page. Default: +page.md
func WithPageFile(name string) Option {
	return func(o *options) {
		o.cfg.PageFile = name
	}
}

// WithExclude lists pages, relative to the content root, that are not
// indexed. By default only the root page is excluded.
func WithExclude(pages ...string) Option {
	return func(o *options) {
		o.cfg.Exclude = append([]string{}, pages...)
	}
}

// WithForce writes the artifact even when the content is unchanged.
func WithForce() Option {
	return func(o *options) {
		o.force = true
	}
}

// WithLogger sets the logger.
func WithLogger(l *slog.Logger) Option {
	return func(o *options) {
		o.logger = l
	}
}

// Build indexes the pages under contentRoot and writes the artifact. A
// failed build leaves an existing artifact untouched.
func Build(ctx context.Context, contentRoot, artifact string, opts ...Option) (Result, error) {
	o := options{cfg: index.RunnerConfig{ContentRoot: contentRoot, Artifact: artifact}}
	for _, opt := range opts {
		opt(&o)
	}

	runner, err := index.NewRunner(index.RunnerDependencies{
		Logger: o.logger,
		Config: o.cfg,
	})
	if err != nil {
		return Result{}, err
	}
	return runner.Run(ctx, index.RunOptions{Force: o.force})
}
