// Package index builds the search index artifact from a content tree.
//
// A build crawls the content root, segments every page, indexes the
// sections and persists the result. Builds are serialised within the process
// and across processes sharing an artifact. A failed build never touches the
// previous artifact.
package index

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"path/filepath"
	"sync"
	"time"

	docerrors "github.com/Aman-CERP/docsearch/internal/errors"
	"github.com/Aman-CERP/docsearch/internal/extract"
	"github.com/Aman-CERP/docsearch/internal/scanner"
	"github.com/Aman-CERP/docsearch/internal/store"
	"github.com/Aman-CERP/docsearch/internal/ui"
)

// ErrBuildInProgress is returned by TryRun when another build holds the lock.
var ErrBuildInProgress = docerrors.New(docerrors.ErrCodeBuildInProgress, "an index build is already running", nil)

// RunnerConfig locates the content and the artifact.
type RunnerConfig struct {
	ContentRoot string
	PageFile    string
	// Exclude lists page paths relative to ContentRoot that are not indexed.
	// nil excludes the root page; an empty slice excludes nothing.
	Exclude  []string
	Artifact string
}

// RunnerDependencies holds the runner's collaborators.
type RunnerDependencies struct {
	Renderer ui.Renderer
	Logger   *slog.Logger
	Config   RunnerConfig
}

// RunOptions controls a single build.
type RunOptions struct {
	// Force writes the artifact even when the corpus is unchanged.
	Force bool
}

// Result summarizes a build.
type Result struct {
	Pages    int
	Sections int
	Digest   string
	Artifact string
	// Unchanged reports that the artifact already matched the corpus and was
	// left as is.
	Unchanged bool
	Duration  time.Duration
}

// Runner builds and persists the search index.
type Runner struct {
	renderer  ui.Renderer
	logger    *slog.Logger
	cfg       RunnerConfig
	scanner   *scanner.Scanner
	extractor *extract.Extractor

	mu   sync.Mutex
	lock *BuildLock
}

// NewRunner creates a Runner. ContentRoot and Artifact are required.
func NewRunner(deps RunnerDependencies) (*Runner, error) {
	if deps.Config.ContentRoot == "" {
		return nil, errors.New("content root is required")
	}
	if deps.Config.Artifact == "" {
		return nil, errors.New("artifact path is required")
	}

	root, err := filepath.Abs(deps.Config.ContentRoot)
	if err != nil {
		return nil, fmt.Errorf("failed to resolve content root: %w", err)
	}
	artifact, err := filepath.Abs(deps.Config.Artifact)
	if err != nil {
		return nil, fmt.Errorf("failed to resolve artifact path: %w", err)
	}

	renderer := deps.Renderer
	if renderer == nil {
		renderer = ui.NopRenderer{}
	}
	logger := deps.Logger
	if logger == nil {
		logger = slog.Default()
	}

	cfg := deps.Config
	cfg.ContentRoot = root
	cfg.Artifact = artifact
	if cfg.PageFile == "" {
		cfg.PageFile = scanner.DefaultPageFile
	}
	// The root page is the site's landing page, not documentation.
	if cfg.Exclude == nil {
		cfg.Exclude = []string{cfg.PageFile}
	}

	return &Runner{
		renderer:  renderer,
		logger:    logger,
		cfg:       cfg,
		scanner:   scanner.New(logger),
		extractor: extract.New(root),
		lock:      NewBuildLock(artifact),
	}, nil
}

// ContentRoot returns the absolute content root.
func (r *Runner) ContentRoot() string {
	return r.cfg.ContentRoot
}

// Artifact returns the absolute artifact path.
func (r *Runner) Artifact() string {
	return r.cfg.Artifact
}

// Run builds the index now. A concurrent call waits for the running build to
// finish and then builds again.
func (r *Runner) Run(ctx context.Context, opts RunOptions) (Result, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if err := r.lock.Lock(ctx); err != nil {
		return Result{}, err
	}
	defer r.unlock()

	return r.build(ctx, opts)
}

// TryRun builds the index unless another build is running, in which case it
// returns ErrBuildInProgress.
func (r *Runner) TryRun(ctx context.Context, opts RunOptions) (Result, error) {
	if !r.mu.TryLock() {
		return Result{}, ErrBuildInProgress
	}
	defer r.mu.Unlock()

	ok, err := r.lock.TryLock()
	if err != nil {
		return Result{}, err
	}
	if !ok {
		return Result{}, ErrBuildInProgress
	}
	defer r.unlock()

	return r.build(ctx, opts)
}

func (r *Runner) unlock() {
	if err := r.lock.Unlock(); err != nil {
		r.logger.Warn("build_lock_release_failed", slog.String("error", err.Error()))
	}
}

// build must be called with both locks held.
func (r *Runner) build(ctx context.Context, opts RunOptions) (Result, error) {
	start := time.Now()
	var timing ui.StageTimings

	r.logger.Info("index_build_started",
		slog.String("content_root", r.cfg.ContentRoot),
		slog.String("artifact", r.cfg.Artifact),
		slog.Bool("force", opts.Force))

	r.renderer.UpdateProgress(ui.ProgressEvent{
		Stage:   ui.StageScanning,
		Message: fmt.Sprintf("Scanning %s...", r.cfg.ContentRoot),
	})

	builder, err := store.NewBuilder()
	if err != nil {
		return Result{}, err
	}
	idx, err := builder.Create()
	if err != nil {
		return Result{}, err
	}
	defer func() { _ = idx.Close() }()

	scanStart := time.Now()
	extracted := 0
	crawl, err := Crawl(ctx, r.scanner, r.ScanOptions(), r.extractor, idx, func(page scanner.FileInfo, sections int) {
		if extracted == 0 {
			timing.Scan = time.Since(scanStart)
		}
		extracted++
		r.renderer.UpdateProgress(ui.ProgressEvent{
			Stage:       ui.StageExtracting,
			Current:     extracted,
			CurrentFile: page.Path,
		})
		r.logger.Debug("page_indexed", slog.String("path", page.Path), slog.Int("sections", sections))
	})
	timing.Extract = time.Since(scanStart) - timing.Scan
	if err != nil {
		return Result{}, r.fail(err)
	}

	result := Result{
		Pages:    crawl.Pages,
		Sections: crawl.Sections,
		Digest:   crawl.Digest,
		Artifact: r.cfg.Artifact,
	}

	if !opts.Force {
		if prev, err := store.ReadInfo(r.cfg.Artifact); err == nil && prev.Digest == crawl.Digest {
			result.Unchanged = true
			result.Duration = time.Since(start)
			r.logger.Info("index_unchanged",
				slog.Int("pages", result.Pages),
				slog.String("digest", result.Digest))
			r.renderer.Complete(ui.CompletionStats{
				Pages:     result.Pages,
				Sections:  result.Sections,
				Duration:  result.Duration,
				Unchanged: true,
				Artifact:  r.cfg.Artifact,
				Stages:    timing,
			})
			return result, nil
		}
	}

	indexStart := time.Now()
	r.renderer.UpdateProgress(ui.ProgressEvent{
		Stage:   ui.StageIndexing,
		Current: idx.Len(),
		Total:   idx.Len(),
		Message: fmt.Sprintf("%d sections", idx.Len()),
	})
	idx.Stamp(crawl.Digest, time.Now().UTC())
	timing.Index = time.Since(indexStart)

	persistStart := time.Now()
	r.renderer.UpdateProgress(ui.ProgressEvent{
		Stage:   ui.StagePersisting,
		Message: fmt.Sprintf("Writing %s...", r.cfg.Artifact),
	})
	if err := store.Save(idx, r.cfg.Artifact); err != nil {
		return Result{}, r.fail(err)
	}
	timing.Persist = time.Since(persistStart)

	result.Duration = time.Since(start)
	r.renderer.Complete(ui.CompletionStats{
		Pages:    result.Pages,
		Sections: result.Sections,
		Duration: result.Duration,
		Artifact: r.cfg.Artifact,
		Stages:   timing,
	})

	r.logger.Info("index_build_complete",
		slog.Int("pages", result.Pages),
		slog.Int("sections", result.Sections),
		slog.String("digest", result.Digest),
		slog.Int64("duration_ms", result.Duration.Milliseconds()),
		slog.Int64("duration_scan_ms", timing.Scan.Milliseconds()),
		slog.Int64("duration_extract_ms", timing.Extract.Milliseconds()),
		slog.Int64("duration_persist_ms", timing.Persist.Milliseconds()),
		slog.String("artifact", r.cfg.Artifact))

	return result, nil
}

// fail reports err to the renderer and the log and returns it.
func (r *Runner) fail(err error) error {
	event := ui.ErrorEvent{Err: err}
	if de, ok := docerrors.As(err); ok {
		event.File = de.Details["path"]
	}
	r.renderer.AddError(event)
	r.logger.Error("index_build_failed", slog.String("error", err.Error()))
	return err
}

// ScanOptions returns the options used to find pages.
func (r *Runner) ScanOptions() *scanner.ScanOptions {
	return &scanner.ScanOptions{
		RootDir:  r.cfg.ContentRoot,
		PageFile: r.cfg.PageFile,
		Exclude:  r.cfg.Exclude,
	}
}
