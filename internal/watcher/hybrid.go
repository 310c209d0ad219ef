package watcher

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"github.com/fsnotify/fsnotify"
)

// HybridWatcher watches a directory tree with fsnotify, falling back to
// polling when fsnotify cannot be initialised. Only files accepted by
// Options.Match and removals of watched directories produce events. Events
// are debounced and delivered in batches.
type HybridWatcher struct {
	fsWatcher   *fsnotify.Watcher
	pollWatcher *PollingWatcher
	useFsnotify bool
	debouncer   *Debouncer
	opts        Options
	events      chan []FileEvent
	stopCh      chan struct{}

	mu       sync.RWMutex
	rootPath string
	dirs     map[string]struct{}
	stopped  bool

	droppedBatches atomic.Uint64
}

// NewHybridWatcher creates a watcher. Nothing is watched until Start.
func NewHybridWatcher(opts Options) (*HybridWatcher, error) {
	opts = opts.WithDefaults()

	h := &HybridWatcher{
		debouncer: NewDebouncer(opts.DebounceWindow),
		opts:      opts,
		events:    make(chan []FileEvent, opts.EventBufferSize),
		stopCh:    make(chan struct{}),
		dirs:      make(map[string]struct{}),
	}

	fsw, err := fsnotify.NewWatcher()
	if err != nil {
		slog.Warn("fsnotify_unavailable", slog.String("error", err.Error()))
		h.pollWatcher = NewPollingWatcher(opts.PollInterval)
		return h, nil
	}
	h.fsWatcher = fsw
	h.useFsnotify = true
	return h, nil
}

// Start watches path until ctx is done or Stop is called. It blocks.
func (h *HybridWatcher) Start(ctx context.Context, path string) error {
	absPath, err := filepath.Abs(path)
	if err != nil {
		return fmt.Errorf("failed to resolve watch root: %w", err)
	}
	info, err := os.Stat(absPath)
	if err != nil {
		return fmt.Errorf("failed to stat watch root: %w", err)
	}
	if !info.IsDir() {
		return fmt.Errorf("watch root is not a directory: %s", absPath)
	}

	h.mu.Lock()
	h.rootPath = absPath
	h.mu.Unlock()

	go h.forward(ctx)

	if h.useFsnotify {
		return h.runFsnotify(ctx)
	}
	return h.runPolling(ctx)
}

func (h *HybridWatcher) runFsnotify(ctx context.Context) error {
	if _, err := h.addRecursive(h.rootPath); err != nil {
		return fmt.Errorf("failed to watch directories: %w", err)
	}
	slog.Debug("watch_started", slog.String("root", h.rootPath), slog.String("type", "fsnotify"))

	for {
		select {
		case <-ctx.Done():
			_ = h.Stop()
			return ctx.Err()
		case <-h.stopCh:
			return nil
		case event, ok := <-h.fsWatcher.Events:
			if !ok {
				return nil
			}
			h.handleFsnotifyEvent(event)
		case err, ok := <-h.fsWatcher.Errors:
			if !ok {
				return nil
			}
			slog.Warn("watch_error", slog.String("error", err.Error()))
		}
	}
}

func (h *HybridWatcher) runPolling(ctx context.Context) error {
	go func() {
		for event := range h.pollWatcher.Events() {
			if event.IsDir || ignoredPath(event.Path) || !h.opts.Match(event.Path) {
				continue
			}
			h.debouncer.Add(event)
		}
	}()
	slog.Debug("watch_started", slog.String("root", h.rootPath), slog.String("type", "polling"))

	err := h.pollWatcher.Start(ctx, h.rootPath)
	if errors.Is(err, context.Canceled) {
		_ = h.Stop()
	}
	return err
}

func (h *HybridWatcher) handleFsnotifyEvent(event fsnotify.Event) {
	rel, err := filepath.Rel(h.rootPath, event.Name)
	if err != nil || rel == "." {
		return
	}
	rel = filepath.ToSlash(rel)
	if ignoredPath(rel) {
		return
	}

	now := time.Now()
	switch {
	case event.Has(fsnotify.Create):
		if isDir(event.Name) {
			// Pages moved in with the directory produce no events of their
			// own, so report every page found below it.
			pages, err := h.addRecursive(event.Name)
			if err != nil {
				slog.Warn("watch_add_failed", slog.String("path", rel), slog.String("error", err.Error()))
			}
			for _, p := range pages {
				h.debouncer.Add(FileEvent{Path: p, Operation: OpCreate, Timestamp: now})
			}
			return
		}
		if h.opts.Match(rel) {
			h.debouncer.Add(FileEvent{Path: rel, Operation: OpCreate, Timestamp: now})
		}

	case event.Has(fsnotify.Write):
		if h.opts.Match(rel) {
			h.debouncer.Add(FileEvent{Path: rel, Operation: OpModify, Timestamp: now})
		}

	case event.Has(fsnotify.Remove), event.Has(fsnotify.Rename):
		op := OpDelete
		if event.Has(fsnotify.Rename) {
			op = OpRename
		}
		if h.forgetDir(rel) {
			h.debouncer.Add(FileEvent{Path: rel, Operation: op, IsDir: true, Timestamp: now})
			return
		}
		if h.opts.Match(rel) {
			h.debouncer.Add(FileEvent{Path: rel, Operation: op, Timestamp: now})
		}
	}
}

// addRecursive watches root and every directory below it, returning the
// matching files it found.
func (h *HybridWatcher) addRecursive(root string) ([]string, error) {
	var pages []string
	err := filepath.WalkDir(root, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return nil
		}
		rel, err := filepath.Rel(h.rootPath, path)
		if err != nil {
			return nil
		}
		rel = filepath.ToSlash(rel)

		if !d.IsDir() {
			if rel != "." && h.opts.Match(rel) {
				pages = append(pages, rel)
			}
			return nil
		}
		if rel != "." && ignoredDir(d.Name()) {
			return filepath.SkipDir
		}
		if err := h.fsWatcher.Add(path); err != nil {
			return err
		}
		h.mu.Lock()
		h.dirs[rel] = struct{}{}
		h.mu.Unlock()
		return nil
	})
	return pages, err
}

// forgetDir drops rel and everything below it from the watched set. It
// reports whether rel was a watched directory.
func (h *HybridWatcher) forgetDir(rel string) bool {
	h.mu.Lock()
	defer h.mu.Unlock()

	if _, ok := h.dirs[rel]; !ok {
		return false
	}
	for d := range h.dirs {
		if d == rel || strings.HasPrefix(d, rel+"/") {
			delete(h.dirs, d)
		}
	}
	return true
}

func (h *HybridWatcher) forward(ctx context.Context) {
	for {
		select {
		case <-ctx.Done():
			return
		case <-h.stopCh:
			return
		case batch, ok := <-h.debouncer.Output():
			if !ok {
				return
			}
			h.emit(batch)
		}
	}
}

func (h *HybridWatcher) emit(batch []FileEvent) {
	h.mu.RLock()
	defer h.mu.RUnlock()

	if h.stopped {
		return
	}
	select {
	case h.events <- batch:
	default:
		n := h.droppedBatches.Add(1)
		slog.Warn("watch_batch_dropped",
			slog.Int("batch_size", len(batch)),
			slog.Uint64("total_dropped", n))
	}
}

// Stop stops watching and closes the events channel. Safe to call multiple
// times.
func (h *HybridWatcher) Stop() error {
	h.mu.Lock()
	defer h.mu.Unlock()

	if h.stopped {
		return nil
	}
	h.stopped = true
	close(h.stopCh)
	h.debouncer.Stop()

	if h.fsWatcher != nil {
		_ = h.fsWatcher.Close()
	}
	if h.pollWatcher != nil {
		_ = h.pollWatcher.Stop()
	}
	close(h.events)
	return nil
}

// Events returns the channel of debounced batches.
func (h *HybridWatcher) Events() <-chan []FileEvent {
	return h.events
}

// DroppedBatches returns how many batches were dropped because the consumer
// fell behind.
func (h *HybridWatcher) DroppedBatches() uint64 {
	return h.droppedBatches.Load()
}

// WatcherType returns "fsnotify" or "polling".
func (h *HybridWatcher) WatcherType() string {
	if h.useFsnotify {
		return "fsnotify"
	}
	return "polling"
}

func isDir(path string) bool {
	info, err := os.Stat(path)
	return err == nil && info.IsDir()
}
