package cmd

import (
	"context"
	"errors"
	"log/slog"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Aman-CERP/docsearch/internal/index"
	"github.com/Aman-CERP/docsearch/internal/logging"
	"github.com/Aman-CERP/docsearch/internal/watcher"
)

type fakeRebuilder struct {
	mu      sync.Mutex
	results []index.Result
	errs    []error
	calls   int
}

func (f *fakeRebuilder) Run(_ context.Context, _ index.RunOptions) (index.Result, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	i := f.calls
	f.calls++
	return f.results[i], f.errs[i]
}

type fakeReloader struct {
	mu      sync.Mutex
	reloads int
}

func (f *fakeReloader) Reload(context.Context) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.reloads++
	return nil
}

func TestRebuildOnChange(t *testing.T) {
	// Given: three batches producing a rebuild, an unchanged build and a failure
	r := &fakeRebuilder{
		results: []index.Result{{Pages: 2}, {Pages: 2, Unchanged: true}, {}},
		errs:    []error{nil, nil, errors.New("missing title")},
	}
	svc := &fakeReloader{}
	batches := make(chan []watcher.FileEvent, 3)
	for range 3 {
		batches <- []watcher.FileEvent{{Path: "docs/+page.md", Operation: watcher.OpModify}}
	}
	close(batches)

	// When: the loop drains the batches
	done := make(chan struct{})
	go func() {
		rebuildOnChange(context.Background(), batches, r, svc, logging.Discard())
		close(done)
	}()

	// Then: every batch builds, but only the changed build reloads
	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("loop did not finish")
	}
	assert.Equal(t, 3, r.calls)
	assert.Equal(t, 1, svc.reloads)
}

func TestRebuildOnChange_StopsOnCancel(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	done := make(chan struct{})
	go func() {
		rebuildOnChange(ctx, make(chan []watcher.FileEvent), &fakeRebuilder{}, &fakeReloader{}, logging.Discard())
		close(done)
	}()

	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("loop ignored cancellation")
	}
}

func TestRunServe_UnknownTransport(t *testing.T) {
	root := newProject(t, docsSite())
	p, err := loadProject(root)
	require.NoError(t, err)

	err = runServe(context.Background(), p, serveOptions{transport: "sse"}, logging.Discard())

	assert.ErrorContains(t, err, "unknown transport")
}

func TestRunServe_BuildsMissingIndexAndStops(t *testing.T) {
	// Given: a project without an artifact
	root := newProject(t, docsSite())
	p, err := loadProject(root)
	require.NoError(t, err)
	ctx, cancel := context.WithCancel(context.Background())

	// When: serving on an ephemeral port and shutting down
	done := make(chan error, 1)
	go func() {
		done <- runServe(ctx, p, serveOptions{transport: "http", addr: "127.0.0.1:0"}, logging.Discard())
	}()
	require.Eventually(t, func() bool { return artifactStatus(p.artifact()).Status == "ready" },
		5*time.Second, 20*time.Millisecond)
	cancel()

	// Then: the index was built first and shutdown is clean
	select {
	case err := <-done:
		assert.NoError(t, err)
	case <-time.After(5 * time.Second):
		t.Fatal("serve did not stop")
	}
}

func TestServeLogger_HTTPWritesStderr(t *testing.T) {
	logger, cleanup, err := serveLogger(false, "http", "warn")
	require.NoError(t, err)
	defer cleanup()

	assert.False(t, logger.Enabled(context.Background(), slog.LevelDebug))
}
