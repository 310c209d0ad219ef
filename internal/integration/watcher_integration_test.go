package integration

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Aman-CERP/docsearch/internal/index"
	"github.com/Aman-CERP/docsearch/internal/logging"
	"github.com/Aman-CERP/docsearch/internal/search"
	"github.com/Aman-CERP/docsearch/internal/watcher"
)

func TestWatch_RebuildsAndReloads(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping watcher integration test in short mode")
	}

	// Given: a built site served by a query service and watched for changes
	runner := buildSite(t, ".db")
	svc, err := search.NewService(search.FileLoader(runner.Artifact()), search.DefaultConfig(),
		search.WithLogger(logging.Discard()))
	require.NoError(t, err)
	defer svc.Close()
	require.NoError(t, svc.Warm(context.Background()))

	opts := watcher.DefaultOptions()
	opts.DebounceWindow = 50 * time.Millisecond
	opts.PollInterval = 50 * time.Millisecond
	opts.Match = runner.ScanOptions().IsPage
	w, err := watcher.NewHybridWatcher(opts)
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go func() { _ = w.Start(ctx, runner.ContentRoot()) }()
	defer w.Stop()

	rebuilt := make(chan index.Result, 4)
	go func() {
		for range w.Events() {
			res, err := runner.Run(ctx, index.RunOptions{})
			if err != nil {
				continue
			}
			if !res.Unchanged {
				_ = svc.Reload(ctx)
			}
			rebuilt <- res
		}
	}()
	time.Sleep(200 * time.Millisecond)

	// When: a new page is added
	writePages(t, runner.ContentRoot(), map[string]string{
		"concepts/snapshots/+page.md": page("Snapshots", "Restore tainted state after navigation.\n"),
	})

	// Then: the service answers from the rebuilt index
	select {
	case res := <-rebuilt:
		assert.Equal(t, 4, res.Pages)
	case <-time.After(5 * time.Second):
		t.Fatal("no rebuild after page change")
	}
	results, err := svc.Search(ctx, "snapshots")
	require.NoError(t, err)
	require.NotEmpty(t, results)
	assert.Equal(t, "/concepts/snapshots", results[0].URL)
}

func TestWatch_IgnoresNonPages(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping watcher integration test in short mode")
	}

	runner := buildSite(t, ".db")
	opts := watcher.DefaultOptions()
	opts.DebounceWindow = 50 * time.Millisecond
	opts.Match = runner.ScanOptions().IsPage
	w, err := watcher.NewHybridWatcher(opts)
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go func() { _ = w.Start(ctx, runner.ContentRoot()) }()
	defer w.Stop()
	time.Sleep(200 * time.Millisecond)

	// A component next to a page is not a page.
	require.NoError(t, os.WriteFile(filepath.Join(runner.ContentRoot(), "get-started", "Example.svelte"), []byte("<p/>"), 0o644))

	select {
	case batch := <-w.Events():
		t.Fatalf("unexpected batch %v", batch)
	case <-time.After(500 * time.Millisecond):
	}
}
