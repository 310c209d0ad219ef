// Package watcher reports changes to the pages of a content tree.
//
// fsnotify is used where available, with a polling fallback for file systems
// that do not deliver notifications. Events are filtered to the files a
// MatchFunc accepts, debounced, and delivered in batches sorted by path:
//
//	opts := watcher.DefaultOptions()
//	opts.Match = scanOpts.IsPage
//	w, err := watcher.NewHybridWatcher(opts)
//	if err != nil {
//	    return err
//	}
//	defer w.Stop()
//
//	go w.Start(ctx, contentRoot)
//	for batch := range w.Events() {
//	    // rebuild
//	}
package watcher
