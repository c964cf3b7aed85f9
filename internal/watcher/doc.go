// Package watcher reports changes to the markdown files of a docs tree.
//
// fsnotify is the primary mechanism; when it cannot be initialised (some
// network mounts and container volumes) the watcher falls back to polling.
// Events pass through a Debouncer so that an editor's save burst or a git
// checkout produces one batch:
//
//	w, err := watcher.NewHybridWatcher(watcher.Options{Debounce: time.Second})
//	if err != nil {
//	    return err
//	}
//	defer w.Stop()
//	go func() { _ = w.Start(ctx, root) }()
//
//	for batch := range w.Events() {
//	    // re-index
//	}
package watcher
