// Package watcher reports file system changes under one or more media roots.
//
// fsnotify is used when available, with a polling fallback for file systems
// that do not deliver events (network mounts, some container volumes). Raw
// events are coalesced per path by a Debouncer and delivered as batches:
//
//	w, err := watcher.NewHybridWatcher(watcher.DefaultOptions())
//	if err != nil {
//	    return err
//	}
//	defer w.Stop()
//	go w.Start(ctx, "/srv/media", "/srv/received")
//
//	for batch := range w.Events() {
//	    for _, ev := range batch {
//	        // ev.Path is absolute
//	    }
//	}
package watcher
