package watcher

import (
	"context"
	"io/fs"
	"log/slog"
	"path/filepath"
	"sync"
	"time"
)

// PollingWatcher detects changes by comparing periodic snapshots of the
// roots. Used when fsnotify is unavailable.
type PollingWatcher struct {
	interval time.Duration
	opts     Options
	roots    []string
	state    map[string]fileSnapshot
	events   chan FileEvent
	stopCh   chan struct{}
	mu       sync.Mutex
	stopped  bool
}

type fileSnapshot struct {
	modTime time.Time
	size    int64
	isDir   bool
}

// NewPollingWatcher creates a polling watcher.
func NewPollingWatcher(opts Options) *PollingWatcher {
	opts = opts.WithDefaults()
	return &PollingWatcher{
		interval: opts.PollInterval,
		opts:     opts,
		state:    make(map[string]fileSnapshot),
		events:   make(chan FileEvent, 100),
		stopCh:   make(chan struct{}),
	}
}

// Start records a baseline and then polls until ctx is done or Stop.
func (p *PollingWatcher) Start(ctx context.Context, roots ...string) error {
	p.mu.Lock()
	p.roots = roots
	p.state = p.snapshot()
	p.mu.Unlock()

	ticker := time.NewTicker(p.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			_ = p.Stop()
			return ctx.Err()
		case <-p.stopCh:
			return nil
		case <-ticker.C:
			p.detectChanges()
		}
	}
}

// Stop stops polling and closes Events. Safe to call twice.
func (p *PollingWatcher) Stop() error {
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.stopped {
		return nil
	}
	p.stopped = true
	close(p.stopCh)
	close(p.events)
	return nil
}

// Events returns the channel of raw events.
func (p *PollingWatcher) Events() <-chan FileEvent {
	return p.events
}

// snapshot walks every root. Must be called with the lock held.
func (p *PollingWatcher) snapshot() map[string]fileSnapshot {
	state := make(map[string]fileSnapshot)
	for _, root := range p.roots {
		_ = filepath.WalkDir(root, func(path string, d fs.DirEntry, err error) error {
			if err != nil || path == root {
				return nil
			}
			isIgnoreFile := !d.IsDir() && d.Name() == p.opts.IgnoreFileName
			if !isIgnoreFile && p.opts.Ignore(path, d.IsDir()) {
				if d.IsDir() {
					return filepath.SkipDir
				}
				return nil
			}
			info, err := d.Info()
			if err != nil {
				return nil
			}
			state[path] = fileSnapshot{modTime: info.ModTime(), size: info.Size(), isDir: d.IsDir()}
			return nil
		})
	}
	return state
}

func (p *PollingWatcher) detectChanges() {
	p.mu.Lock()
	defer p.mu.Unlock()

	current := p.snapshot()
	for path, snap := range current {
		prev, ok := p.state[path]
		switch {
		case !ok:
			p.emit(path, OpCreate, snap.isDir)
		case !snap.isDir && (prev.modTime != snap.modTime || prev.size != snap.size):
			p.emit(path, OpModify, false)
		}
	}
	for path, snap := range p.state {
		if _, ok := current[path]; !ok {
			p.emit(path, OpDelete, snap.isDir)
		}
	}
	p.state = current
}

// emit must be called with the lock held.
func (p *PollingWatcher) emit(path string, op Operation, isDir bool) {
	if p.stopped {
		return
	}
	ev, ok := classify(p.opts, path, op, isDir)
	if !ok {
		return
	}
	select {
	case p.events <- ev:
	default:
		slog.Warn("polling watcher buffer full, dropping event",
			slog.String("path", path),
			slog.String("op", op.String()))
	}
}
