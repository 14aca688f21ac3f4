package ui

import (
	"context"
	"fmt"
	"io"
	"sync"
	"time"
)

// plainScanEvery throttles scan progress lines, which have no known total.
const plainScanEvery = 500

// PlainRenderer outputs plain text progress (for CI/pipes).
type PlainRenderer struct {
	mu     sync.Mutex
	out    io.Writer
	title  string
	errors []ErrorEvent
}

// NewPlainRenderer creates a plain text renderer.
func NewPlainRenderer(cfg Config) *PlainRenderer {
	return &PlainRenderer{out: cfg.Output, title: cfg.Title}
}

// Start implements Renderer.
func (r *PlainRenderer) Start(ctx context.Context) error {
	if r.title != "" {
		_, _ = fmt.Fprintln(r.out, r.title)
	}
	return nil
}

// UpdateProgress implements Renderer.
func (r *PlainRenderer) UpdateProgress(event ProgressEvent) {
	r.mu.Lock()
	defer r.mu.Unlock()

	msg := event.Message
	if msg == "" {
		msg = event.CurrentFile
	}

	switch {
	case event.Total > 0:
		_, _ = fmt.Fprintf(r.out, "[%s] %d/%d - %s\n", event.Stage.Icon(), event.Current, event.Total, msg)
	case event.Message != "":
		_, _ = fmt.Fprintf(r.out, "[%s] %s\n", event.Stage.Icon(), msg)
	case event.Current > 0 && event.Current%plainScanEvery == 0:
		_, _ = fmt.Fprintf(r.out, "[%s] %d files\n", event.Stage.Icon(), event.Current)
	}
}

// AddError implements Renderer.
func (r *PlainRenderer) AddError(event ErrorEvent) {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.errors = append(r.errors, event)

	prefix := "ERROR"
	if event.IsWarn {
		prefix = "WARN"
	}
	if event.File != "" {
		_, _ = fmt.Fprintf(r.out, "%s: %s: %v\n", prefix, event.File, event.Err)
	} else {
		_, _ = fmt.Fprintf(r.out, "%s: %v\n", prefix, event.Err)
	}
}

// Complete implements Renderer.
func (r *PlainRenderer) Complete(stats CompletionStats) {
	r.mu.Lock()
	defer r.mu.Unlock()

	_, _ = fmt.Fprintf(r.out, "Complete: %d files scanned in %d root%s in %s\n",
		stats.Scanned, stats.Roots, plural(stats.Roots), stats.Duration.Round(100*time.Millisecond))
	_, _ = fmt.Fprintf(r.out, "  added %d, replaced %d, removed %d, unchanged %d\n",
		stats.Added, stats.Replaced, stats.Removed, stats.Unchanged)
	if stats.Errors > 0 || stats.Warnings > 0 {
		_, _ = fmt.Fprintf(r.out, "  %d errors, %d warnings\n", stats.Errors, stats.Warnings)
	}
}

// Stop implements Renderer.
func (r *PlainRenderer) Stop() error {
	return nil
}

func plural(n int) string {
	if n == 1 {
		return ""
	}
	return "s"
}
