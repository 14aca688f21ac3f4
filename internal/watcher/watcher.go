package watcher

import (
	"path/filepath"
	"strings"
	"time"
)

// Operation is a file system change kind.
type Operation int

const (
	// OpCreate: a file or directory appeared.
	OpCreate Operation = iota
	// OpModify: file content changed.
	OpModify
	// OpDelete: a file or directory disappeared.
	OpDelete
	// OpRename: a file or directory was moved away. The new name, if it is
	// watched, arrives as a separate OpCreate.
	OpRename
	// OpIgnoreChange: a per-directory ignore file changed. Consumers should
	// reconcile rather than apply a single-path change.
	OpIgnoreChange
)

func (op Operation) String() string {
	switch op {
	case OpCreate:
		return "CREATE"
	case OpModify:
		return "MODIFY"
	case OpDelete:
		return "DELETE"
	case OpRename:
		return "RENAME"
	case OpIgnoreChange:
		return "IGNORE_CHANGE"
	default:
		return "UNKNOWN"
	}
}

// FileEvent is one change. Path is absolute.
type FileEvent struct {
	Path      string
	Operation Operation
	IsDir     bool
	Timestamp time.Time
}

// IgnoreFunc reports whether a path should produce no events. For
// directories, true also stops the watcher from descending into them.
type IgnoreFunc func(path string, isDir bool) bool

// Options configures the watcher.
type Options struct {
	// DebounceWindow is how long a path must stay quiet before its event is
	// emitted. Default: 500ms
	DebounceWindow time.Duration

	// PollInterval applies to the polling fallback. Default: 5s
	PollInterval time.Duration

	// EventBufferSize bounds queued batches. Default: 1000
	EventBufferSize int

	// IgnoreFileName names per-directory ignore files; changes to them are
	// reported as OpIgnoreChange. Empty disables that.
	IgnoreFileName string

	// Ignore filters events. Nil uses HiddenIgnore.
	Ignore IgnoreFunc
}

// DefaultOptions returns the default watcher options.
func DefaultOptions() Options {
	return Options{
		DebounceWindow:  500 * time.Millisecond,
		PollInterval:    5 * time.Second,
		EventBufferSize: 1000,
		IgnoreFileName:  ".peaignore",
	}
}

// WithDefaults returns options with defaults applied for zero values.
func (o Options) WithDefaults() Options {
	defaults := DefaultOptions()
	if o.DebounceWindow <= 0 {
		o.DebounceWindow = defaults.DebounceWindow
	}
	if o.PollInterval <= 0 {
		o.PollInterval = defaults.PollInterval
	}
	if o.EventBufferSize <= 0 {
		o.EventBufferSize = defaults.EventBufferSize
	}
	if o.Ignore == nil {
		o.Ignore = HiddenIgnore
	}
	return o
}

// HiddenIgnore ignores names starting with a dot.
func HiddenIgnore(path string, _ bool) bool {
	return strings.HasPrefix(filepath.Base(path), ".")
}

// classify turns a raw change into the event a consumer should see, or false
// when it is filtered out.
func classify(opts Options, path string, op Operation, isDir bool) (FileEvent, bool) {
	if opts.IgnoreFileName != "" && !isDir && filepath.Base(path) == opts.IgnoreFileName {
		return FileEvent{Path: path, Operation: OpIgnoreChange, Timestamp: time.Now()}, true
	}
	if opts.Ignore(path, isDir) {
		return FileEvent{}, false
	}
	return FileEvent{Path: path, Operation: op, IsDir: isDir, Timestamp: time.Now()}, true
}
