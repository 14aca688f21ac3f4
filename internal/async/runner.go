package async

import (
	"context"
	"os"
	"path/filepath"
	"sync"
	"time"
)

// markerName is present in the data directory while a scan runs.
const markerName = "scan.lock"

// ScanFunc does the scan work and reports into progress.
type ScanFunc func(ctx context.Context, progress *ScanProgress) error

// RunnerConfig configures a Runner.
type RunnerConfig struct {
	// DataDir receives the in-progress marker. Empty disables the marker.
	DataDir string
	// Root is reported in progress snapshots.
	Root string
	// Progress is used instead of a fresh tracker when set, so callers can
	// hand it to producers before the runner exists.
	Progress *ScanProgress
}

// Runner runs one scan in a background goroutine with progress tracking.
type Runner struct {
	config   RunnerConfig
	progress *ScanProgress
	scan     ScanFunc

	stopCh   chan struct{}
	doneCh   chan struct{}
	stopOnce sync.Once

	mu      sync.Mutex
	started bool
	running bool
	err     error
}

// NewRunner creates a runner for scan.
func NewRunner(cfg RunnerConfig, scan ScanFunc) *Runner {
	progress := cfg.Progress
	if progress == nil {
		progress = NewScanProgress(cfg.Root)
	}
	return &Runner{
		config:   cfg,
		progress: progress,
		scan:     scan,
		stopCh:   make(chan struct{}),
		doneCh:   make(chan struct{}),
	}
}

// Progress returns the progress tracker for this runner.
func (r *Runner) Progress() *ScanProgress {
	return r.progress
}

// IsRunning returns true if the scan is currently running.
func (r *Runner) IsRunning() bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.running
}

// Start begins the scan in a background goroutine and returns immediately.
// A runner starts at most once.
func (r *Runner) Start(ctx context.Context) {
	r.mu.Lock()
	if r.started {
		r.mu.Unlock()
		return
	}
	r.started = true
	r.running = true
	r.mu.Unlock()

	go r.run(ctx)
}

func (r *Runner) run(ctx context.Context) {
	defer close(r.doneCh)
	defer func() {
		r.mu.Lock()
		r.running = false
		r.mu.Unlock()
	}()

	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	go func() {
		select {
		case <-r.stopCh:
			cancel()
		case <-ctx.Done():
		}
	}()

	if r.config.DataDir != "" {
		marker := filepath.Join(r.config.DataDir, markerName)
		if err := os.MkdirAll(r.config.DataDir, 0o755); err != nil {
			r.fail(err)
			return
		}
		if err := os.WriteFile(marker, []byte(time.Now().Format(time.RFC3339)), 0o644); err != nil {
			r.fail(err)
			return
		}
		defer func() { _ = os.Remove(marker) }()
	}

	if r.scan != nil {
		if err := r.scan(ctx, r.progress); err != nil {
			r.fail(err)
			return
		}
	}
	r.progress.SetReady()
}

func (r *Runner) fail(err error) {
	r.progress.SetError(err.Error())
	r.mu.Lock()
	r.err = err
	r.mu.Unlock()
}

// Stop cancels a running scan and waits for it to finish.
func (r *Runner) Stop() {
	r.mu.Lock()
	started := r.started
	r.mu.Unlock()
	if !started {
		return
	}

	r.stopOnce.Do(func() { close(r.stopCh) })
	<-r.doneCh
}

// Wait blocks until the scan completes and returns its error. It returns
// nil at once when the runner was never started.
func (r *Runner) Wait() error {
	r.mu.Lock()
	started := r.started
	r.mu.Unlock()
	if !started {
		return nil
	}

	<-r.doneCh
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.err
}

// HasIncompleteScan reports whether a previous scan in dataDir was
// interrupted before it finished.
func HasIncompleteScan(dataDir string) bool {
	_, err := os.Stat(filepath.Join(dataDir, markerName))
	return err == nil
}
