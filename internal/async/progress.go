// Package async runs the server's startup scan in the background and
// tracks its progress for the health endpoint.
package async

import (
	"sync"
	"time"
)

// ScanStatus represents the overall state of a background scan.
type ScanStatus string

const (
	// StatusScanning indicates the scan is in progress.
	StatusScanning ScanStatus = "scanning"
	// StatusReady indicates the scan finished and its results are indexed.
	StatusReady ScanStatus = "ready"
	// StatusError indicates the scan failed.
	StatusError ScanStatus = "error"
)

// ScanSnapshot is an immutable copy of scan progress.
type ScanSnapshot struct {
	Status         string `json:"status"`
	Root           string `json:"root,omitempty"`
	FilesScanned   int    `json:"files_scanned"`
	Added          int    `json:"added"`
	Replaced       int    `json:"replaced"`
	Unchanged      int    `json:"unchanged"`
	ElapsedSeconds int    `json:"elapsed_seconds"`
	ErrorMessage   string `json:"error_message,omitempty"`
}

// ScanProgress provides thread-safe tracking of one scan.
type ScanProgress struct {
	mu sync.RWMutex

	status       ScanStatus
	root         string
	filesScanned int
	added        int
	replaced     int
	unchanged    int
	startTime    time.Time
	endTime      time.Time
	errorMessage string
}

// NewScanProgress creates a tracker in the scanning state.
func NewScanProgress(root string) *ScanProgress {
	return &ScanProgress{
		status:    StatusScanning,
		root:      root,
		startTime: time.Now(),
	}
}

// FileScanned counts one accepted file. Calls after the scan finished are
// ignored, so the tracker can sit behind a scanner that outlives the scan.
func (p *ScanProgress) FileScanned(string) {
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.status == StatusScanning {
		p.filesScanned++
	}
}

// SetResult records what the scan changed in the index.
func (p *ScanProgress) SetResult(added, replaced, unchanged int) {
	p.mu.Lock()
	defer p.mu.Unlock()

	p.added = added
	p.replaced = replaced
	p.unchanged = unchanged
}

// SetError marks the scan as failed.
func (p *ScanProgress) SetError(message string) {
	p.mu.Lock()
	defer p.mu.Unlock()

	p.status = StatusError
	p.errorMessage = message
	p.endTime = time.Now()
}

// SetReady marks the scan as complete.
func (p *ScanProgress) SetReady() {
	p.mu.Lock()
	defer p.mu.Unlock()

	p.status = StatusReady
	p.endTime = time.Now()
}

// IsScanning returns true while the scan is in progress.
func (p *ScanProgress) IsScanning() bool {
	p.mu.RLock()
	defer p.mu.RUnlock()

	return p.status == StatusScanning
}

// Snapshot returns the current progress. Elapsed time stops at completion.
func (p *ScanProgress) Snapshot() ScanSnapshot {
	p.mu.RLock()
	defer p.mu.RUnlock()

	end := p.endTime
	if end.IsZero() {
		end = time.Now()
	}
	return ScanSnapshot{
		Status:         string(p.status),
		Root:           p.root,
		FilesScanned:   p.filesScanned,
		Added:          p.added,
		Replaced:       p.replaced,
		Unchanged:      p.unchanged,
		ElapsedSeconds: int(end.Sub(p.startTime).Seconds()),
		ErrorMessage:   p.errorMessage,
	}
}
