package async

import (
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewScanProgress(t *testing.T) {
	// Given/When: creating a new progress tracker
	p := NewScanProgress("/srv/media")

	// Then: it starts in the scanning state
	require.NotNil(t, p)
	snap := p.Snapshot()
	assert.Equal(t, string(StatusScanning), snap.Status)
	assert.Equal(t, "/srv/media", snap.Root)
	assert.Zero(t, snap.FilesScanned)
	assert.True(t, p.IsScanning())
}

func TestScanProgress_Transitions(t *testing.T) {
	tests := []struct {
		name      string
		apply     func(p *ScanProgress)
		wantState ScanStatus
		wantError string
	}{
		{
			name:      "ready",
			apply:     func(p *ScanProgress) { p.SetReady() },
			wantState: StatusReady,
		},
		{
			name:      "error",
			apply:     func(p *ScanProgress) { p.SetError("root vanished") },
			wantState: StatusError,
			wantError: "root vanished",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			p := NewScanProgress("")
			tt.apply(p)

			snap := p.Snapshot()
			assert.Equal(t, string(tt.wantState), snap.Status)
			assert.Equal(t, tt.wantError, snap.ErrorMessage)
			assert.False(t, p.IsScanning())
		})
	}
}

func TestScanProgress_FileScannedOnlyWhileScanning(t *testing.T) {
	// Given: a tracker that counts two files
	p := NewScanProgress("")
	p.FileScanned("/a.mp4")
	p.FileScanned("/b.mp4")

	// When: the scan finishes and more files are reported
	p.SetResult(2, 0, 0)
	p.SetReady()
	p.FileScanned("/c.mp4")

	// Then: only files seen during the scan count
	snap := p.Snapshot()
	assert.Equal(t, 2, snap.FilesScanned)
	assert.Equal(t, 2, snap.Added)
}

func TestScanProgress_ElapsedStopsAtCompletion(t *testing.T) {
	p := NewScanProgress("")
	p.startTime = time.Now().Add(-3 * time.Second)
	p.SetReady()

	first := p.Snapshot().ElapsedSeconds
	time.Sleep(10 * time.Millisecond)

	assert.Equal(t, first, p.Snapshot().ElapsedSeconds)
	assert.GreaterOrEqual(t, first, 3)
}

func TestScanProgress_ConcurrentAccess(t *testing.T) {
	// Given: a tracker shared by writers and readers
	p := NewScanProgress("")
	var wg sync.WaitGroup

	// When: updating and reading concurrently
	for i := 0; i < 10; i++ {
		wg.Add(2)
		go func() {
			defer wg.Done()
			for j := 0; j < 100; j++ {
				p.FileScanned("f")
			}
		}()
		go func() {
			defer wg.Done()
			for j := 0; j < 100; j++ {
				_ = p.Snapshot()
			}
		}()
	}
	wg.Wait()

	// Then: every update is counted
	assert.Equal(t, 1000, p.Snapshot().FilesScanned)
}
