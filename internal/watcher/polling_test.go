package watcher

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func collectPolled(t *testing.T, p *PollingWatcher, want int) []FileEvent {
	t.Helper()
	var got []FileEvent
	deadline := time.After(2 * time.Second)
	for len(got) < want {
		select {
		case ev, ok := <-p.Events():
			if !ok {
				return got
			}
			got = append(got, ev)
		case <-deadline:
			t.Fatalf("timeout: got %d of %d events", len(got), want)
		}
	}
	return got
}

func TestPollingWatcher_DetectsChangesAcrossRoots(t *testing.T) {
	// Given: two roots, one with an existing file
	rootA := t.TempDir()
	rootB := t.TempDir()
	existing := filepath.Join(rootA, "old.mp4")
	require.NoError(t, os.WriteFile(existing, []byte("x"), 0o644))

	p := NewPollingWatcher(Options{PollInterval: 20 * time.Millisecond})
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go func() { _ = p.Start(ctx, rootA, rootB) }()
	time.Sleep(50 * time.Millisecond)

	// When: a file is created in B, one deleted in A, and a hidden file added
	require.NoError(t, os.WriteFile(filepath.Join(rootB, "new.mkv"), []byte("y"), 0o644))
	require.NoError(t, os.WriteFile(filepath.Join(rootB, ".hidden"), []byte("z"), 0o644))
	require.NoError(t, os.Remove(existing))

	// Then: the visible changes are reported with absolute paths
	events := collectPolled(t, p, 2)
	byPath := map[string]Operation{}
	for _, ev := range events {
		byPath[ev.Path] = ev.Operation
	}
	assert.Equal(t, OpCreate, byPath[filepath.Join(rootB, "new.mkv")])
	assert.Equal(t, OpDelete, byPath[existing])
	assert.NotContains(t, byPath, filepath.Join(rootB, ".hidden"))

	require.NoError(t, p.Stop())
	require.NoError(t, p.Stop())
}
