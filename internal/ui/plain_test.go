package ui

import (
	"bytes"
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPlainRenderer_Progress(t *testing.T) {
	tests := []struct {
		name  string
		event ProgressEvent
		want  string
	}{
		{
			name:  "known total",
			event: ProgressEvent{Stage: StageIndexing, Current: 1, Total: 2, Message: "/media/movies"},
			want:  "[INDEX] 1/2 - /media/movies\n",
		},
		{
			name:  "message only",
			event: ProgressEvent{Stage: StageReconciling, Message: "rescanning roots"},
			want:  "[SYNC] rescanning roots\n",
		},
		{
			name:  "scan count on the throttle boundary",
			event: ProgressEvent{Stage: StageScanning, Current: plainScanEvery, CurrentFile: "/a.mp4"},
			want:  "[SCAN] 500 files\n",
		},
		{
			name:  "scan count between boundaries",
			event: ProgressEvent{Stage: StageScanning, Current: 3, CurrentFile: "/a.mp4"},
			want:  "",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var buf bytes.Buffer
			r := NewPlainRenderer(NewConfig(&buf))

			r.UpdateProgress(tt.event)

			assert.Equal(t, tt.want, buf.String())
		})
	}
}

func TestPlainRenderer_StartPrintsTitle(t *testing.T) {
	var buf bytes.Buffer
	r := NewPlainRenderer(NewConfig(&buf, WithTitle("Indexing /media")))

	require.NoError(t, r.Start(context.Background()))
	require.NoError(t, r.Stop())

	assert.Equal(t, "Indexing /media\n", buf.String())
}

func TestPlainRenderer_AddError(t *testing.T) {
	var buf bytes.Buffer
	r := NewPlainRenderer(NewConfig(&buf))

	r.AddError(ErrorEvent{File: "/a.mp4", Err: errors.New("id conflict")})
	r.AddError(ErrorEvent{Err: errors.New("root missing"), IsWarn: true})

	assert.Equal(t, "ERROR: /a.mp4: id conflict\nWARN: root missing\n", buf.String())
	assert.Len(t, r.errors, 2)
}

func TestPlainRenderer_Complete(t *testing.T) {
	var buf bytes.Buffer
	r := NewPlainRenderer(NewConfig(&buf))

	r.Complete(CompletionStats{
		Roots:    1,
		Scanned:  10,
		Added:    7,
		Replaced: 1,
		Removed:  2,
		Duration: 1234 * time.Millisecond,
		Errors:   1,
	})

	out := buf.String()
	assert.Contains(t, out, "Complete: 10 files scanned in 1 root in 1.2s")
	assert.Contains(t, out, "added 7, replaced 1, removed 2, unchanged 0")
	assert.Contains(t, out, "1 errors, 0 warnings")
}
