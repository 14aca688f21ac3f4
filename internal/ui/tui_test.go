package ui

import (
	"errors"
	"strings"
	"testing"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/stretchr/testify/assert"
)

func newTestModel() *indexingModel {
	m := newIndexingModel("pea index")
	m.styles = NoColorStyles()
	return m
}

func TestIndexingModel_ScanView(t *testing.T) {
	m := newTestModel()

	m.Update(progressUpdateMsg{Stage: StageScanning, Current: 42, CurrentFile: "/media/a.mp4"})
	view := m.View()

	assert.Contains(t, view, "pea index")
	assert.Contains(t, view, "Scanning")
	assert.Contains(t, view, "42 files")
	assert.Contains(t, view, "/media/a.mp4")
}

func TestIndexingModel_ProgressBarWithTotal(t *testing.T) {
	m := newTestModel()

	m.Update(progressUpdateMsg{Stage: StageIndexing, Current: 1, Total: 2, Message: "/media"})

	assert.Contains(t, m.View(), " 50%")
	assert.Contains(t, m.View(), "Indexing 1 / 2")
}

func TestIndexingModel_CountsProblems(t *testing.T) {
	m := newTestModel()

	m.Update(errorMsg{File: "/a.mp4", Err: errors.New("conflict")})
	m.Update(errorMsg{File: "/b", Err: errors.New("gone"), IsWarn: true})

	assert.Equal(t, 1, m.errors)
	assert.Equal(t, 1, m.warnings)
	assert.Contains(t, m.View(), "1 errors")
	assert.Contains(t, m.View(), "/b: gone")
}

func TestIndexingModel_CompleteQuits(t *testing.T) {
	m := newTestModel()

	_, cmd := m.Update(completeMsg{Scanned: 3, Added: 3, Duration: 2 * time.Second})

	assert.NotNil(t, cmd)
	assert.True(t, m.complete)
	view := m.View()
	assert.Contains(t, view, "Indexing complete")
	assert.Contains(t, view, "2s")
}

func TestIndexingModel_CtrlC(t *testing.T) {
	m := newTestModel()

	_, cmd := m.Update(tea.KeyMsg{Type: tea.KeyCtrlC})

	assert.NotNil(t, cmd)
	assert.Equal(t, "Cancelled.\n", m.View())
}

func TestIndexingModel_WindowResize(t *testing.T) {
	m := newTestModel()

	m.Update(tea.WindowSizeMsg{Width: 30, Height: 10})

	assert.Equal(t, 30, m.width)
	assert.Equal(t, 20, m.progressBar.Width)
}

func TestFormatDuration(t *testing.T) {
	tests := []struct {
		d    time.Duration
		want string
	}{
		{250 * time.Millisecond, "250ms"},
		{42 * time.Second, "42s"},
		{2 * time.Minute, "2m"},
		{2*time.Minute + 5*time.Second, "2m 5s"},
		{90 * time.Minute, "1h 30m"},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, formatDuration(tt.d))
	}
}

func TestTruncateFilePath(t *testing.T) {
	tests := []struct {
		name   string
		path   string
		maxLen int
	}{
		{"fits", "/a/b.mp4", 20},
		{"keeps file name", "/media/movies/2024/holiday/beach.mp4", 20},
		{"long file name", "/x/" + strings.Repeat("n", 40) + ".mp4", 20},
		{"no separator", strings.Repeat("n", 40), 10},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := truncateFilePath(tt.path, tt.maxLen)
			assert.LessOrEqual(t, len(got), tt.maxLen)
			if len(tt.path) <= tt.maxLen {
				assert.Equal(t, tt.path, got)
			}
		})
	}
	assert.True(t, strings.HasSuffix(truncateFilePath("/media/movies/2024/holiday/beach.mp4", 20), "/beach.mp4"))
}
