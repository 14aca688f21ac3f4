package cmd

import (
	"bytes"
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const sampleLog = `{"time":"2026-01-02T10:00:00Z","level":"INFO","msg":"server started","addr":":9090"}
{"time":"2026-01-02T10:00:01Z","level":"DEBUG","msg":"scan batch","files":12}
{"time":"2026-01-02T10:00:02Z","level":"WARN","msg":"upload rejected","reason":"too large"}
{"time":"2026-01-02T10:00:03Z","level":"ERROR","msg":"index write failed","err":"disk full"}
`

func writeLog(t *testing.T) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "server.log")
	require.NoError(t, os.WriteFile(path, []byte(sampleLog), 0o644))
	return path
}

func TestRunLogs_Filters(t *testing.T) {
	tests := []struct {
		name     string
		opts     logsOptions
		contains []string
		excludes []string
	}{
		{
			name:     "all lines",
			opts:     logsOptions{lines: 50},
			contains: []string{"server started", "scan batch", "upload rejected", "index write failed"},
		},
		{
			name:     "minimum level",
			opts:     logsOptions{lines: 50, level: "warn"},
			contains: []string{"upload rejected", "index write failed"},
			excludes: []string{"server started", "scan batch"},
		},
		{
			name:     "pattern",
			opts:     logsOptions{lines: 50, filter: "upload|scan"},
			contains: []string{"upload rejected", "scan batch"},
			excludes: []string{"server started"},
		},
		{
			name:     "last line only",
			opts:     logsOptions{lines: 1},
			contains: []string{"index write failed"},
			excludes: []string{"upload rejected"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			// Given: a log file
			opts := tt.opts
			opts.file = writeLog(t)
			opts.noColor = true
			var stdout, stderr bytes.Buffer

			// When: viewing it
			err := runLogs(context.Background(), &stdout, &stderr, opts)

			// Then: only matching entries are printed
			require.NoError(t, err)
			assert.Contains(t, stderr.String(), opts.file)
			for _, s := range tt.contains {
				assert.Contains(t, stdout.String(), s)
			}
			for _, s := range tt.excludes {
				assert.NotContains(t, stdout.String(), s)
			}
		})
	}
}

func TestRunLogs_InvalidInput(t *testing.T) {
	tests := []struct {
		name string
		opts logsOptions
		want string
	}{
		{"bad level", logsOptions{level: "loud"}, "invalid level"},
		{"bad pattern", logsOptions{filter: "("}, "invalid filter"},
		{"missing file", logsOptions{file: "/nonexistent/pea.log"}, "log file not found"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := runLogs(context.Background(), &bytes.Buffer{}, &bytes.Buffer{}, tt.opts)
			require.Error(t, err)
			assert.True(t, strings.Contains(err.Error(), tt.want), err.Error())
		})
	}
}

func TestRunLogs_FollowStopsOnCancel(t *testing.T) {
	// Given: a follow session on a log file
	path := writeLog(t)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	// When: the context is already canceled
	err := runLogs(ctx, &bytes.Buffer{}, &bytes.Buffer{}, logsOptions{file: path, follow: true, noColor: true})

	// Then: follow returns cleanly
	assert.NoError(t, err)
}
