package logging

import (
	"bytes"
	"context"
	"log/slog"
	"os"
	"path/filepath"
	"regexp"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDefaultConfig(t *testing.T) {
	cfg := DefaultConfig()

	assert.Equal(t, "info", cfg.Level)
	assert.Equal(t, 10, cfg.MaxSizeMB)
	assert.Equal(t, 5, cfg.MaxFiles)
	assert.True(t, cfg.WriteToStderr)
	assert.True(t, strings.HasSuffix(cfg.FilePath, filepath.Join(".pea", "logs", "server.log")))
}

func TestDebugAndStdioConfig(t *testing.T) {
	assert.Equal(t, "debug", DebugConfig().Level)

	cfg := StdioConfig("warn")
	assert.Equal(t, "warn", cfg.Level)
	assert.False(t, cfg.WriteToStderr)
}

func TestSetup_WritesJSONToFile(t *testing.T) {
	// Given: a file-only config in a temp dir
	path := filepath.Join(t.TempDir(), "logs", "server.log")
	cfg := Config{Level: "debug", FilePath: path, MaxSizeMB: 1, MaxFiles: 2}

	// When: logging through the returned logger
	logger, cleanup, err := Setup(cfg)
	require.NoError(t, err)
	logger.Debug("index loaded", slog.Int("files", 3))
	cleanup()

	// Then: the line is JSON with the attribute
	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Contains(t, string(data), `"msg":"index loaded"`)
	assert.Contains(t, string(data), `"files":3`)
}

func TestSetup_EmptyPathUsesStderr(t *testing.T) {
	logger, cleanup, err := Setup(Config{Level: "info"})
	require.NoError(t, err)
	defer cleanup()
	assert.NotNil(t, logger)
}

func TestLevelFromString(t *testing.T) {
	tests := []struct {
		in   string
		want slog.Level
	}{
		{"debug", slog.LevelDebug},
		{"INFO", slog.LevelInfo},
		{"warning", slog.LevelWarn},
		{"error", slog.LevelError},
		{"bogus", slog.LevelInfo},
	}
	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			assert.Equal(t, tt.want, LevelFromString(tt.in))
		})
	}
	assert.True(t, ValidLevel("warn"))
	assert.False(t, ValidLevel("verbose"))
}

func TestFindLogFile_Explicit(t *testing.T) {
	path := filepath.Join(t.TempDir(), "x.log")
	require.NoError(t, os.WriteFile(path, []byte("{}\n"), 0o644))

	found, err := FindLogFile(path)
	require.NoError(t, err)
	assert.Equal(t, path, found)

	_, err = FindLogFile(path + ".missing")
	assert.Error(t, err)
}

func TestRotatingWriter_RotatesAndCapsFiles(t *testing.T) {
	// Given: a 1MB writer keeping two rotated files
	path := filepath.Join(t.TempDir(), "server.log")
	w, err := NewRotatingWriter(path, 1, 2)
	require.NoError(t, err)
	defer func() { _ = w.Close() }()

	chunk := bytes.Repeat([]byte("x"), 700*1024)

	// When: writing four chunks that each overflow the limit
	for i := 0; i < 4; i++ {
		_, err := w.Write(chunk)
		require.NoError(t, err)
	}

	// Then: current, .1 and .2 exist but .3 does not
	assert.FileExists(t, path)
	assert.FileExists(t, path+".1")
	assert.FileExists(t, path+".2")
	assert.NoFileExists(t, path+".3")
}

func TestRotatingWriter_CloseIsIdempotent(t *testing.T) {
	w, err := NewRotatingWriter(filepath.Join(t.TempDir(), "a.log"), 1, 1)
	require.NoError(t, err)

	require.NoError(t, w.Close())
	assert.NoError(t, w.Close())
	assert.NoError(t, w.Sync())
}

const sampleLog = `{"time":"2026-01-02T10:00:00.000Z","level":"DEBUG","msg":"scan started","root":"/srv"}
{"time":"2026-01-02T10:00:01.000Z","level":"INFO","msg":"scan finished","files":12}
not json at all
{"time":"2026-01-02T10:00:02.000Z","level":"ERROR","msg":"persist failed","path":"/srv/index.json"}
`

func writeSample(t *testing.T) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "server.log")
	require.NoError(t, os.WriteFile(path, []byte(sampleLog), 0o644))
	return path
}

func TestViewer_Tail_FiltersByLevel(t *testing.T) {
	// Given: a log with mixed levels
	path := writeSample(t)
	v := NewViewer(ViewerConfig{Level: "info", NoColor: true}, &bytes.Buffer{})

	// When: tailing everything
	entries, err := v.Tail(path, 100)
	require.NoError(t, err)

	// Then: debug is filtered, raw lines pass through
	var msgs []string
	for _, e := range entries {
		msgs = append(msgs, e.Msg)
	}
	assert.Equal(t, []string{"scan finished", "", "persist failed"}, msgs)
}

func TestViewer_Tail_LastNAndPattern(t *testing.T) {
	path := writeSample(t)
	v := NewViewer(ViewerConfig{Pattern: regexp.MustCompile(`persist`)}, &bytes.Buffer{})

	entries, err := v.Tail(path, 2)
	require.NoError(t, err)
	require.Len(t, entries, 1)
	assert.Equal(t, "ERROR", entries[0].Level)
	assert.Equal(t, "/srv/index.json", entries[0].Attrs["path"])
}

func TestViewer_FormatEntry(t *testing.T) {
	var out bytes.Buffer
	v := NewViewer(ViewerConfig{NoColor: true}, &out)

	entry := parseLine(`{"time":"2026-01-02T10:00:01.000Z","level":"INFO","msg":"scan finished","files":12,"a":"b"}`)
	v.Print([]LogEntry{entry, parseLine("raw")})

	assert.Equal(t, "10:00:01.000 INFO  scan finished a=b files=12\nraw\n", out.String())
}

func TestViewer_Follow_StopsOnCancel(t *testing.T) {
	path := writeSample(t)
	v := NewViewer(ViewerConfig{}, &bytes.Buffer{})
	ctx, cancel := context.WithCancel(context.Background())
	entries := make(chan LogEntry, 4)
	done := make(chan error, 1)

	go func() { done <- v.Follow(ctx, path, entries) }()

	// When: a line is appended
	time.Sleep(50 * time.Millisecond)
	f, err := os.OpenFile(path, os.O_APPEND|os.O_WRONLY, 0o644)
	require.NoError(t, err)
	_, _ = f.WriteString(`{"time":"2026-01-02T10:00:03.000Z","level":"INFO","msg":"appended"}` + "\n")
	_ = f.Close()

	// Then: it is delivered
	select {
	case e := <-entries:
		assert.Equal(t, "appended", e.Msg)
	case <-time.After(2 * time.Second):
		t.Fatal("no entry delivered")
	}

	cancel()
	assert.NoError(t, <-done)
}
