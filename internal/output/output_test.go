package output

import (
	"bytes"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestWriter_Markers(t *testing.T) {
	tests := []struct {
		name  string
		write func(w *Writer)
		want  string
	}{
		{"success", func(w *Writer) { w.Success("Server stopped") }, "✓ Server stopped\n"},
		{"successf", func(w *Writer) { w.Successf("Indexed %d files", 3) }, "✓ Indexed 3 files\n"},
		{"warning", func(w *Writer) { w.Warning("Server not running") }, "! Server not running\n"},
		{"warningf", func(w *Writer) { w.Warningf("%d conflicts", 2) }, "! 2 conflicts\n"},
		{"error", func(w *Writer) { w.Error("failed") }, "✗ failed\n"},
		{"status", func(w *Writer) { w.Status(">", "hello") }, "> hello\n"},
		{"status without icon", func(w *Writer) { w.Status("", "indented") }, "   indented\n"},
		{"statusf", func(w *Writer) { w.Statusf("", "%s=%d", "a", 1) }, "   a=1\n"},
		{"field", func(w *Writer) { w.Field("Location", "/tmp/x") }, "   Location: /tmp/x\n"},
		{"newline", func(w *Writer) { w.Newline() }, "\n"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			// Given a plain writer
			buf := &bytes.Buffer{}

			// When writing
			tt.write(New(buf))

			// Then the line is exact
			assert.Equal(t, tt.want, buf.String())
		})
	}
}

func TestNewColored_KeepsMessage(t *testing.T) {
	buf := &bytes.Buffer{}

	NewColored(buf).Success("done")

	assert.Contains(t, buf.String(), "done")
	assert.Contains(t, buf.String(), "✓")
}
