// Package output prints short status lines for CLI commands.
package output

import (
	"fmt"
	"io"

	"github.com/charmbracelet/lipgloss"
)

// Writer provides formatted output for CLI.
type Writer struct {
	out   io.Writer
	ok    lipgloss.Style
	warn  lipgloss.Style
	fail  lipgloss.Style
	label lipgloss.Style
}

// New creates a Writer without color.
func New(out io.Writer) *Writer {
	plain := lipgloss.NewStyle()
	return &Writer{out: out, ok: plain, warn: plain, fail: plain, label: plain}
}

// NewColored creates a Writer that colors its markers.
func NewColored(out io.Writer) *Writer {
	return &Writer{
		out:   out,
		ok:    lipgloss.NewStyle().Foreground(lipgloss.Color("114")),
		warn:  lipgloss.NewStyle().Foreground(lipgloss.Color("220")),
		fail:  lipgloss.NewStyle().Foreground(lipgloss.Color("196")),
		label: lipgloss.NewStyle().Foreground(lipgloss.Color("245")),
	}
}

// Status prints a message after an icon. An empty icon indents the message.
func (w *Writer) Status(icon, msg string) {
	if icon != "" {
		_, _ = fmt.Fprintf(w.out, "%s %s\n", icon, msg)
	} else {
		_, _ = fmt.Fprintf(w.out, "   %s\n", msg)
	}
}

// Statusf prints a formatted status message with an icon.
func (w *Writer) Statusf(icon, format string, args ...any) {
	w.Status(icon, fmt.Sprintf(format, args...))
}

// Success prints a success message.
func (w *Writer) Success(msg string) {
	w.Status(w.ok.Render("✓"), msg)
}

// Successf prints a formatted success message.
func (w *Writer) Successf(format string, args ...any) {
	w.Success(fmt.Sprintf(format, args...))
}

// Warning prints a warning message.
func (w *Writer) Warning(msg string) {
	w.Status(w.warn.Render("!"), msg)
}

// Warningf prints a formatted warning message.
func (w *Writer) Warningf(format string, args ...any) {
	w.Warning(fmt.Sprintf(format, args...))
}

// Error prints an error message.
func (w *Writer) Error(msg string) {
	w.Status(w.fail.Render("✗"), msg)
}

// Field prints an indented "label: value" line.
func (w *Writer) Field(label string, value any) {
	_, _ = fmt.Fprintf(w.out, "   %s %v\n", w.label.Render(label+":"), value)
}

// Newline prints an empty line.
func (w *Writer) Newline() {
	_, _ = fmt.Fprintln(w.out)
}
