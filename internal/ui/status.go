package ui

import (
	"encoding/json"
	"fmt"
	"io"
	"sort"
	"time"
)

// StatusInfo describes the index and the local server.
type StatusInfo struct {
	IndexPath   string         `json:"index_path"`
	IndexSize   int64          `json:"index_size"`
	LastWritten time.Time      `json:"last_written,omitzero"`
	Files       int            `json:"files"`
	Tags        int            `json:"tags"`
	Types       map[string]int `json:"types"`
	Roots       []string       `json:"roots"`

	// Server is "running", "stopped" or "locked" (index held by another process).
	Server    string `json:"server"`
	ServerPID int    `json:"server_pid,omitempty"`
}

// StatusRenderer displays index status.
type StatusRenderer struct {
	out    io.Writer
	styles Styles
}

// NewStatusRenderer creates a status renderer.
func NewStatusRenderer(out io.Writer, noColor bool) *StatusRenderer {
	return &StatusRenderer{out: out, styles: GetStyles(noColor || DetectNoColor())}
}

// Render displays status info to terminal.
func (r *StatusRenderer) Render(info StatusInfo) error {
	_, _ = fmt.Fprintf(r.out, "%s\n\n", r.styles.Header.Render("Index: "+info.IndexPath))

	_, _ = fmt.Fprintf(r.out, "  Files:   %d\n", info.Files)
	_, _ = fmt.Fprintf(r.out, "  Tags:    %d\n", info.Tags)
	_, _ = fmt.Fprintf(r.out, "  Size:    %s\n", FormatBytes(info.IndexSize))
	if !info.LastWritten.IsZero() {
		_, _ = fmt.Fprintf(r.out, "  Written: %s\n", formatTime(info.LastWritten))
	}

	if len(info.Types) > 0 {
		_, _ = fmt.Fprintln(r.out)
		_, _ = fmt.Fprintln(r.out, "  Types:")
		types := make([]string, 0, len(info.Types))
		for ty := range info.Types {
			types = append(types, ty)
		}
		// most common first
		sort.Slice(types, func(i, j int) bool {
			if info.Types[types[i]] != info.Types[types[j]] {
				return info.Types[types[i]] > info.Types[types[j]]
			}
			return types[i] < types[j]
		})
		for _, ty := range types {
			_, _ = fmt.Fprintf(r.out, "    %-8s %d\n", ty, info.Types[ty])
		}
	}

	if len(info.Roots) > 0 {
		_, _ = fmt.Fprintln(r.out)
		_, _ = fmt.Fprintln(r.out, "  Roots:")
		for _, root := range info.Roots {
			_, _ = fmt.Fprintf(r.out, "    %s\n", root)
		}
	}

	_, _ = fmt.Fprintln(r.out)
	server := r.renderStatus(info.Server)
	if info.ServerPID > 0 {
		server += fmt.Sprintf(" (pid %d)", info.ServerPID)
	}
	_, _ = fmt.Fprintf(r.out, "  Server:  %s\n", server)
	return nil
}

// RenderJSON outputs status as JSON.
func (r *StatusRenderer) RenderJSON(info StatusInfo) error {
	encoder := json.NewEncoder(r.out)
	encoder.SetIndent("", "  ")
	return encoder.Encode(info)
}

func (r *StatusRenderer) renderStatus(status string) string {
	switch status {
	case "running":
		return r.styles.Success.Render(status)
	case "stopped":
		return r.styles.Warning.Render(status)
	case "locked":
		return r.styles.Error.Render(status)
	default:
		return status
	}
}

// formatTime formats a time relative to now.
func formatTime(t time.Time) string {
	diff := time.Since(t)

	switch {
	case diff < time.Minute:
		return "just now"
	case diff < time.Hour:
		return ago(int(diff.Minutes()), "minute")
	case diff < 24*time.Hour:
		return ago(int(diff.Hours()), "hour")
	case diff < 7*24*time.Hour:
		return ago(int(diff.Hours()/24), "day")
	default:
		return t.Format("2006-01-02 15:04")
	}
}

func ago(n int, unit string) string {
	return fmt.Sprintf("%d %s%s ago", n, unit, plural(n))
}

// FormatBytes formats bytes to human-readable format.
func FormatBytes(bytes int64) string {
	const (
		KB = 1024
		MB = 1024 * KB
		GB = 1024 * MB
	)

	switch {
	case bytes >= GB:
		return fmt.Sprintf("%.1f GB", float64(bytes)/float64(GB))
	case bytes >= MB:
		return fmt.Sprintf("%.1f MB", float64(bytes)/float64(MB))
	case bytes >= KB:
		return fmt.Sprintf("%.1f KB", float64(bytes)/float64(KB))
	default:
		return fmt.Sprintf("%d B", bytes)
	}
}
