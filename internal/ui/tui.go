package ui

import (
	"context"
	"fmt"
	"os"
	"strings"
	"sync"
	"time"

	"github.com/charmbracelet/bubbles/progress"
	"github.com/charmbracelet/bubbles/spinner"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
)

// TUIRenderer draws a live progress view with bubbletea.
type TUIRenderer struct {
	mu      sync.Mutex
	cfg     Config
	program *tea.Program
	model   *indexingModel
	cancel  context.CancelFunc
	started bool
	done    chan struct{}
}

// NewTUIRenderer creates a TUI renderer. It fails when the output is not a
// terminal.
func NewTUIRenderer(cfg Config) (*TUIRenderer, error) {
	if !IsTTY(cfg.Output) {
		return nil, fmt.Errorf("output is not a TTY")
	}

	model := newIndexingModel(cfg.Title)
	if cfg.NoColor || DetectNoColor() {
		model.styles = NoColorStyles()
	}
	return &TUIRenderer{cfg: cfg, model: model, done: make(chan struct{})}, nil
}

// Start implements Renderer.
func (r *TUIRenderer) Start(ctx context.Context) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.started {
		return nil
	}

	ctx, r.cancel = context.WithCancel(ctx)
	opts := []tea.ProgramOption{tea.WithContext(ctx)}
	if f, ok := r.cfg.Output.(*os.File); ok {
		opts = append(opts, tea.WithOutput(f))
	}
	r.program = tea.NewProgram(r.model, opts...)
	r.started = true

	go func() {
		defer close(r.done)
		_, _ = r.program.Run()
	}()
	return nil
}

// UpdateProgress implements Renderer.
func (r *TUIRenderer) UpdateProgress(event ProgressEvent) {
	r.send(progressUpdateMsg(event))
}

// AddError implements Renderer.
func (r *TUIRenderer) AddError(event ErrorEvent) {
	r.send(errorMsg(event))
}

// Complete implements Renderer.
func (r *TUIRenderer) Complete(stats CompletionStats) {
	r.send(completeMsg(stats))
}

func (r *TUIRenderer) send(msg tea.Msg) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.program != nil {
		r.program.Send(msg)
	}
}

// Stop implements Renderer. It waits briefly for the final frame.
func (r *TUIRenderer) Stop() error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.program == nil {
		return nil
	}

	select {
	case <-r.done:
	case <-time.After(500 * time.Millisecond):
		r.program.Quit()
		select {
		case <-r.done:
		case <-time.After(2 * time.Second):
		}
	}
	if r.cancel != nil {
		r.cancel()
	}
	return nil
}

type (
	progressUpdateMsg ProgressEvent
	errorMsg          ErrorEvent
	completeMsg       CompletionStats
)

// indexingModel is the bubbletea model for indexing progress.
type indexingModel struct {
	title       string
	width       int
	start       time.Time
	event       ProgressEvent
	errors      int
	warnings    int
	lastError   string
	quitting    bool
	complete    bool
	stats       CompletionStats
	spinner     spinner.Model
	progressBar progress.Model
	styles      Styles
}

func newIndexingModel(title string) *indexingModel {
	s := spinner.New()
	s.Spinner = spinner.Dot
	s.Style = lipgloss.NewStyle().Foreground(lipgloss.Color(ColorGreen))

	return &indexingModel{
		title: title,
		width: 80,
		start: time.Now(),
		progressBar: progress.New(
			progress.WithSolidFill(ColorGreen),
			progress.WithWidth(50),
			progress.WithoutPercentage(),
		),
		spinner: s,
		styles:  DefaultStyles(),
	}
}

// Init implements tea.Model.
func (m *indexingModel) Init() tea.Cmd {
	return m.spinner.Tick
}

// Update implements tea.Model.
func (m *indexingModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		if msg.String() == "ctrl+c" {
			m.quitting = true
			return m, tea.Quit
		}

	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.progressBar.Width = max(20, msg.Width-20)

	case progressUpdateMsg:
		m.event = ProgressEvent(msg)

	case errorMsg:
		if msg.IsWarn {
			m.warnings++
		} else {
			m.errors++
		}
		m.lastError = fmt.Sprintf("%s: %v", msg.File, msg.Err)

	case completeMsg:
		m.complete = true
		m.stats = CompletionStats(msg)
		return m, tea.Quit

	case spinner.TickMsg:
		var cmd tea.Cmd
		m.spinner, cmd = m.spinner.Update(msg)
		return m, cmd
	}
	return m, nil
}

// View implements tea.Model.
func (m *indexingModel) View() string {
	if m.quitting {
		return "Cancelled.\n"
	}
	if m.complete {
		return m.renderComplete()
	}

	var lines []string
	if m.title != "" {
		lines = append(lines, m.styles.Header.Render(m.title), "")
	}
	lines = append(lines, m.renderProgress())
	if f := m.event.CurrentFile; f != "" {
		lines = append(lines, m.styles.Dim.Render(truncateFilePath(f, max(20, m.width-2))))
	}
	if m.errors > 0 || m.warnings > 0 {
		lines = append(lines, m.renderProblems())
	}
	return strings.Join(lines, "\n") + "\n"
}

func (m *indexingModel) renderProgress() string {
	e := m.event
	if e.Total == 0 {
		line := fmt.Sprintf("%s %s", m.spinner.View(), m.styles.Active.Render(e.Stage.String()))
		if e.Current > 0 {
			line += m.styles.Label.Render(fmt.Sprintf("  %d files  %s", e.Current, formatDuration(time.Since(m.start))))
		}
		if e.Message != "" {
			line += "  " + m.styles.Label.Render(e.Message)
		}
		return line
	}

	percent := float64(e.Current) / float64(e.Total)
	bar := m.progressBar.ViewAs(percent)
	pct := m.styles.Active.Render(fmt.Sprintf("%3.0f%%", percent*100))
	count := m.styles.Label.Render(fmt.Sprintf("%s %d / %d  %s", e.Stage, e.Current, e.Total, e.Message))
	return fmt.Sprintf("%s  %s\n%s", bar, pct, count)
}

func (m *indexingModel) renderProblems() string {
	var parts []string
	if m.warnings > 0 {
		parts = append(parts, m.styles.Warning.Render(fmt.Sprintf("%d warnings", m.warnings)))
	}
	if m.errors > 0 {
		parts = append(parts, m.styles.Error.Render(fmt.Sprintf("%d errors", m.errors)))
	}
	line := strings.Join(parts, m.styles.Dim.Render("  |  "))
	if m.lastError != "" {
		line += "\n" + m.styles.Dim.Render(truncateFilePath(m.lastError, max(20, m.width-2)))
	}
	return line
}

func (m *indexingModel) renderComplete() string {
	label := func(s string) string { return m.styles.Label.Render(fmt.Sprintf("%-10s", s)) }
	value := func(n int) string { return m.styles.Active.Render(fmt.Sprintf("%d", n)) }

	lines := []string{
		m.styles.Success.Render("Indexing complete"),
		"",
		label("Scanned:") + " " + value(m.stats.Scanned),
		label("Added:") + " " + value(m.stats.Added),
		label("Replaced:") + " " + value(m.stats.Replaced),
		label("Removed:") + " " + value(m.stats.Removed),
		label("Duration:") + " " + m.styles.Active.Render(formatDuration(m.stats.Duration)),
	}
	if m.stats.Errors > 0 {
		lines = append(lines, "", m.styles.Error.Render(fmt.Sprintf("%d errors", m.stats.Errors)))
	}
	if m.stats.Warnings > 0 {
		lines = append(lines, m.styles.Warning.Render(fmt.Sprintf("%d warnings", m.stats.Warnings)))
	}

	panel := lipgloss.NewStyle().
		Border(lipgloss.RoundedBorder()).
		BorderForeground(lipgloss.Color(ColorGreen)).
		Padding(0, 2)
	return panel.Render(strings.Join(lines, "\n")) + "\n"
}

// formatDuration formats a duration in a human-friendly way.
func formatDuration(d time.Duration) string {
	if d < time.Second {
		return d.Round(time.Millisecond).String()
	}
	d = d.Round(time.Second)
	if d < time.Minute {
		return fmt.Sprintf("%ds", int(d.Seconds()))
	}
	if d < time.Hour {
		m := int(d.Minutes())
		s := int(d.Seconds()) % 60
		if s == 0 {
			return fmt.Sprintf("%dm", m)
		}
		return fmt.Sprintf("%dm %ds", m, s)
	}
	return fmt.Sprintf("%dh %dm", int(d.Hours()), int(d.Minutes())%60)
}

// truncateFilePath shortens path to maxLen, keeping the file name.
func truncateFilePath(path string, maxLen int) string {
	if len(path) <= maxLen {
		return path
	}
	if maxLen < 4 {
		return "..."
	}

	i := strings.LastIndex(path, "/")
	filename := path[i+1:]
	if i < 0 || len(filename)+4 > maxLen {
		return "..." + path[len(path)-maxLen+3:]
	}

	remaining := maxLen - len(filename) - 4
	prefix := path[:i]
	if remaining <= 0 {
		return ".../" + filename
	}
	return "..." + prefix[len(prefix)-remaining:] + "/" + filename
}

var _ Renderer = (*TUIRenderer)(nil)
