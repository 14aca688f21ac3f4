package cmd

import (
	"context"
	"fmt"
	"io"
	"os"
	"os/signal"
	"regexp"
	"strings"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/Aman-CERP/pea/internal/logging"
)

type logsOptions struct {
	lines   int
	follow  bool
	level   string
	filter  string
	noColor bool
	file    string
}

func newLogsCmd() *cobra.Command {
	opts := logsOptions{}

	cmd := &cobra.Command{
		Use:   "logs",
		Short: "View pea server logs",
		Long: `View and filter the JSON logs written by pea serve.

Logs are stored in ~/.pea/logs/ and rotate automatically.`,
		Example: `  # Show last 50 log lines
  pea logs

  # Follow logs in real-time
  pea logs -f

  # Show only errors
  pea logs --level error

  # Filter by pattern
  pea logs --filter "upload|scan"`,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return runLogs(cmd.Context(), cmd.OutOrStdout(), cmd.ErrOrStderr(), opts)
		},
	}

	cmd.Flags().IntVarP(&opts.lines, "lines", "n", 50, "Number of lines to show")
	cmd.Flags().BoolVarP(&opts.follow, "follow", "f", false, "Follow log output")
	cmd.Flags().StringVar(&opts.level, "level", "", "Minimum level (debug, info, warn, error)")
	cmd.Flags().StringVar(&opts.filter, "filter", "", "Regex applied to message and attributes")
	cmd.Flags().BoolVar(&opts.noColor, "no-color", false, "Disable colored output")
	cmd.Flags().StringVar(&opts.file, "file", "", "Log file to read (default: ~/.pea/logs/server.log)")

	return cmd
}

func runLogs(ctx context.Context, stdout, stderr io.Writer, opts logsOptions) error {
	if opts.level != "" && !logging.ValidLevel(opts.level) {
		return fmt.Errorf("invalid level %q (use: debug, info, warn, error)", opts.level)
	}

	var pattern *regexp.Regexp
	if opts.filter != "" {
		var err error
		if pattern, err = regexp.Compile(opts.filter); err != nil {
			return fmt.Errorf("invalid filter pattern: %w", err)
		}
	}

	path, err := logging.FindLogFile(opts.file)
	if err != nil {
		return err
	}

	noColor := opts.noColor || os.Getenv("NO_COLOR") != ""
	viewer := logging.NewViewer(logging.ViewerConfig{
		Level:   strings.ToUpper(opts.level),
		Pattern: pattern,
		NoColor: noColor,
	}, stdout)

	_, _ = fmt.Fprintf(stderr, "Log file: %s\n", path)
	if !opts.follow {
		_, _ = fmt.Fprintln(stderr, "---")
		entries, err := viewer.Tail(path, opts.lines)
		if err != nil {
			return err
		}
		viewer.Print(entries)
		return nil
	}

	_, _ = fmt.Fprintln(stderr, "Following... (Ctrl+C to stop)")
	_, _ = fmt.Fprintln(stderr, "---")
	return followLogs(ctx, stdout, viewer, path)
}

func followLogs(ctx context.Context, stdout io.Writer, viewer *logging.Viewer, path string) error {
	ctx, cancel := signal.NotifyContext(ctx, os.Interrupt, syscall.SIGTERM)
	defer cancel()

	entries := make(chan logging.LogEntry, 100)
	errCh := make(chan error, 1)

	go func() {
		errCh <- viewer.Follow(ctx, path, entries)
	}()

	for {
		select {
		case entry := <-entries:
			_, _ = fmt.Fprintln(stdout, viewer.FormatEntry(entry))
		case err := <-errCh:
			if ctx.Err() != nil {
				return nil
			}
			return err
		case <-ctx.Done():
			return nil
		}
	}
}
