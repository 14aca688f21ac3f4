package cmd

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/signal"
	"sync/atomic"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/Aman-CERP/pea/internal/config"
	"github.com/Aman-CERP/pea/internal/ui"
)

type indexOptions struct {
	indexFile string
	reconcile bool
	plain     bool
	noColor   bool
}

func newIndexCmd() *cobra.Command {
	var opts indexOptions

	cmd := &cobra.Command{
		Use:   "index [content-root...]",
		Short: "Build or update the index",
		Long: `Scan content roots into the index file.

Each root is registered with the index and scanned; new files are added and
moved or renamed files replace their old records. With --reconcile every
registered root is rescanned and records of files that no longer exist are
removed. Without arguments the configured content root is used.

The server must not be running against the same index file.`,
		Example: `  # Index a media tree into the default index
  pea index ~/media

  # Build a specific index file
  pea index ~/media --index-file ./index.json

  # Drop records of deleted files
  pea index --reconcile`,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig()
			if err != nil {
				return err
			}
			if opts.indexFile != "" {
				cfg.Index.File = opts.indexFile
			}
			if len(args) == 0 && cfg.Index.ContentRoot != "" && !opts.reconcile {
				args = []string{cfg.Index.ContentRoot}
			}
			if len(args) == 0 && !opts.reconcile {
				return fmt.Errorf("no content root given and index.content_root is not set")
			}

			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()
			return runIndex(ctx, cmd.OutOrStdout(), cfg, args, opts)
		},
	}

	cmd.Flags().StringVar(&opts.indexFile, "index-file", "", "Index file to build (overrides index.file)")
	cmd.Flags().BoolVar(&opts.reconcile, "reconcile", false, "Rescan every registered root and drop vanished files")
	cmd.Flags().BoolVar(&opts.plain, "plain", false, "Plain text progress (no TUI)")
	cmd.Flags().BoolVar(&opts.noColor, "no-color", false, "Disable colored output")

	return cmd
}

func runIndex(ctx context.Context, out io.Writer, cfg *config.Config, roots []string, opts indexOptions) error {
	renderer := ui.NewRenderer(ui.NewConfig(out,
		ui.WithForcePlain(opts.plain),
		ui.WithNoColor(opts.noColor),
		ui.WithTitle("pea index "+cfg.Index.File),
	))
	if err := renderer.Start(ctx); err != nil {
		return err
	}
	defer func() { _ = renderer.Stop() }()

	var scanned atomic.Int64
	sc, err := newScanner(cfg, func(path string) {
		n := scanned.Add(1)
		renderer.UpdateProgress(ui.ProgressEvent{Stage: ui.StageScanning, Current: int(n), CurrentFile: path})
	})
	if err != nil {
		return err
	}

	// progress goes to the renderer, so logs stay out of the terminal
	logger := slog.Default()
	if loggingCleanup == nil {
		logger = discardLogger()
	}
	s, err := openStore(cfg, logger, sc)
	if err != nil {
		return err
	}
	defer func() { _ = s.Close() }()

	start := time.Now()
	stats := ui.CompletionStats{Roots: len(roots)}

	for i, root := range roots {
		renderer.UpdateProgress(ui.ProgressEvent{Stage: ui.StageIndexing, Current: i, Total: len(roots), Message: root})
		res, err := s.AddDirectory(ctx, root)
		if err != nil {
			renderer.AddError(ui.ErrorEvent{File: root, Err: err})
			stats.Errors++
			if ctx.Err() != nil {
				break
			}
			continue
		}
		stats.Added += res.Added
		stats.Replaced += res.Replaced
		stats.Unchanged += res.Unchanged
		for _, c := range res.Conflicts {
			renderer.AddError(ui.ErrorEvent{File: root, Err: c, IsWarn: true})
			stats.Warnings++
		}
	}

	if opts.reconcile && ctx.Err() == nil {
		renderer.UpdateProgress(ui.ProgressEvent{Stage: ui.StageReconciling, Message: "rescanning roots"})
		res, err := s.Reconcile(ctx)
		if err != nil {
			renderer.AddError(ui.ErrorEvent{Err: err})
			stats.Errors++
		} else {
			stats.Roots = len(s.Roots())
			stats.Added += res.Added
			stats.Replaced += res.Replaced
			stats.Removed += res.Removed
			for _, root := range res.MissingRoots {
				renderer.AddError(ui.ErrorEvent{File: root, Err: fmt.Errorf("root no longer exists"), IsWarn: true})
				stats.Warnings++
			}
			for _, c := range res.Conflicts {
				renderer.AddError(ui.ErrorEvent{Err: c, IsWarn: true})
				stats.Warnings++
			}
		}
	}

	stats.Scanned = int(scanned.Load())
	stats.Duration = time.Since(start)
	renderer.Complete(stats)

	if err := ctx.Err(); err != nil {
		return err
	}
	if stats.Errors > 0 {
		return fmt.Errorf("indexing finished with %d errors", stats.Errors)
	}
	return nil
}
