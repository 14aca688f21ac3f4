package cmd

import (
	"context"
	"log/slog"
	"net"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"

	"github.com/Aman-CERP/pea/internal/api"
	"github.com/Aman-CERP/pea/internal/async"
	"github.com/Aman-CERP/pea/internal/config"
	"github.com/Aman-CERP/pea/internal/errors"
	"github.com/Aman-CERP/pea/internal/index"
	"github.com/Aman-CERP/pea/internal/media"
	"github.com/Aman-CERP/pea/internal/preflight"
	"github.com/Aman-CERP/pea/internal/registry"
	"github.com/Aman-CERP/pea/internal/scanner"
	"github.com/Aman-CERP/pea/internal/search"
	"github.com/Aman-CERP/pea/internal/watcher"
)

const (
	// initialScanTimeout bounds the startup scan of the content root.
	initialScanTimeout = time.Hour
	unregisterTimeout  = 5 * time.Second
)

type serveOptions struct {
	addr      string
	discovery bool
	noWatch   bool
	noScan    bool
}

func newServeCmd() *cobra.Command {
	var opts serveOptions

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Run the HTTP index server",
		Long: `Run the index server.

On start the server loads the index file, registers the received-files
directory as a root, scans the content root in the background and starts
serving HTTP. With watching enabled, changes under every root are applied
to the index as they happen. SIGINT or SIGTERM shuts down gracefully.`,
		Example: `  # Serve ~/media on the default address
  PEA_FILES_DIR=~/media pea serve

  # Serve on another port and announce to the discovery registry
  pea serve --addr :9000 --discovery`,
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := loadConfig()
			if err != nil {
				return err
			}
			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()
			return runServe(ctx, cfg, opts)
		},
	}

	cmd.Flags().StringVar(&opts.addr, "addr", "", "Listen address (overrides server.address)")
	cmd.Flags().BoolVar(&opts.discovery, "discovery", false, "Register with the discovery registry")
	cmd.Flags().BoolVar(&opts.noWatch, "no-watch", false, "Do not follow filesystem changes")
	cmd.Flags().BoolVar(&opts.noScan, "no-scan", false, "Skip the startup scan of the content root")

	return cmd
}

func runServe(ctx context.Context, cfg *config.Config, opts serveOptions) error {
	if opts.addr != "" {
		cfg.Server.Address = opts.addr
	}
	if opts.discovery {
		cfg.Registry.Enabled = true
	}

	logger, err := setupLogging(cfg.LoggingConfig())
	if err != nil {
		return err
	}

	checker := preflight.New()
	results := checker.RunAll(ctx, preflightTargets(cfg))
	for _, r := range results {
		if r.Status != preflight.StatusPass {
			logger.Warn("preflight check", slog.String("check", r.Name), slog.String("status", r.Status.String()), slog.String("message", r.Message))
		}
	}
	if checker.HasCriticalFailures(results) {
		return errors.ConfigError("preflight failed: "+preflight.Failures(results), nil).
			WithSuggestion("Run 'pea doctor' for details")
	}

	pid := pidFile(cfg)
	if err := pid.Acquire(); err != nil {
		return err
	}
	defer func() { _ = pid.Release() }()

	var progress *async.ScanProgress
	dataDir := filepath.Dir(cfg.Index.File)
	if root := cfg.Index.ContentRoot; root != "" && cfg.Index.ScanOnStart && !opts.noScan {
		if async.HasIncompleteScan(dataDir) {
			logger.Warn("previous startup scan did not finish", slog.String("root", root))
		}
		progress = async.NewScanProgress(root)
	}

	var onFile func(string)
	if progress != nil {
		onFile = progress.FileScanned
	}
	sc, err := newScanner(cfg, onFile)
	if err != nil {
		return err
	}
	s, err := openStore(cfg, logger, sc)
	if err != nil {
		return err
	}
	names, err := search.NewNameIndex(logger)
	if err != nil {
		_ = s.Close()
		return err
	}
	actor := index.NewActor(s, index.Config{
		ReceivedDir: cfg.Index.ReceivedDir,
		Names:       names,
		Logger:      logger,
	})
	defer func() {
		if err := actor.Close(); err != nil {
			logger.Error("closing index failed", slog.String("error", err.Error()))
		}
	}()
	client := index.NewClient(actor, cfg.RequestTimeout())

	if err := os.MkdirAll(cfg.Index.ReceivedDir, 0o755); err != nil {
		return errors.New(errors.ErrCodeCreateFile, "failed to create received dir "+cfg.Index.ReceivedDir, err)
	}
	if _, err := client.AddDirectory(ctx, cfg.Index.ReceivedDir); err != nil {
		return err
	}

	ln, err := net.Listen("tcp", cfg.Server.Address)
	if err != nil {
		return errors.NetworkError("failed to listen on "+cfg.Server.Address, err)
	}

	apiOpts := api.Options{
		ClientDir:       cfg.Server.ClientDir,
		MaxUploadBytes:  int64(cfg.Server.MaxUploadMB) << 20,
		ShutdownTimeout: cfg.ShutdownTimeout(),
		Logger:          logger,
	}
	if progress != nil {
		apiOpts.Scan = progress
	}
	srv := api.NewServer(client, apiOpts)

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		return srv.Run(gctx, ln)
	})

	var scan *async.Runner
	if progress != nil {
		scan = async.NewRunner(async.RunnerConfig{DataDir: dataDir, Progress: progress},
			func(ctx context.Context, p *async.ScanProgress) error {
				return initialScan(ctx, client, cfg.Index.ContentRoot, p, logger)
			})
		scan.Start(gctx)
	}

	if cfg.Watch.Enabled && !opts.noWatch {
		if err := startWatching(gctx, g, cfg, sc.Classifier(), client, logger); err != nil {
			logger.Warn("file watching disabled", slog.String("error", err.Error()))
		}
	}

	var reg *registry.Client
	var regData registry.Data
	if cfg.Registry.Enabled {
		reg, regData, err = register(gctx, cfg, ln.Addr().String(), logger)
		if err != nil {
			logger.Error("registry registration failed", errors.LogAttrs(err)...)
			reg = nil
		}
	}

	waitErr := g.Wait()
	if scan != nil {
		scan.Stop()
	}

	if reg != nil {
		uctx, cancel := context.WithTimeout(context.Background(), unregisterTimeout)
		if err := reg.Unregister(uctx, regData); err != nil {
			logger.Warn("registry unregistration failed", errors.LogAttrs(err)...)
		}
		cancel()
	}

	if waitErr != nil && !errors.Is(waitErr, context.Canceled) {
		return waitErr
	}
	logger.Info("server stopped")
	return nil
}

// initialScan adds the content root to the index. Failures are logged and
// reported on /health; the server keeps serving without the content root.
func initialScan(ctx context.Context, client *index.Client, root string, progress *async.ScanProgress, logger *slog.Logger) error {
	ctx, cancel := context.WithTimeout(ctx, initialScanTimeout)
	defer cancel()

	res, err := client.AddDirectory(ctx, root)
	if err != nil {
		logger.Error("initial scan failed", errors.LogAttrs(err)...)
		return err
	}
	progress.SetResult(res.Added, res.Replaced, res.Unchanged)
	for _, c := range res.Conflicts {
		logger.Warn("id conflict", slog.String("error", c.Error()))
	}
	return nil
}

// startWatching follows every root of the index in g.
func startWatching(ctx context.Context, g *errgroup.Group, cfg *config.Config, classifier *media.Classifier, client *index.Client, logger *slog.Logger) error {
	roots := []string{cfg.Index.ReceivedDir}
	if root := cfg.Index.ContentRoot; root != "" {
		if info, err := os.Stat(root); err == nil && info.IsDir() {
			roots = append(roots, root)
		}
	}

	w, err := watcher.NewHybridWatcher(watcher.Options{
		DebounceWindow:  cfg.WatchDebounce(),
		EventBufferSize: cfg.Watch.EventBuffer,
		IgnoreFileName:  ignoreFileName(cfg),
		Ignore: func(path string, isDir bool) bool {
			if watcher.HiddenIgnore(path, isDir) {
				return true
			}
			return !isDir && !classifier.Indexable(path, false)
		},
	})
	if err != nil {
		return err
	}

	g.Go(func() error {
		if err := w.Start(ctx, roots...); err != nil && ctx.Err() == nil {
			logger.Warn("watcher stopped", slog.String("error", err.Error()))
		}
		return nil
	})
	g.Go(func() error {
		index.Follow(ctx, client, w.Events(), logger)
		return nil
	})
	g.Go(func() error {
		for err := range w.Errors() {
			logger.Warn("watcher error", slog.String("error", err.Error()))
		}
		return nil
	})
	g.Go(func() error {
		<-ctx.Done()
		return w.Stop()
	})

	logger.Info("watching for changes",
		slog.String("watcher", w.WatcherType()),
		slog.Any("roots", roots))
	return nil
}

func ignoreFileName(cfg *config.Config) string {
	if !cfg.Index.IgnoreFiles {
		return ""
	}
	return scanner.DefaultIgnoreFile
}

func register(ctx context.Context, cfg *config.Config, addr string, logger *slog.Logger) (*registry.Client, registry.Data, error) {
	settings, err := registry.Resolve(cfg.Registry)
	if err != nil {
		return nil, registry.Data{}, err
	}
	data, err := registry.NewData(addr)
	if err != nil {
		return nil, registry.Data{}, err
	}
	client := registry.NewClient(settings, registry.WithLogger(logger))
	if err := client.Register(ctx, data); err != nil {
		return nil, registry.Data{}, err
	}
	return client, data, nil
}
