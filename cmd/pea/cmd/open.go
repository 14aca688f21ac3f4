package cmd

import (
	"log/slog"
	"path/filepath"

	"github.com/Aman-CERP/pea/internal/config"
	"github.com/Aman-CERP/pea/internal/daemon"
	"github.com/Aman-CERP/pea/internal/media"
	"github.com/Aman-CERP/pea/internal/preflight"
	"github.com/Aman-CERP/pea/internal/scanner"
	"github.com/Aman-CERP/pea/internal/store"
)

// newScanner builds the scanner described by the index section of cfg.
func newScanner(cfg *config.Config, onFile func(string)) (*scanner.Scanner, error) {
	classifier, err := media.NewClassifier(media.ClassifierOptions{
		SidecarExtensions: cfg.Index.SidecarExtensions,
		Exclude:           cfg.Index.Exclude,
	})
	if err != nil {
		return nil, err
	}
	return scanner.New(scanner.Options{
		Classifier:     classifier,
		IgnoreFiles:    cfg.Index.IgnoreFiles,
		FollowSymlinks: cfg.Index.FollowSymlinks,
		OnFile:         onFile,
	})
}

// openStore loads the index file named by cfg.
func openStore(cfg *config.Config, logger *slog.Logger, sc *scanner.Scanner, extra ...store.Option) (*store.Store, error) {
	if sc == nil {
		var err error
		if sc, err = newScanner(cfg, nil); err != nil {
			return nil, err
		}
	}
	opts := []store.Option{
		store.WithScanner(sc),
		store.WithLogger(logger),
		store.WithScanWorkers(cfg.Index.ScanWorkers),
	}
	return store.Load(cfg.Index.File, append(opts, extra...)...)
}

// pidFile is the server PID file, kept next to the index file.
func pidFile(cfg *config.Config) *daemon.PIDFile {
	return daemon.NewPIDFile(daemon.DefaultPath(filepath.Dir(cfg.Index.File)))
}

func discardLogger() *slog.Logger {
	return slog.New(slog.DiscardHandler)
}

func preflightTargets(cfg *config.Config) preflight.Targets {
	return preflight.Targets{
		IndexFile:   cfg.Index.File,
		ContentRoot: cfg.Index.ContentRoot,
		ReceivedDir: cfg.Index.ReceivedDir,
		ClientDir:   cfg.Server.ClientDir,
	}
}
