package index

import (
	"context"
	"log/slog"

	"github.com/Aman-CERP/pea/internal/errors"
	"github.com/Aman-CERP/pea/internal/metrics"
	"github.com/Aman-CERP/pea/internal/watcher"
)

// Follow applies watcher batches to the index until batches closes or ctx is
// done. Deletes and renames remove records (a directory removes everything
// below it). Created or modified files are added. A new directory or a
// changed ignore file triggers one Reconcile for the batch.
func Follow(ctx context.Context, c *Client, batches <-chan []watcher.FileEvent, logger *slog.Logger) {
	if logger == nil {
		logger = slog.Default()
	}
	for {
		select {
		case <-ctx.Done():
			return
		case batch, ok := <-batches:
			if !ok {
				return
			}
			if err := apply(ctx, c, batch, logger); err != nil {
				if errors.Is(err, errors.ErrUnavailable) || ctx.Err() != nil {
					return
				}
				logger.Warn("applying file changes failed", slog.String("error", err.Error()))
			}
		}
	}
}

func apply(ctx context.Context, c *Client, batch []watcher.FileEvent, logger *slog.Logger) error {
	reconcile := false
	for _, ev := range batch {
		switch {
		case ev.Operation == watcher.OpIgnoreChange:
			reconcile = true

		case ev.Operation == watcher.OpDelete || ev.Operation == watcher.OpRename:
			n, err := c.Remove(ctx, ev.Path)
			if err != nil {
				return err
			}
			if n > 0 {
				metrics.RecordWatchEvent("remove")
				logger.Debug("removed from index", slog.String("path", ev.Path), slog.Int("files", n))
			}

		case ev.IsDir:
			reconcile = true

		default:
			_, err := c.AddFile(ctx, ev.Path)
			switch {
			case err == nil:
				metrics.RecordWatchEvent("add")
			case errors.Is(err, errors.ErrNotIndexable), errors.Is(err, errors.ErrPathDoesNotExist):
				// hidden, sidecar or already gone again
			default:
				return err
			}
		}
	}

	if !reconcile {
		return nil
	}
	res, err := c.Reconcile(ctx)
	if err != nil {
		return err
	}
	metrics.RecordWatchEvent("reconcile")
	logger.Info("index reconciled after file changes",
		slog.Int("added", res.Added),
		slog.Int("removed", res.Removed))
	return nil
}
