package index

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"

	"github.com/Aman-CERP/pea/internal/errors"
	"github.com/Aman-CERP/pea/internal/media"
)

// CreateFile stores content in the received-files directory as
// filepath.Base(name) and indexes it. The upload is streamed to a temp file
// by the caller's goroutine; the actor only renames and indexes, so a slow
// upload never blocks other requests. When indexing fails, a file that did
// not exist before is removed again.
func (c *Client) CreateFile(ctx context.Context, name string, content io.Reader) (media.FileMetadata, error) {
	base := filepath.Base(name)
	if base == "." || base == ".." || base == string(filepath.Separator) {
		return media.FileMetadata{}, errors.ValidationError("invalid file name "+name, nil)
	}

	dir := c.actor.st.receivedDir
	if dir == "" {
		return media.FileMetadata{}, errors.New(errors.ErrCodeCreateFile, "no received-files directory configured", nil)
	}
	tmp, err := writeTemp(dir, content)
	if err != nil {
		return media.FileMetadata{}, errors.New(errors.ErrCodeCreateFile, "failed to create "+base, err).
			WithDetail("dir", dir)
	}

	rec, handed, err := send(ctx, c, OpCreateFile, true, func(_ context.Context, st *state) (media.FileMetadata, error) {
		return st.placeFile(tmp, filepath.Join(dir, base))
	})
	if err != nil && !handed {
		// once handed over, the actor owns tmp and cleans it up
		_ = os.Remove(tmp)
	}
	return rec, err
}

func writeTemp(dir string, content io.Reader) (string, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return "", err
	}
	f, err := os.CreateTemp(dir, ".upload-*")
	if err != nil {
		return "", err
	}
	if _, err := io.Copy(f, content); err != nil {
		_ = f.Close()
		_ = os.Remove(f.Name())
		return "", err
	}
	if err := f.Close(); err != nil {
		_ = os.Remove(f.Name())
		return "", err
	}
	return f.Name(), nil
}

// placeFile moves tmp to target and indexes it.
func (st *state) placeFile(tmp, target string) (media.FileMetadata, error) {
	_, statErr := os.Lstat(target)
	existed := statErr == nil

	if err := os.Rename(tmp, target); err != nil {
		_ = os.Remove(tmp)
		return media.FileMetadata{}, errors.New(errors.ErrCodeCreateFile, fmt.Sprintf("failed to create %s", target), err)
	}

	rec, err := st.store.AddFile(target)
	if err != nil {
		if !existed {
			if rmErr := os.Remove(target); rmErr != nil {
				st.logger.Warn("failed to remove rejected upload",
					slog.String("path", target),
					slog.String("error", rmErr.Error()))
			}
		}
		return media.FileMetadata{}, err
	}

	st.logger.Info("file received",
		slog.String("path", target),
		slog.Uint64("id", rec.ID))
	return rec, nil
}
