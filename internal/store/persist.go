package store

import (
	"bytes"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sort"

	"github.com/Aman-CERP/pea/internal/media"
)

// FormatVersion is the envelope version written by this package.
const FormatVersion = 1

// document is the persisted envelope.
type document struct {
	Version int                  `json:"version"`
	Roots   []string             `json:"roots"`
	Files   []media.FileMetadata `json:"files"`
}

// decode parses either the envelope or a legacy bare array of records.
func decode(data []byte) (*document, error) {
	trimmed := bytes.TrimSpace(data)
	if len(trimmed) == 0 {
		return &document{Version: FormatVersion}, nil
	}

	var doc document
	switch trimmed[0] {
	case '[':
		if err := json.Unmarshal(trimmed, &doc.Files); err != nil {
			return nil, err
		}
		doc.Version = FormatVersion
	case '{':
		if err := json.Unmarshal(trimmed, &doc); err != nil {
			return nil, err
		}
		if doc.Version > FormatVersion {
			return nil, fmt.Errorf("unsupported index version %d", doc.Version)
		}
	default:
		return nil, fmt.Errorf("unexpected index content")
	}
	return &doc, nil
}

// encode renders files sorted by path so that unchanged indexes produce
// identical bytes.
func encode(roots []string, files map[uint64]media.FileMetadata) ([]byte, error) {
	doc := document{
		Version: FormatVersion,
		Roots:   append([]string{}, roots...),
		Files:   make([]media.FileMetadata, 0, len(files)),
	}
	for _, f := range files {
		doc.Files = append(doc.Files, f.Normalize())
	}
	sort.Slice(doc.Files, func(i, j int) bool { return doc.Files[i].Path < doc.Files[j].Path })

	return json.MarshalIndent(doc, "", "  ")
}

// writeAtomic writes data to a synced temp file next to path and renames it
// over path, creating parent directories.
func writeAtomic(path string, data []byte) error {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("failed to create index directory: %w", err)
	}

	f, err := os.CreateTemp(dir, filepath.Base(path)+".tmp-*")
	if err != nil {
		return fmt.Errorf("failed to create temp index: %w", err)
	}
	tmpPath := f.Name()
	cleanup := func() { _ = os.Remove(tmpPath) }

	if _, err := f.Write(data); err != nil {
		_ = f.Close()
		cleanup()
		return fmt.Errorf("failed to write index: %w", err)
	}
	if err := f.Sync(); err != nil {
		_ = f.Close()
		cleanup()
		return fmt.Errorf("failed to sync index: %w", err)
	}
	if err := f.Close(); err != nil {
		cleanup()
		return fmt.Errorf("failed to close index: %w", err)
	}
	if err := os.Chmod(tmpPath, 0o644); err != nil {
		cleanup()
		return fmt.Errorf("failed to set index permissions: %w", err)
	}
	if err := os.Rename(tmpPath, path); err != nil {
		cleanup()
		return fmt.Errorf("failed to rename index: %w", err)
	}
	return nil
}
