package media

import (
	"bytes"
	"encoding/json"
	"fmt"
	"path/filepath"
	"slices"
	"strconv"
	"strings"
)

// FileMetadata is one indexed file.
type FileMetadata struct {
	Name string   `json:"name"`
	ID   uint64   `json:"id"`
	Type string   `json:"ty"`
	Path string   `json:"path"`
	Tags []string `json:"tags"`
}

// NewFileMetadata builds the record for path found under root.
// path must already be accepted by a Classifier.
func NewFileMetadata(root, path string) FileMetadata {
	path = filepath.Clean(path)
	return FileMetadata{
		Name: filepath.Base(path),
		ID:   ID(path),
		Type: TypeOf(path),
		Path: path,
		Tags: Tags(root, path),
	}
}

// TypeOf returns the lowercase extension of path without the dot.
func TypeOf(path string) string {
	return strings.ToLower(strings.TrimPrefix(filepath.Ext(path), "."))
}

// HasTags reports whether f carries every tag in want.
func (f FileMetadata) HasTags(want []string) bool {
	for _, tag := range want {
		if !slices.Contains(f.Tags, tag) {
			return false
		}
	}
	return true
}

// Equal compares two records, treating nil and empty tags alike.
func (f FileMetadata) Equal(other FileMetadata) bool {
	return f.Name == other.Name &&
		f.ID == other.ID &&
		f.Type == other.Type &&
		f.Path == other.Path &&
		slices.Equal(f.Tags, other.Tags)
}

// Normalize returns f with non-nil tags.
func (f FileMetadata) Normalize() FileMetadata {
	if f.Tags == nil {
		f.Tags = []string{}
	}
	return f
}

// UnmarshalJSON accepts the id either as a JSON number or as a decimal
// string. Records are always written with a numeric id.
func (f *FileMetadata) UnmarshalJSON(data []byte) error {
	type plain FileMetadata
	var raw struct {
		plain
		ID json.RawMessage `json:"id"`
	}
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}

	id, err := parseID(raw.ID)
	if err != nil {
		return err
	}
	*f = FileMetadata(raw.plain)
	f.ID = id
	return nil
}

func parseID(raw json.RawMessage) (uint64, error) {
	raw = bytes.TrimSpace(raw)
	if len(raw) == 0 || bytes.Equal(raw, []byte("null")) {
		return 0, nil
	}
	text := string(raw)
	if raw[0] == '"' {
		if err := json.Unmarshal(raw, &text); err != nil {
			return 0, err
		}
	}
	id, err := strconv.ParseUint(text, 10, 64)
	if err != nil {
		return 0, fmt.Errorf("invalid id %s: %w", raw, err)
	}
	return id, nil
}
