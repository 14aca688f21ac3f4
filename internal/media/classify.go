package media

import (
	"fmt"
	"path/filepath"
	"strings"

	"github.com/bmatcuk/doublestar/v4"
)

// HiddenPrefix marks hidden files and directories.
const HiddenPrefix = "."

// DefaultSidecarExtensions are companion files that are never indexed.
var DefaultSidecarExtensions = []string{"enc"}

// ClassifierOptions configures a Classifier.
type ClassifierOptions struct {
	// SidecarExtensions are bare extensions excluded regardless of anything else.
	SidecarExtensions []string
	// Exclude holds doublestar globs matched against slash paths relative to a root.
	Exclude []string
}

// Classifier decides whether a filesystem entry is indexable.
// It is immutable and safe for concurrent use.
type Classifier struct {
	sidecars map[string]bool
	exclude  []string
}

// NewClassifier validates the globs in opts and builds a Classifier.
func NewClassifier(opts ClassifierOptions) (*Classifier, error) {
	sidecars := opts.SidecarExtensions
	if sidecars == nil {
		sidecars = DefaultSidecarExtensions
	}

	c := &Classifier{sidecars: make(map[string]bool, len(sidecars))}
	for _, ext := range sidecars {
		c.sidecars[strings.ToLower(strings.TrimPrefix(ext, "."))] = true
	}
	for _, pattern := range opts.Exclude {
		if !doublestar.ValidatePattern(pattern) {
			return nil, fmt.Errorf("invalid exclude pattern %q", pattern)
		}
		c.exclude = append(c.exclude, pattern)
	}
	return c, nil
}

// DefaultClassifier excludes hidden names, extensionless files and .enc sidecars.
func DefaultClassifier() *Classifier {
	c, _ := NewClassifier(ClassifierOptions{})
	return c
}

// Indexable applies the name rules to path. Directories are never indexable.
func (c *Classifier) Indexable(path string, isDir bool) bool {
	if isDir {
		return false
	}

	name := filepath.Base(path)
	if name == "" || name == "." || strings.HasPrefix(name, HiddenPrefix) {
		return false
	}

	ext := filepath.Ext(name)
	if ext == "" || ext == name || ext == "." {
		return false
	}
	return !c.sidecars[strings.ToLower(ext[1:])]
}

// IndexableUnder is Indexable plus the exclude globs, evaluated relative to root.
func (c *Classifier) IndexableUnder(root, path string, isDir bool) bool {
	if !c.Indexable(path, isDir) {
		return false
	}
	rel, ok := relSlash(root, path)
	return !ok || !c.matchExclude(rel, false)
}

// SkipDir reports whether the directory at path must not be descended into.
// root itself is never skipped.
func (c *Classifier) SkipDir(root, path string) bool {
	rel, ok := relSlash(root, path)
	if !ok || rel == "." {
		return false
	}
	if strings.HasPrefix(filepath.Base(path), HiddenPrefix) {
		return true
	}
	return c.matchExclude(rel, true)
}

func (c *Classifier) matchExclude(rel string, isDir bool) bool {
	for _, pattern := range c.exclude {
		if ok, _ := doublestar.Match(pattern, rel); ok {
			return true
		}
		if isDir && strings.HasSuffix(pattern, "/**") {
			if ok, _ := doublestar.Match(strings.TrimSuffix(pattern, "/**"), rel); ok {
				return true
			}
		}
	}
	return false
}

func relSlash(root, path string) (string, bool) {
	if root == "" {
		return "", false
	}
	rel, err := filepath.Rel(root, path)
	if err != nil || rel == ".." || strings.HasPrefix(rel, ".."+string(filepath.Separator)) {
		return "", false
	}
	return filepath.ToSlash(rel), true
}
