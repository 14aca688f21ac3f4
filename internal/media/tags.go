package media

import (
	"path/filepath"
	"strings"
)

// Tags returns the directory names strictly between root and path, ordered
// from root to leaf. A direct child of root, or a path outside root, has no
// tags. The result is never nil.
func Tags(root, path string) []string {
	rel, err := filepath.Rel(filepath.Clean(root), filepath.Clean(path))
	if err != nil {
		return []string{}
	}

	dir := filepath.Dir(rel)
	if dir == "." || dir == ".." || strings.HasPrefix(dir, ".."+string(filepath.Separator)) {
		return []string{}
	}
	return strings.Split(dir, string(filepath.Separator))
}
