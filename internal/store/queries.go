package store

import (
	"sort"

	"github.com/RoaringBitmap/roaring/v2/roaring64"

	"github.com/Aman-CERP/pea/internal/errors"
	"github.com/Aman-CERP/pea/internal/media"
)

// Stats summarizes the index.
type Stats struct {
	Path  string         `json:"path"`
	Files int            `json:"files"`
	Tags  int            `json:"tags"`
	Types map[string]int `json:"types"`
	Roots []string       `json:"roots"`
}

// AllFiles returns every record, ordered by path.
func (s *Store) AllFiles() []media.FileMetadata {
	out := make([]media.FileMetadata, 0, len(s.files))
	for _, f := range s.files {
		out = append(out, f)
	}
	sortByPath(out)
	return out
}

// AllTags returns every tag used by at least one record, sorted.
func (s *Store) AllTags() []string {
	tags := make([]string, 0, len(s.byTag))
	for tag := range s.byTag {
		tags = append(tags, tag)
	}
	sort.Strings(tags)
	return tags
}

// FilesOfType returns records whose type equals ty exactly.
func (s *Store) FilesOfType(ty string) []media.FileMetadata {
	bm, ok := s.byType[ty]
	if !ok {
		return []media.FileMetadata{}
	}
	return s.collect(bm)
}

// FilesOfTags returns records carrying every tag in tags. No tags matches
// every record.
func (s *Store) FilesOfTags(tags []string) []media.FileMetadata {
	return s.FilesOfTypeAndTags("", tags)
}

// FilesOfTypeAndTags combines both filters. An empty ty is ignored.
func (s *Store) FilesOfTypeAndTags(ty string, tags []string) []media.FileMetadata {
	var acc *roaring64.Bitmap
	if ty != "" {
		bm, ok := s.byType[ty]
		if !ok {
			return []media.FileMetadata{}
		}
		acc = bm.Clone()
	}
	for _, tag := range tags {
		bm, ok := s.byTag[tag]
		if !ok {
			return []media.FileMetadata{}
		}
		if acc == nil {
			acc = bm.Clone()
		} else {
			acc.And(bm)
		}
	}
	if acc == nil {
		return s.AllFiles()
	}
	return s.collect(acc)
}

// FilePath returns the path of id, or IdInvalid.
func (s *Store) FilePath(id uint64) (string, error) {
	f, ok := s.files[id]
	if !ok {
		return "", errors.IDInvalid(id)
	}
	return f.Path, nil
}

// Get returns the record for id.
func (s *Store) Get(id uint64) (media.FileMetadata, bool) {
	f, ok := s.files[id]
	return f, ok
}

// Roots returns the registered scan roots.
func (s *Store) Roots() []string {
	return append([]string{}, s.roots...)
}

// Len returns the number of records.
func (s *Store) Len() int {
	return len(s.files)
}

// Stats returns counts by type along with totals.
func (s *Store) Stats() Stats {
	types := make(map[string]int, len(s.byType))
	for ty, bm := range s.byType {
		types[ty] = int(bm.GetCardinality())
	}
	return Stats{
		Path:  s.path,
		Files: len(s.files),
		Tags:  len(s.byTag),
		Types: types,
		Roots: s.Roots(),
	}
}

func (s *Store) collect(bm *roaring64.Bitmap) []media.FileMetadata {
	out := make([]media.FileMetadata, 0, bm.GetCardinality())
	it := bm.Iterator()
	for it.HasNext() {
		if f, ok := s.files[it.Next()]; ok {
			out = append(out, f)
		}
	}
	sortByPath(out)
	return out
}

func sortByPath(files []media.FileMetadata) {
	sort.Slice(files, func(i, j int) bool { return files[i].Path < files[j].Path })
}
