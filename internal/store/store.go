// Package store holds the file index: an in-memory map of records keyed by
// id, secondary indexes for tag, type and path lookups, and the JSON file
// that persists it.
//
// A Store is not safe for concurrent use. At runtime it is owned by a single
// index.Actor goroutine.
package store

import (
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	"github.com/RoaringBitmap/roaring/v2/roaring64"
	"github.com/armon/go-radix"

	"github.com/Aman-CERP/pea/internal/errors"
	"github.com/Aman-CERP/pea/internal/media"
	"github.com/Aman-CERP/pea/internal/scanner"
)

// Listener observes committed changes. It runs on the committing goroutine
// after the index file has been written.
type Listener interface {
	OnCommit(added []media.FileMetadata, removed []uint64)
}

// Option configures a Store.
type Option func(*Store)

// WithScanner sets the scanner used by AddDirectory, AddFile and Reconcile.
func WithScanner(s *scanner.Scanner) Option {
	return func(st *Store) { st.scanner = s }
}

// WithLogger sets the logger. Defaults to slog.Default().
func WithLogger(l *slog.Logger) Option {
	return func(st *Store) { st.logger = l }
}

// WithScanWorkers bounds concurrent root rescans in Reconcile.
func WithScanWorkers(n int) Option {
	return func(st *Store) {
		if n > 0 {
			st.scanWorkers = n
		}
	}
}

// WithoutLock skips the cross-process lock. Used for read-only inspection.
func WithoutLock() Option {
	return func(st *Store) { st.lock = nil }
}

// Store is the file index.
type Store struct {
	path        string
	lock        *FileLock
	scanner     *scanner.Scanner
	logger      *slog.Logger
	listener    Listener
	scanWorkers int

	// write persists encoded bytes; replaced in tests to inject failures
	write func(path string, data []byte) error

	files  map[uint64]media.FileMetadata
	roots  []string
	byTag  map[string]*roaring64.Bitmap
	byType map[string]*roaring64.Bitmap
	paths  *radix.Tree
}

// Load opens the index at path. A missing file yields an empty store. A
// malformed file is moved aside to <path>.corrupt and also yields an empty
// store. The store holds <path>.lock until Close.
func Load(path string, opts ...Option) (*Store, error) {
	absPath, err := filepath.Abs(path)
	if err != nil {
		return nil, errors.New(errors.ErrCodeInvalidPath, "invalid index path "+path, err)
	}

	s := &Store{
		path:        absPath,
		lock:        NewFileLock(absPath),
		logger:      slog.Default(),
		scanWorkers: 4,
		write:       writeAtomic,
	}
	for _, opt := range opts {
		opt(s)
	}
	if s.scanner == nil {
		sc, err := scanner.New(scanner.Options{})
		if err != nil {
			return nil, err
		}
		s.scanner = sc
	}
	s.reset()

	if s.lock != nil {
		acquired, err := s.lock.TryLock()
		if err != nil {
			return nil, errors.New(errors.ErrCodeIndexLocked, "failed to lock index "+absPath, err)
		}
		if !acquired {
			return nil, errors.New(errors.ErrCodeIndexLocked, "index is in use by another process: "+absPath, nil).
				WithSuggestion("Stop the other pea process or use a different index file")
		}
	}

	if err := s.read(); err != nil {
		_ = s.Close()
		return nil, err
	}
	return s, nil
}

func (s *Store) read() error {
	data, err := os.ReadFile(s.path)
	if os.IsNotExist(err) {
		s.logger.Info("index file not found, starting empty", slog.String("path", s.path))
		return nil
	}
	if err != nil {
		return errors.New(errors.ErrCodeFilePermission, "failed to read index "+s.path, err)
	}

	doc, err := decode(data)
	if err != nil {
		aside := s.path + ".corrupt"
		s.logger.Warn("index file is malformed, starting empty",
			slog.String("path", s.path),
			slog.String("moved_to", aside),
			slog.String("error", err.Error()))
		if renameErr := os.Rename(s.path, aside); renameErr != nil {
			s.logger.Warn("failed to move malformed index aside", slog.String("error", renameErr.Error()))
		}
		return nil
	}

	for _, root := range doc.Roots {
		s.addRoot(root)
	}
	for _, f := range doc.Files {
		f = f.Normalize()
		if existing, ok := s.files[f.ID]; ok {
			s.logger.Warn("dropping duplicate id from index file",
				slog.Uint64("id", f.ID),
				slog.String("path", f.Path),
				slog.String("kept", existing.Path))
			continue
		}
		if id, ok := s.pathID(f.Path); ok {
			s.logger.Warn("dropping duplicate path from index file",
				slog.Uint64("id", f.ID),
				slog.Uint64("kept", id),
				slog.String("path", f.Path))
			continue
		}
		s.files[f.ID] = f
		s.indexAdd(f)
	}

	s.logger.Info("index loaded",
		slog.String("path", s.path),
		slog.Int("files", len(s.files)),
		slog.Int("roots", len(s.roots)))
	return nil
}

// SetListener registers l to observe commits. Nil removes it.
func (s *Store) SetListener(l Listener) {
	s.listener = l
}

// Path returns the index file path.
func (s *Store) Path() string {
	return s.path
}

// Scanner returns the scanner the store indexes with. Scanners are safe for
// concurrent use, unlike the Store.
func (s *Store) Scanner() *scanner.Scanner {
	return s.scanner
}

// ScanWorkers is the bound on concurrent root rescans.
func (s *Store) ScanWorkers() int {
	return s.scanWorkers
}

// Close releases the index lock.
func (s *Store) Close() error {
	if s.lock == nil {
		return nil
	}
	return s.lock.Unlock()
}

func (s *Store) reset() {
	s.files = make(map[uint64]media.FileMetadata)
	s.roots = nil
	s.byTag = make(map[string]*roaring64.Bitmap)
	s.byType = make(map[string]*roaring64.Bitmap)
	s.paths = radix.New()
}

// change is a validated mutation waiting to be committed.
type change struct {
	put    []media.FileMetadata
	remove []uint64
	roots  []string
}

func (c *change) empty() bool {
	return len(c.put) == 0 && len(c.remove) == 0 && len(c.roots) == 0
}

// commit writes the index as it will be after c, and only then applies c in
// memory. On a write failure memory is untouched and DBError is returned.
func (s *Store) commit(c *change) error {
	if c.empty() {
		return nil
	}

	staged := make(map[uint64]media.FileMetadata, len(s.files)+len(c.put))
	for id, f := range s.files {
		staged[id] = f
	}
	for _, id := range c.remove {
		delete(staged, id)
	}
	for _, f := range c.put {
		staged[f.ID] = f
	}
	roots := s.roots
	for _, r := range c.roots {
		if !containsString(roots, r) {
			roots = append(append([]string(nil), roots...), r)
		}
	}

	data, err := encode(roots, staged)
	if err != nil {
		return errors.DBError(s.path, err)
	}
	if err := s.write(s.path, data); err != nil {
		s.logger.Error("index write failed", slog.String("path", s.path), slog.String("error", err.Error()))
		return errors.DBError(s.path, err)
	}

	removed := make([]uint64, 0, len(c.remove))
	for _, id := range c.remove {
		if f, ok := s.files[id]; ok {
			s.indexRemove(f)
			delete(s.files, id)
			removed = append(removed, id)
		}
	}
	for _, f := range c.put {
		if old, ok := s.files[f.ID]; ok {
			s.indexRemove(old)
		}
		s.files[f.ID] = f
		s.indexAdd(f)
	}
	for _, r := range c.roots {
		s.addRoot(r)
	}

	s.logger.Debug("index committed",
		slog.Int("put", len(c.put)),
		slog.Int("removed", len(removed)),
		slog.Int("files", len(s.files)))

	if s.listener != nil {
		s.listener.OnCommit(c.put, removed)
	}
	return nil
}

func (s *Store) indexAdd(f media.FileMetadata) {
	for _, tag := range f.Tags {
		bitmapFor(s.byTag, tag).Add(f.ID)
	}
	bitmapFor(s.byType, f.Type).Add(f.ID)
	s.paths.Insert(f.Path, f.ID)
}

func (s *Store) indexRemove(f media.FileMetadata) {
	for _, tag := range f.Tags {
		removeFrom(s.byTag, tag, f.ID)
	}
	removeFrom(s.byType, f.Type, f.ID)
	if id, ok := s.pathID(f.Path); ok && id == f.ID {
		s.paths.Delete(f.Path)
	}
}

func (s *Store) pathID(path string) (uint64, bool) {
	v, ok := s.paths.Get(path)
	if !ok {
		return 0, false
	}
	return v.(uint64), true
}

// idsUnder returns the ids of path itself and of every record below it.
func (s *Store) idsUnder(path string) []uint64 {
	var ids []uint64
	if id, ok := s.pathID(path); ok {
		ids = append(ids, id)
	}
	prefix := strings.TrimSuffix(path, string(filepath.Separator)) + string(filepath.Separator)
	s.paths.WalkPrefix(prefix, func(_ string, v interface{}) bool {
		ids = append(ids, v.(uint64))
		return false
	})
	return ids
}

func (s *Store) addRoot(root string) {
	root = filepath.Clean(root)
	if !containsString(s.roots, root) {
		s.roots = append(s.roots, root)
	}
}

// rootFor returns the longest registered root containing path, or "".
func (s *Store) rootFor(path string) string {
	best := ""
	for _, root := range s.roots {
		if isUnder(root, path) && len(root) > len(best) {
			best = root
		}
	}
	return best
}

func isUnder(root, path string) bool {
	rel, err := filepath.Rel(root, path)
	if err != nil || rel == "." {
		return false
	}
	return rel != ".." && !strings.HasPrefix(rel, ".."+string(filepath.Separator))
}

func bitmapFor(m map[string]*roaring64.Bitmap, key string) *roaring64.Bitmap {
	bm, ok := m[key]
	if !ok {
		bm = roaring64.New()
		m[key] = bm
	}
	return bm
}

func removeFrom(m map[string]*roaring64.Bitmap, key string, id uint64) {
	if bm, ok := m[key]; ok {
		bm.Remove(id)
		if bm.IsEmpty() {
			delete(m, key)
		}
	}
}

func containsString(list []string, s string) bool {
	for _, v := range list {
		if v == s {
			return true
		}
	}
	return false
}
