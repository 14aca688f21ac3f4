package store

import (
	"context"
	"log/slog"
	"os"
	"path/filepath"

	"github.com/sourcegraph/conc/pool"

	"github.com/Aman-CERP/pea/internal/errors"
	"github.com/Aman-CERP/pea/internal/media"
	"github.com/Aman-CERP/pea/internal/scanner"
)

// AddResult reports the outcome of inserting a batch of records.
type AddResult struct {
	Root      string  `json:"root,omitempty"`
	Added     int     `json:"added"`
	Replaced  int     `json:"replaced"`
	Unchanged int     `json:"unchanged"`
	Conflicts []error `json:"-"`
}

// ReconcileResult reports what Reconcile changed.
type ReconcileResult struct {
	Added        int      `json:"added"`
	Replaced     int      `json:"replaced"`
	Removed      int      `json:"removed"`
	MissingRoots []string `json:"missing_roots,omitempty"`
	Conflicts    []error  `json:"-"`
}

// AddDirectory registers root, scans it and inserts every result. Records
// whose id collides with a different path are rejected individually and
// reported in Conflicts. The rest is committed in one write.
func (s *Store) AddDirectory(ctx context.Context, root string) (*AddResult, error) {
	absRoot, err := scanner.ResolveRoot(root)
	if err != nil {
		return nil, err
	}

	records, err := s.scanner.Scan(ctx, absRoot)
	if err != nil {
		return nil, err
	}
	return s.CommitDirectory(absRoot, records)
}

// CommitDirectory registers absRoot and inserts records produced by a scan
// of it. The scan may have run on another goroutine; records are planned
// against the index as it is now.
func (s *Store) CommitDirectory(absRoot string, records []media.FileMetadata) (*AddResult, error) {
	p := s.plan(records, nil)
	if !containsString(s.roots, absRoot) {
		p.roots = []string{absRoot}
	}
	if err := s.commit(&p.change); err != nil {
		return nil, err
	}

	res := &AddResult{
		Root:      absRoot,
		Added:     p.added,
		Replaced:  p.replaced,
		Unchanged: p.unchanged,
		Conflicts: p.conflicts,
	}

	s.logger.Info("directory indexed",
		slog.String("root", absRoot),
		slog.Int("scanned", len(records)),
		slog.Int("added", res.Added),
		slog.Int("replaced", res.Replaced),
		slog.Int("conflicts", len(res.Conflicts)))
	return res, nil
}

// AddFile indexes one file. Its tags derive from the longest registered root
// that contains it, or are empty when no root does.
func (s *Store) AddFile(path string) (media.FileMetadata, error) {
	absPath, err := filepath.Abs(path)
	if err != nil {
		return media.FileMetadata{}, errors.PathDoesNotExist(path, err)
	}
	info, err := os.Stat(absPath)
	if err != nil {
		return media.FileMetadata{}, errors.PathDoesNotExist(absPath, err)
	}
	if info.IsDir() {
		return media.FileMetadata{}, errors.PathDoesNotExist(absPath, nil).
			WithSuggestion("Use AddDirectory for directories")
	}

	root := s.rootFor(absPath)
	if !s.scanner.Accept(root, absPath) {
		return media.FileMetadata{}, errors.New(errors.ErrCodeNotIndexable, "not indexable: "+absPath, nil).
			WithDetail("path", absPath)
	}

	rec := media.NewFileMetadata(root, absPath)
	p := s.plan([]media.FileMetadata{rec}, nil)
	if len(p.conflicts) > 0 {
		return media.FileMetadata{}, p.conflicts[0]
	}
	if err := s.commit(&p.change); err != nil {
		return media.FileMetadata{}, err
	}
	return s.files[rec.ID], nil
}

// Remove drops the record at path, or every record below path when it names
// a directory. It returns the number of records removed.
func (s *Store) Remove(path string) (int, error) {
	absPath, err := filepath.Abs(path)
	if err != nil {
		return 0, errors.ValidationError("invalid path "+path, err)
	}

	ids := s.idsUnder(absPath)
	if len(ids) == 0 {
		return 0, nil
	}
	if err := s.commit(&change{remove: ids}); err != nil {
		return 0, err
	}
	return len(ids), nil
}

// RemoveID drops the record with the given id.
func (s *Store) RemoveID(id uint64) error {
	if _, ok := s.files[id]; !ok {
		return errors.IDInvalid(id)
	}
	return s.commit(&change{remove: []uint64{id}})
}

// RootScan is the outcome of rescanning one registered root.
type RootScan struct {
	Root    string
	Files   []media.FileMetadata
	Missing bool
}

// ScanRoots rescans roots with at most workers concurrent walks. It reads
// no index state, so it may run outside the goroutine that owns the Store.
// A root that no longer exists is reported as Missing.
func ScanRoots(ctx context.Context, sc *scanner.Scanner, roots []string, workers int) ([]RootScan, error) {
	// ignore files may have changed since they were cached
	sc.InvalidateIgnoreCache()

	if workers <= 0 {
		workers = 1
	}
	sp := pool.NewWithResults[RootScan]().WithContext(ctx).WithMaxGoroutines(workers)
	for _, root := range roots {
		sp.Go(func(ctx context.Context) (RootScan, error) {
			files, err := sc.Scan(ctx, root)
			if errors.Is(err, errors.ErrPathDoesNotExist) {
				return RootScan{Root: root, Missing: true}, nil
			}
			if err != nil {
				return RootScan{}, err
			}
			return RootScan{Root: root, Files: files}, nil
		})
	}
	return sp.Wait()
}

// Reconcile rescans every registered root, removes records whose file is
// gone or no longer indexable, and inserts or refreshes the rest. Records
// outside every root are kept while their file still exists.
func (s *Store) Reconcile(ctx context.Context) (*ReconcileResult, error) {
	scans, err := ScanRoots(ctx, s.scanner, s.Roots(), s.scanWorkers)
	if err != nil {
		return nil, err
	}
	return s.CommitReconcile(scans)
}

// CommitReconcile applies rescans produced by ScanRoots. Records under a
// root that is registered but absent from scans are left alone, so a root
// added after the scans were taken keeps its files.
func (s *Store) CommitReconcile(scans []RootScan) (*ReconcileResult, error) {
	res := &ReconcileResult{}
	scanned := make(map[string]bool, len(scans))
	fresh := make(map[string]media.FileMetadata)
	owner := make(map[string]int)
	for _, sc := range scans {
		scanned[sc.Root] = true
		if sc.Missing {
			res.MissingRoots = append(res.MissingRoots, sc.Root)
			s.logger.Warn("scan root is missing", slog.String("root", sc.Root))
			continue
		}
		for _, f := range sc.Files {
			// nested roots: the deepest root owns the record
			if l, ok := owner[f.Path]; !ok || len(sc.Root) > l {
				fresh[f.Path] = f
				owner[f.Path] = len(sc.Root)
			}
		}
	}

	gone := make(map[uint64]bool)
	for id, f := range s.files {
		if _, ok := fresh[f.Path]; ok {
			continue
		}
		root := s.rootFor(f.Path)
		if root != "" && !scanned[root] {
			continue
		}
		if root == "" && regularFile(f.Path) && s.scanner.Accept("", f.Path) {
			continue
		}
		gone[id] = true
	}

	records := make([]media.FileMetadata, 0, len(fresh))
	for _, f := range fresh {
		records = append(records, f)
	}
	sortByPath(records)

	p := s.plan(records, gone)
	for id := range gone {
		p.remove = append(p.remove, id)
	}
	if err := s.commit(&p.change); err != nil {
		return nil, err
	}
	res.Added = p.added
	res.Replaced = p.replaced
	res.Removed = len(gone)
	res.Conflicts = p.conflicts

	s.logger.Info("index reconciled",
		slog.Int("added", res.Added),
		slog.Int("replaced", res.Replaced),
		slog.Int("removed", res.Removed),
		slog.Int("conflicts", len(res.Conflicts)))
	return res, nil
}

// planned is a change plus what it will do.
type planned struct {
	change
	added     int
	replaced  int
	unchanged int
	conflicts []error
}

// plan validates records against the index and each other. Re-inserting a
// path replaces its record; an id already owned by another path is a
// conflict. Records equal to what is stored are skipped. Ids in gone are
// about to be removed and count as absent.
func (s *Store) plan(records []media.FileMetadata, gone map[uint64]bool) *planned {
	p := &planned{}
	batch := make(map[uint64]string, len(records))

	for _, r := range records {
		r = r.Normalize()

		if other, ok := batch[r.ID]; ok {
			if other != r.Path {
				p.conflicts = append(p.conflicts, s.conflict(r, other))
			}
			continue
		}

		if existing, ok := s.files[r.ID]; ok && !gone[r.ID] {
			if existing.Path != r.Path {
				p.conflicts = append(p.conflicts, s.conflict(r, existing.Path))
				continue
			}
			batch[r.ID] = r.Path
			if existing.Equal(r) {
				p.unchanged++
				continue
			}
			p.put = append(p.put, r)
			p.replaced++
			continue
		}

		// same path stored under an older id
		if oldID, ok := s.pathID(r.Path); ok && !gone[oldID] {
			p.remove = append(p.remove, oldID)
			p.replaced++
		} else {
			p.added++
		}
		batch[r.ID] = r.Path
		p.put = append(p.put, r)
	}
	return p
}

func (s *Store) conflict(r media.FileMetadata, existing string) error {
	s.logger.Warn("duplicate id rejected",
		slog.Uint64("id", r.ID),
		slog.String("path", r.Path),
		slog.String("existing", existing))
	return errors.DuplicateID(r.ID, r.Path, existing)
}

func regularFile(path string) bool {
	info, err := os.Stat(path)
	return err == nil && info.Mode().IsRegular()
}
