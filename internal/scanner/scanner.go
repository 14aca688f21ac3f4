// Package scanner walks media trees and produces index records.
// It honors the media classifier, hidden directories, and per-directory
// .peaignore files written in gitignore syntax.
package scanner

import (
	"context"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
	"sync"

	lru "github.com/hashicorp/golang-lru/v2"
	ignore "github.com/sabhiram/go-gitignore"

	"github.com/Aman-CERP/pea/internal/errors"
	"github.com/Aman-CERP/pea/internal/media"
)

// DefaultIgnoreFile is the per-directory ignore file name.
const DefaultIgnoreFile = ".peaignore"

// ignoreCacheSize bounds the number of cached matchers in long-running servers.
const ignoreCacheSize = 1000

// Options configures a Scanner.
type Options struct {
	// Classifier decides indexability. Nil uses media.DefaultClassifier.
	Classifier *media.Classifier

	// IgnoreFiles enables per-directory ignore files.
	IgnoreFiles bool
	// IgnoreFileName overrides DefaultIgnoreFile.
	IgnoreFileName string

	// FollowSymlinks indexes symlinks that point at regular files.
	FollowSymlinks bool

	// OnFile, when set, is called from the walking goroutine for every
	// accepted file.
	OnFile func(path string)
}

// Result is one streamed scan outcome.
type Result struct {
	File media.FileMetadata
	Err  error
}

// Scanner discovers indexable files. It is safe for concurrent use.
type Scanner struct {
	opts Options

	// nil entries record directories without an ignore file
	ignoreCache *lru.Cache[string, *ignore.GitIgnore]
	cacheMu     sync.RWMutex
}

// New creates a Scanner.
func New(opts Options) (*Scanner, error) {
	if opts.Classifier == nil {
		opts.Classifier = media.DefaultClassifier()
	}
	if opts.IgnoreFileName == "" {
		opts.IgnoreFileName = DefaultIgnoreFile
	}

	cache, err := lru.New[string, *ignore.GitIgnore](ignoreCacheSize)
	if err != nil {
		return nil, fmt.Errorf("failed to create ignore cache: %w", err)
	}
	return &Scanner{opts: opts, ignoreCache: cache}, nil
}

// Classifier returns the classifier in use.
func (s *Scanner) Classifier() *media.Classifier {
	return s.opts.Classifier
}

// Scan collects every record under root. Tags are relative to root.
func (s *Scanner) Scan(ctx context.Context, root string) ([]media.FileMetadata, error) {
	results, err := s.Stream(ctx, root)
	if err != nil {
		return nil, err
	}

	var files []media.FileMetadata
	var scanErr error
	for r := range results {
		if r.Err != nil {
			scanErr = r.Err
			continue
		}
		files = append(files, r.File)
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if scanErr != nil {
		return nil, scanErr
	}
	return files, nil
}

// Stream walks root in the background and sends each record as it is found.
// The channel is closed when the walk finishes or ctx is done.
func (s *Scanner) Stream(ctx context.Context, root string) (<-chan Result, error) {
	absRoot, err := ResolveRoot(root)
	if err != nil {
		return nil, err
	}

	results := make(chan Result, 64)
	go func() {
		defer close(results)
		s.walk(ctx, absRoot, results)
	}()
	return results, nil
}

// ResolveRoot returns the absolute, cleaned form of root, or PathDoesNotExist
// when root is missing or not a directory.
func ResolveRoot(root string) (string, error) {
	absRoot, err := filepath.Abs(root)
	if err != nil {
		return "", errors.PathDoesNotExist(root, err)
	}
	info, err := os.Stat(absRoot)
	if err != nil {
		return "", errors.PathDoesNotExist(absRoot, err)
	}
	if !info.IsDir() {
		return "", errors.PathDoesNotExist(absRoot, fmt.Errorf("not a directory"))
	}
	return absRoot, nil
}

func (s *Scanner) walk(ctx context.Context, absRoot string, results chan<- Result) {
	err := filepath.WalkDir(absRoot, func(path string, d fs.DirEntry, err error) error {
		if ctxErr := ctx.Err(); ctxErr != nil {
			return ctxErr
		}
		if err != nil {
			// unreadable entries are skipped, an unreadable root is not
			if path == absRoot {
				return err
			}
			if d != nil && d.IsDir() {
				return filepath.SkipDir
			}
			return nil
		}

		if d.IsDir() {
			if path != absRoot && (s.opts.Classifier.SkipDir(absRoot, path) || s.ignored(absRoot, path, true)) {
				return filepath.SkipDir
			}
			return nil
		}

		if d.Type()&fs.ModeSymlink != 0 {
			if !s.opts.FollowSymlinks {
				return nil
			}
			info, err := os.Stat(path)
			if err != nil || !info.Mode().IsRegular() {
				return nil
			}
		} else if !d.Type().IsRegular() {
			return nil
		}

		if !s.accept(absRoot, path) {
			return nil
		}
		if s.opts.OnFile != nil {
			s.opts.OnFile(path)
		}

		select {
		case results <- Result{File: media.NewFileMetadata(absRoot, path)}:
		case <-ctx.Done():
			return ctx.Err()
		}
		return nil
	})

	if err != nil && err != context.Canceled && err != context.DeadlineExceeded {
		select {
		case results <- Result{Err: fmt.Errorf("scan %s: %w", absRoot, err)}:
		case <-ctx.Done():
		}
	}
}

// Accept reports whether the file at path, found under root, would be
// produced by a scan of root. root may be empty for unrooted files.
func (s *Scanner) Accept(root, path string) bool {
	if root == "" {
		return s.opts.Classifier.Indexable(path, false)
	}
	rel, err := filepath.Rel(root, path)
	if err != nil || strings.HasPrefix(rel, "..") {
		return s.opts.Classifier.Indexable(path, false)
	}
	for dir := filepath.Dir(path); dir != root && len(dir) > len(root); dir = filepath.Dir(dir) {
		if s.opts.Classifier.SkipDir(root, dir) || s.ignored(root, dir, true) {
			return false
		}
	}
	return s.accept(root, path)
}

func (s *Scanner) accept(root, path string) bool {
	return s.opts.Classifier.IndexableUnder(root, path, false) && !s.ignored(root, path, false)
}

// ignored checks path against the ignore files of root and of every
// directory between root and path.
func (s *Scanner) ignored(root, path string, isDir bool) bool {
	if !s.opts.IgnoreFiles {
		return false
	}

	dir := filepath.Dir(path)
	for {
		if m := s.matcher(dir); m != nil {
			rel, err := filepath.Rel(dir, path)
			if err == nil {
				rel = filepath.ToSlash(rel)
				if isDir {
					rel += "/"
				}
				if m.MatchesPath(rel) {
					return true
				}
			}
		}
		if dir == root || len(dir) <= len(root) {
			return false
		}
		dir = filepath.Dir(dir)
	}
}

func (s *Scanner) matcher(dir string) *ignore.GitIgnore {
	s.cacheMu.RLock()
	m, ok := s.ignoreCache.Get(dir)
	s.cacheMu.RUnlock()
	if ok {
		return m
	}

	path := filepath.Join(dir, s.opts.IgnoreFileName)
	if _, err := os.Stat(path); err == nil {
		if compiled, err := ignore.CompileIgnoreFile(path); err == nil {
			m = compiled
		}
	}

	s.cacheMu.Lock()
	s.ignoreCache.Add(dir, m)
	s.cacheMu.Unlock()
	return m
}

// InvalidateIgnoreCache drops cached matchers, e.g. after an ignore file changed.
func (s *Scanner) InvalidateIgnoreCache() {
	s.cacheMu.Lock()
	defer s.cacheMu.Unlock()
	s.ignoreCache.Purge()
}
