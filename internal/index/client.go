package index

import (
	"context"
	"time"

	"github.com/Aman-CERP/pea/internal/errors"
	"github.com/Aman-CERP/pea/internal/media"
	"github.com/Aman-CERP/pea/internal/scanner"
	"github.com/Aman-CERP/pea/internal/search"
	"github.com/Aman-CERP/pea/internal/store"
)

// DefaultTimeout bounds a request whose context has no deadline.
const DefaultTimeout = 30 * time.Second

// Operation names, used for logs and metrics.
const (
	OpGetAllFiles    = "get_all_files"
	OpGetAllTags     = "get_all_tags"
	OpGetFilesOfTags = "get_files_of_tags"
	OpGetFilesOfType = "get_files_of_type"
	OpQuery          = "query"
	OpGetFilePath    = "get_file_path"
	OpGetFile        = "get_file"
	OpCreateFile     = "create_file"
	OpAddFile        = "add_file"
	OpAddDirectory   = "add_directory"
	OpRemove         = "remove"
	OpReconcile      = "reconcile"
	OpRoots          = "roots"
	OpSearch         = "search"
	OpSuggestTags    = "suggest_tags"
	OpStats          = "stats"
)

// SearchResult is a name index hit resolved to its record.
type SearchResult struct {
	File         media.FileMetadata `json:"file"`
	Score        float64            `json:"score"`
	MatchedTerms []string           `json:"matched_terms,omitempty"`
}

// Client is the caller-side handle on an Actor. It is safe for concurrent
// use.
type Client struct {
	actor   *Actor
	timeout time.Duration
}

// NewClient returns a client for a. A non-positive timeout means
// DefaultTimeout.
func NewClient(a *Actor, timeout time.Duration) *Client {
	if timeout <= 0 {
		timeout = DefaultTimeout
	}
	return &Client{actor: a, timeout: timeout}
}

// bound applies the client timeout to a context without a deadline.
func (c *Client) bound(ctx context.Context) (context.Context, context.CancelFunc) {
	if _, ok := ctx.Deadline(); ok {
		return ctx, func() {}
	}
	return context.WithTimeout(ctx, c.timeout)
}

func call[T any](ctx context.Context, c *Client, op string, mutates bool, fn func(context.Context, *state) (T, error)) (T, error) {
	v, _, err := send(ctx, c, op, mutates, fn)
	return v, err
}

// send is call that also reports whether the actor received the request.
func send[T any](ctx context.Context, c *Client, op string, mutates bool, fn func(context.Context, *state) (T, error)) (T, bool, error) {
	ctx, cancel := c.bound(ctx)
	defer cancel()

	var zero T
	v, handed, err := c.actor.submit(ctx, op, mutates, func(ctx context.Context, st *state) (any, error) {
		return fn(ctx, st)
	})
	if err != nil {
		return zero, handed, err
	}
	return v.(T), handed, nil
}

// AllFiles returns every record ordered by path.
func (c *Client) AllFiles(ctx context.Context) ([]media.FileMetadata, error) {
	return call(ctx, c, OpGetAllFiles, false, func(_ context.Context, st *state) ([]media.FileMetadata, error) {
		return st.store.AllFiles(), nil
	})
}

// AllTags returns every tag, sorted.
func (c *Client) AllTags(ctx context.Context) ([]string, error) {
	return call(ctx, c, OpGetAllTags, false, func(_ context.Context, st *state) ([]string, error) {
		return st.store.AllTags(), nil
	})
}

// FilesOfTags returns records carrying every tag.
func (c *Client) FilesOfTags(ctx context.Context, tags []string) ([]media.FileMetadata, error) {
	return call(ctx, c, OpGetFilesOfTags, false, func(_ context.Context, st *state) ([]media.FileMetadata, error) {
		return st.store.FilesOfTags(tags), nil
	})
}

// FilesOfType returns records of type ty.
func (c *Client) FilesOfType(ctx context.Context, ty string) ([]media.FileMetadata, error) {
	return call(ctx, c, OpGetFilesOfType, false, func(_ context.Context, st *state) ([]media.FileMetadata, error) {
		return st.store.FilesOfType(ty), nil
	})
}

// Query combines a type filter (ignored when empty) with a tag filter.
func (c *Client) Query(ctx context.Context, ty string, tags []string) ([]media.FileMetadata, error) {
	return call(ctx, c, OpQuery, false, func(_ context.Context, st *state) ([]media.FileMetadata, error) {
		return st.store.FilesOfTypeAndTags(ty, tags), nil
	})
}

// FilePath returns the path for id, or IdInvalid.
func (c *Client) FilePath(ctx context.Context, id uint64) (string, error) {
	return call(ctx, c, OpGetFilePath, false, func(_ context.Context, st *state) (string, error) {
		return st.store.FilePath(id)
	})
}

// File returns the record for id, or IdInvalid.
func (c *Client) File(ctx context.Context, id uint64) (media.FileMetadata, error) {
	return call(ctx, c, OpGetFile, false, func(_ context.Context, st *state) (media.FileMetadata, error) {
		f, ok := st.store.Get(id)
		if !ok {
			return media.FileMetadata{}, errors.IDInvalid(id)
		}
		return f, nil
	})
}

// AddFile indexes one existing file.
func (c *Client) AddFile(ctx context.Context, path string) (media.FileMetadata, error) {
	return call(ctx, c, OpAddFile, true, func(_ context.Context, st *state) (media.FileMetadata, error) {
		return st.store.AddFile(path)
	})
}

// AddDirectory scans root on the calling goroutine, then registers it and
// commits the results through the actor. Other requests are served while
// the walk runs.
func (c *Client) AddDirectory(ctx context.Context, root string) (*store.AddResult, error) {
	ctx, cancel := c.bound(ctx)
	defer cancel()

	absRoot, err := scanner.ResolveRoot(root)
	if err != nil {
		return nil, err
	}
	records, err := c.actor.scanner.Scan(ctx, absRoot)
	if err != nil {
		return nil, err
	}
	return call(ctx, c, OpAddDirectory, true, func(_ context.Context, st *state) (*store.AddResult, error) {
		return st.store.CommitDirectory(absRoot, records)
	})
}

// Remove drops the record at path or every record below it.
func (c *Client) Remove(ctx context.Context, path string) (int, error) {
	return call(ctx, c, OpRemove, true, func(_ context.Context, st *state) (int, error) {
		return st.store.Remove(path)
	})
}

// Reconcile rescans every root and syncs the index with the disk. Like
// AddDirectory, only the commit runs on the actor.
func (c *Client) Reconcile(ctx context.Context) (*store.ReconcileResult, error) {
	ctx, cancel := c.bound(ctx)
	defer cancel()

	roots, err := c.Roots(ctx)
	if err != nil {
		return nil, err
	}
	scans, err := store.ScanRoots(ctx, c.actor.scanner, roots, c.actor.scanWorkers)
	if err != nil {
		return nil, err
	}
	return call(ctx, c, OpReconcile, true, func(_ context.Context, st *state) (*store.ReconcileResult, error) {
		return st.store.CommitReconcile(scans)
	})
}

// Roots returns the registered scan roots.
func (c *Client) Roots(ctx context.Context) ([]string, error) {
	return call(ctx, c, OpRoots, false, func(_ context.Context, st *state) ([]string, error) {
		return st.store.Roots(), nil
	})
}

// Search runs a full-text query over names and tags.
func (c *Client) Search(ctx context.Context, query string, limit int) ([]SearchResult, error) {
	return call(ctx, c, OpSearch, false, func(ctx context.Context, st *state) ([]SearchResult, error) {
		if st.names == nil {
			return nil, errors.New(errors.ErrCodeSearchFailed, "search is not enabled", nil)
		}
		hits, err := st.names.Search(ctx, query, limit)
		if err != nil {
			return nil, errors.New(errors.ErrCodeSearchFailed, "search failed", err)
		}
		out := make([]SearchResult, 0, len(hits))
		for _, h := range hits {
			f, ok := st.store.Get(h.ID)
			if !ok {
				continue
			}
			out = append(out, SearchResult{File: f, Score: h.Score, MatchedTerms: h.MatchedTerms})
		}
		return out, nil
	})
}

// SuggestTags returns known tags close to want.
func (c *Client) SuggestTags(ctx context.Context, want string, limit int) ([]search.Suggestion, error) {
	return call(ctx, c, OpSuggestTags, false, func(_ context.Context, st *state) ([]search.Suggestion, error) {
		return search.SuggestTags(st.store.AllTags(), want, limit), nil
	})
}

// Stats summarizes the index.
func (c *Client) Stats(ctx context.Context) (store.Stats, error) {
	return call(ctx, c, OpStats, false, func(_ context.Context, st *state) (store.Stats, error) {
		return st.store.Stats(), nil
	})
}
