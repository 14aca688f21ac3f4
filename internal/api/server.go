// Package api serves the file index over HTTP.
package api

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"net"
	"net/http"
	"path/filepath"
	"time"

	"github.com/Aman-CERP/pea/internal/async"
	"github.com/Aman-CERP/pea/internal/index"
	"github.com/Aman-CERP/pea/internal/media"
	"github.com/Aman-CERP/pea/internal/metrics"
	"github.com/Aman-CERP/pea/internal/search"
	"github.com/Aman-CERP/pea/internal/store"
)

// Index is what the HTTP layer needs from the index. *index.Client
// implements it.
type Index interface {
	AllFiles(ctx context.Context) ([]media.FileMetadata, error)
	AllTags(ctx context.Context) ([]string, error)
	FilesOfType(ctx context.Context, ty string) ([]media.FileMetadata, error)
	Query(ctx context.Context, ty string, tags []string) ([]media.FileMetadata, error)
	FilePath(ctx context.Context, id uint64) (string, error)
	File(ctx context.Context, id uint64) (media.FileMetadata, error)
	CreateFile(ctx context.Context, name string, content io.Reader) (media.FileMetadata, error)
	Reconcile(ctx context.Context) (*store.ReconcileResult, error)
	Search(ctx context.Context, query string, limit int) ([]index.SearchResult, error)
	SuggestTags(ctx context.Context, want string, limit int) ([]search.Suggestion, error)
	Stats(ctx context.Context) (store.Stats, error)
}

// Options configures a Server.
type Options struct {
	// ClientDir holds index.html and static/ of the web client. Empty
	// disables both routes.
	ClientDir string
	// MaxUploadBytes caps a POST /file body. Zero means no limit.
	MaxUploadBytes int64
	// ShutdownTimeout bounds graceful shutdown in Run.
	ShutdownTimeout time.Duration
	// Scan, when set, is reported under "scan" by GET /health.
	Scan   ScanReporter
	Logger *slog.Logger
}

// ScanReporter reports the progress of the startup scan.
// *async.ScanProgress implements it.
type ScanReporter interface {
	Snapshot() async.ScanSnapshot
}

// Server is the pea HTTP server.
type Server struct {
	idx    Index
	opts   Options
	logger *slog.Logger
}

// NewServer creates a server over idx.
func NewServer(idx Index, opts Options) *Server {
	if opts.Logger == nil {
		opts.Logger = slog.Default()
	}
	if opts.ShutdownTimeout <= 0 {
		opts.ShutdownTimeout = 10 * time.Second
	}
	return &Server{idx: idx, opts: opts, logger: opts.Logger}
}

// Handler returns the routed handler wrapped in CORS, logging and metrics
// middleware.
func (s *Server) Handler() http.Handler {
	mux := http.NewServeMux()

	if s.opts.ClientDir != "" {
		mux.HandleFunc("GET /{$}", s.handleIndexPage)
		static := http.FileServer(http.Dir(filepath.Join(s.opts.ClientDir, "static")))
		mux.Handle("GET /static/", http.StripPrefix("/static/", static))
	}

	mux.HandleFunc("GET /files", s.handleFiles)
	mux.HandleFunc("GET /files/{type}", s.handleFilesOfType)
	mux.HandleFunc("GET /tags", s.handleTags)
	mux.HandleFunc("GET /tags/suggest", s.handleSuggestTags)
	mux.HandleFunc("POST /file", s.handleUpload)
	mux.HandleFunc("POST /query", s.handleQuery)
	mux.HandleFunc("GET /content/{id}", s.handleContent)
	mux.HandleFunc("GET /info/{id}", s.handleInfo)
	mux.HandleFunc("GET /search", s.handleSearch)
	mux.HandleFunc("POST /reconcile", s.handleReconcile)
	mux.HandleFunc("GET /health", s.handleHealth)
	mux.Handle("GET /metrics", metrics.Handler())

	return cors(s.logRequests(metrics.Middleware(mux)))
}

// Run serves on ln until ctx is done, then shuts down gracefully.
func (s *Server) Run(ctx context.Context, ln net.Listener) error {
	srv := &http.Server{
		Handler:           s.Handler(),
		ReadHeaderTimeout: 10 * time.Second,
		BaseContext:       func(net.Listener) context.Context { return context.WithoutCancel(ctx) },
	}

	errCh := make(chan error, 1)
	go func() {
		s.logger.Info("http server listening", slog.String("address", ln.Addr().String()))
		errCh <- srv.Serve(ln)
	}()

	select {
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), s.opts.ShutdownTimeout)
	defer cancel()
	s.logger.Info("http server shutting down")
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return err
	}
	if err := <-errCh; err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}
