package api

import (
	"context"
	"encoding/json"
	stderrors "errors"
	"io"
	"log/slog"
	"mime/multipart"
	"net/http"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/Aman-CERP/pea/internal/errors"
	"github.com/Aman-CERP/pea/internal/media"
	"github.com/Aman-CERP/pea/internal/metrics"
	"github.com/Aman-CERP/pea/internal/search"
	"github.com/Aman-CERP/pea/pkg/version"
)

const (
	maxQueryBody       = 1 << 20
	defaultSuggestions = 5
	healthTimeout      = 5 * time.Second
)

func (s *Server) handleIndexPage(w http.ResponseWriter, r *http.Request) {
	http.ServeFile(w, r, filepath.Join(s.opts.ClientDir, "index.html"))
}

func (s *Server) handleFiles(w http.ResponseWriter, r *http.Request) {
	files, err := s.idx.AllFiles(r.Context())
	if err != nil {
		s.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, toFileDataList(files))
}

func (s *Server) handleFilesOfType(w http.ResponseWriter, r *http.Request) {
	files, err := s.idx.FilesOfType(r.Context(), r.PathValue("type"))
	if err != nil {
		s.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, toFileDataList(files))
}

func (s *Server) handleTags(w http.ResponseWriter, r *http.Request) {
	tags, err := s.idx.AllTags(r.Context())
	if err != nil {
		s.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, tags)
}

// TagQuery is the POST /query body. An empty Type matches every type.
type TagQuery struct {
	Data struct {
		Type string   `json:"ty"`
		Tags []string `json:"tags"`
	} `json:"data"`
}

func (s *Server) handleQuery(w http.ResponseWriter, r *http.Request) {
	var q TagQuery
	dec := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxQueryBody))
	if err := dec.Decode(&q); err != nil {
		s.fail(w, r, errors.New(errors.ErrCodeInvalidQuery, "malformed query body", err))
		return
	}

	files, err := s.idx.Query(r.Context(), q.Data.Type, q.Data.Tags)
	if err != nil {
		s.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, toFileDataList(files))
}

func (s *Server) handleUpload(w http.ResponseWriter, r *http.Request) {
	if s.opts.MaxUploadBytes > 0 {
		r.Body = http.MaxBytesReader(w, r.Body, s.opts.MaxUploadBytes)
	}
	mr, err := r.MultipartReader()
	if err != nil {
		s.fail(w, r, errors.ValidationError("expected a multipart/form-data body", err))
		return
	}

	created := []FileData{}
	for {
		part, err := mr.NextPart()
		if err == io.EOF {
			break
		}
		if err != nil {
			s.fail(w, r, uploadReadError(err))
			return
		}

		name := part.FileName()
		if name == "" {
			_ = part.Close()
			s.sendError(w, http.StatusForbidden, "every part must carry a filename")
			return
		}

		rec, err := s.createFromPart(r, name, part)
		if err != nil {
			s.fail(w, r, err)
			return
		}
		created = append(created, toFileData(rec))
	}
	writeJSON(w, http.StatusOK, created)
}

func (s *Server) createFromPart(r *http.Request, name string, part *multipart.Part) (media.FileMetadata, error) {
	defer func() { _ = part.Close() }()

	rec, err := s.idx.CreateFile(r.Context(), name, part)
	metrics.RecordUpload(err == nil)
	if err != nil {
		if tooLarge(err) {
			return media.FileMetadata{}, uploadReadError(err)
		}
		return media.FileMetadata{}, err
	}
	s.logger.Info("upload stored",
		slog.String("name", rec.Name),
		slog.Uint64("id", rec.ID))
	return rec, nil
}

func tooLarge(err error) bool {
	var mbe *http.MaxBytesError
	return stderrors.As(err, &mbe)
}

func uploadReadError(err error) error {
	if tooLarge(err) {
		return errors.New(errors.ErrCodeFileTooLarge, "upload exceeds the size limit", err)
	}
	return errors.ValidationError("malformed multipart body", err)
}

func (s *Server) handleContent(w http.ResponseWriter, r *http.Request) {
	id, err := parseID(r)
	if err != nil {
		s.fail(w, r, err)
		return
	}
	path, err := s.idx.FilePath(r.Context(), id)
	if err != nil {
		s.fail(w, r, err)
		return
	}

	f, err := os.Open(path)
	if err != nil {
		s.fail(w, r, errors.PathDoesNotExist(path, err))
		return
	}
	defer func() { _ = f.Close() }()

	info, err := f.Stat()
	if err != nil || info.IsDir() {
		s.fail(w, r, errors.PathDoesNotExist(path, err))
		return
	}

	metrics.RecordContentServed(info.Size())
	http.ServeContent(w, r, info.Name(), info.ModTime(), f)
}

// FileInfo is the GET /info/{id} body.
type FileInfo struct {
	FileData
	Size    int64            `json:"size"`
	ModTime time.Time        `json:"mod_time"`
	Photo   *media.PhotoInfo `json:"photo,omitempty"`
}

func (s *Server) handleInfo(w http.ResponseWriter, r *http.Request) {
	id, err := parseID(r)
	if err != nil {
		s.fail(w, r, err)
		return
	}
	rec, err := s.idx.File(r.Context(), id)
	if err != nil {
		s.fail(w, r, err)
		return
	}

	st, err := os.Stat(rec.Path)
	if err != nil {
		s.fail(w, r, errors.PathDoesNotExist(rec.Path, err))
		return
	}

	info := FileInfo{FileData: toFileData(rec), Size: st.Size(), ModTime: st.ModTime()}
	if media.HasExif(rec.Type) {
		photo, err := media.ReadPhotoInfo(rec.Path)
		if err != nil {
			s.logger.Debug("exif read failed", slog.String("path", rec.Path), slog.String("error", err.Error()))
		}
		info.Photo = photo
	}
	writeJSON(w, http.StatusOK, info)
}

// SearchHit is one GET /search result.
type SearchHit struct {
	FileData
	Score        float64  `json:"score"`
	MatchedTerms []string `json:"matched_terms,omitempty"`
}

func (s *Server) handleSearch(w http.ResponseWriter, r *http.Request) {
	q := strings.TrimSpace(r.URL.Query().Get("q"))
	if q == "" {
		s.fail(w, r, errors.New(errors.ErrCodeInvalidQuery, "query parameter q is required", nil))
		return
	}
	limit, err := parseLimit(r, search.DefaultLimit)
	if err != nil {
		s.fail(w, r, err)
		return
	}

	results, err := s.idx.Search(r.Context(), q, limit)
	if err != nil {
		s.fail(w, r, err)
		return
	}
	hits := make([]SearchHit, 0, len(results))
	for _, res := range results {
		hits = append(hits, SearchHit{
			FileData:     toFileData(res.File),
			Score:        res.Score,
			MatchedTerms: res.MatchedTerms,
		})
	}
	writeJSON(w, http.StatusOK, hits)
}

func (s *Server) handleSuggestTags(w http.ResponseWriter, r *http.Request) {
	q := strings.TrimSpace(r.URL.Query().Get("q"))
	if q == "" {
		s.fail(w, r, errors.New(errors.ErrCodeInvalidQuery, "query parameter q is required", nil))
		return
	}
	limit, err := parseLimit(r, defaultSuggestions)
	if err != nil {
		s.fail(w, r, err)
		return
	}

	suggestions, err := s.idx.SuggestTags(r.Context(), q, limit)
	if err != nil {
		s.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, suggestions)
}

// ReconcileResponse is the POST /reconcile body.
type ReconcileResponse struct {
	Added        int      `json:"added"`
	Replaced     int      `json:"replaced"`
	Removed      int      `json:"removed"`
	Conflicts    int      `json:"conflicts"`
	MissingRoots []string `json:"missing_roots"`
}

func (s *Server) handleReconcile(w http.ResponseWriter, r *http.Request) {
	res, err := s.idx.Reconcile(r.Context())
	if err != nil {
		s.fail(w, r, err)
		return
	}
	missing := res.MissingRoots
	if missing == nil {
		missing = []string{}
	}
	writeJSON(w, http.StatusOK, ReconcileResponse{
		Added:        res.Added,
		Replaced:     res.Replaced,
		Removed:      res.Removed,
		Conflicts:    len(res.Conflicts),
		MissingRoots: missing,
	})
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	body := map[string]any{
		"status":  "ok",
		"version": version.Short(),
	}
	if s.opts.Scan != nil {
		body["scan"] = s.opts.Scan.Snapshot()
	}

	ctx, cancel := context.WithTimeout(r.Context(), healthTimeout)
	defer cancel()
	stats, err := s.idx.Stats(ctx)
	if err != nil {
		s.logger.Warn("health check failed", slog.String("error", err.Error()))
		body["status"] = "unavailable"
		body["error"] = err.Error()
		writeJSON(w, http.StatusServiceUnavailable, body)
		return
	}
	body["files"] = stats.Files
	writeJSON(w, http.StatusOK, body)
}
