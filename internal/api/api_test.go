package api

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"mime/multipart"
	"net"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Aman-CERP/pea/internal/async"
	"github.com/Aman-CERP/pea/internal/errors"
	"github.com/Aman-CERP/pea/internal/index"
	"github.com/Aman-CERP/pea/internal/media"
	"github.com/Aman-CERP/pea/internal/scanner"
	"github.com/Aman-CERP/pea/internal/search"
	"github.com/Aman-CERP/pea/internal/store"
)

type fixture struct {
	root     string
	received string
	client   *index.Client
	server   *httptest.Server
}

func writeTree(t *testing.T, root string, files ...string) {
	t.Helper()
	for _, f := range files {
		path := filepath.Join(root, filepath.FromSlash(f))
		require.NoError(t, os.MkdirAll(filepath.Dir(path), 0o755))
		require.NoError(t, os.WriteFile(path, []byte(f), 0o644))
	}
}

func newFixture(t *testing.T, opts Options, files ...string) *fixture {
	t.Helper()
	root := t.TempDir()
	writeTree(t, root, files...)
	received := filepath.Join(t.TempDir(), "received")

	s, err := store.Load(filepath.Join(t.TempDir(), "index.json"))
	require.NoError(t, err)
	_, err = s.AddDirectory(context.Background(), root)
	require.NoError(t, err)

	nameIdx, err := search.NewNameIndex(nil)
	require.NoError(t, err)

	a := index.NewActor(s, index.Config{ReceivedDir: received, Names: nameIdx})
	client := index.NewClient(a, 2*time.Second)

	srv := httptest.NewServer(NewServer(client, opts).Handler())
	t.Cleanup(func() {
		srv.Close()
		_ = a.Close()
	})
	return &fixture{root: root, received: received, client: client, server: srv}
}

func (f *fixture) get(t *testing.T, path string) *http.Response {
	t.Helper()
	resp, err := http.Get(f.server.URL + path)
	require.NoError(t, err)
	t.Cleanup(func() { _ = resp.Body.Close() })
	return resp
}

func (f *fixture) post(t *testing.T, path, contentType string, body io.Reader) *http.Response {
	t.Helper()
	resp, err := http.Post(f.server.URL+path, contentType, body)
	require.NoError(t, err)
	t.Cleanup(func() { _ = resp.Body.Close() })
	return resp
}

func decode[T any](t *testing.T, resp *http.Response) T {
	t.Helper()
	var v T
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&v))
	return v
}

func names(files []FileData) []string {
	out := make([]string, 0, len(files))
	for _, f := range files {
		out = append(out, f.Name)
	}
	return out
}

func TestFiles_ReturnsFileDataWithStringIDs(t *testing.T) {
	// Given: an indexed tree
	f := newFixture(t, Options{}, "movies/a.mp4", "c.mp4")

	// When: listing every file
	resp := f.get(t, "/files")

	// Then: ids are decimal strings and tags are never null
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, "*", resp.Header.Get("Access-Control-Allow-Origin"))
	files := decode[[]FileData](t, resp)
	require.Len(t, files, 2)

	byName := map[string]FileData{}
	for _, fd := range files {
		byName[fd.Name] = fd
	}
	want := media.ID(filepath.Join(f.root, "movies", "a.mp4"))
	assert.Equal(t, strconv.FormatUint(want, 10), byName["a.mp4"].ID)
	assert.Equal(t, []string{"movies"}, byName["a.mp4"].Tags)
	assert.Equal(t, []string{}, byName["c.mp4"].Tags)
	assert.Equal(t, "mp4", byName["c.mp4"].Type)
}

func TestTagsAndTypes(t *testing.T) {
	f := newFixture(t, Options{}, "movies/a.mp4", "movies/action/b.mkv", "c.mp4")

	tags := decode[[]string](t, f.get(t, "/tags"))
	assert.Equal(t, []string{"action", "movies"}, tags)

	mkv := decode[[]FileData](t, f.get(t, "/files/mkv"))
	assert.Equal(t, []string{"b.mkv"}, names(mkv))

	none := decode[[]FileData](t, f.get(t, "/files/pdf"))
	assert.Empty(t, none)
}

func TestQuery(t *testing.T) {
	f := newFixture(t, Options{}, "movies/a.mp4", "movies/action/b.mkv", "c.mp4")

	tests := []struct {
		name   string
		body   string
		status int
		want   []string
	}{
		{"tags only", `{"data":{"ty":"","tags":["movies"]}}`, http.StatusOK, []string{"a.mp4", "b.mkv"}},
		{"type and tags", `{"data":{"ty":"mkv","tags":["movies"]}}`, http.StatusOK, []string{"b.mkv"}},
		{"all tags required", `{"data":{"ty":"","tags":["movies","action"]}}`, http.StatusOK, []string{"b.mkv"}},
		{"no tags matches every file", `{"data":{"ty":"mp4","tags":[]}}`, http.StatusOK, []string{"a.mp4", "c.mp4"}},
		{"unknown tag", `{"data":{"ty":"","tags":["nope"]}}`, http.StatusOK, []string{}},
		{"malformed", `{"data":`, http.StatusBadRequest, nil},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			resp := f.post(t, "/query", "application/json", strings.NewReader(tt.body))
			require.Equal(t, tt.status, resp.StatusCode)
			if tt.status != http.StatusOK {
				e := decode[ErrorResponse](t, resp)
				assert.Equal(t, tt.status, e.Code)
				assert.NotEmpty(t, e.Error)
				return
			}
			assert.ElementsMatch(t, tt.want, names(decode[[]FileData](t, resp)))
		})
	}
}

func TestContent(t *testing.T) {
	f := newFixture(t, Options{}, "movies/a.mp4")
	id := media.ID(filepath.Join(f.root, "movies", "a.mp4"))

	t.Run("streams the file", func(t *testing.T) {
		resp := f.get(t, fmt.Sprintf("/content/%d", id))
		require.Equal(t, http.StatusOK, resp.StatusCode)
		body, err := io.ReadAll(resp.Body)
		require.NoError(t, err)
		assert.Equal(t, "movies/a.mp4", string(body))
		assert.Equal(t, "bytes", resp.Header.Get("Accept-Ranges"))
	})

	t.Run("honors range requests", func(t *testing.T) {
		req, err := http.NewRequest(http.MethodGet, fmt.Sprintf("%s/content/%d", f.server.URL, id), nil)
		require.NoError(t, err)
		req.Header.Set("Range", "bytes=0-5")
		resp, err := http.DefaultClient.Do(req)
		require.NoError(t, err)
		defer func() { _ = resp.Body.Close() }()

		require.Equal(t, http.StatusPartialContent, resp.StatusCode)
		body, err := io.ReadAll(resp.Body)
		require.NoError(t, err)
		assert.Equal(t, "movies", string(body))
	})

	tests := []struct {
		name   string
		path   string
		status int
	}{
		{"non-numeric id", "/content/abc", http.StatusBadRequest},
		{"negative id", "/content/-1", http.StatusBadRequest},
		{"unknown id", "/content/42", http.StatusNotFound},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			resp := f.get(t, tt.path)
			assert.Equal(t, tt.status, resp.StatusCode)
			assert.Equal(t, tt.status, decode[ErrorResponse](t, resp).Code)
		})
	}

	t.Run("file deleted after indexing", func(t *testing.T) {
		require.NoError(t, os.Remove(filepath.Join(f.root, "movies", "a.mp4")))
		resp := f.get(t, fmt.Sprintf("/content/%d", id))
		assert.Equal(t, http.StatusNotFound, resp.StatusCode)
	})
}

func TestInfo(t *testing.T) {
	f := newFixture(t, Options{}, "photos/p.jpg")
	id := media.ID(filepath.Join(f.root, "photos", "p.jpg"))

	// When: asking for details of a jpeg without EXIF
	resp := f.get(t, fmt.Sprintf("/info/%d", id))

	// Then: size and tags are reported and photo info is absent
	require.Equal(t, http.StatusOK, resp.StatusCode)
	info := decode[FileInfo](t, resp)
	assert.Equal(t, "p.jpg", info.Name)
	assert.Equal(t, int64(len("photos/p.jpg")), info.Size)
	assert.Equal(t, []string{"photos"}, info.Tags)
	assert.False(t, info.ModTime.IsZero())
	assert.Nil(t, info.Photo)

	assert.Equal(t, http.StatusNotFound, f.get(t, "/info/7").StatusCode)
}

func multipartBody(t *testing.T, parts map[string]string, fields map[string]string) (string, *bytes.Buffer) {
	t.Helper()
	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)
	for name, content := range parts {
		w, err := mw.CreateFormFile("file", name)
		require.NoError(t, err)
		_, err = w.Write([]byte(content))
		require.NoError(t, err)
	}
	for name, value := range fields {
		require.NoError(t, mw.WriteField(name, value))
	}
	require.NoError(t, mw.Close())
	return mw.FormDataContentType(), &buf
}

func TestUpload(t *testing.T) {
	t.Run("stores and indexes each part", func(t *testing.T) {
		f := newFixture(t, Options{}, "c.mp4")
		ct, body := multipartBody(t, map[string]string{"clip.mp4": "video", "song.mp3": "audio"}, nil)

		resp := f.post(t, "/file", ct, body)

		require.Equal(t, http.StatusOK, resp.StatusCode)
		assert.ElementsMatch(t, []string{"clip.mp4", "song.mp3"}, names(decode[[]FileData](t, resp)))
		data, err := os.ReadFile(filepath.Join(f.received, "clip.mp4"))
		require.NoError(t, err)
		assert.Equal(t, "video", string(data))

		all, err := f.client.AllFiles(context.Background())
		require.NoError(t, err)
		assert.Len(t, all, 3)
	})

	t.Run("part without filename is forbidden", func(t *testing.T) {
		f := newFixture(t, Options{})
		ct, body := multipartBody(t, nil, map[string]string{"note": "hello"})

		resp := f.post(t, "/file", ct, body)

		assert.Equal(t, http.StatusForbidden, resp.StatusCode)
	})

	t.Run("non-multipart body", func(t *testing.T) {
		f := newFixture(t, Options{})
		resp := f.post(t, "/file", "application/json", strings.NewReader(`{}`))
		assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
	})

	t.Run("not indexable name is rejected and removed", func(t *testing.T) {
		f := newFixture(t, Options{})
		ct, body := multipartBody(t, map[string]string{"README": "text"}, nil)

		resp := f.post(t, "/file", ct, body)

		assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
		assert.Equal(t, errors.ErrCodeNotIndexable, decode[ErrorResponse](t, resp).ErrorCode)
		assert.NoFileExists(t, filepath.Join(f.received, "README"))
	})

	t.Run("body over the limit", func(t *testing.T) {
		f := newFixture(t, Options{MaxUploadBytes: 256})
		ct, body := multipartBody(t, map[string]string{"big.mp4": strings.Repeat("x", 8192)}, nil)

		resp := f.post(t, "/file", ct, body)

		assert.Equal(t, http.StatusRequestEntityTooLarge, resp.StatusCode)
		assert.NoFileExists(t, filepath.Join(f.received, "big.mp4"))
	})
}

func TestSearch(t *testing.T) {
	f := newFixture(t, Options{}, "movies/TheMatrix.mp4", "music/song.mp3")

	resp := f.get(t, "/search?q=matrix")
	require.Equal(t, http.StatusOK, resp.StatusCode)
	hits := decode[[]SearchHit](t, resp)
	require.NotEmpty(t, hits)
	assert.Equal(t, "TheMatrix.mp4", hits[0].Name)
	assert.Greater(t, hits[0].Score, 0.0)

	assert.Equal(t, http.StatusBadRequest, f.get(t, "/search").StatusCode)
	assert.Equal(t, http.StatusBadRequest, f.get(t, "/search?q=x&limit=0").StatusCode)
}

func TestSuggestTags(t *testing.T) {
	f := newFixture(t, Options{}, "movies/a.mp4", "music/b.mp3")

	resp := f.get(t, "/tags/suggest?q=moveis&limit=1")

	require.Equal(t, http.StatusOK, resp.StatusCode)
	got := decode[[]search.Suggestion](t, resp)
	require.Len(t, got, 1)
	assert.Equal(t, "movies", got[0].Tag)
}

func TestReconcile(t *testing.T) {
	// Given: an index whose tree changed on disk
	f := newFixture(t, Options{}, "movies/a.mp4", "c.mp4")
	require.NoError(t, os.Remove(filepath.Join(f.root, "c.mp4")))
	writeTree(t, f.root, "movies/new.mkv")

	// When: reconciling
	resp := f.post(t, "/reconcile", "application/json", nil)

	// Then: the counts describe the change
	require.Equal(t, http.StatusOK, resp.StatusCode)
	got := decode[ReconcileResponse](t, resp)
	assert.Equal(t, 1, got.Added)
	assert.Equal(t, 1, got.Removed)
	assert.Equal(t, []string{}, got.MissingRoots)

	files := decode[[]FileData](t, f.get(t, "/files"))
	assert.ElementsMatch(t, []string{"a.mp4", "new.mkv"}, names(files))
}

func TestHealthAndMetrics(t *testing.T) {
	f := newFixture(t, Options{}, "a.mp4", "b.mp4")

	health := decode[map[string]any](t, f.get(t, "/health"))
	assert.Equal(t, "ok", health["status"])
	assert.Equal(t, float64(2), health["files"])
	assert.NotEmpty(t, health["version"])

	assert.NotContains(t, health, "scan")

	_ = f.get(t, "/files")
	resp := f.get(t, "/metrics")
	require.Equal(t, http.StatusOK, resp.StatusCode)
	body, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	assert.Contains(t, string(body), `pea_http_requests_total{method="GET",route="GET /files",status="200"}`)
	assert.Contains(t, string(body), "pea_index_files")
}

func TestCORSPreflight(t *testing.T) {
	f := newFixture(t, Options{})

	req, err := http.NewRequest(http.MethodOptions, f.server.URL+"/query", nil)
	require.NoError(t, err)
	req.Header.Set("Origin", "http://client.local")
	req.Header.Set("Access-Control-Request-Method", "POST")
	resp, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	defer func() { _ = resp.Body.Close() }()

	assert.Equal(t, http.StatusNoContent, resp.StatusCode)
	assert.Equal(t, "*", resp.Header.Get("Access-Control-Allow-Origin"))
	assert.Contains(t, resp.Header.Get("Access-Control-Allow-Methods"), "POST")
}

func TestClientDir(t *testing.T) {
	dir := t.TempDir()
	writeTree(t, dir, "index.html", "static/app.js")

	t.Run("serves the web client", func(t *testing.T) {
		f := newFixture(t, Options{ClientDir: dir})

		page := f.get(t, "/")
		require.Equal(t, http.StatusOK, page.StatusCode)
		body, err := io.ReadAll(page.Body)
		require.NoError(t, err)
		assert.Equal(t, "index.html", string(body))

		js := f.get(t, "/static/app.js")
		require.Equal(t, http.StatusOK, js.StatusCode)
	})

	t.Run("no client dir", func(t *testing.T) {
		f := newFixture(t, Options{})
		assert.Equal(t, http.StatusNotFound, f.get(t, "/").StatusCode)
	})
}

func TestStatusFor(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want int
	}{
		{"unknown id", errors.IDInvalid(3), http.StatusNotFound},
		{"missing path", errors.PathDoesNotExist("/x", nil), http.StatusNotFound},
		{"validation", errors.ValidationError("bad", nil), http.StatusBadRequest},
		{"not indexable", errors.ErrNotIndexable, http.StatusBadRequest},
		{"duplicate id", errors.DuplicateID(1, "/a", "/b"), http.StatusConflict},
		{"write failure", errors.DBError("/idx.json", nil), http.StatusInternalServerError},
		{"create failure", errors.ErrCreateFile, http.StatusInternalServerError},
		{"unavailable", errors.ErrUnavailable, http.StatusInternalServerError},
		{"timeout", context.DeadlineExceeded, http.StatusGatewayTimeout},
		{"wrapped timeout", fmt.Errorf("query: %w", context.DeadlineExceeded), http.StatusGatewayTimeout},
		{"plain error", io.ErrUnexpectedEOF, http.StatusInternalServerError},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, statusFor(tt.err))
		})
	}
}

func TestRun_ShutsDownOnCancel(t *testing.T) {
	// Given: a server running on a random port
	f := newFixture(t, Options{})
	srv := NewServer(f.client, Options{ShutdownTimeout: time.Second})
	ln, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- srv.Run(ctx, ln) }()

	resp, err := http.Get("http://" + ln.Addr().String() + "/health")
	require.NoError(t, err)
	_ = resp.Body.Close()
	assert.Equal(t, http.StatusOK, resp.StatusCode)

	// When: the context is cancelled
	cancel()

	// Then: Run returns cleanly
	select {
	case err := <-done:
		assert.NoError(t, err)
	case <-time.After(5 * time.Second):
		t.Fatal("server did not shut down")
	}
}

func TestHealthReportsStartupScan(t *testing.T) {
	// Given: a server with a finished startup scan
	progress := async.NewScanProgress("/srv/media")
	progress.FileScanned("/srv/media/a.mp4")
	progress.SetResult(1, 0, 0)
	progress.SetReady()
	f := newFixture(t, Options{Scan: progress}, "a.mp4")

	// When: checking health
	health := decode[map[string]any](t, f.get(t, "/health"))

	// Then: the scan snapshot is included
	scan, ok := health["scan"].(map[string]any)
	require.True(t, ok)
	assert.Equal(t, "ready", scan["status"])
	assert.Equal(t, float64(1), scan["files_scanned"])
}

func TestHealthAndReadsServedDuringSlowStartupScan(t *testing.T) {
	// Given: a startup scan whose walk takes far longer than the request timeout
	root := t.TempDir()
	for i := range 30 {
		writeTree(t, root, fmt.Sprintf("show/ep%02d.mkv", i))
	}
	progress := async.NewScanProgress(root)
	sc, err := scanner.New(scanner.Options{OnFile: func(path string) {
		progress.FileScanned(path)
		time.Sleep(20 * time.Millisecond)
	}})
	require.NoError(t, err)
	s, err := store.Load(filepath.Join(t.TempDir(), "index.json"), store.WithScanner(sc))
	require.NoError(t, err)
	a := index.NewActor(s, index.Config{})
	client := index.NewClient(a, 200*time.Millisecond)
	srv := httptest.NewServer(NewServer(client, Options{Scan: progress}).Handler())
	t.Cleanup(func() {
		srv.Close()
		_ = a.Close()
	})

	scanned := make(chan error, 1)
	go func() {
		ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		_, err := client.AddDirectory(ctx, root)
		scanned <- err
	}()
	require.Eventually(t, func() bool { return progress.Snapshot().FilesScanned > 0 },
		5*time.Second, 5*time.Millisecond)

	// When: checking health and listing files while the walk runs
	resp, err := http.Get(srv.URL + "/health")
	require.NoError(t, err)
	defer func() { _ = resp.Body.Close() }()
	health := decode[map[string]any](t, resp)

	files, err := http.Get(srv.URL + "/files")
	require.NoError(t, err)
	defer func() { _ = files.Body.Close() }()

	// Then: both answer instead of timing out, and health shows the scan
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	scan, ok := health["scan"].(map[string]any)
	require.True(t, ok)
	assert.Equal(t, "scanning", scan["status"])
	assert.Equal(t, http.StatusOK, files.StatusCode)

	// And: the scan still commits every file
	select {
	case err := <-scanned:
		require.NoError(t, err)
	case <-time.After(10 * time.Second):
		t.Fatal("scan did not finish")
	}
	all, err := client.AllFiles(context.Background())
	require.NoError(t, err)
	assert.Len(t, all, 30)
}

func TestHealthReportsScanWhenIndexUnavailable(t *testing.T) {
	// Given: a stopped index and a running startup scan
	s, err := store.Load(filepath.Join(t.TempDir(), "index.json"))
	require.NoError(t, err)
	a := index.NewActor(s, index.Config{})
	require.NoError(t, a.Close())
	progress := async.NewScanProgress("/srv/media")
	srv := httptest.NewServer(NewServer(index.NewClient(a, time.Second), Options{Scan: progress}).Handler())
	t.Cleanup(srv.Close)

	// When: checking health
	resp, err := http.Get(srv.URL + "/health")
	require.NoError(t, err)
	defer func() { _ = resp.Body.Close() }()
	health := decode[map[string]any](t, resp)

	// Then: the failure is reported with the scan snapshot
	assert.Equal(t, http.StatusServiceUnavailable, resp.StatusCode)
	assert.Equal(t, "unavailable", health["status"])
	assert.NotEmpty(t, health["error"])
	scan, ok := health["scan"].(map[string]any)
	require.True(t, ok)
	assert.Equal(t, "scanning", scan["status"])
}
