package mcp

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/modelcontextprotocol/go-sdk/mcp"

	"github.com/Aman-CERP/pea/internal/index"
	"github.com/Aman-CERP/pea/internal/media"
	"github.com/Aman-CERP/pea/internal/search"
	"github.com/Aman-CERP/pea/internal/store"
	"github.com/Aman-CERP/pea/pkg/version"
)

const (
	defaultFileLimit   = 100
	maxFileLimit       = 1000
	defaultSearchLimit = 20
	maxSearchLimit     = 100
	suggestionsPerTag  = 3
)

// Index is the read side of the index the tools use. *index.Client
// implements it.
type Index interface {
	AllFiles(ctx context.Context) ([]media.FileMetadata, error)
	AllTags(ctx context.Context) ([]string, error)
	FilesOfType(ctx context.Context, ty string) ([]media.FileMetadata, error)
	Query(ctx context.Context, ty string, tags []string) ([]media.FileMetadata, error)
	File(ctx context.Context, id uint64) (media.FileMetadata, error)
	Search(ctx context.Context, query string, limit int) ([]index.SearchResult, error)
	Stats(ctx context.Context) (store.Stats, error)
}

// ToolInfo describes a registered tool.
type ToolInfo struct {
	Name        string
	Description string
}

var tools = []ToolInfo{
	{"list_files", "List indexed media files ordered by path. Supports paging with limit and offset."},
	{"list_tags", "List every tag. Tags are the directory names between a scan root and a file."},
	{"files_by_type", "List files of one type, given as an extension without the dot (mp4, jpg, pdf)."},
	{"query_files", "Find files that carry all the given tags, optionally of one type. Unknown tags come back with close known tags as suggestions."},
	{"search_files", "Full-text search over file names and tags. Tolerates small typos and splits camelCase and snake_case names."},
	{"file_info", "Details of one file by id: path, size, modification time, MIME type and, for photos, EXIF data."},
	{"index_status", "Summary of the index: file and tag counts, files per type, scan roots."},
}

// Server is the MCP server over the file index.
type Server struct {
	mcp    *mcp.Server
	idx    Index
	logger *slog.Logger
}

// NewServer creates the server and registers its tools.
func NewServer(idx Index, logger *slog.Logger) (*Server, error) {
	if idx == nil {
		return nil, errors.New("index is required")
	}
	if logger == nil {
		logger = slog.Default()
	}

	s := &Server{idx: idx, logger: logger}
	s.mcp = mcp.NewServer(&mcp.Implementation{Name: "pea", Version: version.Version}, nil)
	s.registerTools()
	return s, nil
}

// MCPServer returns the underlying MCP server instance.
func (s *Server) MCPServer() *mcp.Server {
	return s.mcp
}

// ListTools returns all registered tools.
func (s *Server) ListTools() []ToolInfo {
	return append([]ToolInfo(nil), tools...)
}

func (s *Server) registerTools() {
	desc := make(map[string]string, len(tools))
	for _, t := range tools {
		desc[t.Name] = t.Description
	}

	mcp.AddTool(s.mcp, &mcp.Tool{Name: "list_files", Description: desc["list_files"]}, s.listFiles)
	mcp.AddTool(s.mcp, &mcp.Tool{Name: "list_tags", Description: desc["list_tags"]}, s.listTags)
	mcp.AddTool(s.mcp, &mcp.Tool{Name: "files_by_type", Description: desc["files_by_type"]}, s.filesByType)
	mcp.AddTool(s.mcp, &mcp.Tool{Name: "query_files", Description: desc["query_files"]}, s.queryFiles)
	mcp.AddTool(s.mcp, &mcp.Tool{Name: "search_files", Description: desc["search_files"]}, s.searchFiles)
	mcp.AddTool(s.mcp, &mcp.Tool{Name: "file_info", Description: desc["file_info"]}, s.fileInfo)
	mcp.AddTool(s.mcp, &mcp.Tool{Name: "index_status", Description: desc["index_status"]}, s.indexStatus)

	s.logger.Debug("MCP tools registered", slog.Int("count", len(tools)))
}

func (s *Server) listFiles(ctx context.Context, _ *mcp.CallToolRequest, in ListFilesInput) (*mcp.CallToolResult, FilesOutput, error) {
	files, err := s.idx.AllFiles(ctx)
	if err != nil {
		return nil, FilesOutput{}, s.toolError("list_files", err)
	}
	out := page(files, in.Offset, in.Limit)
	return textResult(FormatFiles("all files", out)), out, nil
}

func (s *Server) listTags(ctx context.Context, _ *mcp.CallToolRequest, _ ListTagsInput) (*mcp.CallToolResult, ListTagsOutput, error) {
	tags, err := s.idx.AllTags(ctx)
	if err != nil {
		return nil, ListTagsOutput{}, s.toolError("list_tags", err)
	}
	if len(tags) == 0 {
		return textResult("The index has no tags."), ListTagsOutput{Tags: []string{}}, nil
	}
	return textResult(strings.Join(tags, "\n")), ListTagsOutput{Tags: tags}, nil
}

func (s *Server) filesByType(ctx context.Context, _ *mcp.CallToolRequest, in FilesByTypeInput) (*mcp.CallToolResult, FilesOutput, error) {
	ty := strings.ToLower(strings.TrimPrefix(strings.TrimSpace(in.Type), "."))
	if ty == "" {
		return nil, FilesOutput{}, NewInvalidParamsError("type parameter is required")
	}
	files, err := s.idx.FilesOfType(ctx, ty)
	if err != nil {
		return nil, FilesOutput{}, s.toolError("files_by_type", err)
	}
	out := page(files, in.Offset, in.Limit)
	return textResult(FormatFiles("type "+ty, out)), out, nil
}

func (s *Server) queryFiles(ctx context.Context, _ *mcp.CallToolRequest, in QueryFilesInput) (*mcp.CallToolResult, QueryFilesOutput, error) {
	files, err := s.idx.Query(ctx, in.Type, in.Tags)
	if err != nil {
		return nil, QueryFilesOutput{}, s.toolError("query_files", err)
	}
	out := QueryFilesOutput{FilesOutput: page(files, in.Offset, in.Limit)}

	if len(in.Tags) > 0 {
		known, err := s.idx.AllTags(ctx)
		if err != nil {
			return nil, QueryFilesOutput{}, s.toolError("query_files", err)
		}
		out.UnknownTags = search.UnknownTags(known, in.Tags)
		for _, tag := range out.UnknownTags {
			var names []string
			for _, sug := range search.SuggestTags(known, tag, suggestionsPerTag) {
				names = append(names, sug.Tag)
			}
			if len(names) > 0 {
				if out.Suggestions == nil {
					out.Suggestions = make(map[string][]string)
				}
				out.Suggestions[tag] = names
			}
		}
	}
	return textResult(FormatQuery(in, out)), out, nil
}

func (s *Server) searchFiles(ctx context.Context, _ *mcp.CallToolRequest, in SearchFilesInput) (*mcp.CallToolResult, SearchFilesOutput, error) {
	query := strings.TrimSpace(in.Query)
	if query == "" {
		return nil, SearchFilesOutput{}, NewInvalidParamsError("query parameter is required")
	}
	limit := clampLimit(in.Limit, defaultSearchLimit, 1, maxSearchLimit)

	start := time.Now()
	requestID := generateRequestID()
	results, err := s.idx.Search(ctx, query, limit)
	if err != nil {
		return nil, SearchFilesOutput{}, s.toolError("search_files", err)
	}
	s.logger.Info("search_files completed",
		slog.String("request_id", requestID),
		slog.String("query", query),
		slog.Duration("duration", time.Since(start)),
		slog.Int("result_count", len(results)))

	out := SearchFilesOutput{Results: make([]SearchHitOutput, 0, len(results))}
	for _, r := range results {
		out.Results = append(out.Results, SearchHitOutput{
			File:         toFileOutput(r.File),
			Score:        r.Score,
			MatchedTerms: r.MatchedTerms,
		})
	}
	return textResult(FormatSearch(query, out)), out, nil
}

func (s *Server) fileInfo(ctx context.Context, _ *mcp.CallToolRequest, in FileInfoInput) (*mcp.CallToolResult, FileInfoOutput, error) {
	id, err := strconv.ParseUint(strings.TrimSpace(in.ID), 10, 64)
	if err != nil {
		return nil, FileInfoOutput{}, NewInvalidParamsError("id must be a decimal file id")
	}
	f, err := s.idx.File(ctx, id)
	if err != nil {
		return nil, FileInfoOutput{}, s.toolError("file_info", err)
	}

	out := FileInfoOutput{File: toFileOutput(f), MimeType: MimeTypeFor(f.Type)}
	if st, err := os.Stat(f.Path); err == nil {
		out.Size = st.Size()
		out.ModTime = st.ModTime()
	}
	if media.HasExif(f.Type) {
		if photo, err := media.ReadPhotoInfo(f.Path); err == nil {
			out.Photo = photo
		}
	}

	text := fmt.Sprintf("%s\n\npath: %s\ntype: %s (%s)\nsize: %d bytes\ntags: %s",
		f.Name, f.Path, f.Type, out.MimeType, out.Size, strings.Join(f.Tags, ", "))
	return textResult(text), out, nil
}

func (s *Server) indexStatus(ctx context.Context, _ *mcp.CallToolRequest, _ IndexStatusInput) (*mcp.CallToolResult, IndexStatusOutput, error) {
	st, err := s.idx.Stats(ctx)
	if err != nil {
		return nil, IndexStatusOutput{}, s.toolError("index_status", err)
	}
	out := IndexStatusOutput{
		IndexPath: st.Path,
		Files:     st.Files,
		Tags:      st.Tags,
		Types:     st.Types,
		Roots:     st.Roots,
		Version:   version.Version,
	}
	text := fmt.Sprintf("%d files, %d tags, %d types, %d roots (index %s)",
		out.Files, out.Tags, len(out.Types), len(out.Roots), out.IndexPath)
	return textResult(text), out, nil
}

func (s *Server) toolError(tool string, err error) error {
	s.logger.Error("tool failed", slog.String("tool", tool), slog.String("error", err.Error()))
	return MapError(err)
}

// Serve starts the server with the specified transport.
func (s *Server) Serve(ctx context.Context, transport string) error {
	s.logger.Info("Starting MCP server", slog.String("transport", transport))

	switch transport {
	case "stdio":
		err := s.mcp.Run(ctx, &mcp.StdioTransport{})
		if err != nil && !errors.Is(err, context.Canceled) {
			s.logger.Error("MCP server stopped with error", slog.String("error", err.Error()))
			return err
		}
		s.logger.Info("MCP server stopped gracefully")
		return nil
	default:
		return fmt.Errorf("unknown transport: %s (supported: stdio)", transport)
	}
}

func toFileOutput(f media.FileMetadata) FileOutput {
	tags := f.Tags
	if tags == nil {
		tags = []string{}
	}
	return FileOutput{
		ID:   strconv.FormatUint(f.ID, 10),
		Name: f.Name,
		Type: f.Type,
		Path: f.Path,
		Tags: tags,
	}
}

func page(files []media.FileMetadata, offset, limit int) FilesOutput {
	limit = clampLimit(limit, defaultFileLimit, 1, maxFileLimit)
	if offset < 0 {
		offset = 0
	}
	out := FilesOutput{Files: []FileOutput{}, Total: len(files)}
	if offset >= len(files) {
		return out
	}
	end := min(offset+limit, len(files))
	for _, f := range files[offset:end] {
		out.Files = append(out.Files, toFileOutput(f))
	}
	return out
}

// clampLimit applies def to a non-positive n, then bounds it to [lo, hi].
func clampLimit(n, def, lo, hi int) int {
	if n <= 0 {
		n = def
	}
	return max(lo, min(n, hi))
}

func textResult(text string) *mcp.CallToolResult {
	return &mcp.CallToolResult{Content: []mcp.Content{&mcp.TextContent{Text: text}}}
}

// generateRequestID creates a short unique request ID for log correlation.
func generateRequestID() string {
	b := make([]byte, 4)
	_, _ = rand.Read(b)
	return hex.EncodeToString(b)
}
