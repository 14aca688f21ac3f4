package api

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
	"strconv"

	"github.com/Aman-CERP/pea/internal/errors"
	"github.com/Aman-CERP/pea/internal/media"
)

// FileData is the wire form of a record. The id is a decimal string so
// JavaScript clients keep all 64 bits.
type FileData struct {
	Name string   `json:"name"`
	ID   string   `json:"id"`
	Type string   `json:"ty"`
	Tags []string `json:"tags"`
}

func toFileData(f media.FileMetadata) FileData {
	tags := f.Tags
	if tags == nil {
		tags = []string{}
	}
	return FileData{
		Name: f.Name,
		ID:   strconv.FormatUint(f.ID, 10),
		Type: f.Type,
		Tags: tags,
	}
}

func toFileDataList(files []media.FileMetadata) []FileData {
	out := make([]FileData, 0, len(files))
	for _, f := range files {
		out = append(out, toFileData(f))
	}
	return out
}

// ErrorResponse is the body of every error reply.
type ErrorResponse struct {
	Error     string `json:"error"`
	Code      int    `json:"code"`
	ErrorCode string `json:"error_code,omitempty"`
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func (s *Server) sendError(w http.ResponseWriter, status int, message string) {
	writeJSON(w, status, ErrorResponse{Error: message, Code: status})
}

// fail maps err to a status code and writes it.
func (s *Server) fail(w http.ResponseWriter, r *http.Request, err error) {
	status := statusFor(err)
	resp := ErrorResponse{Error: err.Error(), Code: status}
	if pe, ok := errors.As(err); ok {
		resp.Error = pe.Message
		resp.ErrorCode = pe.Code
	}

	level := slog.LevelWarn
	if status >= http.StatusInternalServerError {
		level = slog.LevelError
	}
	attrs := append([]any{"method", r.Method, "path", r.URL.Path, "status", status}, errors.LogAttrs(err)...)
	s.logger.Log(r.Context(), level, "request failed", attrs...)

	writeJSON(w, status, resp)
}

func statusFor(err error) int {
	switch {
	case errors.Is(err, context.DeadlineExceeded):
		return http.StatusGatewayTimeout
	case errors.Is(err, context.Canceled):
		return http.StatusServiceUnavailable
	}

	switch errors.GetCode(err) {
	case errors.ErrCodeIDInvalid, errors.ErrCodePathNotFound:
		return http.StatusNotFound
	case errors.ErrCodeInvalidInput, errors.ErrCodeInvalidQuery, errors.ErrCodeInvalidPath,
		errors.ErrCodeNotIndexable:
		return http.StatusBadRequest
	case errors.ErrCodeDuplicateID:
		return http.StatusConflict
	case errors.ErrCodeFileTooLarge:
		return http.StatusRequestEntityTooLarge
	default:
		return http.StatusInternalServerError
	}
}

func parseID(r *http.Request) (uint64, error) {
	raw := r.PathValue("id")
	id, err := strconv.ParseUint(raw, 10, 64)
	if err != nil {
		return 0, errors.ValidationError("invalid file id "+strconv.Quote(raw), err)
	}
	return id, nil
}

func parseLimit(r *http.Request, fallback int) (int, error) {
	raw := r.URL.Query().Get("limit")
	if raw == "" {
		return fallback, nil
	}
	n, err := strconv.Atoi(raw)
	if err != nil || n < 1 {
		return 0, errors.ValidationError("limit must be a positive integer, got "+strconv.Quote(raw), err)
	}
	return n, nil
}
