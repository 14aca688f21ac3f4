package mcp

import (
	"time"

	"github.com/Aman-CERP/pea/internal/media"
)

// FileOutput is one indexed file as tools report it.
type FileOutput struct {
	ID   string   `json:"id" jsonschema:"file id, usable with file_info"`
	Name string   `json:"name"`
	Type string   `json:"type" jsonschema:"lowercase extension without the dot"`
	Path string   `json:"path"`
	Tags []string `json:"tags" jsonschema:"directories between the scan root and the file"`
}

// FilesOutput is a list of files.
type FilesOutput struct {
	Files []FileOutput `json:"files"`
	Total int          `json:"total" jsonschema:"number of matching files before paging"`
}

// ListFilesInput defines the input schema for the list_files tool.
type ListFilesInput struct {
	Limit  int `json:"limit,omitempty" jsonschema:"maximum number of files, default 100"`
	Offset int `json:"offset,omitempty" jsonschema:"number of files to skip"`
}

// ListTagsInput defines the input schema for the list_tags tool (no parameters).
type ListTagsInput struct{}

// ListTagsOutput defines the output schema for the list_tags tool.
type ListTagsOutput struct {
	Tags []string `json:"tags"`
}

// FilesByTypeInput defines the input schema for the files_by_type tool.
type FilesByTypeInput struct {
	Type   string `json:"type" jsonschema:"file extension without the dot, e.g. mp4"`
	Limit  int    `json:"limit,omitempty" jsonschema:"maximum number of files, default 100"`
	Offset int    `json:"offset,omitempty" jsonschema:"number of files to skip"`
}

// QueryFilesInput defines the input schema for the query_files tool.
type QueryFilesInput struct {
	Type   string   `json:"type,omitempty" jsonschema:"file extension filter, empty matches every type"`
	Tags   []string `json:"tags,omitempty" jsonschema:"every tag must be present on a file"`
	Limit  int      `json:"limit,omitempty" jsonschema:"maximum number of files, default 100"`
	Offset int      `json:"offset,omitempty" jsonschema:"number of files to skip"`
}

// QueryFilesOutput defines the output schema for the query_files tool.
type QueryFilesOutput struct {
	FilesOutput
	UnknownTags []string            `json:"unknown_tags,omitempty" jsonschema:"requested tags no file carries"`
	Suggestions map[string][]string `json:"suggestions,omitempty" jsonschema:"known tags close to each unknown tag"`
}

// SearchFilesInput defines the input schema for the search_files tool.
type SearchFilesInput struct {
	Query string `json:"query" jsonschema:"words to look for in file names and tags"`
	Limit int    `json:"limit,omitempty" jsonschema:"maximum number of results, default 20"`
}

// SearchHitOutput is one search_files result.
type SearchHitOutput struct {
	File         FileOutput `json:"file"`
	Score        float64    `json:"score"`
	MatchedTerms []string   `json:"matched_terms,omitempty"`
}

// SearchFilesOutput defines the output schema for the search_files tool.
type SearchFilesOutput struct {
	Results []SearchHitOutput `json:"results"`
}

// FileInfoInput defines the input schema for the file_info tool.
type FileInfoInput struct {
	ID string `json:"id" jsonschema:"file id as returned by the other tools"`
}

// FileInfoOutput defines the output schema for the file_info tool.
type FileInfoOutput struct {
	File     FileOutput       `json:"file"`
	MimeType string           `json:"mime_type"`
	Size     int64            `json:"size"`
	ModTime  time.Time        `json:"mod_time"`
	Photo    *media.PhotoInfo `json:"photo,omitempty"`
}

// IndexStatusInput defines the input schema for the index_status tool (no parameters).
type IndexStatusInput struct{}

// IndexStatusOutput defines the output schema for the index_status tool.
type IndexStatusOutput struct {
	IndexPath string         `json:"index_path"`
	Files     int            `json:"files"`
	Tags      int            `json:"tags"`
	Types     map[string]int `json:"types"`
	Roots     []string       `json:"roots"`
	Version   string         `json:"version"`
}
