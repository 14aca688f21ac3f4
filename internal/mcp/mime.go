package mcp

import (
	"mime"
	"strings"
)

// mimeTypes covers media types that mime.TypeByExtension often lacks.
var mimeTypes = map[string]string{
	// Video
	"mp4":  "video/mp4",
	"m4v":  "video/x-m4v",
	"mkv":  "video/x-matroska",
	"webm": "video/webm",
	"avi":  "video/x-msvideo",
	"mov":  "video/quicktime",
	"ts":   "video/mp2t",

	// Audio
	"mp3":  "audio/mpeg",
	"m4a":  "audio/mp4",
	"flac": "audio/flac",
	"ogg":  "audio/ogg",
	"opus": "audio/opus",
	"wav":  "audio/wav",

	// Images
	"jpg":  "image/jpeg",
	"jpeg": "image/jpeg",
	"png":  "image/png",
	"gif":  "image/gif",
	"webp": "image/webp",
	"heic": "image/heic",
	"tif":  "image/tiff",
	"tiff": "image/tiff",

	// Documents
	"pdf":  "application/pdf",
	"epub": "application/epub+zip",
	"txt":  "text/plain",
	"md":   "text/markdown",
}

// MimeTypeFor returns the MIME type of files of type ty (an extension
// without the dot). Unknown types are application/octet-stream.
func MimeTypeFor(ty string) string {
	ty = strings.ToLower(ty)
	if m, ok := mimeTypes[ty]; ok {
		return m
	}
	if m := mime.TypeByExtension("." + ty); m != "" {
		return m
	}
	return "application/octet-stream"
}
