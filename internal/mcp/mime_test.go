package mcp

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestMimeTypeFor(t *testing.T) {
	tests := []struct {
		ty   string
		want string
	}{
		{"mp4", "video/mp4"},
		{"MKV", "video/x-matroska"},
		{"jpg", "image/jpeg"},
		{"flac", "audio/flac"},
		{"pdf", "application/pdf"},
		{"", "application/octet-stream"},
		{"nosuchtype", "application/octet-stream"},
	}

	for _, tt := range tests {
		t.Run(tt.ty, func(t *testing.T) {
			assert.Equal(t, tt.want, MimeTypeFor(tt.ty))
		})
	}
}
