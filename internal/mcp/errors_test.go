package mcp

import (
	"context"
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	peaerrors "github.com/Aman-CERP/pea/internal/errors"
)

func TestMapError(t *testing.T) {
	tests := []struct {
		name string
		err  error
		code int
	}{
		{"unknown id", peaerrors.ErrIDInvalid, ErrCodeFileNotFound},
		{"wrapped unknown id", fmt.Errorf("lookup: %w", peaerrors.ErrIDInvalid), ErrCodeFileNotFound},
		{"missing path", peaerrors.ErrPathDoesNotExist, ErrCodeFileNotFound},
		{"actor stopped", peaerrors.ErrUnavailable, ErrCodeIndexUnavailable},
		{"validation", peaerrors.ErrInvalidInput, ErrCodeInvalidParams},
		{"network", peaerrors.ErrRegistry, ErrCodeTimeout},
		{"db write", peaerrors.ErrDBWrite, ErrCodeInternalError},
		{"deadline", context.DeadlineExceeded, ErrCodeTimeout},
		{"canceled", context.Canceled, ErrCodeTimeout},
		{"invalid params", ErrInvalidParams, ErrCodeInvalidParams},
		{"plain", errors.New("boom"), ErrCodeInternalError},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := MapError(tt.err)
			require.NotNil(t, got)
			assert.Equal(t, tt.code, got.Code)
			assert.NotEmpty(t, got.Message)
		})
	}
}

func TestMapError_Nil(t *testing.T) {
	assert.Nil(t, MapError(nil))
}

func TestMapError_IncludesSuggestion(t *testing.T) {
	err := peaerrors.New(peaerrors.ErrCodeInvalidQuery, "bad query", nil).
		WithSuggestion("Pass at least one tag")

	got := MapError(err)

	assert.Equal(t, ErrCodeInvalidParams, got.Code)
	assert.Contains(t, got.Message, "bad query")
	assert.Contains(t, got.Message, "Pass at least one tag")
}

func TestMCPError_Error(t *testing.T) {
	err := NewInvalidParamsError("query parameter is required")
	assert.Equal(t, "MCP error -32602: query parameter is required", err.Error())
}
