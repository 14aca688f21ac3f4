// Package mcp exposes the file index to AI clients over the Model Context
// Protocol. Every tool is read-only.
package mcp

import (
	"context"
	"errors"
	"fmt"

	peaerrors "github.com/Aman-CERP/pea/internal/errors"
)

// Custom MCP error codes for pea.
const (
	// ErrCodeIndexUnavailable indicates the index actor is not running.
	ErrCodeIndexUnavailable = -32001

	// ErrCodeFileNotFound indicates an id or path that is not indexed.
	ErrCodeFileNotFound = -32002

	// ErrCodeTimeout indicates the request timed out.
	ErrCodeTimeout = -32003

	// Standard JSON-RPC error codes.
	ErrCodeInvalidParams = -32602
	ErrCodeInternalError = -32603
)

// ErrInvalidParams indicates invalid tool arguments.
var ErrInvalidParams = errors.New("invalid parameters")

// MCPError represents an MCP protocol error with code and message.
type MCPError struct {
	Code    int    `json:"code"`
	Message string `json:"message"`
}

// Error implements the error interface.
func (e *MCPError) Error() string {
	return fmt.Sprintf("MCP error %d: %s", e.Code, e.Message)
}

// MapError converts internal errors to MCP errors.
func MapError(err error) *MCPError {
	if err == nil {
		return nil
	}

	if pe, ok := peaerrors.As(err); ok {
		return mapPeaError(pe)
	}

	switch {
	case errors.Is(err, context.DeadlineExceeded):
		return &MCPError{Code: ErrCodeTimeout, Message: "Request timed out."}
	case errors.Is(err, context.Canceled):
		return &MCPError{Code: ErrCodeTimeout, Message: "Request was canceled."}
	case errors.Is(err, ErrInvalidParams):
		return &MCPError{Code: ErrCodeInvalidParams, Message: "Invalid parameters."}
	default:
		return &MCPError{Code: ErrCodeInternalError, Message: "Internal server error."}
	}
}

// NewInvalidParamsError creates an error for invalid parameters with a custom message.
func NewInvalidParamsError(msg string) *MCPError {
	return &MCPError{Code: ErrCodeInvalidParams, Message: msg}
}

func mapPeaError(pe *peaerrors.PeaError) *MCPError {
	message := pe.Message
	if pe.Suggestion != "" {
		message = fmt.Sprintf("%s. %s", pe.Message, pe.Suggestion)
	}

	switch pe.Code {
	case peaerrors.ErrCodeIDInvalid, peaerrors.ErrCodePathNotFound:
		return &MCPError{Code: ErrCodeFileNotFound, Message: message}
	case peaerrors.ErrCodeIndexUnavailable:
		return &MCPError{Code: ErrCodeIndexUnavailable, Message: message}
	}

	switch pe.Category {
	case peaerrors.CategoryValidation:
		return &MCPError{Code: ErrCodeInvalidParams, Message: message}
	case peaerrors.CategoryNetwork:
		return &MCPError{Code: ErrCodeTimeout, Message: message}
	default:
		return &MCPError{Code: ErrCodeInternalError, Message: message}
	}
}
