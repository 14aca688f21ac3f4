package errors

import (
	stderrors "errors"
	"fmt"
)

// PeaError is the structured error type used across pea.
// It carries enough context for logging, HTTP status mapping, and CLI output.
type PeaError struct {
	// Code is the unique error code (e.g., "ERR_407_ID_INVALID").
	Code string

	// Message is the human-readable error message.
	Message string

	Category Category
	Severity Severity

	// Details contains additional context as key-value pairs.
	Details map[string]string

	// Cause is the underlying error that caused this error.
	Cause error

	// Retryable indicates if the operation can be retried.
	Retryable bool

	// Suggestion is an actionable suggestion for the user.
	Suggestion string
}

func (e *PeaError) Error() string {
	return fmt.Sprintf("[%s] %s", e.Code, e.Message)
}

func (e *PeaError) Unwrap() error {
	return e.Cause
}

// Is matches by code so that errors.Is works against the package sentinels.
func (e *PeaError) Is(target error) bool {
	if t, ok := target.(*PeaError); ok {
		return e.Code == t.Code
	}
	return false
}

// WithDetail adds a key-value detail to the error.
// Returns the error for method chaining.
func (e *PeaError) WithDetail(key, value string) *PeaError {
	if e.Details == nil {
		e.Details = make(map[string]string)
	}
	e.Details[key] = value
	return e
}

// WithSuggestion adds an actionable suggestion for the user.
func (e *PeaError) WithSuggestion(suggestion string) *PeaError {
	e.Suggestion = suggestion
	return e
}

// New creates a new PeaError with the given code and message.
// Category, severity, and retryable flag are derived from the code.
func New(code string, message string, cause error) *PeaError {
	return &PeaError{
		Code:      code,
		Message:   message,
		Category:  categoryFromCode(code),
		Severity:  severityFromCode(code),
		Cause:     cause,
		Retryable: isRetryableCode(code),
	}
}

// Wrap creates a PeaError from an existing error, reusing its message.
func Wrap(code string, err error) *PeaError {
	if err == nil {
		return nil
	}
	return New(code, err.Error(), err)
}

// ConfigError creates a configuration-related error.
func ConfigError(message string, cause error) *PeaError {
	return New(ErrCodeConfigInvalid, message, cause)
}

// IOError creates an I/O-related error.
func IOError(message string, cause error) *PeaError {
	return New(ErrCodePathNotFound, message, cause)
}

// NetworkError creates a network-related error.
// Network errors are retryable.
func NetworkError(message string, cause error) *PeaError {
	return New(ErrCodeNetworkTimeout, message, cause)
}

// ValidationError creates a validation-related error.
func ValidationError(message string, cause error) *PeaError {
	return New(ErrCodeInvalidInput, message, cause)
}

// InternalError creates an internal error.
func InternalError(message string, cause error) *PeaError {
	return New(ErrCodeInternal, message, cause)
}

// PathDoesNotExist reports a missing file or directory.
func PathDoesNotExist(path string, cause error) *PeaError {
	return New(ErrCodePathNotFound, "path does not exist: "+path, cause).WithDetail("path", path)
}

// IDInvalid reports an id that is not present in the index.
func IDInvalid(id uint64) *PeaError {
	return New(ErrCodeIDInvalid, fmt.Sprintf("id %d is not in the index", id), nil).
		WithDetail("id", fmt.Sprintf("%d", id))
}

// DuplicateID reports an id collision between two different paths.
func DuplicateID(id uint64, path, existing string) *PeaError {
	return New(ErrCodeDuplicateID, fmt.Sprintf("id %d of %s already belongs to %s", id, path, existing), nil).
		WithDetail("id", fmt.Sprintf("%d", id)).
		WithDetail("path", path).
		WithDetail("existing", existing)
}

// DBError reports a failed write of the persisted index.
func DBError(path string, cause error) *PeaError {
	return New(ErrCodeDBWrite, "failed to write index "+path, cause).
		WithDetail("path", path).
		WithSuggestion("Check free disk space and permissions of the index directory")
}

// Is reports whether any error in err's chain matches target.
func Is(err, target error) bool {
	return stderrors.Is(err, target)
}

// As is errors.As for *PeaError.
func As(err error) (*PeaError, bool) {
	var pe *PeaError
	if stderrors.As(err, &pe) {
		return pe, true
	}
	return nil, false
}

// IsRetryable reports whether err carries a retryable PeaError.
func IsRetryable(err error) bool {
	if pe, ok := As(err); ok {
		return pe.Retryable
	}
	return false
}

// IsFatal checks if an error has fatal severity.
func IsFatal(err error) bool {
	if pe, ok := As(err); ok {
		return pe.Severity == SeverityFatal
	}
	return false
}

// GetCode extracts the error code, or "" when err is not a PeaError.
func GetCode(err error) string {
	if pe, ok := As(err); ok {
		return pe.Code
	}
	return ""
}

// GetCategory extracts the category, or "" when err is not a PeaError.
func GetCategory(err error) Category {
	if pe, ok := As(err); ok {
		return pe.Category
	}
	return ""
}
