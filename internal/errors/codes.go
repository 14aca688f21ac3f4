// Package errors provides structured error handling for pea.
//
// Error codes follow the pattern ERR_XXX_DESCRIPTION where:
//   - 1XX: Configuration errors
//   - 2XX: IO errors (file, disk, index file)
//   - 3XX: Network errors
//   - 4XX: Validation errors
//   - 5XX: Internal errors
package errors

// Category defines error categories for classification.
type Category string

const (
	CategoryConfig     Category = "CONFIG"
	CategoryIO         Category = "IO"
	CategoryNetwork    Category = "NETWORK"
	CategoryValidation Category = "VALIDATION"
	CategoryInternal   Category = "INTERNAL"
)

// Severity defines error severity levels.
type Severity string

const (
	// SeverityFatal indicates unrecoverable error, must abort.
	SeverityFatal Severity = "FATAL"
	// SeverityError indicates operation failed but can continue.
	SeverityError Severity = "ERROR"
	// SeverityWarning indicates degraded operation, continuing.
	SeverityWarning Severity = "WARNING"
)

// Error codes organized by category.
const (
	// Config errors (100-199)
	ErrCodeConfigNotFound = "ERR_101_CONFIG_NOT_FOUND"
	ErrCodeConfigInvalid  = "ERR_102_CONFIG_INVALID"

	// IO errors (200-299)
	ErrCodePathNotFound   = "ERR_201_PATH_NOT_FOUND"
	ErrCodeFilePermission = "ERR_202_FILE_PERMISSION"
	ErrCodeDiskFull       = "ERR_203_DISK_FULL"
	ErrCodeFileTooLarge   = "ERR_204_FILE_TOO_LARGE"
	ErrCodeCorruptIndex   = "ERR_205_CORRUPT_INDEX"
	ErrCodeDBWrite        = "ERR_207_DB_WRITE"
	ErrCodeCreateFile     = "ERR_208_CREATE_FILE"
	ErrCodeIndexLocked    = "ERR_209_INDEX_LOCKED"

	// Network errors (300-399)
	ErrCodeNetworkTimeout     = "ERR_301_NETWORK_TIMEOUT"
	ErrCodeNetworkUnavailable = "ERR_302_NETWORK_UNAVAILABLE"
	ErrCodeRegistry           = "ERR_304_REGISTRY"

	// Validation errors (400-499)
	ErrCodeInvalidInput = "ERR_401_INVALID_INPUT"
	ErrCodeInvalidQuery = "ERR_403_INVALID_QUERY"
	ErrCodeInvalidPath  = "ERR_406_INVALID_PATH"
	ErrCodeIDInvalid    = "ERR_407_ID_INVALID"
	ErrCodeNotIndexable = "ERR_408_NOT_INDEXABLE"
	ErrCodeDuplicateID  = "ERR_409_DUPLICATE_ID"

	// Internal errors (500-599)
	ErrCodeInternal         = "ERR_501_INTERNAL"
	ErrCodeSearchFailed     = "ERR_503_SEARCH_FAILED"
	ErrCodeIndexFailed      = "ERR_505_INDEX_FAILED"
	ErrCodeIndexUnavailable = "ERR_506_INDEX_UNAVAILABLE"
)

// Sentinels for errors.Is comparisons. Matching is by code, so any
// *PeaError carrying the same code satisfies errors.Is against these.
var (
	ErrPathDoesNotExist = New(ErrCodePathNotFound, "path does not exist", nil)
	ErrIDInvalid        = New(ErrCodeIDInvalid, "id is not in the index", nil)
	ErrNotIndexable     = New(ErrCodeNotIndexable, "path is not indexable", nil)
	ErrDuplicateID      = New(ErrCodeDuplicateID, "duplicate id", nil)
	ErrDBWrite          = New(ErrCodeDBWrite, "failed to write index", nil)
	ErrCreateFile       = New(ErrCodeCreateFile, "failed to create file", nil)
	ErrUnavailable      = New(ErrCodeIndexUnavailable, "index is unavailable", nil)
	ErrIndexLocked      = New(ErrCodeIndexLocked, "index is locked by another process", nil)
	ErrInvalidInput     = New(ErrCodeInvalidInput, "invalid input", nil)
	ErrRegistry         = New(ErrCodeRegistry, "registry request failed", nil)
)

func categoryFromCode(code string) Category {
	if len(code) < 7 {
		return CategoryInternal
	}

	// "101" from "ERR_101_CONFIG_NOT_FOUND"
	switch code[4] {
	case '1':
		return CategoryConfig
	case '2':
		return CategoryIO
	case '3':
		return CategoryNetwork
	case '4':
		return CategoryValidation
	default:
		return CategoryInternal
	}
}

func severityFromCode(code string) Severity {
	switch code {
	case ErrCodeCorruptIndex, ErrCodeDiskFull, ErrCodeIndexLocked:
		return SeverityFatal
	}
	if isRetryableCode(code) {
		return SeverityWarning
	}
	return SeverityError
}

func isRetryableCode(code string) bool {
	switch code {
	case ErrCodeNetworkTimeout, ErrCodeNetworkUnavailable, ErrCodeRegistry:
		return true
	default:
		return false
	}
}
