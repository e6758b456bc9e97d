// Package errors provides structured error handling for fpsearch.
//
// Error codes follow the pattern ERR_XXX_DESCRIPTION where:
//   - 1XX: Configuration errors
//   - 2XX: Storage errors (index, track database)
//   - 3XX: Search backend errors
//   - 4XX: Validation errors
//   - 5XX: Internal errors
//   - 6XX: Capability errors
package errors

// Category defines error categories for classification.
type Category string

const (
	// CategoryConfig indicates configuration-related errors.
	CategoryConfig Category = "CONFIG"
	// CategoryStorage indicates index and track database errors.
	CategoryStorage Category = "STORAGE"
	// CategoryBackend indicates search backend errors.
	CategoryBackend Category = "BACKEND"
	// CategoryValidation indicates input validation errors.
	CategoryValidation Category = "VALIDATION"
	// CategoryInternal indicates unexpected internal errors.
	CategoryInternal Category = "INTERNAL"
	// CategoryCapability indicates operations a backend can never perform.
	CategoryCapability Category = "CAPABILITY"
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

	// Storage errors (200-299)
	ErrCodeIndexOpen     = "ERR_201_INDEX_OPEN"
	ErrCodeIndexLocked   = "ERR_202_INDEX_LOCKED"
	ErrCodeIndexClosed   = "ERR_203_INDEX_CLOSED"
	ErrCodeCorruptIndex  = "ERR_205_CORRUPT_INDEX"
	ErrCodeTrackStore    = "ERR_206_TRACK_STORE"
	ErrCodeTrackNotFound = "ERR_207_TRACK_NOT_FOUND"

	// Backend errors (300-399)
	ErrCodeBackendTimeout     = "ERR_301_BACKEND_TIMEOUT"
	ErrCodeBackendUnavailable = "ERR_302_BACKEND_UNAVAILABLE"
	ErrCodeBackendRequest     = "ERR_303_BACKEND_REQUEST"
	ErrCodeBackendQuery       = "ERR_304_BACKEND_QUERY"
	ErrCodeBackendWrite       = "ERR_305_BACKEND_WRITE"
	ErrCodeBackendCommit      = "ERR_306_BACKEND_COMMIT"
	ErrCodeCircuitOpen        = "ERR_307_CIRCUIT_OPEN"

	// Validation errors (400-499)
	ErrCodeInvalidInput      = "ERR_401_INVALID_INPUT"
	ErrCodeDimensionMismatch = "ERR_402_DIMENSION_MISMATCH"
	ErrCodeInvalidQuery      = "ERR_403_INVALID_QUERY"

	// Internal errors (500-599)
	ErrCodeInternal = "ERR_501_INTERNAL"

	// Capability errors (600-699)
	ErrCodeUnsupportedOperation = "ERR_601_UNSUPPORTED_OPERATION"
)

// categoryFromCode extracts category from error code.
func categoryFromCode(code string) Category {
	if len(code) < 7 {
		return CategoryInternal
	}

	// Extract numeric portion (e.g., "101" from "ERR_101_CONFIG_NOT_FOUND")
	switch code[4] {
	case '1':
		return CategoryConfig
	case '2':
		return CategoryStorage
	case '3':
		return CategoryBackend
	case '4':
		return CategoryValidation
	case '6':
		return CategoryCapability
	default:
		return CategoryInternal
	}
}

// severityFromCode determines severity based on error code.
func severityFromCode(code string) Severity {
	switch code {
	case ErrCodeCorruptIndex, ErrCodeUnsupportedOperation:
		return SeverityFatal
	}

	// Retryable backend errors get warning severity
	if isRetryableCode(code) {
		return SeverityWarning
	}

	return SeverityError
}

// isRetryableCode checks if an error code represents a retryable error.
func isRetryableCode(code string) bool {
	switch code {
	case ErrCodeBackendTimeout, ErrCodeBackendUnavailable, ErrCodeIndexLocked:
		return true
	default:
		return false
	}
}
