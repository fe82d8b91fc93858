package errors

import (
	"errors"
	"fmt"
)

var (
	ErrRestrictedBatch = errors.New("restricted role may only scan a single target")
	ErrTooManyLines    = errors.New("too many targets in batch")
	ErrInvalidLine     = errors.New("invalid target format")
	ErrInvalidASN      = errors.New("invalid ASN format")
	ErrEmptyInput      = errors.New("input is empty")
	ErrScanInProgress  = errors.New("a scan is already in progress")
	ErrInvalidPassword = errors.New("invalid password")
	ErrNotPrivileged   = errors.New("operation requires hostmaster access")
	ErrHistoryNotFound = errors.New("history entry not found")
	ErrInvalidConfig   = errors.New("invalid configuration")
)

// LineError reports the first input line that failed validation.
type LineError struct {
	Position int
	Line     string
}

func (e *LineError) Error() string {
	return fmt.Sprintf("invalid format on line %d: %q", e.Position, e.Line)
}

func (e *LineError) Unwrap() error {
	return ErrInvalidLine
}

func NewLineError(position int, line string) *LineError {
	return &LineError{
		Position: position,
		Line:     line,
	}
}

// TooManyLinesError carries the offending count and the configured ceiling.
type TooManyLinesError struct {
	Count int
	Max   int
}

func (e *TooManyLinesError) Error() string {
	return fmt.Sprintf("too many targets: %d lines, max %d", e.Count, e.Max)
}

func (e *TooManyLinesError) Unwrap() error {
	return ErrTooManyLines
}

// BackendError is a failure reported by the audit backend, either through a
// structured error field in the body or through a non-2xx status.
type BackendError struct {
	Endpoint   string
	StatusCode int
	Message    string
}

func (e *BackendError) Error() string {
	if e.StatusCode != 0 {
		return fmt.Sprintf("backend %s returned %d: %s", e.Endpoint, e.StatusCode, e.Message)
	}
	return fmt.Sprintf("backend %s error: %s", e.Endpoint, e.Message)
}

func NewBackendError(endpoint string, status int, message string) *BackendError {
	return &BackendError{
		Endpoint:   endpoint,
		StatusCode: status,
		Message:    message,
	}
}

type ConfigError struct {
	Field   string
	Value   interface{}
	Message string
}

func (e *ConfigError) Error() string {
	return fmt.Sprintf("config error for field %s (value: %v): %s", e.Field, e.Value, e.Message)
}

func (e *ConfigError) Unwrap() error {
	return ErrInvalidConfig
}

func NewConfigError(field string, value interface{}, message string) *ConfigError {
	return &ConfigError{
		Field:   field,
		Value:   value,
		Message: message,
	}
}
