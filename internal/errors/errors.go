package errors

import (
	"errors"
	"fmt"
	"strings"
	"time"
)

// ErrorType represents different categories of errors
type ErrorType string

const (
	ErrTypeSchemaLoad      ErrorType = "schema_load"
	ErrTypeCacheCorruption ErrorType = "cache_corruption"
	ErrTypePoolInit        ErrorType = "pool_init"
	ErrTypeUnsafeSQL       ErrorType = "unsafe_sql"
	ErrTypeQueryExecution  ErrorType = "query_execution"
	ErrTypeConfig          ErrorType = "config"
	ErrTypeLLM             ErrorType = "llm"
	ErrTypeEmbedding       ErrorType = "embedding"
	ErrTypeInternal        ErrorType = "internal"
)

// Error represents a structured error with type and optional suggestions
type Error struct {
	Type        ErrorType
	Message     string
	Cause       error
	Suggestions []string

	// Keywords carries every forbidden keyword detected by the SQL
	// safety validator, not just the first.
	Keywords []string

	// Elapsed carries how long a failed database execution ran.
	Elapsed time.Duration
}

func (e *Error) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("%s: %s (caused by: %v)", e.Type, e.Message, e.Cause)
	}

	return fmt.Sprintf("%s: %s", e.Type, e.Message)
}

func (e *Error) Unwrap() error {
	return e.Cause
}

// WithSuggestion adds a suggestion for resolving the error
func (e *Error) WithSuggestion(suggestion string) *Error {
	e.Suggestions = append(e.Suggestions, suggestion)
	return e
}

// New creates a new structured error
func New(errType ErrorType, message string) *Error {
	return &Error{
		Type:    errType,
		Message: message,
	}
}

// Newf creates a new structured error with formatted message
func Newf(errType ErrorType, format string, args ...interface{}) *Error {
	return &Error{
		Type:    errType,
		Message: fmt.Sprintf(format, args...),
	}
}

// Wrap wraps an existing error with additional context
func Wrap(err error, errType ErrorType, message string) *Error {
	return &Error{
		Type:    errType,
		Message: message,
		Cause:   err,
	}
}

// Wrapf wraps an existing error with formatted message
func Wrapf(err error, errType ErrorType, format string, args ...interface{}) *Error {
	return &Error{
		Type:    errType,
		Message: fmt.Sprintf(format, args...),
		Cause:   err,
	}
}

// IsType checks if an error is of a specific type
func IsType(err error, errType ErrorType) bool {
	var structErr *Error
	if errors.As(err, &structErr) {
		return structErr.Type == errType
	}

	return false
}

// GetType returns the error type if it's a structured error
func GetType(err error) ErrorType {
	var structErr *Error
	if errors.As(err, &structErr) {
		return structErr.Type
	}

	return ErrTypeInternal
}

// NewUnsafeSQLError reports a validator rejection. Every detected keyword
// is listed in the message so the caller can log a complete diagnostic.
func NewUnsafeSQLError(keywords []string) *Error {
	err := Newf(ErrTypeUnsafeSQL, "forbidden SQL keywords detected: %s", strings.Join(keywords, ", "))
	err.Keywords = append(err.Keywords, keywords...)

	return err.WithSuggestion("Only read-only SELECT statements are allowed")
}

// NewQueryExecutionError wraps a database-side failure with the time the
// statement ran before failing.
func NewQueryExecutionError(cause error, elapsed time.Duration) *Error {
	err := Wrapf(cause, ErrTypeQueryExecution, "query failed after %.2fs", elapsed.Seconds())
	err.Elapsed = elapsed

	return err
}

// NewPoolInitError reports a connection setup failure. Only server and
// database are surfaced; the password never appears in the message.
func NewPoolInitError(cause error, server, database string) *Error {
	return Wrapf(cause, ErrTypePoolInit, "failed to initialize connection pool for %s/%s", server, database).
		WithSuggestion("Verify the server address and credentials").
		WithSuggestion("Check that the database accepts connections from this host")
}

// DetectedKeywords returns the forbidden keywords carried by an unsafe-SQL
// error, or nil for any other error.
func DetectedKeywords(err error) []string {
	var structErr *Error
	if errors.As(err, &structErr) && structErr.Type == ErrTypeUnsafeSQL {
		return structErr.Keywords
	}

	return nil
}

// GetSuggestions returns the remediation hints attached to a structured
// error, or nil for plain errors.
func GetSuggestions(err error) []string {
	var structErr *Error
	if errors.As(err, &structErr) {
		return structErr.Suggestions
	}

	return nil
}
