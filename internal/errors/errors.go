package errors

import (
	stderrors "errors"
	"fmt"
)

// DocError is the structured error type for docsearch.
// It carries enough context for logging, CLI output and HTTP responses.
type DocError struct {
	// Code is the unique error code (e.g., "ERR_407_MISSING_TITLE").
	Code string

	// Message is the human-readable error message.
	Message string

	// Category is the error category (Config, IO, Validation, Internal).
	Category Category

	// Severity is the error severity level.
	Severity Severity

	// Details contains additional context as key-value pairs.
	Details map[string]string

	// Cause is the underlying error that caused this error.
	Cause error

	// Suggestion is an actionable suggestion for the user.
	Suggestion string
}

// Error implements the error interface.
func (e *DocError) Error() string {
	return fmt.Sprintf("[%s] %s", e.Code, e.Message)
}

// Unwrap returns the underlying cause for error chain support.
func (e *DocError) Unwrap() error {
	return e.Cause
}

// Is reports whether target is a DocError with the same code.
// This enables errors.Is(err, errors.New(code, "", nil)) style checks.
func (e *DocError) Is(target error) bool {
	if t, ok := target.(*DocError); ok {
		return e.Code == t.Code
	}
	return false
}

// WithDetail adds a key-value detail to the error.
func (e *DocError) WithDetail(key, value string) *DocError {
	if e.Details == nil {
		e.Details = make(map[string]string)
	}
	e.Details[key] = value
	return e
}

// WithSuggestion adds an actionable suggestion for the user.
func (e *DocError) WithSuggestion(suggestion string) *DocError {
	e.Suggestion = suggestion
	return e
}

// New creates a DocError. Category and severity are derived from the code.
func New(code string, message string, cause error) *DocError {
	return &DocError{
		Code:     code,
		Message:  message,
		Category: categoryFromCode(code),
		Severity: severityFromCode(code),
		Cause:    cause,
	}
}

// Wrap creates a DocError from an existing error, reusing its message.
func Wrap(code string, err error) *DocError {
	if err == nil {
		return nil
	}
	return New(code, err.Error(), err)
}

// ConfigError creates a configuration-related error.
func ConfigError(message string, cause error) *DocError {
	return New(ErrCodeConfigInvalid, message, cause)
}

// IOError creates an I/O-related error.
func IOError(message string, cause error) *DocError {
	return New(ErrCodeFileRead, message, cause)
}

// MissingTitle reports a page without a title declaration.
func MissingTitle(path string) *DocError {
	return New(ErrCodeMissingTitle, path+" does not have a title", nil).
		WithDetail("path", path).
		WithSuggestion("Add one with <svelte:head><title>...</title></svelte:head>")
}

// CorruptIndex reports an artifact that is missing, truncated or has an
// incompatible schema.
func CorruptIndex(path string, cause error) *DocError {
	return New(ErrCodeCorruptIndex, "search index at "+path+" is missing or corrupt", cause).
		WithDetail("path", path).
		WithSuggestion("Rebuild it with 'docsearch index --force'")
}

// As returns the first DocError in err's chain.
func As(err error) (*DocError, bool) {
	var de *DocError
	if stderrors.As(err, &de) {
		return de, true
	}
	return nil, false
}

// IsFatal reports whether err carries a fatal DocError.
func IsFatal(err error) bool {
	if de, ok := As(err); ok {
		return de.Severity == SeverityFatal
	}
	return false
}

// HasCode reports whether err carries a DocError with the given code.
func HasCode(err error, code string) bool {
	return GetCode(err) == code
}

// GetCode extracts the error code. Returns empty string if err carries no DocError.
func GetCode(err error) string {
	if de, ok := As(err); ok {
		return de.Code
	}
	return ""
}

// GetCategory extracts the category. Returns empty string if err carries no DocError.
func GetCategory(err error) Category {
	if de, ok := As(err); ok {
		return de.Category
	}
	return ""
}
