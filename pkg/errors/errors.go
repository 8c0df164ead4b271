package errors

import (
	"fmt"
	"strings"

	"github.com/pkg/errors"
)

// ErrorCategory represents different categories of errors
type ErrorCategory string

const (
	CategoryFile          ErrorCategory = "file"
	CategoryParse         ErrorCategory = "parse"
	CategorySchema        ErrorCategory = "schema"
	CategoryConfiguration ErrorCategory = "configuration"
	CategoryCoercion      ErrorCategory = "coercion"
	CategoryRule          ErrorCategory = "rule"
	CategoryInternal      ErrorCategory = "internal"
)

// ErrorCode represents specific error codes within categories
type ErrorCode string

const (
	// File errors
	CodeFileNotFound   ErrorCode = "file_not_found"
	CodeFilePermission ErrorCode = "file_permission"
	CodeFileCorrupted  ErrorCode = "file_corrupted"

	// Parse errors
	CodeInvalidFormat ErrorCode = "invalid_format"
	CodeEncodingError ErrorCode = "encoding_error"
	CodeEmptyInput    ErrorCode = "empty_input"

	// Schema errors
	CodeMissingColumns ErrorCode = "missing_columns"
	CodeNoHeader       ErrorCode = "no_header"

	// Configuration errors
	CodeInvalidConfig ErrorCode = "invalid_config"
	CodeMissingConfig ErrorCode = "missing_config"
	CodeBadCatalog    ErrorCode = "bad_catalog"

	// Coercion errors
	CodeNonNumericBalance ErrorCode = "non_numeric_balance"

	// Rule errors
	CodeUnknownCategory ErrorCode = "unknown_category"
	CodeUnknownEdit     ErrorCode = "unknown_edit"

	// Internal errors
	CodeUnexpectedError ErrorCode = "unexpected_error"
)

// EngineError is the base error type for all application errors.
// Only CategorySchema and CategoryFile errors abort a reconciliation
// run; every other category degrades to a per-row finding or a skipped
// rule.
type EngineError struct {
	Category   ErrorCategory     `json:"category"`
	Code       ErrorCode         `json:"code"`
	Message    string            `json:"message"`
	Suggestion string            `json:"suggestion,omitempty"`
	Context    Context           `json:"context,omitempty"`
	Cause      error             `json:"-"`
	StackTrace errors.StackTrace `json:"-"`
}

// Context provides additional information about the error
type Context map[string]interface{}

// Error implements the error interface
func (e *EngineError) Error() string {
	if e.Suggestion != "" {
		return fmt.Sprintf("%s (suggestion: %s)", e.Message, e.Suggestion)
	}
	return e.Message
}

// Unwrap returns the underlying cause error
func (e *EngineError) Unwrap() error {
	return e.Cause
}

// IsRunFatal reports whether the error must abort the whole
// reconciliation run rather than degrade to a finding.
func (e *EngineError) IsRunFatal() bool {
	return e.Category == CategorySchema || e.Category == CategoryFile
}

// GetExitCode returns an appropriate exit code for the error
func (e *EngineError) GetExitCode() int {
	switch e.Category {
	case CategoryFile:
		return 2
	case CategoryParse, CategorySchema:
		return 3
	case CategoryConfiguration:
		return 4
	case CategoryCoercion, CategoryRule, CategoryInternal:
		return 5
	default:
		return 1
	}
}

// WithContext adds context information to the error
func (e *EngineError) WithContext(key string, value interface{}) *EngineError {
	if e.Context == nil {
		e.Context = make(Context)
	}
	e.Context[key] = value
	return e
}

// WithSuggestion adds a suggestion for fixing the error
func (e *EngineError) WithSuggestion(suggestion string) *EngineError {
	e.Suggestion = suggestion
	return e
}

// New creates a new EngineError
func New(category ErrorCategory, code ErrorCode, message string) *EngineError {
	return &EngineError{
		Category:   category,
		Code:       code,
		Message:    message,
		StackTrace: errors.New("").(stackTracer).StackTrace(),
	}
}

// Wrap wraps an existing error with EngineError context
func Wrap(err error, category ErrorCategory, code ErrorCode, message string) *EngineError {
	if err == nil {
		return nil
	}

	return &EngineError{
		Category:   category,
		Code:       code,
		Message:    message,
		Cause:      err,
		StackTrace: errors.WithStack(err).(stackTracer).StackTrace(),
	}
}

// stackTracer interface for extracting stack traces
type stackTracer interface {
	StackTrace() errors.StackTrace
}

// Specific error constructors

// FileError creates a file-related error
func FileError(code ErrorCode, path string, err error) *EngineError {
	var message string
	var suggestion string

	switch code {
	case CodeFileNotFound:
		message = fmt.Sprintf("file not found: %s", path)
		suggestion = "check if the file path is correct and the file exists"
	case CodeFilePermission:
		message = fmt.Sprintf("permission denied accessing file: %s", path)
		suggestion = "check file permissions and ensure you have read access"
	case CodeFileCorrupted:
		message = fmt.Sprintf("file appears to be corrupted: %s", path)
		suggestion = "verify the file integrity and try using a backup copy"
	default:
		message = fmt.Sprintf("file error: %s", path)
		suggestion = "check the file and try again"
	}

	var result *EngineError
	if err != nil {
		result = Wrap(err, CategoryFile, code, message)
	} else {
		result = New(CategoryFile, code, message)
	}

	return result.
		WithSuggestion(suggestion).
		WithContext("file_path", path)
}

// ParseError creates a parsing-related error
func ParseError(code ErrorCode, file string, line int, err error) *EngineError {
	var message string
	var suggestion string

	switch code {
	case CodeInvalidFormat:
		message = fmt.Sprintf("invalid format in file %s at line %d", file, line)
		suggestion = "check the data format and ensure it matches the expected structure"
	case CodeEncodingError:
		message = fmt.Sprintf("encoding error in file %s at line %d", file, line)
		suggestion = "ensure the file is saved in UTF-8 encoding"
	case CodeEmptyInput:
		message = fmt.Sprintf("file %s contains no data rows", file)
		suggestion = "verify the export produced at least a header and one row"
	default:
		message = fmt.Sprintf("parse error in file %s at line %d", file, line)
		suggestion = "check the file format and data integrity"
	}

	var result *EngineError
	if err != nil {
		result = Wrap(err, CategoryParse, code, message)
	} else {
		result = New(CategoryParse, code, message)
	}

	return result.
		WithSuggestion(suggestion).
		WithContext("file", file).
		WithContext("line", line)
}

// SchemaError creates an error for required columns missing from a
// source. This is the only condition that halts the whole run once the
// input files have been read.
func SchemaError(source string, missing []string) *EngineError {
	message := fmt.Sprintf("missing %s columns: %s", source, strings.Join(missing, ", "))

	return New(CategorySchema, CodeMissingColumns, message).
		WithSuggestion("verify the extract includes all required columns with correct headers").
		WithContext("source", source).
		WithContext("missing_columns", missing)
}

// ConfigurationError creates a configuration-related error
func ConfigurationError(code ErrorCode, setting string, err error) *EngineError {
	var message string
	var suggestion string

	switch code {
	case CodeInvalidConfig:
		message = fmt.Sprintf("invalid configuration for '%s'", setting)
		suggestion = "check the configuration documentation for valid values"
	case CodeMissingConfig:
		message = fmt.Sprintf("missing required configuration: %s", setting)
		suggestion = "provide this configuration setting or use a config file"
	case CodeBadCatalog:
		message = fmt.Sprintf("validation rule catalog could not be loaded: %s", setting)
		suggestion = "the engine proceeds with baseline edits only; fix the rules file to restore catalog checks"
	default:
		message = fmt.Sprintf("configuration error: %s", setting)
		suggestion = "check your configuration and try again"
	}

	var result *EngineError
	if err != nil {
		result = Wrap(err, CategoryConfiguration, code, message)
	} else {
		result = New(CategoryConfiguration, code, message)
	}

	return result.
		WithSuggestion(suggestion).
		WithContext("setting", setting)
}

// CoercionError creates an error for a balance value that does not
// parse as a number. Recovered locally as a per-row fatal finding.
func CoercionError(field, value string, rowID int, err error) *EngineError {
	message := fmt.Sprintf("non-numeric value in field '%s' at row %d: '%s'", field, rowID, value)

	var result *EngineError
	if err != nil {
		result = Wrap(err, CategoryCoercion, CodeNonNumericBalance, message)
	} else {
		result = New(CategoryCoercion, CodeNonNumericBalance, message)
	}

	return result.
		WithSuggestion("ensure balances are plain decimal numbers (e.g. '1234.56')").
		WithContext("field", field).
		WithContext("value", value).
		WithContext("row_id", rowID)
}

// RuleResolutionError creates an error for a rule descriptor that does
// not resolve to a registered check. Recovered locally; the rule is
// skipped and logged.
func RuleResolutionError(code ErrorCode, category, editNumber string) *EngineError {
	var message string

	switch code {
	case CodeUnknownCategory:
		message = fmt.Sprintf("no handler registered for rule category '%s'", category)
	case CodeUnknownEdit:
		message = fmt.Sprintf("no check registered for edit number '%s' in category '%s'", editNumber, category)
	default:
		message = fmt.Sprintf("rule (%s, %s) could not be resolved", category, editNumber)
	}

	return New(CategoryRule, code, message).
		WithSuggestion("check the rule catalog against the registered edit set").
		WithContext("category", category).
		WithContext("edit_number", editNumber)
}

// InternalError creates an internal error
func InternalError(operation string, err error) *EngineError {
	message := fmt.Sprintf("unexpected error during %s", operation)

	var result *EngineError
	if err != nil {
		result = Wrap(err, CategoryInternal, CodeUnexpectedError, message)
	} else {
		result = New(CategoryInternal, CodeUnexpectedError, message)
	}

	return result.
		WithSuggestion("this is likely a bug - please report it with the error details").
		WithContext("operation", operation)
}

// Utility functions

// IsEngineError checks if an error is an EngineError
func IsEngineError(err error) bool {
	_, ok := err.(*EngineError)
	return ok
}

// AsEngineError extracts an EngineError from an error chain
func AsEngineError(err error) (*EngineError, bool) {
	var engineErr *EngineError
	if errors.As(err, &engineErr) {
		return engineErr, true
	}
	return nil, false
}

// HasCategory reports whether err carries the given category
func HasCategory(err error, category ErrorCategory) bool {
	if engineErr, ok := AsEngineError(err); ok {
		return engineErr.Category == category
	}
	return false
}

// WrapIfNeeded wraps an error if it's not already an EngineError
func WrapIfNeeded(err error, category ErrorCategory, code ErrorCode, message string) *EngineError {
	if err == nil {
		return nil
	}

	if engineErr, ok := AsEngineError(err); ok {
		return engineErr
	}

	return Wrap(err, category, code, message)
}
