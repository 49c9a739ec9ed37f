package errors

import (
	"errors"
	"fmt"
	"runtime"
	"strings"
)

// ErrorType represents the category of error
type ErrorType int

const (
	// Configuration errors - missing or invalid configuration
	ErrorTypeConfig ErrorType = iota
	// Schema errors - required columns missing from an input table
	ErrorTypeSchema
	// NotFound errors - a required named table is absent
	ErrorTypeNotFound
	// Backend errors - a write against a storage or graph backend failed
	ErrorTypeBackend
	// Network errors - connectivity or authentication failure talking to a backend
	ErrorTypeNetwork
	// Internal errors - unexpected internal state
	ErrorTypeInternal
)

// Severity represents how critical an error is
type Severity int

const (
	// SeverityLow - can continue with degraded functionality
	SeverityLow Severity = iota
	// SeverityMedium - should be addressed but not fatal
	SeverityMedium
	// SeverityHigh - significant issue, may impact functionality
	SeverityHigh
	// SeverityCritical - must be addressed, stops execution
	SeverityCritical
)

// Context keys carried by typed errors
const (
	ContextTable            = "table"
	ContextIndex            = "index"
	ContextCommittedBatches = "committed_batches"
	ContextMissingColumns   = "missing_columns"
)

// Sentinels for errors.Is matching by type
var (
	ErrSchema   = &Error{Type: ErrorTypeSchema}
	ErrNotFound = &Error{Type: ErrorTypeNotFound}
	ErrBackend  = &Error{Type: ErrorTypeBackend}
	ErrNetwork  = &Error{Type: ErrorTypeNetwork}
	ErrConfig   = &Error{Type: ErrorTypeConfig}
)

// Error represents a structured error with context
type Error struct {
	Type       ErrorType
	Severity   Severity
	Message    string
	Cause      error
	Context    map[string]interface{}
	StackTrace string
}

// Error implements the error interface
func (e *Error) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("%s: %v", e.Message, e.Cause)
	}
	return e.Message
}

// Unwrap returns the underlying cause
func (e *Error) Unwrap() error {
	return e.Cause
}

// WithContext adds context to the error
func (e *Error) WithContext(key string, value interface{}) *Error {
	if e.Context == nil {
		e.Context = make(map[string]interface{})
	}
	e.Context[key] = value
	return e
}

// Is checks if this error matches the target error type
func (e *Error) Is(target error) bool {
	t, ok := target.(*Error)
	if !ok {
		return false
	}
	return e.Type == t.Type
}

// IsFatal returns true if this error should stop execution
func (e *Error) IsFatal() bool {
	return e.Severity == SeverityCritical
}

// DetailedString returns a detailed error message with context
func (e *Error) DetailedString() string {
	var sb strings.Builder

	sb.WriteString(fmt.Sprintf("[%s] [%s] %s\n",
		severityString(e.Severity),
		typeString(e.Type),
		e.Message))

	if e.Cause != nil {
		sb.WriteString(fmt.Sprintf("Caused by: %v\n", e.Cause))
	}

	if len(e.Context) > 0 {
		sb.WriteString("Context:\n")
		for k, v := range e.Context {
			sb.WriteString(fmt.Sprintf("  %s: %v\n", k, v))
		}
	}

	if e.StackTrace != "" {
		sb.WriteString(fmt.Sprintf("Stack trace:\n%s\n", e.StackTrace))
	}

	return sb.String()
}

func typeString(t ErrorType) string {
	switch t {
	case ErrorTypeConfig:
		return "CONFIG"
	case ErrorTypeSchema:
		return "SCHEMA"
	case ErrorTypeNotFound:
		return "NOT_FOUND"
	case ErrorTypeBackend:
		return "BACKEND"
	case ErrorTypeNetwork:
		return "NETWORK"
	case ErrorTypeInternal:
		return "INTERNAL"
	default:
		return "UNKNOWN"
	}
}

func severityString(s Severity) string {
	switch s {
	case SeverityLow:
		return "LOW"
	case SeverityMedium:
		return "MEDIUM"
	case SeverityHigh:
		return "HIGH"
	case SeverityCritical:
		return "CRITICAL"
	default:
		return "UNKNOWN"
	}
}

// captureStackTrace captures the current stack trace
func captureStackTrace(skip int) string {
	var sb strings.Builder
	for i := skip; i < skip+10; i++ {
		pc, file, line, ok := runtime.Caller(i)
		if !ok {
			break
		}
		fn := runtime.FuncForPC(pc)
		if fn == nil {
			break
		}
		sb.WriteString(fmt.Sprintf("  %s:%d %s\n", file, line, fn.Name()))
	}
	return sb.String()
}

// New creates a new error with the given type, severity, and message
func New(errType ErrorType, severity Severity, message string) *Error {
	return &Error{
		Type:       errType,
		Severity:   severity,
		Message:    message,
		Context:    make(map[string]interface{}),
		StackTrace: captureStackTrace(2),
	}
}

// Wrap wraps an existing error with additional context
func Wrap(err error, errType ErrorType, severity Severity, message string) *Error {
	if err == nil {
		return nil
	}

	return &Error{
		Type:       errType,
		Severity:   severity,
		Message:    message,
		Cause:      err,
		Context:    make(map[string]interface{}),
		StackTrace: captureStackTrace(2),
	}
}

// ConfigErrorf creates a configuration error with formatting
func ConfigErrorf(format string, args ...interface{}) *Error {
	return New(ErrorTypeConfig, SeverityCritical, fmt.Sprintf(format, args...))
}

// SchemaError reports required columns missing from a table. Raised before any side effect.
func SchemaError(tableName string, missing ...string) *Error {
	e := New(ErrorTypeSchema, SeverityCritical,
		fmt.Sprintf("%s table missing required columns %v", tableName, missing))
	e.WithContext(ContextTable, tableName)
	e.WithContext(ContextMissingColumns, missing)
	return e
}

// TableNotFoundError reports a required table absent from an index
func TableNotFoundError(tableName, index string, cause error) *Error {
	msg := fmt.Sprintf("required table %q not found", tableName)
	if index != "" {
		msg = fmt.Sprintf("required table %q not found in index %q", tableName, index)
	}
	var e *Error
	if cause != nil {
		e = Wrap(cause, ErrorTypeNotFound, SeverityCritical, msg)
	} else {
		e = New(ErrorTypeNotFound, SeverityCritical, msg)
	}
	e.WithContext(ContextTable, tableName)
	e.WithContext(ContextIndex, index)
	return e
}

// BackendError wraps a failed backend write and records how many batches were committed first
func BackendError(err error, committedBatches int, message string) *Error {
	e := Wrap(err, ErrorTypeBackend, SeverityHigh, message)
	if e == nil {
		return nil
	}
	e.WithContext(ContextCommittedBatches, committedBatches)
	return e
}

// NetworkErrorf wraps a network error with formatting
func NetworkErrorf(err error, format string, args ...interface{}) *Error {
	return Wrap(err, ErrorTypeNetwork, SeverityHigh, fmt.Sprintf(format, args...))
}

// CommittedBatches returns the committed batch count carried by a BackendError
func CommittedBatches(err error) (int, bool) {
	var e *Error
	if !errors.As(err, &e) || e.Type != ErrorTypeBackend {
		return 0, false
	}
	n, ok := e.Context[ContextCommittedBatches].(int)
	return n, ok
}

// TableName returns the table a schema or not-found error refers to
func TableName(err error) string {
	var e *Error
	if !errors.As(err, &e) {
		return ""
	}
	name, _ := e.Context[ContextTable].(string)
	return name
}

// IsFatal checks if an error is fatal (should stop execution)
func IsFatal(err error) bool {
	var e *Error
	if errors.As(err, &e) {
		return e.IsFatal()
	}
	return false
}

// GetType returns the type of an error
func GetType(err error) ErrorType {
	var e *Error
	if errors.As(err, &e) {
		return e.Type
	}
	return ErrorTypeInternal
}
