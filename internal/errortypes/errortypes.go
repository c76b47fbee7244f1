// Package errortypes provides error types and handling for latentfs.
package errortypes

import (
	"errors"
	"fmt"
	"log/slog"
	"runtime"
	"strings"
)

// ErrorType represents the type of error that occurred
type ErrorType string

// Error types
const (
	ErrorTypeValidation ErrorType = "validation"
	ErrorTypeNotFound   ErrorType = "not_found"
	ErrorTypeDatabase   ErrorType = "database"
	ErrorTypeNetwork    ErrorType = "network"
	ErrorTypeAPI        ErrorType = "api"
	ErrorTypeConfig     ErrorType = "config"
	ErrorTypeInternal   ErrorType = "internal"
	ErrorTypeExternal   ErrorType = "external"
)

// modulePath limits captured stacks to frames of this module.
const modulePath = "github.com/localrivet/latentfs"

// maxStackFrames caps how many frames an AppError records.
const maxStackFrames = 16

// AppError is an error with a category, a client-facing message and
// structured fields for logs.
type AppError struct {
	Err       error
	Type      ErrorType
	Message   string
	StackInfo string
	Fields    map[string]interface{}
}

func (e *AppError) Error() string {
	switch {
	case e.Message == "":
		return e.Err.Error()
	default:
		return e.Message + ": " + e.Err.Error()
	}
}

// Unwrap exposes the cause to errors.Is and errors.As.
func (e *AppError) Unwrap() error {
	return e.Err
}

// WithField attaches one log field and returns e for chaining.
func (e *AppError) WithField(key string, value interface{}) *AppError {
	return e.WithFields(map[string]interface{}{key: value})
}

// WithFields attaches log fields and returns e for chaining.
func (e *AppError) WithFields(fields map[string]interface{}) *AppError {
	if e.Fields == nil {
		e.Fields = make(map[string]interface{}, len(fields))
	}
	for k, v := range fields {
		e.Fields[k] = v
	}
	return e
}

// New wraps err as an AppError of type t. A nil err becomes a generic cause
// so the result is always printable.
func New(t ErrorType, err error, message string) *AppError {
	if err == nil {
		err = errors.New(string(t) + " error")
	}
	return &AppError{
		Err:       err,
		Type:      t,
		Message:   message,
		StackInfo: moduleStack(3),
		Fields:    map[string]interface{}{},
	}
}

// moduleStack renders the calling frames that belong to this module, one
// "file:line function" per line.
func moduleStack(skip int) string {
	pcs := make([]uintptr, 64)
	n := runtime.Callers(skip, pcs)
	frames := runtime.CallersFrames(pcs[:n])

	var b strings.Builder
	kept := 0
	for kept < maxStackFrames {
		frame, more := frames.Next()
		if strings.HasPrefix(frame.Function, modulePath) {
			fmt.Fprintf(&b, "%s:%d %s\n", frame.File, frame.Line, frame.Function)
			kept++
		}
		if !more {
			break
		}
	}
	return b.String()
}

// Constructors, one per ErrorType.

func ValidationError(err error, message string) *AppError {
	return New(ErrorTypeValidation, err, message)
}

func NotFoundError(err error, message string) *AppError {
	return New(ErrorTypeNotFound, err, message)
}

func DatabaseError(err error, message string) *AppError {
	return New(ErrorTypeDatabase, err, message)
}

func NetworkError(err error, message string) *AppError {
	return New(ErrorTypeNetwork, err, message)
}

func APIError(err error, message string) *AppError {
	return New(ErrorTypeAPI, err, message)
}

func ConfigError(err error, message string) *AppError {
	return New(ErrorTypeConfig, err, message)
}

func InternalError(err error, message string) *AppError {
	return New(ErrorTypeInternal, err, message)
}

func ExternalError(err error, message string) *AppError {
	return New(ErrorTypeExternal, err, message)
}

// LogError writes err to logger (slog.Default when nil) at error level.
// AppErrors contribute their type, cause, stack and fields.
func LogError(logger *slog.Logger, err error) {
	if err == nil {
		return
	}
	if logger == nil {
		logger = slog.Default()
	}

	var appErr *AppError
	if !errors.As(err, &appErr) {
		logger.Error(err.Error(), "type", string(Classify(err)), "error", err)
		return
	}

	args := make([]any, 0, 6+2*len(appErr.Fields))
	args = append(args, "type", string(appErr.Type), "cause", appErr.Err.Error())
	for k, v := range appErr.Fields {
		args = append(args, k, v)
	}
	if appErr.StackInfo != "" {
		args = append(args, "stack", appErr.StackInfo)
	}
	logger.Error(appErr.Message, args...)
}

// Classify reports the category an error belongs to. AppErrors keep their
// own type; bare errors are classified by the sentinel they wrap, and
// anything unrecognised is internal.
func Classify(err error) ErrorType {
	if err == nil {
		return ""
	}

	var appErr *AppError
	if errors.As(err, &appErr) {
		return appErr.Type
	}

	switch {
	case errors.Is(err, ErrInvalidVector),
		errors.Is(err, ErrDimensionMismatch),
		errors.Is(err, ErrEmptyInput),
		errors.Is(err, ErrInvalidParameter):
		return ErrorTypeValidation
	case errors.Is(err, ErrItemNotFound),
		errors.Is(err, ErrTargetGroupNotFound),
		errors.Is(err, ErrNoItems):
		return ErrorTypeNotFound
	default:
		return ErrorTypeInternal
	}
}

func IsValidationError(err error) bool { return Classify(err) == ErrorTypeValidation }
func IsNotFoundError(err error) bool   { return Classify(err) == ErrorTypeNotFound }
func IsDatabaseError(err error) bool   { return Classify(err) == ErrorTypeDatabase }
func IsNetworkError(err error) bool    { return Classify(err) == ErrorTypeNetwork }
