package apperr

import (
	"errors"
	"fmt"
)

// Code identifies a terminal failure class. Codes are part of the public API
// and appear verbatim in CommandResult and HTTP error bodies.
type Code string

const (
	CodeValidationFailed      Code = "VALIDATION_FAILED"
	CodeInvalidArgument       Code = "INVALID_ARGUMENT"
	CodeStateConflict         Code = "STATE_CONFLICT"
	CodePermissionDenied      Code = "PERMISSION_DENIED"
	CodeDownstreamUnavailable Code = "DOWNSTREAM_UNAVAILABLE"
	CodePersistenceError      Code = "PERSISTENCE_ERROR"
	CodeUnrecognized          Code = "UNRECOGNIZED"
	CodeCancelled             Code = "CANCELLED"
	CodeInternal              Code = "INTERNAL_ERROR"
)

// Error is a structured error carrying a Code and optional details.
type Error struct {
	Code    Code                   `json:"code"`
	Message string                 `json:"message"`
	Details map[string]interface{} `json:"details,omitempty"`
	Cause   error                  `json:"-"`
}

func (e *Error) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("%s: %s (caused by: %v)", e.Code, e.Message, e.Cause)
	}
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

func (e *Error) Unwrap() error {
	return e.Cause
}

// WithDetail adds a detail to the error
func (e *Error) WithDetail(key string, value interface{}) *Error {
	if e.Details == nil {
		e.Details = make(map[string]interface{})
	}
	e.Details[key] = value
	return e
}

func New(code Code, message string) *Error {
	return &Error{Code: code, Message: message}
}

func Newf(code Code, format string, args ...interface{}) *Error {
	return &Error{Code: code, Message: fmt.Sprintf(format, args...)}
}

func Wrap(err error, code Code, message string) *Error {
	return &Error{Code: code, Message: message, Cause: err}
}

// Is reports whether any error in err's chain is an *Error with the given code.
func Is(err error, code Code) bool {
	return GetCode(err) == code
}

// GetCode extracts the code of the first *Error in the chain.
func GetCode(err error) Code {
	if err == nil {
		return ""
	}
	var e *Error
	if errors.As(err, &e) {
		return e.Code
	}
	return CodeInternal
}

// Message returns the human readable message of the first *Error in the chain,
// falling back to err.Error().
func Message(err error) string {
	if err == nil {
		return ""
	}
	var e *Error
	if errors.As(err, &e) {
		return e.Message
	}
	return err.Error()
}

func ValidationFailed(format string, args ...interface{}) *Error {
	return Newf(CodeValidationFailed, format, args...)
}

func InvalidArgument(format string, args ...interface{}) *Error {
	return Newf(CodeInvalidArgument, format, args...)
}

func StateConflict(format string, args ...interface{}) *Error {
	return Newf(CodeStateConflict, format, args...)
}

func PermissionDenied(format string, args ...interface{}) *Error {
	return Newf(CodePermissionDenied, format, args...)
}

func DownstreamUnavailable(service string, cause error) *Error {
	return Wrap(cause, CodeDownstreamUnavailable, service+" unavailable").WithDetail("service", service)
}
