// Package apperr defines the fixed error-code enumeration shared by every
// endpoint and the typed error the central HTTP error handler renders into
// the uniform envelope.
package apperr

import "net/http"

type Code string

// Validation error codes.
const (
	CodeRequired      Code = "REQUIRED"
	CodeInvalidType   Code = "INVALID_TYPE"
	CodeInvalidFormat Code = "INVALID_FORMAT"
	CodeMinLength     Code = "MIN_LENGTH"
	CodeMaxLength     Code = "MAX_LENGTH"
	CodeMinValue      Code = "MIN_VALUE"
	CodeMaxValue      Code = "MAX_VALUE"
	CodeUnique        Code = "UNIQUE"
	CodeEnumValue     Code = "ENUM_VALUE"
	CodeMismatch      Code = "MISMATCH"
)

// Auth and security error codes.
const (
	CodeUnauthorized    Code = "UNAUTHORIZED"
	CodeInvalidToken    Code = "INVALID_TOKEN"
	CodeForbiddenAction Code = "FORBIDDEN_ACTION"
	CodeAccountLocked   Code = "ACCOUNT_LOCKED"
	CodeTooManyRequests Code = "TOO_MANY_REQUESTS"
)

// Server error codes.
const (
	CodeInternalError      Code = "INTERNAL_ERROR"
	CodeServiceUnavailable Code = "SERVICE_UNAVAILABLE"
	CodeTimeout            Code = "TIMEOUT"
	CodeConflict           Code = "CONFLICT"
	CodeNotFound           Code = "NOT_FOUND"
	CodeValidationError    Code = "VALIDATION_ERROR"
	CodeParseError         Code = "PARSE_ERROR"
)

type Error struct {
	Status  int
	Code    Code
	Message string
	Fields  map[string][]Code
	Err     error
}

func (e *Error) Error() string {
	return e.Message
}

func (e *Error) Unwrap() error {
	return e.Err
}

func New(status int, code Code, message string) *Error {
	return &Error{Status: status, Code: code, Message: message}
}

func Validation(fields map[string][]Code) *Error {
	return &Error{
		Status:  http.StatusBadRequest,
		Code:    CodeValidationError,
		Message: "Payload Validation Failed",
		Fields:  fields,
	}
}

func ParseError(message string) *Error {
	if message == "" {
		message = "Invalid Request Body"
	}
	return New(http.StatusBadRequest, CodeParseError, message)
}

func NotFound(message string) *Error {
	if message == "" {
		message = "Resource Not Found"
	}
	return New(http.StatusNotFound, CodeNotFound, message)
}

func Unauthorized(message string) *Error {
	if message == "" {
		message = "Unauthorized"
	}
	return New(http.StatusUnauthorized, CodeUnauthorized, message)
}

func InvalidToken(message string) *Error {
	if message == "" {
		message = "Invalid or Expired Token"
	}
	return New(http.StatusUnauthorized, CodeInvalidToken, message)
}

func Conflict(message string) *Error {
	if message == "" {
		message = "Resource Conflict"
	}
	return New(http.StatusConflict, CodeConflict, message)
}

func ServiceUnavailable(message string) *Error {
	if message == "" {
		message = "Service Unavailable"
	}
	return New(http.StatusServiceUnavailable, CodeServiceUnavailable, message)
}

func Internal(err error) *Error {
	return &Error{
		Status:  http.StatusInternalServerError,
		Code:    CodeInternalError,
		Message: "Internal Server Error",
		Err:     err,
	}
}
