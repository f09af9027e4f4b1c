package common

import (
	"errors"
	"fmt"
	"net/http"
	"strings"
)

// AppError represents application-specific errors.
// Cause is the error kind (one of the sentinels below); Err is the underlying failure, if any.
type AppError struct {
	Code    string
	Message string
	Cause   error
	Err     error
	Hint    string
	Details string
}

func (e *AppError) Error() string {
	var b strings.Builder
	b.WriteString(e.Code)
	b.WriteString(": ")
	b.WriteString(e.Message)
	if e.Err != nil {
		b.WriteString(": ")
		b.WriteString(e.Err.Error())
	} else if e.Cause != nil {
		b.WriteString(": ")
		b.WriteString(e.Cause.Error())
	}
	return b.String()
}

func (e *AppError) Unwrap() []error {
	var errs []error
	if e.Cause != nil {
		errs = append(errs, e.Cause)
	}
	if e.Err != nil {
		errs = append(errs, e.Err)
	}
	return errs
}

// Common application errors
var (
	ErrNotFound           = errors.New("resource not found")
	ErrInvalidInput       = errors.New("invalid input")
	ErrInternal           = errors.New("internal error")
	ErrDatabase           = errors.New("database error")
	ErrValidation         = errors.New("validation failed")
	ErrConfiguration      = errors.New("configuration error")
	ErrServiceUnavailable = errors.New("service unavailable")
	ErrMalformedResponse  = errors.New("malformed response")
	ErrRateLimited        = errors.New("rate limited")
)

const (
	CodeInvalidInput       = "INVALID_INPUT"
	CodeConfiguration      = "CONFIGURATION_ERROR"
	CodeServiceUnavailable = "SERVICE_UNAVAILABLE"
	CodeMalformedResponse  = "MALFORMED_RESPONSE"
	CodeRateLimited        = "RATE_LIMITED"
	CodeNotFound           = "NOT_FOUND"
	CodeInternal           = "INTERNAL"
)

// Error constructors
func NewAppError(code, message string, cause error) *AppError {
	return &AppError{
		Code:    code,
		Message: message,
		Cause:   cause,
	}
}

func WrapError(err error, message string) error {
	if err == nil {
		return nil
	}
	return fmt.Errorf("%s: %w", message, err)
}

func InvalidInputError(message string) *AppError {
	return NewAppError(CodeInvalidInput, message, ErrInvalidInput)
}

func ConfigurationError(message string) *AppError {
	return NewAppError(CodeConfiguration, message, ErrConfiguration)
}

func NotFoundError(message string) *AppError {
	return NewAppError(CodeNotFound, message, ErrNotFound)
}

// ServiceUnavailableError keeps err (the original generation failure) as the surfaced cause.
func ServiceUnavailableError(message string, err error, hint string) *AppError {
	e := NewAppError(CodeServiceUnavailable, message, ErrServiceUnavailable)
	e.Err = err
	e.Hint = hint
	return e
}

// MalformedResponseError carries the raw model text in Details for diagnostics.
func MalformedResponseError(message, raw string, err error) *AppError {
	e := NewAppError(CodeMalformedResponse, message, ErrMalformedResponse)
	e.Err = err
	e.Details = raw
	return e
}

func RateLimitedError(err error) *AppError {
	e := NewAppError(CodeRateLimited, "extraction service rate limit reached", ErrRateLimited)
	e.Err = err
	return e
}

// KindOf returns the sentinel kind of err, or ErrInternal when it has none.
func KindOf(err error) error {
	for _, kind := range []error{
		ErrInvalidInput, ErrConfiguration, ErrServiceUnavailable,
		ErrMalformedResponse, ErrRateLimited, ErrNotFound,
	} {
		if errors.Is(err, kind) {
			return kind
		}
	}
	return ErrInternal
}

// CodeOf returns the wire code for err.
func CodeOf(err error) string {
	var app *AppError
	if errors.As(err, &app) && app.Code != "" {
		return app.Code
	}
	switch KindOf(err) {
	case ErrInvalidInput:
		return CodeInvalidInput
	case ErrConfiguration:
		return CodeConfiguration
	case ErrServiceUnavailable:
		return CodeServiceUnavailable
	case ErrMalformedResponse:
		return CodeMalformedResponse
	case ErrRateLimited:
		return CodeRateLimited
	case ErrNotFound:
		return CodeNotFound
	}
	return CodeInternal
}

// HTTPStatus maps an error to the status code the API responds with.
func HTTPStatus(err error) int {
	switch KindOf(err) {
	case ErrInvalidInput:
		return http.StatusBadRequest
	case ErrNotFound:
		return http.StatusNotFound
	case ErrRateLimited:
		return http.StatusTooManyRequests
	case ErrServiceUnavailable, ErrMalformedResponse:
		return http.StatusBadGateway
	}
	return http.StatusInternalServerError
}

// DisplayMessage renders err for the document's user-facing error field.
func DisplayMessage(err error) string {
	if err == nil {
		return ""
	}
	var app *AppError
	if !errors.As(err, &app) {
		return err.Error()
	}
	msg := app.Message
	if app.Err != nil {
		msg += ": " + app.Err.Error()
	}
	if app.Hint != "" {
		msg += " (hint: " + app.Hint + ")"
	}
	return msg
}
