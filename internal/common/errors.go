package common

import (
	"context"
	"errors"
	"fmt"
	"net/http"

	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"
)

// AppError represents application-specific errors
type AppError struct {
	Code    string
	Message string
	Cause   error
}

func (e *AppError) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("%s: %s: %v", e.Code, e.Message, e.Cause)
	}
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

func (e *AppError) Unwrap() error {
	return e.Cause
}

// Common application errors
var (
	ErrNotFound         = errors.New("resource not found")
	ErrInvalidInput     = errors.New("invalid input")
	ErrInternal         = errors.New("internal error")
	ErrValidation       = errors.New("validation failed")
	ErrUnavailable      = errors.New("service unavailable")
	ErrInvalidUpstream  = errors.New("invalid upstream response")
	ErrRecognition      = errors.New("text recognition failed")
	ErrPayloadTooLarge  = errors.New("payload too large")
	ErrUnsupportedMedia = errors.New("unsupported media type")
)

// Stable error codes surfaced to callers.
const (
	CodeConfig             = "CONFIG_ERROR"
	CodeInvalidInput       = "INVALID_INPUT"
	CodeNotFound           = "NOT_FOUND"
	CodeServiceUnavailable = "SERVICE_UNAVAILABLE"
	CodeInvalidUpstream    = "INVALID_UPSTREAM_RESPONSE"
	CodeRecognition        = "RECOGNITION_FAILED"
	CodePayloadTooLarge    = "PAYLOAD_TOO_LARGE"
	CodeUnsupportedMedia   = "UNSUPPORTED_MEDIA_TYPE"
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

// InvalidInputf builds an INVALID_INPUT error wrapping ErrInvalidInput.
func InvalidInputf(format string, args ...interface{}) *AppError {
	return NewAppError(CodeInvalidInput, fmt.Sprintf(format, args...), ErrInvalidInput)
}

// NotFoundf builds a NOT_FOUND error wrapping ErrNotFound.
func NotFoundf(format string, args ...interface{}) *AppError {
	return NewAppError(CodeNotFound, fmt.Sprintf(format, args...), ErrNotFound)
}

// ErrorCode returns the AppError code carried by err, or INTERNAL.
func ErrorCode(err error) string {
	var appErr *AppError
	if errors.As(err, &appErr) && appErr.Code != "" {
		return appErr.Code
	}
	switch GRPCCode(err) {
	case codes.InvalidArgument:
		return CodeInvalidInput
	case codes.NotFound:
		return CodeNotFound
	case codes.Unavailable, codes.DeadlineExceeded:
		return CodeServiceUnavailable
	}
	return CodeInternal
}

// ErrorMessage returns the caller-facing message for err.
func ErrorMessage(err error) string {
	var appErr *AppError
	if errors.As(err, &appErr) && appErr.Message != "" {
		return appErr.Message
	}
	if st, ok := status.FromError(err); ok && st.Code() != codes.Unknown {
		return st.Message()
	}
	return "internal error"
}

// GRPCCode classifies err into the gRPC code space shared by both transports.
func GRPCCode(err error) codes.Code {
	switch {
	case err == nil:
		return codes.OK
	case errors.Is(err, ErrInvalidInput), errors.Is(err, ErrValidation):
		return codes.InvalidArgument
	case errors.Is(err, ErrNotFound):
		return codes.NotFound
	case errors.Is(err, ErrUnavailable):
		return codes.Unavailable
	case errors.Is(err, context.DeadlineExceeded):
		return codes.DeadlineExceeded
	case errors.Is(err, context.Canceled):
		return codes.Canceled
	case errors.Is(err, ErrInvalidUpstream):
		return codes.DataLoss
	case errors.Is(err, ErrRecognition):
		return codes.FailedPrecondition
	case errors.Is(err, ErrPayloadTooLarge):
		return codes.ResourceExhausted
	case errors.Is(err, ErrUnsupportedMedia):
		return codes.InvalidArgument
	}
	if st, ok := status.FromError(err); ok {
		return st.Code()
	}
	return codes.Internal
}

// HTTPStatus translates err into a transport status code.
func HTTPStatus(err error) int {
	if errors.Is(err, ErrUnsupportedMedia) {
		return http.StatusUnsupportedMediaType
	}
	switch GRPCCode(err) {
	case codes.OK:
		return http.StatusOK
	case codes.InvalidArgument:
		return http.StatusBadRequest
	case codes.NotFound:
		return http.StatusNotFound
	case codes.Unavailable:
		return http.StatusServiceUnavailable
	case codes.DeadlineExceeded:
		return http.StatusGatewayTimeout
	case codes.DataLoss:
		return http.StatusBadGateway
	case codes.FailedPrecondition:
		return http.StatusUnprocessableEntity
	case codes.ResourceExhausted:
		return http.StatusRequestEntityTooLarge
	case codes.Canceled:
		return http.StatusRequestTimeout
	default:
		return http.StatusInternalServerError
	}
}
