package errors

import "net/http"

// ErrorCode represents the type of error
type ErrorCode string

const (
	ErrNotFound       ErrorCode = "NOT_FOUND"
	ErrUnauthorized   ErrorCode = "UNAUTHORIZED"
	ErrForbidden      ErrorCode = "FORBIDDEN"
	ErrConflict       ErrorCode = "CONFLICT"
	ErrDuplicate      ErrorCode = "DUPLICATE"
	ErrValidation     ErrorCode = "VALIDATION_ERROR"
	ErrInvalidURL     ErrorCode = "INVALID_URL"
	ErrBadRequest     ErrorCode = "BAD_REQUEST"
	ErrBadSignature   ErrorCode = "INVALID_SIGNATURE"
	ErrPayloadTooBig  ErrorCode = "PAYLOAD_TOO_LARGE"
	ErrUnsupported    ErrorCode = "UNSUPPORTED_MEDIA_TYPE"
	ErrInternalError  ErrorCode = "INTERNAL_ERROR"
	ErrRateLimited    ErrorCode = "RATE_LIMITED"
	ErrServiceUnavail ErrorCode = "SERVICE_UNAVAILABLE"
)

// StatusCodeMap maps ErrorCode to HTTP status code
var StatusCodeMap = map[ErrorCode]int{
	ErrNotFound:       http.StatusNotFound,
	ErrUnauthorized:   http.StatusUnauthorized,
	ErrForbidden:      http.StatusForbidden,
	ErrConflict:       http.StatusConflict,
	ErrDuplicate:      http.StatusConflict,
	ErrValidation:     http.StatusUnprocessableEntity,
	ErrInvalidURL:     http.StatusUnprocessableEntity,
	ErrBadRequest:     http.StatusBadRequest,
	ErrBadSignature:   http.StatusBadRequest,
	ErrPayloadTooBig:  http.StatusRequestEntityTooLarge,
	ErrUnsupported:    http.StatusUnsupportedMediaType,
	ErrInternalError:  http.StatusInternalServerError,
	ErrRateLimited:    http.StatusTooManyRequests,
	ErrServiceUnavail: http.StatusServiceUnavailable,
}

// StatusCode returns the HTTP status code for this error code
func (e ErrorCode) StatusCode() int {
	if code, ok := StatusCodeMap[e]; ok {
		return code
	}
	return http.StatusInternalServerError
}
