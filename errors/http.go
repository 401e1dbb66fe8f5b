package errors

import (
	stderrors "errors"
	"net/http"
)

// MapToHTTPStatus translates domain errors into HTTP status codes.
// Anything unrecognized is an internal error.
func MapToHTTPStatus(err error) int {
	switch {
	case stderrors.Is(err, ErrUserAlreadyExists), stderrors.Is(err, ErrInvalidPayload):
		return http.StatusBadRequest
	case stderrors.Is(err, ErrInvalidCredentials), stderrors.Is(err, ErrInvalidToken):
		return http.StatusUnauthorized
	default:
		return http.StatusInternalServerError
	}
}
