package homeserver

import (
	"errors"
	"fmt"
	"net/http"
)

// MatrixError represents a structured error response from the Matrix homeserver.
// Callers can use errors.As to extract the structured information:
//
//	var matrixErr *MatrixError
//	if errors.As(err, &matrixErr) {
//	    if matrixErr.Code == ErrCodeUserInUse { ... }
//	}
type MatrixError struct {
	// Code is the Matrix error code (e.g., "M_FORBIDDEN", "M_USER_IN_USE").
	Code string `json:"errcode"`
	// Message is the human-readable error description from the server.
	Message string `json:"error"`
	// StatusCode is the HTTP status code of the response.
	StatusCode int `json:"-"`
}

func (e *MatrixError) Error() string {
	return fmt.Sprintf("matrix: %s (%d): %s", e.Code, e.StatusCode, e.Message)
}

// Standard Matrix error codes used by the bridge.
const (
	ErrCodeForbidden    = "M_FORBIDDEN"
	ErrCodeUnknownToken = "M_UNKNOWN_TOKEN"
	ErrCodeNotFound     = "M_NOT_FOUND"
	ErrCodeUserInUse    = "M_USER_IN_USE"
	ErrCodeInvalidParam = "M_INVALID_PARAM"
	ErrCodeUnknown      = "M_UNKNOWN"
)

// IsMatrixError checks whether err is a *MatrixError with the given error code.
func IsMatrixError(err error, code string) bool {
	var matrixErr *MatrixError
	if errors.As(err, &matrixErr) {
		return matrixErr.Code == code
	}
	return false
}

// IsAuthRejected reports whether err is the homeserver refusing the
// presented credentials (as opposed to a transport or server failure).
// This signals a desynchronized stored credential.
func IsAuthRejected(err error) bool {
	var matrixErr *MatrixError
	if !errors.As(err, &matrixErr) {
		return false
	}
	return matrixErr.StatusCode == http.StatusForbidden ||
		matrixErr.StatusCode == http.StatusUnauthorized ||
		matrixErr.Code == ErrCodeForbidden
}
