package httpx

import (
	"net/http"

	apperrors "github.com/monanga/monanga-business/internal/errors"
)

// statusForCode maps the application error taxonomy onto HTTP statuses.
// Validation and conflict both render as 400: a duplicate email is a bad
// request from the client's point of view, not a resource conflict.
func statusForCode(code apperrors.ErrorCode) int {
	switch code {
	case apperrors.ErrCodeValidation, apperrors.ErrCodeConflict, apperrors.ErrCodeForeignKey:
		return http.StatusBadRequest
	case apperrors.ErrCodeUnauthorized:
		return http.StatusUnauthorized
	case apperrors.ErrCodeForbidden:
		return http.StatusForbidden
	case apperrors.ErrCodeNotFound:
		return http.StatusNotFound
	case apperrors.ErrCodeRateLimited:
		return http.StatusTooManyRequests
	case apperrors.ErrCodeTimeout:
		return http.StatusServiceUnavailable
	case apperrors.ErrCodeCanceled:
		// Client went away; 499 is conventional but non-standard.
		return http.StatusBadRequest
	default:
		return http.StatusInternalServerError
	}
}

// RenderError maps any error onto the JSON error shape. Unrecognized errors
// render as an opaque 500 so internal details never reach the client.
func RenderError(w http.ResponseWriter, err error) {
	code := apperrors.GetCode(err)
	status := statusForCode(code)

	p := ErrorParams{
		Code:    status,
		ErrCode: string(code),
		Err:     err,
		Field:   apperrors.GetField(err),
	}
	if status == http.StatusInternalServerError {
		p.ErrCode = string(apperrors.ErrCodeInternal)
		p.Err = errInternal
	}
	WriteError(w, p)
}

// errInternal is the only message a 500 response carries.
var errInternal = apperrors.Internal("internal server error")
