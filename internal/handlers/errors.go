package handlers

import (
	"errors"
	"net/http"

	apperrors "resvalidator/pkg/errors"

	"github.com/gin-gonic/gin"
)

// statusFor maps service errors onto HTTP status codes.
func statusFor(err error) int {
	var backendErr *apperrors.BackendError
	switch {
	case errors.Is(err, apperrors.ErrEmptyInput),
		errors.Is(err, apperrors.ErrRestrictedBatch),
		errors.Is(err, apperrors.ErrTooManyLines),
		errors.Is(err, apperrors.ErrInvalidLine),
		errors.Is(err, apperrors.ErrInvalidASN):
		return http.StatusBadRequest
	case errors.Is(err, apperrors.ErrScanInProgress):
		return http.StatusConflict
	case errors.Is(err, apperrors.ErrInvalidPassword):
		return http.StatusUnauthorized
	case errors.Is(err, apperrors.ErrNotPrivileged):
		return http.StatusForbidden
	case errors.Is(err, apperrors.ErrHistoryNotFound):
		return http.StatusNotFound
	case errors.As(err, &backendErr):
		return http.StatusBadGateway
	default:
		return http.StatusInternalServerError
	}
}

func errorBody(err error) gin.H {
	body := gin.H{"error": err.Error()}

	var lineErr *apperrors.LineError
	if errors.As(err, &lineErr) {
		body["position"] = lineErr.Position
		body["line"] = lineErr.Line
	}
	var backendErr *apperrors.BackendError
	if errors.As(err, &backendErr) {
		body["error"] = backendErr.Message
	}
	return body
}

func abortWithError(c *gin.Context, err error) {
	c.AbortWithStatusJSON(statusFor(err), errorBody(err))
}
