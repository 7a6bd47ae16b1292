package handlers

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/rafaelleal24/inventory/internal/core/logger"
	"github.com/rafaelleal24/inventory/internal/core/serviceerrors"
)

type ErrorResponse struct {
	Error   string         `json:"error"`
	Details map[string]any `json:"details,omitempty"`
}

// HandleError writes typed service errors with their mapped status. Anything
// else is logged and answered with a generic 500.
func HandleError(c *gin.Context, err error) {
	var svcErr *serviceerrors.ServiceError
	if errors.As(err, &svcErr) {
		c.AbortWithStatusJSON(mapKindToHTTP(svcErr.Kind), ErrorResponse{
			Error:   svcErr.Message,
			Details: svcErr.Details,
		})
		return
	}

	logger.Error(c.Request.Context(), "unexpected error", err, map[string]any{
		"http.method": c.Request.Method,
		"http.route":  c.FullPath(),
	})
	c.AbortWithStatusJSON(http.StatusInternalServerError, ErrorResponse{Error: "internal server error"})
}

func mapKindToHTTP(kind serviceerrors.ErrorKind) int {
	switch kind {
	case serviceerrors.KindNotFound:
		return http.StatusNotFound
	case serviceerrors.KindConflict, serviceerrors.KindInsufficientStock:
		return http.StatusConflict
	case serviceerrors.KindUnprocessableEntity:
		return http.StatusUnprocessableEntity
	case serviceerrors.KindInvalidRequest:
		return http.StatusBadRequest
	case serviceerrors.KindForbidden:
		return http.StatusForbidden
	case serviceerrors.KindUnauthorized:
		return http.StatusUnauthorized
	default:
		return http.StatusInternalServerError
	}
}
