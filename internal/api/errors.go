package api

import (
	"errors"
	"net/http"

	"storefront/internal/apperr"
	"storefront/internal/service"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

const genericErrorMessage = "Something went wrong. Please try again."

var statusByKind = map[apperr.Kind]int{
	apperr.Validation:        http.StatusBadRequest,
	apperr.NotFound:          http.StatusNotFound,
	apperr.InvalidTransition: http.StatusConflict,
	apperr.ExternalService:   http.StatusBadGateway,
	apperr.RateLimited:       http.StatusTooManyRequests,
	apperr.Unauthorized:      http.StatusUnauthorized,
	apperr.Forbidden:         http.StatusForbidden,
	apperr.Conflict:          http.StatusConflict,
}

// respondError writes err as JSON. Only apperr messages reach the client.
func (h *Handler) respondError(c *gin.Context, err error) {
	var appErr *apperr.Error
	if !errors.As(err, &appErr) || appErr.Kind == apperr.Unknown {
		h.logger.Error("Request failed",
			zap.String("method", c.Request.Method),
			zap.String("path", c.FullPath()),
			zap.Error(err))
		c.AbortWithStatusJSON(http.StatusInternalServerError, gin.H{"error": genericErrorMessage})
		return
	}

	status, ok := statusByKind[appErr.Kind]
	if !ok {
		status = http.StatusInternalServerError
	}
	if status >= http.StatusInternalServerError {
		h.logger.Warn("Upstream failure", zap.String("path", c.FullPath()), zap.Error(err))
	}

	message := appErr.Message
	if appErr.Kind == apperr.ExternalService && appErr.Code == "" {
		message = genericErrorMessage
	}
	body := gin.H{"error": message}
	if appErr.Code != "" {
		body["code"] = appErr.Code
	}
	c.AbortWithStatusJSON(status, body)
}

// bind decodes the JSON body into req and reports failures as validation errors
func (h *Handler) bind(c *gin.Context, req interface{}) bool {
	if err := c.ShouldBindJSON(req); err != nil {
		h.respondError(c, service.AsValidationError(err))
		return false
	}
	return true
}
