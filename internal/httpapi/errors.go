package httpapi

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"aurora-dashboard/internal/analytics"
	"aurora-dashboard/internal/calls"
	"aurora-dashboard/internal/provisioning"
	"aurora-dashboard/internal/reporting"
	"aurora-dashboard/pkg/logger"
)

// statusFor maps service errors onto HTTP statuses. Unknown errors are 500.
func statusFor(err error) int {
	switch {
	case errors.Is(err, analytics.ErrInvalidWindow),
		errors.Is(err, analytics.ErrInvalidRequest),
		errors.Is(err, reporting.ErrInvalidRequest),
		errors.Is(err, reporting.ErrUnsupportedFormat),
		errors.Is(err, calls.ErrInvalidRecord),
		errors.Is(err, provisioning.ErrInvalidProfile),
		errors.Is(err, provisioning.ErrMissingAgent):
		return http.StatusBadRequest
	case errors.Is(err, calls.ErrNotFound):
		return http.StatusNotFound
	case errors.Is(err, calls.ErrConflict):
		return http.StatusConflict
	case errors.Is(err, provisioning.ErrWebhookFailed):
		return http.StatusBadGateway
	case errors.Is(err, provisioning.ErrNotConfigured):
		return http.StatusServiceUnavailable
	default:
		return http.StatusInternalServerError
	}
}

// writeError aborts with the mapped status. Internal failures are logged and never echoed.
func writeError(c *gin.Context, err error) {
	status := statusFor(err)
	if status >= http.StatusInternalServerError {
		logger.FromGin(c).Error("request failed", "path", c.FullPath(), "err", err)
		_ = c.Error(err)
		msg := "internal error"
		if status == http.StatusServiceUnavailable {
			msg = "service not configured"
		}
		c.AbortWithStatusJSON(status, gin.H{"error": msg})
		return
	}
	if status == http.StatusBadGateway {
		logger.FromGin(c).Warn("upstream failed", "path", c.FullPath(), "err", err)
		c.AbortWithStatusJSON(status, gin.H{"error": "upstream workflow failed"})
		return
	}
	c.AbortWithStatusJSON(status, gin.H{"error": err.Error()})
}
