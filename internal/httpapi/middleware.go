package httpapi

import (
	"context"
	"net/http"

	"github.com/gin-gonic/gin"

	"aurora-dashboard/internal/audit"
	"aurora-dashboard/internal/auth"
	"aurora-dashboard/pkg/logger"
)

// Job kinds share one per-tenant slot pool each.
const (
	JobExport  = "export"
	JobReport  = "report"
	JobImport  = "import"
	JobQuality = "quality"
	JobRollup  = "rollup"
)

// SlotLimiter caps concurrent heavy jobs per tenant (utils.JobSlots in production).
type SlotLimiter interface {
	Acquire(ctx context.Context, tenantID, kind string) (bool, error)
	Release(ctx context.Context, tenantID, kind string) error
}

// LimitJobs rejects the request with 429 when the tenant already runs its quota of kind.
// A limiter outage lets the request through; the slot pool protects capacity, not correctness.
func LimitJobs(l SlotLimiter, kind string) gin.HandlerFunc {
	return func(c *gin.Context) {
		if l == nil {
			c.Next()
			return
		}
		tid, err := auth.TenantID(c.Request.Context())
		if err != nil {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "tenant_id required"})
			return
		}
		ctx := c.Request.Context()

		ok, err := l.Acquire(ctx, tid, kind)
		if err != nil {
			logger.FromGin(c).Warn("job limiter unavailable", "kind", kind, "err", err)
			c.Next()
			return
		}
		if !ok {
			c.AbortWithStatusJSON(http.StatusTooManyRequests, gin.H{"error": "too many " + kind + " jobs running"})
			return
		}
		defer func() {
			if err := l.Release(context.WithoutCancel(ctx), tid, kind); err != nil {
				logger.FromGin(c).Warn("job slot release failed", "kind", kind, "err", err)
			}
		}()
		c.Next()
	}
}

// AttachActor copies the caller identity and client IP into the request context for audit events.
func AttachActor() gin.HandlerFunc {
	return func(c *gin.Context) {
		ctx := c.Request.Context()
		uid, _ := auth.UserID(ctx)
		role, _ := auth.Role(ctx)
		c.Request = c.Request.WithContext(audit.WithActor(ctx, audit.Actor{UserID: uid, Role: role, IP: c.ClientIP()}))
		c.Next()
	}
}
