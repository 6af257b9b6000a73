package main

import (
	"context"
	"net/http"

	"github.com/gin-gonic/gin"

	"aurora-dashboard/internal/httpapi"
	"aurora-dashboard/internal/rbac"
	"aurora-dashboard/internal/telephony"
)

type routeDeps struct {
	Handlers httpapi.Handlers
	Twilio   telephony.StatusHandler
	AuthMW   gin.HandlerFunc

	// Jobs may be nil, which disables per-tenant job limits.
	Jobs httpapi.SlotLimiter
	// Ready reports backing-store health for /readyz.
	Ready func(ctx context.Context) error
}

// registerRoutes wires HTTP routes to handlers.
// Keep this file free of business logic. Handlers should delegate to internal modules.
func registerRoutes(r *gin.Engine, d routeDeps) {
	h := d.Handlers

	// public
	r.GET("/healthz", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})
	r.GET("/readyz", func(c *gin.Context) {
		if d.Ready != nil {
			if err := d.Ready(c.Request.Context()); err != nil {
				c.JSON(http.StatusServiceUnavailable, gin.H{"status": "unavailable"})
				return
			}
		}
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})

	// Provider webhooks authenticate by signature, not bearer token.
	r.POST("/webhooks/twilio/status", d.Twilio.HandleStatus)

	v1 := r.Group("/v1")
	v1.Use(d.AuthMW, rbac.RequireTenant(), httpapi.AttachActor(), rbac.RequireAnyRole(rbac.Readers...))
	{
		a := v1.Group("/analytics")
		a.GET("", h.GetAnalytics)
		a.GET("/performance", h.GetPerformance)
		a.GET("/predictive", h.GetPredictive)
		a.GET("/realtime", h.GetRealTime)
		a.GET("/patterns", h.GetPatterns)

		v1.GET("/dashboard", h.GetDashboard)

		c := v1.Group("/calls")
		c.GET("", h.ListCalls)
		c.GET("/:call_id", h.GetCall)
		c.GET("/:call_id/interactions", h.ListInteractions)

		v1.POST("/exports", httpapi.LimitJobs(d.Jobs, httpapi.JobExport), h.CreateExport)
		v1.POST("/reports", httpapi.LimitJobs(d.Jobs, httpapi.JobReport), h.CreateReport)
		v1.GET("/quality", httpapi.LimitJobs(d.Jobs, httpapi.JobQuality), h.GetQuality)

		// Writes are limited to tenant managers.
		m := v1.Group("")
		m.Use(rbac.RequireAnyRole(rbac.Managers...))
		{
			m.POST("/imports", httpapi.LimitJobs(d.Jobs, httpapi.JobImport), h.CreateImport)
			m.POST("/rollups/recompute", httpapi.LimitJobs(d.Jobs, httpapi.JobRollup), h.RecomputeRollups)
			m.POST("/agents", h.CreateAgent)
			m.POST("/agents/:agent_id/calls", h.StartAgentCall)
		}
	}
}
