package httpapi

import (
	"context"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/gin-gonic/gin"

	"aurora-dashboard/internal/analytics"
	"aurora-dashboard/internal/audit"
	"aurora-dashboard/internal/auth"
	"aurora-dashboard/internal/calls"
	"aurora-dashboard/internal/provisioning"
	"aurora-dashboard/internal/reporting"
)

// Handlers groups HTTP handlers for dependency injection.
// Keep these thin: parse/validate input, call internal services, return JSON.
type Handlers struct {
	Calls     CallReader
	Engine    AnalyticsEngine
	Dashboard DashboardReader
	Tools     DataTools
	Rollups   RollupRunner
	Agents    AgentProvisioner
	Audit     Auditor

	// Location interprets date-only request fields. Nil means UTC.
	Location *time.Location
}

type CallReader interface {
	ListCalls(ctx context.Context, tenantID string, f calls.ListFilter) ([]calls.CallRecord, error)
	GetCall(ctx context.Context, tenantID, id string) (calls.CallRecord, error)
	ListInteractions(ctx context.Context, tenantID, callID string) ([]calls.Interaction, error)
}

type AnalyticsEngine interface {
	CalculateAnalytics(ctx context.Context, tenantID string, w analytics.Window) (analytics.Analytics, error)
	CalculatePerformanceMetrics(ctx context.Context, tenantID string) (analytics.PerformanceMetrics, error)
	CalculatePredictiveAnalytics(ctx context.Context, tenantID string) (analytics.PredictiveAnalytics, error)
	RealTime(ctx context.Context, tenantID string) (analytics.RealTimeMetrics, error)
}

type DashboardReader interface {
	Dashboard(ctx context.Context, tenantID string) (analytics.Dashboard, error)
}

// DataTools is the reporting surface: export, import, reports, patterns and quality.
type DataTools interface {
	Export(ctx context.Context, tenantID string, opts reporting.ExportOptions) (reporting.ExportResult, error)
	Import(ctx context.Context, tenantID string, rows []reporting.Row, opts reporting.ImportOptions) (reporting.ImportResult, error)
	GenerateReport(ctx context.Context, tenantID string, cfg reporting.ReportConfig) (reporting.ReportResult, error)
	AnalyzeCallPatterns(ctx context.Context, tenantID string, w analytics.Window) (reporting.PatternAnalysis, error)
	ValidateDataQuality(ctx context.Context, tenantID string) (reporting.QualityReport, error)
}

type RollupRunner interface {
	RecomputeRange(ctx context.Context, tenantID string, from, to time.Time) (analytics.RollupResult, error)
}

type AgentProvisioner interface {
	CreateAgent(ctx context.Context, p provisioning.BusinessProfile) (provisioning.Agent, error)
	StartCall(ctx context.Context, agentID string) (map[string]any, error)
}

type Auditor interface {
	Record(ctx context.Context, tenantID string, typ audit.EventType, message string, metadata map[string]any)
}

const (
	defaultPageSize = 50
	maxPageSize     = 200
)

// tenant reads the tenant id injected by auth.RequireAccessToken.
func tenant(c *gin.Context) (string, bool) {
	tid, err := auth.TenantID(c.Request.Context())
	if err != nil {
		c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "tenant_id required"})
		return "", false
	}
	return tid, true
}

func (h Handlers) record(c *gin.Context, tenantID string, typ audit.EventType, message string, metadata map[string]any) {
	if h.Audit != nil {
		h.Audit.Record(c.Request.Context(), tenantID, typ, message, metadata)
	}
}

// --- Analytics ---

func (h Handlers) GetAnalytics(c *gin.Context) {
	tid, ok := tenant(c)
	if !ok {
		return
	}
	w, err := analytics.ParseWindow(c.Query("window"))
	if err != nil {
		writeError(c, err)
		return
	}
	out, err := h.Engine.CalculateAnalytics(c.Request.Context(), tid, w)
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, out)
}

func (h Handlers) GetPerformance(c *gin.Context) {
	tid, ok := tenant(c)
	if !ok {
		return
	}
	out, err := h.Engine.CalculatePerformanceMetrics(c.Request.Context(), tid)
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, out)
}

func (h Handlers) GetPredictive(c *gin.Context) {
	tid, ok := tenant(c)
	if !ok {
		return
	}
	out, err := h.Engine.CalculatePredictiveAnalytics(c.Request.Context(), tid)
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, out)
}

func (h Handlers) GetRealTime(c *gin.Context) {
	tid, ok := tenant(c)
	if !ok {
		return
	}
	out, err := h.Engine.RealTime(c.Request.Context(), tid)
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, out)
}

func (h Handlers) GetPatterns(c *gin.Context) {
	tid, ok := tenant(c)
	if !ok {
		return
	}
	out, err := h.Tools.AnalyzeCallPatterns(c.Request.Context(), tid, analytics.Window(c.Query("window")))
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, out)
}

func (h Handlers) GetDashboard(c *gin.Context) {
	tid, ok := tenant(c)
	if !ok {
		return
	}
	out, err := h.Dashboard.Dashboard(c.Request.Context(), tid)
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, out)
}

// --- Calls ---

func (h Handlers) ListCalls(c *gin.Context) {
	tid, ok := tenant(c)
	if !ok {
		return
	}
	limit, err := queryInt(c, "limit", defaultPageSize)
	if err != nil || limit <= 0 || limit > maxPageSize {
		c.AbortWithStatusJSON(http.StatusBadRequest, gin.H{"error": "limit must be 1.." + strconv.Itoa(maxPageSize)})
		return
	}
	offset, err := queryInt(c, "offset", 0)
	if err != nil || offset < 0 {
		c.AbortWithStatusJSON(http.StatusBadRequest, gin.H{"error": "offset must be >= 0"})
		return
	}
	f := calls.ListFilter{Limit: limit, Offset: offset}
	if s := strings.TrimSpace(c.Query("status")); s != "" {
		st := calls.Status(s)
		if !st.Valid() {
			c.AbortWithStatusJSON(http.StatusBadRequest, gin.H{"error": "unknown status"})
			return
		}
		f.Statuses = []calls.Status{st}
	}
	if t := strings.TrimSpace(c.Query("call_type")); t != "" {
		f.CallTypes = []string{t}
	}

	out, err := h.Calls.ListCalls(c.Request.Context(), tid, f)
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"calls": out, "limit": limit, "offset": offset})
}

func (h Handlers) GetCall(c *gin.Context) {
	tid, ok := tenant(c)
	if !ok {
		return
	}
	out, err := h.Calls.GetCall(c.Request.Context(), tid, c.Param("call_id"))
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, out)
}

func (h Handlers) ListInteractions(c *gin.Context) {
	tid, ok := tenant(c)
	if !ok {
		return
	}
	ctx := c.Request.Context()
	// The call lookup scopes the id to the tenant and turns unknown ids into 404.
	if _, err := h.Calls.GetCall(ctx, tid, c.Param("call_id")); err != nil {
		writeError(c, err)
		return
	}
	out, err := h.Calls.ListInteractions(ctx, tid, c.Param("call_id"))
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"interactions": out})
}

func queryInt(c *gin.Context, key string, def int) (int, error) {
	v := strings.TrimSpace(c.Query(key))
	if v == "" {
		return def, nil
	}
	return strconv.Atoi(v)
}
