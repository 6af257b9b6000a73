package httpapi

import (
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"

	"aurora-dashboard/internal/audit"
	"aurora-dashboard/internal/calls"
	"aurora-dashboard/internal/provisioning"
	"aurora-dashboard/internal/reporting"
)

// maxImportBody bounds import request bodies.
const maxImportBody = 10 << 20

const headerFallbackFormat = "X-Report-Fallback-Format"

var errBadDate = errors.New("dates must be RFC 3339 timestamps or YYYY-MM-DD")

func (h Handlers) location() *time.Location {
	if h.Location == nil {
		return time.UTC
	}
	return h.Location
}

// parseBound reads an RFC 3339 instant or a local date. A date used as an upper bound
// covers the whole day.
func (h Handlers) parseBound(v string, upper bool) (time.Time, error) {
	v = strings.TrimSpace(v)
	if v == "" {
		return time.Time{}, nil
	}
	if t, err := time.Parse(time.RFC3339, v); err == nil {
		return t, nil
	}
	d, err := time.ParseInLocation(time.DateOnly, v, h.location())
	if err != nil {
		return time.Time{}, errBadDate
	}
	if upper {
		return d.AddDate(0, 0, 1).Add(-time.Nanosecond), nil
	}
	return d, nil
}

func sendFile(c *gin.Context, f reporting.File) {
	c.Header("Content-Disposition", fmt.Sprintf("attachment; filename=%q", f.Filename))
	c.Data(http.StatusOK, f.ContentType, f.Body)
}

// --- Export ---

type exportRequest struct {
	Format              string         `json:"format"`
	From                string         `json:"from"`
	To                  string         `json:"to"`
	IncludeInteractions bool           `json:"include_interactions"`
	IncludeOutcomes     bool           `json:"include_outcomes"`
	CallTypes           []string       `json:"call_types"`
	Statuses            []calls.Status `json:"statuses"`
	MinSatisfaction     int            `json:"satisfaction_min"`
}

func (h Handlers) CreateExport(c *gin.Context) {
	tid, ok := tenant(c)
	if !ok {
		return
	}
	var req exportRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.AbortWithStatusJSON(http.StatusBadRequest, gin.H{"error": "invalid json"})
		return
	}
	from, err := h.parseBound(req.From, false)
	if err != nil {
		c.AbortWithStatusJSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	to, err := h.parseBound(req.To, true)
	if err != nil {
		c.AbortWithStatusJSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	res, err := h.Tools.Export(c.Request.Context(), tid, reporting.ExportOptions{
		Format:              reporting.ExportFormat(strings.ToLower(req.Format)),
		From:                from,
		To:                  to,
		IncludeInteractions: req.IncludeInteractions,
		IncludeOutcomes:     req.IncludeOutcomes,
		CallTypes:           req.CallTypes,
		Statuses:            req.Statuses,
		MinSatisfaction:     req.MinSatisfaction,
	})
	if err != nil {
		writeError(c, err)
		return
	}
	c.Header("X-Export-Records", fmt.Sprint(res.Records))
	sendFile(c, res.File)
}

// --- Import ---

type importRequest struct {
	Rows           []reporting.Row        `json:"rows"`
	Mapping        reporting.FieldMapping `json:"mapping"`
	RequiredFields []string               `json:"required_fields"`
	DateFormat     string                 `json:"date_format"`
	Timezone       string                 `json:"timezone"`
}

// CreateImport accepts JSON ({"rows": [...], ...}) for source json and api, and a raw CSV
// body for source csv with options in the query (required_fields, date_format, timezone,
// mapping[phone_number]=Column ...).
func (h Handlers) CreateImport(c *gin.Context) {
	tid, ok := tenant(c)
	if !ok {
		return
	}
	source := reporting.ImportSource(strings.ToLower(c.DefaultQuery("source", string(reporting.SourceJSON))))
	c.Request.Body = http.MaxBytesReader(c.Writer, c.Request.Body, maxImportBody)

	var (
		rows []reporting.Row
		opts = reporting.ImportOptions{Source: source}
	)
	switch source {
	case reporting.SourceCSV:
		parsed, err := reporting.ParseRows(source, c.Request.Body)
		if err != nil {
			writeError(c, err)
			return
		}
		rows = parsed
		opts.Mapping = mappingFromQuery(c.QueryMap("mapping"))
		if rf := strings.TrimSpace(c.Query("required_fields")); rf != "" {
			opts.RequiredFields = splitList(rf)
		}
		opts.DateFormat = c.Query("date_format")
		opts.Timezone = c.Query("timezone")
	case reporting.SourceJSON, reporting.SourceAPI:
		var req importRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			c.AbortWithStatusJSON(http.StatusBadRequest, gin.H{"error": "invalid json"})
			return
		}
		rows = req.Rows
		opts.Mapping = req.Mapping
		opts.RequiredFields = req.RequiredFields
		opts.DateFormat = req.DateFormat
		opts.Timezone = req.Timezone
	}

	res, err := h.Tools.Import(c.Request.Context(), tid, rows, opts)
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, res)
}

func mappingFromQuery(q map[string]string) reporting.FieldMapping {
	m := reporting.FieldMapping{
		PhoneNumber:  q["phone_number"],
		CallerName:   q["caller_name"],
		CallType:     q["call_type"],
		Duration:     q["duration"],
		Satisfaction: q["satisfaction"],
		Timestamp:    q["timestamp"],
	}
	for k, v := range q {
		if name, ok := strings.CutPrefix(k, "extra."); ok && name != "" {
			if m.Extra == nil {
				m.Extra = map[string]string{}
			}
			m.Extra[name] = v
		}
	}
	return m
}

func splitList(v string) []string {
	var out []string
	for _, p := range strings.Split(v, ",") {
		if p = strings.TrimSpace(p); p != "" {
			out = append(out, p)
		}
	}
	return out
}

// --- Reports, patterns, quality ---

func (h Handlers) CreateReport(c *gin.Context) {
	tid, ok := tenant(c)
	if !ok {
		return
	}
	var cfg reporting.ReportConfig
	if err := c.ShouldBindJSON(&cfg); err != nil {
		c.AbortWithStatusJSON(http.StatusBadRequest, gin.H{"error": "invalid json"})
		return
	}
	res, err := h.Tools.GenerateReport(c.Request.Context(), tid, cfg)
	if err != nil {
		writeError(c, err)
		return
	}
	if res.FallbackFormat != "" {
		c.Header(headerFallbackFormat, string(res.FallbackFormat))
	}
	sendFile(c, res.File)
}

func (h Handlers) GetQuality(c *gin.Context) {
	tid, ok := tenant(c)
	if !ok {
		return
	}
	out, err := h.Tools.ValidateDataQuality(c.Request.Context(), tid)
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, out)
}

// --- Rollups ---

type recomputeRequest struct {
	From string `json:"from"`
	To   string `json:"to"`
}

func (h Handlers) RecomputeRollups(c *gin.Context) {
	tid, ok := tenant(c)
	if !ok {
		return
	}
	var req recomputeRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.AbortWithStatusJSON(http.StatusBadRequest, gin.H{"error": "invalid json"})
		return
	}
	from, err := h.parseBound(req.From, false)
	if err != nil || from.IsZero() {
		c.AbortWithStatusJSON(http.StatusBadRequest, gin.H{"error": "from: " + errBadDate.Error()})
		return
	}
	to := from
	if req.To != "" {
		if to, err = h.parseBound(req.To, false); err != nil {
			c.AbortWithStatusJSON(http.StatusBadRequest, gin.H{"error": "to: " + err.Error()})
			return
		}
	}

	res, err := h.Rollups.RecomputeRange(c.Request.Context(), tid, from, to)
	if err != nil {
		writeError(c, err)
		return
	}
	h.record(c, tid, audit.EventTypeRollup, fmt.Sprintf("recomputed %d days", res.Days), map[string]any{
		"from":  res.From.Format(time.DateOnly),
		"to":    res.To.Format(time.DateOnly),
		"days":  res.Days,
		"weeks": res.Weeks,
	})
	c.JSON(http.StatusOK, res)
}

// --- Agents ---

func (h Handlers) CreateAgent(c *gin.Context) {
	tid, ok := tenant(c)
	if !ok {
		return
	}
	var p provisioning.BusinessProfile
	if err := c.ShouldBindJSON(&p); err != nil {
		c.AbortWithStatusJSON(http.StatusBadRequest, gin.H{"error": "invalid json"})
		return
	}
	agent, err := h.Agents.CreateAgent(c.Request.Context(), p)
	if err != nil {
		writeError(c, err)
		return
	}
	h.record(c, tid, audit.EventTypeAgentProvisioned, "provisioned agent for "+p.Name, map[string]any{
		"agent_id": agent.ID,
		"place_id": p.PlaceID,
	})
	c.JSON(http.StatusCreated, agent)
}

func (h Handlers) StartAgentCall(c *gin.Context) {
	if _, ok := tenant(c); !ok {
		return
	}
	out, err := h.Agents.StartCall(c.Request.Context(), c.Param("agent_id"))
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusAccepted, gin.H{"data": out})
}
