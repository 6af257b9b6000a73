package reporting

import (
	"time"

	"aurora-dashboard/internal/analytics"
	"aurora-dashboard/internal/calls"
)

// ExportFormat is the serialization of an export.
type ExportFormat string

const (
	ExportCSV  ExportFormat = "csv"
	ExportJSON ExportFormat = "json"
	ExportXLSX ExportFormat = "xlsx"
)

// ExportOptions selects and shapes exported calls.
// From and To are inclusive; a zero bound is open. MinSatisfaction 0 disables the score filter.
type ExportOptions struct {
	Format ExportFormat `json:"format"`

	From time.Time `json:"from"`
	To   time.Time `json:"to"`

	IncludeInteractions bool `json:"include_interactions"`
	IncludeOutcomes     bool `json:"include_outcomes"`

	CallTypes       []string       `json:"call_types,omitempty"`
	Statuses        []calls.Status `json:"statuses,omitempty"`
	MinSatisfaction int            `json:"satisfaction_min,omitempty"`
}

// File is a rendered export or report.
type File struct {
	Filename    string `json:"filename"`
	ContentType string `json:"content_type"`
	Body        []byte `json:"-"`
}

type ExportResult struct {
	File
	Format  ExportFormat `json:"format"`
	Records int          `json:"records"`
}

type ImportSource string

const (
	SourceCSV  ImportSource = "csv"
	SourceJSON ImportSource = "json"
	SourceAPI  ImportSource = "api"
)

// FieldMapping names the external column for each internal field. Empty names fall back to
// phoneNumber, callerName, callType, duration, satisfaction and timestamp.
// Extra maps metadata keys to external columns copied verbatim into the record's metadata.
type FieldMapping struct {
	PhoneNumber  string `json:"phone_number,omitempty"`
	CallerName   string `json:"caller_name,omitempty"`
	CallType     string `json:"call_type,omitempty"`
	Duration     string `json:"duration,omitempty"`
	Satisfaction string `json:"satisfaction,omitempty"`
	Timestamp    string `json:"timestamp,omitempty"`

	Extra map[string]string `json:"extra,omitempty"`
}

type ImportOptions struct {
	Source  ImportSource `json:"source"`
	Mapping FieldMapping `json:"mapping"`

	// RequiredFields are external column names that must be present and non-empty.
	RequiredFields []string `json:"required_fields,omitempty"`
	// DateFormat is a Go time layout for the timestamp column (RFC 3339 when empty).
	DateFormat string `json:"date_format,omitempty"`
	// Timezone is applied to timestamps whose layout carries no zone.
	Timezone string `json:"timezone,omitempty"`
}

// Row is one input record keyed by external column name.
type Row map[string]any

type ImportResult struct {
	Imported int      `json:"imported"`
	Failed   int      `json:"failed"`
	Errors   []string `json:"errors"`
}

type ReportFormat string

const (
	ReportPDF  ReportFormat = "pdf"
	ReportHTML ReportFormat = "html"
	ReportJSON ReportFormat = "json"
)

// ReportSchedule is stored with the config for the caller's scheduler; nothing here runs it.
type ReportSchedule struct {
	Frequency  string   `json:"frequency"`
	Time       string   `json:"time"`
	Recipients []string `json:"recipients,omitempty"`
}

type ReportConfig struct {
	Name        string           `json:"name"`
	Description string           `json:"description,omitempty"`
	Metrics     []string         `json:"metrics,omitempty"`
	TimeRange   analytics.Window `json:"time_range"`
	Format      ReportFormat     `json:"format"`
	Schedule    *ReportSchedule  `json:"schedule,omitempty"`
}

type ReportData struct {
	Config      ReportConfig                  `json:"config"`
	GeneratedAt time.Time                     `json:"generated_at"`
	Analytics   analytics.Analytics           `json:"analytics"`
	Performance analytics.PerformanceMetrics  `json:"performance"`
	Predictive  analytics.PredictiveAnalytics `json:"predictive"`
	Summary     string                        `json:"summary"`
}

// ReportResult carries the rendered report. FallbackFormat is set when the requested
// format has no renderer and another one was produced instead.
type ReportResult struct {
	File
	Format         ReportFormat `json:"format"`
	FallbackFormat ReportFormat `json:"fallback_format,omitempty"`
	Data           ReportData   `json:"-"`
}

type Patterns struct {
	HourlyDistribution map[string]int   `json:"hourly_distribution"`
	DailyDistribution  map[string]int   `json:"daily_distribution"`
	CallTypeTrends     map[string][]int `json:"call_type_trends"`
	DurationTrends     []float64        `json:"duration_trends"`
}

type PatternAnalysis struct {
	TenantID        string           `json:"tenant_id"`
	Window          analytics.Window `json:"window"`
	Patterns        Patterns         `json:"patterns"`
	Insights        []string         `json:"insights"`
	Recommendations []string         `json:"recommendations"`
}

type IssueType string

const (
	IssueMissing      IssueType = "missing"
	IssueInvalid      IssueType = "invalid"
	IssueDuplicate    IssueType = "duplicate"
	IssueInconsistent IssueType = "inconsistent"
)

type Severity string

const (
	SeverityLow    Severity = "low"
	SeverityMedium Severity = "medium"
	SeverityHigh   Severity = "high"
)

type QualityIssue struct {
	Type        IssueType `json:"type"`
	Description string    `json:"description"`
	Count       int       `json:"count"`
	Severity    Severity  `json:"severity"`
}

type QualityReport struct {
	TenantID        string         `json:"tenant_id"`
	TotalRecords    int            `json:"total_records"`
	Score           int            `json:"score"`
	Issues          []QualityIssue `json:"issues"`
	Recommendations []string       `json:"recommendations"`
}
