package calls

import (
	"errors"
	"fmt"
	"time"
)

var (
	ErrNotFound      = errors.New("calls: not found")
	ErrConflict      = errors.New("calls: conflict")
	ErrInvalidRecord = errors.New("calls: invalid record")

	// ErrDataAccess marks failures coming from the store itself (query, network, permission).
	// Callers match it with errors.Is; the driver error stays wrapped next to it.
	ErrDataAccess = errors.New("calls: data access failed")
)

func dataAccess(op string, err error) error {
	return fmt.Errorf("%w: %s: %w", ErrDataAccess, op, err)
}

// Satisfaction scores are stored on a 1..5 scale.
const (
	MinSatisfaction = 1
	MaxSatisfaction = 5
)

// CallRecord is one call session handled for a tenant.
//
// Multi-tenant invariant: TenantID is required on every row and every read is scoped by it.
// Records are created when a call starts and then advanced in place; they are never deleted here.
type CallRecord struct {
	ID       string `json:"id" db:"id"`
	TenantID string `json:"tenant_id" db:"tenant_id"`

	// ProviderCallID is the telephony provider's identifier (Twilio CallSid), if any.
	ProviderCallID string `json:"provider_call_id,omitempty" db:"provider_call_id"`

	PhoneNumber string `json:"phone_number,omitempty" db:"phone_number"`
	CallerName  string `json:"caller_name,omitempty" db:"caller_name"`

	StartedAt time.Time  `json:"session_start" db:"session_start"`
	EndedAt   *time.Time `json:"session_end,omitempty" db:"session_end"`

	DurationSeconds int    `json:"duration_seconds" db:"duration_seconds"`
	Status          Status `json:"status" db:"status"`
	CallType        string `json:"call_type,omitempty" db:"call_type"`

	AIHandled        bool   `json:"ai_handled" db:"ai_handled"`
	HumanTransferred bool   `json:"human_transferred" db:"human_transferred"`
	TransferReason   string `json:"transfer_reason,omitempty" db:"transfer_reason"`

	SatisfactionScore *int `json:"satisfaction_score,omitempty" db:"satisfaction_score"`

	Transcript string `json:"transcript,omitempty" db:"transcript"`
	Summary    string `json:"summary,omitempty" db:"summary"`
	Notes      string `json:"notes,omitempty" db:"notes"`

	Metadata map[string]any `json:"metadata,omitempty" db:"metadata"`

	CreatedAt time.Time `json:"created_at" db:"created_at"`
	UpdatedAt time.Time `json:"updated_at" db:"updated_at"`
}

// At is the instant the record is bucketed under: session start, or creation time when the start is unknown.
func (r CallRecord) At() time.Time {
	if !r.StartedAt.IsZero() {
		return r.StartedAt
	}
	return r.CreatedAt
}

// Validate checks the fields the store relies on. Data-quality problems such as
// odd durations are left for the quality scanner to report.
func (r CallRecord) Validate() error {
	if r.ID == "" || r.TenantID == "" {
		return fmt.Errorf("%w: id and tenant_id required", ErrInvalidRecord)
	}
	if !r.Status.Valid() {
		return fmt.Errorf("%w: unknown status %q", ErrInvalidRecord, r.Status)
	}
	if s := r.SatisfactionScore; s != nil && (*s < MinSatisfaction || *s > MaxSatisfaction) {
		return fmt.Errorf("%w: satisfaction_score must be within %d..%d", ErrInvalidRecord, MinSatisfaction, MaxSatisfaction)
	}
	return nil
}

type Status string

const (
	StatusActive      Status = "active"
	StatusCompleted   Status = "completed"
	StatusFailed      Status = "failed"
	StatusTransferred Status = "transferred"
)

func (s Status) Valid() bool {
	switch s {
	case StatusActive, StatusCompleted, StatusFailed, StatusTransferred:
		return true
	default:
		return false
	}
}

// Terminal reports whether no further status transition is expected.
func (s Status) Terminal() bool { return s != StatusActive && s.Valid() }

type InteractionType string

const (
	InteractionUserInput    InteractionType = "user_input"
	InteractionAIResponse   InteractionType = "ai_response"
	InteractionSystemAction InteractionType = "system_action"
	InteractionTransfer     InteractionType = "transfer"
)

// Interaction is one turn inside a call. Reads return them ordered by OccurredAt.
type Interaction struct {
	ID         string          `json:"id" db:"id"`
	CallID     string          `json:"call_session_id" db:"call_session_id"`
	TenantID   string          `json:"tenant_id" db:"tenant_id"`
	Type       InteractionType `json:"interaction_type" db:"interaction_type"`
	Content    string          `json:"content" db:"content"`
	OccurredAt time.Time       `json:"timestamp" db:"occurred_at"`
	Metadata   map[string]any  `json:"metadata,omitempty" db:"metadata"`
}

type OutcomeType string

const (
	OutcomeAppointmentScheduled OutcomeType = "appointment_scheduled"
	OutcomeInformationProvided  OutcomeType = "information_provided"
	OutcomeIssueResolved        OutcomeType = "issue_resolved"
	OutcomeEscalated            OutcomeType = "escalated"
	OutcomeCallbackRequested    OutcomeType = "callback_requested"
	OutcomeNoAction             OutcomeType = "no_action"
)

type Outcome struct {
	ID        string         `json:"id" db:"id"`
	CallID    string         `json:"call_session_id" db:"call_session_id"`
	TenantID  string         `json:"tenant_id" db:"tenant_id"`
	Type      OutcomeType    `json:"outcome_type" db:"outcome_type"`
	Data      map[string]any `json:"outcome_data,omitempty" db:"outcome_data"`
	CreatedAt time.Time      `json:"created_at" db:"created_at"`
}

// DailyMetrics, HourlyMetrics and WeeklyMetrics are rollup caches.
// They are always re-derivable from CallRecord and are overwritten by key on recomputation.

type DailyMetrics struct {
	TenantID string    `json:"tenant_id" db:"tenant_id"`
	Date     time.Time `json:"date" db:"date"`

	TotalCalls       int `json:"total_calls" db:"total_calls"`
	CompletedCalls   int `json:"completed_calls" db:"completed_calls"`
	FailedCalls      int `json:"failed_calls" db:"failed_calls"`
	TransferredCalls int `json:"transferred_calls" db:"transferred_calls"`
	AIHandledCalls   int `json:"ai_handled_calls" db:"ai_handled_calls"`

	TotalDurationSeconds int     `json:"total_duration_seconds" db:"total_duration_seconds"`
	AvgDurationSeconds   float64 `json:"avg_duration_seconds" db:"avg_duration_seconds"`
	SuccessRate          float64 `json:"success_rate" db:"success_rate"`
	ScoredCalls          int     `json:"scored_calls" db:"scored_calls"`
	AvgSatisfaction      float64 `json:"avg_satisfaction" db:"avg_satisfaction"`

	CallTypes map[string]int `json:"call_types" db:"call_types"`

	ComputedAt time.Time `json:"computed_at" db:"computed_at"`
}

type HourlyMetrics struct {
	TenantID string    `json:"tenant_id" db:"tenant_id"`
	Date     time.Time `json:"date" db:"date"`
	Hour     int       `json:"hour" db:"hour"`

	TotalCalls         int     `json:"total_calls" db:"total_calls"`
	CompletedCalls     int     `json:"completed_calls" db:"completed_calls"`
	AvgDurationSeconds float64 `json:"avg_duration_seconds" db:"avg_duration_seconds"`

	ComputedAt time.Time `json:"computed_at" db:"computed_at"`
}

type WeeklyMetrics struct {
	TenantID  string    `json:"tenant_id" db:"tenant_id"`
	WeekStart time.Time `json:"week_start" db:"week_start"`
	WeekEnd   time.Time `json:"week_end" db:"week_end"`

	TotalCalls         int     `json:"total_calls" db:"total_calls"`
	CompletedCalls     int     `json:"completed_calls" db:"completed_calls"`
	FailedCalls        int     `json:"failed_calls" db:"failed_calls"`
	TransferredCalls   int     `json:"transferred_calls" db:"transferred_calls"`
	AvgDurationSeconds float64 `json:"avg_duration_seconds" db:"avg_duration_seconds"`
	SuccessRate        float64 `json:"success_rate" db:"success_rate"`
	AvgSatisfaction    float64 `json:"avg_satisfaction" db:"avg_satisfaction"`
	BusiestDay         string  `json:"busiest_day,omitempty" db:"busiest_day"`

	CallTypes map[string]int `json:"call_types" db:"call_types"`

	ComputedAt time.Time `json:"computed_at" db:"computed_at"`
}

// Tenant is the company that owns call data. PhoneNumber is the dialed number
// used to attribute provider webhooks.
type Tenant struct {
	ID          string `json:"id" db:"id"`
	Name        string `json:"name" db:"name"`
	PhoneNumber string `json:"phone_number" db:"phone_number"`
	Timezone    string `json:"timezone,omitempty" db:"timezone"`
}

// ListFilter narrows ListCalls. The time range is half-open [From, To); zero bounds are open.
// Limit 0 means no limit.
type ListFilter struct {
	From      time.Time
	To        time.Time
	Statuses  []Status
	CallTypes []string
	Limit     int
	Offset    int
}
