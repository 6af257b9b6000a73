package audit

import "time"

// Event is an immutable, append-only audit log record.
//
// Invariants:
// - Events are never updated or deleted.
// - tenant_id is required for tenancy isolation.
// - actor and ip capture are best-effort; data tools never fail because audit failed.
type Event struct {
	ID       string `json:"id" db:"id"`
	TenantID string `json:"tenant_id" db:"tenant_id"`

	Type EventType `json:"type" db:"type"`

	ActorUserID string `json:"actor_user_id,omitempty" db:"actor_user_id"`
	ActorRole   string `json:"actor_role,omitempty" db:"actor_role"`
	IPAddress   string `json:"ip_address,omitempty" db:"ip_address"`

	CallID string `json:"call_id,omitempty" db:"call_id"`

	// Message is a short human-readable description for internal ops.
	Message string `json:"message,omitempty" db:"message"`

	// Metadata is optional JSON for full details.
	Metadata string `json:"metadata,omitempty" db:"metadata"`

	CreatedAt time.Time `json:"created_at" db:"created_at"`
}

type EventType string

const (
	EventTypeExport           EventType = "data_export"
	EventTypeImport           EventType = "data_import"
	EventTypeReport           EventType = "report_generated"
	EventTypePatternAnalysis  EventType = "pattern_analysis"
	EventTypeQualityCheck     EventType = "quality_check"
	EventTypeRollup           EventType = "rollup_recomputed"
	EventTypeAgentProvisioned EventType = "agent_provisioned"
)

// Actor identifies who triggered an event.
type Actor struct {
	UserID string
	Role   string
	IP     string
}
