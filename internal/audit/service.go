package audit

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	"github.com/google/uuid"

	"aurora-dashboard/pkg/logger"
)

// Repository is the persistence contract for audit events.
//
// It MUST be append-only. No Update/Delete methods exist.
type Repository interface {
	Append(ctx context.Context, e Event) error
}

// Service records tenant-scoped audit events.
//
// IMPORTANT:
// - Audit is internal-only. Do not expose these records to tenant users by default.
// - Callers should treat audit logging as best-effort (see Record).
type Service struct {
	repo  Repository
	clock func() time.Time
}

func NewService(repo Repository) *Service {
	return &Service{repo: repo, clock: time.Now}
}

var ErrInvalidEvent = errors.New("audit: invalid event")

func (s *Service) Append(ctx context.Context, e Event) error {
	if s == nil || s.repo == nil {
		return errors.New("audit: repository not configured")
	}
	if e.TenantID == "" || e.Type == "" {
		return ErrInvalidEvent
	}

	now := s.clock().UTC()
	if e.ID == "" {
		e.ID = uuid.NewString()
	}
	if e.CreatedAt.IsZero() {
		e.CreatedAt = now
	}
	return s.repo.Append(ctx, e)
}

// Record appends an event attributed to the actor in ctx. Failures are logged, never returned.
func (s *Service) Record(ctx context.Context, tenantID string, typ EventType, message string, metadata map[string]any) {
	if s == nil {
		return
	}
	a := ActorFrom(ctx)
	e := Event{
		TenantID:    tenantID,
		Type:        typ,
		ActorUserID: a.UserID,
		ActorRole:   a.Role,
		IPAddress:   a.IP,
		Message:     message,
		Metadata:    EncodeMetadata(metadata),
	}
	if id, ok := metadata["call_id"].(string); ok {
		e.CallID = id
	}
	if err := s.Append(ctx, e); err != nil {
		logger.From(ctx).Warn("audit append failed", "type", string(typ), "tenant_id", tenantID, "err", err)
	}
}

// EncodeMetadata renders metadata as a JSON object; nil or unencodable input yields "".
func EncodeMetadata(m map[string]any) string {
	if len(m) == 0 {
		return ""
	}
	b, err := json.Marshal(m)
	if err != nil {
		return ""
	}
	return string(b)
}
