package reporting

import (
	"context"
	"errors"
	"time"

	"aurora-dashboard/internal/analytics"
	"aurora-dashboard/internal/audit"
	"aurora-dashboard/internal/calls"
)

var (
	ErrInvalidRequest    = errors.New("reporting: invalid request")
	ErrUnsupportedFormat = errors.New("reporting: unsupported format")
)

// DefaultExportLimit is the largest page exports and quality scans read.
const DefaultExportLimit = 1000

// Store abstracts the persistence accessor for the data tools.
//
// IMPORTANT: every method must enforce tenant filtering.
type Store interface {
	ListCalls(ctx context.Context, tenantID string, f calls.ListFilter) ([]calls.CallRecord, error)
	CreateCall(ctx context.Context, rec calls.CallRecord) error
	ListInteractions(ctx context.Context, tenantID, callID string) ([]calls.Interaction, error)
	ListOutcomes(ctx context.Context, tenantID, callID string) ([]calls.Outcome, error)
}

// Engine is the analytics surface reports and pattern analysis are built from.
type Engine interface {
	CalculateAnalytics(ctx context.Context, tenantID string, w analytics.Window) (analytics.Analytics, error)
	CalculatePerformanceMetrics(ctx context.Context, tenantID string) (analytics.PerformanceMetrics, error)
	CalculatePredictiveAnalytics(ctx context.Context, tenantID string) (analytics.PredictiveAnalytics, error)
	DailySeries(ctx context.Context, tenantID string, days int) ([]analytics.DayBucket, error)
}

// Auditor records best-effort audit events.
type Auditor interface {
	Record(ctx context.Context, tenantID string, typ audit.EventType, message string, metadata map[string]any)
}

// Service implements export, import, report generation, pattern analysis and data-quality scoring.
// Every operation is a stateless pass over a freshly fetched snapshot.
type Service struct {
	store  Store
	engine Engine
	audit  Auditor

	exportLimit int
	loc         *time.Location

	// clock is injectable for deterministic tests.
	clock func() time.Time
}

// NewService wires the data tools. auditor may be nil. exportLimit <= 0 or above
// DefaultExportLimit is clamped to DefaultExportLimit.
func NewService(store Store, engine Engine, auditor Auditor, exportLimit int, loc *time.Location) *Service {
	if exportLimit <= 0 || exportLimit > DefaultExportLimit {
		exportLimit = DefaultExportLimit
	}
	if loc == nil {
		loc = time.UTC
	}
	return &Service{store: store, engine: engine, audit: auditor, exportLimit: exportLimit, loc: loc, clock: time.Now}
}

func (s *Service) ready(tenantID string) error {
	if tenantID == "" {
		return ErrInvalidRequest
	}
	if s.store == nil || s.engine == nil {
		return errors.New("reporting: service not configured")
	}
	return nil
}

func (s *Service) record(ctx context.Context, tenantID string, typ audit.EventType, message string, metadata map[string]any) {
	if s.audit == nil {
		return
	}
	s.audit.Record(ctx, tenantID, typ, message, metadata)
}

// snapshot reads the newest exportLimit calls of a tenant.
func (s *Service) snapshot(ctx context.Context, tenantID string) ([]calls.CallRecord, error) {
	return s.store.ListCalls(ctx, tenantID, calls.ListFilter{Limit: s.exportLimit})
}
