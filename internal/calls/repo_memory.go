package calls

import (
	"context"
	"errors"
	"slices"
	"sort"
	"strconv"
	"strings"
	"sync"
	"time"
)

// MemoryRepo is an in-memory Repository for tests and local tooling.
// It enforces tenant isolation on every read and write.
type MemoryRepo struct {
	mu sync.Mutex

	calls        map[string]CallRecord
	interactions []Interaction
	outcomes     []Outcome
	daily        map[string]DailyMetrics
	hourly       map[string]HourlyMetrics
	weekly       map[string]WeeklyMetrics
	tenants      []Tenant

	// Err, when set, is returned (wrapped as a data-access failure) by every method.
	Err error
}

var _ Repository = (*MemoryRepo)(nil)

func NewMemoryRepo() *MemoryRepo {
	return &MemoryRepo{
		calls:  map[string]CallRecord{},
		daily:  map[string]DailyMetrics{},
		hourly: map[string]HourlyMetrics{},
		weekly: map[string]WeeklyMetrics{},
	}
}

// Seed stores records as-is, skipping validation. Tests use it to plant bad data.
func (r *MemoryRepo) Seed(recs ...CallRecord) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, rec := range recs {
		r.calls[rec.ID] = rec
	}
}

func (r *MemoryRepo) AddTenant(t Tenant) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.tenants = append(r.tenants, t)
}

func (r *MemoryRepo) fail(op string) error {
	if r.Err != nil {
		return dataAccess(op, r.Err)
	}
	return nil
}

func (r *MemoryRepo) ListCalls(ctx context.Context, tenantID string, f ListFilter) ([]CallRecord, error) {
	if tenantID == "" {
		return nil, errors.New("calls: tenant_id required")
	}
	if err := r.fail("list calls"); err != nil {
		return nil, err
	}
	r.mu.Lock()
	defer r.mu.Unlock()

	out := make([]CallRecord, 0)
	for _, c := range r.calls {
		if c.TenantID != tenantID {
			continue
		}
		at := c.At()
		if !f.From.IsZero() && at.Before(f.From) {
			continue
		}
		if !f.To.IsZero() && !at.Before(f.To) {
			continue
		}
		if len(f.Statuses) > 0 && !slices.Contains(f.Statuses, c.Status) {
			continue
		}
		if len(f.CallTypes) > 0 && !slices.Contains(f.CallTypes, c.CallType) {
			continue
		}
		out = append(out, c)
	}
	sort.SliceStable(out, func(i, j int) bool {
		ai, aj := out[i].At(), out[j].At()
		if ai.Equal(aj) {
			return out[i].ID < out[j].ID
		}
		return ai.After(aj)
	})

	if f.Offset > 0 {
		if f.Offset >= len(out) {
			return []CallRecord{}, nil
		}
		out = out[f.Offset:]
	}
	if f.Limit > 0 && len(out) > f.Limit {
		out = out[:f.Limit]
	}
	return out, nil
}

func (r *MemoryRepo) GetCall(ctx context.Context, tenantID, id string) (CallRecord, error) {
	if err := r.fail("get call"); err != nil {
		return CallRecord{}, err
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	c, ok := r.calls[id]
	if !ok || c.TenantID != tenantID {
		return CallRecord{}, ErrNotFound
	}
	return c, nil
}

func (r *MemoryRepo) CreateCall(ctx context.Context, rec CallRecord) error {
	if err := rec.Validate(); err != nil {
		return err
	}
	if err := r.fail("create call"); err != nil {
		return err
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.calls[rec.ID]; ok {
		return ErrConflict
	}
	r.calls[rec.ID] = rec
	return nil
}

func (r *MemoryRepo) UpsertCall(ctx context.Context, rec CallRecord) (CallRecord, error) {
	if err := rec.Validate(); err != nil {
		return CallRecord{}, err
	}
	if err := r.fail("upsert call"); err != nil {
		return CallRecord{}, err
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	existing, ok := r.calls[rec.ID]
	if !ok {
		r.calls[rec.ID] = rec
		return rec, nil
	}
	if existing.TenantID != rec.TenantID {
		return CallRecord{}, ErrConflict
	}
	merged := MergeUpdate(existing, rec)
	r.calls[rec.ID] = merged
	return merged, nil
}

func (r *MemoryRepo) ListInteractions(ctx context.Context, tenantID, callID string) ([]Interaction, error) {
	if err := r.fail("list interactions"); err != nil {
		return nil, err
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]Interaction, 0)
	for _, it := range r.interactions {
		if it.TenantID == tenantID && it.CallID == callID {
			out = append(out, it)
		}
	}
	sort.SliceStable(out, func(i, j int) bool { return out[i].OccurredAt.Before(out[j].OccurredAt) })
	return out, nil
}

func (r *MemoryRepo) AddInteraction(ctx context.Context, it Interaction) error {
	if it.ID == "" || it.TenantID == "" || it.CallID == "" {
		return ErrInvalidRecord
	}
	if err := r.fail("add interaction"); err != nil {
		return err
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	if c, ok := r.calls[it.CallID]; !ok || c.TenantID != it.TenantID {
		return ErrNotFound
	}
	r.interactions = append(r.interactions, it)
	return nil
}

func (r *MemoryRepo) ListOutcomes(ctx context.Context, tenantID, callID string) ([]Outcome, error) {
	if err := r.fail("list outcomes"); err != nil {
		return nil, err
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]Outcome, 0)
	for _, o := range r.outcomes {
		if o.TenantID == tenantID && o.CallID == callID {
			out = append(out, o)
		}
	}
	return out, nil
}

func (r *MemoryRepo) AddOutcome(ctx context.Context, o Outcome) error {
	if o.ID == "" || o.TenantID == "" || o.CallID == "" {
		return ErrInvalidRecord
	}
	if err := r.fail("add outcome"); err != nil {
		return err
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	if c, ok := r.calls[o.CallID]; !ok || c.TenantID != o.TenantID {
		return ErrNotFound
	}
	r.outcomes = append(r.outcomes, o)
	return nil
}

func dayKey(tenantID string, d time.Time) string {
	return tenantID + "|" + d.Format(time.DateOnly)
}

func (r *MemoryRepo) GetDailyMetrics(ctx context.Context, tenantID string, date time.Time) (DailyMetrics, error) {
	if err := r.fail("get daily metrics"); err != nil {
		return DailyMetrics{}, err
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	m, ok := r.daily[dayKey(tenantID, date)]
	if !ok {
		return DailyMetrics{}, ErrNotFound
	}
	return m, nil
}

func (r *MemoryRepo) UpsertDailyMetrics(ctx context.Context, m DailyMetrics) error {
	if m.TenantID == "" {
		return ErrInvalidRecord
	}
	if err := r.fail("upsert daily metrics"); err != nil {
		return err
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	r.daily[dayKey(m.TenantID, m.Date)] = m
	return nil
}

func (r *MemoryRepo) ListHourlyMetrics(ctx context.Context, tenantID string, date time.Time) ([]HourlyMetrics, error) {
	if err := r.fail("list hourly metrics"); err != nil {
		return nil, err
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	prefix := dayKey(tenantID, date) + "|"
	out := make([]HourlyMetrics, 0, 24)
	for k, m := range r.hourly {
		if strings.HasPrefix(k, prefix) {
			out = append(out, m)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Hour < out[j].Hour })
	return out, nil
}

func (r *MemoryRepo) UpsertHourlyMetrics(ctx context.Context, m HourlyMetrics) error {
	if m.TenantID == "" || m.Hour < 0 || m.Hour > 23 {
		return ErrInvalidRecord
	}
	if err := r.fail("upsert hourly metrics"); err != nil {
		return err
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	r.hourly[dayKey(m.TenantID, m.Date)+"|"+strconv.Itoa(m.Hour)] = m
	return nil
}

func (r *MemoryRepo) GetWeeklyMetrics(ctx context.Context, tenantID string, weekStart time.Time) (WeeklyMetrics, error) {
	if err := r.fail("get weekly metrics"); err != nil {
		return WeeklyMetrics{}, err
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	m, ok := r.weekly[dayKey(tenantID, weekStart)]
	if !ok {
		return WeeklyMetrics{}, ErrNotFound
	}
	return m, nil
}

func (r *MemoryRepo) UpsertWeeklyMetrics(ctx context.Context, m WeeklyMetrics) error {
	if m.TenantID == "" {
		return ErrInvalidRecord
	}
	if err := r.fail("upsert weekly metrics"); err != nil {
		return err
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	r.weekly[dayKey(m.TenantID, m.WeekStart)] = m
	return nil
}

func (r *MemoryRepo) FindTenantByPhoneNumber(ctx context.Context, phone string) (Tenant, error) {
	if err := r.fail("find tenant"); err != nil {
		return Tenant{}, err
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, t := range r.tenants {
		if phone != "" && t.PhoneNumber == phone {
			return t, nil
		}
	}
	return Tenant{}, ErrNotFound
}
