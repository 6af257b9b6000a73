package analytics

import (
	"context"
	"errors"
	"time"

	"aurora-dashboard/internal/calls"
)

// RollupStore is what rollup recomputation reads from and writes to.
type RollupStore interface {
	CallLister
	UpsertDailyMetrics(ctx context.Context, m calls.DailyMetrics) error
	UpsertHourlyMetrics(ctx context.Context, m calls.HourlyMetrics) error
	UpsertWeeklyMetrics(ctx context.Context, m calls.WeeklyMetrics) error
}

// DateKey is the calendar date of t in loc, as midnight UTC. Rollup rows are keyed by it.
func DateKey(t time.Time, loc *time.Location) time.Time {
	y, m, d := t.In(loc).Date()
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

// dayRange is the local day named by a date key.
func dayRange(date time.Time, loc *time.Location) Range {
	from := time.Date(date.Year(), date.Month(), date.Day(), 0, 0, 0, 0, loc)
	return Range{From: from, To: from.AddDate(0, 0, 1)}
}

// ComputeDaily folds one day's records into a daily rollup row.
func ComputeDaily(tenantID string, date time.Time, records []calls.CallRecord, loc *time.Location, now time.Time) calls.DailyMetrics {
	s := Summarize(records, loc)
	return calls.DailyMetrics{
		TenantID:             tenantID,
		Date:                 date,
		TotalCalls:           s.Total,
		CompletedCalls:       s.Completed,
		FailedCalls:          s.Failed,
		TransferredCalls:     s.Transferred,
		AIHandledCalls:       s.AIHandled,
		TotalDurationSeconds: s.TotalDurationSeconds,
		AvgDurationSeconds:   round2(s.AvgDurationSeconds),
		SuccessRate:          round2(s.SuccessRate),
		ScoredCalls:          s.ScoredCalls,
		AvgSatisfaction:      round2(s.AvgSatisfaction),
		CallTypes:            s.CallTypes,
		ComputedAt:           now.UTC(),
	}
}

// ComputeHourly always returns 24 rows, one per hour, empty hours included.
func ComputeHourly(tenantID string, date time.Time, records []calls.CallRecord, loc *time.Location, now time.Time) []calls.HourlyMetrics {
	var (
		total     [24]int
		completed [24]int
		duration  [24]int
	)
	for _, r := range records {
		h := r.At().In(loc).Hour()
		total[h]++
		duration[h] += r.DurationSeconds
		if r.Status == calls.StatusCompleted {
			completed[h]++
		}
	}
	out := make([]calls.HourlyMetrics, 24)
	for h := range out {
		out[h] = calls.HourlyMetrics{
			TenantID:           tenantID,
			Date:               date,
			Hour:               h,
			TotalCalls:         total[h],
			CompletedCalls:     completed[h],
			AvgDurationSeconds: round2(ratio(float64(duration[h]), float64(total[h]))),
			ComputedAt:         now.UTC(),
		}
	}
	return out
}

// ComputeWeekly folds a Monday-to-Sunday week of records into a weekly rollup row.
func ComputeWeekly(tenantID string, weekStart time.Time, records []calls.CallRecord, loc *time.Location, now time.Time) calls.WeeklyMetrics {
	s := Summarize(records, loc)
	out := calls.WeeklyMetrics{
		TenantID:           tenantID,
		WeekStart:          weekStart,
		WeekEnd:            weekStart.AddDate(0, 0, 6),
		TotalCalls:         s.Total,
		CompletedCalls:     s.Completed,
		FailedCalls:        s.Failed,
		TransferredCalls:   s.Transferred,
		AvgDurationSeconds: round2(s.AvgDurationSeconds),
		SuccessRate:        round2(s.SuccessRate),
		AvgSatisfaction:    round2(s.AvgSatisfaction),
		CallTypes:          s.CallTypes,
		ComputedAt:         now.UTC(),
	}

	var byDay [7]int
	for _, r := range records {
		byDay[(int(r.At().In(loc).Weekday())+6)%7]++
	}
	best := 0
	for i, n := range byDay {
		if n > best {
			best = n
			out.BusiestDay = weekStart.AddDate(0, 0, i).Weekday().String()
		}
	}
	return out
}

// RollupService recomputes rollup buckets from raw call records.
// Each recompute reads one bucket, computes it and overwrites the stored row.
// Concurrent recomputes of the same bucket race and the last writer wins.
type RollupService struct {
	store RollupStore
	loc   *time.Location

	clock func() time.Time
}

func NewRollupService(store RollupStore, loc *time.Location) *RollupService {
	if loc == nil {
		loc = time.UTC
	}
	return &RollupService{store: store, loc: loc, clock: time.Now}
}

func (s *RollupService) load(ctx context.Context, tenantID string, r Range) ([]calls.CallRecord, error) {
	if tenantID == "" {
		return nil, ErrInvalidRequest
	}
	if s.store == nil {
		return nil, errors.New("analytics: rollup store not configured")
	}
	return s.store.ListCalls(ctx, tenantID, calls.ListFilter{From: r.From, To: r.To})
}

// RecomputeDaily rebuilds the daily row for the local day containing day.
func (s *RollupService) RecomputeDaily(ctx context.Context, tenantID string, day time.Time) (calls.DailyMetrics, error) {
	date := DateKey(day, s.loc)
	records, err := s.load(ctx, tenantID, dayRange(date, s.loc))
	if err != nil {
		return calls.DailyMetrics{}, err
	}
	m := ComputeDaily(tenantID, date, records, s.loc, s.clock())
	if err := s.store.UpsertDailyMetrics(ctx, m); err != nil {
		return calls.DailyMetrics{}, err
	}
	return m, nil
}

// RecomputeHourly rebuilds all 24 hourly rows for the local day containing day.
func (s *RollupService) RecomputeHourly(ctx context.Context, tenantID string, day time.Time) ([]calls.HourlyMetrics, error) {
	date := DateKey(day, s.loc)
	records, err := s.load(ctx, tenantID, dayRange(date, s.loc))
	if err != nil {
		return nil, err
	}
	rows := ComputeHourly(tenantID, date, records, s.loc, s.clock())
	for _, m := range rows {
		if err := s.store.UpsertHourlyMetrics(ctx, m); err != nil {
			return nil, err
		}
	}
	return rows, nil
}

// RecomputeWeekly rebuilds the row for the Monday-based week containing day.
func (s *RollupService) RecomputeWeekly(ctx context.Context, tenantID string, day time.Time) (calls.WeeklyMetrics, error) {
	start := startOfWeek(day, s.loc)
	records, err := s.load(ctx, tenantID, Range{From: start, To: start.AddDate(0, 0, 7)})
	if err != nil {
		return calls.WeeklyMetrics{}, err
	}
	m := ComputeWeekly(tenantID, DateKey(start, s.loc), records, s.loc, s.clock())
	if err := s.store.UpsertWeeklyMetrics(ctx, m); err != nil {
		return calls.WeeklyMetrics{}, err
	}
	return m, nil
}

// RecomputeDay refreshes every bucket a call on day contributes to.
func (s *RollupService) RecomputeDay(ctx context.Context, tenantID string, day time.Time) error {
	if _, err := s.RecomputeDaily(ctx, tenantID, day); err != nil {
		return err
	}
	if _, err := s.RecomputeHourly(ctx, tenantID, day); err != nil {
		return err
	}
	_, err := s.RecomputeWeekly(ctx, tenantID, day)
	return err
}

type RollupResult struct {
	TenantID string    `json:"tenant_id"`
	From     time.Time `json:"from"`
	To       time.Time `json:"to"`
	Days     int       `json:"days"`
	Weeks    int       `json:"weeks"`
}

// MaxRecomputeDays caps one RecomputeRange call.
const MaxRecomputeDays = 366

// RecomputeRange refreshes daily and hourly rows for every local day in [from, to]
// and the weekly rows those days fall in.
func (s *RollupService) RecomputeRange(ctx context.Context, tenantID string, from, to time.Time) (RollupResult, error) {
	if tenantID == "" || from.IsZero() || to.IsZero() || to.Before(from) {
		return RollupResult{}, ErrInvalidRequest
	}
	first, last := DateKey(from, s.loc), DateKey(to, s.loc)
	if last.Sub(first) > MaxRecomputeDays*24*time.Hour {
		return RollupResult{}, ErrInvalidRequest
	}

	out := RollupResult{TenantID: tenantID, From: first, To: last}
	weeks := map[string]bool{}
	for d := first; !d.After(last); d = d.AddDate(0, 0, 1) {
		day := dayRange(d, s.loc).From
		if _, err := s.RecomputeDaily(ctx, tenantID, day); err != nil {
			return out, err
		}
		if _, err := s.RecomputeHourly(ctx, tenantID, day); err != nil {
			return out, err
		}
		out.Days++

		ws := startOfWeek(day, s.loc).Format(time.DateOnly)
		if weeks[ws] {
			continue
		}
		weeks[ws] = true
		if _, err := s.RecomputeWeekly(ctx, tenantID, day); err != nil {
			return out, err
		}
		out.Weeks++
	}
	return out, nil
}
