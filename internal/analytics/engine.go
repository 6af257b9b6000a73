package analytics

import (
	"context"
	"errors"
	"math"
	"strconv"
	"time"

	"aurora-dashboard/internal/calls"
)

var ErrInvalidRequest = errors.New("analytics: invalid request")

// EstimatedResponseTimeSeconds stands in for time-to-first-response.
// Call records carry no reliable signal for it, so performance reports flag it as an estimate.
const EstimatedResponseTimeSeconds = 2.5

const (
	performanceLookbackDays = 7
	predictiveLookbackDays  = 30
	trendLookbackDays       = 30
	forecastBaseDays        = 7
	capacityHighWatermark   = 80.0
	capacityHeadroom        = 1.2
)

// CallLister is the read the engine needs from the persistence accessor.
type CallLister interface {
	ListCalls(ctx context.Context, tenantID string, f calls.ListFilter) ([]calls.CallRecord, error)
}

// Engine computes tenant-scoped call analytics. All operations are read-only.
type Engine struct {
	repo     CallLister
	loc      *time.Location
	capacity int

	// clock is injectable for deterministic tests.
	clock func() time.Time
}

// NewEngine builds an engine that buckets hours and days in loc (UTC when nil).
// capacity is the assumed number of calls the receptionist can absorb per lookback; <= 0 means 100.
func NewEngine(repo CallLister, loc *time.Location, capacity int) *Engine {
	if loc == nil {
		loc = time.UTC
	}
	if capacity <= 0 {
		capacity = 100
	}
	return &Engine{repo: repo, loc: loc, capacity: capacity, clock: time.Now}
}

func (e *Engine) Location() *time.Location { return e.loc }

func (e *Engine) now() time.Time { return e.clock().In(e.loc) }

func (e *Engine) fetch(ctx context.Context, tenantID string, r Range) ([]calls.CallRecord, error) {
	if tenantID == "" {
		return nil, ErrInvalidRequest
	}
	if e.repo == nil {
		return nil, errors.New("analytics: repository not configured")
	}
	return e.repo.ListCalls(ctx, tenantID, calls.ListFilter{From: r.From, To: r.To})
}

type Growth struct {
	Calls        float64 `json:"calls"`
	Duration     float64 `json:"duration"`
	SuccessRate  float64 `json:"success_rate"`
	Satisfaction float64 `json:"satisfaction"`
}

type Trends struct {
	Daily   Trend `json:"daily"`
	Weekly  Trend `json:"weekly"`
	Monthly Trend `json:"monthly"`
}

// Analytics is the result of CalculateAnalytics.
type Analytics struct {
	TenantID string `json:"tenant_id"`
	Window   Window `json:"window"`
	Range    Range  `json:"range"`

	TotalCalls       int `json:"total_calls"`
	CompletedCalls   int `json:"completed_calls"`
	FailedCalls      int `json:"failed_calls"`
	TransferredCalls int `json:"transferred_calls"`

	AvgDurationSeconds float64 `json:"avg_duration_seconds"`
	SuccessRate        float64 `json:"success_rate"`

	PeakHour      int    `json:"peak_hour"`
	PeakHourLabel string `json:"peak_hour_label"`

	CallTypes             []CallTypeShare `json:"call_types"`
	CallTypesDistribution map[string]int  `json:"call_types_distribution"`

	SatisfactionScore float64 `json:"satisfaction_score"`
	ScoredCalls       int     `json:"scored_calls"`

	Growth   Growth   `json:"growth"`
	Trends   Trends   `json:"trends"`
	Insights []string `json:"insights"`
}

// CalculateAnalytics aggregates the window ending now and compares it with the equal-length window before it.
func (e *Engine) CalculateAnalytics(ctx context.Context, tenantID string, w Window) (Analytics, error) {
	if _, err := ParseWindow(string(w)); err != nil {
		return Analytics{}, err
	}
	if w == "" {
		w = WindowWeek
	}
	now := e.now()
	cur, prev := w.Current(now), w.Previous(now)

	from := prev.From
	if t := now.AddDate(0, 0, -2*trendLookbackDays); t.Before(from) {
		from = t
	}
	records, err := e.fetch(ctx, tenantID, Range{From: from, To: now})
	if err != nil {
		return Analytics{}, err
	}

	s := Summarize(filterRange(records, cur), e.loc)
	p := Summarize(filterRange(records, prev), e.loc)

	out := Analytics{
		TenantID:              tenantID,
		Window:                w,
		Range:                 cur,
		TotalCalls:            s.Total,
		CompletedCalls:        s.Completed,
		FailedCalls:           s.Failed,
		TransferredCalls:      s.Transferred,
		AvgDurationSeconds:    s.AvgDurationSeconds,
		SuccessRate:           s.SuccessRate,
		PeakHourLabel:         "N/A",
		CallTypes:             Shares(s.CallTypes),
		CallTypesDistribution: s.CallTypes,
		SatisfactionScore:     s.AvgSatisfaction,
		ScoredCalls:           s.ScoredCalls,
		Growth: Growth{
			Calls:        round2(PercentChange(float64(p.Total), float64(s.Total))),
			Duration:     round2(PercentChange(p.AvgDurationSeconds, s.AvgDurationSeconds)),
			SuccessRate:  round2(PercentChange(p.SuccessRate, s.SuccessRate)),
			Satisfaction: round2(PercentChange(p.AvgSatisfaction, s.AvgSatisfaction)),
		},
		Trends: Trends{
			Daily:   trendOver(records, now, 1),
			Weekly:  trendOver(records, now, 7),
			Monthly: trendOver(records, now, trendLookbackDays),
		},
		Insights: Insights(s),
	}
	if hour, _, ok := s.PeakHour(); ok {
		out.PeakHour = hour
		out.PeakHourLabel = HourLabel(hour)
	}
	return out, nil
}

// trendOver compares the last n days with the n days before them.
func trendOver(records []calls.CallRecord, now time.Time, n int) Trend {
	last := lastDays(now, n)
	before := lastDays(last.From, n)
	return ClassifyTrend(countIn(records, before), countIn(records, last))
}

type PeakPerformance struct {
	Hour       int     `json:"hour"`
	HourLabel  string  `json:"hour_label"`
	Calls      int     `json:"calls"`
	Efficiency float64 `json:"efficiency"`
}

type PerformanceMetrics struct {
	TenantID string `json:"tenant_id"`
	Range    Range  `json:"range"`

	TotalCalls           int     `json:"total_calls"`
	Efficiency           float64 `json:"efficiency"`
	ResolutionRate       float64 `json:"resolution_rate"`
	CustomerSatisfaction float64 `json:"customer_satisfaction"`

	ResponseTimeSeconds   float64 `json:"response_time_seconds"`
	ResponseTimeEstimated bool    `json:"response_time_estimated"`

	PeakPerformance PeakPerformance `json:"peak_performance"`
}

// CalculatePerformanceMetrics reports on the last 7 days.
func (e *Engine) CalculatePerformanceMetrics(ctx context.Context, tenantID string) (PerformanceMetrics, error) {
	r := lastDays(e.now(), performanceLookbackDays)
	records, err := e.fetch(ctx, tenantID, r)
	if err != nil {
		return PerformanceMetrics{}, err
	}
	s := Summarize(records, e.loc)

	out := PerformanceMetrics{
		TenantID:              tenantID,
		Range:                 r,
		TotalCalls:            s.Total,
		Efficiency:            round2(float64(s.Total) / float64(performanceLookbackDays*24)),
		ResolutionRate:        round2(ratio(float64(s.Resolved), float64(s.Total)) * 100),
		CustomerSatisfaction:  round2(s.AvgSatisfaction),
		ResponseTimeSeconds:   EstimatedResponseTimeSeconds,
		ResponseTimeEstimated: true,
	}
	hour, count, _ := s.PeakHour()
	out.PeakPerformance = PeakPerformance{
		Hour:       hour,
		HourLabel:  HourLabel(hour),
		Calls:      count,
		Efficiency: round2(float64(count) / 24),
	}
	return out, nil
}

type Forecast struct {
	DailyAverage float64 `json:"daily_average"`
	Tomorrow     int     `json:"tomorrow"`
	NextWeek     int     `json:"next_week"`
	NextMonth    int     `json:"next_month"`
}

type Capacity struct {
	Current     int     `json:"current"`
	Utilization float64 `json:"utilization"`
	Recommended int     `json:"recommended"`
}

// Seasonal counts calls by weekday name, hour ("0".."23") and 0-based month index ("0".."11").
type Seasonal struct {
	Weekly  map[string]int `json:"weekly"`
	Hourly  map[string]int `json:"hourly"`
	Monthly map[string]int `json:"monthly"`
}

type PredictiveAnalytics struct {
	TenantID   string   `json:"tenant_id"`
	Range      Range    `json:"range"`
	TotalCalls int      `json:"total_calls"`
	Forecast   Forecast `json:"forecast"`
	Capacity   Capacity `json:"capacity"`
	Seasonal   Seasonal `json:"seasonal"`
}

// CalculatePredictiveAnalytics builds a naive forecast, capacity plan and seasonal breakdowns over the last 30 days.
func (e *Engine) CalculatePredictiveAnalytics(ctx context.Context, tenantID string) (PredictiveAnalytics, error) {
	now := e.now()
	r := lastDays(now, predictiveLookbackDays)
	records, err := e.fetch(ctx, tenantID, r)
	if err != nil {
		return PredictiveAnalytics{}, err
	}

	avg := float64(countIn(records, lastDays(now, forecastBaseDays))) / forecastBaseDays
	utilization := float64(len(records)) / float64(e.capacity) * 100
	recommended := e.capacity
	if utilization > capacityHighWatermark {
		recommended = int(math.Ceil(float64(e.capacity) * capacityHeadroom))
	}

	return PredictiveAnalytics{
		TenantID:   tenantID,
		Range:      r,
		TotalCalls: len(records),
		Forecast: Forecast{
			DailyAverage: round2(avg),
			Tomorrow:     int(math.Round(avg)),
			NextWeek:     int(math.Round(avg * 7)),
			NextMonth:    int(math.Round(avg * 30)),
		},
		Capacity: Capacity{
			Current:     e.capacity,
			Utilization: round2(utilization),
			Recommended: recommended,
		},
		Seasonal: seasonal(records, e.loc),
	}, nil
}

func seasonal(records []calls.CallRecord, loc *time.Location) Seasonal {
	out := Seasonal{Weekly: map[string]int{}, Hourly: map[string]int{}, Monthly: map[string]int{}}
	for _, r := range records {
		t := r.At().In(loc)
		out.Weekly[t.Weekday().String()]++
		out.Hourly[strconv.Itoa(t.Hour())]++
		out.Monthly[strconv.Itoa(int(t.Month())-1)]++
	}
	return out
}

type SystemHealth string

const (
	HealthExcellent SystemHealth = "excellent"
	HealthGood      SystemHealth = "good"
	HealthFair      SystemHealth = "fair"
	HealthPoor      SystemHealth = "poor"
)

// activeCallHorizon bounds how old an "active" record may be before it is treated as stale.
const activeCallHorizon = 2 * time.Hour

type RealTimeMetrics struct {
	TenantID            string       `json:"tenant_id"`
	ActiveCalls         int          `json:"active_calls"`
	CallsLastHour       int          `json:"calls_last_hour"`
	FailureRateLastHour float64      `json:"failure_rate_last_hour"`
	SystemHealth        SystemHealth `json:"system_health"`
}

// RealTime reports on calls in flight and the last hour.
func (e *Engine) RealTime(ctx context.Context, tenantID string) (RealTimeMetrics, error) {
	now := e.now()
	records, err := e.fetch(ctx, tenantID, Range{From: now.Add(-activeCallHorizon), To: now})
	if err != nil {
		return RealTimeMetrics{}, err
	}
	out := RealTimeMetrics{TenantID: tenantID}
	hour := Range{From: now.Add(-time.Hour), To: now}
	failed := 0
	for _, r := range records {
		if r.Status == calls.StatusActive {
			out.ActiveCalls++
		}
		if hour.Contains(r.At()) {
			out.CallsLastHour++
			if r.Status == calls.StatusFailed {
				failed++
			}
		}
	}
	out.FailureRateLastHour = round2(ratio(float64(failed), float64(out.CallsLastHour)) * 100)
	out.SystemHealth = healthFor(out.FailureRateLastHour)
	return out, nil
}

func healthFor(failureRate float64) SystemHealth {
	switch {
	case failureRate < 5:
		return HealthExcellent
	case failureRate < 10:
		return HealthGood
	case failureRate < 20:
		return HealthFair
	default:
		return HealthPoor
	}
}
