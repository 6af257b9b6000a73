package analytics

import (
	"context"
	"errors"
	"fmt"
	"time"

	"aurora-dashboard/internal/calls"
)

// DashboardStore reads rollups and recent calls for the dashboard.
type DashboardStore interface {
	CallLister
	GetDailyMetrics(ctx context.Context, tenantID string, date time.Time) (calls.DailyMetrics, error)
	ListHourlyMetrics(ctx context.Context, tenantID string, date time.Time) ([]calls.HourlyMetrics, error)
}

const (
	dashboardDays        = 7
	dashboardRecentCalls = 5
	notAvailable         = "N/A"
)

type CallStats struct {
	TotalCalls      int     `json:"total_calls"`
	TodayCalls      int     `json:"today_calls"`
	AvgCallDuration string  `json:"avg_call_duration"`
	SuccessRate     float64 `json:"success_rate"`
	PeakHour        string  `json:"peak_hour"`
	TopCallType     string  `json:"top_call_type"`
}

type DayCalls struct {
	Day             string `json:"day"`
	Date            string `json:"date"`
	Calls           int    `json:"calls"`
	DurationSeconds int    `json:"duration"`
}

type HourCalls struct {
	Hour  string `json:"hour"`
	Calls int    `json:"calls"`
}

type RecentCall struct {
	ID       string `json:"id"`
	Time     string `json:"time"`
	Type     string `json:"type"`
	Duration string `json:"duration"`
	Status   string `json:"status"`
}

type GrowthLabels struct {
	TotalCalls  string `json:"total_calls_growth"`
	TodayCalls  string `json:"today_calls_growth"`
	AvgDuration string `json:"avg_duration_growth"`
	SuccessRate string `json:"success_rate_growth"`
}

// Dashboard is presentation-ready. Every label falls back to "N/A" and every count to 0.
type Dashboard struct {
	HasData     bool            `json:"has_data"`
	CallStats   CallStats       `json:"call_stats"`
	WeeklyCalls []DayCalls      `json:"weekly_calls"`
	CallTypes   []CallTypeShare `json:"call_types"`
	HourlyData  []HourCalls     `json:"hourly_data"`
	RecentCalls []RecentCall    `json:"recent_calls"`
	Growth      GrowthLabels    `json:"growth_metrics"`
}

type DashboardService struct {
	store DashboardStore
	loc   *time.Location

	clock func() time.Time
}

func NewDashboardService(store DashboardStore, loc *time.Location) *DashboardService {
	if loc == nil {
		loc = time.UTC
	}
	return &DashboardService{store: store, loc: loc, clock: time.Now}
}

// daily returns the stored rollup for date, or a zero row when none was computed.
func (s *DashboardService) daily(ctx context.Context, tenantID string, date time.Time) (calls.DailyMetrics, bool, error) {
	m, err := s.store.GetDailyMetrics(ctx, tenantID, date)
	if errors.Is(err, calls.ErrNotFound) {
		return calls.DailyMetrics{TenantID: tenantID, Date: date}, false, nil
	}
	if err != nil {
		return calls.DailyMetrics{}, false, err
	}
	return m, true, nil
}

// Dashboard assembles today's headline stats, the last 7 days from daily rollups,
// call types over the last 7 days, today's 24 hourly buckets and the 5 most recent calls.
func (s *DashboardService) Dashboard(ctx context.Context, tenantID string) (Dashboard, error) {
	if tenantID == "" {
		return Dashboard{}, ErrInvalidRequest
	}
	if s.store == nil {
		return Dashboard{}, errors.New("analytics: dashboard store not configured")
	}
	now := s.clock().In(s.loc)
	today := DateKey(now, s.loc)

	out := Dashboard{
		WeeklyCalls: make([]DayCalls, 0, dashboardDays),
		HourlyData:  make([]HourCalls, 24),
		RecentCalls: []RecentCall{},
	}

	var todayRow, yesterdayRow calls.DailyMetrics
	var haveYesterday bool
	weekTypes := map[string]int{}
	for i := dashboardDays - 1; i >= 0; i-- {
		date := today.AddDate(0, 0, -i)
		m, ok, err := s.daily(ctx, tenantID, date)
		if err != nil {
			return Dashboard{}, err
		}
		out.HasData = out.HasData || ok
		out.WeeklyCalls = append(out.WeeklyCalls, DayCalls{
			Day:             date.Weekday().String()[:3],
			Date:            date.Format(time.DateOnly),
			Calls:           m.TotalCalls,
			DurationSeconds: m.TotalDurationSeconds,
		})
		out.CallStats.TotalCalls += m.TotalCalls
		for t, n := range m.CallTypes {
			weekTypes[t] += n
		}
		switch i {
		case 0:
			todayRow = m
		case 1:
			yesterdayRow, haveYesterday = m, ok
		}
	}

	out.CallTypes = Shares(weekTypes)
	out.CallStats.TodayCalls = todayRow.TotalCalls
	out.CallStats.AvgCallDuration = FormatDuration(todayRow.AvgDurationSeconds)
	out.CallStats.SuccessRate = round1(todayRow.SuccessRate)
	out.CallStats.TopCallType = notAvailable
	if len(out.CallTypes) > 0 {
		out.CallStats.TopCallType = out.CallTypes[0].Label
	}

	hourly, err := s.store.ListHourlyMetrics(ctx, tenantID, today)
	if err != nil {
		return Dashboard{}, err
	}
	var perHour [24]int
	for _, h := range hourly {
		if h.Hour >= 0 && h.Hour < 24 {
			perHour[h.Hour] = h.TotalCalls
		}
	}
	peak, peakCalls := 0, 0
	for h := 0; h < 24; h++ {
		out.HourlyData[h] = HourCalls{Hour: HourLabel(h), Calls: perHour[h]}
		if perHour[h] > peakCalls {
			peak, peakCalls = h, perHour[h]
		}
	}
	out.CallStats.PeakHour = notAvailable
	if peakCalls > 0 {
		out.CallStats.PeakHour = HourLabel(peak)
	}

	recent, err := s.store.ListCalls(ctx, tenantID, calls.ListFilter{Limit: dashboardRecentCalls})
	if err != nil {
		return Dashboard{}, err
	}
	for _, c := range recent {
		out.RecentCalls = append(out.RecentCalls, RecentCall{
			ID:       c.ID,
			Time:     c.At().In(s.loc).Format("3:04 PM"),
			Type:     TypeLabel(c.CallType),
			Duration: FormatDuration(float64(c.DurationSeconds)),
			Status:   statusLabel(c.Status),
		})
	}
	out.HasData = out.HasData || len(recent) > 0

	out.Growth = GrowthLabels{TotalCalls: notAvailable, TodayCalls: notAvailable, AvgDuration: notAvailable, SuccessRate: notAvailable}
	if haveYesterday {
		callGrowth := growthLabel(float64(yesterdayRow.TotalCalls), float64(todayRow.TotalCalls))
		out.Growth = GrowthLabels{
			TotalCalls:  callGrowth,
			TodayCalls:  callGrowth,
			AvgDuration: growthLabel(yesterdayRow.AvgDurationSeconds, todayRow.AvgDurationSeconds),
			SuccessRate: growthLabel(yesterdayRow.SuccessRate, todayRow.SuccessRate),
		}
	}
	return out, nil
}

func statusLabel(st calls.Status) string {
	switch st {
	case calls.StatusCompleted:
		return "Completed"
	case calls.StatusTransferred:
		return "Transferred"
	case calls.StatusActive:
		return "Active"
	default:
		return "Failed"
	}
}

// growthLabel renders a change as "+12.5%" or "-3.0%". Without a baseline it is "N/A".
func growthLabel(prev, cur float64) string {
	if prev == 0 {
		return notAvailable
	}
	change := round1((cur - prev) / prev * 100)
	switch {
	case change > 0:
		return fmt.Sprintf("+%.1f%%", change)
	case change < 0:
		return fmt.Sprintf("%.1f%%", change)
	default:
		return "0.0%"
	}
}

// DayBucket is one local day of calls.
type DayBucket struct {
	Date    time.Time          `json:"date"`
	Records []calls.CallRecord `json:"-"`
	Summary Summary            `json:"summary"`
}

// DailySeries returns the last days local days, oldest first, each with its records and summary.
func (e *Engine) DailySeries(ctx context.Context, tenantID string, days int) ([]DayBucket, error) {
	if days <= 0 {
		return nil, ErrInvalidRequest
	}
	now := e.now()
	first := startOfDay(now, e.loc).AddDate(0, 0, -(days - 1))
	records, err := e.fetch(ctx, tenantID, Range{From: first, To: first.AddDate(0, 0, days)})
	if err != nil {
		return nil, err
	}
	byDay := map[string][]calls.CallRecord{}
	for _, r := range records {
		k := r.At().In(e.loc).Format(time.DateOnly)
		byDay[k] = append(byDay[k], r)
	}
	out := make([]DayBucket, 0, days)
	for i := 0; i < days; i++ {
		d := first.AddDate(0, 0, i)
		recs := byDay[d.Format(time.DateOnly)]
		out = append(out, DayBucket{Date: DateKey(d, e.loc), Records: recs, Summary: Summarize(recs, e.loc)})
	}
	return out, nil
}
