package analytics

import (
	"context"
	"errors"
	"math"
	"strconv"
	"testing"
	"time"

	"aurora-dashboard/internal/calls"
)

var testNow = time.Unix(1700000000, 0).UTC()

func rec(id string, at time.Time, dur int, st calls.Status, typ string) calls.CallRecord {
	return calls.CallRecord{ID: id, TenantID: "t1", StartedAt: at, DurationSeconds: dur, Status: st, CallType: typ}
}

func score(v int) *int { return &v }

func newTestEngine(repo CallLister) *Engine {
	e := NewEngine(repo, time.UTC, 100)
	e.clock = func() time.Time { return testNow }
	return e
}

type countingLister struct {
	reads int
}

func (c *countingLister) ListCalls(ctx context.Context, tenantID string, f calls.ListFilter) ([]calls.CallRecord, error) {
	c.reads++
	return nil, nil
}

func TestCalculateAnalytics_TwoRecordScenario(t *testing.T) {
	repo := calls.NewMemoryRepo()
	repo.Seed(
		rec("1", testNow.Add(-time.Hour), 120, calls.StatusCompleted, "a"),
		rec("2", testNow.Add(-2*time.Hour), 0, calls.StatusFailed, "b"),
	)
	got, err := newTestEngine(repo).CalculateAnalytics(context.Background(), "t1", WindowDay)
	if err != nil {
		t.Fatalf("unexpected err: %v", err)
	}
	if got.TotalCalls != 2 || got.CompletedCalls != 1 || got.FailedCalls != 1 {
		t.Fatalf("unexpected counts: %+v", got)
	}
	if got.SuccessRate != 50 {
		t.Fatalf("expected success rate 50, got %v", got.SuccessRate)
	}
	if got.AvgDurationSeconds != 60 {
		t.Fatalf("expected avg duration 60, got %v", got.AvgDurationSeconds)
	}
	// 20:13 and 21:13 UTC tie; the earlier hour wins.
	if got.PeakHour != 20 || got.PeakHourLabel != "8:00 PM" {
		t.Fatalf("unexpected peak hour %d %q", got.PeakHour, got.PeakHourLabel)
	}
	want := []string{
		"Success rate could be improved. Consider reviewing failed call patterns.",
		"Most common call type is a (1 calls).",
	}
	if len(got.Insights) != len(want) {
		t.Fatalf("unexpected insights: %v", got.Insights)
	}
	for i := range want {
		if got.Insights[i] != want[i] {
			t.Fatalf("insight %d: got %q want %q", i, got.Insights[i], want[i])
		}
	}
}

func TestCalculateAnalytics_EmptySet(t *testing.T) {
	got, err := newTestEngine(calls.NewMemoryRepo()).CalculateAnalytics(context.Background(), "t1", WindowWeek)
	if err != nil {
		t.Fatalf("unexpected err: %v", err)
	}
	if got.TotalCalls != 0 || got.SuccessRate != 0 || got.AvgDurationSeconds != 0 {
		t.Fatalf("expected zeros, got %+v", got)
	}
	if got.PeakHour != 0 || got.PeakHourLabel != "N/A" {
		t.Fatalf("expected default peak hour, got %d %q", got.PeakHour, got.PeakHourLabel)
	}
	if got.Insights == nil || len(got.Insights) != 0 {
		t.Fatalf("expected empty insights, got %v", got.Insights)
	}
	if got.Growth != (Growth{}) {
		t.Fatalf("expected zero growth, got %+v", got.Growth)
	}
	if got.Trends.Daily != TrendStable || got.Trends.Weekly != TrendStable || got.Trends.Monthly != TrendStable {
		t.Fatalf("expected stable trends, got %+v", got.Trends)
	}
}

func TestCalculateAnalytics_GrowthAgainstPreviousWindow(t *testing.T) {
	repo := calls.NewMemoryRepo()
	repo.Seed(
		rec("p1", testNow.AddDate(0, 0, -8), 60, calls.StatusCompleted, "a"),
		rec("p2", testNow.AddDate(0, 0, -10), 60, calls.StatusCompleted, "a"),
		rec("c1", testNow.Add(-time.Hour), 120, calls.StatusCompleted, "a"),
		rec("c2", testNow.AddDate(0, 0, -2), 120, calls.StatusCompleted, "a"),
		rec("c3", testNow.AddDate(0, 0, -3), 120, calls.StatusCompleted, "a"),
		rec("c4", testNow.AddDate(0, 0, -4), 120, calls.StatusCompleted, "a"),
	)
	got, err := newTestEngine(repo).CalculateAnalytics(context.Background(), "t1", WindowWeek)
	if err != nil {
		t.Fatalf("unexpected err: %v", err)
	}
	if got.TotalCalls != 4 {
		t.Fatalf("expected 4 calls in window, got %d", got.TotalCalls)
	}
	if got.Growth.Calls != 100 || got.Growth.Duration != 100 || got.Growth.SuccessRate != 0 {
		t.Fatalf("unexpected growth %+v", got.Growth)
	}
	if got.Trends.Weekly != TrendUp {
		t.Fatalf("expected weekly trend up, got %s", got.Trends.Weekly)
	}
	// one call in the last day against one in the day before
	if got.Trends.Daily != TrendStable {
		t.Fatalf("expected daily trend stable, got %s", got.Trends.Daily)
	}
}

func TestCalculateAnalytics_SharesSumToHundred(t *testing.T) {
	repo := calls.NewMemoryRepo()
	repo.Seed(
		rec("1", testNow.Add(-time.Hour), 10, calls.StatusCompleted, "a"),
		rec("2", testNow.Add(-2*time.Hour), 10, calls.StatusCompleted, "b"),
		rec("3", testNow.Add(-3*time.Hour), 10, calls.StatusCompleted, "c"),
		rec("4", testNow.Add(-4*time.Hour), 10, calls.StatusCompleted, ""),
	)
	got, err := newTestEngine(repo).CalculateAnalytics(context.Background(), "t1", WindowDay)
	if err != nil {
		t.Fatalf("unexpected err: %v", err)
	}
	sum := 0.0
	for _, s := range got.CallTypes {
		sum += s.Percentage
	}
	if math.Abs(sum-100) > 0.5 {
		t.Fatalf("expected shares to sum to ~100, got %v", sum)
	}
	if got.AvgDurationSeconds*float64(got.TotalCalls) != 40 {
		t.Fatalf("expected avg*count == sum(duration)")
	}
}

func TestCalculateAnalytics_SatisfactionIgnoresUnscored(t *testing.T) {
	repo := calls.NewMemoryRepo()
	a := rec("1", testNow.Add(-time.Hour), 10, calls.StatusCompleted, "a")
	a.SatisfactionScore = score(5)
	b := rec("2", testNow.Add(-2*time.Hour), 10, calls.StatusCompleted, "a")
	b.SatisfactionScore = score(4)
	c := rec("3", testNow.Add(-3*time.Hour), 10, calls.StatusCompleted, "a")
	repo.Seed(a, b, c)

	got, err := newTestEngine(repo).CalculateAnalytics(context.Background(), "t1", WindowDay)
	if err != nil {
		t.Fatalf("unexpected err: %v", err)
	}
	if got.SatisfactionScore != 4.5 || got.ScoredCalls != 2 {
		t.Fatalf("expected 4.5 over 2 scored calls, got %v over %d", got.SatisfactionScore, got.ScoredCalls)
	}
	if got.Insights[0] != "Excellent success rate! Your AI is handling calls very effectively." {
		t.Fatalf("unexpected first insight %q", got.Insights[0])
	}
	if got.Insights[1] != "High customer satisfaction scores indicate great service quality." {
		t.Fatalf("unexpected second insight %q", got.Insights[1])
	}
}

func TestCalculateAnalytics_InvalidWindowSkipsRepository(t *testing.T) {
	lister := &countingLister{}
	_, err := newTestEngine(lister).CalculateAnalytics(context.Background(), "t1", Window("fortnight"))
	if !errors.Is(err, ErrInvalidWindow) {
		t.Fatalf("expected ErrInvalidWindow, got %v", err)
	}
	if lister.reads != 0 {
		t.Fatalf("expected no repository reads, got %d", lister.reads)
	}
}

func TestEngine_PropagatesDataAccessErrors(t *testing.T) {
	repo := calls.NewMemoryRepo()
	repo.Err = errors.New("connection reset")
	e := newTestEngine(repo)

	if _, err := e.CalculateAnalytics(context.Background(), "t1", WindowDay); !errors.Is(err, calls.ErrDataAccess) {
		t.Fatalf("analytics: expected ErrDataAccess, got %v", err)
	}
	if _, err := e.CalculatePerformanceMetrics(context.Background(), "t1"); !errors.Is(err, calls.ErrDataAccess) {
		t.Fatalf("performance: expected ErrDataAccess, got %v", err)
	}
	if _, err := e.CalculatePredictiveAnalytics(context.Background(), "t1"); !errors.Is(err, calls.ErrDataAccess) {
		t.Fatalf("predictive: expected ErrDataAccess, got %v", err)
	}
}

func TestEngine_RequiresTenant(t *testing.T) {
	if _, err := newTestEngine(calls.NewMemoryRepo()).CalculatePerformanceMetrics(context.Background(), ""); !errors.Is(err, ErrInvalidRequest) {
		t.Fatalf("expected ErrInvalidRequest, got %v", err)
	}
}

func TestCalculatePerformanceMetrics(t *testing.T) {
	repo := calls.NewMemoryRepo()
	a := rec("1", testNow.Add(-time.Hour), 60, calls.StatusCompleted, "a")
	a.SatisfactionScore = score(5)
	b := rec("2", testNow.Add(-2*time.Hour), 60, calls.StatusCompleted, "a")
	b.HumanTransferred = true
	b.SatisfactionScore = score(4)
	c := rec("3", testNow.Add(-time.Hour-time.Minute), 0, calls.StatusFailed, "a")
	old := rec("4", testNow.AddDate(0, 0, -8), 60, calls.StatusCompleted, "a")
	repo.Seed(a, b, c, old)

	got, err := newTestEngine(repo).CalculatePerformanceMetrics(context.Background(), "t1")
	if err != nil {
		t.Fatalf("unexpected err: %v", err)
	}
	if got.TotalCalls != 3 {
		t.Fatalf("expected 3 calls in 7 days, got %d", got.TotalCalls)
	}
	if got.Efficiency != 0.02 {
		t.Fatalf("expected efficiency 0.02, got %v", got.Efficiency)
	}
	if got.ResolutionRate != 33.33 {
		t.Fatalf("expected resolution rate 33.33, got %v", got.ResolutionRate)
	}
	if got.CustomerSatisfaction != 4.5 {
		t.Fatalf("expected satisfaction 4.5, got %v", got.CustomerSatisfaction)
	}
	if got.ResponseTimeSeconds != EstimatedResponseTimeSeconds || !got.ResponseTimeEstimated {
		t.Fatalf("expected labelled response time estimate, got %+v", got)
	}
	if got.PeakPerformance.Hour != 21 || got.PeakPerformance.Calls != 2 {
		t.Fatalf("unexpected peak %+v", got.PeakPerformance)
	}
	if got.PeakPerformance.Efficiency != 0.08 {
		t.Fatalf("expected peak efficiency 0.08, got %v", got.PeakPerformance.Efficiency)
	}
}

func TestCalculatePredictiveAnalytics_Forecast(t *testing.T) {
	repo := calls.NewMemoryRepo()
	for i := 0; i < 14; i++ {
		repo.Seed(rec(strconv.Itoa(i), testNow.Add(-time.Duration(i)*12*time.Hour-time.Minute), 30, calls.StatusCompleted, "a"))
	}
	got, err := newTestEngine(repo).CalculatePredictiveAnalytics(context.Background(), "t1")
	if err != nil {
		t.Fatalf("unexpected err: %v", err)
	}
	if got.Forecast.Tomorrow != 2 || got.Forecast.NextWeek != 14 || got.Forecast.NextMonth != 60 {
		t.Fatalf("unexpected forecast %+v", got.Forecast)
	}
	if got.Capacity.Current != 100 || got.Capacity.Utilization != 14 || got.Capacity.Recommended != 100 {
		t.Fatalf("unexpected capacity %+v", got.Capacity)
	}
	hourly := 0
	for _, n := range got.Seasonal.Hourly {
		hourly += n
	}
	if hourly != 14 {
		t.Fatalf("expected hourly buckets to cover all calls, got %d", hourly)
	}
	if got.Seasonal.Monthly["10"] == 0 {
		t.Fatalf("expected November under 0-based month index 10, got %v", got.Seasonal.Monthly)
	}
	if got.Seasonal.Weekly["Tuesday"] == 0 {
		t.Fatalf("expected weekday names, got %v", got.Seasonal.Weekly)
	}
}

func TestCalculatePredictiveAnalytics_CapacityHeadroom(t *testing.T) {
	repo := calls.NewMemoryRepo()
	for i := 0; i < 85; i++ {
		repo.Seed(calls.CallRecord{
			ID:        "c" + strconv.Itoa(i),
			TenantID:  "t1",
			StartedAt: testNow.Add(-time.Duration(i)*8*time.Hour - time.Minute),
			Status:    calls.StatusCompleted,
		})
	}
	got, err := newTestEngine(repo).CalculatePredictiveAnalytics(context.Background(), "t1")
	if err != nil {
		t.Fatalf("unexpected err: %v", err)
	}
	if got.Capacity.Utilization != 85 || got.Capacity.Recommended != 120 {
		t.Fatalf("unexpected capacity %+v", got.Capacity)
	}
	if got.Forecast.Tomorrow != 3 {
		t.Fatalf("expected 21 calls over 7 days to forecast 3, got %d", got.Forecast.Tomorrow)
	}
}

func TestRealTime(t *testing.T) {
	repo := calls.NewMemoryRepo()
	repo.Seed(
		rec("1", testNow.Add(-30*time.Minute), 0, calls.StatusActive, ""),
		rec("2", testNow.Add(-10*time.Minute), 0, calls.StatusFailed, ""),
		rec("3", testNow.Add(-20*time.Minute), 40, calls.StatusCompleted, ""),
		rec("4", testNow.Add(-90*time.Minute), 40, calls.StatusCompleted, ""),
	)
	got, err := newTestEngine(repo).RealTime(context.Background(), "t1")
	if err != nil {
		t.Fatalf("unexpected err: %v", err)
	}
	if got.ActiveCalls != 1 || got.CallsLastHour != 3 {
		t.Fatalf("unexpected realtime %+v", got)
	}
	if got.FailureRateLastHour != 33.33 || got.SystemHealth != HealthPoor {
		t.Fatalf("unexpected health %+v", got)
	}
}

func TestDailySeries(t *testing.T) {
	repo := calls.NewMemoryRepo()
	repo.Seed(
		rec("1", testNow.Add(-time.Hour), 60, calls.StatusCompleted, "a"),
		rec("2", testNow.AddDate(0, 0, -2), 60, calls.StatusCompleted, "a"),
		rec("3", testNow.AddDate(0, 0, -2).Add(time.Minute), 60, calls.StatusFailed, "b"),
	)
	got, err := newTestEngine(repo).DailySeries(context.Background(), "t1", 7)
	if err != nil {
		t.Fatalf("unexpected err: %v", err)
	}
	if len(got) != 7 {
		t.Fatalf("expected 7 buckets, got %d", len(got))
	}
	if got[6].Summary.Total != 1 || got[4].Summary.Total != 2 || got[5].Summary.Total != 0 {
		t.Fatalf("unexpected buckets: %d %d %d", got[4].Summary.Total, got[5].Summary.Total, got[6].Summary.Total)
	}
	if !got[6].Date.Equal(time.Date(2023, 11, 14, 0, 0, 0, 0, time.UTC)) {
		t.Fatalf("expected last bucket to be today, got %s", got[6].Date)
	}
}
