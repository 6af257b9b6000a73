package reporting

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"reflect"
	"strings"
	"testing"
	"time"

	"aurora-dashboard/internal/analytics"
	"aurora-dashboard/internal/audit"
	"aurora-dashboard/internal/calls"
)

func reportEngine() *stubEngine {
	return &stubEngine{
		analytics: analytics.Analytics{
			TotalCalls:         2,
			SuccessRate:        50,
			AvgDurationSeconds: 60,
			SatisfactionScore:  4.5,
			ScoredCalls:        1,
			Insights:           []string{"Most common call type is a (1 calls)."},
		},
		predictive: analytics.PredictiveAnalytics{
			Forecast: analytics.Forecast{Tomorrow: 3, NextWeek: 21},
			Capacity: analytics.Capacity{Current: 100, Utilization: 14},
		},
	}
}

func TestGenerateReport_PDFFallsBackToJSON(t *testing.T) {
	engine := reportEngine()
	s, events := newTestService(calls.NewMemoryRepo(), engine)

	res, err := s.GenerateReport(context.Background(), "t1", ReportConfig{Name: "Weekly Ops", TimeRange: analytics.WindowWeek, Format: ReportPDF})
	if err != nil {
		t.Fatalf("generate: %v", err)
	}
	if res.Format != ReportPDF || res.FallbackFormat != ReportJSON {
		t.Fatalf("expected pdf with json fallback, got %q/%q", res.Format, res.FallbackFormat)
	}
	if res.Filename != "weekly-ops-20231114-221320.json" || res.ContentType != "application/json" {
		t.Fatalf("unexpected file %q %q", res.Filename, res.ContentType)
	}
	var data ReportData
	if err := json.Unmarshal(res.Body, &data); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if data.Analytics.TotalCalls != 2 || data.Predictive.Forecast.NextWeek != 21 {
		t.Fatalf("unexpected report data %+v", data)
	}
	if engine.hits != 3 {
		t.Fatalf("expected three engine reads, got %d", engine.hits)
	}

	for _, want := range []string{
		"Aurora Dashboard Report Summary:",
		"- Total calls processed: 2",
		"- Success rate: 50.0%",
		"- Average call duration: 60 seconds",
		"- Customer satisfaction: 4.5/5",
		"- Most common call type is a (1 calls).",
		"- Expected calls tomorrow: 3",
		"- System utilization: 14.0%",
	} {
		if !strings.Contains(data.Summary, want) {
			t.Fatalf("summary missing %q:\n%s", want, data.Summary)
		}
	}

	evs := events.Events()
	if len(evs) != 1 || evs[0].Type != audit.EventTypeReport {
		t.Fatalf("expected one report audit event, got %+v", evs)
	}
}

func TestGenerateReport_HTMLEscapesName(t *testing.T) {
	s, _ := newTestService(calls.NewMemoryRepo(), reportEngine())

	res, err := s.GenerateReport(context.Background(), "t1", ReportConfig{Name: "<b>Ops</b>", Format: ReportHTML})
	if err != nil {
		t.Fatalf("generate: %v", err)
	}
	if res.FallbackFormat != "" || !strings.HasSuffix(res.Filename, ".html") {
		t.Fatalf("unexpected result %q %q", res.Filename, res.FallbackFormat)
	}
	body := string(res.Body)
	for _, want := range []string{"<title>Aurora Dashboard Report</title>", "Total Calls: 2", "Success Rate: 50.0%", "&lt;b&gt;Ops&lt;/b&gt;"} {
		if !strings.Contains(body, want) {
			t.Fatalf("html missing %q", want)
		}
	}
	// An empty time range defaults to the week window.
	if res.Data.Config.TimeRange != analytics.WindowWeek {
		t.Fatalf("expected week window, got %q", res.Data.Config.TimeRange)
	}
}

func TestGenerateReport_RejectsBeforeReading(t *testing.T) {
	engine := reportEngine()
	s, _ := newTestService(calls.NewMemoryRepo(), engine)
	ctx := context.Background()

	if _, err := s.GenerateReport(ctx, "t1", ReportConfig{Format: "docx"}); !errors.Is(err, ErrUnsupportedFormat) {
		t.Fatalf("expected ErrUnsupportedFormat, got %v", err)
	}
	if _, err := s.GenerateReport(ctx, "t1", ReportConfig{Format: ReportJSON, TimeRange: "fortnight"}); !errors.Is(err, analytics.ErrInvalidWindow) {
		t.Fatalf("expected ErrInvalidWindow, got %v", err)
	}
	if engine.hits != 0 {
		t.Fatalf("expected no engine reads, got %d", engine.hits)
	}

	engine.err = calls.ErrDataAccess
	if _, err := s.GenerateReport(ctx, "t1", ReportConfig{Format: ReportJSON}); !errors.Is(err, calls.ErrDataAccess) {
		t.Fatalf("expected data access error, got %v", err)
	}
}

func TestAnalyzeCallPatterns(t *testing.T) {
	series := make([]analytics.DayBucket, 7)
	series[0].Summary = analytics.Summary{CallTypes: map[string]int{"support": 1}, AvgDurationSeconds: 100}
	series[6].Summary = analytics.Summary{CallTypes: map[string]int{"support": 3, "booking": 1}, AvgDurationSeconds: 200}

	engine := &stubEngine{
		analytics: analytics.Analytics{
			TotalCalls:         8,
			SuccessRate:        75,
			AvgDurationSeconds: 320,
			ScoredCalls:        2,
			SatisfactionScore:  3.5,
			Insights:           []string{"Most common call type is support (4 calls)."},
		},
		predictive: analytics.PredictiveAnalytics{Seasonal: analytics.Seasonal{
			Hourly: map[string]int{"9": 3, "14": 5},
			Weekly: map[string]int{"Monday": 3, "Tuesday": 5},
		}},
		series: series,
	}
	s, events := newTestService(calls.NewMemoryRepo(), engine)

	got, err := s.AnalyzeCallPatterns(context.Background(), "t1", analytics.WindowMonth)
	if err != nil {
		t.Fatalf("analyze: %v", err)
	}
	if got.Window != analytics.WindowMonth || got.TenantID != "t1" {
		t.Fatalf("unexpected header %+v", got)
	}
	if !reflect.DeepEqual(got.Patterns.CallTypeTrends["support"], []int{1, 0, 0, 0, 0, 0, 3}) {
		t.Fatalf("unexpected support trend %v", got.Patterns.CallTypeTrends["support"])
	}
	if !reflect.DeepEqual(got.Patterns.CallTypeTrends["booking"], []int{0, 0, 0, 0, 0, 0, 1}) {
		t.Fatalf("unexpected booking trend %v", got.Patterns.CallTypeTrends["booking"])
	}
	if !reflect.DeepEqual(got.Patterns.DurationTrends, []float64{100, 0, 0, 0, 0, 0, 200}) {
		t.Fatalf("unexpected duration trend %v", got.Patterns.DurationTrends)
	}

	wantInsights := []string{
		"Most common call type is support (4 calls).",
		"Peak calling hour is 14:00 with 5 calls",
		"Tuesday is the busiest day with 5 calls",
		"Support calls grew the most this week (1 to 3 per day)",
	}
	if !reflect.DeepEqual(got.Insights, wantInsights) {
		t.Fatalf("unexpected insights:\n%q", got.Insights)
	}
	wantRecs := []string{
		"Consider reviewing failed call patterns to improve success rate",
		"Call durations are longer than average - consider optimizing conversation flow",
		"Customer satisfaction is below target - review call handling procedures",
	}
	if !reflect.DeepEqual(got.Recommendations, wantRecs) {
		t.Fatalf("unexpected recommendations:\n%q", got.Recommendations)
	}
	if evs := events.Events(); len(evs) != 1 || evs[0].Type != audit.EventTypePatternAnalysis {
		t.Fatalf("expected one pattern audit event, got %+v", evs)
	}
}

func TestAnalyzeCallPatterns_EmptyTenant(t *testing.T) {
	s, _ := newTestService(calls.NewMemoryRepo(), &stubEngine{})

	got, err := s.AnalyzeCallPatterns(context.Background(), "t1", "")
	if err != nil {
		t.Fatalf("analyze: %v", err)
	}
	if got.Insights == nil || len(got.Insights) != 0 {
		t.Fatalf("expected empty insights, got %v", got.Insights)
	}
	if got.Recommendations == nil || len(got.Recommendations) != 0 {
		t.Fatalf("expected empty recommendations, got %v", got.Recommendations)
	}
}

func qualityRecord(id, phone string, dur int) calls.CallRecord {
	return calls.CallRecord{ID: id, TenantID: "t1", PhoneNumber: phone, DurationSeconds: dur, Status: calls.StatusCompleted, StartedAt: testNow}
}

func TestScoreQuality(t *testing.T) {
	clean := make([]calls.CallRecord, 0, 10)
	for _, p := range []string{"a", "b", "c", "d", "e", "f", "g", "h", "i", "j"} {
		clean = append(clean, qualityRecord(p, "+1555"+p, 60))
	}
	got := ScoreQuality(clean)
	if got.Score != 100 || len(got.Issues) != 0 {
		t.Fatalf("expected a clean score, got %+v", got)
	}

	dirty := append([]calls.CallRecord{}, clean...)
	dirty[0].PhoneNumber = ""
	dirty[1].DurationSeconds = -5
	dirty[2].PhoneNumber = dirty[3].PhoneNumber
	earlier := testNow.Add(-10 * time.Second)
	dirty[4].EndedAt = &earlier
	later := testNow.Add(60 * time.Second)
	dirty[5].EndedAt = &later

	got = ScoreQuality(dirty)
	if got.TotalRecords != 10 || got.Score != 60 {
		t.Fatalf("expected score 60 over 10 records, got %+v", got)
	}
	want := []QualityIssue{
		{Type: IssueMissing, Description: "Missing phone numbers", Count: 1, Severity: SeverityMedium},
		{Type: IssueInvalid, Description: "Invalid call durations", Count: 1, Severity: SeverityMedium},
		{Type: IssueDuplicate, Description: "Duplicate phone numbers", Count: 1, Severity: SeverityMedium},
		{Type: IssueInconsistent, Description: "Inconsistent session timestamps", Count: 1, Severity: SeverityMedium},
	}
	if !reflect.DeepEqual(got.Issues, want) {
		t.Fatalf("unexpected issues %+v", got.Issues)
	}
	if len(got.Recommendations) != 3 || got.Recommendations[0] != "Plan to resolve medium-severity issues in the next maintenance window" {
		t.Fatalf("unexpected recommendations %v", got.Recommendations)
	}

	dirty[6].PhoneNumber = ""
	got = ScoreQuality(dirty)
	if got.Score != 50 || got.Issues[0].Severity != SeverityHigh {
		t.Fatalf("expected more issues to lower the score, got %+v", got)
	}
	if got.Recommendations[0] != "Address high-severity data quality issues immediately" {
		t.Fatalf("unexpected recommendations %v", got.Recommendations)
	}
}

func TestScoreQuality_Empty(t *testing.T) {
	got := ScoreQuality(nil)
	if got.Score != 100 || got.Issues == nil || len(got.Issues) != 0 {
		t.Fatalf("unexpected empty report %+v", got)
	}
	if len(got.Recommendations) != 2 {
		t.Fatalf("expected the two standing recommendations, got %v", got.Recommendations)
	}
}

func TestValidateDataQuality(t *testing.T) {
	ctx := context.Background()
	repo := calls.NewMemoryRepo()
	repo.Seed(
		qualityRecord("1", "+15550001", 60),
		qualityRecord("2", "+15550001", 4000),
		qualityRecord("3", "+15550009", 60),
	)
	repo.Seed(calls.CallRecord{ID: "x", TenantID: "t2", DurationSeconds: -1, Status: calls.StatusCompleted, StartedAt: testNow})
	s, events := newTestService(repo, &stubEngine{})

	got, err := s.ValidateDataQuality(ctx, "t1")
	if err != nil {
		t.Fatalf("validate: %v", err)
	}
	if got.TenantID != "t1" || got.TotalRecords != 3 {
		t.Fatalf("unexpected report %+v", got)
	}
	// One invalid duration and one duplicate over three calls.
	if got.Score != 33 {
		t.Fatalf("expected score 33, got %d", got.Score)
	}
	if evs := events.Events(); len(evs) != 1 || evs[0].Type != audit.EventTypeQualityCheck {
		t.Fatalf("expected one quality audit event, got %+v", evs)
	}

	repo.Err = errors.New("db down")
	if _, err := s.ValidateDataQuality(ctx, "t1"); !errors.Is(err, calls.ErrDataAccess) {
		t.Fatalf("expected data access error, got %v", err)
	}
}

func TestScoreQuality_NeverRisesAsBadDurationsAccumulate(t *testing.T) {
	const n = 25
	recs := make([]calls.CallRecord, n)
	for i := range recs {
		recs[i] = qualityRecord(fmt.Sprintf("q%d", i), fmt.Sprintf("+1555%04d", i), 60)
	}

	prev := ScoreQuality(recs).Score
	if prev != 100 {
		t.Fatalf("expected clean set to score 100, got %d", prev)
	}
	for k := 1; k <= n; k++ {
		recs[k-1].DurationSeconds = -k
		got := ScoreQuality(recs)
		if got.Score > prev {
			t.Fatalf("k=%d: score rose from %d to %d", k, prev, got.Score)
		}
		if got.Score < 0 || got.Score > 100 {
			t.Fatalf("k=%d: score %d out of range", k, got.Score)
		}
		prev = got.Score
	}
	if prev != 0 {
		t.Fatalf("expected all-invalid set to score 0, got %d", prev)
	}
}
