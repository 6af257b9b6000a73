package reporting

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"testing"
	"time"

	"github.com/xuri/excelize/v2"

	"aurora-dashboard/internal/analytics"
	"aurora-dashboard/internal/audit"
	"aurora-dashboard/internal/calls"
)

var testNow = time.Unix(1700000000, 0).UTC()

func score(v int) *int { return &v }

// stubEngine returns canned results and counts how often it was asked.
type stubEngine struct {
	analytics   analytics.Analytics
	performance analytics.PerformanceMetrics
	predictive  analytics.PredictiveAnalytics
	series      []analytics.DayBucket
	err         error
	hits        int
}

func (e *stubEngine) CalculateAnalytics(ctx context.Context, tenantID string, w analytics.Window) (analytics.Analytics, error) {
	e.hits++
	a := e.analytics
	a.TenantID, a.Window = tenantID, w
	return a, e.err
}

func (e *stubEngine) CalculatePerformanceMetrics(ctx context.Context, tenantID string) (analytics.PerformanceMetrics, error) {
	e.hits++
	return e.performance, e.err
}

func (e *stubEngine) CalculatePredictiveAnalytics(ctx context.Context, tenantID string) (analytics.PredictiveAnalytics, error) {
	e.hits++
	return e.predictive, e.err
}

func (e *stubEngine) DailySeries(ctx context.Context, tenantID string, days int) ([]analytics.DayBucket, error) {
	e.hits++
	return e.series, e.err
}

func newTestService(repo *calls.MemoryRepo, engine Engine) (*Service, *audit.MemoryRepo) {
	events := audit.NewMemoryRepo()
	s := NewService(repo, engine, audit.NewService(events), 0, time.UTC)
	s.clock = func() time.Time { return testNow }
	return s, events
}

func seedExportCalls(repo *calls.MemoryRepo) {
	end := testNow.Add(-50 * time.Minute)
	repo.Seed(
		calls.CallRecord{ID: "c1", TenantID: "t1", PhoneNumber: "+15550001", CallerName: `Ann "AJ" Lee`, CallType: "support",
			Status: calls.StatusCompleted, DurationSeconds: 600, SatisfactionScore: score(5), StartedAt: testNow.Add(-time.Hour), EndedAt: &end},
		calls.CallRecord{ID: "c2", TenantID: "t1", PhoneNumber: "+15550002", CallType: "booking",
			Status: calls.StatusFailed, DurationSeconds: 30, StartedAt: testNow.Add(-2 * time.Hour)},
		calls.CallRecord{ID: "c3", TenantID: "t1", PhoneNumber: "+15550003", CallType: "support",
			Status: calls.StatusCompleted, DurationSeconds: 120, SatisfactionScore: score(2), StartedAt: testNow.Add(-48 * time.Hour)},
		calls.CallRecord{ID: "x1", TenantID: "t2", PhoneNumber: "+15559999", Status: calls.StatusCompleted, StartedAt: testNow},
	)
}

func TestExport_CSVQuotesEveryFieldAndHasOneLinePerRecord(t *testing.T) {
	repo := calls.NewMemoryRepo()
	seedExportCalls(repo)
	s, events := newTestService(repo, &stubEngine{})

	res, err := s.Export(context.Background(), "t1", ExportOptions{Format: ExportCSV})
	if err != nil {
		t.Fatalf("export: %v", err)
	}
	if res.Records != 3 {
		t.Fatalf("expected 3 records, got %d", res.Records)
	}
	if res.Filename != "calls-20231114-221320.csv" || res.ContentType != "text/csv" {
		t.Fatalf("unexpected file %q %q", res.Filename, res.ContentType)
	}
	body := string(res.Body)
	if strings.HasSuffix(body, "\n") {
		t.Fatalf("expected no trailing newline")
	}
	lines := strings.Split(body, "\n")
	if len(lines) != 4 {
		t.Fatalf("expected 4 lines, got %d", len(lines))
	}
	if !strings.HasPrefix(lines[0], `"ID","Phone Number","Caller Name"`) {
		t.Fatalf("unexpected header %q", lines[0])
	}
	for _, l := range lines {
		if !strings.HasPrefix(l, `"`) || !strings.HasSuffix(l, `"`) {
			t.Fatalf("expected every field quoted: %q", l)
		}
	}
	if !strings.Contains(body, `"Ann ""AJ"" Lee"`) {
		t.Fatalf("expected embedded quotes doubled, got %q", body)
	}
	if strings.Contains(body, "x1") {
		t.Fatalf("export leaked another tenant's call")
	}

	evs := events.Events()
	if len(evs) != 1 || evs[0].Type != audit.EventTypeExport || evs[0].TenantID != "t1" {
		t.Fatalf("expected one export audit event, got %+v", evs)
	}
}

func TestExport_CSVFlattensLineBreaksInFields(t *testing.T) {
	repo := calls.NewMemoryRepo()
	repo.Seed(
		calls.CallRecord{ID: "n1", TenantID: "t1", PhoneNumber: "+15550001", CallerName: "Ann\nLee", CallType: "support",
			Status: calls.StatusCompleted, StartedAt: testNow.Add(-time.Hour)},
		calls.CallRecord{ID: "n2", TenantID: "t1", PhoneNumber: "+15550002", CallerName: "Bob\r\nRay\rJr", CallType: "sales\n",
			Status: calls.StatusCompleted, StartedAt: testNow.Add(-2 * time.Hour)},
	)
	s, _ := newTestService(repo, &stubEngine{})

	res, err := s.Export(context.Background(), "t1", ExportOptions{Format: ExportCSV})
	if err != nil {
		t.Fatalf("export: %v", err)
	}
	body := string(res.Body)
	if strings.Contains(body, "\r") {
		t.Fatalf("expected no carriage returns, got %q", body)
	}
	if lines := strings.Split(body, "\n"); len(lines) != res.Records+1 {
		t.Fatalf("expected %d lines, got %d: %q", res.Records+1, len(lines), body)
	}
	if !strings.Contains(body, `"Ann Lee"`) || !strings.Contains(body, `"Bob Ray Jr"`) {
		t.Fatalf("expected line breaks replaced by spaces, got %q", body)
	}
}

func TestExport_FiltersApplyInOrder(t *testing.T) {
	repo := calls.NewMemoryRepo()
	seedExportCalls(repo)
	s, _ := newTestService(repo, &stubEngine{})
	ctx := context.Background()

	res, err := s.Export(ctx, "t1", ExportOptions{Format: ExportCSV, CallTypes: []string{"support"}, MinSatisfaction: 3})
	if err != nil {
		t.Fatalf("export: %v", err)
	}
	if res.Records != 1 || !strings.Contains(string(res.Body), `"c1"`) {
		t.Fatalf("expected only c1, got %d records: %s", res.Records, res.Body)
	}

	res, err = s.Export(ctx, "t1", ExportOptions{
		Format:   ExportCSV,
		Statuses: []calls.Status{calls.StatusCompleted},
		From:     testNow.Add(-48 * time.Hour),
		To:       testNow.Add(-time.Hour),
	})
	if err != nil {
		t.Fatalf("export: %v", err)
	}
	// Both bounds are inclusive.
	if res.Records != 2 {
		t.Fatalf("expected c1 and c3, got %d", res.Records)
	}
}

func TestExport_UnsupportedFormatNeverReadsStore(t *testing.T) {
	repo := calls.NewMemoryRepo()
	repo.Err = errors.New("db down")
	s, events := newTestService(repo, &stubEngine{})

	_, err := s.Export(context.Background(), "t1", ExportOptions{Format: "pdf"})
	if !errors.Is(err, ErrUnsupportedFormat) {
		t.Fatalf("expected ErrUnsupportedFormat, got %v", err)
	}
	if len(events.Events()) != 0 {
		t.Fatalf("expected no audit event")
	}

	_, err = s.Export(context.Background(), "t1", ExportOptions{Format: ExportCSV})
	if !errors.Is(err, calls.ErrDataAccess) {
		t.Fatalf("expected data access error, got %v", err)
	}
}

func TestExport_JSONJoinsInteractionsAndOutcomes(t *testing.T) {
	ctx := context.Background()
	repo := calls.NewMemoryRepo()
	seedExportCalls(repo)
	if err := repo.AddInteraction(ctx, calls.Interaction{ID: "i1", TenantID: "t1", CallID: "c1", Type: calls.InteractionUserInput, Content: "hi", OccurredAt: testNow}); err != nil {
		t.Fatalf("add interaction: %v", err)
	}
	if err := repo.AddOutcome(ctx, calls.Outcome{ID: "o1", TenantID: "t1", CallID: "c2", Type: calls.OutcomeEscalated, CreatedAt: testNow}); err != nil {
		t.Fatalf("add outcome: %v", err)
	}
	s, _ := newTestService(repo, &stubEngine{})

	res, err := s.Export(ctx, "t1", ExportOptions{Format: ExportJSON, IncludeInteractions: true, IncludeOutcomes: true})
	if err != nil {
		t.Fatalf("export: %v", err)
	}
	var doc struct {
		Calls        []calls.CallRecord  `json:"calls"`
		Interactions []calls.Interaction `json:"interactions"`
		Outcomes     []calls.Outcome     `json:"outcomes"`
	}
	if err := json.Unmarshal(res.Body, &doc); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if len(doc.Calls) != 3 || len(doc.Interactions) != 1 || len(doc.Outcomes) != 1 {
		t.Fatalf("unexpected document sizes %d/%d/%d", len(doc.Calls), len(doc.Interactions), len(doc.Outcomes))
	}
	if doc.Outcomes[0].CallID != "c2" {
		t.Fatalf("unexpected outcome %+v", doc.Outcomes[0])
	}
}

func TestExport_XLSXWritesOneSheetPerDataset(t *testing.T) {
	ctx := context.Background()
	repo := calls.NewMemoryRepo()
	seedExportCalls(repo)
	s, _ := newTestService(repo, &stubEngine{})

	res, err := s.Export(ctx, "t1", ExportOptions{Format: ExportXLSX, IncludeOutcomes: true})
	if err != nil {
		t.Fatalf("export: %v", err)
	}
	f, err := excelize.OpenReader(bytes.NewReader(res.Body))
	if err != nil {
		t.Fatalf("open xlsx: %v", err)
	}
	defer f.Close()

	rows, err := f.GetRows(sheetCalls)
	if err != nil {
		t.Fatalf("rows: %v", err)
	}
	if len(rows) != 4 || rows[0][0] != "ID" {
		t.Fatalf("expected header plus 3 rows, got %v", rows)
	}
	if idx, _ := f.GetSheetIndex(sheetOutcomes); idx < 0 {
		t.Fatalf("expected outcomes sheet")
	}
	if idx, _ := f.GetSheetIndex(sheetInteractions); idx >= 0 {
		t.Fatalf("did not expect interactions sheet")
	}
}

func TestImport_IsolatesRowErrors(t *testing.T) {
	ctx := context.Background()
	repo := calls.NewMemoryRepo()
	s, events := newTestService(repo, &stubEngine{})

	rows := []Row{
		{"phoneNumber": "+15550001", "callType": "support", "duration": "90 sec", "satisfaction": "4", "timestamp": "2023-11-14T10:00:00Z", "crm": "A-1"},
		{"callType": "booking"},
		{"phoneNumber": "+15550002", "satisfaction": float64(9)},
		{"phoneNumber": "+15550003", "timestamp": "yesterday"},
	}
	res, err := s.Import(ctx, "t1", rows, ImportOptions{
		Source:         SourceJSON,
		RequiredFields: []string{"phoneNumber"},
		Mapping:        FieldMapping{Extra: map[string]string{"crm_id": "crm"}},
	})
	if err != nil {
		t.Fatalf("import: %v", err)
	}
	if res.Imported != 3 || res.Failed != 1 {
		t.Fatalf("expected 3 imported and 1 failed, got %+v", res)
	}
	if len(res.Errors) != 1 || res.Errors[0] != "Row 2: Missing required field: phoneNumber" {
		t.Fatalf("unexpected errors %v", res.Errors)
	}

	got, err := repo.ListCalls(ctx, "t1", calls.ListFilter{})
	if err != nil || len(got) != 3 {
		t.Fatalf("expected three stored calls, got %d (%v)", len(got), err)
	}
	byPhone := map[string]calls.CallRecord{}
	for _, c := range got {
		byPhone[c.PhoneNumber] = c
	}

	c := byPhone["+15550001"]
	if c.DurationSeconds != 90 || c.SatisfactionScore == nil || *c.SatisfactionScore != 4 {
		t.Fatalf("unexpected mapped call %+v", c)
	}
	if !c.StartedAt.Equal(time.Date(2023, 11, 14, 10, 0, 0, 0, time.UTC)) {
		t.Fatalf("unexpected start %v", c.StartedAt)
	}
	if c.Status != calls.StatusCompleted || !c.AIHandled {
		t.Fatalf("expected completed AI-handled call, got %+v", c)
	}
	if c.Metadata["import_source"] != "json" || c.Metadata["crm_id"] != "A-1" {
		t.Fatalf("unexpected metadata %v", c.Metadata)
	}

	if c := byPhone["+15550002"]; c.SatisfactionScore != nil || c.Metadata["raw_satisfaction"] != 9 {
		t.Fatalf("expected out-of-range score dropped and kept raw, got %+v", c)
	}
	if c := byPhone["+15550003"]; !c.StartedAt.Equal(testNow) || c.Metadata["raw_timestamp"] != "yesterday" {
		t.Fatalf("expected unreadable timestamp to fall back to import time, got %+v", c)
	}

	evs := events.Events()
	if len(evs) != 1 || evs[0].Type != audit.EventTypeImport {
		t.Fatalf("expected one import audit event, got %+v", evs)
	}
}

func TestImport_OnlyMissingRequiredFieldsFailRows(t *testing.T) {
	ctx := context.Background()
	garbageScores := []any{"7", float64(-3), "4", "abc", float64(6), "0", nil}
	garbageTimes := []any{"yesterday", "2023-13-45T99:00:00Z", "", "2023-11-14T10:00:00Z", float64(12)}

	for n := 1; n <= 12; n++ {
		repo := calls.NewMemoryRepo()
		s, _ := newTestService(repo, &stubEngine{})

		rows := make([]Row, 0, n)
		k := 0
		for i := 0; i < n; i++ {
			row := Row{
				"satisfaction": garbageScores[i%len(garbageScores)],
				"timestamp":    garbageTimes[i%len(garbageTimes)],
			}
			if i%3 != 1 {
				row["phoneNumber"] = fmt.Sprintf("+1555%04d", i)
				k++
			}
			rows = append(rows, row)
		}

		res, err := s.Import(ctx, "t1", rows, ImportOptions{Source: SourceAPI, RequiredFields: []string{"phoneNumber"}})
		if err != nil {
			t.Fatalf("n=%d: import: %v", n, err)
		}
		if res.Imported != k || res.Failed != n-k || len(res.Errors) != n-k {
			t.Fatalf("n=%d: expected %d imported and %d failed, got %+v", n, k, n-k, res)
		}

		got, _ := repo.ListCalls(ctx, "t1", calls.ListFilter{})
		if len(got) != k {
			t.Fatalf("n=%d: expected %d stored calls, got %d", n, k, len(got))
		}
		for _, c := range got {
			if c.SatisfactionScore != nil && (*c.SatisfactionScore < calls.MinSatisfaction || *c.SatisfactionScore > calls.MaxSatisfaction) {
				t.Fatalf("n=%d: stored out-of-range score %d", n, *c.SatisfactionScore)
			}
			if _, ok := c.Metadata["raw_timestamp"]; ok && !c.StartedAt.Equal(testNow) {
				t.Fatalf("n=%d: expected import time for %+v", n, c)
			}
		}
	}
}

func TestImport_CustomLayoutAndTimezone(t *testing.T) {
	ctx := context.Background()
	repo := calls.NewMemoryRepo()
	s, _ := newTestService(repo, &stubEngine{})

	rows, err := ParseRows(SourceCSV, strings.NewReader("Phone,When\n+15550001,2023-11-14 09:30\n"))
	if err != nil {
		t.Fatalf("parse: %v", err)
	}
	res, err := s.Import(ctx, "t1", rows, ImportOptions{
		Source:     SourceCSV,
		Mapping:    FieldMapping{PhoneNumber: "Phone", Timestamp: "When"},
		DateFormat: "2006-01-02 15:04",
		Timezone:   "America/New_York",
	})
	if err != nil || res.Imported != 1 {
		t.Fatalf("expected one import, got %+v (%v)", res, err)
	}
	got, _ := repo.ListCalls(ctx, "t1", calls.ListFilter{})
	if len(got) != 1 || got[0].PhoneNumber != "+15550001" {
		t.Fatalf("unexpected calls %+v", got)
	}
	if want := time.Date(2023, 11, 14, 14, 30, 0, 0, time.UTC); !got[0].StartedAt.Equal(want) {
		t.Fatalf("expected %v, got %v", want, got[0].StartedAt)
	}
}

func TestImport_RejectsBadRequestsBeforeWriting(t *testing.T) {
	ctx := context.Background()
	repo := calls.NewMemoryRepo()
	s, _ := newTestService(repo, &stubEngine{})

	if _, err := s.Import(ctx, "t1", []Row{{"phoneNumber": "+1"}}, ImportOptions{Source: "xml"}); !errors.Is(err, ErrUnsupportedFormat) {
		t.Fatalf("expected ErrUnsupportedFormat, got %v", err)
	}
	if _, err := s.Import(ctx, "t1", []Row{{"phoneNumber": "+1"}}, ImportOptions{Source: SourceAPI, Timezone: "Mars/Olympus"}); !errors.Is(err, ErrInvalidRequest) {
		t.Fatalf("expected ErrInvalidRequest, got %v", err)
	}
	if _, err := s.Import(ctx, "", nil, ImportOptions{Source: SourceAPI}); !errors.Is(err, ErrInvalidRequest) {
		t.Fatalf("expected ErrInvalidRequest for missing tenant, got %v", err)
	}
	if got, _ := repo.ListCalls(ctx, "t1", calls.ListFilter{}); len(got) != 0 {
		t.Fatalf("expected nothing written, got %d", len(got))
	}
}

func TestImport_StoreFailureAborts(t *testing.T) {
	repo := calls.NewMemoryRepo()
	repo.Err = errors.New("db down")
	s, _ := newTestService(repo, &stubEngine{})

	res, err := s.Import(context.Background(), "t1", []Row{{"phoneNumber": "+1"}, {"phoneNumber": "+2"}}, ImportOptions{Source: SourceAPI})
	if !errors.Is(err, calls.ErrDataAccess) {
		t.Fatalf("expected data access error, got %v", err)
	}
	if res.Imported != 0 || res.Failed != 0 {
		t.Fatalf("expected abort before counting, got %+v", res)
	}
}

func TestImport_DuplicateIDReportedPerRow(t *testing.T) {
	if got := rowMessage(calls.ErrConflict); got != "Duplicate record" {
		t.Fatalf("unexpected message %q", got)
	}
}

func TestParseRows(t *testing.T) {
	rows, err := ParseRows(SourceJSON, strings.NewReader(`[{"phoneNumber":"+1","duration":30}]`))
	if err != nil || len(rows) != 1 {
		t.Fatalf("expected one row, got %v (%v)", rows, err)
	}
	if coerceInt(rows[0]["duration"]) != 30 {
		t.Fatalf("expected duration 30, got %v", rows[0]["duration"])
	}
	if _, err := ParseRows(SourceJSON, strings.NewReader(`{"not":"an array"}`)); !errors.Is(err, ErrInvalidRequest) {
		t.Fatalf("expected ErrInvalidRequest, got %v", err)
	}
	rows, err = ParseRows(SourceCSV, strings.NewReader(""))
	if err != nil || len(rows) != 0 {
		t.Fatalf("expected no rows for empty csv, got %v (%v)", rows, err)
	}
}
