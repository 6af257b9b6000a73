package reporting

import (
	"context"
	"encoding/json"
	"fmt"
	"slices"
	"strconv"
	"strings"
	"time"

	"github.com/xuri/excelize/v2"
	"golang.org/x/sync/errgroup"

	"aurora-dashboard/internal/audit"
	"aurora-dashboard/internal/calls"
)

// joinConcurrency bounds the per-call interaction/outcome reads of one export.
const joinConcurrency = 8

var csvHeader = []string{
	"ID", "Phone Number", "Caller Name", "Call Type", "Status", "Duration (seconds)",
	"Satisfaction Score", "Created At", "Session Start", "Session End",
}

func (f ExportFormat) valid() bool {
	switch f {
	case ExportCSV, ExportJSON, ExportXLSX:
		return true
	default:
		return false
	}
}

// Export serializes a tenant's calls. The format is checked before anything is read.
func (s *Service) Export(ctx context.Context, tenantID string, opts ExportOptions) (ExportResult, error) {
	if !opts.Format.valid() {
		return ExportResult{}, fmt.Errorf("%w: export format %q", ErrUnsupportedFormat, opts.Format)
	}
	if err := s.ready(tenantID); err != nil {
		return ExportResult{}, err
	}
	if !opts.From.IsZero() && !opts.To.IsZero() && opts.To.Before(opts.From) {
		return ExportResult{}, fmt.Errorf("%w: date range ends before it starts", ErrInvalidRequest)
	}

	records, err := s.snapshot(ctx, tenantID)
	if err != nil {
		return ExportResult{}, err
	}
	records = applyExportFilters(records, opts)

	var (
		interactions []calls.Interaction
		outcomes     []calls.Outcome
	)
	// CSV carries call rows only.
	if opts.Format != ExportCSV && (opts.IncludeInteractions || opts.IncludeOutcomes) {
		interactions, outcomes, err = s.join(ctx, tenantID, records, opts.IncludeInteractions, opts.IncludeOutcomes)
		if err != nil {
			return ExportResult{}, err
		}
	}

	stamp := s.clock().UTC().Format("20060102-150405")
	out := ExportResult{Format: opts.Format, Records: len(records)}
	switch opts.Format {
	case ExportCSV:
		out.File = File{Filename: "calls-" + stamp + ".csv", ContentType: "text/csv", Body: []byte(encodeCSV(records))}
	case ExportJSON:
		body, err := encodeJSON(exportDocument{Calls: records, Interactions: interactions, Outcomes: outcomes})
		if err != nil {
			return ExportResult{}, err
		}
		out.File = File{Filename: "calls-" + stamp + ".json", ContentType: "application/json", Body: body}
	case ExportXLSX:
		body, err := encodeXLSX(records, interactions, outcomes, opts.IncludeInteractions, opts.IncludeOutcomes)
		if err != nil {
			return ExportResult{}, err
		}
		out.File = File{
			Filename:    "calls-" + stamp + ".xlsx",
			ContentType: "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet",
			Body:        body,
		}
	}

	s.record(ctx, tenantID, audit.EventTypeExport, fmt.Sprintf("exported %d calls", len(records)), map[string]any{
		"format":               string(opts.Format),
		"records":              len(records),
		"include_interactions": opts.IncludeInteractions,
		"include_outcomes":     opts.IncludeOutcomes,
	})
	return out, nil
}

// applyExportFilters runs call types, then statuses, then minimum satisfaction, then the date range.
func applyExportFilters(records []calls.CallRecord, opts ExportOptions) []calls.CallRecord {
	out := make([]calls.CallRecord, 0, len(records))
	for _, r := range records {
		if len(opts.CallTypes) > 0 && (r.CallType == "" || !slices.Contains(opts.CallTypes, r.CallType)) {
			continue
		}
		if len(opts.Statuses) > 0 && !slices.Contains(opts.Statuses, r.Status) {
			continue
		}
		if opts.MinSatisfaction > 0 && (r.SatisfactionScore == nil || *r.SatisfactionScore < opts.MinSatisfaction) {
			continue
		}
		at := r.At()
		if !opts.From.IsZero() && at.Before(opts.From) {
			continue
		}
		if !opts.To.IsZero() && at.After(opts.To) {
			continue
		}
		out = append(out, r)
	}
	return out
}

func (s *Service) join(ctx context.Context, tenantID string, records []calls.CallRecord, withInteractions, withOutcomes bool) ([]calls.Interaction, []calls.Outcome, error) {
	perCallInteractions := make([][]calls.Interaction, len(records))
	perCallOutcomes := make([][]calls.Outcome, len(records))

	g, gCtx := errgroup.WithContext(ctx)
	g.SetLimit(joinConcurrency)
	for i, r := range records {
		i, r := i, r
		g.Go(func() error {
			if withInteractions {
				its, err := s.store.ListInteractions(gCtx, tenantID, r.ID)
				if err != nil {
					return err
				}
				perCallInteractions[i] = its
			}
			if withOutcomes {
				outs, err := s.store.ListOutcomes(gCtx, tenantID, r.ID)
				if err != nil {
					return err
				}
				perCallOutcomes[i] = outs
			}
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, nil, err
	}

	var (
		interactions []calls.Interaction
		outcomes     []calls.Outcome
	)
	for i := range records {
		interactions = append(interactions, perCallInteractions[i]...)
		outcomes = append(outcomes, perCallOutcomes[i]...)
	}
	return interactions, outcomes, nil
}

// encodeCSV quotes every field and joins lines with "\n" without a trailing newline,
// so M records always give M+1 lines. Line breaks inside fields become spaces.
func encodeCSV(records []calls.CallRecord) string {
	lines := make([]string, 0, len(records)+1)
	lines = append(lines, csvLine(csvHeader))
	for _, r := range records {
		lines = append(lines, csvLine(callRow(r)))
	}
	return strings.Join(lines, "\n")
}

var csvFlatten = strings.NewReplacer("\r\n", " ", "\r", " ", "\n", " ")

func csvLine(fields []string) string {
	quoted := make([]string, len(fields))
	for i, f := range fields {
		quoted[i] = `"` + strings.ReplaceAll(csvFlatten.Replace(f), `"`, `""`) + `"`
	}
	return strings.Join(quoted, ",")
}

func callRow(r calls.CallRecord) []string {
	score := ""
	if r.SatisfactionScore != nil {
		score = strconv.Itoa(*r.SatisfactionScore)
	}
	return []string{
		r.ID,
		r.PhoneNumber,
		r.CallerName,
		r.CallType,
		string(r.Status),
		strconv.Itoa(r.DurationSeconds),
		score,
		formatTime(r.CreatedAt),
		formatTime(r.StartedAt),
		formatTimePtr(r.EndedAt),
	}
}

func formatTime(t time.Time) string {
	if t.IsZero() {
		return ""
	}
	return t.UTC().Format(time.RFC3339)
}

func formatTimePtr(t *time.Time) string {
	if t == nil {
		return ""
	}
	return formatTime(*t)
}

type exportDocument struct {
	Calls        []calls.CallRecord  `json:"calls"`
	Interactions []calls.Interaction `json:"interactions,omitempty"`
	Outcomes     []calls.Outcome     `json:"outcomes,omitempty"`
}

func encodeJSON(v any) ([]byte, error) {
	b, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return nil, fmt.Errorf("reporting: encode json: %w", err)
	}
	return b, nil
}

const (
	sheetCalls        = "Calls"
	sheetInteractions = "Interactions"
	sheetOutcomes     = "Outcomes"
)

func encodeXLSX(records []calls.CallRecord, interactions []calls.Interaction, outcomes []calls.Outcome, withInteractions, withOutcomes bool) ([]byte, error) {
	f := excelize.NewFile()
	defer f.Close()

	if err := f.SetSheetName("Sheet1", sheetCalls); err != nil {
		return nil, fmt.Errorf("reporting: xlsx: %w", err)
	}
	rows := make([][]any, 0, len(records)+1)
	rows = append(rows, toAny(csvHeader))
	for _, r := range records {
		rows = append(rows, toAny(callRow(r)))
	}
	if err := writeSheet(f, sheetCalls, rows); err != nil {
		return nil, err
	}

	if withInteractions {
		rows = [][]any{{"ID", "Call ID", "Type", "Content", "Timestamp"}}
		for _, it := range interactions {
			rows = append(rows, []any{it.ID, it.CallID, string(it.Type), it.Content, formatTime(it.OccurredAt)})
		}
		if err := addSheet(f, sheetInteractions, rows); err != nil {
			return nil, err
		}
	}
	if withOutcomes {
		rows = [][]any{{"ID", "Call ID", "Outcome", "Data", "Created At"}}
		for _, o := range outcomes {
			data, _ := json.Marshal(o.Data)
			rows = append(rows, []any{o.ID, o.CallID, string(o.Type), string(data), formatTime(o.CreatedAt)})
		}
		if err := addSheet(f, sheetOutcomes, rows); err != nil {
			return nil, err
		}
	}

	buf, err := f.WriteToBuffer()
	if err != nil {
		return nil, fmt.Errorf("reporting: xlsx: %w", err)
	}
	return buf.Bytes(), nil
}

func addSheet(f *excelize.File, name string, rows [][]any) error {
	if _, err := f.NewSheet(name); err != nil {
		return fmt.Errorf("reporting: xlsx: %w", err)
	}
	return writeSheet(f, name, rows)
}

func writeSheet(f *excelize.File, sheet string, rows [][]any) error {
	for i, row := range rows {
		cell, err := excelize.CoordinatesToCellName(1, i+1)
		if err != nil {
			return fmt.Errorf("reporting: xlsx: %w", err)
		}
		if err := f.SetSheetRow(sheet, cell, &row); err != nil {
			return fmt.Errorf("reporting: xlsx: %w", err)
		}
	}
	return nil
}

func toAny(fields []string) []any {
	out := make([]any, len(fields))
	for i, f := range fields {
		out[i] = f
	}
	return out
}
