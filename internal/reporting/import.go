package reporting

import (
	"context"
	"encoding/csv"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"math"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"

	"aurora-dashboard/internal/audit"
	"aurora-dashboard/internal/calls"
)

// MaxImportRows caps one import batch.
const MaxImportRows = 5000

func (s ImportSource) valid() bool {
	switch s {
	case SourceCSV, SourceJSON, SourceAPI:
		return true
	default:
		return false
	}
}

// ParseRows reads an import body. CSV bodies need a header row; JSON and API bodies are an array of objects.
func ParseRows(source ImportSource, r io.Reader) ([]Row, error) {
	switch source {
	case SourceCSV:
		cr := csv.NewReader(r)
		cr.FieldsPerRecord = -1
		cr.TrimLeadingSpace = true
		records, err := cr.ReadAll()
		if err != nil {
			return nil, fmt.Errorf("%w: csv: %v", ErrInvalidRequest, err)
		}
		if len(records) == 0 {
			return []Row{}, nil
		}
		header := records[0]
		rows := make([]Row, 0, len(records)-1)
		for _, rec := range records[1:] {
			row := Row{}
			for i, col := range header {
				if i < len(rec) {
					row[strings.TrimSpace(col)] = rec[i]
				}
			}
			rows = append(rows, row)
		}
		return rows, nil
	case SourceJSON, SourceAPI:
		var rows []Row
		if err := json.NewDecoder(r).Decode(&rows); err != nil {
			return nil, fmt.Errorf("%w: json: %v", ErrInvalidRequest, err)
		}
		if rows == nil {
			rows = []Row{}
		}
		return rows, nil
	default:
		return nil, fmt.Errorf("%w: import source %q", ErrUnsupportedFormat, source)
	}
}

// Import creates one call per row. A row that fails validation or mapping is counted and
// reported as "Row <n>: <message>" (1-based) without stopping the batch. Store failures abort.
func (s *Service) Import(ctx context.Context, tenantID string, rows []Row, opts ImportOptions) (ImportResult, error) {
	if !opts.Source.valid() {
		return ImportResult{}, fmt.Errorf("%w: import source %q", ErrUnsupportedFormat, opts.Source)
	}
	if err := s.ready(tenantID); err != nil {
		return ImportResult{}, err
	}
	if len(rows) > MaxImportRows {
		return ImportResult{}, fmt.Errorf("%w: at most %d rows per import", ErrInvalidRequest, MaxImportRows)
	}
	loc := time.UTC
	if opts.Timezone != "" {
		l, err := time.LoadLocation(opts.Timezone)
		if err != nil {
			return ImportResult{}, fmt.Errorf("%w: timezone %q", ErrInvalidRequest, opts.Timezone)
		}
		loc = l
	}

	res := ImportResult{Errors: []string{}}
	for i, row := range rows {
		rec, err := s.mapRow(tenantID, row, opts, loc)
		if err == nil {
			err = s.store.CreateCall(ctx, rec)
			if errors.Is(err, calls.ErrDataAccess) {
				s.recordImport(ctx, tenantID, opts.Source, res)
				return res, err
			}
		}
		if err != nil {
			res.Failed++
			res.Errors = append(res.Errors, fmt.Sprintf("Row %d: %s", i+1, rowMessage(err)))
			continue
		}
		res.Imported++
	}
	s.recordImport(ctx, tenantID, opts.Source, res)
	return res, nil
}

func (s *Service) recordImport(ctx context.Context, tenantID string, source ImportSource, res ImportResult) {
	s.record(ctx, tenantID, audit.EventTypeImport, fmt.Sprintf("imported %d calls, %d failed", res.Imported, res.Failed), map[string]any{
		"source":   string(source),
		"imported": res.Imported,
		"failed":   res.Failed,
	})
}

type rowError string

func (e rowError) Error() string { return string(e) }

func rowMessage(err error) string {
	var re rowError
	if errors.As(err, &re) {
		return string(re)
	}
	if errors.Is(err, calls.ErrConflict) {
		return "Duplicate record"
	}
	return err.Error()
}

func columnOr(name, fallback string) string {
	if name != "" {
		return name
	}
	return fallback
}

func (s *Service) mapRow(tenantID string, row Row, opts ImportOptions, loc *time.Location) (calls.CallRecord, error) {
	for _, f := range opts.RequiredFields {
		if !present(row[f]) {
			return calls.CallRecord{}, rowError("Missing required field: " + f)
		}
	}

	m := opts.Mapping
	now := s.clock().UTC()
	rec := calls.CallRecord{
		ID:              uuid.NewString(),
		TenantID:        tenantID,
		PhoneNumber:     text(row[columnOr(m.PhoneNumber, "phoneNumber")]),
		CallerName:      text(row[columnOr(m.CallerName, "callerName")]),
		CallType:        text(row[columnOr(m.CallType, "callType")]),
		DurationSeconds: coerceInt(row[columnOr(m.Duration, "duration")]),
		Status:          calls.StatusCompleted,
		AIHandled:       true,
		CreatedAt:       now,
		UpdatedAt:       now,
		StartedAt:       now,
	}

	meta := map[string]any{"import_source": string(opts.Source)}

	// Out-of-range scores and unreadable timestamps degrade to absent / import time; the raw
	// value is kept in metadata.
	if score := coerceInt(row[columnOr(m.Satisfaction, "satisfaction")]); score != 0 {
		if score >= calls.MinSatisfaction && score <= calls.MaxSatisfaction {
			rec.SatisfactionScore = &score
		} else {
			meta["raw_satisfaction"] = score
		}
	}

	if raw := text(row[columnOr(m.Timestamp, "timestamp")]); raw != "" {
		layout := opts.DateFormat
		if layout == "" {
			layout = time.RFC3339
		}
		if ts, err := time.ParseInLocation(layout, raw, loc); err == nil {
			rec.StartedAt = ts.UTC()
		} else {
			meta["raw_timestamp"] = raw
		}
	}

	for key, col := range m.Extra {
		if v, ok := row[col]; ok && v != nil {
			meta[key] = v
		}
	}
	rec.Metadata = meta

	if err := rec.Validate(); err != nil {
		return calls.CallRecord{}, err
	}
	return rec, nil
}

// present mirrors a truthiness check: absent, nil, blank, zero and false all count as missing.
func present(v any) bool {
	switch t := v.(type) {
	case nil:
		return false
	case string:
		return strings.TrimSpace(t) != ""
	case float64:
		return t != 0
	case bool:
		return t
	default:
		return true
	}
}

func text(v any) string {
	switch t := v.(type) {
	case nil:
		return ""
	case string:
		return strings.TrimSpace(t)
	case float64:
		return strconv.FormatFloat(t, 'f', -1, 64)
	default:
		return strings.TrimSpace(fmt.Sprint(t))
	}
}

// coerceInt parses the leading integer of v. Anything unparseable is 0.
func coerceInt(v any) int {
	switch t := v.(type) {
	case float64:
		if math.IsNaN(t) || math.IsInf(t, 0) {
			return 0
		}
		return int(t)
	case int:
		return t
	case string:
		s := strings.TrimSpace(t)
		end := 0
		for end < len(s) {
			c := s[end]
			if (c >= '0' && c <= '9') || (end == 0 && (c == '-' || c == '+')) {
				end++
				continue
			}
			break
		}
		n, err := strconv.Atoi(s[:end])
		if err != nil {
			return 0
		}
		return n
	default:
		return 0
	}
}
