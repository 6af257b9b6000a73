package calls

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/jackc/pgx/v5/pgconn"
)

// Repository is the tenant-scoped persistence contract for call data.
//
// Every method is a single statement. No retries, transactions or locks live here.
// Single-row reads return ErrNotFound when nothing matches; store failures wrap ErrDataAccess.
type Repository interface {
	ListCalls(ctx context.Context, tenantID string, f ListFilter) ([]CallRecord, error)
	GetCall(ctx context.Context, tenantID, id string) (CallRecord, error)
	CreateCall(ctx context.Context, rec CallRecord) error
	UpsertCall(ctx context.Context, rec CallRecord) (CallRecord, error)

	ListInteractions(ctx context.Context, tenantID, callID string) ([]Interaction, error)
	AddInteraction(ctx context.Context, it Interaction) error
	ListOutcomes(ctx context.Context, tenantID, callID string) ([]Outcome, error)
	AddOutcome(ctx context.Context, o Outcome) error

	GetDailyMetrics(ctx context.Context, tenantID string, date time.Time) (DailyMetrics, error)
	UpsertDailyMetrics(ctx context.Context, m DailyMetrics) error
	ListHourlyMetrics(ctx context.Context, tenantID string, date time.Time) ([]HourlyMetrics, error)
	UpsertHourlyMetrics(ctx context.Context, m HourlyMetrics) error
	GetWeeklyMetrics(ctx context.Context, tenantID string, weekStart time.Time) (WeeklyMetrics, error)
	UpsertWeeklyMetrics(ctx context.Context, m WeeklyMetrics) error

	FindTenantByPhoneNumber(ctx context.Context, phone string) (Tenant, error)
}

// PostgresRepo implements Repository on database/sql with the pgx driver.
//
// NOTE: it assumes the tables from migrations/0001_init.sql:
// call_sessions, call_interactions, call_outcomes, daily_metrics, hourly_metrics,
// weekly_metrics and tenants.
type PostgresRepo struct {
	db *sql.DB
}

var _ Repository = (*PostgresRepo)(nil)

func NewPostgresRepo(db *sql.DB) *PostgresRepo { return &PostgresRepo{db: db} }

const callColumns = `
id, tenant_id, COALESCE(provider_call_id, ''), COALESCE(phone_number, ''), COALESCE(caller_name, ''),
session_start, session_end, duration_seconds, status, COALESCE(call_type, ''),
ai_handled, human_transferred, COALESCE(transfer_reason, ''), satisfaction_score,
COALESCE(transcript, ''), COALESCE(summary, ''), COALESCE(notes, ''), metadata, created_at, updated_at`

type rowScanner interface {
	Scan(dest ...any) error
}

func scanCall(s rowScanner) (CallRecord, error) {
	var (
		c        CallRecord
		start    sql.NullTime
		end      sql.NullTime
		score    sql.NullInt32
		metadata []byte
	)
	if err := s.Scan(
		&c.ID,
		&c.TenantID,
		&c.ProviderCallID,
		&c.PhoneNumber,
		&c.CallerName,
		&start,
		&end,
		&c.DurationSeconds,
		&c.Status,
		&c.CallType,
		&c.AIHandled,
		&c.HumanTransferred,
		&c.TransferReason,
		&score,
		&c.Transcript,
		&c.Summary,
		&c.Notes,
		&metadata,
		&c.CreatedAt,
		&c.UpdatedAt,
	); err != nil {
		return CallRecord{}, err
	}
	if start.Valid {
		c.StartedAt = start.Time
	}
	if end.Valid {
		t := end.Time
		c.EndedAt = &t
	}
	if score.Valid {
		n := int(score.Int32)
		c.SatisfactionScore = &n
	}
	if err := decodeJSON(metadata, &c.Metadata); err != nil {
		return CallRecord{}, err
	}
	return c, nil
}

func (r *PostgresRepo) ListCalls(ctx context.Context, tenantID string, f ListFilter) ([]CallRecord, error) {
	if tenantID == "" {
		return nil, errors.New("calls: tenant_id required")
	}

	var (
		b    strings.Builder
		args = []any{tenantID}
	)
	b.WriteString("SELECT " + callColumns + "\nFROM call_sessions\nWHERE tenant_id = $1")
	arg := func(v any) string {
		args = append(args, v)
		return fmt.Sprintf("$%d", len(args))
	}
	if !f.From.IsZero() {
		b.WriteString(" AND COALESCE(session_start, created_at) >= " + arg(f.From))
	}
	if !f.To.IsZero() {
		b.WriteString(" AND COALESCE(session_start, created_at) < " + arg(f.To))
	}
	if len(f.Statuses) > 0 {
		statuses := make([]string, len(f.Statuses))
		for i, s := range f.Statuses {
			statuses[i] = string(s)
		}
		b.WriteString(" AND status = ANY(" + arg(statuses) + ")")
	}
	if len(f.CallTypes) > 0 {
		b.WriteString(" AND call_type = ANY(" + arg(f.CallTypes) + ")")
	}
	b.WriteString("\nORDER BY COALESCE(session_start, created_at) DESC, id")
	if f.Limit > 0 {
		b.WriteString(" LIMIT " + arg(f.Limit))
	}
	if f.Offset > 0 {
		b.WriteString(" OFFSET " + arg(f.Offset))
	}

	rows, err := r.db.QueryContext(ctx, b.String(), args...)
	if err != nil {
		return nil, dataAccess("list calls", err)
	}
	defer rows.Close()

	out := make([]CallRecord, 0)
	for rows.Next() {
		c, err := scanCall(rows)
		if err != nil {
			return nil, dataAccess("scan call", err)
		}
		out = append(out, c)
	}
	if err := rows.Err(); err != nil {
		return nil, dataAccess("list calls", err)
	}
	return out, nil
}

func (r *PostgresRepo) GetCall(ctx context.Context, tenantID, id string) (CallRecord, error) {
	q := "SELECT " + callColumns + "\nFROM call_sessions\nWHERE tenant_id = $1 AND id = $2"
	c, err := scanCall(r.db.QueryRowContext(ctx, q, tenantID, id))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return CallRecord{}, ErrNotFound
		}
		return CallRecord{}, dataAccess("get call", err)
	}
	return c, nil
}

func callArgs(rec CallRecord) ([]any, error) {
	metadata, err := encodeJSON(rec.Metadata)
	if err != nil {
		return nil, err
	}
	return []any{
		rec.ID,
		rec.TenantID,
		nullString(rec.ProviderCallID),
		nullString(rec.PhoneNumber),
		nullString(rec.CallerName),
		nullTime(rec.StartedAt),
		rec.EndedAt,
		rec.DurationSeconds,
		rec.Status,
		nullString(rec.CallType),
		rec.AIHandled,
		rec.HumanTransferred,
		nullString(rec.TransferReason),
		rec.SatisfactionScore,
		nullString(rec.Transcript),
		nullString(rec.Summary),
		nullString(rec.Notes),
		metadata,
		rec.CreatedAt,
		rec.UpdatedAt,
	}, nil
}

const insertCall = `
INSERT INTO call_sessions (
  id, tenant_id, provider_call_id, phone_number, caller_name,
  session_start, session_end, duration_seconds, status, call_type,
  ai_handled, human_transferred, transfer_reason, satisfaction_score,
  transcript, summary, notes, metadata, created_at, updated_at
) VALUES (
  $1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11,$12,$13,$14,$15,$16,$17,$18,$19,$20
)`

func (r *PostgresRepo) CreateCall(ctx context.Context, rec CallRecord) error {
	if err := rec.Validate(); err != nil {
		return err
	}
	args, err := callArgs(rec)
	if err != nil {
		return err
	}
	if _, err := r.db.ExecContext(ctx, insertCall, args...); err != nil {
		if isUniqueViolation(err) {
			return ErrConflict
		}
		return dataAccess("create call", err)
	}
	return nil
}

// The update branch mirrors MergeUpdate. The WHERE clause keeps a conflicting id from
// another tenant untouched; that case surfaces as ErrConflict.
const upsertCall = insertCall + `
ON CONFLICT (id) DO UPDATE SET
  provider_call_id   = COALESCE(EXCLUDED.provider_call_id, call_sessions.provider_call_id),
  phone_number       = COALESCE(EXCLUDED.phone_number, call_sessions.phone_number),
  caller_name        = COALESCE(EXCLUDED.caller_name, call_sessions.caller_name),
  session_start      = COALESCE(call_sessions.session_start, EXCLUDED.session_start),
  session_end        = COALESCE(EXCLUDED.session_end, call_sessions.session_end),
  duration_seconds   = CASE WHEN EXCLUDED.duration_seconds > 0 THEN EXCLUDED.duration_seconds ELSE call_sessions.duration_seconds END,
  status             = CASE WHEN call_sessions.status <> 'active' AND EXCLUDED.status = 'active' THEN call_sessions.status ELSE EXCLUDED.status END,
  call_type          = COALESCE(EXCLUDED.call_type, call_sessions.call_type),
  ai_handled         = call_sessions.ai_handled OR EXCLUDED.ai_handled,
  human_transferred  = call_sessions.human_transferred OR EXCLUDED.human_transferred,
  transfer_reason    = COALESCE(EXCLUDED.transfer_reason, call_sessions.transfer_reason),
  satisfaction_score = COALESCE(EXCLUDED.satisfaction_score, call_sessions.satisfaction_score),
  transcript         = COALESCE(EXCLUDED.transcript, call_sessions.transcript),
  summary            = COALESCE(EXCLUDED.summary, call_sessions.summary),
  notes              = COALESCE(EXCLUDED.notes, call_sessions.notes),
  metadata           = COALESCE(call_sessions.metadata, '{}'::jsonb) || COALESCE(EXCLUDED.metadata, '{}'::jsonb),
  updated_at         = GREATEST(call_sessions.updated_at, EXCLUDED.updated_at)
WHERE call_sessions.tenant_id = EXCLUDED.tenant_id
RETURNING ` + callColumns

func (r *PostgresRepo) UpsertCall(ctx context.Context, rec CallRecord) (CallRecord, error) {
	if err := rec.Validate(); err != nil {
		return CallRecord{}, err
	}
	args, err := callArgs(rec)
	if err != nil {
		return CallRecord{}, err
	}
	out, err := scanCall(r.db.QueryRowContext(ctx, upsertCall, args...))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return CallRecord{}, ErrConflict
		}
		return CallRecord{}, dataAccess("upsert call", err)
	}
	return out, nil
}

func (r *PostgresRepo) ListInteractions(ctx context.Context, tenantID, callID string) ([]Interaction, error) {
	const q = `
SELECT id, call_session_id, tenant_id, interaction_type, content, occurred_at, metadata
FROM call_interactions
WHERE tenant_id = $1 AND call_session_id = $2
ORDER BY occurred_at ASC, id
`
	rows, err := r.db.QueryContext(ctx, q, tenantID, callID)
	if err != nil {
		return nil, dataAccess("list interactions", err)
	}
	defer rows.Close()

	out := make([]Interaction, 0)
	for rows.Next() {
		var (
			it       Interaction
			metadata []byte
		)
		if err := rows.Scan(&it.ID, &it.CallID, &it.TenantID, &it.Type, &it.Content, &it.OccurredAt, &metadata); err != nil {
			return nil, dataAccess("scan interaction", err)
		}
		if err := decodeJSON(metadata, &it.Metadata); err != nil {
			return nil, err
		}
		out = append(out, it)
	}
	if err := rows.Err(); err != nil {
		return nil, dataAccess("list interactions", err)
	}
	return out, nil
}

func (r *PostgresRepo) AddInteraction(ctx context.Context, it Interaction) error {
	if it.ID == "" || it.TenantID == "" || it.CallID == "" {
		return ErrInvalidRecord
	}
	metadata, err := encodeJSON(it.Metadata)
	if err != nil {
		return err
	}
	// The SELECT guard ties the interaction to a call of the same tenant.
	const q = `
INSERT INTO call_interactions (id, call_session_id, tenant_id, interaction_type, content, occurred_at, metadata)
SELECT $1, s.id, s.tenant_id, $4, $5, $6, $7
FROM call_sessions s
WHERE s.id = $2 AND s.tenant_id = $3
`
	res, err := r.db.ExecContext(ctx, q, it.ID, it.CallID, it.TenantID, it.Type, it.Content, it.OccurredAt, metadata)
	if err != nil {
		if isUniqueViolation(err) {
			return ErrConflict
		}
		return dataAccess("add interaction", err)
	}
	return requireOneRow(res)
}

func (r *PostgresRepo) ListOutcomes(ctx context.Context, tenantID, callID string) ([]Outcome, error) {
	const q = `
SELECT id, call_session_id, tenant_id, outcome_type, outcome_data, created_at
FROM call_outcomes
WHERE tenant_id = $1 AND call_session_id = $2
ORDER BY created_at ASC, id
`
	rows, err := r.db.QueryContext(ctx, q, tenantID, callID)
	if err != nil {
		return nil, dataAccess("list outcomes", err)
	}
	defer rows.Close()

	out := make([]Outcome, 0)
	for rows.Next() {
		var (
			o    Outcome
			data []byte
		)
		if err := rows.Scan(&o.ID, &o.CallID, &o.TenantID, &o.Type, &data, &o.CreatedAt); err != nil {
			return nil, dataAccess("scan outcome", err)
		}
		if err := decodeJSON(data, &o.Data); err != nil {
			return nil, err
		}
		out = append(out, o)
	}
	if err := rows.Err(); err != nil {
		return nil, dataAccess("list outcomes", err)
	}
	return out, nil
}

func (r *PostgresRepo) AddOutcome(ctx context.Context, o Outcome) error {
	if o.ID == "" || o.TenantID == "" || o.CallID == "" {
		return ErrInvalidRecord
	}
	data, err := encodeJSON(o.Data)
	if err != nil {
		return err
	}
	const q = `
INSERT INTO call_outcomes (id, call_session_id, tenant_id, outcome_type, outcome_data, created_at)
SELECT $1, s.id, s.tenant_id, $4, $5, $6
FROM call_sessions s
WHERE s.id = $2 AND s.tenant_id = $3
`
	res, err := r.db.ExecContext(ctx, q, o.ID, o.CallID, o.TenantID, o.Type, data, o.CreatedAt)
	if err != nil {
		if isUniqueViolation(err) {
			return ErrConflict
		}
		return dataAccess("add outcome", err)
	}
	return requireOneRow(res)
}

func (r *PostgresRepo) GetDailyMetrics(ctx context.Context, tenantID string, date time.Time) (DailyMetrics, error) {
	const q = `
SELECT tenant_id, date, total_calls, completed_calls, failed_calls, transferred_calls, ai_handled_calls,
       total_duration_seconds, avg_duration_seconds, success_rate, scored_calls, avg_satisfaction,
       call_types, computed_at
FROM daily_metrics
WHERE tenant_id = $1 AND date = $2
`
	var (
		m     DailyMetrics
		types []byte
	)
	err := r.db.QueryRowContext(ctx, q, tenantID, dateOnly(date)).Scan(
		&m.TenantID,
		&m.Date,
		&m.TotalCalls,
		&m.CompletedCalls,
		&m.FailedCalls,
		&m.TransferredCalls,
		&m.AIHandledCalls,
		&m.TotalDurationSeconds,
		&m.AvgDurationSeconds,
		&m.SuccessRate,
		&m.ScoredCalls,
		&m.AvgSatisfaction,
		&types,
		&m.ComputedAt,
	)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return DailyMetrics{}, ErrNotFound
		}
		return DailyMetrics{}, dataAccess("get daily metrics", err)
	}
	if err := decodeJSON(types, &m.CallTypes); err != nil {
		return DailyMetrics{}, err
	}
	return m, nil
}

// Rollup upserts replace every column for the key; recomputation never accumulates.

func (r *PostgresRepo) UpsertDailyMetrics(ctx context.Context, m DailyMetrics) error {
	if m.TenantID == "" {
		return ErrInvalidRecord
	}
	types, err := encodeJSON(m.CallTypes)
	if err != nil {
		return err
	}
	const q = `
INSERT INTO daily_metrics (
  tenant_id, date, total_calls, completed_calls, failed_calls, transferred_calls, ai_handled_calls,
  total_duration_seconds, avg_duration_seconds, success_rate, scored_calls, avg_satisfaction,
  call_types, computed_at
) VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11,$12,$13,$14)
ON CONFLICT (tenant_id, date) DO UPDATE SET
  total_calls = EXCLUDED.total_calls,
  completed_calls = EXCLUDED.completed_calls,
  failed_calls = EXCLUDED.failed_calls,
  transferred_calls = EXCLUDED.transferred_calls,
  ai_handled_calls = EXCLUDED.ai_handled_calls,
  total_duration_seconds = EXCLUDED.total_duration_seconds,
  avg_duration_seconds = EXCLUDED.avg_duration_seconds,
  success_rate = EXCLUDED.success_rate,
  scored_calls = EXCLUDED.scored_calls,
  avg_satisfaction = EXCLUDED.avg_satisfaction,
  call_types = EXCLUDED.call_types,
  computed_at = EXCLUDED.computed_at
`
	_, err = r.db.ExecContext(ctx, q,
		m.TenantID,
		dateOnly(m.Date),
		m.TotalCalls,
		m.CompletedCalls,
		m.FailedCalls,
		m.TransferredCalls,
		m.AIHandledCalls,
		m.TotalDurationSeconds,
		m.AvgDurationSeconds,
		m.SuccessRate,
		m.ScoredCalls,
		m.AvgSatisfaction,
		types,
		m.ComputedAt,
	)
	if err != nil {
		return dataAccess("upsert daily metrics", err)
	}
	return nil
}

func (r *PostgresRepo) ListHourlyMetrics(ctx context.Context, tenantID string, date time.Time) ([]HourlyMetrics, error) {
	const q = `
SELECT tenant_id, date, hour, total_calls, completed_calls, avg_duration_seconds, computed_at
FROM hourly_metrics
WHERE tenant_id = $1 AND date = $2
ORDER BY hour ASC
`
	rows, err := r.db.QueryContext(ctx, q, tenantID, dateOnly(date))
	if err != nil {
		return nil, dataAccess("list hourly metrics", err)
	}
	defer rows.Close()

	out := make([]HourlyMetrics, 0, 24)
	for rows.Next() {
		var m HourlyMetrics
		if err := rows.Scan(&m.TenantID, &m.Date, &m.Hour, &m.TotalCalls, &m.CompletedCalls, &m.AvgDurationSeconds, &m.ComputedAt); err != nil {
			return nil, dataAccess("scan hourly metrics", err)
		}
		out = append(out, m)
	}
	if err := rows.Err(); err != nil {
		return nil, dataAccess("list hourly metrics", err)
	}
	return out, nil
}

func (r *PostgresRepo) UpsertHourlyMetrics(ctx context.Context, m HourlyMetrics) error {
	if m.TenantID == "" || m.Hour < 0 || m.Hour > 23 {
		return ErrInvalidRecord
	}
	const q = `
INSERT INTO hourly_metrics (tenant_id, date, hour, total_calls, completed_calls, avg_duration_seconds, computed_at)
VALUES ($1,$2,$3,$4,$5,$6,$7)
ON CONFLICT (tenant_id, date, hour) DO UPDATE SET
  total_calls = EXCLUDED.total_calls,
  completed_calls = EXCLUDED.completed_calls,
  avg_duration_seconds = EXCLUDED.avg_duration_seconds,
  computed_at = EXCLUDED.computed_at
`
	if _, err := r.db.ExecContext(ctx, q, m.TenantID, dateOnly(m.Date), m.Hour, m.TotalCalls, m.CompletedCalls, m.AvgDurationSeconds, m.ComputedAt); err != nil {
		return dataAccess("upsert hourly metrics", err)
	}
	return nil
}

func (r *PostgresRepo) GetWeeklyMetrics(ctx context.Context, tenantID string, weekStart time.Time) (WeeklyMetrics, error) {
	const q = `
SELECT tenant_id, week_start, week_end, total_calls, completed_calls, failed_calls, transferred_calls,
       avg_duration_seconds, success_rate, avg_satisfaction, COALESCE(busiest_day, ''), call_types, computed_at
FROM weekly_metrics
WHERE tenant_id = $1 AND week_start = $2
`
	var (
		m     WeeklyMetrics
		types []byte
	)
	err := r.db.QueryRowContext(ctx, q, tenantID, dateOnly(weekStart)).Scan(
		&m.TenantID,
		&m.WeekStart,
		&m.WeekEnd,
		&m.TotalCalls,
		&m.CompletedCalls,
		&m.FailedCalls,
		&m.TransferredCalls,
		&m.AvgDurationSeconds,
		&m.SuccessRate,
		&m.AvgSatisfaction,
		&m.BusiestDay,
		&types,
		&m.ComputedAt,
	)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return WeeklyMetrics{}, ErrNotFound
		}
		return WeeklyMetrics{}, dataAccess("get weekly metrics", err)
	}
	if err := decodeJSON(types, &m.CallTypes); err != nil {
		return WeeklyMetrics{}, err
	}
	return m, nil
}

func (r *PostgresRepo) UpsertWeeklyMetrics(ctx context.Context, m WeeklyMetrics) error {
	if m.TenantID == "" {
		return ErrInvalidRecord
	}
	types, err := encodeJSON(m.CallTypes)
	if err != nil {
		return err
	}
	const q = `
INSERT INTO weekly_metrics (
  tenant_id, week_start, week_end, total_calls, completed_calls, failed_calls, transferred_calls,
  avg_duration_seconds, success_rate, avg_satisfaction, busiest_day, call_types, computed_at
) VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11,$12,$13)
ON CONFLICT (tenant_id, week_start) DO UPDATE SET
  week_end = EXCLUDED.week_end,
  total_calls = EXCLUDED.total_calls,
  completed_calls = EXCLUDED.completed_calls,
  failed_calls = EXCLUDED.failed_calls,
  transferred_calls = EXCLUDED.transferred_calls,
  avg_duration_seconds = EXCLUDED.avg_duration_seconds,
  success_rate = EXCLUDED.success_rate,
  avg_satisfaction = EXCLUDED.avg_satisfaction,
  busiest_day = EXCLUDED.busiest_day,
  call_types = EXCLUDED.call_types,
  computed_at = EXCLUDED.computed_at
`
	_, err = r.db.ExecContext(ctx, q,
		m.TenantID,
		dateOnly(m.WeekStart),
		dateOnly(m.WeekEnd),
		m.TotalCalls,
		m.CompletedCalls,
		m.FailedCalls,
		m.TransferredCalls,
		m.AvgDurationSeconds,
		m.SuccessRate,
		m.AvgSatisfaction,
		nullString(m.BusiestDay),
		types,
		m.ComputedAt,
	)
	if err != nil {
		return dataAccess("upsert weekly metrics", err)
	}
	return nil
}

func (r *PostgresRepo) FindTenantByPhoneNumber(ctx context.Context, phone string) (Tenant, error) {
	const q = `
SELECT id, name, phone_number, COALESCE(timezone, '')
FROM tenants
WHERE phone_number = $1
LIMIT 1
`
	var t Tenant
	if err := r.db.QueryRowContext(ctx, q, phone).Scan(&t.ID, &t.Name, &t.PhoneNumber, &t.Timezone); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return Tenant{}, ErrNotFound
		}
		return Tenant{}, dataAccess("find tenant", err)
	}
	return t, nil
}

func isUniqueViolation(err error) bool {
	var pgErr *pgconn.PgError
	return errors.As(err, &pgErr) && pgErr.Code == "23505"
}

func requireOneRow(res sql.Result) error {
	n, err := res.RowsAffected()
	if err != nil {
		return dataAccess("rows affected", err)
	}
	if n == 0 {
		return ErrNotFound
	}
	return nil
}

func nullString(s string) sql.NullString {
	return sql.NullString{String: s, Valid: s != ""}
}

func nullTime(t time.Time) sql.NullTime {
	return sql.NullTime{Time: t, Valid: !t.IsZero()}
}

// dateOnly strips the clock but keeps the calendar date as seen in t's location.
func dateOnly(t time.Time) time.Time {
	y, m, d := t.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

func encodeJSON(v any) ([]byte, error) {
	b, err := json.Marshal(v)
	if err != nil {
		return nil, fmt.Errorf("%w: encode json: %v", ErrInvalidRecord, err)
	}
	if string(b) == "null" {
		return []byte("{}"), nil
	}
	return b, nil
}

func decodeJSON[T any](raw []byte, dst *T) error {
	if len(raw) == 0 {
		return nil
	}
	if err := json.Unmarshal(raw, dst); err != nil {
		return dataAccess("decode json", err)
	}
	return nil
}
