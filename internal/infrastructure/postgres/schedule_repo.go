package postgres

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/marketboard/ad-scheduler/internal/domain"
	"github.com/marketboard/ad-scheduler/internal/repository"
)

type ScheduleRepository struct {
	pool *pgxpool.Pool
}

func NewScheduleRepository(pool *pgxpool.Pool) *ScheduleRepository {
	return &ScheduleRepository{pool: pool}
}

const scheduleColumns = `id, campaign_id, time_slot_id, scheduled_date, scheduled_at,
	       status, retry_count, max_retries, next_retry_at, failure_reason,
	       executed_at, completed_at, created_at, updated_at`

func (r *ScheduleRepository) Create(ctx context.Context, s *domain.Schedule) (*domain.Schedule, error) {
	query := `
		INSERT INTO ad_schedules (
			campaign_id, time_slot_id, scheduled_date, scheduled_at,
			status, retry_count, max_retries
		) VALUES ($1, $2, $3::date, $4, $5, $6, $7)
		RETURNING ` + scheduleColumns

	row := r.pool.QueryRow(ctx, query,
		s.CampaignID, s.TimeSlotID, dateArg(s.ScheduledDate), s.ScheduledAt,
		s.Status, s.RetryCount, s.MaxRetries,
	)
	created, err := scanSchedule(row)
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == "23503" {
			return nil, domain.ErrCampaignNotFound
		}
		return nil, err
	}
	return created, nil
}

func (r *ScheduleRepository) GetByID(ctx context.Context, id string) (*domain.Schedule, error) {
	row := r.pool.QueryRow(ctx,
		`SELECT `+scheduleColumns+` FROM ad_schedules WHERE id = $1`, id)
	return scanSchedule(row)
}

func (r *ScheduleRepository) List(ctx context.Context, input repository.ListSchedulesInput) ([]*domain.Schedule, error) {
	args := []any{}
	where := []string{"TRUE"}

	if input.Status != "" {
		args = append(args, input.Status)
		where = append(where, fmt.Sprintf("status = $%d", len(args)))
	}
	if input.CursorTime != nil {
		args = append(args, *input.CursorTime, input.CursorID)
		where = append(where, fmt.Sprintf("(created_at, id) < ($%d, $%d)", len(args)-1, len(args)))
	}
	args = append(args, input.Limit)

	query := fmt.Sprintf(`
		SELECT `+scheduleColumns+`
		FROM ad_schedules
		WHERE %s
		ORDER BY created_at DESC, id DESC
		LIMIT $%d`,
		strings.Join(where, " AND "), len(args))

	rows, err := r.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("list schedules: %w", err)
	}
	defer rows.Close()
	return collectSchedules(rows)
}

func (r *ScheduleRepository) ListBySlotsOnDate(ctx context.Context, slotIDs []string, date time.Time, statuses []domain.ScheduleStatus) ([]*domain.Schedule, error) {
	if len(slotIDs) == 0 {
		return nil, nil
	}
	rows, err := r.pool.Query(ctx, `
		SELECT `+scheduleColumns+`
		FROM ad_schedules
		WHERE time_slot_id = ANY($1)
		  AND scheduled_date = $2::date
		  AND status = ANY($3)
		ORDER BY scheduled_at ASC`,
		slotIDs, dateArg(date), statusStrings(statuses))
	if err != nil {
		return nil, fmt.Errorf("list schedules by slots: %w", err)
	}
	defer rows.Close()
	return collectSchedules(rows)
}

// DueForExecution joins slots and campaigns so one query answers the
// main sweep's whole predicate. Slot boundaries are zero-padded "HH:MM"
// text, so lexical comparison is chronological.
func (r *ScheduleRepository) DueForExecution(ctx context.Context, now time.Time, limit int) ([]*domain.Schedule, error) {
	clock := domain.TimeOfDay(now.Hour()*60 + now.Minute()).String()

	rows, err := r.pool.Query(ctx, `
		SELECT s.id, s.campaign_id, s.time_slot_id, s.scheduled_date, s.scheduled_at,
		       s.status, s.retry_count, s.max_retries, s.next_retry_at, s.failure_reason,
		       s.executed_at, s.completed_at, s.created_at, s.updated_at
		FROM ad_schedules s
		JOIN time_slots ts ON ts.id = s.time_slot_id
		JOIN campaigns c   ON c.id  = s.campaign_id
		WHERE s.status = 'scheduled'
		  AND s.scheduled_date = $1::date
		  AND ts.active
		  AND $2 = ANY(ts.weekdays)
		  AND ts.start_time <= $3
		  AND ts.end_time   >= $3
		  AND c.status = 'active'
		ORDER BY ts.priority DESC, ts.start_time ASC
		LIMIT $4`,
		dateArg(now), int(now.Weekday()), clock, limit)
	if err != nil {
		return nil, fmt.Errorf("select due schedules: %w", err)
	}
	defer rows.Close()
	return collectSchedules(rows)
}

// DueForRetry keys on next_retry_at alone: the retry policy only sets
// it when an attempt is still owed, and claiming a row clears it, so a
// non-NULL elapsed value is exactly the set of retryable rows. The last
// allowed retry carries retry_count = max_retries and must still fire.
func (r *ScheduleRepository) DueForRetry(ctx context.Context, now time.Time, limit int) ([]*domain.Schedule, error) {
	rows, err := r.pool.Query(ctx, `
		SELECT `+scheduleColumns+`
		FROM ad_schedules
		WHERE status = 'failed'
		  AND next_retry_at <= $1
		ORDER BY next_retry_at ASC
		LIMIT $2`,
		now, limit)
	if err != nil {
		return nil, fmt.Errorf("select retry-due schedules: %w", err)
	}
	defer rows.Close()
	return collectSchedules(rows)
}

func (r *ScheduleRepository) MarkRunning(ctx context.Context, id string, from []domain.ScheduleStatus, executedAt time.Time) (bool, error) {
	// Compare-and-set on status: a row already moved by another writer
	// is left alone and the caller is told so. The retry pointer is
	// consumed here so a schedule that goes on to succeed does not keep
	// a stale next_retry_at.
	tag, err := r.pool.Exec(ctx, `
		UPDATE ad_schedules
		SET status = 'running', executed_at = $2, next_retry_at = NULL, updated_at = NOW()
		WHERE id = $1 AND status = ANY($3)`,
		id, executedAt, statusStrings(from))
	if err != nil {
		return false, fmt.Errorf("mark running: %w", err)
	}
	return tag.RowsAffected() == 1, nil
}

func (r *ScheduleRepository) MarkCompleted(ctx context.Context, id string, completedAt time.Time) (bool, error) {
	tag, err := r.pool.Exec(ctx, `
		UPDATE ad_schedules
		SET status = 'completed', completed_at = $2, failure_reason = NULL, updated_at = NOW()
		WHERE id = $1 AND status = 'running'`,
		id, completedAt)
	if err != nil {
		return false, fmt.Errorf("mark completed: %w", err)
	}
	return tag.RowsAffected() == 1, nil
}

func (r *ScheduleRepository) MarkFailed(ctx context.Context, id string, retryCount int, nextRetryAt *time.Time, reason string) (bool, error) {
	tag, err := r.pool.Exec(ctx, `
		UPDATE ad_schedules
		SET status = 'failed', retry_count = $2, next_retry_at = $3,
		    failure_reason = $4, updated_at = NOW()
		WHERE id = $1 AND status = 'running'`,
		id, retryCount, nextRetryAt, reason)
	if err != nil {
		return false, fmt.Errorf("mark failed: %w", err)
	}
	return tag.RowsAffected() == 1, nil
}

func (r *ScheduleRepository) Cancel(ctx context.Context, id string) error {
	tag, err := r.pool.Exec(ctx, `
		UPDATE ad_schedules
		SET status = 'cancelled', next_retry_at = NULL, updated_at = NOW()
		WHERE id = $1 AND status IN ('scheduled', 'failed')`,
		id)
	if err != nil {
		return fmt.Errorf("cancel schedule: %w", err)
	}
	if tag.RowsAffected() == 0 {
		// Distinguish not-found vs not-cancellable.
		if _, err := r.GetByID(ctx, id); err != nil {
			return err
		}
		return domain.ErrScheduleNotCancellable
	}
	return nil
}

func (r *ScheduleRepository) CountByStatus(ctx context.Context) (map[domain.ScheduleStatus]int, error) {
	rows, err := r.pool.Query(ctx,
		`SELECT status, COUNT(*) FROM ad_schedules GROUP BY status`)
	if err != nil {
		return nil, fmt.Errorf("count schedules: %w", err)
	}
	defer rows.Close()

	counts := make(map[domain.ScheduleStatus]int)
	for rows.Next() {
		var status domain.ScheduleStatus
		var n int
		if err := rows.Scan(&status, &n); err != nil {
			return nil, fmt.Errorf("scan count: %w", err)
		}
		counts[status] = n
	}
	return counts, rows.Err()
}

func (r *ScheduleRepository) DeleteExpired(ctx context.Context, cutoff time.Time) (int, error) {
	tag, err := r.pool.Exec(ctx, `
		DELETE FROM ad_schedules
		WHERE (status = 'completed' AND completed_at < $1)
		   OR (status = 'failed' AND retry_count >= max_retries
		       AND next_retry_at IS NULL AND updated_at < $1)`,
		cutoff)
	if err != nil {
		return 0, fmt.Errorf("delete expired schedules: %w", err)
	}
	return int(tag.RowsAffected()), nil
}

func statusStrings(statuses []domain.ScheduleStatus) []string {
	out := make([]string, len(statuses))
	for i, s := range statuses {
		out[i] = string(s)
	}
	return out
}

func dateArg(t time.Time) string {
	return t.Format("2006-01-02")
}

func collectSchedules(rows pgx.Rows) ([]*domain.Schedule, error) {
	var schedules []*domain.Schedule
	for rows.Next() {
		s, err := scanSchedule(rows)
		if err != nil {
			return nil, err
		}
		schedules = append(schedules, s)
	}
	return schedules, rows.Err()
}

func scanSchedule(row rowScanner) (*domain.Schedule, error) {
	var s domain.Schedule
	err := row.Scan(
		&s.ID, &s.CampaignID, &s.TimeSlotID, &s.ScheduledDate, &s.ScheduledAt,
		&s.Status, &s.RetryCount, &s.MaxRetries, &s.NextRetryAt, &s.FailureReason,
		&s.ExecutedAt, &s.CompletedAt, &s.CreatedAt, &s.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, domain.ErrScheduleNotFound
		}
		return nil, fmt.Errorf("scan schedule: %w", err)
	}
	return &s, nil
}
