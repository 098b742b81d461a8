package postgres

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/marketboard/ad-scheduler/internal/domain"
)

type TimeSlotRepository struct {
	pool *pgxpool.Pool
}

func NewTimeSlotRepository(pool *pgxpool.Pool) *TimeSlotRepository {
	return &TimeSlotRepository{pool: pool}
}

const timeSlotColumns = `id, campaign_id, start_time, end_time, weekdays, priority, active, created_at`

func (r *TimeSlotRepository) GetByID(ctx context.Context, id string) (*domain.TimeSlot, error) {
	row := r.pool.QueryRow(ctx,
		`SELECT `+timeSlotColumns+` FROM time_slots WHERE id = $1`, id)
	return scanTimeSlot(row)
}

func (r *TimeSlotRepository) ListByCampaign(ctx context.Context, campaignID string) ([]*domain.TimeSlot, error) {
	rows, err := r.pool.Query(ctx, `
		SELECT `+timeSlotColumns+`
		FROM time_slots
		WHERE campaign_id = $1
		ORDER BY priority DESC, start_time ASC`,
		campaignID)
	if err != nil {
		return nil, fmt.Errorf("list slots by campaign: %w", err)
	}
	defer rows.Close()
	return collectTimeSlots(rows)
}

func (r *TimeSlotRepository) ListActiveForWeekday(ctx context.Context, weekday int, campaignType string) ([]*domain.TimeSlot, error) {
	args := []any{weekday}
	query := `
		SELECT ts.id, ts.campaign_id, ts.start_time, ts.end_time,
		       ts.weekdays, ts.priority, ts.active, ts.created_at
		FROM time_slots ts`
	where := ` WHERE ts.active AND $1 = ANY(ts.weekdays)`
	if campaignType != "" {
		args = append(args, campaignType)
		query += ` JOIN campaigns c ON c.id = ts.campaign_id`
		where += ` AND c.type = $2`
	}
	query += where + ` ORDER BY ts.priority DESC, ts.start_time ASC`

	rows, err := r.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("list active slots: %w", err)
	}
	defer rows.Close()
	return collectTimeSlots(rows)
}

// ListOverlapping applies the half-open interval test in SQL:
// slot_start < query_end AND slot_end > query_start. Zero-padded
// "HH:MM" text compares chronologically.
func (r *TimeSlotRepository) ListOverlapping(ctx context.Context, weekday int, start, end domain.TimeOfDay, campaignType string) ([]*domain.TimeSlot, error) {
	args := []any{weekday, start.String(), end.String()}
	query := `
		SELECT ts.id, ts.campaign_id, ts.start_time, ts.end_time,
		       ts.weekdays, ts.priority, ts.active, ts.created_at
		FROM time_slots ts`
	where := `
		WHERE ts.active
		  AND $1 = ANY(ts.weekdays)
		  AND ts.start_time < $3
		  AND ts.end_time   > $2`
	if campaignType != "" {
		args = append(args, campaignType)
		query += ` JOIN campaigns c ON c.id = ts.campaign_id`
		where += ` AND c.type = $4`
	}
	query += where + ` ORDER BY ts.priority DESC, ts.start_time ASC`

	rows, err := r.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("list overlapping slots: %w", err)
	}
	defer rows.Close()
	return collectTimeSlots(rows)
}

// ReplaceForCampaign runs delete + insert in one transaction, so a
// reader never observes the campaign with zero slots mid-replace.
func (r *TimeSlotRepository) ReplaceForCampaign(ctx context.Context, campaignID string, slots []*domain.TimeSlot) ([]*domain.TimeSlot, error) {
	tx, err := r.pool.Begin(ctx)
	if err != nil {
		return nil, fmt.Errorf("begin tx: %w", err)
	}
	defer func() {
		if err != nil {
			_ = tx.Rollback(ctx)
		}
	}()

	if _, err = tx.Exec(ctx,
		`DELETE FROM time_slots WHERE campaign_id = $1`, campaignID); err != nil {
		return nil, fmt.Errorf("delete old slots: %w", err)
	}

	created := make([]*domain.TimeSlot, 0, len(slots))
	for _, slot := range slots {
		row := tx.QueryRow(ctx, `
			INSERT INTO time_slots (campaign_id, start_time, end_time, weekdays, priority, active)
			VALUES ($1, $2, $3, $4, $5, $6)
			RETURNING `+timeSlotColumns,
			campaignID, slot.Start.String(), slot.End.String(),
			slot.Weekdays, slot.Priority, slot.Active)

		var inserted *domain.TimeSlot
		if inserted, err = scanTimeSlot(row); err != nil {
			var pgErr *pgconn.PgError
			if errors.As(err, &pgErr) && pgErr.Code == "23503" {
				return nil, domain.ErrCampaignNotFound
			}
			return nil, fmt.Errorf("insert slot: %w", err)
		}
		created = append(created, inserted)
	}

	if err = tx.Commit(ctx); err != nil {
		return nil, fmt.Errorf("commit tx: %w", err)
	}
	return created, nil
}

func collectTimeSlots(rows pgx.Rows) ([]*domain.TimeSlot, error) {
	var slots []*domain.TimeSlot
	for rows.Next() {
		ts, err := scanTimeSlot(rows)
		if err != nil {
			return nil, err
		}
		slots = append(slots, ts)
	}
	return slots, rows.Err()
}

func scanTimeSlot(row rowScanner) (*domain.TimeSlot, error) {
	var ts domain.TimeSlot
	var start, end string
	err := row.Scan(
		&ts.ID, &ts.CampaignID, &start, &end,
		&ts.Weekdays, &ts.Priority, &ts.Active, &ts.CreatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, domain.ErrTimeSlotNotFound
		}
		return nil, fmt.Errorf("scan time slot: %w", err)
	}
	if ts.Start, err = domain.ParseTimeOfDay(start); err != nil {
		return nil, fmt.Errorf("slot %s start_time: %w", ts.ID, err)
	}
	if ts.End, err = domain.ParseTimeOfDay(end); err != nil {
		return nil, fmt.Errorf("slot %s end_time: %w", ts.ID, err)
	}
	return &ts, nil
}
