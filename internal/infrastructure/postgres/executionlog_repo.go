package postgres

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/marketboard/ad-scheduler/internal/domain"
)

type ExecutionLogRepository struct {
	pool *pgxpool.Pool
}

func NewExecutionLogRepository(pool *pgxpool.Pool) *ExecutionLogRepository {
	return &ExecutionLogRepository{pool: pool}
}

func (r *ExecutionLogRepository) Append(ctx context.Context, entry *domain.ExecutionLog) error {
	_, err := r.pool.Exec(ctx, `
		INSERT INTO execution_logs (schedule_id, campaign_id, action, status, message, error_details, metrics)
		VALUES ($1, $2, $3, $4, $5, $6, $7)`,
		entry.ScheduleID, entry.CampaignID, entry.Action, entry.Status,
		entry.Message, entry.ErrorDetails, entry.Metrics,
	)
	if err != nil {
		return fmt.Errorf("append execution log: %w", err)
	}
	return nil
}

func (r *ExecutionLogRepository) ListByScheduleID(ctx context.Context, scheduleID string, limit int) ([]*domain.ExecutionLog, error) {
	rows, err := r.pool.Query(ctx, `
		SELECT id, schedule_id, campaign_id, action, status, message,
		       error_details, metrics, created_at
		FROM execution_logs
		WHERE schedule_id = $1
		ORDER BY created_at ASC
		LIMIT $2`,
		scheduleID, limit)
	if err != nil {
		return nil, fmt.Errorf("list execution logs: %w", err)
	}
	defer rows.Close()

	var entries []*domain.ExecutionLog
	for rows.Next() {
		var e domain.ExecutionLog
		if err := rows.Scan(
			&e.ID, &e.ScheduleID, &e.CampaignID, &e.Action, &e.Status,
			&e.Message, &e.ErrorDetails, &e.Metrics, &e.CreatedAt,
		); err != nil {
			return nil, fmt.Errorf("scan execution log: %w", err)
		}
		entries = append(entries, &e)
	}
	return entries, rows.Err()
}
