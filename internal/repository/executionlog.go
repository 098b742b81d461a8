package repository

import (
	"context"

	"github.com/marketboard/ad-scheduler/internal/domain"
)

type ExecutionLogRepository interface {
	// Append inserts one immutable log row. Callers treat failures as
	// non-fatal; see scheduler.LogSink.
	Append(ctx context.Context, entry *domain.ExecutionLog) error

	// ListByScheduleID returns a schedule's history, ordered by
	// created_at ASC.
	ListByScheduleID(ctx context.Context, scheduleID string, limit int) ([]*domain.ExecutionLog, error)
}
