package repository

import (
	"context"
	"time"

	"github.com/marketboard/ad-scheduler/internal/domain"
)

type ListSchedulesInput struct {
	Status     domain.ScheduleStatus // empty = all statuses
	CursorTime *time.Time            // cursor on (created_at DESC, id DESC); nil = first page
	CursorID   string                // used only when CursorTime is non-nil
	Limit      int
}

// The usecases and sweeps depend on this interface, not the concrete
// postgres implementation, so tests can pass hand-written mocks.
type ScheduleRepository interface {
	Create(ctx context.Context, s *domain.Schedule) (*domain.Schedule, error)
	GetByID(ctx context.Context, id string) (*domain.Schedule, error)
	List(ctx context.Context, input ListSchedulesInput) ([]*domain.Schedule, error)

	// ListBySlotsOnDate returns schedules bound to any of the given
	// slots on the given date with one of the given statuses. Used by
	// the availability checks to find conflicting claims.
	ListBySlotsOnDate(ctx context.Context, slotIDs []string, date time.Time, statuses []domain.ScheduleStatus) ([]*domain.Schedule, error)

	// DueForExecution is the main sweep's selection: Scheduled rows for
	// now's date whose active slot covers now's weekday and minute and
	// whose campaign is serving.
	DueForExecution(ctx context.Context, now time.Time, limit int) ([]*domain.Schedule, error)

	// DueForRetry selects Failed rows whose next_retry_at is set and has
	// elapsed; the pointer is only ever set while an attempt is owed.
	DueForRetry(ctx context.Context, now time.Time, limit int) ([]*domain.Schedule, error)

	// Status writes are compare-and-set on the current status so a
	// concurrent writer cannot clobber a transition it never saw. The
	// bool result is false when the precondition did not hold.
	MarkRunning(ctx context.Context, id string, from []domain.ScheduleStatus, executedAt time.Time) (bool, error)
	MarkCompleted(ctx context.Context, id string, completedAt time.Time) (bool, error)
	MarkFailed(ctx context.Context, id string, retryCount int, nextRetryAt *time.Time, reason string) (bool, error)

	// Cancel moves a Scheduled or Failed row to Cancelled. Returns
	// domain.ErrScheduleNotFound or domain.ErrScheduleNotCancellable.
	Cancel(ctx context.Context, id string) error

	CountByStatus(ctx context.Context) (map[domain.ScheduleStatus]int, error)

	// DeleteExpired removes terminal rows (Completed, or Failed with
	// retries exhausted) last touched before cutoff.
	DeleteExpired(ctx context.Context, cutoff time.Time) (int, error)
}
