package domain

import (
	"errors"
	"time"
)

var (
	ErrScheduleNotFound       = errors.New("schedule not found")
	ErrInvalidTransition      = errors.New("invalid schedule status transition")
	ErrScheduleNotCancellable = errors.New("schedule cannot be cancelled in its current state")
	ErrInvalidStatus          = errors.New("invalid schedule status")
	ErrInvalidCursor          = errors.New("invalid pagination cursor")
)

type ScheduleStatus string

const (
	StatusScheduled ScheduleStatus = "scheduled"
	StatusRunning   ScheduleStatus = "running"
	StatusCompleted ScheduleStatus = "completed"
	StatusFailed    ScheduleStatus = "failed"
	StatusCancelled ScheduleStatus = "cancelled"
)

func ParseScheduleStatus(s string) (ScheduleStatus, error) {
	switch ScheduleStatus(s) {
	case StatusScheduled, StatusRunning, StatusCompleted, StatusFailed, StatusCancelled:
		return ScheduleStatus(s), nil
	}
	return "", ErrInvalidStatus
}

// transitions is the full state machine:
//
//	Scheduled → Running | Cancelled
//	Running   → Completed | Failed
//	Failed    → Running (retry) | Cancelled
//
// Completed and Cancelled are terminal. Failed is terminal too once
// retries are exhausted, but that depends on the retry counter, so it
// is enforced by the retry policy rather than this table.
var transitions = map[ScheduleStatus][]ScheduleStatus{
	StatusScheduled: {StatusRunning, StatusCancelled},
	StatusRunning:   {StatusCompleted, StatusFailed},
	StatusFailed:    {StatusRunning, StatusCancelled},
}

// CanTransition reports whether the state machine permits from → to.
func CanTransition(from, to ScheduleStatus) bool {
	for _, next := range transitions[from] {
		if next == to {
			return true
		}
	}
	return false
}

// Cancellable statuses: a schedule already picked up by a sweep
// (Running) cannot be cancelled mid-flight, and terminal rows stay put.
func (s ScheduleStatus) Cancellable() bool {
	return s == StatusScheduled || s == StatusFailed
}

// Schedule is one concrete occurrence: this campaign runs in this time
// slot on this calendar date.
type Schedule struct {
	ID         string
	CampaignID string
	TimeSlotID string

	// ScheduledDate is the calendar date (date-only); ScheduledAt is
	// derived once at creation from the date plus the slot's start time
	// and never re-derived afterwards.
	ScheduledDate time.Time
	ScheduledAt   time.Time

	Status     ScheduleStatus
	RetryCount int
	MaxRetries int

	// NextRetryAt is set iff Status is Failed and retries remain.
	NextRetryAt   *time.Time
	FailureReason *string

	ExecutedAt  *time.Time
	CompletedAt *time.Time

	CreatedAt time.Time
	UpdatedAt time.Time
}

// Terminal reports whether no further automatic transition can occur.
// A Failed row whose counter has hit the maximum but that still carries
// NextRetryAt is owed one last retry and is not terminal yet.
func (s *Schedule) Terminal() bool {
	switch s.Status {
	case StatusCompleted, StatusCancelled:
		return true
	case StatusFailed:
		return s.RetryCount >= s.MaxRetries && s.NextRetryAt == nil
	}
	return false
}
