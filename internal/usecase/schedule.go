package usecase

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"time"

	"github.com/marketboard/ad-scheduler/internal/domain"
	"github.com/marketboard/ad-scheduler/internal/repository"
	"github.com/marketboard/ad-scheduler/internal/scheduler"
)

type ScheduleUsecase struct {
	schedules repository.ScheduleRepository
	slots     repository.TimeSlotRepository
	logs      repository.ExecutionLogRepository
	sink      *scheduler.LogSink
}

func NewScheduleUsecase(
	schedules repository.ScheduleRepository,
	slots repository.TimeSlotRepository,
	logs repository.ExecutionLogRepository,
	sink *scheduler.LogSink,
) *ScheduleUsecase {
	return &ScheduleUsecase{schedules: schedules, slots: slots, logs: logs, sink: sink}
}

type CreateScheduleInput struct {
	CampaignID string
	TimeSlotID string
	Date       time.Time
}

// CreateSchedule validates the slot and derives the concrete run
// instant from the date plus the slot's start time. This is the one
// loud failure path in the core: an unknown slot propagates to the
// caller.
//
// Duplicate (campaign, slot, date) schedules are deliberately allowed.
func (u *ScheduleUsecase) CreateSchedule(ctx context.Context, input CreateScheduleInput) (*domain.Schedule, error) {
	slot, err := u.slots.GetByID(ctx, input.TimeSlotID)
	if err != nil {
		return nil, fmt.Errorf("get time slot: %w", err)
	}

	s := &domain.Schedule{
		CampaignID:    input.CampaignID,
		TimeSlotID:    slot.ID,
		ScheduledDate: input.Date,
		ScheduledAt:   slot.Start.On(input.Date),
		Status:        domain.StatusScheduled,
		RetryCount:    0,
		MaxRetries:    scheduler.DefaultMaxRetries,
	}

	created, err := u.schedules.Create(ctx, s)
	if err != nil {
		return nil, fmt.Errorf("create schedule: %w", err)
	}
	return created, nil
}

// CancelSchedule moves a Scheduled or Failed schedule to Cancelled. A
// Running schedule cannot be cancelled mid-flight; terminal rows stay
// put.
func (u *ScheduleUsecase) CancelSchedule(ctx context.Context, id string) error {
	s, err := u.schedules.GetByID(ctx, id)
	if err != nil {
		return fmt.Errorf("get schedule: %w", err)
	}

	if err := u.schedules.Cancel(ctx, id); err != nil {
		return fmt.Errorf("cancel schedule: %w", err)
	}

	u.sink.Append(ctx, &domain.ExecutionLog{
		ScheduleID: &s.ID,
		CampaignID: &s.CampaignID,
		Action:     domain.ActionStop,
		Status:     domain.LogSuccess,
		Message:    fmt.Sprintf("schedule cancelled (was %s)", s.Status),
	})
	return nil
}

func (u *ScheduleUsecase) GetSchedule(ctx context.Context, id string) (*domain.Schedule, error) {
	s, err := u.schedules.GetByID(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("get schedule: %w", err)
	}
	return s, nil
}

func (u *ScheduleUsecase) GetScheduleStats(ctx context.Context) (map[domain.ScheduleStatus]int, error) {
	counts, err := u.schedules.CountByStatus(ctx)
	if err != nil {
		return nil, fmt.Errorf("count schedules: %w", err)
	}
	return counts, nil
}

func (u *ScheduleUsecase) ListScheduleLogs(ctx context.Context, scheduleID string, limit int) ([]*domain.ExecutionLog, error) {
	if _, err := u.schedules.GetByID(ctx, scheduleID); err != nil {
		return nil, fmt.Errorf("get schedule: %w", err)
	}
	if limit <= 0 || limit > 200 {
		limit = 50
	}
	entries, err := u.logs.ListByScheduleID(ctx, scheduleID, limit)
	if err != nil {
		return nil, fmt.Errorf("list schedule logs: %w", err)
	}
	return entries, nil
}

type ListSchedulesInput struct {
	Status string
	Cursor string
	Limit  int
}

type ListSchedulesResult struct {
	Schedules  []*domain.Schedule
	NextCursor *string
}

type scheduleCursor struct {
	CreatedAt time.Time `json:"c"`
	ID        string    `json:"i"`
}

func decodeScheduleCursor(s string) (*time.Time, string, error) {
	b, err := base64.RawURLEncoding.DecodeString(s)
	if err != nil {
		return nil, "", fmt.Errorf("decode cursor: %w", err)
	}
	var c scheduleCursor
	if err := json.Unmarshal(b, &c); err != nil {
		return nil, "", fmt.Errorf("unmarshal cursor: %w", err)
	}
	return &c.CreatedAt, c.ID, nil
}

func encodeScheduleCursor(createdAt time.Time, id string) string {
	b, _ := json.Marshal(scheduleCursor{CreatedAt: createdAt, ID: id})
	return base64.RawURLEncoding.EncodeToString(b)
}

func (u *ScheduleUsecase) ListSchedules(ctx context.Context, input ListSchedulesInput) (ListSchedulesResult, error) {
	limit := input.Limit
	if limit <= 0 {
		limit = 20
	}
	if limit > 100 {
		limit = 100
	}

	repoInput := repository.ListSchedulesInput{Limit: limit + 1}

	if input.Status != "" {
		status, err := domain.ParseScheduleStatus(input.Status)
		if err != nil {
			return ListSchedulesResult{}, err
		}
		repoInput.Status = status
	}
	if input.Cursor != "" {
		cursorTime, cursorID, err := decodeScheduleCursor(input.Cursor)
		if err != nil {
			return ListSchedulesResult{}, domain.ErrInvalidCursor
		}
		repoInput.CursorTime = cursorTime
		repoInput.CursorID = cursorID
	}

	schedules, err := u.schedules.List(ctx, repoInput)
	if err != nil {
		return ListSchedulesResult{}, fmt.Errorf("list schedules: %w", err)
	}

	// The cursor must point at the last row actually returned: the repo
	// filter is strictly (created_at, id) < cursor, so encoding the
	// overflow row would skip it on the next page.
	var nextCursor *string
	if len(schedules) == limit+1 {
		schedules = schedules[:limit]
		last := schedules[limit-1]
		s := encodeScheduleCursor(last.CreatedAt, last.ID)
		nextCursor = &s
	}

	return ListSchedulesResult{Schedules: schedules, NextCursor: nextCursor}, nil
}
