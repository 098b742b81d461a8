package usecase

import (
	"context"
	"fmt"
	"time"

	"github.com/marketboard/ad-scheduler/internal/domain"
	"github.com/marketboard/ad-scheduler/internal/repository"
)

// claimingStatuses are the schedule statuses that make a slot
// unavailable on a given date.
var claimingStatuses = []domain.ScheduleStatus{domain.StatusScheduled, domain.StatusRunning}

type AvailabilityUsecase struct {
	slots     repository.TimeSlotRepository
	schedules repository.ScheduleRepository
	campaigns repository.CampaignRepository
}

func NewAvailabilityUsecase(
	slots repository.TimeSlotRepository,
	schedules repository.ScheduleRepository,
	campaigns repository.CampaignRepository,
) *AvailabilityUsecase {
	return &AvailabilityUsecase{slots: slots, schedules: schedules, campaigns: campaigns}
}

type AvailabilityResult struct {
	Available bool
	Conflicts []*domain.Schedule
}

// IsAvailable checks whether the [start, end) window on date is free:
// it finds active slots overlapping the window on that weekday, then
// schedules already claiming those slots on that date.
func (u *AvailabilityUsecase) IsAvailable(ctx context.Context, campaignType string, date time.Time, start, end domain.TimeOfDay) (AvailabilityResult, error) {
	if start >= end {
		return AvailabilityResult{}, domain.ErrInvalidSlotWindow
	}

	slots, err := u.slots.ListOverlapping(ctx, int(date.Weekday()), start, end, campaignType)
	if err != nil {
		return AvailabilityResult{}, fmt.Errorf("list overlapping slots: %w", err)
	}
	if len(slots) == 0 {
		return AvailabilityResult{Available: true}, nil
	}

	slotIDs := make([]string, len(slots))
	for i, s := range slots {
		slotIDs[i] = s.ID
	}
	conflicts, err := u.schedules.ListBySlotsOnDate(ctx, slotIDs, date, claimingStatuses)
	if err != nil {
		return AvailabilityResult{}, fmt.Errorf("list conflicting schedules: %w", err)
	}

	return AvailabilityResult{Available: len(conflicts) == 0, Conflicts: conflicts}, nil
}

// ListFreeSlotsForDate returns the date's active, weekday-matching
// slots minus those already claimed by a Scheduled or Running schedule.
// Ordering follows the repository's (priority DESC, start ASC).
func (u *AvailabilityUsecase) ListFreeSlotsForDate(ctx context.Context, date time.Time, campaignType string) ([]*domain.TimeSlot, error) {
	slots, err := u.slots.ListActiveForWeekday(ctx, int(date.Weekday()), campaignType)
	if err != nil {
		return nil, fmt.Errorf("list active slots: %w", err)
	}
	if len(slots) == 0 {
		return []*domain.TimeSlot{}, nil
	}

	slotIDs := make([]string, len(slots))
	for i, s := range slots {
		slotIDs[i] = s.ID
	}
	claims, err := u.schedules.ListBySlotsOnDate(ctx, slotIDs, date, claimingStatuses)
	if err != nil {
		return nil, fmt.Errorf("list claimed slots: %w", err)
	}

	claimed := make(map[string]bool, len(claims))
	for _, s := range claims {
		claimed[s.TimeSlotID] = true
	}

	free := make([]*domain.TimeSlot, 0, len(slots))
	for _, s := range slots {
		if !claimed[s.ID] {
			free = append(free, s)
		}
	}
	return free, nil
}

type TimeSlotInput struct {
	Start    string
	End      string
	Weekdays []int
	Priority int
	Active   bool
}

// ReplaceTimeSlots swaps a campaign's whole slot catalogue in one
// transaction (replace-all semantics).
func (u *AvailabilityUsecase) ReplaceTimeSlots(ctx context.Context, campaignID string, inputs []TimeSlotInput) ([]*domain.TimeSlot, error) {
	if _, err := u.campaigns.GetByID(ctx, campaignID); err != nil {
		return nil, fmt.Errorf("get campaign: %w", err)
	}

	slots := make([]*domain.TimeSlot, 0, len(inputs))
	for _, in := range inputs {
		start, err := domain.ParseTimeOfDay(in.Start)
		if err != nil {
			return nil, err
		}
		end, err := domain.ParseTimeOfDay(in.End)
		if err != nil {
			return nil, err
		}
		slot := &domain.TimeSlot{
			CampaignID: campaignID,
			Start:      start,
			End:        end,
			Weekdays:   in.Weekdays,
			Priority:   in.Priority,
			Active:     in.Active,
		}
		if err := slot.Validate(); err != nil {
			return nil, err
		}
		slots = append(slots, slot)
	}

	created, err := u.slots.ReplaceForCampaign(ctx, campaignID, slots)
	if err != nil {
		return nil, fmt.Errorf("replace time slots: %w", err)
	}
	return created, nil
}
