package repository

import (
	"context"

	"github.com/marketboard/ad-scheduler/internal/domain"
)

type TimeSlotRepository interface {
	GetByID(ctx context.Context, id string) (*domain.TimeSlot, error)
	ListByCampaign(ctx context.Context, campaignID string) ([]*domain.TimeSlot, error)

	// ListActiveForWeekday returns active slots containing the weekday
	// (0=Sunday), optionally filtered by the owning campaign's type,
	// ordered by (priority DESC, start_time ASC).
	ListActiveForWeekday(ctx context.Context, weekday int, campaignType string) ([]*domain.TimeSlot, error)

	// ListOverlapping returns active slots containing the weekday whose
	// [start, end) window overlaps the queried [start, end) window.
	ListOverlapping(ctx context.Context, weekday int, start, end domain.TimeOfDay, campaignType string) ([]*domain.TimeSlot, error)

	// ReplaceForCampaign deletes the campaign's slots and inserts the
	// new batch in a single transaction, so no reader ever observes a
	// campaign with zero slots mid-edit.
	ReplaceForCampaign(ctx context.Context, campaignID string, slots []*domain.TimeSlot) ([]*domain.TimeSlot, error)
}
