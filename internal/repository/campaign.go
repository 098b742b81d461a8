package repository

import (
	"context"

	"github.com/marketboard/ad-scheduler/internal/domain"
)

// CampaignRepository is the read-model over campaign rows owned by the
// marketplace service. The impression counter is the one column this
// core writes, through the default campaign runner.
type CampaignRepository interface {
	GetByID(ctx context.Context, id string) (*domain.Campaign, error)
	IncrementImpressions(ctx context.Context, id string, delta int64) error
}
