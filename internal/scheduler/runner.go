package scheduler

import (
	"context"
	"math/rand"
	"time"

	"github.com/marketboard/ad-scheduler/internal/domain"
	"github.com/marketboard/ad-scheduler/internal/repository"
)

// CampaignRunner performs the externally visible side effect of
// serving a campaign in a time slot. Injected so the engine stays
// deterministic under test.
type CampaignRunner interface {
	Execute(ctx context.Context, campaign *domain.Campaign, slot *domain.TimeSlot) error
}

// ImpressionRunner is the default runner: it simulates ad delivery by
// sleeping for a short random latency and bumping the campaign's
// impression counter by a random amount.
type ImpressionRunner struct {
	campaigns repository.CampaignRepository

	minLatency     time.Duration
	maxLatency     time.Duration
	maxImpressions int64
}

func NewImpressionRunner(campaigns repository.CampaignRepository, minLatency, maxLatency time.Duration) *ImpressionRunner {
	return &ImpressionRunner{
		campaigns:      campaigns,
		minLatency:     minLatency,
		maxLatency:     maxLatency,
		maxImpressions: 50,
	}
}

func (r *ImpressionRunner) Execute(ctx context.Context, campaign *domain.Campaign, slot *domain.TimeSlot) error {
	delay := r.minLatency
	if r.maxLatency > r.minLatency {
		delay += time.Duration(rand.Int63n(int64(r.maxLatency - r.minLatency)))
	}

	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-time.After(delay):
	}

	delta := rand.Int63n(r.maxImpressions) + 1
	return r.campaigns.IncrementImpressions(ctx, campaign.ID, delta)
}
