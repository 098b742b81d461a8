package postgres

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/marketboard/ad-scheduler/internal/domain"
)

type CampaignRepository struct {
	pool *pgxpool.Pool
}

func NewCampaignRepository(pool *pgxpool.Pool) *CampaignRepository {
	return &CampaignRepository{pool: pool}
}

func (r *CampaignRepository) GetByID(ctx context.Context, id string) (*domain.Campaign, error) {
	var c domain.Campaign
	err := r.pool.QueryRow(ctx, `
		SELECT id, name, type, status, impressions, created_at
		FROM campaigns
		WHERE id = $1`,
		id).Scan(&c.ID, &c.Name, &c.Type, &c.Status, &c.Impressions, &c.CreatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, domain.ErrCampaignNotFound
		}
		return nil, fmt.Errorf("get campaign: %w", err)
	}
	return &c, nil
}

func (r *CampaignRepository) IncrementImpressions(ctx context.Context, id string, delta int64) error {
	tag, err := r.pool.Exec(ctx,
		`UPDATE campaigns SET impressions = impressions + $2 WHERE id = $1`,
		id, delta)
	if err != nil {
		return fmt.Errorf("increment impressions: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return domain.ErrCampaignNotFound
	}
	return nil
}
