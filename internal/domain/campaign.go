package domain

import (
	"errors"
	"time"
)

var ErrCampaignNotFound = errors.New("campaign not found")

type CampaignStatus string

const (
	CampaignDraft  CampaignStatus = "draft"
	CampaignActive CampaignStatus = "active"
	CampaignPaused CampaignStatus = "paused"
	CampaignEnded  CampaignStatus = "ended"
)

// Campaign is the advertising entity being scheduled. This core reads
// campaigns and bumps their impression counter; everything else about
// their lifecycle belongs to the marketplace service.
type Campaign struct {
	ID          string
	Name        string
	Type        string
	Status      CampaignStatus
	Impressions int64
	CreatedAt   time.Time
}

// Serving reports whether the campaign is in a state where its
// schedules may be executed.
func (c *Campaign) Serving() bool {
	return c.Status == CampaignActive
}
