package file

import (
	"context"
	"errors"
	"os"
	"sort"
	"time"

	"github.com/dukex/leadflow/pkg/models"
	"github.com/dukex/leadflow/pkg/persistence"
)

const campaignsDir = "campaigns"

// CampaignRepository handles recurring campaign file operations.
type CampaignRepository struct {
	store *store
}

func (r *CampaignRepository) GetAll(_ context.Context) ([]*models.RecurringCampaign, error) {
	r.store.mu.RLock()
	defer r.store.mu.RUnlock()

	campaigns, err := readAll[models.RecurringCampaign](r.store, campaignsDir)
	if err != nil {
		return nil, persistence.NewRecordError("GetAll", "campaign", "", err)
	}

	sort.Slice(campaigns, func(i, j int) bool {
		return campaigns[i].CreatedAt.Before(campaigns[j].CreatedAt)
	})

	return campaigns, nil
}

func (r *CampaignRepository) GetByID(_ context.Context, id string) (*models.RecurringCampaign, error) {
	r.store.mu.RLock()
	defer r.store.mu.RUnlock()

	var campaign models.RecurringCampaign

	err := r.store.read(campaignsDir, id, &campaign)
	if errors.Is(err, os.ErrNotExist) {
		return nil, persistence.NewRecordError("GetByID", "campaign", id, persistence.ErrCampaignNotFound)
	}

	if err != nil {
		return nil, persistence.NewRecordError("GetByID", "campaign", id, err)
	}

	return &campaign, nil
}

func (r *CampaignRepository) Save(_ context.Context, campaign *models.RecurringCampaign) error {
	r.store.mu.Lock()
	defer r.store.mu.Unlock()

	if campaign.CreatedAt.IsZero() {
		campaign.CreatedAt = time.Now().UTC()
	}

	if err := r.store.write(campaignsDir, campaign.ID, campaign); err != nil {
		return persistence.NewRecordError("Save", "campaign", campaign.ID, err)
	}

	return nil
}

func (r *CampaignRepository) DueCampaigns(ctx context.Context, now time.Time) ([]*models.RecurringCampaign, error) {
	all, err := r.GetAll(ctx)
	if err != nil {
		return nil, err
	}

	due := make([]*models.RecurringCampaign, 0, len(all))

	for _, campaign := range all {
		if campaign.IsDue(now) {
			due = append(due, campaign)
		}
	}

	return due, nil
}
