// Package persistence provides the data storage abstraction layer for flows, executions,
// leads and recurring campaigns.
package persistence

import (
	"context"
	"time"

	"github.com/dukex/leadflow/pkg/models"
)

// Persistence groups every repository behind one backend.
type Persistence interface {
	FlowRepository() FlowRepository
	ExecutionRepository() ExecutionRepository
	LeadRepository() LeadRepository
	CampaignRepository() CampaignRepository

	HealthCheck(ctx context.Context) error
	Close(ctx context.Context) error
}

// FlowRepository stores flow definitions. Flows are read-only to the executor.
type FlowRepository interface {
	GetAll(ctx context.Context) ([]*models.Flow, error)
	GetByID(ctx context.Context, id string) (*models.Flow, error)
	Save(ctx context.Context, flow *models.Flow) error
	Delete(ctx context.Context, id string) error
}

// ExecutionRepository stores execution instances.
type ExecutionRepository interface {
	GetByID(ctx context.Context, id string) (*models.ExecutionInstance, error)
	Save(ctx context.Context, execution *models.ExecutionInstance) error
	GetByFlow(ctx context.Context, flowID string) ([]*models.ExecutionInstance, error)

	// DueExecutions returns waiting instances whose resume instant is at or before now.
	DueExecutions(ctx context.Context, now time.Time) ([]*models.ExecutionInstance, error)
}

// LeadRepository stores leads and their tags, callback queue entries and notes.
// Writes are last-write-wins; no version token is checked.
type LeadRepository interface {
	GetLead(ctx context.Context, id string) (*models.Lead, error)
	SaveLead(ctx context.Context, lead *models.Lead) error

	HasTag(ctx context.Context, leadID, tagID string) (bool, error)
	AddTag(ctx context.Context, tag *models.LeadTag) error
	Tags(ctx context.Context, leadID string) ([]*models.LeadTag, error)

	HasPendingCallback(ctx context.Context, leadID string) (bool, error)
	AddCallback(ctx context.Context, entry *models.CallbackEntry) error
	Callbacks(ctx context.Context, leadID string) ([]*models.CallbackEntry, error)

	AppendNote(ctx context.Context, note *models.Note) error
	Notes(ctx context.Context, leadID string) ([]*models.Note, error)
}

// CampaignRepository stores recurring campaigns.
type CampaignRepository interface {
	GetAll(ctx context.Context) ([]*models.RecurringCampaign, error)
	GetByID(ctx context.Context, id string) (*models.RecurringCampaign, error)
	Save(ctx context.Context, campaign *models.RecurringCampaign) error

	// DueCampaigns returns active campaigns whose next run is at or before now.
	DueCampaigns(ctx context.Context, now time.Time) ([]*models.RecurringCampaign, error)
}
