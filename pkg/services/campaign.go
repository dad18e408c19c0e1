package services

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"slices"
	"time"

	"github.com/dukex/leadflow/pkg/eventbus"
	"github.com/dukex/leadflow/pkg/events"
	"github.com/dukex/leadflow/pkg/models"
	"github.com/dukex/leadflow/pkg/persistence"
	"github.com/dukex/leadflow/pkg/schedule"
	"github.com/google/uuid"
)

var (
	// ErrCampaignNotFound is returned when a campaign is not found.
	ErrCampaignNotFound = persistence.ErrCampaignNotFound
)

// CampaignOption configures a Campaign service.
type CampaignOption func(*Campaign)

// WithCampaignClock overrides the time source.
func WithCampaignClock(now func() time.Time) CampaignOption {
	return func(c *Campaign) {
		c.now = now
	}
}

// Campaign manages recurring campaigns and their firing.
type Campaign struct {
	campaigns  persistence.CampaignRepository
	publisher  eventbus.EventPublisher
	recurrence *schedule.Recurrence
	logger     *slog.Logger
	now        func() time.Time
}

func NewCampaign(
	campaigns persistence.CampaignRepository,
	publisher eventbus.EventPublisher,
	recurrence *schedule.Recurrence,
	logger *slog.Logger,
	opts ...CampaignOption,
) *Campaign {
	if recurrence == nil {
		recurrence = schedule.NewRecurrence(nil)
	}

	c := &Campaign{
		campaigns:  campaigns,
		publisher:  publisher,
		recurrence: recurrence,
		logger:     logger.With("module", "campaign_service"),
		now:        time.Now,
	}

	for _, opt := range opts {
		opt(c)
	}

	return c
}

func (c *Campaign) List(ctx context.Context) ([]*models.RecurringCampaign, error) {
	return c.campaigns.GetAll(ctx)
}

func (c *Campaign) FetchByID(ctx context.Context, id string) (*models.RecurringCampaign, error) {
	return c.campaigns.GetByID(ctx, id)
}

// Create validates the campaign and computes its first run.
func (c *Campaign) Create(ctx context.Context, campaign *models.RecurringCampaign) (*models.RecurringCampaign, error) {
	now := c.now().UTC()

	campaign.ID = uuid.NewString()
	campaign.CreatedAt = now
	campaign.UpdatedAt = now
	campaign.LastRunAt = nil

	if err := c.prepare(campaign, now); err != nil {
		return nil, err
	}

	if err := c.campaigns.Save(ctx, campaign); err != nil {
		return nil, fmt.Errorf("failed to save campaign: %w", err)
	}

	c.logger.InfoContext(ctx, "Campaign created", "campaign_id", campaign.ID, "next_run_at", campaign.NextRunAt)

	return campaign, nil
}

// Update replaces the editable fields of a campaign and recomputes its next run.
func (c *Campaign) Update(ctx context.Context, id string, changes *models.RecurringCampaign) (*models.RecurringCampaign, error) {
	existing, err := c.campaigns.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}

	now := c.now().UTC()

	changes.ID = existing.ID
	changes.CreatedAt = existing.CreatedAt
	changes.LastRunAt = existing.LastRunAt
	changes.UpdatedAt = now

	if changes.Recipients == nil {
		changes.Recipients = existing.Recipients
	}

	if err := c.prepare(changes, now); err != nil {
		return nil, err
	}

	if err := c.campaigns.Save(ctx, changes); err != nil {
		return nil, fmt.Errorf("failed to save campaign: %w", err)
	}

	return changes, nil
}

// AddRecipients merges phone numbers into the campaign recipient list, keeping order and
// dropping repeats.
func (c *Campaign) AddRecipients(ctx context.Context, id string, phones []string) (*models.RecurringCampaign, error) {
	campaign, err := c.campaigns.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}

	for _, phone := range phones {
		if !slices.Contains(campaign.Recipients, phone) {
			campaign.Recipients = append(campaign.Recipients, phone)
		}
	}

	campaign.UpdatedAt = c.now().UTC()

	if err := c.campaigns.Save(ctx, campaign); err != nil {
		return nil, fmt.Errorf("failed to save campaign: %w", err)
	}

	return campaign, nil
}

// Fire publishes campaign.due for the scheduled run and advances NextRunAt. The campaign
// is reloaded first, so a run already fired by another worker is skipped. Runs missed
// while no worker was polling collapse into one firing.
func (c *Campaign) Fire(ctx context.Context, campaign *models.RecurringCampaign) error {
	current, err := c.campaigns.GetByID(ctx, campaign.ID)
	if err != nil {
		return err
	}

	now := c.now()
	if !current.IsDue(now) {
		return nil
	}

	runAt := *current.NextRunAt

	event := events.CampaignDue{
		BaseEvent:  events.NewBaseEvent(events.CampaignDueEvent, now),
		CampaignID: current.ID,
		RunAt:      runAt,
		Recipients: current.Recipients,
	}

	if err := c.publisher.Publish(ctx, current.ID, event); err != nil {
		return fmt.Errorf("failed to publish campaign due: %w", err)
	}

	current.LastRunAt = &runAt
	current.UpdatedAt = now.UTC()

	next, err := c.recurrence.NextRun(current, runAt)
	if err == nil && !next.After(now) {
		c.logger.WarnContext(ctx, "Skipping missed campaign runs", "campaign_id", current.ID, "missed_from", next)

		next, err = c.recurrence.NextRun(current, now)
	}

	switch {
	case errors.Is(err, schedule.ErrNoNextRun):
		current.NextRunAt = nil
		current.Active = false

		c.logger.InfoContext(ctx, "Campaign finished", "campaign_id", current.ID)
	case err != nil:
		return fmt.Errorf("failed to compute next run: %w", err)
	default:
		current.NextRunAt = &next
	}

	if err := c.campaigns.Save(ctx, current); err != nil {
		return fmt.Errorf("failed to save campaign: %w", err)
	}

	c.logger.InfoContext(ctx, "Campaign fired",
		"campaign_id", current.ID,
		"run_at", runAt,
		"recipients", len(current.Recipients))

	return nil
}

func (c *Campaign) prepare(campaign *models.RecurringCampaign, now time.Time) error {
	const op = "prepare_campaign"

	if err := structValidator().Struct(campaign); err != nil {
		return NewValidationError(op, "INVALID_CAMPAIGN", validationMessage(err), ErrInvalidCampaign)
	}

	if !campaign.Active {
		campaign.NextRunAt = nil

		return nil
	}

	next, err := c.recurrence.NextRun(campaign, now)
	if errors.Is(err, schedule.ErrNoNextRun) {
		return NewValidationError(op, "CAMPAIGN_FINISHED", "end date is in the past", ErrCampaignFinished)
	}

	if err != nil {
		return NewValidationError(op, "INVALID_CAMPAIGN", err.Error(), ErrInvalidCampaign)
	}

	campaign.NextRunAt = &next

	return nil
}
