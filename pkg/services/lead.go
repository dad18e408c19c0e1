package services

import (
	"context"
	"fmt"
	"time"

	"github.com/dukex/leadflow/pkg/models"
	"github.com/dukex/leadflow/pkg/persistence"
	"github.com/google/uuid"
)

var (
	// ErrLeadNotFound is returned when a lead is not found.
	ErrLeadNotFound = persistence.ErrLeadNotFound
)

// Lead exposes leads and their automation side effects.
type Lead struct {
	leads persistence.LeadRepository
	now   func() time.Time
}

func NewLead(leads persistence.LeadRepository) *Lead {
	return &Lead{leads: leads, now: time.Now}
}

// Create stores a new lead. The phone is kept as given; use the contacts pipeline to
// normalize it first.
func (s *Lead) Create(ctx context.Context, lead *models.Lead) (*models.Lead, error) {
	if lead.Name == "" || lead.Phone == "" {
		return nil, NewValidationError("create_lead", "INVALID_LEAD", "name and phone are required", ErrInvalidRequest)
	}

	now := s.now().UTC()

	if lead.ID == "" {
		lead.ID = uuid.NewString()
	}

	lead.CreatedAt = now
	lead.UpdatedAt = now

	if err := s.leads.SaveLead(ctx, lead); err != nil {
		return nil, fmt.Errorf("failed to save lead: %w", err)
	}

	return lead, nil
}

func (s *Lead) FetchByID(ctx context.Context, id string) (*models.Lead, error) {
	return s.leads.GetLead(ctx, id)
}

// LeadActivity is everything automation recorded on a lead.
type LeadActivity struct {
	Tags      []*models.LeadTag       `json:"tags"`
	Callbacks []*models.CallbackEntry `json:"callbacks"`
	Notes     []*models.Note          `json:"notes"`
}

func (s *Lead) Activity(ctx context.Context, id string) (*LeadActivity, error) {
	if _, err := s.leads.GetLead(ctx, id); err != nil {
		return nil, err
	}

	tags, err := s.leads.Tags(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("failed to list tags: %w", err)
	}

	callbacks, err := s.leads.Callbacks(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("failed to list callbacks: %w", err)
	}

	notes, err := s.leads.Notes(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("failed to list notes: %w", err)
	}

	return &LeadActivity{Tags: tags, Callbacks: callbacks, Notes: notes}, nil
}
