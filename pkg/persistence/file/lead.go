package file

import (
	"context"
	"errors"
	"os"

	"github.com/dukex/leadflow/pkg/models"
	"github.com/dukex/leadflow/pkg/persistence"
)

const (
	leadsDir     = "leads"
	leadTagsDir  = "lead_tags"
	callbacksDir = "callbacks"
	notesDir     = "notes"
)

// LeadRepository stores leads and their per-lead lists (tags, callbacks, notes),
// each list as one document keyed by lead id.
type LeadRepository struct {
	store *store
}

func (r *LeadRepository) GetLead(_ context.Context, id string) (*models.Lead, error) {
	r.store.mu.RLock()
	defer r.store.mu.RUnlock()

	var lead models.Lead

	err := r.store.read(leadsDir, id, &lead)
	if errors.Is(err, os.ErrNotExist) {
		return nil, persistence.NewRecordError("GetLead", "lead", id, persistence.ErrLeadNotFound)
	}

	if err != nil {
		return nil, persistence.NewRecordError("GetLead", "lead", id, err)
	}

	return &lead, nil
}

func (r *LeadRepository) SaveLead(_ context.Context, lead *models.Lead) error {
	r.store.mu.Lock()
	defer r.store.mu.Unlock()

	if err := r.store.write(leadsDir, lead.ID, lead); err != nil {
		return persistence.NewRecordError("SaveLead", "lead", lead.ID, err)
	}

	return nil
}

func (r *LeadRepository) HasTag(ctx context.Context, leadID, tagID string) (bool, error) {
	tags, err := r.Tags(ctx, leadID)
	if err != nil {
		return false, err
	}

	for _, tag := range tags {
		if tag.TagID == tagID {
			return true, nil
		}
	}

	return false, nil
}

// AddTag inserts the association unless it already exists.
func (r *LeadRepository) AddTag(_ context.Context, tag *models.LeadTag) error {
	r.store.mu.Lock()
	defer r.store.mu.Unlock()

	tags, err := readList[models.LeadTag](r.store, leadTagsDir, tag.LeadID)
	if err != nil {
		return persistence.NewRecordError("AddTag", "lead", tag.LeadID, err)
	}

	for _, existing := range tags {
		if existing.TagID == tag.TagID {
			return nil
		}
	}

	if err := r.store.write(leadTagsDir, tag.LeadID, append(tags, tag)); err != nil {
		return persistence.NewRecordError("AddTag", "lead", tag.LeadID, err)
	}

	return nil
}

func (r *LeadRepository) Tags(_ context.Context, leadID string) ([]*models.LeadTag, error) {
	r.store.mu.RLock()
	defer r.store.mu.RUnlock()

	tags, err := readList[models.LeadTag](r.store, leadTagsDir, leadID)
	if err != nil {
		return nil, persistence.NewRecordError("Tags", "lead", leadID, err)
	}

	return tags, nil
}

func (r *LeadRepository) HasPendingCallback(ctx context.Context, leadID string) (bool, error) {
	callbacks, err := r.Callbacks(ctx, leadID)
	if err != nil {
		return false, err
	}

	for _, callback := range callbacks {
		if callback.Status == models.CallbackStatusPending {
			return true, nil
		}
	}

	return false, nil
}

func (r *LeadRepository) AddCallback(_ context.Context, entry *models.CallbackEntry) error {
	return r.appendItem("AddCallback", callbacksDir, entry.LeadID, entry)
}

func (r *LeadRepository) Callbacks(_ context.Context, leadID string) ([]*models.CallbackEntry, error) {
	r.store.mu.RLock()
	defer r.store.mu.RUnlock()

	callbacks, err := readList[models.CallbackEntry](r.store, callbacksDir, leadID)
	if err != nil {
		return nil, persistence.NewRecordError("Callbacks", "lead", leadID, err)
	}

	return callbacks, nil
}

func (r *LeadRepository) AppendNote(_ context.Context, note *models.Note) error {
	return r.appendItem("AppendNote", notesDir, note.LeadID, note)
}

func (r *LeadRepository) Notes(_ context.Context, leadID string) ([]*models.Note, error) {
	r.store.mu.RLock()
	defer r.store.mu.RUnlock()

	notes, err := readList[models.Note](r.store, notesDir, leadID)
	if err != nil {
		return nil, persistence.NewRecordError("Notes", "lead", leadID, err)
	}

	return notes, nil
}

func (r *LeadRepository) appendItem(op, collection, leadID string, item any) error {
	r.store.mu.Lock()
	defer r.store.mu.Unlock()

	var items []any
	if err := r.store.read(collection, leadID, &items); err != nil && !errors.Is(err, os.ErrNotExist) {
		return persistence.NewRecordError(op, "lead", leadID, err)
	}

	if err := r.store.write(collection, leadID, append(items, item)); err != nil {
		return persistence.NewRecordError(op, "lead", leadID, err)
	}

	return nil
}

// readList loads a per-lead list document, treating an absent file as empty.
func readList[T any](s *store, collection, leadID string) ([]*T, error) {
	var items []*T

	err := s.read(collection, leadID, &items)
	if err != nil && !errors.Is(err, os.ErrNotExist) {
		return nil, err
	}

	return items, nil
}
