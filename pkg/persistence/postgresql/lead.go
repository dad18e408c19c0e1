package postgresql

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"

	"github.com/dukex/leadflow/pkg/models"
	"github.com/dukex/leadflow/pkg/persistence"
)

// LeadRepository handles leads and their tags, callback entries and notes.
type LeadRepository struct {
	db     *sql.DB
	logger *slog.Logger
}

// NewLeadRepository creates a new lead repository.
func NewLeadRepository(db *sql.DB, logger *slog.Logger) *LeadRepository {
	return &LeadRepository{db: db, logger: logger}
}

func (r *LeadRepository) GetLead(ctx context.Context, id string) (*models.Lead, error) {
	query := `
		SELECT
			id
		  , name
		  , phone
		  , email
		  , stage_id
		  , fields
		  , last_contact_at
		  , created_at
		  , updated_at
		FROM leads
		WHERE id = $1
	`

	var (
		lead          models.Lead
		email         sql.NullString
		stageID       sql.NullString
		fieldsJSON    []byte
		lastContactAt sql.NullTime
	)

	err := r.db.QueryRowContext(ctx, query, id).Scan(
		&lead.ID,
		&lead.Name,
		&lead.Phone,
		&email,
		&stageID,
		&fieldsJSON,
		&lastContactAt,
		&lead.CreatedAt,
		&lead.UpdatedAt,
	)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, persistence.NewRecordError("GetLead", "lead", id, persistence.ErrLeadNotFound)
	}

	if err != nil {
		return nil, persistence.NewRecordError("GetLead", "lead", id, err)
	}

	if err := json.Unmarshal(fieldsJSON, &lead.Fields); err != nil {
		return nil, fmt.Errorf("failed to unmarshal lead fields: %w", err)
	}

	lead.Email = email.String
	lead.StageID = stageID.String
	lead.LastContactAt = timePtr(lastContactAt)

	return &lead, nil
}

// SaveLead upserts the lead. Concurrent writers are last-write-wins.
func (r *LeadRepository) SaveLead(ctx context.Context, lead *models.Lead) error {
	fields := lead.Fields
	if fields == nil {
		fields = map[string]any{}
	}

	fieldsJSON, err := json.Marshal(fields)
	if err != nil {
		return fmt.Errorf("failed to marshal lead fields: %w", err)
	}

	query := `
		INSERT INTO leads (id, name, phone, email, stage_id, fields, last_contact_at, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
		ON CONFLICT (id) DO UPDATE SET
			name = EXCLUDED.name,
			phone = EXCLUDED.phone,
			email = EXCLUDED.email,
			stage_id = EXCLUDED.stage_id,
			fields = EXCLUDED.fields,
			last_contact_at = EXCLUDED.last_contact_at,
			updated_at = EXCLUDED.updated_at
	`

	_, err = r.db.ExecContext(ctx, query,
		lead.ID,
		lead.Name,
		lead.Phone,
		nullString(lead.Email),
		nullString(lead.StageID),
		fieldsJSON,
		nullTime(lead.LastContactAt),
		lead.CreatedAt.UTC(),
		lead.UpdatedAt.UTC(),
	)
	if err != nil {
		return persistence.NewRecordError("SaveLead", "lead", lead.ID, err)
	}

	return nil
}

func (r *LeadRepository) HasTag(ctx context.Context, leadID, tagID string) (bool, error) {
	var exists bool

	err := r.db.QueryRowContext(ctx,
		"SELECT EXISTS (SELECT 1 FROM lead_tags WHERE lead_id = $1 AND tag_id = $2)", leadID, tagID).Scan(&exists)
	if err != nil {
		return false, persistence.NewRecordError("HasTag", "lead", leadID, err)
	}

	return exists, nil
}

// AddTag inserts the association unless it already exists.
func (r *LeadRepository) AddTag(ctx context.Context, tag *models.LeadTag) error {
	_, err := r.db.ExecContext(ctx, `
		INSERT INTO lead_tags (lead_id, tag_id, created_at)
		VALUES ($1, $2, $3)
		ON CONFLICT (lead_id, tag_id) DO NOTHING
	`, tag.LeadID, tag.TagID, tag.CreatedAt.UTC())
	if err != nil {
		return persistence.NewRecordError("AddTag", "lead", tag.LeadID, err)
	}

	return nil
}

func (r *LeadRepository) Tags(ctx context.Context, leadID string) ([]*models.LeadTag, error) {
	rows, err := r.db.QueryContext(ctx,
		"SELECT lead_id, tag_id, created_at FROM lead_tags WHERE lead_id = $1 ORDER BY created_at", leadID)
	if err != nil {
		return nil, persistence.NewRecordError("Tags", "lead", leadID, err)
	}

	defer closeRows(ctx, r.logger, rows)

	tags := make([]*models.LeadTag, 0)

	for rows.Next() {
		var tag models.LeadTag
		if err := rows.Scan(&tag.LeadID, &tag.TagID, &tag.CreatedAt); err != nil {
			return nil, persistence.NewRecordError("Tags", "lead", leadID, err)
		}

		tags = append(tags, &tag)
	}

	if err := rows.Err(); err != nil {
		return nil, persistence.NewRecordError("Tags", "lead", leadID, err)
	}

	return tags, nil
}

func (r *LeadRepository) HasPendingCallback(ctx context.Context, leadID string) (bool, error) {
	var exists bool

	err := r.db.QueryRowContext(ctx,
		"SELECT EXISTS (SELECT 1 FROM callbacks WHERE lead_id = $1 AND status = $2)",
		leadID, string(models.CallbackStatusPending)).Scan(&exists)
	if err != nil {
		return false, persistence.NewRecordError("HasPendingCallback", "lead", leadID, err)
	}

	return exists, nil
}

func (r *LeadRepository) AddCallback(ctx context.Context, entry *models.CallbackEntry) error {
	_, err := r.db.ExecContext(ctx, `
		INSERT INTO callbacks (id, lead_id, priority, notes, scheduled_at, status, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
	`,
		entry.ID,
		entry.LeadID,
		entry.Priority,
		nullString(entry.Notes),
		entry.ScheduledAt.UTC(),
		string(entry.Status),
		entry.CreatedAt.UTC(),
	)
	if err != nil {
		return persistence.NewRecordError("AddCallback", "lead", entry.LeadID, err)
	}

	return nil
}

func (r *LeadRepository) Callbacks(ctx context.Context, leadID string) ([]*models.CallbackEntry, error) {
	rows, err := r.db.QueryContext(ctx, `
		SELECT id, lead_id, priority, notes, scheduled_at, status, created_at
		FROM callbacks
		WHERE lead_id = $1
		ORDER BY created_at
	`, leadID)
	if err != nil {
		return nil, persistence.NewRecordError("Callbacks", "lead", leadID, err)
	}

	defer closeRows(ctx, r.logger, rows)

	callbacks := make([]*models.CallbackEntry, 0)

	for rows.Next() {
		var (
			entry  models.CallbackEntry
			notes  sql.NullString
			status string
		)

		err := rows.Scan(&entry.ID, &entry.LeadID, &entry.Priority, &notes, &entry.ScheduledAt, &status, &entry.CreatedAt)
		if err != nil {
			return nil, persistence.NewRecordError("Callbacks", "lead", leadID, err)
		}

		entry.Notes = notes.String
		entry.Status = models.CallbackStatus(status)
		callbacks = append(callbacks, &entry)
	}

	if err := rows.Err(); err != nil {
		return nil, persistence.NewRecordError("Callbacks", "lead", leadID, err)
	}

	return callbacks, nil
}

func (r *LeadRepository) AppendNote(ctx context.Context, note *models.Note) error {
	_, err := r.db.ExecContext(ctx, `
		INSERT INTO notes (id, lead_id, author, body, created_at)
		VALUES ($1, $2, $3, $4, $5)
	`, note.ID, note.LeadID, note.Author, note.Body, note.CreatedAt.UTC())
	if err != nil {
		return persistence.NewRecordError("AppendNote", "lead", note.LeadID, err)
	}

	return nil
}

func (r *LeadRepository) Notes(ctx context.Context, leadID string) ([]*models.Note, error) {
	rows, err := r.db.QueryContext(ctx, `
		SELECT id, lead_id, author, body, created_at
		FROM notes
		WHERE lead_id = $1
		ORDER BY created_at
	`, leadID)
	if err != nil {
		return nil, persistence.NewRecordError("Notes", "lead", leadID, err)
	}

	defer closeRows(ctx, r.logger, rows)

	notes := make([]*models.Note, 0)

	for rows.Next() {
		var note models.Note
		if err := rows.Scan(&note.ID, &note.LeadID, &note.Author, &note.Body, &note.CreatedAt); err != nil {
			return nil, persistence.NewRecordError("Notes", "lead", leadID, err)
		}

		notes = append(notes, &note)
	}

	if err := rows.Err(); err != nil {
		return nil, persistence.NewRecordError("Notes", "lead", leadID, err)
	}

	return notes, nil
}
