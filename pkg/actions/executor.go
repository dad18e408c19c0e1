package actions

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/dukex/leadflow/pkg/models"
	"github.com/dukex/leadflow/pkg/template"
	"github.com/google/uuid"
)

// DefaultCallbackDelay is how far ahead a callback is scheduled.
const DefaultCallbackDelay = time.Hour

// DispatchChannel sends a message to a phone number on an external channel.
type DispatchChannel interface {
	Send(ctx context.Context, channelID, phone, body string) error
}

// LeadStore is the lead datastore used by actions. Writes are last-write-wins.
type LeadStore interface {
	SaveLead(ctx context.Context, lead *models.Lead) error
	HasTag(ctx context.Context, leadID, tagID string) (bool, error)
	AddTag(ctx context.Context, tag *models.LeadTag) error
	HasPendingCallback(ctx context.Context, leadID string) (bool, error)
	AddCallback(ctx context.Context, entry *models.CallbackEntry) error
	AppendNote(ctx context.Context, note *models.Note) error
}

// Option configures an Executor.
type Option func(*Executor)

// WithClock overrides the time source.
func WithClock(now func() time.Time) Option {
	return func(e *Executor) {
		e.now = now
	}
}

// Executor runs actions against a lead.
type Executor struct {
	store   LeadStore
	channel DispatchChannel
	logger  *slog.Logger
	now     func() time.Time
}

func NewExecutor(store LeadStore, channel DispatchChannel, logger *slog.Logger, opts ...Option) *Executor {
	e := &Executor{
		store:   store,
		channel: channel,
		logger:  logger.With("module", "action_executor"),
		now:     time.Now,
	}

	for _, opt := range opts {
		opt(e)
	}

	return e
}

// ExecuteConfig parses an action node config and runs it.
func (e *Executor) ExecuteConfig(ctx context.Context, lead *models.Lead, config map[string]any) error {
	action, err := Parse(config)
	if err != nil {
		return err
	}

	return e.Execute(ctx, lead, action)
}

// Execute runs one action against the lead. Store and channel errors are returned as is.
func (e *Executor) Execute(ctx context.Context, lead *models.Lead, action Action) error {
	logger := e.logger.With("lead_id", lead.ID, "action_type", action.Kind())
	logger.DebugContext(ctx, "Executing action")

	err := action.Accept(&invocation{ctx: ctx, lead: lead, executor: e, logger: logger})
	if err != nil {
		logger.ErrorContext(ctx, "Action failed", "error", err)

		return err
	}

	return nil
}

// invocation binds one Execute call to the Handler methods.
type invocation struct {
	ctx      context.Context
	lead     *models.Lead
	executor *Executor
	logger   *slog.Logger
}

func (i *invocation) DispatchMessage(a *DispatchMessage) error {
	phone, err := template.RenderLead(a.Phone, i.lead)
	if err != nil {
		return &models.ConfigurationError{Field: "phone", Message: err.Error()}
	}

	body, err := template.RenderLead(a.Body, i.lead)
	if err != nil {
		return &models.ConfigurationError{Field: "body", Message: err.Error()}
	}

	if phone == "" {
		return models.NewConfigurationError("phone", "rendered to an empty value")
	}

	if err := i.executor.channel.Send(i.ctx, a.ChannelID, phone, body); err != nil {
		return fmt.Errorf("failed to dispatch message on channel %s: %w", a.ChannelID, err)
	}

	i.logger.InfoContext(i.ctx, "Message dispatched", "channel_id", a.ChannelID)

	return nil
}

func (i *invocation) ApplyTag(a *ApplyTag) error {
	store := i.executor.store

	exists, err := store.HasTag(i.ctx, i.lead.ID, a.TagID)
	if err != nil {
		return fmt.Errorf("failed to check tag %s: %w", a.TagID, err)
	}

	if exists {
		i.logger.DebugContext(i.ctx, "Tag already applied", "tag_id", a.TagID)

		return nil
	}

	err = store.AddTag(i.ctx, &models.LeadTag{
		LeadID:    i.lead.ID,
		TagID:     a.TagID,
		CreatedAt: i.executor.now(),
	})
	if err != nil {
		return fmt.Errorf("failed to apply tag %s: %w", a.TagID, err)
	}

	return nil
}

func (i *invocation) MoveStage(a *MoveStage) error {
	now := i.executor.now()
	previous := i.lead.StageID

	i.lead.StageID = a.StageID
	i.lead.LastContactAt = &now
	i.lead.UpdatedAt = now

	if err := i.executor.store.SaveLead(i.ctx, i.lead); err != nil {
		return fmt.Errorf("failed to move lead to stage %s: %w", a.StageID, err)
	}

	body := fmt.Sprintf("Stage changed from %q to %q by automation", previous, a.StageID)

	return i.appendNote(body, now)
}

func (i *invocation) AppendNote(a *AppendNote) error {
	body, err := template.RenderLead(a.Text, i.lead)
	if err != nil {
		return &models.ConfigurationError{Field: "text", Message: err.Error()}
	}

	return i.appendNote(body, i.executor.now())
}

func (i *invocation) appendNote(body string, now time.Time) error {
	err := i.executor.store.AppendNote(i.ctx, &models.Note{
		ID:        uuid.NewString(),
		LeadID:    i.lead.ID,
		Author:    models.NoteAuthorSystem,
		Body:      body,
		CreatedAt: now,
	})
	if err != nil {
		return fmt.Errorf("failed to append note: %w", err)
	}

	return nil
}

func (i *invocation) EnqueueCallback(a *EnqueueCallback) error {
	store := i.executor.store

	pending, err := store.HasPendingCallback(i.ctx, i.lead.ID)
	if err != nil {
		return fmt.Errorf("failed to check callback queue: %w", err)
	}

	if pending {
		i.logger.DebugContext(i.ctx, "Callback already pending")

		return nil
	}

	priority := a.Priority
	if priority == "" {
		priority = models.CallbackPriorityMedium
	}

	now := i.executor.now()

	err = store.AddCallback(i.ctx, &models.CallbackEntry{
		ID:          uuid.NewString(),
		LeadID:      i.lead.ID,
		Priority:    priority,
		Notes:       a.Notes,
		ScheduledAt: now.Add(DefaultCallbackDelay),
		Status:      models.CallbackStatusPending,
		CreatedAt:   now,
	})
	if err != nil {
		return fmt.Errorf("failed to enqueue callback: %w", err)
	}

	return nil
}

func (i *invocation) UpdateField(a *UpdateField) error {
	value, err := template.RenderLeadValue(a.Value, i.lead)
	if err != nil {
		return &models.ConfigurationError{Field: "value", Message: err.Error()}
	}

	i.lead.SetField(a.Field, value)
	i.lead.UpdatedAt = i.executor.now()

	if err := i.executor.store.SaveLead(i.ctx, i.lead); err != nil {
		return fmt.Errorf("failed to update field %s: %w", a.Field, err)
	}

	return nil
}
