// Package actions implements the closed set of side-effecting operations that
// action nodes perform against a lead.
package actions

import (
	"errors"
	"fmt"
	"reflect"
	"strings"
	"sync"

	"github.com/dukex/leadflow/pkg/models"
	"github.com/go-playground/validator/v10"
)

// Kind identifies an action in a node config under the "action_type" key.
type Kind string

const (
	KindDispatchMessage Kind = "dispatch_message"
	KindApplyTag        Kind = "apply_tag"
	KindMoveStage       Kind = "move_stage"
	KindAppendNote      Kind = "append_note"
	KindEnqueueCallback Kind = "enqueue_callback"
	KindUpdateField     Kind = "update_field"
)

// Kinds lists every supported action kind.
var Kinds = []Kind{
	KindDispatchMessage,
	KindApplyTag,
	KindMoveStage,
	KindAppendNote,
	KindEnqueueCallback,
	KindUpdateField,
}

// Action is one of the six action kinds. The set is closed: Handler has one method per
// kind, so adding a kind breaks every handler until it is covered.
type Action interface {
	Kind() Kind
	Accept(h Handler) error
}

// Handler visits a concrete action.
type Handler interface {
	DispatchMessage(a *DispatchMessage) error
	ApplyTag(a *ApplyTag) error
	MoveStage(a *MoveStage) error
	AppendNote(a *AppendNote) error
	EnqueueCallback(a *EnqueueCallback) error
	UpdateField(a *UpdateField) error
}

// DispatchMessage sends a message through an external dispatch channel.
// Phone and Body may be lead templates.
type DispatchMessage struct {
	ChannelID string `json:"channel_id" validate:"required"`
	Phone     string `json:"phone"      validate:"required"`
	Body      string `json:"body"       validate:"required"`
}

func (a *DispatchMessage) Kind() Kind             { return KindDispatchMessage }
func (a *DispatchMessage) Accept(h Handler) error { return h.DispatchMessage(a) }

// ApplyTag associates a tag with the lead.
type ApplyTag struct {
	TagID string `json:"tag_id" validate:"required"`
}

func (a *ApplyTag) Kind() Kind             { return KindApplyTag }
func (a *ApplyTag) Accept(h Handler) error { return h.ApplyTag(a) }

// MoveStage moves the lead to another pipeline stage.
type MoveStage struct {
	StageID string `json:"stage_id" validate:"required"`
}

func (a *MoveStage) Kind() Kind             { return KindMoveStage }
func (a *MoveStage) Accept(h Handler) error { return h.MoveStage(a) }

// AppendNote writes a system-attributed audit note.
type AppendNote struct {
	Text string `json:"text" validate:"required"`
}

func (a *AppendNote) Kind() Kind             { return KindAppendNote }
func (a *AppendNote) Accept(h Handler) error { return h.AppendNote(a) }

// EnqueueCallback adds the lead to the manual callback queue.
type EnqueueCallback struct {
	Priority string `json:"priority" validate:"omitempty,oneof=low medium high"`
	Notes    string `json:"notes"`
}

func (a *EnqueueCallback) Kind() Kind             { return KindEnqueueCallback }
func (a *EnqueueCallback) Accept(h Handler) error { return h.EnqueueCallback(a) }

// UpdateField overwrites one lead attribute. Value may be falsy but must be present.
type UpdateField struct {
	Field string `json:"field" validate:"required"`
	Value any    `json:"value"`
}

func (a *UpdateField) Kind() Kind             { return KindUpdateField }
func (a *UpdateField) Accept(h Handler) error { return h.UpdateField(a) }

var (
	validate     *validator.Validate
	validateOnce sync.Once
)

func configValidator() *validator.Validate {
	validateOnce.Do(func() {
		validate = validator.New(validator.WithRequiredStructEnabled())
		validate.RegisterTagNameFunc(func(fld reflect.StructField) string {
			name, _, _ := strings.Cut(fld.Tag.Get("json"), ",")
			if name == "-" {
				return ""
			}

			return name
		})
	})

	return validate
}

// Parse decodes an action node config into its concrete kind. Missing or invalid
// required fields produce a *models.ConfigurationError.
func Parse(config map[string]any) (Action, error) {
	kind, _ := config["action_type"].(string)

	var action Action

	switch Kind(kind) {
	case KindDispatchMessage:
		action = &DispatchMessage{
			ChannelID: stringValue(config, "channel_id"),
			Phone:     stringValue(config, "phone"),
			Body:      stringValue(config, "body"),
		}
	case KindApplyTag:
		action = &ApplyTag{TagID: stringValue(config, "tag_id")}
	case KindMoveStage:
		action = &MoveStage{StageID: stringValue(config, "stage_id")}
	case KindAppendNote:
		action = &AppendNote{Text: stringValue(config, "text")}
	case KindEnqueueCallback:
		action = &EnqueueCallback{
			Priority: stringValue(config, "priority"),
			Notes:    stringValue(config, "notes"),
		}
	case KindUpdateField:
		value, ok := config["value"]
		if !ok {
			return nil, models.NewConfigurationError("value", "missing required field")
		}

		action = &UpdateField{Field: stringValue(config, "field"), Value: value}
	default:
		return nil, models.NewConfigurationError("action_type", fmt.Sprintf("unsupported action type %q", kind))
	}

	if err := configValidator().Struct(action); err != nil {
		return nil, toConfigurationError(err)
	}

	return action, nil
}

func toConfigurationError(err error) error {
	var validationErrors validator.ValidationErrors
	if !errors.As(err, &validationErrors) || len(validationErrors) == 0 {
		return models.NewConfigurationError("", err.Error())
	}

	fieldErr := validationErrors[0]

	switch fieldErr.Tag() {
	case "required":
		return models.NewConfigurationError(fieldErr.Field(), "missing required field")
	case "oneof":
		return models.NewConfigurationError(fieldErr.Field(), "must be one of: "+fieldErr.Param())
	default:
		return models.NewConfigurationError(fieldErr.Field(), "failed '"+fieldErr.Tag()+"' validation")
	}
}

func stringValue(config map[string]any, key string) string {
	switch v := config[key].(type) {
	case string:
		return strings.TrimSpace(v)
	case nil:
		return ""
	default:
		return fmt.Sprint(v)
	}
}
