// Package events defines the lead-outreach lifecycle events carried on the event bus.
package events

import (
	"time"

	"github.com/dukex/leadflow/pkg/models"
	"github.com/google/uuid"
)

type EventType string

// Event is implemented by every payload in this package.
type Event interface {
	GetType() EventType
}

// Topic is the single topic every event is published on.
const Topic = "leadflow.events"

const EventMetadataKey = "key"
const EventTypeMetadataKey = "event_type"

const (
	// Lead entry into a flow.
	LeadTriggeredEvent EventType = "lead.triggered"

	// Execution outcomes after a drive.
	ExecutionParkedEvent    EventType = "execution.parked"
	ExecutionCompletedEvent EventType = "execution.completed"
	ExecutionFailedEvent    EventType = "execution.failed"

	// Campaign firing.
	CampaignDueEvent EventType = "campaign.due"

	// Outbound message hand-off to channel connectors.
	MessageDispatchRequestedEvent EventType = "message.dispatch_requested"
)

type BaseEvent struct {
	ID        string         `json:"id"`
	Type      EventType      `json:"type"`
	Timestamp time.Time      `json:"timestamp"`
	WorkerID  string         `json:"worker_id,omitempty"`
	Metadata  map[string]any `json:"metadata,omitempty"`
}

// NewBaseEvent creates a base event with a fresh id.
func NewBaseEvent(eventType EventType, now time.Time) BaseEvent {
	return BaseEvent{
		ID:        uuid.New().String(),
		Type:      eventType,
		Timestamp: now.UTC(),
	}
}

// LeadTriggered asks a worker to start the lead on the flow.
type LeadTriggered struct {
	BaseEvent

	FlowID string `json:"flow_id"`
	LeadID string `json:"lead_id"`
}

func (e LeadTriggered) GetType() EventType {
	return LeadTriggeredEvent
}

type ExecutionParked struct {
	BaseEvent

	ExecutionID string    `json:"execution_id"`
	FlowID      string    `json:"flow_id"`
	LeadID      string    `json:"lead_id"`
	NodeID      string    `json:"node_id"`
	ResumeAt    time.Time `json:"resume_at"`
}

func (e ExecutionParked) GetType() EventType {
	return ExecutionParkedEvent
}

type ExecutionCompleted struct {
	BaseEvent

	ExecutionID string `json:"execution_id"`
	FlowID      string `json:"flow_id"`
	LeadID      string `json:"lead_id"`
}

func (e ExecutionCompleted) GetType() EventType {
	return ExecutionCompletedEvent
}

type ExecutionFailed struct {
	BaseEvent

	ExecutionID string `json:"execution_id"`
	FlowID      string `json:"flow_id"`
	LeadID      string `json:"lead_id"`
	NodeID      string `json:"node_id"`
	Error       string `json:"error"`
}

func (e ExecutionFailed) GetType() EventType {
	return ExecutionFailedEvent
}

// CampaignDue is published once per campaign firing.
type CampaignDue struct {
	BaseEvent

	CampaignID string    `json:"campaign_id"`
	RunAt      time.Time `json:"run_at"`
	Recipients []string  `json:"recipients,omitempty"`
}

func (e CampaignDue) GetType() EventType {
	return CampaignDueEvent
}

type MessageDispatchRequested struct {
	BaseEvent

	ChannelID string `json:"channel_id"`
	Phone     string `json:"phone"`
	Body      string `json:"body"`
}

func (e MessageDispatchRequested) GetType() EventType {
	return MessageDispatchRequestedEvent
}

// ExecutionOutcome returns the event describing where a drive left the execution.
// Executions still pending or running have no outcome.
func ExecutionOutcome(execution *models.ExecutionInstance, now time.Time) (Event, bool) {
	switch execution.Status {
	case models.ExecutionStatusWaiting:
		event := ExecutionParked{
			BaseEvent:   NewBaseEvent(ExecutionParkedEvent, now),
			ExecutionID: execution.ID,
			FlowID:      execution.FlowID,
			LeadID:      execution.LeadID,
			NodeID:      execution.CurrentNodeID,
		}
		if execution.ResumeAt != nil {
			event.ResumeAt = *execution.ResumeAt
		}

		return event, true
	case models.ExecutionStatusCompleted:
		return ExecutionCompleted{
			BaseEvent:   NewBaseEvent(ExecutionCompletedEvent, now),
			ExecutionID: execution.ID,
			FlowID:      execution.FlowID,
			LeadID:      execution.LeadID,
		}, true
	case models.ExecutionStatusFailed:
		return ExecutionFailed{
			BaseEvent:   NewBaseEvent(ExecutionFailedEvent, now),
			ExecutionID: execution.ID,
			FlowID:      execution.FlowID,
			LeadID:      execution.LeadID,
			NodeID:      execution.CurrentNodeID,
			Error:       execution.LastError,
		}, true
	default:
		return nil, false
	}
}

// New returns an empty pointer for decoding a payload of the given type.
func New(eventType EventType) (any, bool) {
	switch eventType {
	case LeadTriggeredEvent:
		return &LeadTriggered{}, true
	case ExecutionParkedEvent:
		return &ExecutionParked{}, true
	case ExecutionCompletedEvent:
		return &ExecutionCompleted{}, true
	case ExecutionFailedEvent:
		return &ExecutionFailed{}, true
	case CampaignDueEvent:
		return &CampaignDue{}, true
	case MessageDispatchRequestedEvent:
		return &MessageDispatchRequested{}, true
	default:
		return nil, false
	}
}
