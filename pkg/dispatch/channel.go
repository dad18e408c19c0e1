// Package dispatch hands outbound messages to channel connectors through the event bus.
package dispatch

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/dukex/leadflow/pkg/eventbus"
	"github.com/dukex/leadflow/pkg/events"
	"github.com/dukex/leadflow/pkg/models"
)

const service = "dispatch"

// EventChannel publishes a message.dispatch_requested event per Send. The connector that
// owns the channel id performs the delivery.
type EventChannel struct {
	publisher eventbus.EventPublisher
	logger    *slog.Logger
	now       func() time.Time
}

func NewEventChannel(publisher eventbus.EventPublisher, logger *slog.Logger) *EventChannel {
	return &EventChannel{
		publisher: publisher,
		logger:    logger.With("module", "dispatch_channel"),
		now:       time.Now,
	}
}

func (c *EventChannel) Send(ctx context.Context, channelID, phone, body string) error {
	event := events.MessageDispatchRequested{
		BaseEvent: events.NewBaseEvent(events.MessageDispatchRequestedEvent, c.now()),
		ChannelID: channelID,
		Phone:     phone,
		Body:      body,
	}

	if err := c.publisher.Publish(ctx, phone, event); err != nil {
		c.logger.ErrorContext(ctx, "Failed to publish dispatch request",
			"channel_id", channelID,
			"error", err)

		return models.NewTransportError(service, fmt.Errorf("publish to %s: %w", channelID, err))
	}

	c.logger.InfoContext(ctx, "Dispatch requested", "channel_id", channelID, "event_id", event.ID)

	return nil
}
