package notification

import (
	"context"

	"go.uber.org/zap"

	"github.com/civicportal/lifecycle-engine/internal/application/dispatcher"
	"github.com/civicportal/lifecycle-engine/internal/application/port"
	"github.com/civicportal/lifecycle-engine/internal/domain/event"
)

// DispatchNotifier publishes engine outcomes as events on the in-process dispatcher.
// Delivery runs in the background; the caller never waits on subscribers.
type DispatchNotifier struct {
	dispatcher dispatcher.Dispatcher
	logger     *zap.Logger
}

// NewDispatchNotifier creates a notifier backed by the dispatcher
func NewDispatchNotifier(d dispatcher.Dispatcher, logger *zap.Logger) *DispatchNotifier {
	return &DispatchNotifier{
		dispatcher: d,
		logger:     logger,
	}
}

// StatusChanged publishes an application.status_changed event
func (n *DispatchNotifier) StatusChanged(ctx context.Context, change port.StatusChange) {
	payload := map[string]interface{}{
		event.KeyOldStatus:   change.OldStatus,
		event.KeyNewStatus:   change.NewStatus,
		event.KeyRecipientID: change.RecipientID,
		event.KeyActorID:     change.ActorID,
	}

	var evt *event.Event
	if change.CorrelationID != "" {
		evt = event.NewEventWithCorrelation(event.TypeApplicationStatusChanged, change.Domain.String(), change.ApplicationID, payload, change.CorrelationID)
	} else {
		evt = event.NewEvent(event.TypeApplicationStatusChanged, change.Domain.String(), change.ApplicationID, payload)
	}

	n.logger.Debug("Publishing status change",
		zap.String("event_id", evt.ID),
		zap.Int64("application_id", change.ApplicationID),
		zap.String("new_status", change.NewStatus))

	n.dispatcher.DispatchAsync(ctx, evt)
}

// WaitlistRanked publishes a waitlist.ranked event
func (n *DispatchNotifier) WaitlistRanked(ctx context.Context, programID string, entries int) {
	evt := event.NewEvent(event.TypeWaitlistRanked, "", 0, map[string]interface{}{
		event.KeyProgramID:  programID,
		event.KeyEntryCount: entries,
	})
	n.dispatcher.DispatchAsync(ctx, evt)
}

// Verify interface compliance
var _ port.Notifier = (*DispatchNotifier)(nil)
