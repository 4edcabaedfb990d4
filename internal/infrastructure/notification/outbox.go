package notification

import (
	"context"
	"errors"
	"fmt"

	"go.uber.org/zap"

	"github.com/civicportal/lifecycle-engine/internal/application/dispatcher"
	"github.com/civicportal/lifecycle-engine/internal/application/port"
	"github.com/civicportal/lifecycle-engine/internal/domain/entity"
	"github.com/civicportal/lifecycle-engine/internal/domain/event"
)

// Outbox records status change events as notification triggers for the
// external delivery service.
type Outbox struct {
	repo   port.NotificationRepository
	logger *zap.Logger
}

// NewOutbox creates a new outbox subscriber
func NewOutbox(repo port.NotificationRepository, logger *zap.Logger) *Outbox {
	return &Outbox{
		repo:   repo,
		logger: logger,
	}
}

// Register subscribes the outbox handlers on the dispatcher
func (o *Outbox) Register(d dispatcher.Dispatcher) {
	d.Subscribe(event.TypeApplicationStatusChanged, "notification-outbox", o.HandleStatusChanged)
	d.Subscribe(event.TypeWaitlistRanked, "waitlist-ranked-log", o.HandleWaitlistRanked)
}

// HandleStatusChanged stores one trigger per event. A redelivered event is ignored.
func (o *Outbox) HandleStatusChanged(ctx context.Context, evt *event.Event) error {
	if evt.Type != event.TypeApplicationStatusChanged {
		return fmt.Errorf("unexpected event type: %s", evt.Type)
	}

	trigger := &entity.NotificationTrigger{
		EventID:       evt.ID,
		Domain:        evt.Domain,
		ApplicationID: evt.SubjectID,
		OldStatus:     evt.GetPayloadString(event.KeyOldStatus),
		NewStatus:     evt.GetPayloadString(event.KeyNewStatus),
		RecipientID:   evt.GetPayloadInt(event.KeyRecipientID),
		Status:        entity.NotificationStatusPending,
		CreatedAt:     evt.Timestamp,
	}

	if err := o.repo.Create(ctx, trigger); err != nil {
		if errors.Is(err, port.ErrDuplicateEntry) {
			o.logger.Debug("Notification trigger already recorded", zap.String("event_id", evt.ID))
			return nil
		}
		return fmt.Errorf("failed to record notification trigger: %w", err)
	}

	o.logger.Info("Notification trigger recorded",
		zap.String("event_id", evt.ID),
		zap.String("domain", evt.Domain),
		zap.Int64("application_id", evt.SubjectID),
		zap.String("new_status", trigger.NewStatus))
	return nil
}

// Pending returns the oldest triggers not yet handed to the delivery service
func (o *Outbox) Pending(ctx context.Context, limit int) ([]*entity.NotificationTrigger, error) {
	triggers, err := o.repo.ListPending(ctx, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to list pending notifications: %w", err)
	}
	return triggers, nil
}

// HandleWaitlistRanked logs ranking recomputations
func (o *Outbox) HandleWaitlistRanked(ctx context.Context, evt *event.Event) error {
	o.logger.Info("Waitlist ranking recomputed",
		zap.String("program_id", evt.GetPayloadString(event.KeyProgramID)),
		zap.Int64("entries", evt.GetPayloadInt(event.KeyEntryCount)),
		zap.String("correlation_id", evt.CorrelationID))
	return nil
}
