package repository

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/civicportal/lifecycle-engine/internal/application/port"
	"github.com/civicportal/lifecycle-engine/internal/domain/entity"
	"github.com/civicportal/lifecycle-engine/pkg/database"
	"github.com/civicportal/lifecycle-engine/pkg/database/txctx"
)

// NotificationRepository implements port.NotificationRepository
type NotificationRepository struct {
	db     *sql.DB
	logger *zap.Logger
}

// NewNotificationRepository creates a new notification trigger repository
func NewNotificationRepository(db *sql.DB, logger *zap.Logger) port.NotificationRepository {
	return &NotificationRepository{
		db:     db,
		logger: logger,
	}
}

// Create stores a trigger. Triggers are keyed by event ID, so a redelivered
// event returns ErrDuplicateEntry.
func (r *NotificationRepository) Create(ctx context.Context, trigger *entity.NotificationTrigger) error {
	if trigger.CreatedAt.IsZero() {
		trigger.CreatedAt = time.Now()
	}
	if trigger.Status == "" {
		trigger.Status = entity.NotificationStatusPending
	}

	query := `
		INSERT INTO notification_triggers (
			event_id, domain, application_id, old_status, new_status, recipient_id, status, created_at
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?)
	`

	result, err := txctx.ExecutorFor(ctx, r.db).ExecContext(ctx, query,
		trigger.EventID,
		trigger.Domain,
		trigger.ApplicationID,
		trigger.OldStatus,
		trigger.NewStatus,
		trigger.RecipientID,
		trigger.Status,
		trigger.CreatedAt,
	)
	if err != nil {
		if database.IsUniqueViolation(err) {
			return fmt.Errorf("notification trigger %s: %w", trigger.EventID, port.ErrDuplicateEntry)
		}
		r.logger.Error("Failed to create notification trigger",
			zap.String("event_id", trigger.EventID),
			zap.Error(err))
		return fmt.Errorf("failed to create notification trigger: %w", err)
	}

	id, err := result.LastInsertId()
	if err != nil {
		return fmt.Errorf("failed to get last insert id: %w", err)
	}

	trigger.ID = id
	return nil
}

// ListPending returns the oldest pending triggers
func (r *NotificationRepository) ListPending(ctx context.Context, limit int) ([]*entity.NotificationTrigger, error) {
	query := `
		SELECT id, event_id, domain, application_id, old_status, new_status, recipient_id, status, created_at
		FROM notification_triggers
		WHERE status = ?
		ORDER BY id ASC
		LIMIT ?
	`

	rows, err := txctx.ExecutorFor(ctx, r.db).QueryContext(ctx, query, entity.NotificationStatusPending, limit)
	if err != nil {
		r.logger.Error("Failed to list pending notifications", zap.Error(err))
		return nil, fmt.Errorf("failed to list pending notifications: %w", err)
	}
	defer rows.Close()

	var triggers []*entity.NotificationTrigger
	for rows.Next() {
		var t entity.NotificationTrigger
		err := rows.Scan(
			&t.ID,
			&t.EventID,
			&t.Domain,
			&t.ApplicationID,
			&t.OldStatus,
			&t.NewStatus,
			&t.RecipientID,
			&t.Status,
			&t.CreatedAt,
		)
		if err != nil {
			return nil, fmt.Errorf("failed to scan notification trigger: %w", err)
		}
		triggers = append(triggers, &t)
	}
	return triggers, rows.Err()
}

// Verify interface compliance
var _ port.NotificationRepository = (*NotificationRepository)(nil)
