package repository

import (
	"context"
	"database/sql"
	"fmt"

	"go.uber.org/zap"

	"github.com/civicportal/lifecycle-engine/internal/application/port"
	"github.com/civicportal/lifecycle-engine/internal/domain/entity"
	"github.com/civicportal/lifecycle-engine/pkg/database/txctx"
)

// HistoryRepository implements port.HistoryRepository
type HistoryRepository struct {
	db     *sql.DB
	logger *zap.Logger
}

// NewHistoryRepository creates a new history repository
func NewHistoryRepository(db *sql.DB, logger *zap.Logger) port.HistoryRepository {
	return &HistoryRepository{
		db:     db,
		logger: logger,
	}
}

// Append inserts a history record. Records are never updated.
func (r *HistoryRepository) Append(ctx context.Context, entry *entity.StatusHistoryEntry) error {
	query := `
		INSERT INTO status_history (
			subject, subject_id, from_status, to_status, actor_id, remarks, created_at
		) VALUES (?, ?, ?, ?, ?, ?, ?)
	`

	result, err := txctx.ExecutorFor(ctx, r.db).ExecContext(ctx, query,
		entry.Subject,
		entry.SubjectID,
		entry.FromStatus,
		entry.ToStatus,
		entry.ActorID,
		entry.Remarks,
		entry.CreatedAt,
	)
	if err != nil {
		r.logger.Error("Failed to append history record",
			zap.String("subject", entry.Subject),
			zap.Int64("subject_id", entry.SubjectID),
			zap.Error(err))
		return fmt.Errorf("failed to append history: %w", err)
	}

	id, err := result.LastInsertId()
	if err != nil {
		return fmt.Errorf("failed to get last insert id: %w", err)
	}

	entry.ID = id
	return nil
}

// ListBySubject retrieves the history of one application or beneficiary in insertion order
func (r *HistoryRepository) ListBySubject(ctx context.Context, subject string, subjectID int64) ([]*entity.StatusHistoryEntry, error) {
	query := `
		SELECT id, subject, subject_id, from_status, to_status, actor_id, remarks, created_at
		FROM status_history
		WHERE subject = ? AND subject_id = ?
		ORDER BY id ASC
	`

	rows, err := txctx.ExecutorFor(ctx, r.db).QueryContext(ctx, query, subject, subjectID)
	if err != nil {
		r.logger.Error("Failed to list history", zap.Int64("subject_id", subjectID), zap.Error(err))
		return nil, fmt.Errorf("failed to list history: %w", err)
	}
	defer rows.Close()

	var records []*entity.StatusHistoryEntry
	for rows.Next() {
		var (
			record entity.StatusHistoryEntry
			from   sql.NullString
		)
		err := rows.Scan(
			&record.ID,
			&record.Subject,
			&record.SubjectID,
			&from,
			&record.ToStatus,
			&record.ActorID,
			&record.Remarks,
			&record.CreatedAt,
		)
		if err != nil {
			return nil, fmt.Errorf("failed to scan history record: %w", err)
		}
		if from.Valid {
			record.FromStatus = &from.String
		}
		records = append(records, &record)
	}

	return records, rows.Err()
}

// Verify interface compliance
var _ port.HistoryRepository = (*HistoryRepository)(nil)
