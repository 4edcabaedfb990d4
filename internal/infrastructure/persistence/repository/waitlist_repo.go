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

// WaitlistRepository implements port.WaitlistRepository
type WaitlistRepository struct {
	db     *sql.DB
	logger *zap.Logger
}

// NewWaitlistRepository creates a new waitlist repository
func NewWaitlistRepository(db *sql.DB, logger *zap.Logger) port.WaitlistRepository {
	return &WaitlistRepository{
		db:     db,
		logger: logger,
	}
}

// Create inserts an active waitlist entry. The partial unique index on
// (application_id, program_id) makes a second active insert fail with ErrDuplicateEntry.
func (r *WaitlistRepository) Create(ctx context.Context, entry *entity.WaitlistEntry) error {
	now := time.Now()
	if entry.CreatedAt.IsZero() {
		entry.CreatedAt = now
	}
	entry.UpdatedAt = now

	query := `
		INSERT INTO waitlist_entries (
			application_id, program_id, beneficiary_id, priority_score, rank, active, created_at, updated_at
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?)
	`

	result, err := txctx.ExecutorFor(ctx, r.db).ExecContext(ctx, query,
		entry.ApplicationID,
		entry.ProgramID,
		entry.BeneficiaryID,
		entry.PriorityScore,
		entry.Rank,
		entry.Active,
		entry.CreatedAt,
		entry.UpdatedAt,
	)
	if err != nil {
		if database.IsUniqueViolation(err) {
			return fmt.Errorf("waitlist entry for application %d: %w", entry.ApplicationID, port.ErrDuplicateEntry)
		}
		r.logger.Error("Failed to create waitlist entry",
			zap.Int64("application_id", entry.ApplicationID),
			zap.String("program_id", entry.ProgramID),
			zap.Error(err))
		return fmt.Errorf("failed to create waitlist entry: %w", err)
	}

	id, err := result.LastInsertId()
	if err != nil {
		return fmt.Errorf("failed to get last insert id: %w", err)
	}

	entry.ID = id
	return nil
}

// ListActiveByProgram returns the active entries of a program ordered by stored rank
func (r *WaitlistRepository) ListActiveByProgram(ctx context.Context, programID string) ([]*entity.WaitlistEntry, error) {
	query := `
		SELECT id, application_id, program_id, beneficiary_id, priority_score, rank, active, created_at, updated_at
		FROM waitlist_entries
		WHERE program_id = ? AND active = 1
		ORDER BY rank ASC, id ASC
	`

	rows, err := txctx.ExecutorFor(ctx, r.db).QueryContext(ctx, query, programID)
	if err != nil {
		r.logger.Error("Failed to list waitlist", zap.String("program_id", programID), zap.Error(err))
		return nil, fmt.Errorf("failed to list waitlist: %w", err)
	}
	defer rows.Close()

	var entries []*entity.WaitlistEntry
	for rows.Next() {
		var e entity.WaitlistEntry
		err := rows.Scan(
			&e.ID,
			&e.ApplicationID,
			&e.ProgramID,
			&e.BeneficiaryID,
			&e.PriorityScore,
			&e.Rank,
			&e.Active,
			&e.CreatedAt,
			&e.UpdatedAt,
		)
		if err != nil {
			return nil, fmt.Errorf("failed to scan waitlist entry: %w", err)
		}
		entries = append(entries, &e)
	}
	return entries, rows.Err()
}

// UpdateRanks stores the score and rank of every ranked entry of a program
func (r *WaitlistRepository) UpdateRanks(ctx context.Context, programID string, entries []entity.RankedEntry) error {
	query := `
		UPDATE waitlist_entries
		SET priority_score = ?, rank = ?, updated_at = ?
		WHERE application_id = ? AND program_id = ? AND active = 1
	`

	exec := txctx.ExecutorFor(ctx, r.db)
	now := time.Now()
	for _, e := range entries {
		if _, err := exec.ExecContext(ctx, query, e.Score, e.Rank, now, e.ApplicationID, programID); err != nil {
			r.logger.Error("Failed to update waitlist rank",
				zap.Int64("application_id", e.ApplicationID),
				zap.String("program_id", programID),
				zap.Error(err))
			return fmt.Errorf("failed to update rank: %w", err)
		}
	}
	return nil
}

// Deactivate takes the active entry of an application off a program waitlist.
// It reports false when there was no active entry.
func (r *WaitlistRepository) Deactivate(ctx context.Context, applicationID int64, programID string) (bool, error) {
	query := `
		UPDATE waitlist_entries
		SET active = 0, updated_at = ?
		WHERE application_id = ? AND program_id = ? AND active = 1
	`

	result, err := txctx.ExecutorFor(ctx, r.db).ExecContext(ctx, query, time.Now(), applicationID, programID)
	if err != nil {
		r.logger.Error("Failed to deactivate waitlist entry",
			zap.Int64("application_id", applicationID),
			zap.String("program_id", programID),
			zap.Error(err))
		return false, fmt.Errorf("failed to deactivate waitlist entry: %w", err)
	}

	affected, err := result.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("failed to get rows affected: %w", err)
	}
	return affected > 0, nil
}

// Verify interface compliance
var _ port.WaitlistRepository = (*WaitlistRepository)(nil)
