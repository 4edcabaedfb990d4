package repository

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/civicportal/lifecycle-engine/internal/application/port"
	"github.com/civicportal/lifecycle-engine/internal/domain/entity"
	"github.com/civicportal/lifecycle-engine/pkg/database/txctx"
)

// BeneficiaryRepository implements port.BeneficiaryRepository
type BeneficiaryRepository struct {
	db     *sql.DB
	logger *zap.Logger
}

// NewBeneficiaryRepository creates a new beneficiary repository
func NewBeneficiaryRepository(db *sql.DB, logger *zap.Logger) port.BeneficiaryRepository {
	return &BeneficiaryRepository{
		db:     db,
		logger: logger,
	}
}

// Create inserts a beneficiary profile
func (r *BeneficiaryRepository) Create(ctx context.Context, b *entity.Beneficiary) error {
	tags := b.SectorTags
	if tags == nil {
		tags = []entity.SectorTag{}
	}
	tagsJSON, err := json.Marshal(tags)
	if err != nil {
		return fmt.Errorf("failed to marshal sector tags: %w", err)
	}

	now := time.Now()
	if b.CreatedAt.IsZero() {
		b.CreatedAt = now
	}
	b.UpdatedAt = now

	query := `
		INSERT INTO beneficiaries (
			full_name, birth_date, address, household_size, household_income,
			residency_years, owns_property, blacklisted, sector_tags, status, remarks,
			created_at, updated_at
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`

	result, err := txctx.ExecutorFor(ctx, r.db).ExecContext(ctx, query,
		b.FullName,
		b.BirthDate,
		b.Address,
		b.HouseholdSize,
		b.HouseholdIncome,
		b.ResidencyYears,
		b.OwnsProperty,
		b.Blacklisted,
		string(tagsJSON),
		b.Status,
		b.Remarks,
		b.CreatedAt,
		b.UpdatedAt,
	)
	if err != nil {
		r.logger.Error("Failed to create beneficiary", zap.String("full_name", b.FullName), zap.Error(err))
		return fmt.Errorf("failed to create beneficiary: %w", err)
	}

	id, err := result.LastInsertId()
	if err != nil {
		return fmt.Errorf("failed to get last insert id: %w", err)
	}

	b.ID = id
	return nil
}

// GetByID retrieves a beneficiary, returning nil when it does not exist
func (r *BeneficiaryRepository) GetByID(ctx context.Context, id int64) (*entity.Beneficiary, error) {
	query := `
		SELECT id, full_name, birth_date, address, household_size, household_income,
			residency_years, owns_property, blacklisted, sector_tags, status, remarks,
			created_at, updated_at
		FROM beneficiaries
		WHERE id = ?
	`

	var (
		b         entity.Beneficiary
		birthDate sql.NullTime
		tagsJSON  string
	)
	err := txctx.ExecutorFor(ctx, r.db).QueryRowContext(ctx, query, id).Scan(
		&b.ID,
		&b.FullName,
		&birthDate,
		&b.Address,
		&b.HouseholdSize,
		&b.HouseholdIncome,
		&b.ResidencyYears,
		&b.OwnsProperty,
		&b.Blacklisted,
		&tagsJSON,
		&b.Status,
		&b.Remarks,
		&b.CreatedAt,
		&b.UpdatedAt,
	)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		r.logger.Error("Failed to get beneficiary", zap.Int64("id", id), zap.Error(err))
		return nil, fmt.Errorf("failed to get beneficiary: %w", err)
	}

	if birthDate.Valid {
		b.BirthDate = &birthDate.Time
	}
	if err := json.Unmarshal([]byte(tagsJSON), &b.SectorTags); err != nil {
		return nil, fmt.Errorf("failed to unmarshal sector tags: %w", err)
	}
	return &b, nil
}

// CompareAndSetStatus moves the beneficiary to next only if it is still in expected
func (r *BeneficiaryRepository) CompareAndSetStatus(ctx context.Context, id int64, expected, next, remarks string) error {
	query := `UPDATE beneficiaries SET status = ?, remarks = ?, updated_at = ? WHERE id = ? AND status = ?`

	result, err := txctx.ExecutorFor(ctx, r.db).ExecContext(ctx, query, next, remarks, time.Now(), id, expected)
	if err != nil {
		r.logger.Error("Failed to update beneficiary status",
			zap.Int64("id", id),
			zap.String("status", next),
			zap.Error(err))
		return fmt.Errorf("failed to update beneficiary status: %w", err)
	}

	affected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get rows affected: %w", err)
	}
	if affected == 0 {
		return port.ErrStaleStatus
	}
	return nil
}

// Verify interface compliance
var _ port.BeneficiaryRepository = (*BeneficiaryRepository)(nil)
