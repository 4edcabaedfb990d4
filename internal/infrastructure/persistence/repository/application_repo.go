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
	"github.com/civicportal/lifecycle-engine/internal/domain/workflow"
	"github.com/civicportal/lifecycle-engine/pkg/database"
	"github.com/civicportal/lifecycle-engine/pkg/database/txctx"
)

// ApplicationRepository implements port.ApplicationRepository
type ApplicationRepository struct {
	db     *sql.DB
	logger *zap.Logger
}

// NewApplicationRepository creates a new application repository
func NewApplicationRepository(db *sql.DB, logger *zap.Logger) port.ApplicationRepository {
	return &ApplicationRepository{
		db:     db,
		logger: logger,
	}
}

const applicationColumns = `id, domain, reference_no, status, denial_reason, applicant_id,
	program_id, attributes, submitted_at, processed_at, created_at, updated_at`

// Create inserts a new application
func (r *ApplicationRepository) Create(ctx context.Context, app *entity.Application) error {
	attrs, err := json.Marshal(app.Attributes)
	if err != nil {
		return fmt.Errorf("failed to marshal attributes: %w", err)
	}

	now := time.Now()
	if app.CreatedAt.IsZero() {
		app.CreatedAt = now
	}
	if app.SubmittedAt.IsZero() {
		app.SubmittedAt = now
	}
	app.UpdatedAt = now

	query := `
		INSERT INTO applications (
			domain, reference_no, status, denial_reason, applicant_id, program_id,
			attributes, submitted_at, processed_at, created_at, updated_at
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`

	result, err := txctx.ExecutorFor(ctx, r.db).ExecContext(ctx, query,
		app.Domain.String(),
		app.ReferenceNo,
		app.Status,
		app.DenialReason,
		app.ApplicantID,
		app.ProgramID,
		string(attrs),
		app.SubmittedAt,
		app.ProcessedAt,
		app.CreatedAt,
		app.UpdatedAt,
	)
	if err != nil {
		if database.IsUniqueViolation(err) {
			return fmt.Errorf("reference %s: %w", app.ReferenceNo, port.ErrDuplicateEntry)
		}
		r.logger.Error("Failed to create application", zap.String("reference_no", app.ReferenceNo), zap.Error(err))
		return fmt.Errorf("failed to create application: %w", err)
	}

	id, err := result.LastInsertId()
	if err != nil {
		return fmt.Errorf("failed to get last insert id: %w", err)
	}

	app.ID = id
	return nil
}

// GetByID retrieves an application, returning nil when it does not exist
func (r *ApplicationRepository) GetByID(ctx context.Context, id int64) (*entity.Application, error) {
	query := `SELECT ` + applicationColumns + ` FROM applications WHERE id = ?`

	app, err := scanApplication(txctx.ExecutorFor(ctx, r.db).QueryRowContext(ctx, query, id))
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		r.logger.Error("Failed to get application", zap.Int64("id", id), zap.Error(err))
		return nil, fmt.Errorf("failed to get application: %w", err)
	}
	return app, nil
}

// ListByDomain returns every application of a domain
func (r *ApplicationRepository) ListByDomain(ctx context.Context, domain workflow.Domain) ([]*entity.Application, error) {
	query := `SELECT ` + applicationColumns + ` FROM applications WHERE domain = ? ORDER BY id ASC`
	return r.list(ctx, query, domain.String())
}

// ListByProgram returns the applications filed under a program
func (r *ApplicationRepository) ListByProgram(ctx context.Context, programID string) ([]*entity.Application, error) {
	query := `SELECT ` + applicationColumns + ` FROM applications WHERE program_id = ? ORDER BY id ASC`
	return r.list(ctx, query, programID)
}

func (r *ApplicationRepository) list(ctx context.Context, query string, arg interface{}) ([]*entity.Application, error) {
	rows, err := txctx.ExecutorFor(ctx, r.db).QueryContext(ctx, query, arg)
	if err != nil {
		r.logger.Error("Failed to list applications", zap.Any("filter", arg), zap.Error(err))
		return nil, fmt.Errorf("failed to list applications: %w", err)
	}
	defer rows.Close()

	var apps []*entity.Application
	for rows.Next() {
		app, err := scanApplication(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan application: %w", err)
		}
		apps = append(apps, app)
	}
	return apps, rows.Err()
}

// CompareAndSetStatus writes the new status only if the stored one still
// equals ExpectedStatus
func (r *ApplicationRepository) CompareAndSetStatus(ctx context.Context, update port.StatusUpdate) error {
	query := `
		UPDATE applications
		SET status = ?, denial_reason = COALESCE(?, denial_reason),
			processed_at = COALESCE(?, processed_at), updated_at = ?
		WHERE id = ? AND status = ?
	`

	result, err := txctx.ExecutorFor(ctx, r.db).ExecContext(ctx, query,
		update.NewStatus,
		update.DenialReason,
		update.ProcessedAt,
		time.Now(),
		update.ID,
		update.ExpectedStatus,
	)
	if err != nil {
		r.logger.Error("Failed to update application status",
			zap.Int64("id", update.ID),
			zap.String("status", update.NewStatus),
			zap.Error(err))
		return fmt.Errorf("failed to update status: %w", err)
	}

	affected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to read affected rows: %w", err)
	}
	if affected == 0 {
		return fmt.Errorf("application %d expected %s: %w", update.ID, update.ExpectedStatus, port.ErrStaleStatus)
	}
	return nil
}

type rowScanner interface {
	Scan(dest ...interface{}) error
}

func scanApplication(row rowScanner) (*entity.Application, error) {
	var (
		app          entity.Application
		domain       string
		denialReason sql.NullString
		attrs        string
		processedAt  sql.NullTime
	)

	err := row.Scan(
		&app.ID,
		&domain,
		&app.ReferenceNo,
		&app.Status,
		&denialReason,
		&app.ApplicantID,
		&app.ProgramID,
		&attrs,
		&app.SubmittedAt,
		&processedAt,
		&app.CreatedAt,
		&app.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}

	app.Domain = workflow.Domain(domain)
	if denialReason.Valid {
		app.DenialReason = &denialReason.String
	}
	if processedAt.Valid {
		app.ProcessedAt = &processedAt.Time
	}
	app.Attributes = entity.Attributes{}
	if attrs != "" {
		if err := json.Unmarshal([]byte(attrs), &app.Attributes); err != nil {
			return nil, fmt.Errorf("failed to unmarshal attributes: %w", err)
		}
	}
	return &app, nil
}

// Verify interface compliance
var _ port.ApplicationRepository = (*ApplicationRepository)(nil)
