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

// DocumentRepository implements port.DocumentRepository
type DocumentRepository struct {
	db     *sql.DB
	logger *zap.Logger
}

// NewDocumentRepository creates a new document repository
func NewDocumentRepository(db *sql.DB, logger *zap.Logger) port.DocumentRepository {
	return &DocumentRepository{
		db:     db,
		logger: logger,
	}
}

const documentColumns = `id, application_id, doc_type, version, verification_status, is_current,
	file_name, file_size, mime_type, remarks, uploaded_by, verified_by, verified_at, created_at`

// Create inserts a document version
func (r *DocumentRepository) Create(ctx context.Context, doc *entity.Document) error {
	if doc.CreatedAt.IsZero() {
		doc.CreatedAt = time.Now()
	}

	query := `
		INSERT INTO documents (
			application_id, doc_type, version, verification_status, is_current,
			file_name, file_size, mime_type, remarks, uploaded_by, verified_by, verified_at, created_at
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`

	result, err := txctx.ExecutorFor(ctx, r.db).ExecContext(ctx, query,
		doc.ApplicationID,
		doc.DocType,
		doc.Version,
		doc.VerificationStatus,
		doc.IsCurrent,
		doc.FileName,
		doc.FileSize,
		doc.MimeType,
		doc.Remarks,
		doc.UploadedBy,
		doc.VerifiedBy,
		doc.VerifiedAt,
		doc.CreatedAt,
	)
	if err != nil {
		if database.IsUniqueViolation(err) {
			return fmt.Errorf("document %s v%d: %w", doc.DocType, doc.Version, port.ErrDuplicateEntry)
		}
		r.logger.Error("Failed to create document",
			zap.Int64("application_id", doc.ApplicationID),
			zap.String("doc_type", doc.DocType),
			zap.Error(err))
		return fmt.Errorf("failed to create document: %w", err)
	}

	id, err := result.LastInsertId()
	if err != nil {
		return fmt.Errorf("failed to get last insert id: %w", err)
	}

	doc.ID = id
	return nil
}

// GetByID retrieves a document version, returning nil when it does not exist
func (r *DocumentRepository) GetByID(ctx context.Context, id int64) (*entity.Document, error) {
	query := `SELECT ` + documentColumns + ` FROM documents WHERE id = ?`

	doc, err := scanDocument(txctx.ExecutorFor(ctx, r.db).QueryRowContext(ctx, query, id))
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		r.logger.Error("Failed to get document", zap.Int64("id", id), zap.Error(err))
		return nil, fmt.Errorf("failed to get document: %w", err)
	}
	return doc, nil
}

// ListByApplication returns every version of every document of an application
func (r *DocumentRepository) ListByApplication(ctx context.Context, applicationID int64) ([]*entity.Document, error) {
	query := `SELECT ` + documentColumns + ` FROM documents WHERE application_id = ? ORDER BY doc_type, version`

	rows, err := txctx.ExecutorFor(ctx, r.db).QueryContext(ctx, query, applicationID)
	if err != nil {
		r.logger.Error("Failed to list documents", zap.Int64("application_id", applicationID), zap.Error(err))
		return nil, fmt.Errorf("failed to list documents: %w", err)
	}
	defer rows.Close()

	var docs []*entity.Document
	for rows.Next() {
		doc, err := scanDocument(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan document: %w", err)
		}
		docs = append(docs, doc)
	}
	return docs, rows.Err()
}

// LatestVersion returns the highest version of a document type, 0 when none exist
func (r *DocumentRepository) LatestVersion(ctx context.Context, applicationID int64, docType string) (int, error) {
	query := `SELECT COALESCE(MAX(version), 0) FROM documents WHERE application_id = ? AND doc_type = ?`

	var version int
	if err := txctx.ExecutorFor(ctx, r.db).QueryRowContext(ctx, query, applicationID, docType).Scan(&version); err != nil {
		return 0, fmt.Errorf("failed to get latest version: %w", err)
	}
	return version, nil
}

// ClearCurrent marks every version of a document type as superseded
func (r *DocumentRepository) ClearCurrent(ctx context.Context, applicationID int64, docType string) error {
	query := `UPDATE documents SET is_current = 0 WHERE application_id = ? AND doc_type = ? AND is_current = 1`

	if _, err := txctx.ExecutorFor(ctx, r.db).ExecContext(ctx, query, applicationID, docType); err != nil {
		r.logger.Error("Failed to clear current document", zap.Int64("application_id", applicationID), zap.Error(err))
		return fmt.Errorf("failed to clear current document: %w", err)
	}
	return nil
}

// UpdateVerification records the verification outcome of a version
func (r *DocumentRepository) UpdateVerification(ctx context.Context, id int64, status, remarks, verifiedBy string, at time.Time) error {
	query := `UPDATE documents SET verification_status = ?, remarks = ?, verified_by = ?, verified_at = ? WHERE id = ?`

	result, err := txctx.ExecutorFor(ctx, r.db).ExecContext(ctx, query, status, remarks, verifiedBy, at, id)
	if err != nil {
		r.logger.Error("Failed to update verification", zap.Int64("id", id), zap.Error(err))
		return fmt.Errorf("failed to update verification: %w", err)
	}
	if affected, err := result.RowsAffected(); err == nil && affected == 0 {
		return fmt.Errorf("document %d not found", id)
	}
	return nil
}

func scanDocument(row rowScanner) (*entity.Document, error) {
	var (
		doc        entity.Document
		verifiedAt sql.NullTime
	)
	err := row.Scan(
		&doc.ID,
		&doc.ApplicationID,
		&doc.DocType,
		&doc.Version,
		&doc.VerificationStatus,
		&doc.IsCurrent,
		&doc.FileName,
		&doc.FileSize,
		&doc.MimeType,
		&doc.Remarks,
		&doc.UploadedBy,
		&doc.VerifiedBy,
		&verifiedAt,
		&doc.CreatedAt,
	)
	if err != nil {
		return nil, err
	}
	if verifiedAt.Valid {
		doc.VerifiedAt = &verifiedAt.Time
	}
	return &doc, nil
}

// Verify interface compliance
var _ port.DocumentRepository = (*DocumentRepository)(nil)
