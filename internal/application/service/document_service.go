package service

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/civicportal/lifecycle-engine/internal/application/port"
	"github.com/civicportal/lifecycle-engine/internal/domain/entity"
)

// DocumentService records document versions and their verification
type DocumentService interface {
	Submit(ctx context.Context, applicationID int64, docType string, meta entity.FileMeta, actorID string) (*entity.Document, error)
	Verify(ctx context.Context, documentID int64, approved bool, remarks, actorID string) (*entity.Document, error)
}

type documentServiceImpl struct {
	applications port.ApplicationRepository
	documents    port.DocumentRepository
	txManager    port.TransactionManager
	logger       Logger
	clock        func() time.Time
}

// NewDocumentService creates a new DocumentService
func NewDocumentService(
	applications port.ApplicationRepository,
	documents port.DocumentRepository,
	txManager port.TransactionManager,
	logger Logger,
) DocumentService {
	return &documentServiceImpl{
		applications: applications,
		documents:    documents,
		txManager:    txManager,
		logger:       logger,
		clock:        time.Now,
	}
}

// Submit stores a new version of a document type and makes it the current one.
// Earlier versions are kept.
func (s *documentServiceImpl) Submit(ctx context.Context, applicationID int64, docType string, meta entity.FileMeta, actorID string) (*entity.Document, error) {
	docType = strings.TrimSpace(docType)
	if docType == "" {
		return nil, fmt.Errorf("document type is required")
	}

	app, err := s.applications.GetByID(ctx, applicationID)
	if err != nil {
		return nil, fmt.Errorf("failed to get application: %w", err)
	}
	if app == nil {
		return nil, fmt.Errorf("application %d: %w", applicationID, ErrNotFound)
	}

	doc := &entity.Document{
		ApplicationID:      applicationID,
		DocType:            docType,
		VerificationStatus: entity.DocumentStatusPending,
		IsCurrent:          true,
		FileName:           meta.FileName,
		FileSize:           meta.FileSize,
		MimeType:           meta.MimeType,
		UploadedBy:         actorID,
		CreatedAt:          s.clock(),
	}

	err = s.txManager.WithTransaction(ctx, func(txCtx context.Context) error {
		latest, err := s.documents.LatestVersion(txCtx, applicationID, docType)
		if err != nil {
			return fmt.Errorf("failed to read latest version: %w", err)
		}
		if err := s.documents.ClearCurrent(txCtx, applicationID, docType); err != nil {
			return fmt.Errorf("failed to clear current version: %w", err)
		}
		doc.Version = latest + 1
		if err := s.documents.Create(txCtx, doc); err != nil {
			if errors.Is(err, port.ErrDuplicateEntry) {
				return ErrConcurrencyConflict
			}
			return fmt.Errorf("failed to create document: %w", err)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.logger.Info("Document submitted",
		"application_id", applicationID,
		"doc_type", docType,
		"version", doc.Version,
	)
	return doc, nil
}

// Verify records the verification outcome of a document version
func (s *documentServiceImpl) Verify(ctx context.Context, documentID int64, approved bool, remarks, actorID string) (*entity.Document, error) {
	doc, err := s.documents.GetByID(ctx, documentID)
	if err != nil {
		return nil, fmt.Errorf("failed to get document: %w", err)
	}
	if doc == nil {
		return nil, fmt.Errorf("document %d: %w", documentID, ErrNotFound)
	}

	status := entity.DocumentStatusRejected
	if approved {
		status = entity.DocumentStatusApproved
	}
	now := s.clock()

	if err := s.documents.UpdateVerification(ctx, documentID, status, remarks, actorID, now); err != nil {
		return nil, fmt.Errorf("failed to update verification: %w", err)
	}

	doc.VerificationStatus = status
	doc.Remarks = remarks
	doc.VerifiedBy = actorID
	doc.VerifiedAt = &now

	s.logger.Info("Document verified",
		"document_id", documentID,
		"status", status,
		"actor_id", actorID,
	)
	return doc, nil
}
