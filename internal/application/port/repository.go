package port

import (
	"context"
	"errors"
	"time"

	"github.com/civicportal/lifecycle-engine/internal/domain/entity"
	"github.com/civicportal/lifecycle-engine/internal/domain/workflow"
)

var (
	// ErrDuplicateEntry is returned when an insert violates a uniqueness constraint
	ErrDuplicateEntry = errors.New("duplicate entry")

	// ErrStaleStatus is returned by compare-and-set updates when the stored
	// status no longer matches the expected one
	ErrStaleStatus = errors.New("stored status changed")
)

// StatusUpdate is a compare-and-set status write
type StatusUpdate struct {
	ID             int64
	ExpectedStatus string
	NewStatus      string
	DenialReason   *string
	ProcessedAt    *time.Time
}

// ApplicationRepository defines persistence operations for Application
type ApplicationRepository interface {
	Create(ctx context.Context, app *entity.Application) error
	GetByID(ctx context.Context, id int64) (*entity.Application, error)
	ListByDomain(ctx context.Context, domain workflow.Domain) ([]*entity.Application, error)
	// ListByProgram returns the applications filed under a housing program, oldest first
	ListByProgram(ctx context.Context, programID string) ([]*entity.Application, error)
	// CompareAndSetStatus returns ErrStaleStatus when the stored status differs from ExpectedStatus
	CompareAndSetStatus(ctx context.Context, update StatusUpdate) error
}

// HistoryRepository defines persistence operations for the append-only status history
type HistoryRepository interface {
	Append(ctx context.Context, entry *entity.StatusHistoryEntry) error
	ListBySubject(ctx context.Context, subject string, subjectID int64) ([]*entity.StatusHistoryEntry, error)
}

// DocumentRepository defines persistence operations for Document versions
type DocumentRepository interface {
	// Create inserts a new version; callers clear the previous current version first
	Create(ctx context.Context, doc *entity.Document) error
	GetByID(ctx context.Context, id int64) (*entity.Document, error)
	ListByApplication(ctx context.Context, applicationID int64) ([]*entity.Document, error)
	LatestVersion(ctx context.Context, applicationID int64, docType string) (int, error)
	ClearCurrent(ctx context.Context, applicationID int64, docType string) error
	UpdateVerification(ctx context.Context, id int64, status, remarks, verifiedBy string, at time.Time) error
}

// BeneficiaryRepository defines persistence operations for Beneficiary
type BeneficiaryRepository interface {
	Create(ctx context.Context, b *entity.Beneficiary) error
	GetByID(ctx context.Context, id int64) (*entity.Beneficiary, error)
	// CompareAndSetStatus returns ErrStaleStatus when the stored status differs from expected
	CompareAndSetStatus(ctx context.Context, id int64, expected, next, remarks string) error
}

// WaitlistRepository defines persistence operations for WaitlistEntry
type WaitlistRepository interface {
	// Create returns ErrDuplicateEntry when an active entry already exists
	Create(ctx context.Context, entry *entity.WaitlistEntry) error
	ListActiveByProgram(ctx context.Context, programID string) ([]*entity.WaitlistEntry, error)
	UpdateRanks(ctx context.Context, programID string, entries []entity.RankedEntry) error
	// Deactivate reports false when the application had no active entry
	Deactivate(ctx context.Context, applicationID int64, programID string) (bool, error)
}

// NotificationRepository stores notification triggers for the external delivery service
type NotificationRepository interface {
	Create(ctx context.Context, trigger *entity.NotificationTrigger) error
	ListPending(ctx context.Context, limit int) ([]*entity.NotificationTrigger, error)
}

// TransactionManager handles database transactions
type TransactionManager interface {
	WithTransaction(ctx context.Context, fn func(ctx context.Context) error) error
}
