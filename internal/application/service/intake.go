package service

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/civicportal/lifecycle-engine/internal/application/port"
	"github.com/civicportal/lifecycle-engine/internal/domain/entity"
	"github.com/civicportal/lifecycle-engine/internal/domain/workflow"
)

// SubmitRequest files a new application
type SubmitRequest struct {
	Domain      workflow.Domain
	ReferenceNo string
	ApplicantID int64
	ProgramID   string
	Attributes  entity.Attributes

	// Beneficiary is the profile of a first-time housing applicant.
	// Ignored when ApplicantID names an existing beneficiary.
	Beneficiary *entity.Beneficiary

	ActorID string
}

// Submit records a new application at its domain's start status. A housing
// applicant without a profile gets one in the same transaction, and a
// beneficiary may hold only one live application per program.
func (s *lifecycleServiceImpl) Submit(ctx context.Context, req SubmitRequest) (*entity.Application, error) {
	if err := s.checkSubmission(req); err != nil {
		s.Metrics.TransitionRejected(req.Domain, "invalid_submission")
		return nil, err
	}
	graph, err := s.Registry.Graph(req.Domain)
	if err != nil {
		return nil, err
	}

	now := s.Clock()
	app := &entity.Application{
		Domain:      req.Domain,
		ReferenceNo: strings.TrimSpace(req.ReferenceNo),
		Status:      graph.Start(),
		ApplicantID: req.ApplicantID,
		ProgramID:   req.ProgramID,
		Attributes:  req.Attributes,
		SubmittedAt: now,
		CreatedAt:   now,
		UpdatedAt:   now,
	}
	if app.Attributes == nil {
		app.Attributes = entity.Attributes{}
	}

	err = s.TxManager.WithTransaction(ctx, func(txCtx context.Context) error {
		if app.Domain == workflow.DomainHousingBeneficiary {
			b, err := s.intakeBeneficiary(txCtx, req, now)
			if err != nil {
				return err
			}
			app.ApplicantID = b.ID
			if err := s.checkOpenApplication(txCtx, graph, app); err != nil {
				return err
			}
		}

		if err := s.Applications.Create(txCtx, app); err != nil {
			if errors.Is(err, port.ErrDuplicateEntry) {
				return fmt.Errorf("reference %s: %w", app.ReferenceNo, ErrDuplicateApplication)
			}
			return fmt.Errorf("failed to create application: %w", err)
		}

		entry := entity.NewApplicationHistory(app.ID, "", app.Status, req.ActorID, "application submitted", now)
		if err := s.History.Append(txCtx, entry); err != nil {
			return fmt.Errorf("failed to append history: %w", err)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.Logger.Info("Application submitted",
		"application_id", app.ID,
		"domain", app.Domain,
		"reference_no", app.ReferenceNo,
		"applicant_id", app.ApplicantID,
	)

	s.Metrics.TransitionAccepted(app.Domain, app.Status)
	s.Notifier.StatusChanged(ctx, port.StatusChange{
		Domain:        app.Domain,
		ApplicationID: app.ID,
		NewStatus:     app.Status,
		RecipientID:   app.ApplicantID,
		ActorID:       req.ActorID,
	})
	return app, nil
}

func (s *lifecycleServiceImpl) checkSubmission(req SubmitRequest) error {
	if !req.Domain.IsApplicationDomain() {
		return fmt.Errorf("%w: unknown domain %q", ErrInvalidSubmission, req.Domain)
	}
	if strings.TrimSpace(req.ReferenceNo) == "" {
		return fmt.Errorf("%w: reference number is required", ErrInvalidSubmission)
	}

	if req.Domain != workflow.DomainHousingBeneficiary {
		if req.ProgramID != "" {
			return fmt.Errorf("%w: program %q only applies to housing applications", ErrInvalidSubmission, req.ProgramID)
		}
		if req.ApplicantID <= 0 {
			return fmt.Errorf("%w: applicant is required", ErrInvalidSubmission)
		}
		return nil
	}

	if _, err := s.Policies.For(req.ProgramID); err != nil {
		return fmt.Errorf("%w: %v", ErrInvalidSubmission, err)
	}
	if req.ApplicantID > 0 {
		return nil
	}
	if req.Beneficiary == nil || strings.TrimSpace(req.Beneficiary.FullName) == "" {
		return fmt.Errorf("%w: a first housing application needs a beneficiary profile", ErrInvalidSubmission)
	}
	for _, tag := range req.Beneficiary.SectorTags {
		if !tag.IsValid() {
			return fmt.Errorf("%w: unknown sector tag %q", ErrInvalidSubmission, tag)
		}
	}
	return nil
}

// intakeBeneficiary returns the existing profile or creates one at the
// beneficiary start status
func (s *lifecycleServiceImpl) intakeBeneficiary(ctx context.Context, req SubmitRequest, now time.Time) (*entity.Beneficiary, error) {
	if req.ApplicantID > 0 {
		b, err := s.Beneficiaries.GetByID(ctx, req.ApplicantID)
		if err != nil {
			return nil, fmt.Errorf("failed to get beneficiary: %w", err)
		}
		if b == nil {
			return nil, fmt.Errorf("beneficiary %d: %w", req.ApplicantID, ErrNotFound)
		}
		return b, nil
	}

	profile := req.Beneficiary
	b := entity.NewBeneficiary(strings.TrimSpace(profile.FullName))
	b.BirthDate = profile.BirthDate
	b.Address = profile.Address
	b.HouseholdSize = profile.HouseholdSize
	b.HouseholdIncome = profile.HouseholdIncome
	b.ResidencyYears = profile.ResidencyYears
	b.OwnsProperty = profile.OwnsProperty
	b.SectorTags = profile.SectorTags
	b.CreatedAt = now
	b.UpdatedAt = now

	if err := s.Beneficiaries.Create(ctx, b); err != nil {
		return nil, fmt.Errorf("failed to create beneficiary: %w", err)
	}
	entry := entity.NewBeneficiaryHistory(b.ID, "", b.Status, req.ActorID, "profile created", now)
	if err := s.History.Append(ctx, entry); err != nil {
		return nil, fmt.Errorf("failed to append beneficiary history: %w", err)
	}
	return b, nil
}

func (s *lifecycleServiceImpl) checkOpenApplication(ctx context.Context, graph *workflow.Graph, app *entity.Application) error {
	existing, err := s.Applications.ListByProgram(ctx, app.ProgramID)
	if err != nil {
		return fmt.Errorf("failed to list applications: %w", err)
	}
	for _, other := range existing {
		if other.ApplicantID == app.ApplicantID && !graph.IsInactive(other.Status) {
			return fmt.Errorf("beneficiary %d already has application %d in program %s: %w",
				app.ApplicantID, other.ID, app.ProgramID, ErrDuplicateApplication)
		}
	}
	return nil
}
