package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"golang.org/x/sync/singleflight"

	"github.com/civicportal/lifecycle-engine/internal/application/port"
	"github.com/civicportal/lifecycle-engine/internal/domain/eligibility"
	"github.com/civicportal/lifecycle-engine/internal/domain/entity"
	"github.com/civicportal/lifecycle-engine/internal/domain/ranking"
	"github.com/civicportal/lifecycle-engine/internal/domain/screening"
	"github.com/civicportal/lifecycle-engine/internal/domain/workflow"
)

// Logger interface for minimal logging dependency
type Logger interface {
	Info(msg string, keysAndValues ...interface{})
	Error(msg string, keysAndValues ...interface{})
}

// DecisionRequest asks for one status change on an application
type DecisionRequest struct {
	Domain          workflow.Domain
	ApplicationID   int64
	RequestedStatus string
	Remarks         string
	ActorID         string
}

// LifecycleService is the only writer of application and beneficiary statuses
type LifecycleService interface {
	// Submit files a new application at its domain's start status
	Submit(ctx context.Context, req SubmitRequest) (*entity.Application, error)
	ValidateTransition(ctx context.Context, domain workflow.Domain, applicationID int64, requested string) error
	RecordDecision(ctx context.Context, req DecisionRequest) (*entity.Application, error)
	CheckEligibility(ctx context.Context, applicationID int64, autoApply bool, actorID string) (*entity.EligibilityResult, error)
	ValidateApplication(ctx context.Context, applicationID int64) (*entity.ValidationResult, error)
	RecomputeRanking(ctx context.Context, programID string) ([]entity.RankedEntry, error)
	// Ranking computes the current order of a program waitlist without persisting it
	Ranking(ctx context.Context, programID string) ([]entity.RankedEntry, error)
	Timeline(ctx context.Context, applicationID int64) (*Timeline, error)
}

// LifecycleDeps groups the collaborators of the lifecycle service
type LifecycleDeps struct {
	Applications  port.ApplicationRepository
	History       port.HistoryRepository
	Documents     port.DocumentRepository
	Beneficiaries port.BeneficiaryRepository
	Waitlist      port.WaitlistRepository
	TxManager     port.TransactionManager
	Notifier      port.Notifier
	Metrics       port.Metrics

	Registry   *workflow.Registry
	Duplicates *screening.DuplicateDetector
	Readiness  *screening.ReadinessChecker
	Evaluator  *eligibility.Evaluator
	Policies   *eligibility.PolicySet
	Ranker     *ranking.Engine

	Logger             Logger
	MaxConflictRetries int
	Clock              func() time.Time
}

type lifecycleServiceImpl struct {
	LifecycleDeps
	rankGroup singleflight.Group
}

// NewLifecycleService creates a new LifecycleService
func NewLifecycleService(deps LifecycleDeps) LifecycleService {
	if deps.Clock == nil {
		deps.Clock = time.Now
	}
	if deps.MaxConflictRetries < 0 {
		deps.MaxConflictRetries = 0
	}
	return &lifecycleServiceImpl{LifecycleDeps: deps}
}

// ValidateTransition checks a requested status against the application's current status
func (s *lifecycleServiceImpl) ValidateTransition(ctx context.Context, domain workflow.Domain, applicationID int64, requested string) error {
	app, err := s.loadApplication(ctx, domain, applicationID)
	if err != nil {
		return err
	}
	return s.Registry.Validate(domain, app.Status, requested)
}

// RecordDecision applies a staff decision. A status that changed between read
// and write restarts the whole request, up to MaxConflictRetries times.
func (s *lifecycleServiceImpl) RecordDecision(ctx context.Context, req DecisionRequest) (*entity.Application, error) {
	var lastErr error
	for attempt := 0; attempt <= s.MaxConflictRetries; attempt++ {
		app, oldStatus, err := s.recordDecisionOnce(ctx, req)
		if errors.Is(err, ErrConcurrencyConflict) {
			lastErr = err
			s.Metrics.ConflictRetry("record_decision")
			s.Logger.Info("Status changed concurrently, retrying decision",
				"application_id", req.ApplicationID,
				"attempt", attempt+1,
			)
			continue
		}
		if err != nil {
			return nil, err
		}

		s.Metrics.TransitionAccepted(app.Domain, app.Status)
		s.Notifier.StatusChanged(ctx, port.StatusChange{
			Domain:        app.Domain,
			ApplicationID: app.ID,
			OldStatus:     oldStatus,
			NewStatus:     app.Status,
			RecipientID:   app.ApplicantID,
			ActorID:       req.ActorID,
		})
		return app, nil
	}

	s.Metrics.TransitionRejected(req.Domain, "conflict")
	return nil, fmt.Errorf("record decision for application %d: %w", req.ApplicationID, lastErr)
}

func (s *lifecycleServiceImpl) recordDecisionOnce(ctx context.Context, req DecisionRequest) (*entity.Application, string, error) {
	app, err := s.loadApplication(ctx, req.Domain, req.ApplicationID)
	if err != nil {
		return nil, "", err
	}
	graph, err := s.Registry.Graph(app.Domain)
	if err != nil {
		return nil, "", err
	}

	oldStatus := app.Status
	if err := graph.Validate(oldStatus, req.RequestedStatus); err != nil {
		s.Metrics.TransitionRejected(app.Domain, "invalid_transition")
		return nil, "", err
	}

	if oldStatus == graph.Start() || graph.IsApprovalBound(req.RequestedStatus) {
		validation, err := s.validate(ctx, app, req.RequestedStatus)
		if err != nil {
			return nil, "", err
		}
		if graph.IsApprovalBound(req.RequestedStatus) && !validation.IsValid {
			s.Metrics.TransitionRejected(app.Domain, "not_ready")
			return nil, "", &NotReadyError{RequestedStatus: req.RequestedStatus, Result: validation}
		}
		if validation.ReadinessStatus != entity.ReadinessReady {
			s.Logger.Info("Application progressing with open readiness items",
				"application_id", app.ID,
				"readiness", validation.ReadinessStatus,
			)
		}
	}

	now := s.Clock()
	update := port.StatusUpdate{
		ID:             app.ID,
		ExpectedStatus: oldStatus,
		NewStatus:      req.RequestedStatus,
		ProcessedAt:    &now,
	}
	if graph.IsDenial(req.RequestedStatus) {
		reason := req.Remarks
		update.DenialReason = &reason
	}

	err = s.TxManager.WithTransaction(ctx, func(txCtx context.Context) error {
		if err := s.Applications.CompareAndSetStatus(txCtx, update); err != nil {
			if errors.Is(err, port.ErrStaleStatus) {
				return ErrConcurrencyConflict
			}
			return fmt.Errorf("failed to update status: %w", err)
		}

		entry := entity.NewApplicationHistory(app.ID, oldStatus, req.RequestedStatus, req.ActorID, req.Remarks, now)
		if err := s.History.Append(txCtx, entry); err != nil {
			return fmt.Errorf("failed to append history: %w", err)
		}

		app.Status = req.RequestedStatus
		app.DenialReason = update.DenialReason
		app.ProcessedAt = update.ProcessedAt
		app.UpdatedAt = now

		if app.Domain == workflow.DomainHousingBeneficiary {
			return s.carryHousingDecision(txCtx, graph, app, req)
		}
		return nil
	})
	if err != nil {
		return nil, "", err
	}

	s.Logger.Info("Decision recorded",
		"application_id", app.ID,
		"domain", app.Domain,
		"from", oldStatus,
		"to", app.Status,
		"actor_id", req.ActorID,
	)
	return app, oldStatus, nil
}

// carryHousingDecision keeps the beneficiary and the waitlist in step with a
// housing status change. Must run inside the decision transaction.
func (s *lifecycleServiceImpl) carryHousingDecision(ctx context.Context, graph *workflow.Graph, app *entity.Application, req DecisionRequest) error {
	if graph.IsInactive(app.Status) {
		to := workflow.BeneficiaryQualified
		if graph.IsDenial(app.Status) {
			to = workflow.BeneficiaryDisqualified
		}
		return s.leaveWaitlist(ctx, app, nil, to, req.ActorID, req.Remarks)
	}

	result, beneficiary, err := s.evaluate(ctx, app)
	if err != nil {
		return err
	}
	s.Metrics.EligibilityDetermined(result.Determination)

	if result.Determination == entity.DeterminationNotEligible && graph.IsApprovalBound(app.Status) {
		s.Metrics.TransitionRejected(app.Domain, "not_eligible")
		return &NotEligibleError{RequestedStatus: app.Status, Result: result}
	}

	if err := s.carryDetermination(ctx, graph, app, beneficiary, result, req.ActorID); err != nil {
		return err
	}
	if result.Determination != entity.DeterminationNotEligible && !graph.HoldsWaitlistPlace(app.Status) {
		return s.leaveWaitlist(ctx, app, beneficiary, workflow.BeneficiaryQualified, req.ActorID,
			"application moved back to "+app.Status)
	}
	return nil
}

// CheckEligibility evaluates a housing application. With autoApply the
// outcome is carried to the beneficiary and the waitlist without touching
// the application status.
func (s *lifecycleServiceImpl) CheckEligibility(ctx context.Context, applicationID int64, autoApply bool, actorID string) (*entity.EligibilityResult, error) {
	if !autoApply {
		app, err := s.loadApplication(ctx, workflow.DomainHousingBeneficiary, applicationID)
		if err != nil {
			return nil, err
		}
		result, _, err := s.evaluate(ctx, app)
		if err != nil {
			return nil, err
		}
		s.Metrics.EligibilityDetermined(result.Determination)
		return result, nil
	}

	graph, err := s.Registry.Graph(workflow.DomainHousingBeneficiary)
	if err != nil {
		return nil, err
	}

	var lastErr error
	for attempt := 0; attempt <= s.MaxConflictRetries; attempt++ {
		app, err := s.loadApplication(ctx, workflow.DomainHousingBeneficiary, applicationID)
		if err != nil {
			return nil, err
		}

		var result *entity.EligibilityResult
		err = s.TxManager.WithTransaction(ctx, func(txCtx context.Context) error {
			var beneficiary *entity.Beneficiary
			var err error
			result, beneficiary, err = s.evaluate(txCtx, app)
			if err != nil {
				return err
			}
			s.Metrics.EligibilityDetermined(result.Determination)
			return s.carryDetermination(txCtx, graph, app, beneficiary, result, actorID)
		})
		if errors.Is(err, ErrConcurrencyConflict) {
			lastErr = err
			s.Metrics.ConflictRetry("check_eligibility")
			continue
		}
		if err != nil {
			return nil, err
		}
		return result, nil
	}

	return nil, fmt.Errorf("check eligibility for application %d: %w", applicationID, lastErr)
}

// carryDetermination moves the beneficiary to match an eligibility result and
// places eligible applications in a waitlist-holding status on the program
// waitlist. Must run inside a transaction.
func (s *lifecycleServiceImpl) carryDetermination(ctx context.Context, graph *workflow.Graph, app *entity.Application, beneficiary *entity.Beneficiary, result *entity.EligibilityResult, actorID string) error {
	switch result.Determination {
	case entity.DeterminationNotEligible:
		// disqualification ends processing here
		return s.leaveWaitlist(ctx, app, beneficiary, workflow.BeneficiaryDisqualified, actorID, result.Remarks)
	case entity.DeterminationConditional:
		return nil
	}

	if err := s.moveBeneficiary(ctx, beneficiary, workflow.BeneficiaryQualified, actorID, result.Remarks); err != nil {
		return err
	}

	if !graph.HoldsWaitlistPlace(app.Status) {
		return nil
	}

	now := s.Clock()
	entry := &entity.WaitlistEntry{
		ApplicationID: app.ID,
		ProgramID:     app.ProgramID,
		BeneficiaryID: beneficiary.ID,
		Active:        true,
		CreatedAt:     now,
		UpdatedAt:     now,
	}
	created := true
	if err := s.Waitlist.Create(ctx, entry); err != nil {
		if !errors.Is(err, port.ErrDuplicateEntry) {
			return fmt.Errorf("failed to create waitlist entry: %w", err)
		}
		created = false
	}
	s.Metrics.WaitlistInsert(app.ProgramID, created)

	if err := s.moveBeneficiary(ctx, beneficiary, workflow.BeneficiaryWaitlisted, actorID, "placed on waitlist for program "+app.ProgramID); err != nil {
		return err
	}

	_, err := s.rankAndStore(ctx, app.ProgramID)
	return err
}

// leaveWaitlist deactivates the application's waitlist entry and reranks the
// program when one was active. A disqualification always reaches the
// beneficiary; a plain exit only releases a waitlisted profile.
func (s *lifecycleServiceImpl) leaveWaitlist(ctx context.Context, app *entity.Application, beneficiary *entity.Beneficiary, to workflow.BeneficiaryStatus, actorID, remarks string) error {
	removed, err := s.Waitlist.Deactivate(ctx, app.ID, app.ProgramID)
	if err != nil {
		return fmt.Errorf("failed to deactivate waitlist entry: %w", err)
	}

	if removed || to == workflow.BeneficiaryDisqualified {
		if beneficiary == nil {
			beneficiary, err = s.Beneficiaries.GetByID(ctx, app.ApplicantID)
			if err != nil {
				return fmt.Errorf("failed to get beneficiary: %w", err)
			}
		}
		if beneficiary != nil && (to == workflow.BeneficiaryDisqualified ||
			beneficiary.Status == workflow.BeneficiaryWaitlisted.String()) {
			if err := s.setBeneficiaryStatus(ctx, beneficiary, to, actorID, remarks); err != nil {
				return err
			}
		}
	}

	if !removed {
		return nil
	}
	s.Logger.Info("Application left waitlist",
		"application_id", app.ID,
		"program_id", app.ProgramID,
		"status", app.Status,
	)
	_, err = s.rankAndStore(ctx, app.ProgramID)
	return err
}

func (s *lifecycleServiceImpl) evaluate(ctx context.Context, app *entity.Application) (*entity.EligibilityResult, *entity.Beneficiary, error) {
	beneficiary, err := s.Beneficiaries.GetByID(ctx, app.ApplicantID)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to get beneficiary: %w", err)
	}
	if beneficiary == nil {
		return nil, nil, fmt.Errorf("beneficiary %d: %w", app.ApplicantID, ErrNotFound)
	}

	policy, err := s.Policies.For(app.ProgramID)
	if err != nil {
		return nil, nil, err
	}

	readiness, err := s.validate(ctx, app, app.Status)
	if err != nil {
		return nil, nil, err
	}

	result, err := s.Evaluator.Evaluate(eligibility.Input{
		Beneficiary: beneficiary,
		Policy:      policy,
		Readiness:   readiness,
	})
	if err != nil {
		return nil, nil, err
	}
	return result, beneficiary, nil
}

// moveBeneficiary changes the profile status when the beneficiary graph allows it.
// Profiles already in the target status, or past it, are left alone.
func (s *lifecycleServiceImpl) moveBeneficiary(ctx context.Context, b *entity.Beneficiary, to workflow.BeneficiaryStatus, actorID, remarks string) error {
	if to == workflow.BeneficiaryQualified &&
		(b.Status == workflow.BeneficiaryWaitlisted.String() || b.Status == workflow.BeneficiaryAwarded.String()) {
		return nil
	}
	return s.setBeneficiaryStatus(ctx, b, to, actorID, remarks)
}

func (s *lifecycleServiceImpl) setBeneficiaryStatus(ctx context.Context, b *entity.Beneficiary, to workflow.BeneficiaryStatus, actorID, remarks string) error {
	target := to.String()
	if b.Status == target {
		return nil
	}

	if err := s.Registry.Validate(workflow.DomainBeneficiaryProfile, b.Status, target); err != nil {
		s.Logger.Info("Beneficiary status left unchanged",
			"beneficiary_id", b.ID,
			"status", b.Status,
			"requested", target,
			"reason", err.Error(),
		)
		return nil
	}

	if err := s.Beneficiaries.CompareAndSetStatus(ctx, b.ID, b.Status, target, remarks); err != nil {
		if errors.Is(err, port.ErrStaleStatus) {
			return ErrConcurrencyConflict
		}
		return fmt.Errorf("failed to update beneficiary status: %w", err)
	}

	entry := entity.NewBeneficiaryHistory(b.ID, b.Status, target, actorID, remarks, s.Clock())
	if err := s.History.Append(ctx, entry); err != nil {
		return fmt.Errorf("failed to append beneficiary history: %w", err)
	}

	b.Status = target
	return nil
}

// ValidateApplication runs the duplicate detector and readiness checker for the current status
func (s *lifecycleServiceImpl) ValidateApplication(ctx context.Context, applicationID int64) (*entity.ValidationResult, error) {
	app, err := s.getApplication(ctx, applicationID)
	if err != nil {
		return nil, err
	}
	return s.validate(ctx, app, app.Status)
}

func (s *lifecycleServiceImpl) validate(ctx context.Context, app *entity.Application, stage string) (*entity.ValidationResult, error) {
	existing, err := s.Applications.ListByDomain(ctx, app.Domain)
	if err != nil {
		return nil, fmt.Errorf("failed to list applications: %w", err)
	}
	duplicates, err := s.Duplicates.Detect(app, existing)
	if err != nil {
		return nil, err
	}

	docs, err := s.Documents.ListByApplication(ctx, app.ID)
	if err != nil {
		return nil, fmt.Errorf("failed to list documents: %w", err)
	}

	return s.Readiness.Check(app, stage, docs, duplicates)
}

// RecomputeRanking rebuilds a program waitlist. Concurrent calls for the same
// program share one computation.
func (s *lifecycleServiceImpl) RecomputeRanking(ctx context.Context, programID string) ([]entity.RankedEntry, error) {
	v, err, shared := s.rankGroup.Do(programID, func() (interface{}, error) {
		var entries []entity.RankedEntry
		err := s.TxManager.WithTransaction(ctx, func(txCtx context.Context) error {
			var err error
			entries, err = s.rankAndStore(txCtx, programID)
			return err
		})
		return entries, err
	})
	if err != nil {
		return nil, err
	}
	if shared {
		s.Logger.Info("Ranking recompute coalesced", "program_id", programID)
	}

	entries := v.([]entity.RankedEntry)
	s.Notifier.WaitlistRanked(ctx, programID, len(entries))
	return append([]entity.RankedEntry(nil), entries...), nil
}

// Ranking computes the current order without writing it
func (s *lifecycleServiceImpl) Ranking(ctx context.Context, programID string) ([]entity.RankedEntry, error) {
	return s.computeRanking(ctx, programID)
}

func (s *lifecycleServiceImpl) rankAndStore(ctx context.Context, programID string) ([]entity.RankedEntry, error) {
	entries, err := s.computeRanking(ctx, programID)
	if err != nil {
		return nil, err
	}
	if err := s.Waitlist.UpdateRanks(ctx, programID, entries); err != nil {
		return nil, fmt.Errorf("failed to store ranks: %w", err)
	}
	s.Metrics.RankingRecomputed(programID, len(entries))
	return entries, nil
}

func (s *lifecycleServiceImpl) computeRanking(ctx context.Context, programID string) ([]entity.RankedEntry, error) {
	waitlist, err := s.Waitlist.ListActiveByProgram(ctx, programID)
	if err != nil {
		return nil, fmt.Errorf("failed to list waitlist: %w", err)
	}

	candidates := make([]ranking.Candidate, 0, len(waitlist))
	for _, entry := range waitlist {
		app, err := s.Applications.GetByID(ctx, entry.ApplicationID)
		if err != nil {
			return nil, fmt.Errorf("failed to get application: %w", err)
		}
		if app == nil {
			return nil, fmt.Errorf("waitlisted application %d: %w", entry.ApplicationID, ErrNotFound)
		}
		b, err := s.Beneficiaries.GetByID(ctx, entry.BeneficiaryID)
		if err != nil {
			return nil, fmt.Errorf("failed to get beneficiary: %w", err)
		}
		if b == nil {
			return nil, fmt.Errorf("waitlisted beneficiary %d: %w", entry.BeneficiaryID, ErrNotFound)
		}
		candidates = append(candidates, ranking.Candidate{
			ApplicationID: app.ID,
			SubmittedAt:   app.SubmittedAt,
			Beneficiary:   b,
		})
	}

	return s.Ranker.Rank(programID, candidates)
}

func (s *lifecycleServiceImpl) loadApplication(ctx context.Context, domain workflow.Domain, id int64) (*entity.Application, error) {
	app, err := s.getApplication(ctx, id)
	if err != nil {
		return nil, err
	}
	if app.Domain != domain {
		return nil, fmt.Errorf("application %d is %s, not %s: %w", id, app.Domain, domain, ErrDomainMismatch)
	}
	return app, nil
}

func (s *lifecycleServiceImpl) getApplication(ctx context.Context, id int64) (*entity.Application, error) {
	app, err := s.Applications.GetByID(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("failed to get application: %w", err)
	}
	if app == nil {
		return nil, fmt.Errorf("application %d: %w", id, ErrNotFound)
	}
	return app, nil
}
