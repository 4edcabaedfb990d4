package service

import (
	"errors"
	"fmt"

	"github.com/civicportal/lifecycle-engine/internal/domain/entity"
)

var (
	// ErrNotFound is returned when an application, beneficiary or document does not exist
	ErrNotFound = errors.New("not found")

	// ErrNotReady is returned when an application may not enter an approval-bound status yet
	ErrNotReady = errors.New("application not ready")

	// ErrDuplicateApplication marks a readiness failure caused by a confirmed duplicate
	ErrDuplicateApplication = errors.New("duplicate application")

	// ErrConcurrencyConflict is returned when the stored status changed under the request
	// and retries were exhausted
	ErrConcurrencyConflict = errors.New("concurrency conflict")

	// ErrDomainMismatch is returned when an application is addressed through the wrong domain
	ErrDomainMismatch = errors.New("application belongs to another domain")

	// ErrNotEligible is returned when a disqualified applicant is moved toward approval
	ErrNotEligible = errors.New("applicant not eligible")

	// ErrInvalidSubmission is returned when an intake request is missing what the domain needs
	ErrInvalidSubmission = errors.New("invalid submission")
)

// NotReadyError carries the readiness result that blocked a decision
type NotReadyError struct {
	RequestedStatus string
	Result          *entity.ValidationResult
}

func (e *NotReadyError) Error() string {
	return fmt.Sprintf("%s: cannot enter %s (%s)", ErrNotReady, e.RequestedStatus, e.Result.Summary)
}

// Unwrap also matches ErrDuplicateApplication when a confirmed duplicate is the cause
func (e *NotReadyError) Unwrap() []error {
	if e.Result != nil && e.Result.ReadinessStatus == entity.ReadinessHasDuplicates {
		return []error{ErrNotReady, ErrDuplicateApplication}
	}
	return []error{ErrNotReady}
}

// NotEligibleError carries the determination that blocked an approval-bound decision
type NotEligibleError struct {
	RequestedStatus string
	Result          *entity.EligibilityResult
}

func (e *NotEligibleError) Error() string {
	return fmt.Sprintf("%s: cannot enter %s (%s)", ErrNotEligible, e.RequestedStatus, e.Result.Remarks)
}

func (e *NotEligibleError) Unwrap() error {
	return ErrNotEligible
}
