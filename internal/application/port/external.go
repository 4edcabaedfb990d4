package port

import (
	"context"

	"github.com/civicportal/lifecycle-engine/internal/domain/workflow"
)

// StatusChange is the notification trigger contract for one status change
type StatusChange struct {
	Domain        workflow.Domain
	ApplicationID int64
	OldStatus     string
	NewStatus     string
	RecipientID   int64
	ActorID       string
	CorrelationID string
}

// Notifier hands outcomes to the notification collaborator.
// Implementations must not block the caller on delivery.
type Notifier interface {
	StatusChanged(ctx context.Context, change StatusChange)
	WaitlistRanked(ctx context.Context, programID string, entries int)
}

// Metrics records engine outcomes
type Metrics interface {
	TransitionAccepted(domain workflow.Domain, to string)
	TransitionRejected(domain workflow.Domain, reason string)
	EligibilityDetermined(determination string)
	WaitlistInsert(programID string, created bool)
	ConflictRetry(operation string)
	RankingRecomputed(programID string, entries int)
}
