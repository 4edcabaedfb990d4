package entity

import "time"

// WaitlistEntry places an eligible application on a program waitlist.
// At most one active entry exists per (application, program).
type WaitlistEntry struct {
	ID            int64     `json:"id"`
	ApplicationID int64     `json:"application_id"`
	ProgramID     string    `json:"program_id"`
	BeneficiaryID int64     `json:"beneficiary_id"`
	PriorityScore float64   `json:"priority_score"`
	Rank          int       `json:"rank"`
	Active        bool      `json:"active"`
	CreatedAt     time.Time `json:"created_at"`
	UpdatedAt     time.Time `json:"updated_at"`
}

// NotificationTrigger status constants
const (
	NotificationStatusPending = "PENDING"
	NotificationStatusSent    = "SENT"
	NotificationStatusFailed  = "FAILED"
)

// NotificationTrigger records a status change for the external delivery service
type NotificationTrigger struct {
	ID            int64     `json:"id"`
	EventID       string    `json:"event_id"`
	Domain        string    `json:"domain"`
	ApplicationID int64     `json:"application_id"`
	OldStatus     string    `json:"old_status"`
	NewStatus     string    `json:"new_status"`
	RecipientID   int64     `json:"recipient_id"`
	Status        string    `json:"status"`
	CreatedAt     time.Time `json:"created_at"`
}
