package entity

import "time"

// History subjects
const (
	SubjectApplication = "APPLICATION"
	SubjectBeneficiary = "BENEFICIARY"
)

// StatusHistoryEntry is one append-only record of a status change.
// Entries are never updated or deleted.
type StatusHistoryEntry struct {
	ID         int64     `json:"id"`
	Subject    string    `json:"subject"`
	SubjectID  int64     `json:"subject_id"`
	FromStatus *string   `json:"from_status,omitempty"` // nil for the first entry
	ToStatus   string    `json:"to_status"`
	ActorID    string    `json:"actor_id"`
	Remarks    string    `json:"remarks"`
	CreatedAt  time.Time `json:"created_at"`
}

// NewApplicationHistory builds the history entry for an application status change
func NewApplicationHistory(applicationID int64, from, to, actorID, remarks string, at time.Time) *StatusHistoryEntry {
	return newHistory(SubjectApplication, applicationID, from, to, actorID, remarks, at)
}

// NewBeneficiaryHistory builds the history entry for a beneficiary status change
func NewBeneficiaryHistory(beneficiaryID int64, from, to, actorID, remarks string, at time.Time) *StatusHistoryEntry {
	return newHistory(SubjectBeneficiary, beneficiaryID, from, to, actorID, remarks, at)
}

func newHistory(subject string, id int64, from, to, actorID, remarks string, at time.Time) *StatusHistoryEntry {
	entry := &StatusHistoryEntry{
		Subject:   subject,
		SubjectID: id,
		ToStatus:  to,
		ActorID:   actorID,
		Remarks:   remarks,
		CreatedAt: at,
	}
	if from != "" {
		entry.FromStatus = &from
	}
	return entry
}

// StatusDuration is the time an application spent in one status
type StatusDuration struct {
	Status   string        `json:"status"`
	Duration time.Duration `json:"duration_ns"`
	Visits   int           `json:"visits"`
}

// StatusDurations derives time-in-status from history ordered by CreatedAt.
// The last status accrues time until now.
func StatusDurations(history []*StatusHistoryEntry, now time.Time) []StatusDuration {
	index := make(map[string]int)
	var out []StatusDuration

	for i, entry := range history {
		end := now
		if i+1 < len(history) {
			end = history[i+1].CreatedAt
		}
		elapsed := end.Sub(entry.CreatedAt)
		if elapsed < 0 {
			elapsed = 0
		}

		pos, seen := index[entry.ToStatus]
		if !seen {
			pos = len(out)
			index[entry.ToStatus] = pos
			out = append(out, StatusDuration{Status: entry.ToStatus})
		}
		out[pos].Duration += elapsed
		out[pos].Visits++
	}

	return out
}
