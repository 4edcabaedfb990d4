package entity

import (
	"strconv"
	"strings"
	"time"

	"github.com/civicportal/lifecycle-engine/internal/domain/workflow"
)

// Application is one submitted request in a single domain
type Application struct {
	ID           int64           `json:"id"`
	Domain       workflow.Domain `json:"domain"`
	ReferenceNo  string          `json:"reference_no"`
	Status       string          `json:"status"`
	DenialReason *string         `json:"denial_reason,omitempty"`
	ApplicantID  int64           `json:"applicant_id"`
	ProgramID    string          `json:"program_id,omitempty"` // housing programs only
	Attributes   Attributes      `json:"attributes"`
	SubmittedAt  time.Time       `json:"submitted_at"`
	ProcessedAt  *time.Time      `json:"processed_at,omitempty"`
	CreatedAt    time.Time       `json:"created_at"`
	UpdatedAt    time.Time       `json:"updated_at"`
}

// Attributes is the domain-specific attribute bag (lot address, project description, ...)
type Attributes map[string]string

// Get returns the trimmed value of key
func (a Attributes) Get(key string) string {
	if a == nil {
		return ""
	}
	return strings.TrimSpace(a[key])
}

// IsEmpty reports whether key is absent or blank
func (a Attributes) IsEmpty(key string) bool {
	return a.Get(key) == ""
}

// Float parses key as a float, returning ok=false when absent or malformed
func (a Attributes) Float(key string) (float64, bool) {
	v := a.Get(key)
	if v == "" {
		return 0, false
	}
	f, err := strconv.ParseFloat(v, 64)
	if err != nil {
		return 0, false
	}
	return f, true
}

// Attribute keys used for identity matching
const (
	AttrLotOwnerName    = "lot_owner_name"
	AttrLotAddress      = "lot_address"
	AttrDeveloperName   = "developer_name"
	AttrProjectLocation = "project_location"
	AttrOwnerName       = "owner_name"
	AttrApplicantName   = "applicant_name"
	AttrCurrentAddress  = "current_address"
	AttrProjectDesc     = "project_description"
)
