package entity

import "time"

// Duplicate match types
const (
	MatchConfirmed = "confirmed"
	MatchPotential = "potential"
)

// DuplicateMatch is one existing application resembling the candidate
type DuplicateMatch struct {
	ApplicationID int64  `json:"application_id"`
	ReferenceNo   string `json:"reference_no"`
	Status        string `json:"status"`
	MatchType     string `json:"match_type"`
	MatchedOn     string `json:"matched_on"`
}

// DuplicateResult is the outcome of a duplicate scan. It is advisory only.
type DuplicateResult struct {
	HasDuplicates       bool             `json:"has_duplicates"`
	PotentialDuplicates []DuplicateMatch `json:"potential_duplicates"`
	TotalMatches        int              `json:"total_matches"`
}

// HasConfirmed reports whether any match is confirmed
func (r *DuplicateResult) HasConfirmed() bool {
	if r == nil {
		return false
	}
	for _, m := range r.PotentialDuplicates {
		if m.MatchType == MatchConfirmed {
			return true
		}
	}
	return false
}

// Readiness statuses, in precedence order
const (
	ReadinessHasDuplicates    = "has_duplicates"
	ReadinessMissingDocuments = "missing_documents"
	ReadinessIncomplete       = "incomplete"
	ReadinessReady            = "ready"
)

// ValidationResult is the readiness of an application to progress
type ValidationResult struct {
	IsValid                  bool             `json:"is_valid"`
	ReadinessStatus          string           `json:"readiness_status"`
	MissingFields            []string         `json:"missing_fields"`
	MissingDocuments         []string         `json:"missing_documents"`
	MissingCriticalDocuments []string         `json:"missing_critical_documents"` // subset of MissingDocuments
	DuplicateWarnings        []DuplicateMatch `json:"duplicate_warnings"`
	ValidationErrors         []string         `json:"validation_errors"`
	Summary                  string           `json:"summary"`
}

// Eligibility determinations
const (
	DeterminationEligible    = "eligible"
	DeterminationConditional = "conditional"
	DeterminationNotEligible = "not_eligible"
)

// Criterion outcomes
const (
	OutcomePass          = "pass"
	OutcomeFail          = "fail"
	OutcomeNotApplicable = "not_applicable"
)

// CriterionResult is the outcome of a single eligibility criterion
type CriterionResult struct {
	Name    string `json:"name"`
	Hard    bool   `json:"hard"`
	Outcome string `json:"outcome"`
	Waived  bool   `json:"waived"`
	Reason  string `json:"reason"`
}

// EligibilityResult is the determination for one applicant against one program policy
type EligibilityResult struct {
	IsEligible     bool              `json:"is_eligible"`
	Determination  string            `json:"determination"`
	Reasons        []string          `json:"reasons"`
	FailedCriteria []string          `json:"failed_criteria"`
	PassedCriteria []string          `json:"passed_criteria"`
	WaivedCriteria []string          `json:"waived_criteria"`
	Criteria       []CriterionResult `json:"criteria"`
	Remarks        string            `json:"remarks"`
	PolicyVersion  string            `json:"policy_version"`
}

// ScoreBreakdown lists the contribution of each ranking factor
type ScoreBreakdown struct {
	Sectors    float64 `json:"sectors"`
	Dependents float64 `json:"dependents"`
	Residency  float64 `json:"residency"`
	Income     float64 `json:"income"`
}

// RankedEntry is one position in a program waitlist
type RankedEntry struct {
	ApplicationID int64          `json:"application_id"`
	BeneficiaryID int64          `json:"beneficiary_id"`
	ProgramID     string         `json:"program_id"`
	Score         float64        `json:"score"`
	Rank          int            `json:"rank"`
	SubmittedAt   time.Time      `json:"submitted_at"`
	Breakdown     ScoreBreakdown `json:"breakdown"`
	WeightVersion string         `json:"weight_version"`
}
