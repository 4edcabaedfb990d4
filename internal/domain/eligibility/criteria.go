package eligibility

import (
	"fmt"
	"strings"

	"github.com/civicportal/lifecycle-engine/internal/domain/entity"
)

// Criterion names
const (
	CriterionIncomeCeiling        = "income_ceiling"
	CriterionResidencyDuration    = "residency_duration"
	CriterionNoPropertyOwnership  = "no_property_ownership"
	CriterionDocumentCompleteness = "document_completeness"
	CriterionNoDisqualification   = "no_disqualification"
)

// Input is everything a criterion may look at
type Input struct {
	Beneficiary *entity.Beneficiary
	Policy      Policy
	Readiness   *entity.ValidationResult // nil when readiness was not evaluated
}

// Criterion is one named eligibility rule. Hard failures make the applicant
// not eligible; soft failures only make the determination conditional.
type Criterion struct {
	Name string
	Hard bool
	// HardWhen makes a soft criterion hard for one evaluation
	HardWhen func(in Input) bool
	// WaivedFor lists sectors for which the criterion is waived
	WaivedFor []entity.SectorTag
	Check     func(in Input) (outcome string, reason string)
}

func (c Criterion) hard(in Input) bool {
	return c.Hard || (c.HardWhen != nil && c.HardWhen(in))
}

func (c Criterion) waived(b *entity.Beneficiary) (entity.SectorTag, bool) {
	for _, tag := range c.WaivedFor {
		if b.HasSector(tag) {
			return tag, true
		}
	}
	return "", false
}

// DefaultCriteria returns the ordered housing criteria
func DefaultCriteria() []Criterion {
	return []Criterion{
		{
			Name:  CriterionIncomeCeiling,
			Hard:  true,
			Check: checkIncomeCeiling,
		},
		{
			Name:      CriterionResidencyDuration,
			WaivedFor: []entity.SectorTag{entity.SectorDisasterAffected},
			Check:     checkResidency,
		},
		{
			Name:      CriterionNoPropertyOwnership,
			WaivedFor: []entity.SectorTag{entity.SectorInformalSettler},
			Check:     checkPropertyOwnership,
		},
		{
			Name:     CriterionDocumentCompleteness,
			HardWhen: missingCriticalDocuments,
			Check:    checkDocuments,
		},
		{
			Name:  CriterionNoDisqualification,
			Hard:  true,
			Check: checkDisqualification,
		},
	}
}

func checkIncomeCeiling(in Input) (string, string) {
	income := in.Beneficiary.HouseholdIncome
	if income > in.Policy.IncomeCeiling {
		return entity.OutcomeFail, fmt.Sprintf("household income %.2f exceeds the program ceiling of %.2f", income, in.Policy.IncomeCeiling)
	}
	return entity.OutcomePass, fmt.Sprintf("household income %.2f is within the ceiling of %.2f", income, in.Policy.IncomeCeiling)
}

func checkResidency(in Input) (string, string) {
	years := in.Beneficiary.ResidencyYears
	if years < in.Policy.MinResidencyYears {
		return entity.OutcomeFail, fmt.Sprintf("residency of %g year(s) is below the required %g", years, in.Policy.MinResidencyYears)
	}
	return entity.OutcomePass, fmt.Sprintf("residency of %g year(s) meets the required %g", years, in.Policy.MinResidencyYears)
}

func checkPropertyOwnership(in Input) (string, string) {
	if in.Beneficiary.OwnsProperty {
		return entity.OutcomeFail, "applicant already owns real property"
	}
	return entity.OutcomePass, "applicant owns no real property"
}

func checkDocuments(in Input) (string, string) {
	if in.Readiness == nil {
		return entity.OutcomeNotApplicable, "document readiness was not evaluated"
	}
	if missingCriticalDocuments(in) {
		return entity.OutcomeFail, fmt.Sprintf("critical document(s) missing: %s", strings.Join(in.Readiness.MissingCriticalDocuments, ", "))
	}
	if len(in.Readiness.MissingDocuments) > 0 {
		return entity.OutcomeFail, fmt.Sprintf("%d required document(s) missing", len(in.Readiness.MissingDocuments))
	}
	return entity.OutcomePass, "all required documents are on file"
}

func missingCriticalDocuments(in Input) bool {
	return in.Readiness != nil && len(in.Readiness.MissingCriticalDocuments) > 0
}

func checkDisqualification(in Input) (string, string) {
	if in.Beneficiary.Blacklisted {
		return entity.OutcomeFail, "applicant is on the disqualification list"
	}
	return entity.OutcomePass, "applicant is not disqualified"
}
