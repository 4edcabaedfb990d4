package eligibility

import (
	"fmt"
	"strings"

	"github.com/civicportal/lifecycle-engine/internal/domain/entity"
)

// Evaluator applies ordered criteria to a beneficiary.
// This is pure domain logic: no I/O and no side effects.
type Evaluator struct {
	criteria []Criterion
}

// NewEvaluator creates an evaluator; nil criteria selects DefaultCriteria
func NewEvaluator(criteria []Criterion) *Evaluator {
	if criteria == nil {
		criteria = DefaultCriteria()
	}
	return &Evaluator{criteria: criteria}
}

// Evaluate produces the determination. Waived and not-applicable criteria
// count as passed, so every criterion lands in exactly one of the passed
// and failed lists.
func (e *Evaluator) Evaluate(in Input) (*entity.EligibilityResult, error) {
	if in.Beneficiary == nil {
		return nil, fmt.Errorf("eligibility: beneficiary is required")
	}
	if err := in.Policy.Validate(); err != nil {
		return nil, err
	}

	result := &entity.EligibilityResult{
		Reasons:        []string{},
		FailedCriteria: []string{},
		PassedCriteria: []string{},
		WaivedCriteria: []string{},
		Criteria:       make([]entity.CriterionResult, 0, len(e.criteria)),
		PolicyVersion:  in.Policy.Version,
	}

	hardFailed := false
	for _, c := range e.criteria {
		cr := entity.CriterionResult{Name: c.Name, Hard: c.hard(in)}

		if tag, ok := c.waived(in.Beneficiary); ok {
			cr.Outcome = entity.OutcomePass
			cr.Waived = true
			cr.Reason = fmt.Sprintf("waived for sector %s", tag)
			result.WaivedCriteria = append(result.WaivedCriteria, c.Name)
		} else {
			cr.Outcome, cr.Reason = c.Check(in)
		}

		if cr.Outcome == entity.OutcomeFail {
			result.FailedCriteria = append(result.FailedCriteria, c.Name)
			result.Reasons = append(result.Reasons, cr.Reason)
			if cr.Hard {
				hardFailed = true
			}
		} else {
			result.PassedCriteria = append(result.PassedCriteria, c.Name)
		}
		result.Criteria = append(result.Criteria, cr)
	}

	switch {
	case hardFailed:
		result.Determination = entity.DeterminationNotEligible
	case len(result.FailedCriteria) > 0:
		result.Determination = entity.DeterminationConditional
	default:
		result.Determination = entity.DeterminationEligible
	}
	result.IsEligible = result.Determination == entity.DeterminationEligible
	result.Remarks = remarks(result)

	return result, nil
}

func remarks(r *entity.EligibilityResult) string {
	switch r.Determination {
	case entity.DeterminationEligible:
		return fmt.Sprintf("eligible under policy %s", r.PolicyVersion)
	case entity.DeterminationConditional:
		return fmt.Sprintf("conditionally eligible under policy %s, pending: %s", r.PolicyVersion, strings.Join(r.FailedCriteria, ", "))
	default:
		return fmt.Sprintf("not eligible under policy %s: %s", r.PolicyVersion, strings.Join(r.Reasons, "; "))
	}
}
