package eligibility

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/civicportal/lifecycle-engine/internal/domain/entity"
	"github.com/civicportal/lifecycle-engine/internal/domain/workflow"
)

var testPolicy = Policy{
	Version:           "2026.1",
	ProgramID:         "socialized-housing",
	IncomeCeiling:     20000,
	MinResidencyYears: 3,
}

func eligibleBeneficiary() *entity.Beneficiary {
	return &entity.Beneficiary{
		ID:              1,
		FullName:        "Ana Lopez",
		HouseholdSize:   4,
		HouseholdIncome: 15000,
		ResidencyYears:  5,
	}
}

func readyResult() *entity.ValidationResult {
	return &entity.ValidationResult{IsValid: true, ReadinessStatus: entity.ReadinessReady}
}

func TestEvaluator_Eligible(t *testing.T) {
	result, err := NewEvaluator(nil).Evaluate(Input{
		Beneficiary: eligibleBeneficiary(),
		Policy:      testPolicy,
		Readiness:   readyResult(),
	})
	require.NoError(t, err)

	assert.True(t, result.IsEligible)
	assert.Equal(t, entity.DeterminationEligible, result.Determination)
	assert.Empty(t, result.FailedCriteria)
	assert.Empty(t, result.Reasons)
	assert.Len(t, result.PassedCriteria, 5)
	assert.Equal(t, "2026.1", result.PolicyVersion)
}

func TestEvaluator_ConditionalOnResidency(t *testing.T) {
	b := eligibleBeneficiary()
	b.ResidencyYears = 2

	result, err := NewEvaluator(nil).Evaluate(Input{Beneficiary: b, Policy: testPolicy, Readiness: readyResult()})
	require.NoError(t, err)

	assert.False(t, result.IsEligible)
	assert.Equal(t, entity.DeterminationConditional, result.Determination)
	assert.Equal(t, []string{CriterionResidencyDuration}, result.FailedCriteria)
	require.Len(t, result.Reasons, 1)
	assert.Contains(t, result.Reasons[0], "below the required 3")
}

func TestEvaluator_HardFailures(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(b *entity.Beneficiary)
		failed []string
	}{
		{
			name:   "income above ceiling",
			mutate: func(b *entity.Beneficiary) { b.HouseholdIncome = 25000 },
			failed: []string{CriterionIncomeCeiling},
		},
		{
			name:   "blacklisted",
			mutate: func(b *entity.Beneficiary) { b.Blacklisted = true },
			failed: []string{CriterionNoDisqualification},
		},
		{
			name: "hard and soft together",
			mutate: func(b *entity.Beneficiary) {
				b.HouseholdIncome = 25000
				b.OwnsProperty = true
			},
			failed: []string{CriterionIncomeCeiling, CriterionNoPropertyOwnership},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			b := eligibleBeneficiary()
			tt.mutate(b)

			result, err := NewEvaluator(nil).Evaluate(Input{Beneficiary: b, Policy: testPolicy, Readiness: readyResult()})
			require.NoError(t, err)
			assert.Equal(t, entity.DeterminationNotEligible, result.Determination)
			assert.Equal(t, tt.failed, result.FailedCriteria)
			assert.Len(t, result.Reasons, len(tt.failed))
		})
	}
}

func TestEvaluator_Waivers(t *testing.T) {
	b := eligibleBeneficiary()
	b.ResidencyYears = 0
	b.OwnsProperty = true
	b.SectorTags = []entity.SectorTag{entity.SectorDisasterAffected, entity.SectorInformalSettler}

	result, err := NewEvaluator(nil).Evaluate(Input{Beneficiary: b, Policy: testPolicy, Readiness: readyResult()})
	require.NoError(t, err)

	assert.Equal(t, entity.DeterminationEligible, result.Determination)
	assert.Equal(t, []string{CriterionResidencyDuration, CriterionNoPropertyOwnership}, result.WaivedCriteria)
	assert.Contains(t, result.PassedCriteria, CriterionResidencyDuration)
	assert.Contains(t, result.PassedCriteria, CriterionNoPropertyOwnership)
}

func TestEvaluator_PartitionsCriteria(t *testing.T) {
	b := eligibleBeneficiary()
	b.ResidencyYears = 1
	b.OwnsProperty = true
	readiness := &entity.ValidationResult{MissingDocuments: []string{"barangay_certificate"}}

	result, err := NewEvaluator(nil).Evaluate(Input{Beneficiary: b, Policy: testPolicy, Readiness: readiness})
	require.NoError(t, err)

	all := append(append([]string{}, result.PassedCriteria...), result.FailedCriteria...)
	assert.ElementsMatch(t, []string{
		CriterionIncomeCeiling,
		CriterionResidencyDuration,
		CriterionNoPropertyOwnership,
		CriterionDocumentCompleteness,
		CriterionNoDisqualification,
	}, all)
	assert.Len(t, result.Reasons, len(result.FailedCriteria))
	assert.Equal(t, entity.DeterminationConditional, result.Determination)
}

func TestEvaluator_MissingCriticalDocumentIsHard(t *testing.T) {
	readiness := &entity.ValidationResult{
		MissingDocuments:         []string{"barangay_certificate", "valid_id"},
		MissingCriticalDocuments: []string{"valid_id"},
	}

	result, err := NewEvaluator(nil).Evaluate(Input{Beneficiary: eligibleBeneficiary(), Policy: testPolicy, Readiness: readiness})
	require.NoError(t, err)

	assert.Equal(t, entity.DeterminationNotEligible, result.Determination)
	assert.Equal(t, []string{CriterionDocumentCompleteness}, result.FailedCriteria)
	for _, c := range result.Criteria {
		if c.Name == CriterionDocumentCompleteness {
			assert.True(t, c.Hard)
			assert.Contains(t, c.Reason, "valid_id")
		}
	}

	// the same criterion stays soft when only ordinary documents are missing
	readiness.MissingCriticalDocuments = []string{}
	result, err = NewEvaluator(nil).Evaluate(Input{Beneficiary: eligibleBeneficiary(), Policy: testPolicy, Readiness: readiness})
	require.NoError(t, err)
	assert.Equal(t, entity.DeterminationConditional, result.Determination)
}

func TestEvaluator_DocumentsNotEvaluated(t *testing.T) {
	result, err := NewEvaluator(nil).Evaluate(Input{Beneficiary: eligibleBeneficiary(), Policy: testPolicy})
	require.NoError(t, err)

	assert.True(t, result.IsEligible)
	for _, c := range result.Criteria {
		if c.Name == CriterionDocumentCompleteness {
			assert.Equal(t, entity.OutcomeNotApplicable, c.Outcome)
		}
	}
}

func TestEvaluator_InvalidPolicy(t *testing.T) {
	_, err := NewEvaluator(nil).Evaluate(Input{Beneficiary: eligibleBeneficiary(), Policy: Policy{Version: "x"}})
	assert.ErrorIs(t, err, workflow.ErrConfiguration)
}

func TestPolicySet(t *testing.T) {
	set, err := NewPolicySet([]Policy{testPolicy})
	require.NoError(t, err)

	p, err := set.For("socialized-housing")
	require.NoError(t, err)
	assert.Equal(t, 20000.0, p.IncomeCeiling)

	_, err = set.For("unknown")
	assert.ErrorIs(t, err, workflow.ErrConfiguration)

	_, err = NewPolicySet([]Policy{testPolicy, testPolicy})
	assert.ErrorIs(t, err, workflow.ErrConfiguration)
}
