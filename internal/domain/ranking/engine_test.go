package ranking

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/civicportal/lifecycle-engine/internal/domain/entity"
	"github.com/civicportal/lifecycle-engine/internal/domain/workflow"
)

func testWeights() Weights {
	return Weights{
		Version: "w1",
		Sectors: map[entity.SectorTag]float64{
			entity.SectorPWD:              5,
			entity.SectorSeniorCitizen:    4,
			entity.SectorSoloParent:       4,
			entity.SectorDisasterAffected: 6,
			entity.SectorLowIncome:        3,
			entity.SectorInformalSettler:  3,
		},
		PerDependent:     1,
		ResidencyPerYear: 0.5,
		ResidencyCap:     5,
		IncomeReference:  10000,
		IncomeWeight:     1,
		IncomeCap:        4,
	}
}

func TestWeights_Validate(t *testing.T) {
	require.NoError(t, testWeights().Validate())

	missing := testWeights()
	delete(missing.Sectors, entity.SectorPWD)
	assert.ErrorIs(t, missing.Validate(), workflow.ErrConfiguration)

	unknown := testWeights()
	unknown.Sectors["veteran"] = 2
	assert.ErrorIs(t, unknown.Validate(), workflow.ErrConfiguration)

	negative := testWeights()
	negative.IncomeCap = -1
	assert.ErrorIs(t, negative.Validate(), workflow.ErrConfiguration)
}

func TestEngine_Score(t *testing.T) {
	engine, err := NewEngine(testWeights())
	require.NoError(t, err)

	b := &entity.Beneficiary{
		SectorTags:      []entity.SectorTag{entity.SectorPWD, entity.SectorSoloParent},
		HouseholdSize:   4,
		ResidencyYears:  20,
		HouseholdIncome: 5000,
	}

	score, breakdown, err := engine.Score(b)
	require.NoError(t, err)

	assert.Equal(t, 9.0, breakdown.Sectors)
	assert.Equal(t, 3.0, breakdown.Dependents)
	assert.Equal(t, 5.0, breakdown.Residency)
	assert.Equal(t, 2.0, breakdown.Income)
	assert.Equal(t, 19.0, score)
}

func TestEngine_ScoreEdgeCases(t *testing.T) {
	engine, err := NewEngine(testWeights())
	require.NoError(t, err)

	t.Run("zero income gets the income cap", func(t *testing.T) {
		_, breakdown, err := engine.Score(&entity.Beneficiary{HouseholdSize: 1})
		require.NoError(t, err)
		assert.Equal(t, 4.0, breakdown.Income)
		assert.Equal(t, 0.0, breakdown.Dependents)
	})

	t.Run("low income is capped", func(t *testing.T) {
		_, breakdown, err := engine.Score(&entity.Beneficiary{HouseholdIncome: 100})
		require.NoError(t, err)
		assert.Equal(t, 4.0, breakdown.Income)
	})

	t.Run("rounded to two decimals", func(t *testing.T) {
		score, _, err := engine.Score(&entity.Beneficiary{HouseholdSize: 1, HouseholdIncome: 30000})
		require.NoError(t, err)
		assert.Equal(t, 0.33, score)
	})

	t.Run("unknown sector", func(t *testing.T) {
		_, _, err := engine.Score(&entity.Beneficiary{SectorTags: []entity.SectorTag{"veteran"}})
		assert.ErrorIs(t, err, workflow.ErrConfiguration)
	})
}

func TestAssignDenseRanks(t *testing.T) {
	scores := []float64{10, 10, 8, 5, 5, 5}
	entries := make([]entity.RankedEntry, len(scores))
	for i, s := range scores {
		entries[i].Score = s
	}

	AssignDenseRanks(entries)

	var ranks []int
	for _, e := range entries {
		ranks = append(ranks, e.Rank)
	}
	assert.Equal(t, []int{1, 1, 2, 3, 3, 3}, ranks)
}

func TestEngine_RankOrdering(t *testing.T) {
	w := testWeights()
	w.IncomeCap = 0
	engine, err := NewEngine(w)
	require.NoError(t, err)

	base := time.Date(2026, 3, 1, 9, 0, 0, 0, time.UTC)
	pwd := []entity.SectorTag{entity.SectorPWD}

	candidates := []Candidate{
		{ApplicationID: 30, SubmittedAt: base.Add(2 * time.Hour), Beneficiary: &entity.Beneficiary{ID: 3, HouseholdSize: 1}},
		{ApplicationID: 20, SubmittedAt: base, Beneficiary: &entity.Beneficiary{ID: 2, SectorTags: pwd, HouseholdSize: 1}},
		{ApplicationID: 10, SubmittedAt: base, Beneficiary: &entity.Beneficiary{ID: 1, SectorTags: pwd, HouseholdSize: 1}},
		{ApplicationID: 5, SubmittedAt: base.Add(time.Hour), Beneficiary: &entity.Beneficiary{ID: 4, SectorTags: pwd, HouseholdSize: 1}},
	}

	entries, err := engine.Rank("prog-1", candidates)
	require.NoError(t, err)
	require.Len(t, entries, 4)

	var order []int64
	for _, e := range entries {
		order = append(order, e.ApplicationID)
		assert.Equal(t, "prog-1", e.ProgramID)
		assert.Equal(t, "w1", e.WeightVersion)
	}
	assert.Equal(t, []int64{10, 20, 5, 30}, order)
	assert.Equal(t, 1, entries[0].Rank)
	assert.Equal(t, 1, entries[2].Rank)
	assert.Equal(t, 2, entries[3].Rank)
}

func TestEngine_RankIsDeterministic(t *testing.T) {
	engine, err := NewEngine(testWeights())
	require.NoError(t, err)

	base := time.Date(2026, 3, 1, 9, 0, 0, 0, time.UTC)
	var candidates []Candidate
	for i := int64(1); i <= 20; i++ {
		candidates = append(candidates, Candidate{
			ApplicationID: i,
			SubmittedAt:   base.Add(time.Duration(i%3) * time.Minute),
			Beneficiary:   &entity.Beneficiary{ID: i, HouseholdSize: int(i % 4), HouseholdIncome: float64(1000 * (i % 5))},
		})
	}

	first, err := engine.Rank("p", candidates)
	require.NoError(t, err)

	reversed := make([]Candidate, len(candidates))
	for i, c := range candidates {
		reversed[len(candidates)-1-i] = c
	}
	second, err := engine.Rank("p", reversed)
	require.NoError(t, err)

	assert.Equal(t, first, second)
}

func TestEngine_RankEmpty(t *testing.T) {
	engine, err := NewEngine(testWeights())
	require.NoError(t, err)

	entries, err := engine.Rank("p", nil)
	require.NoError(t, err)
	assert.Empty(t, entries)
}
