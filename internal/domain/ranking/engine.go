package ranking

import (
	"cmp"
	"math"
	"slices"
	"time"

	"github.com/civicportal/lifecycle-engine/internal/domain/entity"
	"github.com/civicportal/lifecycle-engine/internal/domain/workflow"
)

// Candidate is an eligible application competing for a program slot
type Candidate struct {
	ApplicationID int64
	SubmittedAt   time.Time
	Beneficiary   *entity.Beneficiary
}

// Engine scores and orders waitlist candidates
type Engine struct {
	weights Weights
}

// NewEngine validates the weights and returns an engine
func NewEngine(weights Weights) (*Engine, error) {
	if err := weights.Validate(); err != nil {
		return nil, err
	}
	return &Engine{weights: weights}, nil
}

// Weights returns the scoring table in use
func (e *Engine) Weights() Weights {
	return e.weights
}

// Score computes the priority score of a beneficiary, rounded to 2 decimals
func (e *Engine) Score(b *entity.Beneficiary) (float64, entity.ScoreBreakdown, error) {
	w := e.weights
	var breakdown entity.ScoreBreakdown

	for _, tag := range b.SectorTags {
		weight, ok := w.Sectors[tag]
		if !ok {
			return 0, breakdown, workflow.NewConfigurationError("ranking weights "+w.Version, "unknown sector %s", tag)
		}
		breakdown.Sectors += weight
	}

	breakdown.Dependents = w.PerDependent * float64(max(b.HouseholdSize-1, 0))
	breakdown.Residency = math.Min(w.ResidencyPerYear*b.ResidencyYears, w.ResidencyCap)

	if b.HouseholdIncome <= 0 {
		breakdown.Income = w.IncomeCap
	} else {
		breakdown.Income = math.Min(w.IncomeCap, w.IncomeWeight*w.IncomeReference/b.HouseholdIncome)
	}

	breakdown.Sectors = round2(breakdown.Sectors)
	breakdown.Dependents = round2(breakdown.Dependents)
	breakdown.Residency = round2(breakdown.Residency)
	breakdown.Income = round2(breakdown.Income)

	score := round2(breakdown.Sectors + breakdown.Dependents + breakdown.Residency + breakdown.Income)
	return score, breakdown, nil
}

// Rank scores every candidate and assigns dense ranks. Order is score
// descending, then submission time ascending, then application id ascending.
func (e *Engine) Rank(programID string, candidates []Candidate) ([]entity.RankedEntry, error) {
	entries := make([]entity.RankedEntry, 0, len(candidates))
	for _, c := range candidates {
		score, breakdown, err := e.Score(c.Beneficiary)
		if err != nil {
			return nil, err
		}
		entries = append(entries, entity.RankedEntry{
			ApplicationID: c.ApplicationID,
			BeneficiaryID: c.Beneficiary.ID,
			ProgramID:     programID,
			Score:         score,
			SubmittedAt:   c.SubmittedAt,
			Breakdown:     breakdown,
			WeightVersion: e.weights.Version,
		})
	}

	slices.SortFunc(entries, func(a, b entity.RankedEntry) int {
		if c := cmp.Compare(b.Score, a.Score); c != 0 {
			return c
		}
		if c := a.SubmittedAt.Compare(b.SubmittedAt); c != 0 {
			return c
		}
		return cmp.Compare(a.ApplicationID, b.ApplicationID)
	})

	AssignDenseRanks(entries)
	return entries, nil
}

// AssignDenseRanks numbers sorted entries: equal scores share a rank and the
// next distinct score gets the next integer, so ranks never skip after a tie
func AssignDenseRanks(entries []entity.RankedEntry) {
	rank := 0
	for i := range entries {
		if i == 0 || entries[i].Score != entries[i-1].Score {
			rank++
		}
		entries[i].Rank = rank
	}
}

func round2(v float64) float64 {
	return math.Round(v*100) / 100
}
