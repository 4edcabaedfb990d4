package ranking

import (
	"github.com/civicportal/lifecycle-engine/internal/domain/entity"
	"github.com/civicportal/lifecycle-engine/internal/domain/workflow"
)

// Weights is the versioned scoring table for a waitlist
type Weights struct {
	Version          string
	Sectors          map[entity.SectorTag]float64
	PerDependent     float64
	ResidencyPerYear float64
	ResidencyCap     float64
	IncomeReference  float64
	IncomeWeight     float64
	IncomeCap        float64
}

// Validate requires a weight for every sector in the vocabulary and
// non-negative factor settings
func (w Weights) Validate() error {
	subject := "ranking weights " + w.Version
	if w.Version == "" {
		return workflow.NewConfigurationError("ranking weights", "version is required")
	}
	for _, tag := range entity.SectorVocabulary() {
		if _, ok := w.Sectors[tag]; !ok {
			return workflow.NewConfigurationError(subject, "no weight for sector %s", tag)
		}
	}
	for tag := range w.Sectors {
		if !tag.IsValid() {
			return workflow.NewConfigurationError(subject, "unknown sector %s", tag)
		}
	}
	if w.PerDependent < 0 || w.ResidencyPerYear < 0 || w.ResidencyCap < 0 ||
		w.IncomeReference < 0 || w.IncomeWeight < 0 || w.IncomeCap < 0 {
		return workflow.NewConfigurationError(subject, "factor weights must not be negative")
	}
	return nil
}
