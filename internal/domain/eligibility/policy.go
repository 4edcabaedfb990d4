package eligibility

import (
	"github.com/civicportal/lifecycle-engine/internal/domain/workflow"
)

// Policy holds the versioned thresholds of one housing program
type Policy struct {
	Version           string
	ProgramID         string
	IncomeCeiling     float64
	MinResidencyYears float64
}

// Validate checks the thresholds are usable
func (p Policy) Validate() error {
	if p.Version == "" {
		return workflow.NewConfigurationError("policy "+p.ProgramID, "version is required")
	}
	if p.IncomeCeiling <= 0 {
		return workflow.NewConfigurationError("policy "+p.ProgramID, "income ceiling must be positive")
	}
	if p.MinResidencyYears < 0 {
		return workflow.NewConfigurationError("policy "+p.ProgramID, "minimum residency must not be negative")
	}
	return nil
}

// PolicySet resolves program policies by program id
type PolicySet struct {
	policies map[string]Policy
}

// NewPolicySet validates and indexes policies
func NewPolicySet(policies []Policy) (*PolicySet, error) {
	s := &PolicySet{policies: make(map[string]Policy, len(policies))}
	for _, p := range policies {
		if err := p.Validate(); err != nil {
			return nil, err
		}
		if _, exists := s.policies[p.ProgramID]; exists {
			return nil, workflow.NewConfigurationError("policy "+p.ProgramID, "declared twice")
		}
		s.policies[p.ProgramID] = p
	}
	return s, nil
}

// For returns the policy of a program
func (s *PolicySet) For(programID string) (Policy, error) {
	p, ok := s.policies[programID]
	if !ok {
		return Policy{}, workflow.NewConfigurationError("program "+programID, "no eligibility policy")
	}
	return p, nil
}
