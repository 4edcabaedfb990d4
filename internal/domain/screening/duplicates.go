package screening

import (
	"strings"

	"golang.org/x/text/cases"

	"github.com/civicportal/lifecycle-engine/internal/domain/entity"
	"github.com/civicportal/lifecycle-engine/internal/domain/workflow"
)

// IdentityFields names the attribute keys that identify an applicant and a site
type IdentityFields struct {
	Name    string
	Address string
}

// DefaultIdentityFields returns the identity attribute keys of every application domain
func DefaultIdentityFields() map[workflow.Domain]IdentityFields {
	return map[workflow.Domain]IdentityFields{
		workflow.DomainClearance:          {Name: entity.AttrLotOwnerName, Address: entity.AttrLotAddress},
		workflow.DomainSubdivision:        {Name: entity.AttrDeveloperName, Address: entity.AttrProjectLocation},
		workflow.DomainBuildingReview:     {Name: entity.AttrOwnerName, Address: entity.AttrLotAddress},
		workflow.DomainHousingBeneficiary: {Name: entity.AttrApplicantName, Address: entity.AttrCurrentAddress},
	}
}

// DuplicateDetector flags existing live applications that resemble a candidate.
// It never blocks anything on its own.
type DuplicateDetector struct {
	registry *workflow.Registry
	fields   map[workflow.Domain]IdentityFields
}

// NewDuplicateDetector creates a detector over the given status graphs
func NewDuplicateDetector(registry *workflow.Registry, fields map[workflow.Domain]IdentityFields) *DuplicateDetector {
	if fields == nil {
		fields = DefaultIdentityFields()
	}
	return &DuplicateDetector{registry: registry, fields: fields}
}

// Detect compares candidate against existing applications of the same domain.
// The candidate itself and applications in inactive statuses are skipped.
func (d *DuplicateDetector) Detect(candidate *entity.Application, existing []*entity.Application) (*entity.DuplicateResult, error) {
	keys, ok := d.fields[candidate.Domain]
	if !ok {
		return nil, workflow.NewConfigurationError(candidate.Domain.String(), "no identity fields for domain")
	}
	graph, err := d.registry.Graph(candidate.Domain)
	if err != nil {
		return nil, err
	}

	result := &entity.DuplicateResult{PotentialDuplicates: []entity.DuplicateMatch{}}

	name := Normalize(candidate.Attributes.Get(keys.Name))
	address := Normalize(candidate.Attributes.Get(keys.Address))
	if address == "" {
		return result, nil
	}

	for _, other := range existing {
		if other == nil || other.ID == candidate.ID || other.Domain != candidate.Domain {
			continue
		}
		if graph.IsInactive(other.Status) {
			continue
		}
		if Normalize(other.Attributes.Get(keys.Address)) != address {
			continue
		}

		match := entity.DuplicateMatch{
			ApplicationID: other.ID,
			ReferenceNo:   other.ReferenceNo,
			Status:        other.Status,
			MatchType:     entity.MatchPotential,
			MatchedOn:     keys.Address,
		}
		if name != "" && Normalize(other.Attributes.Get(keys.Name)) == name {
			match.MatchType = entity.MatchConfirmed
			match.MatchedOn = keys.Name + "," + keys.Address
		}
		result.PotentialDuplicates = append(result.PotentialDuplicates, match)
	}

	result.TotalMatches = len(result.PotentialDuplicates)
	result.HasDuplicates = result.TotalMatches > 0
	return result, nil
}

// Normalize trims, case-folds and collapses internal whitespace
func Normalize(value string) string {
	// Casers keep state and are not shared between goroutines
	folded := cases.Fold().String(strings.TrimSpace(value))
	return strings.Join(strings.Fields(folded), " ")
}
