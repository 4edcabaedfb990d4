package entity

import (
	"time"

	"github.com/civicportal/lifecycle-engine/internal/domain/workflow"
)

// SectorTag is a member of the fixed sector vocabulary
type SectorTag string

const (
	SectorPWD              SectorTag = "pwd"
	SectorSeniorCitizen    SectorTag = "senior_citizen"
	SectorSoloParent       SectorTag = "solo_parent"
	SectorDisasterAffected SectorTag = "disaster_affected"
	SectorLowIncome        SectorTag = "low_income"
	SectorInformalSettler  SectorTag = "informal_settler"
)

// SectorVocabulary returns every recognised sector tag
func SectorVocabulary() []SectorTag {
	return []SectorTag{
		SectorPWD,
		SectorSeniorCitizen,
		SectorSoloParent,
		SectorDisasterAffected,
		SectorLowIncome,
		SectorInformalSettler,
	}
}

// IsValid reports whether the tag is in the vocabulary
func (s SectorTag) IsValid() bool {
	for _, tag := range SectorVocabulary() {
		if tag == s {
			return true
		}
	}
	return false
}

// Beneficiary is the applicant profile behind housing applications.
// Its Status is only ever changed by the lifecycle service.
type Beneficiary struct {
	ID              int64       `json:"id"`
	FullName        string      `json:"full_name"`
	BirthDate       *time.Time  `json:"birth_date,omitempty"`
	Address         string      `json:"address"`
	HouseholdSize   int         `json:"household_size"`
	HouseholdIncome float64     `json:"household_income"`
	ResidencyYears  float64     `json:"residency_years"`
	OwnsProperty    bool        `json:"owns_property"`
	Blacklisted     bool        `json:"blacklisted"`
	SectorTags      []SectorTag `json:"sector_tags"`
	Status          string      `json:"status"`
	Remarks         string      `json:"remarks,omitempty"`
	CreatedAt       time.Time   `json:"created_at"`
	UpdatedAt       time.Time   `json:"updated_at"`
}

// HasSector reports whether the beneficiary carries the tag
func (b *Beneficiary) HasSector(tag SectorTag) bool {
	for _, t := range b.SectorTags {
		if t == tag {
			return true
		}
	}
	return false
}

// NewBeneficiary returns a profile in the initial applicant status
func NewBeneficiary(fullName string) *Beneficiary {
	now := time.Now()
	return &Beneficiary{
		FullName:  fullName,
		Status:    workflow.BeneficiaryApplicant.String(),
		CreatedAt: now,
		UpdatedAt: now,
	}
}
