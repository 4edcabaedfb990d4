package workflow

// Domain identifies an application category with its own status vocabulary
type Domain string

const (
	DomainClearance          Domain = "clearance"
	DomainSubdivision        Domain = "subdivision"
	DomainBuildingReview     Domain = "building_review"
	DomainHousingBeneficiary Domain = "housing_beneficiary"

	// DomainBeneficiaryProfile is the lifecycle of a beneficiary profile, not an
	// application domain. It shares the graph machinery only.
	DomainBeneficiaryProfile Domain = "beneficiary_profile"
)

// ApplicationDomains lists every domain an application can belong to
func ApplicationDomains() []Domain {
	return []Domain{
		DomainClearance,
		DomainSubdivision,
		DomainBuildingReview,
		DomainHousingBeneficiary,
	}
}

// String returns the string representation of the domain
func (d Domain) String() string {
	return string(d)
}

// IsApplicationDomain reports whether d is one of the application domains
func (d Domain) IsApplicationDomain() bool {
	switch d {
	case DomainClearance, DomainSubdivision, DomainBuildingReview, DomainHousingBeneficiary:
		return true
	default:
		return false
	}
}

// Status is a node of one domain's graph. Each domain has its own concrete
// type so statuses cannot leak between graphs.
type Status interface {
	Domain() Domain
	String() string
}

// ClearanceStatus is a zoning clearance status
type ClearanceStatus string

const (
	ClearancePending       ClearanceStatus = "pending"
	ClearanceUnderReview   ClearanceStatus = "under_review"
	ClearanceForInspection ClearanceStatus = "for_inspection"
	ClearanceApproved      ClearanceStatus = "approved"
	ClearanceDenied        ClearanceStatus = "denied"
)

func (s ClearanceStatus) Domain() Domain { return DomainClearance }
func (s ClearanceStatus) String() string { return string(s) }

// SubdivisionStatus is a subdivision/development clearance status
type SubdivisionStatus string

const (
	SubdivisionPending             SubdivisionStatus = "pending"
	SubdivisionUnderReview         SubdivisionStatus = "under_review"
	SubdivisionTechnicalEvaluation SubdivisionStatus = "technical_evaluation"
	SubdivisionApproved            SubdivisionStatus = "approved"
	SubdivisionDenied              SubdivisionStatus = "denied"
	SubdivisionWithdrawn           SubdivisionStatus = "withdrawn"
)

func (s SubdivisionStatus) Domain() Domain { return DomainSubdivision }
func (s SubdivisionStatus) String() string { return string(s) }

// BuildingReviewStatus is a building plan review status
type BuildingReviewStatus string

const (
	BuildingSubmitted     BuildingReviewStatus = "submitted"
	BuildingPlanReview    BuildingReviewStatus = "plan_review"
	BuildingForRevision   BuildingReviewStatus = "for_revision"
	BuildingForInspection BuildingReviewStatus = "for_inspection"
	BuildingApproved      BuildingReviewStatus = "approved"
	BuildingRejected      BuildingReviewStatus = "rejected"
	BuildingWithdrawn     BuildingReviewStatus = "withdrawn"
)

func (s BuildingReviewStatus) Domain() Domain { return DomainBuildingReview }
func (s BuildingReviewStatus) String() string { return string(s) }

// HousingStatus is a housing beneficiary application status
type HousingStatus string

const (
	HousingPending     HousingStatus = "pending"
	HousingUnderReview HousingStatus = "under_review"
	HousingVerified    HousingStatus = "verified"
	HousingApproved    HousingStatus = "approved"
	HousingRejected    HousingStatus = "rejected"
	HousingWithdrawn   HousingStatus = "withdrawn"
)

func (s HousingStatus) Domain() Domain { return DomainHousingBeneficiary }
func (s HousingStatus) String() string { return string(s) }

// BeneficiaryStatus is the coarse status of a beneficiary profile
type BeneficiaryStatus string

const (
	BeneficiaryApplicant    BeneficiaryStatus = "applicant"
	BeneficiaryQualified    BeneficiaryStatus = "qualified"
	BeneficiaryWaitlisted   BeneficiaryStatus = "waitlisted"
	BeneficiaryAwarded      BeneficiaryStatus = "awarded"
	BeneficiaryDisqualified BeneficiaryStatus = "disqualified"
	BeneficiaryArchived     BeneficiaryStatus = "archived"
)

func (s BeneficiaryStatus) Domain() Domain { return DomainBeneficiaryProfile }
func (s BeneficiaryStatus) String() string { return string(s) }

// statusParsers maps a domain to the constructor of its concrete status type
var statusParsers = map[Domain]func(string) Status{
	DomainClearance:          func(raw string) Status { return ClearanceStatus(raw) },
	DomainSubdivision:        func(raw string) Status { return SubdivisionStatus(raw) },
	DomainBuildingReview:     func(raw string) Status { return BuildingReviewStatus(raw) },
	DomainHousingBeneficiary: func(raw string) Status { return HousingStatus(raw) },
	DomainBeneficiaryProfile: func(raw string) Status { return BeneficiaryStatus(raw) },
}
