package workflow

// graphDefinitions declares the fixed transition table of every domain
var graphDefinitions = []func() GraphBuilder{
	clearanceGraph,
	subdivisionGraph,
	buildingReviewGraph,
	housingGraph,
	beneficiaryGraph,
}

func clearanceGraph() GraphBuilder {
	b := NewBuilder(DomainClearance).Start(ClearancePending)

	// Returning to pending means more documents were requested
	b.Configure(ClearancePending).
		Permit(ClearanceUnderReview, ClearanceDenied)
	b.Configure(ClearanceUnderReview).
		Permit(ClearanceForInspection, ClearanceDenied, ClearancePending)
	b.Configure(ClearanceForInspection).
		Permit(ClearanceApproved, ClearanceDenied)

	// APPROVED and DENIED are terminal
	b.Configure(ClearanceApproved)
	b.Configure(ClearanceDenied)

	return b.Inactive(ClearanceDenied).
		Denial(ClearanceDenied).
		ApprovalBound(ClearanceForInspection, ClearanceApproved)
}

func subdivisionGraph() GraphBuilder {
	b := NewBuilder(DomainSubdivision).Start(SubdivisionPending)

	b.Configure(SubdivisionPending).
		Permit(SubdivisionUnderReview, SubdivisionWithdrawn, SubdivisionDenied)
	b.Configure(SubdivisionUnderReview).
		Permit(SubdivisionTechnicalEvaluation, SubdivisionPending, SubdivisionDenied)
	b.Configure(SubdivisionTechnicalEvaluation).
		Permit(SubdivisionApproved, SubdivisionDenied)

	b.Configure(SubdivisionApproved)
	b.Configure(SubdivisionDenied)
	b.Configure(SubdivisionWithdrawn)

	return b.Inactive(SubdivisionDenied, SubdivisionWithdrawn).
		Denial(SubdivisionDenied).
		ApprovalBound(SubdivisionTechnicalEvaluation, SubdivisionApproved)
}

func buildingReviewGraph() GraphBuilder {
	b := NewBuilder(DomainBuildingReview).Start(BuildingSubmitted)

	b.Configure(BuildingSubmitted).
		Permit(BuildingPlanReview, BuildingWithdrawn, BuildingRejected)
	b.Configure(BuildingPlanReview).
		Permit(BuildingForRevision, BuildingForInspection, BuildingRejected)
	b.Configure(BuildingForRevision).
		Permit(BuildingPlanReview, BuildingWithdrawn)
	b.Configure(BuildingForInspection).
		Permit(BuildingApproved, BuildingRejected)

	b.Configure(BuildingApproved)
	b.Configure(BuildingRejected)
	b.Configure(BuildingWithdrawn)

	return b.Inactive(BuildingRejected, BuildingWithdrawn).
		Denial(BuildingRejected).
		ApprovalBound(BuildingForInspection, BuildingApproved)
}

func housingGraph() GraphBuilder {
	b := NewBuilder(DomainHousingBeneficiary).Start(HousingPending)

	b.Configure(HousingPending).
		Permit(HousingUnderReview, HousingRejected, HousingWithdrawn)
	b.Configure(HousingUnderReview).
		Permit(HousingVerified, HousingPending, HousingRejected)
	b.Configure(HousingVerified).
		Permit(HousingApproved, HousingRejected)

	b.Configure(HousingApproved)
	b.Configure(HousingRejected)
	b.Configure(HousingWithdrawn)

	return b.Inactive(HousingRejected, HousingWithdrawn).
		Denial(HousingRejected).
		ApprovalBound(HousingVerified, HousingApproved).
		Waitlisted(HousingVerified, HousingApproved)
}

func beneficiaryGraph() GraphBuilder {
	b := NewBuilder(DomainBeneficiaryProfile).Start(BeneficiaryApplicant)

	b.Configure(BeneficiaryApplicant).
		Permit(BeneficiaryQualified, BeneficiaryDisqualified, BeneficiaryArchived)
	b.Configure(BeneficiaryQualified).
		Permit(BeneficiaryWaitlisted, BeneficiaryDisqualified, BeneficiaryArchived)
	// Back to qualified when the application leaves the waitlist without a disqualification
	b.Configure(BeneficiaryWaitlisted).
		Permit(BeneficiaryAwarded, BeneficiaryQualified, BeneficiaryDisqualified, BeneficiaryArchived)
	b.Configure(BeneficiaryDisqualified).
		Permit(BeneficiaryQualified, BeneficiaryArchived)
	b.Configure(BeneficiaryAwarded).
		Permit(BeneficiaryArchived)

	b.Configure(BeneficiaryArchived)

	return b.Inactive(BeneficiaryDisqualified, BeneficiaryArchived).
		Denial(BeneficiaryDisqualified)
}
