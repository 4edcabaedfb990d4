package workflow

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDefaultRegistry_TransitionTotality(t *testing.T) {
	registry := DefaultRegistry()

	domains := append(ApplicationDomains(), DomainBeneficiaryProfile)
	for _, domain := range domains {
		g, err := registry.Graph(domain)
		require.NoError(t, err, "domain %s", domain)

		for _, from := range g.Statuses() {
			for _, to := range g.Statuses() {
				err := g.Validate(from, to)
				if err == nil {
					continue
				}

				var invalid *InvalidTransitionError
				require.True(t, errors.As(err, &invalid), "%s %s->%s: unexpected error %v", domain, from, to, err)
				if !invalid.Terminal {
					assert.NotEmpty(t, invalid.Allowed, "%s %s->%s: rejection without legal next states", domain, from, to)
				}
			}
		}
	}
}

func TestDefaultRegistry_TerminalClosure(t *testing.T) {
	registry := DefaultRegistry()

	for _, domain := range ApplicationDomains() {
		g, err := registry.Graph(domain)
		require.NoError(t, err)

		terminals := g.Terminals()
		require.NotEmpty(t, terminals, "domain %s has no terminal status", domain)

		for _, terminal := range terminals {
			for _, to := range g.Statuses() {
				err := g.Validate(terminal, to)
				assert.ErrorIs(t, err, ErrInvalidTransition, "%s: %s -> %s must fail", domain, terminal, to)
			}
		}
	}
}

func TestClearanceGraph_Edges(t *testing.T) {
	g, err := DefaultRegistry().Graph(DomainClearance)
	require.NoError(t, err)

	tests := []struct {
		from string
		want []string
	}{
		{"pending", []string{"under_review", "denied"}},
		{"under_review", []string{"for_inspection", "denied", "pending"}},
		{"for_inspection", []string{"approved", "denied"}},
		{"approved", []string{}},
		{"denied", []string{}},
	}

	for _, tt := range tests {
		t.Run(tt.from, func(t *testing.T) {
			next, err := g.Next(tt.from)
			require.NoError(t, err)
			assert.ElementsMatch(t, tt.want, next)
		})
	}

	assert.Equal(t, "pending", g.Start())
	assert.True(t, g.IsInactive("denied"))
	assert.False(t, g.IsInactive("approved"))
	assert.True(t, g.IsApprovalBound("approved"))
}

func TestGraph_Validate(t *testing.T) {
	g, err := DefaultRegistry().Graph(DomainClearance)
	require.NoError(t, err)

	t.Run("legal edge", func(t *testing.T) {
		assert.NoError(t, g.Validate("for_inspection", "approved"))
	})

	t.Run("illegal edge lists legal next states", func(t *testing.T) {
		err := g.Validate("pending", "approved")

		var invalid *InvalidTransitionError
		require.ErrorAs(t, err, &invalid)
		assert.Equal(t, DomainClearance, invalid.Domain)
		assert.Equal(t, []string{"under_review", "denied"}, invalid.Allowed)
		assert.False(t, invalid.Terminal)
		assert.Contains(t, err.Error(), "allowed: under_review, denied")
	})

	t.Run("self transition rejected", func(t *testing.T) {
		err := g.Validate("under_review", "under_review")
		assert.ErrorIs(t, err, ErrInvalidTransition)
	})

	t.Run("terminal re-entry rejected", func(t *testing.T) {
		err := g.Validate("approved", "approved")

		var invalid *InvalidTransitionError
		require.ErrorAs(t, err, &invalid)
		assert.True(t, invalid.Terminal)
		assert.Empty(t, invalid.Allowed)
		assert.Contains(t, err.Error(), "terminal")
	})

	t.Run("unknown target lists legal next states", func(t *testing.T) {
		err := g.Validate("under_review", "aproved")

		var invalid *InvalidTransitionError
		require.ErrorAs(t, err, &invalid)
		assert.Equal(t, "aproved", invalid.To)
		assert.Equal(t, []string{"for_inspection", "denied", "pending"}, invalid.Allowed)
		assert.NotErrorIs(t, err, ErrConfiguration)
	})

	t.Run("unknown target from a terminal status", func(t *testing.T) {
		err := g.Validate("approved", "aproved")

		var invalid *InvalidTransitionError
		require.ErrorAs(t, err, &invalid)
		assert.True(t, invalid.Terminal)
	})

	t.Run("unknown current status is a configuration error", func(t *testing.T) {
		err := g.Validate("archived", "pending")
		assert.ErrorIs(t, err, ErrConfiguration)
		assert.NotErrorIs(t, err, ErrInvalidTransition)
	})
}

func TestGraph_DenialAndWaitlistMarks(t *testing.T) {
	registry := DefaultRegistry()

	clearance, err := registry.Graph(DomainClearance)
	require.NoError(t, err)
	assert.True(t, clearance.IsDenial("denied"))
	assert.False(t, clearance.IsDenial("approved"))
	assert.False(t, clearance.HoldsWaitlistPlace("approved"))

	housing, err := registry.Graph(DomainHousingBeneficiary)
	require.NoError(t, err)
	assert.True(t, housing.IsDenial("rejected"))
	assert.False(t, housing.IsDenial("withdrawn"))
	assert.True(t, housing.HoldsWaitlistPlace("verified"))
	assert.True(t, housing.HoldsWaitlistPlace("approved"))
	assert.False(t, housing.HoldsWaitlistPlace("pending"))

	building, err := registry.Graph(DomainBuildingReview)
	require.NoError(t, err)
	assert.True(t, building.IsDenial("rejected"))
}

func TestBuilder_RejectsInactiveWaitlistedStatus(t *testing.T) {
	b := NewBuilder(DomainHousingBeneficiary).Start(HousingPending)
	b.Configure(HousingPending).Permit(HousingRejected)
	b.Configure(HousingRejected)
	b.Inactive(HousingRejected).Waitlisted(HousingRejected)

	_, err := b.Build()
	assert.ErrorIs(t, err, ErrConfiguration)
}

func TestRegistry_ValidateClearanceScenario(t *testing.T) {
	registry := DefaultRegistry()

	require.NoError(t, registry.Validate(DomainClearance, "for_inspection", "approved"))

	err := registry.Validate(DomainClearance, "approved", "approved")
	assert.ErrorIs(t, err, ErrInvalidTransition)
}

func TestRegistry_UnknownDomain(t *testing.T) {
	err := DefaultRegistry().Validate(Domain("permits"), "pending", "approved")
	assert.ErrorIs(t, err, ErrConfiguration)
}

func TestRegistry_ParseStatus(t *testing.T) {
	registry := DefaultRegistry()

	s, err := registry.ParseStatus(DomainHousingBeneficiary, "verified")
	require.NoError(t, err)
	assert.Equal(t, HousingVerified, s)
	assert.Equal(t, DomainHousingBeneficiary, s.Domain())

	// building review has no "verified" status
	_, err = registry.ParseStatus(DomainBuildingReview, "verified")
	assert.ErrorIs(t, err, ErrConfiguration)
}

func TestBuilder_RejectsCrossDomainStatus(t *testing.T) {
	b := NewBuilder(DomainClearance).Start(ClearancePending)
	b.Configure(ClearancePending).Permit(HousingApproved)

	_, err := b.Build()
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrConfiguration)
	assert.Contains(t, err.Error(), "belongs to domain housing_beneficiary")
}

func TestBuilder_RequiresStart(t *testing.T) {
	b := NewBuilder(DomainClearance)
	b.Configure(ClearancePending).Permit(ClearanceApproved)

	_, err := b.Build()
	assert.ErrorIs(t, err, ErrConfiguration)
}

func TestBuilder_RejectsSelfAndDuplicateEdges(t *testing.T) {
	t.Run("self edge", func(t *testing.T) {
		b := NewBuilder(DomainClearance).Start(ClearancePending)
		b.Configure(ClearancePending).Permit(ClearancePending)
		_, err := b.Build()
		assert.ErrorIs(t, err, ErrConfiguration)
	})

	t.Run("duplicate edge", func(t *testing.T) {
		b := NewBuilder(DomainClearance).Start(ClearancePending)
		b.Configure(ClearancePending).Permit(ClearanceDenied, ClearanceDenied)
		_, err := b.Build()
		assert.ErrorIs(t, err, ErrConfiguration)
	})
}

func TestBuilder_GraphIsImmutable(t *testing.T) {
	b := NewBuilder(DomainClearance).Start(ClearancePending)
	b.Configure(ClearancePending).Permit(ClearanceDenied)

	g, err := b.Build()
	require.NoError(t, err)

	// Mutating the builder after Build must not affect the graph
	b.Configure(ClearancePending).Permit(ClearanceApproved)

	next, err := g.Next("pending")
	require.NoError(t, err)
	assert.Equal(t, []string{"denied"}, next)

	// Nor may callers mutate the graph through returned slices
	next[0] = "approved"
	again, _ := g.Next("pending")
	assert.Equal(t, []string{"denied"}, again)
}

func TestNewRegistry_RejectsDuplicateDomain(t *testing.T) {
	g1, err := clearanceGraph().Build()
	require.NoError(t, err)
	g2, err := clearanceGraph().Build()
	require.NoError(t, err)

	_, err = NewRegistry(g1, g2)
	assert.ErrorIs(t, err, ErrConfiguration)
}
