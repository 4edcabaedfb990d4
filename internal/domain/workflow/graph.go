package workflow

// Graph is the immutable transition table of one domain
type Graph struct {
	domain        Domain
	start         string
	nodes         []string
	edges         map[string][]string
	inactive      map[string]bool
	approvalBound map[string]bool
	denial        map[string]bool
	waitlisted    map[string]bool
}

// Domain returns the domain the graph belongs to
func (g *Graph) Domain() Domain {
	return g.domain
}

// Start returns the status new applications begin in
func (g *Graph) Start() string {
	return g.start
}

// Statuses returns every node in declaration order
func (g *Graph) Statuses() []string {
	return append([]string{}, g.nodes...)
}

// Has reports whether status is a node of the graph
func (g *Graph) Has(status string) bool {
	_, ok := g.edges[status]
	return ok
}

// Next returns the legal next statuses of from
func (g *Graph) Next(from string) ([]string, error) {
	next, ok := g.edges[from]
	if !ok {
		return nil, NewConfigurationError(g.domain.String(), "unknown status %q", from)
	}
	return append([]string{}, next...), nil
}

// IsTerminal reports whether status has no outgoing edges
func (g *Graph) IsTerminal(status string) bool {
	next, ok := g.edges[status]
	return ok && len(next) == 0
}

// IsInactive reports whether status no longer counts as a live application
func (g *Graph) IsInactive(status string) bool {
	return g.inactive[status]
}

// IsApprovalBound reports whether entering status requires a ready application
func (g *Graph) IsApprovalBound(status string) bool {
	return g.approvalBound[status]
}

// IsDenial reports whether status is a refusal that records a denial reason
func (g *Graph) IsDenial(status string) bool {
	return g.denial[status]
}

// HoldsWaitlistPlace reports whether an eligible application in status keeps
// an active waitlist entry
func (g *Graph) HoldsWaitlistPlace(status string) bool {
	return g.waitlisted[status]
}

// Terminals returns the statuses with no outgoing edges
func (g *Graph) Terminals() []string {
	var out []string
	for _, node := range g.nodes {
		if len(g.edges[node]) == 0 {
			out = append(out, node)
		}
	}
	return out
}

// Validate checks a single status change. It is pure and total over the graph:
// every known status either accepts the change or reports why not. An unknown
// target is an invalid transition like any other; an unknown current status
// means stored data and graph disagree, which is a configuration error.
func (g *Graph) Validate(from, to string) error {
	next, ok := g.edges[from]
	if !ok {
		return NewConfigurationError(g.domain.String(), "unknown status %q", from)
	}

	for _, candidate := range next {
		if candidate == to {
			return nil
		}
	}

	return &InvalidTransitionError{
		Domain:   g.domain,
		From:     from,
		To:       to,
		Allowed:  append([]string{}, next...),
		Terminal: len(next) == 0,
	}
}
