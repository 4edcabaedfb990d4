package workflow

import "fmt"

// GraphBuilder declares the nodes and edges of one domain's status graph
type GraphBuilder interface {
	// Start sets the status every new application begins in
	Start(status Status) GraphBuilder

	// Configure returns the edge configuration for the given status, declaring the node
	Configure(status Status) StatusConfiguration

	// Inactive marks statuses that no longer count as live applications
	Inactive(statuses ...Status) GraphBuilder

	// ApprovalBound marks statuses that may only be entered once an application is ready
	ApprovalBound(statuses ...Status) GraphBuilder

	// Denial marks refusal statuses; entering one records the remarks as the denial reason
	Denial(statuses ...Status) GraphBuilder

	// Waitlisted marks statuses in which an eligible application holds a waitlist place
	Waitlisted(statuses ...Status) GraphBuilder

	// Build validates the declaration and returns an immutable graph
	Build() (*Graph, error)
}

// StatusConfiguration configures outgoing edges for a specific status
type StatusConfiguration interface {
	// Permit allows a transition to each target status, declaring it as a node
	Permit(to ...Status) StatusConfiguration
}

type statusConfig struct {
	builder *graphBuilder
	from    string
}

type graphBuilder struct {
	domain        Domain
	start         string
	order         []string
	edges         map[string][]string
	inactive      map[string]bool
	approvalBound map[string]bool
	denial        map[string]bool
	waitlisted    map[string]bool
	errs          []error
}

// NewBuilder creates a graph builder for a domain
func NewBuilder(domain Domain) GraphBuilder {
	return &graphBuilder{
		domain:        domain,
		edges:         make(map[string][]string),
		inactive:      make(map[string]bool),
		approvalBound: make(map[string]bool),
		denial:        make(map[string]bool),
		waitlisted:    make(map[string]bool),
	}
}

func (b *graphBuilder) Start(status Status) GraphBuilder {
	if b.declare(status) {
		b.start = status.String()
	}
	return b
}

func (b *graphBuilder) Configure(status Status) StatusConfiguration {
	b.declare(status)
	return &statusConfig{builder: b, from: status.String()}
}

func (b *graphBuilder) Inactive(statuses ...Status) GraphBuilder {
	for _, s := range statuses {
		if b.declare(s) {
			b.inactive[s.String()] = true
		}
	}
	return b
}

func (b *graphBuilder) ApprovalBound(statuses ...Status) GraphBuilder {
	for _, s := range statuses {
		if b.declare(s) {
			b.approvalBound[s.String()] = true
		}
	}
	return b
}

func (b *graphBuilder) Denial(statuses ...Status) GraphBuilder {
	b.mark(b.denial, statuses)
	return b
}

func (b *graphBuilder) Waitlisted(statuses ...Status) GraphBuilder {
	b.mark(b.waitlisted, statuses)
	return b
}

func (b *graphBuilder) mark(set map[string]bool, statuses []Status) {
	for _, s := range statuses {
		if b.declare(s) {
			set[s.String()] = true
		}
	}
}

func (b *graphBuilder) Build() (*Graph, error) {
	if len(b.errs) > 0 {
		return nil, b.errs[0]
	}
	if b.start == "" {
		return nil, NewConfigurationError(b.domain.String(), "graph has no start status")
	}

	// Deep copy so the graph never shares state with the builder
	edges := make(map[string][]string, len(b.order))
	for _, node := range b.order {
		edges[node] = append([]string{}, b.edges[node]...)
	}

	terminal := 0
	for _, node := range b.order {
		if len(edges[node]) == 0 {
			terminal++
		}
	}
	if terminal == 0 {
		return nil, NewConfigurationError(b.domain.String(), "graph has no terminal status")
	}
	for status := range b.waitlisted {
		if b.inactive[status] {
			return nil, NewConfigurationError(b.domain.String(), "status %s cannot be both inactive and waitlisted", status)
		}
	}

	return &Graph{
		domain:        b.domain,
		start:         b.start,
		nodes:         append([]string{}, b.order...),
		edges:         edges,
		inactive:      copySet(b.inactive),
		approvalBound: copySet(b.approvalBound),
		denial:        copySet(b.denial),
		waitlisted:    copySet(b.waitlisted),
	}, nil
}

func (c *statusConfig) Permit(to ...Status) StatusConfiguration {
	for _, target := range to {
		if !c.builder.declare(target) {
			continue
		}
		name := target.String()
		if name == c.from {
			c.builder.fail("self transition %s is not allowed", name)
			continue
		}
		for _, existing := range c.builder.edges[c.from] {
			if existing == name {
				c.builder.fail("duplicate edge %s -> %s", c.from, name)
			}
		}
		c.builder.edges[c.from] = append(c.builder.edges[c.from], name)
	}
	return c
}

// declare registers a node, recording an error if it belongs to another domain
func (b *graphBuilder) declare(status Status) bool {
	if status == nil || status.String() == "" {
		b.fail("empty status")
		return false
	}
	if status.Domain() != b.domain {
		b.fail("status %s belongs to domain %s", status, status.Domain())
		return false
	}
	name := status.String()
	if _, exists := b.edges[name]; !exists {
		b.edges[name] = nil
		b.order = append(b.order, name)
	}
	return true
}

func (b *graphBuilder) fail(format string, args ...interface{}) {
	b.errs = append(b.errs, NewConfigurationError(b.domain.String(), "%s", fmt.Sprintf(format, args...)))
}

func copySet(in map[string]bool) map[string]bool {
	out := make(map[string]bool, len(in))
	for k, v := range in {
		out[k] = v
	}
	return out
}
