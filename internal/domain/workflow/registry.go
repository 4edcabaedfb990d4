package workflow

import (
	"fmt"
	"sync"
)

// Registry holds one graph per domain
type Registry struct {
	graphs map[Domain]*Graph
}

// NewRegistry builds a registry from graphs, rejecting duplicate domains
func NewRegistry(graphs ...*Graph) (*Registry, error) {
	r := &Registry{graphs: make(map[Domain]*Graph, len(graphs))}
	for _, g := range graphs {
		if _, exists := r.graphs[g.Domain()]; exists {
			return nil, NewConfigurationError(g.Domain().String(), "graph registered twice")
		}
		r.graphs[g.Domain()] = g
	}
	return r, nil
}

var (
	defaultRegistry     *Registry
	defaultRegistryOnce sync.Once
)

// DefaultRegistry returns the fixed per-domain transition tables.
// The tables are static, so a build failure is a programming error.
func DefaultRegistry() *Registry {
	defaultRegistryOnce.Do(func() {
		graphs := make([]*Graph, 0, len(graphDefinitions))
		for _, define := range graphDefinitions {
			g, err := define().Build()
			if err != nil {
				panic(fmt.Sprintf("invalid built-in status graph: %v", err))
			}
			graphs = append(graphs, g)
		}
		r, err := NewRegistry(graphs...)
		if err != nil {
			panic(fmt.Sprintf("invalid built-in status graph: %v", err))
		}
		defaultRegistry = r
	})
	return defaultRegistry
}

// Graph returns the graph for a domain
func (r *Registry) Graph(domain Domain) (*Graph, error) {
	g, ok := r.graphs[domain]
	if !ok {
		return nil, NewConfigurationError(domain.String(), "no status graph for domain")
	}
	return g, nil
}

// Validate checks a raw status change against the domain's graph
func (r *Registry) Validate(domain Domain, from, to string) error {
	g, err := r.Graph(domain)
	if err != nil {
		return err
	}
	return g.Validate(from, to)
}

// ParseStatus converts a raw value into the domain's concrete status type
func (r *Registry) ParseStatus(domain Domain, raw string) (Status, error) {
	g, err := r.Graph(domain)
	if err != nil {
		return nil, err
	}
	if !g.Has(raw) {
		return nil, NewConfigurationError(domain.String(), "unknown status %q", raw)
	}
	parse, ok := statusParsers[domain]
	if !ok {
		return nil, NewConfigurationError(domain.String(), "no status type for domain")
	}
	return parse(raw), nil
}
