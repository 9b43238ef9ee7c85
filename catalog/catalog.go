// Package catalog holds the registry of the dataset sources
package catalog

import (
	"fmt"

	"github.com/airbusgeo/geodata-ingester/service"
)

// Registry of the dataset sources, populated once at start
type Registry struct {
	ids     []string
	sources map[string]Source
}

// NewRegistry creates a registry. Sources are listed in the given order.
func NewRegistry(sources ...Source) (*Registry, error) {
	r := &Registry{sources: make(map[string]Source, len(sources))}
	for _, s := range sources {
		if s.ID() == "" {
			return nil, fmt.Errorf("NewRegistry: source without id")
		}
		if _, ok := r.sources[s.ID()]; ok {
			return nil, fmt.Errorf("NewRegistry: duplicate source %s", s.ID())
		}
		r.sources[s.ID()] = s
		r.ids = append(r.ids, s.ID())
	}
	return r, nil
}

// Describe returns the source or UnknownSourceError
func (r *Registry) Describe(id string) (Source, error) {
	if s, ok := r.sources[id]; ok {
		return s, nil
	}
	return nil, service.UnknownSourceError{Source: id}
}

// Sources returns the ids of the sources in a stable order
func (r *Registry) Sources() []string {
	return append([]string(nil), r.ids...)
}
