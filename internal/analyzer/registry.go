package analyzer

import (
	"fmt"

	"go-trustshield/pkg/models"
)

// Registry holds one analyzer per kind
type Registry struct {
	analyzers map[models.Kind]*Analyzer
}

func NewRegistry(analyzers ...*Analyzer) (*Registry, error) {
	r := &Registry{analyzers: make(map[models.Kind]*Analyzer, len(analyzers))}
	for _, a := range analyzers {
		if _, dup := r.analyzers[a.Kind()]; dup {
			return nil, fmt.Errorf("duplicate analyzer for kind %s", a.Kind())
		}
		r.analyzers[a.Kind()] = a
	}
	return r, nil
}

// Get returns the analyzer of kind
func (r *Registry) Get(kind models.Kind) (*Analyzer, bool) {
	a, ok := r.analyzers[kind]
	return a, ok
}

// All returns the registered analyzers in display order
func (r *Registry) All() []*Analyzer {
	out := make([]*Analyzer, 0, len(r.analyzers))
	for _, kind := range models.Kinds {
		if a, ok := r.analyzers[kind]; ok {
			out = append(out, a)
		}
	}
	return out
}
