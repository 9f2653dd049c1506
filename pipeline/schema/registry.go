package schema

import (
	"sync"

	"github.com/gear6io/wwi-etl/pkg/errors"
)

// Registry holds table specs in registration order
type Registry struct {
	mu    sync.RWMutex
	specs []TableSpec
	index map[string]int
}

func NewRegistry() *Registry {
	return &Registry{index: make(map[string]int)}
}

// Register validates and stores a copy of spec
func (r *Registry) Register(spec TableSpec) error {
	if err := spec.Validate(); err != nil {
		return err
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	if _, exists := r.index[spec.Name]; exists {
		return errors.Newf(SchemaDuplicateTable, "table %q already registered", spec.Name).AddContext("table", spec.Name)
	}
	r.index[spec.Name] = len(r.specs)
	r.specs = append(r.specs, spec.Clone())
	return nil
}

// MustRegister panics on error; for static declarations only
func (r *Registry) MustRegister(specs ...TableSpec) *Registry {
	for _, s := range specs {
		if err := r.Register(s); err != nil {
			panic(err)
		}
	}
	return r
}

// Lookup returns a copy of the named spec, or a pipeline.unknown_table error
func (r *Registry) Lookup(name string) (TableSpec, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	i, ok := r.index[name]
	if !ok {
		return TableSpec{}, errors.Newf(errors.PipelineUnknownTable, "table %q is not registered", name).AddContext("table", name)
	}
	return r.specs[i].Clone(), nil
}

// Specs returns copies of all specs in registration order
func (r *Registry) Specs() []TableSpec {
	r.mu.RLock()
	defer r.mu.RUnlock()

	out := make([]TableSpec, len(r.specs))
	for i, s := range r.specs {
		out[i] = s.Clone()
	}
	return out
}

func (r *Registry) Names() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()

	names := make([]string, len(r.specs))
	for i, s := range r.specs {
		names[i] = s.Name
	}
	return names
}

func (r *Registry) Len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.specs)
}

// NewDefaultRegistry registers the built-in tables around the given
// dimension specs: sales, purchasing, generic dimensions, then the bespoke
// dimension tables.
func NewDefaultRegistry(dimensions []TableSpec) (*Registry, error) {
	r := NewRegistry()
	sales, purchasing, bespoke := builtinSales(), builtinPurchasing(), builtinDimensions()

	for _, group := range [][]TableSpec{sales, purchasing, dimensions, bespoke} {
		for _, s := range group {
			if err := r.Register(s); err != nil {
				return nil, err
			}
		}
	}
	return r, nil
}
