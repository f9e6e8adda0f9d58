package dependent

import (
	"fmt"
	"reflect"
	"slices"

	"github.com/google/uuid"
	"k8s.io/apimachinery/pkg/types"
)

// Registry holds the dependent resources of a controller, indexed by concrete type.
type Registry struct {
	dependents []DependentResource
	byType     map[reflect.Type][]DependentResource
	dependsOn  map[DependentResource][]DependentResource
}

// NewRegistry returns a Registry for the given dependents.
// Dependents are ordered so each one follows the dependents it depends on, otherwise preserving
// the given order; dependencies must be registered too, and must not be cyclic.
func NewRegistry(dependents ...DependentResource) (*Registry, error) {
	r := &Registry{
		byType:    map[reflect.Type][]DependentResource{},
		dependsOn: map[DependentResource][]DependentResource{},
	}

	registered := map[DependentResource]bool{}
	for i, dr := range dependents {
		if dr == nil {
			return nil, &ConfigurationError{Message: fmt.Sprintf("dependent resource #%d is nil", i)}
		}
		v := reflect.ValueOf(dr)
		if v.Kind() != reflect.Pointer || v.IsNil() {
			return nil, &ConfigurationError{Message: fmt.Sprintf("dependent resource %T must be a non nil pointer", dr)}
		}
		if registered[dr] {
			return nil, &ConfigurationError{Message: fmt.Sprintf("dependent resource %T registered more than once", dr)}
		}
		registered[dr] = true
		r.byType[v.Type()] = append(r.byType[v.Type()], dr)
	}

	for _, dr := range dependents {
		d, ok := dr.(DependsOn)
		if !ok {
			continue
		}
		for _, dep := range d.DependsOn() {
			if dep == nil || reflect.ValueOf(dep).Kind() != reflect.Pointer || !registered[dep] {
				return nil, &ConfigurationError{Message: fmt.Sprintf("dependent resource %T depends on %T, which is not registered", dr, dep)}
			}
			r.dependsOn[dr] = append(r.dependsOn[dr], dep)
		}
	}

	sorted, err := r.sort(dependents)
	if err != nil {
		return nil, err
	}
	r.dependents = sorted
	return r, nil
}

// sort returns dependents in dependency order.
func (r *Registry) sort(dependents []DependentResource) ([]DependentResource, error) {
	sorted := make([]DependentResource, 0, len(dependents))
	done := map[DependentResource]bool{}
	for len(sorted) < len(dependents) {
		progress := false
		for _, dr := range dependents {
			if done[dr] {
				continue
			}
			ready := true
			for _, dep := range r.dependsOn[dr] {
				if !done[dep] {
					ready = false
					break
				}
			}
			if ready {
				sorted = append(sorted, dr)
				done[dr] = true
				progress = true
			}
		}
		if !progress {
			return nil, &ConfigurationError{Message: "dependent resources have cyclic dependencies"}
		}
	}
	return sorted, nil
}

// All returns the registered dependents, each one following the dependents it depends on.
func (r *Registry) All() []DependentResource {
	return slices.Clone(r.dependents)
}

// DependenciesOf returns the dependents dr depends on.
func (r *Registry) DependenciesOf(dr DependentResource) []DependentResource {
	return slices.Clone(r.dependsOn[dr])
}

func (r *Registry) lookup(t reflect.Type) []DependentResource {
	if t.Kind() != reflect.Interface {
		return r.byType[t]
	}
	var matches []DependentResource
	for _, dr := range r.dependents {
		if reflect.TypeOf(dr).Implements(t) {
			matches = append(matches, dr)
		}
	}
	return matches
}

// NewContext returns a new Context for one reconciliation.
func (r *Registry) NewContext() *Context {
	return &Context{
		id:         types.UID(uuid.NewString()),
		registry:   r,
		attributes: map[string]any{},
		results:    map[DependentResource]ReconcileResult{},
	}
}
