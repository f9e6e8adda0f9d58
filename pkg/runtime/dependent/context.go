package dependent

import (
	"fmt"
	"reflect"
	"sync"

	"k8s.io/apimachinery/pkg/types"
)

// Context is scoped to one reconciliation. It is safe for concurrent use by the dependents
// reconciled within that reconciliation, and it must not be reused for another one.
type Context struct {
	id       types.UID
	registry *Registry

	lock       sync.RWMutex
	attributes map[string]any
	results    map[DependentResource]ReconcileResult
}

// ID uniquely identifies the reconciliation, e.g. in logs.
func (c *Context) ID() types.UID {
	return c.id
}

// Get returns the attribute stored under key, if it exists and it is of type V.
func Get[V any](c *Context, key string) (V, bool) {
	c.lock.RLock()
	defer c.lock.RUnlock()

	v, ok := c.attributes[key].(V)
	return v, ok
}

// GetMandatory is like Get, but it fails with a ConfigurationError if the attribute
// does not exist or it is not of type V.
func GetMandatory[V any](c *Context, key string) (V, error) {
	v, ok := Get[V](c, key)
	if !ok {
		return v, &ConfigurationError{Message: fmt.Sprintf("mandatory attribute %q of type %s is missing", key, reflect.TypeFor[V]())}
	}
	return v, nil
}

// Put stores value under key and returns the previous value, if any.
// A nil value removes the attribute.
func (c *Context) Put(key string, value any) (any, bool) {
	c.lock.Lock()
	defer c.lock.Unlock()

	previous, existed := c.attributes[key]
	if isNil(value) {
		delete(c.attributes, key)
		return previous, existed
	}
	c.attributes[key] = value
	return previous, existed
}

// GetDependentResource returns the registered dependent of type D. D is usually a pointer
// to the dependent implementation; if D is an interface, every dependent implementing it matches.
func GetDependentResource[D DependentResource](c *Context) (D, error) {
	var zero D
	t := reflect.TypeFor[D]()
	matches := c.registry.lookup(t)
	switch len(matches) {
	case 0:
		return zero, &NotFoundError{Type: t}
	case 1:
		return matches[0].(D), nil
	default:
		return zero, &AmbiguousMatchError{Type: t, Matches: len(matches)}
	}
}

// ReconcileResult returns the result of the last reconciliation of dr, if any.
func (c *Context) ReconcileResult(dr DependentResource) (ReconcileResult, bool) {
	c.lock.RLock()
	defer c.lock.RUnlock()

	r, ok := c.results[dr]
	return r, ok
}

// SetReconcileResult records the result of the reconciliation of dr. It is called by the
// Workflow once per dependent per reconciliation.
func (c *Context) SetReconcileResult(dr DependentResource, result ReconcileResult) {
	c.lock.Lock()
	defer c.lock.Unlock()

	c.results[dr] = result
}

func isNil(v any) bool {
	if v == nil {
		return true
	}
	rv := reflect.ValueOf(v)
	switch rv.Kind() {
	case reflect.Pointer, reflect.Map, reflect.Slice, reflect.Interface, reflect.Func, reflect.Chan:
		return rv.IsNil()
	}
	return false
}
