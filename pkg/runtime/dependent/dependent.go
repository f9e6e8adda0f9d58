package dependent

import (
	"context"
	"fmt"

	"sigs.k8s.io/controller-runtime/pkg/client"
)

// DependentResource manages one category of resources owned by the object being reconciled.
// Implementations must be pointer types, because results are tracked by instance identity.
type DependentResource interface {
	Reconcile(ctx context.Context, primary client.Object, rc *Context) (ReconcileResult, error)
}

// DependsOn can be implemented by dependents that must be reconciled after other dependents,
// e.g. because they read their results from the Context.
type DependsOn interface {
	DependsOn() []DependentResource
}

// Operation is the outcome of a dependent resource reconciliation.
type Operation string

const (
	Created   Operation = "Created"
	Updated   Operation = "Updated"
	Unchanged Operation = "Unchanged"
)

// ReconcileResult is the outcome of the last reconciliation of a dependent resource.
type ReconcileResult struct {
	Operation Operation
	Resource  client.Object
}

func (r ReconcileResult) String() string {
	if r.Resource == nil {
		return string(r.Operation)
	}
	return fmt.Sprintf("%s %T %s", r.Operation, r.Resource, client.ObjectKeyFromObject(r.Resource))
}

// ResultResource returns the resource carried by r, if it is of type R.
func ResultResource[R client.Object](r ReconcileResult) (R, bool) {
	res, ok := r.Resource.(R)
	return res, ok
}
