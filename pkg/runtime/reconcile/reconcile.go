package reconcile

import (
	"context"

	"sigs.k8s.io/controller-runtime/pkg/client"
	"sigs.k8s.io/controller-runtime/pkg/reconcile"

	"github.com/fabriziopandini/goofy-runtime/pkg/runtime/dependent"
	"github.com/fabriziopandini/goofy-runtime/pkg/runtime/resource"
)

// Reconciler is provided to Controllers at creation time as the API implementation.
type Reconciler[T client.Object] interface {
	// Reconcile performs a full reconciliation for obj, as read from the cache.
	// The Controller will retry the reconciliation according to its retry policy if the error is non-nil,
	// or requeue it if Result.Requeue or Result.RequeueAfter are set.
	Reconcile(ctx context.Context, obj T, rc *dependent.Context) (Result, error)
}

// Func is a function that implements the Reconciler interface.
type Func[T client.Object] func(ctx context.Context, obj T, rc *dependent.Context) (Result, error)

func (f Func[T]) Reconcile(ctx context.Context, obj T, rc *dependent.Context) (Result, error) {
	return f(ctx, obj, rc)
}

// Request contains the information necessary to reconcile a resource, its Name and Namespace.
type Request struct {
	resource.ID
}

func (r Request) String() string {
	return r.ID.String()
}

// Result contains the result of a Reconciler invocation.
type Result = reconcile.Result
