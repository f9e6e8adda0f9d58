package source

import (
	"context"

	"sigs.k8s.io/controller-runtime/pkg/client"

	chandler "github.com/fabriziopandini/goofy-runtime/pkg/runtime/handler"
	cpredicate "github.com/fabriziopandini/goofy-runtime/pkg/runtime/predicate"
)

// Source is a source of events (e.g. Create, Update, Delete operations on resources)
// which should be processed by event.EventHandlers to enqueue reconcile.Requests.
type Source[T client.Object] interface {
	// Start is internal and should be called only by the Controller to register an EventHandler with the Informer
	// to enqueue reconcile.Requests.
	Start(context.Context, chandler.EventHandler[T], chandler.Queue, ...cpredicate.Predicate[T]) error
}
