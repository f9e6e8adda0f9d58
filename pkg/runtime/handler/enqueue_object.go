package handler

import (
	"sigs.k8s.io/controller-runtime/pkg/client"

	cevent "github.com/fabriziopandini/goofy-runtime/pkg/runtime/event"
	creconcile "github.com/fabriziopandini/goofy-runtime/pkg/runtime/reconcile"
	"github.com/fabriziopandini/goofy-runtime/pkg/runtime/resource"
)

var _ EventHandler[client.Object] = &EnqueueRequestForObject[client.Object]{}

// EnqueueRequestForObject enqueues a Request with the Name and Namespace of the object that is the source of the Event.
type EnqueueRequestForObject[T client.Object] struct{}

func (e *EnqueueRequestForObject[T]) Create(evt cevent.CreateEvent[T], q Queue) {
	q.Add(creconcile.Request{ID: resource.FromObject(evt.Object)})
}

func (e *EnqueueRequestForObject[T]) Update(evt cevent.UpdateEvent[T], q Queue) {
	newID := resource.FromObject(evt.ObjectNew)
	q.Add(creconcile.Request{ID: newID})

	// Objects are keyed by namespace and name, so this happens only with hand crafted events.
	if oldID := resource.FromObject(evt.ObjectOld); oldID != newID {
		q.Add(creconcile.Request{ID: oldID})
	}
}

func (e *EnqueueRequestForObject[T]) Delete(evt cevent.DeleteEvent[T], q Queue) {
	q.Add(creconcile.Request{ID: resource.FromObject(evt.Object)})
}
