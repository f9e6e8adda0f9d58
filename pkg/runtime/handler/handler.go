package handler

import (
	"k8s.io/client-go/util/workqueue"
	"sigs.k8s.io/controller-runtime/pkg/client"

	cevent "github.com/fabriziopandini/goofy-runtime/pkg/runtime/event"
	creconcile "github.com/fabriziopandini/goofy-runtime/pkg/runtime/reconcile"
)

// Queue is the workqueue EventHandlers add requests to.
type Queue = workqueue.TypedRateLimitingInterface[creconcile.Request]

type EventHandler[T client.Object] interface {
	Create(cevent.CreateEvent[T], Queue)
	Update(cevent.UpdateEvent[T], Queue)
	Delete(cevent.DeleteEvent[T], Queue)
}
