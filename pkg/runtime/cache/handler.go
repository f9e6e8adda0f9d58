package cache

import (
	"context"

	"sigs.k8s.io/controller-runtime/pkg/client"
)

// EventHandler is notified about changes delivered by a Subscription.
type EventHandler[T client.Object] interface {
	OnAdd(obj T)
	OnUpdate(oldObj, newObj T)
	OnDelete(obj T)
}

// Subscription is a live subscription to the notification stream of an external event source.
type Subscription[T client.Object] interface {
	// AddEventHandler registers a handler; it is valid to add handlers while the subscription is running.
	AddEventHandler(handler EventHandler[T]) error

	// Run delivers notifications to the registered handlers until ctx is done.
	Run(ctx context.Context)

	// HasSynced returns true once the initial list of objects has been delivered.
	HasSynced() bool
}

var _ EventHandler[client.Object] = EventHandlerFuncs[client.Object]{}

// EventHandlerFuncs is an adapter implementing EventHandler with functions; nil functions are ignored.
type EventHandlerFuncs[T client.Object] struct {
	AddFunc    func(obj T)
	UpdateFunc func(oldObj, newObj T)
	DeleteFunc func(obj T)
}

func (f EventHandlerFuncs[T]) OnAdd(obj T) {
	if f.AddFunc != nil {
		f.AddFunc(obj)
	}
}

func (f EventHandlerFuncs[T]) OnUpdate(oldObj, newObj T) {
	if f.UpdateFunc != nil {
		f.UpdateFunc(oldObj, newObj)
	}
}

func (f EventHandlerFuncs[T]) OnDelete(obj T) {
	if f.DeleteFunc != nil {
		f.DeleteFunc(obj)
	}
}
