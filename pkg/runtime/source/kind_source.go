/*
Copyright 2023 The Kubernetes Authors.

Licensed under the Apache License, Version 2.0 (the "License");
you may not use this file except in compliance with the License.
You may obtain a copy of the License at

    http://www.apache.org/licenses/LICENSE-2.0

Unless required by applicable law or agreed to in writing, software
distributed under the License is distributed on an "AS IS" BASIS,
WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
See the License for the specific language governing permissions and
limitations under the License.
*/

package source

import (
	"context"
	"fmt"

	"sigs.k8s.io/controller-runtime/pkg/client"

	ccache "github.com/fabriziopandini/goofy-runtime/pkg/runtime/cache"
	cevent "github.com/fabriziopandini/goofy-runtime/pkg/runtime/event"
	chandler "github.com/fabriziopandini/goofy-runtime/pkg/runtime/handler"
	cpredicate "github.com/fabriziopandini/goofy-runtime/pkg/runtime/predicate"
)

// Informer is the part of a cache Kind needs to watch it.
type Informer[T client.Object] interface {
	AddEventHandler(handler ccache.EventHandler[T]) error
}

// Kind is used to provide a source of events originating from a cache (e.g. Resource Create).
type Kind[T client.Object] struct {
	Informer Informer[T]
}

var _ Source[client.Object] = &Kind[client.Object]{}

// Start implement Source.
func (ks *Kind[T]) Start(_ context.Context, handler chandler.EventHandler[T], queue chandler.Queue, prct ...cpredicate.Predicate[T]) error {
	if ks.Informer == nil {
		return fmt.Errorf("must specify Kind.Informer")
	}
	if handler == nil {
		return fmt.Errorf("must specify an event handler")
	}

	return ks.Informer.AddEventHandler(informerEventHandler[T]{Queue: queue, EventHandler: handler, Predicates: prct})
}

func (ks *Kind[T]) String() string {
	return fmt.Sprintf("kind source: %T", *new(T))
}

var _ ccache.EventHandler[client.Object] = informerEventHandler[client.Object]{}

// informerEventHandler handle events originated by a source.
type informerEventHandler[T client.Object] struct {
	EventHandler chandler.EventHandler[T]
	Queue        chandler.Queue
	Predicates   []cpredicate.Predicate[T]
}

// OnAdd creates CreateEvent and calls Create on EventHandler.
func (e informerEventHandler[T]) OnAdd(obj T) {
	c := cevent.CreateEvent[T]{
		Object: obj,
	}
	for _, p := range e.Predicates {
		if !p.Create(c) {
			return
		}
	}
	e.EventHandler.Create(c, e.Queue)
}

// OnUpdate creates UpdateEvent and calls Update on EventHandler.
func (e informerEventHandler[T]) OnUpdate(oldObj, newObj T) {
	u := cevent.UpdateEvent[T]{
		ObjectOld: oldObj,
		ObjectNew: newObj,
	}
	for _, p := range e.Predicates {
		if !p.Update(u) {
			return
		}
	}
	e.EventHandler.Update(u, e.Queue)
}

// OnDelete creates DeleteEvent and calls Delete on EventHandler.
func (e informerEventHandler[T]) OnDelete(obj T) {
	d := cevent.DeleteEvent[T]{
		Object: obj,
	}
	for _, p := range e.Predicates {
		if !p.Delete(d) {
			return
		}
	}
	e.EventHandler.Delete(d, e.Queue)
}
