package predicate

import (
	"sigs.k8s.io/controller-runtime/pkg/client"

	cevent "github.com/fabriziopandini/goofy-runtime/pkg/runtime/event"
)

// Predicate filters events before enqueuing the keys.
type Predicate[T client.Object] interface {
	// Create returns true if the Create event should be processed
	Create(cevent.CreateEvent[T]) bool

	// Delete returns true if the Delete event should be processed
	Delete(cevent.DeleteEvent[T]) bool

	// Update returns true if the Update event should be processed
	Update(cevent.UpdateEvent[T]) bool
}

var _ Predicate[client.Object] = Funcs[client.Object]{}

// Funcs is a function that implements Predicate; nil functions accept every event.
type Funcs[T client.Object] struct {
	CreateFunc func(cevent.CreateEvent[T]) bool
	DeleteFunc func(cevent.DeleteEvent[T]) bool
	UpdateFunc func(cevent.UpdateEvent[T]) bool
}

func (p Funcs[T]) Create(e cevent.CreateEvent[T]) bool {
	if p.CreateFunc != nil {
		return p.CreateFunc(e)
	}
	return true
}

func (p Funcs[T]) Delete(e cevent.DeleteEvent[T]) bool {
	if p.DeleteFunc != nil {
		return p.DeleteFunc(e)
	}
	return true
}

func (p Funcs[T]) Update(e cevent.UpdateEvent[T]) bool {
	if p.UpdateFunc != nil {
		return p.UpdateFunc(e)
	}
	return true
}

// GenerationChanged skips update events where metadata.generation did not change, e.g. status only changes.
func GenerationChanged[T client.Object]() Predicate[T] {
	return Funcs[T]{
		UpdateFunc: func(e cevent.UpdateEvent[T]) bool {
			return e.ObjectOld.GetGeneration() != e.ObjectNew.GetGeneration()
		},
	}
}

// SpecChanged skips update events of objects tracking metadata.generation when the generation did not
// change, e.g. status only changes. Objects not tracking the generation always have generation 0, and
// all their updates are accepted.
func SpecChanged[T client.Object]() Predicate[T] {
	return Funcs[T]{
		UpdateFunc: func(e cevent.UpdateEvent[T]) bool {
			if e.ObjectNew.GetGeneration() == 0 {
				return true
			}
			return e.ObjectOld.GetGeneration() != e.ObjectNew.GetGeneration()
		},
	}
}

// Not inverts p.
func Not[T client.Object](p Predicate[T]) Predicate[T] {
	return Funcs[T]{
		CreateFunc: func(e cevent.CreateEvent[T]) bool { return !p.Create(e) },
		DeleteFunc: func(e cevent.DeleteEvent[T]) bool { return !p.Delete(e) },
		UpdateFunc: func(e cevent.UpdateEvent[T]) bool { return !p.Update(e) },
	}
}

// And accepts an event only if all the predicates accept it.
func And[T client.Object](predicates ...Predicate[T]) Predicate[T] {
	return Funcs[T]{
		CreateFunc: func(e cevent.CreateEvent[T]) bool {
			for _, p := range predicates {
				if !p.Create(e) {
					return false
				}
			}
			return true
		},
		DeleteFunc: func(e cevent.DeleteEvent[T]) bool {
			for _, p := range predicates {
				if !p.Delete(e) {
					return false
				}
			}
			return true
		},
		UpdateFunc: func(e cevent.UpdateEvent[T]) bool {
			for _, p := range predicates {
				if !p.Update(e) {
					return false
				}
			}
			return true
		},
	}
}

// Or accepts an event if at least one of the predicates accepts it.
func Or[T client.Object](predicates ...Predicate[T]) Predicate[T] {
	return Funcs[T]{
		CreateFunc: func(e cevent.CreateEvent[T]) bool {
			for _, p := range predicates {
				if p.Create(e) {
					return true
				}
			}
			return false
		},
		DeleteFunc: func(e cevent.DeleteEvent[T]) bool {
			for _, p := range predicates {
				if p.Delete(e) {
					return true
				}
			}
			return false
		},
		UpdateFunc: func(e cevent.UpdateEvent[T]) bool {
			for _, p := range predicates {
				if p.Update(e) {
					return true
				}
			}
			return false
		},
	}
}
