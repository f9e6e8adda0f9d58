package builder

import (
	"sigs.k8s.io/controller-runtime/pkg/client"

	cpredicate "github.com/fabriziopandini/goofy-runtime/pkg/runtime/predicate"
)

// ForOption is some configuration that modifies options for a For request.
type ForOption[T client.Object] interface {
	// ApplyToFor applies this configuration to the given for input.
	ApplyToFor(*ForInput[T])
}

// WatchesOption is some configuration that modifies options for a watches request.
type WatchesOption[T client.Object] interface {
	// ApplyToWatches applies this configuration to the given watches options.
	ApplyToWatches(*WatchesInput[T])
}

// WithPredicates sets the given predicates list.
func WithPredicates[T client.Object](predicates ...cpredicate.Predicate[T]) Predicates[T] {
	return Predicates[T]{
		predicates: predicates,
	}
}

// Predicates filters events before enqueuing the keys.
type Predicates[T client.Object] struct {
	predicates []cpredicate.Predicate[T]
}

// ApplyToFor applies this configuration to the given ForInput options.
func (w Predicates[T]) ApplyToFor(opts *ForInput[T]) {
	opts.predicates = w.predicates
}

// ApplyToWatches applies this configuration to the given WatchesInput options.
func (w Predicates[T]) ApplyToWatches(opts *WatchesInput[T]) {
	opts.predicates = w.predicates
}

var _ ForOption[client.Object] = &Predicates[client.Object]{}
var _ WatchesOption[client.Object] = &Predicates[client.Object]{}

// WithAllUpdates disables the default filter of For, which skips the updates not changing the
// generation of the reconciled objects, e.g. the status updates written by the controller.
func WithAllUpdates[T client.Object]() AllUpdates[T] {
	return AllUpdates[T]{}
}

// AllUpdates enqueues the reconciled objects on every update.
type AllUpdates[T client.Object] struct{}

// ApplyToFor applies this configuration to the given ForInput options.
func (w AllUpdates[T]) ApplyToFor(opts *ForInput[T]) {
	opts.allUpdates = true
}

var _ ForOption[client.Object] = AllUpdates[client.Object]{}
