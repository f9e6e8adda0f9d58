package cache

import (
	"cmp"
	"iter"
	"slices"
	"sync"

	"k8s.io/apimachinery/pkg/labels"
	"sigs.k8s.io/controller-runtime/pkg/client"

	"github.com/fabriziopandini/goofy-runtime/pkg/runtime/resource"
)

// Store keeps the last known state of a set of objects, keyed by resource.ID.
// Objects are deep copied on the way in and on the way out, so callers never share
// memory with the Store.
type Store[T client.Object] struct {
	lock    sync.RWMutex
	objects map[resource.ID]T
}

func NewStore[T client.Object]() *Store[T] {
	return &Store[T]{
		objects: map[resource.ID]T{},
	}
}

func (s *Store[T]) Get(id resource.ID) (T, bool) {
	s.lock.RLock()
	defer s.lock.RUnlock()

	obj, ok := s.objects[id]
	if !ok {
		var zero T
		return zero, false
	}
	return deepCopy(obj), true
}

func (s *Store[T]) Contains(id resource.ID) bool {
	s.lock.RLock()
	defer s.lock.RUnlock()

	_, ok := s.objects[id]
	return ok
}

func (s *Store[T]) Len() int {
	s.lock.RLock()
	defer s.lock.RUnlock()

	return len(s.objects)
}

// Put stores a copy of obj under id, replacing any existing object.
func (s *Store[T]) Put(id resource.ID, obj T) {
	obj = deepCopy(obj)

	s.lock.Lock()
	defer s.lock.Unlock()

	s.objects[id] = obj
}

// Remove deletes the object stored under id, returning it if it existed.
func (s *Store[T]) Remove(id resource.ID) (T, bool) {
	s.lock.Lock()
	defer s.lock.Unlock()

	obj, ok := s.objects[id]
	if !ok {
		var zero T
		return zero, false
	}
	delete(s.objects, id)
	return deepCopy(obj), true
}

// Keys returns the IDs in the store at call time, sorted by namespace and name.
func (s *Store[T]) Keys() iter.Seq[resource.ID] {
	s.lock.RLock()
	keys := make([]resource.ID, 0, len(s.objects))
	for id := range s.objects {
		keys = append(keys, id)
	}
	s.lock.RUnlock()

	slices.SortFunc(keys, compareIDs)
	return slices.Values(keys)
}

// List returns the objects in the store at call time matching the given options.
// Only namespace and label selector options are considered.
func (s *Store[T]) List(opts ...client.ListOption) iter.Seq[T] {
	return s.ListMatching(nil, opts...)
}

// ListMatching is like List, but it additionally filters objects with match; a nil match accepts all the objects.
// The returned sequence iterates over a snapshot, so it can be iterated more than once and it is not
// affected by changes to the store; each iteration yields new copies of the objects.
func (s *Store[T]) ListMatching(match func(T) bool, opts ...client.ListOption) iter.Seq[T] {
	listOpts := client.ListOptions{}
	listOpts.ApplyOptions(opts)

	var selector labels.Selector
	if listOpts.LabelSelector != nil && !listOpts.LabelSelector.Empty() {
		selector = listOpts.LabelSelector
	}

	type entry struct {
		id  resource.ID
		obj T
	}

	s.lock.RLock()
	snapshot := make([]entry, 0, len(s.objects))
	for id, obj := range s.objects {
		if listOpts.Namespace != "" && id.Namespace != listOpts.Namespace {
			continue
		}
		if selector != nil && !selector.Matches(labels.Set(obj.GetLabels())) {
			continue
		}
		snapshot = append(snapshot, entry{id: id, obj: obj})
	}
	s.lock.RUnlock()

	// Objects in the store are replaced, never mutated, so the snapshot can be read without holding the lock.
	slices.SortFunc(snapshot, func(a, b entry) int { return compareIDs(a.id, b.id) })
	return func(yield func(T) bool) {
		for _, e := range snapshot {
			obj := deepCopy(e.obj)
			if match != nil && !match(obj) {
				continue
			}
			if !yield(obj) {
				return
			}
		}
	}
}

func compareIDs(a, b resource.ID) int {
	return cmp.Or(cmp.Compare(a.Namespace, b.Namespace), cmp.Compare(a.Name, b.Name))
}

func deepCopy[T client.Object](obj T) T {
	return obj.DeepCopyObject().(T)
}
