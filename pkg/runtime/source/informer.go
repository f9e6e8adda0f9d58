package source

import (
	"context"
	"fmt"
	"sync"

	toolscache "k8s.io/client-go/tools/cache"
	"sigs.k8s.io/controller-runtime/pkg/client"

	ccache "github.com/fabriziopandini/goofy-runtime/pkg/runtime/cache"
)

// SharedInformer is the subset of a client-go SharedIndexInformer used by SharedInformerSubscription.
type SharedInformer interface {
	AddEventHandler(handler toolscache.ResourceEventHandler) (toolscache.ResourceEventHandlerRegistration, error)
	Run(stopCh <-chan struct{})
	HasSynced() bool
}

var _ ccache.Subscription[client.Object] = &SharedInformerSubscription[client.Object]{}

// SharedInformerSubscription adapts a client-go SharedInformer to a cache.Subscription.
// Objects of a type other than T are ignored.
type SharedInformerSubscription[T client.Object] struct {
	informer SharedInformer

	lock          sync.Mutex
	registrations []toolscache.ResourceEventHandlerRegistration
}

func NewInformer[T client.Object](informer SharedInformer) (*SharedInformerSubscription[T], error) {
	if informer == nil {
		return nil, fmt.Errorf("informer cannot be nil")
	}
	return &SharedInformerSubscription[T]{informer: informer}, nil
}

func (i *SharedInformerSubscription[T]) AddEventHandler(handler ccache.EventHandler[T]) error {
	if handler == nil {
		return fmt.Errorf("event handler cannot be nil")
	}
	registration, err := i.informer.AddEventHandler(toolscache.ResourceEventHandlerFuncs{
		AddFunc: func(obj interface{}) {
			if o, ok := obj.(T); ok {
				handler.OnAdd(o)
			}
		},
		UpdateFunc: func(oldObj, newObj interface{}) {
			o, ok := oldObj.(T)
			if !ok {
				return
			}
			n, ok := newObj.(T)
			if !ok {
				return
			}
			handler.OnUpdate(o, n)
		},
		DeleteFunc: func(obj interface{}) {
			// The final state of objects deleted while the watch was disconnected might be unknown.
			if tombstone, ok := obj.(toolscache.DeletedFinalStateUnknown); ok {
				obj = tombstone.Obj
			}
			if o, ok := obj.(T); ok {
				handler.OnDelete(o)
			}
		},
	})
	if err != nil {
		return err
	}
	if registration == nil {
		return fmt.Errorf("informer returned a nil handler registration")
	}

	i.lock.Lock()
	defer i.lock.Unlock()
	i.registrations = append(i.registrations, registration)
	return nil
}

func (i *SharedInformerSubscription[T]) Run(ctx context.Context) {
	i.informer.Run(ctx.Done())
}

// HasSynced returns true once the informer is synced and every handler received the initial list.
// Informers feed handlers asynchronously, so a synced informer alone does not imply the latter.
func (i *SharedInformerSubscription[T]) HasSynced() bool {
	if !i.informer.HasSynced() {
		return false
	}

	i.lock.Lock()
	defer i.lock.Unlock()
	for _, r := range i.registrations {
		if !r.HasSynced() {
			return false
		}
	}
	return true
}
