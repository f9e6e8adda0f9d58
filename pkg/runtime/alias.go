package runtime

import (
	"sigs.k8s.io/controller-runtime/pkg/client"

	cbuilder "github.com/fabriziopandini/goofy-runtime/pkg/runtime/builder"
	ccache "github.com/fabriziopandini/goofy-runtime/pkg/runtime/cache"
	cevent "github.com/fabriziopandini/goofy-runtime/pkg/runtime/event"
	cmanager "github.com/fabriziopandini/goofy-runtime/pkg/runtime/manager"
	csource "github.com/fabriziopandini/goofy-runtime/pkg/runtime/source"
)

type Object client.Object

type Manager cmanager.Manager

var (
	NewManager = cmanager.New
)

func NewControllerManagedBy[T client.Object](m Manager) *cbuilder.Builder[T] {
	return cbuilder.ControllerManagedBy[T](m)
}

// NewChannelCache returns a cache fed by events, seeded with the initial objects. A cache fed by
// a channel can be started only once, because the notifications consumed by a subscription are lost.
func NewChannelCache[T client.Object](name string, events <-chan cevent.Notification[T], initial ...T) (*ccache.Informer[T], error) {
	return ccache.NewInformer(func() (ccache.Subscription[T], error) {
		return csource.NewChannel(events, initial...), nil
	}, ccache.Options{Name: name})
}

// NewInformerCache returns a cache fed by a client-go informer. newInformer is called every time the
// cache is started, because client-go informers cannot be restarted.
func NewInformerCache[T client.Object](name string, newInformer func() csource.SharedInformer) (*ccache.Informer[T], error) {
	return ccache.NewInformer(func() (ccache.Subscription[T], error) {
		informer, err := csource.NewInformer[T](newInformer())
		if err != nil {
			return nil, err
		}
		return informer, nil
	}, ccache.Options{Name: name})
}
