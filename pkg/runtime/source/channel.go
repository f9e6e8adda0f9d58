package source

import (
	"context"
	"fmt"
	"reflect"
	"sync"
	"sync/atomic"

	"github.com/go-logr/logr"
	ctrl "sigs.k8s.io/controller-runtime"
	"sigs.k8s.io/controller-runtime/pkg/client"

	ccache "github.com/fabriziopandini/goofy-runtime/pkg/runtime/cache"
	cevent "github.com/fabriziopandini/goofy-runtime/pkg/runtime/event"
	"github.com/fabriziopandini/goofy-runtime/pkg/runtime/resource"
)

var _ ccache.Subscription[client.Object] = &Channel[client.Object]{}

// Channel is a Subscription relaying notifications received on a channel.
//
// Run first delivers the initial objects as adds and flags the subscription as synced, then relays
// notifications in order until the channel is closed or the context is done. Handlers added while
// running receive the objects known at that time as adds, before any further notification.
type Channel[T client.Object] struct {
	initial []T
	events  <-chan cevent.Notification[T]

	lock     sync.Mutex
	started  bool
	handlers []ccache.EventHandler[T]
	known    map[resource.ID]T
	synced   atomic.Bool
}

// NewChannel returns a Channel reading from events, seeded with the initial list of objects.
func NewChannel[T client.Object](events <-chan cevent.Notification[T], initial ...T) *Channel[T] {
	return &Channel[T]{
		initial: initial,
		events:  events,
		known:   map[resource.ID]T{},
	}
}

func (c *Channel[T]) AddEventHandler(handler ccache.EventHandler[T]) error {
	if handler == nil {
		return fmt.Errorf("event handler cannot be nil")
	}

	c.lock.Lock()
	defer c.lock.Unlock()

	c.handlers = append(c.handlers, handler)
	if c.started {
		for _, obj := range c.known {
			handler.OnAdd(obj)
		}
	}
	return nil
}

func (c *Channel[T]) HasSynced() bool {
	return c.synced.Load()
}

func (c *Channel[T]) Run(ctx context.Context) {
	c.lock.Lock()
	if c.started {
		c.lock.Unlock()
		return
	}
	c.started = true
	for _, obj := range c.initial {
		c.known[resource.FromObject(obj)] = obj
		for _, h := range c.handlers {
			h.OnAdd(obj)
		}
	}
	c.lock.Unlock()
	c.synced.Store(true)

	log := ctrl.LoggerFrom(ctx)
	if c.events == nil {
		<-ctx.Done()
		return
	}

	for {
		select {
		case <-ctx.Done():
			return
		case n, ok := <-c.events:
			if !ok {
				return
			}
			c.dispatch(log, n)
		}
	}
}

func (c *Channel[T]) dispatch(log logr.Logger, n cevent.Notification[T]) {
	if isNil(n.Object) {
		log.V(4).Info("Dropping notification without object", "type", n.Type)
		return
	}

	c.lock.Lock()
	defer c.lock.Unlock()

	id := resource.FromObject(n.Object)
	switch n.Type {
	case cevent.Add:
		c.known[id] = n.Object
		for _, h := range c.handlers {
			h.OnAdd(n.Object)
		}
	case cevent.Update:
		oldObj := n.OldObject
		if isNil(oldObj) {
			oldObj = c.known[id]
		}
		c.known[id] = n.Object
		for _, h := range c.handlers {
			if isNil(oldObj) {
				h.OnAdd(n.Object)
				continue
			}
			h.OnUpdate(oldObj, n.Object)
		}
	case cevent.Delete:
		delete(c.known, id)
		for _, h := range c.handlers {
			h.OnDelete(n.Object)
		}
	default:
		log.V(4).Info("Dropping notification of unknown type", "type", n.Type, "resource", id.String())
	}
}

func isNil(obj client.Object) bool {
	if obj == nil {
		return true
	}
	v := reflect.ValueOf(obj)
	return v.Kind() == reflect.Pointer && v.IsNil()
}
