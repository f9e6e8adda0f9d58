package cache

import (
	"context"
	"fmt"
	"iter"
	"sync"
	"time"

	"github.com/pkg/errors"
	"k8s.io/apimachinery/pkg/util/wait"
	ctrl "sigs.k8s.io/controller-runtime"
	"sigs.k8s.io/controller-runtime/pkg/client"

	"github.com/fabriziopandini/goofy-runtime/pkg/runtime/event"
	"github.com/fabriziopandini/goofy-runtime/pkg/runtime/metrics"
	"github.com/fabriziopandini/goofy-runtime/pkg/runtime/resource"
)

const defaultSyncTimeout = 2 * time.Minute

var errStoppedDuringSync = errors.New("cache stopped during sync")

// Options are the arguments for creating a new Informer.
type Options struct {
	// Name identifies the cache in logs, errors and metrics.
	Name string

	// SyncTimeout is how long Start waits for the initial synchronization. Defaults to 2 minutes.
	SyncTimeout time.Duration
}

// SubscriptionFunc returns a new Subscription every time the Informer is started.
type SubscriptionFunc[T client.Object] func() (Subscription[T], error)

type informerState int

const (
	stateStopped informerState = iota
	stateStarting
	stateRunning
)

// Informer is a Cache bound to the lifecycle of a Subscription to an external event source.
type Informer[T client.Object] struct {
	name            string
	syncTimeout     time.Duration
	newSubscription SubscriptionFunc[T]

	lock         sync.RWMutex
	state        informerState
	handlers     []EventHandler[T]
	store        *Store[T]
	subscription Subscription[T]
	cancel       context.CancelFunc
	done         chan struct{}
}

func NewInformer[T client.Object](newSubscription SubscriptionFunc[T], options Options) (*Informer[T], error) {
	if newSubscription == nil {
		return nil, fmt.Errorf("subscription func cannot be nil")
	}
	if options.Name == "" {
		options.Name = fmt.Sprintf("%T", *new(T))
	}
	if options.SyncTimeout <= 0 {
		options.SyncTimeout = defaultSyncTimeout
	}
	return &Informer[T]{
		name:            options.Name,
		syncTimeout:     options.SyncTimeout,
		newSubscription: newSubscription,
	}, nil
}

func (i *Informer[T]) Name() string {
	return i.name
}

// Start subscribes to the event source, attaches the registered handlers and blocks until the
// initial synchronization is completed. The subscription stops when ctx is done or Stop is called.
func (i *Informer[T]) Start(ctx context.Context) error {
	if ctx == nil {
		return fmt.Errorf("context cannot be nil")
	}

	log := ctrl.LoggerFrom(ctx).WithValues("cache", i.name)
	ctx = ctrl.LoggerInto(ctx, log)

	i.lock.Lock()
	if i.state != stateStopped {
		i.lock.Unlock()
		return &LifecycleError{Cache: i.name, Reason: ReasonAlreadyStarted}
	}

	log.Info("Starting cache")
	subscription, err := i.newSubscription()
	if err != nil {
		i.lock.Unlock()
		return errors.Wrapf(err, "failed to subscribe cache %q", i.name)
	}

	// The store is updated before any other handler is notified, so handlers always observe
	// the cache state including the change they are notified about.
	store := NewStore[T]()
	if err := subscription.AddEventHandler(&storeWriter[T]{cache: i.name, store: store}); err != nil {
		i.lock.Unlock()
		return errors.Wrapf(err, "failed to add cache handler to %q", i.name)
	}
	for _, h := range i.handlers {
		if err := subscription.AddEventHandler(h); err != nil {
			i.lock.Unlock()
			return errors.Wrapf(err, "failed to add event handler to %q", i.name)
		}
	}

	runCtx, cancel := context.WithCancel(ctx)
	done := make(chan struct{})
	go func() {
		defer close(done)
		subscription.Run(runCtx)
	}()

	i.state = stateStarting
	i.store = store
	i.subscription = subscription
	i.cancel = cancel
	i.done = done
	i.lock.Unlock()

	if err := wait.PollUntilContextTimeout(ctx, 50*time.Millisecond, i.syncTimeout, true, func(context.Context) (bool, error) {
		if !i.isCurrent(done) {
			return false, errStoppedDuringSync
		}
		return subscription.HasSynced(), nil
	}); err != nil {
		if i.isCurrent(done) {
			i.Stop()
		}
		return &LifecycleError{Cache: i.name, Reason: ReasonSyncFailed, Err: err}
	}

	i.lock.Lock()
	defer i.lock.Unlock()
	if i.done != done {
		return &LifecycleError{Cache: i.name, Reason: ReasonSyncFailed, Err: errStoppedDuringSync}
	}
	i.state = stateRunning
	log.Info("Cache successfully started!", "objects", store.Len())
	return nil
}

// Stop tears down the subscription and releases the cache content. It is safe to call Stop
// more than once and from a goroutine other than the one calling Start.
func (i *Informer[T]) Stop() {
	i.lock.Lock()
	cancel, done := i.cancel, i.done
	i.state = stateStopped
	i.store = nil
	i.subscription = nil
	i.cancel = nil
	i.done = nil
	i.lock.Unlock()

	if cancel == nil {
		return
	}
	cancel()
	<-done
}

// HasSynced returns true if the cache is started and synced.
func (i *Informer[T]) HasSynced() bool {
	i.lock.RLock()
	defer i.lock.RUnlock()
	return i.state == stateRunning
}

// AddEventHandler registers a handler invoked for every notification. If the cache is running,
// the handler is attached to the live subscription immediately.
func (i *Informer[T]) AddEventHandler(handler EventHandler[T]) error {
	if handler == nil {
		return fmt.Errorf("event handler cannot be nil")
	}

	i.lock.Lock()
	i.handlers = append(i.handlers, handler)
	subscription := i.subscription
	i.lock.Unlock()

	// The handler is attached outside the lock, because subscriptions might replay the known objects
	// to the new handler synchronously, and the handler might read from this cache.
	if subscription != nil {
		return subscription.AddEventHandler(handler)
	}
	return nil
}

func (i *Informer[T]) Get(id resource.ID) (T, bool, error) {
	store, err := i.runningStore()
	if err != nil {
		var zero T
		return zero, false, err
	}
	obj, ok := store.Get(id)
	return obj, ok, nil
}

func (i *Informer[T]) Contains(id resource.ID) (bool, error) {
	store, err := i.runningStore()
	if err != nil {
		return false, err
	}
	return store.Contains(id), nil
}

func (i *Informer[T]) Keys() (iter.Seq[resource.ID], error) {
	store, err := i.runningStore()
	if err != nil {
		return nil, err
	}
	return store.Keys(), nil
}

// List returns the cached objects, optionally filtered by namespace or labels.
func (i *Informer[T]) List(opts ...client.ListOption) (iter.Seq[T], error) {
	return i.ListMatching(nil, opts...)
}

// ListMatching returns the cached objects accepted by match and by the list options.
func (i *Informer[T]) ListMatching(match func(T) bool, opts ...client.ListOption) (iter.Seq[T], error) {
	store, err := i.runningStore()
	if err != nil {
		return nil, err
	}
	return store.ListMatching(match, opts...), nil
}

// isCurrent returns true if done belongs to the subscription currently attached to the cache.
func (i *Informer[T]) isCurrent(done chan struct{}) bool {
	i.lock.RLock()
	defer i.lock.RUnlock()
	return i.done == done
}

func (i *Informer[T]) runningStore() (*Store[T], error) {
	i.lock.RLock()
	defer i.lock.RUnlock()

	if i.state != stateRunning {
		return nil, &LifecycleError{Cache: i.name, Reason: ReasonNotStarted}
	}
	return i.store, nil
}

var _ EventHandler[client.Object] = &storeWriter[client.Object]{}

// storeWriter applies notifications to a Store; it is the only writer of the Store.
type storeWriter[T client.Object] struct {
	cache string
	store *Store[T]
}

func (w *storeWriter[T]) OnAdd(obj T) {
	w.store.Put(resource.FromObject(obj), obj)
	metrics.CacheNotifications.WithLabelValues(w.cache, string(event.Add)).Inc()
}

func (w *storeWriter[T]) OnUpdate(_, newObj T) {
	w.store.Put(resource.FromObject(newObj), newObj)
	metrics.CacheNotifications.WithLabelValues(w.cache, string(event.Update)).Inc()
}

func (w *storeWriter[T]) OnDelete(obj T) {
	w.store.Remove(resource.FromObject(obj))
	metrics.CacheNotifications.WithLabelValues(w.cache, string(event.Delete)).Inc()
}
