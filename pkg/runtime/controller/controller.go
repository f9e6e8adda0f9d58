package controller

import (
	"context"
	"fmt"
	"slices"
	"sync"
	"sync/atomic"
	"time"

	"k8s.io/apimachinery/pkg/util/wait"
	"k8s.io/client-go/util/workqueue"
	ctrl "sigs.k8s.io/controller-runtime"
	"sigs.k8s.io/controller-runtime/pkg/client"

	"github.com/fabriziopandini/goofy-runtime/pkg/runtime/dependent"
	chandler "github.com/fabriziopandini/goofy-runtime/pkg/runtime/handler"
	"github.com/fabriziopandini/goofy-runtime/pkg/runtime/metrics"
	cpredicate "github.com/fabriziopandini/goofy-runtime/pkg/runtime/predicate"
	creconcile "github.com/fabriziopandini/goofy-runtime/pkg/runtime/reconcile"
	"github.com/fabriziopandini/goofy-runtime/pkg/runtime/resource"
	"github.com/fabriziopandini/goofy-runtime/pkg/runtime/retry"
	csource "github.com/fabriziopandini/goofy-runtime/pkg/runtime/source"
)

// Reader is the part of a cache a Controller reads objects from.
type Reader[T client.Object] interface {
	Get(id resource.ID) (T, bool, error)
}

// Options are the arguments for creating a new Controller.
type Options[T client.Object] struct {
	Concurrency int
	Reconciler  creconcile.Reconciler[T]

	// Cache is where reconciled objects are read from.
	Cache Reader[T]

	// Dependents are reconciled before the Reconciler, in dependency order.
	Dependents []dependent.DependentResource

	// DependentConcurrency limits the dependents reconciled at the same time; 0 means no limit.
	DependentConcurrency int

	// Retry defaults to retry.Default().
	Retry *retry.Policy

	// StatusWriter writes the error status returned by a reconcile.ErrorStatusHandler.
	// It is required if the Reconciler implements reconcile.ErrorStatusHandler.
	StatusWriter client.SubResourceWriter
}

type Controller[T client.Object] interface {
	Name() string
	Watch(src csource.Source[T], evthdler chandler.EventHandler[T], prct ...cpredicate.Predicate[T]) error
	Start(ctx context.Context) error
}

func New[T client.Object](name string, options Options[T]) (Controller[T], error) {
	if name == "" {
		return nil, fmt.Errorf("name cannot be empty")
	}

	if options.Reconciler == nil {
		return nil, fmt.Errorf("reconciler cannot be nil")
	}

	if options.Cache == nil {
		return nil, fmt.Errorf("cache cannot be nil")
	}

	if options.Concurrency < 1 {
		return nil, fmt.Errorf("concurrency cannot be less then 1")
	}

	policy := retry.Default()
	if options.Retry != nil {
		policy = *options.Retry
	}
	if err := policy.Validate(); err != nil {
		return nil, fmt.Errorf("invalid retry policy: %v", err)
	}

	errorStatusHandler, _ := options.Reconciler.(creconcile.ErrorStatusHandler[T])
	if errorStatusHandler != nil && options.StatusWriter == nil {
		return nil, fmt.Errorf("status writer cannot be nil if the reconciler implements ErrorStatusHandler")
	}

	registry, err := dependent.NewRegistry(options.Dependents...)
	if err != nil {
		return nil, fmt.Errorf("invalid dependents: %v", err)
	}

	return &controller[T]{
		name:               name,
		reconciler:         options.Reconciler,
		errorStatusHandler: errorStatusHandler,
		cache:              options.Cache,
		concurrency:        options.Concurrency,
		registry:           registry,
		workflow:           dependent.NewWorkflow(options.DependentConcurrency),
		retry:              policy,
		statusWriter:       options.StatusWriter,
		retries:            map[creconcile.Request]retry.State{},
		written:            map[creconcile.Request]writtenStatus[T]{},
		exhausted:          map[creconcile.Request]exhaustedChain{},
	}, nil
}

type controller[T client.Object] struct {
	name               string
	reconciler         creconcile.Reconciler[T]
	errorStatusHandler creconcile.ErrorStatusHandler[T]
	cache              Reader[T]
	concurrency        int
	registry           *dependent.Registry
	workflow           *dependent.Workflow
	retry              retry.Policy
	statusWriter       client.SubResourceWriter

	queue chandler.Queue

	lock         sync.Mutex
	startWatches []watchDescription[T]
	started      bool

	retriesLock sync.Mutex
	retries     map[creconcile.Request]retry.State
	written     map[creconcile.Request]writtenStatus[T]
	exhausted   map[creconcile.Request]exhaustedChain

	ctx context.Context
}

type watchDescription[T client.Object] struct {
	src        csource.Source[T]
	handler    chandler.EventHandler[T]
	predicates []cpredicate.Predicate[T]
}

func (c *controller[T]) Name() string {
	return c.name
}

func (c *controller[T]) Watch(src csource.Source[T], evthdler chandler.EventHandler[T], prct ...cpredicate.Predicate[T]) error {
	c.lock.Lock()
	defer c.lock.Unlock()

	if !c.started {
		c.startWatches = append(c.startWatches, watchDescription[T]{src: src, handler: evthdler, predicates: prct})
		return nil
	}

	log := ctrl.LoggerFrom(c.ctx)
	log.Info("Starting EventSource", "source", src)
	return src.Start(c.ctx, evthdler, c.queue, prct...)
}

func (c *controller[T]) Start(ctx context.Context) error {
	if ctx == nil {
		return fmt.Errorf("context cannot be nil")
	}

	c.lock.Lock()
	defer c.lock.Unlock()

	if c.started {
		return fmt.Errorf("controller started more than once")
	}

	log := ctrl.LoggerFrom(ctx).WithValues("controller", c.name)
	ctx = ctrl.LoggerInto(ctx, log)
	c.ctx = ctx

	log.Info("Starting controller queue")
	c.queue = workqueue.NewTypedRateLimitingQueueWithConfig(
		workqueue.DefaultTypedControllerRateLimiter[creconcile.Request](),
		workqueue.TypedRateLimitingQueueConfig[creconcile.Request]{Name: c.name},
	)
	go func() {
		<-ctx.Done()
		c.queue.ShutDown()
	}()

	for _, watch := range c.startWatches {
		log.Info("Starting EventSource", "source", watch.src)
		if err := watch.src.Start(ctx, watch.handler, c.queue, watch.predicates...); err != nil {
			return err
		}
	}

	c.startWatches = nil

	var workers atomic.Int32
	go func() {
		log.Info("Starting reconcile workers", "count", c.concurrency)
		wg := &sync.WaitGroup{}
		wg.Add(c.concurrency)
		for range c.concurrency {
			go func() {
				workers.Add(1)
				defer wg.Done()
				for c.processNextWorkItem(ctx) {
				}
			}()
		}

		<-ctx.Done()
		log.Info("Shutdown signal received, waiting for all workers to finish")
		wg.Wait()
		log.Info("All workers finished")
	}()

	if err := wait.PollUntilContextTimeout(ctx, 50*time.Millisecond, 5*time.Second, true, func(context.Context) (bool, error) {
		return int(workers.Load()) >= c.concurrency, nil
	}); err != nil {
		return fmt.Errorf("failed to start reconcile workers: %v", err)
	}
	c.started = true
	return nil
}

func (c *controller[T]) processNextWorkItem(ctx context.Context) bool {
	req, shutdown := c.queue.Get()
	if shutdown {
		return false
	}

	defer c.queue.Done(req)

	c.reconcileHandler(ctx, req)
	return true
}

func (c *controller[T]) reconcileHandler(ctx context.Context, req creconcile.Request) {
	log := ctrl.LoggerFrom(ctx).WithValues("resource", req.String())
	ctx = ctrl.LoggerInto(ctx, log)

	obj, ok, err := c.cache.Get(req.ID)
	if err != nil {
		log.Error(err, "Failed to read the object from the cache")
		c.queue.AddRateLimited(req)
		return
	}
	if !ok {
		// The object was deleted; a new retry chain starts if it shows up again.
		c.clearRetryState(req)
		c.clearExhausted(req)
		c.queue.Forget(req)
		return
	}
	if c.isExhausted(req, obj) {
		log.V(4).Info("Skipping reconcile, no more retries until the object changes")
		c.queue.Forget(req)
		return
	}
	cachedVersion := obj.GetResourceVersion()
	obj = c.latest(req, obj)
	original := obj.DeepCopyObject().(T)

	rc := c.registry.NewContext()
	log = log.WithValues("reconcileID", rc.ID())
	ctx = ctrl.LoggerInto(ctx, log)

	result, err := c.reconcile(ctx, obj, rc)
	if err != nil {
		c.handleFailure(ctx, req, cachedVersion, original, err)
		return
	}

	c.clearRetryState(req)
	switch {
	case result.RequeueAfter > 0:
		metrics.ReconcileTotal.WithLabelValues(c.name, metrics.ResultRequeue).Inc()
		c.queue.Forget(req)
		c.queue.AddAfter(req, result.RequeueAfter)
	case result.Requeue: //nolint:staticcheck
		metrics.ReconcileTotal.WithLabelValues(c.name, metrics.ResultRequeue).Inc()
		c.queue.AddRateLimited(req)
	default:
		metrics.ReconcileTotal.WithLabelValues(c.name, metrics.ResultSuccess).Inc()
		c.queue.Forget(req)
	}
}

// reconcile reconciles the dependents, then the object.
func (c *controller[T]) reconcile(ctx context.Context, obj T, rc *dependent.Context) (creconcile.Result, error) {
	if err := c.workflow.Reconcile(ctx, obj, rc); err != nil {
		return creconcile.Result{}, err
	}
	return c.reconciler.Reconcile(ctx, obj, rc)
}

func (c *controller[T]) handleFailure(ctx context.Context, req creconcile.Request, cachedVersion string, original T, reconcileErr error) {
	log := ctrl.LoggerFrom(ctx)
	metrics.ReconcileTotal.WithLabelValues(c.name, metrics.ResultError).Inc()

	state := c.retryState(req)
	noRetry := false
	if c.errorStatusHandler != nil {
		info := creconcile.RetryInfo{Attempt: state.Attempt, LastAttempt: c.retry.IsLastAttempt(state)}
		update := c.errorStatusHandler.UpdateErrorStatus(ctx, original.DeepCopyObject().(T), info, reconcileErr)
		if obj, ok := update.Resource(); ok {
			if err := c.patchStatus(ctx, req, cachedVersion, original, obj); err != nil {
				log.Error(err, "Failed to update the error status")
			}
		}
		noRetry = update.NoRetry()
	}

	if noRetry {
		log.Error(reconcileErr, "Reconciler error, retry disabled by the error status handler", "attempt", state.Attempt)
		c.markExhausted(req, original, cachedVersion)
		c.clearRetryState(req)
		c.queue.Forget(req)
		return
	}

	if !c.retry.ShouldRetry(state) {
		exhausted := &retry.ExhaustedError{Resource: req.String(), Attempts: state.Attempt + 1, LastError: reconcileErr}
		log.Error(exhausted, "Reconciler error, no more retries")
		metrics.ReconcileRetryExhausted.WithLabelValues(c.name).Inc()
		c.markExhausted(req, original, cachedVersion)
		c.clearRetryState(req)
		c.queue.Forget(req)
		return
	}

	delay := c.retry.NextDelay(state)
	c.setRetryState(req, c.retry.OnFailure(state, reconcileErr))
	log.Error(reconcileErr, "Reconciler error, scheduling retry", "attempt", state.Attempt, "after", delay)
	metrics.ReconcileRetries.WithLabelValues(c.name).Inc()
	c.queue.AddAfter(req, delay)
}

func (c *controller[T]) retryState(req creconcile.Request) retry.State {
	c.retriesLock.Lock()
	defer c.retriesLock.Unlock()

	if s, ok := c.retries[req]; ok {
		return s
	}
	return c.retry.Start()
}

func (c *controller[T]) setRetryState(req creconcile.Request, s retry.State) {
	c.retriesLock.Lock()
	defer c.retriesLock.Unlock()

	c.retries[req] = s
}

func (c *controller[T]) clearRetryState(req creconcile.Request) {
	c.retriesLock.Lock()
	defer c.retriesLock.Unlock()

	delete(c.retries, req)
	delete(c.written, req)
}

// latest returns the last status written for req if the cache has not observed it yet, obj otherwise.
func (c *controller[T]) latest(req creconcile.Request, obj T) T {
	c.retriesLock.Lock()
	defer c.retriesLock.Unlock()

	w, ok := c.written[req]
	if !ok || w.cachedVersion != obj.GetResourceVersion() {
		return obj
	}
	return w.obj.DeepCopyObject().(T)
}

func (c *controller[T]) recordStatus(req creconcile.Request, cachedVersion string, obj T) {
	c.retriesLock.Lock()
	defer c.retriesLock.Unlock()

	versions := append(slices.Clone(c.written[req].versions), obj.GetResourceVersion())
	c.written[req] = writtenStatus[T]{cachedVersion: cachedVersion, obj: obj.DeepCopyObject().(T), versions: versions}
}

// exhaustedChain marks a request whose retry chain is over; it is kept until the object changes.
// Objects tracking the generation change when the generation does; other objects change when their
// resource version is not one of versions, which includes the versions written by the controller.
type exhaustedChain struct {
	generation int64
	versions   []string
}

func (c *controller[T]) markExhausted(req creconcile.Request, obj T, cachedVersion string) {
	c.retriesLock.Lock()
	defer c.retriesLock.Unlock()

	versions := append([]string{cachedVersion}, c.written[req].versions...)
	c.exhausted[req] = exhaustedChain{generation: obj.GetGeneration(), versions: versions}
}

// isExhausted returns true if the retry chain of req is over and obj did not change since;
// otherwise a new retry chain can start.
func (c *controller[T]) isExhausted(req creconcile.Request, obj T) bool {
	c.retriesLock.Lock()
	defer c.retriesLock.Unlock()

	e, ok := c.exhausted[req]
	if !ok {
		return false
	}
	if obj.GetGeneration() != 0 {
		if obj.GetGeneration() == e.generation {
			return true
		}
	} else if slices.Contains(e.versions, obj.GetResourceVersion()) {
		return true
	}
	delete(c.exhausted, req)
	return false
}

func (c *controller[T]) clearExhausted(req creconcile.Request) {
	c.retriesLock.Lock()
	defer c.retriesLock.Unlock()

	delete(c.exhausted, req)
}
