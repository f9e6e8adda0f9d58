package builder

import (
	"fmt"
	"reflect"
	"strings"

	"k8s.io/apimachinery/pkg/runtime/schema"
	"sigs.k8s.io/controller-runtime/pkg/client"
	"sigs.k8s.io/controller-runtime/pkg/client/apiutil"

	ccontroller "github.com/fabriziopandini/goofy-runtime/pkg/runtime/controller"
	"github.com/fabriziopandini/goofy-runtime/pkg/runtime/dependent"
	"github.com/fabriziopandini/goofy-runtime/pkg/runtime/handler"
	cmanager "github.com/fabriziopandini/goofy-runtime/pkg/runtime/manager"
	cpredicate "github.com/fabriziopandini/goofy-runtime/pkg/runtime/predicate"
	creconcile "github.com/fabriziopandini/goofy-runtime/pkg/runtime/reconcile"
	"github.com/fabriziopandini/goofy-runtime/pkg/runtime/retry"
	csource "github.com/fabriziopandini/goofy-runtime/pkg/runtime/source"
)

// Cache is a cache the reconciled objects are read from, e.g. a cache.Informer.
type Cache[T client.Object] interface {
	cmanager.Cache
	csource.Informer[T]
	ccontroller.Reader[T]
}

type Builder[T client.Object] struct {
	forInput         ForInput[T]
	watchesInput     []WatchesInput[T]
	mgr              cmanager.Manager
	globalPredicates []cpredicate.Predicate[T]
	ctrl             ccontroller.Controller[T]
	ctrlOptions      ccontroller.Options[T]
	name             string
}

func ControllerManagedBy[T client.Object](m cmanager.Manager) *Builder[T] {
	return &Builder[T]{mgr: m}
}

type ForInput[T client.Object] struct {
	cache      Cache[T]
	predicates []cpredicate.Predicate[T]
	allUpdates bool
	err        error
}

// For sets the cache objects to reconcile are read from; the cache is added to the Manager.
// Updates not changing the generation of objects are skipped, unless WithAllUpdates is used.
func (blder *Builder[T]) For(cache Cache[T], opts ...ForOption[T]) *Builder[T] {
	if blder.forInput.cache != nil {
		blder.forInput.err = fmt.Errorf("method For(...) should only be called once, could not assign multiple caches for reconciliation")
		return blder
	}
	input := ForInput[T]{cache: cache}
	for _, opt := range opts {
		opt.ApplyToFor(&input)
	}

	blder.forInput = input
	return blder
}

type WatchesInput[T client.Object] struct {
	src          csource.Source[T]
	eventhandler handler.EventHandler[T]
	predicates   []cpredicate.Predicate[T]
}

func (blder *Builder[T]) Watches(src csource.Source[T], eventhandler handler.EventHandler[T], opts ...WatchesOption[T]) *Builder[T] {
	input := WatchesInput[T]{src: src, eventhandler: eventhandler}
	for _, opt := range opts {
		opt.ApplyToWatches(&input)
	}

	blder.watchesInput = append(blder.watchesInput, input)
	return blder
}

func (blder *Builder[T]) WithEventFilter(p cpredicate.Predicate[T]) *Builder[T] {
	blder.globalPredicates = append(blder.globalPredicates, p)
	return blder
}

// WithOptions sets the options of the controller. Only the fields set in options are applied, so
// options set by other methods, e.g. WithRetry, are kept; Dependents are appended.
func (blder *Builder[T]) WithOptions(options ccontroller.Options[T]) *Builder[T] {
	if options.Concurrency > 0 {
		blder.ctrlOptions.Concurrency = options.Concurrency
	}
	if options.Reconciler != nil {
		blder.ctrlOptions.Reconciler = options.Reconciler
	}
	if options.Cache != nil {
		blder.ctrlOptions.Cache = options.Cache
	}
	blder.ctrlOptions.Dependents = append(blder.ctrlOptions.Dependents, options.Dependents...)
	if options.DependentConcurrency > 0 {
		blder.ctrlOptions.DependentConcurrency = options.DependentConcurrency
	}
	if options.Retry != nil {
		blder.ctrlOptions.Retry = options.Retry
	}
	if options.StatusWriter != nil {
		blder.ctrlOptions.StatusWriter = options.StatusWriter
	}
	return blder
}

func (blder *Builder[T]) WithRetry(policy retry.Policy) *Builder[T] {
	blder.ctrlOptions.Retry = &policy
	return blder
}

func (blder *Builder[T]) WithDependents(dependents ...dependent.DependentResource) *Builder[T] {
	blder.ctrlOptions.Dependents = append(blder.ctrlOptions.Dependents, dependents...)
	return blder
}

func (blder *Builder[T]) Named(name string) *Builder[T] {
	blder.name = name
	return blder
}

func (blder *Builder[T]) Complete(r creconcile.Reconciler[T]) error {
	_, err := blder.Build(r)
	return err
}

func (blder *Builder[T]) Build(r creconcile.Reconciler[T]) (ccontroller.Controller[T], error) {
	if r == nil {
		return nil, fmt.Errorf("must provide a non-nil Reconciler")
	}
	if blder.mgr == nil {
		return nil, fmt.Errorf("must provide a non-nil Manager")
	}
	if blder.forInput.err != nil {
		return nil, blder.forInput.err
	}
	if blder.forInput.cache == nil {
		return nil, fmt.Errorf("must provide a cache with For()")
	}

	// Set the ControllerManagedBy
	if err := blder.doController(r); err != nil {
		return nil, err
	}

	// Set the Watch
	if err := blder.doWatch(); err != nil {
		return nil, err
	}

	if err := blder.mgr.AddCache(blder.forInput.cache); err != nil {
		return nil, err
	}
	if err := blder.mgr.AddController(blder.ctrl); err != nil {
		return nil, err
	}
	return blder.ctrl, nil
}

func (blder *Builder[T]) doWatch() error {
	// Reconcile type
	src := &csource.Kind[T]{Informer: blder.forInput.cache}
	hdler := &handler.EnqueueRequestForObject[T]{}
	var allPredicates []cpredicate.Predicate[T]
	if !blder.forInput.allUpdates {
		allPredicates = append(allPredicates, cpredicate.SpecChanged[T]())
	}
	allPredicates = append(allPredicates, blder.globalPredicates...)
	allPredicates = append(allPredicates, blder.forInput.predicates...)
	if err := blder.ctrl.Watch(src, hdler, allPredicates...); err != nil {
		return err
	}

	// Do the watch requests
	for _, w := range blder.watchesInput {
		allPredicates := append([]cpredicate.Predicate[T](nil), blder.globalPredicates...)
		allPredicates = append(allPredicates, w.predicates...)

		if err := blder.ctrl.Watch(w.src, w.eventhandler, allPredicates...); err != nil {
			return err
		}
	}
	return nil
}

func (blder *Builder[T]) getControllerName() (string, error) {
	if blder.name != "" {
		return blder.name, nil
	}
	gvk, err := blder.gvk()
	if err != nil {
		return "", fmt.Errorf("failed to get the controller name, use Named(): %v", err)
	}
	return strings.ToLower(gvk.Kind), nil
}

func (blder *Builder[T]) gvk() (schema.GroupVersionKind, error) {
	t := reflect.TypeFor[T]()
	if t.Kind() != reflect.Pointer {
		return schema.GroupVersionKind{}, fmt.Errorf("type %s is not a pointer", t)
	}
	obj := reflect.New(t.Elem()).Interface().(T)
	return apiutil.GVKForObject(obj, blder.mgr.GetScheme())
}

func (blder *Builder[T]) doController(r creconcile.Reconciler[T]) error {
	ctrlOptions := blder.ctrlOptions
	if ctrlOptions.Reconciler == nil {
		ctrlOptions.Reconciler = r
	}

	if ctrlOptions.Concurrency <= 0 {
		ctrlOptions.Concurrency = 1
	}

	if ctrlOptions.Cache == nil {
		ctrlOptions.Cache = blder.forInput.cache
	}

	if _, ok := ctrlOptions.Reconciler.(creconcile.ErrorStatusHandler[T]); ok && ctrlOptions.StatusWriter == nil && blder.mgr.GetClient() != nil {
		ctrlOptions.StatusWriter = blder.mgr.GetClient().Status()
	}

	controllerName, err := blder.getControllerName()
	if err != nil {
		return err
	}

	// Build the controller and return.
	blder.ctrl, err = ccontroller.New(controllerName, ctrlOptions)
	return err
}
