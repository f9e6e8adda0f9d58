package manager

import (
	"context"
	"fmt"
	"slices"
	"sync"

	"github.com/pkg/errors"
	"k8s.io/apimachinery/pkg/runtime"
	ctrl "sigs.k8s.io/controller-runtime"
	"sigs.k8s.io/controller-runtime/pkg/client"
)

// Cache is a cache the Manager starts before the controllers, e.g. a cache.Informer.
type Cache interface {
	Name() string
	Start(ctx context.Context) error
	Stop()
}

// Controller is a controller the Manager starts once all the caches are synced.
type Controller interface {
	Name() string
	Start(ctx context.Context) error
}

type Manager interface {
	GetScheme() *runtime.Scheme

	// GetClient returns the client used to write to the external resources, if any.
	GetClient() client.Client

	// AddCache adds a cache to the Manager; adding the same cache twice is a no-op.
	AddCache(Cache) error

	AddController(Controller) error

	Start(ctx context.Context) error
}

var _ Manager = &manager{}

type manager struct {
	scheme *runtime.Scheme
	client client.Client

	lock        sync.Mutex
	caches      []Cache
	controllers []Controller
	started     bool
}

func New(scheme *runtime.Scheme, c client.Client) Manager {
	return &manager{
		scheme:      scheme,
		client:      c,
		controllers: make([]Controller, 0),
	}
}

func (m *manager) GetScheme() *runtime.Scheme {
	return m.scheme
}

func (m *manager) GetClient() client.Client {
	return m.client
}

func (m *manager) AddCache(c Cache) error {
	m.lock.Lock()
	defer m.lock.Unlock()

	if m.started {
		return fmt.Errorf("cannot add cache to a manager already started")
	}
	if slices.Contains(m.caches, c) {
		return nil
	}
	m.caches = append(m.caches, c)
	return nil
}

func (m *manager) AddController(controller Controller) error {
	m.lock.Lock()
	defer m.lock.Unlock()

	if m.started {
		return fmt.Errorf("cannot add controller to a manager already started")
	}

	m.controllers = append(m.controllers, controller)
	return nil
}

// Start starts all the caches, then all the controllers. It returns once everything is started;
// caches are stopped when ctx is done.
func (m *manager) Start(ctx context.Context) error {
	if ctx == nil {
		return fmt.Errorf("context cannot be nil")
	}
	log := ctrl.LoggerFrom(ctx)

	m.lock.Lock()
	defer m.lock.Unlock()

	if m.started {
		return fmt.Errorf("manager started more than once")
	}

	log.Info("Starting manager")
	started := make([]Cache, 0, len(m.caches))
	stopCaches := func() {
		for _, c := range started {
			c.Stop()
		}
	}
	for _, c := range m.caches {
		if err := c.Start(ctx); err != nil {
			stopCaches()
			return errors.Wrapf(err, "failed to start cache %s", c.Name())
		}
		started = append(started, c)
	}

	for _, c := range m.controllers {
		if err := c.Start(ctx); err != nil {
			stopCaches()
			return errors.Wrapf(err, "failed to start controller %s", c.Name())
		}
	}

	go func() {
		<-ctx.Done()
		log.Info("Stopping caches")
		stopCaches()
	}()

	m.started = true
	log.Info("Manager successfully started!")
	return nil
}
