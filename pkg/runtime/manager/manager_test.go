package manager

import (
	"context"
	"slices"
	"sync"
	"testing"
	"time"

	"github.com/pkg/errors"
	"github.com/stretchr/testify/require"
	"k8s.io/apimachinery/pkg/runtime"
)

func TestManager_Start(t *testing.T) {
	t.Run("starts caches before controllers and stops caches on shutdown", func(t *testing.T) {
		ctx, cancel := context.WithCancel(context.TODO())
		defer cancel()

		rec := &recorder{}
		m := New(runtime.NewScheme(), nil)
		c := &fakeCache{name: "c1", rec: rec}
		require.NoError(t, m.AddCache(c))
		require.NoError(t, m.AddCache(c), "adding the same cache twice must be a no-op")
		require.NoError(t, m.AddCache(&fakeCache{name: "c2", rec: rec}))
		require.NoError(t, m.AddController(&fakeController{name: "ctrl", rec: rec}))

		require.NoError(t, m.Start(ctx))
		require.Equal(t, []string{"start c1", "start c2", "start ctrl"}, rec.Events())

		require.Error(t, m.Start(ctx), "manager must not start twice")
		require.Error(t, m.AddCache(&fakeCache{name: "c3", rec: rec}))
		require.Error(t, m.AddController(&fakeController{name: "ctrl2", rec: rec}))

		cancel()
		require.Eventually(t, func() bool {
			return slices.Contains(rec.Events(), "stop c1") && slices.Contains(rec.Events(), "stop c2")
		}, 5*time.Second, 10*time.Millisecond)
	})

	t.Run("stops started caches if a cache fails to start", func(t *testing.T) {
		rec := &recorder{}
		m := New(runtime.NewScheme(), nil)
		require.NoError(t, m.AddCache(&fakeCache{name: "c1", rec: rec}))
		require.NoError(t, m.AddCache(&fakeCache{name: "c2", rec: rec, err: errors.New("sync timeout")}))
		require.NoError(t, m.AddController(&fakeController{name: "ctrl", rec: rec}))

		err := m.Start(context.TODO())
		require.Error(t, err)
		require.Contains(t, err.Error(), "c2")
		require.Equal(t, []string{"start c1", "stop c1"}, rec.Events())
	})
}

type recorder struct {
	lock   sync.Mutex
	events []string
}

func (r *recorder) record(e string) {
	r.lock.Lock()
	defer r.lock.Unlock()
	r.events = append(r.events, e)
}

func (r *recorder) Events() []string {
	r.lock.Lock()
	defer r.lock.Unlock()
	return slices.Clone(r.events)
}

type fakeCache struct {
	name string
	rec  *recorder
	err  error
}

func (c *fakeCache) Name() string { return c.name }

func (c *fakeCache) Start(_ context.Context) error {
	if c.err != nil {
		return c.err
	}
	c.rec.record("start " + c.name)
	return nil
}

func (c *fakeCache) Stop() { c.rec.record("stop " + c.name) }

type fakeController struct {
	name string
	rec  *recorder
}

func (c *fakeController) Name() string { return c.name }

func (c *fakeController) Start(_ context.Context) error {
	c.rec.record("start " + c.name)
	return nil
}
