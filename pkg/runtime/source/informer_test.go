package source

import (
	"context"
	"fmt"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	corev1 "k8s.io/api/core/v1"
	metav1 "k8s.io/apimachinery/pkg/apis/meta/v1"
	"k8s.io/apimachinery/pkg/runtime"
	"k8s.io/apimachinery/pkg/watch"
	toolscache "k8s.io/client-go/tools/cache"

	ccache "github.com/fabriziopandini/goofy-runtime/pkg/runtime/cache"
	"github.com/fabriziopandini/goofy-runtime/pkg/runtime/resource"
)

func TestSharedInformerSubscription(t *testing.T) {
	t.Run("fails with a nil informer", func(t *testing.T) {
		_, err := NewInformer[*corev1.ConfigMap](nil)
		require.Error(t, err)
	})

	t.Run("converts client-go callbacks", func(t *testing.T) {
		fake := &fakeSharedInformer{}
		i, err := NewInformer[*corev1.ConfigMap](fake)
		require.NoError(t, err)

		h := &recordingHandler{}
		require.NoError(t, i.AddEventHandler(h))

		fake.add(configMap("a", "x1", "1"))
		fake.update(configMap("a", "x1", "1"), configMap("a", "x1", "2"))
		fake.delete(configMap("a", "x1", "2"))
		fake.delete(toolscache.DeletedFinalStateUnknown{Key: "a/x2", Obj: configMap("a", "x2", "3")})

		// Objects of another type are ignored.
		fake.add(&corev1.Secret{})
		fake.delete(toolscache.DeletedFinalStateUnknown{Key: "a/s", Obj: &corev1.Secret{}})

		require.Equal(t, []string{"add a/x1@1", "update a/x1@1->2", "delete a/x1@2", "delete a/x2@3"}, h.Events())
	})

	t.Run("is synced only when all the handlers are synced", func(t *testing.T) {
		fake := &fakeSharedInformer{}
		i, err := NewInformer[*corev1.ConfigMap](fake)
		require.NoError(t, err)
		require.NoError(t, i.AddEventHandler(&recordingHandler{}))
		require.NoError(t, i.AddEventHandler(&recordingHandler{}))

		ctx, cancel := context.WithCancel(context.TODO())
		defer cancel()
		go i.Run(ctx)

		require.Eventually(t, fake.HasSynced, 5*time.Second, 10*time.Millisecond)
		require.False(t, i.HasSynced())

		fake.registrations[0].synced.Store(true)
		require.False(t, i.HasSynced())

		fake.registrations[1].synced.Store(true)
		require.True(t, i.HasSynced())
	})

	t.Run("runs until the context is done", func(t *testing.T) {
		fake := &fakeSharedInformer{}
		i, err := NewInformer[*corev1.ConfigMap](fake)
		require.NoError(t, err)

		ctx, cancel := context.WithCancel(context.TODO())
		done := make(chan struct{})
		go func() {
			defer close(done)
			i.Run(ctx)
		}()

		require.Eventually(t, i.HasSynced, 5*time.Second, 10*time.Millisecond)
		cancel()
		select {
		case <-done:
		case <-time.After(5 * time.Second):
			t.Fatal("Run did not return after the context was cancelled")
		}
	})
}

func TestSharedInformerSubscription_SharedIndexInformer(t *testing.T) {
	const count = 10000

	list := &corev1.ConfigMapList{ListMeta: metav1.ListMeta{ResourceVersion: "1"}}
	for n := range count {
		list.Items = append(list.Items, *configMap("a", fmt.Sprintf("x%05d", n), "1"))
	}
	watcher := watch.NewFake()

	newInformer := func() toolscache.SharedIndexInformer {
		return toolscache.NewSharedIndexInformer(&toolscache.ListWatch{
			ListWithContextFunc: func(context.Context, metav1.ListOptions) (runtime.Object, error) {
				return list.DeepCopy(), nil
			},
			WatchFuncWithContext: func(_ context.Context, options metav1.ListOptions) (watch.Interface, error) {
				// Streaming the initial list is not supported, the informer falls back to list.
				if options.SendInitialEvents != nil && *options.SendInitialEvents {
					return nil, fmt.Errorf("streaming lists are not supported")
				}
				return watcher, nil
			},
		}, &corev1.ConfigMap{}, 0, toolscache.Indexers{})
	}

	i, err := ccache.NewInformer(func() (ccache.Subscription[*corev1.ConfigMap], error) {
		s, err := NewInformer[*corev1.ConfigMap](newInformer())
		if err != nil {
			return nil, err
		}
		return s, nil
	}, ccache.Options{Name: "configmaps"})
	require.NoError(t, err)

	h := &recordingHandler{}
	require.NoError(t, i.AddEventHandler(h))

	ctx, cancel := context.WithCancel(context.TODO())
	defer cancel()
	require.NoError(t, i.Start(ctx))
	defer i.Stop()

	// Start returns after the cache received the whole initial list.
	keys, err := i.Keys()
	require.NoError(t, err)
	n := 0
	for range keys {
		n++
	}
	require.Equal(t, count, n)

	watcher.Add(configMap("b", "y1", "2"))
	watcher.Modify(configMap("a", "x00000", "3"))
	watcher.Delete(configMap("a", "x00001", "4"))

	require.Eventually(t, func() bool {
		ok, err := i.Contains(resource.ID{Namespace: "b", Name: "y1"})
		return err == nil && ok
	}, 5*time.Second, 10*time.Millisecond)
	require.Eventually(t, func() bool {
		obj, ok, err := i.Get(resource.ID{Namespace: "a", Name: "x00000"})
		return err == nil && ok && obj.ResourceVersion == "3"
	}, 5*time.Second, 10*time.Millisecond)
	require.Eventually(t, func() bool {
		ok, err := i.Contains(resource.ID{Namespace: "a", Name: "x00001"})
		return err == nil && !ok
	}, 5*time.Second, 10*time.Millisecond)

	require.Eventually(t, func() bool { return len(h.Events()) == count+3 }, 5*time.Second, 10*time.Millisecond)
	events := h.Events()
	require.Equal(t, []string{"add b/y1@2", "update a/x00000@1->3", "delete a/x00001@4"}, events[count:])
}

type fakeSharedInformer struct {
	lock          sync.Mutex
	handlers      []toolscache.ResourceEventHandler
	registrations []*fakeRegistration
	synced        atomic.Bool
}

// fakeRegistration reports the handler as synced once synced is set.
type fakeRegistration struct {
	toolscache.ResourceEventHandlerRegistration
	synced atomic.Bool
}

func (r *fakeRegistration) HasSynced() bool {
	return r.synced.Load()
}

func (f *fakeSharedInformer) AddEventHandler(handler toolscache.ResourceEventHandler) (toolscache.ResourceEventHandlerRegistration, error) {
	f.lock.Lock()
	defer f.lock.Unlock()
	f.handlers = append(f.handlers, handler)
	r := &fakeRegistration{}
	f.registrations = append(f.registrations, r)
	return r, nil
}

func (f *fakeSharedInformer) Run(stopCh <-chan struct{}) {
	f.synced.Store(true)
	<-stopCh
}

func (f *fakeSharedInformer) HasSynced() bool {
	return f.synced.Load()
}

func (f *fakeSharedInformer) add(obj interface{}) {
	for _, h := range f.currentHandlers() {
		h.OnAdd(obj, false)
	}
}

func (f *fakeSharedInformer) update(oldObj, newObj interface{}) {
	for _, h := range f.currentHandlers() {
		h.OnUpdate(oldObj, newObj)
	}
}

func (f *fakeSharedInformer) delete(obj interface{}) {
	for _, h := range f.currentHandlers() {
		h.OnDelete(obj)
	}
}

func (f *fakeSharedInformer) currentHandlers() []toolscache.ResourceEventHandler {
	f.lock.Lock()
	defer f.lock.Unlock()
	return append([]toolscache.ResourceEventHandler{}, f.handlers...)
}
