package handler

import (
	"testing"

	"github.com/stretchr/testify/require"
	corev1 "k8s.io/api/core/v1"
	metav1 "k8s.io/apimachinery/pkg/apis/meta/v1"
	"k8s.io/client-go/util/workqueue"

	cevent "github.com/fabriziopandini/goofy-runtime/pkg/runtime/event"
	creconcile "github.com/fabriziopandini/goofy-runtime/pkg/runtime/reconcile"
	"github.com/fabriziopandini/goofy-runtime/pkg/runtime/resource"
)

func TestEnqueueRequestForObject(t *testing.T) {
	cm := func(ns, name string) *corev1.ConfigMap {
		return &corev1.ConfigMap{ObjectMeta: metav1.ObjectMeta{Namespace: ns, Name: name}}
	}
	newQueue := func(t *testing.T) Queue {
		t.Helper()
		q := workqueue.NewTypedRateLimitingQueue(workqueue.DefaultTypedControllerRateLimiter[creconcile.Request]())
		t.Cleanup(q.ShutDown)
		return q
	}
	h := &EnqueueRequestForObject[*corev1.ConfigMap]{}

	t.Run("create and delete enqueue the object", func(t *testing.T) {
		q := newQueue(t)
		h.Create(cevent.CreateEvent[*corev1.ConfigMap]{Object: cm("a", "x1")}, q)
		h.Delete(cevent.DeleteEvent[*corev1.ConfigMap]{Object: cm("a", "x2")}, q)
		require.Equal(t, 2, q.Len())

		req, _ := q.Get()
		require.Equal(t, creconcile.Request{ID: resource.ID{Namespace: "a", Name: "x1"}}, req)
		q.Done(req)
		req, _ = q.Get()
		require.Equal(t, creconcile.Request{ID: resource.ID{Namespace: "a", Name: "x2"}}, req)
		q.Done(req)
	})

	t.Run("requests for the same object are deduplicated", func(t *testing.T) {
		q := newQueue(t)
		h.Create(cevent.CreateEvent[*corev1.ConfigMap]{Object: cm("a", "x1")}, q)
		h.Update(cevent.UpdateEvent[*corev1.ConfigMap]{ObjectOld: cm("a", "x1"), ObjectNew: cm("a", "x1")}, q)
		require.Equal(t, 1, q.Len())
	})

	t.Run("update with a different old object enqueues both", func(t *testing.T) {
		q := newQueue(t)
		h.Update(cevent.UpdateEvent[*corev1.ConfigMap]{ObjectOld: cm("a", "old"), ObjectNew: cm("a", "new")}, q)
		require.Equal(t, 2, q.Len())
	})
}
