package cache

import (
	"iter"
	"slices"
	"testing"

	"github.com/stretchr/testify/require"
	corev1 "k8s.io/api/core/v1"
	metav1 "k8s.io/apimachinery/pkg/apis/meta/v1"
	"sigs.k8s.io/controller-runtime/pkg/client"

	"github.com/fabriziopandini/goofy-runtime/pkg/runtime/resource"
)

func Test_store(t *testing.T) {
	t.Run("put, get, contains and remove", func(t *testing.T) {
		s := NewStore[*corev1.ConfigMap]()
		id := resource.ID{Namespace: "a", Name: "x1"}

		_, ok := s.Get(id)
		require.False(t, ok)
		require.False(t, s.Contains(id))

		s.Put(id, configMap("a", "x1", nil))

		obj, ok := s.Get(id)
		require.True(t, ok)
		require.Equal(t, "x1", obj.Name)
		require.True(t, s.Contains(id))

		removed, ok := s.Remove(id)
		require.True(t, ok)
		require.Equal(t, "x1", removed.Name)

		_, ok = s.Get(id)
		require.False(t, ok)
		require.False(t, s.Contains(id))

		_, ok = s.Remove(id)
		require.False(t, ok, "removing a missing object must report absence")
	})

	t.Run("removed objects are copies", func(t *testing.T) {
		s := NewStore[*corev1.ConfigMap]()
		id := resource.ID{Namespace: "a", Name: "x1"}
		obj := configMap("a", "x1", nil)
		obj.Data = map[string]string{"foo": "bar"}
		s.Put(id, obj)

		list := s.List()
		removed, ok := s.Remove(id)
		require.True(t, ok)
		removed.Data["foo"] = "changed"

		for o := range list {
			require.Equal(t, "bar", o.Data["foo"], "changes to removed objects must not leak into the store")
		}
	})

	t.Run("put overwrites", func(t *testing.T) {
		s := NewStore[*corev1.ConfigMap]()
		id := resource.ID{Namespace: "a", Name: "x1"}

		first := configMap("a", "x1", nil)
		first.Data = map[string]string{"foo": "bar", "baz": "qux"}
		s.Put(id, first)

		second := configMap("a", "x1", nil)
		second.Data = map[string]string{"foo": "changed"}
		s.Put(id, second)

		obj, ok := s.Get(id)
		require.True(t, ok)
		require.Equal(t, map[string]string{"foo": "changed"}, obj.Data, "put must not merge")
		require.Equal(t, 1, s.Len())
	})

	t.Run("callers do not share memory with the store", func(t *testing.T) {
		s := NewStore[*corev1.ConfigMap]()
		id := resource.ID{Namespace: "a", Name: "x1"}

		obj := configMap("a", "x1", nil)
		s.Put(id, obj)
		obj.Labels = map[string]string{"mutated": "true"}

		got, _ := s.Get(id)
		require.Empty(t, got.Labels)

		got.Labels = map[string]string{"mutated": "true"}
		again, _ := s.Get(id)
		require.Empty(t, again.Labels)
	})

	t.Run("list by namespace and predicate", func(t *testing.T) {
		s := NewStore[*corev1.ConfigMap]()
		for _, cm := range []*corev1.ConfigMap{
			configMap("b", "y1", map[string]string{"tier": "db"}),
			configMap("a", "x2", map[string]string{"tier": "web"}),
			configMap("a", "x1", map[string]string{"tier": "db"}),
			configMap("b", "y2", nil),
		} {
			s.Put(resource.FromObject(cm), cm)
		}

		require.Equal(t, []string{"a/x1", "a/x2", "b/y1", "b/y2"}, ids(s.List()))
		require.Equal(t, []string{"a/x1", "a/x2"}, ids(s.List(client.InNamespace("a"))))

		isDB := func(cm *corev1.ConfigMap) bool { return cm.Labels["tier"] == "db" }
		require.Equal(t, []string{"a/x1", "b/y1"}, ids(s.ListMatching(isDB)))
		require.Equal(t, []string{"b/y1"}, ids(s.ListMatching(isDB, client.InNamespace("b"))))

		require.Equal(t, []string{"a/x2"}, ids(s.List(client.MatchingLabels{"tier": "web"})))
		require.Empty(t, ids(s.List(client.InNamespace("c"))))
	})

	t.Run("list and keys iterate over a snapshot", func(t *testing.T) {
		s := NewStore[*corev1.ConfigMap]()
		s.Put(resource.ID{Namespace: "a", Name: "x1"}, configMap("a", "x1", nil))

		list := s.List()
		keys := s.Keys()

		s.Put(resource.ID{Namespace: "a", Name: "x2"}, configMap("a", "x2", nil))
		s.Remove(resource.ID{Namespace: "a", Name: "x1"})

		require.Equal(t, []string{"a/x1"}, ids(list))
		require.Equal(t, []string{"a/x1"}, ids(list), "sequences must be restartable")
		require.Equal(t, []resource.ID{{Namespace: "a", Name: "x1"}}, slices.Collect(keys))
	})

	t.Run("early break", func(t *testing.T) {
		s := NewStore[*corev1.ConfigMap]()
		s.Put(resource.ID{Namespace: "a", Name: "x1"}, configMap("a", "x1", nil))
		s.Put(resource.ID{Namespace: "a", Name: "x2"}, configMap("a", "x2", nil))

		count := 0
		for range s.List() {
			count++
			break
		}
		require.Equal(t, 1, count)
	})
}

func configMap(namespace, name string, labels map[string]string) *corev1.ConfigMap {
	return &corev1.ConfigMap{
		ObjectMeta: metav1.ObjectMeta{
			Namespace: namespace,
			Name:      name,
			Labels:    labels,
		},
	}
}

func ids[T client.Object](seq iter.Seq[T]) []string {
	ret := []string{}
	for obj := range seq {
		ret = append(ret, resource.FromObject(obj).String())
	}
	return ret
}
