package dependent

import (
	"context"
	"testing"

	"github.com/stretchr/testify/require"
	"sigs.k8s.io/controller-runtime/pkg/client"
)

func TestNewRegistry(t *testing.T) {
	t.Run("rejects nil dependents", func(t *testing.T) {
		_, err := NewRegistry(nil)
		require.True(t, IsConfigurationError(err))

		var m *machineDependent
		_, err = NewRegistry(m)
		require.True(t, IsConfigurationError(err))
	})

	t.Run("rejects dependents that are not pointers", func(t *testing.T) {
		_, err := NewRegistry(valueDependent{})
		require.True(t, IsConfigurationError(err))
	})

	t.Run("rejects the same instance twice", func(t *testing.T) {
		m := &machineDependent{}
		_, err := NewRegistry(m, m)
		require.True(t, IsConfigurationError(err))
	})

	t.Run("rejects dependencies not registered", func(t *testing.T) {
		_, err := NewRegistry(&endpointDependent{machine: &machineDependent{}})
		require.True(t, IsConfigurationError(err))
	})

	t.Run("rejects cyclic dependencies", func(t *testing.T) {
		a := &cyclicDependent{}
		b := &cyclicDependent{}
		a.other, b.other = b, a
		_, err := NewRegistry(a, b)
		require.True(t, IsConfigurationError(err))
	})

	t.Run("all returns dependents after their dependencies", func(t *testing.T) {
		m := &machineDependent{}
		e := &endpointDependent{machine: m}
		other := &machineDependent{}
		r, err := NewRegistry(e, other, m)
		require.NoError(t, err)

		require.Equal(t, []DependentResource{other, m, e}, r.All())
		require.Equal(t, []DependentResource{m}, r.DependenciesOf(e))
		require.Empty(t, r.DependenciesOf(m))
	})
}

type valueDependent struct{}

func (valueDependent) Reconcile(_ context.Context, _ client.Object, _ *Context) (ReconcileResult, error) {
	return ReconcileResult{}, nil
}

type cyclicDependent struct {
	other *cyclicDependent
}

func (d *cyclicDependent) DependsOn() []DependentResource {
	return []DependentResource{d.other}
}

func (d *cyclicDependent) Reconcile(_ context.Context, _ client.Object, _ *Context) (ReconcileResult, error) {
	return ReconcileResult{}, nil
}
