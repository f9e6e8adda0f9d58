package controllers

import (
	"context"
	"testing"
	"time"

	"github.com/pkg/errors"
	"github.com/stretchr/testify/require"
	corev1 "k8s.io/api/core/v1"
	"k8s.io/apimachinery/pkg/api/meta"
	metav1 "k8s.io/apimachinery/pkg/apis/meta/v1"
	"k8s.io/apimachinery/pkg/runtime"
	utilerrors "k8s.io/apimachinery/pkg/util/errors"
	clientgoscheme "k8s.io/client-go/kubernetes/scheme"
	"k8s.io/klog/v2"
	ctrl "sigs.k8s.io/controller-runtime"
	"sigs.k8s.io/controller-runtime/pkg/client"
	"sigs.k8s.io/controller-runtime/pkg/client/fake"

	infrav1 "github.com/fabriziopandini/goofy-runtime/api/v1alpha1"
	ccache "github.com/fabriziopandini/goofy-runtime/pkg/runtime/cache"
	ccontroller "github.com/fabriziopandini/goofy-runtime/pkg/runtime/controller"
	"github.com/fabriziopandini/goofy-runtime/pkg/runtime/dependent"
	cmanager "github.com/fabriziopandini/goofy-runtime/pkg/runtime/manager"
	creconcile "github.com/fabriziopandini/goofy-runtime/pkg/runtime/reconcile"
	"github.com/fabriziopandini/goofy-runtime/pkg/runtime/retry"
	csource "github.com/fabriziopandini/goofy-runtime/pkg/runtime/source"
)

var scheme = runtime.NewScheme()

func init() {
	_ = clientgoscheme.AddToScheme(scheme)
	_ = infrav1.AddToScheme(scheme)
	ctrl.SetLogger(klog.Background())
}

func TestGoofyClusterReconciler(t *testing.T) {
	policy := retry.Policy{MaxAttempts: 2, InitialInterval: 10 * time.Millisecond, Mode: retry.Constant}

	t.Run("creates the machine and the endpoint, then reports the cluster ready", func(t *testing.T) {
		goofyCluster := &infrav1.GoofyCluster{
			ObjectMeta: metav1.ObjectMeta{Namespace: metav1.NamespaceDefault, Name: "foo"},
			Spec: infrav1.GoofyClusterSpec{
				ControlPlaneEndpoint: infrav1.APIEndpoint{Host: "10.0.0.1"},
			},
		}
		c := startReconciler(t, goofyCluster, policy)

		require.Eventually(t, func() bool {
			got := &infrav1.GoofyCluster{}
			if err := c.Get(context.TODO(), client.ObjectKeyFromObject(goofyCluster), got); err != nil {
				return false
			}
			return got.Status.Ready
		}, 5*time.Second, 10*time.Millisecond)

		machine := &infrav1.GoofyMachine{}
		require.NoError(t, c.Get(context.TODO(), client.ObjectKey{Namespace: metav1.NamespaceDefault, Name: "foo"}, machine))
		require.Equal(t, "goofy:////foo", *machine.Spec.ProviderID)
		require.Equal(t, "foo", machine.Labels[infrav1.ClusterNameLabel])
		require.True(t, metav1.IsControlledBy(machine, goofyClusterFrom(t, c, "foo")))

		configMap := &corev1.ConfigMap{}
		require.NoError(t, c.Get(context.TODO(), client.ObjectKey{Namespace: metav1.NamespaceDefault, Name: "foo-endpoint"}, configMap))
		require.Equal(t, "10.0.0.1", configMap.Data[EndpointHostKey])
		require.Equal(t, "6443", configMap.Data[EndpointPortKey])
		require.Equal(t, "foo", configMap.Data["machine"])

		got := goofyClusterFrom(t, c, "foo")
		require.Empty(t, got.Status.ErrorMessages)
		require.True(t, meta.IsStatusConditionTrue(got.Status.Conditions, infrav1.ReadyCondition))
	})

	t.Run("an invalid spec is reported once and not retried", func(t *testing.T) {
		goofyCluster := &infrav1.GoofyCluster{
			ObjectMeta: metav1.ObjectMeta{Namespace: metav1.NamespaceDefault, Name: "bar"},
			Spec:       infrav1.GoofyClusterSpec{ProviderID: "aws:///bar"},
		}
		c := startReconciler(t, goofyCluster, policy)

		require.Eventually(t, func() bool {
			got := &infrav1.GoofyCluster{}
			if err := c.Get(context.TODO(), client.ObjectKeyFromObject(goofyCluster), got); err != nil {
				return false
			}
			return len(got.Status.ErrorMessages) == 1
		}, 5*time.Second, 10*time.Millisecond)

		time.Sleep(10 * policy.InitialInterval)
		got := goofyClusterFrom(t, c, "bar")
		require.Len(t, got.Status.ErrorMessages, 1)
		require.Contains(t, got.Status.ErrorMessages[0], "attempt 0: ")
		require.Contains(t, got.Status.ErrorMessages[0], "invalid spec.providerID")
		require.True(t, meta.IsStatusConditionFalse(got.Status.Conditions, infrav1.ReadyCondition))

		machines := &infrav1.GoofyMachineList{}
		require.NoError(t, c.List(context.TODO(), machines))
		require.Empty(t, machines.Items)
	})
}

func TestGoofyClusterReconciler_UpdateErrorStatus(t *testing.T) {
	r := &GoofyClusterReconciler{}
	goofyCluster := &infrav1.GoofyCluster{}

	update := r.UpdateErrorStatus(context.TODO(), goofyCluster, creconcile.RetryInfo{Attempt: 0}, errors.New("boom"))
	obj, ok := update.Resource()
	require.True(t, ok)
	require.False(t, update.NoRetry())
	require.Equal(t, []string{"attempt 0: boom"}, obj.Status.ErrorMessages)

	update = r.UpdateErrorStatus(context.TODO(), obj, creconcile.RetryInfo{Attempt: 1, LastAttempt: true}, errors.New("boom"))
	obj, _ = update.Resource()
	require.Equal(t, []string{"attempt 0: boom", "attempt 1: boom (giving up)"}, obj.Status.ErrorMessages)

	invalid := utilerrors.NewAggregate([]error{errors.Wrap(&InvalidSpecError{Field: "spec.providerID", Reason: "bad"}, "failed")})
	update = r.UpdateErrorStatus(context.TODO(), &infrav1.GoofyCluster{}, creconcile.RetryInfo{Attempt: 0}, invalid)
	require.True(t, update.NoRetry())
}

func TestEndpointDependent_machineAddress(t *testing.T) {
	c := fake.NewClientBuilder().WithScheme(scheme).Build()
	machine := &MachineDependent{Client: c}
	endpoint := &EndpointDependent{Client: c, Machine: machine}
	registry, err := dependent.NewRegistry(endpoint, machine)
	require.NoError(t, err)

	goofyCluster := &infrav1.GoofyCluster{ObjectMeta: metav1.ObjectMeta{Namespace: metav1.NamespaceDefault, Name: "foo", UID: "uid"}}
	rc := registry.NewContext()
	rc.SetReconcileResult(machine, dependent.ReconcileResult{
		Operation: dependent.Unchanged,
		Resource:  &infrav1.GoofyMachine{ObjectMeta: metav1.ObjectMeta{Name: "foo"}},
	})
	rc.Put(MachineAddressAttribute, "192.168.0.10")

	result, err := endpoint.Reconcile(context.TODO(), goofyCluster, rc)
	require.NoError(t, err)
	require.Equal(t, dependent.Created, result.Operation)
	configMap, ok := dependent.ResultResource[*corev1.ConfigMap](result)
	require.True(t, ok)
	require.Equal(t, "192.168.0.10", configMap.Data[EndpointHostKey])

	result, err = endpoint.Reconcile(context.TODO(), goofyCluster, rc)
	require.NoError(t, err)
	require.Equal(t, dependent.Unchanged, result.Operation)
}

func startReconciler(t *testing.T, goofyCluster *infrav1.GoofyCluster, policy retry.Policy) client.Client {
	t.Helper()

	ctx, cancel := context.WithCancel(context.TODO())
	t.Cleanup(cancel)

	c := fake.NewClientBuilder().
		WithScheme(scheme).
		WithStatusSubresource(&infrav1.GoofyCluster{}).
		WithObjects(goofyCluster).
		Build()

	initial := goofyClusterFrom(t, c, goofyCluster.Name)
	clusters, err := ccache.NewInformer(func() (ccache.Subscription[*infrav1.GoofyCluster], error) {
		return csource.NewChannel(nil, initial), nil
	}, ccache.Options{Name: "goofyclusters"})
	require.NoError(t, err)

	mgr := cmanager.New(scheme, c)
	r := &GoofyClusterReconciler{Client: c}
	require.NoError(t, r.SetupWithManager(ctx, mgr, clusters, ccontroller.Options[*infrav1.GoofyCluster]{
		Retry: &policy,
	}))
	require.NoError(t, mgr.Start(ctx))
	return c
}

func goofyClusterFrom(t *testing.T, c client.Client, name string) *infrav1.GoofyCluster {
	t.Helper()
	goofyCluster := &infrav1.GoofyCluster{}
	require.NoError(t, c.Get(context.TODO(), client.ObjectKey{Namespace: metav1.NamespaceDefault, Name: name}, goofyCluster))
	return goofyCluster
}
