package controllers

import (
	"context"
	"fmt"
	"strconv"
	"strings"

	"github.com/pkg/errors"
	corev1 "k8s.io/api/core/v1"
	metav1 "k8s.io/apimachinery/pkg/apis/meta/v1"
	utilerrors "k8s.io/apimachinery/pkg/util/errors"
	ctrl "sigs.k8s.io/controller-runtime"
	"sigs.k8s.io/controller-runtime/pkg/client"
	"sigs.k8s.io/controller-runtime/pkg/controller/controllerutil"

	infrav1 "github.com/fabriziopandini/goofy-runtime/api/v1alpha1"
	"github.com/fabriziopandini/goofy-runtime/pkg/runtime/dependent"
)

const (
	providerIDPrefix = "goofy:////"

	// EndpointHostKey and EndpointPortKey are the keys of the endpoint ConfigMap.
	EndpointHostKey = "host"
	EndpointPortKey = "port"

	defaultPort = 6443

	// MachineAddressAttribute is the Context attribute the machine address is shared with.
	MachineAddressAttribute = "goofy.x-k8s.io/machine-address"
)

// InvalidSpecError reports a spec that cannot be reconciled until it is changed.
type InvalidSpecError struct {
	Field  string
	Reason string
}

func (e *InvalidSpecError) Error() string {
	return fmt.Sprintf("invalid %s: %s", e.Field, e.Reason)
}

// IsInvalidSpec returns true if err is, or aggregates, an InvalidSpecError.
func IsInvalidSpec(err error) bool {
	var agg utilerrors.Aggregate
	if errors.As(err, &agg) {
		for _, e := range agg.Errors() {
			if IsInvalidSpec(e) {
				return true
			}
		}
		return false
	}
	var ise *InvalidSpecError
	return errors.As(err, &ise)
}

var _ dependent.DependentResource = &MachineDependent{}

// MachineDependent manages the GoofyMachine of a GoofyCluster.
type MachineDependent struct {
	Client client.Client
}

func (d *MachineDependent) Reconcile(ctx context.Context, primary client.Object, rc *dependent.Context) (dependent.ReconcileResult, error) {
	goofyCluster, ok := primary.(*infrav1.GoofyCluster)
	if !ok {
		return dependent.ReconcileResult{}, errors.Errorf("expected a GoofyCluster, got %T", primary)
	}

	providerID := goofyCluster.Spec.ProviderID
	if providerID == "" {
		providerID = providerIDPrefix + goofyCluster.Name
	}
	if !strings.HasPrefix(providerID, providerIDPrefix) {
		return dependent.ReconcileResult{}, &InvalidSpecError{Field: "spec.providerID", Reason: fmt.Sprintf("must start with %q", providerIDPrefix)}
	}

	machine := &infrav1.GoofyMachine{
		ObjectMeta: metav1.ObjectMeta{
			Namespace: goofyCluster.Namespace,
			Name:      goofyCluster.Name,
		},
	}
	op, err := controllerutil.CreateOrUpdate(ctx, d.Client, machine, func() error {
		if machine.Labels == nil {
			machine.Labels = map[string]string{}
		}
		machine.Labels[infrav1.ClusterNameLabel] = goofyCluster.Name
		machine.Spec.ProviderID = &providerID
		return controllerutil.SetControllerReference(goofyCluster, machine, d.Client.Scheme())
	})
	if err != nil {
		return dependent.ReconcileResult{}, errors.Wrapf(err, "failed to reconcile GoofyMachine %s", client.ObjectKeyFromObject(machine))
	}

	if machine.Status.Address != "" {
		rc.Put(MachineAddressAttribute, machine.Status.Address)
	}
	ctrl.LoggerFrom(ctx).V(4).Info("GoofyMachine reconciled", "operation", op)
	return dependent.ReconcileResult{Operation: operation(op), Resource: machine}, nil
}

var _ dependent.DependentResource = &EndpointDependent{}
var _ dependent.DependsOn = &EndpointDependent{}

// EndpointDependent manages the ConfigMap publishing the control plane endpoint of a GoofyCluster.
// The endpoint host is the address of the cluster machine, if known, or the host from the GoofyCluster spec.
type EndpointDependent struct {
	Client  client.Client
	Machine *MachineDependent
}

func (d *EndpointDependent) DependsOn() []dependent.DependentResource {
	return []dependent.DependentResource{d.Machine}
}

func (d *EndpointDependent) Reconcile(ctx context.Context, primary client.Object, rc *dependent.Context) (dependent.ReconcileResult, error) {
	goofyCluster, ok := primary.(*infrav1.GoofyCluster)
	if !ok {
		return dependent.ReconcileResult{}, errors.Errorf("expected a GoofyCluster, got %T", primary)
	}

	machineResult, ok := rc.ReconcileResult(d.Machine)
	if !ok {
		return dependent.ReconcileResult{}, errors.New("GoofyMachine not reconciled yet")
	}
	machine, ok := dependent.ResultResource[*infrav1.GoofyMachine](machineResult)
	if !ok {
		return dependent.ReconcileResult{}, errors.Errorf("unexpected GoofyMachine result %s", machineResult)
	}

	host, ok := dependent.Get[string](rc, MachineAddressAttribute)
	if !ok {
		host = goofyCluster.Spec.ControlPlaneEndpoint.Host
	}
	port := goofyCluster.Spec.ControlPlaneEndpoint.Port
	if port == 0 {
		port = defaultPort
	}

	configMap := &corev1.ConfigMap{
		ObjectMeta: metav1.ObjectMeta{
			Namespace: goofyCluster.Namespace,
			Name:      goofyCluster.Name + "-endpoint",
		},
	}
	op, err := controllerutil.CreateOrUpdate(ctx, d.Client, configMap, func() error {
		if configMap.Labels == nil {
			configMap.Labels = map[string]string{}
		}
		configMap.Labels[infrav1.ClusterNameLabel] = goofyCluster.Name
		configMap.Data = map[string]string{
			EndpointHostKey: host,
			EndpointPortKey: strconv.Itoa(port),
			"machine":       machine.Name,
		}
		return controllerutil.SetControllerReference(goofyCluster, configMap, d.Client.Scheme())
	})
	if err != nil {
		return dependent.ReconcileResult{}, errors.Wrapf(err, "failed to reconcile ConfigMap %s", client.ObjectKeyFromObject(configMap))
	}
	return dependent.ReconcileResult{Operation: operation(op), Resource: configMap}, nil
}

func operation(op controllerutil.OperationResult) dependent.Operation {
	switch op {
	case controllerutil.OperationResultCreated:
		return dependent.Created
	case controllerutil.OperationResultNone:
		return dependent.Unchanged
	default:
		return dependent.Updated
	}
}
