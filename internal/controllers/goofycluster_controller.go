/*
Copyright 2019 The Kubernetes Authors.

Licensed under the Apache License, Version 2.0 (the "License");
you may not use this file except in compliance with the License.
You may obtain a copy of the License at

    http://www.apache.org/licenses/LICENSE-2.0

Unless required by applicable law or agreed to in writing, software
distributed under the License is distributed on an "AS IS" BASIS,
WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
See the License for the specific language governing permissions and
limitations under the License.
*/

// Package controllers implements controller functionality.
package controllers

import (
	"context"
	"fmt"
	"time"

	"github.com/pkg/errors"
	corev1 "k8s.io/api/core/v1"
	"k8s.io/apimachinery/pkg/api/meta"
	metav1 "k8s.io/apimachinery/pkg/apis/meta/v1"
	ctrl "sigs.k8s.io/controller-runtime"
	"sigs.k8s.io/controller-runtime/pkg/client"

	infrav1 "github.com/fabriziopandini/goofy-runtime/api/v1alpha1"
	cbuilder "github.com/fabriziopandini/goofy-runtime/pkg/runtime/builder"
	ccontroller "github.com/fabriziopandini/goofy-runtime/pkg/runtime/controller"
	"github.com/fabriziopandini/goofy-runtime/pkg/runtime/dependent"
	cevent "github.com/fabriziopandini/goofy-runtime/pkg/runtime/event"
	cmanager "github.com/fabriziopandini/goofy-runtime/pkg/runtime/manager"
	cpredicate "github.com/fabriziopandini/goofy-runtime/pkg/runtime/predicate"
	creconcile "github.com/fabriziopandini/goofy-runtime/pkg/runtime/reconcile"
)

const notReadyRequeueAfter = 10 * time.Second

var _ creconcile.ErrorStatusHandler[*infrav1.GoofyCluster] = &GoofyClusterReconciler{}

// GoofyClusterReconciler reconciles a GoofyCluster object.
type GoofyClusterReconciler struct {
	Client client.Client

	// WatchFilterValue is the label value used to filter events prior to reconciliation.
	WatchFilterValue string
}

// +kubebuilder:rbac:groups=infrastructure.goofy.x-k8s.io,resources=goofyclusters,verbs=get;list;watch
// +kubebuilder:rbac:groups=infrastructure.goofy.x-k8s.io,resources=goofyclusters/status,verbs=get;update;patch
// +kubebuilder:rbac:groups=infrastructure.goofy.x-k8s.io,resources=goofymachines,verbs=get;list;watch;create;update;patch
// +kubebuilder:rbac:groups="",resources=configmaps,verbs=get;list;watch;create;update;patch

// Reconcile computes the status of a GoofyCluster from the results of its dependents, which are
// reconciled before.
func (r *GoofyClusterReconciler) Reconcile(ctx context.Context, goofyCluster *infrav1.GoofyCluster, rc *dependent.Context) (ctrl.Result, error) {
	log := ctrl.LoggerFrom(ctx)

	endpoint, err := dependent.GetDependentResource[*EndpointDependent](rc)
	if err != nil {
		return ctrl.Result{}, err
	}
	result, ok := rc.ReconcileResult(endpoint)
	if !ok {
		return ctrl.Result{}, errors.Errorf("endpoint for %s not reconciled", client.ObjectKeyFromObject(goofyCluster))
	}
	configMap, ok := dependent.ResultResource[*corev1.ConfigMap](result)
	if !ok {
		return ctrl.Result{}, errors.Errorf("unexpected endpoint result %s", result)
	}

	host := configMap.Data[EndpointHostKey]
	patch := client.MergeFrom(goofyCluster.DeepCopy())
	goofyCluster.Status.ErrorMessages = nil
	goofyCluster.Status.ObservedGeneration = goofyCluster.Generation
	goofyCluster.Status.Ready = host != ""
	if goofyCluster.Status.Ready {
		meta.SetStatusCondition(&goofyCluster.Status.Conditions, metav1.Condition{
			Type:               infrav1.ReadyCondition,
			Status:             metav1.ConditionTrue,
			Reason:             "EndpointAvailable",
			Message:            fmt.Sprintf("Endpoint %s:%s", host, configMap.Data[EndpointPortKey]),
			ObservedGeneration: goofyCluster.Generation,
		})
	} else {
		meta.SetStatusCondition(&goofyCluster.Status.Conditions, metav1.Condition{
			Type:               infrav1.ReadyCondition,
			Status:             metav1.ConditionFalse,
			Reason:             "WaitingForMachineAddress",
			ObservedGeneration: goofyCluster.Generation,
		})
	}
	if err := r.Client.Status().Patch(ctx, goofyCluster, patch); err != nil {
		return ctrl.Result{}, errors.Wrap(err, "failed to patch GoofyCluster status")
	}

	if !goofyCluster.Status.Ready {
		log.Info("Waiting for the machine address")
		return ctrl.Result{RequeueAfter: notReadyRequeueAfter}, nil
	}
	return ctrl.Result{}, nil
}

// UpdateErrorStatus records one error message per failed attempt.
func (r *GoofyClusterReconciler) UpdateErrorStatus(_ context.Context, goofyCluster *infrav1.GoofyCluster, info creconcile.RetryInfo, err error) creconcile.ErrorStatusUpdate[*infrav1.GoofyCluster] {
	msg := fmt.Sprintf("attempt %d: %v", info.Attempt, err)
	if info.LastAttempt {
		msg += " (giving up)"
	}
	goofyCluster.Status.ErrorMessages = append(goofyCluster.Status.ErrorMessages, msg)
	goofyCluster.Status.Ready = false
	meta.SetStatusCondition(&goofyCluster.Status.Conditions, metav1.Condition{
		Type:               infrav1.ReadyCondition,
		Status:             metav1.ConditionFalse,
		Reason:             infrav1.ReconcileFailedReason,
		Message:            err.Error(),
		ObservedGeneration: goofyCluster.Generation,
	})

	update := creconcile.UpdateErrorStatus(goofyCluster)
	if IsInvalidSpec(err) {
		// Retrying does not help until the spec changes.
		update = update.WithNoRetry()
	}
	return update
}

// SetupWithManager will add watches for this controller.
func (r *GoofyClusterReconciler) SetupWithManager(_ context.Context, mgr cmanager.Manager, clusters cbuilder.Cache[*infrav1.GoofyCluster], options ccontroller.Options[*infrav1.GoofyCluster]) error {
	machine := &MachineDependent{Client: r.Client}
	endpoint := &EndpointDependent{Client: r.Client, Machine: machine}

	err := cbuilder.ControllerManagedBy[*infrav1.GoofyCluster](mgr).
		For(clusters).
		WithOptions(options).
		WithEventFilter(cpredicate.GenerationChanged[*infrav1.GoofyCluster]()).
		WithEventFilter(hasFilterLabel[*infrav1.GoofyCluster](r.WatchFilterValue)).
		WithDependents(machine, endpoint).
		Complete(r)
	if err != nil {
		return errors.Wrap(err, "failed setting up with a controller manager")
	}
	return nil
}

// WatchFilterLabel is the label used to select the objects reconciled by a controller.
const WatchFilterLabel = "goofy.x-k8s.io/watch-filter"

func hasFilterLabel[T client.Object](value string) cpredicate.Predicate[T] {
	matches := func(obj T) bool {
		return value == "" || obj.GetLabels()[WatchFilterLabel] == value
	}
	return cpredicate.Funcs[T]{
		CreateFunc: func(e cevent.CreateEvent[T]) bool { return matches(e.Object) },
		UpdateFunc: func(e cevent.UpdateEvent[T]) bool { return matches(e.ObjectNew) },
		DeleteFunc: func(e cevent.DeleteEvent[T]) bool { return matches(e.Object) },
	}
}
