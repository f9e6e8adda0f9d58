/*
Copyright 2021 The Kubernetes Authors.

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

// Package controllers provides access to reconcilers implemented in internal/controllers.
package controllers

import (
	"context"

	"sigs.k8s.io/controller-runtime/pkg/client"

	infrav1 "github.com/fabriziopandini/goofy-runtime/api/v1alpha1"
	goofycontrollers "github.com/fabriziopandini/goofy-runtime/internal/controllers"
	cbuilder "github.com/fabriziopandini/goofy-runtime/pkg/runtime/builder"
	ccontroller "github.com/fabriziopandini/goofy-runtime/pkg/runtime/controller"
	cmanager "github.com/fabriziopandini/goofy-runtime/pkg/runtime/manager"
)

// Following types provides access to reconcilers implemented in internal/controllers, thus
// allowing users to provide a single binary "batteries included" with the goofy runtime.

// GoofyClusterReconciler reconciles a GoofyCluster object.
type GoofyClusterReconciler struct {
	Client client.Client

	// WatchFilterValue is the label value used to filter events prior to reconciliation.
	WatchFilterValue string
}

// SetupWithManager sets up the reconciler with the Manager, reading GoofyClusters from clusters.
func (r *GoofyClusterReconciler) SetupWithManager(ctx context.Context, mgr cmanager.Manager, clusters cbuilder.Cache[*infrav1.GoofyCluster], options ccontroller.Options[*infrav1.GoofyCluster]) error {
	return (&goofycontrollers.GoofyClusterReconciler{
		Client:           r.Client,
		WatchFilterValue: r.WatchFilterValue,
	}).SetupWithManager(ctx, mgr, clusters, options)
}
