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

package v1alpha1

import (
	metav1 "k8s.io/apimachinery/pkg/apis/meta/v1"
)

const (
	// ClusterNameLabel is set on the objects created for a GoofyCluster.
	ClusterNameLabel = "goofy.x-k8s.io/cluster-name"

	// ReadyCondition reports the GoofyCluster has a machine and an endpoint.
	ReadyCondition = "Ready"

	// ReconcileFailedReason is used when the last reconciliation of a GoofyCluster failed.
	ReconcileFailedReason = "ReconcileFailed"
)

type GoofyClusterSpec struct {
	// ControlPlaneEndpoint represents the endpoint used to communicate with the control plane.
	// +optional
	ControlPlaneEndpoint APIEndpoint `json:"controlPlaneEndpoint"`

	// ProviderID is assigned to the machine created for the cluster.
	// +optional
	ProviderID string `json:"providerID,omitempty"`
}

type GoofyClusterStatus struct {
	// Ready denotes that the goofy cluster machine and endpoint are ready.
	// +optional
	Ready bool `json:"ready"`

	// ObservedGeneration is the generation of the last successful reconciliation.
	// +optional
	ObservedGeneration int64 `json:"observedGeneration,omitempty"`

	// ErrorMessages has one entry for every failed reconciliation attempt since the last success.
	// +optional
	ErrorMessages []string `json:"errorMessages,omitempty"`

	// Conditions defines current service state of the GoofyCluster.
	// +optional
	Conditions []metav1.Condition `json:"conditions,omitempty"`
}

// APIEndpoint represents a reachable Kubernetes API endpoint.
type APIEndpoint struct {
	// Host is the hostname on which the API server is serving.
	Host string `json:"host"`

	// Port is the port on which the API server is serving.
	// Defaults to 6443 if not set.
	Port int `json:"port"`
}

// +kubebuilder:resource:path=goofyclusters,scope=Namespaced
// +kubebuilder:subresource:status
// +kubebuilder:storageversion
// +kubebuilder:object:root=true
// +kubebuilder:printcolumn:name="Ready",type="string",JSONPath=".status.ready",description="Cluster ready status"
// +kubebuilder:printcolumn:name="Age",type="date",JSONPath=".metadata.creationTimestamp",description="Time duration since creation of GoofyCluster"

type GoofyCluster struct {
	metav1.TypeMeta   `json:",inline"`
	metav1.ObjectMeta `json:"metadata,omitempty"`

	Spec   GoofyClusterSpec   `json:"spec,omitempty"`
	Status GoofyClusterStatus `json:"status,omitempty"`
}

// GetConditions returns the set of conditions for this object.
func (c *GoofyCluster) GetConditions() []metav1.Condition {
	return c.Status.Conditions
}

// SetConditions sets the conditions on this object.
func (c *GoofyCluster) SetConditions(conditions []metav1.Condition) {
	c.Status.Conditions = conditions
}

// +kubebuilder:object:root=true

// GoofyClusterList contains a list of GoofyCluster.
type GoofyClusterList struct {
	metav1.TypeMeta `json:",inline"`
	metav1.ListMeta `json:"metadata,omitempty"`
	Items           []GoofyCluster `json:"items"`
}

func init() {
	SchemeBuilder.Register(&GoofyCluster{}, &GoofyClusterList{})
}
