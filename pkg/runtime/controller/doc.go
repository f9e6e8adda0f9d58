/*
Package controller provides the Controller driving the reconciliation of objects read from a cache.

The implementation is derived from sigs.k8s.io/controller-runtime/pkg/controller and the main difference are:
- controllers are generic on the object type, and pass the object read from the cache to the Reconciler.
- a dependent.Context is created for every reconciliation, and the registered dependents are reconciled
  before the Reconciler.
- failed reconciliations are retried according to a retry.Policy, and reported to the Reconciler
  if it implements reconcile.ErrorStatusHandler.
*/
package controller
