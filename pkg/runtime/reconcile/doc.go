/*
Package reconcile defines the Reconciler interface; Reconciler is provided
to Controllers at creation time as the API implementation.

The implementation is derived from sigs.k8s.io/controller-runtime/pkg/reconcile and the main differences are:
- Reconcilers receive the object read from the cache and a dependent.Context scoped to the reconciliation.
- Reconcilers can implement ErrorStatusHandler to report failed attempts in the object status.
*/
package reconcile
