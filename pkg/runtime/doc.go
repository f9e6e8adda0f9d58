/*
Package runtime implements the primitives for building controllers reconciling external resources.

Objects are mirrored in caches fed by a Subscription to an external event source, e.g. a client-go
informer or a channel of notifications. A cache must be started before it can be read, and it is started
by the Manager before the controllers.

Controllers read the objects to reconcile from a cache; for every reconciliation a dependent.Context is
created, the dependent resources of the controller are reconciled, and then the Reconciler is called.
Failed reconciliations are retried according to a retry.Policy, and Reconcilers implementing
reconcile.ErrorStatusHandler can report every failed attempt in the status of the reconciled object.
*/
package runtime
