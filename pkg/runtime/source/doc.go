/*
Package source provides event streams to hook up to Controllers with Controller.Watch, and the
Subscriptions feeding caches with notifications from an external event source.

The implementation is derived from sigs.k8s.io/controller-runtime/pkg/source and the main difference are:
- sources are generic on the object type.
- the package provide only one sources implementation, Kind.
- Channel and SharedInformerSubscription implement cache.Subscription on top of a channel of notifications or a client-go informer.
*/
package source
