/*
Package cache defines a Cache mirroring the state of an external resource type.

The Informer binds a Store to a Subscription delivering add, update and delete notifications
from an external event source; the Store is only written by the Subscription, while reconcilers
read from it concurrently.

An Informer must be started before it can be read, and Start blocks until the initial
synchronization with the event source is completed; reading a cache not started (or already
stopped) fails with a LifecycleError instead of returning stale state.
*/
package cache
