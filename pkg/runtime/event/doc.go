/*
Package event contains the definitions for the notifications delivered by an external event source
and for the Event types transformed into reconcile.Requests by handler.EventHandler.

The implementation is derived from sigs.k8s.io/controller-runtime/pkg/event and the main difference is that
events are generic on the object type they carry.
*/
package event
