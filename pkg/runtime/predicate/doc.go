/*
Package predicate defines Predicates used by Controllers to filter Events before they are provided to EventHandlers.

The implementation is derived from sigs.k8s.io/controller-runtime/pkg/predicate and the main difference is that
predicates are generic on the object type.
*/
package predicate
