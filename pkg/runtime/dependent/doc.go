/*
Package dependent provides the Context shared by the dependent resources taking part in one reconciliation.

A DependentResource manages one category of resources owned by the object being reconciled. Dependents are
registered once, at controller construction time, in a Registry; the Registry creates a new Context for every
reconciliation, and the Context is discarded when the reconciliation completes.

The Context holds an attribute store for ad hoc communication between dependents, the lookup of
registered dependents by type, and the result of the last reconciliation of each dependent.
*/
package dependent
