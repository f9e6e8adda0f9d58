// Package builder wires a Controller to its caches and dependents, and adds both to a Manager.
package builder
