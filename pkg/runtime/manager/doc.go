/*
Package manager defines a Manager for caches and controllers.

Caches mirror external resources and are started first, each one blocking until synced;
controllers are started after all the caches, and the caches are stopped when the Manager context is done.
*/
package manager
