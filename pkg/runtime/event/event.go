package event

import (
	"sigs.k8s.io/controller-runtime/pkg/client"
)

// Type is the kind of change a Notification describes.
type Type string

const (
	Add    Type = "Add"
	Update Type = "Update"
	Delete Type = "Delete"
)

// Notification is a resource change delivered by the external event source.
type Notification[T client.Object] struct {
	Type   Type
	Object T

	// OldObject is set only for Update notifications, when known.
	OldObject T
}

type CreateEvent[T client.Object] struct {
	Object T
}

type UpdateEvent[T client.Object] struct {
	ObjectOld T
	ObjectNew T
}

type DeleteEvent[T client.Object] struct {
	Object T
}
