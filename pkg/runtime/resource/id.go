package resource

import (
	apierrors "k8s.io/apimachinery/pkg/api/errors"
	"k8s.io/apimachinery/pkg/types"
	"sigs.k8s.io/controller-runtime/pkg/client"
)

// ID uniquely identifies an external resource. IDs are comparable and can be used as map keys;
// two IDs are equal only if both Namespace and Name match exactly.
type ID struct {
	// Namespace is empty for cluster scoped resources.
	Namespace string
	Name      string
}

// FromObject returns the ID of obj.
func FromObject(obj client.Object) ID {
	return ID{Namespace: obj.GetNamespace(), Name: obj.GetName()}
}

// FromNamespacedName converts a NamespacedName into an ID.
func FromNamespacedName(key types.NamespacedName) ID {
	return ID{Namespace: key.Namespace, Name: key.Name}
}

// NamespacedName converts the ID into a NamespacedName.
func (id ID) NamespacedName() types.NamespacedName {
	return types.NamespacedName{Namespace: id.Namespace, Name: id.Name}
}

// Validate returns a BadRequest error if the ID has no name.
func (id ID) Validate() error {
	if id.Name == "" {
		return apierrors.NewBadRequest("resource name must not be empty")
	}
	return nil
}

func (id ID) String() string {
	if id.Namespace == "" {
		return id.Name
	}
	return id.Namespace + string(types.Separator) + id.Name
}
