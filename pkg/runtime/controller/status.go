package controller

import (
	"context"
	"encoding/json"

	jsonpatch "github.com/evanphx/json-patch/v5"
	"github.com/pkg/errors"
	"k8s.io/apimachinery/pkg/types"
	"sigs.k8s.io/controller-runtime/pkg/client"

	creconcile "github.com/fabriziopandini/goofy-runtime/pkg/runtime/reconcile"
)

// writtenStatus is an object written by the controller, and the version of the cached object
// it was computed from.
type writtenStatus[T client.Object] struct {
	cachedVersion string
	obj           T

	// versions are the resource versions written in the current retry chain.
	versions []string
}

// patchStatus writes the difference between original and obj through the status subresource.
// The written object is used instead of the cached one until the cache observes the change.
func (c *controller[T]) patchStatus(ctx context.Context, req creconcile.Request, cachedVersion string, original, obj T) error {
	originalJSON, err := json.Marshal(original)
	if err != nil {
		return errors.Wrapf(err, "failed to marshal %s", req)
	}
	modifiedJSON, err := json.Marshal(obj)
	if err != nil {
		return errors.Wrapf(err, "failed to marshal %s", req)
	}
	patch, err := jsonpatch.CreateMergePatch(originalJSON, modifiedJSON)
	if err != nil {
		return errors.Wrapf(err, "failed to compute the status patch for %s", req)
	}
	if string(patch) == "{}" {
		return nil
	}

	if err := c.statusWriter.Patch(ctx, obj, client.RawPatch(types.MergePatchType, patch)); err != nil {
		return errors.Wrapf(err, "failed to patch the status of %s", req)
	}
	c.recordStatus(req, cachedVersion, obj)
	return nil
}
