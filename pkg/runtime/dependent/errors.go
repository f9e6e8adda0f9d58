package dependent

import (
	"fmt"
	"reflect"

	"github.com/pkg/errors"
)

// ConfigurationError reports a Registry or Context used in a way the controller was not configured for,
// e.g. reading a mandatory attribute that was never set.
type ConfigurationError struct {
	Message string
}

func (e *ConfigurationError) Error() string {
	return e.Message
}

// NotFoundError reports a lookup for a dependent resource type with no registered instance.
type NotFoundError struct {
	Type reflect.Type
}

func (e *NotFoundError) Error() string {
	return fmt.Sprintf("no dependent resource of type %s registered", e.Type)
}

// AmbiguousMatchError reports a lookup for a dependent resource type with more than one registered instance.
type AmbiguousMatchError struct {
	Type    reflect.Type
	Matches int
}

func (e *AmbiguousMatchError) Error() string {
	return fmt.Sprintf("%d dependent resources of type %s registered, expected exactly one", e.Matches, e.Type)
}

// IsConfigurationError returns true if err is a ConfigurationError.
func IsConfigurationError(err error) bool {
	var ce *ConfigurationError
	return errors.As(err, &ce)
}

// IsNotFound returns true if err is a NotFoundError.
func IsNotFound(err error) bool {
	var nf *NotFoundError
	return errors.As(err, &nf)
}

// IsAmbiguousMatch returns true if err is an AmbiguousMatchError.
func IsAmbiguousMatch(err error) bool {
	var am *AmbiguousMatchError
	return errors.As(err, &am)
}
