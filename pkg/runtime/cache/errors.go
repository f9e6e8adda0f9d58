package cache

import (
	"fmt"

	"github.com/pkg/errors"
)

// LifecycleReason describes why a cache operation was rejected.
type LifecycleReason string

const (
	ReasonAlreadyStarted LifecycleReason = "AlreadyStarted"
	ReasonNotStarted     LifecycleReason = "NotStarted"
	ReasonSyncFailed     LifecycleReason = "SyncFailed"
)

// LifecycleError is returned when a cache is used in a state that does not allow the operation,
// e.g. starting it twice or reading from it after Stop. It is fatal for the cache instance
// only; Start must be called again.
type LifecycleError struct {
	Cache  string
	Reason LifecycleReason
	Err    error
}

func (e *LifecycleError) Error() string {
	msg := fmt.Sprintf("cache %q: ", e.Cache)
	switch e.Reason {
	case ReasonAlreadyStarted:
		msg += "started more than once"
	case ReasonNotStarted:
		msg += "not started"
	case ReasonSyncFailed:
		msg += "failed to sync"
	default:
		msg += string(e.Reason)
	}
	if e.Err != nil {
		msg += ": " + e.Err.Error()
	}
	return msg
}

func (e *LifecycleError) Unwrap() error {
	return e.Err
}

// IsLifecycleError returns true if err is a LifecycleError.
func IsLifecycleError(err error) bool {
	var le *LifecycleError
	return errors.As(err, &le)
}

// IsAlreadyStarted returns true if err reports a cache started more than once.
func IsAlreadyStarted(err error) bool {
	return hasReason(err, ReasonAlreadyStarted)
}

// IsNotStarted returns true if err reports a read or write on a cache not started or stopped.
func IsNotStarted(err error) bool {
	return hasReason(err, ReasonNotStarted)
}

// IsSyncFailed returns true if err reports a cache that did not complete the initial sync.
func IsSyncFailed(err error) bool {
	return hasReason(err, ReasonSyncFailed)
}

func hasReason(err error, reason LifecycleReason) bool {
	var le *LifecycleError
	if !errors.As(err, &le) {
		return false
	}
	return le.Reason == reason
}
