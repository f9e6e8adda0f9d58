package reconcile

import (
	"context"

	"sigs.k8s.io/controller-runtime/pkg/client"
)

// RetryInfo describes the attempt that failed.
type RetryInfo struct {
	// Attempt is the index of the failed attempt, starting from 0.
	Attempt int

	// LastAttempt is true if the retry policy does not allow further attempts.
	LastAttempt bool
}

// ErrorStatusHandler is implemented by Reconcilers reporting failures in the status of the reconciled object.
type ErrorStatusHandler[T client.Object] interface {
	// UpdateErrorStatus is called after each failed attempt with a copy of the object being reconciled.
	UpdateErrorStatus(ctx context.Context, obj T, info RetryInfo, err error) ErrorStatusUpdate[T]
}

// ErrorStatusUpdate tells the Controller how to handle a failed attempt.
type ErrorStatusUpdate[T client.Object] struct {
	obj          T
	updateStatus bool
	noRetry      bool
}

// UpdateErrorStatus returns an ErrorStatusUpdate writing the status of obj.
func UpdateErrorStatus[T client.Object](obj T) ErrorStatusUpdate[T] {
	return ErrorStatusUpdate[T]{obj: obj, updateStatus: true}
}

// DefaultErrorProcessing returns an ErrorStatusUpdate leaving the status untouched.
func DefaultErrorProcessing[T client.Object]() ErrorStatusUpdate[T] {
	return ErrorStatusUpdate[T]{}
}

// WithNoRetry prevents further attempts, regardless of the retry policy.
func (u ErrorStatusUpdate[T]) WithNoRetry() ErrorStatusUpdate[T] {
	u.noRetry = true
	return u
}

// Resource returns the object whose status should be written, if any.
func (u ErrorStatusUpdate[T]) Resource() (T, bool) {
	return u.obj, u.updateStatus
}

func (u ErrorStatusUpdate[T]) NoRetry() bool {
	return u.noRetry
}
