package dependent

import (
	"context"
	"fmt"
	"sync"

	"github.com/pkg/errors"
	"golang.org/x/sync/errgroup"
	utilerrors "k8s.io/apimachinery/pkg/util/errors"
	ctrl "sigs.k8s.io/controller-runtime"
	"sigs.k8s.io/controller-runtime/pkg/client"

	"github.com/fabriziopandini/goofy-runtime/pkg/runtime/metrics"
)

// Workflow reconciles the dependents of a Registry, running independent dependents concurrently.
type Workflow struct {
	maxConcurrency int
}

// NewWorkflow returns a Workflow reconciling at most maxConcurrency dependents at the same time;
// values lower than 1 mean no limit.
func NewWorkflow(maxConcurrency int) *Workflow {
	return &Workflow{maxConcurrency: maxConcurrency}
}

// Reconcile reconciles every dependent registered in the Context registry and records each result
// in the Context. A dependent is reconciled only after all its dependencies succeeded; errors from all the
// dependents are aggregated.
func (w *Workflow) Reconcile(ctx context.Context, primary client.Object, rc *Context) error {
	log := ctrl.LoggerFrom(ctx)

	dependents := rc.registry.All()
	if len(dependents) == 0 {
		return nil
	}

	done := make(map[DependentResource]chan struct{}, len(dependents))
	for _, dr := range dependents {
		done[dr] = make(chan struct{})
	}

	var lock sync.Mutex
	failed := map[DependentResource]error{}

	g := &errgroup.Group{}
	if w.maxConcurrency > 0 {
		g.SetLimit(w.maxConcurrency)
	}

	// Dependents are sorted by dependency, so each goroutine waits only for goroutines started before.
	for _, dr := range dependents {
		g.Go(func() error {
			defer close(done[dr])
			name := fmt.Sprintf("%T", dr)
			log := log.WithValues("dependent", name)

			for _, dep := range rc.registry.DependenciesOf(dr) {
				<-done[dep]
				lock.Lock()
				_, depFailed := failed[dep]
				lock.Unlock()
				if depFailed {
					log.V(4).Info("Skipping dependent resource, a dependency failed", "dependency", fmt.Sprintf("%T", dep))
					lock.Lock()
					failed[dr] = nil
					lock.Unlock()
					return nil
				}
			}

			result, err := dr.Reconcile(ctrl.LoggerInto(ctx, log), primary, rc)
			if err != nil {
				err = errors.Wrapf(err, "failed to reconcile dependent resource %s", name)
				lock.Lock()
				failed[dr] = err
				lock.Unlock()
				return err
			}
			rc.SetReconcileResult(dr, result)
			metrics.DependentReconcileTotal.WithLabelValues(name, string(result.Operation)).Inc()
			log.V(4).Info("Dependent resource reconciled", "result", result.String())
			return nil
		})
	}
	// The group has no context, so a failure does not cancel the other dependents; Wait returns
	// the first error only, all of them are collected in failed.
	if err := g.Wait(); err == nil {
		return nil
	}

	var errs []error
	for _, dr := range dependents {
		if err := failed[dr]; err != nil {
			errs = append(errs, err)
		}
	}
	return utilerrors.NewAggregate(errs)
}
