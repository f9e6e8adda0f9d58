// Package metrics defines the Prometheus collectors exposed by the runtime.
// Collectors are registered in the controller-runtime metrics registry, so they are served
// together with the controller-runtime ones.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	crmetrics "sigs.k8s.io/controller-runtime/pkg/metrics"
)

const (
	ResultSuccess = "success"
	ResultError   = "error"
	ResultRequeue = "requeue"
)

var (
	// CacheNotifications counts notifications applied to a cache, by notification type.
	CacheNotifications = prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "goofy_cache_notifications_total",
		Help: "Total number of notifications applied to a cache, by type.",
	}, []string{"cache", "type"})

	// ReconcileTotal counts reconciliations, by result.
	ReconcileTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "goofy_reconcile_total",
		Help: "Total number of reconciliations per controller, by result.",
	}, []string{"controller", "result"})

	// ReconcileRetries counts reconciliations requeued by the retry policy.
	ReconcileRetries = prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "goofy_reconcile_retries_total",
		Help: "Total number of failed reconciliations scheduled for retry.",
	}, []string{"controller"})

	// ReconcileRetryExhausted counts reconciliations that failed after the last allowed attempt.
	ReconcileRetryExhausted = prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "goofy_reconcile_retry_exhausted_total",
		Help: "Total number of reconciliations which exhausted the retry attempts.",
	}, []string{"controller"})

	// DependentReconcileTotal counts dependent resource reconciliations, by operation.
	DependentReconcileTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "goofy_dependent_reconcile_total",
		Help: "Total number of dependent resource reconciliations, by operation.",
	}, []string{"dependent", "operation"})
)

func init() {
	crmetrics.Registry.MustRegister(
		CacheNotifications,
		ReconcileTotal,
		ReconcileRetries,
		ReconcileRetryExhausted,
		DependentReconcileTotal,
	)
}
