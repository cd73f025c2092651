// internal/metrics/metrics.go
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// RegistrationsTotal counts pipeline runs by terminal state.
	RegistrationsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "framelock",
		Name:      "registrations_total",
		Help:      "Capture registration pipeline runs by outcome.",
	}, []string{"outcome"})

	// ReconcileOutcomes makes record-store drift observable: reconciliation
	// never fails the pipeline, so operators watch this instead of errors.
	ReconcileOutcomes = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "framelock",
		Name:      "reconcile_outcomes_total",
		Help:      "Record store reconciliation results by status.",
	}, []string{"status"})

	// CollectionCreations counts on-chain collection provisioning events.
	// More than one per chain indicates fragmented collections.
	CollectionCreations = promauto.NewCounter(prometheus.CounterOpts{
		Namespace: "framelock",
		Name:      "collection_creations_total",
		Help:      "On-chain collection contracts created by this process.",
	})
)
