// Package metrics exposes Prometheus instrumentation for the fire engine
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// Handled fires partitioned by result
	FiresHandled = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "campfire_fires_handled_total",
			Help: "Total number of event fires handled by the executor",
		},
		[]string{"result"},
	)

	// Fires lost to a concurrent claim
	FireClaimConflicts = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "campfire_fire_claim_conflicts_total",
			Help: "Number of due fires already claimed by another worker",
		},
	)

	// Materialization tasks partitioned by scope (event or contact)
	MaterializationsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "campfire_materializations_total",
			Help: "Total number of materialization tasks processed",
		},
		[]string{"scope"},
	)

	// Materialization tasks that gave up after all retries
	MaterializationFailures = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "campfire_materialization_failures_total",
			Help: "Number of materialization tasks dropped after exhausting retries",
		},
	)

	// Lock acquisitions that found the lock held
	LockContention = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "campfire_lock_contention_total",
			Help: "Number of lock acquisitions that found the lock already held",
		},
		[]string{"lock"},
	)

	// Fire rows removed by the trim worker, partitioned by reason
	FiresTrimmed = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "campfire_fires_trimmed_total",
			Help: "Total number of fire rows deleted by the trim worker",
		},
		[]string{"reason"},
	)

	// Depth of the async materialization queue
	MaterializeQueueDepth = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "campfire_materialize_queue_depth",
			Help: "Number of materialization tasks waiting in the queue",
		},
	)
)
