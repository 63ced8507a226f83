package reconcile

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// cyclesTotal counts reconciliation cycles
	cyclesTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "quaderno_reconcile_cycles_total",
		Help: "Total reconciliation cycles run",
	})

	// cycleDuration tracks how long one cycle takes
	cycleDuration = promauto.NewHistogram(prometheus.HistogramOpts{
		Name:    "quaderno_reconcile_cycle_duration_seconds",
		Help:    "Reconciliation cycle duration in seconds",
		Buckets: prometheus.ExponentialBuckets(0.0001, 2, 12),
	})

	// sharedNodes is the size of the shared node index after a cycle
	sharedNodes = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "quaderno_shared_nodes",
		Help: "Entries in the shared node index",
	})

	// nodeActions counts per-node decisions by action
	nodeActions = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "quaderno_shared_node_actions_total",
		Help: "Shared node reconciliation actions by type",
	}, []string{"action"}) // write_back, refresh, page_wins, collision, removed

	// queryRuns counts formula executions by scope and outcome
	queryRuns = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "quaderno_formula_runs_total",
		Help: "Formula executions by scope and outcome",
	}, []string{"scope", "outcome"}) // scope: full, restricted; outcome: nodes, text, unresolved

	// pageSaves counts persistence attempts by outcome
	pageSaves = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "quaderno_page_saves_total",
		Help: "Page saves by outcome",
	}, []string{"outcome"}) // ok, conflict, transport
)
