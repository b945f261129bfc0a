// Package metrics exposes the Prometheus collectors for the staking
// workflow. Collectors are registered via promauto at init time and
// served on /metrics by the API server.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// StakesPlaced counts successfully placed stakes by kind.
var StakesPlaced = promauto.NewCounterVec(prometheus.CounterOpts{
	Namespace: "truthchain",
	Name:      "stakes_placed_total",
	Help:      "Number of stakes successfully placed, by kind.",
}, []string{"kind"})

// StakesRejected counts stake requests rejected at a precondition, by reason.
var StakesRejected = promauto.NewCounterVec(prometheus.CounterOpts{
	Namespace: "truthchain",
	Name:      "stakes_rejected_total",
	Help:      "Number of stake requests rejected before execution, by reason.",
}, []string{"reason"})

// StakesReplayed counts stake requests served from an idempotency-key match.
var StakesReplayed = promauto.NewCounter(prometheus.CounterOpts{
	Namespace: "truthchain",
	Name:      "stakes_replayed_total",
	Help:      "Number of stake requests replayed via idempotency key.",
})

// CompensationsApplied counts compensating credits after a failed record creation.
var CompensationsApplied = promauto.NewCounter(prometheus.CounterOpts{
	Namespace: "truthchain",
	Name:      "stake_compensations_total",
	Help:      "Number of compensating credits applied after record-store failures.",
})

// ReconciliationRequired counts the unrecoverable case: the compensating
// credit itself failed and an operator has to intervene.
var ReconciliationRequired = promauto.NewCounter(prometheus.CounterOpts{
	Namespace: "truthchain",
	Name:      "reconciliation_required_total",
	Help:      "Number of stakes left in a state requiring manual reconciliation.",
})

// OracleSkips counts oracle readings discarded by the zero/unavailable guard.
var OracleSkips = promauto.NewCounter(prometheus.CounterOpts{
	Namespace: "truthchain",
	Name:      "oracle_readings_skipped_total",
	Help:      "Number of chain oracle readings discarded as unusable.",
})

// OracleAdjustments counts balance credits applied from oracle readings.
var OracleAdjustments = promauto.NewCounter(prometheus.CounterOpts{
	Namespace: "truthchain",
	Name:      "oracle_adjustments_total",
	Help:      "Number of balance adjustments applied from chain oracle readings.",
})
