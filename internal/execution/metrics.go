package execution

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	OpportunitiesReceived = promauto.NewCounter(prometheus.CounterOpts{
		Name: "xvenue_arb_execution_opportunities_received_total",
		Help: "Total number of arbitrage opportunities received for execution",
	})

	// OpportunitiesSkippedTotal tracks opportunities skipped before order
	// placement, by reason.
	OpportunitiesSkippedTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "xvenue_arb_execution_opportunities_skipped_total",
			Help: "Total number of opportunities skipped before order placement, by reason",
		},
		[]string{"reason"},
	)

	// ExecutionsTotal tracks fully-reconciled execution outcomes, by result.
	ExecutionsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "xvenue_arb_execution_outcomes_total",
			Help: "Total executions by reconciled outcome (both_filled, hedge_succeeded, one_sided, missed, dry_run)",
		},
		[]string{"result"},
	)

	ExecutionDurationSeconds = promauto.NewHistogram(prometheus.HistogramOpts{
		Name:    "xvenue_arb_execution_duration_seconds",
		Help:    "Duration of one opportunity's end-to-end execution attempt",
		Buckets: prometheus.DefBuckets,
	})

	RealizedCostCents = promauto.NewHistogram(prometheus.HistogramOpts{
		Name:    "xvenue_arb_execution_realized_cost_cents",
		Help:    "Realized total leg cost (including fees) for fully-filled executions, in cents",
		Buckets: []float64{80, 85, 90, 92, 94, 96, 98, 99, 100, 102, 105, 110},
	})

	DedupedTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "xvenue_arb_execution_deduped_total",
		Help: "Total opportunities skipped as duplicates within the dedupe window",
	})

	HedgeAttemptsTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "xvenue_arb_execution_hedge_attempts_total",
		Help: "Total single-retry hedge attempts after a one-sided fill",
	})

	HedgeSuccessTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "xvenue_arb_execution_hedge_success_total",
		Help: "Total hedge attempts that successfully closed the open leg",
	})
)
