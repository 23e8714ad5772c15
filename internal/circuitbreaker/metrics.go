package circuitbreaker

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// State is the error-rate Breaker's current state (0=Closed, 1=Open, 2=HalfOpen).
	State = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "xvenue_arb_breaker_state",
		Help: "Error-rate circuit breaker state (0=closed, 1=open, 2=half_open)",
	})

	StateChangesTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "xvenue_arb_breaker_state_changes_total",
		Help: "Total error-rate breaker state transitions, by to-state",
	}, []string{"to"})

	RejectedTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "xvenue_arb_breaker_rejected_total",
		Help: "Total execution attempts rejected because the error-rate breaker was open",
	})

	ErrorsRecordedTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "xvenue_arb_breaker_errors_recorded_total",
		Help: "Total errors recorded into the error-rate breaker, by severity",
	}, []string{"severity"})

	// Balance-breaker metrics (BalanceCircuitBreaker, Venue B funder wallet).
	BalanceEnabled = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "xvenue_arb_balance_breaker_enabled",
		Help: "Whether the balance breaker allows trade execution (1=enabled, 0=disabled)",
	})

	BalanceBalanceUSDC = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "xvenue_arb_balance_breaker_balance_usdc",
		Help: "Last checked USDC balance in the funder wallet",
	})

	BalanceDisableThreshold = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "xvenue_arb_balance_breaker_disable_threshold_usdc",
		Help: "Current USDC balance threshold for disabling execution",
	})

	BalanceEnableThreshold = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "xvenue_arb_balance_breaker_enable_threshold_usdc",
		Help: "Current USDC balance threshold for re-enabling execution",
	})

	BalanceAvgTradeSize = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "xvenue_arb_balance_breaker_avg_trade_size_usdc",
		Help: "Rolling average trade size from recent trades",
	})

	BalanceStateChanges = promauto.NewCounter(prometheus.CounterOpts{
		Name: "xvenue_arb_balance_breaker_state_changes_total",
		Help: "Total times the balance breaker changed state",
	})

	BalanceCheckDuration = promauto.NewHistogram(prometheus.HistogramOpts{
		Name:    "xvenue_arb_balance_breaker_check_duration_seconds",
		Help:    "Time taken to check funder wallet balance",
		Buckets: prometheus.DefBuckets,
	})
)
