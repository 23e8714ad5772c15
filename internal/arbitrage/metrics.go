package arbitrage

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// OpportunitiesDetectedTotal tracks arbitrage opportunities detected.
	OpportunitiesDetectedTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "xvenue_arb_opportunities_detected_total",
		Help: "Total number of arbitrage opportunities detected",
	})

	// OpportunityCostCents tracks the total leg cost of detected
	// opportunities, in cents.
	OpportunityCostCents = promauto.NewHistogram(prometheus.HistogramOpts{
		Name:    "xvenue_arb_opportunity_cost_cents",
		Help:    "Total leg cost (including fees) of detected opportunities, in cents",
		Buckets: []float64{80, 85, 90, 92, 94, 96, 98, 99, 100},
	})

	// DetectionDurationSeconds tracks per-tick detection latency.
	DetectionDurationSeconds = promauto.NewHistogram(prometheus.HistogramOpts{
		Name:    "xvenue_arb_detection_duration_seconds",
		Help:    "Duration of one OnTick evaluation",
		Buckets: prometheus.DefBuckets,
	})

	// OpportunitiesRejectedTotal tracks ticks that yielded no opportunity, by reason.
	OpportunitiesRejectedTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "xvenue_arb_opportunities_rejected_total",
			Help: "Total number of ticks that did not yield an opportunity, by reason",
		},
		[]string{"reason"},
	)

	// DetectorDropsTotal tracks opportunities dropped because the
	// execution channel was full.
	DetectorDropsTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "xvenue_arb_detector_drops_total",
		Help: "Total opportunities dropped because the execution channel was full",
	})
)
