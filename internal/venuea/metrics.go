package venuea

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	OrdersPlacedTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "xvenue_arb_venuea_orders_placed_total",
		Help: "Total Venue A leg orders placed, by side",
	}, []string{"side"})

	AuthRetriesTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "xvenue_arb_venuea_auth_retries_total",
		Help: "Total requests retried once after a 401 with a freshly-signed timestamp",
	})

	OrderLatencySeconds = promauto.NewHistogram(prometheus.HistogramOpts{
		Name:    "xvenue_arb_venuea_order_latency_seconds",
		Help:    "Venue A order placement latency",
		Buckets: prometheus.DefBuckets,
	})
)
