package venueb

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	OrdersPlacedTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "xvenue_arb_venueb_orders_placed_total",
		Help: "Total Venue B leg orders placed, by side",
	}, []string{"side"})

	OrderLatencySeconds = promauto.NewHistogram(prometheus.HistogramOpts{
		Name:    "xvenue_arb_venueb_order_latency_seconds",
		Help:    "Venue B order placement latency",
		Buckets: prometheus.DefBuckets,
	})

	BookSnapshotsTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "xvenue_arb_venueb_book_snapshots_total",
		Help: "Total full orderbook snapshot (\"book\") messages applied",
	})

	PriceChangesTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "xvenue_arb_venueb_price_changes_total",
		Help: "Total incremental (\"price_change\") messages applied",
	})
)
