package transport

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	ActiveConnections = promauto.NewGaugeVec(prometheus.GaugeOpts{
		Name: "xvenue_arb_transport_active_connections",
		Help: "Active streaming connections by venue",
	}, []string{"venue"})

	ReconnectAttemptsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "xvenue_arb_transport_reconnect_attempts_total",
		Help: "Total reconnection attempts by venue",
	}, []string{"venue"})

	ReconnectFailuresTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "xvenue_arb_transport_reconnect_failures_total",
		Help: "Total reconnection failures by venue",
	}, []string{"venue"})

	MessagesReceivedTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "xvenue_arb_transport_messages_received_total",
		Help: "Total raw messages received by venue",
	}, []string{"venue"})

	MessagesDroppedTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "xvenue_arb_transport_messages_dropped_total",
		Help: "Total messages dropped because the read channel was full",
	}, []string{"venue"})

	ConnectionDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "xvenue_arb_transport_connection_duration_seconds",
		Help:    "Connection lifetime before disconnect, by venue",
		Buckets: []float64{60, 300, 600, 1800, 3600, 7200, 14400, 28800, 43200, 86400},
	}, []string{"venue"})

	SubscriptionCount = promauto.NewGaugeVec(prometheus.GaugeOpts{
		Name: "xvenue_arb_transport_subscription_count",
		Help: "Active subscription count by venue",
	}, []string{"venue"})

	UnknownInstrumentDropsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "xvenue_arb_transport_unknown_instrument_drops_total",
		Help: "Delta messages referencing an instrument absent from Global State",
	}, []string{"venue"})
)
