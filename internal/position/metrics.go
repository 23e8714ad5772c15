package position

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// UpdatesAppliedTotal counts position updates applied by the writer task.
	UpdatesAppliedTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "xvenue_arb_position_updates_applied_total",
		Help: "Total position updates applied by the position writer task",
	})

	// ChannelDepth tracks the current occupancy of the bounded position
	// update channel.
	ChannelDepth = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "xvenue_arb_position_channel_depth",
		Help: "Current number of queued position updates",
	})

	// SnapshotWritesTotal counts successful positions.json writes.
	SnapshotWritesTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "xvenue_arb_position_snapshot_writes_total",
		Help: "Total successful positions.json snapshot writes",
	})

	// SnapshotWriteErrorsTotal counts failed positions.json writes.
	SnapshotWriteErrorsTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "xvenue_arb_position_snapshot_write_errors_total",
		Help: "Total failed positions.json snapshot writes",
	})

	// RealizedCents tracks cumulative realized P&L across all markets, in
	// cents.
	RealizedCents = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "xvenue_arb_position_realized_cents",
		Help: "Cumulative realized P&L across all tracked markets, in cents",
	})

	// LimitRejectionsTotal counts execution candidates rejected by the
	// position-limit check.
	LimitRejectionsTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "xvenue_arb_position_limit_rejections_total",
		Help: "Total execution candidates rejected for exceeding the per-market position limit",
	})
)
