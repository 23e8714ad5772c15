package discovery

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	VenueAContractsTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "xvenue_arb_discovery_venue_a_contracts_total",
		Help: "Total Venue A contracts fetched during discovery",
	})

	VenueBMarketsTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "xvenue_arb_discovery_venue_b_markets_total",
		Help: "Total Venue B markets fetched during discovery",
	})

	PairsMatchedTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "xvenue_arb_discovery_pairs_matched_total",
		Help: "Total cross-venue market pairs matched",
	})

	PairErrorsTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "xvenue_arb_discovery_pair_errors_total",
		Help: "Total per-pair discovery errors (canonicalization misses, unmatched contracts, missing outcome token ids)",
	})

	AmbiguousMatchesTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "xvenue_arb_discovery_ambiguous_matches_total",
		Help: "Total join keys with more than one Venue B candidate",
	})

	UnsupportedMarketTypeTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "xvenue_arb_discovery_unsupported_market_type_total",
		Help: "Total contracts skipped because TOTAL/SPREAD matching is not yet implemented",
	})

	DiscoveryDurationSeconds = promauto.NewHistogram(prometheus.HistogramOpts{
		Name:    "xvenue_arb_discovery_duration_seconds",
		Help:    "Duration of a full discovery run",
		Buckets: prometheus.DefBuckets,
	})
)
