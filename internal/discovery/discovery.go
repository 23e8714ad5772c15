// Package discovery fetches each venue's active catalog, canonicalizes
// participant names through the Team Cache, and joins matching contracts
// into the paired MarketRecords that become the Global State topology.
package discovery

import (
	"context"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/arbcore/xvenue-arb/internal/state"
	"github.com/arbcore/xvenue-arb/pkg/types"
)

// Result is the outcome of a discovery run: the matched pairs plus any
// per-pair errors accumulated along the way. A zero-pair result with no
// errors is not itself fatal here; the caller decides whether an empty
// topology is a startup failure.
type Result struct {
	Pairs  []*state.MarketRecord
	Errors []error
}

// Client orchestrates discovery across both venues.
type Client struct {
	venueA      *VenueACatalogClient
	venueB      *VenueBCatalogClient
	teamCache   *TeamCache
	marketCache *MarketCache
	logger      *zap.Logger
}

func NewClient(venueA *VenueACatalogClient, venueB *VenueBCatalogClient, teamCache *TeamCache, marketCache *MarketCache, logger *zap.Logger) *Client {
	return &Client{
		venueA:      venueA,
		venueB:      venueB,
		teamCache:   teamCache,
		marketCache: marketCache,
		logger:      logger,
	}
}

// joinKey identifies a candidate match: market type, canonicalized
// participant set (order-independent), event date bucket, and line value.
type joinKey struct {
	marketType types.MarketType
	participants string // sorted, comma-joined canonical keys
	eventDate    string // YYYY-MM-DD bucket
	lineValue    float64
}

// DiscoverAll fetches and pairs both venues' catalogs restricted to leagues.
func (c *Client) DiscoverAll(ctx context.Context, leagues []string) (*Result, error) {
	return c.discover(ctx, leagues, false)
}

// DiscoverAllForce bypasses the market cache's cached token/neg_risk
// entries, forcing fresh lookups (cache entries are still written back).
func (c *Client) DiscoverAllForce(ctx context.Context, leagues []string) (*Result, error) {
	return c.discover(ctx, leagues, true)
}

// DiscoverSingleVenue fetches only Venue A, producing MarketRecords with no
// Venue B side populated. Used when Venue B is disabled.
func (c *Client) DiscoverSingleVenue(ctx context.Context, leagues []string) (*Result, error) {
	start := time.Now()
	defer func() { DiscoveryDurationSeconds.Observe(time.Since(start).Seconds()) }()

	contracts, err := c.venueA.FetchActiveEvents(ctx, leagues)
	if err != nil {
		return nil, fmt.Errorf("fetch venue A catalog: %w", err)
	}
	VenueAContractsTotal.Add(float64(len(contracts)))

	res := &Result{}
	for i := range contracts {
		ct := &contracts[i]
		m := state.NewMarketRecord()
		m.Description = ct.Title
		m.MarketType = ct.MarketType
		m.VenueATicker = ct.Ticker
		m.PairMeta = &state.PairMeta{
			Participants: ct.Participants,
			EventDate:    ct.EventStart.Format("2006-01-02"),
			LineValue:    ct.LineValue,
		}
		res.Pairs = append(res.Pairs, m)
	}
	return res, nil
}

func (c *Client) discover(ctx context.Context, leagues []string, force bool) (*Result, error) {
	start := time.Now()
	defer func() { DiscoveryDurationSeconds.Observe(time.Since(start).Seconds()) }()

	res := &Result{}

	contractsA, err := c.venueA.FetchActiveEvents(ctx, leagues)
	if err != nil {
		return nil, fmt.Errorf("fetch venue A catalog: %w", err)
	}
	VenueAContractsTotal.Add(float64(len(contractsA)))

	marketsB, err := c.venueB.FetchActiveMarkets(ctx, leagues)
	if err != nil {
		return nil, fmt.Errorf("fetch venue B catalog: %w", err)
	}
	VenueBMarketsTotal.Add(float64(len(marketsB)))

	indexB := c.indexVenueB(marketsB, res)

	for i := range contractsA {
		ct := &contractsA[i]
		if ct.MarketType != types.MarketTypeH2H {
			// The join key (market_type, participants, event_date,
			// line_value) is type-generic, but TOTAL/SPREAD contracts carry
			// only the single subject leg in Participants (see
			// types.VenueAContract), not the game's two teams, so they
			// can't be canonicalized through buildJoinKey as-is. Until
			// TOTAL/SPREAD matching is implemented, report them rather than
			// drop them silently so the gap is visible in diagnostics.
			res.Errors = append(res.Errors, &types.DiscoveryError{
				Venue: "A", Subject: ct.Ticker, Message: fmt.Sprintf("unsupported market type %s: TOTAL/SPREAD matching not implemented", ct.MarketType),
			})
			UnsupportedMarketTypeTotal.Inc()
			continue
		}

		key, err := c.buildJoinKey(ct.MarketType, ct.Participants, ct.EventStart, ct.LineValue)
		if err != nil {
			res.Errors = append(res.Errors, &types.DiscoveryError{
				Venue: "A", Subject: ct.Ticker, Message: err.Error(),
			})
			PairErrorsTotal.Inc()
			continue
		}

		candidates := indexB[key]
		if len(candidates) == 0 {
			res.Errors = append(res.Errors, &types.DiscoveryError{
				Venue: "A", Subject: ct.Ticker, Message: "no venue B candidate matched",
			})
			PairErrorsTotal.Inc()
			continue
		}

		chosen := candidates[0]
		tieBreak := false
		if len(candidates) > 1 {
			chosen = highestVolume(candidates)
			tieBreak = true
			AmbiguousMatchesTotal.Inc()
			c.logger.Warn("ambiguous-venue-b-match",
				zap.String("venue-a-ticker", ct.Ticker),
				zap.Int("candidate-count", len(candidates)),
				zap.String("chosen-condition-id", chosen.ConditionID))
		}

		negRisk, yesToken, noToken := c.resolveVenueBIDs(chosen, force, res)

		m := state.NewMarketRecord()
		m.Description = ct.Title
		m.MarketType = ct.MarketType
		m.VenueATicker = ct.Ticker
		m.VenueBConditionID = chosen.ConditionID
		m.VenueBYesToken = yesToken
		m.VenueBNoToken = noToken
		m.VenueBNegRisk = negRisk
		m.PairMeta = &state.PairMeta{
			Participants:     ct.Participants,
			EventDate:        ct.EventStart.Format("2006-01-02"),
			LineValue:        ct.LineValue,
			TieBreakApplied:  tieBreak,
			TieBreakReason:   "highest 24h volume",
			VenueBCandidates: len(candidates),
		}

		res.Pairs = append(res.Pairs, m)
		PairsMatchedTotal.Inc()
	}

	if err := c.marketCache.Flush(); err != nil {
		c.logger.Warn("market-cache-flush-failed", zap.Error(err))
	}

	return res, nil
}

// indexVenueB canonicalizes every Venue B market's participants and groups
// them by join key. Canonicalization misses accumulate as errors but do not
// drop the venue-A side of discovery.
func (c *Client) indexVenueB(markets []types.VenueBMarket, res *Result) map[joinKey][]types.VenueBMarket {
	idx := make(map[joinKey][]types.VenueBMarket)
	for _, m := range markets {
		if m.MarketType != types.MarketTypeH2H {
			// Same TOTAL/SPREAD limitation as discover(): report instead of
			// silently excluding from the join index.
			res.Errors = append(res.Errors, &types.DiscoveryError{
				Venue: "B", Subject: m.ConditionID, Message: fmt.Sprintf("unsupported market type %s: TOTAL/SPREAD matching not implemented", m.MarketType),
			})
			UnsupportedMarketTypeTotal.Inc()
			continue
		}
		key, err := c.buildJoinKey(m.MarketType, m.Participants, m.EventStart, m.LineValue)
		if err != nil {
			res.Errors = append(res.Errors, &types.DiscoveryError{
				Venue: "B", Subject: m.ConditionID, Message: err.Error(),
			})
			PairErrorsTotal.Inc()
			continue
		}
		idx[key] = append(idx[key], m)
	}
	return idx
}

// buildJoinKey canonicalizes participants via the Team Cache and builds a
// (market_type, participants, event_date, line_value) key. An unresolved
// participant name is reported as an error rather than silently dropped.
func (c *Client) buildJoinKey(marketType types.MarketType, participants []string, eventStart time.Time, lineValue float64) (joinKey, error) {
	canon := make([]string, len(participants))
	for i, p := range participants {
		ck, ok := c.teamCache.Canonicalize(p)
		if !ok {
			return joinKey{}, fmt.Errorf("unmapped participant name %q", p)
		}
		canon[i] = ck
	}
	sortStrings(canon)

	joined := ""
	for i, c := range canon {
		if i > 0 {
			joined += ","
		}
		joined += c
	}

	return joinKey{
		marketType:   marketType,
		participants: joined,
		eventDate:    eventStart.Format("2006-01-02"),
		lineValue:    lineValue,
	}, nil
}

func sortStrings(s []string) {
	for i := 1; i < len(s); i++ {
		for j := i; j > 0 && s[j-1] > s[j]; j-- {
			s[j-1], s[j] = s[j], s[j-1]
		}
	}
}

func highestVolume(candidates []types.VenueBMarket) types.VenueBMarket {
	best := candidates[0]
	for _, c := range candidates[1:] {
		if c.Volume24h > best.Volume24h {
			best = c
		}
	}
	return best
}

// resolveVenueBIDs looks up (or, on force/miss, populates) the market
// cache's neg_risk flag and token ids for a matched Venue B market.
func (c *Client) resolveVenueBIDs(m types.VenueBMarket, force bool, res *Result) (negRisk bool, yesToken, noToken string) {
	if !force {
		if entry, ok := c.marketCache.Lookup(m.ConditionID); ok {
			return entry.NegRisk, entry.Tokens.Yes, entry.Tokens.No
		}
	}

	if m.YesTokenID == "" || m.NoTokenID == "" {
		res.Errors = append(res.Errors, &types.DiscoveryError{
			Venue: "B", Subject: m.ConditionID, Message: "missing outcome token ids",
		})
		PairErrorsTotal.Inc()
		return m.NegRisk, m.YesTokenID, m.NoTokenID
	}

	entry := MarketCacheEntry{NegRisk: m.NegRisk}
	entry.Tokens.Yes = m.YesTokenID
	entry.Tokens.No = m.NoTokenID
	c.marketCache.Put(m.ConditionID, entry)

	return m.NegRisk, m.YesTokenID, m.NoTokenID
}
