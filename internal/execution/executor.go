package execution

import (
	"context"
	"math"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/arbcore/xvenue-arb/internal/arbitrage"
	"github.com/arbcore/xvenue-arb/internal/circuitbreaker"
	"github.com/arbcore/xvenue-arb/internal/position"
	"github.com/arbcore/xvenue-arb/internal/state"
	"github.com/arbcore/xvenue-arb/internal/venuea"
	"github.com/arbcore/xvenue-arb/internal/venueb"
	"github.com/arbcore/xvenue-arb/pkg/types"
)

// defaultDedupeWindow is how long identical (market_id, direction) pairs are
// suppressed after the first one is seen, per the idempotence rule.
const defaultDedupeWindow = 250 * time.Millisecond

// defaultTradeSize is the contract count placed per leg when none is
// configured.
const defaultTradeSize = 10.0

// Config configures an Executor.
type Config struct {
	Global        *state.GlobalState
	Opportunities <-chan *arbitrage.Opportunity

	VenueA *venuea.Client
	VenueB *venueb.Client

	// Breaker gates every execution attempt; required.
	Breaker *circuitbreaker.Breaker
	// BalanceBreaker additionally gates execution on Venue B funder wallet
	// balance. Optional — nil disables this gate.
	BalanceBreaker *circuitbreaker.BalanceCircuitBreaker

	Positions            *position.Tracker
	MaxPositionContracts float64
	TradeSize            float64

	DryRun       bool
	DedupeWindow time.Duration

	Logger *zap.Logger
}

func (c *Config) setDefaults() {
	if c.TradeSize <= 0 {
		c.TradeSize = defaultTradeSize
	}
	if c.DedupeWindow <= 0 {
		c.DedupeWindow = defaultDedupeWindow
	}
}

type dedupeKey struct {
	marketID  uint16
	direction types.Direction
}

// Executor drains the opportunity channel, single-consumer, and places
// coordinated paired IOC orders across both venues. It gates every
// candidate through the circuit breakers and the position limit before
// touching either venue, and reconciles the resulting fills into the
// position tracker.
type Executor struct {
	cfg    Config
	logger *zap.Logger
	wg     sync.WaitGroup

	dedupeMu sync.Mutex
	lastSeen map[dedupeKey]time.Time
}

// New creates an Executor. Call Start to run its consumer loop.
func New(cfg Config) *Executor {
	cfg.setDefaults()
	return &Executor{
		cfg:      cfg,
		logger:   cfg.Logger,
		lastSeen: make(map[dedupeKey]time.Time),
	}
}

// Start runs the consumer loop until ctx is cancelled or the opportunity
// channel is closed.
func (e *Executor) Start(ctx context.Context) {
	e.wg.Add(1)
	go e.loop(ctx)
}

// Close waits for the consumer loop to exit.
func (e *Executor) Close() {
	e.wg.Wait()
}

func (e *Executor) loop(ctx context.Context) {
	defer e.wg.Done()

	for {
		select {
		case <-ctx.Done():
			return
		case opp, ok := <-e.cfg.Opportunities:
			if !ok {
				return
			}
			OpportunitiesReceived.Inc()
			start := time.Now()
			e.process(ctx, opp)
			ExecutionDurationSeconds.Observe(time.Since(start).Seconds())
		}
	}
}

// process runs one opportunity through the full pipeline: dedupe, circuit
// breaker gates, position check, dry-run short-circuit, paired order
// placement, and reconciliation.
func (e *Executor) process(ctx context.Context, opp *arbitrage.Opportunity) {
	if e.isDuplicate(opp) {
		DedupedTotal.Inc()
		OpportunitiesSkippedTotal.WithLabelValues("duplicate").Inc()
		return
	}

	if !e.cfg.Breaker.Allow() {
		OpportunitiesSkippedTotal.WithLabelValues("circuit_open").Inc()
		return
	}
	if e.cfg.BalanceBreaker != nil && !e.cfg.BalanceBreaker.IsEnabled() {
		OpportunitiesSkippedTotal.WithLabelValues("balance_breaker").Inc()
		return
	}

	record := e.cfg.Global.GetByID(opp.MarketID)
	if record == nil {
		e.logger.Warn("execution-unknown-market", zap.Uint16("market-id", opp.MarketID))
		OpportunitiesSkippedTotal.WithLabelValues("unknown_market").Inc()
		return
	}

	legA, legB := legsForDirection(opp.Direction)
	size := e.cfg.TradeSize

	if !e.cfg.Positions.WithinLimit(opp.MarketID, legA, size, e.cfg.MaxPositionContracts) ||
		!e.cfg.Positions.WithinLimit(opp.MarketID, legB, size, e.cfg.MaxPositionContracts) {
		position.LimitRejectionsTotal.Inc()
		OpportunitiesSkippedTotal.WithLabelValues("position_limit").Inc()
		return
	}

	a := record.CellA.Load()
	b := record.CellB.Load()
	priceA, priceB := pricesForDirection(opp.Direction, a, b)
	if priceA == 0 || priceB == 0 {
		// The quote moved to unquoted between detection and execution.
		OpportunitiesSkippedTotal.WithLabelValues("unquoted_at_execution").Inc()
		return
	}

	if e.cfg.DryRun {
		e.logger.Info("dry-run-execution",
			zap.String("opportunity-id", opp.ID),
			zap.Uint16("market-id", opp.MarketID),
			zap.String("direction", opp.Direction.String()),
			zap.Uint16("price-a-cents", priceA),
			zap.Uint16("price-b-cents", priceB),
			zap.Float64("size", size))
		e.writeReconciledPosition(ctx, opp, record, legA, legB, size, priceA, priceB, true, true)
		ExecutionsTotal.WithLabelValues("dry_run").Inc()
		e.cfg.Breaker.RecordSuccess()
		return
	}

	fillA, fillB := e.placeLegs(ctx, record, opp.Direction, priceA, priceB, size)
	e.reconcile(ctx, opp, record, legA, legB, priceA, priceB, size, fillA, fillB)
}

// negRiskFor reports whether the Venue B leg traded under this direction
// carries the neg_risk fee adjustment.
func negRiskFor(record *state.MarketRecord) bool {
	return record.VenueBNegRisk
}

func (e *Executor) isDuplicate(opp *arbitrage.Opportunity) bool {
	key := dedupeKey{marketID: opp.MarketID, direction: opp.Direction}

	e.dedupeMu.Lock()
	defer e.dedupeMu.Unlock()

	if last, ok := e.lastSeen[key]; ok && opp.DetectedAt.Sub(last) < e.cfg.DedupeWindow {
		return true
	}
	e.lastSeen[key] = opp.DetectedAt
	return false
}

// legsForDirection returns the two legs an opportunity's direction trades.
func legsForDirection(dir types.Direction) (types.Leg, types.Leg) {
	if dir == types.DirBYesANo {
		return types.LegBYes, types.LegANo
	}
	return types.LegAYes, types.LegBNo
}

// pricesForDirection reads the two ask prices a direction trades from
// already-loaded cell snapshots.
func pricesForDirection(dir types.Direction, a, b state.Snapshot) (priceA, priceB types.PriceCents) {
	if dir == types.DirBYesANo {
		return a.NoAsk, b.YesAsk
	}
	return a.YesAsk, b.NoAsk
}

// placeLegs issues both leg orders concurrently at the prices observed just
// before placement.
func (e *Executor) placeLegs(ctx context.Context, record *state.MarketRecord, dir types.Direction, priceA, priceB types.PriceCents, size float64) (fillA, fillB types.LegFill) {
	var wg sync.WaitGroup
	wg.Add(2)

	go func() {
		defer wg.Done()
		if dir == types.DirBYesANo {
			fillA = e.cfg.VenueA.PlaceLeg(ctx, types.LegANo, record.VenueATicker, "no", int(priceA), size)
		} else {
			fillA = e.cfg.VenueA.PlaceLeg(ctx, types.LegAYes, record.VenueATicker, "yes", int(priceA), size)
		}
	}()
	go func() {
		defer wg.Done()
		if dir == types.DirBYesANo {
			fillB = e.cfg.VenueB.PlaceLeg(ctx, types.LegBYes, record.VenueBYesToken, int(priceB), size)
		} else {
			fillB = e.cfg.VenueB.PlaceLeg(ctx, types.LegBNo, record.VenueBNoToken, int(priceB), size)
		}
	}()
	wg.Wait()
	return fillA, fillB
}

// reconcile implements the both-fill / hedge-retry / both-fail outcomes and
// records the result against the circuit breaker and position tracker.
func (e *Executor) reconcile(ctx context.Context, opp *arbitrage.Opportunity, record *state.MarketRecord, legA, legB types.Leg, priceA, priceB types.PriceCents, size float64, fillA, fillB types.LegFill) {
	switch {
	case fillA.Filled && fillB.Filled:
		e.writeReconciledPosition(ctx, opp, record, legA, legB, size, priceA, priceB, true, true)
		ExecutionsTotal.WithLabelValues("both_filled").Inc()
		e.cfg.Breaker.RecordSuccess()
		if e.cfg.BalanceBreaker != nil {
			e.cfg.BalanceBreaker.RecordTrade(size)
		}

	case fillA.Filled || fillB.Filled:
		// One-sided fill: attempt a single hedge retry on the unfilled leg.
		HedgeAttemptsTotal.Inc()
		hedged := e.hedgeRetry(ctx, record, opp.Direction, fillA, fillB, priceA, priceB, size)
		if hedged {
			HedgeSuccessTotal.Inc()
			e.writeReconciledPosition(ctx, opp, record, legA, legB, size, priceA, priceB, true, true)
			ExecutionsTotal.WithLabelValues("hedge_succeeded").Inc()
			e.cfg.Breaker.RecordSuccess()
			if e.cfg.BalanceBreaker != nil {
				e.cfg.BalanceBreaker.RecordTrade(size)
			}
			return
		}

		// Hedge failed: a real one-sided financial exposure. Record
		// whichever leg actually filled and trip the breaker as severe.
		e.writeReconciledPosition(ctx, opp, record, legA, legB, size, priceA, priceB, fillA.Filled, fillB.Filled)
		ExecutionsTotal.WithLabelValues("one_sided").Inc()

		filledVenue := "A"
		if fillB.Filled {
			filledVenue = "B"
		}
		e.logger.Error("one-sided-fill-after-hedge-retry",
			zap.String("opportunity-id", opp.ID),
			zap.Uint16("market-id", opp.MarketID),
			zap.String("filled-venue", filledVenue))
		e.cfg.Breaker.RecordFailure(circuitbreaker.ErrorKindSevere)

	default:
		ExecutionsTotal.WithLabelValues("missed").Inc()
		e.cfg.Breaker.RecordFailure(circuitbreaker.ErrorKindTransient)
	}
}

// hedgeRetry re-quotes the unfilled venue once at its current observed ask.
// Returns true if the retry filled.
func (e *Executor) hedgeRetry(ctx context.Context, record *state.MarketRecord, dir types.Direction, fillA, fillB types.LegFill, priceA, priceB types.PriceCents, size float64) bool {
	if !fillA.Filled {
		a := record.CellA.Load()
		retryPrice := a.YesAsk
		leg := types.LegAYes
		side := "yes"
		if dir == types.DirBYesANo {
			retryPrice = a.NoAsk
			leg = types.LegANo
			side = "no"
		}
		if retryPrice == 0 {
			return false
		}
		retry := e.cfg.VenueA.PlaceLeg(ctx, leg, record.VenueATicker, side, int(retryPrice), size)
		return retry.Filled
	}

	b := record.CellB.Load()
	retryPrice := b.NoAsk
	leg := types.LegBNo
	token := record.VenueBNoToken
	if dir == types.DirBYesANo {
		retryPrice = b.YesAsk
		leg = types.LegBYes
		token = record.VenueBYesToken
	}
	if retryPrice == 0 {
		return false
	}
	retry := e.cfg.VenueB.PlaceLeg(ctx, leg, token, int(retryPrice), size)
	return retry.Filled
}

// writeReconciledPosition sends the position delta for a reconciled
// execution. Realized P&L locks in only when both legs are confirmed
// filled, since that's what guarantees the arbitrage payoff regardless of
// market outcome.
func (e *Executor) writeReconciledPosition(ctx context.Context, opp *arbitrage.Opportunity, record *state.MarketRecord, legA, legB types.Leg, size float64, priceA, priceB types.PriceCents, filledA, filledB bool) {
	if filledA && filledB {
		totalCost := int(priceA) + int(priceB) + types.FeeACents(priceA) + types.FeeBCents(priceB, negRiskFor(record))
		realized := int64(math.Round(size * float64(100-totalCost)))
		RealizedCostCents.Observe(float64(totalCost))

		if err := e.cfg.Positions.Apply(ctx, position.Update{MarketID: opp.MarketID, Leg: legA, DeltaSize: size, DeltaRealizedCents: realized}); err != nil {
			e.logger.Debug("position-apply-failed", zap.Uint16("market-id", opp.MarketID), zap.String("leg", legA.String()), zap.Error(err))
		}
		if err := e.cfg.Positions.Apply(ctx, position.Update{MarketID: opp.MarketID, Leg: legB, DeltaSize: size}); err != nil {
			e.logger.Debug("position-apply-failed", zap.Uint16("market-id", opp.MarketID), zap.String("leg", legB.String()), zap.Error(err))
		}
		return
	}
	if filledA {
		if err := e.cfg.Positions.Apply(ctx, position.Update{MarketID: opp.MarketID, Leg: legA, DeltaSize: size}); err != nil {
			e.logger.Debug("position-apply-failed", zap.Uint16("market-id", opp.MarketID), zap.String("leg", legA.String()), zap.Error(err))
		}
	}
	if filledB {
		if err := e.cfg.Positions.Apply(ctx, position.Update{MarketID: opp.MarketID, Leg: legB, DeltaSize: size}); err != nil {
			e.logger.Debug("position-apply-failed", zap.Uint16("market-id", opp.MarketID), zap.String("leg", legB.String()), zap.Error(err))
		}
	}
}
