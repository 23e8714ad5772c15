package execution

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"

	"github.com/arbcore/xvenue-arb/internal/arbitrage"
	"github.com/arbcore/xvenue-arb/internal/circuitbreaker"
	"github.com/arbcore/xvenue-arb/internal/position"
	"github.com/arbcore/xvenue-arb/internal/state"
	"github.com/arbcore/xvenue-arb/internal/venuea"
	"github.com/arbcore/xvenue-arb/internal/venueb"
	"github.com/arbcore/xvenue-arb/pkg/types"
)

func newTestExecutor(t *testing.T, dryRunVenues bool) (*Executor, *position.Tracker) {
	t.Helper()
	logger := zaptest.NewLogger(t)

	tracker := position.New(position.Config{Logger: logger})
	tracker.Start(context.Background())

	breaker := circuitbreaker.New(circuitbreaker.Config{Logger: logger})

	exec := New(Config{
		Global:               state.New(),
		Opportunities:        make(chan *arbitrage.Opportunity),
		VenueA:               venuea.NewClient("", nil, dryRunVenues, logger),
		VenueB:               venueb.NewClient("", nil, dryRunVenues, logger),
		Breaker:              breaker,
		Positions:            tracker,
		MaxPositionContracts: 1000,
		TradeSize:            10,
		Logger:               logger,
	})
	return exec, tracker
}

func waitForPosition(t *testing.T, tracker *position.Tracker, marketID uint16) position.MarketPosition {
	t.Helper()
	deadline := time.Now().Add(time.Second)
	for time.Now().Before(deadline) {
		if p := tracker.Get(marketID); p != (position.MarketPosition{}) {
			return p
		}
		time.Sleep(time.Millisecond)
	}
	return tracker.Get(marketID)
}

func TestNew_AppliesDefaults(t *testing.T) {
	exec := New(Config{})
	assert.Equal(t, defaultTradeSize, exec.cfg.TradeSize)
	assert.Equal(t, defaultDedupeWindow, exec.cfg.DedupeWindow)
}

func TestExecutor_IsDuplicate(t *testing.T) {
	exec, _ := newTestExecutor(t, true)

	now := time.Now()
	opp := &arbitrage.Opportunity{MarketID: 1, Direction: types.DirAYesBNo, DetectedAt: now}
	assert.False(t, exec.isDuplicate(opp), "first sighting is never a duplicate")

	within := &arbitrage.Opportunity{MarketID: 1, Direction: types.DirAYesBNo, DetectedAt: now.Add(100 * time.Millisecond)}
	assert.True(t, exec.isDuplicate(within), "repeat within the dedupe window is suppressed")

	after := &arbitrage.Opportunity{MarketID: 1, Direction: types.DirAYesBNo, DetectedAt: now.Add(300 * time.Millisecond)}
	assert.False(t, exec.isDuplicate(after), "repeat past the dedupe window is a fresh candidate")

	otherDirection := &arbitrage.Opportunity{MarketID: 1, Direction: types.DirBYesANo, DetectedAt: now.Add(110 * time.Millisecond)}
	assert.False(t, exec.isDuplicate(otherDirection), "a different direction on the same market is not a duplicate")
}

func TestLegsForDirection(t *testing.T) {
	a, b := legsForDirection(types.DirAYesBNo)
	assert.Equal(t, types.LegAYes, a)
	assert.Equal(t, types.LegBNo, b)

	a, b = legsForDirection(types.DirBYesANo)
	assert.Equal(t, types.LegBYes, a)
	assert.Equal(t, types.LegANo, b)
}

func TestPricesForDirection(t *testing.T) {
	a := state.Snapshot{YesAsk: 45, NoAsk: 58}
	b := state.Snapshot{YesAsk: 52, NoAsk: 51}

	priceA, priceB := pricesForDirection(types.DirAYesBNo, a, b)
	assert.Equal(t, types.PriceCents(45), priceA)
	assert.Equal(t, types.PriceCents(51), priceB)

	priceA, priceB = pricesForDirection(types.DirBYesANo, a, b)
	assert.Equal(t, types.PriceCents(58), priceA)
	assert.Equal(t, types.PriceCents(52), priceB)
}

// Reconciliation of a both-filled pair locks in the realized arb spread and
// records a breaker success.
func TestExecutor_Reconcile_BothFilled(t *testing.T) {
	exec, tracker := newTestExecutor(t, true)
	record := state.NewMarketRecord()
	record.MarketID = 7

	opp := &arbitrage.Opportunity{ID: "opp-1", MarketID: 7, Direction: types.DirAYesBNo, DetectedAt: time.Now()}
	fillA := types.LegFill{Leg: types.LegAYes, Filled: true, SizeFilled: 10}
	fillB := types.LegFill{Leg: types.LegBNo, Filled: true, SizeFilled: 10}

	exec.reconcile(context.Background(), opp, record, types.LegAYes, types.LegBNo, 45, 51, 10, fillA, fillB)

	pos := waitForPosition(t, tracker, 7)
	assert.Equal(t, 10.0, pos.VenueAYes)
	assert.Equal(t, 10.0, pos.VenueBNo)
	assert.Equal(t, int64(20), pos.RealizedCents) // 10 * (100 - (45+51+2 fee))

	status := exec.cfg.Breaker.GetStatus()
	assert.Equal(t, circuitbreaker.Closed, status.State)
}

// A both-fail outcome records no position change and a transient breaker
// failure.
func TestExecutor_Reconcile_Missed(t *testing.T) {
	exec, tracker := newTestExecutor(t, true)
	record := state.NewMarketRecord()
	record.MarketID = 9

	opp := &arbitrage.Opportunity{ID: "opp-2", MarketID: 9, Direction: types.DirAYesBNo, DetectedAt: time.Now()}
	fillA := types.LegFill{Leg: types.LegAYes, Filled: false}
	fillB := types.LegFill{Leg: types.LegBNo, Filled: false}

	exec.reconcile(context.Background(), opp, record, types.LegAYes, types.LegBNo, 45, 51, 10, fillA, fillB)

	time.Sleep(20 * time.Millisecond)
	assert.Equal(t, position.MarketPosition{}, tracker.Get(9))

	status := exec.cfg.Breaker.GetStatus()
	assert.Equal(t, 1, status.ConsecutiveFails)
}

// Scenario: leg A fills, leg B rejects; the hedge retry re-quotes leg B at
// its current observed ask and succeeds, landing both legs at full size and
// recording the trade as hedge_succeeded rather than one_sided.
func TestExecutor_Reconcile_OneSidedHedgeSucceeds(t *testing.T) {
	exec, tracker := newTestExecutor(t, true) // dry-run venue clients always fill
	record := state.NewMarketRecord()
	record.MarketID = 11
	record.CellB.SetAll(0, 0, 0, 51) // NoAsk = 51, read by hedgeRetry

	opp := &arbitrage.Opportunity{ID: "opp-3", MarketID: 11, Direction: types.DirAYesBNo, DetectedAt: time.Now()}
	fillA := types.LegFill{Leg: types.LegAYes, Filled: true, SizeFilled: 10}
	fillB := types.LegFill{Leg: types.LegBNo, Filled: false}

	exec.reconcile(context.Background(), opp, record, types.LegAYes, types.LegBNo, 45, 51, 10, fillA, fillB)

	pos := waitForPosition(t, tracker, 11)
	assert.Equal(t, 10.0, pos.VenueAYes)
	assert.Equal(t, 10.0, pos.VenueBNo)

	status := exec.cfg.Breaker.GetStatus()
	assert.Equal(t, circuitbreaker.Closed, status.State)
}

// When the hedge retry also fails to find a quote (zero ask, e.g. the book
// is now unquoted), the one-sided exposure is recorded as-is and the
// breaker trips as severe — a real financial exposure, not a retryable
// transient.
func TestExecutor_Reconcile_OneSidedHedgeFails(t *testing.T) {
	exec, tracker := newTestExecutor(t, true)
	record := state.NewMarketRecord()
	record.MarketID = 13
	// CellB left at its zero value: hedgeRetry's observed-ask is 0, so the
	// retry short-circuits without attempting an order.

	opp := &arbitrage.Opportunity{ID: "opp-4", MarketID: 13, Direction: types.DirAYesBNo, DetectedAt: time.Now()}
	fillA := types.LegFill{Leg: types.LegAYes, Filled: true, SizeFilled: 10}
	fillB := types.LegFill{Leg: types.LegBNo, Filled: false}

	exec.reconcile(context.Background(), opp, record, types.LegAYes, types.LegBNo, 45, 51, 10, fillA, fillB)

	pos := waitForPosition(t, tracker, 13)
	assert.Equal(t, 10.0, pos.VenueAYes)
	assert.Equal(t, 0.0, pos.VenueBNo)
	assert.Equal(t, int64(0), pos.RealizedCents)

	status := exec.cfg.Breaker.GetStatus()
	require.Equal(t, circuitbreaker.Open, status.State, "a one-sided fill is a severe error and trips the breaker immediately")
}

func TestNegRiskFor(t *testing.T) {
	record := state.NewMarketRecord()
	assert.False(t, negRiskFor(record))
	record.VenueBNegRisk = true
	assert.True(t, negRiskFor(record))
}
