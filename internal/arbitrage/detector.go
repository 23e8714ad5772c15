package arbitrage

import (
	"math"
	"time"

	"go.uber.org/zap"

	"github.com/arbcore/xvenue-arb/internal/state"
	"github.com/arbcore/xvenue-arb/pkg/types"
)

// Config configures the detector's threshold.
type Config struct {
	// ThresholdCents is the maximum total leg cost (in cents, including
	// fees) an opportunity may have to be emitted. Derived from
	// round(ARB_THRESHOLD * 100), minimum 1.
	ThresholdCents int
	Logger         *zap.Logger
}

// Detector recomputes whether a market crosses the arbitrage threshold on
// every price tick and enqueues qualifying opportunities onto a bounded,
// drop-on-full execution channel.
type Detector struct {
	global          *state.GlobalState
	config          Config
	logger          *zap.Logger
	opportunityChan chan *Opportunity
}

// New creates a Detector whose execution channel has the given capacity
// (default 1024 per spec if capacity <= 0).
func New(global *state.GlobalState, cfg Config, capacity int) *Detector {
	if capacity <= 0 {
		capacity = 1024
	}
	return &Detector{
		global:          global,
		config:          cfg,
		logger:          cfg.Logger,
		opportunityChan: make(chan *Opportunity, capacity),
	}
}

// Opportunities returns the channel the execution engine drains.
func (d *Detector) Opportunities() <-chan *Opportunity {
	return d.opportunityChan
}

// OnTick is called by a venue stream after it updates market_id's Price
// Cell. It loads both cells' current snapshots, evaluates both directional
// costs, and enqueues an Opportunity if the cheaper one clears the
// threshold.
func (d *Detector) OnTick(marketID uint16) {
	start := time.Now()
	defer func() { DetectionDurationSeconds.Observe(time.Since(start).Seconds()) }()

	record := d.global.GetByID(marketID)
	if record == nil {
		return
	}

	a := record.CellA.Load()
	b := record.CellB.Load()

	if a.YesAsk == 0 || a.NoAsk == 0 || b.YesAsk == 0 || b.NoAsk == 0 {
		OpportunitiesRejectedTotal.WithLabelValues("unquoted").Inc()
		return
	}

	feeAYes := types.FeeACents(a.YesAsk)
	feeANo := types.FeeACents(a.NoAsk)
	feeBYes := types.FeeBCents(b.YesAsk, record.VenueBNegRisk)
	feeBNo := types.FeeBCents(b.NoAsk, record.VenueBNegRisk)

	costAYesBNo := int(a.YesAsk) + int(b.NoAsk) + feeAYes + feeBNo
	costBYesANo := int(b.YesAsk) + int(a.NoAsk) + feeANo + feeBYes

	var dir types.Direction
	var cost, fee int
	switch {
	case costAYesBNo < costBYesANo:
		dir, cost, fee = types.DirAYesBNo, costAYesBNo, feeAYes+feeBNo
	case costBYesANo < costAYesBNo:
		dir, cost, fee = types.DirBYesANo, costBYesANo, feeANo+feeBYes
	default:
		// Tie: prefer A_yes+B_no per spec.
		dir, cost, fee = types.DirAYesBNo, costAYesBNo, feeAYes+feeBNo
	}

	if cost > d.config.ThresholdCents {
		OpportunitiesRejectedTotal.WithLabelValues("above_threshold").Inc()
		return
	}

	opp := newOpportunity(marketID, dir, cost, fee)

	select {
	case d.opportunityChan <- opp:
		OpportunitiesDetectedTotal.Inc()
		OpportunityCostCents.Observe(float64(cost))
		d.logger.Info("arbitrage-opportunity-detected",
			zap.String("opportunity-id", opp.ID),
			zap.Uint16("market-id", marketID),
			zap.String("direction", dir.String()),
			zap.Int("cost-cents", cost))
	default:
		DetectorDropsTotal.Inc()
		d.logger.Warn("opportunity-channel-full", zap.Uint16("market-id", marketID))
	}
}

// ThresholdCentsFromRate derives the threshold in cents from the
// configured ARB_THRESHOLD rate (e.g. 0.99), rounding to the nearest cent
// with a minimum of 1.
func ThresholdCentsFromRate(rate float64) int {
	c := int(math.Round(rate * 100))
	if c < 1 {
		return 1
	}
	return c
}
