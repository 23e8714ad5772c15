package position

import (
	"context"
	"math"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/arbcore/xvenue-arb/pkg/types"
)

const defaultChannelCapacity = 256

// Config configures a Tracker.
type Config struct {
	// SnapshotPath is where positions.json is periodically written. Empty
	// disables snapshot persistence.
	SnapshotPath string
	// SnapshotInterval is how often the writer task persists a snapshot.
	SnapshotInterval time.Duration
	Logger           *zap.Logger
}

func (c *Config) setDefaults() {
	if c.SnapshotInterval <= 0 {
		c.SnapshotInterval = time.Minute
	}
}

// Tracker implements the serialized-writer position model: a single task
// drains a bounded update channel and applies deltas to an in-memory
// per-market position map; concurrent readers see eventually-consistent
// snapshots via a reader-writer lock. The update channel blocks on send
// rather than dropping, since losing a position record (unlike a missed
// detection) is a real financial-reporting gap.
type Tracker struct {
	cfg    Config
	logger *zap.Logger

	updates chan Update

	mu        sync.RWMutex
	positions map[uint16]*MarketPosition
}

// New creates a Tracker. Call Start to run its writer task.
func New(cfg Config) *Tracker {
	cfg.setDefaults()
	return &Tracker{
		cfg:       cfg,
		logger:    cfg.Logger,
		updates:   make(chan Update, defaultChannelCapacity),
		positions: make(map[uint16]*MarketPosition),
	}
}

// LoadSnapshot seeds the tracker's in-memory state from a previously
// persisted positions.json, for crash recovery. Call before Start.
func (t *Tracker) LoadSnapshot(ctx context.Context) error {
	if t.cfg.SnapshotPath == "" {
		return nil
	}
	loaded, err := loadSnapshot(t.cfg.SnapshotPath)
	if err != nil {
		return err
	}
	t.mu.Lock()
	for id, pos := range loaded {
		p := pos
		t.positions[id] = &p
	}
	t.mu.Unlock()
	if t.logger != nil {
		t.logger.Info("position-snapshot-loaded",
			zap.String("path", t.cfg.SnapshotPath),
			zap.Int("markets", len(loaded)))
	}
	return nil
}

// Apply enqueues an update for the writer task, blocking if the channel is
// full. Returns ctx.Err() if ctx is cancelled first.
func (t *Tracker) Apply(ctx context.Context, u Update) error {
	select {
	case t.updates <- u:
		ChannelDepth.Set(float64(len(t.updates)))
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Start runs the single writer task until ctx is cancelled. Safe to call
// exactly once.
func (t *Tracker) Start(ctx context.Context) {
	go t.run(ctx)
}

func (t *Tracker) run(ctx context.Context) {
	var ticker *time.Ticker
	var tickC <-chan time.Time
	if t.cfg.SnapshotPath != "" {
		ticker = time.NewTicker(t.cfg.SnapshotInterval)
		defer ticker.Stop()
		tickC = ticker.C
	}

	for {
		select {
		case <-ctx.Done():
			if t.cfg.SnapshotPath != "" {
				if err := t.persist(); err != nil && t.logger != nil {
					t.logger.Error("position-final-snapshot-failed", zap.Error(err))
				}
			}
			return
		case u := <-t.updates:
			t.applyLocked(u)
			ChannelDepth.Set(float64(len(t.updates)))
		case <-tickC:
			if err := t.persist(); err != nil && t.logger != nil {
				t.logger.Error("position-snapshot-write-failed", zap.Error(err))
			}
		}
	}
}

func (t *Tracker) applyLocked(u Update) {
	t.mu.Lock()
	defer t.mu.Unlock()

	p, ok := t.positions[u.MarketID]
	if !ok {
		p = &MarketPosition{}
		t.positions[u.MarketID] = p
	}
	u.apply(p)

	UpdatesAppliedTotal.Inc()
	var total float64
	for _, pos := range t.positions {
		total += float64(pos.RealizedCents)
	}
	RealizedCents.Set(total)
}

func (t *Tracker) persist() error {
	snap := t.Snapshot()
	if err := writeSnapshot(t.cfg.SnapshotPath, snap); err != nil {
		SnapshotWriteErrorsTotal.Inc()
		return err
	}
	SnapshotWritesTotal.Inc()
	return nil
}

// Snapshot returns a consistent point-in-time copy of all tracked
// positions.
func (t *Tracker) Snapshot() map[uint16]MarketPosition {
	t.mu.RLock()
	defer t.mu.RUnlock()

	out := make(map[uint16]MarketPosition, len(t.positions))
	for id, p := range t.positions {
		out[id] = *p
	}
	return out
}

// Get returns the current position for one market.
func (t *Tracker) Get(marketID uint16) MarketPosition {
	t.mu.RLock()
	defer t.mu.RUnlock()

	if p, ok := t.positions[marketID]; ok {
		return *p
	}
	return MarketPosition{}
}

// LegSize returns the current signed size held on one leg of a market.
func (t *Tracker) LegSize(marketID uint16, leg types.Leg) float64 {
	t.mu.RLock()
	defer t.mu.RUnlock()

	p, ok := t.positions[marketID]
	if !ok {
		return 0
	}
	if side := p.legSide(leg); side != nil {
		return *side
	}
	return 0
}

// WithinLimit reports whether adding deltaSize contracts on top of the
// market's current position on leg would keep it within maxContracts.
// Used by the execution engine's pre-trade position check. maxContracts
// <= 0 means no limit is configured.
func (t *Tracker) WithinLimit(marketID uint16, leg types.Leg, deltaSize, maxContracts float64) bool {
	if maxContracts <= 0 {
		return true
	}
	current := t.LegSize(marketID, leg)
	return math.Abs(current+deltaSize) <= maxContracts
}
