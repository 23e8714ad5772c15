package circuitbreaker

import (
	"sync"
	"time"

	"go.uber.org/zap"
)

// ErrorKind classifies an execution error for the error-rate Breaker.
// Severe kinds trip the breaker immediately regardless of the
// consecutive/windowed counters.
type ErrorKind int

const (
	// ErrorKindTransient covers ordinary execution errors: timeouts,
	// rejects, rate limits. They only count toward the consecutive and
	// windowed thresholds.
	ErrorKindTransient ErrorKind = iota
	// ErrorKindSevere covers auth failures and one-sided fills: a single
	// occurrence trips the breaker.
	ErrorKindSevere
)

func (k ErrorKind) String() string {
	if k == ErrorKindSevere {
		return "severe"
	}
	return "transient"
}

// BreakerState is the error-rate Breaker's state machine position.
type BreakerState int

const (
	Closed BreakerState = iota
	Open
	HalfOpen
)

func (s BreakerState) String() string {
	switch s {
	case Open:
		return "open"
	case HalfOpen:
		return "half_open"
	default:
		return "closed"
	}
}

// Config configures a Breaker.
type Config struct {
	// ConsecutiveThreshold trips Closed->Open after this many consecutive
	// execution errors. Default 3.
	ConsecutiveThreshold int
	// WindowThreshold trips Closed->Open after this many errors occur
	// within WindowDuration. Default 5.
	WindowThreshold int
	// WindowDuration is the sliding window for WindowThreshold. Default 60s.
	WindowDuration time.Duration
	// Cooldown is how long the breaker stays Open before probing
	// HalfOpen. Default 30s.
	Cooldown time.Duration
	Logger   *zap.Logger
}

func (c *Config) setDefaults() {
	if c.ConsecutiveThreshold <= 0 {
		c.ConsecutiveThreshold = 3
	}
	if c.WindowThreshold <= 0 {
		c.WindowThreshold = 5
	}
	if c.WindowDuration <= 0 {
		c.WindowDuration = 60 * time.Second
	}
	if c.Cooldown <= 0 {
		c.Cooldown = 30 * time.Second
	}
}

// Status holds current error-rate breaker status for debugging and the
// HTTP status endpoint.
type Status struct {
	State            BreakerState
	ConsecutiveFails int
	WindowFails      int
	OpenedAt         time.Time
}

// Breaker is the error-rate circuit breaker described in the concurrency
// model: Closed -> Open on K consecutive errors, M-in-window errors, or a
// single severe error; Open -> HalfOpen after a cooldown; HalfOpen ->
// Closed on the next success or back to Open on any failure. Allow() is
// called before every execution candidate; RecordSuccess/RecordFailure
// are called after. Composed alongside BalanceCircuitBreaker as a second,
// independent execution gate.
type Breaker struct {
	cfg    Config
	logger *zap.Logger

	mu               sync.Mutex
	state            BreakerState
	consecutiveFails int
	failTimes        []time.Time
	openedAt         time.Time
}

// New creates a new error-rate circuit breaker, starting Closed.
func New(cfg Config) *Breaker {
	cfg.setDefaults()
	b := &Breaker{
		cfg:       cfg,
		logger:    cfg.Logger,
		state:     Closed,
		failTimes: make([]time.Time, 0, cfg.WindowThreshold+1),
	}
	State.Set(0)
	return b
}

// Allow reports whether execution is currently permitted. It also performs
// the Open->HalfOpen cooldown transition as a side effect, since the
// breaker has no background timer task of its own.
func (b *Breaker) Allow() bool {
	b.mu.Lock()
	defer b.mu.Unlock()

	switch b.state {
	case Closed:
		return true
	case Open:
		if time.Since(b.openedAt) >= b.cfg.Cooldown {
			b.transitionLocked(HalfOpen)
			return true
		}
		RejectedTotal.Inc()
		return false
	case HalfOpen:
		// A single probe execution is in flight; additional candidates
		// are rejected until it resolves.
		RejectedTotal.Inc()
		return false
	default:
		return false
	}
}

// RecordSuccess reports a successful execution. It resets the consecutive
// failure streak but leaves the windowed error count alone: the windowed
// threshold tracks error density over time and is not reset by an
// intervening success.
func (b *Breaker) RecordSuccess() {
	b.mu.Lock()
	defer b.mu.Unlock()

	b.consecutiveFails = 0
	b.pruneWindowLocked(time.Now())

	if b.state == HalfOpen {
		b.transitionLocked(Closed)
	}
}

// RecordFailure reports a failed execution of the given kind.
func (b *Breaker) RecordFailure(kind ErrorKind) {
	b.mu.Lock()
	defer b.mu.Unlock()

	ErrorsRecordedTotal.WithLabelValues(kind.String()).Inc()

	if b.state == HalfOpen {
		b.transitionLocked(Open)
		return
	}

	now := time.Now()
	b.consecutiveFails++
	b.failTimes = append(b.failTimes, now)
	b.pruneWindowLocked(now)

	switch {
	case kind == ErrorKindSevere:
		b.transitionLocked(Open)
	case b.consecutiveFails >= b.cfg.ConsecutiveThreshold:
		b.transitionLocked(Open)
	case len(b.failTimes) >= b.cfg.WindowThreshold:
		b.transitionLocked(Open)
	}
}

func (b *Breaker) pruneWindowLocked(now time.Time) {
	cutoff := now.Add(-b.cfg.WindowDuration)
	kept := b.failTimes[:0]
	for _, t := range b.failTimes {
		if t.After(cutoff) {
			kept = append(kept, t)
		}
	}
	b.failTimes = kept
}

// transitionLocked moves the breaker to newState. Caller must hold mu.
func (b *Breaker) transitionLocked(newState BreakerState) {
	if newState == b.state {
		return
	}
	if b.logger != nil {
		b.logger.Info("breaker-state-change",
			zap.String("from", b.state.String()),
			zap.String("to", newState.String()))
	}
	b.state = newState
	if newState == Open {
		b.openedAt = time.Now()
	}
	if newState == Closed {
		b.consecutiveFails = 0
		b.failTimes = b.failTimes[:0]
	}

	State.Set(float64(newState))
	StateChangesTotal.WithLabelValues(newState.String()).Inc()
}

// GetStatus returns current error-rate breaker status.
func (b *Breaker) GetStatus() Status {
	b.mu.Lock()
	defer b.mu.Unlock()

	return Status{
		State:            b.state,
		ConsecutiveFails: b.consecutiveFails,
		WindowFails:      len(b.failTimes),
		OpenedAt:         b.openedAt,
	}
}
