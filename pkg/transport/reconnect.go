package transport

import (
	"context"
	"math/rand"
	"time"

	"go.uber.org/zap"
)

// ReconnectConfig configures the fixed-delay reconnect loop. Per-venue
// streams reconnect after a constant delay rather than exponential
// backoff — missing a few ticks during a retriable blip is cheap, and a
// fixed delay keeps reconnect latency predictable under the heartbeat
// diagnostic.
type ReconnectConfig struct {
	Delay         time.Duration // default 5s
	JitterPercent float64       // 0.2 = up to 20% extra delay, spread reconnect storms
	Venue         string        // metric label
}

// ReconnectManager retries connectFunc on a fixed delay until it succeeds
// or ctx is cancelled.
type ReconnectManager struct {
	config ReconnectConfig
	logger *zap.Logger
}

func NewReconnectManager(cfg ReconnectConfig, logger *zap.Logger) *ReconnectManager {
	return &ReconnectManager{config: cfg, logger: logger}
}

// Reconnect attempts connectFunc repeatedly at the configured fixed delay.
func (rm *ReconnectManager) Reconnect(ctx context.Context, connectFunc func(context.Context) error) error {
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		default:
		}

		delay := rm.delayWithJitter()
		rm.logger.Info("attempting-reconnection", zap.Duration("delay", delay), zap.String("venue", rm.config.Venue))
		ReconnectAttemptsTotal.WithLabelValues(rm.config.Venue).Inc()

		select {
		case <-time.After(delay):
		case <-ctx.Done():
			return ctx.Err()
		}

		if err := connectFunc(ctx); err == nil {
			rm.logger.Info("reconnection-successful", zap.String("venue", rm.config.Venue))
			return nil
		} else {
			rm.logger.Warn("reconnection-failed", zap.Error(err), zap.String("venue", rm.config.Venue))
			ReconnectFailuresTotal.WithLabelValues(rm.config.Venue).Inc()
		}
	}
}

func (rm *ReconnectManager) delayWithJitter() time.Duration {
	if rm.config.JitterPercent <= 0 {
		return rm.config.Delay
	}
	jitter := rand.Float64() * rm.config.JitterPercent
	return time.Duration(float64(rm.config.Delay) * (1.0 + jitter))
}
