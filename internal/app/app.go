package app

import (
	"context"
	"sync"

	"github.com/arbcore/xvenue-arb/internal/arbitrage"
	"github.com/arbcore/xvenue-arb/internal/circuitbreaker"
	"github.com/arbcore/xvenue-arb/internal/execution"
	"github.com/arbcore/xvenue-arb/internal/position"
	"github.com/arbcore/xvenue-arb/internal/state"
	"github.com/arbcore/xvenue-arb/internal/storage"
	"github.com/arbcore/xvenue-arb/internal/venuea"
	"github.com/arbcore/xvenue-arb/internal/venueb"
	"github.com/arbcore/xvenue-arb/pkg/config"
	"github.com/arbcore/xvenue-arb/pkg/healthprobe"
	"github.com/arbcore/xvenue-arb/pkg/httpserver"
	"go.uber.org/zap"
)

// App is the main application orchestrator: it owns every long-lived task
// named in the concurrency model (venue stream supervisors, the execution
// consumer, the position writer, the heartbeat) and is responsible for
// starting and tearing them down in dependency order.
type App struct {
	cfg    *config.Config
	logger *zap.Logger

	healthChecker *healthprobe.HealthChecker
	httpServer    *httpserver.Server

	global         *state.GlobalState
	detector       *arbitrage.Detector
	breaker        *circuitbreaker.Breaker
	balanceBreaker *circuitbreaker.BalanceCircuitBreaker
	positions      *position.Tracker
	executor       *execution.Executor
	storage        storage.Storage

	venueAStream *venuea.Stream
	venueBStream *venueb.Stream // nil in single-venue mode

	ctx    context.Context
	cancel context.CancelFunc
	wg     sync.WaitGroup
}

// Options holds application options supplied by the cmd layer.
type Options struct {
	// ForceDiscovery bypasses the cached Venue B market catalog on startup;
	// the team cache is still used.
	ForceDiscovery bool
}
