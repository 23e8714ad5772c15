package app

import (
	"os"
	"os/signal"
	"syscall"
	"time"

	"go.uber.org/zap"

	"github.com/arbcore/xvenue-arb/pkg/types"
)

// heartbeatInterval is how often the application logs a one-line summary
// of market topology health: markets tracked, how many currently have
// both sides quoted, and the best directional gap seen.
const heartbeatInterval = time.Minute

// Run starts the application and blocks until shutdown.
func (a *App) Run() error {
	a.logger.Info("application-starting",
		zap.Bool("dry-run", a.cfg.DryRun),
		zap.Bool("single-venue", a.cfg.SingleVenue),
		zap.Int("market-count", a.global.MarketCount()),
		zap.String("log-level", a.cfg.LogLevel))

	if err := a.startComponents(); err != nil {
		return err
	}

	a.healthChecker.SetReady(true)

	a.logger.Info("application-ready", zap.String("http-addr", ":"+a.cfg.HTTPPort))

	return a.waitForShutdown()
}

func (a *App) startComponents() error {
	a.wg.Add(1)
	go a.runHTTPServer()

	time.Sleep(100 * time.Millisecond)

	a.positions.Start(a.ctx)
	a.executor.Start(a.ctx)

	if a.balanceBreaker != nil {
		a.balanceBreaker.Start(a.ctx)
	}

	if err := a.venueAStream.Start(a.ctx); err != nil {
		return err
	}
	if a.venueBStream != nil {
		if err := a.venueBStream.Start(a.ctx); err != nil {
			return err
		}
	}

	a.wg.Add(1)
	go a.runHeartbeat()

	return nil
}

func (a *App) runHTTPServer() {
	defer a.wg.Done()
	if err := a.httpServer.Start(); err != nil {
		a.logger.Error("http-server-error", zap.Error(err))
	}
}

func (a *App) runHeartbeat() {
	defer a.wg.Done()

	ticker := time.NewTicker(heartbeatInterval)
	defer ticker.Stop()

	for {
		select {
		case <-a.ctx.Done():
			return
		case <-ticker.C:
			a.logHeartbeat()
		}
	}
}

// logHeartbeat reports the same figures the /state endpoint serves on
// demand, computed straight from Global State rather than shared code so
// the HTTP surface and the log line can evolve independently.
func (a *App) logHeartbeat() {
	bothSidesQuoted := 0
	bestCost := 101
	var bestMarketID uint16
	var bestDirection types.Direction
	haveBest := false

	for _, record := range a.global.Markets() {
		snapA := record.CellA.Load()
		snapB := record.CellB.Load()
		if snapA.YesAsk == 0 || snapA.NoAsk == 0 || snapB.YesAsk == 0 || snapB.NoAsk == 0 {
			continue
		}
		bothSidesQuoted++

		feeAYes := types.FeeACents(snapA.YesAsk)
		feeANo := types.FeeACents(snapA.NoAsk)
		feeBYes := types.FeeBCents(snapB.YesAsk, record.VenueBNegRisk)
		feeBNo := types.FeeBCents(snapB.NoAsk, record.VenueBNegRisk)

		costAYesBNo := int(snapA.YesAsk) + int(snapB.NoAsk) + feeAYes + feeBNo
		costBYesANo := int(snapB.YesAsk) + int(snapA.NoAsk) + feeANo + feeBYes

		dir, cost := types.DirAYesBNo, costAYesBNo
		if costBYesANo < cost {
			dir, cost = types.DirBYesANo, costBYesANo
		}

		if cost < bestCost {
			bestCost = cost
			bestMarketID = record.MarketID
			bestDirection = dir
			haveBest = true
		}
	}

	fields := []zap.Field{
		zap.Int("market-count", a.global.MarketCount()),
		zap.Int("both-sides-quoted", bothSidesQuoted),
	}
	if haveBest {
		fields = append(fields,
			zap.Uint16("best-market-id", bestMarketID),
			zap.String("best-direction", bestDirection.String()),
			zap.Int("best-cost-cents", bestCost))
	}
	a.logger.Info("heartbeat", fields...)
}

func (a *App) waitForShutdown() error {
	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)

	select {
	case sig := <-sigChan:
		a.logger.Info("shutdown-signal-received", zap.String("signal", sig.String()))
	case <-a.ctx.Done():
		a.logger.Info("context-cancelled")
	}

	return a.Shutdown()
}
