package app

import (
	"context"
	"time"

	"go.uber.org/zap"
)

// Shutdown gracefully tears the application down: it stops accepting new
// work first (HTTP, venue streams), then waits for the executor to finish
// its in-flight opportunity, and closes storage last. The position writer
// stops on the same context cancellation and writes its final snapshot on
// its own goroutine; Shutdown does not wait for that write.
func (a *App) Shutdown() error {
	a.logger.Info("application-shutting-down")

	a.healthChecker.SetReady(false)
	a.cancel()

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer shutdownCancel()

	if err := a.httpServer.Shutdown(shutdownCtx); err != nil {
		a.logger.Error("http-server-shutdown-error", zap.Error(err))
	}

	if err := a.venueAStream.Close(); err != nil {
		a.logger.Error("venue-a-stream-close-error", zap.Error(err))
	}
	if a.venueBStream != nil {
		if err := a.venueBStream.Close(); err != nil {
			a.logger.Error("venue-b-stream-close-error", zap.Error(err))
		}
	}

	a.executor.Close()

	if err := a.storage.Close(); err != nil {
		a.logger.Error("storage-close-error", zap.Error(err))
	}

	a.wg.Wait()

	a.logger.Info("application-shutdown-complete")
	return nil
}
