package app

import (
	"context"
	"time"

	"go.uber.org/zap"
)

// Shutdown gracefully shuts down the application.
func (a *App) Shutdown() error {
	a.logger.Info("application-shutting-down")

	a.Close()

	a.logger.Info("application-shutdown-complete")

	return nil
}

// Close stops every component and releases its resources. It is safe to
// call more than once and on a partially built App.
func (a *App) Close() {
	a.closeOnce.Do(a.close)
}

func (a *App) close() {
	a.healthChecker.SetReady(false)

	// Cancel context to signal all components
	a.cancel()

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer shutdownCancel()

	if a.httpServer != nil {
		err := a.httpServer.Shutdown(shutdownCtx)
		if err != nil {
			a.logger.Error("http-server-shutdown-error", zap.Error(err))
		}
	}

	// Flows first: they wait on verifications owned by the coordinator.
	if a.betFlow != nil {
		a.betFlow.Close()
	}
	if a.stakeFlow != nil {
		a.stakeFlow.Close()
	}

	if a.coordinator != nil {
		a.coordinator.Close()
	}

	// Wait for all goroutines
	a.wg.Wait()

	// Recorder settles pending receipts into the store, so it stops first.
	a.recorder.Close()

	if a.historyStore != nil {
		err := a.historyStore.Close()
		if err != nil {
			a.logger.Error("history-store-close-error", zap.Error(err))
		}
	}

	if a.cache != nil {
		a.cache.Close()
	}

	if a.ethClient != nil {
		a.ethClient.Close()
	}
}
