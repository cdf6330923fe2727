package app

import (
	"context"
	"errors"
	"os"
	"os/signal"
	"syscall"
	"time"

	"go.uber.org/zap"
)

// Run starts the application and blocks until shutdown.
func (a *App) Run() error {
	a.logger.Info("application-starting",
		zap.Int64("chain-id", a.cfg.ChainID),
		zap.String("history-mode", a.cfg.HistoryMode),
		zap.Bool("gas-guard", a.gasGuard != nil),
		zap.Bool("signer", a.walletTracker != nil),
		zap.String("log-level", a.cfg.LogLevel))

	a.startComponents()

	a.healthChecker.SetReady(true)

	a.logger.Info("application-ready",
		zap.String("http-addr", ":"+a.cfg.HTTPPort),
		zap.String("betting-contract", a.cfg.BettingContractAddress))

	return a.waitForShutdown()
}

// StartBackground starts the polling loops without the HTTP server. CLI
// commands use it to drive a single flow.
func (a *App) StartBackground() {
	a.startLoops()
}

func (a *App) startComponents() {
	a.wg.Add(1)
	go a.runHTTPServer()

	// Give HTTP server a moment to start
	time.Sleep(100 * time.Millisecond)

	a.startLoops()
}

func (a *App) startLoops() {
	a.goRun("allowance-tracker", a.tracker.Run)
	a.goRun("event-poller", a.poller.Run)
	a.goRun("bet-flow", a.betFlow.Run)
	a.goRun("stake-flow", a.stakeFlow.Run)

	if a.walletTracker != nil {
		a.goRun("wallet-tracker", a.walletTracker.Run)
	}

	if a.gasGuard != nil {
		a.gasGuard.Start(a.ctx)
	}
}

func (a *App) goRun(name string, run func(ctx context.Context) error) {
	a.wg.Add(1)
	go func() {
		defer a.wg.Done()
		err := run(a.ctx)
		if err != nil && !errors.Is(err, context.Canceled) {
			a.logger.Error("component-error", zap.String("component", name), zap.Error(err))
		}
	}()
}

func (a *App) runHTTPServer() {
	defer a.wg.Done()
	err := a.httpServer.Start()
	if err != nil {
		a.logger.Error("http-server-error", zap.Error(err))
		a.cancel()
	}
}

func (a *App) waitForShutdown() error {
	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)
	defer signal.Stop(sigChan)

	select {
	case sig := <-sigChan:
		a.logger.Info("shutdown-signal-received", zap.String("signal", sig.String()))
	case <-a.ctx.Done():
		a.logger.Info("context-cancelled")
	}

	return a.Shutdown()
}
