package app

import (
	"context"
	"sync"

	"github.com/ethereum/go-ethereum/ethclient"
	"go.uber.org/zap"

	"github.com/fanify/hype-flow/internal/action"
	"github.com/fanify/hype-flow/internal/allowance"
	"github.com/fanify/hype-flow/internal/approval"
	"github.com/fanify/hype-flow/internal/circuitbreaker"
	"github.com/fanify/hype-flow/internal/eventdata"
	"github.com/fanify/hype-flow/internal/flow"
	"github.com/fanify/hype-flow/internal/history"
	"github.com/fanify/hype-flow/pkg/cache"
	"github.com/fanify/hype-flow/pkg/chain"
	"github.com/fanify/hype-flow/pkg/config"
	"github.com/fanify/hype-flow/pkg/healthprobe"
	"github.com/fanify/hype-flow/pkg/httpserver"
	"github.com/fanify/hype-flow/pkg/wallet"
)

// App is the main application orchestrator.
type App struct {
	cfg           *config.Config
	logger        *zap.Logger
	healthChecker *healthprobe.HealthChecker
	httpServer    *httpserver.Server
	ethClient     *ethclient.Client
	chain         *chain.Client
	cache         *cache.RistrettoCache
	tracker       *allowance.Tracker
	poller        *eventdata.Poller
	coordinator   *approval.Coordinator
	submitter     *action.Submitter
	betFlow       *flow.Machine
	stakeFlow     *flow.Machine
	historyStore  history.Store
	recorder      *history.Recorder
	walletTracker *wallet.Tracker          // nil without a signing key
	gasGuard      *circuitbreaker.GasGuard // nil when disabled
	ctx           context.Context
	cancel        context.CancelFunc
	wg            sync.WaitGroup
	closeOnce     sync.Once
}

// Options holds application options.
type Options struct {
	// ReadOnly skips the signing key even when one is configured.
	ReadOnly bool
}

// Chain returns the chain client.
func (a *App) Chain() *chain.Client { return a.chain }

// Allowance returns the allowance tracker.
func (a *App) Allowance() *allowance.Tracker { return a.tracker }

// Events returns the event data poller.
func (a *App) Events() *eventdata.Poller { return a.poller }

// Coordinator returns the approval coordinator.
func (a *App) Coordinator() *approval.Coordinator { return a.coordinator }

// Submitter returns the action submitter.
func (a *App) Submitter() *action.Submitter { return a.submitter }

// History returns the transaction history store.
func (a *App) History() history.Store { return a.historyStore }

// Flow returns the machine for kind.
func (a *App) Flow(kind flow.Kind) *flow.Machine {
	if kind == flow.KindStake {
		return a.stakeFlow
	}
	return a.betFlow
}

// Config returns the application configuration.
func (a *App) Config() *config.Config { return a.cfg }
