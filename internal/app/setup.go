package app

import (
	"context"
	"errors"
	"fmt"
	"math/big"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/ethclient"
	"github.com/shopspring/decimal"
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

// New creates a new application instance. Nothing runs until Run.
func New(cfg *config.Config, logger *zap.Logger, opts *Options) (a *App, err error) {
	if cfg == nil {
		return nil, errors.New("config cannot be nil")
	}

	if logger == nil {
		return nil, errors.New("logger cannot be nil")
	}

	if opts == nil {
		opts = &Options{}
	}

	ctx, cancel := context.WithCancel(context.Background())

	built := &App{
		cfg:           cfg,
		logger:        logger,
		healthChecker: healthprobe.New(),
		ctx:           ctx,
		cancel:        cancel,
	}
	a = built

	// Release whatever was built if a later step fails.
	defer func() {
		if err != nil {
			built.Close()
		}
	}()

	signer, err := setupSigner(cfg, logger, opts)
	if err != nil {
		return nil, err
	}

	err = a.setupChain(ctx, signer)
	if err != nil {
		return nil, fmt.Errorf("setup chain: %w", err)
	}

	a.cache, err = setupCache(logger)
	if err != nil {
		return nil, fmt.Errorf("setup cache: %w", err)
	}

	a.historyStore, err = setupHistoryStore(ctx, cfg, logger)
	if err != nil {
		return nil, fmt.Errorf("setup history: %w", err)
	}

	if signer != nil {
		err = a.setupWallet(signer.Address())
		if err != nil {
			return nil, fmt.Errorf("setup wallet: %w", err)
		}
	}

	a.recorder, err = a.setupRecorder()
	if err != nil {
		return nil, fmt.Errorf("setup recorder: %w", err)
	}

	a.tracker, err = allowance.New(&allowance.Config{
		Reader:       a.chain,
		Store:        allowance.NewStore(),
		Decimals:     int32(cfg.TokenDecimals),
		PollInterval: cfg.AllowancePollInterval,
		Logger:       logger,
	})
	if err != nil {
		return nil, fmt.Errorf("setup allowance tracker: %w", err)
	}

	err = a.setupEventData()
	if err != nil {
		return nil, fmt.Errorf("setup event data: %w", err)
	}

	err = a.setupWriters()
	if err != nil {
		return nil, err
	}

	err = a.setupFlows()
	if err != nil {
		return nil, fmt.Errorf("setup flows: %w", err)
	}

	if signer != nil {
		a.betFlow.BindAccount(signer.Address())
		a.stakeFlow.BindAccount(signer.Address())
	}

	a.httpServer = a.setupHTTPServer()
	a.setupHealthChecks()

	return a, nil
}

func setupSigner(cfg *config.Config, logger *zap.Logger, opts *Options) (*chain.KeySigner, error) {
	if opts.ReadOnly || cfg.PrivateKey == "" {
		logger.Info("signer-disabled", zap.Bool("read-only", opts.ReadOnly))
		return nil, nil
	}

	signer, err := chain.NewKeySigner(cfg.PrivateKey)
	if err != nil {
		return nil, fmt.Errorf("load signing key: %w", err)
	}

	logger.Info("signer-loaded", zap.String("address", signer.Address().Hex()))
	return signer, nil
}

func (a *App) setupChain(ctx context.Context, signer *chain.KeySigner) error {
	dialCtx, cancel := context.WithTimeout(ctx, a.cfg.RPCTimeout)
	defer cancel()

	ethClient, err := ethclient.DialContext(dialCtx, a.cfg.ChainRPCURL)
	if err != nil {
		return fmt.Errorf("dial %s: %w", a.cfg.ChainRPCURL, err)
	}
	a.ethClient = ethClient

	chainCfg := &chain.Config{
		Backend: ethClient,
		ChainID: big.NewInt(a.cfg.ChainID),
		Contracts: chain.Contracts{
			HypeToken: common.HexToAddress(a.cfg.HypeTokenAddress),
			Betting:   common.HexToAddress(a.cfg.BettingContractAddress),
			Oracle:    common.HexToAddress(a.cfg.OracleAddress),
		},
		CallTimeout:         a.cfg.RPCTimeout,
		ReceiptPollInterval: 2 * time.Second,
		Logger:              a.logger,
	}
	if signer != nil {
		chainCfg.Signer = signer
	}

	a.chain, err = chain.New(chainCfg)
	return err
}

func setupCache(logger *zap.Logger) (*cache.RistrettoCache, error) {
	return cache.NewRistrettoCache(&cache.RistrettoConfig{
		NumCounters: 10000, // 10x expected max snapshots
		MaxCost:     1000,  // one cost unit per snapshot
		BufferItems: 64,
		Logger:      logger,
	})
}

func setupHistoryStore(ctx context.Context, cfg *config.Config, logger *zap.Logger) (history.Store, error) {
	var store history.Store = history.NewMemoryStore(logger)

	if cfg.HistoryMode == "postgres" {
		pgStore, err := history.NewPostgresStore(ctx, &history.PostgresConfig{
			DSN:    cfg.PostgresDSN(),
			Logger: logger,
		})
		if err != nil {
			return nil, fmt.Errorf("create postgres store: %w", err)
		}
		store = pgStore
	}

	if len(cfg.KafkaBrokers) == 0 {
		return store, nil
	}

	publisher, err := history.NewKafkaPublisher(cfg.KafkaBrokers, cfg.KafkaTopic, logger)
	if err != nil {
		_ = store.Close()
		return nil, fmt.Errorf("create kafka publisher: %w", err)
	}

	logger.Info("history-kafka-enabled",
		zap.Strings("brokers", cfg.KafkaBrokers),
		zap.String("topic", cfg.KafkaTopic))

	return history.NewPublishingStore(store, publisher, logger), nil
}

func (a *App) setupWallet(address common.Address) error {
	walletClient, err := wallet.NewClient(
		a.chain,
		common.HexToAddress(a.cfg.HypeTokenAddress),
		fanTokenAddresses(a.cfg.FanTokens),
		a.logger,
	)
	if err != nil {
		return err
	}

	a.walletTracker, err = wallet.New(&wallet.Config{
		Client:       walletClient,
		Address:      address,
		Decimals:     int32(a.cfg.TokenDecimals),
		PollInterval: a.cfg.BalancePollInterval,
		Logger:       a.logger,
	})
	if err != nil {
		return err
	}

	if !a.cfg.GasGuardEnabled {
		return nil
	}

	a.gasGuard, err = circuitbreaker.New(&circuitbreaker.Config{
		CheckInterval:   a.cfg.GasGuardCheckInterval,
		CostMultiplier:  a.cfg.GasGuardCostMultiplier,
		MinBalance:      a.cfg.GasGuardMinBalance,
		HysteresisRatio: a.cfg.GasGuardHysteresis,
		WalletClient:    walletClient,
		Address:         address,
		Logger:          a.logger,
	})
	if err != nil {
		return fmt.Errorf("create gas guard: %w", err)
	}

	a.logger.Info("gas-guard-enabled",
		zap.Duration("check-interval", a.cfg.GasGuardCheckInterval),
		zap.Float64("min-balance", a.cfg.GasGuardMinBalance),
		zap.Float64("hysteresis-ratio", a.cfg.GasGuardHysteresis))
	return nil
}

func (a *App) setupRecorder() (*history.Recorder, error) {
	recCfg := &history.RecorderConfig{
		Store:          a.historyStore,
		Waiter:         a.chain,
		ReceiptTimeout: 2 * time.Minute,
		Logger:         a.logger,
	}
	if a.walletTracker != nil {
		recCfg.OnReceipt = a.onReceipt
	}
	return history.NewRecorder(recCfg)
}

func (a *App) setupEventData() error {
	decimals := int32(a.cfg.TokenDecimals)

	oddsReader, err := eventdata.NewOddsReader(a.chain, decimals, a.logger)
	if err != nil {
		return err
	}
	hypeReader, err := eventdata.NewHypeReader(a.chain, a.logger)
	if err != nil {
		return err
	}
	matchReader, err := eventdata.NewMatchInfoReader(a.chain, a.logger)
	if err != nil {
		return err
	}

	a.poller, err = eventdata.NewPoller(&eventdata.PollerConfig{
		Odds:     oddsReader,
		Hype:     hypeReader,
		Match:    matchReader,
		Cache:    a.cache,
		Interval: a.cfg.EventPollInterval,
		Logger:   a.logger,
		// Flows are built after the poller; the handler reads them lazily.
		OnMatch: func(info *eventdata.MatchInfo) {
			matchHandler(a.logger, a.betFlow)(info)
		},
	})
	return err
}

func (a *App) setupWriters() (err error) {
	decimals := int32(a.cfg.TokenDecimals)

	a.coordinator, err = approval.New(&approval.Config{
		Writer:       a.chain,
		Allowance:    a.tracker,
		Recorder:     a.recorder,
		Decimals:     decimals,
		InitialDelay: a.cfg.ApprovalVerifyInitialDelay,
		RetryDelay:   a.cfg.ApprovalVerifyRetryDelay,
		MaxRetries:   a.cfg.ApprovalVerifyMaxRetries,
		Logger:       a.logger,
	})
	if err != nil {
		return fmt.Errorf("setup approval coordinator: %w", err)
	}

	a.submitter, err = action.New(&action.Config{
		Writer:    a.chain,
		Balances:  a.chain,
		HypeToken: common.HexToAddress(a.cfg.HypeTokenAddress),
		Betting:   common.HexToAddress(a.cfg.BettingContractAddress),
		Recorder:  a.recorder,
		Decimals:  decimals,
		Logger:    a.logger,
	})
	if err != nil {
		return fmt.Errorf("setup action submitter: %w", err)
	}
	return nil
}

func (a *App) setupFlows() (err error) {
	hypeToken := common.HexToAddress(a.cfg.HypeTokenAddress)

	betCfg := &flow.Config{
		Kind:      flow.KindBet,
		Spender:   common.HexToAddress(a.cfg.BettingContractAddress),
		Options:   flow.BetOptions(hypeToken),
		Allowance: a.tracker,
		Approver:  a.coordinator,
		Submitter: a.submitter,
		Odds:      a.poller,
		Logger:    a.logger.With(zap.String("flow", string(flow.KindBet))),
	}

	rates := flow.StakeRates{
		Chz:           decimal.NewFromFloat(a.cfg.ChzStakeRate),
		FanToken:      decimal.NewFromFloat(a.cfg.FanTokenBaseRate),
		FanTokenBonus: decimal.NewFromFloat(a.cfg.FanTokenBonusRate),
	}
	stakeCfg := &flow.Config{
		Kind:      flow.KindStake,
		Spender:   hypeToken,
		Options:   flow.StakeOptions(rates, flowFanTokens(a.cfg.FanTokens)),
		Allowance: a.tracker,
		Approver:  a.coordinator,
		Submitter: a.submitter,
		Logger:    a.logger.With(zap.String("flow", string(flow.KindStake))),
	}

	if a.gasGuard != nil {
		betCfg.Guard = a.gasGuard
		stakeCfg.Guard = a.gasGuard
	}

	a.betFlow, err = flow.New(betCfg)
	if err != nil {
		return fmt.Errorf("bet flow: %w", err)
	}

	a.stakeFlow, err = flow.New(stakeCfg)
	if err != nil {
		return fmt.Errorf("stake flow: %w", err)
	}
	return nil
}

func (a *App) setupHTTPServer() *httpserver.Server {
	srvCfg := &httpserver.Config{
		Port:          a.cfg.HTTPPort,
		Logger:        a.logger,
		HealthChecker: a.healthChecker,
		Flows: map[flow.Kind]httpserver.FlowController{
			flow.KindBet:   a.betFlow,
			flow.KindStake: a.stakeFlow,
		},
		Events:  a.poller,
		Staking: a.submitter,
		History: a.historyStore,
	}
	if a.gasGuard != nil {
		srvCfg.GasGuard = a.gasGuard
	}
	if a.walletTracker != nil {
		srvCfg.Wallet = a.walletTracker
	}
	return httpserver.New(srvCfg)
}

type pinger interface {
	Ping(ctx context.Context) error
}

func (a *App) setupHealthChecks() {
	a.healthChecker.AddCheck("chain", func(ctx context.Context) error {
		id, err := a.ethClient.ChainID(ctx)
		if err != nil {
			return err
		}
		if id.Int64() != a.cfg.ChainID {
			return fmt.Errorf("connected to chain %s, want %d", id, a.cfg.ChainID)
		}
		return nil
	})

	if p, ok := a.historyStore.(pinger); ok {
		a.healthChecker.AddCheck("history", p.Ping)
	}

	if a.gasGuard != nil {
		a.healthChecker.AddCheck("gas-guard", func(context.Context) error {
			if !a.gasGuard.IsEnabled() {
				return errors.New("writes disabled: native balance below gas guard threshold")
			}
			return nil
		})
	}
}
