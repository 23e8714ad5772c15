package app

import (
	"context"
	"fmt"
	"strings"

	"github.com/ethereum/go-ethereum/common"
	"go.uber.org/zap"

	"github.com/arbcore/xvenue-arb/internal/arbitrage"
	"github.com/arbcore/xvenue-arb/internal/circuitbreaker"
	"github.com/arbcore/xvenue-arb/internal/discovery"
	"github.com/arbcore/xvenue-arb/internal/execution"
	"github.com/arbcore/xvenue-arb/internal/position"
	"github.com/arbcore/xvenue-arb/internal/state"
	"github.com/arbcore/xvenue-arb/internal/storage"
	"github.com/arbcore/xvenue-arb/internal/venuea"
	"github.com/arbcore/xvenue-arb/internal/venueb"
	"github.com/arbcore/xvenue-arb/pkg/cache"
	"github.com/arbcore/xvenue-arb/pkg/config"
	"github.com/arbcore/xvenue-arb/pkg/healthprobe"
	"github.com/arbcore/xvenue-arb/pkg/httpserver"
	"github.com/arbcore/xvenue-arb/pkg/wallet"
)

// opportunityChanCapacity is the detector's drop-on-full execution channel
// size; sized well above any plausible per-second opportunity burst.
const opportunityChanCapacity = 1024

// New creates a new application instance: it runs one-shot catalog
// discovery to build the frozen market topology, then wires every
// long-lived component (streams, breakers, executor, HTTP server) around
// it without starting any of them. Call Run to start.
func New(cfg *config.Config, logger *zap.Logger, opts *Options) (*App, error) {
	if opts == nil {
		opts = &Options{}
	}

	ctx, cancel := context.WithCancel(context.Background())

	healthChecker := healthprobe.New()

	global, err := setupGlobalState(ctx, cfg, logger, opts)
	if err != nil {
		cancel()
		return nil, fmt.Errorf("setup global state: %w", err)
	}

	arbStorage, err := setupStorage(cfg, logger)
	if err != nil {
		cancel()
		return nil, fmt.Errorf("setup storage: %w", err)
	}

	detector := arbitrage.New(global, arbitrage.Config{
		ThresholdCents: arbitrage.ThresholdCentsFromRate(cfg.ArbThreshold),
		Logger:         logger,
	}, opportunityChanCapacity)

	breaker := circuitbreaker.New(circuitbreaker.Config{
		ConsecutiveThreshold: cfg.BreakerConsecutiveThreshold,
		WindowThreshold:      cfg.BreakerWindowThreshold,
		WindowDuration:       cfg.BreakerWindowDuration,
		Cooldown:             cfg.BreakerCooldown,
		Logger:               logger,
	})

	balanceBreaker, err := setupBalanceBreaker(cfg, logger)
	if err != nil {
		cancel()
		return nil, fmt.Errorf("setup balance breaker: %w", err)
	}

	positions := position.New(position.Config{
		SnapshotPath:     cfg.PositionSnapshotPath,
		SnapshotInterval: cfg.PositionSnapshotInterval,
		Logger:           logger,
	})
	if err := positions.LoadSnapshot(ctx); err != nil {
		logger.Warn("position-snapshot-load-failed", zap.Error(err))
	}

	venueAClient, venueBClient, err := setupVenueClients(cfg, logger)
	if err != nil {
		cancel()
		return nil, fmt.Errorf("setup venue clients: %w", err)
	}

	executor := execution.New(execution.Config{
		Global:               global,
		Opportunities:        detector.Opportunities(),
		VenueA:               venueAClient,
		VenueB:               venueBClient,
		Breaker:              breaker,
		BalanceBreaker:       balanceBreaker,
		Positions:            positions,
		MaxPositionContracts: cfg.MaxPositionContracts,
		TradeSize:            cfg.TradeSize,
		DryRun:               cfg.DryRun,
		DedupeWindow:         cfg.DedupeWindow,
		Logger:               logger,
	})

	venueAStream := venuea.NewStream(venuea.Config{
		URL:            cfg.VenueAWSURL,
		Signer:         venueASigner(cfg, logger),
		Global:         global,
		Detector:       detector,
		ReconnectDelay: cfg.WSReconnectDelay,
		Logger:         logger,
	})

	var venueBStream *venueb.Stream
	if !cfg.SingleVenue {
		venueBStream = venueb.NewStream(venueb.Config{
			URL:            cfg.VenueBWSURL,
			Global:         global,
			Detector:       detector,
			ReconnectDelay: cfg.WSReconnectDelay,
			Logger:         logger,
		})
	}

	httpSrv := httpserver.New(&httpserver.Config{
		Port:          cfg.HTTPPort,
		Logger:        logger,
		HealthChecker: healthChecker,
		Global:        global,
		Positions:     positions,
	})

	return &App{
		cfg:            cfg,
		logger:         logger,
		healthChecker:  healthChecker,
		httpServer:     httpSrv,
		global:         global,
		detector:       detector,
		breaker:        breaker,
		balanceBreaker: balanceBreaker,
		positions:      positions,
		executor:       executor,
		storage:        arbStorage,
		venueAStream:   venueAStream,
		venueBStream:   venueBStream,
		ctx:            ctx,
		cancel:         cancel,
	}, nil
}

// setupGlobalState runs one-shot discovery and freezes the resulting
// topology. A single-venue deployment skips Venue B catalog lookups and
// team-name joining entirely.
func setupGlobalState(ctx context.Context, cfg *config.Config, logger *zap.Logger, opts *Options) (*state.GlobalState, error) {
	global := state.New()

	leagues := splitLeagues(cfg.EnabledLeagues)

	if cfg.SingleVenue {
		venueA := discovery.NewVenueACatalogClient(cfg.VenueABaseURL, logger)
		discoveryClient := discovery.NewClient(venueA, nil, nil, nil, logger)
		result, err := discoveryClient.DiscoverSingleVenue(ctx, leagues)
		if err != nil {
			return nil, fmt.Errorf("discover venue A catalog: %w", err)
		}
		logPairErrors(logger, result.Errors)
		if len(result.Pairs) == 0 {
			return nil, fmt.Errorf("discovery found no venue A markets (%d errors)", len(result.Errors))
		}
		for _, m := range result.Pairs {
			global.AddMarket(m)
		}
		global.Freeze()
		return global, nil
	}

	teamCache, err := discovery.LoadTeamCache("team_cache.json")
	if err != nil {
		return nil, fmt.Errorf("load team cache: %w", err)
	}

	maxCost := int64(cfg.DiscoveryMarketLimit)
	if maxCost <= 0 {
		maxCost = 1000
	}
	ristretto, err := cache.NewRistrettoCache(&cache.RistrettoConfig{
		NumCounters: maxCost * 10,
		MaxCost:     maxCost,
		BufferItems: 64,
		Logger:      logger,
	})
	if err != nil {
		return nil, fmt.Errorf("create market cache backing store: %w", err)
	}

	marketCache, err := discovery.NewMarketCache("market_cache.json", ristretto, logger)
	if err != nil {
		return nil, fmt.Errorf("load market cache: %w", err)
	}

	venueA := discovery.NewVenueACatalogClient(cfg.VenueABaseURL, logger)
	venueB := discovery.NewVenueBCatalogClient(cfg.VenueBGammaURL, logger)
	discoveryClient := discovery.NewClient(venueA, venueB, teamCache, marketCache, logger)

	var result *discovery.Result
	if cfg.ForceDiscovery || opts.ForceDiscovery {
		result, err = discoveryClient.DiscoverAllForce(ctx, leagues)
	} else {
		result, err = discoveryClient.DiscoverAll(ctx, leagues)
	}
	if err != nil {
		return nil, fmt.Errorf("discover catalogs: %w", err)
	}
	logPairErrors(logger, result.Errors)
	if len(result.Pairs) == 0 {
		return nil, fmt.Errorf("discovery matched no market pairs (%d pair errors)", len(result.Errors))
	}

	for _, m := range result.Pairs {
		global.AddMarket(m)
	}
	global.Freeze()

	logger.Info("discovery-complete",
		zap.Int("pairs-matched", len(result.Pairs)),
		zap.Int("pair-errors", len(result.Errors)))

	return global, nil
}

func logPairErrors(logger *zap.Logger, errs []error) {
	for _, err := range errs {
		logger.Warn("discovery-pair-error", zap.Error(err))
	}
}

func splitLeagues(raw string) []string {
	if raw == "" {
		return nil
	}
	var leagues []string
	for _, l := range strings.Split(raw, ",") {
		l = strings.TrimSpace(l)
		if l != "" {
			leagues = append(leagues, l)
		}
	}
	return leagues
}

func setupStorage(cfg *config.Config, logger *zap.Logger) (storage.Storage, error) {
	if cfg.StorageMode == "postgres" {
		pgStorage, err := storage.NewPostgresStorage(&storage.PostgresConfig{
			Host:     cfg.PostgresHost,
			Port:     cfg.PostgresPort,
			User:     cfg.PostgresUser,
			Password: cfg.PostgresPass,
			Database: cfg.PostgresDB,
			SSLMode:  cfg.PostgresSSL,
			Logger:   logger,
		})
		if err != nil {
			return nil, fmt.Errorf("create postgres storage: %w", err)
		}
		return pgStorage, nil
	}

	return storage.NewConsoleStorage(logger), nil
}

// venueASigner builds the Venue A request signer from configured key
// material. Credential files retrieved from this venue family are
// overwhelmingly secp256k1; ed25519 deployments exist but configuring one
// requires a key-type selector this deployment's env surface does not yet
// expose, so ECDSA is the default signer construction.
func venueASigner(cfg *config.Config, logger *zap.Logger) *venuea.Signer {
	if cfg.VenueAAPIKeyID == "" || cfg.VenueAPrivateKey == "" {
		return nil
	}
	signer, err := venuea.NewECDSASigner(cfg.VenueAAPIKeyID, cfg.VenueAPrivateKey)
	if err != nil {
		logger.Warn("venue-a-signer-unavailable", zap.Error(err))
		return nil
	}
	return signer
}

func setupVenueClients(cfg *config.Config, logger *zap.Logger) (*venuea.Client, *venueb.Client, error) {
	venueAClient := venuea.NewClient(cfg.VenueABaseURL, venueASigner(cfg, logger), cfg.DryRun, logger)

	if cfg.SingleVenue {
		return venueAClient, nil, nil
	}

	if cfg.DryRun && cfg.VenueBPrivateKey == "" {
		return venueAClient, venueb.NewClient(cfg.VenueBBaseURL, nil, true, logger), nil
	}

	creds, err := venueb.DeriveAPICredentials(cfg.VenueBPrivateKey, cfg.VenueBFunderAddr)
	if err != nil {
		return nil, nil, fmt.Errorf("derive venue B credentials: %w", err)
	}
	venueBClient := venueb.NewClient(cfg.VenueBBaseURL, creds, cfg.DryRun, logger)

	return venueAClient, venueBClient, nil
}

// setupBalanceBreaker wires the optional funder-wallet balance gate. It
// needs both a signing identity (to know which wallet to watch) and live
// RPC access, so it is skipped — not failed — whenever either is absent:
// single-venue deployments have no Venue B funder wallet at all, and
// dry-run deployments with no configured key have nothing to watch yet.
func setupBalanceBreaker(cfg *config.Config, logger *zap.Logger) (*circuitbreaker.BalanceCircuitBreaker, error) {
	if !cfg.BalanceBreakerEnabled || cfg.SingleVenue {
		return nil, nil
	}
	if cfg.VenueBPrivateKey == "" {
		logger.Info("balance-breaker-disabled", zap.String("reason", "no venue B private key configured"))
		return nil, nil
	}

	creds, err := venueb.DeriveAPICredentials(cfg.VenueBPrivateKey, cfg.VenueBFunderAddr)
	if err != nil {
		return nil, fmt.Errorf("derive venue B credentials: %w", err)
	}

	walletClient, err := wallet.NewClient(cfg.VenueBRPCURL, logger)
	if err != nil {
		logger.Warn("balance-breaker-disabled", zap.String("reason", "wallet client init failed"), zap.Error(err))
		return nil, nil
	}

	balanceBreaker, err := circuitbreaker.NewBalance(&circuitbreaker.BalanceConfig{
		CheckInterval:   cfg.BalanceCheckInterval,
		TradeMultiplier: cfg.BalanceTradeMultiplier,
		MinAbsolute:     cfg.BalanceMinAbsolute,
		HysteresisRatio: cfg.BalanceHysteresisRatio,
		WalletClient:    walletClient,
		Address:         common.HexToAddress(creds.FunderAddress),
		Logger:          logger,
	})
	if err != nil {
		return nil, fmt.Errorf("create balance circuit breaker: %w", err)
	}

	return balanceBreaker, nil
}
