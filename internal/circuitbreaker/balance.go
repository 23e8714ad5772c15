package circuitbreaker

import (
	"context"
	"fmt"
	"math"
	"math/big"
	"sync"
	"sync/atomic"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"go.uber.org/zap"

	"github.com/arbcore/xvenue-arb/pkg/wallet"
)

// BalanceFetcher is the subset of wallet.Client the balance gate depends on.
// Tests substitute a mock so the gate can be exercised without a live RPC
// endpoint.
type BalanceFetcher interface {
	GetBalances(ctx context.Context, address common.Address) (*wallet.Balances, error)
}

// minGasReserveWei is the MATIC balance below which the funder wallet can no
// longer reliably pay for settlement gas. It does not gate execution on its
// own -- Venue B orders are off-chain signed and don't spend gas directly --
// but a wallet that can't eventually settle is a problem worth logging loudly
// before it becomes one.
var minGasReserveWei = big.NewInt(1e17) // 0.1 MATIC

// BalanceCircuitBreaker is the funder-wallet solvency gate: unlike Breaker,
// which trips on a streak or density of execution *errors*, this gate trips
// on a shortage of *capital*. It holds no error history and runs no
// half-open probe -- a balance read is cheap and idempotent, so there is
// nothing to probe carefully. It simply asks "can the funder wallet still
// cover a trade of the size we've recently been placing?" on a timer, and
// flips a boolean accordingly. Composed alongside Breaker as a second,
// independent execution gate (see internal/execution/executor.go).
//
// The disable/enable thresholds move with trade history rather than sitting
// fixed: a bot that has been placing $50 trades should stop well before the
// wallet hits zero, while a bot placing $2 trades can run the balance much
// lower before it's genuinely at risk of an undersized fill. HysteresisRatio
// keeps a wallet hovering near the disable line from flapping the gate on
// every check.
type BalanceCircuitBreaker struct {
	enabled atomic.Bool // lock-free reads on the hot path

	checkInterval   time.Duration
	walletClient    BalanceFetcher
	address         common.Address
	logger          *zap.Logger
	tradeMultiplier float64
	minAbsolute     float64
	hysteresisRatio float64

	mu               sync.RWMutex
	lastBalance      float64
	lastCheck        time.Time
	recentTrades     []float64
	disableThreshold float64
	enableThreshold  float64
}

// BalanceConfig configures a BalanceCircuitBreaker.
type BalanceConfig struct {
	CheckInterval   time.Duration
	TradeMultiplier float64
	MinAbsolute     float64
	HysteresisRatio float64
	WalletClient    BalanceFetcher
	Address         common.Address
	Logger          *zap.Logger
}

// BalanceStatus is a point-in-time snapshot of the balance gate, exposed to
// the HTTP status endpoint and to tests.
type BalanceStatus struct {
	Enabled          bool
	LastBalance      float64
	LastCheck        time.Time
	DisableThreshold float64
	EnableThreshold  float64
	AvgTradeSize     float64
	RecentTradeCount int
}

// NewBalance builds a BalanceCircuitBreaker from cfg, starting enabled with
// thresholds seeded from MinAbsolute (no trade history exists yet to derive
// a tighter one).
func NewBalance(cfg *BalanceConfig) (*BalanceCircuitBreaker, error) {
	if cfg == nil {
		return nil, fmt.Errorf("config cannot be nil")
	}
	if cfg.WalletClient == nil {
		return nil, fmt.Errorf("wallet client cannot be nil")
	}
	if cfg.Logger == nil {
		return nil, fmt.Errorf("logger cannot be nil")
	}
	if cfg.CheckInterval <= 0 {
		return nil, fmt.Errorf("check interval must be positive")
	}
	if cfg.TradeMultiplier <= 0 {
		return nil, fmt.Errorf("trade multiplier must be positive")
	}
	if cfg.MinAbsolute <= 0 {
		return nil, fmt.Errorf("min absolute must be positive")
	}
	if cfg.HysteresisRatio < 1.0 {
		return nil, fmt.Errorf("hysteresis ratio must be >= 1.0")
	}

	b := &BalanceCircuitBreaker{
		checkInterval:    cfg.CheckInterval,
		walletClient:     cfg.WalletClient,
		address:          cfg.Address,
		logger:           cfg.Logger,
		tradeMultiplier:  cfg.TradeMultiplier,
		minAbsolute:      cfg.MinAbsolute,
		hysteresisRatio:  cfg.HysteresisRatio,
		recentTrades:     make([]float64, 0, 20),
		disableThreshold: cfg.MinAbsolute,
		enableThreshold:  cfg.MinAbsolute * cfg.HysteresisRatio,
	}

	b.enabled.Store(true)

	BalanceEnabled.Set(1)
	BalanceDisableThreshold.Set(b.disableThreshold)
	BalanceEnableThreshold.Set(b.enableThreshold)
	BalanceAvgTradeSize.Set(0)

	return b, nil
}

// IsEnabled reports whether the funder wallet currently has enough USDC
// headroom to keep trading. Lock-free; safe on hot paths.
func (b *BalanceCircuitBreaker) IsEnabled() bool {
	return b.enabled.Load()
}

// RecordTrade folds a filled trade's size into the rolling window used to
// derive thresholds. Call once per filled trade, after execution succeeds --
// rejected or dry-run trades never touch the funder wallet and shouldn't
// move the bar.
func (b *BalanceCircuitBreaker) RecordTrade(tradeSize float64) {
	if tradeSize <= 0 {
		b.logger.Warn("invalid-trade-size", zap.Float64("size", tradeSize))
		return
	}

	b.mu.Lock()
	defer b.mu.Unlock()

	const windowSize = 20
	b.recentTrades = append(b.recentTrades, tradeSize)
	if len(b.recentTrades) > windowSize {
		b.recentTrades = b.recentTrades[1:]
	}

	avgTradeSize := average(b.recentTrades)
	b.disableThreshold, b.enableThreshold = b.thresholdsFor(avgTradeSize)

	BalanceAvgTradeSize.Set(avgTradeSize)
	BalanceDisableThreshold.Set(b.disableThreshold)
	BalanceEnableThreshold.Set(b.enableThreshold)
}

// thresholdsFor derives the disable/enable pair for a given average trade
// size: disable never drops below minAbsolute regardless of how small
// recent trades have been, and enable sits hysteresisRatio above disable so
// a wallet hovering near the line doesn't flap the gate every check.
func (b *BalanceCircuitBreaker) thresholdsFor(avgTradeSize float64) (disable, enable float64) {
	disable = math.Max(avgTradeSize*b.tradeMultiplier, b.minAbsolute)
	enable = disable * b.hysteresisRatio
	return disable, enable
}

func average(values []float64) float64 {
	if len(values) == 0 {
		return 0
	}
	sum := 0.0
	for _, v := range values {
		sum += v
	}
	return sum / float64(len(values))
}

// CheckBalance reads the funder wallet's current balances and flips the gate
// if the USDC balance crossed a threshold. It also logs a warning, without
// affecting the gate, if the wallet is running low on MATIC for gas.
func (b *BalanceCircuitBreaker) CheckBalance(ctx context.Context) error {
	start := time.Now()
	defer func() { BalanceCheckDuration.Observe(time.Since(start).Seconds()) }()

	balances, err := b.walletClient.GetBalances(ctx, b.address)
	if err != nil {
		b.logger.Error("failed-to-check-balance", zap.Error(err), zap.String("address", b.address.Hex()))
		return fmt.Errorf("get balances: %w", err)
	}

	if balances.MATIC.Cmp(minGasReserveWei) < 0 {
		b.logger.Warn("low-gas-reserve",
			zap.String("address", b.address.Hex()),
			zap.String("matic_wei", balances.MATIC.String()))
	}

	usdcFloat := new(big.Float).Quo(new(big.Float).SetInt(balances.USDC), big.NewFloat(1e6))
	balance, _ := usdcFloat.Float64()

	b.mu.Lock()
	disableThreshold := b.disableThreshold
	enableThreshold := b.enableThreshold
	b.lastBalance = balance
	b.lastCheck = time.Now()
	b.mu.Unlock()

	BalanceBalanceUSDC.Set(balance)

	currentlyEnabled := b.enabled.Load()
	switch {
	case currentlyEnabled && balance < disableThreshold:
		b.enabled.Store(false)
		BalanceEnabled.Set(0)
		BalanceStateChanges.Inc()
		b.logger.Warn("balance-breaker-disabled", zap.Float64("balance", balance), zap.Float64("disable-threshold", disableThreshold))
	case !currentlyEnabled && balance >= enableThreshold:
		b.enabled.Store(true)
		BalanceEnabled.Set(1)
		BalanceStateChanges.Inc()
		b.logger.Info("balance-breaker-enabled", zap.Float64("balance", balance), zap.Float64("enable-threshold", enableThreshold))
	}

	return nil
}

// Start runs an initial balance check synchronously, then monitors the
// funder wallet on checkInterval until ctx is cancelled.
func (b *BalanceCircuitBreaker) Start(ctx context.Context) {
	if err := b.CheckBalance(ctx); err != nil {
		b.logger.Error("initial-balance-check-failed", zap.Error(err))
	}
	go b.monitorLoop(ctx)
}

func (b *BalanceCircuitBreaker) monitorLoop(ctx context.Context) {
	ticker := time.NewTicker(b.checkInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if err := b.CheckBalance(ctx); err != nil {
				b.logger.Error("balance-check-error", zap.Error(err))
			}
		}
	}
}

// GetStatus returns a snapshot of the balance gate's current state.
func (b *BalanceCircuitBreaker) GetStatus() BalanceStatus {
	b.mu.RLock()
	defer b.mu.RUnlock()

	return BalanceStatus{
		Enabled:          b.enabled.Load(),
		LastBalance:      b.lastBalance,
		LastCheck:        b.lastCheck,
		DisableThreshold: b.disableThreshold,
		EnableThreshold:  b.enableThreshold,
		AvgTradeSize:     average(b.recentTrades),
		RecentTradeCount: len(b.recentTrades),
	}
}
