package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"time"
)

// Config holds all application configuration.
type Config struct {
	// Application
	LogLevel string
	HTTPPort string

	// Dry-run / degrade toggles
	DryRun         bool // default on; off places real orders
	SingleVenue    bool // disables Venue B entirely; no arbitrage is possible
	ForceDiscovery bool // bypass the cached catalog on startup

	// Venue A (Kalshi-shaped) credentials
	VenueABaseURL    string
	VenueAWSURL      string
	VenueAAPIKeyID   string
	VenueAPrivateKey string // hex-encoded ECDSA or ed25519 key material

	// Venue B (Polymarket-shaped) credentials
	VenueBBaseURL      string
	VenueBWSURL        string
	VenueBGammaURL     string
	VenueBRPCURL       string // Polygon JSON-RPC endpoint, for funder balance checks
	VenueBPrivateKey   string // hex-encoded EOA private key
	VenueBFunderAddr   string // proxy/Gnosis-Safe funder; empty = direct EOA

	// Discovery
	EnabledLeagues        string // comma-separated league/category filter
	DiscoveryPollInterval time.Duration
	DiscoveryMarketLimit  int

	// Streaming
	WSReconnectDelay    time.Duration // fixed delay, no exponential backoff
	WSReconnectJitter   time.Duration

	// Arbitrage detection
	ArbThreshold float64 // e.g. 0.995 -> threshold_cents = round(ARB_THRESHOLD*100)

	// Execution
	TradeSize            float64
	MaxPositionContracts float64
	DedupeWindow         time.Duration

	// Error-rate circuit breaker
	BreakerConsecutiveThreshold int
	BreakerWindowThreshold      int
	BreakerWindowDuration       time.Duration
	BreakerCooldown             time.Duration

	// Balance circuit breaker
	BalanceBreakerEnabled         bool
	BalanceCheckInterval          time.Duration
	BalanceTradeMultiplier        float64
	BalanceMinAbsolute            float64
	BalanceHysteresisRatio        float64

	// Storage
	StorageMode  string // "postgres" or "console"
	PostgresHost string
	PostgresPort string
	PostgresUser string
	PostgresPass string
	PostgresDB   string
	PostgresSSL  string

	// Position tracker snapshot persistence
	PositionSnapshotPath     string
	PositionSnapshotInterval time.Duration
}

// LoadFromEnv loads configuration from environment variables with defaults.
func LoadFromEnv() (*Config, error) {
	cfg := &Config{
		LogLevel: getEnvOrDefault("LOG_LEVEL", "info"),
		HTTPPort: getEnvOrDefault("HTTP_PORT", "8080"),

		DryRun:         getBoolOrDefault("DRY_RUN", true),
		SingleVenue:    getBoolOrDefault("SINGLE_VENUE", false),
		ForceDiscovery: getBoolOrDefault("FORCE_DISCOVERY", false),

		VenueABaseURL:    getEnvOrDefault("VENUE_A_BASE_URL", "https://api.elections.kalshi.com/trade-api/v2"),
		VenueAWSURL:      getEnvOrDefault("VENUE_A_WS_URL", "wss://api.elections.kalshi.com/trade-api/ws/v2"),
		VenueAAPIKeyID:   os.Getenv("VENUE_A_API_KEY_ID"),
		VenueAPrivateKey: os.Getenv("VENUE_A_PRIVATE_KEY"),

		VenueBBaseURL:    getEnvOrDefault("VENUE_B_BASE_URL", "https://clob.polymarket.com"),
		VenueBWSURL:      getEnvOrDefault("VENUE_B_WS_URL", "wss://ws-subscriptions-clob.polymarket.com/ws/market"),
		VenueBGammaURL:   getEnvOrDefault("VENUE_B_GAMMA_URL", "https://gamma-api.polymarket.com"),
		VenueBRPCURL:     getEnvOrDefault("VENUE_B_RPC_URL", "https://polygon-rpc.com"),
		VenueBPrivateKey: os.Getenv("VENUE_B_PRIVATE_KEY"),
		VenueBFunderAddr: os.Getenv("VENUE_B_FUNDER_ADDRESS"),

		EnabledLeagues:        getEnvOrDefault("ENABLED_LEAGUES", ""),
		DiscoveryPollInterval: getDurationOrDefault("DISCOVERY_POLL_INTERVAL", 30*time.Second),
		DiscoveryMarketLimit:  getIntOrDefault("DISCOVERY_MARKET_LIMIT", 1000),

		WSReconnectDelay:  getDurationOrDefault("WS_RECONNECT_DELAY_SECS", 5*time.Second),
		WSReconnectJitter: getDurationOrDefault("WS_RECONNECT_JITTER", 1*time.Second),

		ArbThreshold: getFloat64OrDefault("ARB_THRESHOLD", 0.995),

		TradeSize:            getFloat64OrDefault("TRADE_SIZE", 10.0),
		MaxPositionContracts: getFloat64OrDefault("MAX_POSITION_CONTRACTS", 1000.0),
		DedupeWindow:         getDurationOrDefault("DEDUPE_WINDOW", 250*time.Millisecond),

		BreakerConsecutiveThreshold: getIntOrDefault("BREAKER_CONSECUTIVE_THRESHOLD", 3),
		BreakerWindowThreshold:      getIntOrDefault("BREAKER_WINDOW_THRESHOLD", 5),
		BreakerWindowDuration:       getDurationOrDefault("BREAKER_WINDOW_DURATION", 60*time.Second),
		BreakerCooldown:             getDurationOrDefault("BREAKER_COOLDOWN", 30*time.Second),

		BalanceBreakerEnabled:  getBoolOrDefault("BALANCE_BREAKER_ENABLED", true),
		BalanceCheckInterval:   getDurationOrDefault("BALANCE_CHECK_INTERVAL", 300*time.Second),
		BalanceTradeMultiplier: getFloat64OrDefault("BALANCE_TRADE_MULTIPLIER", 3.0),
		BalanceMinAbsolute:     getFloat64OrDefault("BALANCE_MIN_ABSOLUTE", 5.0),
		BalanceHysteresisRatio: getFloat64OrDefault("BALANCE_HYSTERESIS_RATIO", 1.5),

		StorageMode:  getEnvOrDefault("STORAGE_MODE", "console"),
		PostgresHost: getEnvOrDefault("POSTGRES_HOST", "localhost"),
		PostgresPort: getEnvOrDefault("POSTGRES_PORT", "5432"),
		PostgresUser: getEnvOrDefault("POSTGRES_USER", "arbcore"),
		PostgresPass: getEnvOrDefault("POSTGRES_PASSWORD", "arbcore"),
		PostgresDB:   getEnvOrDefault("POSTGRES_DB", "xvenue_arb"),
		PostgresSSL:  getEnvOrDefault("POSTGRES_SSLMODE", "disable"),

		PositionSnapshotPath:     getEnvOrDefault("POSITION_SNAPSHOT_PATH", "positions.json"),
		PositionSnapshotInterval: getDurationOrDefault("POSITION_SNAPSHOT_INTERVAL", time.Minute),
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("validate config: %w", err)
	}

	return cfg, nil
}

// Validate checks that configuration values are valid.
func (c *Config) Validate() error {
	if c.HTTPPort == "" {
		return errors.New("HTTP_PORT cannot be empty")
	}
	if c.VenueABaseURL == "" {
		return errors.New("VENUE_A_BASE_URL cannot be empty")
	}
	if !c.SingleVenue && c.VenueBBaseURL == "" {
		return errors.New("VENUE_B_BASE_URL cannot be empty unless SINGLE_VENUE is set")
	}

	if c.ArbThreshold <= 0 || c.ArbThreshold >= 1.0 {
		return fmt.Errorf("ARB_THRESHOLD must be between 0 and 1.0, got %f", c.ArbThreshold)
	}

	if !c.DryRun {
		if c.VenueAAPIKeyID == "" || c.VenueAPrivateKey == "" {
			return errors.New("Venue A credentials are required when DRY_RUN is off")
		}
		if !c.SingleVenue && c.VenueBPrivateKey == "" {
			return errors.New("Venue B private key is required when DRY_RUN is off and SINGLE_VENUE is not set")
		}
	}

	if c.TradeSize <= 0 {
		return fmt.Errorf("TRADE_SIZE must be positive, got %f", c.TradeSize)
	}
	if c.DiscoveryMarketLimit < 0 {
		return fmt.Errorf("DISCOVERY_MARKET_LIMIT must be non-negative, got %d", c.DiscoveryMarketLimit)
	}
	if c.WSReconnectDelay <= 0 {
		return fmt.Errorf("WS_RECONNECT_DELAY_SECS must be positive, got %s", c.WSReconnectDelay)
	}
	if c.BreakerConsecutiveThreshold <= 0 {
		return fmt.Errorf("BREAKER_CONSECUTIVE_THRESHOLD must be positive, got %d", c.BreakerConsecutiveThreshold)
	}
	if c.BreakerWindowThreshold <= 0 {
		return fmt.Errorf("BREAKER_WINDOW_THRESHOLD must be positive, got %d", c.BreakerWindowThreshold)
	}
	if c.BalanceBreakerEnabled && c.BalanceHysteresisRatio < 1.0 {
		return fmt.Errorf("BALANCE_HYSTERESIS_RATIO must be >= 1.0, got %f", c.BalanceHysteresisRatio)
	}
	if c.DedupeWindow <= 0 {
		return fmt.Errorf("DEDUPE_WINDOW must be positive, got %s", c.DedupeWindow)
	}

	return nil
}

func getEnvOrDefault(key string, defaultValue string) string {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}
	return value
}

func getIntOrDefault(key string, defaultValue int) int {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}
	intVal, err := strconv.Atoi(value)
	if err != nil {
		return defaultValue
	}
	return intVal
}

func getFloat64OrDefault(key string, defaultValue float64) float64 {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}
	floatVal, err := strconv.ParseFloat(value, 64)
	if err != nil {
		return defaultValue
	}
	return floatVal
}

func getDurationOrDefault(key string, defaultValue time.Duration) time.Duration {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}
	duration, err := time.ParseDuration(value)
	if err != nil {
		return defaultValue
	}
	return duration
}

func getBoolOrDefault(key string, defaultValue bool) bool {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}
	boolVal, err := strconv.ParseBool(value)
	if err != nil {
		return defaultValue
	}
	return boolVal
}
