package config

import (
	"os"
	"testing"
	"time"
)

func clearEnv(t *testing.T, keys ...string) {
	t.Helper()
	for _, k := range keys {
		os.Unsetenv(k)
	}
	t.Cleanup(func() {
		for _, k := range keys {
			os.Unsetenv(k)
		}
	})
}

func TestConfig_DiscoveryMarketLimit(t *testing.T) {
	t.Run("zero_allowed", func(t *testing.T) {
		clearEnv(t, "DISCOVERY_MARKET_LIMIT")
		os.Setenv("DISCOVERY_MARKET_LIMIT", "0")

		cfg, err := LoadFromEnv()
		if err != nil {
			t.Fatalf("expected no error, got %v", err)
		}
		if cfg.DiscoveryMarketLimit != 0 {
			t.Errorf("expected DiscoveryMarketLimit to be 0, got %d", cfg.DiscoveryMarketLimit)
		}
	})

	t.Run("positive_allowed", func(t *testing.T) {
		clearEnv(t, "DISCOVERY_MARKET_LIMIT")
		os.Setenv("DISCOVERY_MARKET_LIMIT", "500")

		cfg, err := LoadFromEnv()
		if err != nil {
			t.Fatalf("expected no error, got %v", err)
		}
		if cfg.DiscoveryMarketLimit != 500 {
			t.Errorf("expected DiscoveryMarketLimit to be 500, got %d", cfg.DiscoveryMarketLimit)
		}
	})

	t.Run("default_is_1000", func(t *testing.T) {
		clearEnv(t, "DISCOVERY_MARKET_LIMIT")
		cfg, err := LoadFromEnv()
		if err != nil {
			t.Fatalf("expected no error, got %v", err)
		}
		if cfg.DiscoveryMarketLimit != 1000 {
			t.Errorf("expected default DiscoveryMarketLimit to be 1000, got %d", cfg.DiscoveryMarketLimit)
		}
	})

	t.Run("negative_rejected", func(t *testing.T) {
		cfg := baseValidConfig()
		cfg.DiscoveryMarketLimit = -1

		err := cfg.Validate()
		if err == nil {
			t.Fatal("expected error for negative market limit, got nil")
		}
	})
}

func TestConfig_DryRunDefaultsToOn(t *testing.T) {
	clearEnv(t, "DRY_RUN")
	cfg, err := LoadFromEnv()
	if err != nil {
		t.Fatalf("expected no error, got %v", err)
	}
	if !cfg.DryRun {
		t.Error("expected DRY_RUN to default to true")
	}
}

func TestConfig_DryRunOffRequiresCredentials(t *testing.T) {
	cfg := baseValidConfig()
	cfg.DryRun = false
	cfg.VenueAAPIKeyID = ""
	cfg.VenueAPrivateKey = ""

	if err := cfg.Validate(); err == nil {
		t.Fatal("expected error when DRY_RUN is off and Venue A credentials are missing")
	}
}

func TestConfig_SingleVenueSkipsVenueBRequirement(t *testing.T) {
	cfg := baseValidConfig()
	cfg.SingleVenue = true
	cfg.VenueBBaseURL = ""

	if err := cfg.Validate(); err != nil {
		t.Errorf("expected no error with SINGLE_VENUE set, got %v", err)
	}
}

func TestConfig_ArbThresholdBounds(t *testing.T) {
	cases := []float64{0, 1.0, -0.1, 1.5}
	for _, threshold := range cases {
		cfg := baseValidConfig()
		cfg.ArbThreshold = threshold
		if err := cfg.Validate(); err == nil {
			t.Errorf("expected error for ARB_THRESHOLD=%f, got nil", threshold)
		}
	}
}

func TestConfig_BreakerDefaults(t *testing.T) {
	clearEnv(t, "BREAKER_CONSECUTIVE_THRESHOLD", "BREAKER_WINDOW_THRESHOLD", "BREAKER_COOLDOWN")
	cfg, err := LoadFromEnv()
	if err != nil {
		t.Fatalf("expected no error, got %v", err)
	}
	if cfg.BreakerConsecutiveThreshold != 3 {
		t.Errorf("expected default consecutive threshold 3, got %d", cfg.BreakerConsecutiveThreshold)
	}
	if cfg.BreakerWindowThreshold != 5 {
		t.Errorf("expected default window threshold 5, got %d", cfg.BreakerWindowThreshold)
	}
	if cfg.BreakerCooldown != 30*time.Second {
		t.Errorf("expected default cooldown 30s, got %s", cfg.BreakerCooldown)
	}
}

func TestConfig_DedupeWindowDefault(t *testing.T) {
	clearEnv(t, "DEDUPE_WINDOW")
	cfg, err := LoadFromEnv()
	if err != nil {
		t.Fatalf("expected no error, got %v", err)
	}
	if cfg.DedupeWindow != 250*time.Millisecond {
		t.Errorf("expected default dedupe window 250ms, got %s", cfg.DedupeWindow)
	}
}

func baseValidConfig() *Config {
	return &Config{
		HTTPPort:                    "8080",
		VenueABaseURL:               "https://api.example.com",
		VenueBBaseURL:               "https://clob.example.com",
		ArbThreshold:                0.995,
		TradeSize:                   10,
		DiscoveryMarketLimit:        100,
		WSReconnectDelay:            5 * time.Second,
		BreakerConsecutiveThreshold: 3,
		BreakerWindowThreshold:      5,
		BalanceHysteresisRatio:      1.5,
		DedupeWindow:                250 * time.Millisecond,
		DryRun:                      true,
	}
}
