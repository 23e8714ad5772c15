package discovery

import (
	"encoding/json"
	"fmt"
	"os"
	"sync"
	"time"

	"github.com/arbcore/xvenue-arb/pkg/cache"
	"go.uber.org/zap"
)

// MarketCacheEntry is the persisted record for one Venue B condition: its
// neg_risk fee-model flag and its two outcome token ids.
type MarketCacheEntry struct {
	NegRisk bool `json:"neg_risk"`
	Tokens  struct {
		Yes string `json:"yes"`
		No  string `json:"no"`
	} `json:"tokens"`
}

// marketCacheTTL is long: this cache only changes when a market's neg_risk
// classification or token ids change, which is effectively never for the
// life of a market.
const marketCacheTTL = 7 * 24 * time.Hour

// MarketCache fronts market_cache.json with an in-memory Ristretto cache so
// repeated lookups during a discovery run don't re-read the file.
type MarketCache struct {
	path   string
	cache  cache.Cache
	logger *zap.Logger

	mu      sync.Mutex
	entries map[string]MarketCacheEntry
}

// NewMarketCache loads market_cache.json (if present) and layers a
// Ristretto-backed in-memory cache in front of it.
func NewMarketCache(path string, backing cache.Cache, logger *zap.Logger) (*MarketCache, error) {
	mc := &MarketCache{
		path:    path,
		cache:   backing,
		logger:  logger,
		entries: make(map[string]MarketCacheEntry),
	}

	raw, err := os.ReadFile(path)
	if os.IsNotExist(err) {
		return mc, nil
	}
	if err != nil {
		return nil, fmt.Errorf("read market cache %s: %w", path, err)
	}

	if err := json.Unmarshal(raw, &mc.entries); err != nil {
		return nil, fmt.Errorf("parse market cache %s: %w", path, err)
	}
	for conditionID, entry := range mc.entries {
		mc.cache.Set(conditionID, entry, marketCacheTTL)
	}
	return mc, nil
}

// Lookup resolves a condition_id's neg_risk flag and outcome tokens, trying
// the in-memory cache first and falling back to the file-backed map.
func (mc *MarketCache) Lookup(conditionID string) (MarketCacheEntry, bool) {
	if v, found := mc.cache.Get(conditionID); found {
		if entry, ok := v.(MarketCacheEntry); ok {
			return entry, true
		}
	}

	mc.mu.Lock()
	entry, ok := mc.entries[conditionID]
	mc.mu.Unlock()
	if ok {
		mc.cache.Set(conditionID, entry, marketCacheTTL)
	}
	return entry, ok
}

// Put records a newly-discovered condition and schedules it for persistence
// on the next Flush.
func (mc *MarketCache) Put(conditionID string, entry MarketCacheEntry) {
	mc.mu.Lock()
	mc.entries[conditionID] = entry
	mc.mu.Unlock()
	mc.cache.Set(conditionID, entry, marketCacheTTL)
}

// Flush rewrites market_cache.json with the current entry set.
func (mc *MarketCache) Flush() error {
	mc.mu.Lock()
	snapshot := make(map[string]MarketCacheEntry, len(mc.entries))
	for k, v := range mc.entries {
		snapshot[k] = v
	}
	mc.mu.Unlock()

	raw, err := json.MarshalIndent(snapshot, "", "  ")
	if err != nil {
		return fmt.Errorf("marshal market cache: %w", err)
	}
	if err := os.WriteFile(mc.path, raw, 0o644); err != nil {
		return fmt.Errorf("write market cache %s: %w", mc.path, err)
	}
	mc.logger.Debug("market-cache-flushed", zap.Int("entries", len(snapshot)))
	return nil
}
