package state

import "sync"

// GlobalState is the append-only vector of MarketRecords plus the two hash
// indices that resolve a venue-native identifier to a market_id. The vector
// is built once during discovery, then Frozen: after Freeze returns, no
// further structural writes occur, so the hot tick path (index lookups,
// price cell reads) takes no lock — only the PriceCells inside each record
// are still mutated, and those are already safe without external locking.
type GlobalState struct {
	buildMu sync.Mutex // guards the slice/maps only until Freeze()

	markets        []*MarketRecord
	byVenueATicker map[string]uint16
	byVenueBToken  map[string]uint16

	frozen bool
}

// New creates an empty GlobalState ready to accept markets during discovery.
func New() *GlobalState {
	return &GlobalState{
		byVenueATicker: make(map[string]uint16),
		byVenueBToken:  make(map[string]uint16),
	}
}

// AddMarket assigns the next dense market_id and inserts m, indexing it by
// its Venue A ticker and both Venue B outcome tokens. Must be called before
// Freeze; panics if called afterward, since that would violate the
// topology-immutability invariant the hot path relies on.
func (g *GlobalState) AddMarket(m *MarketRecord) uint16 {
	g.buildMu.Lock()
	defer g.buildMu.Unlock()

	if g.frozen {
		panic("state: AddMarket called after Freeze")
	}

	id := uint16(len(g.markets))
	m.MarketID = id
	g.markets = append(g.markets, m)

	if m.VenueATicker != "" {
		g.byVenueATicker[m.VenueATicker] = id
	}
	if m.VenueBYesToken != "" {
		g.byVenueBToken[m.VenueBYesToken] = id
	}
	if m.VenueBNoToken != "" {
		g.byVenueBToken[m.VenueBNoToken] = id
	}

	return id
}

// Freeze locks the topology. Called once, after discovery completes and
// before any stream task starts.
func (g *GlobalState) Freeze() {
	g.buildMu.Lock()
	defer g.buildMu.Unlock()
	g.frozen = true
}

// MarketCount returns the number of markets in the topology.
func (g *GlobalState) MarketCount() int {
	return len(g.markets)
}

// GetByID returns the MarketRecord for a dense market_id, or nil if out of
// range.
func (g *GlobalState) GetByID(id uint16) *MarketRecord {
	if int(id) >= len(g.markets) {
		return nil
	}
	return g.markets[id]
}

// ResolveVenueATicker resolves a Venue A ticker to a market_id.
func (g *GlobalState) ResolveVenueATicker(ticker string) (uint16, bool) {
	id, ok := g.byVenueATicker[ticker]
	return id, ok
}

// ResolveVenueBToken resolves a Venue B outcome token id to a market_id.
func (g *GlobalState) ResolveVenueBToken(token string) (uint16, bool) {
	id, ok := g.byVenueBToken[token]
	return id, ok
}

// Markets returns the full market vector. Safe to range over concurrently
// once Frozen, since the slice never grows again.
func (g *GlobalState) Markets() []*MarketRecord {
	return g.markets
}
