package state

import "github.com/arbcore/xvenue-arb/pkg/types"

// PairMeta audits how a MarketRecord's two legs were matched during
// discovery, kept for troubleshooting ambiguous pairings.
type PairMeta struct {
	Participants     []string
	EventDate        string
	LineValue        float64
	TieBreakApplied  bool
	TieBreakReason   string
	VenueBCandidates int // number of Venue B markets that matched before tie-break
}

// MarketRecord is one paired contract tracked across both venues.
// MarketID is assigned once, on insertion into GlobalState, and is stable
// for the process lifetime.
type MarketRecord struct {
	MarketID   uint16
	Description string
	MarketType types.MarketType

	VenueATicker string

	VenueBConditionID string
	VenueBYesToken    string
	VenueBNoToken     string
	VenueBNegRisk     bool

	CellA *PriceCell
	CellB *PriceCell

	PairMeta *PairMeta
}

// NewMarketRecord allocates a MarketRecord with fresh, zeroed price cells.
// MarketID is left unset; GlobalState.AddMarket assigns it on insertion.
func NewMarketRecord() *MarketRecord {
	return &MarketRecord{
		CellA: &PriceCell{},
		CellB: &PriceCell{},
	}
}
