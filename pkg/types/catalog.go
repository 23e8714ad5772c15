package types

import "time"

// VenueAContract is one tradable H2H/TOTAL/SPREAD contract in Venue A's
// event catalog, as surfaced to discovery.
type VenueAContract struct {
	Ticker        string
	EventTicker   string
	League        string
	Title         string
	MarketType    MarketType
	Participants  []string // two for H2H; one subject for TOTAL/SPREAD
	LineValue     float64
	EventStart    time.Time
	Volume24h     float64
}

// VenueBMarket is one active binary market in Venue B's catalog.
type VenueBMarket struct {
	ConditionID  string
	Slug         string
	League       string
	Question     string
	MarketType   MarketType
	Participants []string
	LineValue    float64
	EventStart   time.Time
	Volume24h    float64
	YesTokenID   string
	NoTokenID    string
	NegRisk      bool
}
