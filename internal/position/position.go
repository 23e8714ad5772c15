// Package position tracks per-market contract positions across both
// venues. All mutation flows through a single writer task; readers take a
// consistent snapshot under a reader-writer lock.
package position

import "github.com/arbcore/xvenue-arb/pkg/types"

// MarketPosition is the current holding for one market, broken out by venue
// and side.
type MarketPosition struct {
	VenueAYes     float64 `json:"venue_a_yes"`
	VenueANo      float64 `json:"venue_a_no"`
	VenueBYes     float64 `json:"venue_b_yes"`
	VenueBNo      float64 `json:"venue_b_no"`
	RealizedCents int64   `json:"realized_cents"`
}

// legSide returns a pointer to the field Update.Leg addresses, so Update can
// apply itself generically without a type switch at every call site.
func (p *MarketPosition) legSide(leg types.Leg) *float64 {
	switch leg {
	case types.LegAYes:
		return &p.VenueAYes
	case types.LegANo:
		return &p.VenueANo
	case types.LegBYes:
		return &p.VenueBYes
	case types.LegBNo:
		return &p.VenueBNo
	default:
		return nil
	}
}

// Update is one position delta, sent by the execution engine after
// reconciling a leg fill (or a pair of fills).
type Update struct {
	MarketID           uint16
	Leg                types.Leg
	DeltaSize          float64
	DeltaRealizedCents int64
}

// apply folds u into p. Unknown legs only affect realized P&L.
func (u Update) apply(p *MarketPosition) {
	if side := p.legSide(u.Leg); side != nil {
		*side += u.DeltaSize
	}
	p.RealizedCents += u.DeltaRealizedCents
}
