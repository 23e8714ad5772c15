package venueb

import (
	"context"
	"time"

	"github.com/arbcore/xvenue-arb/pkg/types"
)

// LegTimeout is the per-call timeout the execution engine applies when
// placing one Venue B leg order.
const LegTimeout = 3 * time.Second

// PlaceLeg places one IOC leg at the observed ask and translates the
// venue's ack into the engine's venue-agnostic LegFill shape. tokenID selects
// which outcome token to trade.
func (c *Client) PlaceLeg(ctx context.Context, leg types.Leg, tokenID string, priceCents int, size float64) types.LegFill {
	ctx, cancel := context.WithTimeout(ctx, LegTimeout)
	defer cancel()

	ack, err := c.PlaceIOCOrder(ctx, tokenID, priceCents, size)
	if err != nil {
		return types.LegFill{Leg: leg, Err: err}
	}
	return types.LegFill{
		Leg:         leg,
		OrderID:     ack.OrderID,
		Filled:      ack.Filled,
		SizeFilled:  ack.FilledSize,
		ActualPrice: types.PriceCents(ack.FillPrice),
	}
}
