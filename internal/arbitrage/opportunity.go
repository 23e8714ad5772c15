package arbitrage

import (
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/arbcore/xvenue-arb/pkg/types"
)

// Opportunity is the ephemeral message enqueued onto the execution channel
// once a tick's cheaper direction crosses the configured threshold.
type Opportunity struct {
	ID             string
	MarketID       uint16
	Direction      types.Direction
	TotalCostCents int
	FeeCents       int
	DetectedAt     time.Time
}

func newOpportunity(marketID uint16, dir types.Direction, totalCostCents, feeCents int) *Opportunity {
	return &Opportunity{
		ID:             uuid.New().String(),
		MarketID:       marketID,
		Direction:      dir,
		TotalCostCents: totalCostCents,
		FeeCents:       feeCents,
		DetectedAt:     time.Now(),
	}
}

// String returns a human-readable representation of the opportunity.
func (o *Opportunity) String() string {
	return fmt.Sprintf("Opportunity[%s] market=%d dir=%s cost=%dc fee=%dc",
		o.ID[:8], o.MarketID, o.Direction, o.TotalCostCents, o.FeeCents)
}
