package httpserver

import (
	"encoding/json"
	"net/http"

	"go.uber.org/zap"

	"github.com/arbcore/xvenue-arb/internal/state"
	"github.com/arbcore/xvenue-arb/pkg/types"
)

// StateHandler serves a point-in-time summary of the market topology: how
// many markets are tracked, how many currently have both sides quoted, and
// the best directional gap seen across all of them. These are the same
// figures the heartbeat log line reports, made queryable on demand.
type StateHandler struct {
	global *state.GlobalState
	logger *zap.Logger
}

// NewStateHandler creates a new state handler.
func NewStateHandler(global *state.GlobalState, logger *zap.Logger) *StateHandler {
	return &StateHandler{global: global, logger: logger}
}

// MarketGap describes the cheapest directional leg-cost found for one market.
type MarketGap struct {
	MarketID  uint16 `json:"market_id"`
	Direction string `json:"direction"`
	CostCents int    `json:"cost_cents"`
}

// StateResponse is the HTTP response body for GET /state.
type StateResponse struct {
	MarketCount     int        `json:"market_count"`
	BothSidesQuoted int        `json:"both_sides_quoted"`
	BestGap         *MarketGap `json:"best_gap,omitempty"`
}

// HandleState handles GET /state requests.
func (h *StateHandler) HandleState(w http.ResponseWriter, r *http.Request) {
	resp := StateResponse{
		MarketCount: h.global.MarketCount(),
	}

	var bestCost = 101 // one more than the maximum possible leg cost
	var bestGap *MarketGap

	for _, record := range h.global.Markets() {
		a := record.CellA.Load()
		b := record.CellB.Load()

		if a.YesAsk == 0 || a.NoAsk == 0 || b.YesAsk == 0 || b.NoAsk == 0 {
			continue
		}
		resp.BothSidesQuoted++

		feeAYes := types.FeeACents(a.YesAsk)
		feeANo := types.FeeACents(a.NoAsk)
		feeBYes := types.FeeBCents(b.YesAsk, record.VenueBNegRisk)
		feeBNo := types.FeeBCents(b.NoAsk, record.VenueBNegRisk)

		costAYesBNo := int(a.YesAsk) + int(b.NoAsk) + feeAYes + feeBNo
		costBYesANo := int(b.YesAsk) + int(a.NoAsk) + feeANo + feeBYes

		dir := types.DirAYesBNo
		cost := costAYesBNo
		if costBYesANo < cost {
			dir = types.DirBYesANo
			cost = costBYesANo
		}

		if cost < bestCost {
			bestCost = cost
			bestGap = &MarketGap{
				MarketID:  record.MarketID,
				Direction: dir.String(),
				CostCents: cost,
			}
		}
	}
	resp.BestGap = bestGap

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	if err := json.NewEncoder(w).Encode(resp); err != nil {
		h.logger.Error("failed-to-encode-state-response", zap.Error(err))
	}
}
