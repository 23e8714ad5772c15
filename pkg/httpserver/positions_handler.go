package httpserver

import (
	"encoding/json"
	"net/http"

	"go.uber.org/zap"

	"github.com/arbcore/xvenue-arb/internal/position"
)

// PositionsHandler serves the Position Tracker's current in-memory snapshot.
type PositionsHandler struct {
	positions *position.Tracker
	logger    *zap.Logger
}

// NewPositionsHandler creates a new positions handler.
func NewPositionsHandler(positions *position.Tracker, logger *zap.Logger) *PositionsHandler {
	return &PositionsHandler{positions: positions, logger: logger}
}

// HandlePositions handles GET /positions requests.
func (h *PositionsHandler) HandlePositions(w http.ResponseWriter, r *http.Request) {
	snap := h.positions.Snapshot()

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	if err := json.NewEncoder(w).Encode(snap); err != nil {
		h.logger.Error("failed-to-encode-positions-response", zap.Error(err))
	}
}
