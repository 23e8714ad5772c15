package venueb

import (
	"context"
	"fmt"
	"strconv"
	"time"

	json "github.com/goccy/go-json"
	"go.uber.org/zap"

	"github.com/arbcore/xvenue-arb/internal/state"
	"github.com/arbcore/xvenue-arb/pkg/transport"
	"github.com/arbcore/xvenue-arb/pkg/types"
)

// MaxTokensPerSubscribe caps the number of outcome tokens in one subscribe
// frame.
const MaxTokensPerSubscribe = 500

// Detector is notified after every Price Cell update so it can re-evaluate
// arbitrage for the affected market. Satisfied by *arbitrage.Detector.
type Detector interface {
	OnTick(marketID uint16)
}

// priceLevel is one (price, size) entry in a book message, both sent as
// decimal strings.
type priceLevel struct {
	Price string `json:"price"`
	Size  string `json:"size"`
}

// bookMessage is the venue's streaming wire shape: a full orderbook
// snapshot ("book") or an incremental top-of-book delta ("price_change")
// for one outcome token.
type bookMessage struct {
	EventType string       `json:"event_type"`
	AssetID   string       `json:"asset_id"`
	Bids      []priceLevel `json:"bids,omitempty"`
	Asks      []priceLevel `json:"asks,omitempty"`
	// price_change carries a single best-price update per side instead of
	// full book arrays.
	BestBid string `json:"best_bid,omitempty"`
	BestAsk string `json:"best_ask,omitempty"`
}

// Stream drives Venue B's streaming market-data connection: it owns a
// transport.Manager, resolves each update to a market_id via Global State,
// and writes into the corresponding Price Cell. No authentication is
// required for market data.
type Stream struct {
	mgr      *transport.Manager
	global   *state.GlobalState
	detector Detector
	logger   *zap.Logger
}

// Config configures a Stream.
type Config struct {
	URL            string
	Global         *state.GlobalState
	Detector       Detector
	ReconnectDelay time.Duration
	Logger         *zap.Logger
}

func NewStream(cfg Config) *Stream {
	s := &Stream{global: cfg.Global, detector: cfg.Detector, logger: cfg.Logger}

	reconnectDelay := cfg.ReconnectDelay
	if reconnectDelay <= 0 {
		reconnectDelay = 5 * time.Second
	}

	s.mgr = transport.New(transport.Config{
		Venue:          "B",
		URL:            cfg.URL,
		DialTimeout:    10 * time.Second,
		PingInterval:   30 * time.Second,
		ReconnectDelay: reconnectDelay,
		BufferSize:     4096,
		Logger:         cfg.Logger,
		Authenticate:   nil,
		BuildSubscribe: func(ids []string, isInitial bool) interface{} {
			msg := map[string]interface{}{"assets_ids": ids}
			if !isInitial {
				msg["operation"] = "subscribe"
			}
			return msg
		},
	})

	return s
}

// Start connects, subscribes to every Venue B outcome token in Global
// State, and begins applying updates.
func (s *Stream) Start(ctx context.Context) error {
	if err := s.mgr.Start(); err != nil {
		return fmt.Errorf("start transport: %w", err)
	}

	var tokens []string
	for _, m := range s.global.Markets() {
		if m.VenueBYesToken != "" {
			tokens = append(tokens, m.VenueBYesToken)
		}
		if m.VenueBNoToken != "" {
			tokens = append(tokens, m.VenueBNoToken)
		}
	}
	for i := 0; i < len(tokens); i += MaxTokensPerSubscribe {
		end := i + MaxTokensPerSubscribe
		if end > len(tokens) {
			end = len(tokens)
		}
		if err := s.mgr.Subscribe(tokens[i:end]); err != nil {
			return fmt.Errorf("subscribe batch: %w", err)
		}
	}

	go s.consume(ctx)
	return nil
}

func (s *Stream) consume(ctx context.Context) {
	for {
		select {
		case <-ctx.Done():
			return
		case raw, ok := <-s.mgr.Messages():
			if !ok {
				return
			}
			s.apply(raw)
		}
	}
}

func (s *Stream) apply(raw []byte) {
	// The feed delivers either a single object or an array of objects per
	// frame; normalize to a slice.
	var batch []bookMessage
	if err := json.Unmarshal(raw, &batch); err != nil {
		var single bookMessage
		if err2 := json.Unmarshal(raw, &single); err2 != nil {
			s.logger.Debug("venue-b-unparseable-message", zap.Error(err))
			return
		}
		batch = []bookMessage{single}
	}

	for _, msg := range batch {
		s.applyOne(msg)
	}
}

func (s *Stream) applyOne(msg bookMessage) {
	if msg.AssetID == "" {
		return
	}

	marketID, ok := s.global.ResolveVenueBToken(msg.AssetID)
	if !ok {
		transport.UnknownInstrumentDropsTotal.WithLabelValues("B").Inc()
		return
	}
	record := s.global.GetByID(marketID)
	if record == nil {
		return
	}
	isYes := record.VenueBYesToken == msg.AssetID

	switch msg.EventType {
	case "book":
		BookSnapshotsTotal.Inc()
		bidCents, okBid := bestLevelCents(msg.Bids)
		askCents, okAsk := bestLevelCents(msg.Asks)
		if !okBid && !okAsk {
			return
		}
		if isYes {
			if okBid {
				record.CellB.SetYesBid(bidCents)
			}
			if okAsk {
				record.CellB.SetYesAsk(askCents)
			}
		} else {
			if okBid {
				record.CellB.SetNoBid(bidCents)
			}
			if okAsk {
				record.CellB.SetNoAsk(askCents)
			}
		}
	case "price_change":
		PriceChangesTotal.Inc()
		if msg.BestBid != "" {
			if cents, ok := priceToCents(msg.BestBid); ok {
				if isYes {
					record.CellB.SetYesBid(cents)
				} else {
					record.CellB.SetNoBid(cents)
				}
			}
		}
		if msg.BestAsk != "" {
			if cents, ok := priceToCents(msg.BestAsk); ok {
				if isYes {
					record.CellB.SetYesAsk(cents)
				} else {
					record.CellB.SetNoAsk(cents)
				}
			}
		}
	default:
		return
	}

	if s.detector != nil {
		s.detector.OnTick(marketID)
	}
}

func bestLevelCents(levels []priceLevel) (types.PriceCents, bool) {
	if len(levels) == 0 {
		return 0, false
	}
	return priceToCents(levels[0].Price)
}

func priceToCents(s string) (types.PriceCents, bool) {
	p, err := strconv.ParseFloat(s, 64)
	if err != nil || p < 0 || p > 1 {
		return 0, false
	}
	return types.PriceCents(p*100 + 0.5), true
}

// Close shuts the stream's transport down.
func (s *Stream) Close() error { return s.mgr.Close() }
