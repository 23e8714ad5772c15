package venuea

import (
	"context"
	"fmt"
	"time"

	json "github.com/goccy/go-json"
	"github.com/gorilla/websocket"
	"go.uber.org/zap"

	"github.com/arbcore/xvenue-arb/internal/state"
	"github.com/arbcore/xvenue-arb/pkg/transport"
	"github.com/arbcore/xvenue-arb/pkg/types"
)

// MaxTickersPerSubscribe caps the number of tickers in one subscribe frame;
// the venue rejects larger batches.
const MaxTickersPerSubscribe = 200

// Detector is notified after every Price Cell update so it can re-evaluate
// arbitrage for the affected market. Satisfied by *arbitrage.Detector.
type Detector interface {
	OnTick(marketID uint16)
}

// tickerMessage is the venue's streaming wire shape: a top-of-book snapshot
// or delta for one ticker.
type tickerMessage struct {
	Type   string `json:"type"` // "ticker_snapshot" | "ticker_delta"
	Ticker string `json:"market_ticker"`
	YesBid uint16 `json:"yes_bid"`
	NoBid  uint16 `json:"no_bid"`
	YesAsk uint16 `json:"yes_ask"`
	NoAsk  uint16 `json:"no_ask"`
}

// Stream drives Venue A's streaming market-data connection: it owns a
// transport.Manager, resolves each update to a market_id via Global State,
// and writes into the corresponding Price Cell.
type Stream struct {
	mgr      *transport.Manager
	global   *state.GlobalState
	detector Detector
	logger   *zap.Logger
}

// Config configures a Stream.
type Config struct {
	URL            string
	Signer         *Signer
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
		Venue:          "A",
		URL:            cfg.URL,
		DialTimeout:    10 * time.Second,
		PingInterval:   30 * time.Second,
		ReconnectDelay: reconnectDelay,
		BufferSize:     4096,
		Logger:         cfg.Logger,
		Authenticate:   s.authenticate(cfg.Signer),
		BuildSubscribe: func(ids []string, isInitial bool) interface{} {
			return map[string]interface{}{
				"id":  1,
				"cmd": "subscribe",
				"params": map[string]interface{}{
					"channels":       []string{"ticker"},
					"market_tickers": ids,
					"initial":        isInitial,
				},
			}
		},
	})

	return s
}

// Start connects, subscribes to every Venue A ticker in Global State, and
// begins applying updates.
func (s *Stream) Start(ctx context.Context) error {
	if err := s.mgr.Start(); err != nil {
		return fmt.Errorf("start transport: %w", err)
	}

	var tickers []string
	for _, m := range s.global.Markets() {
		if m.VenueATicker != "" {
			tickers = append(tickers, m.VenueATicker)
		}
	}
	for i := 0; i < len(tickers); i += MaxTickersPerSubscribe {
		end := i + MaxTickersPerSubscribe
		if end > len(tickers) {
			end = len(tickers)
		}
		if err := s.mgr.Subscribe(tickers[i:end]); err != nil {
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
	var msg tickerMessage
	if err := json.Unmarshal(raw, &msg); err != nil {
		s.logger.Debug("venue-a-unparseable-message", zap.Error(err))
		return
	}
	if msg.Ticker == "" {
		return
	}

	marketID, ok := s.global.ResolveVenueATicker(msg.Ticker)
	if !ok {
		transport.UnknownInstrumentDropsTotal.WithLabelValues("A").Inc()
		return
	}

	record := s.global.GetByID(marketID)
	if record == nil {
		return
	}
	record.CellA.SetAll(
		types.PriceCents(msg.YesBid),
		types.PriceCents(msg.NoBid),
		types.PriceCents(msg.YesAsk),
		types.PriceCents(msg.NoAsk),
	)

	if s.detector != nil {
		s.detector.OnTick(marketID)
	}
}

// Close shuts the stream's transport down.
func (s *Stream) Close() error { return s.mgr.Close() }

func (s *Stream) authenticate(signer *Signer) func(ctx context.Context, conn *websocket.Conn) error {
	return func(ctx context.Context, conn *websocket.Conn) error {
		headers, err := signer.Headers("GET", "/ws")
		if err != nil {
			return fmt.Errorf("sign ws handshake: %w", err)
		}
		return conn.WriteJSON(map[string]interface{}{"cmd": "auth", "headers": headers})
	}
}
