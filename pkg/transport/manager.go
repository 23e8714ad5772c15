// Package transport is the venue-agnostic streaming connection manager
// shared by internal/venuea and internal/venueb: dial, subscribe, read-loop,
// ping, and fixed-delay reconnect, wired through a connection state machine.
// Venue-specific message parsing, authentication, and Price Cell writes
// happen one layer up — this package moves raw bytes.
package transport

import (
	"context"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"github.com/gorilla/websocket"
	"go.uber.org/zap"
)

// Manager owns a single streaming connection to one venue.
type Manager struct {
	venue  string
	url    string
	logger *zap.Logger

	dialTimeout  time.Duration
	pingInterval time.Duration

	conn         *websocket.Conn
	mu           sync.RWMutex
	subscribed   map[string]bool
	state        *ConnStateMachine
	reconnectMgr *ReconnectManager

	// authenticate, if set, runs after dial and before Subscribing
	// (Venue A's signed handshake; left nil for Venue B's no-auth feed).
	authenticate func(ctx context.Context, conn *websocket.Conn) error

	// buildSubscribe builds the venue-native subscribe frame for a batch
	// of instrument ids, distinguishing the initial snapshot subscription
	// from incremental adds when isInitial is true.
	buildSubscribe func(ids []string, isInitial bool) interface{}

	messageChan chan []byte
	ctx         context.Context
	cancel      context.CancelFunc
	wg          sync.WaitGroup

	connected       atomic.Bool
	connectionStart atomic.Int64
}

// Config configures a Manager.
type Config struct {
	Venue          string
	URL            string
	DialTimeout    time.Duration
	PingInterval   time.Duration
	ReconnectDelay time.Duration
	BufferSize     int
	Logger         *zap.Logger

	Authenticate   func(ctx context.Context, conn *websocket.Conn) error
	BuildSubscribe func(ids []string, isInitial bool) interface{}
}

func New(cfg Config) *Manager {
	ctx, cancel := context.WithCancel(context.Background())

	return &Manager{
		venue:          cfg.Venue,
		url:            cfg.URL,
		logger:         cfg.Logger,
		dialTimeout:    cfg.DialTimeout,
		pingInterval:   cfg.PingInterval,
		subscribed:     make(map[string]bool),
		state:          NewConnStateMachine(),
		reconnectMgr:   NewReconnectManager(ReconnectConfig{Delay: cfg.ReconnectDelay, JitterPercent: 0.1, Venue: cfg.Venue}, cfg.Logger),
		authenticate:   cfg.Authenticate,
		buildSubscribe: cfg.BuildSubscribe,
		messageChan:    make(chan []byte, cfg.BufferSize),
		ctx:            ctx,
		cancel:         cancel,
	}
}

// State returns the connection's current lifecycle state.
func (m *Manager) State() ConnState {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.state.Current()
}

// Start dials, authenticates, and begins the read/ping/reconnect loops.
func (m *Manager) Start() error {
	m.logger.Info("transport-starting", zap.String("venue", m.venue), zap.String("url", m.url))

	if err := m.connect(m.ctx); err != nil {
		m.setState(StateFailed)
		return fmt.Errorf("initial connection: %w", err)
	}

	m.wg.Add(3)
	go m.readLoop()
	go m.pingLoop()
	go m.reconnectLoop()

	return nil
}

func (m *Manager) setState(s ConnState) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if !m.state.Transition(s) {
		m.logger.Warn("illegal-state-transition",
			zap.String("venue", m.venue), zap.String("from", string(m.state.Current())), zap.String("to", string(s)))
		return
	}
	m.logger.Debug("state-transition", zap.String("venue", m.venue), zap.String("to", string(s)))
}

func (m *Manager) connect(ctx context.Context) error {
	m.setState(StateConnecting)

	dialer := websocket.Dialer{HandshakeTimeout: m.dialTimeout}
	conn, _, err := dialer.DialContext(ctx, m.url, nil)
	if err != nil {
		return fmt.Errorf("dial: %w", err)
	}

	// Authenticating is entered even without a handshake hook so both
	// venues follow the same Connecting → Authenticating → Subscribing path.
	m.setState(StateAuthenticating)
	if m.authenticate != nil {
		if err := m.authenticate(ctx, conn); err != nil {
			conn.Close()
			return fmt.Errorf("authenticate: %w", err)
		}
	}

	conn.SetPongHandler(func(string) error { return nil })

	m.mu.Lock()
	m.conn = conn
	m.mu.Unlock()

	m.connected.Store(true)
	m.connectionStart.Store(time.Now().Unix())
	ActiveConnections.WithLabelValues(m.venue).Set(1)

	m.setState(StateSubscribing)
	m.logger.Info("transport-connected", zap.String("venue", m.venue))
	return nil
}

// Subscribe subscribes to a batch of venue-native instrument ids.
func (m *Manager) Subscribe(ids []string) error {
	if len(ids) == 0 {
		return nil
	}

	m.mu.Lock()
	newIDs := make([]string, 0, len(ids))
	for _, id := range ids {
		if !m.subscribed[id] {
			newIDs = append(newIDs, id)
			m.subscribed[id] = true
		}
	}
	if len(newIDs) == 0 {
		m.mu.Unlock()
		return nil
	}
	isInitial := len(m.subscribed) == len(newIDs)
	conn := m.conn
	total := len(m.subscribed)
	m.mu.Unlock()

	frame := m.buildSubscribe(newIDs, isInitial)
	if err := conn.WriteJSON(frame); err != nil {
		m.mu.Lock()
		for _, id := range newIDs {
			delete(m.subscribed, id)
		}
		m.mu.Unlock()
		return fmt.Errorf("write subscribe frame: %w", err)
	}

	SubscriptionCount.WithLabelValues(m.venue).Set(float64(total))
	if isInitial {
		m.setState(StateLive)
	}
	m.logger.Info("subscribed", zap.String("venue", m.venue), zap.Int("new", len(newIDs)), zap.Int("total", total))
	return nil
}

func (m *Manager) readLoop() {
	defer m.wg.Done()

	for {
		select {
		case <-m.ctx.Done():
			return
		default:
		}

		m.mu.RLock()
		conn := m.conn
		m.mu.RUnlock()
		if conn == nil {
			time.Sleep(100 * time.Millisecond)
			continue
		}

		_, message, err := conn.ReadMessage()
		if err != nil {
			m.logger.Warn("read-error", zap.Error(err), zap.String("venue", m.venue))

			if start := m.connectionStart.Load(); start > 0 {
				ConnectionDuration.WithLabelValues(m.venue).Observe(time.Since(time.Unix(start, 0)).Seconds())
			}
			m.connected.Store(false)
			ActiveConnections.WithLabelValues(m.venue).Set(0)
			m.setState(StateFailed)
			return
		}

		MessagesReceivedTotal.WithLabelValues(m.venue).Inc()
		select {
		case m.messageChan <- message:
		default:
			MessagesDroppedTotal.WithLabelValues(m.venue).Inc()
			m.logger.Warn("message-channel-full", zap.String("venue", m.venue))
		}
	}
}

func (m *Manager) pingLoop() {
	defer m.wg.Done()

	ticker := time.NewTicker(m.pingInterval)
	defer ticker.Stop()

	for {
		select {
		case <-m.ctx.Done():
			return
		case <-ticker.C:
			if !m.connected.Load() {
				continue
			}
			m.mu.RLock()
			conn := m.conn
			m.mu.RUnlock()
			if conn == nil {
				continue
			}
			if err := conn.WriteControl(websocket.PingMessage, []byte{}, time.Now().Add(time.Second)); err != nil {
				m.logger.Warn("ping-error", zap.Error(err), zap.String("venue", m.venue))
			}
		}
	}
}

func (m *Manager) reconnectLoop() {
	defer m.wg.Done()

	for {
		select {
		case <-m.ctx.Done():
			return
		default:
		}

		if m.connected.Load() {
			time.Sleep(time.Second)
			continue
		}

		m.setState(StateDisconnected)
		m.logger.Warn("connection-lost-reconnecting", zap.String("venue", m.venue))

		if err := m.reconnectMgr.Reconnect(m.ctx, m.connect); err != nil {
			return // context cancelled
		}

		if err := m.resubscribeAll(); err != nil {
			m.logger.Error("resubscribe-failed", zap.Error(err), zap.String("venue", m.venue))
			m.connected.Store(false)
			continue
		}

		m.wg.Add(1)
		go m.readLoop()
	}
}

func (m *Manager) resubscribeAll() error {
	m.mu.RLock()
	ids := make([]string, 0, len(m.subscribed))
	for id := range m.subscribed {
		ids = append(ids, id)
	}
	conn := m.conn
	m.mu.RUnlock()

	if len(ids) == 0 {
		return nil
	}
	frame := m.buildSubscribe(ids, true)
	if err := conn.WriteJSON(frame); err != nil {
		return fmt.Errorf("write resubscribe frame: %w", err)
	}
	m.setState(StateLive)
	m.logger.Info("resubscribed", zap.String("venue", m.venue), zap.Int("count", len(ids)))
	return nil
}

// Messages returns the channel of raw inbound frames.
func (m *Manager) Messages() <-chan []byte { return m.messageChan }

// Close gracefully drains the connection.
func (m *Manager) Close() error {
	m.setState(StateDraining)
	m.cancel()

	m.mu.RLock()
	if m.conn != nil {
		m.conn.Close()
	}
	m.mu.RUnlock()

	m.wg.Wait()
	close(m.messageChan)
	ActiveConnections.WithLabelValues(m.venue).Set(0)
	m.setState(StateDisconnected)
	m.logger.Info("transport-closed", zap.String("venue", m.venue))
	return nil
}
