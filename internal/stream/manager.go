package stream

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"sync"
	"time"

	"github.com/gorilla/websocket"

	"github.com/neonddos/console/internal/protocol"
	"github.com/neonddos/console/internal/store"
)

const (
	// DefaultMaxReconnectAttempts is the number of consecutive reconnects
	// before the manager gives up.
	DefaultMaxReconnectAttempts = 5

	// DefaultReconnectDelay is multiplied by the attempt number.
	DefaultReconnectDelay = 3 * time.Second

	handshakeTimeout = 10 * time.Second
	writeTimeout     = 5 * time.Second
)

// ConnectionLostMessage is shown once reconnecting has been given up.
const ConnectionLostMessage = "Connection to server lost. Please refresh the page."

// ErrGaveUp is returned by Run after the last reconnect attempt failed.
var ErrGaveUp = errors.New("stream: gave up reconnecting")

// Config configures a Manager.
type Config struct {
	URL                  string // ws:// or wss:// endpoint, see WebSocketURL
	SessionID            string // optional
	MaxReconnectAttempts int
	ReconnectDelay       time.Duration
	Dialer               *websocket.Dialer
	Header               http.Header
}

// WebSocketURL derives the stream endpoint from the dashboard server URL.
// https servers are reached over wss, everything else over ws.
func WebSocketURL(server *url.URL) string {
	scheme := "ws"
	if server.Scheme == "https" {
		scheme = "wss"
	}
	u := url.URL{Scheme: scheme, Host: server.Host, Path: protocol.StreamPath}
	return u.String()
}

// Manager owns the stream connection of one dashboard session and
// reconnects it with linear backoff.
type Manager struct {
	cfg        Config
	dispatcher *Dispatcher
	alerts     Alerter
	log        *store.Logger

	mu       sync.Mutex
	state    State
	attempts int

	// OnStateChange, if set, is called after every transition from the
	// goroutine running Run.
	OnStateChange func(State)

	sleep func(ctx context.Context, d time.Duration) error
}

// NewManager creates a manager. logger may be nil.
func NewManager(cfg Config, d *Dispatcher, alerts Alerter, logger *store.Logger) *Manager {
	if cfg.ReconnectDelay <= 0 {
		cfg.ReconnectDelay = DefaultReconnectDelay
	}
	if cfg.Dialer == nil {
		cfg.Dialer = &websocket.Dialer{
			Proxy:            http.ProxyFromEnvironment,
			HandshakeTimeout: handshakeTimeout,
		}
	}
	if logger == nil {
		logger = store.Discard()
	}
	return &Manager{
		cfg:        cfg,
		dispatcher: d,
		alerts:     alerts,
		log:        logger,
		sleep:      sleepContext,
	}
}

// State returns the current connection state.
func (m *Manager) State() State {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.state
}

// Attempts returns the number of consecutive reconnect attempts so far.
func (m *Manager) Attempts() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.attempts
}

// Run connects and keeps the stream connected until ctx is cancelled or
// reconnecting is given up. Cancelling ctx closes the socket and aborts
// a pending backoff wait.
func (m *Manager) Run(ctx context.Context) error {
	if m.State() == StateGaveUp {
		return ErrGaveUp
	}

	for {
		m.setState(StateConnecting)
		err := m.connect(ctx)
		m.setState(StateDisconnected)
		if ctx.Err() != nil {
			return ctx.Err()
		}
		m.log.Info("WebSocket connection closed: %v", err)

		delay, ok := m.nextAttempt()
		if !ok {
			m.setState(StateGaveUp)
			m.log.Error("Giving up after %d reconnect attempts", m.cfg.MaxReconnectAttempts)
			m.alerts.ShowAlert(ConnectionLostMessage, SeverityDanger)
			return ErrGaveUp
		}

		m.log.WithField("attempt", m.Attempts()).Info("Reconnecting in %s", delay)
		if err := m.sleep(ctx, delay); err != nil {
			return err
		}
	}
}

// nextAttempt counts a failed connection and returns the delay before the
// next attempt, or false once the limit is reached.
func (m *Manager) nextAttempt() (time.Duration, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.attempts >= m.cfg.MaxReconnectAttempts {
		return 0, false
	}
	m.attempts++
	return m.cfg.ReconnectDelay * time.Duration(m.attempts), true
}

// connect runs one connection until it closes. Transport errors are only
// logged here; Run decides whether to retry.
func (m *Manager) connect(ctx context.Context) error {
	conn, _, err := m.cfg.Dialer.DialContext(ctx, m.cfg.URL, m.header())
	if err != nil {
		m.log.Error("WebSocket error: %v", err)
		return err
	}
	defer conn.Close()

	m.opened()
	m.log.Info("WebSocket connection established")

	done := make(chan struct{})
	defer close(done)
	go func() {
		select {
		case <-ctx.Done():
			conn.Close()
		case <-done:
		}
	}()

	if err := m.handshake(conn); err != nil {
		m.log.Error("WebSocket error: %v", err)
		m.setState(StateClosing)
		return err
	}

	for {
		_, data, err := conn.ReadMessage()
		if err != nil {
			m.setState(StateClosing)
			return err
		}
		m.handleFrame(data)
	}
}

func (m *Manager) header() http.Header {
	h := m.cfg.Header.Clone()
	if h == nil {
		h = http.Header{}
	}
	if m.cfg.SessionID != "" {
		h.Add("Cookie", (&http.Cookie{Name: protocol.SessionCookie, Value: m.cfg.SessionID}).String())
	}
	return h
}

// handshake authenticates (when a session is known) and subscribes to stats.
func (m *Manager) handshake(conn *websocket.Conn) error {
	if m.cfg.SessionID != "" {
		if err := writeJSON(conn, protocol.NewAuthRequest(m.cfg.SessionID)); err != nil {
			return err
		}
	}
	return writeJSON(conn, protocol.NewSubscribeRequest(protocol.EventStats))
}

func writeJSON(conn *websocket.Conn, v interface{}) error {
	data, err := json.Marshal(v)
	if err != nil {
		return fmt.Errorf("failed to marshal frame: %w", err)
	}
	conn.SetWriteDeadline(time.Now().Add(writeTimeout))
	return conn.WriteMessage(websocket.TextMessage, data)
}

func (m *Manager) handleFrame(data []byte) {
	msg, err := protocol.Decode(data)
	if err != nil {
		m.log.WithField("bytes", len(data)).Warn("Dropping malformed frame: %v", err)
		return
	}
	if u, ok := msg.(*protocol.Unknown); ok {
		m.log.Debug("Ignoring message type %q", u.Type)
	}
	m.dispatcher.Dispatch(msg)
}

func (m *Manager) opened() {
	m.mu.Lock()
	m.attempts = 0
	m.state = StateOpen
	hook := m.OnStateChange
	m.mu.Unlock()

	if hook != nil {
		hook(StateOpen)
	}
}

func (m *Manager) setState(s State) {
	m.mu.Lock()
	if m.state == s {
		m.mu.Unlock()
		return
	}
	m.state = s
	hook := m.OnStateChange
	m.mu.Unlock()

	if hook != nil {
		hook(s)
	}
}

func sleepContext(ctx context.Context, d time.Duration) error {
	t := time.NewTimer(d)
	defer t.Stop()

	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}
