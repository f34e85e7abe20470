package ws

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/gorilla/websocket"
	"github.com/sirupsen/logrus"

	"tradedash/internal/exchange"
	"tradedash/internal/logger"
)

const minEventBuffer = 8

type Options struct {
	URL           string
	DefaultSymbol string
	Reconnect     bool
	ReconnectMin  time.Duration
	ReconnectMax  time.Duration
	EventBuffer   int
}

func New(opts Options, log *logger.Logger) *Client {
	if log == nil {
		log = logger.Discard()
	}
	if opts.ReconnectMin <= 0 {
		opts.ReconnectMin = 1 * time.Second
	}
	if opts.ReconnectMax < opts.ReconnectMin {
		opts.ReconnectMax = 30 * time.Second
	}
	if opts.EventBuffer < minEventBuffer {
		opts.EventBuffer = minEventBuffer
	}

	return &Client{
		url:    opts.URL,
		symbol: opts.DefaultSymbol,
		log:    log,
		dialer: &websocket.Dialer{
			Proxy:            http.ProxyFromEnvironment,
			HandshakeTimeout: 5 * time.Second,
		},
		reconnect:    opts.Reconnect,
		reconnectMin: opts.ReconnectMin,
		reconnectMax: opts.ReconnectMax,
		buffer:       opts.EventBuffer,
	}
}

// Connect opens the push channel and returns its event stream. While a session is
// alive further calls return the same stream instead of dialing again.
func (w *Client) Connect(ctx context.Context) (<-chan exchange.Event, error) {
	w.mu.Lock()
	defer w.mu.Unlock()

	if w.sess != nil {
		if !w.sess.finished() {
			return w.sess.events, nil
		}
		w.sess = nil
	}

	w.logEntry().WithField("url", w.url).Info("Подключение к WS.")

	conn, err := w.dial(ctx)
	if err != nil {
		return nil, fmt.Errorf("connect to push channel: %w", err)
	}

	s := newSession(conn, w.buffer)
	w.sess = s

	w.logEntry().Info("WS соединение установлено.")
	w.onConnected(s)

	go w.readLoop(s)

	return s.events, nil
}

// Disconnect tears the session down and waits for the read loop to release the
// event stream. A later Connect starts from scratch.
func (w *Client) Disconnect() {
	w.mu.Lock()
	s := w.sess
	w.sess = nil
	w.mu.Unlock()

	if s == nil {
		return
	}

	s.stop()
	<-s.done
	w.logEntry().Info("WS соединение закрыто.")
}

func (w *Client) Connected() bool {
	w.mu.Lock()
	s := w.sess
	w.mu.Unlock()
	return s != nil && s.connected.Load()
}

func (w *Client) dial(ctx context.Context) (*websocket.Conn, error) {
	conn, _, err := w.dialer.DialContext(ctx, w.url, nil)
	if err != nil {
		return nil, err
	}
	conn.SetReadLimit(2 << 20)
	return conn, nil
}

// onConnected reports the connection and issues the default subscriptions.
// Subscriptions do not survive a reconnect, so this runs for every new connection.
func (w *Client) onConnected(s *session) error {
	s.connected.Store(true)
	s.emit(exchange.Event{Type: exchange.EventTypeConnected})

	if err := w.subscribeDefaults(s); err != nil {
		w.logEntry().WithError(err).Warn("Не удалось подписаться на каналы WS.")
		s.emit(exchange.Event{Type: exchange.EventTypeError, Err: err})
		return err
	}
	return nil
}

func (w *Client) logEntry() *logrus.Entry {
	entry := w.log.WithComponent("telemetry_ws")
	if w.symbol != "" {
		entry = entry.WithField("symbol", w.symbol)
	}
	return entry
}

func (w *Client) current() *session {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.sess
}

func newSession(conn *websocket.Conn, buffer int) *session {
	ctx, cancel := context.WithCancel(context.Background())
	return &session{
		conn:   conn,
		events: make(chan exchange.Event, buffer),
		ctx:    ctx,
		cancel: cancel,
		stopCh: make(chan struct{}),
		done:   make(chan struct{}),
	}
}

func (s *session) stop() {
	s.stopOnce.Do(func() {
		close(s.stopCh)
		s.cancel()
		s.connected.Store(false)

		s.mu.Lock()
		if s.conn != nil {
			_ = s.conn.Close()
		}
		s.mu.Unlock()
	})
}

func (s *session) stopped() bool {
	select {
	case <-s.stopCh:
		return true
	default:
		return false
	}
}

func (s *session) finished() bool {
	select {
	case <-s.done:
		return true
	default:
		return false
	}
}

// emit delivers an event unless the session is being torn down.
func (s *session) emit(ev exchange.Event) {
	select {
	case s.events <- ev:
	case <-s.stopCh:
	}
}

func (s *session) currentConn() *websocket.Conn {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.conn
}

// swap installs a fresh connection after a reconnect. It refuses once the session
// has been stopped.
func (s *session) swap(conn *websocket.Conn) bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.stopped() {
		_ = conn.Close()
		return false
	}
	if s.conn != nil {
		_ = s.conn.Close()
	}
	s.conn = conn
	return true
}

func (s *session) writeJSON(v any) error {
	conn := s.currentConn()
	if conn == nil {
		return ErrNotConnected
	}

	s.writeMu.Lock()
	defer s.writeMu.Unlock()
	return conn.WriteJSON(v)
}
