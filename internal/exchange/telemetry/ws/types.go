package ws

import (
	"context"
	"encoding/json"
	"errors"
	"sync"
	"sync/atomic"
	"time"

	"github.com/gorilla/websocket"

	"tradedash/internal/exchange"
	"tradedash/internal/logger"
)

var ErrNotConnected = errors.New("WS соединение не установлено")

type Client struct {
	url          string
	symbol       string
	log          *logger.Logger
	dialer       *websocket.Dialer
	reconnect    bool
	reconnectMin time.Duration
	reconnectMax time.Duration
	buffer       int

	mu   sync.Mutex
	sess *session
}

// session is one Connect..Disconnect lifetime. Its events channel is closed by the
// read loop when the session ends, which releases the consumer.
type session struct {
	mu        sync.Mutex
	writeMu   sync.Mutex
	conn      *websocket.Conn
	events    chan exchange.Event
	ctx       context.Context
	cancel    context.CancelFunc
	stopCh    chan struct{}
	stopOnce  sync.Once
	done      chan struct{}
	connected atomic.Bool
}

// Message is the frame format in both directions.
type Message struct {
	Event string          `json:"event"`
	Data  json.RawMessage `json:"data,omitempty"`
}
