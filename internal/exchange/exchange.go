package exchange

import (
	"context"
	"encoding/json"

	"tradedash/internal/models"
)

type EventType string

// Event names are the wire contract with the telemetry server.
const (
	EventTypeTicker       EventType = "ticker:data"
	EventTypeOrders       EventType = "orders:data"
	EventTypePositions    EventType = "positions:data"
	EventTypeConnected    EventType = "connect"
	EventTypeDisconnected EventType = "disconnect"
	EventTypeError        EventType = "error"
)

const (
	TopicTickerSubscribe    = "ticker:subscribe"
	TopicOrdersSubscribe    = "orders:subscribe"
	TopicPositionsSubscribe = "positions:subscribe"
)

// Event is one push-channel notification. Data events carry the raw payload for the
// normalizer; Error events carry Err.
type Event struct {
	Type    EventType
	Payload json.RawMessage
	Err     error
}

// Result is the uniform shape of every request/response call. Data is never left
// unset on failure: list calls return empty lists and lookups return nil.
type Result[T any] struct {
	Success bool   `json:"success"`
	Data    T      `json:"data"`
	Message string `json:"message,omitempty"`
}

type Feed interface {
	Connect(ctx context.Context) (<-chan Event, error)
	Disconnect()
	Connected() bool
	SubscribeTicker(symbol string) error
	SubscribeOrders() error
	SubscribePositions() error
}

type Fetcher interface {
	Health(ctx context.Context) Result[models.HealthStatus]
	Orders(ctx context.Context) Result[[]models.Order]
	Order(ctx context.Context, id string) Result[*models.Order]
	Positions(ctx context.Context) Result[[]models.Position]
	Position(ctx context.Context, id string) Result[*models.Position]
}
