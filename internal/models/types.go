package models

import (
	"encoding/json"
	"math"
	"strconv"
)

type OrderSide string
type OrderType string
type OrderStatus string
type PositionSide string

const (
	OrderSideBuy  OrderSide = "buy"
	OrderSideSell OrderSide = "sell"

	OrderTypeLimit  OrderType = "limit"
	OrderTypeMarket OrderType = "market"

	OrderStatusOpen      OrderStatus = "open"
	OrderStatusFilled    OrderStatus = "filled"
	OrderStatusCancelled OrderStatus = "cancelled"
	OrderStatusPartial   OrderStatus = "partial"

	PositionSideLong  PositionSide = "long"
	PositionSideShort PositionSide = "short"
)

// EpochMillis is a millisecond timestamp. Values coerced from malformed strings stay NaN.
type EpochMillis float64

func NewEpochMillis(v float64) *EpochMillis {
	ms := EpochMillis(v)
	return &ms
}

func (m EpochMillis) Float() float64 {
	return float64(m)
}

func (m EpochMillis) IsNaN() bool {
	return math.IsNaN(float64(m))
}

func (m EpochMillis) MarshalJSON() ([]byte, error) {
	v := float64(m)
	if math.IsNaN(v) || math.IsInf(v, 0) {
		return []byte("null"), nil
	}
	return []byte(strconv.FormatFloat(v, 'f', -1, 64)), nil
}

func (m *EpochMillis) UnmarshalJSON(data []byte) error {
	if string(data) == "null" {
		*m = EpochMillis(math.NaN())
		return nil
	}
	var v float64
	if err := json.Unmarshal(data, &v); err != nil {
		return err
	}
	*m = EpochMillis(v)
	return nil
}

type Ticker struct {
	Symbol           string `json:"symbol"`
	Price            string `json:"price"`
	Change24h        string `json:"change24h"`
	Change24hPercent string `json:"change24hPercent"`
	Volume24h        string `json:"volume24h"`
	High24h          string `json:"high24h"`
	Low24h           string `json:"low24h"`
	Timestamp        int64  `json:"timestamp"`
}

type Order struct {
	ID        string       `json:"id"`
	OrderID   string       `json:"orderId,omitempty"`
	ClientOID string       `json:"clientOid,omitempty"`
	Symbol    string       `json:"symbol"`
	Side      OrderSide    `json:"side,omitempty"`
	Type      OrderType    `json:"type,omitempty"`
	Amount    string       `json:"amount,omitempty"`
	Price     string       `json:"price,omitempty"`
	Filled    string       `json:"filled,omitempty"`
	Remaining string       `json:"remaining,omitempty"`
	Status    OrderStatus  `json:"status,omitempty"`
	CreatedAt *EpochMillis `json:"createdAt,omitempty"`
	UpdatedAt *EpochMillis `json:"updatedAt,omitempty"`
}

type Position struct {
	ID               string       `json:"id"`
	Symbol           string       `json:"symbol"`
	Side             PositionSide `json:"side,omitempty"`
	Size             string       `json:"size,omitempty"`
	NotionalSize     string       `json:"notionalSize,omitempty"`
	AvgPrice         string       `json:"avgPrice,omitempty"`
	MarkPrice        string       `json:"markPrice,omitempty"`
	PnL              string       `json:"pnl,omitempty"`
	PnLPercent       string       `json:"pnlPercent,omitempty"`
	Margin           string       `json:"margin,omitempty"`
	LiquidationPrice string       `json:"liquidationPrice,omitempty"`
	CreatedAt        *EpochMillis `json:"createdAt,omitempty"`
	UpdatedAt        *EpochMillis `json:"updatedAt,omitempty"`
}

type HealthState string

const (
	HealthOK    HealthState = "ok"
	HealthError HealthState = "error"
)

type HealthStatus struct {
	Status    HealthState `json:"status"`
	Timestamp int64       `json:"timestamp"`
	Version   string      `json:"version"`
}
