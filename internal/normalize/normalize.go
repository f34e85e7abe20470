// Package normalize maps server payloads of both dialects (generic and exchange-native)
// onto the canonical models. Malformed payloads degrade to empty results and are
// reported to a Diagnostics hook instead of failing.
package normalize

import (
	"bytes"
	"encoding/json"
	"math"
	"strconv"

	"tradedash/internal/models"
)

type Kind string

const (
	KindOrders    Kind = "orders"
	KindPositions Kind = "positions"
	KindTicker    Kind = "ticker"
)

const (
	ReasonInvalidJSON = "invalid_json"
	ReasonShape       = "unrecognized_shape"
	ReasonEnvelope    = "envelope_not_array"
	ReasonElement     = "element_not_object"
)

const (
	ordersEnvelope    = "activeOrders"
	positionsEnvelope = "allPositions"
)

type Diagnostics interface {
	Degraded(kind Kind, reason string)
}

type nopDiagnostics struct{}

func (nopDiagnostics) Degraded(Kind, string) {}

type Normalizer struct {
	diag Diagnostics
}

func New(diag Diagnostics) *Normalizer {
	if diag == nil {
		diag = nopDiagnostics{}
	}
	return &Normalizer{diag: diag}
}

var orderStatuses = map[string]models.OrderStatus{
	"open":      models.OrderStatusOpen,
	"live":      models.OrderStatusOpen,
	"filled":    models.OrderStatusFilled,
	"partial":   models.OrderStatusPartial,
	"cancelled": models.OrderStatusCancelled,
	"canceled":  models.OrderStatusCancelled,
}

var orderSides = map[string]models.OrderSide{
	"buy":  models.OrderSideBuy,
	"sell": models.OrderSideSell,
}

var orderTypes = map[string]models.OrderType{
	"limit":  models.OrderTypeLimit,
	"market": models.OrderTypeMarket,
}

var positionSides = map[string]models.PositionSide{
	"long":  models.PositionSideLong,
	"short": models.PositionSideShort,
}

// Orders accepts a bare array or an {"activeOrders": [...]} envelope.
//
// An element without an id of its own gets its array index as id. That fallback
// can collide with a numeric native id in the same list, e.g. [{"id":"1"},{},{}]
// yields two orders with id "1".
func (n *Normalizer) Orders(payload []byte) []models.Order {
	items := n.elements(KindOrders, payload, ordersEnvelope)
	orders := make([]models.Order, 0, len(items))

	for _, item := range items {
		var raw rawOrder
		if err := json.Unmarshal(item.data, &raw); err != nil {
			n.diag.Degraded(KindOrders, ReasonElement)
			continue
		}
		orders = append(orders, mapOrder(raw, item.index))
	}
	return orders
}

// Positions accepts a bare array or an {"allPositions": [...]} envelope.
func (n *Normalizer) Positions(payload []byte) []models.Position {
	items := n.elements(KindPositions, payload, positionsEnvelope)
	positions := make([]models.Position, 0, len(items))

	for _, item := range items {
		var raw rawPosition
		if err := json.Unmarshal(item.data, &raw); err != nil {
			n.diag.Degraded(KindPositions, ReasonElement)
			continue
		}
		positions = append(positions, mapPosition(raw, item.index))
	}
	return positions
}

// Order normalizes a single order object, as returned by a by-id lookup.
func (n *Normalizer) Order(payload []byte) (*models.Order, bool) {
	var raw rawOrder
	if !n.object(KindOrders, payload, &raw) {
		return nil, false
	}
	order := mapOrder(raw, 0)
	return &order, true
}

func (n *Normalizer) Position(payload []byte) (*models.Position, bool) {
	var raw rawPosition
	if !n.object(KindPositions, payload, &raw) {
		return nil, false
	}
	position := mapPosition(raw, 0)
	return &position, true
}

func (n *Normalizer) Ticker(payload []byte) (models.Ticker, bool) {
	var raw rawTicker
	if !n.object(KindTicker, payload, &raw) {
		return models.Ticker{}, false
	}

	ticker := models.Ticker{
		Symbol:           firstText(raw.Symbol, raw.InstID),
		Price:            firstText(raw.Price, raw.LastPr),
		Change24h:        firstText(raw.Change24h),
		Change24hPercent: firstText(raw.Change24hPercent),
		Volume24h:        firstText(raw.Volume24h, raw.BaseVolume),
		High24h:          firstText(raw.High24h),
		Low24h:           firstText(raw.Low24h),
	}
	if ts, ok := firstMillis(raw.Timestamp, raw.TS); ok && !math.IsNaN(ts) && !math.IsInf(ts, 0) {
		ticker.Timestamp = int64(ts)
	}
	return ticker, true
}

func mapOrder(raw rawOrder, index int) models.Order {
	id, ok := firstPresent(raw.ID, raw.OrderID, raw.ClientOID)
	if !ok {
		id = strconv.Itoa(index)
	}

	order := models.Order{
		ID:        id,
		OrderID:   firstText(raw.OrderID),
		ClientOID: firstText(raw.ClientOID),
		Symbol:    firstText(raw.Symbol),
		Side:      orderSides[firstText(raw.Side)],
		Type:      resolveOrderType(raw.Type, raw.OrderType),
		Amount:    firstText(raw.Amount, raw.Size),
		Price:     firstText(raw.Price),
		Filled:    firstText(raw.Filled),
		Remaining: firstText(raw.Remaining),
		Status:    orderStatuses[firstText(raw.Status)],
	}

	if v, ok := firstMillis(raw.CreatedAt, raw.CTime); ok {
		order.CreatedAt = models.NewEpochMillis(v)
	}
	if v, ok := firstMillis(raw.UpdatedAt, raw.UTime); ok {
		order.UpdatedAt = models.NewEpochMillis(v)
	}
	return order
}

// resolveOrderType takes the first candidate that is a known order type. Candidates
// are checked in field order, so {"type":"market","orderType":"limit"} resolves to
// market. Earlier dashboards let limit win across both fields; field order is kept
// on purpose so one payload field decides.
func resolveOrderType(candidates ...text) models.OrderType {
	for _, c := range candidates {
		if t, ok := orderTypes[c.value]; c.set && ok {
			return t
		}
	}
	return ""
}

func mapPosition(raw rawPosition, index int) models.Position {
	id, ok := firstPresent(raw.ID)
	if !ok {
		side, ok := firstPresent(raw.HoldSide, raw.Side)
		if !ok {
			side = strconv.Itoa(index)
		}
		id = firstText(raw.Symbol) + "_" + side
	}

	position := models.Position{
		ID:               id,
		Symbol:           firstText(raw.Symbol),
		Side:             positionSides[firstText(raw.HoldSide, raw.Side)],
		Size:             firstText(raw.Size),
		NotionalSize:     firstText(raw.NotionalSize),
		AvgPrice:         firstText(raw.AvgPrice),
		MarkPrice:        firstText(raw.MarkPrice),
		PnL:              firstText(raw.PnL),
		PnLPercent:       firstText(raw.PnLPercent),
		Margin:           firstText(raw.Margin),
		LiquidationPrice: firstText(raw.LiquidationPrice),
	}

	if v, ok := firstMillis(raw.CreatedAt, raw.CTime); ok {
		position.CreatedAt = models.NewEpochMillis(v)
	}
	if v, ok := firstMillis(raw.UpdatedAt, raw.UTime); ok {
		position.UpdatedAt = models.NewEpochMillis(v)
	}
	return position
}

type element struct {
	index int
	data  json.RawMessage
}

// elements extracts the list from a bare array or from the named envelope field.
func (n *Normalizer) elements(kind Kind, payload []byte, envelope string) []element {
	payload = bytes.TrimSpace(payload)
	if len(payload) == 0 {
		n.diag.Degraded(kind, ReasonShape)
		return nil
	}

	var list []json.RawMessage
	switch payload[0] {
	case '[':
		if err := json.Unmarshal(payload, &list); err != nil {
			n.diag.Degraded(kind, ReasonInvalidJSON)
			return nil
		}
	case '{':
		var fields map[string]json.RawMessage
		if err := json.Unmarshal(payload, &fields); err != nil {
			n.diag.Degraded(kind, ReasonInvalidJSON)
			return nil
		}
		inner, ok := fields[envelope]
		if !ok {
			n.diag.Degraded(kind, ReasonShape)
			return nil
		}
		inner = bytes.TrimSpace(inner)
		if len(inner) == 0 || inner[0] != '[' {
			n.diag.Degraded(kind, ReasonEnvelope)
			return nil
		}
		if err := json.Unmarshal(inner, &list); err != nil {
			n.diag.Degraded(kind, ReasonInvalidJSON)
			return nil
		}
	default:
		n.diag.Degraded(kind, ReasonShape)
		return nil
	}

	out := make([]element, 0, len(list))
	for i, item := range list {
		item = bytes.TrimSpace(item)
		if len(item) == 0 || item[0] != '{' {
			n.diag.Degraded(kind, ReasonElement)
			continue
		}
		out = append(out, element{index: i, data: item})
	}
	return out
}

func (n *Normalizer) object(kind Kind, payload []byte, out any) bool {
	payload = bytes.TrimSpace(payload)
	if len(payload) == 0 || payload[0] != '{' {
		n.diag.Degraded(kind, ReasonShape)
		return false
	}
	if err := json.Unmarshal(payload, out); err != nil {
		n.diag.Degraded(kind, ReasonInvalidJSON)
		return false
	}
	return true
}
