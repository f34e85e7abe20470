package normalize

import (
	"math"
	"reflect"
	"testing"

	"tradedash/internal/models"
)

func TestOrderIdentityPrecedence(t *testing.T) {
	n := New(nil)
	orders := n.Orders([]byte(`[
		{"id": "N1", "orderId": "E1", "clientOid": "C1"},
		{"orderId": "E2", "clientOid": "C2"},
		{"clientOid": "C3"},
		{"symbol": "BTCUSDT"},
		{"id": "", "orderId": "E5"},
		{"id": 42}
	]`))

	want := []string{"N1", "E2", "C3", "3", "E5", "42"}
	if len(orders) != len(want) {
		t.Fatalf("expected %d orders, got %d", len(want), len(orders))
	}
	for i, id := range want {
		if orders[i].ID != id {
			t.Fatalf("order %d id = %q, want %q", i, orders[i].ID, id)
		}
	}
}

func TestOrderIndexFallbackCanCollide(t *testing.T) {
	n := New(nil)
	orders := n.Orders([]byte(`[{"id": "1"}, {"symbol": "BTCUSDT"}]`))

	if len(orders) != 2 {
		t.Fatalf("expected 2 orders, got %d", len(orders))
	}
	if orders[0].ID != "1" || orders[1].ID != "1" {
		t.Fatalf("ids = %q, %q, want both %q", orders[0].ID, orders[1].ID, "1")
	}
	if orders[1].Symbol != "BTCUSDT" {
		t.Fatalf("fallback order lost its fields: %+v", orders[1])
	}
}

func TestOrderStatusMapping(t *testing.T) {
	cases := map[string]models.OrderStatus{
		"live":      models.OrderStatusOpen,
		"canceled":  models.OrderStatusCancelled,
		"filled":    models.OrderStatusFilled,
		"partial":   models.OrderStatusPartial,
		"open":      models.OrderStatusOpen,
		"cancelled": models.OrderStatusCancelled,
		"rejected":  "",
		"LIVE":      "",
		"":          "",
	}

	n := New(nil)
	for raw, want := range cases {
		orders := n.Orders([]byte(`[{"orderId":"A","status":"` + raw + `"}]`))
		if len(orders) != 1 {
			t.Fatalf("status %q: expected 1 order, got %d", raw, len(orders))
		}
		if orders[0].Status != want {
			t.Fatalf("status %q mapped to %q, want %q", raw, orders[0].Status, want)
		}
	}
}

func TestOrderScenarioExchangeDialect(t *testing.T) {
	n := New(nil)
	orders := n.Orders([]byte(`[{"orderId": "A1", "status": "live", "size": "10", "filled": "4"}]`))
	if len(orders) != 1 {
		t.Fatalf("expected 1 order, got %d", len(orders))
	}

	got := orders[0]
	if got.ID != "A1" || got.OrderID != "A1" || got.Status != models.OrderStatusOpen || got.Amount != "10" || got.Filled != "4" {
		t.Fatalf("unexpected order: %+v", got)
	}
	if got.Type != "" || got.Side != "" {
		t.Fatalf("unresolved fields should stay empty: %+v", got)
	}
}

func TestOrderTypeAndSide(t *testing.T) {
	n := New(nil)
	orders := n.Orders([]byte(`[
		{"orderId":"1","side":"buy","orderType":"limit"},
		{"orderId":"2","side":"sell","type":"market","orderType":"limit"},
		{"orderId":"3","side":"hold","type":"stop","orderType":"market"},
		{"orderId":"4","type":"stop"}
	]`))

	wantTypes := []models.OrderType{models.OrderTypeLimit, models.OrderTypeMarket, models.OrderTypeMarket, ""}
	wantSides := []models.OrderSide{models.OrderSideBuy, models.OrderSideSell, "", ""}
	for i := range orders {
		if orders[i].Type != wantTypes[i] {
			t.Fatalf("order %d type = %q, want %q", i, orders[i].Type, wantTypes[i])
		}
		if orders[i].Side != wantSides[i] {
			t.Fatalf("order %d side = %q, want %q", i, orders[i].Side, wantSides[i])
		}
	}
}

func TestOrderTimeCoercion(t *testing.T) {
	n := New(nil)
	orders := n.Orders([]byte(`[
		{"orderId":"1","cTime":"1700000000000","uTime":1700000000500},
		{"orderId":"2","createdAt":1,"cTime":"2"},
		{"orderId":"3","cTime":"not-a-number"},
		{"orderId":"4"}
	]`))

	if got := orders[0].CreatedAt.Float(); got != 1700000000000 {
		t.Fatalf("createdAt from cTime = %v", got)
	}
	if got := orders[0].UpdatedAt.Float(); got != 1700000000500 {
		t.Fatalf("updatedAt from uTime = %v", got)
	}
	if got := orders[1].CreatedAt.Float(); got != 1 {
		t.Fatalf("createdAt should take precedence over cTime, got %v", got)
	}
	if !math.IsNaN(orders[2].CreatedAt.Float()) {
		t.Fatalf("malformed cTime should coerce to NaN, got %v", orders[2].CreatedAt.Float())
	}
	if orders[3].CreatedAt != nil || orders[3].UpdatedAt != nil {
		t.Fatal("missing time fields should stay nil")
	}
}

func TestEnvelopeMatchesBareArray(t *testing.T) {
	n := New(nil)
	bare := `[{"orderId":"A1","status":"live"},{"clientOid":"C2","status":"canceled"}]`

	fromBare := n.Orders([]byte(bare))
	fromEnvelope := n.Orders([]byte(`{"activeOrders":` + bare + `}`))

	if !reflect.DeepEqual(fromBare, fromEnvelope) {
		t.Fatalf("envelope result differs:\n%+v\n%+v", fromBare, fromEnvelope)
	}

	positions := `[{"symbol":"ETHUSDT","side":"short"}]`
	if !reflect.DeepEqual(n.Positions([]byte(positions)), n.Positions([]byte(`{"allPositions":`+positions+`}`))) {
		t.Fatal("positions envelope result differs from bare array")
	}
}

func TestMalformedPayloadsDegradeToEmpty(t *testing.T) {
	counter := NewCounter()
	n := New(counter)

	payloads := []string{`{}`, `null`, ``, `42`, `"orders"`, `{"activeOrders": {"a": 1}}`, `[{"orderId":`, `{"allPositions": []}`}
	for _, p := range payloads {
		orders := n.Orders([]byte(p))
		if orders == nil || len(orders) != 0 {
			t.Fatalf("payload %q: expected empty non-nil list, got %#v", p, orders)
		}
	}

	if got := counter.Total(KindOrders); got != len(payloads) {
		t.Fatalf("degraded count = %d, want %d", got, len(payloads))
	}
	if got := counter.Count(KindOrders, ReasonEnvelope); got != 1 {
		t.Fatalf("envelope degrade count = %d, want 1", got)
	}
}

func TestNonObjectElementsAreSkipped(t *testing.T) {
	counter := NewCounter()
	n := New(counter)

	orders := n.Orders([]byte(`[1, {"symbol":"BTCUSDT"}, null]`))
	if len(orders) != 1 {
		t.Fatalf("expected 1 order, got %d", len(orders))
	}
	if orders[0].ID != "1" {
		t.Fatalf("positional id should keep the original index, got %q", orders[0].ID)
	}
	if got := counter.Count(KindOrders, ReasonElement); got != 2 {
		t.Fatalf("element degrade count = %d, want 2", got)
	}
}

func TestNormalizeIsIdempotent(t *testing.T) {
	n := New(nil)
	payload := []byte(`{"activeOrders":[{"orderId":"A1","status":"live","cTime":"17"},{"status":"x"}]}`)
	if !reflect.DeepEqual(n.Orders(payload), n.Orders(payload)) {
		t.Fatal("normalizing the same payload twice should give identical output")
	}
}

func TestPositionIdentity(t *testing.T) {
	n := New(nil)
	positions := n.Positions([]byte(`[
		{"id":"P1","symbol":"BTCUSDT","holdSide":"long"},
		{"symbol":"BTCUSDT","holdSide":"long","pnl":"-12.5"},
		{"symbol":"ETHUSDT","side":"short"},
		{"symbol":"SOLUSDT","holdSide":"long","side":"short"},
		{"symbol":"XRPUSDT"}
	]`))

	wantIDs := []string{"P1", "BTCUSDT_long", "ETHUSDT_short", "SOLUSDT_long", "XRPUSDT_4"}
	wantSides := []models.PositionSide{models.PositionSideLong, models.PositionSideLong, models.PositionSideShort, models.PositionSideLong, ""}
	for i := range wantIDs {
		if positions[i].ID != wantIDs[i] {
			t.Fatalf("position %d id = %q, want %q", i, positions[i].ID, wantIDs[i])
		}
		if positions[i].Side != wantSides[i] {
			t.Fatalf("position %d side = %q, want %q", i, positions[i].Side, wantSides[i])
		}
	}
	if positions[1].PnL != "-12.5" {
		t.Fatalf("pnl = %q", positions[1].PnL)
	}
}

func TestTickerDialects(t *testing.T) {
	n := New(nil)

	generic, ok := n.Ticker([]byte(`{"symbol":"BTCUSDT","price":"65000.5","change24h":"-120","change24hPercent":"-0.18","volume24h":"1234","high24h":"66000","low24h":"64000","timestamp":1700000000000}`))
	if !ok || generic.Symbol != "BTCUSDT" || generic.Price != "65000.5" || generic.Timestamp != 1700000000000 {
		t.Fatalf("unexpected generic ticker: %+v ok=%v", generic, ok)
	}

	native, ok := n.Ticker([]byte(`{"instId":"ETHUSDT","lastPr":3100.25,"baseVolume":"88","ts":"1700000000001"}`))
	if !ok || native.Symbol != "ETHUSDT" || native.Price != "3100.25" || native.Volume24h != "88" || native.Timestamp != 1700000000001 {
		t.Fatalf("unexpected native ticker: %+v ok=%v", native, ok)
	}

	counter := NewCounter()
	if _, ok := New(counter).Ticker([]byte(`[]`)); ok {
		t.Fatal("array payload should not produce a ticker")
	}
	if counter.Total(KindTicker) != 1 {
		t.Fatal("ticker degrade should be counted")
	}
}

func TestSingleEntityLookup(t *testing.T) {
	n := New(nil)

	order, ok := n.Order([]byte(`{"clientOid":"C9","status":"filled"}`))
	if !ok || order.ID != "C9" || order.Status != models.OrderStatusFilled {
		t.Fatalf("unexpected order: %+v ok=%v", order, ok)
	}

	if _, ok := n.Position([]byte(`null`)); ok {
		t.Fatal("null should not produce a position")
	}
}
