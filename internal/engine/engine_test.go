package engine

import (
	"context"
	"encoding/json"
	"errors"
	"strings"
	"sync"
	"testing"
	"time"

	"tradedash/internal/config"
	"tradedash/internal/exchange"
	"tradedash/internal/models"
	"tradedash/internal/normalize"
	"tradedash/internal/store"
)

type fakeFeed struct {
	mu         sync.Mutex
	events     chan exchange.Event
	connectErr error
	failures   int
	attempts   int
	subscribed []string
	disconnect int
}

func newFakeFeed() *fakeFeed {
	return &fakeFeed{events: make(chan exchange.Event, 16)}
}

func (f *fakeFeed) Connect(context.Context) (<-chan exchange.Event, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.attempts++
	if f.failures > 0 {
		f.failures--
		return nil, errors.New("connection refused")
	}
	if f.connectErr != nil {
		return nil, f.connectErr
	}
	return f.events, nil
}

func (f *fakeFeed) Disconnect() {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.disconnect++
}

func (f *fakeFeed) Connected() bool { return true }

func (f *fakeFeed) SubscribeTicker(symbol string) error {
	f.record("ticker:" + symbol)
	return nil
}

func (f *fakeFeed) SubscribeOrders() error {
	f.record("orders")
	return nil
}

func (f *fakeFeed) SubscribePositions() error {
	f.record("positions")
	return nil
}

func (f *fakeFeed) record(s string) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.subscribed = append(f.subscribed, s)
}

type fakeFetcher struct {
	orders    exchange.Result[[]models.Order]
	positions exchange.Result[[]models.Position]
	health    []exchange.Result[models.HealthStatus]
	gate      chan struct{}
	calls     int
}

func (f *fakeFetcher) Health(context.Context) exchange.Result[models.HealthStatus] {
	res := f.health[0]
	if len(f.health) > 1 {
		f.health = f.health[1:]
	}
	f.calls++
	return res
}

func (f *fakeFetcher) Orders(context.Context) exchange.Result[[]models.Order] {
	if f.gate != nil {
		<-f.gate
	}
	return f.orders
}

func (f *fakeFetcher) Order(context.Context, string) exchange.Result[*models.Order] {
	return exchange.Result[*models.Order]{Success: true}
}

func (f *fakeFetcher) Positions(context.Context) exchange.Result[[]models.Position] {
	return f.positions
}

func (f *fakeFetcher) Position(context.Context, string) exchange.Result[*models.Position] {
	return exchange.Result[*models.Position]{Success: true}
}

type countingRecorder struct {
	mu        sync.Mutex
	events    map[string]int
	connected bool
}

func (r *countingRecorder) ObserveEvent(event string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.events == nil {
		r.events = map[string]int{}
	}
	r.events[event]++
}

func (r *countingRecorder) SetConnected(c bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.connected = c
}

func newTestEngine(feed exchange.Feed, fetcher exchange.Fetcher, rec Recorder) (*Engine, *store.Store) {
	n := normalize.New(nil)
	st := store.New(n)
	cfg := &config.Config{Feed: config.FeedConfig{DefaultSymbol: "ETHUSDT"}}
	return New(cfg, feed, fetcher, st, n, rec, nil), st
}

func okLists() *fakeFetcher {
	return &fakeFetcher{
		orders:    exchange.Result[[]models.Order]{Success: true, Data: []models.Order{{ID: "1"}}},
		positions: exchange.Result[[]models.Position]{Success: true, Data: []models.Position{{ID: "p"}, {ID: "q"}}},
	}
}

func TestLoadInitialDataReplacesBothLists(t *testing.T) {
	eng, st := newTestEngine(newFakeFeed(), okLists(), nil)
	msg := "old"
	st.SetError(&msg)

	if err := eng.LoadInitialData(context.Background()); err != nil {
		t.Fatalf("LoadInitialData: %v", err)
	}
	snap := st.Snapshot()
	if len(snap.Orders) != 1 || len(snap.Positions) != 2 {
		t.Fatalf("unexpected snapshot: %+v", snap)
	}
	if snap.IsLoading || snap.Error != nil {
		t.Fatalf("loading=%v error=%v", snap.IsLoading, snap.Error)
	}
}

func TestLoadInitialDataFailureKeepsLists(t *testing.T) {
	fetcher := okLists()
	fetcher.positions = exchange.Result[[]models.Position]{Data: []models.Position{}, Message: "HTTP 500: Internal Server Error"}
	eng, st := newTestEngine(newFakeFeed(), fetcher, nil)
	st.ReplaceOrders([]models.Order{{ID: "kept"}})

	if err := eng.LoadInitialData(context.Background()); err == nil {
		t.Fatal("expected error")
	}
	snap := st.Snapshot()
	if len(snap.Orders) != 1 || snap.Orders[0].ID != "kept" {
		t.Fatalf("orders must stay untouched: %+v", snap.Orders)
	}
	if snap.Error == nil || *snap.Error != "HTTP 500: Internal Server Error" {
		t.Fatalf("error = %v", snap.Error)
	}
	if snap.IsLoading {
		t.Fatal("loading must be cleared")
	}
}

func TestLoadErrorPrefersOrdersMessage(t *testing.T) {
	err := loadError(
		exchange.Result[[]models.Order]{Message: "orders down"},
		exchange.Result[[]models.Position]{Message: "positions down"},
	)
	if err == nil || err.Error() != "orders down" {
		t.Fatalf("err = %v", err)
	}
	if err := loadError(exchange.Result[[]models.Order]{}, exchange.Result[[]models.Position]{Success: true}); err == nil {
		t.Fatal("expected fallback error")
	}
}

func TestSlowFetchDoesNotOverwritePush(t *testing.T) {
	fetcher := okLists()
	fetcher.gate = make(chan struct{})
	eng, st := newTestEngine(newFakeFeed(), fetcher, nil)

	done := make(chan error, 1)
	go func() { done <- eng.LoadInitialData(context.Background()) }()

	// wait until the fetch is stamped, then push a newer update
	deadline := time.After(2 * time.Second)
	for !st.Snapshot().IsLoading {
		select {
		case <-deadline:
			t.Fatal("load never started")
		case <-time.After(time.Millisecond):
		}
	}
	time.Sleep(10 * time.Millisecond)
	eng.apply(exchange.Event{Type: exchange.EventTypeOrders, Payload: json.RawMessage(`[{"id":"push"}]`)})
	close(fetcher.gate)

	if err := <-done; err != nil {
		t.Fatalf("LoadInitialData: %v", err)
	}
	snap := st.Snapshot()
	if len(snap.Orders) != 1 || snap.Orders[0].ID != "push" {
		t.Fatalf("stale fetch overwrote push update: %+v", snap.Orders)
	}
	if len(snap.Positions) != 2 {
		t.Fatalf("positions should come from the fetch: %+v", snap.Positions)
	}
}

func TestRunAppliesEvents(t *testing.T) {
	feed := newFakeFeed()
	rec := &countingRecorder{}
	eng, st := newTestEngine(feed, okLists(), rec)

	feed.events <- exchange.Event{Type: exchange.EventTypeConnected}
	feed.events <- exchange.Event{Type: exchange.EventTypeTicker, Payload: json.RawMessage(`{"instId":"ETHUSDT","lastPr":"3000","ts":"1700000000000"}`)}
	feed.events <- exchange.Event{Type: exchange.EventTypeOrders, Payload: json.RawMessage(`{"activeOrders":[{"orderId":"A1","status":"live"}]}`)}
	feed.events <- exchange.Event{Type: exchange.EventTypePositions, Payload: json.RawMessage(`{"allPositions":[{"symbol":"ETHUSDT","holdSide":"long"}]}`)}
	close(feed.events)

	if err := eng.Run(context.Background()); err != nil {
		t.Fatalf("Run: %v", err)
	}

	snap := st.Snapshot()
	if !snap.IsConnected || snap.Error != nil {
		t.Fatalf("connected=%v error=%v", snap.IsConnected, snap.Error)
	}
	if snap.Ticker == nil || snap.Ticker.Price != "3000" || snap.Ticker.Timestamp != 1700000000000 {
		t.Fatalf("ticker = %+v", snap.Ticker)
	}
	if len(snap.Orders) != 1 || snap.Orders[0].Status != models.OrderStatusOpen {
		t.Fatalf("orders = %+v", snap.Orders)
	}
	if len(snap.Positions) != 1 || snap.Positions[0].ID != "ETHUSDT_long" {
		t.Fatalf("positions = %+v", snap.Positions)
	}
	if feed.disconnect != 1 {
		t.Fatalf("Disconnect called %d times", feed.disconnect)
	}
	if rec.events[string(exchange.EventTypeTicker)] != 1 || !rec.connected {
		t.Fatalf("recorder = %+v", rec.events)
	}
}

func TestDisconnectAndErrorEvents(t *testing.T) {
	eng, st := newTestEngine(newFakeFeed(), okLists(), nil)

	eng.apply(exchange.Event{Type: exchange.EventTypeConnected})
	eng.apply(exchange.Event{Type: exchange.EventTypeDisconnected})
	snap := st.Snapshot()
	if snap.IsConnected || snap.Error == nil || *snap.Error != store.DisconnectedMessage {
		t.Fatalf("after disconnect: %+v", snap)
	}

	eng.apply(exchange.Event{Type: exchange.EventTypeConnected})
	eng.apply(exchange.Event{Type: exchange.EventTypeError, Err: errors.New("dial refused")})
	snap = st.Snapshot()
	if snap.IsConnected || snap.Error == nil || *snap.Error != "dial refused" {
		t.Fatalf("after error: %+v", snap)
	}

	eng.apply(exchange.Event{Type: exchange.EventTypeError})
	if snap = st.Snapshot(); snap.Error == nil || *snap.Error != "Connection error" {
		t.Fatalf("after bare error: %+v", snap)
	}
}

func TestRunConnectFailure(t *testing.T) {
	feed := newFakeFeed()
	feed.connectErr = errors.New("refused")
	eng, st := newTestEngine(feed, okLists(), nil)

	if err := eng.Run(context.Background()); err == nil {
		t.Fatal("expected error")
	}
	if feed.attempts != 1 {
		t.Fatalf("connect attempts = %d, want 1 without reconnect", feed.attempts)
	}
	if snap := st.Snapshot(); snap.IsConnected || snap.Error == nil {
		t.Fatalf("unexpected state: %+v", snap)
	}
}

func TestRefreshResubscribesOnlyWhenConnected(t *testing.T) {
	feed := newFakeFeed()
	eng, st := newTestEngine(feed, okLists(), nil)

	if err := eng.Refresh(context.Background()); err != nil {
		t.Fatalf("Refresh: %v", err)
	}
	if len(feed.subscribed) != 0 {
		t.Fatalf("subscribed while disconnected: %v", feed.subscribed)
	}

	st.SetConnected(true)
	if err := eng.Refresh(context.Background()); err != nil {
		t.Fatalf("Refresh: %v", err)
	}
	want := []string{"ticker:ETHUSDT", "orders", "positions"}
	if len(feed.subscribed) != len(want) {
		t.Fatalf("subscribed = %v", feed.subscribed)
	}
	for i := range want {
		if feed.subscribed[i] != want[i] {
			t.Fatalf("subscribed = %v, want %v", feed.subscribed, want)
		}
	}
}

func TestWaitHealthyRetries(t *testing.T) {
	fetcher := okLists()
	fetcher.health = []exchange.Result[models.HealthStatus]{
		{Message: "refused", Data: models.HealthStatus{Status: models.HealthError, Version: "unknown"}},
		{Success: true, Data: models.HealthStatus{Status: models.HealthOK, Version: "2.0"}},
	}
	eng, _ := newTestEngine(newFakeFeed(), fetcher, nil)
	eng.healthBackoff = time.Millisecond

	status, err := eng.WaitHealthy(context.Background())
	if err != nil || status.Version != "2.0" {
		t.Fatalf("status=%+v err=%v", status, err)
	}
	if fetcher.calls != 2 {
		t.Fatalf("calls = %d", fetcher.calls)
	}
}

func TestWaitHealthyGivesUp(t *testing.T) {
	fetcher := okLists()
	fetcher.health = []exchange.Result[models.HealthStatus]{
		{Message: "refused", Data: models.HealthStatus{Status: models.HealthError}},
	}
	eng, _ := newTestEngine(newFakeFeed(), fetcher, nil)
	eng.healthBackoff = time.Millisecond
	eng.healthAttempts = 3

	if _, err := eng.WaitHealthy(context.Background()); err == nil || err.Error() != "refused" {
		t.Fatalf("err = %v", err)
	}
	if fetcher.calls != 3 {
		t.Fatalf("calls = %d", fetcher.calls)
	}
}

func TestRunRetriesFirstDial(t *testing.T) {
	feed := newFakeFeed()
	feed.failures = 2
	rec := &countingRecorder{}
	eng, st := newTestEngine(feed, okLists(), rec)
	eng.reconnect = true
	eng.reconnectMin = time.Millisecond
	eng.reconnectMax = 5 * time.Millisecond

	feed.events <- exchange.Event{Type: exchange.EventTypeConnected}
	close(feed.events)

	if err := eng.Run(context.Background()); err != nil {
		t.Fatalf("Run: %v", err)
	}
	if feed.attempts != 3 {
		t.Fatalf("connect attempts = %d, want 3", feed.attempts)
	}
	if rec.events[string(exchange.EventTypeError)] != 2 {
		t.Fatalf("error events = %d, want 2", rec.events[string(exchange.EventTypeError)])
	}
	if snap := st.Snapshot(); !snap.IsConnected || snap.Error != nil {
		t.Fatalf("connected=%v error=%v", snap.IsConnected, snap.Error)
	}
}

func TestRunStopsRetryingOnCancel(t *testing.T) {
	feed := newFakeFeed()
	feed.connectErr = errors.New("refused")
	eng, st := newTestEngine(feed, okLists(), nil)
	eng.reconnect = true
	eng.reconnectMin = time.Millisecond
	eng.reconnectMax = 5 * time.Millisecond

	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()

	if err := eng.Run(ctx); !errors.Is(err, context.DeadlineExceeded) {
		t.Fatalf("Run error = %v, want deadline exceeded", err)
	}
	feed.mu.Lock()
	attempts := feed.attempts
	feed.mu.Unlock()
	if attempts < 2 {
		t.Fatalf("connect attempts = %d, want retries", attempts)
	}
	snap := st.Snapshot()
	if snap.IsConnected || snap.Error == nil || !strings.HasPrefix(*snap.Error, "Unable to connect to server") {
		t.Fatalf("unexpected state: %+v", snap)
	}
}
