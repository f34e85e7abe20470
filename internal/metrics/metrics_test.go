package metrics

import (
	"io"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"tradedash/internal/normalize"
)

func scrape(t *testing.T, m *Metrics) string {
	t.Helper()
	rec := httptest.NewRecorder()
	m.Handler().ServeHTTP(rec, httptest.NewRequest("GET", "/metrics", nil))
	body, err := io.ReadAll(rec.Body)
	if err != nil {
		t.Fatalf("read body: %v", err)
	}
	return string(body)
}

func TestInstrumentsAreExported(t *testing.T) {
	m := New()
	n := normalize.New(m)
	n.Orders([]byte(`{"nope":1}`))
	m.ObserveEvent("ticker:data")
	m.ObserveEvent("ticker:data")
	m.ObserveFetch("orders", "ok", 20*time.Millisecond)
	m.SetConnected(true)

	body := scrape(t, m)
	for _, want := range []string{
		`tradedash_degraded_payloads_total{kind="orders",reason="unrecognized_shape"} 1`,
		`tradedash_push_events_total{event="ticker:data"} 2`,
		`tradedash_fetch_duration_seconds_count{endpoint="orders",outcome="ok"} 1`,
		`tradedash_push_connected 1`,
		`go_goroutines`,
	} {
		if !strings.Contains(body, want) {
			t.Fatalf("scrape is missing %q", want)
		}
	}
}

func TestConnectedGaugeDrops(t *testing.T) {
	m := New()
	m.SetConnected(true)
	m.SetConnected(false)
	if body := scrape(t, m); !strings.Contains(body, "tradedash_push_connected 0") {
		t.Fatal("gauge should read 0 after disconnect")
	}
}
