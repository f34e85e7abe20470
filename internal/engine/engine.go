package engine

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"golang.org/x/time/rate"

	"tradedash/internal/config"
	"tradedash/internal/exchange"
	"tradedash/internal/logger"
	"tradedash/internal/models"
	"tradedash/internal/normalize"
	"tradedash/internal/store"
)

const (
	defaultSymbol     = "BTCUSDT"
	tickerLogInterval = time.Second
)

// Recorder receives push-channel activity for instrumentation.
type Recorder interface {
	ObserveEvent(event string)
	SetConnected(connected bool)
}

type nopRecorder struct{}

func (nopRecorder) ObserveEvent(string) {}
func (nopRecorder) SetConnected(bool)   {}

// Engine feeds the store: one initial load over the fetch adapter, then push updates
// for as long as Run is active.
type Engine struct {
	feed       exchange.Feed
	fetcher    exchange.Fetcher
	store      *store.Store
	normalizer *normalize.Normalizer
	recorder   Recorder
	log        *logger.Logger

	symbol    string
	tickerLog *rate.Limiter

	healthAttempts int
	healthBackoff  time.Duration

	reconnect    bool
	reconnectMin time.Duration
	reconnectMax time.Duration
}

func New(cfg *config.Config, feed exchange.Feed, fetcher exchange.Fetcher, st *store.Store, normalizer *normalize.Normalizer, recorder Recorder, log *logger.Logger) *Engine {
	if log == nil {
		log = logger.Discard()
	}
	if recorder == nil {
		recorder = nopRecorder{}
	}
	if normalizer == nil {
		normalizer = normalize.New(nil)
	}
	symbol := defaultSymbol
	reconnect, reconnectMin, reconnectMax := false, time.Second, 30*time.Second
	if cfg != nil {
		if cfg.Feed.DefaultSymbol != "" {
			symbol = cfg.Feed.DefaultSymbol
		}
		reconnect = cfg.Feed.Reconnect
		if cfg.Feed.ReconnectMin > 0 {
			reconnectMin = cfg.Feed.ReconnectMin
		}
		if cfg.Feed.ReconnectMax >= reconnectMin {
			reconnectMax = cfg.Feed.ReconnectMax
		}
	}

	return &Engine{
		feed:           feed,
		fetcher:        fetcher,
		store:          st,
		normalizer:     normalizer,
		recorder:       recorder,
		log:            log,
		symbol:         symbol,
		tickerLog:      rate.NewLimiter(rate.Every(tickerLogInterval), 1),
		healthAttempts: 5,
		healthBackoff:  time.Second,
		reconnect:      reconnect,
		reconnectMin:   reconnectMin,
		reconnectMax:   reconnectMax,
	}
}

func (e *Engine) Store() *store.Store {
	return e.store
}

// LoadInitialData fetches orders and positions concurrently. Both lists are replaced
// only when both calls succeed; otherwise the failure message lands in the store.
func (e *Engine) LoadInitialData(ctx context.Context) error {
	e.store.SetLoading(true)
	e.store.ClearError()
	defer e.store.SetLoading(false)

	ordersSeq := e.store.Stamp()
	positionsSeq := e.store.Stamp()

	var (
		wg        sync.WaitGroup
		orders    exchange.Result[[]models.Order]
		positions exchange.Result[[]models.Position]
	)
	wg.Add(2)
	go func() {
		defer wg.Done()
		orders = e.fetcher.Orders(ctx)
	}()
	go func() {
		defer wg.Done()
		positions = e.fetcher.Positions(ctx)
	}()
	wg.Wait()

	if err := loadError(orders, positions); err != nil {
		msg := err.Error()
		e.store.SetError(&msg)
		e.logEntry().WithError(err).Warn("Не удалось загрузить начальные данные.")
		return err
	}

	ordersApplied := e.store.ReplaceOrdersAt(ordersSeq, orders.Data)
	positionsApplied := e.store.ReplacePositionsAt(positionsSeq, positions.Data)
	e.logEntry().WithFields(map[string]interface{}{
		"orders":            len(orders.Data),
		"positions":         len(positions.Data),
		"orders_applied":    ordersApplied,
		"positions_applied": positionsApplied,
	}).Info("Начальные данные загружены.")
	return nil
}

func loadError(orders exchange.Result[[]models.Order], positions exchange.Result[[]models.Position]) error {
	if !orders.Success {
		if orders.Message != "" {
			return errors.New(orders.Message)
		}
		return errors.New("Failed to load orders")
	}
	if !positions.Success {
		if positions.Message != "" {
			return errors.New(positions.Message)
		}
		return errors.New("Failed to load positions")
	}
	return nil
}

// Run connects the push channel and applies its events until ctx is done or the
// stream ends. The feed is disconnected on return.
func (e *Engine) Run(ctx context.Context) error {
	events, err := e.connect(ctx)
	if err != nil {
		return err
	}
	defer e.feed.Disconnect()

	e.handleEvents(ctx, events)
	return nil
}

// connect dials the push channel. With reconnect enabled a failed first dial is
// retried with the same backoff the transport uses after a dropped connection;
// every failure lands in the store as a transport error.
func (e *Engine) connect(ctx context.Context) (<-chan exchange.Event, error) {
	backoff := e.reconnectMin
	for attempt := 1; ; attempt++ {
		events, err := e.feed.Connect(ctx)
		if err == nil {
			return events, nil
		}

		e.recorder.ObserveEvent(string(exchange.EventTypeError))
		e.recorder.SetConnected(false)
		e.store.TransportError(fmt.Sprintf("Unable to connect to server: %v", err))
		if !e.reconnect || ctx.Err() != nil {
			return nil, fmt.Errorf("Подключение к push-каналу: %w", err)
		}

		e.logEntry().WithError(err).WithField("attempt", attempt).WithField("retry_in", backoff).
			Warn("Push-канал недоступен, повторяем подключение.")
		timer := time.NewTimer(backoff)
		select {
		case <-ctx.Done():
			timer.Stop()
			return nil, ctx.Err()
		case <-timer.C:
		}

		backoff *= 2
		if backoff > e.reconnectMax {
			backoff = e.reconnectMax
		}
	}
}

// Refresh resubscribes when the store considers the channel connected, then reloads
// the initial data.
func (e *Engine) Refresh(ctx context.Context) error {
	if e.store.Snapshot().IsConnected {
		if err := e.subscribeAll(); err != nil {
			e.logEntry().WithError(err).Warn("Не удалось переподписаться.")
		}
	}
	return e.LoadInitialData(ctx)
}

func (e *Engine) ClearError() {
	e.store.ClearError()
}

func (e *Engine) subscribeAll() error {
	return errors.Join(
		e.feed.SubscribeTicker(e.symbol),
		e.feed.SubscribeOrders(),
		e.feed.SubscribePositions(),
	)
}
