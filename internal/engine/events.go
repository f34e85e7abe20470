package engine

import (
	"context"

	"tradedash/internal/exchange"
)

func (e *Engine) handleEvents(ctx context.Context, events <-chan exchange.Event) {
	for {
		select {
		case <-ctx.Done():
			return
		case event, ok := <-events:
			if !ok {
				e.logEntry().Warn("Канал событий WS закрыт.")
				return
			}
			e.apply(event)
		}
	}
}

func (e *Engine) apply(event exchange.Event) {
	e.recorder.ObserveEvent(string(event.Type))

	switch event.Type {
	case exchange.EventTypeConnected:
		e.store.SetConnected(true)
		e.recorder.SetConnected(true)
		e.logEntry().Info("Соединение с сервером установлено.")
	case exchange.EventTypeDisconnected:
		e.store.SetConnected(false)
		e.recorder.SetConnected(false)
		e.logEntry().Warn("Соединение с сервером потеряно.")
	case exchange.EventTypeError:
		msg := "Connection error"
		if event.Err != nil {
			msg = event.Err.Error()
		}
		e.store.TransportError(msg)
		e.recorder.SetConnected(false)
		e.logEntry().WithField("error", msg).Warn("Ошибка push-канала.")
	case exchange.EventTypeTicker:
		seq := e.store.Stamp()
		ticker, ok := e.normalizer.Ticker(event.Payload)
		if !ok {
			return
		}
		e.store.ApplyTickerAt(seq, ticker)
		if e.tickerLog.Allow() {
			e.log.WithSymbol(ticker.Symbol).WithFields(map[string]interface{}{
				"price": ticker.Price,
				"ts":    ticker.Timestamp,
			}).Debug("ticker")
		}
	case exchange.EventTypeOrders:
		e.store.ApplyOrders(event.Payload)
	case exchange.EventTypePositions:
		e.store.ApplyPositions(event.Payload)
	}
}
