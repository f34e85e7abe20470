package ws

import (
	"encoding/json"
	"fmt"

	"tradedash/internal/exchange"
)

func (w *Client) SubscribeTicker(symbol string) error {
	return w.send(exchange.TopicTickerSubscribe, symbol)
}

func (w *Client) SubscribeOrders() error {
	return w.send(exchange.TopicOrdersSubscribe, nil)
}

func (w *Client) SubscribePositions() error {
	return w.send(exchange.TopicPositionsSubscribe, nil)
}

func (w *Client) send(event string, data any) error {
	s := w.current()
	if s == nil || !s.connected.Load() {
		w.logEntry().WithField("event", event).Warn("Нельзя отправить подписку: нет соединения.")
		return ErrNotConnected
	}
	return writeEvent(s, event, data)
}

// subscribeDefaults requests the ticker for the default symbol, orders and positions.
func (w *Client) subscribeDefaults(s *session) error {
	if err := writeEvent(s, exchange.TopicTickerSubscribe, w.symbol); err != nil {
		return err
	}
	if err := writeEvent(s, exchange.TopicOrdersSubscribe, nil); err != nil {
		return err
	}
	if err := writeEvent(s, exchange.TopicPositionsSubscribe, nil); err != nil {
		return err
	}

	w.logEntry().Debug("Подписки WS отправлены.")
	return nil
}

func writeEvent(s *session, event string, data any) error {
	msg := Message{Event: event}
	if data != nil {
		payload, err := json.Marshal(data)
		if err != nil {
			return fmt.Errorf("encode %s: %w", event, err)
		}
		msg.Data = payload
	}

	if err := s.writeJSON(msg); err != nil {
		return fmt.Errorf("send %s: %w", event, err)
	}
	return nil
}
