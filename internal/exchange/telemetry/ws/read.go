package ws

import (
	"encoding/json"
	"fmt"
	"time"

	"tradedash/internal/exchange"
)

func (w *Client) readLoop(s *session) {
	defer close(s.done)
	defer close(s.events)

	w.logEntry().Debug("readLoop запущен.")

	for {
		if s.stopped() {
			return
		}

		_, data, err := s.currentConn().ReadMessage()
		if err != nil {
			if s.stopped() {
				return
			}
			w.logEntry().WithError(err).Warn("Ошибка чтения WS.")

			s.connected.Store(false)
			s.emit(exchange.Event{Type: exchange.EventTypeDisconnected})

			if !w.reconnect || !w.reconnectSession(s) {
				return
			}
			continue
		}

		var msg Message
		if err := json.Unmarshal(data, &msg); err != nil {
			w.logEntry().WithError(err).Warn("Не удалось разобрать WS сообщение.")
			continue
		}

		w.dispatch(s, msg)
	}
}

// reconnectSession redials with exponential backoff until it succeeds or the session
// is stopped. Each failed attempt is reported as an error event.
func (w *Client) reconnectSession(s *session) bool {
	backoff := w.reconnectMin

	for {
		timer := time.NewTimer(backoff)
		select {
		case <-s.stopCh:
			timer.Stop()
			return false
		case <-timer.C:
		}

		w.logEntry().Info("Попытка переподключения к WS.")

		conn, err := w.dial(s.ctx)
		if err != nil {
			if s.stopped() {
				return false
			}
			w.logEntry().WithError(err).Warn("Не удалось переподключиться к WS.")
			s.emit(exchange.Event{
				Type: exchange.EventTypeError,
				Err:  fmt.Errorf("reconnect to push channel: %w", err),
			})
			backoff = w.nextBackoff(backoff)
			continue
		}

		if !s.swap(conn) {
			return false
		}

		if err := w.onConnected(s); err != nil {
			backoff = w.nextBackoff(backoff)
			continue
		}

		w.logEntry().Info("WS переподключён и подписки восстановлены.")
		return true
	}
}

func (w *Client) nextBackoff(current time.Duration) time.Duration {
	next := current * 2
	if next > w.reconnectMax {
		return w.reconnectMax
	}
	return next
}
