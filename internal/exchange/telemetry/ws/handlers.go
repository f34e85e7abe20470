package ws

import (
	"encoding/json"
	"errors"
	"strings"

	"tradedash/internal/exchange"
)

// unknownServerError is reported when an error frame carries no readable message.
const unknownServerError = "Unknown server error"

func (w *Client) dispatch(s *session, msg Message) {
	switch exchange.EventType(msg.Event) {
	case exchange.EventTypeTicker, exchange.EventTypeOrders, exchange.EventTypePositions:
		w.logEntry().WithField("event", msg.Event).WithField("bytes", len(msg.Data)).Trace("Получены данные WS.")
		s.emit(exchange.Event{
			Type:    exchange.EventType(msg.Event),
			Payload: msg.Data,
		})
	case exchange.EventTypeError:
		err := serverError(msg.Data)
		w.logEntry().WithError(err).Warn("Сервер сообщил об ошибке.")
		s.emit(exchange.Event{Type: exchange.EventTypeError, Err: err})
	default:
		w.logEntry().WithField("event", msg.Event).Debug("Неизвестное событие WS пропущено.")
	}
}

// serverError accepts either a plain string or an object with a message field.
func serverError(data json.RawMessage) error {
	var text string
	if err := json.Unmarshal(data, &text); err == nil && strings.TrimSpace(text) != "" {
		return errors.New(text)
	}

	var obj struct {
		Message string `json:"message"`
		Error   string `json:"error"`
	}
	if err := json.Unmarshal(data, &obj); err == nil {
		if obj.Message != "" {
			return errors.New(obj.Message)
		}
		if obj.Error != "" {
			return errors.New(obj.Error)
		}
	}

	return errors.New(unknownServerError)
}
