package engine

import (
	"context"
	"errors"
	"math"
	"time"

	"tradedash/internal/models"
)

// WaitHealthy polls the health endpoint with exponential backoff until the server
// reports ok or the attempts run out.
func (e *Engine) WaitHealthy(ctx context.Context) (models.HealthStatus, error) {
	var last models.HealthStatus
	var lastErr error
	backoff := e.healthBackoff
	for i := 0; i < e.healthAttempts; i++ {
		res := e.fetcher.Health(ctx)
		last = res.Data
		if res.Success && res.Data.Status == models.HealthOK {
			e.logEntry().WithField("version", res.Data.Version).Info("Сервер доступен.")
			return res.Data, nil
		}
		lastErr = errors.New(res.Message)
		if res.Message == "" {
			lastErr = errors.New("Сервер сообщил о неисправности")
		}
		if i == e.healthAttempts-1 {
			break
		}

		wait := time.Duration(math.Min(float64(backoff), float64(e.healthBackoff*30)))
		e.logEntry().WithError(lastErr).WithField("attempt", i+1).Warn("Сервер недоступен, повторяем запрос.")
		select {
		case <-ctx.Done():
			return last, ctx.Err()
		case <-time.After(wait):
		}
		backoff *= 2
	}
	return last, lastErr
}
