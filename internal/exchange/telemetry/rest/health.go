package rest

import (
	"context"
	"encoding/json"
	"time"

	"tradedash/internal/exchange"
	"tradedash/internal/models"
)

const unknownVersion = "unknown"

// Health queries the liveness endpoint at the server root, outside the API path.
// On failure the data still describes an errored server stamped with local time.
func (c *Client) Health(ctx context.Context) exchange.Result[models.HealthStatus] {
	start := time.Now()
	resp, err := c.doRequest(ctx, "health", "/health")
	if err != nil {
		return c.unhealthy(err.Error())
	}
	if !isSuccess(resp.status) {
		c.observe("health", "error", start)
		return c.unhealthy(statusError(resp.status).Error())
	}

	var status models.HealthStatus
	if err := json.Unmarshal(resp.body, &status); err != nil || status.Status == "" {
		c.observe("health", "error", start)
		return c.unhealthy(errInvalidPayload.Error())
	}
	c.observe("health", "ok", start)
	return exchange.Result[models.HealthStatus]{Success: true, Data: status}
}

func (c *Client) unhealthy(message string) exchange.Result[models.HealthStatus] {
	return exchange.Result[models.HealthStatus]{
		Message: message,
		Data: models.HealthStatus{
			Status:    models.HealthError,
			Timestamp: c.now().UnixMilli(),
			Version:   unknownVersion,
		},
	}
}
