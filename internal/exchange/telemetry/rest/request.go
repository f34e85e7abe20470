package rest

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/google/uuid"
)

type response struct {
	status int
	body   []byte
}

// doRequest performs one GET bounded by the client timeout. When the timeout fires
// the request context is cancelled, which aborts the in-flight call.
func (c *Client) doRequest(ctx context.Context, endpoint, path string) (response, error) {
	ctx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	requestID := uuid.NewString()
	entry := c.log.WithRequestID(requestID).WithField("component", "telemetry_rest").WithField("path", path)
	start := time.Now()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+path, nil)
	if err != nil {
		c.observe(endpoint, "error", start)
		return response{}, fmt.Errorf("build request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "application/json")
	req.Header.Set("X-Request-ID", requestID)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return response{}, c.failure(ctx, endpoint, start, entry, err)
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(io.LimitReader(resp.Body, maxBodySize))
	if err != nil {
		return response{}, c.failure(ctx, endpoint, start, entry, fmt.Errorf("read response: %w", err))
	}

	entry.WithField("status", resp.StatusCode).WithField("elapsed", time.Since(start)).Debug("Ответ получен.")
	return response{status: resp.StatusCode, body: data}, nil
}

func (c *Client) failure(ctx context.Context, endpoint string, start time.Time, entry interface{ Warn(...any) }, err error) error {
	if errors.Is(ctx.Err(), context.DeadlineExceeded) {
		c.observe(endpoint, "timeout", start)
		err = fmt.Errorf("%w (%s)", ErrTimeout, c.timeout)
	} else {
		c.observe(endpoint, "error", start)
		err = fmt.Errorf("request failed: %w", err)
	}
	entry.Warn(err.Error())
	return err
}

func (c *Client) observe(endpoint, outcome string, start time.Time) {
	if c.observer != nil {
		c.observer.ObserveFetch(endpoint, outcome, time.Since(start))
	}
}

func statusError(status int) error {
	return fmt.Errorf("HTTP %d: %s", status, http.StatusText(status))
}

func isSuccess(status int) bool {
	return status >= 200 && status < 300
}
