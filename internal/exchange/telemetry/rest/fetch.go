package rest

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"time"

	"tradedash/internal/exchange"
)

var (
	errEmptyID        = errors.New("id is required")
	errInvalidPayload = errors.New("unexpected response from server")
)

// fetchList loads a collection. The list in the result is never nil.
func fetchList[T any](ctx context.Context, c *Client, endpoint string, decode func([]byte) []T) exchange.Result[[]T] {
	start := time.Now()
	resp, err := c.doRequest(ctx, endpoint, c.apiPath+"/"+endpoint)
	if err != nil {
		return exchange.Result[[]T]{Data: []T{}, Message: err.Error()}
	}
	if !isSuccess(resp.status) {
		c.observe(endpoint, "error", start)
		return exchange.Result[[]T]{Data: []T{}, Message: statusError(resp.status).Error()}
	}
	if !json.Valid(resp.body) {
		c.observe(endpoint, "error", start)
		return exchange.Result[[]T]{Data: []T{}, Message: errInvalidPayload.Error()}
	}

	c.observe(endpoint, "ok", start)
	items := decode(resp.body)
	if items == nil {
		items = []T{}
	}
	return exchange.Result[[]T]{Success: true, Data: items}
}

// fetchOne looks up a single entity by id. A 404 is a successful answer with no
// data, the caller decides what absence means.
func fetchOne[T any](ctx context.Context, c *Client, endpoint, id, notFound string, decode func([]byte) (*T, bool)) exchange.Result[*T] {
	if strings.TrimSpace(id) == "" {
		return exchange.Result[*T]{Message: errEmptyID.Error()}
	}

	start := time.Now()
	resp, err := c.doRequest(ctx, endpoint, c.apiPath+"/"+endpoint+"/"+url.PathEscape(id))
	if err != nil {
		return exchange.Result[*T]{Message: err.Error()}
	}
	if resp.status == http.StatusNotFound {
		c.observe(endpoint, "not_found", start)
		return exchange.Result[*T]{Success: true, Message: notFound}
	}
	if !isSuccess(resp.status) {
		c.observe(endpoint, "error", start)
		return exchange.Result[*T]{Message: statusError(resp.status).Error()}
	}

	item, ok := decode(resp.body)
	if !ok {
		c.observe(endpoint, "error", start)
		return exchange.Result[*T]{Message: fmt.Sprintf("%s: %s", errInvalidPayload, endpoint)}
	}
	c.observe(endpoint, "ok", start)
	return exchange.Result[*T]{Success: true, Data: item}
}
