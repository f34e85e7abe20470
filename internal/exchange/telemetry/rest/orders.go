package rest

import (
	"context"

	"tradedash/internal/exchange"
	"tradedash/internal/models"
)

const OrderNotFound = "Order not found"

func (c *Client) Orders(ctx context.Context) exchange.Result[[]models.Order] {
	return fetchList(ctx, c, "orders", c.normalizer.Orders)
}

func (c *Client) Order(ctx context.Context, id string) exchange.Result[*models.Order] {
	return fetchOne(ctx, c, "orders", id, OrderNotFound, c.normalizer.Order)
}
