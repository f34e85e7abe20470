package rest

import (
	"context"

	"tradedash/internal/exchange"
	"tradedash/internal/models"
)

const PositionNotFound = "Position not found"

func (c *Client) Positions(ctx context.Context) exchange.Result[[]models.Position] {
	return fetchList(ctx, c, "positions", c.normalizer.Positions)
}

func (c *Client) Position(ctx context.Context, id string) exchange.Result[*models.Position] {
	return fetchOne(ctx, c, "positions", id, PositionNotFound, c.normalizer.Position)
}
