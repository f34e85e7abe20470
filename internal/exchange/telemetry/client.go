// Package telemetry bundles the push and request/response channels to one
// telemetry server behind the exchange.Feed and exchange.Fetcher contracts.
package telemetry

import (
	"tradedash/internal/config"
	"tradedash/internal/exchange"
	"tradedash/internal/exchange/telemetry/rest"
	"tradedash/internal/exchange/telemetry/ws"
	"tradedash/internal/logger"
	"tradedash/internal/normalize"
)

type Client struct {
	exchange.Feed
	exchange.Fetcher
}

func New(cfg config.Config, normalizer *normalize.Normalizer, observer rest.Observer, log *logger.Logger) *Client {
	if log == nil {
		log = logger.Discard()
	}

	feed := ws.New(ws.Options{
		URL:           cfg.Server.WSURL,
		DefaultSymbol: cfg.Feed.DefaultSymbol,
		Reconnect:     cfg.Feed.Reconnect,
		ReconnectMin:  cfg.Feed.ReconnectMin,
		ReconnectMax:  cfg.Feed.ReconnectMax,
		EventBuffer:   cfg.Feed.EventBuffer,
	}, log)

	fetcher := rest.New(rest.Options{
		BaseURL:  cfg.Server.BaseURL,
		APIPath:  cfg.Server.APIPath,
		Timeout:  cfg.Server.RequestTimeout,
		Observer: observer,
	}, normalizer, log)

	log.WithComponent("telemetry").
		WithField("base_url", cfg.Server.BaseURL).
		WithField("ws_url", cfg.Server.WSURL).
		Info("Клиент телеметрии создан.")

	return &Client{Feed: feed, Fetcher: fetcher}
}
