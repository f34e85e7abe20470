package rest

import (
	"net/http"
	"strings"
	"time"

	"tradedash/internal/logger"
	"tradedash/internal/normalize"
)

func New(opts Options, normalizer *normalize.Normalizer, log *logger.Logger) *Client {
	if opts.Timeout <= 0 {
		opts.Timeout = DefaultTimeout
	}
	if opts.HTTPClient == nil {
		opts.HTTPClient = &http.Client{}
	}
	if normalizer == nil {
		normalizer = normalize.New(nil)
	}
	if log == nil {
		log = logger.Discard()
	}

	return &Client{
		baseURL:    strings.TrimRight(opts.BaseURL, "/"),
		apiPath:    opts.APIPath,
		timeout:    opts.Timeout,
		httpClient: opts.HTTPClient,
		normalizer: normalizer,
		observer:   opts.Observer,
		log:        log,
		now:        time.Now,
	}
}
