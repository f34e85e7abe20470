package rest

import (
	"errors"
	"net/http"
	"time"

	"tradedash/internal/logger"
	"tradedash/internal/normalize"
)

const DefaultTimeout = 5 * time.Second

// maxBodySize caps how much of a response body is read.
const maxBodySize = 8 << 20

var ErrTimeout = errors.New("request timed out")

// Observer receives the outcome of every request. Outcome is one of "ok",
// "not_found", "timeout", "error".
type Observer interface {
	ObserveFetch(endpoint, outcome string, elapsed time.Duration)
}

type Client struct {
	baseURL    string
	apiPath    string
	timeout    time.Duration
	httpClient *http.Client
	normalizer *normalize.Normalizer
	observer   Observer
	log        *logger.Logger
	now        func() time.Time
}

type Options struct {
	BaseURL    string
	APIPath    string
	Timeout    time.Duration
	HTTPClient *http.Client
	Observer   Observer
}
