// Package udemy extracts paginated analytics resources from a Udemy
// Business style REST API, caching every fetched page on disk so an
// interrupted run resumes from the last committed page.
package udemy

import (
	"time"

	"coursemetrics/lib/pagestore"

	"github.com/go-resty/resty/v2"
	"go.opentelemetry.io/otel"
)

var tracer = otel.Tracer("platforms/udemy")

const (
	DefaultTimeout  = 30 * time.Second
	DefaultPageSize = 100
	// pause after every network fetch; a fixed-rate throttle, not backoff
	DefaultThrottle = 500 * time.Millisecond
)

type Client struct {
	http     *resty.Client
	store    pagestore.Store
	pageSize int
	throttle time.Duration
}

type ClientOptions struct {
	// BaseUrl is the account-scoped API root, e.g.
	// "https://acme.udemy.com/api-2.0/organizations/1234/".
	BaseUrl      string
	ClientID     string
	ClientSecret string
	Store        pagestore.Store
	// zero values fall back to DefaultTimeout/DefaultPageSize/DefaultThrottle
	Timeout  time.Duration
	PageSize int
	Throttle time.Duration
	// NoThrottle disables the post-fetch pause, used by tests
	NoThrottle bool
}

func NewClient(opts ClientOptions) *Client {
	if opts.Timeout == 0 {
		opts.Timeout = DefaultTimeout
	}
	if opts.PageSize == 0 {
		opts.PageSize = DefaultPageSize
	}
	if opts.Throttle == 0 {
		opts.Throttle = DefaultThrottle
	}
	if opts.NoThrottle {
		opts.Throttle = 0
	}

	client := resty.New()
	client.SetBaseURL(opts.BaseUrl)
	client.SetBasicAuth(opts.ClientID, opts.ClientSecret)
	client.SetTimeout(opts.Timeout)
	client.SetHeader("Accept", "application/json")

	return &Client{
		http:     client,
		store:    opts.Store,
		pageSize: opts.PageSize,
		throttle: opts.Throttle,
	}
}
