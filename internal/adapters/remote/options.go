// Package remote holds the HTTP clients for the engine's external
// collaborators.
package remote

import (
	"net/http"
	"time"

	"golang.org/x/time/rate"

	"github.com/fieldray/kanvass/pkg/logger"
)

// Option applies a configuration option to the Client.
type Option func(*Client)

// WithHTTPClient replaces the underlying HTTP client. Timeout policy for
// in-flight mutations lives here, on the transport.
func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) {
		if hc != nil {
			c.httpClient = hc
		}
	}
}

// WithTimeout sets the transport timeout on the default HTTP client.
func WithTimeout(d time.Duration) Option {
	return func(c *Client) {
		if d > 0 {
			c.httpClient.Timeout = d
		}
	}
}

// WithRateLimit bounds outbound requests per second.
func WithRateLimit(rps float64, burst int) Option {
	return func(c *Client) {
		if rps > 0 && burst > 0 {
			c.limiter = rate.NewLimiter(rate.Limit(rps), burst)
		}
	}
}

// WithMaxConcurrent bounds concurrent batch fetches.
func WithMaxConcurrent(n int) Option {
	return func(c *Client) {
		if n > 0 {
			c.maxConcurrent = n
		}
	}
}

// WithLogger sets a custom logger for the client.
func WithLogger(l logger.Logger) Option {
	return func(c *Client) {
		if l != nil {
			c.logger = l
		}
	}
}
