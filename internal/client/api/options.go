package api

import (
	"log/slog"
	"net/http"
	"time"

	"github.com/abgdnv/productdesk/internal/client/session"
	"github.com/abgdnv/productdesk/internal/config"
	"github.com/sony/gobreaker/v2"
	"golang.org/x/time/rate"
)

// Option configures a Client.
type Option func(*Client)

// WithHTTPClient replaces the underlying HTTP client.
func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) {
		c.httpClient = hc
	}
}

// WithTimeout sets the timeout of every single HTTP exchange.
func WithTimeout(timeout time.Duration) Option {
	return func(c *Client) {
		c.httpClient.Timeout = timeout
	}
}

func WithLogger(logger *slog.Logger) Option {
	return func(c *Client) {
		c.logger = logger.With("component", "api_client")
	}
}

// WithRateLimit delays outgoing requests to at most rps per second.
func WithRateLimit(rps float64, burst int) Option {
	return func(c *Client) {
		c.limiter = rate.NewLimiter(rate.Limit(rps), burst)
	}
}

// WithCircuitBreaker stops sending requests after consecutive transport failures or 5xx responses.
// While open, calls fail immediately with an *APIError wrapping gobreaker.ErrOpenState.
func WithCircuitBreaker(cfg config.CircuitBreakerConfig) Option {
	return func(c *Client) {
		settings := gobreaker.Settings{
			Name:    "product-api",
			Timeout: cfg.OpenTimeout,
			ReadyToTrip: func(counts gobreaker.Counts) bool {
				return counts.ConsecutiveFailures >= cfg.ConsecutiveFailures
			},
			OnStateChange: func(name string, from gobreaker.State, to gobreaker.State) {
				c.logger.Warn("Circuit breaker state changed", "name", name, "from", from.String(), "to", to.String())
			},
		}
		c.breaker = gobreaker.NewCircuitBreaker[*http.Response](settings)
	}
}

// NewFromConfig creates a Client configured from the client configuration.
func NewFromConfig(cfg *config.ClientConfig, store session.Store, logger *slog.Logger) *Client {
	opts := []Option{
		WithLogger(logger),
		WithTimeout(cfg.API.Timeout),
	}
	if cfg.Resilience.RateLimit.RPS > 0 {
		opts = append(opts, WithRateLimit(cfg.Resilience.RateLimit.RPS, cfg.Resilience.RateLimit.Burst))
	}
	if cfg.Resilience.CircuitBreaker.Enabled {
		opts = append(opts, WithCircuitBreaker(cfg.Resilience.CircuitBreaker))
	}
	return New(cfg.API.BaseURL, store, opts...)
}
