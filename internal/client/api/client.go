// Package api is the HTTP client of the product API.
// It attaches the session's access token to every authenticated call and
// refreshes it once when the server rejects it.
package api

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/abgdnv/productdesk/internal/client/session"
	"github.com/sony/gobreaker/v2"
	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"
	"golang.org/x/time/rate"
)

const (
	loginPath   = "/auth/login/"
	refreshPath = "/auth/refresh/"

	defaultTimeout = 10 * time.Second
)

// errServerFailure marks a 5xx response as a failure for the circuit breaker.
var errServerFailure = errors.New("server failure")

// Client sends JSON requests to the product API on behalf of the session in store.
type Client struct {
	baseURL    string
	httpClient *http.Client
	store      session.Store
	logger     *slog.Logger
	limiter    *rate.Limiter
	breaker    *gobreaker.CircuitBreaker[*http.Response]
}

// New creates a Client for the API rooted at baseURL, e.g. http://localhost:8000/api.
func New(baseURL string, store session.Store, opts ...Option) *Client {
	c := &Client{
		baseURL: strings.TrimRight(baseURL, "/"),
		httpClient: &http.Client{
			Timeout:   defaultTimeout,
			Transport: otelhttp.NewTransport(http.DefaultTransport),
		},
		store:  store,
		logger: slog.New(slog.DiscardHandler),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

type requestOptions struct {
	requiresAuth bool
}

// RequestOption customizes a single call.
type RequestOption func(*requestOptions)

// WithoutAuth sends the request without an access token and skips the refresh flow.
func WithoutAuth() RequestOption {
	return func(o *requestOptions) {
		o.requiresAuth = false
	}
}

// Request sends body as JSON to path and returns the raw JSON response.
// A 204 or an empty successful response yields a nil value.
func (c *Client) Request(ctx context.Context, method, path string, body any, opts ...RequestOption) (json.RawMessage, error) {
	ro := requestOptions{requiresAuth: true}
	for _, opt := range opts {
		opt(&ro)
	}

	var token string
	if ro.requiresAuth {
		t, err := c.store.AccessToken()
		if err != nil {
			return nil, ErrUnauthenticated
		}
		token = t
	}

	var payload []byte
	if body != nil {
		b, err := json.Marshal(body)
		if err != nil {
			return nil, fmt.Errorf("failed to encode request body: %w", err)
		}
		payload = b
	}

	resp, err := c.send(ctx, method, path, payload, token)
	if err != nil {
		return nil, err
	}

	if resp.StatusCode == http.StatusUnauthorized && ro.requiresAuth {
		drain(resp)
		c.logger.DebugContext(ctx, "Access token rejected, refreshing", "method", method, "path", path)

		newToken, err := c.refresh(ctx)
		if err != nil {
			c.logger.WarnContext(ctx, "Token refresh failed, clearing session", "error", err)
			if clearErr := c.store.Clear(); clearErr != nil {
				c.logger.ErrorContext(ctx, "Failed to clear session", "error", clearErr)
			}
			return nil, fmt.Errorf("%w: %v", ErrSessionExpired, err)
		}

		resp, err = c.send(ctx, method, path, payload, newToken)
		if err != nil {
			return nil, err
		}
	}

	return decode(resp)
}

// Login exchanges the credentials for a token pair and stores it.
func (c *Client) Login(ctx context.Context, username, password string) error {
	raw, err := c.Request(ctx, http.MethodPost, loginPath, loginRequest{Username: username, Password: password}, WithoutAuth())
	if err != nil {
		return err
	}
	var tokens loginResponse
	if err := json.Unmarshal(raw, &tokens); err != nil || tokens.Token == "" {
		return fmt.Errorf("%w: login response without token", ErrInvalidResponse)
	}
	if err := c.store.SetAccessToken(tokens.Token); err != nil {
		return err
	}
	if tokens.Refresh != "" {
		if err := c.store.SetRefreshToken(tokens.Refresh); err != nil {
			return err
		}
	}
	c.logger.InfoContext(ctx, "Logged in", "username", username)
	return nil
}

// Logout forgets the stored tokens.
func (c *Client) Logout() error {
	return c.store.Clear()
}

// IsAuthenticated reports whether an access token is stored.
func (c *Client) IsAuthenticated() bool {
	return c.store.IsAuthenticated()
}

// refresh obtains a new access token with the stored refresh token and stores it.
func (c *Client) refresh(ctx context.Context) (string, error) {
	rt, err := c.store.RefreshToken()
	if err != nil {
		return "", err
	}
	raw, err := c.Request(ctx, http.MethodPost, refreshPath, refreshRequest{Refresh: rt}, WithoutAuth())
	if err != nil {
		return "", err
	}
	var out refreshResponse
	if err := json.Unmarshal(raw, &out); err != nil || out.Access == "" {
		return "", fmt.Errorf("%w: refresh response without access token", ErrInvalidResponse)
	}
	if err := c.store.SetAccessToken(out.Access); err != nil {
		return "", err
	}
	// rotated refresh tokens replace the old one
	if out.Refresh != "" {
		if err := c.store.SetRefreshToken(out.Refresh); err != nil {
			return "", err
		}
	}
	return out.Access, nil
}

func (c *Client) send(ctx context.Context, method, path string, payload []byte, token string) (*http.Response, error) {
	if c.limiter != nil {
		if err := c.limiter.Wait(ctx); err != nil {
			return nil, &APIError{Message: "rate limit wait failed", Err: err}
		}
	}

	var body io.Reader
	if payload != nil {
		body = bytes.NewReader(payload)
	}
	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, body)
	if err != nil {
		return nil, fmt.Errorf("failed to build request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "application/json")
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}

	do := func() (*http.Response, error) {
		resp, err := c.httpClient.Do(req)
		if err != nil {
			return nil, err
		}
		if resp.StatusCode >= http.StatusInternalServerError {
			return resp, errServerFailure
		}
		return resp, nil
	}

	var resp *http.Response
	if c.breaker != nil {
		resp, err = c.breaker.Execute(do)
	} else {
		resp, err = do()
	}
	if errors.Is(err, errServerFailure) {
		// the status is mapped by decode
		return resp, nil
	}
	if err != nil {
		c.logger.DebugContext(ctx, "Request failed", "method", method, "path", path, "error", err)
		return nil, &APIError{Message: "request failed", Err: err}
	}
	return resp, nil
}

func decode(resp *http.Response) (json.RawMessage, error) {
	defer resp.Body.Close()
	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, &APIError{StatusCode: resp.StatusCode, Message: "failed to read response", Err: err}
	}

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return nil, statusError(resp.StatusCode, data)
	}
	if resp.StatusCode == http.StatusNoContent || len(bytes.TrimSpace(data)) == 0 {
		return nil, nil
	}
	if !json.Valid(data) {
		return nil, fmt.Errorf("%w: response is not valid JSON", ErrInvalidResponse)
	}
	return json.RawMessage(data), nil
}

func drain(resp *http.Response) {
	_, _ = io.Copy(io.Discard, resp.Body)
	_ = resp.Body.Close()
}

type loginRequest struct {
	Username string `json:"username"`
	Password string `json:"password"`
}

type loginResponse struct {
	Token   string `json:"token"`
	Refresh string `json:"refresh"`
}

type refreshRequest struct {
	Refresh string `json:"refresh"`
}

type refreshResponse struct {
	Access  string `json:"access"`
	Refresh string `json:"refresh,omitempty"`
}
