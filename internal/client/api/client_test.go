package api

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/abgdnv/productdesk/internal/client/session"
	"github.com/abgdnv/productdesk/internal/config"
	"github.com/sony/gobreaker/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// fakeAPI records the calls it receives and answers products and refresh calls with the configured handlers.
type fakeAPI struct {
	productCalls atomic.Int32
	refreshCalls atomic.Int32
	loginCalls   atomic.Int32

	mu          sync.Mutex
	authHeaders []string

	products func(w http.ResponseWriter, r *http.Request, call int32)
	refresh  func(w http.ResponseWriter, r *http.Request)
	login    func(w http.ResponseWriter, r *http.Request)
}

func (f *fakeAPI) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	switch r.URL.Path {
	case "/api/products/":
		call := f.productCalls.Add(1)
		f.mu.Lock()
		f.authHeaders = append(f.authHeaders, r.Header.Get("Authorization"))
		f.mu.Unlock()
		f.products(w, r, call)
	case "/api/auth/refresh/":
		f.refreshCalls.Add(1)
		f.refresh(w, r)
	case "/api/auth/login/":
		f.loginCalls.Add(1)
		f.login(w, r)
	default:
		http.NotFound(w, r)
	}
}

func writeJSON(w http.ResponseWriter, status int, body string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_, _ = w.Write([]byte(body))
}

func newTestClient(t *testing.T, f *fakeAPI, opts ...Option) (*Client, *session.MemoryStore) {
	t.Helper()
	srv := httptest.NewServer(f)
	t.Cleanup(srv.Close)
	store := session.NewMemoryStore()
	return New(srv.URL+"/api", store, opts...), store
}

func signIn(t *testing.T, store session.Store, access, refresh string) {
	t.Helper()
	require.NoError(t, store.SetAccessToken(access))
	if refresh != "" {
		require.NoError(t, store.SetRefreshToken(refresh))
	}
}

func TestRequest_UnauthenticatedWithoutNetworkCall(t *testing.T) {
	// given
	f := &fakeAPI{products: func(w http.ResponseWriter, r *http.Request, call int32) {
		writeJSON(w, http.StatusOK, `{}`)
	}}
	c, _ := newTestClient(t, f)

	// when
	_, err := c.Request(context.Background(), http.MethodGet, "/products/", nil)

	// then
	assert.ErrorIs(t, err, ErrUnauthenticated)
	assert.Zero(t, f.productCalls.Load())
}

func TestRequest_SendsHeadersAndBody(t *testing.T) {
	// given
	var gotBody map[string]any
	var gotContentType, gotAccept string
	f := &fakeAPI{products: func(w http.ResponseWriter, r *http.Request, call int32) {
		gotContentType = r.Header.Get("Content-Type")
		gotAccept = r.Header.Get("Accept")
		_ = json.NewDecoder(r.Body).Decode(&gotBody)
		writeJSON(w, http.StatusCreated, `{"id":1,"name":"Widget","price":"10.50"}`)
	}}
	c, store := newTestClient(t, f)
	signIn(t, store, "A", "R")

	// when
	raw, err := c.Request(context.Background(), http.MethodPost, "/products/", map[string]any{"name": "Widget", "price": 10.5})

	// then
	require.NoError(t, err)
	assert.JSONEq(t, `{"id":1,"name":"Widget","price":"10.50"}`, string(raw))
	assert.Equal(t, "application/json", gotContentType)
	assert.Equal(t, "application/json", gotAccept)
	assert.Equal(t, []string{"Bearer A"}, f.authHeaders)
	assert.Equal(t, map[string]any{"name": "Widget", "price": 10.5}, gotBody)
}

func TestRequest_SuccessBodies(t *testing.T) {
	testCases := []struct {
		name        string
		status      int
		body        string
		expected    json.RawMessage
		expectedErr error
	}{
		{name: "No content", status: http.StatusNoContent},
		{name: "Empty body", status: http.StatusOK, body: ""},
		{name: "JSON body", status: http.StatusOK, body: `{"count":0}`, expected: json.RawMessage(`{"count":0}`)},
		{name: "Invalid JSON", status: http.StatusOK, body: `<html>`, expectedErr: ErrInvalidResponse},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			// given
			f := &fakeAPI{products: func(w http.ResponseWriter, r *http.Request, call int32) {
				w.WriteHeader(tc.status)
				_, _ = w.Write([]byte(tc.body))
			}}
			c, store := newTestClient(t, f)
			signIn(t, store, "A", "R")

			// when
			raw, err := c.Request(context.Background(), http.MethodGet, "/products/", nil)

			// then
			if tc.expectedErr != nil {
				assert.ErrorIs(t, err, tc.expectedErr)
				assert.Equal(t, int32(1), f.productCalls.Load(), "parse failures are never retried")
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tc.expected, raw)
		})
	}
}

func TestRequest_RefreshSucceeds(t *testing.T) {
	// given
	var refreshBody map[string]string
	f := &fakeAPI{
		products: func(w http.ResponseWriter, r *http.Request, call int32) {
			if r.Header.Get("Authorization") != "Bearer A2" {
				writeJSON(w, http.StatusUnauthorized, `{"detail":"token expired"}`)
				return
			}
			writeJSON(w, http.StatusOK, `{"count":0,"next":null,"previous":null,"results":[]}`)
		},
		refresh: func(w http.ResponseWriter, r *http.Request) {
			_ = json.NewDecoder(r.Body).Decode(&refreshBody)
			assert.Empty(t, r.Header.Get("Authorization"))
			writeJSON(w, http.StatusOK, `{"access":"A2"}`)
		},
	}
	c, store := newTestClient(t, f)
	signIn(t, store, "A1", "R")

	// when
	raw, err := c.Request(context.Background(), http.MethodGet, "/products/", nil)

	// then
	require.NoError(t, err)
	assert.NotNil(t, raw)
	assert.Equal(t, int32(1), f.refreshCalls.Load())
	assert.Equal(t, int32(2), f.productCalls.Load(), "exactly one retried request")
	assert.Equal(t, []string{"Bearer A1", "Bearer A2"}, f.authHeaders)
	assert.Equal(t, map[string]string{"refresh": "R"}, refreshBody)
	at, err := store.AccessToken()
	require.NoError(t, err)
	assert.Equal(t, "A2", at)
}

func TestRequest_RefreshRotatesRefreshToken(t *testing.T) {
	// given
	f := &fakeAPI{
		products: func(w http.ResponseWriter, r *http.Request, call int32) {
			if call == 1 {
				writeJSON(w, http.StatusUnauthorized, `{}`)
				return
			}
			w.WriteHeader(http.StatusNoContent)
		},
		refresh: func(w http.ResponseWriter, r *http.Request) {
			writeJSON(w, http.StatusOK, `{"access":"A2","refresh":"R2"}`)
		},
	}
	c, store := newTestClient(t, f)
	signIn(t, store, "A1", "R1")

	// when
	_, err := c.Request(context.Background(), http.MethodDelete, "/products/", nil)

	// then
	require.NoError(t, err)
	rt, err := store.RefreshToken()
	require.NoError(t, err)
	assert.Equal(t, "R2", rt)
}

func TestRequest_RefreshFails(t *testing.T) {
	testCases := []struct {
		name                 string
		refreshToken         string
		refresh              func(w http.ResponseWriter, r *http.Request)
		expectedRefreshCalls int32
	}{
		{
			name:         "refresh endpoint rejects the token",
			refreshToken: "R",
			refresh: func(w http.ResponseWriter, r *http.Request) {
				writeJSON(w, http.StatusUnauthorized, `{"detail":"Token is invalid or expired"}`)
			},
			expectedRefreshCalls: 1,
		},
		{
			name:         "refresh response without access token",
			refreshToken: "R",
			refresh: func(w http.ResponseWriter, r *http.Request) {
				writeJSON(w, http.StatusOK, `{}`)
			},
			expectedRefreshCalls: 1,
		},
		{
			name:         "refresh endpoint fails",
			refreshToken: "R",
			refresh: func(w http.ResponseWriter, r *http.Request) {
				writeJSON(w, http.StatusInternalServerError, `{"error":"boom"}`)
			},
			expectedRefreshCalls: 1,
		},
		{
			name:                 "no refresh token stored",
			expectedRefreshCalls: 0,
		},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			// given
			f := &fakeAPI{
				products: func(w http.ResponseWriter, r *http.Request, call int32) {
					writeJSON(w, http.StatusUnauthorized, `{"detail":"token expired"}`)
				},
				refresh: tc.refresh,
			}
			c, store := newTestClient(t, f)
			signIn(t, store, "A", tc.refreshToken)

			// when
			_, err := c.Request(context.Background(), http.MethodGet, "/products/", nil)

			// then
			assert.ErrorIs(t, err, ErrSessionExpired)
			assert.Equal(t, int32(1), f.productCalls.Load(), "no further retry")
			assert.Equal(t, tc.expectedRefreshCalls, f.refreshCalls.Load())
			assert.False(t, store.IsAuthenticated())
			_, rtErr := store.RefreshToken()
			assert.ErrorIs(t, rtErr, session.ErrNoToken)
		})
	}
}

func TestRequest_RetryRejectedAgain(t *testing.T) {
	// given
	f := &fakeAPI{
		products: func(w http.ResponseWriter, r *http.Request, call int32) {
			writeJSON(w, http.StatusUnauthorized, `{"detail":"nope"}`)
		},
		refresh: func(w http.ResponseWriter, r *http.Request) {
			writeJSON(w, http.StatusOK, `{"access":"A2"}`)
		},
	}
	c, store := newTestClient(t, f)
	signIn(t, store, "A1", "R")

	// when
	_, err := c.Request(context.Background(), http.MethodGet, "/products/", nil)

	// then
	var apiErr *APIError
	require.ErrorAs(t, err, &apiErr)
	assert.Equal(t, http.StatusUnauthorized, apiErr.StatusCode)
	assert.Equal(t, int32(1), f.refreshCalls.Load())
	assert.Equal(t, int32(2), f.productCalls.Load())
}

func TestRequest_ErrorStatuses(t *testing.T) {
	testCases := []struct {
		name          string
		status        int
		body          string
		expectedErr   error
		expectedField string
		expectedMsg   string
	}{
		{
			name:          "validation_errors envelope",
			status:        http.StatusBadRequest,
			body:          `{"validation_errors":{"price":"failed on rule: gt","name":"failed on rule: required"}}`,
			expectedErr:   ErrValidationFailed,
			expectedField: "name",
			expectedMsg:   "failed on rule: required",
		},
		{
			name:          "field lists",
			status:        http.StatusBadRequest,
			body:          `{"price":["A valid number is required."]}`,
			expectedErr:   ErrValidationFailed,
			expectedField: "price",
			expectedMsg:   "A valid number is required.",
		},
		{
			name:        "error message",
			status:      http.StatusBadRequest,
			body:        `{"error":"Invalid JSON body"}`,
			expectedErr: ErrValidationFailed,
			expectedMsg: "Invalid JSON body",
		},
		{
			name:        "unparseable body",
			status:      http.StatusBadRequest,
			body:        `oops`,
			expectedErr: ErrValidationFailed,
			expectedMsg: "Bad Request",
		},
		{name: "not found", status: http.StatusNotFound, body: `{"error":"Product with ID 9 not found"}`, expectedErr: ErrNotFound},
		{name: "server error", status: http.StatusInternalServerError, body: `{"error":"Injected failure"}`, expectedErr: ErrAPI, expectedMsg: "Injected failure"},
		{name: "forbidden", status: http.StatusForbidden, body: ``, expectedErr: ErrAPI, expectedMsg: "Forbidden"},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			// given
			f := &fakeAPI{products: func(w http.ResponseWriter, r *http.Request, call int32) {
				writeJSON(w, tc.status, tc.body)
			}}
			c, store := newTestClient(t, f)
			signIn(t, store, "A", "R")

			// when
			_, err := c.Request(context.Background(), http.MethodPost, "/products/", map[string]any{})

			// then
			require.ErrorIs(t, err, tc.expectedErr)
			var validationErr *ValidationError
			if errors.As(err, &validationErr) {
				assert.Equal(t, tc.expectedField, validationErr.Field)
				assert.Equal(t, tc.expectedMsg, validationErr.Message)
			}
			var apiErr *APIError
			if errors.As(err, &apiErr) {
				assert.Equal(t, tc.status, apiErr.StatusCode)
				assert.Equal(t, tc.expectedMsg, apiErr.Message)
			}
		})
	}
}

func TestRequest_TransportFailure(t *testing.T) {
	// given
	srv := httptest.NewServer(http.NotFoundHandler())
	baseURL := srv.URL + "/api"
	srv.Close()
	store := session.NewMemoryStore()
	signIn(t, store, "A", "R")
	c := New(baseURL, store)

	// when
	_, err := c.Request(context.Background(), http.MethodGet, "/products/", nil)

	// then
	var apiErr *APIError
	require.ErrorAs(t, err, &apiErr)
	assert.ErrorIs(t, err, ErrAPI)
	assert.Zero(t, apiErr.StatusCode)
	assert.True(t, store.IsAuthenticated(), "transport failures keep the session")
}

func TestRequest_WithoutAuth(t *testing.T) {
	// given
	f := &fakeAPI{products: func(w http.ResponseWriter, r *http.Request, call int32) {
		writeJSON(w, http.StatusUnauthorized, `{}`)
	}}
	c, _ := newTestClient(t, f)

	// when
	_, err := c.Request(context.Background(), http.MethodGet, "/products/", nil, WithoutAuth())

	// then
	assert.ErrorIs(t, err, ErrAPI)
	assert.NotErrorIs(t, err, ErrSessionExpired)
	assert.Equal(t, []string{""}, f.authHeaders)
	assert.Zero(t, f.refreshCalls.Load())
}

func TestLogin(t *testing.T) {
	testCases := []struct {
		name        string
		status      int
		body        string
		expectedErr error
	}{
		{name: "Success", status: http.StatusOK, body: `{"token":"A","refresh":"R"}`},
		{name: "Bad credentials", status: http.StatusUnauthorized, body: `{"error":"invalid credentials"}`, expectedErr: ErrAPI},
		{name: "No token in response", status: http.StatusOK, body: `{}`, expectedErr: ErrInvalidResponse},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			// given
			var creds map[string]string
			f := &fakeAPI{login: func(w http.ResponseWriter, r *http.Request) {
				_ = json.NewDecoder(r.Body).Decode(&creds)
				writeJSON(w, tc.status, tc.body)
			}}
			c, store := newTestClient(t, f)

			// when
			err := c.Login(context.Background(), "admin", "secret")

			// then
			assert.Equal(t, map[string]string{"username": "admin", "password": "secret"}, creds)
			if tc.expectedErr != nil {
				assert.ErrorIs(t, err, tc.expectedErr)
				assert.False(t, c.IsAuthenticated())
				return
			}
			require.NoError(t, err)
			at, _ := store.AccessToken()
			rt, _ := store.RefreshToken()
			assert.Equal(t, "A", at)
			assert.Equal(t, "R", rt)
		})
	}
}

func TestLogout(t *testing.T) {
	// given
	c, store := newTestClient(t, &fakeAPI{})
	signIn(t, store, "A", "R")

	// when
	err := c.Logout()

	// then
	require.NoError(t, err)
	assert.False(t, c.IsAuthenticated())
}

func TestCircuitBreaker_OpensOnServerErrors(t *testing.T) {
	// given
	f := &fakeAPI{products: func(w http.ResponseWriter, r *http.Request, call int32) {
		writeJSON(w, http.StatusServiceUnavailable, `{"error":"down"}`)
	}}
	c, store := newTestClient(t, f, WithCircuitBreaker(config.CircuitBreakerConfig{
		Enabled:             true,
		ConsecutiveFailures: 2,
		OpenTimeout:         time.Minute,
	}))
	signIn(t, store, "A", "R")
	ctx := context.Background()

	// when
	_, err1 := c.Request(ctx, http.MethodGet, "/products/", nil)
	_, err2 := c.Request(ctx, http.MethodGet, "/products/", nil)
	_, err3 := c.Request(ctx, http.MethodGet, "/products/", nil)

	// then
	var apiErr *APIError
	require.ErrorAs(t, err1, &apiErr)
	assert.Equal(t, http.StatusServiceUnavailable, apiErr.StatusCode)
	assert.ErrorIs(t, err2, ErrAPI)
	assert.ErrorIs(t, err3, ErrAPI)
	assert.ErrorIs(t, err3, gobreaker.ErrOpenState)
	assert.Equal(t, int32(2), f.productCalls.Load(), "an open breaker does not reach the server")
}

func TestRateLimit_WaitRespectsContext(t *testing.T) {
	// given
	f := &fakeAPI{products: func(w http.ResponseWriter, r *http.Request, call int32) {
		w.WriteHeader(http.StatusNoContent)
	}}
	c, store := newTestClient(t, f, WithRateLimit(0.001, 1))
	signIn(t, store, "A", "R")
	_, err := c.Request(context.Background(), http.MethodGet, "/products/", nil)
	require.NoError(t, err)
	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()

	// when
	_, err = c.Request(ctx, http.MethodGet, "/products/", nil)

	// then
	assert.ErrorIs(t, err, ErrAPI)
	assert.Equal(t, int32(1), f.productCalls.Load())
}

func TestNewFromConfig(t *testing.T) {
	// given
	cfg, err := config.LoadClient("")
	require.NoError(t, err)
	cfg.Resilience.RateLimit.RPS = 10
	cfg.Resilience.CircuitBreaker.Enabled = true

	// when
	c := NewFromConfig(cfg, session.NewMemoryStore(), discardLogger())

	// then
	assert.Equal(t, config.DefaultBaseURL, c.baseURL)
	assert.Equal(t, cfg.API.Timeout, c.httpClient.Timeout)
	assert.NotNil(t, c.limiter)
	assert.NotNil(t, c.breaker)
}
