package app

import (
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/abgdnv/productdesk/internal/config"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testConfig(failureRate float64) *config.ServerConfig {
	return &config.ServerConfig{
		Auth: config.AuthConfig{
			Secret:     "0123456789abcdef0123456789abcdef",
			Issuer:     "productdesk-test",
			AccessTTL:  time.Minute,
			RefreshTTL: time.Hour,
			Username:   "admin",
			Password:   "admin",
		},
		Pagination: config.PaginationConfig{DefaultLimit: 100, MaxLimit: 1000},
		Chaos:      config.ChaosConfig{FailureRate: failureRate},
	}
}

func newTestServer(t *testing.T, cfg *config.ServerConfig) *httptest.Server {
	t.Helper()
	deps, err := SetupDependencies(nil, cfg, slog.New(slog.DiscardHandler))
	require.NoError(t, err)
	srv := httptest.NewServer(SetupHttpHandler(deps, cfg))
	t.Cleanup(srv.Close)
	return srv
}

func login(t *testing.T, baseURL string) string {
	t.Helper()
	resp, err := http.Post(baseURL+"/api/auth/login/", "application/json", strings.NewReader(`{"username":"admin","password":"admin"}`))
	require.NoError(t, err)
	defer resp.Body.Close()
	require.Equal(t, http.StatusOK, resp.StatusCode)
	var body struct {
		Token   string `json:"token"`
		Refresh string `json:"refresh"`
	}
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&body))
	require.NotEmpty(t, body.Refresh)
	return body.Token
}

func Test_SetupHttpHandler_Routes(t *testing.T) {
	srv := newTestServer(t, testConfig(0))
	token := login(t, srv.URL)

	testCases := []struct {
		name         string
		method       string
		path         string
		token        string
		expectedCode int
	}{
		{name: "health check is public", method: http.MethodGet, path: "/healthz", expectedCode: http.StatusOK},
		{name: "metrics are public", method: http.MethodGet, path: "/metrics", expectedCode: http.StatusOK},
		{name: "products require a token", method: http.MethodGet, path: "/api/products/", expectedCode: http.StatusUnauthorized},
		{name: "products reject a bogus token", method: http.MethodGet, path: "/api/products/", token: "bogus", expectedCode: http.StatusUnauthorized},
		{name: "products with a token", method: http.MethodGet, path: "/api/products/", token: token, expectedCode: http.StatusOK},
		{name: "product detail with a token", method: http.MethodGet, path: "/api/products/2/", token: token, expectedCode: http.StatusOK},
		{name: "unknown product detail", method: http.MethodGet, path: "/api/products/99/", token: token, expectedCode: http.StatusNotFound},
		{name: "product detail requires a token", method: http.MethodGet, path: "/api/products/2/", expectedCode: http.StatusUnauthorized},
		{name: "delete requires a token", method: http.MethodDelete, path: "/api/products/1/", expectedCode: http.StatusUnauthorized},
		{name: "unknown route", method: http.MethodGet, path: "/api/orders/", token: token, expectedCode: http.StatusNotFound},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			// given
			req, err := http.NewRequest(tc.method, srv.URL+tc.path, nil)
			require.NoError(t, err)
			if tc.token != "" {
				req.Header.Set("Authorization", "Bearer "+tc.token)
			}

			// when
			resp, err := http.DefaultClient.Do(req)

			// then
			require.NoError(t, err)
			defer resp.Body.Close()
			assert.Equal(t, tc.expectedCode, resp.StatusCode)
			assert.NotEmpty(t, resp.Header.Get("X-Request-Id"))
		})
	}
}

func Test_SetupHttpHandler_SeededProducts(t *testing.T) {
	// given
	srv := newTestServer(t, testConfig(0))
	token := login(t, srv.URL)
	req, err := http.NewRequest(http.MethodGet, srv.URL+"/api/products/", nil)
	require.NoError(t, err)
	req.Header.Set("Authorization", "Bearer "+token)

	// when
	resp, err := http.DefaultClient.Do(req)

	// then
	require.NoError(t, err)
	defer resp.Body.Close()
	require.Equal(t, http.StatusOK, resp.StatusCode)
	var page struct {
		Count   int `json:"count"`
		Results []struct {
			Name  string `json:"name"`
			Price string `json:"price"`
		} `json:"results"`
	}
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&page))
	assert.Equal(t, 2, page.Count)
	require.Len(t, page.Results, 2)
	assert.Equal(t, "Produto 1", page.Results[0].Name)
	assert.Equal(t, "100.00", page.Results[0].Price)
}

func Test_SetupHttpHandler_Metrics(t *testing.T) {
	// given
	srv := newTestServer(t, testConfig(0))
	_ = login(t, srv.URL)

	scrape := func() string {
		resp, err := http.Get(srv.URL + "/metrics")
		if err != nil {
			return ""
		}
		defer resp.Body.Close()
		body, _ := io.ReadAll(resp.Body)
		return string(body)
	}

	// when / then
	assert.Eventually(t, func() bool {
		return strings.Contains(scrape(), `http_requests_total{endpoint="/api/auth/login",method="POST",status="2xx"} 1`)
	}, time.Second, 10*time.Millisecond)
	assert.Contains(t, scrape(), "go_goroutines")
}

func Test_SetupHttpHandler_FaultInjection(t *testing.T) {
	// given
	srv := newTestServer(t, testConfig(1))

	// when
	apiResp, err := http.Post(srv.URL+"/api/auth/login/", "application/json", strings.NewReader(`{"username":"admin","password":"admin"}`))
	require.NoError(t, err)
	defer apiResp.Body.Close()
	healthResp, err := http.Get(srv.URL + "/healthz")
	require.NoError(t, err)
	defer healthResp.Body.Close()

	// then
	assert.Equal(t, http.StatusInternalServerError, apiResp.StatusCode)
	body, err := io.ReadAll(apiResp.Body)
	require.NoError(t, err)
	assert.JSONEq(t, `{"error":"Injected failure"}`, string(body))
	assert.Equal(t, http.StatusOK, healthResp.StatusCode, "fault injection is limited to the API")
}

func Test_SetupHttpServer(t *testing.T) {
	// given
	cfg := testConfig(0)
	cfg.HTTPServer.Port = 8081
	cfg.HTTPServer.MaxHeaderBytes = 4096
	cfg.HTTPServer.Timeout.Read = 2 * time.Second
	deps, err := SetupDependencies(nil, cfg, slog.New(slog.DiscardHandler))
	require.NoError(t, err)

	// when
	server := SetupHttpServer(deps, cfg)

	// then
	assert.Equal(t, ":8081", server.Addr)
	assert.Equal(t, 4096, server.MaxHeaderBytes)
	assert.Equal(t, 2*time.Second, server.ReadTimeout)
	assert.NotNil(t, server.Handler)
}
