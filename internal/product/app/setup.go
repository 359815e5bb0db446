// Package app wires the product service: store, services, router and HTTP server.
package app

import (
	"fmt"
	"log/slog"
	"net/http"

	"github.com/abgdnv/productdesk/internal/config"
	"github.com/abgdnv/productdesk/internal/platform/metrics"
	"github.com/abgdnv/productdesk/internal/platform/web"
	"github.com/abgdnv/productdesk/internal/product/auth"
	"github.com/abgdnv/productdesk/internal/product/handler"
	"github.com/abgdnv/productdesk/internal/product/service"
	"github.com/abgdnv/productdesk/internal/product/store"
	"github.com/go-chi/chi/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"
)

const serviceName = "product-service"

type Dependencies struct {
	ProductService service.ProductService
	TokenService   handler.TokenService
	Verifier       auth.Verifier
	Registry       *prometheus.Registry
	Logger         *slog.Logger
}

// SetupDependencies builds the services on top of the PostgreSQL pool, or on a
// seeded in-memory store when dbPool is nil.
func SetupDependencies(dbPool *pgxpool.Pool, cfg *config.ServerConfig, logger *slog.Logger) (*Dependencies, error) {
	var productStore store.ProductStore
	if dbPool != nil {
		productStore = store.NewPgStore(dbPool)
	} else {
		productStore = store.NewInMemoryStore(store.DefaultSeed()...)
	}

	issuer, err := auth.NewIssuer(cfg.Auth)
	if err != nil {
		return nil, err
	}

	reg := prometheus.NewRegistry()
	reg.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))

	return &Dependencies{
		ProductService: service.NewService(productStore, service.NewMetrics(reg), logger),
		TokenService:   auth.NewService(issuer, cfg.Auth, logger),
		Verifier:       issuer,
		Registry:       reg,
		Logger:         logger,
	}, nil
}

// SetupHttpHandler initializes the routes and middleware of the product service.
// Used by E2E tests to set up the HTTP server with the necessary routes and middleware.
func SetupHttpHandler(deps *Dependencies, cfg *config.ServerConfig) http.Handler {
	pApi := handler.NewAPI(deps.ProductService, cfg.Pagination, deps.Logger)
	aApi := handler.NewAuthAPI(deps.TokenService, deps.Logger)
	httpMetrics := metrics.NewHTTP(deps.Registry)

	mux := chi.NewRouter()
	mux.Use(web.RequestIDInjector)
	mux.Use(web.StructuredLogger(deps.Logger))
	mux.Use(web.Recoverer(deps.Logger))
	mux.Use(httpMetrics.Middleware)

	mux.Route("/api", func(r chi.Router) {
		r.Use(web.FaultInjector(cfg.Chaos.FailureRate, nil, deps.Logger))

		r.Post("/auth/login/", aApi.Login)
		r.Post("/auth/refresh/", aApi.Refresh)

		r.Group(func(r chi.Router) {
			r.Use(auth.Middleware(deps.Verifier, deps.Logger))
			r.Get("/products/", pApi.FindAll)
			r.Post("/products/", pApi.Create)
			r.Get("/products/{id}/", pApi.FindByID)
			r.Delete("/products/{id}/", pApi.DeleteByID)
		})
	})

	mux.Get("/healthz", pApi.HealthCheck)
	mux.Handle("/metrics", metrics.Handler(deps.Registry))

	return otelhttp.NewHandler(mux, serviceName)
}

// SetupHttpServer creates and configures an HTTP server for the product service.
func SetupHttpServer(deps *Dependencies, cfg *config.ServerConfig) *http.Server {
	return &http.Server{
		Addr:              fmt.Sprintf(":%d", cfg.HTTPServer.Port),
		Handler:           SetupHttpHandler(deps, cfg),
		ReadTimeout:       cfg.HTTPServer.Timeout.Read,
		WriteTimeout:      cfg.HTTPServer.Timeout.Write,
		IdleTimeout:       cfg.HTTPServer.Timeout.Idle,
		ReadHeaderTimeout: cfg.HTTPServer.Timeout.ReadHeader,
		MaxHeaderBytes:    cfg.HTTPServer.MaxHeaderBytes,
	}
}
