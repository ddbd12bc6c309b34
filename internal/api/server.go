// Package api provides the HTTP API for the fragrance catalog: a huma API
// mounted on a chi router, with CORS, per-IP rate limiting and bearer-token
// identity.
package api

import (
	"context"
	"log/slog"
	"net/http"
	"time"

	"github.com/danielgtaylor/huma/v2"
	"github.com/danielgtaylor/huma/v2/adapters/humachi"
	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"

	"github.com/knowyournotes/catalog-server/internal/auth"
	"github.com/knowyournotes/catalog-server/internal/ratelimit"
	"github.com/knowyournotes/catalog-server/internal/service"
)

// Services groups the services the handlers call.
type Services struct {
	Catalog    *service.CatalogService
	Ranking    *service.RankingService
	Search     *service.SearchService
	Collection *service.CollectionService
	Profile    *service.ProfileService
}

// TokenVerifier validates bearer tokens issued by the identity service.
type TokenVerifier interface {
	VerifyToken(token string) (*auth.Claims, error)
}

// HealthCheck probes one component. A nil error means healthy.
type HealthCheck func(ctx context.Context) error

// Options configures the server.
type Options struct {
	HomeListSize int
	CORSOrigins  []string
	// RateLimit is requests per minute per client IP. Zero disables limiting.
	RateLimit int
	// Checks are reported by /health, keyed by component name.
	Checks map[string]HealthCheck
}

// Server holds dependencies for HTTP handlers.
type Server struct {
	services *Services
	identity auth.Identity
	router   *chi.Mux
	api      huma.API
	limiter  *ratelimit.KeyedRateLimiter
	checks   map[string]HealthCheck
	homeSize int
	logger   *slog.Logger
}

// NewServer creates a new HTTP server with all routes configured.
func NewServer(services *Services, tokens TokenVerifier, opts Options, logger *slog.Logger) *Server {
	if opts.HomeListSize <= 0 {
		opts.HomeListSize = defaultHomeListSize
	}

	s := &Server{
		services: services,
		identity: auth.ContextIdentity{},
		router:   chi.NewRouter(),
		checks:   opts.Checks,
		homeSize: opts.HomeListSize,
		logger:   logger,
	}

	s.router.Use(middleware.RequestID)
	s.router.Use(middleware.RealIP)
	s.router.Use(requestLogger(logger))
	s.router.Use(middleware.Recoverer)
	s.router.Use(cors.Handler(corsOptions(opts.CORSOrigins)))
	if opts.RateLimit > 0 {
		s.limiter = NewRateLimiter(opts.RateLimit, time.Minute, opts.RateLimit)
		s.router.Use(RateLimitMiddleware(s.limiter, logger))
	}
	s.router.Use(authMiddleware(tokens))

	config := huma.DefaultConfig("Know Your Notes API", "1.0.0")
	config.Info.Description = "Fragrance catalog, search and personal collections."
	config.Components.SecuritySchemes = map[string]*huma.SecurityScheme{
		"bearer": {
			Type:         "http",
			Scheme:       "bearer",
			BearerFormat: "PASETO",
		},
	}

	s.api = humachi.New(s.router, config)
	RegisterErrorHandler()

	s.registerHealthRoutes()
	s.registerCatalogRoutes()
	s.registerSearchRoutes()
	s.registerCollectionRoutes()
	s.registerProfileRoutes()

	return s
}

// ServeHTTP implements http.Handler.
func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.router.ServeHTTP(w, r)
}

// API returns the huma API, for OpenAPI export and tests.
func (s *Server) API() huma.API {
	return s.api
}

// Close stops background work owned by the server.
func (s *Server) Close() {
	if s.limiter != nil {
		s.limiter.Stop()
	}
}

func corsOptions(origins []string) cors.Options {
	if len(origins) == 0 {
		origins = []string{"*"}
	}
	return cors.Options{
		AllowedOrigins: origins,
		AllowedMethods: []string{http.MethodGet, http.MethodPost, http.MethodPatch, http.MethodDelete, http.MethodOptions},
		AllowedHeaders: []string{"Accept", "Authorization", "Content-Type", "X-Request-ID"},
		ExposedHeaders: []string{"X-Request-ID"},
		MaxAge:         300,
	}
}
