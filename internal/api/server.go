// Package api provides the HTTP API server and handlers for community mapper.
package api

import (
	"log/slog"
	"net/http"

	"github.com/danielgtaylor/huma/v2"
	"github.com/danielgtaylor/huma/v2/adapters/humachi"
	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"

	"github.com/communitymapper/community-mapper/internal/store"
)

// Options configures the transport concerns of the server.
type Options struct {
	CORSOrigins  []string
	CookieName   string
	SecureCookie bool
}

// Server holds dependencies for HTTP handlers.
type Server struct {
	pool     *store.Pool
	services *Services
	opts     Options
	router   *chi.Mux
	api      huma.API
	logger   *slog.Logger
}

// NewServer creates a new HTTP server with all routes configured.
func NewServer(pool *store.Pool, services *Services, opts Options, logger *slog.Logger) *Server {
	if opts.CookieName == "" {
		opts.CookieName = DefaultCookieName
	}
	s := &Server{
		pool:     pool,
		services: services,
		opts:     opts,
		router:   chi.NewRouter(),
		logger:   logger,
	}

	s.setupMiddleware()

	humaConfig := huma.DefaultConfig("Community Mapper API", "1.0.0")
	humaConfig.Components.SecuritySchemes = map[string]*huma.SecurityScheme{
		"bearer": {
			Type:         "http",
			Scheme:       "bearer",
			BearerFormat: "PASETO",
		},
		"cookie": {
			Type: "apiKey",
			In:   "cookie",
			Name: opts.CookieName,
		},
	}
	s.api = humachi.New(s.router, humaConfig)
	RegisterErrorHandler(logger)

	s.registerHealthRoutes()
	s.registerAuthRoutes()
	s.registerPersonRoutes()
	s.registerPhotoRoutes()
	s.registerMediaRoutes()
	s.registerTagRoutes()
	s.registerRelationshipRoutes()

	return s
}

// ServeHTTP implements http.Handler.
func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.router.ServeHTTP(w, r)
}

// API exposes the huma API, mainly for tests and OpenAPI export.
func (s *Server) API() huma.API {
	return s.api
}

func (s *Server) setupMiddleware() {
	s.router.Use(middleware.RequestID)
	s.router.Use(middleware.RealIP)
	s.router.Use(requestLogger(s.logger))
	s.router.Use(middleware.Recoverer)
	if len(s.opts.CORSOrigins) > 0 {
		s.router.Use(cors.Handler(cors.Options{
			AllowedOrigins:   s.opts.CORSOrigins,
			AllowedMethods:   []string{"GET", "POST", "PUT", "PATCH", "DELETE", "OPTIONS"},
			AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type", "X-Request-Id"},
			ExposedHeaders:   []string{"Content-Disposition", "X-Request-Id"},
			AllowCredentials: true,
			MaxAge:           300,
		}))
	}
	s.router.Use(clientInfoMiddleware)
	s.router.Use(authMiddleware(s.services.Auth, s.opts.CookieName, s.logger))
}

// bearer is the security requirement attached to every protected operation.
var bearer = []map[string][]string{{"bearer": {}}, {"cookie": {}}}
