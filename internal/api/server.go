package api

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/rs/zerolog/log"

	"github.com/coldwatch/coldwatch-server/internal/alerts"
	"github.com/coldwatch/coldwatch-server/internal/audit"
	"github.com/coldwatch/coldwatch-server/internal/auth"
	"github.com/coldwatch/coldwatch-server/internal/config"
	"github.com/coldwatch/coldwatch-server/internal/ingest"
	"github.com/coldwatch/coldwatch-server/internal/ratelimit"
	"github.com/coldwatch/coldwatch-server/internal/storage"
	"github.com/coldwatch/coldwatch-server/internal/validation"
)

// RESTServer represents the REST API server
type RESTServer struct {
	config      *config.Config
	store       storage.Store
	auth        *auth.JWTManager
	resolver    *auth.Resolver
	policy      *auth.Policy
	limiter     ratelimit.Limiter
	idempotency ingest.IdempotencyStore
	signatures  *ingest.SignatureValidator
	alerts      *alerts.Engine
	audit       *audit.Recorder
	validator   *validation.Validator
	router      chi.Router
	server      *http.Server
}

// NewRESTServer creates a new REST API server. The limiter, idempotency
// store and alert engine are injected so main can pick the memory or
// redis flavor.
func NewRESTServer(cfg *config.Config, store storage.Store, limiter ratelimit.Limiter, idem ingest.IdempotencyStore, engine *alerts.Engine) *RESTServer {
	jwtManager := auth.NewJWTManager(&cfg.JWT)

	s := &RESTServer{
		config:      cfg,
		store:       store,
		auth:        jwtManager,
		resolver:    auth.NewResolver(&cfg.Auth, jwtManager, store),
		policy:      auth.NewPolicy(),
		limiter:     limiter,
		idempotency: idem,
		signatures:  ingest.NewSignatureValidator(cfg.Ingest.HMACSecret, cfg.Ingest.ReplayWindow),
		alerts:      engine,
		audit:       audit.NewRecorder(store),
		validator:   validation.NewValidator(),
		router:      chi.NewRouter(),
	}

	s.setupRoutes()

	s.server = &http.Server{
		Handler:      s.router,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	return s
}

// setupRoutes configures all routes
func (s *RESTServer) setupRoutes() {
	// Middleware
	s.router.Use(middleware.RequestID)
	s.router.Use(middleware.RealIP)
	s.router.Use(s.requestLogger)
	s.router.Use(middleware.Recoverer)
	s.router.Use(middleware.Timeout(60 * time.Second))
	s.router.Use(s.metricsMiddleware)

	// CORS. Browsers reject a wildcard origin combined with credentials,
	// so cookies are only allowed once a concrete app origin is configured.
	allowedOrigins := []string{"*"}
	allowCredentials := false
	if s.config.Server.PublicAppURL != "" {
		allowedOrigins = []string{s.config.Server.PublicAppURL}
		allowCredentials = true
	}
	s.router.Use(cors.Handler(cors.Options{
		AllowedOrigins:   allowedOrigins,
		AllowedMethods:   []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type", "Idempotency-Key", "X-Timestamp", "X-Device-Id", "X-Signature"},
		ExposedHeaders:   []string{"X-RateLimit-Limit", "X-RateLimit-Remaining", "X-RateLimit-Reset"},
		AllowCredentials: allowCredentials,
		MaxAge:           300,
	}))

	// Device ingestion path, HMAC-authenticated, outside /api/v1
	s.router.Post("/api/ingest/readings", s.HandleIngestReadings)

	// API routes
	s.router.Route("/api/v1", func(r chi.Router) {
		s.setupAPIRoutes(r)
	})
}

// ListenAndServe starts the server
func (s *RESTServer) ListenAndServe() error {
	addr := fmt.Sprintf("%s:%d", s.config.API.Host, s.config.API.Port)
	s.server.Addr = addr

	log.Info().Str("addr", addr).Msg("Starting REST API server")
	return s.server.ListenAndServe()
}

// Shutdown gracefully shuts down the server
func (s *RESTServer) Shutdown(ctx context.Context) error {
	return s.server.Shutdown(ctx)
}

// Router exposes the handler, mainly for tests.
func (s *RESTServer) Router() http.Handler {
	return s.router
}
