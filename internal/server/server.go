package server

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"net/http"
	"time"

	"github.com/danielgtaylor/huma/v2"
	"github.com/danielgtaylor/huma/v2/adapters/humachi"
	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"
	"github.com/rs/cors"
	"github.com/rs/zerolog/log"

	v1 "github.com/gosuda/hrdesk/internal/api/v1"
	"github.com/gosuda/hrdesk/internal/api/ws"
	"github.com/gosuda/hrdesk/internal/config"
	"github.com/gosuda/hrdesk/internal/domain"
	"github.com/gosuda/hrdesk/internal/server/middleware"
)

const healthTimeout = 2 * time.Second

// Deps are the services the routes are wired to.
type Deps struct {
	Store         v1.DataStore
	Conversations domain.ConversationRepository
	Chat          v1.ChatService
	Signer        v1.DocumentSigner
	// Seeder is nil unless demo mode is on.
	Seeder v1.Seeder
	// Subscriber is nil when Redis is not configured.
	Subscriber ws.Subscriber
	// WebAssets is nil when no front-end is served.
	WebAssets fs.FS
	// Ping reports storage health.
	Ping func(ctx context.Context) error
}

// Server is the HTTP server that wires all application routes and middleware.
type Server struct {
	router     chi.Router
	httpServer *http.Server
}

// New creates a Server with all routes wired. ctx bounds background work of
// the middleware stack.
func New(ctx context.Context, cfg *config.Config, deps Deps) *Server {
	router := chi.NewRouter()

	// Global middleware stack.
	router.Use(chimw.RequestID)
	router.Use(chimw.RealIP)
	router.Use(chimw.Logger)
	router.Use(chimw.Recoverer)
	router.Use(cors.New(cors.Options{
		AllowedOrigins:   cfg.Server.CORSOrigins,
		AllowedMethods:   []string{"GET", "POST", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type", "X-Request-ID"},
		ExposedHeaders:   []string{"X-Request-ID"},
		AllowCredentials: true,
		MaxAge:           300,
	}).Handler)
	if cfg.Server.RateLimit > 0 {
		router.Use(middleware.RateLimitByIP(ctx, cfg.Server.RateLimit, cfg.Server.RateBurst))
	}

	s := &Server{
		router: router,
		httpServer: &http.Server{
			Addr:              cfg.Server.Addr,
			Handler:           router,
			ReadTimeout:       cfg.Server.ReadTimeout,
			ReadHeaderTimeout: cfg.Server.ReadTimeout,
			WriteTimeout:      cfg.Server.WriteTimeout,
		},
	}

	authenticate := func(r chi.Router) {
		if cfg.Auth.Enabled() {
			r.Use(middleware.Auth(cfg.Auth.JWTSecret))
		}
	}

	router.Route("/api/v1", func(r chi.Router) {
		authenticate(r)
		if cfg.Server.ChatTurnsPerMinute > 0 {
			r.Use(middleware.RateLimitChatTurns(ctx, cfg.Server.ChatTurnsPerMinute))
		}

		apiConfig := huma.DefaultConfig("hrdesk API", "1.0.0")
		apiConfig.Servers = []*huma.Server{
			{URL: "/api/v1"},
		}
		api := humachi.New(r, apiConfig)
		registerAPIRoutes(api, deps, cfg.DemoMode)
	})

	// WebSocket routes: real hub if Redis is configured, 501 placeholder otherwise.
	router.Route("/ws", func(r chi.Router) {
		authenticate(r)
		if deps.Subscriber != nil {
			registerWSRoutes(r, ws.NewHub(deps.Subscriber, deps.Conversations))
		} else {
			r.Get("/chat/*", func(w http.ResponseWriter, _ *http.Request) {
				w.WriteHeader(http.StatusNotImplemented)
			})
		}
	})

	// Health check (unauthenticated).
	router.Get("/healthz", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		if deps.Ping != nil {
			pingCtx, cancel := context.WithTimeout(r.Context(), healthTimeout)
			defer cancel()
			if err := deps.Ping(pingCtx); err != nil {
				log.Warn().Err(err).Msg("healthz: storage unavailable")
				w.WriteHeader(http.StatusServiceUnavailable)
				_, _ = w.Write([]byte(`{"status":"unavailable"}`))
				return
			}
		}
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte(`{"status":"ok"}`))
	})

	// Serve the front-end on all unmatched routes.
	// This must be the last route registered so API and WS routes take priority.
	if deps.WebAssets != nil {
		router.NotFound(spaFileServer(deps.WebAssets).ServeHTTP)
		log.Info().Msg("web front-end enabled")
	}

	return s
}

// Handler returns the root HTTP handler.
func (s *Server) Handler() http.Handler {
	return s.router
}

// Start begins listening for HTTP requests.
func (s *Server) Start(_ context.Context) error {
	if err := s.httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return fmt.Errorf("server.Start: %w", err)
	}
	return nil
}

// Shutdown gracefully stops the HTTP server.
func (s *Server) Shutdown(ctx context.Context) error {
	if err := s.httpServer.Shutdown(ctx); err != nil {
		return fmt.Errorf("server.Shutdown: %w", err)
	}
	return nil
}
