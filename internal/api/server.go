// Package api provides the HTTP API server implementation.
package api

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/faucet-intake/internal/logging"
	"github.com/faucet-intake/internal/types"
	"github.com/gorilla/mux"
)

// ClaimServiceInterface defines the claim operations the API exposes
type ClaimServiceInterface interface {
	HandleDirect(ctx context.Context, address string, color uint64) (*types.ClaimRequest, error)
	HandleSocialMention(ctx context.Context, postURL string, color uint64) (*types.ClaimRequest, error)
}

// Server represents the HTTP API server.
type Server struct {
	router       *mux.Router
	httpServer   *http.Server
	claimService ClaimServiceInterface
	metrics      *Metrics
	rateLimiter  *RateLimiter
	config       *ServerConfig
}

// ServerConfig holds server configuration.
type ServerConfig struct {
	Host            string
	Port            string
	ReadTimeout     time.Duration
	WriteTimeout    time.Duration
	IdleTimeout     time.Duration
	ShutdownTimeout time.Duration
	ClientRPS       int           // Requests per second allowed per client IP, 0 disables throttling
	ClientBurst     int           // Burst size per client IP
	ClientIdleTTL   time.Duration // Idle time after which a client's limiter is dropped
	TrustedProxies  []string      // Proxies allowed to set X-Forwarded-For
	DefaultColor    uint64        // Color for tweet claims that omit colorId
}

// NewServer creates a new API server instance.
func NewServer(config *ServerConfig, claimService ClaimServiceInterface) *Server {
	s := &Server{
		router:       mux.NewRouter(),
		claimService: claimService,
		metrics:      NewMetrics(),
		config:       config,
	}

	s.setupRouter()

	return s
}

// setupRouter configures the router with middleware and routes
func (s *Server) setupRouter() {
	s.rateLimiter = NewRateLimiter(RateLimiterConfig{
		RPS:            s.config.ClientRPS,
		Burst:          s.config.ClientBurst,
		IdleTTL:        s.config.ClientIdleTTL,
		TrustedProxies: s.config.TrustedProxies,
	})

	// Order matters: the request logger must exist before anything logs
	s.router.Use(LoggingMiddleware)
	s.router.Use(RecoveryMiddleware)
	s.router.Use(s.metrics.Middleware)
	s.router.Use(CORSMiddleware)
	s.router.Use(RateLimitMiddleware(s.rateLimiter, s.metrics))
	s.router.Use(CompressionMiddleware)

	s.setupRoutes()

	s.httpServer = &http.Server{
		Addr:         fmt.Sprintf("%s:%s", s.config.Host, s.config.Port),
		Handler:      s.router,
		ReadTimeout:  s.config.ReadTimeout,
		WriteTimeout: s.config.WriteTimeout,
		IdleTimeout:  s.config.IdleTimeout,
	}
}

// setupRoutes configures all API routes.
func (s *Server) setupRoutes() {
	s.router.HandleFunc("/health", s.handleHealth).Methods("GET")
	s.router.Handle("/metrics", s.metrics.Handler()).Methods("GET")

	api := s.router.PathPrefix("/api").Subrouter()

	api.HandleFunc("/claims", s.handleDirectClaim).Methods("POST", "OPTIONS")
	api.HandleFunc("/claims/tweet", s.handleTweetClaim).Methods("POST", "OPTIONS")
}

// Handler returns the root handler, used by tests and embedding servers
func (s *Server) Handler() http.Handler {
	return s.router
}

// handleHealth handles health check requests.
func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	respondJSON(w, http.StatusOK, map[string]string{
		"status":  "healthy",
		"service": "faucet-intake",
	})
}

// Start starts the HTTP server.
func (s *Server) Start() error {
	logging.GetGlobalLogger().WithField("addr", s.httpServer.Addr).Info("Starting API server")
	return s.httpServer.ListenAndServe()
}

// Shutdown gracefully shuts down the server.
func (s *Server) Shutdown(ctx context.Context) error {
	logging.GetGlobalLogger().Info("Shutting down API server")
	return s.httpServer.Shutdown(ctx)
}
