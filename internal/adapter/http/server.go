package http

import (
	"context"
	"net"
	"net/http"
	"time"

	"github.com/contractflow/contractflow/internal/adapter/http/middleware"
	"github.com/contractflow/contractflow/internal/adapter/http/response"
	"github.com/contractflow/contractflow/internal/infra/logger"
	"github.com/contractflow/contractflow/internal/infra/ratelimit"
	"github.com/contractflow/contractflow/internal/usecase"
	"github.com/gorilla/mux"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Server represents the HTTP server
type Server struct {
	server *http.Server
	logger logger.Logger
}

// ServerConfig represents server configuration
type ServerConfig struct {
	Host              string
	Port              string
	ReadTimeout       time.Duration
	WriteTimeout      time.Duration
	IdleTimeout       time.Duration
	CORSOrigins       []string
	CORSCredentials   bool
	MaxUploadBytes    int64
	RateLimitRequests int
	RateLimitWindow   time.Duration
}

// Dependencies are the use cases and services served over HTTP
type Dependencies struct {
	Auth        *usecase.AuthUseCase
	Actors      *usecase.ActorUseCase
	Engine      *usecase.ContractEngine
	Queries     *usecase.ContractQueryService
	Attachments *usecase.AttachmentUseCase
	// RateLimit is optional; nil disables per-IP request limiting
	RateLimit ratelimit.RateLimitService
	// Health is optional and reports backing store availability
	Health func(ctx context.Context) error
	Logger logger.Logger
}

// NewRouter wires every route and middleware into one handler.
func NewRouter(config ServerConfig, deps Dependencies) http.Handler {
	log := deps.Logger
	if log == nil {
		log = logger.NewNopLogger()
	}
	authMW := middleware.NewAuthMiddleware(deps.Auth, log)

	router := mux.NewRouter()
	router.Use(middleware.Recovery(log))
	router.Use(middleware.Instrument(log))

	router.HandleFunc("/health", healthHandler(deps.Health, log)).Methods(http.MethodGet)
	router.Handle("/metrics", promhttp.Handler()).Methods(http.MethodGet)

	api := router.PathPrefix("/api").Subrouter()
	if deps.RateLimit != nil {
		api.Use(middleware.NewRateLimitMiddleware(deps.RateLimit, config.RateLimitRequests, config.RateLimitWindow, log).RateLimit)
	}

	NewAuthHandler(deps.Auth, authMW, log).RegisterRoutes(api)
	NewUserHandler(deps.Actors, authMW, log).RegisterRoutes(api)
	NewContractHandler(deps.Engine, deps.Queries, authMW, log).RegisterRoutes(api)
	NewAttachmentHandler(deps.Attachments, authMW, config.MaxUploadBytes, log).RegisterRoutes(api)
	NewOperationHandler(deps.Queries, authMW, log).RegisterRoutes(api)

	router.NotFoundHandler = http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		response.NotFound(w, "Route not found")
	})
	router.MethodNotAllowedHandler = http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		response.Error(w, http.StatusMethodNotAllowed, "Method not allowed")
	})

	// CorrelationID first so CORS rejections and preflights are traceable too
	var handler http.Handler = router
	if len(config.CORSOrigins) > 0 {
		handler = middleware.CORSMiddleware(handler, config.CORSOrigins, config.CORSCredentials)
	}
	return middleware.CorrelationIDMiddleware(handler)
}

// NewServer creates a new HTTP server
func NewServer(config ServerConfig, deps Dependencies) *Server {
	log := deps.Logger
	if log == nil {
		log = logger.NewNopLogger()
	}
	return &Server{
		logger: log,
		server: &http.Server{
			Addr:         net.JoinHostPort(config.Host, config.Port),
			Handler:      NewRouter(config, deps),
			ReadTimeout:  config.ReadTimeout,
			WriteTimeout: config.WriteTimeout,
			IdleTimeout:  config.IdleTimeout,
		},
	}
}

// Start starts the HTTP server and blocks until it stops
func (s *Server) Start() error {
	s.logger.Info(context.Background(), "Starting HTTP server", map[string]interface{}{"addr": s.server.Addr})
	if err := s.server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		return err
	}
	return nil
}

// Shutdown gracefully shuts down the HTTP server
func (s *Server) Shutdown(ctx context.Context) error {
	s.logger.Info(ctx, "Shutting down HTTP server", nil)
	return s.server.Shutdown(ctx)
}

func healthHandler(check func(ctx context.Context) error, log logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if check != nil {
			ctx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
			defer cancel()
			if err := check(ctx); err != nil {
				log.Warn(r.Context(), "Health check failed", map[string]interface{}{"error": err.Error()})
				response.Error(w, http.StatusServiceUnavailable, "unhealthy")
				return
			}
		}
		response.Success(w, http.StatusOK, "ok", map[string]string{"status": "healthy"})
	}
}
