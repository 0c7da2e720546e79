package server

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	apisetup "voice-qa-server/internal/api"
	"voice-qa-server/internal/bootstrap"
	"voice-qa-server/internal/config"
	"voice-qa-server/internal/observability"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
)

// Server encapsulates the HTTP server and its dependencies
type Server struct {
	httpServer *http.Server
	router     *gin.Engine
	deps       *bootstrap.Dependencies
	config     *config.Config
	logger     *observability.Logger
}

// New creates a new Server instance
func New(cfg *config.Config, deps *bootstrap.Dependencies, logger *observability.Logger) *Server {
	return &Server{
		config: cfg,
		deps:   deps,
		logger: logger,
	}
}

// Setup configures the HTTP router with middleware and routes
func (s *Server) Setup() error {
	s.router = gin.New()

	// Forwarding headers decide the client IP the ask limiter keys on, so
	// only the configured proxies and edge header are believed.
	if err := s.router.SetTrustedProxies(s.config.Server.TrustedProxies); err != nil {
		return fmt.Errorf("invalid TRUSTED_PROXIES: %w", err)
	}
	s.router.TrustedPlatform = s.config.Server.TrustedPlatformHeader

	// CORS only matters for the JSON API; Twilio does not send Origin.
	corsConfig := cors.DefaultConfig()
	corsConfig.AllowMethods = []string{"GET", "POST", "OPTIONS"}
	corsConfig.AllowHeaders = []string{"Origin", "Content-Type", "Accept", "Authorization"}
	corsConfig.AllowOrigins = s.config.Server.AllowOrigins

	s.router.Use(cors.New(corsConfig))
	s.router.Use(observability.Middleware(s.logger))

	rootRouter := s.router.Group("/")
	api := apisetup.New(
		rootRouter,
		s.deps.VoiceCallHandler,
		s.deps.AskHandler,
		s.deps.SignatureValidator,
		s.deps.AskLimiter,
		s.deps.OperatorAuth,
	)
	api.RegisterRoutes()
	return nil
}

// Handler exposes the configured router. Setup must run first.
func (s *Server) Handler() http.Handler {
	return s.router
}

// Start begins listening for HTTP requests and starts the turn recorder
func (s *Server) Start(ctx context.Context) error {
	if err := s.deps.RecorderPool.Start(ctx); err != nil {
		return fmt.Errorf("failed to start turn recorder: %w", err)
	}

	s.httpServer = &http.Server{
		Addr:              fmt.Sprintf(":%d", s.config.Server.Port),
		Handler:           s.router,
		ReadHeaderTimeout: 10 * time.Second,
	}

	go func() {
		s.logger.Info(ctx, fmt.Sprintf("Server starting on port %d", s.config.Server.Port))
		if err := s.httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			s.logger.Error(ctx, "server failed to start", err)
			os.Exit(1)
		}
	}()

	return nil
}

// WaitForShutdown blocks until a shutdown signal is received, then gracefully shuts down
func (s *Server) WaitForShutdown(ctx context.Context) error {
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)

	<-quit
	s.logger.Info(ctx, "Shutting down server...")

	// Requests in flight may take up to the answer timeout.
	shutdownCtx, cancel := context.WithTimeout(context.Background(), s.config.Answer.Timeout+5*time.Second)
	defer cancel()

	if err := s.httpServer.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("server forced to shutdown: %w", err)
	}

	// Handlers are done, so nothing else will be recorded.
	if err := s.deps.RecorderPool.Drain(shutdownCtx); err != nil {
		s.logger.Error(ctx, "turn recorder did not drain cleanly", err)
	}

	s.deps.Cleanup()

	s.logger.Info(ctx, "Server exited gracefully")
	return nil
}
