package api

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/google/uuid"
	"github.com/labstack/echo/v4"
	echomw "github.com/labstack/echo/v4/middleware"
	echolog "github.com/labstack/gommon/log"

	mw "github.com/tphakala/lyricgraph/internal/api/middleware"
	"github.com/tphakala/lyricgraph/internal/conf"
	"github.com/tphakala/lyricgraph/internal/generation"
	"github.com/tphakala/lyricgraph/internal/logger"
	"github.com/tphakala/lyricgraph/internal/observability"
)

// Server is the HTTP API server. It manages the echo instance, middleware
// and routes.
type Server struct {
	echo     *echo.Echo
	config   *Config
	settings *conf.Settings
	log      logger.Logger

	service *generation.Service
	metrics *observability.Metrics

	startTime time.Time
}

// ServerOption is a functional option for configuring the Server.
type ServerOption func(*Server)

// WithMetrics exposes metrics on /metrics.
func WithMetrics(m *observability.Metrics) ServerOption {
	return func(s *Server) {
		s.metrics = m
	}
}

// WithConfig overrides the configuration derived from settings.
func WithConfig(cfg *Config) ServerOption {
	return func(s *Server) {
		s.config = cfg
	}
}

// New creates a new HTTP server serving service.
func New(settings *conf.Settings, service *generation.Service, opts ...ServerOption) (*Server, error) {
	if service == nil {
		return nil, fmt.Errorf("generation service is required")
	}
	s := &Server{
		config:    ConfigFromSettings(settings),
		settings:  settings,
		service:   service,
		log:       GetLogger(),
		startTime: time.Now(),
	}
	for _, opt := range opts {
		opt(s)
	}
	if err := s.config.Validate(); err != nil {
		return nil, fmt.Errorf("invalid server configuration: %w", err)
	}

	s.echo = echo.New()
	s.echo.HideBanner = true
	s.echo.HidePort = true
	s.echo.Debug = s.config.Debug
	// Requests are logged by the request logger middleware.
	s.echo.Logger.SetLevel(echoLogLevel(s.config.Debug))
	s.echo.Server.ReadTimeout = s.config.ReadTimeout
	s.echo.Server.WriteTimeout = s.config.WriteTimeout
	s.echo.Server.IdleTimeout = s.config.IdleTimeout

	s.setupMiddleware()
	s.setupRoutes()

	s.log.Info("HTTP server initialized",
		logger.String("address", s.config.Address()),
		logger.Bool("debug", s.config.Debug),
		logger.Int("artists", len(settings.Artists)))
	return s, nil
}

func echoLogLevel(debug bool) echolog.Lvl {
	if debug {
		return echolog.DEBUG
	}
	return echolog.ERROR
}

// setupMiddleware configures the echo middleware stack.
func (s *Server) setupMiddleware() {
	// Recovery middleware - should be first
	s.echo.Use(echomw.Recover())
	s.echo.Use(mw.NewRequestID(uuid.NewString))
	s.echo.Use(mw.NewRequestLogger(s.log))

	securityConfig := mw.DefaultSecurityConfig()
	securityConfig.AllowedOrigins = s.config.AllowedOrigins
	s.echo.Use(mw.NewCORS(securityConfig))
	s.echo.Use(mw.NewBodyLimit(s.config.BodyLimit))
	s.echo.Use(mw.NewSecureHeaders(securityConfig))
}

// setupRoutes configures all HTTP routes.
func (s *Server) setupRoutes() {
	v1 := s.echo.Group("/api/v1")
	v1.GET("/health", s.healthCheck)
	v1.GET("/artists", s.listArtists)
	v1.GET("/system", s.systemInfo)

	artist := v1.Group("/artists/:artist")
	artist.POST("/generate", s.generate)
	artist.POST("/chat", s.chat)
	artist.GET("/search", s.searchGraph)
	artist.GET("/retrieval", s.retrieve)
	artist.GET("/overview", s.overview)
	artist.GET("/stats", s.storeStats)

	if s.metrics != nil {
		s.echo.GET("/metrics", echo.WrapHandler(s.metrics.Handler()))
	}
}

// Run serves HTTP requests until ctx is canceled, then shuts down gracefully.
func (s *Server) Run(ctx context.Context) error {
	errCh := make(chan error, 1)
	go func() {
		s.log.Info("HTTP server starting", logger.String("address", s.config.Address()))
		if err := s.echo.Start(s.config.Address()); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- fmt.Errorf("server error: %w", err)
		}
		close(errCh)
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
		s.log.Info("shutdown signal received, initiating graceful shutdown")
		return s.Shutdown()
	}
}

// Shutdown gracefully stops the server.
func (s *Server) Shutdown() error {
	ctx, cancel := context.WithTimeout(context.Background(), s.config.ShutdownTimeout)
	defer cancel()

	if err := s.echo.Shutdown(ctx); err != nil {
		s.log.Error("error during server shutdown", logger.Error(err))
		return fmt.Errorf("shutdown error: %w", err)
	}
	s.log.Info("server shutdown complete")
	return nil
}

// Echo returns the underlying echo instance.
func (s *Server) Echo() *echo.Echo {
	return s.echo
}
