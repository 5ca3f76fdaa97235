package api

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"github.com/labstack/echo/v4"
	echomw "github.com/labstack/echo/v4/middleware"
	mw "github.com/tphakala/perdiem-go/internal/api/middleware"
	"github.com/tphakala/perdiem-go/internal/conf"
	"github.com/tphakala/perdiem-go/internal/logging"
	"github.com/tphakala/perdiem-go/internal/observability"
	"github.com/tphakala/perdiem-go/internal/reconcile"
)

// ReportService produces reconciliation reports; *reconcile.Service
// satisfies it.
type ReportService interface {
	Reconcile(ctx context.Context, submission int) (*reconcile.Report, error)
	CheckAccess() error
}

// Server is the HTTP server of perdiem-go.
type Server struct {
	echo     *echo.Echo
	config   *Config
	service  ReportService
	metrics  *observability.Metrics
	slogger  *slog.Logger
	levelVar *slog.LevelVar
	version  string
	logConf  conf.LogConfig

	startTime time.Time
	logCloser func() error
}

// ServerOption is a functional option for configuring the Server.
type ServerOption func(*Server)

// WithLogger sets the structured logger for the server.
func WithLogger(logger *slog.Logger) ServerOption {
	return func(s *Server) {
		s.slogger = logger
	}
}

// WithMetrics exposes m on /metrics and records HTTP metrics into it.
func WithMetrics(m *observability.Metrics) ServerOption {
	return func(s *Server) {
		s.metrics = m
	}
}

// WithVersion sets the version reported by the health endpoint.
func WithVersion(version string) ServerOption {
	return func(s *Server) {
		s.version = version
	}
}

// WithLogFile additionally writes server logs to server.log next to the
// configured application log.
func WithLogFile(logConf conf.LogConfig) ServerOption {
	return func(s *Server) {
		s.logConf = logConf
	}
}

// New creates a new HTTP server serving reports from service.
func New(config *Config, service ReportService, opts ...ServerOption) (*Server, error) {
	if config == nil {
		config = DefaultConfig()
	}
	if err := config.Validate(); err != nil {
		return nil, fmt.Errorf("invalid server configuration: %w", err)
	}

	s := &Server{
		config:    config,
		service:   service,
		startTime: time.Now(),
		version:   "dev",
	}
	for _, opt := range opts {
		opt(s)
	}

	s.levelVar = new(slog.LevelVar)
	s.levelVar.Set(config.LogLevel)
	s.initLogger()

	s.echo = echo.New()
	s.echo.HideBanner = true
	s.echo.HidePort = true
	s.echo.Debug = config.Debug
	s.echo.HTTPErrorHandler = s.errorHandler

	s.echo.Server.ReadTimeout = config.ReadTimeout
	s.echo.Server.WriteTimeout = config.WriteTimeout
	s.echo.Server.IdleTimeout = config.IdleTimeout

	s.setupMiddleware()
	s.setupRoutes()

	s.slogger.Info("HTTP server initialized",
		"address", config.Listen,
		"debug", config.Debug,
		"metrics", s.metrics != nil)

	return s, nil
}

// initLogger sets up the server logger, teeing into a rotated file when
// file logging is enabled.
func (s *Server) initLogger() {
	if s.slogger == nil {
		s.slogger = logging.ForService("api")
	}
	if !s.logConf.Enabled || s.logConf.Path == "" {
		return
	}

	logPath := filepath.Join(filepath.Dir(s.logConf.Path), "server.log")
	fileLogger, closer, err := logging.NewFileLogger(logPath, "api", s.levelVar, s.logConf)
	if err != nil {
		s.slogger.Warn("Failed to initialize server log file", "path", logPath, "error", err)
		return
	}
	s.slogger = logging.Tee(s.slogger, fileLogger)
	s.logCloser = closer
}

// setupMiddleware configures the Echo middleware stack.
func (s *Server) setupMiddleware() {
	// Recovery middleware - should be first
	s.echo.Use(echomw.Recover())
	s.echo.Use(mw.NewRequestID())
	s.echo.Use(mw.NewRequestLogger(s.slogger))
	if s.metrics != nil {
		s.echo.Use(mw.NewMetrics(s.metrics.HTTP))
	}

	securityConfig := mw.DefaultSecurityConfig()
	securityConfig.AllowedOrigins = s.config.AllowedOrigins
	s.echo.Use(mw.NewCORS(securityConfig))
	s.echo.Use(mw.NewBodyLimit(s.config.BodyLimit))
	s.echo.Use(echomw.Gzip())
	s.echo.Use(mw.NewSecureHeaders(securityConfig))
}

// setupRoutes configures all HTTP routes.
func (s *Server) setupRoutes() {
	v1 := s.echo.Group("/api/v1")
	v1.GET("/health", s.healthCheck)
	v1.GET("/submissions/:number/report", s.getReport)
	v1.GET("/submissions/:number/report.xlsx", s.getReportXLSX)

	if s.metrics != nil {
		s.echo.GET("/metrics", echo.WrapHandler(s.metrics.Handler()))
	}
}

// Start begins serving HTTP requests in a background goroutine.
// Use Shutdown() to stop the server.
func (s *Server) Start() {
	go func() {
		if err := s.startBlocking(); err != nil {
			s.slogger.Error("Server error", "error", err)
		}
	}()
}

// startBlocking begins serving HTTP requests and blocks until the server is shut down.
func (s *Server) startBlocking() error {
	s.slogger.Info("Starting HTTP server", "address", s.config.Listen)
	err := s.echo.Start(s.config.Listen)
	if err != nil && !errors.Is(err, http.ErrServerClosed) {
		return fmt.Errorf("server error: %w", err)
	}
	return nil
}

// StartWithGracefulShutdown starts the server and handles graceful shutdown on SIGINT/SIGTERM.
func (s *Server) StartWithGracefulShutdown() error {
	s.Start()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	s.slogger.Info("Shutdown signal received, initiating graceful shutdown")
	return s.Shutdown()
}

// Shutdown gracefully stops the server.
func (s *Server) Shutdown() error {
	ctx, cancel := context.WithTimeout(context.Background(), s.config.ShutdownTimeout)
	defer cancel()

	if err := s.echo.Shutdown(ctx); err != nil {
		s.slogger.Error("Error during server shutdown", "error", err)
		return fmt.Errorf("shutdown error: %w", err)
	}

	s.slogger.Info("Server shutdown complete")
	if s.logCloser != nil {
		if err := s.logCloser(); err != nil {
			return fmt.Errorf("closing server log: %w", err)
		}
	}
	return nil
}

// Echo returns the underlying Echo instance.
// This is useful for testing or advanced configuration.
func (s *Server) Echo() *echo.Echo {
	return s.echo
}

// SetLogLevel dynamically changes the level of the server log file.
func (s *Server) SetLogLevel(level slog.Level) {
	s.levelVar.Set(level)
	s.slogger.Info("Log level changed", "level", level.String())
}
