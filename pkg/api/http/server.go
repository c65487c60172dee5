package http

import (
	"context"
	"fmt"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"

	"github.com/aescanero/autocal/internal/application/orchestrator"
	"github.com/aescanero/autocal/internal/application/supervisor"
	"github.com/aescanero/autocal/internal/config"
	"github.com/aescanero/autocal/pkg/ports"
)

// RunManager runs calibrations in the background
type RunManager interface {
	Submit(run *config.Run) (string, error)
	Get(runID string) (*orchestrator.RunState, error)
	List() []orchestrator.RunState
	Cancel(runID string) error
}

// Inspector answers read-only questions about the calibration graph
type Inspector interface {
	Order(target string) ([]string, error)
	NodeStatus(ctx context.Context, name string, run *config.Run) (supervisor.NodeStatus, error)
}

// StreamHandler serves event streams over websockets
type StreamHandler interface {
	HandleEventStream(c *gin.Context)
	HandleRunStream(c *gin.Context)
}

// Server represents the HTTP API server
type Server struct {
	router    *gin.Engine
	server    *http.Server
	runs      RunManager
	inspector Inspector
	journal   ports.Journal
	logger    *zap.Logger
}

// Config holds HTTP server configuration
type Config struct {
	Addr      string
	Runs      RunManager
	Inspector Inspector
	Journal   ports.Journal
	// Gatherer serves /metrics. Nil uses the default registry.
	Gatherer prometheus.Gatherer
	Logger   *zap.Logger
}

// NewServer creates a new HTTP server
func NewServer(cfg *Config) *Server {
	gin.SetMode(gin.ReleaseMode)

	router := gin.New()
	router.Use(gin.Recovery())
	router.Use(requestLogger(cfg.Logger))
	router.Use(corsMiddleware())

	s := &Server{
		router:    router,
		runs:      cfg.Runs,
		inspector: cfg.Inspector,
		journal:   cfg.Journal,
		logger:    cfg.Logger,
	}

	s.setupRoutes(cfg.Gatherer)

	s.server = &http.Server{
		Addr:    cfg.Addr,
		Handler: router,
	}

	return s
}

// setupRoutes configures API routes
func (s *Server) setupRoutes(gatherer prometheus.Gatherer) {
	s.router.GET("/health", s.handleHealth)

	metrics := promhttp.Handler()
	if gatherer != nil {
		metrics = promhttp.HandlerFor(gatherer, promhttp.HandlerOpts{})
	}
	s.router.GET("/metrics", gin.WrapH(metrics))

	v1 := s.router.Group("/api/v1")
	{
		v1.POST("/runs", s.handleSubmitRun)
		v1.GET("/runs", s.handleListRuns)
		v1.GET("/runs/:id", s.handleGetRun)
		v1.POST("/runs/:id/cancel", s.handleCancelRun)
		v1.GET("/runs/:id/journal", s.handleRunJournal)

		v1.GET("/journal", s.handleJournal)
		v1.GET("/order/:target", s.handleOrder)
		v1.GET("/nodes/:name/status", s.handleNodeStatus)
	}
}

// SetupWebSocket adds the event stream routes to the server
func (s *Server) SetupWebSocket(handler StreamHandler) {
	s.router.GET("/api/v1/events/ws", handler.HandleEventStream)
	s.router.GET("/api/v1/runs/:id/ws", handler.HandleRunStream)
}

// Handler exposes the router, mostly for tests
func (s *Server) Handler() http.Handler {
	return s.router
}

// Start starts the HTTP server
func (s *Server) Start() error {
	s.logger.Info("starting HTTP server", zap.String("addr", s.server.Addr))

	if err := s.server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		return fmt.Errorf("failed to start HTTP server: %w", err)
	}

	return nil
}

// Shutdown gracefully shuts down the server
func (s *Server) Shutdown(ctx context.Context) error {
	s.logger.Info("shutting down HTTP server")

	if err := s.server.Shutdown(ctx); err != nil {
		return fmt.Errorf("failed to shutdown HTTP server: %w", err)
	}

	s.logger.Info("HTTP server shut down complete")
	return nil
}
