// Package http implements the local REST API of the progress tracker: progress
// reads and commands, progress codes, course content, health, metrics and a
// server-sent event stream.
package http

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"sync"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/hampton/progress-tracker/internal/application/query"
	"github.com/hampton/progress-tracker/internal/application/tracker"
	"github.com/hampton/progress-tracker/internal/infrastructure/messaging"
	"github.com/hampton/progress-tracker/internal/infrastructure/metrics"
	"github.com/hampton/progress-tracker/internal/infrastructure/persistence/redis"
	"github.com/hampton/progress-tracker/internal/interface/http/handlers"
)

// ══════════════════════════════════════════════════════════════════════════════
// SERVER CONFIGURATION
// ══════════════════════════════════════════════════════════════════════════════

// Config contains HTTP server configuration.
type Config struct {
	// Host - address to bind (default: "127.0.0.1").
	Host string

	// Port - port to listen on (default: 8787).
	Port int

	// ReadTimeout - maximum duration for reading the entire request.
	ReadTimeout time.Duration

	// WriteTimeout - maximum duration for writing the response.
	// Zero keeps the event stream open indefinitely.
	WriteTimeout time.Duration

	// IdleTimeout - maximum duration for idle connections.
	IdleTimeout time.Duration

	// MaxBodyBytes - maximum size of request bodies.
	MaxBodyBytes int64

	// AllowedOrigins - allowed origins for CORS; empty disables CORS.
	AllowedOrigins []string

	// Version is reported by /healthz.
	Version string
}

// DefaultConfig returns default server configuration.
func DefaultConfig() Config {
	return Config{
		Host:         "127.0.0.1",
		Port:         8787,
		ReadTimeout:  15 * time.Second,
		IdleTimeout:  60 * time.Second,
		MaxBodyBytes: 64 << 10,
		Version:      "v1",
	}
}

// Address returns the server address string.
func (c Config) Address() string {
	return fmt.Sprintf("%s:%d", c.Host, c.Port)
}

// ══════════════════════════════════════════════════════════════════════════════
// DEPENDENCIES
// ══════════════════════════════════════════════════════════════════════════════

// Dependencies contains all dependencies required by HTTP handlers.
type Dependencies struct {
	// Tracker owns the progress state.
	Tracker *tracker.Service

	// Query handlers for progress codes.
	Reports   *query.ProgressReportHandler
	Analytics *query.CodeAnalyticsHandler

	// Events feeds GET /api/events. Optional.
	Events *messaging.Broadcaster

	// Metrics serves GET /metrics and records request metrics. Optional.
	Metrics *metrics.Collector

	// Snapshots caches rendered progress documents. Optional.
	Snapshots *redis.SnapshotCache

	// Health backs GET /healthz. Optional.
	Health handlers.HealthChecker

	Logger *slog.Logger
}

// ══════════════════════════════════════════════════════════════════════════════
// SERVER
// ══════════════════════════════════════════════════════════════════════════════

// Server represents the HTTP server.
type Server struct {
	config     Config
	deps       Dependencies
	engine     *gin.Engine
	httpServer *http.Server
	logger     *slog.Logger

	mu        sync.RWMutex
	running   bool
	startedAt time.Time
}

// NewServer creates a new HTTP server with the given configuration and dependencies.
func NewServer(config Config, deps Dependencies) (*Server, error) {
	if deps.Tracker == nil {
		return nil, errors.New("http: tracker is required")
	}
	if deps.Logger == nil {
		deps.Logger = slog.Default()
	}
	if deps.Reports == nil {
		deps.Reports = query.NewProgressReportHandler(deps.Tracker.Codec(), deps.Tracker.Now)
	}
	if deps.Analytics == nil {
		deps.Analytics = query.NewCodeAnalyticsHandler(deps.Tracker.Codec())
	}
	if deps.Health == nil {
		deps.Health = handlers.NewCompositeHealthChecker(config.Version)
	}

	s := &Server{
		config: config,
		deps:   deps,
		engine: gin.New(),
		logger: deps.Logger.With("component", "http"),
	}
	s.setupRoutes()

	s.httpServer = &http.Server{
		Addr:              config.Address(),
		Handler:           s.engine,
		ReadHeaderTimeout: 5 * time.Second,
		ReadTimeout:       config.ReadTimeout,
		WriteTimeout:      config.WriteTimeout,
		IdleTimeout:       config.IdleTimeout,
	}
	return s, nil
}

// Handler returns the root handler, for tests and embedding.
func (s *Server) Handler() http.Handler {
	return s.engine
}

// ══════════════════════════════════════════════════════════════════════════════
// ROUTING
// ══════════════════════════════════════════════════════════════════════════════

// setupRoutes configures all HTTP routes.
func (s *Server) setupRoutes() {
	r := s.engine
	r.Use(handlers.Recovery(s.logger), handlers.RequestID(), handlers.RequestLogger(s.logger), handlers.SecurityHeaders())
	if s.deps.Metrics != nil {
		r.Use(s.deps.Metrics.Middleware())
	}
	if len(s.config.AllowedOrigins) > 0 {
		r.Use(handlers.CORS(s.config.AllowedOrigins))
	}
	if s.config.MaxBodyBytes > 0 {
		r.Use(handlers.RequestSizeLimit(s.config.MaxBodyBytes))
	}

	// ─────────────────────────────────────────────────────────────────────────
	// Health & Status Endpoints
	// ─────────────────────────────────────────────────────────────────────────
	r.GET("/healthz", s.handleHealth)
	r.GET("/", s.handleRoot)
	if s.deps.Metrics != nil {
		r.GET("/metrics", s.deps.Metrics.GinHandler())
	}

	api := r.Group("/api", handlers.NoCache())

	// ─────────────────────────────────────────────────────────────────────────
	// Progress
	// ─────────────────────────────────────────────────────────────────────────
	api.GET("/progress", s.handleGetProgress)
	api.GET("/progress/history", s.handleGetHistory)
	api.POST("/project", s.handleSelectProject)
	api.POST("/lessons", s.handleCompleteLesson)
	api.POST("/modules", s.handleCompleteModule)
	api.POST("/skills", s.handleUpdateSkill)
	api.POST("/xp", s.handleAddXP)
	api.POST("/reset", s.handleReset)

	// ─────────────────────────────────────────────────────────────────────────
	// Daily Challenges
	// ─────────────────────────────────────────────────────────────────────────
	api.GET("/challenges", s.handleGetChallenges)
	api.POST("/challenges/:id/complete", s.handleCompleteChallenge)

	// ─────────────────────────────────────────────────────────────────────────
	// Progress Codes
	// ─────────────────────────────────────────────────────────────────────────
	api.GET("/code", s.handleExportCode)
	api.POST("/code", s.handleImportCode)
	api.GET("/code/report", s.handleCodeReport)
	api.POST("/code/analytics", s.handleCodeAnalytics)

	// ─────────────────────────────────────────────────────────────────────────
	// Content
	// ─────────────────────────────────────────────────────────────────────────
	api.GET("/content/days/:day", s.handleGetDay)
	api.GET("/content/weeks/:week", s.handleGetWeek)

	// ─────────────────────────────────────────────────────────────────────────
	// Event Stream
	// ─────────────────────────────────────────────────────────────────────────
	if s.deps.Events != nil {
		api.GET("/events", s.handleEvents)
	}
}

// ══════════════════════════════════════════════════════════════════════════════
// SERVER LIFECYCLE
// ══════════════════════════════════════════════════════════════════════════════

// Start serves until Shutdown. It returns nil after a graceful shutdown.
func (s *Server) Start() error {
	s.mu.Lock()
	s.running = true
	s.startedAt = time.Now()
	s.mu.Unlock()

	s.logger.Info("http server listening", "addr", s.config.Address())
	err := s.httpServer.ListenAndServe()

	s.mu.Lock()
	s.running = false
	s.mu.Unlock()

	if errors.Is(err, http.ErrServerClosed) {
		return nil
	}
	return err
}

// Shutdown gracefully shuts down the server.
func (s *Server) Shutdown(ctx context.Context) error {
	s.logger.Info("http server shutting down")
	return s.httpServer.Shutdown(ctx)
}

// IsRunning returns true if the server is running.
func (s *Server) IsRunning() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.running
}

// Uptime returns the server uptime.
func (s *Server) Uptime() time.Duration {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if !s.running {
		return 0
	}
	return time.Since(s.startedAt)
}

// Address returns the server address.
func (s *Server) Address() string {
	return s.config.Address()
}

// ══════════════════════════════════════════════════════════════════════════════
// RESPONSE HELPERS
// ══════════════════════════════════════════════════════════════════════════════

// JSONResponse represents a standard JSON response.
type JSONResponse struct {
	Success bool        `json:"success"`
	Data    interface{} `json:"data,omitempty"`
	Error   *APIError   `json:"error,omitempty"`
	Meta    *Meta       `json:"meta,omitempty"`
}

// APIError represents an API error.
type APIError struct {
	Code    string `json:"code"`
	Message string `json:"message"`
	Details string `json:"details,omitempty"`
}

// Meta contains response metadata.
type Meta struct {
	RequestID string    `json:"request_id,omitempty"`
	Timestamp time.Time `json:"timestamp"`
}

// writeJSON writes a successful JSON response.
func writeJSON(c *gin.Context, status int, data interface{}) {
	c.JSON(status, JSONResponse{
		Success: true,
		Data:    data,
		Meta:    &Meta{RequestID: handlers.GetRequestID(c), Timestamp: time.Now().UTC()},
	})
}

// writeJSONError writes an error JSON response.
func writeJSONError(c *gin.Context, status int, code, message string) {
	c.AbortWithStatusJSON(status, JSONResponse{
		Success: false,
		Error:   &APIError{Code: code, Message: message},
		Meta:    &Meta{RequestID: handlers.GetRequestID(c), Timestamp: time.Now().UTC()},
	})
}
