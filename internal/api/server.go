package api

import (
	"context"
	"fmt"
	"net/http"
	"sync"
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"

	"smc-analyst/internal/auth"
	"smc-analyst/internal/database"
	"smc-analyst/internal/events"
	"smc-analyst/internal/guard"
	"smc-analyst/internal/state"
)

// RateLimiter provides simple in-memory rate limiting per endpoint
type RateLimiter struct {
	requests map[string][]time.Time
	mu       sync.Mutex
	limit    int
	window   time.Duration
}

// NewRateLimiter creates a new rate limiter
func NewRateLimiter(limit int, window time.Duration) *RateLimiter {
	return &RateLimiter{
		requests: make(map[string][]time.Time),
		limit:    limit,
		window:   window,
	}
}

// Allow checks if a request is allowed for the given key
func (r *RateLimiter) Allow(key string) bool {
	r.mu.Lock()
	defer r.mu.Unlock()

	now := time.Now()
	windowStart := now.Add(-r.window)

	var recent []time.Time
	for _, t := range r.requests[key] {
		if t.After(windowStart) {
			recent = append(recent, t)
		}
	}

	if len(recent) >= r.limit {
		r.requests[key] = recent
		return false
	}

	r.requests[key] = append(recent, now)
	return true
}

// ServerConfig holds API server configuration
type ServerConfig struct {
	Host           string `json:"host"`
	Port           int    `json:"port"`
	ProductionMode bool   `json:"production_mode"`

	// Operator credentials for mutating endpoints. Auth is disabled when
	// the password hash is empty.
	OperatorName         string `json:"operator_name"`
	OperatorPasswordHash string `json:"operator_password_hash"`
	JWTSecret            string `json:"jwt_secret"`
}

// Server exposes the analysis state over HTTP and WebSocket
type Server struct {
	router      *gin.Engine
	httpServer  *http.Server
	config      ServerConfig
	registry    *state.Registry
	bus         *events.Bus
	audit       *database.AuditRepository
	snapshots   *database.RedisContextStore
	newsGuard   *guard.NewsGuard
	jwtManager  *auth.JWTManager
	hub         *WSHub
	rateLimiter *RateLimiter
	logger      zerolog.Logger
}

// NewServer creates the API server. audit, snapshots, and newsGuard may
// be nil when the corresponding subsystem is disabled.
func NewServer(
	config ServerConfig,
	registry *state.Registry,
	bus *events.Bus,
	audit *database.AuditRepository,
	snapshots *database.RedisContextStore,
	newsGuard *guard.NewsGuard,
	logger zerolog.Logger,
) *Server {
	if config.ProductionMode {
		gin.SetMode(gin.ReleaseMode)
	}

	router := gin.New()
	router.Use(gin.Recovery())

	corsConfig := cors.DefaultConfig()
	corsConfig.AllowOrigins = []string{"http://localhost:5173", "http://localhost:8088"}
	corsConfig.AllowMethods = []string{"GET", "POST", "OPTIONS"}
	corsConfig.AllowHeaders = []string{"Origin", "Content-Type", "Authorization"}
	corsConfig.AllowCredentials = true
	router.Use(cors.New(corsConfig))

	server := &Server{
		router:      router,
		config:      config,
		registry:    registry,
		bus:         bus,
		audit:       audit,
		snapshots:   snapshots,
		newsGuard:   newsGuard,
		jwtManager:  auth.NewJWTManager(config.JWTSecret, 12*time.Hour),
		hub:         NewWSHub(logger),
		rateLimiter: NewRateLimiter(120, time.Minute),
		logger:      logger.With().Str("component", "APIServer").Logger(),
	}

	server.setupRoutes()
	server.hub.AttachBus(bus)
	go server.hub.Run()

	return server
}

// authEnabled reports whether operator authentication is configured
func (s *Server) authEnabled() bool {
	return s.config.OperatorPasswordHash != ""
}

func (s *Server) rateLimitMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		path := c.FullPath()
		if path == "" {
			path = c.Request.URL.Path
		}
		if !s.rateLimiter.Allow(path) {
			c.AbortWithStatusJSON(http.StatusTooManyRequests, gin.H{
				"error": "rate limit exceeded",
				"path":  path,
			})
			return
		}
		c.Next()
	}
}

// setupRoutes configures all API routes
func (s *Server) setupRoutes() {
	s.router.GET("/health", s.handleHealth)
	s.router.GET("/ws", s.handleWebSocket)

	api := s.router.Group("/api")
	api.Use(s.rateLimitMiddleware())

	api.POST("/auth/login", s.handleLogin)

	api.GET("/symbols", s.handleSymbols)
	api.GET("/context/:symbol", s.handleContext)
	api.GET("/phase/:symbol", s.handlePhase)
	api.GET("/observations/:symbol", s.handleObservations)
	api.GET("/validations/:symbol", s.handleValidations)
	api.GET("/phase-transitions/:symbol", s.handlePhaseTransitions)
	api.GET("/news", s.handleNewsUpcoming)

	protected := api.Group("")
	if s.authEnabled() {
		protected.Use(auth.Middleware(s.jwtManager))
	}
	protected.POST("/context/:symbol/reset", s.handleContextReset)
	protected.POST("/news", s.handleNewsSchedule)
}

// Start runs the HTTP server until the context is canceled
func (s *Server) Start(ctx context.Context) error {
	addr := fmt.Sprintf("%s:%d", s.config.Host, s.config.Port)
	s.httpServer = &http.Server{
		Addr:         addr,
		Handler:      s.router,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		s.logger.Info().Str("addr", addr).Msg("API server listening")
		if err := s.httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			errCh <- err
		}
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		return s.httpServer.Shutdown(shutdownCtx)
	}
}

// Router exposes the gin router for tests
func (s *Server) Router() *gin.Engine {
	return s.router
}
