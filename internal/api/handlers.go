package api

import (
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"

	"smc-analyst/internal/auth"
	"smc-analyst/internal/events"
	"smc-analyst/internal/guard"
)

func (s *Server) handleHealth(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"status":  "ok",
		"time":    time.Now().UTC(),
		"symbols": len(s.registry.Symbols()),
		"clients": s.hub.ClientCount(),
	})
}

type loginRequest struct {
	Operator string `json:"operator" binding:"required"`
	Password string `json:"password" binding:"required"`
}

func (s *Server) handleLogin(c *gin.Context) {
	if !s.authEnabled() {
		c.JSON(http.StatusNotFound, gin.H{"error": "authentication is disabled"})
		return
	}

	var req loginRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "operator and password are required"})
		return
	}

	if req.Operator != s.config.OperatorName || !auth.VerifyPassword(req.Password, s.config.OperatorPasswordHash) {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "invalid credentials"})
		return
	}

	token, err := s.jwtManager.GenerateToken(req.Operator)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to issue token"})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"token":      token,
		"token_type": "Bearer",
		"expires_in": s.jwtManager.TokenDuration(),
	})
}

func (s *Server) handleSymbols(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"symbols": s.registry.Symbols()})
}

func (s *Server) handleContext(c *gin.Context) {
	symbol := c.Param("symbol")
	sc, ok := s.registry.Peek(symbol)
	if !ok {
		c.JSON(http.StatusNotFound, gin.H{"error": "no context for symbol", "symbol": symbol})
		return
	}
	c.JSON(http.StatusOK, sc)
}

func (s *Server) handlePhase(c *gin.Context) {
	symbol := c.Param("symbol")
	sc, ok := s.registry.Peek(symbol)
	if !ok {
		c.JSON(http.StatusNotFound, gin.H{"error": "no context for symbol", "symbol": symbol})
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"symbol":     symbol,
		"phase":      sc.Phase.Current,
		"since":      sc.Phase.Since,
		"confidence": sc.Phase.Confidence,
		"reason":     sc.Phase.LastTransitionReason,
		"history":    sc.Phase.History,
	})
}

// queryLimit parses the limit query parameter with a default of 20
func queryLimit(c *gin.Context) int {
	limit, err := strconv.Atoi(c.DefaultQuery("limit", "20"))
	if err != nil || limit <= 0 || limit > 500 {
		return 20
	}
	return limit
}

func (s *Server) handleObservations(c *gin.Context) {
	if s.audit == nil {
		c.JSON(http.StatusServiceUnavailable, gin.H{"error": "audit storage is disabled"})
		return
	}
	rows, err := s.audit.RecentObservations(c.Request.Context(), c.Param("symbol"), queryLimit(c))
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, gin.H{"observations": rows})
}

func (s *Server) handleValidations(c *gin.Context) {
	if s.audit == nil {
		c.JSON(http.StatusServiceUnavailable, gin.H{"error": "audit storage is disabled"})
		return
	}
	rows, err := s.audit.RecentValidations(c.Request.Context(), c.Param("symbol"), queryLimit(c))
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, gin.H{"validations": rows})
}

func (s *Server) handlePhaseTransitions(c *gin.Context) {
	if s.audit == nil {
		c.JSON(http.StatusServiceUnavailable, gin.H{"error": "audit storage is disabled"})
		return
	}
	rows, err := s.audit.RecentPhaseTransitions(c.Request.Context(), c.Param("symbol"), queryLimit(c))
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, gin.H{"phase_transitions": rows})
}

func (s *Server) handleContextReset(c *gin.Context) {
	symbol := c.Param("symbol")
	existed := s.registry.Reset(symbol)
	if s.snapshots != nil {
		if err := s.snapshots.DeleteContext(c.Request.Context(), symbol); err != nil {
			s.logger.Warn().Err(err).Str("symbol", symbol).Msg("snapshot delete failed during reset")
		}
	}

	s.bus.Publish(events.Notice{
		Type:   events.NoticeContextReset,
		Symbol: symbol,
		Data:   map[string]interface{}{"existed": existed},
	})
	s.logger.Info().Str("symbol", symbol).Bool("existed", existed).Msg("context reset")

	c.JSON(http.StatusOK, gin.H{"symbol": symbol, "existed": existed})
}

func (s *Server) handleNewsUpcoming(c *gin.Context) {
	if s.newsGuard == nil {
		c.JSON(http.StatusServiceUnavailable, gin.H{"error": "news guard is disabled"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"upcoming": s.newsGuard.Upcoming(time.Now().UTC())})
}

type newsRequest struct {
	Name   string    `json:"name" binding:"required"`
	At     time.Time `json:"at" binding:"required"`
	Impact string    `json:"impact"`
}

func (s *Server) handleNewsSchedule(c *gin.Context) {
	if s.newsGuard == nil {
		c.JSON(http.StatusServiceUnavailable, gin.H{"error": "news guard is disabled"})
		return
	}

	var req newsRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "name and at are required"})
		return
	}

	impact := guard.Impact(req.Impact)
	if impact == "" {
		impact = guard.ImpactHigh
	}

	s.newsGuard.Schedule(guard.NewsEvent{Name: req.Name, At: req.At, Impact: impact})
	s.logger.Info().Str("name", req.Name).Time("at", req.At).Msg("news event scheduled")

	c.JSON(http.StatusOK, gin.H{"scheduled": req.Name, "at": req.At})
}
