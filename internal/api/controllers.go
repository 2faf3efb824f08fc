package api

import (
	"errors"
	"net/http"
	"strconv"

	"volume-core/internal/engine"
	"volume-core/internal/settings"

	"github.com/gin-gonic/gin"
)

// getEngineStatus returns the full engine view: run state, counters,
// balances and the active settings.
func (s *Server) getEngineStatus(c *gin.Context) {
	c.JSON(http.StatusOK, s.Engine.Status(c.Request.Context()))
}

// startEngine launches the trading loop. Starting twice is a no-op.
func (s *Server) startEngine(c *gin.Context) {
	err := s.Engine.Start(c.Request.Context())
	switch {
	case err == nil:
		c.JSON(http.StatusOK, gin.H{"status": "started"})
	case errors.Is(err, engine.ErrAlreadyRunning):
		c.JSON(http.StatusOK, gin.H{"status": "noop", "message": "engine already running"})
	default:
		c.JSON(http.StatusConflict, gin.H{
			"code":  "START_REFUSED",
			"error": err.Error(),
		})
	}
}

// stopEngine halts the trading loop. Stopping twice is a no-op.
func (s *Server) stopEngine(c *gin.Context) {
	err := s.Engine.Stop(c.Request.Context())
	switch {
	case err == nil:
		c.JSON(http.StatusOK, gin.H{"status": "stopped"})
	case errors.Is(err, engine.ErrNotRunning):
		c.JSON(http.StatusOK, gin.H{"status": "noop", "message": "engine not running"})
	default:
		c.JSON(http.StatusInternalServerError, gin.H{
			"code":  "INTERNAL_ERROR",
			"error": err.Error(),
		})
	}
}

// updateSetting applies one runtime setting; it takes effect next cycle.
func (s *Server) updateSetting(c *gin.Context) {
	var req struct {
		Value string `json:"value"`
	}
	if err := c.BindJSON(&req); err != nil || req.Value == "" {
		c.JSON(http.StatusBadRequest, gin.H{
			"code":  "INVALID_PAYLOAD",
			"error": "body must be {\"value\": \"...\"}",
		})
		return
	}

	name := c.Param("name")
	updated, err := s.Engine.UpdateSetting(c.Request.Context(), name, req.Value)
	if err != nil {
		status := http.StatusBadRequest
		code := "INVALID_VALUE"
		if errors.Is(err, settings.ErrUnknownSetting) {
			status = http.StatusNotFound
			code = "UNKNOWN_SETTING"
		}
		c.JSON(status, gin.H{"code": code, "error": err.Error()})
		return
	}

	c.JSON(http.StatusOK, gin.H{"settings": updated})
}

// getSettings returns the current settings snapshot.
func (s *Server) getSettings(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"settings": s.Engine.Settings()})
}

// getTrades returns recent cycles, most recent first. ?filled=true limits
// the list to fully filled cycles.
func (s *Server) getTrades(c *gin.Context) {
	limit := 50
	if v := c.Query("limit"); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n > 0 && n <= 500 {
			limit = n
		}
	}

	ctx := c.Request.Context()
	var err error
	var trades any
	if c.Query("filled") == "true" {
		trades, err = s.Queries.RecentFilledTrades(ctx, limit)
	} else {
		trades, err = s.Queries.RecentTrades(ctx, limit)
	}
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{
			"code":  "INTERNAL_ERROR",
			"error": err.Error(),
		})
		return
	}
	c.JSON(http.StatusOK, gin.H{"trades": trades})
}

// getTradeStats aggregates the whole trade history.
func (s *Server) getTradeStats(c *gin.Context) {
	stats, err := s.Queries.TradeStats(c.Request.Context())
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{
			"code":  "INTERNAL_ERROR",
			"error": err.Error(),
		})
		return
	}
	c.JSON(http.StatusOK, stats)
}

// getMetrics returns a point-in-time metrics snapshot.
func (s *Server) getMetrics(c *gin.Context) {
	if s.Metrics == nil {
		c.JSON(http.StatusServiceUnavailable, gin.H{"error": "metrics not enabled"})
		return
	}
	c.JSON(http.StatusOK, s.Metrics.GetSnapshot())
}
