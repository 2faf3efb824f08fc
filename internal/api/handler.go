package api

import (
	"net/http"
	"time"

	"volume-core/internal/engine"
	"volume-core/internal/events"
	"volume-core/internal/monitor"
	"volume-core/pkg/db"

	"github.com/gin-gonic/gin"
)

// Server wires HTTP endpoints around the engine controller and event bus.
type Server struct {
	Router    *gin.Engine
	Bus       *events.Bus
	Queries   *db.Queries
	Engine    *engine.Controller
	Metrics   *monitor.SystemMetrics
	JWTSecret string
}

func NewServer(bus *events.Bus, queries *db.Queries, ctrl *engine.Controller, metrics *monitor.SystemMetrics, jwtSecret string) *Server {
	r := gin.New()

	limits := newLimiterRegistry(clientRateLimit, clientRateBurst, limiterIdleTTL)
	go limits.sweep(time.Minute)

	// Middleware stack (order matters!)
	r.Use(gin.Recovery())
	r.Use(RequestIDMiddleware())
	r.Use(RequestLogger(metrics))
	r.Use(RateLimitMiddleware(limits))
	r.Use(TimeoutMiddleware(30 * time.Second))
	r.Use(CORSMiddleware())

	s := &Server{
		Router:    r,
		Bus:       bus,
		Queries:   queries,
		Engine:    ctrl,
		Metrics:   metrics,
		JWTSecret: jwtSecret,
	}
	s.routes()
	return s
}

func (s *Server) routes() {
	s.Router.GET("/health", s.health)
	s.Router.GET("/ws", s.websocket)

	api := s.Router.Group("/api")
	{
		// Auth endpoints (no auth required)
		auth := api.Group("/auth")
		{
			auth.POST("/register", s.registerUser)
			auth.POST("/login", s.loginUser)
		}

		// Protected API
		protected := api.Group("")
		protected.Use(AuthMiddleware(s.JWTSecret))
		{
			protected.GET("/engine/status", s.getEngineStatus)
			protected.POST("/engine/start", s.startEngine)
			protected.POST("/engine/stop", s.stopEngine)
			protected.PUT("/engine/settings/:name", s.updateSetting)
			protected.GET("/engine/settings", s.getSettings)

			protected.GET("/trades", s.getTrades)
			protected.GET("/trades/stats", s.getTradeStats)
			protected.GET("/metrics", s.getMetrics)
		}
	}
}

func (s *Server) health(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"status": "ok"})
}

func (s *Server) Start(addr string) error {
	return s.Router.Run(addr)
}
