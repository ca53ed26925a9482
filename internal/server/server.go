package server

import (
	"log/slog"
	"net/http"
	"sync"

	glog "github.com/gin-contrib/slog"
	"github.com/gin-gonic/gin"

	"github.com/kode4food/sequin"
	"github.com/kode4food/sequin/internal/engine"
	"github.com/kode4food/sequin/internal/events"
	"github.com/kode4food/sequin/pkg/api"
)

// Server implements the HTTP API for running workflows
type Server struct {
	engine  *engine.Engine
	hub     *events.Hub
	metrics http.Handler
	sockets map[*Client]struct{}
	mu      sync.Mutex
}

// NewServer creates a new HTTP API server. A nil metrics handler leaves the
// /metrics route unregistered
func NewServer(
	eng *engine.Engine, hub *events.Hub, metrics http.Handler,
) *Server {
	return &Server{
		engine:  eng,
		hub:     hub,
		metrics: metrics,
		sockets: map[*Client]struct{}{},
	}
}

// SetupRoutes configures and returns the HTTP router with all API endpoints
func (s *Server) SetupRoutes() *gin.Engine {
	router := gin.New()
	router.Use(gin.Recovery())
	router.Use(glog.SetLogger(
		glog.WithLogger(func(c *gin.Context, l *slog.Logger) *slog.Logger {
			return slog.Default()
		}),
	))

	// CORS middleware
	router.Use(func(c *gin.Context) {
		c.Writer.Header().Set("Access-Control-Allow-Origin", "*")
		c.Writer.Header().Set(
			"Access-Control-Allow-Methods", "GET, POST, OPTIONS",
		)
		c.Writer.Header().Set(
			"Access-Control-Allow-Headers",
			"Content-Type, Authorization",
		)

		if c.Request.Method == "OPTIONS" {
			c.AbortWithStatus(http.StatusOK)
			return
		}

		c.Next()
	})

	router.GET("/health", s.handleHealth)
	if s.metrics != nil {
		router.GET("/metrics", gin.WrapH(s.metrics))
	}

	eng := router.Group("/engine")
	{
		eng.POST("/run", s.startRun)
		eng.GET("/run", s.listRuns)
		eng.GET("/run/:runID", s.getRun)
		eng.GET("/ws", s.handleWebSocket)
	}

	return router
}

func (s *Server) handleHealth(c *gin.Context) {
	c.JSON(http.StatusOK, api.HealthResponse{
		Service: sequin.Name,
		Version: sequin.Version,
		Status:  "healthy",
	})
}

func (s *Server) registerWebSocket(c *Client) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.sockets[c] = struct{}{}
}

func (s *Server) unregisterWebSocket(c *Client) {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.sockets, c)
}

// CloseWebSockets closes all active WebSocket connections
func (s *Server) CloseWebSockets() {
	s.mu.Lock()
	conns := make([]*Client, 0, len(s.sockets))
	for c := range s.sockets {
		conns = append(conns, c)
	}
	s.mu.Unlock()

	for _, c := range conns {
		c.Close()
	}
}
