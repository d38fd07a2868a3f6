package bi

import (
	"net/http"

	"github.com/gin-gonic/gin"
)

// Server exposes the analytics service over HTTP.
type Server struct {
	service *Service
	router  *gin.Engine
}

// NewServer builds the HTTP API around an analytics service.
func NewServer(service *Service) *Server {
	gin.SetMode(gin.ReleaseMode)
	router := gin.New()
	router.Use(gin.Recovery())

	s := &Server{service: service, router: router}
	router.POST("/slack_insights", s.handleInsights)
	router.GET("/health", s.handleHealth)
	router.GET("/stats", s.handleStats)
	return s
}

// Run starts the server on addr, blocking until it exits.
func (s *Server) Run(addr string) error {
	return s.router.Run(addr)
}

// Handler exposes the router for tests.
func (s *Server) Handler() http.Handler {
	return s.router
}

func (s *Server) handleInsights(c *gin.Context) {
	period := c.DefaultQuery("period", "7d")
	report, err := s.service.Run(c.Request.Context(), period)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"detail": err.Error()})
		return
	}
	c.JSON(http.StatusOK, report)
}

func (s *Server) handleHealth(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"status": "healthy", "service": "bi.slack_analytics"})
}

func (s *Server) handleStats(c *gin.Context) {
	stats, err := s.service.Stats()
	if err != nil {
		c.JSON(http.StatusOK, gin.H{"error": "No cached data available"})
		return
	}
	c.JSON(http.StatusOK, stats)
}
