package rag

import (
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
)

const maxQuerySize = 10 << 10 // 10KB

// Server exposes the search engine over HTTP.
type Server struct {
	engine *Engine
	router *gin.Engine
}

// NewServer builds the HTTP API around a search engine.
func NewServer(engine *Engine) *Server {
	gin.SetMode(gin.ReleaseMode)
	router := gin.New()
	router.Use(gin.Recovery())

	s := &Server{engine: engine, router: router}

	router.GET("/health", s.handleHealth)
	api := router.Group("/api")
	{
		api.GET("/search", s.handleSearch)
		api.POST("/documents", s.handleAddDocument)
		api.GET("/stats", s.handleStats)
	}
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

func (s *Server) handleHealth(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"status": "ok"})
}

func (s *Server) handleSearch(c *gin.Context) {
	query := c.Query("q")
	if query == "" {
		c.JSON(http.StatusBadRequest, gin.H{"success": false, "error": "query parameter required"})
		return
	}
	if len(query) > maxQuerySize {
		c.JSON(http.StatusBadRequest, gin.H{"success": false, "error": "query exceeds maximum size of 10KB"})
		return
	}

	limit, _ := strconv.Atoi(c.DefaultQuery("limit", "10"))
	results, err := s.engine.Search(c.Request.Context(), query, limit)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"success": false, "error": err.Error()})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"success": true,
		"query":   query,
		"results": results,
		"count":   len(results),
	})
}

type addDocumentRequest struct {
	Text   string `json:"text" binding:"required"`
	Source string `json:"source"`
}

func (s *Server) handleAddDocument(c *gin.Context) {
	var req addDocumentRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"success": false, "error": err.Error()})
		return
	}
	if req.Source == "" {
		req.Source = "api"
	}

	added, err := s.engine.IndexText(c.Request.Context(), req.Text, req.Source)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"success": false, "error": err.Error()})
		return
	}

	c.JSON(http.StatusOK, gin.H{"success": true, "added": added})
}

func (s *Server) handleStats(c *gin.Context) {
	c.JSON(http.StatusOK, s.engine.Stats())
}
