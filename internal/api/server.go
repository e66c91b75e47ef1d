// Package api exposes a read-only ops surface over the gateway: order
// and position lookups, session risk settings, and a websocket stream
// of outbound events.
package api

import (
	"errors"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"order-gateway/internal/events"
	"order-gateway/pkg/db"
)

// Server wires HTTP endpoints around the store and the event bus.
type Server struct {
	Router *gin.Engine
	Bus    *events.Bus
	DB     *db.Database
}

func NewServer(bus *events.Bus, database *db.Database) *Server {
	r := gin.New()

	// Middleware stack (order matters!)
	r.Use(gin.Recovery())
	r.Use(RequestIDMiddleware())
	r.Use(RequestLogger())
	r.Use(RateLimitMiddleware())
	r.Use(TimeoutMiddleware(30 * time.Second))

	s := &Server{Router: r, Bus: bus, DB: database}
	s.routes()
	return s
}

func (s *Server) routes() {
	s.Router.GET("/health", s.health)
	s.Router.GET("/ws", s.websocket)

	api := s.Router.Group("/api")
	{
		api.GET("/orders/:id", s.getOrder)
		api.GET("/accounts/:id/positions", s.getPositions)
		api.GET("/sessions/:id/settings", s.getRiskSettings)
	}
}

func (s *Server) health(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"status": "ok"})
}

func (s *Server) getOrder(c *gin.Context) {
	o, err := s.DB.GetOrder(c.Request.Context(), c.Param("id"))
	if err != nil {
		if errors.Is(err, db.ErrNotFound) {
			c.JSON(http.StatusNotFound, gin.H{"error": "order not found"})
			return
		}
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, o)
}

func (s *Server) getPositions(c *gin.Context) {
	positions, err := s.DB.GetPositions(c.Request.Context(), c.Param("id"))
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	if positions == nil {
		positions = []db.Position{}
	}
	c.JSON(http.StatusOK, positions)
}

func (s *Server) getRiskSettings(c *gin.Context) {
	settings, err := s.DB.GetRiskSettings(c.Request.Context(), c.Param("id"))
	if err != nil {
		if errors.Is(err, db.ErrNotFound) {
			c.JSON(http.StatusNotFound, gin.H{"error": "risk settings not found"})
			return
		}
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, settings)
}

func (s *Server) Start(addr string) error {
	return s.Router.Run(addr)
}
