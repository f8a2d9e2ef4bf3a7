// Package api serves studies, stored runs and exports over HTTP with gin
package api

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"gosim/app"
	"gosim/internal"
	"gosim/internal/config"
	apperrors "gosim/internal/errors"
	"gosim/internal/metrics"
	"gosim/ports"
)

// Server holds the handlers' dependencies
type Server struct {
	studies *app.StudyService
	runs    ports.RunRepository // nil when storage is not configured
	hub     *ProgressHub
	sim     config.SimulationConfig
	logger  *internal.Logger
}

// NewServer wires the handlers
func NewServer(
	studies *app.StudyService,
	runs ports.RunRepository,
	hub *ProgressHub,
	sim config.SimulationConfig,
	logger *internal.Logger,
) *Server {
	if logger == nil {
		logger = internal.DefaultLogger
	}
	if hub == nil {
		hub = NewProgressHub(logger)
	}
	return &Server{studies: studies, runs: runs, hub: hub, sim: sim, logger: logger}
}

// Router builds a gin engine with every route registered
func (s *Server) Router() *gin.Engine {
	r := gin.New()
	r.Use(gin.Recovery(), s.requestLogger())
	s.Register(r)
	return r
}

// Register adds the routes to r
func (s *Server) Register(r gin.IRouter) {
	r.GET("/healthz", s.health)
	r.GET("/metrics", gin.WrapH(metrics.Handler()))

	api := r.Group("/api")
	api.GET("/catalog", s.catalog)
	api.GET("/events", s.hub.HandleSSE)
	api.POST("/runs", s.createRun)
	api.GET("/runs", s.listRuns)
	api.GET("/runs/:id", s.getRun)
	api.GET("/runs/:id/trials", s.getTrials)
	api.GET("/runs/:id/summary.xlsx", s.exportRun)
	api.DELETE("/runs/:id", s.deleteRun)
}

func (s *Server) requestLogger() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()
		s.logger.Debug("[API] %s %s -> %d (%s)", c.Request.Method, c.Request.URL.Path, c.Writer.Status(), time.Since(start))
	}
}

func (s *Server) health(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"status":  "ok",
		"version": app.CodeVersion,
		"storage": s.runs != nil,
	})
}

func (s *Server) catalog(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"entries": s.studies.Catalog()})
}

// writeError responds with the status implied by the error's code
func (s *Server) writeError(c *gin.Context, err error) {
	status := apperrors.HTTPStatus(err)
	if status >= http.StatusInternalServerError {
		s.logger.Error("[API] %s %s: %v", c.Request.Method, c.Request.URL.Path, err)
	} else {
		s.logger.Debug("[API] %s %s: %v", c.Request.Method, c.Request.URL.Path, err)
	}
	c.AbortWithStatusJSON(status, gin.H{
		"error": err.Error(),
		"code":  apperrors.GetCode(err),
	})
}

// requireStorage answers 503 when runs cannot be looked up
func (s *Server) requireStorage(c *gin.Context) bool {
	if s.runs == nil {
		c.AbortWithStatusJSON(http.StatusServiceUnavailable, gin.H{"error": "run storage is not configured"})
		return false
	}
	return true
}
