// Package api exposes the runner over HTTP.
package api

import (
	"errors"
	"fmt"
	"net/http"

	"web/cellcluster/cluster"
	"web/cellcluster/runner"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"
)

// CreateRunRequest is the body of POST /api/runs. Points are [x, y] pairs.
type CreateRunRequest struct {
	Radius float64     `json:"radius" binding:"required"`
	Points [][]float64 `json:"points"`
}

// RunResponse pairs a run's metadata with its report.
type RunResponse struct {
	Run    runner.RunInfo `json:"run"`
	Report cluster.Report `json:"report"`
}

type Server struct {
	runner *runner.Runner
	logger *zap.Logger
}

// NewRouter builds the gin engine. Metrics are served from gatherer when it
// is non-nil.
func NewRouter(r *runner.Runner, logger *zap.Logger, gatherer prometheus.Gatherer) *gin.Engine {
	if logger == nil {
		logger = zap.NewNop()
	}
	s := &Server{runner: r, logger: logger.Named("api")}

	engine := gin.New()
	engine.Use(gin.Recovery(), s.logRequests())

	// Enable CORS
	engine.Use(func(c *gin.Context) {
		c.Writer.Header().Set("Access-Control-Allow-Origin", "*")
		c.Writer.Header().Set("Access-Control-Allow-Methods", "GET, POST, OPTIONS")
		c.Writer.Header().Set("Access-Control-Allow-Headers", "Origin, Content-Type")

		if c.Request.Method == http.MethodOptions {
			c.AbortWithStatus(http.StatusNoContent)
			return
		}
		c.Next()
	})

	engine.POST("/api/runs", s.createRun)
	engine.GET("/api/runs", s.listRuns)
	engine.GET("/api/runs/:id", s.getRun)
	engine.GET("/api/runs/:id/summary", s.getSummary)

	if gatherer != nil {
		engine.GET("/metrics", gin.WrapH(promhttp.HandlerFor(gatherer, promhttp.HandlerOpts{})))
	}
	return engine
}

func (s *Server) logRequests() gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Next()
		s.logger.Debug("request",
			zap.String("method", c.Request.Method),
			zap.String("path", c.FullPath()),
			zap.Int("status", c.Writer.Status()))
	}
}

func (s *Server) createRun(c *gin.Context) {
	var req CreateRunRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request: " + err.Error()})
		return
	}

	points := make([]cluster.Point, len(req.Points))
	for i, p := range req.Points {
		if len(p) != 2 {
			c.JSON(http.StatusBadRequest, gin.H{"error": fmt.Sprintf("point %d: expected [x, y], got %d values", i, len(p))})
			return
		}
		points[i] = cluster.Point{X: p[0], Y: p[1]}
	}

	run, err := s.runner.Create(c.Request.Context(), points, req.Radius)
	if err != nil {
		s.writeError(c, err)
		return
	}
	c.JSON(http.StatusCreated, RunResponse{Run: run.Info, Report: run.Labeling.Report()})
}

func (s *Server) listRuns(c *gin.Context) {
	runs, err := s.runner.List()
	if err != nil {
		s.writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, runs)
}

func (s *Server) getRun(c *gin.Context) {
	id := c.Param("id")
	info, err := s.runner.Info(id)
	if err != nil {
		s.writeError(c, err)
		return
	}
	l, err := s.runner.Get(c.Request.Context(), id)
	if err != nil {
		s.writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, RunResponse{Run: info, Report: l.Report()})
}

func (s *Server) getSummary(c *gin.Context) {
	l, err := s.runner.Get(c.Request.Context(), c.Param("id"))
	if err != nil {
		s.writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, cluster.Summarize(l))
}

func (s *Server) writeError(c *gin.Context, err error) {
	status := http.StatusInternalServerError
	var domainErr *cluster.DomainError
	switch {
	case errors.Is(err, runner.ErrRunNotFound):
		status = http.StatusNotFound
	case errors.As(err, &domainErr),
		errors.Is(err, cluster.ErrInvalidRadius),
		errors.Is(err, cluster.ErrGridTooLarge):
		status = http.StatusBadRequest
	}
	if status == http.StatusInternalServerError {
		s.logger.Error("request failed", zap.String("path", c.FullPath()), zap.Error(err))
	}
	c.JSON(status, gin.H{"error": err.Error()})
}
