package server

import (
	"bytes"
	"net/http"
	"net/http/pprof"
	"sync"
	"time"

	"github.com/atikulmunna/logrank/internal/aggregator"
	"github.com/atikulmunna/logrank/internal/model"
	"github.com/atikulmunna/logrank/internal/output"
	"github.com/atikulmunna/logrank/internal/pipeline"
	"github.com/atikulmunna/logrank/internal/source"
	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

// maxBodySize caps the log text accepted by POST /api/analyze.
const maxBodySize = 64 << 20

// Server exposes the pipeline over HTTP and pushes each new result to
// websocket clients.
type Server struct {
	engine   *gin.Engine
	pipeline *pipeline.Pipeline
	logger   *zap.SugaredLogger
	port     string
	started  time.Time

	mu     sync.RWMutex
	latest *pipeline.Result
	runs   int64

	feed *feed
}

// New creates an API server running analyses with p.
func New(p *pipeline.Pipeline, port string, logger *zap.SugaredLogger) *Server {
	if logger == nil {
		logger = zap.NewNop().Sugar()
	}

	gin.SetMode(gin.ReleaseMode)
	engine := gin.New()
	engine.Use(gin.Recovery())

	// Disable automatic redirects that cause 301 issues.
	engine.RedirectTrailingSlash = false
	engine.RedirectFixedPath = false

	s := &Server{
		engine:   engine,
		pipeline: p,
		logger:   logger,
		port:     port,
		started:  time.Now(),
		feed:     newFeed(),
	}

	s.setupRoutes()
	return s
}

// Handler returns the underlying http.Handler.
func (s *Server) Handler() http.Handler {
	return s.engine
}

func (s *Server) setupRoutes() {
	s.engine.GET("/healthz", s.handleHealth)

	api := s.engine.Group("/api")
	api.POST("/analyze", s.handleAnalyze)
	api.GET("/reports", s.handleReports)
	api.GET("/reports/:name", s.handleReport)

	s.engine.GET("/ws", s.handleWebSocket)

	// pprof profiling endpoints.
	s.engine.GET("/debug/pprof/", gin.WrapF(pprof.Index))
	s.engine.GET("/debug/pprof/profile", gin.WrapF(pprof.Profile))
	s.engine.GET("/debug/pprof/heap", gin.WrapH(pprof.Handler("heap")))
	s.engine.GET("/debug/pprof/goroutine", gin.WrapH(pprof.Handler("goroutine")))
}

func (s *Server) handleHealth(c *gin.Context) {
	s.mu.RLock()
	runs := s.runs
	s.mu.RUnlock()

	c.JSON(http.StatusOK, gin.H{
		"status":  "ok",
		"uptime":  time.Since(s.started).Truncate(time.Second).String(),
		"runs":    runs,
		"clients": s.feed.size(),
	})
}

// handleAnalyze runs the pipeline over the request body.
func (s *Server) handleAnalyze(c *gin.Context) {
	body := http.MaxBytesReader(c.Writer, c.Request.Body, maxBodySize)
	src := source.FromReader("request", body)

	results := make(chan *pipeline.Result, 1)
	errs := make(chan error, 1)
	go func() {
		res, err := s.pipeline.Run(c.Request.Context(), src.Lines())
		if err != nil {
			errs <- err
			return
		}
		results <- res
	}()

	if err := src.Start(c.Request.Context()); err != nil {
		// Wait for the pipeline so it does not outlive the request.
		select {
		case <-results:
		case <-errs:
		}
		s.logger.Warnw("analyze request failed", "error", err)
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	select {
	case err := <-errs:
		c.JSON(http.StatusServiceUnavailable, gin.H{"error": err.Error()})
	case res := <-results:
		s.store(res)
		c.JSON(http.StatusOK, res)
	}
}

func (s *Server) handleReports(c *gin.Context) {
	res := s.Latest()
	if res == nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "no analysis has run yet"})
		return
	}
	c.JSON(http.StatusOK, res)
}

// handleReport returns one report as JSON, or as CSV with ?format=csv.
func (s *Server) handleReport(c *gin.Context) {
	res := s.Latest()
	if res == nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "no analysis has run yet"})
		return
	}

	var rep model.Report
	switch c.Param("name") {
	case aggregator.StatusReport:
		rep = res.Status
	case aggregator.ErrorIPReport:
		rep = res.ErrorIPs
	default:
		c.JSON(http.StatusNotFound, gin.H{"error": "unknown report " + c.Param("name")})
		return
	}

	if c.Query("format") == "csv" {
		var buf bytes.Buffer
		if err := output.WriteCSV(&buf, rep); err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
			return
		}
		c.Data(http.StatusOK, "text/csv; charset=utf-8", buf.Bytes())
		return
	}
	c.JSON(http.StatusOK, rep)
}

// Latest returns the most recent result, or nil before the first analysis.
func (s *Server) Latest() *pipeline.Result {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.latest
}

func (s *Server) store(res *pipeline.Result) {
	s.mu.Lock()
	s.latest = res
	s.runs++
	s.mu.Unlock()

	s.feed.publish(res)
}

// Start runs the server. Blocks until the server is stopped.
func (s *Server) Start() error {
	s.logger.Infow("http server listening", "port", s.port)
	return s.engine.Run(":" + s.port)
}
