// Package monitor exposes a small read-only HTTP surface over the
// running poller: its state, its cadence, and the latest sample.
package monitor

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/danmuck/troughctl/internal/poll"
	"github.com/danmuck/troughctl/internal/trough"
)

// Source supplies the most recent measurement, if any has arrived yet.
type Source interface {
	Latest() (trough.Measurement, bool)
}

// Poller exposes the poller observables the monitor reports.
type Poller interface {
	State() poll.State
	Interval() time.Duration
}

// Server serves the monitor API.
type Server struct {
	engine *gin.Engine
	source Source
	poller Poller

	troughAddr string
}

// New builds the monitor router over a data source and a poller.
func New(source Source, poller Poller, troughAddr string) *Server {
	gin.SetMode(gin.ReleaseMode)
	engine := gin.New()
	engine.Use(gin.Recovery())

	s := &Server{
		engine:     engine,
		source:     source,
		poller:     poller,
		troughAddr: troughAddr,
	}
	s.registerRoutes()
	return s
}

func (s *Server) registerRoutes() {
	api := s.engine.Group("/api")
	api.GET("/status", s.handleStatus)
	api.GET("/data/latest", s.handleLatest)
}

func (s *Server) handleStatus(c *gin.Context) {
	interval := s.poller.Interval()
	body := gin.H{
		"trough":       s.troughAddr,
		"poller_state": s.poller.State().String(),
	}
	if interval < 0 {
		body["poll_suspended"] = true
	} else {
		body["poll_interval"] = interval.String()
	}
	c.JSON(http.StatusOK, body)
}

func (s *Server) handleLatest(c *gin.Context) {
	m, ok := s.source.Latest()
	if !ok {
		c.JSON(http.StatusNotFound, gin.H{"error": "no data received yet"})
		return
	}
	body := make(gin.H, len(m))
	for i, v := range m {
		body[trough.FieldName(i)] = v.Interface()
	}
	c.JSON(http.StatusOK, body)
}

// Handler returns the router for serving or for tests.
func (s *Server) Handler() http.Handler {
	return s.engine
}

// Run serves the monitor API on addr, blocking until the listener fails.
func (s *Server) Run(addr string) error {
	return s.engine.Run(addr)
}
