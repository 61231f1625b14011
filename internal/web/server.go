package web

import (
	"context"
	"errors"
	"encoding/json"
	"net/http"
	"sync"
	"time"

	"github.com/KNICEX/oi-radar/internal/repo"
	"github.com/KNICEX/oi-radar/internal/service/broadcast"
	"github.com/KNICEX/oi-radar/internal/service/monitor"
	"github.com/KNICEX/oi-radar/internal/service/radar"
	"github.com/KNICEX/oi-radar/internal/service/status"
	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rs/zerolog"
)

type Config struct {
	Addr            string        `mapstructure:"addr" json:"addr"`
	ShutdownTimeout time.Duration `mapstructure:"shutdown_timeout" json:"shutdown_timeout"`
}

// Server exposes the radar over HTTP: status, alert queries, the live alert
// and log feeds and prometheus metrics. Symbol marks and the scoring policy
// are the only writable state.
type Server struct {
	engine   *gin.Engine
	cfg      Config
	alerts   repo.AlertRepo
	hub      *broadcast.Hub[radar.Alert]
	logs     *broadcast.Hub[json.RawMessage]
	status   *status.Aggregator
	radar    monitor.RadarService
	symbols  repo.SymbolRepo
	tuner    monitor.PolicyTuner
	view     any
	gatherer prometheus.Gatherer
	logger   zerolog.Logger

	policyMu sync.Mutex
}

type Option func(s *Server)

// WithConfigView sets the static configuration served by /api/config.
func WithConfigView(view any) Option {
	return func(s *Server) {
		s.view = view
	}
}

func WithGatherer(g prometheus.Gatherer) Option {
	return func(s *Server) {
		s.gatherer = g
	}
}

func WithLogger(logger zerolog.Logger) Option {
	return func(s *Server) {
		s.logger = logger
	}
}

// WithLogHub enables /ws/logs, which tails the process log.
func WithLogHub(logs *broadcast.Hub[json.RawMessage]) Option {
	return func(s *Server) {
		s.logs = logs
	}
}

func NewServer(cfg Config, alerts repo.AlertRepo, hub *broadcast.Hub[radar.Alert], agg *status.Aggregator,
	radarSvc monitor.RadarService, opts ...Option) *Server {
	if cfg.Addr == "" {
		cfg.Addr = ":8080"
	}
	if cfg.ShutdownTimeout <= 0 {
		cfg.ShutdownTimeout = 5 * time.Second
	}
	s := &Server{
		cfg:      cfg,
		alerts:   alerts,
		hub:      hub,
		status:   agg,
		radar:    radarSvc,
		view:     gin.H{},
		gatherer: prometheus.DefaultGatherer,
		logger:   zerolog.Nop(),
	}
	for _, opt := range opts {
		opt(s)
	}
	s.engine = gin.New()
	s.engine.Use(gin.Recovery(), s.accessLog())
	s.routes()
	return s
}

func (s *Server) routes() {
	s.engine.GET("/healthz", s.health)
	s.engine.GET("/metrics", gin.WrapH(promhttp.HandlerFor(s.gatherer, promhttp.HandlerOpts{})))

	api := s.engine.Group("/api")
	api.GET("/status", s.getStatus)
	api.GET("/symbols", s.getSymbols)
	s.configRoutes(api)
	api.GET("/alerts", s.listAlerts)
	api.GET("/alert/:id", s.getAlert)
	s.markRoutes(api)

	s.engine.GET("/ws/alerts", s.streamAlerts)
	if s.logs != nil {
		s.engine.GET("/ws/logs", s.streamLogs)
	}
}

func (s *Server) Handler() http.Handler {
	return s.engine
}

// Run serves until ctx is cancelled, then drains open requests.
func (s *Server) Run(ctx context.Context) error {
	srv := &http.Server{
		Addr:              s.cfg.Addr,
		Handler:           s.engine,
		ReadHeaderTimeout: 5 * time.Second,
	}
	errCh := make(chan error, 1)
	go func() {
		s.logger.Info().Str("addr", s.cfg.Addr).Msg("http server listening")
		errCh <- srv.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), s.cfg.ShutdownTimeout)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return err
	}
	if err := <-errCh; !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}

func (s *Server) accessLog() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()
		s.logger.Debug().
			Str("method", c.Request.Method).
			Str("path", c.FullPath()).
			Int("status", c.Writer.Status()).
			Dur("took", time.Since(start)).
			Msg("http request")
	}
}
