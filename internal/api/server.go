package api

import (
	"context"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rs/zerolog"
	"github.com/snarg/speechscope/internal/config"
	"github.com/snarg/speechscope/internal/metrics"
)

type Server struct {
	http *http.Server
	log  zerolog.Logger
}

// ServerOptions carries the handler dependencies. DB and MQTT may be nil.
type ServerOptions struct {
	Runs           RunService
	DB             HealthChecker
	MQTT           ConnectionChecker
	AnalyzerName   string
	ToolsAvailable func() bool
	Version        string
	StartTime      time.Time
	Log            zerolog.Logger
}

func NewServer(cfg *config.Config, opts ServerOptions) *Server {
	r := chi.NewRouter()

	// Global middleware
	r.Use(RequestID)
	r.Use(Recoverer)
	r.Use(Logger(opts.Log))
	r.Use(CORS)
	r.Use(metrics.InstrumentHandler)

	health := NewHealthHandler(HealthOptions{
		DB:             opts.DB,
		MQTT:           opts.MQTT,
		AnalyzerName:   opts.AnalyzerName,
		ToolsAvailable: opts.ToolsAvailable,
		Version:        opts.Version,
		StartTime:      opts.StartTime,
	})
	r.Get("/api/v1/health", health.ServeHTTP)
	r.Handle("/metrics", promhttp.Handler())

	runs := NewRunsHandler(opts.Runs)
	r.Route("/api/v1", func(r chi.Router) {
		r.Post("/analyze", runs.Analyze)
		r.Get("/results/{id}", runs.Result)
	})

	// Paths kept for existing clients.
	r.Post("/analyze", runs.Analyze)
	r.Get("/result/{id}", runs.Result)

	r.Handle("/data/*", DataFiles(cfg.DataDir))

	return &Server{
		http: &http.Server{
			Addr:         cfg.HTTPAddr,
			Handler:      r,
			ReadTimeout:  cfg.ReadTimeout,
			WriteTimeout: cfg.WriteTimeout,
			IdleTimeout:  cfg.IdleTimeout,
		},
		log: opts.Log,
	}
}

// Handler returns the root handler, for tests.
func (s *Server) Handler() http.Handler {
	return s.http.Handler
}

func (s *Server) Start() error {
	s.log.Info().Str("addr", s.http.Addr).Msg("http server starting")
	err := s.http.ListenAndServe()
	if err == http.ErrServerClosed {
		return nil
	}
	return err
}

func (s *Server) Shutdown(ctx context.Context) error {
	s.log.Info().Msg("http server shutting down")
	return s.http.Shutdown(ctx)
}
