// Package http serves the operational surface: Prometheus metrics, health
// and readiness probes.
package http

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"

	"groovebot/internal/player"
)

type Server struct {
	config  *player.ServerConfig
	logger  *zap.Logger
	server  *http.Server
	metrics *Metrics
}

type Metrics struct {
	CommandsTotal           *prometheus.CounterVec
	TracksPlayedTotal       prometheus.Counter
	SearchesTotal           *prometheus.CounterVec
	ResolutionFailuresTotal prometheus.Counter
	TransportErrorsTotal    prometheus.Counter
	FloodBlockedTotal       prometheus.Counter
	CommandDuration         *prometheus.HistogramVec
	ActiveSessions          prometheus.Gauge
	VoiceConnections        prometheus.Gauge
	QueuedTracks            prometheus.Gauge
}

func newMetrics(reg prometheus.Registerer) *Metrics {
	metrics := &Metrics{
		CommandsTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "groovebot_commands_total",
				Help: "Total number of commands processed",
			},
			[]string{"command", "status"},
		),
		TracksPlayedTotal: prometheus.NewCounter(
			prometheus.CounterOpts{
				Name: "groovebot_tracks_played_total",
				Help: "Total number of tracks started",
			},
		),
		SearchesTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "groovebot_searches_total",
				Help: "Total number of track searches",
			},
			[]string{"status"},
		),
		ResolutionFailuresTotal: prometheus.NewCounter(
			prometheus.CounterOpts{
				Name: "groovebot_resolution_failures_total",
				Help: "Total number of tracks that failed resolution",
			},
		),
		TransportErrorsTotal: prometheus.NewCounter(
			prometheus.CounterOpts{
				Name: "groovebot_transport_errors_total",
				Help: "Total number of voice transport errors",
			},
		),
		FloodBlockedTotal: prometheus.NewCounter(
			prometheus.CounterOpts{
				Name: "groovebot_flood_blocked_total",
				Help: "Total number of commands blocked by flood control",
			},
		),
		CommandDuration: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "groovebot_command_duration_seconds",
				Help:    "Time spent handling commands",
				Buckets: prometheus.DefBuckets,
			},
			[]string{"command"},
		),
		ActiveSessions: prometheus.NewGauge(
			prometheus.GaugeOpts{
				Name: "groovebot_active_sessions",
				Help: "Number of guilds with a playback session",
			},
		),
		VoiceConnections: prometheus.NewGauge(
			prometheus.GaugeOpts{
				Name: "groovebot_voice_connections",
				Help: "Number of live voice connections",
			},
		),
		QueuedTracks: prometheus.NewGauge(
			prometheus.GaugeOpts{
				Name: "groovebot_queued_tracks",
				Help: "Total tracks queued across all guilds",
			},
		),
	}

	reg.MustRegister(
		metrics.CommandsTotal,
		metrics.TracksPlayedTotal,
		metrics.SearchesTotal,
		metrics.ResolutionFailuresTotal,
		metrics.TransportErrorsTotal,
		metrics.FloodBlockedTotal,
		metrics.CommandDuration,
		metrics.ActiveSessions,
		metrics.VoiceConnections,
		metrics.QueuedTracks,
	)

	return metrics
}

func setupRoutes(registry *prometheus.Registry) *http.ServeMux {
	mux := http.NewServeMux()

	mux.HandleFunc("/healthz", func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte(`{"status":"ok","service":"groovebot"}`))
	})

	mux.HandleFunc("/readyz", func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte(`{"status":"ready","service":"groovebot"}`))
	})

	mux.Handle("/metrics", promhttp.HandlerFor(registry, promhttp.HandlerOpts{}))

	return mux
}

func createHTTPServer(config *player.ServerConfig, mux *http.ServeMux) *http.Server {
	return &http.Server{
		Addr:         fmt.Sprintf("%s:%d", config.Host, config.Port),
		Handler:      mux,
		ReadTimeout:  config.ReadTimeout,
		WriteTimeout: config.WriteTimeout,
	}
}

// NewServer creates the operational HTTP server. Each server carries its own
// Prometheus registry.
func NewServer(config *player.ServerConfig, logger *zap.Logger) *Server {
	registry := prometheus.NewRegistry()
	metrics := newMetrics(registry)
	mux := setupRoutes(registry)

	return &Server{
		config:  config,
		logger:  logger,
		server:  createHTTPServer(config, mux),
		metrics: metrics,
	}
}

// Start serves until the context is cancelled, then shuts down gracefully.
func (s *Server) Start(ctx context.Context) error {
	s.logger.Info("Starting HTTP server",
		zap.String("addr", s.server.Addr))

	go func() {
		<-ctx.Done()
		s.logger.Info("Shutting down HTTP server")

		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()

		if err := s.server.Shutdown(shutdownCtx); err != nil {
			s.logger.Error("Failed to shutdown HTTP server gracefully", zap.Error(err))
		}
	}()

	if err := s.server.ListenAndServe(); err != http.ErrServerClosed {
		return fmt.Errorf("HTTP server failed: %w", err)
	}

	return nil
}

func (s *Server) GetMetrics() *Metrics {
	return s.metrics
}

func (s *Server) RecordCommand(command, status string) {
	s.metrics.CommandsTotal.WithLabelValues(command, status).Inc()
}

func (s *Server) RecordTrackPlayed() {
	s.metrics.TracksPlayedTotal.Inc()
}

func (s *Server) RecordSearch(status string) {
	s.metrics.SearchesTotal.WithLabelValues(status).Inc()
}

func (s *Server) RecordResolutionFailure() {
	s.metrics.ResolutionFailuresTotal.Inc()
}

func (s *Server) RecordTransportError() {
	s.metrics.TransportErrorsTotal.Inc()
}

func (s *Server) RecordFloodBlocked() {
	s.metrics.FloodBlockedTotal.Inc()
}

func (s *Server) RecordCommandDuration(command string, duration time.Duration) {
	s.metrics.CommandDuration.WithLabelValues(command).Observe(duration.Seconds())
}

func (s *Server) SetActiveSessions(count int) {
	s.metrics.ActiveSessions.Set(float64(count))
}

func (s *Server) SetVoiceConnections(count int) {
	s.metrics.VoiceConnections.Set(float64(count))
}

func (s *Server) SetQueuedTracks(count int) {
	s.metrics.QueuedTracks.Set(float64(count))
}
