// Package http exposes the dispatcher over a JSON API with prometheus
// metrics and health endpoints.
package http

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"

	"autodj/internal/core"
	"autodj/internal/events"
)

type Server struct {
	config     *core.ServerConfig
	logger     *zap.Logger
	server     *http.Server
	metrics    *Metrics
	dispatcher *core.Dispatcher
}

type Metrics struct {
	ResolvesTotal    *prometheus.CounterVec
	RateLimitedTotal prometheus.Counter
	TimeoutsTotal    prometheus.Counter
	ResolveDuration  *prometheus.HistogramVec
	EventsTotal      *prometheus.CounterVec
	HistorySize      prometheus.Gauge

	registry *prometheus.Registry
}

func newMetrics() *Metrics {
	m := &Metrics{
		ResolvesTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "autodj_resolves_total",
				Help: "Total number of next-track resolutions",
			},
			[]string{"source", "status"},
		),
		RateLimitedTotal: prometheus.NewCounter(
			prometheus.CounterOpts{
				Name: "autodj_rate_limited_total",
				Help: "Total number of rate-limited resolution attempts",
			},
		),
		TimeoutsTotal: prometheus.NewCounter(
			prometheus.CounterOpts{
				Name: "autodj_timeouts_total",
				Help: "Total number of timed-out resolutions",
			},
		),
		ResolveDuration: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "autodj_resolve_duration_seconds",
				Help:    "Time spent resolving next tracks",
				Buckets: prometheus.DefBuckets,
			},
			[]string{"source"},
		),
		EventsTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "autodj_events_total",
				Help: "Total number of autoplay events emitted",
			},
			[]string{"type"},
		),
		HistorySize: prometheus.NewGauge(
			prometheus.GaugeOpts{
				Name: "autodj_history_consumers",
				Help: "Number of consumers with non-empty exclusion history",
			},
		),
		registry: prometheus.NewRegistry(),
	}

	m.registry.MustRegister(
		m.ResolvesTotal,
		m.RateLimitedTotal,
		m.TimeoutsTotal,
		m.ResolveDuration,
		m.EventsTotal,
		m.HistorySize,
	)

	return m
}

// NewServer builds the API server. When a bus is supplied, event counts
// are recorded from a wildcard subscription.
func NewServer(config *core.ServerConfig, dispatcher *core.Dispatcher, bus *events.Bus, logger *zap.Logger) *Server {
	metrics := newMetrics()

	if bus != nil {
		bus.SubscribeAll(func(e events.Event) {
			metrics.EventsTotal.WithLabelValues(string(e.Type)).Inc()
			switch e.Type {
			case events.RateLimited:
				metrics.RateLimitedTotal.Inc()
			case events.Timeout:
				metrics.TimeoutsTotal.Inc()
			}
		})
	}

	s := &Server{
		config:     config,
		logger:     logger,
		metrics:    metrics,
		dispatcher: dispatcher,
	}

	mux := http.NewServeMux()
	mux.HandleFunc("POST /v1/next", s.handleNext)
	mux.HandleFunc("GET /v1/providers", s.handleProviders)
	mux.HandleFunc("GET /v1/ratelimit", s.handleRateLimitStatus)
	mux.HandleFunc("DELETE /v1/ratelimit", s.handleClearRateLimit)
	mux.HandleFunc("DELETE /v1/history", s.handleClearHistory)

	mux.HandleFunc("/healthz", func(w http.ResponseWriter, _ *http.Request) {
		writeJSON(w, http.StatusOK, map[string]string{"status": "ok", "service": "autodj"})
	})
	mux.HandleFunc("/readyz", func(w http.ResponseWriter, _ *http.Request) {
		writeJSON(w, http.StatusOK, map[string]string{"status": "ready", "service": "autodj"})
	})
	mux.Handle("/metrics", promhttp.HandlerFor(metrics.registry, promhttp.HandlerOpts{}))

	s.server = &http.Server{
		Addr:         fmt.Sprintf("%s:%d", config.Host, config.Port),
		Handler:      mux,
		ReadTimeout:  config.ReadTimeout,
		WriteTimeout: config.WriteTimeout,
	}

	return s
}

// Handler exposes the mux for tests.
func (s *Server) Handler() http.Handler {
	return s.server.Handler
}

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

	if err := s.server.ListenAndServe(); !errors.Is(err, http.ErrServerClosed) {
		return fmt.Errorf("HTTP server failed: %w", err)
	}

	return nil
}

// SetHistoryConsumers updates the history gauge.
func (s *Server) SetHistoryConsumers(n int) {
	s.metrics.HistorySize.Set(float64(n))
}

type nextRequest struct {
	Track      *trackPayload `json:"track"`
	ConsumerID string        `json:"consumerId"`
	Source     string        `json:"source"`
}

type trackPayload struct {
	Identifier string `json:"identifier"`
	SourceName string `json:"sourceName"`
	URI        string `json:"uri"`
	Title      string `json:"title"`
	Author     string `json:"author"`
	LengthMS   int64  `json:"lengthMs"`
	IsStream   bool   `json:"isStream"`
	PositionMS int64  `json:"positionMs"`
}

func (s *Server) handleNext(w http.ResponseWriter, r *http.Request) {
	var req nextRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid request body"})
		return
	}

	var track *core.TrackInfo
	if req.Track != nil {
		track = &core.TrackInfo{
			Identifier: req.Track.Identifier,
			SourceName: req.Track.SourceName,
			URI:        req.Track.URI,
			Title:      req.Track.Title,
			Author:     req.Track.Author,
			Length:     time.Duration(req.Track.LengthMS) * time.Millisecond,
			IsStream:   req.Track.IsStream,
			Position:   time.Duration(req.Track.PositionMS) * time.Millisecond,
		}
	}

	start := time.Now()

	var result *core.AutoplayResult
	var err error
	if req.Source != "" {
		src, ok := core.ParseSource(req.Source)
		if !ok {
			writeJSON(w, http.StatusBadRequest, map[string]string{
				"error": fmt.Sprintf("unknown source: %s", req.Source),
			})
			return
		}
		result, err = s.dispatcher.NextTrackForSource(r.Context(), track, src, req.ConsumerID)
	} else {
		result, err = s.dispatcher.NextTrack(r.Context(), track, req.ConsumerID)
	}

	if err != nil {
		// Only programmer-error inputs raise; surface them as bad requests.
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": err.Error()})
		return
	}

	status := "failure"
	if result.Success {
		status = "success"
	}
	s.metrics.ResolvesTotal.WithLabelValues(string(result.Source), status).Inc()
	s.metrics.ResolveDuration.WithLabelValues(string(result.Source)).Observe(time.Since(start).Seconds())

	writeJSON(w, http.StatusOK, result)
}

func (s *Server) handleProviders(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{
		"providers": s.dispatcher.ProviderInfo(),
	})
}

func (s *Server) handleRateLimitStatus(w http.ResponseWriter, _ *http.Request) {
	status := s.dispatcher.RateLimitStatus()
	out := make(map[string]int64, len(status))
	for src, t := range status {
		out[string(src)] = t.UnixMilli()
	}
	writeJSON(w, http.StatusOK, map[string]any{"lastRequestMs": out})
}

func (s *Server) handleClearRateLimit(w http.ResponseWriter, r *http.Request) {
	if name := r.URL.Query().Get("source"); name != "" {
		src, ok := core.ParseSource(name)
		if !ok {
			writeJSON(w, http.StatusBadRequest, map[string]string{
				"error": fmt.Sprintf("unknown source: %s", name),
			})
			return
		}
		s.dispatcher.ClearRateLimit(src)
	} else {
		s.dispatcher.ClearRateLimit()
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "cleared"})
}

func (s *Server) handleClearHistory(w http.ResponseWriter, r *http.Request) {
	if consumer := r.URL.Query().Get("consumer"); consumer != "" {
		s.dispatcher.ClearHistory(consumer)
	} else {
		s.dispatcher.ClearHistory()
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "cleared"})
}

func writeJSON(w http.ResponseWriter, status int, body any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(body)
}
