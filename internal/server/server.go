package server

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/odclab/dcmon/internal/lib/logger/sl"
	"github.com/odclab/dcmon/internal/metrics"
	"github.com/odclab/dcmon/internal/model"
	"github.com/odclab/dcmon/internal/refresh"
	"github.com/odclab/dcmon/internal/source"
)

// Views bundles the periodically refreshed snapshots the handlers read from.
type Views struct {
	History     *refresh.View[[]model.CapacityRow]
	CurrentPrev *refresh.View[source.CurrentPrevious]
	Power       *refresh.View[[]model.Reading]
	Temperature *refresh.View[[]model.Reading]
	Scan        *refresh.View[json.RawMessage]
}

type Server struct {
	log           *slog.Logger
	address       string
	server        *http.Server
	source        *source.Client
	views         Views
	defaultMonths int
	checkers      []HealthChecker
	now           func() time.Time
}

// Option configures optional Server behavior.
type Option func(*Server)

// WithNow overrides the clock behind export filenames and monthly windows.
func WithNow(now func() time.Time) Option {
	return func(s *Server) {
		s.now = now
	}
}

func New(log *slog.Logger, address string, src *source.Client, views Views, defaultMonths int, opts ...Option) *Server {
	s := &Server{
		log:           log,
		address:       address,
		source:        src,
		views:         views,
		defaultMonths: defaultMonths,
		now:           time.Now,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

func (s *Server) AddChecker(checker HealthChecker) {
	s.checkers = append(s.checkers, checker)
}

// Handler builds the full route tree; exposed so tests can drive it with
// httptest without binding a port.
func (s *Server) Handler() http.Handler {
	r := chi.NewRouter()

	r.Use(s.metricsMiddleware)

	r.Route("/api", func(r chi.Router) {
		r.Get("/capacity", s.handleCapacity)
		r.Get("/capacity/current-previous", s.handleCurrentPrevious)
		r.Get("/capacity/export", s.handleExport)
		r.Get("/power/series", s.handlePowerSeries)
		r.Get("/temperature/series", s.handleTemperatureSeries)
		r.Get("/monthly/{site}", s.handleMonthly)
		r.Get("/scan", s.handleScan)
	})

	r.Get("/health", s.handleHealth)
	r.Get("/ready", s.handleReady)
	r.Get("/live", s.handleLive)
	r.Handle("/metrics", promhttp.Handler())

	return r
}

func (s *Server) Start() error {
	s.server = &http.Server{
		Addr:         s.address,
		Handler:      s.Handler(),
		ReadTimeout:  5 * time.Second,
		WriteTimeout: 30 * time.Second,
	}

	s.log.Info("starting dashboard server", slog.String("address", s.address))

	go func() {
		if err := s.server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			s.log.Error("dashboard server error", sl.Err(err))
		}
	}()

	return nil
}

func (s *Server) Stop(ctx context.Context) error {
	if s.server == nil {
		return nil
	}
	return s.server.Shutdown(ctx)
}

func (s *Server) metricsMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		ww := &statusWriter{ResponseWriter: w, status: http.StatusOK}

		next.ServeHTTP(ww, r)

		endpoint := r.URL.Path
		if rctx := chi.RouteContext(r.Context()); rctx != nil && rctx.RoutePattern() != "" {
			endpoint = rctx.RoutePattern()
		}

		metrics.HTTPRequests.WithLabelValues(endpoint, r.Method, strconv.Itoa(ww.status)).Inc()
		metrics.HTTPDuration.WithLabelValues(endpoint).Observe(time.Since(start).Seconds())
	})
}

type statusWriter struct {
	http.ResponseWriter
	status int
}

func (w *statusWriter) WriteHeader(status int) {
	w.status = status
	w.ResponseWriter.WriteHeader(status)
}

func (s *Server) respondJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		s.log.Error("failed to encode response", sl.Err(err))
	}
}

func (s *Server) respondError(w http.ResponseWriter, status int, message string) {
	s.respondJSON(w, status, map[string]string{"error": message})
}
