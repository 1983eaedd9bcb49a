package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"

	"github.com/odclab/dcmon/internal/model"
)

var (
	PowerGauge = promauto.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "lab_power_watts",
			Help: "Latest power reading in watts",
		},
		[]string{"site", "location"},
	)

	TempGauge = promauto.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "lab_temperature_celsius",
			Help: "Latest temperature reading in celsius",
		},
		[]string{"site", "location"},
	)

	HTTPRequests = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "http_requests_total",
			Help: "Total HTTP requests",
		},
		[]string{"endpoint", "method", "status"},
	)

	HTTPDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "http_request_duration_seconds",
			Help:    "HTTP request latency in seconds",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"endpoint"},
	)

	RefreshRuns = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "refresh_runs_total",
			Help: "View refresh runs by outcome",
		},
		[]string{"view", "status"},
	)
)

// ObserveReadings publishes the newest sample per location from a fetched
// collection. Readings arrive unordered, so the latest timestamp wins.
func ObserveReadings(gauge *prometheus.GaugeVec, site string, readings []model.Reading) {
	latest := make(map[string]model.Reading, len(readings))
	for _, r := range readings {
		if prev, ok := latest[r.Location]; !ok || r.Created.After(prev.Created) {
			latest[r.Location] = r
		}
	}

	for location, r := range latest {
		gauge.WithLabelValues(site, location).Set(r.Value)
	}
}

// RecordRefresh counts one refresh run; plugs into the refresh manager.
func RecordRefresh(view string, err error) {
	status := "ok"
	if err != nil {
		status = "error"
	}
	RefreshRuns.WithLabelValues(view, status).Inc()
}
