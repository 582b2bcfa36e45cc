package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/rs/zerolog/log"
)

var (
	HTTPRequestsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "coldwatch_http_requests_total",
			Help: "Total HTTP requests by method, route and status code",
		},
		[]string{"method", "route", "status"},
	)
	HTTPRequestDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "coldwatch_http_request_duration_seconds",
			Help:    "HTTP request latency by route",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"method", "route"},
	)
	ReadingsProcessed = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "coldwatch_readings_processed_total",
			Help: "Readings accepted through the ingestion endpoint",
		},
	)
	ReadingsRejected = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "coldwatch_readings_rejected_total",
			Help: "Readings rejected at ingestion by reason",
		},
		[]string{"reason"},
	)
	AlertsOpened = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "coldwatch_alerts_opened_total",
			Help: "Alerts opened by level",
		},
		[]string{"level"},
	)
	AlertsEscalated = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "coldwatch_alerts_escalated_total",
			Help: "Open warning alerts escalated to critical",
		},
	)
	RateLimited = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "coldwatch_rate_limited_total",
			Help: "Requests rejected by the rate limiter, by class",
		},
		[]string{"class"},
	)
)

// Init registers all collectors with the default registry.
func Init() {
	collectors := []prometheus.Collector{
		HTTPRequestsTotal,
		HTTPRequestDuration,
		ReadingsProcessed,
		ReadingsRejected,
		AlertsOpened,
		AlertsEscalated,
		RateLimited,
	}
	for _, c := range collectors {
		if err := prometheus.Register(c); err != nil {
			log.Error().Err(err).Msg("Failed to register metric")
		}
	}
}
