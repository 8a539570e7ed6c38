package metrics

import (
    "sync"
    "time"

    "github.com/prometheus/client_golang/prometheus"
)

var (
    once sync.Once

    EndpointLatency = prometheus.NewHistogramVec(
        prometheus.HistogramOpts{
            Namespace: "loadcoach",
            Subsystem: "api",
            Name:      "latency_seconds",
            Help:      "Latency of API endpoints",
            Buckets:   prometheus.DefBuckets,
        },
        []string{"endpoint"},
    )

    EndpointErrors = prometheus.NewCounterVec(
        prometheus.CounterOpts{
            Namespace: "loadcoach",
            Subsystem: "api",
            Name:      "errors_total",
            Help:      "Errors by API endpoint and error code",
        },
        []string{"endpoint", "code"},
    )

    RateLimited = prometheus.NewCounterVec(
        prometheus.CounterOpts{
            Namespace: "loadcoach",
            Subsystem: "api",
            Name:      "rate_limited_total",
            Help:      "Requests rejected by the per-user limiter",
        },
        []string{"endpoint"},
    )
)

// Register adds the API collectors to the default registry once.
func Register() {
    once.Do(func() {
        prometheus.MustRegister(EndpointLatency, EndpointErrors, RateLimited)
    })
}

// Observe records the latency of one call and, when code is non-empty, an error.
func Observe(endpoint string, start time.Time, code string) {
    EndpointLatency.WithLabelValues(endpoint).Observe(time.Since(start).Seconds())
    if code != "" {
        EndpointErrors.WithLabelValues(endpoint, code).Inc()
    }
}
