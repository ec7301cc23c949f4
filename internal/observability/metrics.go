package observability

import (
	"net/http"
	"strconv"
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	registerOnce sync.Once

	httpRequests = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "wlmlink",
			Subsystem: "gateway",
			Name:      "requests_total",
			Help:      "Total update gateway requests.",
		},
		[]string{"method", "path", "status"},
	)
	httpDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: "wlmlink",
			Subsystem: "gateway",
			Name:      "request_duration_seconds",
			Help:      "Update gateway request duration in seconds.",
			Buckets:   prometheus.DefBuckets,
		},
		[]string{"method", "path", "status"},
	)
	linkReplies = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "wlmlink",
			Subsystem: "link",
			Name:      "replies_total",
			Help:      "Control replies written, by request task.",
		},
		[]string{"task"},
	)
	linkSessionsEnded = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "wlmlink",
			Subsystem: "link",
			Name:      "sessions_ended_total",
			Help:      "Control sessions ended, by reason.",
		},
		[]string{"reason"},
	)
	linkSessionsActive = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Namespace: "wlmlink",
			Subsystem: "link",
			Name:      "sessions_active",
			Help:      "Control sessions currently connected.",
		},
	)
	wavelengthUpdates = prometheus.NewCounter(
		prometheus.CounterOpts{
			Namespace: "wlmlink",
			Subsystem: "wavelength",
			Name:      "updates_total",
			Help:      "Wavelength values set through the update gateway.",
		},
	)
)

func RegisterMetrics() {
	registerOnce.Do(func() {
		prometheus.MustRegister(
			httpRequests,
			httpDuration,
			linkReplies,
			linkSessionsEnded,
			linkSessionsActive,
			wavelengthUpdates,
		)
	})
}

// Handler serves the default registry.
func Handler() http.Handler {
	RegisterMetrics()
	return promhttp.Handler()
}

func RecordHTTPRequest(method, path string, status int, duration time.Duration) {
	RegisterMetrics()
	statusLabel := strconv.Itoa(status)
	httpRequests.WithLabelValues(method, path, statusLabel).Inc()
	httpDuration.WithLabelValues(method, path, statusLabel).Observe(duration.Seconds())
}

func RecordReply(task string) {
	RegisterMetrics()
	linkReplies.WithLabelValues(task).Inc()
}

func SessionStarted() {
	RegisterMetrics()
	linkSessionsActive.Inc()
}

func SessionEnded(reason string) {
	RegisterMetrics()
	linkSessionsActive.Dec()
	linkSessionsEnded.WithLabelValues(reason).Inc()
}

func RecordWavelengthUpdate() {
	RegisterMetrics()
	wavelengthUpdates.Inc()
}
