package metrics

import (
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	backendRequests = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "bracketbot_backend_requests_total",
		Help: "Requests sent to the bracket backend, by operation and status code.",
	}, []string{"operation", "status"})

	backendLatency = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "bracketbot_backend_request_seconds",
		Help:    "Bracket backend request latency.",
		Buckets: prometheus.DefBuckets,
	}, []string{"operation"})

	exports = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "bracketbot_exports_total",
		Help: "Bracket exports produced, by format and outcome.",
	}, []string{"format", "outcome"})

	gateRejections = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "bracketbot_gate_rejections_total",
		Help: "Dispatches rejected because the same action was already in flight.",
	}, []string{"action"})

	uploads = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "bracketbot_kenpom_uploads_total",
		Help: "KenPom files processed by the upload queue, by outcome.",
	}, []string{"outcome"})
)

// ObserveBackend records one backend call. status 0 means the request never got a response.
func ObserveBackend(operation string, status int, elapsed time.Duration) {
	label := "error"
	if status > 0 {
		label = strconv.Itoa(status)
	}
	backendRequests.WithLabelValues(operation, label).Inc()
	backendLatency.WithLabelValues(operation).Observe(elapsed.Seconds())
}

func ObserveExport(format string, err error) {
	outcome := "ok"
	if err != nil {
		outcome = "failed"
	}
	exports.WithLabelValues(format, outcome).Inc()
}

func ObserveGateRejection(action string) {
	gateRejections.WithLabelValues(action).Inc()
}

func ObserveUpload(outcome string) {
	uploads.WithLabelValues(outcome).Inc()
}
