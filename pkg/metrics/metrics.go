package metrics

import (
	"sync/atomic"
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// Recorder instruments backend round-trips and keeps lightweight atomic
// counters for in-console snapshots.
type Recorder struct {
	registry        *prometheus.Registry
	requestTotal    *prometheus.CounterVec
	requestDuration *prometheus.HistogramVec

	requestCount  uint64
	errorCount    uint64
	durationNanos uint64
}

// Snapshot is a point-in-time view of the recorder's counters.
type Snapshot struct {
	Requests   uint64
	Errors     uint64
	AvgLatency time.Duration
}

// NewRecorder registers the backend request collectors.
func NewRecorder() *Recorder {
	registry := prometheus.NewRegistry()

	requestTotal := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "backend_requests_total",
		Help: "Total number of requests issued to the records backend",
	}, []string{"method", "path", "status"})

	requestDuration := prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "backend_request_duration_seconds",
		Help:    "Duration of records backend round-trips in seconds",
		Buckets: prometheus.DefBuckets,
	}, []string{"method", "path"})

	registry.MustRegister(requestTotal, requestDuration)

	return &Recorder{
		registry:        registry,
		requestTotal:    requestTotal,
		requestDuration: requestDuration,
	}
}

// ObserveRequest records one settled backend round-trip. A status of zero
// means the request never reached the backend.
func (r *Recorder) ObserveRequest(method, path string, status int, d time.Duration) {
	if r == nil {
		return
	}
	r.requestTotal.WithLabelValues(method, path, statusLabel(status)).Inc()
	r.requestDuration.WithLabelValues(method, path).Observe(d.Seconds())

	atomic.AddUint64(&r.requestCount, 1)
	atomic.AddUint64(&r.durationNanos, uint64(d.Nanoseconds()))
	if status == 0 || status >= 400 {
		atomic.AddUint64(&r.errorCount, 1)
	}
}

// Snapshot returns current counter values.
func (r *Recorder) Snapshot() Snapshot {
	if r == nil {
		return Snapshot{}
	}
	requests := atomic.LoadUint64(&r.requestCount)
	snap := Snapshot{
		Requests: requests,
		Errors:   atomic.LoadUint64(&r.errorCount),
	}
	if requests > 0 {
		snap.AvgLatency = time.Duration(atomic.LoadUint64(&r.durationNanos) / requests)
	}
	return snap
}

// Registry exposes the underlying prometheus registry.
func (r *Recorder) Registry() *prometheus.Registry {
	return r.registry
}

func statusLabel(status int) string {
	if status == 0 {
		return "transport_error"
	}
	switch {
	case status < 200:
		return "1xx"
	case status < 300:
		return "2xx"
	case status < 400:
		return "3xx"
	case status < 500:
		return "4xx"
	default:
		return "5xx"
	}
}
