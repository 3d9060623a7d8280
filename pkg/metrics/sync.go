package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// SyncJobMetrics records durations and outcomes for supplier sync runs.
type SyncJobMetrics struct {
	duration      *prometheus.HistogramVec
	success       *prometheus.CounterVec
	failure       *prometheus.CounterVec
	skusProcessed *prometheus.CounterVec
}

// NewSyncJobMetrics registers the sync job metrics on the provided registerer.
func NewSyncJobMetrics(reg prometheus.Registerer) *SyncJobMetrics {
	if reg == nil {
		return &SyncJobMetrics{}
	}
	duration := prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "sync_job_duration_seconds",
		Help:    "Duration of supplier sync runs in seconds.",
		Buckets: prometheus.DefBuckets,
	}, []string{"job"})
	success := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "sync_job_success",
		Help: "Successful supplier sync runs.",
	}, []string{"job"})
	failure := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "sync_job_failure",
		Help: "Failed supplier sync runs.",
	}, []string{"job"})
	skus := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "sync_skus_processed_total",
		Help: "SKUs processed by supplier sync runs.",
	}, []string{"job"})
	reg.MustRegister(duration, success, failure, skus)
	return &SyncJobMetrics{
		duration:      duration,
		success:       success,
		failure:       failure,
		skusProcessed: skus,
	}
}

// ObserveDuration records the duration for the named job.
func (s *SyncJobMetrics) ObserveDuration(job string, duration time.Duration) {
	if s == nil || s.duration == nil {
		return
	}
	s.duration.WithLabelValues(normalizeLabel(job)).Observe(duration.Seconds())
}

// IncSuccess increments the success counter for the named job.
func (s *SyncJobMetrics) IncSuccess(job string) {
	if s == nil || s.success == nil {
		return
	}
	s.success.WithLabelValues(normalizeLabel(job)).Inc()
}

// IncFailure increments the failure counter for the named job.
func (s *SyncJobMetrics) IncFailure(job string) {
	if s == nil || s.failure == nil {
		return
	}
	s.failure.WithLabelValues(normalizeLabel(job)).Inc()
}

// AddSKUsProcessed adds to the processed SKU counter for the named job.
func (s *SyncJobMetrics) AddSKUsProcessed(job string, n int) {
	if s == nil || s.skusProcessed == nil || n <= 0 {
		return
	}
	s.skusProcessed.WithLabelValues(normalizeLabel(job)).Add(float64(n))
}

func normalizeLabel(job string) string {
	if job == "" {
		return "unknown"
	}
	return job
}
