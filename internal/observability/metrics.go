package observability

import (
	"sync"

	"github.com/prometheus/client_golang/prometheus"
)

var (
	registerOnce           sync.Once
	recordSubmissionsTotal *prometheus.CounterVec
	approvalDecisionsTotal *prometheus.CounterVec
	uploadLatencySeconds   *prometheus.HistogramVec
	statsCacheTotal        *prometheus.CounterVec
	signInsTotal           *prometheus.CounterVec
	adminRequestsTotal     *prometheus.CounterVec
	adminLatencySeconds    *prometheus.HistogramVec
	adminErrorsTotal       *prometheus.CounterVec
)

// RegisterMetrics initialises the Prometheus collectors for the record workflow.
func RegisterMetrics() {
	registerOnce.Do(func() {
		recordSubmissionsTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "record_submissions_total",
			Help: "Total number of record submissions, by type and result.",
		}, []string{"type", "result"})

		approvalDecisionsTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "record_approval_decisions_total",
			Help: "Total number of admin approval decisions, by decision and result.",
		}, []string{"decision", "result"})

		uploadLatencySeconds = prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "record_upload_latency_seconds",
			Help:    "Latency distribution for record attachment uploads.",
			Buckets: []float64{0.1, 0.25, 0.5, 1.0, 2.5, 5.0, 10.0, 30.0},
		}, []string{"result"})

		statsCacheTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "record_stats_cache_total",
			Help: "Stats lookups, by cache outcome.",
		}, []string{"outcome"})

		signInsTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "auth_sign_ins_total",
			Help: "Total number of sign-in attempts, by result.",
		}, []string{"result"})

		adminRequestsTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "admin_requests_total",
			Help: "Total number of admin API requests served.",
		}, []string{"method", "route", "status"})

		adminLatencySeconds = prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "admin_latency_seconds",
			Help:    "Latency distribution for admin API requests.",
			Buckets: []float64{0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1.0, 2.0},
		}, []string{"method", "route"})

		adminErrorsTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "admin_errors_total",
			Help: "Total number of error responses returned by admin endpoints.",
		}, []string{"method", "route", "status"})

		prometheus.MustRegister(
			recordSubmissionsTotal,
			approvalDecisionsTotal,
			uploadLatencySeconds,
			statsCacheTotal,
			signInsTotal,
			adminRequestsTotal,
			adminLatencySeconds,
			adminErrorsTotal,
		)
	})
}

// RecordSubmissions exposes the submission counter.
func RecordSubmissions() *prometheus.CounterVec {
	RegisterMetrics()
	return recordSubmissionsTotal
}

// ApprovalDecisions exposes the decision counter.
func ApprovalDecisions() *prometheus.CounterVec {
	RegisterMetrics()
	return approvalDecisionsTotal
}

// UploadLatency exposes the upload latency histogram.
func UploadLatency() *prometheus.HistogramVec {
	RegisterMetrics()
	return uploadLatencySeconds
}

// StatsCache exposes the stats cache outcome counter.
func StatsCache() *prometheus.CounterVec {
	RegisterMetrics()
	return statsCacheTotal
}

// SignIns exposes the sign-in attempt counter.
func SignIns() *prometheus.CounterVec {
	RegisterMetrics()
	return signInsTotal
}

// AdminRequests exposes the counter for admin requests.
func AdminRequests() *prometheus.CounterVec {
	RegisterMetrics()
	return adminRequestsTotal
}

// AdminLatency exposes the latency histogram for admin requests.
func AdminLatency() *prometheus.HistogramVec {
	RegisterMetrics()
	return adminLatencySeconds
}

// AdminErrors exposes the counter for admin error responses.
func AdminErrors() *prometheus.CounterVec {
	RegisterMetrics()
	return adminErrorsTotal
}
