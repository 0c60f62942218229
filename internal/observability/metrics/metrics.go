// Package metrics exposes Prometheus collectors for the pipeline engine.
package metrics

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/inferloop/dataforge/pkg/models"
)

const namespace = "dataforge"

// PipelineMetrics collects job, stage, and detector level metrics. All
// methods are nil-safe so callers can run without metrics wired.
type PipelineMetrics struct {
	registry *prometheus.Registry

	jobsTotal       *prometheus.CounterVec
	jobDuration     prometheus.Histogram
	stageDuration   *prometheus.HistogramVec
	stageRetries    *prometheus.CounterVec
	recordsTotal    *prometheus.CounterVec
	findingsTotal   *prometheus.CounterVec
	qualityScore    prometheus.Histogram
	complianceScore prometheus.Histogram
}

// NewPipelineMetrics registers all collectors on a private registry.
func NewPipelineMetrics() *PipelineMetrics {
	registry := prometheus.NewRegistry()

	m := &PipelineMetrics{
		registry: registry,
		jobsTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "jobs_total",
			Help:      "Pipeline jobs by terminal status",
		}, []string{"status"}),
		jobDuration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "job_duration_seconds",
			Help:      "End to end pipeline duration",
			Buckets:   prometheus.ExponentialBuckets(0.1, 2, 12),
		}),
		stageDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "stage_duration_seconds",
			Help:      "Stage execution duration",
			Buckets:   prometheus.ExponentialBuckets(0.01, 2, 12),
		}, []string{"stage", "outcome"}),
		stageRetries: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "stage_retries_total",
			Help:      "Stage attempts beyond the first",
		}, []string{"stage"}),
		recordsTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "records_total",
			Help:      "Record counts by disposition",
		}, []string{"disposition"}),
		findingsTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "anomaly_findings_total",
			Help:      "Anomaly findings by type and severity",
		}, []string{"type", "severity"}),
		qualityScore: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "quality_score",
			Help:      "Data quality score distribution",
			Buckets:   prometheus.LinearBuckets(0, 10, 11),
		}),
		complianceScore: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "compliance_score",
			Help:      "Compliance score distribution",
			Buckets:   prometheus.LinearBuckets(0, 10, 11),
		}),
	}

	registry.MustRegister(
		m.jobsTotal,
		m.jobDuration,
		m.stageDuration,
		m.stageRetries,
		m.recordsTotal,
		m.findingsTotal,
		m.qualityScore,
		m.complianceScore,
	)
	return m
}

// Handler serves the registry in Prometheus exposition format.
func (m *PipelineMetrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}

func (m *PipelineMetrics) ObserveJob(status models.JobStatus, duration time.Duration) {
	if m == nil {
		return
	}
	m.jobsTotal.WithLabelValues(string(status)).Inc()
	m.jobDuration.Observe(duration.Seconds())
}

func (m *PipelineMetrics) ObserveStage(stage, outcome string, duration time.Duration) {
	if m == nil {
		return
	}
	m.stageDuration.WithLabelValues(stage, outcome).Observe(duration.Seconds())
}

func (m *PipelineMetrics) ObserveRetry(stage string) {
	if m == nil {
		return
	}
	m.stageRetries.WithLabelValues(stage).Inc()
}

func (m *PipelineMetrics) ObserveRecords(disposition string, n int64) {
	if m == nil || n <= 0 {
		return
	}
	m.recordsTotal.WithLabelValues(disposition).Add(float64(n))
}

func (m *PipelineMetrics) ObserveFinding(f models.AnomalyFinding) {
	if m == nil {
		return
	}
	m.findingsTotal.WithLabelValues(string(f.Type), string(f.Severity)).Inc()
}

func (m *PipelineMetrics) ObserveScores(quality, compliance float64) {
	if m == nil {
		return
	}
	m.qualityScore.Observe(quality)
	m.complianceScore.Observe(compliance)
}
