package stages

import (
	"context"
	"fmt"

	"github.com/sirupsen/logrus"

	"github.com/inferloop/dataforge/internal/observability/metrics"
	"github.com/inferloop/dataforge/internal/quality"
	"github.com/inferloop/dataforge/pkg/models"
)

// AuditStage scores the finished run and renders the audit scorecard. It
// runs last; the conductor promotes the job to COMPLETED afterwards.
type AuditStage struct {
	scorer  *quality.Scorer
	metrics *metrics.PipelineMetrics
	// store receives the rendered scorecard and returns its location.
	// Defaults to logging the card and returning a synthetic path.
	store  func(job *models.Job, card string) (string, error)
	logger *logrus.Logger
}

func NewAuditStage(m *metrics.PipelineMetrics, logger *logrus.Logger) *AuditStage {
	if logger == nil {
		logger = logrus.New()
	}
	s := &AuditStage{scorer: quality.NewScorer(), metrics: m, logger: logger}
	s.store = func(job *models.Job, card string) (string, error) {
		s.logger.WithField("job_id", job.ID).Infof("Audit report:\n%s", card)
		return fmt.Sprintf("audit/%s/audit.log", job.ID), nil
	}
	return s
}

// WithStore overrides where scorecards are persisted.
func (s *AuditStage) WithStore(store func(job *models.Job, card string) (string, error)) *AuditStage {
	s.store = store
	return s
}

func (s *AuditStage) Name() string { return "audit" }

func (s *AuditStage) Execute(_ context.Context, job *models.Job) (*models.Job, error) {
	dq := s.scorer.DataQualityScore(job)
	compliance := s.scorer.ComplianceScore(job)

	card := s.scorer.RenderScorecard(job, dq, compliance)
	path, err := s.store(job, card)
	if err != nil {
		return nil, err
	}
	job.AuditLogPath = path

	for _, f := range job.Findings {
		s.metrics.ObserveFinding(f)
	}
	s.metrics.ObserveRecords("read", job.Statistics.TotalRecordsRead)
	s.metrics.ObserveRecords("loaded", job.Statistics.TotalRecordsLoaded)
	s.metrics.ObserveRecords("rejected", job.Statistics.TotalRecordsRejected)
	s.metrics.ObserveRecords("deduplicated", job.Statistics.TotalRecordsDeduplicated)

	job.ReportCounts(job.Statistics.TotalRecordsRead, 1)
	s.logger.WithFields(logrus.Fields{
		"job_id":           job.ID,
		"quality_score":    dq,
		"compliance_score": compliance,
	}).Info("Audit complete")
	return job, nil
}
