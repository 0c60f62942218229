package stages

import (
	"context"
	"fmt"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/inferloop/dataforge/internal/anomaly"
	"github.com/inferloop/dataforge/internal/schema"
	"github.com/inferloop/dataforge/pkg/models"
)

// DiscoverStage infers the schema contract from the ingested sample and
// profiles the full row set for anomalies.
type DiscoverStage struct {
	inferrer *schema.Inferrer
	engine   *anomaly.Engine
	logger   *logrus.Logger
}

func NewDiscoverStage(inferrer *schema.Inferrer, engine *anomaly.Engine, logger *logrus.Logger) *DiscoverStage {
	if logger == nil {
		logger = logrus.New()
	}
	return &DiscoverStage{inferrer: inferrer, engine: engine, logger: logger}
}

func (s *DiscoverStage) Name() string { return "discover" }

func (s *DiscoverStage) Execute(ctx context.Context, job *models.Job) (*models.Job, error) {
	previous := job.Schema

	contract := s.inferrer.InferContract(&models.RecordSet{
		Location:    job.SourcePath,
		Rows:        job.SampleRows,
		FieldOrder:  job.FieldOrder,
		TotalRows:   job.Statistics.TotalRecordsRead,
		Fingerprint: job.Fingerprint,
	})
	job.Schema = contract
	if job.DatasetVersion == "" {
		job.DatasetVersion = fmt.Sprintf("v1_%d", time.Now().UnixMilli())
	}

	if previous != nil {
		if report := schema.CompareContracts(previous, contract); report.Drifted() {
			s.logger.WithFields(logrus.Fields{
				"job_id":         job.ID,
				"added_fields":   report.AddedFields,
				"removed_fields": report.RemovedFields,
				"type_changes":   len(report.TypeChanges),
			}).Warn("Schema drift detected against prior contract")
		}
	}

	job.Findings = s.engine.Profile(ctx, contract, job.Rows)

	job.ReportCounts(job.Statistics.TotalRecordsRead, int64(len(contract.Fields)))
	s.logger.WithFields(logrus.Fields{
		"job_id":   job.ID,
		"fields":   len(contract.Fields),
		"findings": len(job.Findings),
	}).Info("Schema discovered")
	return job, nil
}
