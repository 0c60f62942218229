// Package stages holds the pipeline stage implementations run by the
// conductor. Stages communicate only through the job they return.
package stages

import (
	"context"

	"github.com/sirupsen/logrus"

	apperrors "github.com/inferloop/dataforge/pkg/errors"
	"github.com/inferloop/dataforge/pkg/interfaces"
	"github.com/inferloop/dataforge/pkg/models"
)

const defaultSampleSize = 10

// IngestStage reads the source location, seeds the job with its rows, a
// bounded sample for inference, and the content fingerprint used for
// idempotent re-runs.
type IngestStage struct {
	source     interfaces.RecordSource
	sampleSize int
	logger     *logrus.Logger
}

func NewIngestStage(source interfaces.RecordSource, logger *logrus.Logger) *IngestStage {
	if logger == nil {
		logger = logrus.New()
	}
	return &IngestStage{source: source, sampleSize: defaultSampleSize, logger: logger}
}

func (s *IngestStage) Name() string { return "ingest" }

func (s *IngestStage) Execute(ctx context.Context, job *models.Job) (*models.Job, error) {
	rs, err := s.source.Fetch(ctx, job.SourcePath, 0)
	if err != nil {
		return nil, apperrors.WrapError(err,
			apperrors.ErrorTypeSource, apperrors.CodeSourceUnreadable, "source fetch failed")
	}
	if len(rs.Rows) == 0 {
		return nil, apperrors.WrapError(apperrors.ErrEmptySource,
			apperrors.ErrorTypeSource, apperrors.CodeSourceUnreadable, "source contains no rows")
	}

	job.Rows = rs.Rows
	job.FieldOrder = rs.FieldOrder
	job.Fingerprint = rs.Fingerprint
	sample := len(rs.Rows)
	if sample > s.sampleSize {
		sample = s.sampleSize
	}
	job.SampleRows = rs.Rows[:sample]

	job.AddRecordsRead(rs.TotalRows)
	job.ReportCounts(rs.TotalRows, rs.TotalRows)

	s.logger.WithFields(logrus.Fields{
		"job_id":      job.ID,
		"source":      job.SourcePath,
		"rows":        rs.TotalRows,
		"fields":      len(rs.FieldOrder),
		"fingerprint": rs.Fingerprint,
	}).Info("Source ingested")
	return job, nil
}
