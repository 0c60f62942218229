package stages

import (
	"context"

	"github.com/sirupsen/logrus"

	"github.com/inferloop/dataforge/internal/transform"
	apperrors "github.com/inferloop/dataforge/pkg/errors"
	"github.com/inferloop/dataforge/pkg/models"
)

// TransformStage plans the transformation spec from the contract and
// findings, then applies it to the ingested rows.
type TransformStage struct {
	planner  *transform.Planner
	executor *transform.Executor
	logger   *logrus.Logger
}

func NewTransformStage(planner *transform.Planner, executor *transform.Executor, logger *logrus.Logger) *TransformStage {
	if logger == nil {
		logger = logrus.New()
	}
	return &TransformStage{planner: planner, executor: executor, logger: logger}
}

func (s *TransformStage) Name() string { return "transform" }

func (s *TransformStage) Execute(_ context.Context, job *models.Job) (*models.Job, error) {
	if job.Schema == nil {
		return nil, apperrors.NewStageError(apperrors.CodeTransformFailed, "no schema contract on job")
	}

	spec := s.planner.Plan(job.Schema, job.Findings)
	job.Transform = spec

	res := s.executor.Apply(spec, job.Rows)
	job.CleanedRows = res.Rows
	job.AddRecordsRejected(res.Rejected)
	job.AddRecordsDeduplicated(res.Deduplicated)
	for _, rec := range res.Errors {
		job.AppendError(rec)
	}

	job.ReportCounts(int64(len(job.Rows)), int64(len(res.Rows)))
	return job, nil
}
