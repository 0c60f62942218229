package stages

import (
	"context"

	"github.com/sirupsen/logrus"

	apperrors "github.com/inferloop/dataforge/pkg/errors"
	"github.com/inferloop/dataforge/pkg/interfaces"
	"github.com/inferloop/dataforge/pkg/models"
)

// LoadStage renames cleaned rows to their canonical fields and bulk-loads
// them into the warehouse sink.
type LoadStage struct {
	sink   interfaces.WarehouseSink
	logger *logrus.Logger
}

func NewLoadStage(sink interfaces.WarehouseSink, logger *logrus.Logger) *LoadStage {
	if logger == nil {
		logger = logrus.New()
	}
	return &LoadStage{sink: sink, logger: logger}
}

func (s *LoadStage) Name() string { return "load" }

func (s *LoadStage) Execute(ctx context.Context, job *models.Job) (*models.Job, error) {
	if err := s.sink.EnsureTarget(ctx, job.TargetDataset, job.TargetTable, job.Schema); err != nil {
		return nil, apperrors.WrapError(err,
			apperrors.ErrorTypeStage, apperrors.CodeLoadFailed, "target provisioning failed")
	}

	fieldOrder, rows := canonicalRows(job)
	loaded, err := s.sink.Load(ctx, job.TargetDataset, job.TargetTable, fieldOrder, rows)
	if err != nil {
		return nil, apperrors.WrapError(err,
			apperrors.ErrorTypeStage, apperrors.CodeLoadFailed, "bulk load failed")
	}

	job.AddRecordsLoaded(loaded)
	job.ReportCounts(int64(len(rows)), loaded)
	s.logger.WithFields(logrus.Fields{
		"job_id": job.ID,
		"table":  job.TargetTable,
		"loaded": loaded,
	}).Info("Records loaded")
	return job, nil
}

// canonicalRows renames each row's source fields to their canonical names.
// Unmapped fields keep their source name.
func canonicalRows(job *models.Job) ([]string, []map[string]interface{}) {
	rename := make(map[string]string, len(job.Mappings))
	for _, fm := range job.Mappings {
		rename[fm.SourceField] = fm.CanonicalField
	}

	fieldOrder := make([]string, 0, len(job.FieldOrder))
	for _, name := range job.FieldOrder {
		if canonical, ok := rename[name]; ok {
			fieldOrder = append(fieldOrder, canonical)
		} else {
			fieldOrder = append(fieldOrder, name)
		}
	}

	rows := make([]map[string]interface{}, 0, len(job.CleanedRows))
	for _, row := range job.CleanedRows {
		out := make(map[string]interface{}, len(row))
		for field, value := range row {
			if canonical, ok := rename[field]; ok {
				out[canonical] = value
			} else {
				out[field] = value
			}
		}
		rows = append(rows, out)
	}
	return fieldOrder, rows
}
