package stages

import (
	"context"
	"fmt"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/inferloop/dataforge/internal/mapping"
	apperrors "github.com/inferloop/dataforge/pkg/errors"
	"github.com/inferloop/dataforge/pkg/interfaces"
	"github.com/inferloop/dataforge/pkg/models"
)

// MapStage derives the canonical field mappings. A reasoning client, when
// configured, may contribute rationale text for one mapping; its output is
// advisory only and a failed or malformed suggestion never fails the stage.
type MapStage struct {
	mapper   *mapping.Mapper
	reasoner interfaces.ReasoningClient
	logger   *logrus.Logger
}

func NewMapStage(mapper *mapping.Mapper, reasoner interfaces.ReasoningClient, logger *logrus.Logger) *MapStage {
	if logger == nil {
		logger = logrus.New()
	}
	return &MapStage{mapper: mapper, reasoner: reasoner, logger: logger}
}

func (s *MapStage) Name() string { return "map" }

func (s *MapStage) Execute(ctx context.Context, job *models.Job) (*models.Job, error) {
	if job.Schema == nil {
		return nil, apperrors.NewStageError(apperrors.CodeMappingFailed, "no schema contract on job")
	}

	mappings := s.mapper.Map(job.Schema, job.TargetDataset)

	if s.reasoner != nil {
		s.applySuggestion(ctx, job, mappings)
	}

	job.Mappings = mappings
	if job.MappingVersion == "" {
		job.MappingVersion = fmt.Sprintf("m1_%d", time.Now().UnixMilli())
	}

	job.ReportCounts(job.Statistics.TotalRecordsRead, int64(len(mappings)))
	return job, nil
}

func (s *MapStage) applySuggestion(ctx context.Context, job *models.Job, mappings []models.FieldMapping) {
	suggestion, err := s.reasoner.Suggest(ctx, job.Schema, job.TargetDataset)
	if err != nil {
		s.logger.WithError(err).WithField("job_id", job.ID).Warn("Reasoning suggestion unavailable")
		return
	}
	for i := range mappings {
		if mappings[i].SourceField != suggestion.SourceField {
			continue
		}
		if suggestion.Rationale != "" {
			mappings[i].Rationale = suggestion.Rationale
		}
		s.logger.WithFields(logrus.Fields{
			"job_id":       job.ID,
			"source_field": suggestion.SourceField,
			"confidence":   suggestion.Confidence,
		}).Info("Applied reasoning rationale to mapping")
		return
	}
}
