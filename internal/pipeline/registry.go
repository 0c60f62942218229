package pipeline

import (
	"github.com/sirupsen/logrus"

	"github.com/inferloop/dataforge/internal/anomaly"
	"github.com/inferloop/dataforge/internal/mapping"
	"github.com/inferloop/dataforge/internal/observability/metrics"
	"github.com/inferloop/dataforge/internal/pipeline/stages"
	"github.com/inferloop/dataforge/internal/schema"
	"github.com/inferloop/dataforge/internal/transform"
	"github.com/inferloop/dataforge/pkg/interfaces"
	"github.com/inferloop/dataforge/pkg/models"
)

// DefaultStages assembles the standard stage sequence. The reasoner may be
// nil; everything else is required. maxErrorRate <= 0 uses the validation
// stage's default ceiling.
func DefaultStages(source interfaces.RecordSource, sink interfaces.WarehouseSink, reasoner interfaces.ReasoningClient, maxErrorRate float64, m *metrics.PipelineMetrics, logger *logrus.Logger) []StageRegistration {
	return []StageRegistration{
		{
			Stage: stages.NewIngestStage(source, logger),
			Step:  "INGESTION",
		},
		{
			Stage:     stages.NewDiscoverStage(schema.NewInferrer(logger), anomaly.NewEngine(logger), logger),
			Step:      "SCHEMA_INFERENCE",
			OnSuccess: models.StatusSchemaDiscovered,
		},
		{
			Stage:     stages.NewMapStage(mapping.NewMapper(logger), reasoner, logger),
			Step:      "FIELD_MAPPING",
			OnSuccess: models.StatusMapped,
		},
		{
			Stage:     stages.NewTransformStage(transform.NewPlanner(logger), transform.NewExecutor(logger), logger),
			Step:      "TRANSFORMATION",
			OnSuccess: models.StatusTransformed,
		},
		{
			Stage:     stages.NewValidateStage(maxErrorRate, logger),
			Step:      "VALIDATION",
			OnSuccess: models.StatusValidated,
		},
		{
			Stage:     stages.NewLoadStage(sink, logger),
			Step:      "LOAD",
			OnSuccess: models.StatusLoaded,
		},
		{
			Stage: stages.NewAuditStage(m, logger),
			Step:  "AUDIT",
		},
	}
}
