package anomaly

import (
	"context"
	"sort"
	"sync"

	"github.com/sirupsen/logrus"

	"github.com/inferloop/dataforge/pkg/models"
)

// Engine runs every registered detector over every column. Detectors are pure
// and independent, so each column is profiled in its own goroutine; the result
// slice is sorted afterwards to keep output deterministic.
type Engine struct {
	detectors []Detector
	logger    *logrus.Logger
}

func NewEngine(logger *logrus.Logger) *Engine {
	if logger == nil {
		logger = logrus.New()
	}
	return &Engine{
		detectors: []Detector{
			NewOutlierDetector(),
			NewDistributionDetector(),
			NewMissingValueDetector(),
			NewCardinalityDetector(),
		},
		logger: logger,
	}
}

// Profile inspects every field of the contract against the sampled rows and
// returns all findings. A cancelled context stops scheduling further columns
// but never produces partial findings for a column.
func (e *Engine) Profile(ctx context.Context, contract *models.SchemaContract, rows []map[string]string) []models.AnomalyFinding {
	var (
		mu       sync.Mutex
		wg       sync.WaitGroup
		findings []models.AnomalyFinding
	)

	for _, field := range contract.Fields {
		if ctx.Err() != nil {
			break
		}
		values := make([]string, 0, len(rows))
		for _, row := range rows {
			values = append(values, row[field.Name])
		}

		wg.Add(1)
		go func(field *models.FieldDescriptor, values []string) {
			defer wg.Done()
			var local []models.AnomalyFinding
			for _, d := range e.detectors {
				local = append(local, d.Detect(field, values)...)
			}
			if len(local) == 0 {
				return
			}
			mu.Lock()
			findings = append(findings, local...)
			mu.Unlock()
		}(field, values)
	}
	wg.Wait()

	sort.Slice(findings, func(i, j int) bool {
		if findings[i].FieldName != findings[j].FieldName {
			return findings[i].FieldName < findings[j].FieldName
		}
		return findings[i].Type < findings[j].Type
	})

	e.logger.WithFields(logrus.Fields{
		"fields":   len(contract.Fields),
		"findings": len(findings),
	}).Info("Anomaly profiling complete")
	return findings
}
