package anomaly

import (
	"fmt"

	"github.com/inferloop/dataforge/pkg/models"
)

const (
	missingPctThreshold = 10.0
	missingPctCritical  = 50.0
)

// MissingValueDetector flags columns with an excessive share of null cells.
type MissingValueDetector struct{}

func NewMissingValueDetector() *MissingValueDetector {
	return &MissingValueDetector{}
}

func (d *MissingValueDetector) Name() string {
	return "excessive_nulls"
}

func (d *MissingValueDetector) Detect(field *models.FieldDescriptor, values []string) []models.AnomalyFinding {
	if len(values) == 0 {
		return nil
	}
	nulls := len(values) - len(nonNullValues(values))
	pct := float64(nulls) / float64(len(values)) * 100
	if pct <= missingPctThreshold {
		return nil
	}
	severity := models.SeverityHigh
	if pct > missingPctCritical {
		severity = models.SeverityCritical
	}
	f := models.NewAnomalyFinding(field.Name, models.AnomalyExcessiveNulls, severity)
	f.Description = fmt.Sprintf("%.1f%% of values are missing", pct)
	f.Confidence = 0.95
	f.Metrics["null_percentage"] = pct
	if pct > missingPctCritical {
		f.SuggestedActions = []string{models.ActionRemoveField}
	} else if field.Numeric() {
		f.SuggestedActions = []string{models.ActionImputeMean, models.ActionImputeMedian}
	} else {
		f.SuggestedActions = []string{models.ActionImputeForwardFill}
	}
	return []models.AnomalyFinding{f}
}
