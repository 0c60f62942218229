package anomaly

import (
	"fmt"

	"github.com/inferloop/dataforge/pkg/models"
)

const (
	lowCardinalityRatio    = 0.01
	lowCardinalityDistinct = 5
	highCardinalityRatio   = 0.95
)

// CardinalityDetector flags columns whose distinct-value ratio is suspicious:
// near-constant columns carry no signal, near-unique text columns are usually
// identifiers in disguise.
type CardinalityDetector struct{}

func NewCardinalityDetector() *CardinalityDetector {
	return &CardinalityDetector{}
}

func (d *CardinalityDetector) Name() string {
	return "cardinality"
}

func (d *CardinalityDetector) Detect(field *models.FieldDescriptor, values []string) []models.AnomalyFinding {
	if field.Numeric() {
		return nil
	}
	nonNull := nonNullValues(values)
	if len(nonNull) == 0 {
		return nil
	}
	distinct := make(map[string]struct{}, len(nonNull))
	for _, v := range nonNull {
		distinct[v] = struct{}{}
	}
	// Ratio is distinct over all records, nulls included, so a sparse
	// column cannot masquerade as high-cardinality.
	ratio := float64(len(distinct)) / float64(len(values))

	if ratio < lowCardinalityRatio && len(distinct) < lowCardinalityDistinct {
		f := models.NewAnomalyFinding(field.Name, models.AnomalyLowCardinality, models.SeverityMedium)
		f.Description = fmt.Sprintf("only %d distinct values across %d records", len(distinct), len(values))
		f.Confidence = 0.9
		f.Metrics["cardinality_ratio"] = ratio
		f.Metrics["unique_count"] = float64(len(distinct))
		f.SuggestedActions = []string{models.ActionDropField, models.ActionConsolidateCategories}
		return []models.AnomalyFinding{f}
	}
	if ratio > highCardinalityRatio {
		f := models.NewAnomalyFinding(field.Name, models.AnomalyHighCardinality, models.SeverityLow)
		f.Description = fmt.Sprintf("%d distinct values across %d records", len(distinct), len(values))
		f.Confidence = 0.85
		f.Metrics["cardinality_ratio"] = ratio
		f.Metrics["unique_count"] = float64(len(distinct))
		f.SuggestedActions = []string{models.ActionHashEncoding, models.ActionFrequencyEncoding}
		return []models.AnomalyFinding{f}
	}
	return nil
}
