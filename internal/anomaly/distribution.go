package anomaly

import (
	"fmt"
	"math"

	"github.com/inferloop/dataforge/internal/statistics"
	"github.com/inferloop/dataforge/pkg/models"
)

const (
	distributionMinValues     = 10
	distributionSkewThreshold = 2.0
	distributionSkewSevere    = 3.0
)

// DistributionDetector flags numeric columns whose skewness indicates a
// heavily asymmetric distribution. Needs at least ten numeric values to say
// anything meaningful.
type DistributionDetector struct{}

func NewDistributionDetector() *DistributionDetector {
	return &DistributionDetector{}
}

func (d *DistributionDetector) Name() string {
	return "distribution_skew"
}

func (d *DistributionDetector) Detect(field *models.FieldDescriptor, values []string) []models.AnomalyFinding {
	if !field.Numeric() {
		return nil
	}
	nums := numericValues(values)
	if len(nums) < distributionMinValues {
		return nil
	}
	skew := statistics.Skewness(nums)
	if math.Abs(skew) <= distributionSkewThreshold {
		return nil
	}
	severity := models.SeverityMedium
	if math.Abs(skew) > distributionSkewSevere {
		severity = models.SeverityHigh
	}
	f := models.NewAnomalyFinding(field.Name, models.AnomalyDistributionSkew, severity)
	f.Description = fmt.Sprintf("distribution is heavily skewed (skewness %.2f)", skew)
	f.Confidence = 0.85
	f.Metrics["skewness"] = skew
	f.Metrics["kurtosis"] = statistics.Kurtosis(nums)
	f.SuggestedActions = []string{
		models.ActionLogTransform,
		models.ActionBoxCoxTransform,
		models.ActionQuantileNormalization,
	}
	return []models.AnomalyFinding{f}
}
