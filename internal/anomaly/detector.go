// Package anomaly profiles columns for statistical irregularities. Detectors
// emit structured findings with suggested remediations; the findings inform
// transformation planning and quality reporting but never abort a pipeline by
// themselves.
package anomaly

import (
	"strconv"
	"strings"

	"github.com/inferloop/dataforge/pkg/models"
)

// Detector inspects one column and returns zero or more findings. The values
// slice holds the column's raw cells in row order; empty strings are nulls.
type Detector interface {
	Name() string
	Detect(field *models.FieldDescriptor, values []string) []models.AnomalyFinding
}

// numericValues parses the non-null cells of a column, dropping anything that
// does not parse as a float.
func numericValues(values []string) []float64 {
	out := make([]float64, 0, len(values))
	for _, v := range values {
		s := strings.TrimSpace(v)
		if s == "" {
			continue
		}
		f, err := strconv.ParseFloat(s, 64)
		if err != nil {
			continue
		}
		out = append(out, f)
	}
	return out
}

func nonNullValues(values []string) []string {
	out := make([]string, 0, len(values))
	for _, v := range values {
		if strings.TrimSpace(v) != "" {
			out = append(out, v)
		}
	}
	return out
}
