// Package statistics provides the population-form descriptive statistics used
// by anomaly detection and transformation planning. All moments degrade to 0
// on degenerate input (fewer than two values, or zero spread) so callers can
// skip explicit guards.
package statistics

import (
	"math"
	"sort"

	"gonum.org/v1/gonum/stat"
)

// Mean returns the arithmetic mean of values, or 0 for fewer than two values.
func Mean(values []float64) float64 {
	if len(values) < 2 {
		return 0
	}
	return stat.Mean(values, nil)
}

// PopulationStdDev returns the population standard deviation (divisor n).
func PopulationStdDev(values []float64) float64 {
	if len(values) < 2 {
		return 0
	}
	mean := Mean(values)
	sumSq := 0.0
	for _, v := range values {
		d := v - mean
		sumSq += d * d
	}
	return math.Sqrt(sumSq / float64(len(values)))
}

// Skewness returns the population skewness, the mean of cubed standardized
// deviations. Zero spread yields 0.
func Skewness(values []float64) float64 {
	std := PopulationStdDev(values)
	if std == 0 {
		return 0
	}
	mean := Mean(values)
	sum := 0.0
	for _, v := range values {
		z := (v - mean) / std
		sum += z * z * z
	}
	return sum / float64(len(values))
}

// Kurtosis returns the population excess kurtosis, the mean of standardized
// deviations to the fourth power minus 3. Zero spread yields 0.
func Kurtosis(values []float64) float64 {
	std := PopulationStdDev(values)
	if std == 0 {
		return 0
	}
	mean := Mean(values)
	sum := 0.0
	for _, v := range values {
		z := (v - mean) / std
		sum += z * z * z * z
	}
	return sum/float64(len(values)) - 3
}

// Median returns the middle value of values, averaging the two central values
// for even counts. Empty input yields 0.
func Median(values []float64) float64 {
	if len(values) == 0 {
		return 0
	}
	sorted := make([]float64, len(values))
	copy(sorted, values)
	sort.Float64s(sorted)
	mid := len(sorted) / 2
	if len(sorted)%2 == 0 {
		return (sorted[mid-1] + sorted[mid]) / 2
	}
	return sorted[mid]
}

// Percentile returns the p-th percentile (0..100) using nearest-rank
// interpolation between adjacent sorted values.
func Percentile(values []float64, p float64) float64 {
	if len(values) == 0 {
		return 0
	}
	if p <= 0 {
		return Min(values)
	}
	if p >= 100 {
		return Max(values)
	}
	sorted := make([]float64, len(values))
	copy(sorted, values)
	sort.Float64s(sorted)
	rank := p / 100 * float64(len(sorted)-1)
	lower := int(math.Floor(rank))
	upper := int(math.Ceil(rank))
	if lower == upper {
		return sorted[lower]
	}
	frac := rank - float64(lower)
	return sorted[lower] + frac*(sorted[upper]-sorted[lower])
}

// Min returns the smallest value, or 0 for empty input.
func Min(values []float64) float64 {
	if len(values) == 0 {
		return 0
	}
	min := values[0]
	for _, v := range values[1:] {
		if v < min {
			min = v
		}
	}
	return min
}

// Max returns the largest value, or 0 for empty input.
func Max(values []float64) float64 {
	if len(values) == 0 {
		return 0
	}
	max := values[0]
	for _, v := range values[1:] {
		if v > max {
			max = v
		}
	}
	return max
}
