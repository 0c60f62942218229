package models

import "github.com/google/uuid"

// AnomalyType tags the kind of finding a detector produced.
type AnomalyType string

const (
	AnomalyOutlierZScore    AnomalyType = "OUTLIER_Z_SCORE"
	AnomalyDistributionSkew AnomalyType = "DISTRIBUTION_SKEW"
	AnomalyExcessiveNulls   AnomalyType = "EXCESSIVE_NULLS"
	AnomalyLowCardinality   AnomalyType = "LOW_CARDINALITY"
	AnomalyHighCardinality  AnomalyType = "HIGH_CARDINALITY"
)

// AnomalySeverity ranks how urgently a finding needs attention.
type AnomalySeverity string

const (
	SeverityLow      AnomalySeverity = "LOW"
	SeverityMedium   AnomalySeverity = "MEDIUM"
	SeverityHigh     AnomalySeverity = "HIGH"
	SeverityCritical AnomalySeverity = "CRITICAL"
)

// Remediation action tags suggested alongside findings.
const (
	ActionReplaceWithMean       = "REPLACE_WITH_MEAN"
	ActionReplaceWithMedian     = "REPLACE_WITH_MEDIAN"
	ActionLogTransform          = "LOG_TRANSFORM"
	ActionCapAtThreshold        = "CAP_AT_THRESHOLD"
	ActionQuantileNormalize     = "QUANTILE_NORMALIZE"
	ActionBoxCoxTransform       = "BOX_COX_TRANSFORM"
	ActionQuantileNormalization = "QUANTILE_NORMALIZATION"
	ActionRemoveField           = "REMOVE_FIELD"
	ActionImputeMean            = "IMPUTE_MEAN"
	ActionImputeMedian          = "IMPUTE_MEDIAN"
	ActionImputeForwardFill     = "IMPUTE_FORWARD_FILL"
	ActionDropField             = "DROP_FIELD"
	ActionConsolidateCategories = "CONSOLIDATE_CATEGORIES"
	ActionHashEncoding          = "HASH_ENCODING"
	ActionFrequencyEncoding     = "FREQUENCY_ENCODING"
)

// AnomalyFinding is one structured result from a detector. Findings are pure
// reports; they never drive control flow on their own.
type AnomalyFinding struct {
	ReportID         string             `json:"report_id"`
	FieldName        string             `json:"field_name"`
	Type             AnomalyType        `json:"anomaly_type"`
	Severity         AnomalySeverity    `json:"severity"`
	Description      string             `json:"description"`
	AffectedRecords  []string           `json:"affected_records,omitempty"`
	SuggestedActions []string           `json:"suggested_transformations,omitempty"`
	Metrics          map[string]float64 `json:"statistical_metrics,omitempty"`
	Confidence       float64            `json:"confidence_score"`
}

// NewAnomalyFinding constructs a finding with a fresh report id.
func NewAnomalyFinding(field string, typ AnomalyType, severity AnomalySeverity) AnomalyFinding {
	return AnomalyFinding{
		ReportID:  uuid.New().String(),
		FieldName: field,
		Type:      typ,
		Severity:  severity,
		Metrics:   make(map[string]float64),
	}
}
