package models

import (
	"time"

	"github.com/google/uuid"
)

// Cleaning operation tags applied per field.
const (
	OpTrim             = "TRIM"
	OpUppercase        = "UPPERCASE"
	OpNormalizeUnicode = "NORMALIZE_UNICODE"
	OpParseNumeric     = "PARSE_NUMERIC"
	OpRoundTwoDecimals = "ROUND_TO_2_DECIMALS"
	OpParseISODate     = "PARSE_ISO_DATE"
	OpParseTimestamp   = "PARSE_ISO_TIMESTAMP"
	OpLowercase        = "LOWERCASE"
	OpParseBoolean     = "PARSE_BOOLEAN"
)

// Null-handling policies for cleaning rules.
const (
	NullReject      = "reject"
	NullSkip        = "skip"
	NullFillUnknown = "fill_with_unknown"
	NullZero        = "zero"
	NullCurrentDate = "current_date"
	NullDropField   = "drop_field"
)

// Survivorship rules selecting which duplicate record wins.
const (
	SurvivorKeepFirst  = "KEEP_FIRST"
	SurvivorKeepLatest = "KEEP_LATEST"
	SurvivorKeepMax    = "KEEP_MAX"
)

// CleaningRule lists the declarative cleaning operations for one field.
type CleaningRule struct {
	Field        string   `json:"field"`
	Operations   []string `json:"operations"`
	NullHandling string   `json:"null_handling"`
}

// DeduplicationConfig selects duplicate groups by key fields and resolves
// them with per-field survivorship rules.
type DeduplicationConfig struct {
	Enabled           bool              `json:"enabled"`
	KeyFields         []string          `json:"key_fields"`
	SurvivorshipRules map[string]string `json:"survivorship_rules"`
}

// EnrichmentStep joins lookup data onto the record stream.
type EnrichmentStep struct {
	Name         string   `json:"name"`
	SourceTable  string   `json:"source_table"`
	JoinKey      string   `json:"join_key"`
	TargetFields []string `json:"target_fields"`
}

// AggregationRule derives a reporting measure.
type AggregationRule struct {
	MeasureField    string   `json:"measure_field"`
	AggregationType string   `json:"aggregation_type"`
	GroupByFields   []string `json:"group_by_fields"`
	TargetFieldName string   `json:"target_field_name"`
}

// TransformationSpec is the declarative cleaning and enrichment plan derived
// from the schema contract and anomaly findings.
type TransformationSpec struct {
	SpecID          string               `json:"spec_id"`
	Version         string               `json:"version"`
	CreatedAt       time.Time            `json:"timestamp"`
	CleaningRules   []CleaningRule       `json:"cleaning_rules"`
	EnrichmentSteps []EnrichmentStep     `json:"enrichment_steps,omitempty"`
	Deduplication   *DeduplicationConfig `json:"deduplication_config,omitempty"`
	Aggregations    []AggregationRule    `json:"aggregations,omitempty"`
}

// NewTransformationSpec constructs an empty spec with a fresh id.
func NewTransformationSpec(version string) *TransformationSpec {
	return &TransformationSpec{
		SpecID:    uuid.New().String(),
		Version:   version,
		CreatedAt: time.Now().UTC(),
	}
}

// Rule returns the cleaning rule for field, or nil when absent.
func (s *TransformationSpec) Rule(field string) *CleaningRule {
	for i := range s.CleaningRules {
		if s.CleaningRules[i].Field == field {
			return &s.CleaningRules[i]
		}
	}
	return nil
}

// Clone returns a deep copy of the spec.
func (s *TransformationSpec) Clone() *TransformationSpec {
	cp := *s
	cp.CleaningRules = make([]CleaningRule, len(s.CleaningRules))
	for i, r := range s.CleaningRules {
		r.Operations = append([]string(nil), r.Operations...)
		cp.CleaningRules[i] = r
	}
	cp.EnrichmentSteps = make([]EnrichmentStep, len(s.EnrichmentSteps))
	for i, e := range s.EnrichmentSteps {
		e.TargetFields = append([]string(nil), e.TargetFields...)
		cp.EnrichmentSteps[i] = e
	}
	if s.Deduplication != nil {
		d := *s.Deduplication
		d.KeyFields = append([]string(nil), s.Deduplication.KeyFields...)
		d.SurvivorshipRules = make(map[string]string, len(s.Deduplication.SurvivorshipRules))
		for k, v := range s.Deduplication.SurvivorshipRules {
			d.SurvivorshipRules[k] = v
		}
		cp.Deduplication = &d
	}
	cp.Aggregations = make([]AggregationRule, len(s.Aggregations))
	for i, a := range s.Aggregations {
		a.GroupByFields = append([]string(nil), a.GroupByFields...)
		cp.Aggregations[i] = a
	}
	return &cp
}
