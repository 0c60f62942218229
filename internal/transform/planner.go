// Package transform derives the declarative cleaning, deduplication, and
// aggregation plan for a dataset from its schema contract and anomaly
// findings.
package transform

import (
	"fmt"

	"github.com/sirupsen/logrus"

	"github.com/inferloop/dataforge/pkg/models"
)

const specVersion = "1.0.0"

// Planner builds transformation specs.
type Planner struct {
	logger *logrus.Logger
}

func NewPlanner(logger *logrus.Logger) *Planner {
	if logger == nil {
		logger = logrus.New()
	}
	return &Planner{logger: logger}
}

// Plan derives one cleaning rule per field from its inferred type and
// semantic tags, then folds anomaly findings in as overrides. Key fields
// drive deduplication; numeric measures grouped by temporal fields drive the
// reporting aggregations.
func (p *Planner) Plan(contract *models.SchemaContract, findings []models.AnomalyFinding) *models.TransformationSpec {
	spec := models.NewTransformationSpec(specVersion)

	byField := make(map[string][]models.AnomalyFinding)
	for _, f := range findings {
		byField[f.FieldName] = append(byField[f.FieldName], f)
	}

	for _, field := range contract.Fields {
		rule := baseRule(field)
		applyFindings(&rule, byField[field.Name])
		spec.CleaningRules = append(spec.CleaningRules, rule)
	}

	spec.Deduplication = p.dedupConfig(contract)
	spec.Aggregations = p.aggregations(contract)

	p.logger.WithFields(logrus.Fields{
		"cleaning_rules": len(spec.CleaningRules),
		"aggregations":   len(spec.Aggregations),
		"dedup_enabled":  spec.Deduplication != nil && spec.Deduplication.Enabled,
	}).Info("Transformation spec planned")
	return spec
}

func baseRule(field *models.FieldDescriptor) models.CleaningRule {
	rule := models.CleaningRule{Field: field.Name}

	switch field.InferredType {
	case models.TypeInteger:
		rule.Operations = []string{models.OpParseNumeric}
		rule.NullHandling = models.NullZero
	case models.TypeFloat:
		rule.Operations = []string{models.OpParseNumeric, models.OpRoundTwoDecimals}
		rule.NullHandling = models.NullZero
	case models.TypeBoolean:
		rule.Operations = []string{models.OpParseBoolean}
		rule.NullHandling = models.NullSkip
	case models.TypeDate:
		rule.Operations = []string{models.OpParseISODate}
		rule.NullHandling = models.NullCurrentDate
	case models.TypeTimestamp:
		rule.Operations = []string{models.OpParseTimestamp}
		rule.NullHandling = models.NullCurrentDate
	case models.TypeEmail:
		rule.Operations = []string{models.OpTrim, models.OpLowercase}
		rule.NullHandling = models.NullSkip
	default:
		rule.Operations = []string{models.OpTrim, models.OpNormalizeUnicode}
		rule.NullHandling = models.NullFillUnknown
	}

	if field.HasTag(models.TagKeyField) {
		rule.Operations = []string{models.OpTrim, models.OpUppercase}
		rule.NullHandling = models.NullReject
	}
	return rule
}

// applyFindings tightens a rule based on what the detectors saw. A critical
// null excess outweighs everything else for the field.
func applyFindings(rule *models.CleaningRule, findings []models.AnomalyFinding) {
	for _, f := range findings {
		if f.Type != models.AnomalyExcessiveNulls {
			continue
		}
		if f.Severity == models.SeverityCritical {
			rule.NullHandling = models.NullDropField
		} else if rule.NullHandling == models.NullReject {
			rule.NullHandling = models.NullSkip
		}
	}
}

func (p *Planner) dedupConfig(contract *models.SchemaContract) *models.DeduplicationConfig {
	var keys []string
	for _, field := range contract.Fields {
		if field.HasTag(models.TagKeyField) {
			keys = append(keys, field.Name)
		}
	}
	if len(keys) == 0 {
		return nil
	}

	cfg := &models.DeduplicationConfig{
		Enabled:           true,
		KeyFields:         keys,
		SurvivorshipRules: map[string]string{},
	}
	for _, field := range contract.Fields {
		if field.HasTag(models.TagKeyField) {
			continue
		}
		switch {
		case field.HasTag(models.TagTemporalField):
			cfg.SurvivorshipRules[field.Name] = models.SurvivorKeepLatest
		case field.HasTag(models.TagNumericMeasure):
			cfg.SurvivorshipRules[field.Name] = models.SurvivorKeepMax
		default:
			cfg.SurvivorshipRules[field.Name] = models.SurvivorKeepFirst
		}
	}
	return cfg
}

// aggregations derives daily reporting measures: every numeric measure is
// summed per temporal field, and key fields are counted distinct.
func (p *Planner) aggregations(contract *models.SchemaContract) []models.AggregationRule {
	var temporal string
	for _, field := range contract.Fields {
		if field.HasTag(models.TagTemporalField) {
			temporal = field.Name
			break
		}
	}
	if temporal == "" {
		return nil
	}

	var aggs []models.AggregationRule
	for _, field := range contract.Fields {
		if field.HasTag(models.TagNumericMeasure) && field.Numeric() {
			aggs = append(aggs, models.AggregationRule{
				MeasureField:    field.Name,
				AggregationType: "SUM",
				GroupByFields:   []string{temporal},
				TargetFieldName: fmt.Sprintf("total_%s_by_%s", field.Name, temporal),
			})
		}
		if field.HasTag(models.TagKeyField) {
			aggs = append(aggs, models.AggregationRule{
				MeasureField:    field.Name,
				AggregationType: "COUNT_DISTINCT",
				GroupByFields:   []string{temporal},
				TargetFieldName: fmt.Sprintf("distinct_%s_by_%s", field.Name, temporal),
			})
		}
	}
	return aggs
}
