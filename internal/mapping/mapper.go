// Package mapping derives canonical field mappings from an inferred schema
// contract. Mappings are rule based; an optional reasoning service may add
// rationale text on top, but never changes the mapping itself.
package mapping

import (
	"fmt"
	"regexp"
	"strings"

	"github.com/sirupsen/logrus"

	"github.com/inferloop/dataforge/pkg/models"
)

const (
	keyFieldConfidence = 0.99
	minConfidence      = 0.5
	maxStringLength    = 255
)

var nonIdentChars = regexp.MustCompile(`[^a-z0-9]+`)

// Mapper maps source fields onto the canonical model of a target dataset.
type Mapper struct {
	logger *logrus.Logger
}

func NewMapper(logger *logrus.Logger) *Mapper {
	if logger == nil {
		logger = logrus.New()
	}
	return &Mapper{logger: logger}
}

// Map produces one mapping per contract field, in contract order.
func (m *Mapper) Map(contract *models.SchemaContract, targetDataset string) []models.FieldMapping {
	mappings := make([]models.FieldMapping, 0, len(contract.Fields))
	for _, field := range contract.Fields {
		mappings = append(mappings, m.mapField(field))
	}
	m.logger.WithFields(logrus.Fields{
		"target_dataset": targetDataset,
		"mappings":       len(mappings),
	}).Info("Canonical mappings generated")
	return mappings
}

func (m *Mapper) mapField(field *models.FieldDescriptor) models.FieldMapping {
	fm := models.FieldMapping{
		SourceField:    field.Name,
		CanonicalField: CanonicalName(field.Name),
		TargetType:     targetType(field.InferredType),
		Confidence:     confidence(field),
		KeyField:       field.HasTag(models.TagKeyField),
		Rationale:      rationale(field),
	}

	switch field.InferredType {
	case models.TypeFloat:
		fm.TransformationRule = "CAST_TO_DECIMAL(18,2)"
	case models.TypeDate:
		fm.TransformationRule = "PARSE_ISO_DATE(source_value)"
	case models.TypeTimestamp:
		fm.TransformationRule = "PARSE_ISO_TIMESTAMP(source_value)"
	}

	fm.SuggestedStandards = standards(field)
	fm.ValidationRules = validationRules(field)
	return fm
}

// CanonicalName normalizes a source field name into the canonical snake_case
// identifier form.
func CanonicalName(source string) string {
	s := strings.ToLower(strings.TrimSpace(source))
	s = nonIdentChars.ReplaceAllString(s, "_")
	return strings.Trim(s, "_")
}

func targetType(t models.FieldType) string {
	switch t {
	case models.TypeInteger:
		return "INT64"
	case models.TypeFloat:
		return "NUMERIC"
	case models.TypeBoolean:
		return "BOOL"
	case models.TypeDate:
		return "DATE"
	case models.TypeTimestamp:
		return "TIMESTAMP"
	default:
		return "STRING"
	}
}

func confidence(field *models.FieldDescriptor) float64 {
	if field.HasTag(models.TagKeyField) {
		return keyFieldConfidence
	}
	c := field.Confidence
	if c < minConfidence {
		c = minConfidence
	}
	return c
}

func rationale(field *models.FieldDescriptor) string {
	switch {
	case field.HasTag(models.TagKeyField):
		return "Primary identifier candidate, enforced unique"
	case field.HasTag(models.TagTemporalField):
		return "Temporal attribute, normalized to ISO representation"
	case field.HasTag(models.TagNumericMeasure):
		return "Transactional measure in currency or unit terms"
	case field.HasTag(models.TagCategoricalField):
		return "Categorical attribute with bounded value domain"
	default:
		return fmt.Sprintf("Direct mapping with inferred type %s", field.InferredType)
	}
}

func standards(field *models.FieldDescriptor) map[string]string {
	std := map[string]string{}
	if field.HasTag(models.TagKeyField) {
		std["SURROGATE_KEY"] = "Recommended stable surrogate key for cross-system joins"
	}
	switch field.InferredType {
	case models.TypeDate, models.TypeTimestamp:
		std["ISO_8601"] = "Canonical date and time representation"
	case models.TypeEmail:
		std["RFC_5322"] = "Address syntax standard"
	case models.TypeUUID:
		std["RFC_4122"] = "Identifier format standard"
	}
	if len(std) == 0 {
		return nil
	}
	return std
}

func validationRules(field *models.FieldDescriptor) []models.ValidationRule {
	var rules []models.ValidationRule
	switch field.InferredType {
	case models.TypeDate:
		rules = append(rules, models.ValidationRule{
			Type:       "FORMAT",
			Expression: "matches YYYY-MM-DD",
			Message:    "Invalid date format",
		})
	case models.TypeEmail:
		rules = append(rules, models.ValidationRule{
			Type:       "PATTERN",
			Expression: "matches address syntax",
			Message:    "Invalid email address",
		})
	case models.TypeString:
		rules = append(rules, models.ValidationRule{
			Type:       "LENGTH",
			Expression: fmt.Sprintf("length <= %d", maxStringLength),
			Message:    "Value exceeds maximum length",
		})
	}
	if field.HasTag(models.TagNumericMeasure) && field.Numeric() {
		rules = append(rules, models.ValidationRule{
			Type:       "RANGE",
			Expression: fmt.Sprintf("%s >= 0", CanonicalName(field.Name)),
			Message:    "Measure cannot be negative",
		})
	}
	return rules
}
