package schema

import (
	"fmt"
	"regexp"
	"strings"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"

	"github.com/inferloop/dataforge/pkg/models"
)

const (
	contractVersion = "1.0.0"
	maxSampleValues = 5
)

// typeMatcher associates a field type with the pattern a raw value must
// satisfy. Matchers are evaluated in order and the first match wins, so
// narrower patterns must precede broader ones.
type typeMatcher struct {
	fieldType models.FieldType
	pattern   *regexp.Regexp
}

var matchers = []typeMatcher{
	{models.TypeInteger, regexp.MustCompile(`^-?\d+$`)},
	{models.TypeFloat, regexp.MustCompile(`^-?\d+\.\d+$`)},
	{models.TypeBoolean, regexp.MustCompile(`(?i)^(true|false|yes|no|0|1)$`)},
	{models.TypeDate, regexp.MustCompile(`^\d{4}-\d{2}-\d{2}$`)},
	{models.TypeTimestamp, regexp.MustCompile(`^\d{4}-\d{2}-\d{2}T\d{2}:\d{2}:\d{2}`)},
	{models.TypeEmail, regexp.MustCompile(`^[A-Za-z0-9+_.-]+@(.+)$`)},
	{models.TypeUUID, regexp.MustCompile(`(?i)^[0-9a-f]{8}-[0-9a-f]{4}-[0-9a-f]{4}-[0-9a-f]{4}-[0-9a-f]{12}$`)},
}

// semantic tag rules keyed by name substrings, checked case-insensitively.
var tagRules = []struct {
	substrings []string
	tag        models.SemanticTag
}{
	{[]string{"id", "key"}, models.TagKeyField},
	{[]string{"date", "time"}, models.TagTemporalField},
	{[]string{"amount", "value", "price"}, models.TagNumericMeasure},
	{[]string{"code", "type"}, models.TagCategoricalField},
}

// Inferrer derives schema contracts from sampled records.
type Inferrer struct {
	logger *logrus.Logger
}

func NewInferrer(logger *logrus.Logger) *Inferrer {
	if logger == nil {
		logger = logrus.New()
	}
	return &Inferrer{logger: logger}
}

// InferField profiles one column from its sampled raw values. Values are the
// column's cells in row order; nil or empty strings count as nulls.
func (i *Inferrer) InferField(name string, values []interface{}) *models.FieldDescriptor {
	desc := &models.FieldDescriptor{
		Name:         name,
		InferredType: models.TypeString,
		SampleValues: []string{},
		Tags:         []models.SemanticTag{},
	}

	nonNull := make([]string, 0, len(values))
	for _, v := range values {
		if v == nil {
			continue
		}
		s := strings.TrimSpace(fmt.Sprintf("%v", v))
		if s == "" {
			continue
		}
		nonNull = append(nonNull, s)
	}

	if len(values) > 0 {
		desc.NullPercentage = float64(len(values)-len(nonNull)) / float64(len(values))
	}
	if len(nonNull) == 0 {
		return desc
	}

	votes := make(map[models.FieldType]int)
	for _, s := range nonNull {
		votes[matchValue(s)]++
	}
	best := models.TypeString
	bestCount := votes[models.TypeString]
	for _, m := range matchers {
		if votes[m.fieldType] > bestCount {
			best = m.fieldType
			bestCount = votes[m.fieldType]
		}
	}
	desc.InferredType = best
	desc.Confidence = float64(bestCount) / float64(len(values))
	if desc.Confidence > 1.0 {
		desc.Confidence = 1.0
	}

	distinct := make(map[string]struct{}, len(nonNull))
	for _, s := range nonNull {
		if _, seen := distinct[s]; !seen {
			distinct[s] = struct{}{}
			if len(desc.SampleValues) < maxSampleValues {
				desc.SampleValues = append(desc.SampleValues, s)
			}
		}
	}
	desc.Unique = len(distinct) == len(nonNull)

	lower := strings.ToLower(name)
	for _, rule := range tagRules {
		for _, sub := range rule.substrings {
			if strings.Contains(lower, sub) {
				desc.Tags = append(desc.Tags, rule.tag)
				break
			}
		}
	}
	if desc.HasTag(models.TagKeyField) {
		desc.Unique = true
	}
	return desc
}

func matchValue(s string) models.FieldType {
	for _, m := range matchers {
		if m.pattern.MatchString(s) {
			return m.fieldType
		}
	}
	return models.TypeString
}

// InferContract profiles every column of the record set and assembles the
// schema contract that downstream stages operate on.
func (i *Inferrer) InferContract(rs *models.RecordSet) *models.SchemaContract {
	contract := &models.SchemaContract{
		SchemaID:    uuid.New().String(),
		Version:     contractVersion,
		Fingerprint: rs.Fingerprint,
		RowCount:    rs.TotalRows,
		Fields:      make([]*models.FieldDescriptor, 0, len(rs.FieldOrder)),
	}
	for _, name := range rs.FieldOrder {
		column := make([]interface{}, 0, len(rs.Rows))
		for _, row := range rs.Rows {
			column = append(column, row[name])
		}
		contract.Fields = append(contract.Fields, i.InferField(name, column))
	}
	i.logger.WithFields(logrus.Fields{
		"schema_id": contract.SchemaID,
		"fields":    len(contract.Fields),
		"rows":      contract.RowCount,
	}).Info("Schema contract inferred")
	return contract
}
