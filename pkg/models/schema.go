package models

// FieldType is the inferred type tag for a field.
type FieldType string

const (
	TypeInteger   FieldType = "INTEGER"
	TypeFloat     FieldType = "FLOAT"
	TypeBoolean   FieldType = "BOOLEAN"
	TypeDate      FieldType = "DATE"
	TypeTimestamp FieldType = "TIMESTAMP"
	TypeEmail     FieldType = "EMAIL"
	TypeUUID      FieldType = "UUID"
	TypeString    FieldType = "STRING"
)

// SemanticTag marks a field-name pattern detected during inference.
type SemanticTag string

const (
	TagKeyField         SemanticTag = "KEY_FIELD"
	TagTemporalField    SemanticTag = "TEMPORAL_FIELD"
	TagNumericMeasure   SemanticTag = "NUMERIC_MEASURE"
	TagCategoricalField SemanticTag = "CATEGORICAL_FIELD"
)

// FieldDescriptor describes one field of the inferred schema contract.
type FieldDescriptor struct {
	Name           string        `json:"name"`
	InferredType   FieldType     `json:"inferred_type"`
	Confidence     float64       `json:"confidence_score"`
	NullPercentage float64       `json:"null_percentage"`
	Unique         bool          `json:"unique"`
	SampleValues   []string      `json:"sample_values,omitempty"`
	Tags           []SemanticTag `json:"detected_patterns,omitempty"`
}

// HasTag reports whether the descriptor carries the given semantic tag.
func (f FieldDescriptor) HasTag(tag SemanticTag) bool {
	for _, t := range f.Tags {
		if t == tag {
			return true
		}
	}
	return false
}

// Numeric reports whether the inferred type is a numeric type.
func (f FieldDescriptor) Numeric() bool {
	return f.InferredType == TypeInteger || f.InferredType == TypeFloat
}

// SchemaContract is the inferred per-field description of a dataset, stamped
// with a content fingerprint so drift against a prior version is detectable.
type SchemaContract struct {
	SchemaID    string             `json:"schema_id"`
	Version     string             `json:"version"`
	Fingerprint string             `json:"fingerprint"`
	RowCount    int64              `json:"row_count"`
	Fields      []*FieldDescriptor `json:"fields"`
}

// Field returns the descriptor for name, or nil when absent.
func (c *SchemaContract) Field(name string) *FieldDescriptor {
	for _, f := range c.Fields {
		if f.Name == name {
			return f
		}
	}
	return nil
}

// Clone returns a deep copy of the contract.
func (c *SchemaContract) Clone() *SchemaContract {
	cp := *c
	cp.Fields = make([]*FieldDescriptor, len(c.Fields))
	for i, f := range c.Fields {
		fc := *f
		fc.SampleValues = append([]string(nil), f.SampleValues...)
		fc.Tags = append([]SemanticTag(nil), f.Tags...)
		cp.Fields[i] = &fc
	}
	return &cp
}

// RecordSet is the bounded, ordered output of a record source.
type RecordSet struct {
	Location    string              `json:"location"`
	Rows        []map[string]string `json:"-"`
	FieldOrder  []string            `json:"field_order"`
	TotalRows   int64               `json:"total_rows"`
	Fingerprint string              `json:"fingerprint"`
}
