package models

// ValidationRule constrains values accepted for a mapped field.
type ValidationRule struct {
	Type       string `json:"type"`
	Expression string `json:"expression"`
	Message    string `json:"message"`
}

// FieldMapping binds one source field to the canonical model with a
// per-mapping confidence score and rationale.
type FieldMapping struct {
	SourceField        string            `json:"source_field"`
	CanonicalField     string            `json:"canonical_field"`
	TargetType         string            `json:"target_type"`
	Confidence         float64           `json:"confidence_score"`
	KeyField           bool              `json:"key_field"`
	Rationale          string            `json:"rationale,omitempty"`
	TransformationRule string            `json:"transformation_rule,omitempty"`
	SuggestedStandards map[string]string `json:"suggested_standards,omitempty"`
	ValidationRules    []ValidationRule  `json:"validation_rules,omitempty"`
}

// MappingSuggestion is the structured form expected from the reasoning
// service. Raw service output is untrusted text; the reasoning adapter
// validates it into this shape or rejects it with a typed error.
type MappingSuggestion struct {
	SourceField    string  `json:"source_field"`
	CanonicalField string  `json:"canonical_field"`
	Rationale      string  `json:"rationale"`
	Confidence     float64 `json:"confidence"`
}
