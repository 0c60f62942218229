package schema

import (
	"github.com/inferloop/dataforge/pkg/models"
)

// TypeChange records a field whose inferred type moved between two contract
// versions.
type TypeChange struct {
	Field    string           `json:"field"`
	Previous models.FieldType `json:"previous"`
	Current  models.FieldType `json:"current"`
}

// DriftReport summarizes the structural differences between a previously
// accepted contract and a freshly inferred one.
type DriftReport struct {
	AddedFields   []string     `json:"added_fields"`
	RemovedFields []string     `json:"removed_fields"`
	TypeChanges   []TypeChange `json:"type_changes"`
}

// Drifted reports whether any structural difference was found.
func (r *DriftReport) Drifted() bool {
	return len(r.AddedFields) > 0 || len(r.RemovedFields) > 0 || len(r.TypeChanges) > 0
}

// CompareContracts diffs current against previous. Field order follows the
// current contract for additions and type changes, and the previous contract
// for removals.
func CompareContracts(previous, current *models.SchemaContract) *DriftReport {
	report := &DriftReport{
		AddedFields:   []string{},
		RemovedFields: []string{},
		TypeChanges:   []TypeChange{},
	}
	if previous == nil || current == nil {
		return report
	}
	prevFields := make(map[string]*models.FieldDescriptor, len(previous.Fields))
	for _, f := range previous.Fields {
		prevFields[f.Name] = f
	}
	currFields := make(map[string]*models.FieldDescriptor, len(current.Fields))
	for _, f := range current.Fields {
		currFields[f.Name] = f
		prev, ok := prevFields[f.Name]
		if !ok {
			report.AddedFields = append(report.AddedFields, f.Name)
			continue
		}
		if prev.InferredType != f.InferredType {
			report.TypeChanges = append(report.TypeChanges, TypeChange{
				Field:    f.Name,
				Previous: prev.InferredType,
				Current:  f.InferredType,
			})
		}
	}
	for _, f := range previous.Fields {
		if _, ok := currFields[f.Name]; !ok {
			report.RemovedFields = append(report.RemovedFields, f.Name)
		}
	}
	return report
}
