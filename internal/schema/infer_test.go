package schema

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/inferloop/dataforge/pkg/models"
)

func TestInferFieldTypes(t *testing.T) {
	inf := NewInferrer(nil)

	tests := []struct {
		name   string
		values []interface{}
		want   models.FieldType
	}{
		{"quantity", []interface{}{"1", "42", "-7"}, models.TypeInteger},
		{"weight", []interface{}{"1.5", "-0.25", "3.14"}, models.TypeFloat},
		{"active", []interface{}{"true", "FALSE", "yes"}, models.TypeBoolean},
		{"birth_day", []interface{}{"2024-01-15", "1999-12-31"}, models.TypeDate},
		{"created_at", []interface{}{"2024-01-15T10:30:00", "2024-01-15T10:30:00Z"}, models.TypeTimestamp},
		{"contact", []interface{}{"a@b.com", "x.y+z@example.org"}, models.TypeEmail},
		{"ref", []interface{}{"550e8400-e29b-41d4-a716-446655440000"}, models.TypeUUID},
		{"note", []interface{}{"hello", "world"}, models.TypeString},
	}
	for _, tt := range tests {
		desc := inf.InferField(tt.name, tt.values)
		assert.Equal(t, tt.want, desc.InferredType, tt.name)
		assert.Equal(t, 1.0, desc.Confidence, tt.name)
	}
}

func TestInferFieldIntegerBeforeBoolean(t *testing.T) {
	inf := NewInferrer(nil)
	desc := inf.InferField("flag", []interface{}{"0", "1", "1"})
	assert.Equal(t, models.TypeInteger, desc.InferredType)
}

func TestInferFieldMixedValues(t *testing.T) {
	inf := NewInferrer(nil)
	desc := inf.InferField("amount", []interface{}{"10", "20", "30", "oops"})
	assert.Equal(t, models.TypeInteger, desc.InferredType)
	assert.InDelta(t, 0.75, desc.Confidence, 1e-9)
}

func TestInferFieldNullsAndSamples(t *testing.T) {
	inf := NewInferrer(nil)
	desc := inf.InferField("city", []interface{}{"NYC", nil, "", "LA", "NYC", nil, "SF", "CHI", "BOS", "SEA"})
	assert.InDelta(t, 0.3, desc.NullPercentage, 1e-9)
	assert.InDelta(t, 0.7, desc.Confidence, 1e-9)
	assert.Len(t, desc.SampleValues, 5)
	assert.False(t, desc.Unique)
}

func TestInferFieldEmpty(t *testing.T) {
	inf := NewInferrer(nil)
	desc := inf.InferField("anything", nil)
	assert.Equal(t, models.TypeString, desc.InferredType)
	assert.Equal(t, 0.0, desc.Confidence)
	assert.Empty(t, desc.Tags)
}

func TestInferFieldSemanticTags(t *testing.T) {
	inf := NewInferrer(nil)

	desc := inf.InferField("customer_id", []interface{}{"c1", "c1", "c2"})
	assert.True(t, desc.HasTag(models.TagKeyField))
	assert.True(t, desc.Unique, "key fields are treated as unique")

	desc = inf.InferField("order_date", []interface{}{"2024-01-01"})
	assert.True(t, desc.HasTag(models.TagTemporalField))

	desc = inf.InferField("total_amount", []interface{}{"9.99"})
	assert.True(t, desc.HasTag(models.TagNumericMeasure))

	desc = inf.InferField("country_code", []interface{}{"US", "DE"})
	assert.True(t, desc.HasTag(models.TagCategoricalField))
}

func TestInferContract(t *testing.T) {
	inf := NewInferrer(nil)
	rs := &models.RecordSet{
		Location:    "orders.csv",
		Fingerprint: "abc123",
		TotalRows:   2,
		FieldOrder:  []string{"order_id", "total_amount"},
		Rows: []map[string]string{
			{"order_id": "1", "total_amount": "10.50"},
			{"order_id": "2", "total_amount": "20.00"},
		},
	}
	contract := inf.InferContract(rs)
	require.Len(t, contract.Fields, 2)
	assert.NotEmpty(t, contract.SchemaID)
	assert.Equal(t, "1.0.0", contract.Version)
	assert.Equal(t, "abc123", contract.Fingerprint)
	assert.Equal(t, int64(2), contract.RowCount)
	assert.Equal(t, "order_id", contract.Fields[0].Name)
	assert.Equal(t, models.TypeInteger, contract.Fields[0].InferredType)
	assert.Equal(t, models.TypeFloat, contract.Fields[1].InferredType)
}

func TestCompareContracts(t *testing.T) {
	prev := &models.SchemaContract{Fields: []*models.FieldDescriptor{
		{Name: "a", InferredType: models.TypeInteger},
		{Name: "b", InferredType: models.TypeString},
		{Name: "gone", InferredType: models.TypeString},
	}}
	curr := &models.SchemaContract{Fields: []*models.FieldDescriptor{
		{Name: "a", InferredType: models.TypeFloat},
		{Name: "b", InferredType: models.TypeString},
		{Name: "added", InferredType: models.TypeDate},
	}}

	report := CompareContracts(prev, curr)
	assert.True(t, report.Drifted())
	assert.Equal(t, []string{"added"}, report.AddedFields)
	assert.Equal(t, []string{"gone"}, report.RemovedFields)
	require.Len(t, report.TypeChanges, 1)
	assert.Equal(t, "a", report.TypeChanges[0].Field)
	assert.Equal(t, models.TypeInteger, report.TypeChanges[0].Previous)
	assert.Equal(t, models.TypeFloat, report.TypeChanges[0].Current)

	assert.False(t, CompareContracts(nil, curr).Drifted())
	assert.False(t, CompareContracts(prev, prev).Drifted())
}
