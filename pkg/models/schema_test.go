package models

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSchemaContractFieldLookup(t *testing.T) {
	contract := &SchemaContract{Fields: []*FieldDescriptor{
		{Name: "order_id", InferredType: TypeInteger},
		{Name: "total_amount", InferredType: TypeFloat},
	}}

	got := contract.Field("total_amount")
	require.NotNil(t, got)
	assert.Equal(t, TypeFloat, got.InferredType)
	assert.Same(t, contract.Fields[1], got)

	assert.Nil(t, contract.Field("missing"))
}

func TestSchemaContractCloneIsDeep(t *testing.T) {
	contract := &SchemaContract{
		SchemaID: "s-1",
		Fields: []*FieldDescriptor{{
			Name:         "order_id",
			InferredType: TypeInteger,
			SampleValues: []string{"1", "2"},
			Tags:         []SemanticTag{TagKeyField},
		}},
	}

	cp := contract.Clone()
	cp.Fields[0].Name = "renamed"
	cp.Fields[0].SampleValues[0] = "99"
	cp.Fields[0].Tags[0] = TagCategoricalField

	assert.Equal(t, "order_id", contract.Fields[0].Name)
	assert.Equal(t, "1", contract.Fields[0].SampleValues[0])
	assert.Equal(t, TagKeyField, contract.Fields[0].Tags[0])
}
