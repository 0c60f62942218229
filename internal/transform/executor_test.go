package transform

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/inferloop/dataforge/pkg/models"
)

func ordersSpec() *models.TransformationSpec {
	return NewPlanner(nil).Plan(ordersContract(), nil)
}

func TestApplyCleansValues(t *testing.T) {
	e := NewExecutor(nil)
	res := e.Apply(ordersSpec(), []map[string]string{
		{"order_id": " a1 ", "customer_name": "  Jane  ", "total_amount": "10.509", "order_date": "2024-01-15"},
	})

	require.Len(t, res.Rows, 1)
	row := res.Rows[0]
	assert.Equal(t, "A1", row["order_id"])
	assert.Equal(t, "Jane", row["customer_name"])
	assert.Equal(t, 10.51, row["total_amount"])
	assert.Equal(t, "2024-01-15", row["order_date"])
	assert.Zero(t, res.Rejected)
	assert.Empty(t, res.Errors)
}

func TestApplyRejectsNullKey(t *testing.T) {
	e := NewExecutor(nil)
	res := e.Apply(ordersSpec(), []map[string]string{
		{"order_id": "", "customer_name": "Jane", "total_amount": "5.00", "order_date": "2024-01-15"},
		{"order_id": "a2", "customer_name": "John", "total_amount": "7.00", "order_date": "2024-01-16"},
	})

	require.Len(t, res.Rows, 1)
	assert.Equal(t, int64(1), res.Rejected)
	require.Len(t, res.Errors, 1)
	assert.Equal(t, "NULL_KEY", res.Errors[0].ErrorType)
	assert.Equal(t, "order_id", res.Errors[0].FieldName)
}

func TestApplyNullFills(t *testing.T) {
	e := NewExecutor(nil)
	res := e.Apply(ordersSpec(), []map[string]string{
		{"order_id": "a1", "customer_name": "", "total_amount": "", "order_date": "2024-01-15"},
	})

	require.Len(t, res.Rows, 1)
	row := res.Rows[0]
	assert.Equal(t, "UNKNOWN", row["customer_name"])
	assert.Equal(t, 0.0, row["total_amount"])
}

func TestApplyRecordsCleaningErrors(t *testing.T) {
	e := NewExecutor(nil)
	res := e.Apply(ordersSpec(), []map[string]string{
		{"order_id": "a1", "customer_name": "Jane", "total_amount": "not-a-number", "order_date": "2024-01-15"},
	})

	require.Len(t, res.Rows, 1, "cleaning failures keep the row with the raw value")
	assert.Equal(t, "not-a-number", res.Rows[0]["total_amount"])
	require.Len(t, res.Errors, 1)
	assert.Equal(t, "CLEANING_FAILED", res.Errors[0].ErrorType)
	assert.Equal(t, "not-a-number", res.Errors[0].RawValue)
}

func TestApplyDeduplication(t *testing.T) {
	e := NewExecutor(nil)
	res := e.Apply(ordersSpec(), []map[string]string{
		{"order_id": "a1", "customer_name": "Jane", "total_amount": "10.00", "order_date": "2024-01-15"},
		{"order_id": "a1", "customer_name": "Janet", "total_amount": "25.00", "order_date": "2024-01-17"},
		{"order_id": "a2", "customer_name": "John", "total_amount": "5.00", "order_date": "2024-01-16"},
	})

	require.Len(t, res.Rows, 2)
	assert.Equal(t, int64(1), res.Deduplicated)

	var survivor map[string]interface{}
	for _, row := range res.Rows {
		if row["order_id"] == "A1" {
			survivor = row
		}
	}
	require.NotNil(t, survivor)
	assert.Equal(t, "Jane", survivor["customer_name"], "KEEP_FIRST")
	assert.Equal(t, 25.0, survivor["total_amount"], "KEEP_MAX")
	assert.Equal(t, "2024-01-17", survivor["order_date"], "KEEP_LATEST")
}

func TestApplyDropField(t *testing.T) {
	contract := ordersContract()
	findings := []models.AnomalyFinding{
		{FieldName: "customer_name", Type: models.AnomalyExcessiveNulls, Severity: models.SeverityCritical},
	}
	spec := NewPlanner(nil).Plan(contract, findings)

	e := NewExecutor(nil)
	res := e.Apply(spec, []map[string]string{
		{"order_id": "a1", "customer_name": "Jane", "total_amount": "1.00", "order_date": "2024-01-15"},
	})

	require.Len(t, res.Rows, 1)
	_, present := res.Rows[0]["customer_name"]
	assert.False(t, present)
}
