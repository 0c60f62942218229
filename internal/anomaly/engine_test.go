package anomaly

import (
	"context"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/inferloop/dataforge/pkg/models"
)

func numericField(name string) *models.FieldDescriptor {
	return &models.FieldDescriptor{Name: name, InferredType: models.TypeInteger}
}

func stringField(name string) *models.FieldDescriptor {
	return &models.FieldDescriptor{Name: name, InferredType: models.TypeString}
}

func TestOutlierDetector(t *testing.T) {
	d := NewOutlierDetector()
	values := []string{"100", "102", "101", "103", "99", "100", "101", "102", "100", "500"}

	findings := d.Detect(numericField("amount"), values)
	require.Len(t, findings, 1)
	f := findings[0]
	assert.Equal(t, models.AnomalyOutlierZScore, f.Type)
	assert.Equal(t, models.SeverityMedium, f.Severity)
	assert.Equal(t, "amount", f.FieldName)
	assert.InDelta(t, 3.0, f.Metrics["z_score"], 0.01)
	assert.InDelta(t, 140.8, f.Metrics["mean"], 1e-9)
	assert.Contains(t, f.SuggestedActions, models.ActionCapAtThreshold)
	assert.InDelta(t, f.Metrics["z_score"]/5, f.Confidence, 1e-9)
}

func TestOutlierDetectorZeroSpread(t *testing.T) {
	d := NewOutlierDetector()
	assert.Empty(t, d.Detect(numericField("amount"), []string{"5", "5", "5"}))
	assert.Empty(t, d.Detect(numericField("amount"), []string{"5"}))
	assert.Empty(t, d.Detect(stringField("note"), []string{"a", "b"}))
}

func TestOutlierDetectorBelowMeanActions(t *testing.T) {
	d := NewOutlierDetector()
	values := []string{"100", "102", "101", "103", "99", "100", "101", "102", "100", "-300"}
	findings := d.Detect(numericField("amount"), values)
	require.NotEmpty(t, findings)
	assert.Contains(t, findings[0].SuggestedActions, models.ActionReplaceWithMean)
}

func TestDistributionDetector(t *testing.T) {
	d := NewDistributionDetector()

	symmetric := []string{"1", "2", "3", "4", "5", "5", "4", "3", "2", "1"}
	assert.Empty(t, d.Detect(numericField("v"), symmetric))

	skewed := []string{"100", "102", "101", "103", "99", "100", "101", "102", "100", "500"}
	findings := d.Detect(numericField("v"), skewed)
	require.Len(t, findings, 1)
	assert.Equal(t, models.AnomalyDistributionSkew, findings[0].Type)
	assert.Equal(t, models.SeverityMedium, findings[0].Severity)
	assert.Equal(t, 0.85, findings[0].Confidence)
	assert.Contains(t, findings[0].SuggestedActions, models.ActionLogTransform)

	short := []string{"1", "1", "1", "1", "100"}
	assert.Empty(t, d.Detect(numericField("v"), short), "needs at least ten values")
}

func TestMissingValueDetector(t *testing.T) {
	d := NewMissingValueDetector()

	values := []string{"a", "", "", "b", "", "", "c", "", "", "d"}
	findings := d.Detect(stringField("x"), values)
	require.Len(t, findings, 1)
	f := findings[0]
	assert.Equal(t, models.AnomalyExcessiveNulls, f.Type)
	assert.Equal(t, models.SeverityCritical, f.Severity)
	assert.Equal(t, 60.0, f.Metrics["null_percentage"])
	assert.Equal(t, []string{models.ActionRemoveField}, f.SuggestedActions)

	moderate := []string{"1", "2", "", "4", "5", "6", "7", "8", "", "10"}
	findings = d.Detect(numericField("y"), moderate)
	require.Len(t, findings, 1)
	assert.Equal(t, models.SeverityHigh, findings[0].Severity)
	assert.Contains(t, findings[0].SuggestedActions, models.ActionImputeMean)

	assert.Empty(t, d.Detect(stringField("z"), []string{"a", "b", "c"}))
}

func TestCardinalityDetector(t *testing.T) {
	d := NewCardinalityDetector()

	low := make([]string, 600)
	for i := range low {
		low[i] = fmt.Sprintf("cat_%d", i%3)
	}
	findings := d.Detect(stringField("segment"), low)
	require.Len(t, findings, 1)
	assert.Equal(t, models.AnomalyLowCardinality, findings[0].Type)
	assert.Equal(t, models.SeverityMedium, findings[0].Severity)
	assert.Equal(t, 3.0, findings[0].Metrics["unique_count"])

	high := make([]string, 100)
	for i := range high {
		high[i] = fmt.Sprintf("user_%d", i)
	}
	findings = d.Detect(stringField("session"), high)
	require.Len(t, findings, 1)
	assert.Equal(t, models.AnomalyHighCardinality, findings[0].Type)
	assert.Equal(t, models.SeverityLow, findings[0].Severity)

	// Nulls count toward the total, so a sparse column with few repeated
	// values is not high-cardinality.
	sparse := []string{"u1", "u2", "", "", "", "", "", "", "", ""}
	assert.Empty(t, d.Detect(stringField("referrer"), sparse))

	mid := []string{"a", "a", "b", "b", "c", "c", "d", "d"}
	assert.Empty(t, d.Detect(stringField("bucket"), mid))
}

func TestEngineProfile(t *testing.T) {
	engine := NewEngine(nil)

	contract := &models.SchemaContract{Fields: []*models.FieldDescriptor{
		numericField("amount"),
		stringField("x"),
	}}
	rows := make([]map[string]string, 10)
	amounts := []string{"100", "102", "101", "103", "99", "100", "101", "102", "100", "500"}
	xs := []string{"a", "", "", "b", "", "", "c", "", "", "d"}
	for i := range rows {
		rows[i] = map[string]string{"amount": amounts[i], "x": xs[i]}
	}

	findings := engine.Profile(context.Background(), contract, rows)
	require.NotEmpty(t, findings)

	byType := make(map[models.AnomalyType]int)
	for _, f := range findings {
		byType[f.Type]++
	}
	assert.Equal(t, 1, byType[models.AnomalyOutlierZScore])
	assert.Equal(t, 1, byType[models.AnomalyExcessiveNulls])

	for i := 1; i < len(findings); i++ {
		assert.LessOrEqual(t, findings[i-1].FieldName, findings[i].FieldName, "findings sorted by field")
	}
}

func TestEngineProfileEmptyRows(t *testing.T) {
	engine := NewEngine(nil)
	contract := &models.SchemaContract{Fields: []*models.FieldDescriptor{stringField("a")}}
	assert.Empty(t, engine.Profile(context.Background(), contract, nil))
}
