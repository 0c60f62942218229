package stages

import (
	"context"
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/inferloop/dataforge/internal/anomaly"
	"github.com/inferloop/dataforge/internal/mapping"
	"github.com/inferloop/dataforge/internal/schema"
	"github.com/inferloop/dataforge/internal/transform"
	apperrors "github.com/inferloop/dataforge/pkg/errors"
	"github.com/inferloop/dataforge/pkg/models"
)

type fakeSource struct {
	rs  *models.RecordSet
	err error
}

func (f *fakeSource) Fetch(_ context.Context, _ string, _ int) (*models.RecordSet, error) {
	return f.rs, f.err
}

func (f *fakeSource) Close() error { return nil }

type fakeSink struct {
	ensureErr error
	loadErr   error
	gotTable  string
	gotFields []string
	gotRows   []map[string]interface{}
}

func (f *fakeSink) EnsureTarget(_ context.Context, _, table string, _ *models.SchemaContract) error {
	f.gotTable = table
	return f.ensureErr
}

func (f *fakeSink) Load(_ context.Context, _, _ string, fieldOrder []string, rows []map[string]interface{}) (int64, error) {
	if f.loadErr != nil {
		return 0, f.loadErr
	}
	f.gotFields = fieldOrder
	f.gotRows = rows
	return int64(len(rows)), nil
}

func (f *fakeSink) Close() error { return nil }

type fakeReasoner struct {
	suggestion *models.MappingSuggestion
	err        error
}

func (f *fakeReasoner) Suggest(_ context.Context, _ *models.SchemaContract, _ string) (*models.MappingSuggestion, error) {
	return f.suggestion, f.err
}

func orderRows(n int) []map[string]string {
	rows := make([]map[string]string, 0, n)
	for i := 0; i < n; i++ {
		rows = append(rows, map[string]string{
			"order_id":     fmt.Sprintf("%d", i+1),
			"total_amount": "10.50",
			"order_date":   "2024-03-01",
		})
	}
	return rows
}

func ingestedJob(n int) *models.Job {
	job := models.NewJob("/data/orders.csv", "analytics", "dw_orders")
	job.Rows = orderRows(n)
	job.SampleRows = job.Rows
	if n > 10 {
		job.SampleRows = job.Rows[:10]
	}
	job.FieldOrder = []string{"order_id", "total_amount", "order_date"}
	job.Fingerprint = "fp-test"
	job.AddRecordsRead(int64(n))
	return job
}

func TestIngestStage(t *testing.T) {
	rows := orderRows(25)
	source := &fakeSource{rs: &models.RecordSet{
		Location:    "/data/orders.csv",
		Rows:        rows,
		FieldOrder:  []string{"order_id", "total_amount", "order_date"},
		TotalRows:   25,
		Fingerprint: "fp-25",
	}}

	stage := NewIngestStage(source, nil)
	job := models.NewJob("/data/orders.csv", "analytics", "dw_orders")
	out, err := stage.Execute(context.Background(), job)
	require.NoError(t, err)

	assert.Len(t, out.Rows, 25)
	assert.Len(t, out.SampleRows, 10)
	assert.Equal(t, "fp-25", out.Fingerprint)
	assert.Equal(t, int64(25), out.Statistics.TotalRecordsRead)

	in, outCount, ok := out.TakeReportedCounts()
	require.True(t, ok)
	assert.Equal(t, int64(25), in)
	assert.Equal(t, int64(25), outCount)
}

func TestIngestStageEmptySource(t *testing.T) {
	source := &fakeSource{rs: &models.RecordSet{Location: "/data/empty.csv"}}
	stage := NewIngestStage(source, nil)

	_, err := stage.Execute(context.Background(), models.NewJob("/data/empty.csv", "analytics", "dw_orders"))
	require.Error(t, err)
	assert.ErrorIs(t, err, apperrors.ErrEmptySource)
}

func TestIngestStageFetchError(t *testing.T) {
	source := &fakeSource{err: errors.New("connection reset")}
	stage := NewIngestStage(source, nil)

	_, err := stage.Execute(context.Background(), models.NewJob("/data/orders.csv", "analytics", "dw_orders"))
	require.Error(t, err)
	appErr, ok := apperrors.AsAppError(err)
	require.True(t, ok)
	assert.Equal(t, apperrors.CodeSourceUnreadable, appErr.Code)
}

func TestDiscoverStage(t *testing.T) {
	stage := NewDiscoverStage(schema.NewInferrer(nil), anomaly.NewEngine(nil), nil)
	job := ingestedJob(20)

	out, err := stage.Execute(context.Background(), job)
	require.NoError(t, err)
	require.NotNil(t, out.Schema)
	assert.NotEmpty(t, out.DatasetVersion)

	byName := make(map[string]*models.FieldDescriptor)
	for _, f := range out.Schema.Fields {
		byName[f.Name] = f
	}
	assert.Equal(t, models.TypeInteger, byName["order_id"].InferredType)
	assert.Equal(t, models.TypeFloat, byName["total_amount"].InferredType)
	assert.Equal(t, models.TypeDate, byName["order_date"].InferredType)

	_, fields, ok := out.TakeReportedCounts()
	require.True(t, ok)
	assert.Equal(t, int64(3), fields)
}

func TestMapStageRequiresSchema(t *testing.T) {
	stage := NewMapStage(mapping.NewMapper(nil), nil, nil)
	_, err := stage.Execute(context.Background(), models.NewJob("/data/orders.csv", "analytics", "dw_orders"))
	require.Error(t, err)
	appErr, ok := apperrors.AsAppError(err)
	require.True(t, ok)
	assert.Equal(t, apperrors.CodeMappingFailed, appErr.Code)
}

func TestMapStageAppliesReasoningRationale(t *testing.T) {
	discover := NewDiscoverStage(schema.NewInferrer(nil), anomaly.NewEngine(nil), nil)
	job, err := discover.Execute(context.Background(), ingestedJob(20))
	require.NoError(t, err)

	reasoner := &fakeReasoner{suggestion: &models.MappingSuggestion{
		SourceField:    "order_id",
		CanonicalField: "order_id",
		Rationale:      "primary identifier of the order entity",
		Confidence:     0.97,
	}}
	stage := NewMapStage(mapping.NewMapper(nil), reasoner, nil)

	out, err := stage.Execute(context.Background(), job)
	require.NoError(t, err)
	require.NotEmpty(t, out.Mappings)
	assert.NotEmpty(t, out.MappingVersion)

	var found bool
	for _, fm := range out.Mappings {
		if fm.SourceField == "order_id" {
			found = true
			assert.Equal(t, "primary identifier of the order entity", fm.Rationale)
			assert.True(t, fm.KeyField)
		}
	}
	assert.True(t, found)
}

func TestMapStageToleratesReasoningFailure(t *testing.T) {
	discover := NewDiscoverStage(schema.NewInferrer(nil), anomaly.NewEngine(nil), nil)
	job, err := discover.Execute(context.Background(), ingestedJob(20))
	require.NoError(t, err)

	stage := NewMapStage(mapping.NewMapper(nil), &fakeReasoner{err: errors.New("service down")}, nil)
	out, err := stage.Execute(context.Background(), job)
	require.NoError(t, err)
	assert.NotEmpty(t, out.Mappings)
}

func TestTransformStage(t *testing.T) {
	discover := NewDiscoverStage(schema.NewInferrer(nil), anomaly.NewEngine(nil), nil)
	job, err := discover.Execute(context.Background(), ingestedJob(20))
	require.NoError(t, err)

	// Duplicate key: same order_id twice.
	job.Rows = append(job.Rows, map[string]string{
		"order_id":     "1",
		"total_amount": "99.99",
		"order_date":   "2024-03-02",
	})

	stage := NewTransformStage(transform.NewPlanner(nil), transform.NewExecutor(nil), nil)
	out, err := stage.Execute(context.Background(), job)
	require.NoError(t, err)

	require.NotNil(t, out.Transform)
	assert.Len(t, out.CleanedRows, 20)
	assert.Equal(t, int64(1), out.Statistics.TotalRecordsDeduplicated)
	assert.Equal(t, 10.5, out.CleanedRows[0]["total_amount"])
}

func TestValidateStagePassesCleanRows(t *testing.T) {
	stage := NewValidateStage(0, nil)
	job := models.NewJob("/data/orders.csv", "analytics", "dw_orders")
	job.Mappings = []models.FieldMapping{{
		SourceField:    "customer_name",
		CanonicalField: "customer_name",
		ValidationRules: []models.ValidationRule{
			{Type: "LENGTH", Expression: "length(value) <= 255", Message: "value too long"},
		},
	}}
	for i := 0; i < 10; i++ {
		job.CleanedRows = append(job.CleanedRows, map[string]interface{}{"customer_name": "ACME"})
	}

	out, err := stage.Execute(context.Background(), job)
	require.NoError(t, err)
	assert.Empty(t, out.Errors)
}

func TestValidateStageFailsOnErrorRate(t *testing.T) {
	stage := NewValidateStage(0.10, nil)
	job := models.NewJob("/data/orders.csv", "analytics", "dw_orders")
	job.Mappings = []models.FieldMapping{{
		SourceField:    "total_amount",
		CanonicalField: "total_amount",
		ValidationRules: []models.ValidationRule{
			{Type: "RANGE", Expression: "value >= 0", Message: "amount must be non-negative"},
		},
	}}
	for i := 0; i < 10; i++ {
		amount := 10.0
		if i < 2 {
			amount = -5.0
		}
		job.CleanedRows = append(job.CleanedRows, map[string]interface{}{"total_amount": amount})
	}

	_, err := stage.Execute(context.Background(), job)
	require.Error(t, err)
	assert.ErrorIs(t, err, apperrors.ErrErrorRateExceeded)
	// Violations are still on record for the audit trail.
	assert.Len(t, job.Errors, 2)
}

func TestLoadStageRenamesToCanonicalFields(t *testing.T) {
	sink := &fakeSink{}
	stage := NewLoadStage(sink, nil)

	job := models.NewJob("/data/orders.csv", "analytics", "dw_orders")
	job.FieldOrder = []string{"OrderID", "Total Amount"}
	job.Mappings = []models.FieldMapping{
		{SourceField: "OrderID", CanonicalField: "order_id"},
		{SourceField: "Total Amount", CanonicalField: "total_amount"},
	}
	job.CleanedRows = []map[string]interface{}{
		{"OrderID": "1", "Total Amount": 10.5},
		{"OrderID": "2", "Total Amount": 20.0},
	}

	out, err := stage.Execute(context.Background(), job)
	require.NoError(t, err)

	assert.Equal(t, "dw_orders", sink.gotTable)
	assert.Equal(t, []string{"order_id", "total_amount"}, sink.gotFields)
	require.Len(t, sink.gotRows, 2)
	assert.Equal(t, 10.5, sink.gotRows[0]["total_amount"])
	assert.Equal(t, int64(2), out.Statistics.TotalRecordsLoaded)
}

func TestLoadStageWrapsSinkErrors(t *testing.T) {
	stage := NewLoadStage(&fakeSink{loadErr: errors.New("copy failed")}, nil)
	job := models.NewJob("/data/orders.csv", "analytics", "dw_orders")

	_, err := stage.Execute(context.Background(), job)
	require.Error(t, err)
	appErr, ok := apperrors.AsAppError(err)
	require.True(t, ok)
	assert.Equal(t, apperrors.CodeLoadFailed, appErr.Code)
}

func TestAuditStage(t *testing.T) {
	var gotCard string
	stage := NewAuditStage(nil, nil).WithStore(func(job *models.Job, card string) (string, error) {
		gotCard = card
		return "audit/" + job.ID + "/audit.log", nil
	})

	job := models.NewJob("/data/orders.csv", "analytics", "dw_orders")
	job.AddRecordsRead(1000)
	job.AddRecordsLoaded(1000)

	out, err := stage.Execute(context.Background(), job)
	require.NoError(t, err)
	assert.Equal(t, "audit/"+job.ID+"/audit.log", out.AuditLogPath)
	assert.Contains(t, gotCard, "Data Quality Scorecard")
}

func TestAuditStageStoreFailure(t *testing.T) {
	stage := NewAuditStage(nil, nil).WithStore(func(*models.Job, string) (string, error) {
		return "", errors.New("disk full")
	})
	_, err := stage.Execute(context.Background(), models.NewJob("/data/orders.csv", "analytics", "dw_orders"))
	require.Error(t, err)
}
