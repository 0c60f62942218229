package server

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/inferloop/dataforge/pkg/models"
)

type fakeRunner struct {
	done chan struct{}
}

func (f *fakeRunner) Run(_ context.Context, job *models.Job) (*models.Job, error) {
	job.Transition(models.StatusCompleted)
	job.AddRecordsRead(100)
	job.AddRecordsLoaded(100)
	if f.done != nil {
		close(f.done)
	}
	return job, nil
}

func newTestServer(t *testing.T, runner Runner) *Server {
	t.Helper()
	if runner == nil {
		runner = &fakeRunner{}
	}
	return NewServer(nil, runner, nil, nil)
}

func TestHealthEndpoint(t *testing.T) {
	srv := newTestServer(t, nil)

	rec := httptest.NewRecorder()
	srv.Router().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/health", nil))

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "healthy")
}

func TestSubmitJob(t *testing.T) {
	runner := &fakeRunner{done: make(chan struct{})}
	srv := newTestServer(t, runner)

	body, _ := json.Marshal(submitJobRequest{
		SourcePath:    "/data/orders.csv",
		TargetDataset: "analytics",
		TargetTable:   "dw_orders",
	})
	rec := httptest.NewRecorder()
	srv.Router().ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/api/v1/jobs", bytes.NewReader(body)))
	require.Equal(t, http.StatusAccepted, rec.Code)

	var job models.Job
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &job))
	assert.NotEmpty(t, job.ID)

	<-runner.done

	rec = httptest.NewRecorder()
	srv.Router().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/v1/jobs/"+job.ID, nil))
	assert.Equal(t, http.StatusOK, rec.Code)
}

func TestSubmitJobValidation(t *testing.T) {
	srv := newTestServer(t, nil)

	rec := httptest.NewRecorder()
	srv.Router().ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/api/v1/jobs", bytes.NewReader([]byte(`{}`))))
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = httptest.NewRecorder()
	srv.Router().ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/api/v1/jobs", bytes.NewReader([]byte(`not json`))))
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestGetJobNotFound(t *testing.T) {
	srv := newTestServer(t, nil)

	rec := httptest.NewRecorder()
	srv.Router().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/v1/jobs/nope", nil))
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestGetReport(t *testing.T) {
	srv := newTestServer(t, nil)

	running := models.NewJob("/data/orders.csv", "analytics", "dw_orders")
	srv.storeJob(running)

	rec := httptest.NewRecorder()
	srv.Router().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/v1/jobs/"+running.ID+"/report", nil))
	assert.Equal(t, http.StatusConflict, rec.Code)

	finished := models.NewJob("/data/orders.csv", "analytics", "dw_orders")
	finished.Transition(models.StatusCompleted)
	srv.storeJob(finished)

	rec = httptest.NewRecorder()
	srv.Router().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/v1/jobs/"+finished.ID+"/report", nil))
	require.Equal(t, http.StatusOK, rec.Code)

	var report map[string]interface{}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &report))
	assert.Contains(t, report, "quality_score")
	assert.Contains(t, report, "grade")
}

func TestGetLineage(t *testing.T) {
	srv := newTestServer(t, nil)

	job := models.NewJob("/data/orders.csv", "analytics", "dw_orders")
	job.AppendLineage(models.LineageEntry{Step: "INGESTION", StageName: "ingest"})
	srv.storeJob(job)

	rec := httptest.NewRecorder()
	srv.Router().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/v1/jobs/"+job.ID+"/lineage", nil))
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "INGESTION")
}

func TestStoredJobsAreSnapshots(t *testing.T) {
	srv := newTestServer(t, nil)

	job := models.NewJob("/data/orders.csv", "analytics", "dw_orders")
	srv.storeJob(job)

	// Mutations of the live job after storing must not show up in what the
	// handlers serve; the pipeline keeps mutating the job while it runs.
	job.Transition(models.StatusSchemaDiscovered)
	job.AppendLineage(models.LineageEntry{Step: "DISCOVERY", StageName: "discover"})

	stored, ok := srv.lookupJob(job.ID)
	require.True(t, ok)
	assert.Equal(t, models.StatusInitiated, stored.Status)
	assert.Empty(t, stored.Lineage)

	// Storing the terminal result replaces the snapshot.
	job.Transition(models.StatusFailed)
	srv.storeJob(job)
	stored, ok = srv.lookupJob(job.ID)
	require.True(t, ok)
	assert.Equal(t, models.StatusFailed, stored.Status)
	assert.Len(t, stored.Lineage, 1)
}
