package lineage

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/inferloop/dataforge/pkg/models"
)

func TestMemoryStoreCompletionMarkers(t *testing.T) {
	store := NewMemoryStore()
	ctx := context.Background()

	done, err := store.HasCompleted(ctx, "fp-abc", "dw_orders")
	require.NoError(t, err)
	assert.False(t, done)

	row := &models.LineageRow{
		JobID:         "job-1",
		TargetTable:   "dw_orders",
		ExecutionTime: time.Now().UTC(),
		RecordsLoaded: 1000,
	}
	require.NoError(t, store.MarkCompleted(ctx, "fp-abc", "dw_orders", row))

	// Marker is visible under both the fingerprint and the job ID.
	done, err = store.HasCompleted(ctx, "fp-abc", "dw_orders")
	require.NoError(t, err)
	assert.True(t, done)

	done, err = store.HasCompleted(ctx, "job-1", "dw_orders")
	require.NoError(t, err)
	assert.True(t, done)

	// Same fingerprint against a different target is not completed.
	done, err = store.HasCompleted(ctx, "fp-abc", "dw_customers")
	require.NoError(t, err)
	assert.False(t, done)
}

func TestMemoryStoreHistory(t *testing.T) {
	store := NewMemoryStore()
	ctx := context.Background()

	entries, err := store.History(ctx, "job-2")
	require.NoError(t, err)
	assert.Empty(t, entries)

	first := &models.LineageEntry{Step: "INGESTION", StageName: "ingest", InputRecords: 1000, OutputRecords: 1000}
	second := &models.LineageEntry{Step: "SCHEMA_INFERENCE", StageName: "discover", InputRecords: 1000, OutputRecords: 3}
	require.NoError(t, store.Append(ctx, "job-2", first))
	require.NoError(t, store.Append(ctx, "job-2", second))

	entries, err = store.History(ctx, "job-2")
	require.NoError(t, err)
	require.Len(t, entries, 2)
	assert.Equal(t, "INGESTION", entries[0].Step)
	assert.Equal(t, "SCHEMA_INFERENCE", entries[1].Step)

	// History returns copies, not live references.
	entries[0].Step = "mutated"
	again, err := store.History(ctx, "job-2")
	require.NoError(t, err)
	assert.Equal(t, "INGESTION", again[0].Step)
}
