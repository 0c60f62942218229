package interfaces

import (
	"context"

	"github.com/inferloop/dataforge/pkg/models"
)

// RecordSource reads raw records from an external location (filesystem, S3).
type RecordSource interface {
	// Fetch reads up to limit rows from path. limit <= 0 means all rows.
	Fetch(ctx context.Context, path string, limit int) (*models.RecordSet, error)
	Close() error
}

// WarehouseSink is the load target for transformed records.
type WarehouseSink interface {
	// EnsureTarget creates or verifies the destination table for the contract.
	EnsureTarget(ctx context.Context, dataset, table string, contract *models.SchemaContract) error
	// Load writes rows into the target and returns the number of rows loaded.
	Load(ctx context.Context, dataset, table string, fieldOrder []string, rows []map[string]interface{}) (int64, error)
	Close() error
}

// LineageStore persists completed-load markers and lineage history. HasCompleted
// backs the conductor's idempotency check: a (fingerprint, target) pair that
// already completed is never loaded twice.
type LineageStore interface {
	HasCompleted(ctx context.Context, fingerprint, targetTable string) (bool, error)
	MarkCompleted(ctx context.Context, fingerprint, targetTable string, row *models.LineageRow) error
	Append(ctx context.Context, jobID string, entry *models.LineageEntry) error
	History(ctx context.Context, jobID string) ([]*models.LineageEntry, error)
	Close() error
}

// ReasoningClient proposes field mappings from a discovered schema. Results are
// advisory and must pass validation before anything downstream consumes them.
type ReasoningClient interface {
	Suggest(ctx context.Context, contract *models.SchemaContract, targetDataset string) (*models.MappingSuggestion, error)
}
