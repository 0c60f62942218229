package models

import (
	"sync"
	"time"

	"github.com/google/uuid"
)

// JobStatus tracks a job through the pipeline state machine. Transitions only
// move forward, except for the terminal failure states which are reachable
// from any non-terminal status.
type JobStatus string

const (
	StatusInitiated        JobStatus = "INITIATED"
	StatusSchemaDiscovered JobStatus = "SCHEMA_DISCOVERED"
	StatusMapped           JobStatus = "MAPPED"
	StatusTransformed      JobStatus = "TRANSFORMED"
	StatusValidated        JobStatus = "VALIDATED"
	StatusLoaded           JobStatus = "LOADED"
	StatusCompleted        JobStatus = "COMPLETED"
	StatusFailed           JobStatus = "FAILED"
	StatusRolledBack       JobStatus = "ROLLED_BACK"
)

var statusRank = map[JobStatus]int{
	StatusInitiated:        0,
	StatusSchemaDiscovered: 1,
	StatusMapped:           2,
	StatusTransformed:      3,
	StatusValidated:        4,
	StatusLoaded:           5,
	StatusCompleted:        6,
}

// Terminal reports whether the status ends the job lifecycle.
func (s JobStatus) Terminal() bool {
	return s == StatusCompleted || s == StatusFailed || s == StatusRolledBack
}

// LineageEntry is the append-only audit record of one stage's terminal
// outcome. Retried attempts do not each produce an entry; only the final
// attempt does.
type LineageEntry struct {
	Step          string        `json:"step"`
	StageName     string        `json:"stage_name"`
	Timestamp     time.Time     `json:"timestamp"`
	Duration      time.Duration `json:"duration_ms"`
	InputRecords  int64         `json:"input_records"`
	OutputRecords int64         `json:"output_records"`
	Failed        bool          `json:"failed,omitempty"`
	Error         string        `json:"error,omitempty"`
}

// ErrorRecord captures a per-record data problem. Records are retained for
// audit even when the pipeline ultimately succeeds.
type ErrorRecord struct {
	RecordID  string    `json:"record_id"`
	FieldName string    `json:"field_name"`
	ErrorType string    `json:"error_type"`
	Message   string    `json:"error_message"`
	RawValue  string    `json:"raw_value,omitempty"`
	Timestamp time.Time `json:"timestamp"`
}

// JobStatistics holds monotonically non-decreasing record counters.
type JobStatistics struct {
	TotalRecordsRead         int64 `json:"total_records_read"`
	TotalRecordsLoaded       int64 `json:"total_records_loaded"`
	TotalRecordsRejected     int64 `json:"total_records_rejected"`
	TotalRecordsDeduplicated int64 `json:"total_records_deduplicated"`
}

// Job is the central aggregate threaded through every pipeline stage.
// Lineage and error logs are append-only and ordered by occurrence; appends
// are serialized so concurrent stage internals cannot interleave entries.
type Job struct {
	ID             string         `json:"job_id"`
	Status         JobStatus      `json:"status"`
	CreatedAt      time.Time      `json:"created_at"`
	StartedAt      *time.Time     `json:"started_at,omitempty"`
	CompletedAt    *time.Time     `json:"completed_at,omitempty"`
	DatasetVersion string         `json:"dataset_version,omitempty"`
	MappingVersion string         `json:"mapping_version,omitempty"`
	SourcePath     string         `json:"source_path"`
	TargetDataset  string         `json:"target_dataset"`
	TargetTable    string         `json:"target_table"`
	AuditLogPath   string         `json:"audit_log,omitempty"`
	Lineage        []LineageEntry `json:"lineage"`
	Errors         []ErrorRecord  `json:"errors"`
	Statistics     JobStatistics  `json:"statistics"`

	Schema    *SchemaContract     `json:"schema,omitempty"`
	Mappings  []FieldMapping      `json:"mappings,omitempty"`
	Transform *TransformationSpec `json:"transform,omitempty"`
	Findings  []AnomalyFinding    `json:"findings,omitempty"`

	// Rows, samples, and fingerprint captured at ingestion and consumed by
	// later stages. Not part of the audit surface.
	Rows        []map[string]string      `json:"-"`
	CleanedRows []map[string]interface{} `json:"-"`
	SampleRows  []map[string]string      `json:"-"`
	FieldOrder  []string                 `json:"-"`
	Fingerprint string                   `json:"fingerprint,omitempty"`

	mu          sync.Mutex
	stageCounts *stageCounts
}

type stageCounts struct {
	in  int64
	out int64
}

// NewJob constructs a job with a fresh id in the INITIATED state.
func NewJob(sourcePath, targetDataset, targetTable string) *Job {
	return &Job{
		ID:            uuid.New().String(),
		Status:        StatusInitiated,
		CreatedAt:     time.Now().UTC(),
		SourcePath:    sourcePath,
		TargetDataset: targetDataset,
		TargetTable:   targetTable,
		Lineage:       make([]LineageEntry, 0),
		Errors:        make([]ErrorRecord, 0),
	}
}

// Transition moves the job to next, enforcing forward-only progression.
// The terminal failure states are reachable from any non-terminal status.
func (j *Job) Transition(next JobStatus) bool {
	j.mu.Lock()
	defer j.mu.Unlock()

	if j.Status.Terminal() {
		return false
	}
	if next == StatusFailed || next == StatusRolledBack {
		j.Status = next
		return true
	}
	cur, ok := statusRank[j.Status]
	nxt, nok := statusRank[next]
	if !ok || !nok || nxt <= cur {
		return false
	}
	j.Status = next
	return true
}

// AppendLineage appends one entry to the lineage log.
func (j *Job) AppendLineage(entry LineageEntry) {
	j.mu.Lock()
	defer j.mu.Unlock()
	if entry.Timestamp.IsZero() {
		entry.Timestamp = time.Now().UTC()
	}
	j.Lineage = append(j.Lineage, entry)
}

// AppendError appends one error record to the error log. Records are never
// deduplicated.
func (j *Job) AppendError(rec ErrorRecord) {
	j.mu.Lock()
	defer j.mu.Unlock()
	if rec.Timestamp.IsZero() {
		rec.Timestamp = time.Now().UTC()
	}
	if rec.RecordID == "" {
		rec.RecordID = uuid.New().String()
	}
	j.Errors = append(j.Errors, rec)
}

// AddRecordsRead increments the read counter. Negative deltas are ignored so
// the counter never decreases.
func (j *Job) AddRecordsRead(n int64) {
	if n <= 0 {
		return
	}
	j.mu.Lock()
	j.Statistics.TotalRecordsRead += n
	j.mu.Unlock()
}

// AddRecordsLoaded increments the loaded counter.
func (j *Job) AddRecordsLoaded(n int64) {
	if n <= 0 {
		return
	}
	j.mu.Lock()
	j.Statistics.TotalRecordsLoaded += n
	j.mu.Unlock()
}

// AddRecordsRejected increments the rejected counter.
func (j *Job) AddRecordsRejected(n int64) {
	if n <= 0 {
		return
	}
	j.mu.Lock()
	j.Statistics.TotalRecordsRejected += n
	j.mu.Unlock()
}

// AddRecordsDeduplicated increments the deduplicated counter.
func (j *Job) AddRecordsDeduplicated(n int64) {
	if n <= 0 {
		return
	}
	j.mu.Lock()
	j.Statistics.TotalRecordsDeduplicated += n
	j.mu.Unlock()
}

// ReportCounts lets the running stage hand its input/output record counts to
// the conductor, which folds them into the stage's lineage entry.
func (j *Job) ReportCounts(in, out int64) {
	j.mu.Lock()
	j.stageCounts = &stageCounts{in: in, out: out}
	j.mu.Unlock()
}

// TakeReportedCounts returns and clears the counts reported by the most
// recent stage. ok is false when the stage reported nothing.
func (j *Job) TakeReportedCounts() (in, out int64, ok bool) {
	j.mu.Lock()
	defer j.mu.Unlock()
	if j.stageCounts == nil {
		return 0, 0, false
	}
	in, out = j.stageCounts.in, j.stageCounts.out
	j.stageCounts = nil
	return in, out, true
}

// Clone returns a deep copy of the job. The conductor snapshots the accepted
// job before each stage attempt so a failed attempt can be retried from
// clean state.
func (j *Job) Clone() *Job {
	j.mu.Lock()
	defer j.mu.Unlock()

	c := &Job{
		ID:             j.ID,
		Status:         j.Status,
		CreatedAt:      j.CreatedAt,
		DatasetVersion: j.DatasetVersion,
		MappingVersion: j.MappingVersion,
		SourcePath:     j.SourcePath,
		TargetDataset:  j.TargetDataset,
		TargetTable:    j.TargetTable,
		AuditLogPath:   j.AuditLogPath,
		Fingerprint:    j.Fingerprint,
		Statistics:     j.Statistics,
	}
	if j.StartedAt != nil {
		t := *j.StartedAt
		c.StartedAt = &t
	}
	if j.CompletedAt != nil {
		t := *j.CompletedAt
		c.CompletedAt = &t
	}
	c.Lineage = append([]LineageEntry(nil), j.Lineage...)
	c.Errors = append([]ErrorRecord(nil), j.Errors...)
	c.FieldOrder = append([]string(nil), j.FieldOrder...)
	if j.SampleRows != nil {
		c.SampleRows = make([]map[string]string, 0, len(j.SampleRows))
		for _, row := range j.SampleRows {
			cp := make(map[string]string, len(row))
			for k, v := range row {
				cp[k] = v
			}
			c.SampleRows = append(c.SampleRows, cp)
		}
	}
	if j.Rows != nil {
		c.Rows = make([]map[string]string, 0, len(j.Rows))
		for _, row := range j.Rows {
			cp := make(map[string]string, len(row))
			for k, v := range row {
				cp[k] = v
			}
			c.Rows = append(c.Rows, cp)
		}
	}
	if j.CleanedRows != nil {
		c.CleanedRows = make([]map[string]interface{}, 0, len(j.CleanedRows))
		for _, row := range j.CleanedRows {
			cp := make(map[string]interface{}, len(row))
			for k, v := range row {
				cp[k] = v
			}
			c.CleanedRows = append(c.CleanedRows, cp)
		}
	}
	if j.Schema != nil {
		c.Schema = j.Schema.Clone()
	}
	c.Mappings = append([]FieldMapping(nil), j.Mappings...)
	if j.Transform != nil {
		c.Transform = j.Transform.Clone()
	}
	c.Findings = append([]AnomalyFinding(nil), j.Findings...)
	if j.stageCounts != nil {
		sc := *j.stageCounts
		c.stageCounts = &sc
	}
	return c
}

// MarkStarted stamps the start timestamp once.
func (j *Job) MarkStarted() {
	j.mu.Lock()
	defer j.mu.Unlock()
	if j.StartedAt == nil {
		t := time.Now().UTC()
		j.StartedAt = &t
	}
}

// MarkCompleted stamps the completion timestamp.
func (j *Job) MarkCompleted() {
	j.mu.Lock()
	defer j.mu.Unlock()
	t := time.Now().UTC()
	j.CompletedAt = &t
}

// LineageRow is the record appended to the external lineage store, keyed by
// job id. It backs the idempotency check and external audit queries.
type LineageRow struct {
	JobID          string    `json:"job_id"`
	TargetTable    string    `json:"target_table"`
	ExecutionTime  time.Time `json:"execution_time"`
	RecordsLoaded  int64     `json:"records_loaded"`
	DatasetVersion string    `json:"dataset_version"`
	MappingVersion string    `json:"mapping_version"`
	IdempotentLoad bool      `json:"is_idempotent_load"`
}
