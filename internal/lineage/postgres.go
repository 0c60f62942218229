package lineage

import (
	"context"
	"database/sql"
	"time"

	// Registers the postgres driver.
	_ "github.com/lib/pq"
	"github.com/sirupsen/logrus"

	apperrors "github.com/inferloop/dataforge/pkg/errors"
	"github.com/inferloop/dataforge/pkg/models"
)

// PostgresConfig holds configuration for the durable lineage store.
type PostgresConfig struct {
	DSN             string        `json:"dsn"`
	MaxOpenConns    int           `json:"max_open_conns"`
	MaxIdleConns    int           `json:"max_idle_conns"`
	ConnMaxLifetime time.Duration `json:"conn_max_lifetime"`
}

// PostgresStore persists completion markers and lineage history in two
// append-only tables.
type PostgresStore struct {
	config *PostgresConfig
	db     *sql.DB
	logger *logrus.Logger
}

const lineageSchema = `
CREATE TABLE IF NOT EXISTS job_completions (
	marker_key     TEXT NOT NULL,
	target_table   TEXT NOT NULL,
	job_id         TEXT NOT NULL,
	execution_time TIMESTAMPTZ NOT NULL,
	records_loaded BIGINT NOT NULL,
	dataset_version TEXT,
	mapping_version TEXT,
	idempotent_load BOOLEAN NOT NULL DEFAULT FALSE,
	PRIMARY KEY (marker_key, target_table)
);
CREATE TABLE IF NOT EXISTS job_lineage (
	id             BIGSERIAL PRIMARY KEY,
	job_id         TEXT NOT NULL,
	step           TEXT NOT NULL,
	stage_name     TEXT NOT NULL,
	recorded_at    TIMESTAMPTZ NOT NULL,
	duration_ms    BIGINT NOT NULL,
	input_records  BIGINT NOT NULL,
	output_records BIGINT NOT NULL,
	failed         BOOLEAN NOT NULL DEFAULT FALSE,
	error_message  TEXT
);
CREATE INDEX IF NOT EXISTS idx_job_lineage_job_id ON job_lineage (job_id);
`

func NewPostgresStore(config *PostgresConfig, logger *logrus.Logger) (*PostgresStore, error) {
	if config == nil || config.DSN == "" {
		return nil, apperrors.NewStorageError("INVALID_CONFIG", "Postgres DSN is required")
	}
	if logger == nil {
		logger = logrus.New()
	}
	return &PostgresStore{config: config, logger: logger}, nil
}

// Connect opens the pool, verifies connectivity, and ensures the lineage
// tables exist.
func (s *PostgresStore) Connect(ctx context.Context) error {
	if s.db != nil {
		return nil
	}
	db, err := sql.Open("postgres", s.config.DSN)
	if err != nil {
		return apperrors.WrapError(err, apperrors.ErrorTypeStorage,
			apperrors.CodeConnectionFailed, "failed to open Postgres connection")
	}
	if s.config.MaxOpenConns > 0 {
		db.SetMaxOpenConns(s.config.MaxOpenConns)
	}
	if s.config.MaxIdleConns > 0 {
		db.SetMaxIdleConns(s.config.MaxIdleConns)
	}
	if s.config.ConnMaxLifetime > 0 {
		db.SetConnMaxLifetime(s.config.ConnMaxLifetime)
	}
	if err := db.PingContext(ctx); err != nil {
		db.Close()
		return apperrors.WrapError(err, apperrors.ErrorTypeStorage,
			apperrors.CodeConnectionFailed, "failed to connect to Postgres")
	}
	if _, err := db.ExecContext(ctx, lineageSchema); err != nil {
		db.Close()
		return apperrors.WrapError(err, apperrors.ErrorTypeStorage,
			apperrors.CodeWriteFailed, "lineage schema creation failed")
	}
	s.db = db
	s.logger.Info("Connected to Postgres lineage store")
	return nil
}

func (s *PostgresStore) HasCompleted(ctx context.Context, key, targetTable string) (bool, error) {
	var exists bool
	err := s.db.QueryRowContext(ctx,
		`SELECT EXISTS (SELECT 1 FROM job_completions WHERE marker_key = $1 AND target_table = $2)`,
		key, targetTable).Scan(&exists)
	if err != nil {
		return false, apperrors.WrapError(err, apperrors.ErrorTypeStorage,
			apperrors.CodeReadFailed, "completion marker lookup failed")
	}
	return exists, nil
}

func (s *PostgresStore) MarkCompleted(ctx context.Context, fingerprint, targetTable string, row *models.LineageRow) error {
	if row == nil {
		row = &models.LineageRow{TargetTable: targetTable, ExecutionTime: time.Now().UTC()}
	}
	keys := make([]string, 0, 2)
	if fingerprint != "" {
		keys = append(keys, fingerprint)
	}
	if row.JobID != "" && row.JobID != fingerprint {
		keys = append(keys, row.JobID)
	}
	for _, key := range keys {
		_, err := s.db.ExecContext(ctx,
			`INSERT INTO job_completions
				(marker_key, target_table, job_id, execution_time, records_loaded, dataset_version, mapping_version, idempotent_load)
			 VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
			 ON CONFLICT (marker_key, target_table) DO NOTHING`,
			key, targetTable, row.JobID, row.ExecutionTime, row.RecordsLoaded,
			row.DatasetVersion, row.MappingVersion, row.IdempotentLoad)
		if err != nil {
			return apperrors.WrapError(err, apperrors.ErrorTypeStorage,
				apperrors.CodeWriteFailed, "completion marker write failed")
		}
	}
	return nil
}

func (s *PostgresStore) Append(ctx context.Context, jobID string, entry *models.LineageEntry) error {
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO job_lineage
			(job_id, step, stage_name, recorded_at, duration_ms, input_records, output_records, failed, error_message)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)`,
		jobID, entry.Step, entry.StageName, entry.Timestamp, entry.Duration.Milliseconds(),
		entry.InputRecords, entry.OutputRecords, entry.Failed, entry.Error)
	if err != nil {
		return apperrors.WrapError(err, apperrors.ErrorTypeStorage,
			apperrors.CodeWriteFailed, "lineage append failed")
	}
	return nil
}

func (s *PostgresStore) History(ctx context.Context, jobID string) ([]*models.LineageEntry, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT step, stage_name, recorded_at, duration_ms, input_records, output_records, failed, COALESCE(error_message, '')
		 FROM job_lineage WHERE job_id = $1 ORDER BY id`, jobID)
	if err != nil {
		return nil, apperrors.WrapError(err, apperrors.ErrorTypeStorage,
			apperrors.CodeReadFailed, "lineage history read failed")
	}
	defer rows.Close()

	var entries []*models.LineageEntry
	for rows.Next() {
		var (
			entry      models.LineageEntry
			durationMs int64
		)
		if err := rows.Scan(&entry.Step, &entry.StageName, &entry.Timestamp, &durationMs,
			&entry.InputRecords, &entry.OutputRecords, &entry.Failed, &entry.Error); err != nil {
			return nil, apperrors.WrapError(err, apperrors.ErrorTypeStorage,
				apperrors.CodeReadFailed, "lineage row scan failed")
		}
		entry.Duration = time.Duration(durationMs) * time.Millisecond
		entries = append(entries, &entry)
	}
	if err := rows.Err(); err != nil {
		return nil, apperrors.WrapError(err, apperrors.ErrorTypeStorage,
			apperrors.CodeReadFailed, "lineage history iteration failed")
	}
	return entries, nil
}

func (s *PostgresStore) Close() error {
	if s.db == nil {
		return nil
	}
	return s.db.Close()
}
