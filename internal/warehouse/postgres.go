// Package warehouse implements the load target for cleaned records.
package warehouse

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"time"

	"github.com/lib/pq"
	"github.com/sirupsen/logrus"

	"github.com/inferloop/dataforge/internal/mapping"
	apperrors "github.com/inferloop/dataforge/pkg/errors"
	"github.com/inferloop/dataforge/pkg/models"
)

// PostgresConfig holds configuration for the warehouse connection.
type PostgresConfig struct {
	DSN             string        `json:"dsn"`
	MaxOpenConns    int           `json:"max_open_conns"`
	MaxIdleConns    int           `json:"max_idle_conns"`
	ConnMaxLifetime time.Duration `json:"conn_max_lifetime"`
}

// PostgresSink loads rows into per-dataset schemas with COPY.
type PostgresSink struct {
	config *PostgresConfig
	db     *sql.DB
	logger *logrus.Logger
}

func NewPostgresSink(config *PostgresConfig, logger *logrus.Logger) (*PostgresSink, error) {
	if config == nil || config.DSN == "" {
		return nil, apperrors.NewStorageError("INVALID_CONFIG", "warehouse DSN is required")
	}
	if logger == nil {
		logger = logrus.New()
	}
	return &PostgresSink{config: config, logger: logger}, nil
}

func (s *PostgresSink) Connect(ctx context.Context) error {
	if s.db != nil {
		return nil
	}
	db, err := sql.Open("postgres", s.config.DSN)
	if err != nil {
		return apperrors.WrapError(err, apperrors.ErrorTypeStorage,
			apperrors.CodeConnectionFailed, "failed to open warehouse connection")
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
			apperrors.CodeConnectionFailed, "failed to connect to warehouse")
	}
	s.db = db
	s.logger.Info("Connected to warehouse")
	return nil
}

// EnsureTarget creates the dataset schema and target table when absent. The
// table's columns are the contract's fields under their canonical names.
func (s *PostgresSink) EnsureTarget(ctx context.Context, dataset, table string, contract *models.SchemaContract) error {
	if err := s.Connect(ctx); err != nil {
		return err
	}
	if contract == nil || len(contract.Fields) == 0 {
		return apperrors.NewStorageError("INVALID_CONTRACT", "cannot provision target without a schema contract")
	}

	if _, err := s.db.ExecContext(ctx,
		fmt.Sprintf(`CREATE SCHEMA IF NOT EXISTS %s`, pq.QuoteIdentifier(dataset))); err != nil {
		return apperrors.WrapError(err, apperrors.ErrorTypeStorage,
			apperrors.CodeWriteFailed, fmt.Sprintf("schema provisioning failed for %s", dataset))
	}

	columns := make([]string, 0, len(contract.Fields))
	for _, field := range contract.Fields {
		column := mapping.CanonicalName(field.Name)
		columns = append(columns, fmt.Sprintf("%s %s", pq.QuoteIdentifier(column), pgType(field.InferredType)))
	}

	ddl := fmt.Sprintf(`CREATE TABLE IF NOT EXISTS %s.%s (%s)`,
		pq.QuoteIdentifier(dataset), pq.QuoteIdentifier(table), strings.Join(columns, ", "))
	if _, err := s.db.ExecContext(ctx, ddl); err != nil {
		return apperrors.WrapError(err, apperrors.ErrorTypeStorage,
			apperrors.CodeWriteFailed, fmt.Sprintf("table provisioning failed for %s.%s", dataset, table))
	}
	return nil
}

// Load bulk-inserts the rows inside one transaction using COPY. A failure
// rolls the whole batch back so the target never holds a partial load.
func (s *PostgresSink) Load(ctx context.Context, dataset, table string, fieldOrder []string, rows []map[string]interface{}) (int64, error) {
	if err := s.Connect(ctx); err != nil {
		return 0, err
	}
	if len(rows) == 0 {
		return 0, nil
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return 0, apperrors.WrapError(err, apperrors.ErrorTypeStorage,
			apperrors.CodeWriteFailed, "failed to begin load transaction")
	}

	stmt, err := tx.PrepareContext(ctx, pq.CopyInSchema(dataset, table, fieldOrder...))
	if err != nil {
		tx.Rollback()
		return 0, apperrors.WrapError(err, apperrors.ErrorTypeStorage,
			apperrors.CodeWriteFailed, "failed to prepare COPY")
	}

	for _, row := range rows {
		args := make([]interface{}, len(fieldOrder))
		for i, field := range fieldOrder {
			args[i] = row[field]
		}
		if _, err := stmt.ExecContext(ctx, args...); err != nil {
			stmt.Close()
			tx.Rollback()
			return 0, apperrors.WrapError(err, apperrors.ErrorTypeStorage,
				apperrors.CodeWriteFailed, "COPY row failed")
		}
	}

	// Flush the COPY buffer.
	if _, err := stmt.ExecContext(ctx); err != nil {
		stmt.Close()
		tx.Rollback()
		return 0, apperrors.WrapError(err, apperrors.ErrorTypeStorage,
			apperrors.CodeWriteFailed, "COPY flush failed")
	}
	if err := stmt.Close(); err != nil {
		tx.Rollback()
		return 0, apperrors.WrapError(err, apperrors.ErrorTypeStorage,
			apperrors.CodeWriteFailed, "COPY close failed")
	}
	if err := tx.Commit(); err != nil {
		return 0, apperrors.WrapError(err, apperrors.ErrorTypeStorage,
			apperrors.CodeWriteFailed, "load commit failed")
	}

	s.logger.WithFields(logrus.Fields{
		"dataset": dataset,
		"table":   table,
		"rows":    len(rows),
	}).Info("Batch loaded")
	return int64(len(rows)), nil
}

func (s *PostgresSink) Close() error {
	if s.db == nil {
		return nil
	}
	return s.db.Close()
}

// pgType maps an inferred field type to its warehouse column type.
func pgType(t models.FieldType) string {
	switch t {
	case models.TypeInteger:
		return "BIGINT"
	case models.TypeFloat:
		return "NUMERIC(18,2)"
	case models.TypeBoolean:
		return "BOOLEAN"
	case models.TypeDate:
		return "DATE"
	case models.TypeTimestamp:
		return "TIMESTAMPTZ"
	default:
		return "TEXT"
	}
}
