// Package bootstrap assembles the pipeline from configuration. All binaries
// share this wiring.
package bootstrap

import (
	"context"
	"fmt"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/inferloop/dataforge/internal/config"
	"github.com/inferloop/dataforge/internal/lineage"
	"github.com/inferloop/dataforge/internal/observability/metrics"
	"github.com/inferloop/dataforge/internal/pipeline"
	"github.com/inferloop/dataforge/internal/reasoning"
	"github.com/inferloop/dataforge/internal/source"
	"github.com/inferloop/dataforge/internal/warehouse"
	"github.com/inferloop/dataforge/pkg/interfaces"
)

// Runtime holds the assembled pipeline and its collaborators.
type Runtime struct {
	Conductor *pipeline.Conductor
	Metrics   *metrics.PipelineMetrics
	Logger    *logrus.Logger

	source  interfaces.RecordSource
	sink    interfaces.WarehouseSink
	lineage interfaces.LineageStore
}

// NewLogger builds a logrus logger from the logging configuration.
func NewLogger(cfg config.LoggingConfig) *logrus.Logger {
	logger := logrus.New()
	if level, err := logrus.ParseLevel(cfg.Level); err == nil {
		logger.SetLevel(level)
	}
	if cfg.Format == "json" {
		logger.SetFormatter(&logrus.JSONFormatter{})
	}
	return logger
}

// Build wires the record source, warehouse sink, lineage store, reasoning
// client, and stage registry into a conductor.
func Build(ctx context.Context, cfg *config.Config, logger *logrus.Logger) (*Runtime, error) {
	if logger == nil {
		logger = NewLogger(cfg.Logging)
	}
	m := metrics.NewPipelineMetrics()

	src, err := NewSource(cfg, logger)
	if err != nil {
		return nil, err
	}
	sink, err := buildSink(cfg, logger)
	if err != nil {
		return nil, err
	}
	store, err := buildLineage(ctx, cfg, logger)
	if err != nil {
		return nil, err
	}

	var reasoner interfaces.ReasoningClient
	if cfg.Reasoning.Enabled && cfg.Reasoning.URL != "" {
		client := reasoning.NewHTTPClient(cfg.Reasoning.URL, cfg.Reasoning.Timeout)
		reasoner = reasoning.NewAdapter(client, logger)
	}

	stages := pipeline.DefaultStages(src, sink, reasoner, cfg.Pipeline.MaxErrorRate, m, logger)
	conductor := pipeline.NewConductor(stages, store, pipeline.ConductorConfig{
		Retry: pipeline.RetryPolicy{
			MaxAttempts:       cfg.Pipeline.MaxAttempts,
			InitialDelay:      cfg.Pipeline.InitialDelay,
			MaxDelay:          cfg.Pipeline.MaxDelay,
			BackoffMultiplier: cfg.Pipeline.BackoffMultiplier,
		},
		QualityThreshold: cfg.Pipeline.QualityThreshold,
	}, m, logger)

	return &Runtime{
		Conductor: conductor,
		Metrics:   m,
		Logger:    logger,
		source:    src,
		sink:      sink,
		lineage:   store,
	}, nil
}

// Close releases the runtime's external connections.
func (r *Runtime) Close() {
	if r.source != nil {
		r.source.Close()
	}
	if r.sink != nil {
		r.sink.Close()
	}
	if r.lineage != nil {
		r.lineage.Close()
	}
}

// NewSource builds the record source selected by the configuration.
func NewSource(cfg *config.Config, logger *logrus.Logger) (interfaces.RecordSource, error) {
	switch cfg.Source.Type {
	case "", "csv":
		return source.NewCSVSource(logger), nil
	case "s3":
		return source.NewS3Source(&source.S3Config{
			Region:          cfg.Source.Region,
			Bucket:          cfg.Source.Bucket,
			AccessKeyID:     cfg.Source.AccessKeyID,
			SecretAccessKey: cfg.Source.SecretAccessKey,
			Endpoint:        cfg.Source.Endpoint,
			ForcePathStyle:  cfg.Source.ForcePathStyle,
			Timeout:         cfg.Source.Timeout,
		}, logger)
	default:
		return nil, fmt.Errorf("unknown source type %q", cfg.Source.Type)
	}
}

func buildSink(cfg *config.Config, logger *logrus.Logger) (interfaces.WarehouseSink, error) {
	if cfg.Warehouse.DSN == "" {
		return nil, fmt.Errorf("warehouse.dsn is required")
	}
	return warehouse.NewPostgresSink(&warehouse.PostgresConfig{
		DSN:             cfg.Warehouse.DSN,
		MaxOpenConns:    cfg.Warehouse.MaxOpenConns,
		MaxIdleConns:    cfg.Warehouse.MaxIdleConns,
		ConnMaxLifetime: cfg.Warehouse.ConnMaxLifetime,
	}, logger)
}

func buildLineage(ctx context.Context, cfg *config.Config, logger *logrus.Logger) (interfaces.LineageStore, error) {
	switch cfg.Lineage.Backend {
	case "", "memory":
		return lineage.NewMemoryStore(), nil
	case "redis":
		store, err := lineage.NewRedisStore(&lineage.RedisConfig{
			Addr:      cfg.Lineage.RedisAddr,
			DB:        cfg.Lineage.RedisDB,
			TTL:       cfg.Lineage.RedisTTL,
			KeyPrefix: cfg.Lineage.KeyPrefix,
		}, logger)
		if err != nil {
			return nil, err
		}
		if err := store.Connect(ctx); err != nil {
			return nil, err
		}
		return store, nil
	case "postgres":
		store, err := lineage.NewPostgresStore(&lineage.PostgresConfig{
			DSN:             cfg.Lineage.DSN,
			ConnMaxLifetime: time.Hour,
		}, logger)
		if err != nil {
			return nil, err
		}
		if err := store.Connect(ctx); err != nil {
			return nil, err
		}
		return store, nil
	default:
		return nil, fmt.Errorf("unknown lineage backend %q", cfg.Lineage.Backend)
	}
}
