// Package config loads service configuration from file and environment.
package config

import (
	"fmt"
	"time"

	"github.com/spf13/viper"
)

type Config struct {
	Server    ServerConfig    `mapstructure:"server"`
	Pipeline  PipelineConfig  `mapstructure:"pipeline"`
	Source    SourceConfig    `mapstructure:"source"`
	Warehouse WarehouseConfig `mapstructure:"warehouse"`
	Lineage   LineageConfig   `mapstructure:"lineage"`
	Reasoning ReasoningConfig `mapstructure:"reasoning"`
	Logging   LoggingConfig   `mapstructure:"logging"`
}

type ServerConfig struct {
	Host         string        `mapstructure:"host"`
	Port         int           `mapstructure:"port"`
	ReadTimeout  time.Duration `mapstructure:"read_timeout"`
	WriteTimeout time.Duration `mapstructure:"write_timeout"`
}

type PipelineConfig struct {
	MaxAttempts       int           `mapstructure:"max_attempts"`
	InitialDelay      time.Duration `mapstructure:"initial_delay"`
	MaxDelay          time.Duration `mapstructure:"max_delay"`
	BackoffMultiplier float64       `mapstructure:"backoff_multiplier"`
	QualityThreshold  float64       `mapstructure:"quality_threshold"`
	MaxErrorRate      float64       `mapstructure:"max_error_rate"`
	Workers           int           `mapstructure:"workers"`
}

type SourceConfig struct {
	// Type selects the record source: "csv" or "s3".
	Type            string        `mapstructure:"type"`
	Region          string        `mapstructure:"region"`
	Bucket          string        `mapstructure:"bucket"`
	AccessKeyID     string        `mapstructure:"access_key_id"`
	SecretAccessKey string        `mapstructure:"secret_access_key"`
	Endpoint        string        `mapstructure:"endpoint"`
	ForcePathStyle  bool          `mapstructure:"force_path_style"`
	Timeout         time.Duration `mapstructure:"timeout"`
}

type WarehouseConfig struct {
	DSN             string        `mapstructure:"dsn"`
	MaxOpenConns    int           `mapstructure:"max_open_conns"`
	MaxIdleConns    int           `mapstructure:"max_idle_conns"`
	ConnMaxLifetime time.Duration `mapstructure:"conn_max_lifetime"`
}

type LineageConfig struct {
	// Backend selects the lineage store: "memory", "redis" or "postgres".
	Backend   string        `mapstructure:"backend"`
	RedisAddr string        `mapstructure:"redis_addr"`
	RedisDB   int           `mapstructure:"redis_db"`
	RedisTTL  time.Duration `mapstructure:"redis_ttl"`
	DSN       string        `mapstructure:"dsn"`
	KeyPrefix string        `mapstructure:"key_prefix"`
}

type ReasoningConfig struct {
	Enabled bool          `mapstructure:"enabled"`
	URL     string        `mapstructure:"url"`
	Timeout time.Duration `mapstructure:"timeout"`
}

type LoggingConfig struct {
	Level  string `mapstructure:"level"`
	Format string `mapstructure:"format"`
}

// Load reads configuration from the given file (optional) with DATAFORGE_*
// environment overrides.
func Load(cfgFile string) (*Config, error) {
	v := viper.New()

	if cfgFile != "" {
		v.SetConfigFile(cfgFile)
	} else {
		v.AddConfigPath(".")
		v.AddConfigPath("/etc/dataforge")
		v.SetConfigName("dataforge")
		v.SetConfigType("yaml")
	}

	v.SetEnvPrefix("DATAFORGE")
	v.AutomaticEnv()

	setDefaults(v)

	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, fmt.Errorf("error reading config file: %w", err)
		}
	}

	config := &Config{}
	if err := v.Unmarshal(config); err != nil {
		return nil, fmt.Errorf("error unmarshaling config: %w", err)
	}
	return config, nil
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("server.host", "0.0.0.0")
	v.SetDefault("server.port", 8080)
	v.SetDefault("server.read_timeout", 30*time.Second)
	v.SetDefault("server.write_timeout", 30*time.Second)

	v.SetDefault("pipeline.max_attempts", 3)
	v.SetDefault("pipeline.initial_delay", time.Second)
	v.SetDefault("pipeline.max_delay", 30*time.Second)
	v.SetDefault("pipeline.backoff_multiplier", 2.0)
	v.SetDefault("pipeline.quality_threshold", 0.0)
	v.SetDefault("pipeline.max_error_rate", 0.10)
	v.SetDefault("pipeline.workers", 4)

	v.SetDefault("source.type", "csv")
	v.SetDefault("source.region", "us-east-1")
	v.SetDefault("source.timeout", 60*time.Second)

	v.SetDefault("warehouse.max_open_conns", 10)
	v.SetDefault("warehouse.max_idle_conns", 5)
	v.SetDefault("warehouse.conn_max_lifetime", time.Hour)

	v.SetDefault("lineage.backend", "memory")
	v.SetDefault("lineage.redis_addr", "localhost:6379")
	v.SetDefault("lineage.key_prefix", "dataforge")

	v.SetDefault("reasoning.enabled", false)
	v.SetDefault("reasoning.timeout", 20*time.Second)

	v.SetDefault("logging.level", "info")
	v.SetDefault("logging.format", "json")
}
