package lineage

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/go-redis/redis/v8"
	"github.com/sirupsen/logrus"

	apperrors "github.com/inferloop/dataforge/pkg/errors"
	"github.com/inferloop/dataforge/pkg/models"
)

// RedisConfig holds configuration for the Redis lineage store.
type RedisConfig struct {
	Addr         string        `json:"addr"`
	Password     string        `json:"password"`
	DB           int           `json:"db"`
	DialTimeout  time.Duration `json:"dial_timeout"`
	ReadTimeout  time.Duration `json:"read_timeout"`
	WriteTimeout time.Duration `json:"write_timeout"`
	PoolSize     int           `json:"pool_size"`
	KeyPrefix    string        `json:"key_prefix"`
	TTL          time.Duration `json:"ttl"`
}

// RedisStore keeps completion markers as keys and per-job lineage as lists.
// Suited to high-frequency idempotency checks; history durability belongs to
// the Postgres store.
type RedisStore struct {
	config *RedisConfig
	client *redis.Client
	logger *logrus.Logger
}

func NewRedisStore(config *RedisConfig, logger *logrus.Logger) (*RedisStore, error) {
	if config == nil || config.Addr == "" {
		return nil, apperrors.NewStorageError("INVALID_CONFIG", "Redis address is required")
	}
	if config.KeyPrefix == "" {
		config.KeyPrefix = "dataforge"
	}
	if logger == nil {
		logger = logrus.New()
	}
	return &RedisStore{config: config, logger: logger}, nil
}

// Connect establishes the Redis connection and verifies it with a ping.
func (s *RedisStore) Connect(ctx context.Context) error {
	if s.client != nil {
		return nil
	}
	client := redis.NewClient(&redis.Options{
		Addr:         s.config.Addr,
		Password:     s.config.Password,
		DB:           s.config.DB,
		DialTimeout:  s.config.DialTimeout,
		ReadTimeout:  s.config.ReadTimeout,
		WriteTimeout: s.config.WriteTimeout,
		PoolSize:     s.config.PoolSize,
	})
	if err := client.Ping(ctx).Err(); err != nil {
		return apperrors.WrapError(err, apperrors.ErrorTypeStorage,
			apperrors.CodeConnectionFailed, "failed to connect to Redis")
	}
	s.client = client
	s.logger.WithField("addr", s.config.Addr).Info("Connected to Redis lineage store")
	return nil
}

func (s *RedisStore) HasCompleted(ctx context.Context, key, targetTable string) (bool, error) {
	n, err := s.client.Exists(ctx, s.markerKey(key, targetTable)).Result()
	if err != nil {
		return false, apperrors.WrapError(err, apperrors.ErrorTypeStorage,
			apperrors.CodeReadFailed, "completion marker lookup failed")
	}
	return n > 0, nil
}

func (s *RedisStore) MarkCompleted(ctx context.Context, fingerprint, targetTable string, row *models.LineageRow) error {
	payload, err := json.Marshal(row)
	if err != nil {
		return apperrors.WrapError(err, apperrors.ErrorTypeStorage,
			apperrors.CodeWriteFailed, "lineage row encoding failed")
	}

	pipe := s.client.TxPipeline()
	if fingerprint != "" {
		pipe.Set(ctx, s.markerKey(fingerprint, targetTable), payload, s.config.TTL)
	}
	if row != nil && row.JobID != "" {
		pipe.Set(ctx, s.markerKey(row.JobID, targetTable), payload, s.config.TTL)
	}
	if _, err := pipe.Exec(ctx); err != nil {
		return apperrors.WrapError(err, apperrors.ErrorTypeStorage,
			apperrors.CodeWriteFailed, "completion marker write failed")
	}
	return nil
}

func (s *RedisStore) Append(ctx context.Context, jobID string, entry *models.LineageEntry) error {
	payload, err := json.Marshal(entry)
	if err != nil {
		return apperrors.WrapError(err, apperrors.ErrorTypeStorage,
			apperrors.CodeWriteFailed, "lineage entry encoding failed")
	}
	key := s.historyKey(jobID)
	pipe := s.client.TxPipeline()
	pipe.RPush(ctx, key, payload)
	if s.config.TTL > 0 {
		pipe.Expire(ctx, key, s.config.TTL)
	}
	if _, err := pipe.Exec(ctx); err != nil {
		return apperrors.WrapError(err, apperrors.ErrorTypeStorage,
			apperrors.CodeWriteFailed, "lineage append failed")
	}
	return nil
}

func (s *RedisStore) History(ctx context.Context, jobID string) ([]*models.LineageEntry, error) {
	raw, err := s.client.LRange(ctx, s.historyKey(jobID), 0, -1).Result()
	if err != nil {
		return nil, apperrors.WrapError(err, apperrors.ErrorTypeStorage,
			apperrors.CodeReadFailed, "lineage history read failed")
	}
	entries := make([]*models.LineageEntry, 0, len(raw))
	for _, item := range raw {
		var entry models.LineageEntry
		if err := json.Unmarshal([]byte(item), &entry); err != nil {
			return nil, apperrors.WrapError(err, apperrors.ErrorTypeStorage,
				apperrors.CodeReadFailed, "lineage entry decoding failed")
		}
		entries = append(entries, &entry)
	}
	return entries, nil
}

func (s *RedisStore) Close() error {
	if s.client == nil {
		return nil
	}
	return s.client.Close()
}

func (s *RedisStore) markerKey(key, targetTable string) string {
	return fmt.Sprintf("%s:completed:%s:%s", s.config.KeyPrefix, targetTable, key)
}

func (s *RedisStore) historyKey(jobID string) string {
	return fmt.Sprintf("%s:lineage:%s", s.config.KeyPrefix, jobID)
}
