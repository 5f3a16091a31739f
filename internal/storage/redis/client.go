package redis

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	goredis "github.com/go-redis/redis/v8"
	"github.com/sirupsen/logrus"

	"github.com/tradepulse/trademl/pkg/constants"
	"github.com/tradepulse/trademl/pkg/errors"
	"github.com/tradepulse/trademl/pkg/models"
)

// RedisConfig holds configuration for the Redis checkpoint cache
type RedisConfig struct {
	Addr      string        `json:"addr"`
	Password  string        `json:"password"`
	DB        int           `json:"db"`
	KeyPrefix string        `json:"key_prefix"`
	TTL       time.Duration `json:"ttl"`
}

// RedisStorage keeps recent checkpoints hot in Redis with a TTL. It is
// a cache in front of durable storage, not a system of record.
type RedisStorage struct {
	config *RedisConfig
	client *goredis.Client
	logger *logrus.Logger
}

// NewRedisStorage creates Redis-backed checkpoint storage
func NewRedisStorage(config *RedisConfig, logger *logrus.Logger) (*RedisStorage, error) {
	if config == nil {
		return nil, errors.NewStorageError("INVALID_CONFIG", "redis config cannot be nil")
	}
	if config.Addr == "" {
		return nil, errors.NewStorageError("INVALID_CONFIG", "redis address is required")
	}
	if logger == nil {
		logger = logrus.New()
	}
	if config.TTL == 0 {
		config.TTL = constants.DefaultRedisCheckpointTTL
	}

	client := goredis.NewClient(&goredis.Options{
		Addr:     config.Addr,
		Password: config.Password,
		DB:       config.DB,
	})

	return &RedisStorage{config: config, client: client, logger: logger}, nil
}

func (r *RedisStorage) checkpointKey(id string) string {
	if r.config.KeyPrefix != "" {
		return fmt.Sprintf("%s:checkpoint:%s", r.config.KeyPrefix, id)
	}
	return "checkpoint:" + id
}

func (r *RedisStorage) modelKey(modelID string) string {
	if r.config.KeyPrefix != "" {
		return fmt.Sprintf("%s:model:%s:checkpoints", r.config.KeyPrefix, modelID)
	}
	return "model:" + modelID + ":checkpoints"
}

// Ping verifies connectivity
func (r *RedisStorage) Ping(ctx context.Context) error {
	if err := r.client.Ping(ctx).Err(); err != nil {
		return errors.WrapError(err, errors.ErrorTypeStorage, "PING_FAILED", "redis ping failed")
	}
	return nil
}

// Save stores a checkpoint with the configured TTL and records it on
// the model's checkpoint list
func (r *RedisStorage) Save(ctx context.Context, cp *models.Checkpoint) error {
	if cp == nil || cp.ID == "" {
		return errors.NewValidationError("INVALID_CHECKPOINT", "checkpoint must have an ID")
	}

	data, err := json.Marshal(cp)
	if err != nil {
		return errors.WrapError(err, errors.ErrorTypeStorage, "MARSHAL_FAILED", "failed to encode checkpoint")
	}

	pipe := r.client.TxPipeline()
	pipe.Set(ctx, r.checkpointKey(cp.ID), data, r.config.TTL)
	pipe.LPush(ctx, r.modelKey(cp.ModelID), cp.ID)
	pipe.Expire(ctx, r.modelKey(cp.ModelID), r.config.TTL)
	if _, err := pipe.Exec(ctx); err != nil {
		return errors.WrapError(err, errors.ErrorTypeStorage, "WRITE_FAILED", "failed to store checkpoint").
			WithContext("checkpoint_id", cp.ID)
	}
	return nil
}

// Load retrieves a checkpoint by ID
func (r *RedisStorage) Load(ctx context.Context, id string) (*models.Checkpoint, error) {
	data, err := r.client.Get(ctx, r.checkpointKey(id)).Bytes()
	if err == goredis.Nil {
		return nil, errors.NewStorageError("CHECKPOINT_NOT_FOUND", "checkpoint not found").
			WithContext("checkpoint_id", id)
	}
	if err != nil {
		return nil, errors.WrapError(err, errors.ErrorTypeStorage, "READ_FAILED", "failed to read checkpoint")
	}

	var cp models.Checkpoint
	if err := json.Unmarshal(data, &cp); err != nil {
		return nil, errors.WrapError(err, errors.ErrorTypeStorage, "UNMARSHAL_FAILED", "failed to decode checkpoint")
	}
	return &cp, nil
}

// List returns checkpoint IDs for a model, newest first. Entries whose
// checkpoints have expired are skipped.
func (r *RedisStorage) List(ctx context.Context, modelID string) ([]string, error) {
	ids, err := r.client.LRange(ctx, r.modelKey(modelID), 0, -1).Result()
	if err != nil {
		return nil, errors.WrapError(err, errors.ErrorTypeStorage, "READ_FAILED", "failed to list checkpoints")
	}

	live := make([]string, 0, len(ids))
	for _, id := range ids {
		exists, err := r.client.Exists(ctx, r.checkpointKey(id)).Result()
		if err == nil && exists > 0 {
			live = append(live, id)
		}
	}
	return live, nil
}

// Delete removes a checkpoint by ID
func (r *RedisStorage) Delete(ctx context.Context, id string) error {
	deleted, err := r.client.Del(ctx, r.checkpointKey(id)).Result()
	if err != nil {
		return errors.WrapError(err, errors.ErrorTypeStorage, "DELETE_FAILED", "failed to delete checkpoint")
	}
	if deleted == 0 {
		return errors.NewStorageError("CHECKPOINT_NOT_FOUND", "checkpoint not found").
			WithContext("checkpoint_id", id)
	}
	return nil
}

// Close releases the client connection pool
func (r *RedisStorage) Close() error {
	return r.client.Close()
}
