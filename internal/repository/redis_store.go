package repository

import (
	"context"
	"errors"
	"time"

	"github.com/goccy/go-json"
	goredis "github.com/redis/go-redis/v9"

	"visitstats/internal/domain"
	apperrors "visitstats/pkg/errors"
	"visitstats/pkg/redis"
)

// redisStore keeps the snapshot as one JSON value under an
// environment-prefixed key
type redisStore struct {
	client *redis.Client
}

// NewRedisStore creates a store on top of an open Redis client
func NewRedisStore(client *redis.Client) VisitStore {
	return &redisStore{client: client}
}

func (s *redisStore) Load(ctx context.Context) (*domain.Snapshot, error) {
	data, err := s.client.GetBytes(ctx, s.client.KeyBuilder.KeyVisitSnapshot())
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return nil, nil
		}
		return nil, apperrors.NewStorageError("failed to read snapshot from Redis", err)
	}

	snapshot := &domain.Snapshot{}
	if err := json.Unmarshal(data, snapshot); err != nil {
		return nil, apperrors.NewStorageError("failed to decode snapshot from Redis", corrupt("%v", err))
	}

	return snapshot, nil
}

// Save replaces the snapshot and its timestamp in one MULTI/EXEC
func (s *redisStore) Save(ctx context.Context, snapshot *domain.Snapshot) error {
	data, err := json.Marshal(snapshot)
	if err != nil {
		return apperrors.NewStorageError("failed to encode snapshot", err)
	}

	savedAt := snapshot.SavedAt
	if savedAt.IsZero() {
		savedAt = time.Now()
	}

	err = s.client.TxPipelined(ctx, func(pipe goredis.Pipeliner) error {
		pipe.Set(ctx, s.client.KeyBuilder.KeyVisitSnapshot(), data, 0)
		pipe.Set(ctx, s.client.KeyBuilder.KeyVisitSavedAt(), savedAt.Unix(), 0)
		return nil
	})
	if err != nil {
		return apperrors.NewStorageError("failed to write snapshot to Redis", err)
	}

	return nil
}

// Close is a no-op; the Redis client is owned by the container
func (s *redisStore) Close() error {
	return nil
}
