package repository

import (
	"context"
	"encoding/json"
	"fmt"
	"unicodeprep_backend/internal/model"
	"unicodeprep_backend/internal/util"

	"github.com/go-redis/redis/v8"
)

// RedisProgressStore 以 Redis 实现 ProgressStore，语义与 GORM 实现一致。
// 适用于不要求 MySQL 持久性的部署。
type RedisProgressStore struct {
	Client *redis.Client
}

func NewRedisProgressStore(client *redis.Client) *RedisProgressStore {
	return &RedisProgressStore{Client: client}
}

func (s *RedisProgressStore) Load(ctx context.Context, key string) (*model.UserProgress, error) {
	data, err := s.Client.Get(ctx, key).Bytes()
	if err != nil {
		if err == redis.Nil {
			return nil, util.ErrSnapshotNotFound
		}
		return nil, err
	}

	var progress model.UserProgress
	if err := json.Unmarshal(data, &progress); err != nil {
		return nil, fmt.Errorf("%w: %v", util.ErrSnapshotCorrupt, err)
	}
	progress.Normalize()
	return &progress, nil
}

func (s *RedisProgressStore) Save(ctx context.Context, key string, progress *model.UserProgress) error {
	data, err := json.Marshal(progress)
	if err != nil {
		return err
	}
	return s.Client.Set(ctx, key, data, 0).Err()
}

func (s *RedisProgressStore) Delete(ctx context.Context, key string) error {
	return s.Client.Del(ctx, key).Err()
}
