package realtime

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/uakfdotb/p-levelup/common/database"
	"github.com/uakfdotb/p-levelup/core/domain/repository"
)

const snapshotKey = "levelup:snapshot" // name -> 存档

// RedisSnapshotRepository Redis 实现的存档仓储
type RedisSnapshotRepository struct {
	redis *database.RedisManager
	ttl   time.Duration
}

// NewRedisSnapshotRepository ttl 为 0 时不过期
func NewRedisSnapshotRepository(redis *database.RedisManager, ttl time.Duration) repository.SnapshotRepository {
	return &RedisSnapshotRepository{redis: redis, ttl: ttl}
}

func (r *RedisSnapshotRepository) key(name string) (string, error) {
	cleaned, err := repository.CleanSnapshotName(name)
	if err != nil {
		return "", err
	}
	return snapshotKey + ":" + cleaned, nil
}

func (r *RedisSnapshotRepository) SaveSnapshot(ctx context.Context, name string, data []byte) error {
	key, err := r.key(name)
	if err != nil {
		return err
	}
	ok, err := r.redis.SetNX(ctx, key, data, r.ttl)
	if err != nil {
		return fmt.Errorf("保存存档失败: %w", err)
	}
	if !ok {
		return repository.ErrSnapshotExists
	}
	return nil
}

func (r *RedisSnapshotRepository) LoadSnapshot(ctx context.Context, name string) ([]byte, error) {
	key, err := r.key(name)
	if err != nil {
		return nil, err
	}
	data, err := r.redis.GetBytes(ctx, key)
	if err != nil {
		if errors.Is(err, database.ErrNil) {
			return nil, repository.ErrSnapshotNotFound
		}
		return nil, fmt.Errorf("读取存档失败: %w", err)
	}
	return data, nil
}
