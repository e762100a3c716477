package database

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/uakfdotb/p-levelup/common/config"
	"github.com/uakfdotb/p-levelup/common/log"

	"github.com/redis/go-redis/v9"
)

// ErrNil 键不存在
var ErrNil = redis.Nil

type RedisManager struct {
	Cli        *redis.Client
	ClusterCli *redis.ClusterClient
}

func NewRedis(redisConf config.RedisConf) (*RedisManager, error) {
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	r := &RedisManager{}
	if len(redisConf.ClusterAddrs) > 0 {
		r.ClusterCli = redis.NewClusterClient(&redis.ClusterOptions{
			Addrs:        redisConf.ClusterAddrs,
			Password:     redisConf.Password, // 如果没有密码，这个字段为空字符串，Redis会忽略
			PoolSize:     redisConf.PoolSize,
			MinIdleConns: redisConf.MinIdleConns,
		})
	} else {
		// 构建Redis地址
		addr := redisConf.Addr
		if addr == "" {
			if redisConf.Host == "" || redisConf.Port <= 0 {
				return nil, errors.New("redis 配置出错")
			}
			addr = fmt.Sprintf("%s:%d", redisConf.Host, redisConf.Port)
		}
		r.Cli = redis.NewClient(&redis.Options{
			Addr:         addr,
			Password:     redisConf.Password,
			PoolSize:     redisConf.PoolSize,
			MinIdleConns: redisConf.MinIdleConns,
		})
	}

	cli, _ := r.GetClient()
	if err := cli.Ping(ctx).Err(); err != nil {
		_ = r.Close()
		return nil, fmt.Errorf("redis 连接错误: %w", err)
	}
	return r, nil
}

// NewRedisWithClient 使用已有的客户端
func NewRedisWithClient(cli *redis.Client) *RedisManager {
	return &RedisManager{Cli: cli}
}

func (r *RedisManager) GetClient() (redis.Cmdable, error) {
	if r.Cli != nil {
		return r.Cli, nil
	}
	if r.ClusterCli != nil {
		return r.ClusterCli, nil
	}
	return nil, fmt.Errorf("redis 客户端未初始化")
}

// SetNX 键不存在时写入，返回是否写入
func (r *RedisManager) SetNX(ctx context.Context, key string, value []byte, expiration time.Duration) (bool, error) {
	cli, err := r.GetClient()
	if err != nil {
		return false, err
	}
	return cli.SetNX(ctx, key, value, expiration).Result()
}

func (r *RedisManager) GetBytes(ctx context.Context, key string) ([]byte, error) {
	cli, err := r.GetClient()
	if err != nil {
		return nil, err
	}
	return cli.Get(ctx, key).Bytes()
}

func (r *RedisManager) Del(ctx context.Context, keys ...string) error {
	cli, err := r.GetClient()
	if err != nil {
		return err
	}
	return cli.Del(ctx, keys...).Err()
}

func (r *RedisManager) Exists(ctx context.Context, key ...string) (int64, error) {
	cli, err := r.GetClient()
	if err != nil {
		return 0, err
	}
	return cli.Exists(ctx, key...).Result()
}

func (r *RedisManager) Close() error {
	if r.Cli != nil {
		if err := r.Cli.Close(); err != nil {
			log.Error("redis 关闭出错: %v", err)
			return err
		}
	}
	if r.ClusterCli != nil {
		if err := r.ClusterCli.Close(); err != nil {
			log.Error("redisCluster 关闭出错: %v", err)
			return err
		}
	}
	return nil
}
