package container

import (
	"errors"
	"fmt"

	"github.com/uakfdotb/p-levelup/common/config"
	"github.com/uakfdotb/p-levelup/common/database"
	"github.com/uakfdotb/p-levelup/common/log"
)

// BaseContainer 共享的数据库连接，没有配置的数据库保持为 nil
type BaseContainer struct {
	mongo *database.MongoManager
	redis *database.RedisManager
}

// NewBase 按配置连接 mongo 和 redis
func NewBase(conf config.DatabaseConf) (*BaseContainer, error) {
	base := &BaseContainer{}
	if conf.MongoConf.Url != "" {
		mongo, err := database.NewMongo(conf.MongoConf)
		if err != nil {
			return nil, fmt.Errorf("mongodb 初始化失败: %w", err)
		}
		base.mongo = mongo
		log.Info("mongodb 连接成功")
	}
	if conf.RedisConf.Enabled() {
		redis, err := database.NewRedis(conf.RedisConf)
		if err != nil {
			_ = base.Close()
			return nil, fmt.Errorf("redis 初始化失败: %w", err)
		}
		base.redis = redis
		log.Info("redis 连接成功")
	}
	return base, nil
}

// GetMongo 获取 Mongo 管理器
func (c *BaseContainer) GetMongo() *database.MongoManager {
	return c.mongo
}

// GetRedis 获取 Redis 管理器
func (c *BaseContainer) GetRedis() *database.RedisManager {
	return c.redis
}

// Close 关闭所有资源
func (c *BaseContainer) Close() error {
	var errs []error
	if c.mongo != nil {
		if err := c.mongo.Close(); err != nil {
			log.Error("mongo 关闭失败: %v", err)
			errs = append(errs, err)
		}
	}
	if c.redis != nil {
		if err := c.redis.Close(); err != nil {
			log.Error("redis 关闭失败: %v", err)
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}
