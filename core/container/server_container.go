package container

import (
	"fmt"
	"sync"
	"time"

	"github.com/uakfdotb/p-levelup/common/cache"
	"github.com/uakfdotb/p-levelup/common/config"
	"github.com/uakfdotb/p-levelup/common/log"
	"github.com/uakfdotb/p-levelup/core/infrastructure/message/node"
	"github.com/uakfdotb/p-levelup/core/infrastructure/persistence"
	"github.com/uakfdotb/p-levelup/core/infrastructure/realtime"
	"github.com/uakfdotb/p-levelup/runtime/conn"
	"github.com/uakfdotb/p-levelup/runtime/game"
)

// ServerContainer 服务端容器
// 继承 BaseContainer 的数据库连接，组装牌桌和连接网关
type ServerContainer struct {
	*BaseContainer
	publisher node.Publisher
	bans      *cache.BanList

	GameWorker *game.Worker
	Connector  *conn.Worker

	closed bool
	mu     sync.Mutex
}

// NewServerContainer 按配置创建所有依赖
// 存档优先存 redis，没有配置 redis 时存到 savegames_path 目录；局记录只在配置了 mongo 时保存。
func NewServerContainer(loaded *config.Loaded) (*ServerContainer, error) {
	conf := loaded.Current()
	base, err := NewBase(conf.Database)
	if err != nil {
		return nil, err
	}
	c := &ServerContainer{BaseContainer: base, publisher: node.NopPublisher{}}

	store := loaded.Store()
	deps := game.Deps{
		Store: store,
		Log:   log.Default().With("game"),
	}

	if base.redis != nil {
		deps.Snapshots = realtime.NewRedisSnapshotRepository(base.redis, 0)
		log.Info("存档保存在 redis")
	} else {
		dir := store.String("savegames_path", config.DefaultSavegamesPath)
		deps.Snapshots = persistence.NewFileSnapshotRepository(dir)
		log.Info("存档保存在目录 %s", dir)
	}
	if base.mongo != nil {
		deps.Rounds = persistence.NewRoundRecordRepository(base.mongo)
	}

	if conf.Nats.URL != "" {
		cli := node.NewNatsClient()
		if err := cli.Run(conf.Nats.URL); err != nil {
			_ = base.Close()
			return nil, fmt.Errorf("nats 启动失败: %w", err)
		}
		c.publisher = node.NewEventPublisher(cli, log.Default().With("nats"))
	}
	deps.Publisher = c.publisher

	ttl := time.Duration(conf.Ban.TTLSeconds) * time.Second
	if ttl <= 0 {
		ttl = config.DefaultBanTTLSeconds * time.Second
	}
	bans, err := cache.NewBanList(ttl)
	if err != nil {
		c.closePublisher()
		_ = base.Close()
		return nil, err
	}
	c.bans = bans
	deps.Bans = bans

	c.GameWorker = game.NewWorker(deps, conf.Server.MaxTables)
	c.Connector = conn.NewWorker(c.GameWorker.TableManager,
		conn.WithLogger(log.Default().With("conn")),
		conn.WithConnectionRate(100, 100),
		conn.WithChatRate(2, 10),
	)
	log.Info("ServerContainer 创建完成")
	return c, nil
}

func (c *ServerContainer) closePublisher() {
	if p, ok := c.publisher.(*node.EventPublisher); ok {
		p.Close()
	}
}

// Close 关闭容器资源（幂等操作，可以安全地多次调用）
// 关闭顺序：1. 连接网关 2. GameWorker 3. 事件发布 4. BaseContainer（数据库连接）
func (c *ServerContainer) Close() error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.closed {
		return nil
	}
	c.closed = true

	if c.Connector != nil {
		c.Connector.Close()
	}
	if c.GameWorker != nil {
		c.GameWorker.Close()
	}
	c.closePublisher()
	if c.bans != nil {
		c.bans.Close()
	}
	if err := c.BaseContainer.Close(); err != nil {
		log.Error("BaseContainer 关闭失败: %v", err)
		return err
	}

	log.Info("ServerContainer 已关闭")
	return nil
}
