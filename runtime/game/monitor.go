package game

import (
	"context"
	"sync"
	"time"

	"github.com/uakfdotb/p-levelup/common/http"
	"github.com/uakfdotb/p-levelup/common/log"
	"github.com/uakfdotb/p-levelup/runtime/game/share"
)

const statusTimeout = 2 * time.Second

// Monitor 监控器
// 定期收集负载信息，并通过状态接口提供牌桌列表
type Monitor struct {
	tableManager   *TableManager
	updateInterval time.Duration
	log            *log.Logger

	mu     sync.RWMutex
	latest LoadInfo
}

// NewMonitor updateInterval 建议 5-10 秒
func NewMonitor(tableManager *TableManager, updateInterval time.Duration, lg *log.Logger) *Monitor {
	if lg == nil {
		lg = log.Default()
	}
	return &Monitor{
		tableManager:   tableManager,
		updateInterval: updateInterval,
		log:            lg,
	}
}

// Start 定期收集负载，直到 ctx 结束
func (m *Monitor) Start(ctx context.Context) {
	ticker := time.NewTicker(m.updateInterval)
	defer ticker.Stop()

	m.reportLoad()
	for {
		select {
		case <-ctx.Done():
			m.log.Info("Monitor 收到停止信号，退出监控")
			return
		case <-ticker.C:
			m.reportLoad()
		}
	}
}

func (m *Monitor) reportLoad() {
	li := m.collectLoadInfo()
	m.mu.Lock()
	m.latest = li
	m.mu.Unlock()
	m.log.Debug("负载: Load=%.2f, Tables=%d, Players=%d, CPU=%.2f%%, Mem=%.2f%%",
		li.Load, li.TableCount, li.PlayerCount, li.CPUUsage, li.MemUsage)
}

func (m *Monitor) collectLoadInfo() LoadInfo {
	tableCount, playerCount := m.tableManager.GetStats()
	cpuUsage, memUsage := sampleSystem()
	li := LoadInfo{
		TableCount:  tableCount,
		PlayerCount: playerCount,
		CPUUsage:    cpuUsage,
		MemUsage:    memUsage,
	}
	li.Load = li.CalculateLoad()
	return li
}

// Latest 最近一次收集的负载，牌桌数和连接数取实时值
func (m *Monitor) Latest() LoadInfo {
	m.mu.RLock()
	li := m.latest
	m.mu.RUnlock()
	li.TableCount, li.PlayerCount = m.tableManager.GetStats()
	li.Load = li.CalculateLoad()
	return li
}

// StatusView GET /status 的响应
type StatusView struct {
	Load   LoadInfo            `json:"load"`
	Tables []share.TableStatus `json:"tables"`
}

// RegisterRoutes 注册状态接口
func (m *Monitor) RegisterRoutes(s *http.HttpServer) {
	s.GET("/status", m.handleStatus)
	s.GET("/tables/:id", m.handleTable)
}

func (m *Monitor) handleStatus(c *http.Context) error {
	ctx, cancel := context.WithTimeout(c.Request().Context(), statusTimeout)
	defer cancel()

	view := StatusView{Load: m.Latest(), Tables: []share.TableStatus{}}
	for _, t := range m.tableManager.GetAllTables() {
		if st, ok := t.Status(ctx); ok {
			view.Tables = append(view.Tables, st)
		}
	}
	c.Success(view)
	return nil
}

func (m *Monitor) handleTable(c *http.Context) error {
	t, ok := m.tableManager.GetTable(c.GetParam("id"))
	if !ok {
		c.NotFound("table not found")
		return nil
	}
	ctx, cancel := context.WithTimeout(c.Request().Context(), statusTimeout)
	defer cancel()
	st, ok := t.Status(ctx)
	if !ok {
		c.ServiceUnavailable("table is closing")
		return nil
	}
	c.Success(st)
	return nil
}
