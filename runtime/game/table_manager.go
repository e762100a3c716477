package game

import (
	"errors"
	"fmt"
	"sort"
	"sync"

	"github.com/google/uuid"

	"github.com/uakfdotb/p-levelup/common/config"
	"github.com/uakfdotb/p-levelup/common/log"
	"github.com/uakfdotb/p-levelup/runtime/game/share"
)

var ErrTooManyTables = errors.New("牌桌数量已达上限")

// TableManager 牌桌管理器
// 始终只有一张开放的桌子接受入座，坐满开局后再开一张新桌子。
type TableManager struct {
	deps      Deps
	maxTables int

	tables map[string]*Table
	open   *Table
	mu     sync.RWMutex

	destroyTableCh chan string
	destroyMu      sync.Mutex
	destroyClosed  bool
}

// NewTableManager maxTables 为 0 表示不限制
func NewTableManager(deps Deps, maxTables int) *TableManager {
	if deps.Store == nil {
		deps.Store = config.NewMapStore(nil)
	}
	if deps.Log == nil {
		deps.Log = log.Default()
	}
	tm := &TableManager{
		deps:           deps,
		maxTables:      maxTables,
		tables:         make(map[string]*Table),
		destroyTableCh: make(chan string, 128),
	}
	go tm.destroyTableLoop()
	return tm
}

// Join 把连接安排到开放的桌子上，返回桌子和座位号，-1 表示拒绝
func (tm *TableManager) Join(p share.Participant, name string) (share.TableHandle, int) {
	if name == "" {
		return nil, -1
	}
	if tm.deps.Bans != nil && tm.deps.Bans.Banned(name) {
		tm.logger().Info("拒绝被封禁的玩家 [%s|%s]", name, p.RemoteAddr())
		return nil, -1
	}

	// 开放的桌子可能刚被读档开局，换一张再试
	for attempt := 0; attempt < 3; attempt++ {
		t, err := tm.openTable()
		if err != nil {
			tm.logger().Warn("玩家 [%s] 无法入座: %v", name, err)
			return nil, -1
		}
		r := t.Join(p, name)
		if r.PID >= 0 {
			if r.Full {
				tm.closeOpen(t)
			}
			return t, r.PID
		}
		if !r.Loaded {
			return nil, -1
		}
		tm.closeOpen(t)
	}
	return nil, -1
}

func (tm *TableManager) logger() *log.Logger {
	return tm.deps.Log
}

// openTable 取开放的桌子，没有就创建
func (tm *TableManager) openTable() (*Table, error) {
	tm.mu.Lock()
	defer tm.mu.Unlock()

	if tm.open != nil && !tm.open.Loaded() {
		return tm.open, nil
	}
	if tm.maxTables > 0 && len(tm.tables) >= tm.maxTables {
		return nil, ErrTooManyTables
	}

	numPlayers := tm.deps.Store.Int("numplayers", config.DefaultNumPlayers)
	t, err := NewTable(uuid.NewString(), numPlayers, tm.deps, tm.RequestDestroyTable)
	if err != nil {
		tm.logger().Warn("numplayers=%d 无效, 使用默认值 %d: %v", numPlayers, config.DefaultNumPlayers, err)
		t, err = NewTable(uuid.NewString(), config.DefaultNumPlayers, tm.deps, tm.RequestDestroyTable)
		if err != nil {
			return nil, fmt.Errorf("创建牌桌失败: %w", err)
		}
	}
	tm.tables[t.ID] = t
	tm.open = t
	return t, nil
}

// closeOpen 桌子开局后不再作为开放的桌子
func (tm *TableManager) closeOpen(t *Table) {
	tm.mu.Lock()
	defer tm.mu.Unlock()
	if tm.open == t {
		tm.open = nil
	}
}

func (tm *TableManager) destroyTableLoop() {
	for tableID := range tm.destroyTableCh {
		if tableID == "" {
			continue
		}
		if err := tm.DeleteTable(tableID); err != nil {
			tm.logger().Warn("TableManager destroyTableLoop 删除牌桌失败: %v", err)
		}
	}
}

// RequestDestroyTable 异步删除牌桌，可以在桌子自己的协程上调用
func (tm *TableManager) RequestDestroyTable(tableID string) {
	if tableID == "" {
		return
	}

	tm.destroyMu.Lock()
	defer tm.destroyMu.Unlock()
	if tm.destroyClosed {
		return
	}
	select {
	case tm.destroyTableCh <- tableID:
	default:
		tm.logger().Warn("TableManager RequestDestroyTable 队列已满, tableID=%s", tableID)
	}
}

// DeleteTable 删除并关闭牌桌
func (tm *TableManager) DeleteTable(tableID string) error {
	tm.mu.Lock()
	t, exists := tm.tables[tableID]
	if !exists {
		tm.mu.Unlock()
		return fmt.Errorf("牌桌 %s 不存在", tableID)
	}
	delete(tm.tables, tableID)
	if tm.open == t {
		tm.open = nil
	}
	tm.mu.Unlock()

	t.Close()
	tm.logger().Info("TableManager 删除牌桌 %s", tableID)
	return nil
}

// GetTable 获取牌桌
func (tm *TableManager) GetTable(tableID string) (*Table, bool) {
	tm.mu.RLock()
	defer tm.mu.RUnlock()
	t, ok := tm.tables[tableID]
	return t, ok
}

// GetStats 牌桌数和连接数，供 Monitor 使用
func (tm *TableManager) GetStats() (tableCount int, playerCount int) {
	tm.mu.RLock()
	defer tm.mu.RUnlock()
	for _, t := range tm.tables {
		playerCount += t.Players()
	}
	return len(tm.tables), playerCount
}

// GetAllTables 按 ID 排序的牌桌列表
func (tm *TableManager) GetAllTables() []*Table {
	tm.mu.RLock()
	tables := make([]*Table, 0, len(tm.tables))
	for _, t := range tm.tables {
		tables = append(tables, t)
	}
	tm.mu.RUnlock()

	sort.Slice(tables, func(i, j int) bool { return tables[i].ID < tables[j].ID })
	return tables
}

// Close 关闭所有牌桌
func (tm *TableManager) Close() {
	tm.destroyMu.Lock()
	if !tm.destroyClosed {
		tm.destroyClosed = true
		close(tm.destroyTableCh)
	}
	tm.destroyMu.Unlock()

	tm.mu.Lock()
	tables := tm.tables
	tm.tables = make(map[string]*Table)
	tm.open = nil
	tm.mu.Unlock()

	for _, t := range tables {
		t.Close()
	}
}
