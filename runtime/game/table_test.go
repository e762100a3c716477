package game

import (
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/uakfdotb/p-levelup/common/cache"
	"github.com/uakfdotb/p-levelup/common/config"
	"github.com/uakfdotb/p-levelup/common/log"
	"github.com/uakfdotb/p-levelup/core/infrastructure/message/protocol"
	"github.com/uakfdotb/p-levelup/core/infrastructure/persistence"
	"github.com/uakfdotb/p-levelup/runtime/game/share"
)

// fakeParticipant 记录桌子发来的帧
type fakeParticipant struct {
	id     string
	mu     sync.Mutex
	msgs   []*protocol.Message
	closed chan struct{}
	once   sync.Once
}

func newFake(id string) *fakeParticipant {
	return &fakeParticipant{id: id, closed: make(chan struct{})}
}

func (p *fakeParticipant) ID() string         { return p.id }
func (p *fakeParticipant) RemoteAddr() string { return "127.0.0.1:0" }

func (p *fakeParticipant) Send(m *protocol.Message) error {
	p.mu.Lock()
	p.msgs = append(p.msgs, m)
	p.mu.Unlock()
	return nil
}

func (p *fakeParticipant) Close() {
	p.once.Do(func() { close(p.closed) })
}

func (p *fakeParticipant) isClosed() bool {
	select {
	case <-p.closed:
		return true
	default:
		return false
	}
}

func (p *fakeParticipant) snapshot() []*protocol.Message {
	p.mu.Lock()
	defer p.mu.Unlock()
	return append([]*protocol.Message(nil), p.msgs...)
}

func (p *fakeParticipant) find(match func(m *protocol.Message) bool) *protocol.Message {
	for _, m := range p.snapshot() {
		if match(m) {
			return m
		}
	}
	return nil
}

// waitFor 等到收到满足条件的帧
func (p *fakeParticipant) waitFor(t *testing.T, desc string, match func(m *protocol.Message) bool) *protocol.Message {
	t.Helper()
	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		if m := p.find(match); m != nil {
			return m
		}
		time.Sleep(5 * time.Millisecond)
	}
	t.Fatalf("%s 没有收到 %s", p.id, desc)
	return nil
}

func (p *fakeParticipant) waitClosed(t *testing.T) {
	t.Helper()
	select {
	case <-p.closed:
	case <-time.After(2 * time.Second):
		t.Fatalf("%s 应被断开", p.id)
	}
}

func isOp(op protocol.Opcode) func(m *protocol.Message) bool {
	return func(m *protocol.Message) bool { return m.Op == op }
}

func isChat(name, text string) func(m *protocol.Message) bool {
	return func(m *protocol.Message) bool {
		return m.Op == protocol.OpChat && m.Name == name && m.Text == text
	}
}

func waitUntil(t *testing.T, desc string, cond func() bool) {
	t.Helper()
	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		if cond() {
			return
		}
		time.Sleep(5 * time.Millisecond)
	}
	t.Fatalf("等待超时: %s", desc)
}

type fixture struct {
	tm    *TableManager
	store *config.MapStore
	bans  *cache.BanList
	dir   string
}

func newFixture(t *testing.T, numPlayers int) *fixture {
	t.Helper()
	store := config.NewMapStore(map[string]any{
		"numplayers":     numPlayers,
		"password_alice": "secret",
	})
	bans, err := cache.NewBanList(time.Minute)
	if err != nil {
		t.Fatalf("创建封禁名单失败: %v", err)
	}
	dir := t.TempDir()
	tm := NewTableManager(Deps{
		Store:     store,
		Snapshots: persistence.NewFileSnapshotRepository(dir),
		Bans:      bans,
		Log:       log.Discard(),
	}, 0)
	t.Cleanup(func() {
		tm.Close()
		bans.Close()
	})
	return &fixture{tm: tm, store: store, bans: bans, dir: dir}
}

func (f *fixture) join(t *testing.T, name string) (*fakeParticipant, share.TableHandle, int) {
	t.Helper()
	p := newFake(name)
	h, pid := f.tm.Join(p, name)
	if pid < 0 {
		t.Fatalf("%s 入座失败", name)
	}
	return p, h, pid
}

func chat(h share.TableHandle, p *fakeParticipant, text string) {
	h.Command(p.ID(), protocol.Chat("", text))
}

func TestJoinHandshake(t *testing.T) {
	f := newFixture(t, 2)
	a, _, pidA := f.join(t, "alice")
	b, _, pidB := f.join(t, "bob")
	if pidA != 0 || pidB != 1 {
		t.Fatalf("座位号应为 0 和 1，实际 %d %d", pidA, pidB)
	}

	b.waitFor(t, "GAMELOADED", isOp(protocol.OpGameLoaded))
	msgs := b.snapshot()
	want := []*protocol.Message{
		protocol.JoinReply(1), protocol.JoinOther(0, "alice"), protocol.JoinOther(1, "bob"),
		protocol.Resized(2), protocol.GameLoaded(),
	}
	for i, w := range want {
		m := msgs[i]
		if m.Op != w.Op || m.PID != w.PID || m.Name != w.Name || m.Value != w.Value {
			t.Fatalf("bob 第 %d 帧应为 %s，实际 %+v", i, w.Op, m)
		}
	}

	// alice 先收到自己的握手，再收到 bob 入座
	a.waitFor(t, "GAMELOADED", isOp(protocol.OpGameLoaded))
	msgs = a.snapshot()
	if msgs[0].Op != protocol.OpJoin || msgs[0].PID != 0 {
		t.Fatalf("第一帧应为 JOIN 回复: %+v", msgs[0])
	}
	if msgs[3].Op != protocol.OpJoinOther || msgs[3].PID != 1 || msgs[3].Name != "bob" {
		t.Fatalf("alice 应收到 bob 入座: %+v", msgs[3])
	}
}

func TestManagerOpensNewTableWhenFull(t *testing.T) {
	f := newFixture(t, 2)
	_, h1, _ := f.join(t, "alice")
	_, h2, _ := f.join(t, "bob")
	c, h3, pid := f.join(t, "carol")

	if h1.GetID() != h2.GetID() {
		t.Fatalf("前两个玩家应在同一张桌子")
	}
	if h3.GetID() == h1.GetID() || pid != 0 {
		t.Fatalf("坐满后应开新桌子并从座位 0 开始")
	}
	if c.find(isOp(protocol.OpGameLoaded)) != nil {
		t.Fatalf("新桌子尚未开局")
	}
	if tables, players := f.tm.GetStats(); tables != 2 || players != 3 {
		t.Fatalf("统计不正确: %d 张桌子 %d 个玩家", tables, players)
	}
}

func TestMaxTables(t *testing.T) {
	tm := NewTableManager(Deps{Store: config.NewMapStore(map[string]any{"numplayers": 2}), Log: log.Discard()}, 1)
	defer tm.Close()

	for _, name := range []string{"a", "b"} {
		if _, pid := tm.Join(newFake(name), name); pid < 0 {
			t.Fatalf("%s 应能入座", name)
		}
	}
	if _, pid := tm.Join(newFake("c"), "c"); pid != -1 {
		t.Fatalf("超过牌桌上限应拒绝")
	}
	if _, pid := tm.Join(newFake("d"), ""); pid != -1 {
		t.Fatalf("空名字应拒绝")
	}
}

func TestGameCommandBeforeLoadTerminates(t *testing.T) {
	f := newFixture(t, 3)
	a, h, _ := f.join(t, "alice")

	chat(h, a, "hello")
	a.waitFor(t, "自己的聊天", isChat("alice", "hello"))

	h.Command(a.ID(), protocol.Withdraw(0))
	a.waitClosed(t)
}

func TestPlayErrorAfterLoad(t *testing.T) {
	f := newFixture(t, 2)
	a, h, _ := f.join(t, "alice")
	f.join(t, "bob")

	h.Command(a.ID(), protocol.Withdraw(0))
	m := a.waitFor(t, "PLAYERROR", isOp(protocol.OpPlayError))
	if m.Text != "Withdraw failed" {
		t.Fatalf("错误原因不正确: %q", m.Text)
	}
	h.Command(a.ID(), &protocol.Message{Op: protocol.OpSelectBottom})
	a.waitFor(t, "扣底失败", func(m *protocol.Message) bool {
		return m.Op == protocol.OpPlayError && m.Text == "Bottom selection failed"
	})
	if a.isClosed() {
		t.Fatalf("规则错误不应断开连接")
	}
}

func TestLeaveNotifiesOthers(t *testing.T) {
	f := newFixture(t, 3)
	a, _, _ := f.join(t, "alice")
	b, hb, _ := f.join(t, "bob")

	hb.Leave(b.ID())
	a.waitFor(t, "LEAVEOTHER", func(m *protocol.Message) bool { return m.Op == protocol.OpLeaveOther && m.PID == 1 })

	// 空出来的座位可以再坐
	_, _, pid := f.join(t, "carol")
	if pid != 1 {
		t.Fatalf("carol 应坐到空出的座位 1，实际 %d", pid)
	}
}

func TestLoadedTableDestroyedWhenEmpty(t *testing.T) {
	f := newFixture(t, 2)
	a, h, _ := f.join(t, "alice")
	b, _, _ := f.join(t, "bob")
	id := h.GetID()

	h.Leave(a.ID())
	h.Leave(b.ID())
	waitUntil(t, "牌桌被删除", func() bool {
		_, ok := f.tm.GetTable(id)
		return !ok
	})
}

func TestPasswordLogin(t *testing.T) {
	f := newFixture(t, 3)
	a, h, _ := f.join(t, "alice")
	b, _, _ := f.join(t, "bob")

	chat(h, a, "!password secret")
	a.waitFor(t, "登录成功", isChat(ServerName, "You have logged in successfully"))
	chat(h, a, "after")
	b.waitFor(t, "后续聊天", isChat("alice", "after"))
	if b.find(isChat("alice", "!password secret")) != nil {
		t.Fatalf("密码不应广播")
	}

	chat(h, b, "!password guess")
	b.waitClosed(t)
}

func TestAdminCommandsRequireLogin(t *testing.T) {
	f := newFixture(t, 3)
	a, h, _ := f.join(t, "alice")
	b, _, _ := f.join(t, "bob")

	chat(h, a, "!kick bob")
	a.waitFor(t, "命令原样广播", isChat("alice", "!kick bob"))
	if b.isClosed() {
		t.Fatalf("未登录的玩家不能踢人")
	}
}

func login(t *testing.T, h share.TableHandle, p *fakeParticipant) {
	t.Helper()
	chat(h, p, "!password secret")
	p.waitFor(t, "登录成功", isChat(ServerName, "You have logged in successfully"))
}

func TestKickBansName(t *testing.T) {
	f := newFixture(t, 3)
	a, h, _ := f.join(t, "alice")
	b, _, _ := f.join(t, "Bobby")
	login(t, h, a)

	chat(h, a, "!kick bob")
	a.waitFor(t, "踢人广播", isChat(ServerName, "Player [Bobby] was kicked by admin [alice]."))
	b.waitClosed(t)
	if !f.bans.Banned("bobby") {
		t.Fatalf("被踢的名字应被封禁")
	}
	if _, pid := f.tm.Join(newFake("again"), "BOBBY"); pid != -1 {
		t.Fatalf("封禁期间不能再入座")
	}

	chat(h, a, "!kick nobody")
	a.waitFor(t, "找不到玩家", isChat(ServerName, "Failed to kick: player not found."))
}

func TestFindSeatPrefersExactMatch(t *testing.T) {
	f := newFixture(t, 3)
	a, h, _ := f.join(t, "alice")
	b, _, _ := f.join(t, "bob")
	c, _, _ := f.join(t, "bobcat")
	login(t, h, a)

	chat(h, a, "!kick BOB")
	b.waitClosed(t)
	if c.isClosed() {
		t.Fatalf("名字完全一致的玩家优先")
	}
}

func TestSwapRenumbers(t *testing.T) {
	f := newFixture(t, 3)
	a, h, _ := f.join(t, "alice")
	b, _, _ := f.join(t, "bob")
	login(t, h, a)

	chat(h, a, "!swap 0 1")
	a.waitFor(t, "SWAP", func(m *protocol.Message) bool { return m.Op == protocol.OpSwap && m.PID == 0 && m.Other == 1 })
	a.waitFor(t, "NEWPID", func(m *protocol.Message) bool { return m.Op == protocol.OpNewPID && m.Value == 1 })
	b.waitFor(t, "NEWPID", func(m *protocol.Message) bool { return m.Op == protocol.OpNewPID && m.Value == 0 })

	// 换座后 alice 以座位 1 的身份被踢
	chat(h, a, "!kick alice")
	a.waitClosed(t)
}

func TestResizeLoadsWhenFull(t *testing.T) {
	f := newFixture(t, 3)
	a, h, _ := f.join(t, "alice")
	b, _, _ := f.join(t, "bob")
	login(t, h, a)

	chat(h, a, "!resize 2")
	b.waitFor(t, "RESIZED", func(m *protocol.Message) bool { return m.Op == protocol.OpResized && m.Value == 2 })
	b.waitFor(t, "GAMELOADED", isOp(protocol.OpGameLoaded))

	chat(h, a, "!resize 99")
	a.waitFor(t, "调整失败", func(m *protocol.Message) bool {
		return m.Op == protocol.OpChat && m.Name == ServerName && len(m.Text) > 17 && m.Text[:17] == "Failed to resize:"
	})
}

func TestResizeRemovesSeat(t *testing.T) {
	f := newFixture(t, 3)
	a, h, _ := f.join(t, "alice")
	b, _, _ := f.join(t, "bob")
	c, _, _ := f.join(t, "carol")
	login(t, h, a)

	chat(h, a, "!resize 2")
	c.waitFor(t, "自己的 LEAVEOTHER", func(m *protocol.Message) bool { return m.Op == protocol.OpLeaveOther && m.PID == 2 })
	c.waitClosed(t)
	b.waitFor(t, "LEAVEOTHER", func(m *protocol.Message) bool { return m.Op == protocol.OpLeaveOther && m.PID == 2 })
	if c.find(func(m *protocol.Message) bool { return m.Op == protocol.OpResized && m.Value == 2 }) != nil {
		t.Fatalf("被移除的座位不应再收到 RESIZED")
	}
}

func TestSaveAndLoadGame(t *testing.T) {
	f := newFixture(t, 2)
	a, h, _ := f.join(t, "alice")
	b, _, _ := f.join(t, "bob")
	login(t, h, a)

	chat(h, a, "!savegame ../first save")
	a.waitFor(t, "保存成功", isChat(ServerName, "Game saved successfully as: [..firstsave]"))
	if _, err := os.Stat(filepath.Join(f.dir, "..firstsave")); err != nil {
		t.Fatalf("存档文件应在存档目录中: %v", err)
	}

	chat(h, a, "!savegame ..firstsave")
	a.waitFor(t, "重复保存", isChat(ServerName, "The target file already exists."))

	chat(h, a, "!loadgame missing")
	a.waitFor(t, "存档不存在", isChat(ServerName, "The source file does not exist."))

	chat(h, a, "!loadgame ..firstsave")
	for _, p := range []*fakeParticipant{a, b} {
		m := p.waitFor(t, "SYNC", isOp(protocol.OpSync))
		if m.Value <= 0 {
			t.Fatalf("同步长度应为正数: %d", m.Value)
		}
		p.waitFor(t, "读档完成", isChat(ServerName, "The saved game has been loaded successfully."))
	}

	// 分片总长度与 SYNC 一致
	total, length := 0, 0
	for _, m := range b.snapshot() {
		switch m.Op {
		case protocol.OpSync:
			length = m.Value
		case protocol.OpSyncPart:
			total += len(m.Data)
		}
	}
	if total != length {
		t.Fatalf("分片总长度 %d 与 SYNC %d 不一致", total, length)
	}
}

func TestLoadGameChecks(t *testing.T) {
	f := newFixture(t, 3)
	a, h, _ := f.join(t, "alice")
	f.join(t, "bob")
	login(t, h, a)

	chat(h, a, "!savegame partial")
	a.waitFor(t, "保存成功", isChat(ServerName, "Game saved successfully as: [partial]"))
	chat(h, a, "!loadgame partial")
	a.waitFor(t, "座位未坐满", isChat(ServerName, "Loading saved game: error: slot 2 is unoccupied"))

	// 两人桌的存档不能读到三人桌上
	other := newFixture(t, 2)
	oa, oh, _ := other.join(t, "alice")
	other.join(t, "bob")
	login(t, oh, oa)
	chat(oh, oa, "!savegame two")
	oa.waitFor(t, "保存成功", isChat(ServerName, "Game saved successfully as: [two]"))
	data, err := os.ReadFile(filepath.Join(other.dir, "two"))
	if err != nil {
		t.Fatalf("读取存档失败: %v", err)
	}
	if err := os.WriteFile(filepath.Join(f.dir, "two"), data, 0o644); err != nil {
		t.Fatalf("复制存档失败: %v", err)
	}

	f.join(t, "carol")
	chat(h, a, "!loadgame two")
	a.waitFor(t, "座位数不一致", isChat(ServerName,
		fmt.Sprintf("Loading saved game: error: number of players in saved game (%d) doesn't match current slots (%d)", 2, 3)))
}

func TestTableStatus(t *testing.T) {
	f := newFixture(t, 2)
	a, h, _ := f.join(t, "alice")
	login(t, h, a)

	tbl, ok := f.tm.GetTable(h.GetID())
	if !ok {
		t.Fatalf("找不到牌桌")
	}
	st, ok := tbl.Status(t.Context())
	if !ok {
		t.Fatalf("读取状态失败")
	}
	if st.Loaded || st.NumPlayers != 2 || len(st.Seats) != 2 || st.Seats[0].Name != "alice" || !st.Seats[0].Admin {
		t.Fatalf("状态不正确: %+v", st)
	}
}
