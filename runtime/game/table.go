package game

import (
	"context"
	"fmt"
	"sync/atomic"
	"time"

	"github.com/uakfdotb/p-levelup/common/config"
	"github.com/uakfdotb/p-levelup/common/log"
	"github.com/uakfdotb/p-levelup/core/domain/repository"
	"github.com/uakfdotb/p-levelup/core/infrastructure/message/node"
	"github.com/uakfdotb/p-levelup/core/infrastructure/message/protocol"
	"github.com/uakfdotb/p-levelup/core/infrastructure/message/transfer"
	"github.com/uakfdotb/p-levelup/runtime/game/engines/levelup"
	"github.com/uakfdotb/p-levelup/runtime/game/share"
)

// Banner 被踢玩家的封禁名单
type Banner interface {
	Ban(name string)
	Banned(name string) bool
}

// Deps 桌子依赖的外部组件，Rounds 和 Bans 可以为空
type Deps struct {
	Store     config.Store
	Snapshots repository.SnapshotRepository
	Rounds    repository.RoundRecordRepository
	Publisher node.Publisher
	Bans      Banner
	Log       *log.Logger
}

// Table 一张牌桌
// 牌局只在 actorLoop 所在的协程上读写，外部通过事件和它交互。
type Table struct {
	ID string

	deps  Deps
	log   *log.Logger
	game  *levelup.Game
	seats map[string]*seat

	rounds  int
	ticking bool
	timer   *time.Timer

	events  chan share.TableEvent
	done    chan struct{}
	exit    chan struct{}
	closed  atomic.Bool
	loaded  atomic.Bool
	players atomic.Int32

	// onEmpty 已开局的桌子最后一个连接离开时回调
	onEmpty func(id string)
}

// NewTable 创建牌桌并启动事件循环
func NewTable(id string, numPlayers int, deps Deps, onEmpty func(id string)) (*Table, error) {
	if deps.Log == nil {
		deps.Log = log.Default()
	}
	if deps.Publisher == nil {
		deps.Publisher = node.NopPublisher{}
	}
	if deps.Store == nil {
		deps.Store = config.NewMapStore(nil)
	}
	lg := deps.Log.With("table-" + shortID(id))

	g, err := levelup.New(numPlayers, true, levelup.WithLogger(lg))
	if err != nil {
		return nil, fmt.Errorf("创建牌局失败: %w", err)
	}

	t := &Table{
		ID:      id,
		deps:    deps,
		log:     lg,
		game:    g,
		seats:   make(map[string]*seat),
		timer:   time.NewTimer(time.Hour),
		events:  make(chan share.TableEvent, 256),
		done:    make(chan struct{}),
		exit:    make(chan struct{}),
		onEmpty: onEmpty,
	}
	t.timer.Stop()
	g.AddListener(&recorder{t: t})

	go t.actorLoop()

	t.publish(transfer.NewTableEvent(id, transfer.TableOpened))
	lg.Info("牌桌已创建, 座位数 %d", numPlayers)
	return t, nil
}

func shortID(id string) string {
	if len(id) > 8 {
		return id[:8]
	}
	return id
}

// actorLoop 桌子事件循环
func (t *Table) actorLoop() {
	defer close(t.exit)
	defer t.shutdown()
	for {
		select {
		case <-t.done:
			return
		case event := <-t.events:
			t.processEvent(event)
		case <-t.timer.C:
			t.update()
		}
	}
}

// NotifyEvent 投递事件，桌子关闭后丢弃
func (t *Table) NotifyEvent(event share.TableEvent) bool {
	if event == nil || t.closed.Load() {
		return false
	}
	select {
	case <-t.done:
		return false
	case t.events <- event:
		return true
	}
}

func (t *Table) processEvent(event share.TableEvent) {
	switch e := event.(type) {
	case *share.JoinEvent:
		e.Reply <- t.handleJoin(e)
	case *share.LeaveEvent:
		t.handleLeave(e.GetParticipantID())
	case *share.CommandEvent:
		t.handleCommand(e.GetParticipantID(), e.Message)
	case *share.StatusEvent:
		e.Reply <- t.status()
	default:
		t.log.Warn("未知事件: %s", event.GetEventType())
	}
}

// update 定时推进牌局
func (t *Table) update() {
	d := t.game.Update()
	if d == levelup.StopTicking {
		t.ticking = false
		t.log.Info("牌局停止推进, 阶段 %s", t.game.State())
		return
	}
	t.timer.Reset(d)
}

// wake 命令被接受后立即推进一次
func (t *Table) wake() {
	if !t.loaded.Load() {
		return
	}
	t.ticking = true
	t.timer.Reset(0)
}

// Join 入座，阻塞到桌子处理完
func (t *Table) Join(p share.Participant, name string) share.JoinResult {
	reply := make(chan share.JoinResult, 1)
	ev := &share.JoinEvent{
		ParticipantEvent: share.ParticipantEvent{ParticipantID: p.ID()},
		Participant:      p,
		Name:             name,
		Reply:            reply,
	}
	if !t.NotifyEvent(ev) {
		return share.JoinResult{PID: -1, Loaded: true}
	}
	select {
	case r := <-reply:
		return r
	case <-t.done:
		return share.JoinResult{PID: -1, Loaded: true}
	}
}

func (t *Table) Command(participantID string, m *protocol.Message) {
	t.NotifyEvent(&share.CommandEvent{
		ParticipantEvent: share.ParticipantEvent{ParticipantID: participantID},
		Message:          m,
	})
}

func (t *Table) Leave(participantID string) {
	t.NotifyEvent(&share.LeaveEvent{
		ParticipantEvent: share.ParticipantEvent{ParticipantID: participantID},
	})
}

// Status 读取桌子状态，桌子已关闭或超时返回 false
func (t *Table) Status(ctx context.Context) (share.TableStatus, bool) {
	reply := make(chan share.TableStatus, 1)
	if !t.NotifyEvent(&share.StatusEvent{Reply: reply}) {
		return share.TableStatus{}, false
	}
	select {
	case s := <-reply:
		return s, true
	case <-ctx.Done():
		return share.TableStatus{}, false
	case <-t.done:
		return share.TableStatus{}, false
	}
}

func (t *Table) GetID() string {
	return t.ID
}

// Loaded 是否已开局
func (t *Table) Loaded() bool {
	return t.loaded.Load()
}

// Players 当前连接数
func (t *Table) Players() int {
	return int(t.players.Load())
}

// Close 关闭桌子，断开所有连接
func (t *Table) Close() {
	if t.closed.Swap(true) {
		return
	}
	close(t.done)
	<-t.exit
}

func (t *Table) shutdown() {
	t.timer.Stop()
	for id, s := range t.seats {
		s.p.Close()
		delete(t.seats, id)
	}
	t.players.Store(0)
	t.publish(transfer.NewTableEvent(t.ID, transfer.TableClosed))
	t.log.Info("牌桌已关闭")
}

func (t *Table) handleJoin(e *share.JoinEvent) share.JoinResult {
	if t.loaded.Load() {
		return share.JoinResult{PID: -1, Loaded: true}
	}
	if _, ok := t.seats[e.GetParticipantID()]; ok || e.Name == "" {
		return share.JoinResult{PID: -1}
	}
	pid := t.game.FreeSeat()
	if pid < 0 {
		return share.JoinResult{PID: -1, Loaded: true}
	}

	s := &seat{t: t, p: e.Participant, pid: pid, name: e.Name}
	s.send(protocol.JoinReply(pid))
	t.game.PlayerJoined(pid, e.Name)
	t.game.AddListener(s)
	t.seats[e.GetParticipantID()] = s
	t.players.Store(int32(len(t.seats)))
	t.log.Info("玩家 [%s|%s] 入座 %d", e.Name, e.Participant.RemoteAddr(), pid)

	// 告诉新玩家已有的座位和桌子大小
	for i, name := range t.game.Names() {
		if name != "" {
			s.send(protocol.JoinOther(i, name))
		}
	}
	s.send(protocol.Resized(t.game.NumPlayers()))

	full := t.game.Full()
	if full {
		t.load()
	}
	return share.JoinResult{PID: pid, Full: full}
}

// load 开局，开始推进牌局
func (t *Table) load() {
	if t.loaded.Swap(true) {
		return
	}
	t.broadcast(protocol.GameLoaded())
	ev := transfer.NewTableEvent(t.ID, transfer.TableLoaded)
	ev.Names = t.game.Names()
	t.publish(ev)
	t.log.Info("开局: %v", ev.Names)
	t.wake()
}

func (t *Table) handleLeave(participantID string) {
	s, ok := t.seats[participantID]
	if !ok {
		return
	}
	delete(t.seats, participantID)
	t.players.Store(int32(len(t.seats)))
	t.game.RemoveListener(s)
	if s.pid >= 0 {
		t.log.Info("玩家 [%s] 离开座位 %d", s.name, s.pid)
		t.game.PlayerLeft(s.pid)
	}

	if len(t.seats) == 0 && t.loaded.Load() && t.onEmpty != nil {
		t.onEmpty(t.ID)
	}
}

func (t *Table) handleCommand(participantID string, m *protocol.Message) {
	s, ok := t.seats[participantID]
	if !ok || m == nil {
		return
	}
	switch m.Op {
	case protocol.OpChat:
		t.handleChat(s, m.Text)
		return
	case protocol.OpNoop:
		return
	}

	if !t.loaded.Load() {
		t.terminate(s, fmt.Sprintf("开局前发送了 %s", m.Op))
		return
	}
	if s.pid < 0 {
		return
	}

	var accepted bool
	var reason string
	switch m.Op {
	case protocol.OpDeclare:
		accepted, reason = t.game.Declare(s.pid, m.Suit, m.Amount), "Declaration failed"
	case protocol.OpWithdraw:
		accepted, reason = t.game.WithdrawDeclaration(s.pid), "Withdraw failed"
	case protocol.OpDefend:
		accepted, reason = t.game.DefendDeclaration(s.pid, m.Amount), "Defend failed"
	case protocol.OpPlayCards:
		reason = "Play failed"
		if trick, err := m.Trick(); err == nil {
			accepted = t.game.PlayTrick(s.pid, trick)
		}
	case protocol.OpSelectBottom:
		accepted, reason = t.game.SelectBottom(s.pid, m.Cards), "Bottom selection failed"
	default:
		t.terminate(s, fmt.Sprintf("不允许的帧 %s", m.Op))
		return
	}

	if accepted {
		t.wake()
		return
	}
	t.log.Debug("座位 %d 的 %s 被拒绝", s.pid, m.Op)
	s.send(protocol.PlayError(reason))
}

// terminate 断开连接，离座由连接关闭后的 Leave 完成
func (t *Table) terminate(s *seat, reason string) {
	t.log.Warn("断开玩家 [%s]: %s", s.name, reason)
	s.p.Close()
}

func (t *Table) broadcast(m *protocol.Message) {
	for _, s := range t.seats {
		s.send(m)
	}
}

func (t *Table) publish(ev *transfer.TableEvent) {
	t.deps.Publisher.Publish(ev)
}

func (t *Table) status() share.TableStatus {
	g := t.game
	st := share.TableStatus{
		ID:           t.ID,
		Loaded:       t.loaded.Load(),
		State:        g.State().String(),
		NumPlayers:   g.NumPlayers(),
		NumDecks:     g.NumDecks(),
		Dealer:       g.CurrentDealer(),
		TrumpSuit:    g.TrumpSuit().String(),
		TrumpRank:    g.CurrentLevel(),
		NextPlayer:   g.NextPlayer(),
		BetCounter:   g.BetCounter(),
		RoundCounter: g.RoundCounter(),
		Rounds:       t.rounds,
	}
	admins := make(map[int]bool)
	for _, s := range t.seats {
		if s.admin {
			admins[s.pid] = true
		}
	}
	for i := 0; i < g.NumPlayers(); i++ {
		p := g.Player(i)
		st.Seats = append(st.Seats, share.SeatStatus{
			Seat:      i,
			Name:      p.Name,
			Level:     p.Level,
			Points:    p.Points,
			Defending: p.Defending,
			Cards:     len(p.Hand),
			Admin:     admins[i],
		})
	}
	return st
}
