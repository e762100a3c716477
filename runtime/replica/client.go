package replica

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"net"
	"strconv"
	"sync"
	"time"

	"github.com/uakfdotb/p-levelup/common/log"
	"github.com/uakfdotb/p-levelup/core/infrastructure/message/protocol"
	"github.com/uakfdotb/p-levelup/runtime/conn"
	"github.com/uakfdotb/p-levelup/runtime/game/engines/levelup"
)

// DefaultPort 服务端默认端口
const DefaultPort = 7553

var (
	ErrNotConnected     = errors.New("未连接服务器")
	ErrAlreadyConnected = errors.New("已经连接服务器")
)

var writeWait = 10 * time.Second

type Option func(c *Client)

func WithLogger(lg *log.Logger) Option {
	return func(c *Client) {
		if lg != nil {
			c.log = lg
		}
	}
}

// WithKeepAlive NOOP 间隔，0 表示不发送
func WithKeepAlive(d time.Duration) Option {
	return func(c *Client) {
		c.keepAlive = d
	}
}

// Client 客户端连接和本地牌局副本
// 副本只应用服务端广播的结果，不做规则校验。
type Client struct {
	mu    sync.Mutex
	game  *levelup.Game
	pid   int
	syncs protocol.SyncBuffer

	view      View
	log       *log.Logger
	keepAlive time.Duration

	stream    conn.Stream
	writeMu   sync.Mutex
	connected bool
	done      chan struct{}
	reason    string
}

// New 创建副本，numPlayers 只是初始值，服务端会用 RESIZED 纠正
func New(numPlayers int, view View, opts ...Option) (*Client, error) {
	if view == nil {
		view = NopView{}
	}
	c := &Client{
		pid:       -1,
		view:      view,
		log:       log.Default(),
		keepAlive: protocol.KeepAliveInterval,
	}
	for _, opt := range opts {
		opt(c)
	}
	g, err := levelup.New(numPlayers, false, levelup.WithLogger(c.log))
	if err != nil {
		return nil, err
	}
	c.game = g
	if l, ok := view.(levelup.Listener); ok {
		g.AddListener(l)
	}
	return c, nil
}

// Dial 连接 TCP 服务端，addr 不带端口时用默认端口
func (c *Client) Dial(ctx context.Context, addr string) error {
	if _, _, err := net.SplitHostPort(addr); err != nil {
		addr = net.JoinHostPort(addr, strconv.Itoa(DefaultPort))
	}
	var d net.Dialer
	nc, err := d.DialContext(ctx, "tcp", addr)
	if err != nil {
		c.log.Warn("无法连接 %s: %v", addr, err)
		return fmt.Errorf("连接 %s 失败: %w", addr, err)
	}
	return c.Connect(nc)
}

// Connect 在已建立的流上开始收发
func (c *Client) Connect(s conn.Stream) error {
	c.mu.Lock()
	if c.connected {
		c.mu.Unlock()
		s.Close()
		return ErrAlreadyConnected
	}
	c.stream = s
	c.connected = true
	c.done = make(chan struct{})
	c.reason = ""
	c.mu.Unlock()

	go c.readLoop(s)
	if c.keepAlive > 0 {
		go c.keepAliveLoop(c.done)
	}
	return nil
}

// Done 连接断开时关闭
func (c *Client) Done() <-chan struct{} {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.done
}

// Reason 断开原因
func (c *Client) Reason() string {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.reason
}

// PID 自己的座位号，未入座为 -1
func (c *Client) PID() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.pid
}

// With 持锁读写副本牌局
func (c *Client) With(fn func(g *levelup.Game, pid int)) {
	c.mu.Lock()
	defer c.mu.Unlock()
	fn(c.game, c.pid)
}

// Close 主动断开
func (c *Client) Close() {
	c.terminate("closed by user")
}

func (c *Client) terminate(reason string) {
	c.mu.Lock()
	if !c.connected {
		c.mu.Unlock()
		return
	}
	c.connected = false
	c.reason = reason
	s, done := c.stream, c.done
	c.syncs.Reset()
	c.mu.Unlock()

	c.log.Info("断开连接: %s", reason)
	close(done)
	s.Close()
	c.view.Terminated(reason)
}

func (c *Client) keepAliveLoop(done <-chan struct{}) {
	ticker := time.NewTicker(c.keepAlive)
	defer ticker.Stop()
	for {
		select {
		case <-done:
			return
		case <-ticker.C:
			c.send(protocol.Noop())
		}
	}
}

func (c *Client) readLoop(s conn.Stream) {
	dec := protocol.NewDecoder(s, protocol.ToClient)
	for {
		m, err := dec.Decode()
		if err != nil {
			c.terminate(readFailure(err))
			return
		}
		if reason := c.apply(m); reason != "" {
			c.terminate(reason)
			return
		}
		c.view.GameUpdated()
	}
}

func readFailure(err error) string {
	switch {
	case errors.Is(err, io.EOF):
		return "remote disconnected"
	case errors.Is(err, protocol.ErrBadHeader):
		return "invalid header received from server"
	case errors.Is(err, protocol.ErrUnknownOpcode):
		return "unknown packet received from server"
	default:
		return "error while reading: " + err.Error()
	}
}

// apply 把一帧应用到副本上，返回非空表示要断开
func (c *Client) apply(m *protocol.Message) string {
	switch m.Op {
	case protocol.OpJoin:
		c.mu.Lock()
		c.pid = m.PID
		c.mu.Unlock()
		c.view.Joined(m.PID)
		if m.PID < 0 {
			return "server rejected connection"
		}
	case protocol.OpGameLoaded:
		c.view.GameLoaded()
	case protocol.OpPlayError:
		c.view.PlayError(m.Text)
	case protocol.OpChat:
		c.view.Chat(m.Name, m.Text)
	case protocol.OpNoop:
		// 不回复，否则两边会来回发
	case protocol.OpDealtCard:
		card := m.Card()
		c.With(func(g *levelup.Game, pid int) { g.DealCard(pid, card) })
		c.view.DealtCard(card)
	case protocol.OpBetCounter:
		c.With(func(g *levelup.Game, _ int) { g.SetBetCounter(m.Value) })
		c.view.BetCounter(m.Value)
	case protocol.OpRoundCounter:
		c.With(func(g *levelup.Game, _ int) { g.SetRoundCounter(m.Value) })
		c.view.RoundCounter(m.Value)
	case protocol.OpSync, protocol.OpSyncPart:
		return c.applySync(m)
	default:
		var reason string
		c.With(func(g *levelup.Game, pid int) { reason = c.applyGame(g, pid, m) })
		return reason
	}
	return ""
}

// applyGame 持锁调用
func (c *Client) applyGame(g *levelup.Game, pid int, m *protocol.Message) string {
	switch m.Op {
	case protocol.OpJoinOther:
		g.PlayerJoined(m.PID, m.Name)
	case protocol.OpLeaveOther:
		g.PlayerLeft(m.PID)
	case protocol.OpStateChange:
		g.SetState(levelup.State(m.Value))
	case protocol.OpDeclare:
		g.Declare(m.PID, m.Suit, m.Amount)
	case protocol.OpWithdraw:
		g.WithdrawDeclaration(m.PID)
	case protocol.OpDefend:
		g.DefendDeclaration(m.PID, m.Amount)
	case protocol.OpPlayCards:
		trick, err := m.Trick()
		if err != nil {
			c.log.Warn("服务端出牌数据无效: %v", err)
			return ""
		}
		g.PlayTrick(m.PID, trick)
	case protocol.OpBottom:
		g.SetBottom(m.Cards)
	case protocol.OpSelectBottom:
		g.SelectBottom(pid, m.Cards)
	case protocol.OpSwap:
		g.SwapPlayers(m.PID, m.Other)
	case protocol.OpNewPID:
		c.pid = m.Value
	case protocol.OpResized:
		if err := g.Resize(m.Value); err != nil {
			c.log.Warn("调整座位数失败: %v", err)
		}
	default:
		return fmt.Sprintf("unknown packet received from server, id=%d", m.Op)
	}
	return ""
}

func (c *Client) applySync(m *protocol.Message) string {
	c.mu.Lock()
	defer c.mu.Unlock()

	if m.Op == protocol.OpSync {
		c.log.Info("开始和服务端同步, 长度 %d 字节", m.Value)
		if err := c.syncs.Begin(m.Value); err != nil {
			c.log.Warn("同步失败: %v", err)
			return "sync failed"
		}
		return ""
	}

	data, err := c.syncs.Append(m.Data)
	if err != nil {
		c.log.Warn("同步失败: %v", err)
		return "sync failed"
	}
	if data == nil {
		return ""
	}
	saved, err := levelup.ReadSnapshot(bytes.NewReader(data), levelup.WithLogger(c.log))
	if err != nil {
		c.log.Warn("同步失败: 无法解析牌局: %v", err)
		return "sync failed"
	}
	c.game.Synchronize(saved, c.pid)
	c.log.Info("同步完成")
	return ""
}

// send 写一帧，失败即断开
func (c *Client) send(m *protocol.Message) error {
	c.mu.Lock()
	s, ok := c.stream, c.connected
	c.mu.Unlock()
	if !ok {
		return ErrNotConnected
	}

	data, err := protocol.Encode(protocol.ToServer, m)
	if err != nil {
		return err
	}
	c.writeMu.Lock()
	defer c.writeMu.Unlock()
	s.SetWriteDeadline(time.Now().Add(writeWait))
	if _, err := s.Write(data); err != nil {
		go c.terminate("failed to send packet")
		return err
	}
	return nil
}

// Join 请求入座
func (c *Client) Join(name string) error {
	return c.send(protocol.Join(name))
}

func (c *Client) Declare(suit levelup.Suit, amount int) error {
	return c.send(protocol.Declare(-1, suit, amount))
}

func (c *Client) Withdraw() error {
	return c.send(protocol.Withdraw(-1))
}

func (c *Client) Defend(amount int) error {
	return c.send(protocol.Defend(-1, amount))
}

// Play 出牌，amounts 与 cards 一一对应
func (c *Client) Play(cards []levelup.Card, amounts []int) error {
	trick, err := levelup.NewTrick(cards, amounts)
	if err != nil {
		return err
	}
	return c.send(protocol.PlayCards(-1, trick))
}

// SelectBottom 扣底
func (c *Client) SelectBottom(cards []levelup.Card) error {
	return c.send(protocol.SelectBottom(cards))
}

func (c *Client) Chat(text string) error {
	return c.send(protocol.Chat("", text))
}
