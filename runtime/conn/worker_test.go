package conn

import (
	"errors"
	"io"
	"net"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/uakfdotb/p-levelup/common/config"
	"github.com/uakfdotb/p-levelup/common/log"
	"github.com/uakfdotb/p-levelup/core/infrastructure/message/protocol"
	"github.com/uakfdotb/p-levelup/runtime/game"
	"github.com/uakfdotb/p-levelup/runtime/game/engines/levelup"
	"github.com/uakfdotb/p-levelup/runtime/game/share"
)

type fakeTable struct {
	mu       sync.Mutex
	commands []*protocol.Message
	left     chan string
}

func (f *fakeTable) GetID() string { return "fake" }

func (f *fakeTable) Command(_ string, m *protocol.Message) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.commands = append(f.commands, m)
}

func (f *fakeTable) Leave(id string) { f.left <- id }

func (f *fakeTable) received() []*protocol.Message {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]*protocol.Message(nil), f.commands...)
}

type fakeLobby struct {
	pid   int
	table *fakeTable
}

func (l *fakeLobby) Join(p share.Participant, name string) (share.TableHandle, int) {
	if l.pid < 0 {
		return nil, -1
	}
	p.Send(protocol.JoinReply(l.pid))
	return l.table, l.pid
}

func startWorker(t *testing.T, lobby Lobby, opts ...WorkerOption) (*Worker, string) {
	t.Helper()
	ln, err := net.Listen("tcp", "127.0.0.1:0")
	if err != nil {
		t.Fatalf("监听失败: %v", err)
	}
	opts = append([]WorkerOption{WithLogger(log.Discard())}, opts...)
	w := NewWorker(lobby, opts...)
	go w.Serve(ln)
	t.Cleanup(w.Close)
	return w, ln.Addr().String()
}

type client struct {
	t   *testing.T
	c   net.Conn
	dec *protocol.Decoder
}

func dial(t *testing.T, addr string) *client {
	t.Helper()
	c, err := net.Dial("tcp", addr)
	if err != nil {
		t.Fatalf("连接失败: %v", err)
	}
	t.Cleanup(func() { c.Close() })
	return &client{t: t, c: c, dec: protocol.NewDecoder(c, protocol.ToClient)}
}

func (c *client) send(m *protocol.Message) {
	c.t.Helper()
	data, err := protocol.Encode(protocol.ToServer, m)
	if err != nil {
		c.t.Fatalf("编码失败: %v", err)
	}
	if _, err := c.c.Write(data); err != nil {
		c.t.Fatalf("写入失败: %v", err)
	}
}

func (c *client) read() (*protocol.Message, error) {
	c.c.SetReadDeadline(time.Now().Add(2 * time.Second))
	return c.dec.Decode()
}

func (c *client) expect(op protocol.Opcode) *protocol.Message {
	c.t.Helper()
	m, err := c.read()
	if err != nil {
		c.t.Fatalf("等待 %s 失败: %v", op, err)
	}
	if m.Op != op {
		c.t.Fatalf("期望 %s，实际 %s", op, m.Op)
	}
	return m
}

func (c *client) expectClosed() {
	c.t.Helper()
	for {
		_, err := c.read()
		if err == nil {
			continue
		}
		var ne net.Error
		if errors.As(err, &ne) && ne.Timeout() {
			c.t.Fatalf("连接应该被服务端关闭")
		}
		return
	}
}

func waitFor(t *testing.T, what string, cond func() bool) {
	t.Helper()
	deadline := time.Now().Add(2 * time.Second)
	for !cond() {
		if time.Now().After(deadline) {
			t.Fatalf("等待超时: %s", what)
		}
		time.Sleep(5 * time.Millisecond)
	}
}

func TestJoinRejected(t *testing.T) {
	_, addr := startWorker(t, &fakeLobby{pid: -1})
	c := dial(t, addr)
	c.send(protocol.Join("alice"))
	if m := c.expect(protocol.OpJoin); m.PID != -1 {
		t.Fatalf("拒绝时应回复 -1，实际 %d", m.PID)
	}
	c.expectClosed()
}

func TestFrameBeforeJoinCloses(t *testing.T) {
	w, addr := startWorker(t, &fakeLobby{pid: 0, table: &fakeTable{left: make(chan string, 1)}})
	c := dial(t, addr)
	waitFor(t, "连接登记", func() bool { return w.CurrentConnections() == 1 })
	c.send(protocol.Declare(0, levelup.SuitHearts, 1))
	c.expectClosed()
	waitFor(t, "连接注销", func() bool { return w.CurrentConnections() == 0 })
}

func TestNoopEchoedBeforeJoin(t *testing.T) {
	_, addr := startWorker(t, &fakeLobby{pid: -1})
	c := dial(t, addr)
	c.send(protocol.Noop())
	c.expect(protocol.OpNoop)
}

func TestForwardAndLeave(t *testing.T) {
	table := &fakeTable{left: make(chan string, 1)}
	_, addr := startWorker(t, &fakeLobby{pid: 2, table: table})
	c := dial(t, addr)

	c.send(protocol.Join("bob"))
	if m := c.expect(protocol.OpJoin); m.PID != 2 {
		t.Fatalf("座位号应为 2，实际 %d", m.PID)
	}
	c.send(protocol.Chat("", "hello"))
	c.send(protocol.Withdraw(0))
	c.send(protocol.Noop())
	c.expect(protocol.OpNoop)

	waitFor(t, "转发两帧", func() bool { return len(table.received()) == 2 })
	got := table.received()
	if got[0].Op != protocol.OpChat || got[0].Text != "hello" || got[1].Op != protocol.OpWithdraw {
		t.Fatalf("转发的帧不正确: %+v", got)
	}

	// 再发 JOIN 会被断开
	c.send(protocol.Join("bob"))
	c.expectClosed()
	select {
	case <-table.left:
	case <-time.After(2 * time.Second):
		t.Fatalf("断开后应通知牌桌离座")
	}
}

func TestChatRateLimited(t *testing.T) {
	table := &fakeTable{left: make(chan string, 1)}
	_, addr := startWorker(t, &fakeLobby{pid: 0, table: table}, WithChatRate(0.001, 2))
	c := dial(t, addr)
	c.send(protocol.Join("carol"))
	c.expect(protocol.OpJoin)
	for i := 0; i < 5; i++ {
		c.send(protocol.Chat("", "spam"))
	}
	c.send(protocol.Noop())
	c.expect(protocol.OpNoop)
	if n := len(table.received()); n != 2 {
		t.Fatalf("只应转发 2 条聊天，实际 %d", n)
	}
}

func TestMaxConnections(t *testing.T) {
	w, addr := startWorker(t, &fakeLobby{pid: -1}, WithMaxConnections(1))
	first := dial(t, addr)
	waitFor(t, "第一个连接", func() bool { return w.CurrentConnections() == 1 })

	second := dial(t, addr)
	second.expectClosed()

	first.send(protocol.Noop())
	first.expect(protocol.OpNoop)
}

func TestSendAfterCloseFails(t *testing.T) {
	server, peer := net.Pipe()
	defer peer.Close()
	w := NewWorker(&fakeLobby{pid: -1}, WithLogger(log.Discard()))
	con := newLongConnection("test", server, w)
	go con.writeMessage()
	go io.Copy(io.Discard, peer)

	if err := con.Send(protocol.Noop()); err != nil {
		t.Fatalf("关闭前发送应该成功: %v", err)
	}
	con.Close()
	if err := con.Send(protocol.Noop()); !errors.Is(err, ErrConnectionClosed) {
		t.Fatalf("关闭后发送应返回 ErrConnectionClosed，实际 %v", err)
	}
}

func TestWebSocketJoinsTable(t *testing.T) {
	tm := game.NewTableManager(game.Deps{
		Store: config.NewMapStore(map[string]any{"numplayers": 4}),
		Log:   log.Discard(),
	}, 0)
	defer tm.Close()

	w := NewWorker(tm, WithLogger(log.Discard()))
	defer w.Close()
	srv := httptest.NewServer(w)
	defer srv.Close()

	s, err := DialWS("ws" + strings.TrimPrefix(srv.URL, "http") + "/ws")
	if err != nil {
		t.Fatalf("websocket 连接失败: %v", err)
	}
	defer s.Close()

	data, _ := protocol.Encode(protocol.ToServer, protocol.Join("dave"))
	if _, err := s.Write(data); err != nil {
		t.Fatalf("写入失败: %v", err)
	}
	dec := protocol.NewDecoder(s, protocol.ToClient)
	s.SetReadDeadline(time.Now().Add(2 * time.Second))

	want := []protocol.Opcode{protocol.OpJoin, protocol.OpJoinOther, protocol.OpResized}
	for i, op := range want {
		m, err := dec.Decode()
		if err != nil {
			t.Fatalf("第 %d 帧读取失败: %v", i, err)
		}
		if m.Op != op {
			t.Fatalf("第 %d 帧期望 %s，实际 %s", i, op, m.Op)
		}
		if op == protocol.OpJoin && m.PID != 0 {
			t.Fatalf("第一个玩家应坐 0 号位，实际 %d", m.PID)
		}
		if op == protocol.OpResized && m.Value != 4 {
			t.Fatalf("桌子大小应为 4，实际 %d", m.Value)
		}
	}
	if tables, players := tm.GetStats(); tables != 1 || players != 1 {
		t.Fatalf("应有 1 张桌子 1 名玩家，实际 %d %d", tables, players)
	}
}
