package conn

import (
	"errors"
	"io"
	"net"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/uakfdotb/p-levelup/core/infrastructure/message/protocol"
	"github.com/uakfdotb/p-levelup/runtime/game/share"
)

// Lobby 给新连接找座位，pid 为 -1 表示拒绝
type Lobby interface {
	Join(p share.Participant, name string) (share.TableHandle, int)
}

// Run 启动写协程，在当前协程上读到连接断开为止
func (con *LongConnection) Run() {
	go con.writeMessage()
	con.readMessage()
}

func (con *LongConnection) readMessage() {
	var table share.TableHandle
	defer func() {
		if table != nil {
			table.Leave(con.ConnID)
		}
		con.Close()
		con.worker.removeClient(con)
	}()

	dec := protocol.NewDecoder(con.stream, protocol.ToServer)
	for {
		if err := con.stream.SetReadDeadline(time.Now().Add(readTimeout)); err != nil {
			return
		}
		m, err := dec.Decode()
		if err != nil {
			con.readFailed(err)
			return
		}
		con.worker.messageProcessed()

		next, ok := con.handle(table, m)
		if !ok {
			return
		}
		table = next
	}
}

// handle 处理一帧，返回 false 表示断开
func (con *LongConnection) handle(table share.TableHandle, m *protocol.Message) (share.TableHandle, bool) {
	if m.Op == protocol.OpNoop {
		con.Send(protocol.Noop())
		return table, true
	}

	if table == nil {
		if m.Op != protocol.OpJoin {
			con.log.Warn("客户端[%s] 入座前发送了 %s", con.RemoteAddr(), m.Op)
			con.worker.messageError()
			return nil, false
		}
		return con.join(m.Name)
	}

	switch m.Op {
	case protocol.OpJoin:
		con.log.Warn("客户端[%s] 重复发送 JOIN", con.RemoteAddr())
		con.worker.messageError()
		return table, false
	case protocol.OpChat:
		if !con.chatLimiter.Allow() {
			con.log.Debug("客户端[%s] 聊天过于频繁, 丢弃", con.RemoteAddr())
			return table, true
		}
		if utf8.RuneCountInString(m.Text) > maxChatLength {
			m.Text = string([]rune(m.Text)[:maxChatLength])
		}
	}
	table.Command(con.ConnID, m)
	return table, true
}

// join 成功时由桌子回复 JOIN，失败时这里回复 -1 后断开
func (con *LongConnection) join(name string) (share.TableHandle, bool) {
	name = strings.TrimSpace(name)
	if name != "" && utf8.RuneCountInString(name) <= maxNameLength {
		table, pid := con.worker.lobby.Join(con, name)
		if pid >= 0 && table != nil {
			con.log.Info("客户端[%s] 以 [%s] 入座 %d, 桌子 %s", con.RemoteAddr(), name, pid, table.GetID())
			return table, true
		}
	}
	con.log.Info("客户端[%s] 入座失败, 名字 [%s]", con.RemoteAddr(), name)
	con.Send(protocol.JoinReply(-1))
	return nil, false
}

func (con *LongConnection) readFailed(err error) {
	var netErr net.Error
	switch {
	case con.Closed():
	case errors.Is(err, io.EOF):
		con.log.Debug("客户端[%s] 断开连接", con.RemoteAddr())
	case errors.As(err, &netErr) && netErr.Timeout():
		con.log.Info("客户端[%s] 读超时", con.RemoteAddr())
	default:
		con.log.Warn("客户端[%s] 读取失败: %v", con.RemoteAddr(), err)
		con.worker.messageError()
	}
}
