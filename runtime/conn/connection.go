package conn

import (
	"errors"
	"io"
	"net"
	"sync"
	"time"

	"github.com/uakfdotb/p-levelup/common/log"
	"github.com/uakfdotb/p-levelup/common/utils"
	"github.com/uakfdotb/p-levelup/core/infrastructure/message/protocol"
)

var (
	ErrConnectionClosed = errors.New("连接已关闭")
	ErrWriteQueueFull   = errors.New("写队列已满")
)

var (
	writeWait      = 10 * time.Second
	writeQueueSize = 512
	readTimeout    = protocol.ReadTimeout
	maxNameLength  = 64
	maxChatLength  = 1024
)

// Stream 一条双向字节流，TCP 直接用 net.Conn，websocket 用 wsStream 包一层
type Stream interface {
	io.ReadWriter
	Close() error
	RemoteAddr() net.Addr
	SetReadDeadline(t time.Time) error
	SetWriteDeadline(t time.Time) error
}

// LongConnection 一个客户端长连接
// 写操作都经过 WriteChan 由 writeMessage 协程完成，Send 不会阻塞调用方。
type LongConnection struct {
	ConnID    string
	stream    Stream
	worker    *Worker
	WriteChan chan *protocol.Message
	closeChan chan struct{}
	closeOnce sync.Once
	log       *log.Logger

	chatLimiter *utils.RateLimiter
}

func newLongConnection(id string, s Stream, w *Worker) *LongConnection {
	con := &LongConnection{
		ConnID:    id,
		stream:    s,
		worker:    w,
		WriteChan: make(chan *protocol.Message, writeQueueSize),
		closeChan: make(chan struct{}),
		log:       w.log.With("conn-" + shortID(id)),
	}
	if w.chatRate > 0 {
		con.chatLimiter = utils.NewRateLimiter(w.chatRate, w.chatBurst)
	}
	return con
}

func shortID(id string) string {
	if len(id) > 8 {
		return id[:8]
	}
	return id
}

func (con *LongConnection) ID() string {
	return con.ConnID
}

func (con *LongConnection) RemoteAddr() string {
	if addr := con.stream.RemoteAddr(); addr != nil {
		return addr.String()
	}
	return ""
}

// Send 放进写队列，队列满说明对端读得太慢，直接断开
func (con *LongConnection) Send(m *protocol.Message) error {
	select {
	case <-con.closeChan:
		return ErrConnectionClosed
	default:
	}
	select {
	case con.WriteChan <- m:
		return nil
	default:
		con.log.Warn("客户端[%s] 写队列已满, 断开连接", con.RemoteAddr())
		con.Close()
		return ErrWriteQueueFull
	}
}

// Close 通知写协程发完剩下的消息后关闭底层连接
func (con *LongConnection) Close() {
	con.closeOnce.Do(func() {
		close(con.closeChan)
	})
}

// Closed 连接是否已经在关闭
func (con *LongConnection) Closed() bool {
	select {
	case <-con.closeChan:
		return true
	default:
		return false
	}
}

func (con *LongConnection) writeMessage() {
	defer con.stream.Close()
	for {
		select {
		case m := <-con.WriteChan:
			if err := con.write(m); err != nil {
				con.log.Debug("客户端[%s] 写入失败: %v", con.RemoteAddr(), err)
				con.Close()
				return
			}
		case <-con.closeChan:
			con.drain()
			return
		}
	}
}

// drain 关闭前把队列里的消息尽量写出去
func (con *LongConnection) drain() {
	for {
		select {
		case m := <-con.WriteChan:
			if err := con.write(m); err != nil {
				return
			}
		default:
			return
		}
	}
}

func (con *LongConnection) write(m *protocol.Message) error {
	data, err := protocol.Encode(protocol.ToClient, m)
	if err != nil {
		// 编码失败是服务端的问题，丢掉这一帧
		con.log.Error("编码 %s 失败: %v", m.Op, err)
		return nil
	}
	if err := con.stream.SetWriteDeadline(time.Now().Add(writeWait)); err != nil {
		return err
	}
	_, err = con.stream.Write(data)
	return err
}
