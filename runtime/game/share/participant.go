package share

import "github.com/uakfdotb/p-levelup/core/infrastructure/message/protocol"

// Participant 桌子眼中的一个连接
// Send 的写错误由连接自己处理（关闭自身），桌子只记录日志继续广播。
type Participant interface {
	ID() string
	RemoteAddr() string
	Send(m *protocol.Message) error
	Close()
}

// TableHandle 连接入座后持有的桌子句柄
type TableHandle interface {
	GetID() string
	// Command 入座后收到的客户端帧
	Command(participantID string, m *protocol.Message)
	// Leave 连接断开
	Leave(participantID string)
}

// JoinResult 入座结果，PID 为 -1 表示拒绝
type JoinResult struct {
	PID int
	// Full 入座后桌子坐满并开局
	Full bool
	// Loaded 桌子已经开局，不再接受入座
	Loaded bool
}
