package share

import "github.com/uakfdotb/p-levelup/core/infrastructure/message/protocol"

// TableEvent 桌子 actor 串行处理的事件
type TableEvent interface {
	GetParticipantID() string
	GetEventType() string
}

type ParticipantEvent struct {
	ParticipantID string
}

func (e *ParticipantEvent) GetParticipantID() string {
	return e.ParticipantID
}

// JoinEvent 请求入座，结果写回 Reply
type JoinEvent struct {
	ParticipantEvent
	Participant Participant
	Name        string
	Reply       chan JoinResult
}

func (e *JoinEvent) GetEventType() string {
	return "Join"
}

type LeaveEvent struct {
	ParticipantEvent
}

func (e *LeaveEvent) GetEventType() string {
	return "Leave"
}

// CommandEvent 入座后的客户端帧：亮主、出牌、扣底、聊天等
type CommandEvent struct {
	ParticipantEvent
	Message *protocol.Message
}

func (e *CommandEvent) GetEventType() string {
	return "Command:" + e.Message.Op.String()
}

// StatusEvent 读取桌子状态
type StatusEvent struct {
	ParticipantEvent
	Reply chan TableStatus
}

func (e *StatusEvent) GetEventType() string {
	return "Status"
}
