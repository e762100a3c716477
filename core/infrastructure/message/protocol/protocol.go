package protocol

import (
	"errors"
	"fmt"
	"time"
)

// Header 每一帧的第一个字节
const Header byte = 146

// Opcode 帧类型
type Opcode byte

const (
	OpJoin Opcode = iota
	OpJoinOther
	OpLeaveOther
	OpGameLoaded
	OpStateChange
	OpDeclare
	OpWithdraw
	OpDefend
	OpPlayCards
	OpPlayError
	OpDealtCard
	OpBetCounter
	OpRoundCounter
	OpBottom
	OpSelectBottom
	OpChat
	OpSync
	OpSyncPart
	OpSwap
	OpNewPID
	OpResized
	OpNoop
)

var opcodeNames = [...]string{
	"JOIN", "JOINOTHER", "LEAVEOTHER", "GAMELOADED", "STATECHANGE",
	"DECLARE", "WITHDRAW", "DEFEND", "PLAYCARDS", "PLAYERROR",
	"DEALTCARD", "BETCOUNTER", "ROUNDCOUNTER", "BOTTOM", "SELECTBOTTOM",
	"CHAT", "SYNC", "SYNCPART", "SWAP", "NEWPID", "RESIZED", "NOOP",
}

func (op Opcode) String() string {
	if int(op) < len(opcodeNames) {
		return opcodeNames[op]
	}
	return fmt.Sprintf("Opcode(%d)", byte(op))
}

// Direction 帧的方向，同一个 opcode 两个方向的负载不同
type Direction int

const (
	// ToServer 客户端发给服务端，不带座位号
	ToServer Direction = iota
	// ToClient 服务端广播，带座位号
	ToClient
)

func (d Direction) String() string {
	if d == ToServer {
		return "C->S"
	}
	return "S->C"
}

const (
	// MaxSyncSize 存档同步的最大字节数
	MaxSyncSize = 1 << 20
	// SyncChunkSize 每个 SYNCPART 的最大字节数
	SyncChunkSize = 1400
	// maxListLen 单帧里牌和数量列表的上限
	maxListLen = 1024

	// KeepAliveInterval 客户端发送 NOOP 的间隔
	KeepAliveInterval = 30 * time.Second
	// ReadTimeout 服务端读超时，超过即断开
	ReadTimeout = 40 * time.Second
)

var (
	ErrBadHeader      = errors.New("帧头不正确")
	ErrUnknownOpcode  = errors.New("未知或不允许的帧类型")
	ErrSyncTooLarge   = errors.New("同步数据过大")
	ErrSyncNegative   = errors.New("同步数据长度为负")
	ErrSyncOverflow   = errors.New("同步分片超出声明的长度")
	ErrSyncNotStarted = errors.New("没有进行中的同步")
	ErrSyncEmpty      = errors.New("同步数据为空")
	ErrSyncChunk      = errors.New("同步分片过大")
	ErrAmountMismatch = errors.New("牌和数量的个数不一致")
	ErrListTooLong    = errors.New("列表过长")
	ErrInvalidCard    = errors.New("无效的牌")
	ErrStringTooLong  = errors.New("字符串过长")
)
