package protocol

import (
	"github.com/uakfdotb/p-levelup/runtime/game/engines/levelup"
)

// Message 一帧解码后的内容，各 opcode 只使用其中部分字段
type Message struct {
	Op Opcode

	// PID 服务端广播里的座位号；JOIN 回复里 -1 表示拒绝
	PID int
	// Other SWAP 的第二个座位
	Other int

	Name string // JOIN、JOINOTHER、CHAT 发送者
	Text string // CHAT 内容、PLAYERROR 原因

	// Value STATECHANGE 阶段、计数器、SYNC 长度、NEWPID、RESIZED
	Value int

	Suit   levelup.Suit
	Amount int

	Cards   []levelup.Card
	Amounts []int

	Data []byte // SYNCPART
}

// Join 客户端请求入座
func Join(name string) *Message {
	return &Message{Op: OpJoin, Name: name}
}

// JoinReply 入座结果，-1 表示拒绝
func JoinReply(pid int) *Message {
	return &Message{Op: OpJoin, PID: pid}
}

func JoinOther(pid int, name string) *Message {
	return &Message{Op: OpJoinOther, PID: pid, Name: name}
}

func LeaveOther(pid int) *Message {
	return &Message{Op: OpLeaveOther, PID: pid}
}

func GameLoaded() *Message {
	return &Message{Op: OpGameLoaded}
}

func StateChange(state levelup.State) *Message {
	return &Message{Op: OpStateChange, Value: int(state)}
}

// Declare 亮主，客户端发送时 pid 不编码
func Declare(pid int, suit levelup.Suit, amount int) *Message {
	return &Message{Op: OpDeclare, PID: pid, Suit: suit, Amount: amount}
}

func Withdraw(pid int) *Message {
	return &Message{Op: OpWithdraw, PID: pid}
}

func Defend(pid int, amount int) *Message {
	return &Message{Op: OpDefend, PID: pid, Amount: amount}
}

// PlayCards 出牌
func PlayCards(pid int, trick levelup.Trick) *Message {
	return &Message{Op: OpPlayCards, PID: pid, Cards: trick.Cards(), Amounts: trick.Amounts()}
}

func PlayError(reason string) *Message {
	return &Message{Op: OpPlayError, Text: reason}
}

func DealtCard(card levelup.Card) *Message {
	return &Message{Op: OpDealtCard, Cards: []levelup.Card{card}}
}

func BetCounter(n int) *Message {
	return &Message{Op: OpBetCounter, Value: n}
}

func RoundCounter(n int) *Message {
	return &Message{Op: OpRoundCounter, Value: n}
}

func Bottom(cards []levelup.Card) *Message {
	return &Message{Op: OpBottom, Cards: cards}
}

func SelectBottom(cards []levelup.Card) *Message {
	return &Message{Op: OpSelectBottom, Cards: cards}
}

// Chat 聊天，客户端发送时只编码内容
func Chat(name, text string) *Message {
	return &Message{Op: OpChat, Name: name, Text: text}
}

func Sync(length int) *Message {
	return &Message{Op: OpSync, Value: length}
}

func SyncPart(data []byte) *Message {
	return &Message{Op: OpSyncPart, Data: data}
}

func Swap(a, b int) *Message {
	return &Message{Op: OpSwap, PID: a, Other: b}
}

func NewPID(pid int) *Message {
	return &Message{Op: OpNewPID, Value: pid}
}

func Resized(n int) *Message {
	return &Message{Op: OpResized, Value: n}
}

func Noop() *Message {
	return &Message{Op: OpNoop}
}

// Trick 把出牌帧还原成 Trick
func (m *Message) Trick() (levelup.Trick, error) {
	trick, err := levelup.NewTrick(m.Cards, m.Amounts)
	if err != nil {
		return nil, ErrAmountMismatch
	}
	return trick, nil
}

// Card DEALTCARD 里的牌
func (m *Message) Card() levelup.Card {
	if len(m.Cards) == 0 {
		return levelup.Card{}
	}
	return m.Cards[0]
}
