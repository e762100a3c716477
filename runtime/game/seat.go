package game

import (
	"github.com/uakfdotb/p-levelup/core/infrastructure/message/protocol"
	"github.com/uakfdotb/p-levelup/runtime/game/engines/levelup"
	"github.com/uakfdotb/p-levelup/runtime/game/share"
)

// seat 一个已入座的连接，同时作为牌局的订阅者把事件转成帧
// 只在桌子协程上访问。
type seat struct {
	t     *Table
	p     share.Participant
	pid   int // 被 resize 请离后为 -1
	name  string
	admin bool
}

func (s *seat) send(m *protocol.Message) {
	if err := s.p.Send(m); err != nil {
		s.t.log.Debug("发送 %s 给 [%s] 失败: %v", m.Op, s.name, err)
	}
}

func (s *seat) Player() int {
	return s.pid
}

func (s *seat) PlayerJoined(pid int, name string) {
	s.send(protocol.JoinOther(pid, name))
}

// PlayerLeft 自己的座位被 resize 移除时断开
func (s *seat) PlayerLeft(pid int) {
	s.send(protocol.LeaveOther(pid))
	if pid == s.pid {
		s.t.log.Info("玩家 [%s] 的座位 %d 已被移除", s.name, pid)
		s.pid = -1
		s.t.game.RemoveListener(s)
		s.p.Close()
	}
}

func (s *seat) StateChanged(state levelup.State) {
	s.send(protocol.StateChange(state))
}

func (s *seat) Declared(pid int, suit levelup.Suit, amount int) {
	s.send(protocol.Declare(pid, suit, amount))
}

func (s *seat) DeclarationWithdrawn(pid int) {
	s.send(protocol.Withdraw(pid))
}

func (s *seat) DeclarationDefended(pid int, amount int) {
	s.send(protocol.Defend(pid, amount))
}

func (s *seat) CardsPlayed(pid int, trick levelup.Trick) {
	s.send(protocol.PlayCards(pid, trick))
}

func (s *seat) CardDealt(card levelup.Card) {
	s.send(protocol.DealtCard(card))
}

func (s *seat) BetCounterUpdated(counter int) {
	s.send(protocol.BetCounter(counter))
}

func (s *seat) BottomRevealed(cards []levelup.Card) {
	s.send(protocol.Bottom(cards))
}

func (s *seat) BottomSelected(cards []levelup.Card) {
	s.send(protocol.SelectBottom(cards))
}

func (s *seat) RoundCounterUpdated(counter int) {
	s.send(protocol.RoundCounter(counter))
}

func (s *seat) PlayersSwapped(a, b int) {
	s.send(protocol.Swap(a, b))
}

func (s *seat) PlayerRenumbered(pid int) {
	s.pid = pid
	s.send(protocol.NewPID(pid))
}

func (s *seat) Resized(numPlayers int) {
	s.send(protocol.Resized(numPlayers))
}
