package levelup

import "slices"

// 以下方法供客户端副本应用服务端广播，不做规则校验

// SetBetCounter 同步叫牌倒计时
func (g *Game) SetBetCounter(counter int) {
	g.betCounter = counter
}

// SetRoundCounter 同步结算倒计时
func (g *Game) SetRoundCounter(counter int) {
	g.roundCounter = counter
}

// SetBottom 同步底牌，BOTTOM 阶段同时通知订阅者
func (g *Game) SetBottom(cards []Card) {
	g.bottom = g.normalize(cards)
	if g.state == StateBottom {
		bottom := slices.Clone(g.bottom)
		g.each(func(l Listener) { l.BottomRevealed(bottom) })
	}
}

// DealCard 座位 pid 收到一张牌
func (g *Game) DealCard(pid int, card Card) {
	if !g.validSeat(pid) {
		return
	}
	card = card.WithTrump(g.trumpSuit, g.currentLevel)
	g.players[pid].addCard(card, g.handOrder())
	g.eachSeat(pid, func(l Listener) { l.CardDealt(card) })
}
