package levelup

// Bet 一次亮主：玩家、花色、张数
type Bet struct {
	Player int
	Suit   Suit
	Amount int
}

// topBet 当前最高的亮主
func (g *Game) topBet() (Bet, bool) {
	if len(g.bets) == 0 {
		return Bet{}, false
	}
	return g.bets[len(g.bets)-1], true
}

// Declare 亮主
// 只能在发牌和叫牌阶段进行；张数必须严格大于当前最高亮主，
// 控制端还要校验玩家手里确有这么多张该花色的级牌。
// 同一玩家或同一花色被压过的旧亮主会被移除；自己的最高亮主只能反主，不能再亮，
// 当前最高亮主的花色也不能被别人用同花色再亮。
func (g *Game) Declare(player int, suit Suit, amount int) bool {
	if g.state != StateDealing && g.state != StateBetting {
		return false
	}
	if !g.validSeat(player) || !suit.Plain() || amount < 1 {
		return false
	}

	g.log.Debug("玩家 %d 尝试亮主 %s x%d", player, suit, amount)

	top, ok := g.topBet()
	if ok && amount <= top.Amount {
		g.log.Debug("亮主失败: 张数没有超过当前最高亮主")
		return false
	}
	if g.controller && g.players[player].CountCards(NewCard(suit, g.currentLevel)) < amount {
		g.log.Debug("亮主失败: 玩家没有足够的级牌")
		return false
	}
	if ok && top.Player == player {
		g.log.Debug("亮主失败: 不能修改自己的最高亮主")
		return false
	}
	if ok && top.Suit == suit {
		g.log.Debug("亮主失败: 不能用相同花色压过当前亮主")
		return false
	}

	kept := g.bets[:0]
	for _, bet := range g.bets {
		if bet.Player == player || bet.Suit == suit {
			continue
		}
		kept = append(kept, bet)
	}
	g.bets = append(kept, Bet{Player: player, Suit: suit, Amount: amount})
	g.betCounter = 0

	g.each(func(l Listener) { l.Declared(player, suit, amount) })
	return true
}

// WithdrawDeclaration 撤回已被压过的亮主，当前最高亮主不能撤回
func (g *Game) WithdrawDeclaration(player int) bool {
	if g.state != StateDealing && g.state != StateBetting {
		return false
	}
	for i := 0; i < len(g.bets)-1; i++ {
		if g.bets[i].Player != player {
			continue
		}
		g.betCounter = 0
		g.bets = append(g.bets[:i], g.bets[i+1:]...)
		g.each(func(l Listener) { l.DeclarationWithdrawn(player) })
		return true
	}
	return false
}

// DefendDeclaration 反主：把自己被压过的亮主加到不少于当前最高张数，花色不变，
// 其后的亮主全部作废
func (g *Game) DefendDeclaration(player int, amount int) bool {
	if g.state != StateDealing && g.state != StateBetting {
		return false
	}

	idx := -1
	for i := 0; i < len(g.bets)-1; i++ {
		if g.bets[i].Player == player {
			idx = i
			break
		}
	}
	if idx < 0 {
		return false
	}

	top, _ := g.topBet()
	if amount < top.Amount {
		return false
	}
	if g.controller && g.players[player].CountCards(NewCard(g.bets[idx].Suit, g.currentLevel)) < amount {
		return false
	}

	g.betCounter = 0
	g.bets[idx].Amount = amount
	g.bets = g.bets[:idx+1]

	g.each(func(l Listener) { l.DeclarationDefended(player, amount) })
	return true
}

// Bets 亮主记录副本，最后一个为当前最高
func (g *Game) Bets() []Bet {
	out := make([]Bet, len(g.bets))
	copy(out, g.bets)
	return out
}

// PlayerBet 玩家的亮主
func (g *Game) PlayerBet(player int) (Bet, bool) {
	for _, bet := range g.bets {
		if bet.Player == player {
			return bet, true
		}
	}
	return Bet{}, false
}
