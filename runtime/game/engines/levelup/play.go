package levelup

import (
	"slices"
)

// PlayTrick 出牌
// 首家出牌要求同花色、张数一致的连续牌型；跟牌要求张数相同、能跟花色就跟，
// 首家出对子以上时还要尽量跟出相同或次一级的牌型。
// 只有权威实例做手牌相关的校验，副本直接信任服务端广播。
func (g *Game) PlayTrick(player int, trick Trick) bool {
	if g.state != StatePlaying || !g.validSeat(player) {
		return false
	}
	if len(trick) == 0 {
		return false
	}
	for _, tuple := range trick {
		if tuple.Amount < 1 {
			return false
		}
	}
	trick = trick.withTrump(g.trumpSuit, g.currentLevel)

	g.log.Debug("玩家 %d 尝试出牌 %v", player, trick)

	if player == g.startingPlayer && player == g.nextPlayer && len(g.plays) == 0 {
		return g.playOpening(player, trick)
	}
	if player == g.nextPlayer {
		return g.playFollow(player, trick)
	}
	g.log.Debug("出牌失败: 还没轮到玩家 %d", player)
	return false
}

func (g *Game) playOpening(player int, trick Trick) bool {
	amount := trick[0].Amount
	suit := trick[0].Card.GameSuit
	for _, tuple := range trick {
		if tuple.Amount != amount {
			g.log.Debug("出牌失败: 每种牌的张数不一致")
			return false
		}
		if tuple.Card.GameSuit != suit {
			g.log.Debug("出牌失败: 花色不一致")
			return false
		}
		if g.controller && g.players[player].CountCards(tuple.Card) < amount {
			g.log.Debug("出牌失败: 手里没有这些牌")
			return false
		}
	}
	if !trick.consecutive() {
		g.log.Debug("出牌失败: 牌不连续")
		return false
	}
	// 多种牌时每种至少两张，不允许顺子
	if len(trick) > 1 && amount < 2 {
		g.log.Debug("出牌失败: 多种牌时每种至少两张")
		return false
	}

	g.players[player].removeTrick(trick)

	g.plays = append(g.plays, trick)
	g.storedPlays = []Trick{trick}
	g.storedStartingPlayer = g.startingPlayer
	g.trickCards = trick.Size()
	g.openingPlay = trick

	g.each(func(l Listener) { l.CardsPlayed(player, trick.Clone()) })

	g.nextPlayer = mod(g.nextPlayer+1, len(g.players))
	return true
}

func (g *Game) playFollow(player int, trick Trick) bool {
	if g.controller && !g.validFollow(player, trick) {
		return false
	}

	g.players[player].removeTrick(trick)
	g.plays = append(g.plays, trick)
	g.storedPlays = append(g.storedPlays, trick)
	g.nextPlayer = mod(g.nextPlayer+1, len(g.players))

	roundOver := false
	if len(g.plays) == len(g.players) {
		winner := g.CompareField()
		g.players[winner].Points += g.FieldPoints()

		// storedPlays 保留到下一轮首家出牌
		g.plays = nil
		g.startingPlayer = winner
		g.nextPlayer = winner

		roundOver = true
		for _, p := range g.players {
			if len(p.Hand) > 0 {
				roundOver = false
				break
			}
		}
		if roundOver {
			g.players[winner].Points += 2 * g.BottomPoints()
			bottom := slices.Clone(g.bottom)
			g.each(func(l Listener) { l.BottomRevealed(bottom) })
		}
	}

	g.each(func(l Listener) { l.CardsPlayed(player, trick.Clone()) })

	// 最后一轮的出牌先通知，之后才切换阶段
	if roundOver {
		g.roundOver()
	}
	return true
}

// validFollow 跟牌规则校验
func (g *Game) validFollow(player int, trick Trick) bool {
	p := g.players[player]
	trickSuit := g.openingPlay[0].Card.GameSuit
	trickAmount := g.openingPlay[0].Amount

	for _, tuple := range trick {
		if p.CountCards(tuple.Card) < tuple.Amount {
			g.log.Debug("出牌失败: 手里没有这些牌")
			return false
		}
	}

	if trick.Size() != g.trickCards {
		g.log.Debug("出牌失败: 张数与首家不同")
		return false
	}

	suitTotal := p.CountSuit(trickSuit)
	suitCards := 0
	for _, tuple := range trick {
		if tuple.Card.GameSuit == trickSuit {
			suitCards += tuple.Amount
		}
	}
	if suitCards != suitTotal && suitCards != g.trickCards {
		g.log.Debug("出牌失败: 没有跟花色 (%d/%d)", suitCards, suitTotal)
		return false
	}

	// 该花色还没出完时才需要跟对子、三张
	if trickAmount < 2 || suitCards != g.trickCards {
		return true
	}

	openingAmounts := g.openingPlay.Amounts()
	if p.HasCombination(trickSuit, openingAmounts) {
		if !slices.Equal(trick.Amounts(), openingAmounts) {
			g.log.Debug("出牌失败: 有相同牌型却没有出")
			return false
		}
		return true
	}
	return followsTuples(p.Tuples(trickSuit), trick, openingAmounts)
}

// playedTuple 出的牌里至少两张的一组，以及它在手牌中对应的 Tuple
type playedTuple struct {
	hand *Tuple
	n    int
}

// followsTuples 没有完整牌型时，按首家每一组的张数贪心检查：
// 手里有正好这么多张的，必须出了不少于这么多张的一组；
// 否则必须尽量用手里的对子、三张去凑，不能留着不出。
func followsTuples(handTuples []Tuple, trick Trick, openingAmounts []int) bool {
	hand := make([]*Tuple, len(handTuples))
	for i := range handTuples {
		hand[i] = &handTuples[i]
	}

	var played []*playedTuple
	for _, tuple := range trick {
		if tuple.Amount < 2 {
			continue
		}
		for _, h := range hand {
			if h.Card.Same(tuple.Card) {
				played = append(played, &playedTuple{hand: h, n: tuple.Amount})
				break
			}
		}
	}

	consume := func(idx, n int) {
		pt := played[idx]
		pt.hand.Amount -= n
		pt.n -= n
		if pt.hand.Amount <= 1 {
			hand = slices.DeleteFunc(hand, func(h *Tuple) bool { return h == pt.hand })
		}
		if pt.n <= 1 {
			played = slices.Delete(played, idx, idx+1)
		}
	}

	for _, need := range openingAmounts {
		hasExact := slices.ContainsFunc(hand, func(h *Tuple) bool { return h.Amount == need })
		if hasExact {
			idx := slices.IndexFunc(played, func(pt *playedTuple) bool { return pt.n >= need })
			if idx < 0 {
				return false
			}
			consume(idx, need)
			continue
		}

		remaining := need
		for remaining >= 2 {
			if len(played) > 0 {
				n := min(played[0].n, remaining)
				remaining -= n
				consume(0, n)
				continue
			}
			if len(hand) > 0 {
				return false
			}
			break
		}
	}
	return true
}

// consecutive 按 GameValue 排序后是否每种牌相差 1
func (t Trick) consecutive() bool {
	for i := 0; i+1 < len(t); i++ {
		if t[i].Card.GameValue != t[i+1].Card.GameValue-1 {
			return false
		}
	}
	return true
}

// Beats 后出的 b 是否压过先出的 a，相同或无法比较时先出的大
// b 必须张数结构相同、全部同一花色（与 a 同花色或全是主牌）、连续，
// 并且每个位置都严格大于 a 才算压过；主牌压副牌时不比点数。
func Beats(a, b Trick) bool {
	if len(a) == 0 || len(b) == 0 {
		return len(a) == 0 && len(b) > 0
	}
	if !a.SameStructure(b) {
		return false
	}

	aSuit := a[0].Card.GameSuit
	bSuit := b[0].Card.GameSuit
	if aSuit != bSuit && bSuit != SuitTrump {
		return false
	}
	for _, tuple := range b {
		if tuple.Card.GameSuit != bSuit {
			return false
		}
	}
	if !b.consecutive() {
		return false
	}

	if bSuit == SuitTrump && aSuit != SuitTrump {
		return true
	}
	for i := range a {
		if b[i].Card.GameValue <= a[i].Card.GameValue {
			return false
		}
	}
	return true
}

// CompareField 本轮最大的出牌所在座位
func (g *Game) CompareField() int {
	top := 0
	for i := 1; i < len(g.plays); i++ {
		if Beats(g.plays[top], g.plays[i]) {
			top = i
		}
	}
	return mod(top+g.startingPlayer, len(g.players))
}

// FieldPoints 本轮桌面上的分
func (g *Game) FieldPoints() int {
	n := 0
	for _, t := range g.plays {
		n += t.Points()
	}
	return n
}

// BottomPoints 底牌里的分
func (g *Game) BottomPoints() int {
	return CardPoints(g.bottom)
}

// SelectBottom 庄家扣底
// 权威实例要求张数与原底牌相同且庄家手里都有；任何一张不在手里时整体回滚。
func (g *Game) SelectBottom(player int, cards []Card) bool {
	if g.state != StateBottom || player != g.currentDealer {
		return false
	}
	if g.controller && len(cards) != len(g.bottom) {
		g.log.Debug("扣底失败: 张数与底牌不同")
		return false
	}

	g.log.Debug("玩家 %d 扣底", player)

	cards = g.normalize(cards)
	dealer := g.players[player]
	for i, c := range cards {
		if dealer.removeCard(c, 1) == 1 {
			continue
		}
		for _, back := range cards[:i] {
			dealer.addCard(back, g.handOrder())
		}
		g.log.Debug("扣底失败: 手里没有 %s", c)
		return false
	}

	g.bottom = cards
	if g.controller {
		bottom := slices.Clone(cards)
		g.eachSeat(g.currentDealer, func(l Listener) { l.BottomSelected(bottom) })
		g.SetState(StatePlaying)
	}
	return true
}
