package levelup

import (
	"cmp"
	"slices"
)

const (
	// StartLevel 每位玩家从 2 开始升级
	StartLevel = 2
	// MaxLevel 任一玩家到达该级别时游戏结束
	MaxLevel = 16
)

// Player 一个座位上的玩家状态
type Player struct {
	Name      string // 空字符串表示座位空闲
	Hand      []Card
	Level     int
	Points    int
	Defending bool
}

func newPlayer() *Player {
	return &Player{Level: StartLevel}
}

// reset 新一局开始，清空手牌和得分
func (p *Player) reset() {
	p.Hand = nil
	p.Points = 0
}

// Occupied 座位是否有人
func (p *Player) Occupied() bool {
	return p.Name != ""
}

// CountCards 手里与 card 相同的牌数
func (p *Player) CountCards(card Card) int {
	return CountCards(card, p.Hand)
}

// CountSuit 手里某个 GameSuit 的张数
func (p *Player) CountSuit(suit Suit) int {
	return CountSuit(suit, p.Hand)
}

func (p *Player) addCard(card Card, less func(a, b Card) int) {
	p.Hand = append(p.Hand, card)
	slices.SortStableFunc(p.Hand, less)
}

// removeCard 移除最多 n 张相同的牌，返回实际移除的张数
func (p *Player) removeCard(card Card, n int) int {
	removed := 0
	kept := p.Hand[:0]
	for _, c := range p.Hand {
		if removed < n && c.Same(card) {
			removed++
			continue
		}
		kept = append(kept, c)
	}
	p.Hand = kept
	return removed
}

func (p *Player) removeTrick(trick Trick) {
	for _, tuple := range trick {
		p.removeCard(tuple.Card, tuple.Amount)
	}
}

func (p *Player) recalculate(trumpSuit Suit, trumpRank int) {
	for i, c := range p.Hand {
		p.Hand[i] = c.WithTrump(trumpSuit, trumpRank)
	}
	slices.SortStableFunc(p.Hand, HandComparator(trumpSuit, trumpRank))
}

// levelUp 升 n 级，不超过 MaxLevel
func (p *Player) levelUp(n int) {
	p.Level = min(p.Level+n, MaxLevel)
}

// Tuples 某个 GameSuit 中至少两张相同的牌，张数多的在前，张数相同时大的在前
func (p *Player) Tuples(suit Suit) []Tuple {
	var tuples []Tuple
	for _, c := range p.Hand {
		if c.GameSuit != suit {
			continue
		}
		found := false
		for i := range tuples {
			if tuples[i].Card.Same(c) {
				tuples[i].Amount++
				found = true
				break
			}
		}
		if !found {
			tuples = append(tuples, Tuple{Card: c, Amount: 1})
		}
	}
	tuples = slices.DeleteFunc(tuples, func(t Tuple) bool { return t.Amount < 2 })
	slices.SortStableFunc(tuples, func(a, b Tuple) int {
		if a.Amount != b.Amount {
			return cmp.Compare(b.Amount, a.Amount)
		}
		return cmp.Compare(b.Card.GameValue, a.Card.GameValue)
	})
	return tuples
}

// HasCombination 手里某个 GameSuit 中是否存在 GameValue 连续、
// 且每一位张数都不少于 amounts 对应位置的组合
func (p *Player) HasCombination(suit Suit, amounts []int) bool {
	if len(amounts) == 0 {
		return true
	}
	// GameValue -> 该值上每张不同牌的张数
	byValue := make(map[int][]int)
	counted := make([]Card, 0, len(p.Hand))
	for _, c := range p.Hand {
		if c.GameSuit != suit || slices.ContainsFunc(counted, c.Same) {
			continue
		}
		counted = append(counted, c)
		byValue[c.GameValue] = append(byValue[c.GameValue], p.CountCards(c))
	}

	for start := range byValue {
		ok := true
		for i, need := range amounts {
			if !slices.ContainsFunc(byValue[start+i], func(n int) bool { return n >= need }) {
				ok = false
				break
			}
		}
		if ok {
			return true
		}
	}
	return false
}

// clone 深拷贝
func (p *Player) clone() *Player {
	cp := *p
	cp.Hand = slices.Clone(p.Hand)
	return &cp
}
