package levelup

import (
	"errors"
	"slices"
)

var ErrTrickShape = errors.New("牌和数量的个数不一致")

// Tuple 同一张牌出 Amount 张（单张、对子、三张…）
type Tuple struct {
	Card   Card
	Amount int
}

// Trick 一次出牌，按 GameComparator 排好序的 Tuple 列表
type Trick []Tuple

// NewTrick 合并重复的牌并排序
func NewTrick(cards []Card, amounts []int) (Trick, error) {
	if len(cards) != len(amounts) {
		return nil, ErrTrickShape
	}
	trick := make(Trick, 0, len(cards))
	for i, c := range cards {
		if idx := trick.find(c); idx >= 0 {
			trick[idx].Amount += amounts[i]
			continue
		}
		trick = append(trick, Tuple{Card: c, Amount: amounts[i]})
	}
	trick.sort()
	return trick, nil
}

func (t Trick) find(c Card) int {
	for i, tuple := range t {
		if tuple.Card.Same(c) {
			return i
		}
	}
	return -1
}

func (t Trick) sort() {
	slices.SortStableFunc(t, func(a, b Tuple) int {
		return GameComparator(a.Card, b.Card)
	})
}

// Cards 各 Tuple 的牌
func (t Trick) Cards() []Card {
	cards := make([]Card, len(t))
	for i, tuple := range t {
		cards[i] = tuple.Card
	}
	return cards
}

// Amounts 各 Tuple 的张数
func (t Trick) Amounts() []int {
	amounts := make([]int, len(t))
	for i, tuple := range t {
		amounts[i] = tuple.Amount
	}
	return amounts
}

// Size 总张数
func (t Trick) Size() int {
	n := 0
	for _, tuple := range t {
		n += tuple.Amount
	}
	return n
}

// Points 总分
func (t Trick) Points() int {
	n := 0
	for _, tuple := range t {
		n += tuple.Card.Points() * tuple.Amount
	}
	return n
}

// SameStructure 张数结构是否一致
func (t Trick) SameStructure(o Trick) bool {
	return slices.Equal(t.Amounts(), o.Amounts())
}

// Clone 深拷贝
func (t Trick) Clone() Trick {
	if t == nil {
		return nil
	}
	return slices.Clone(t)
}

// withTrump 按当前主重新推导每张牌后重新排序
func (t Trick) withTrump(trumpSuit Suit, trumpRank int) Trick {
	out := make(Trick, len(t))
	for i, tuple := range t {
		out[i] = Tuple{Card: tuple.Card.WithTrump(trumpSuit, trumpRank), Amount: tuple.Amount}
	}
	out.sort()
	return out
}

func cloneTricks(tricks []Trick) []Trick {
	out := make([]Trick, len(tricks))
	for i, t := range tricks {
		out[i] = t.Clone()
	}
	return out
}
