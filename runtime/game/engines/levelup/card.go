package levelup

import (
	"cmp"
	"fmt"
	"math/rand/v2"
	"strings"
)

// Suit 花色，SuitTrump 同时表示王牌和定主后的主牌
type Suit int

const (
	SuitNone     Suit = -2
	SuitTrump    Suit = -1
	SuitClubs    Suit = 0
	SuitDiamonds Suit = 1
	SuitHearts   Suit = 2
	SuitSpades   Suit = 3
)

const (
	RankJack       = 11
	RankQueen      = 12
	RankKing       = 13
	RankAce        = 14
	RankSmallJoker = 15
	RankBigJoker   = 16

	// CardsPerDeck 每副牌 52 张加两张王
	CardsPerDeck = 54
)

// String 花色缩写
func (s Suit) String() string {
	switch s {
	case SuitClubs:
		return "C"
	case SuitDiamonds:
		return "D"
	case SuitHearts:
		return "H"
	case SuitSpades:
		return "S"
	case SuitTrump:
		return "T"
	default:
		return "?"
	}
}

// Plain 是否为四种普通花色之一
func (s Suit) Plain() bool {
	return s >= SuitClubs && s <= SuitSpades
}

// ParseSuit 解析花色缩写，无法识别时返回 SuitNone
func ParseSuit(s string) Suit {
	switch strings.ToUpper(s) {
	case "C":
		return SuitClubs
	case "D":
		return SuitDiamonds
	case "H":
		return SuitHearts
	case "S":
		return SuitSpades
	case "T":
		return SuitTrump
	default:
		return SuitNone
	}
}

var rankNames = map[int]string{
	2: "2", 3: "3", 4: "4", 5: "5", 6: "6", 7: "7", 8: "8", 9: "9", 10: "10",
	RankJack: "J", RankQueen: "Q", RankKing: "K", RankAce: "A",
	RankSmallJoker: "?-", RankBigJoker: "?+",
}

// RankString 点数的显示名
func RankString(rank int) string {
	if s, ok := rankNames[rank]; ok {
		return s
	}
	return "??"
}

// ParseRank 解析点数，无法识别时返回 0
func ParseRank(s string) int {
	s = strings.ToUpper(s)
	for rank, name := range rankNames {
		if name == s {
			return rank
		}
	}
	return 0
}

// Card 一张牌
// GameSuit/GameValue 在定主后由 (trumpSuit, trumpRank) 推导，定主前等于原始花色和点数
type Card struct {
	Rank      int
	Suit      Suit
	GameSuit  Suit
	GameValue int
}

// NewCard 按 (花色, 点数) 构造
func NewCard(suit Suit, rank int) Card {
	return Card{Rank: rank, Suit: suit, GameSuit: suit, GameValue: rank}
}

// CardFromID 由单字节编号还原牌，0-51 为普通牌，52/53 为小王/大王
func CardFromID(id int) (Card, error) {
	switch {
	case id == 52 || id == 53:
		return NewCard(SuitTrump, id-37), nil
	case id >= 0 && id < 52:
		return NewCard(Suit(id/13), id%13+2), nil
	default:
		return Card{}, fmt.Errorf("无效的牌编号: %d", id)
	}
}

// ID 单字节编号，suit*13 + (rank-2)，王为 52/53
func (c Card) ID() int {
	if c.Suit == SuitTrump {
		return c.Rank + 37
	}
	return int(c.Suit)*13 + c.Rank - 2
}

// Valid 是否为合法的牌
func (c Card) Valid() bool {
	if c.Suit == SuitTrump {
		return c.Rank == RankSmallJoker || c.Rank == RankBigJoker
	}
	return c.Suit.Plain() && c.Rank >= 2 && c.Rank <= RankAce
}

// Same 忽略定主推导字段的相等比较
func (c Card) Same(o Card) bool {
	return c.Rank == o.Rank && c.Suit == o.Suit
}

// Joker 是否为王
func (c Card) Joker() bool {
	return c.Rank == RankSmallJoker || c.Rank == RankBigJoker
}

// IsTrump 王、主花色、级牌都是主牌
func (c Card) IsTrump(trumpSuit Suit, trumpRank int) bool {
	return c.Suit == SuitTrump || c.Suit == trumpSuit || c.Rank == trumpRank
}

// TrumpWeight 主牌内部排序权重：大王 > 小王 > 主级牌 > 副级牌 > 其余主牌按点数
func (c Card) TrumpWeight(trumpSuit Suit, trumpRank int) int {
	if !c.IsTrump(trumpSuit, trumpRank) {
		return c.Rank
	}
	switch {
	case c.Joker():
		return c.Rank + 2
	case c.Rank == trumpRank && c.Suit == trumpSuit:
		return 16
	case c.Rank == trumpRank:
		return 15
	default:
		return c.Rank
	}
}

// WithTrump 返回按当前主推导过 GameSuit/GameValue 的副本
func (c Card) WithTrump(trumpSuit Suit, trumpRank int) Card {
	if c.IsTrump(trumpSuit, trumpRank) {
		c.GameSuit = SuitTrump
		c.GameValue = c.TrumpWeight(trumpSuit, trumpRank)
	} else {
		c.GameSuit = c.Suit
		c.GameValue = c.Rank
	}
	return c
}

// Points 5 记 5 分，10 和 K 记 10 分
func (c Card) Points() int {
	switch c.Rank {
	case 5:
		return 5
	case 10, RankKing:
		return 10
	default:
		return 0
	}
}

func (c Card) String() string {
	return RankString(c.Rank) + c.Suit.String()
}

// ParseCard 解析形如 "10H"、"?+T" 的牌
func ParseCard(s string) (Card, error) {
	if len(s) < 2 {
		return Card{}, fmt.Errorf("无法解析的牌: %q", s)
	}
	suit := ParseSuit(s[len(s)-1:])
	rank := ParseRank(s[:len(s)-1])
	c := NewCard(suit, rank)
	if !c.Valid() {
		return Card{}, fmt.Errorf("无法解析的牌: %q", s)
	}
	return c, nil
}

// NewDeck numDecks 副牌洗匀后的牌堆
func NewDeck(numDecks int, rng *rand.Rand) []Card {
	deck := make([]Card, 0, numDecks*CardsPerDeck)
	for k := 0; k < numDecks; k++ {
		for id := 0; id < CardsPerDeck; id++ {
			c, _ := CardFromID(id)
			deck = append(deck, c)
		}
	}
	shuffle := rand.Shuffle
	if rng != nil {
		shuffle = rng.Shuffle
	}
	shuffle(len(deck), func(i, j int) {
		deck[i], deck[j] = deck[j], deck[i]
	})
	return deck
}

// HandComparator 定主前的手牌排序：主牌在前，副牌按花色再按点数；
// 主牌按权重，权重相同的不同牌再按花色区分
func HandComparator(trumpSuit Suit, trumpRank int) func(a, b Card) int {
	return func(a, b Card) int {
		aTrump := a.IsTrump(trumpSuit, trumpRank)
		bTrump := b.IsTrump(trumpSuit, trumpRank)
		switch {
		case aTrump && !bTrump:
			return -1
		case !aTrump && bTrump:
			return 1
		case !aTrump:
			if a.Suit != b.Suit {
				return cmp.Compare(a.Suit, b.Suit)
			}
			return cmp.Compare(a.Rank, b.Rank)
		}
		diff := cmp.Compare(a.TrumpWeight(trumpSuit, trumpRank), b.TrumpWeight(trumpSuit, trumpRank))
		if diff == 0 && !a.Same(b) {
			return cmp.Compare(a.Suit, b.Suit)
		}
		return diff
	}
}

// GameComparator 定主后的排序：先 GameSuit（主牌在前），再 GameValue，相同时按原始花色
func GameComparator(a, b Card) int {
	if a.GameSuit != b.GameSuit {
		return cmp.Compare(a.GameSuit, b.GameSuit)
	}
	if a.GameValue != b.GameValue {
		return cmp.Compare(a.GameValue, b.GameValue)
	}
	if a.Suit != b.Suit {
		return cmp.Compare(a.Suit, b.Suit)
	}
	return cmp.Compare(a.Rank, b.Rank)
}

// CountCards 统计与 card 相同的牌数
func CountCards(card Card, cards []Card) int {
	n := 0
	for _, c := range cards {
		if c.Same(card) {
			n++
		}
	}
	return n
}

// CountSuit 按 GameSuit 统计
func CountSuit(suit Suit, cards []Card) int {
	n := 0
	for _, c := range cards {
		if c.GameSuit == suit {
			n++
		}
	}
	return n
}

// CardPoints 一组牌的总分
func CardPoints(cards []Card) int {
	n := 0
	for _, c := range cards {
		n += c.Points()
	}
	return n
}
