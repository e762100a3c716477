package levelup

import (
	"fmt"
	"math/rand/v2"
	"slices"
	"strings"
	"testing"

	"github.com/uakfdotb/p-levelup/common/log"
)

// recorder 记录收到的事件
type recorder struct {
	NopListener
	pid    int
	events []string
	dealt  []Card
	bottom []Card
}

func newRecorder(pid int) *recorder {
	return &recorder{pid: pid}
}

func (r *recorder) Player() int { return r.pid }

func (r *recorder) add(format string, args ...any) {
	r.events = append(r.events, fmt.Sprintf(format, args...))
}

func (r *recorder) PlayerJoined(pid int, name string) { r.add("joined %d %s", pid, name) }
func (r *recorder) PlayerLeft(pid int)                { r.add("left %d", pid) }
func (r *recorder) StateChanged(state State)          { r.add("state %s", state) }
func (r *recorder) Declared(pid int, suit Suit, amount int) {
	r.add("declare %d %s %d", pid, suit, amount)
}
func (r *recorder) DeclarationWithdrawn(pid int)        { r.add("withdraw %d", pid) }
func (r *recorder) DeclarationDefended(pid, amount int) { r.add("defend %d %d", pid, amount) }
func (r *recorder) CardsPlayed(pid int, trick Trick)    { r.add("play %d %d", pid, trick.Size()) }
func (r *recorder) CardDealt(card Card)                 { r.dealt = append(r.dealt, card) }
func (r *recorder) BottomRevealed(cards []Card)         { r.bottom = cards; r.add("bottom %d", len(cards)) }
func (r *recorder) BottomSelected(cards []Card)         { r.add("selected %d", len(cards)) }
func (r *recorder) PlayersSwapped(a, b int)             { r.add("swap %d %d", a, b) }
func (r *recorder) PlayerRenumbered(pid int)            { r.add("renumber %d", pid); r.pid = pid }
func (r *recorder) Resized(n int)                       { r.add("resized %d", n) }

func (r *recorder) has(event string) bool {
	return slices.Contains(r.events, event)
}

func (r *recorder) index(event string) int {
	return slices.Index(r.events, event)
}

// seatedGame 座位坐满的权威实例，洗牌结果固定
func seatedGame(t *testing.T, n int, seed uint64) *Game {
	t.Helper()
	g, err := New(n, true, WithLogger(log.Discard()), WithRand(rand.New(rand.NewPCG(seed, seed+1))))
	if err != nil {
		t.Fatalf("创建牌局失败: %v", err)
	}
	for i := 0; i < n; i++ {
		if !g.PlayerJoined(i, fmt.Sprintf("p%d", i)) {
			t.Fatalf("玩家 %d 入座失败", i)
		}
	}
	return g
}

// mustCards 解析空格分隔的牌
func mustCards(t *testing.T, s string) []Card {
	t.Helper()
	var cards []Card
	for _, f := range strings.Fields(s) {
		c, err := ParseCard(f)
		if err != nil {
			t.Fatalf("解析牌失败: %v", err)
		}
		cards = append(cards, c)
	}
	return cards
}

// mustTrick 把牌列表合并成一次出牌，每张计 1
func mustTrick(t *testing.T, g *Game, s string) Trick {
	t.Helper()
	cards := g.normalize(mustCards(t, s))
	amounts := make([]int, len(cards))
	for i := range amounts {
		amounts[i] = 1
	}
	trick, err := NewTrick(cards, amounts)
	if err != nil {
		t.Fatalf("构造出牌失败: %v", err)
	}
	return trick
}

// playingGame 直接进入出牌阶段，手牌由参数指定
func playingGame(t *testing.T, trump Suit, level int, hands ...string) *Game {
	t.Helper()
	g := seatedGame(t, len(hands), 1)
	g.state = StatePlaying
	g.trumpSuit = trump
	g.currentLevel = level
	g.deck = nil
	g.bottom = nil
	for i, h := range hands {
		g.players[i].Hand = g.normalize(mustCards(t, h))
		slices.SortStableFunc(g.players[i].Hand, g.handOrder())
		g.players[i].Defending = i%2 == 0
	}
	g.currentDealer = 0
	g.players[0].Level = level
	g.startingPlayer = 0
	g.nextPlayer = 0
	return g
}

func cardIDs(cards []Card) []int {
	ids := make([]int, len(cards))
	for i, c := range cards {
		ids[i] = c.ID()
	}
	return ids
}
