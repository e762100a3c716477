package levelup

import (
	"errors"
	"testing"
)

func TestNewValidatesPlayerCount(t *testing.T) {
	for _, n := range []int{-1, 0, 1, MaxPlayers + 1} {
		if _, err := New(n, true); !errors.Is(err, ErrPlayerCount) {
			t.Fatalf("%d 个座位应返回 ErrPlayerCount，实际 %v", n, err)
		}
	}
	g, err := New(6, true)
	if err != nil {
		t.Fatalf("创建牌局失败: %v", err)
	}
	if g.NumDecks() != 3 || g.State() != StateInit || g.DeckSize() != 3*CardsPerDeck {
		t.Fatalf("初始状态不正确: decks=%d state=%s deck=%d", g.NumDecks(), g.State(), g.DeckSize())
	}
}

func TestInitWaitsForPlayers(t *testing.T) {
	g, _ := New(4, true)
	g.PlayerJoined(0, "a")
	if g.PlayerJoined(0, "b") {
		t.Fatalf("已被占用的座位不能再入座")
	}
	if d := g.Update(); d != waitDelay || g.State() != StateInit {
		t.Fatalf("人没坐满时应继续等待: %v %s", d, g.State())
	}
}

// dealRound 发完牌进入叫牌阶段，返回每个座位收到的牌数
func dealRound(t *testing.T, g *Game, total int) []int {
	t.Helper()
	recs := make([]*recorder, g.NumPlayers())
	for i := range recs {
		recs[i] = newRecorder(i)
		g.AddListener(recs[i])
	}

	g.Update()
	if g.State() != StateDealing {
		t.Fatalf("坐满后应进入 DEALING，实际 %s", g.State())
	}
	for i := 0; g.State() == StateDealing; i++ {
		if i > 2*total {
			t.Fatalf("发牌没有结束")
		}
		if got := g.TotalCards(); got != total {
			t.Fatalf("发牌过程中总张数应为 %d，实际 %d", total, got)
		}
		g.Update()
	}
	if g.State() != StateBetting {
		t.Fatalf("发完牌应进入 BETTING，实际 %s", g.State())
	}

	counts := make([]int, len(recs))
	for i, r := range recs {
		counts[i] = len(r.dealt)
		g.RemoveListener(r)
	}
	return counts
}

func TestFullRound(t *testing.T) {
	g := seatedGame(t, 4, 11)
	const total = 2 * CardsPerDeck

	counts := dealRound(t, g, total)
	if len(g.Bottom()) != 8 {
		t.Fatalf("4 人两副牌底牌应为 8 张，实际 %d", len(g.Bottom()))
	}
	for i, n := range counts {
		if n != 25 || len(g.Hand(i)) != 25 {
			t.Fatalf("座位 %d 应收到 25 张牌，实际事件 %d 手牌 %d", i, n, len(g.Hand(i)))
		}
	}

	// 找一个手里有级牌的座位亮主
	bettor, suit := -1, SuitNone
	for i := 0; i < 4 && bettor < 0; i++ {
		for s := SuitClubs; s <= SuitSpades; s++ {
			if g.players[i].CountCards(NewCard(s, g.CurrentLevel())) > 0 {
				bettor, suit = i, s
				break
			}
		}
	}
	if bettor < 0 {
		t.Fatalf("没有任何座位拿到级牌")
	}
	if !g.Declare(bettor, suit, 1) {
		t.Fatalf("亮主失败")
	}

	dealerRec := newRecorder(bettor)
	g.AddListener(dealerRec)
	for i := 0; g.State() == StateBetting; i++ {
		if i > BetCountdown+1 {
			t.Fatalf("叫牌倒计时没有结束")
		}
		g.Update()
	}
	if g.State() != StateBottom {
		t.Fatalf("应进入 BOTTOM，实际 %s", g.State())
	}
	if g.CurrentDealer() != bettor || g.TrumpSuit() != suit {
		t.Fatalf("首局亮主者应坐庄: dealer=%d trump=%s", g.CurrentDealer(), g.TrumpSuit())
	}
	for i := 0; i < 4; i++ {
		if want := (i%2 == 0) == (bettor%2 == 0); g.Player(i).Defending != want {
			t.Fatalf("座位 %d 的攻守不正确", i)
		}
	}
	if len(g.Hand(bettor)) != 33 || len(dealerRec.bottom) != 8 || len(dealerRec.dealt) != 8 {
		t.Fatalf("庄家应拿到底牌: hand=%d bottom=%d dealt=%d", len(g.Hand(bettor)), len(dealerRec.bottom), len(dealerRec.dealt))
	}

	hand := g.Hand(bettor)
	if g.SelectBottom(mod(bettor+1, 4), hand[:8]) {
		t.Fatalf("非庄家不能扣底")
	}
	if g.SelectBottom(bettor, hand[:7]) {
		t.Fatalf("扣底张数必须与底牌相同")
	}
	if !g.SelectBottom(bettor, hand[:8]) {
		t.Fatalf("扣底失败")
	}
	if g.State() != StatePlaying || len(g.Hand(bettor)) != 25 || g.TotalCards() != total {
		t.Fatalf("扣底后状态不正确: %s hand=%d total=%d", g.State(), len(g.Hand(bettor)), g.TotalCards())
	}
	if !dealerRec.has("selected 8") {
		t.Fatalf("庄家没有收到扣底事件")
	}
	if g.NextPlayer() != bettor {
		t.Fatalf("庄家先出牌")
	}

	// 每人每次出一张，能跟花色就跟
	for trickNo := 0; g.State() == StatePlaying; trickNo++ {
		if trickNo > 25 {
			t.Fatalf("一局应在 25 轮内结束")
		}
		for k := 0; k < 4 && g.State() == StatePlaying; k++ {
			p := g.NextPlayer()
			hand := g.players[p].Hand
			card := hand[0]
			if k > 0 {
				suit := g.OpeningPlay()[0].Card.GameSuit
				for _, c := range hand {
					if c.GameSuit == suit {
						card = c
						break
					}
				}
			}
			if !g.PlayTrick(p, Trick{{Card: card, Amount: 1}}) {
				t.Fatalf("第 %d 轮座位 %d 出 %v 失败", trickNo, p, card)
			}
		}
	}

	if s := g.State(); s != StateRoundOver && s != StateGameOver {
		t.Fatalf("一局结束后应进入 ROUNDOVER，实际 %s", s)
	}
	sum := 0
	for i := 0; i < 4; i++ {
		sum += g.Player(i).Points
	}
	if want := 200 + g.BottomPoints(); sum != want {
		t.Fatalf("总得分应为 %d，实际 %d", want, sum)
	}
	res, ok := g.LastRoundResult()
	if !ok {
		t.Fatalf("应有结算结果")
	}
	step := 2
	if res.AttackersWon() {
		step = 1
	}
	if g.CurrentDealer() != mod(bettor+step, 4) || g.FirstRound() {
		t.Fatalf("换庄不正确: dealer=%d result=%+v", g.CurrentDealer(), res)
	}

	for i := 0; g.State() == StateRoundOver; i++ {
		if i > RoundOverTicks {
			t.Fatalf("结算倒计时没有结束")
		}
		g.Update()
	}
	if g.State() != StateInit || g.CurrentLevel() != g.Player(g.CurrentDealer()).Level {
		t.Fatalf("倒计时结束应回到 INIT 并按新庄家的级别打")
	}
	if g.TotalCards() != total {
		t.Fatalf("新一局应重新洗好 %d 张牌，实际 %d", total, g.TotalCards())
	}
}

func TestMaxBidEndsBettingImmediately(t *testing.T) {
	g := seatedGame(t, 4, 5)
	g.state = StateBetting
	g.deck = nil
	g.bottom = mustCards(t, "3C 4C 5C 6C 7C 8C 9C 10C")
	g.players[1].Hand = mustCards(t, "2S 2S 3D")

	if !g.Declare(1, SuitSpades, 2) {
		t.Fatalf("亮主失败")
	}
	g.Update()
	if g.State() != StateBottom {
		t.Fatalf("一次亮满应立即结束叫牌，实际 %s", g.State())
	}
	if g.TrumpSuit() != SuitSpades || g.CurrentDealer() != 1 {
		t.Fatalf("主应为黑桃、庄家应为 1: %s %d", g.TrumpSuit(), g.CurrentDealer())
	}
	for i := 0; i < 4; i++ {
		if want := i%2 == 1; g.Player(i).Defending != want {
			t.Fatalf("座位 %d 应与庄家同奇偶为守方", i)
		}
	}
	for _, c := range g.Hand(1) {
		if c.Rank == 2 && c.GameSuit != SuitTrump {
			t.Fatalf("定主后级牌应为主牌: %+v", c)
		}
	}
}

func TestGameOverStopsTicking(t *testing.T) {
	g := seatedGame(t, 4, 1)
	g.state = StateGameOver
	if d := g.Update(); d != StopTicking {
		t.Fatalf("GAMEOVER 后应停止驱动，实际 %v", d)
	}
}
