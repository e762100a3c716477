package levelup

import (
	"bytes"
	"errors"
	"slices"
	"testing"

	"github.com/uakfdotb/p-levelup/common/log"
)

// midRoundGame 出牌进行到一半的牌局
func midRoundGame(t *testing.T) *Game {
	t.Helper()
	g := playingGame(t, SuitSpades, 5, "7H 7H 8H 8H 3C", "9H 9H 10H 10H 4C", "5S 5D ?+T", "KD KD AS 2C")
	g.bottom = g.normalize(mustCards(t, "10C 5H 3D"))
	g.bets = []Bet{{Player: 2, Suit: SuitClubs, Amount: 1}, {Player: 0, Suit: SuitSpades, Amount: 2}}
	g.betCounter = 20
	g.firstRound = false
	g.currentDealer = 0
	g.players[1].Level = 7
	g.players[2].Points = 45
	if !g.PlayTrick(0, mustTrick(t, g, "7H 7H 8H 8H")) {
		t.Fatalf("首家出牌失败")
	}
	return g
}

func TestSnapshotRoundTrip(t *testing.T) {
	g := midRoundGame(t)

	var buf bytes.Buffer
	if err := g.WriteSnapshot(&buf); err != nil {
		t.Fatalf("保存失败: %v", err)
	}
	data := slices.Clone(buf.Bytes())

	loaded, err := ReadSnapshot(bytes.NewReader(data), WithLogger(log.Discard()))
	if err != nil {
		t.Fatalf("读取失败: %v", err)
	}

	if loaded.State() != g.State() || loaded.NumPlayers() != 4 || loaded.NumDecks() != 2 {
		t.Fatalf("基本字段不一致: %s %d %d", loaded.State(), loaded.NumPlayers(), loaded.NumDecks())
	}
	if loaded.TrumpSuit() != SuitSpades || loaded.CurrentDealer() != 0 || loaded.FirstRound() {
		t.Fatalf("主花色或庄家不一致: %s %d", loaded.TrumpSuit(), loaded.CurrentDealer())
	}
	if loaded.NextPlayer() != 1 || loaded.StartingPlayer() != 0 || loaded.TrickCards() != 4 || loaded.BetCounter() != 20 {
		t.Fatalf("出牌进度不一致")
	}
	for i := 0; i < 4; i++ {
		a, b := g.Player(i), loaded.Player(i)
		if a.Name != b.Name || a.Level != b.Level || a.Points != b.Points || a.Defending != b.Defending {
			t.Fatalf("座位 %d 不一致: %+v vs %+v", i, a, b)
		}
		if !slices.Equal(cardIDs(a.Hand), cardIDs(b.Hand)) {
			t.Fatalf("座位 %d 手牌不一致", i)
		}
	}
	if !slices.Equal(cardIDs(g.Bottom()), cardIDs(loaded.Bottom())) {
		t.Fatalf("底牌不一致")
	}
	if !slices.Equal(g.Bets(), loaded.Bets()) {
		t.Fatalf("亮主记录不一致: %+v", loaded.Bets())
	}
	if len(loaded.Plays()) != 1 || !slices.Equal(loaded.Plays()[0].Amounts(), []int{2, 2}) {
		t.Fatalf("本轮出牌不一致: %+v", loaded.Plays())
	}
	if !slices.Equal(cardIDs(loaded.OpeningPlay().Cards()), cardIDs(g.OpeningPlay().Cards())) {
		t.Fatalf("首家出牌不一致")
	}
	if c := loaded.Hand(2)[0]; c.GameSuit != SuitTrump {
		t.Fatalf("读取后应按主重新推导牌: %+v", c)
	}

	// 再次保存，除时间戳外逐字节相同
	var again bytes.Buffer
	if err := loaded.WriteSnapshot(&again); err != nil {
		t.Fatalf("再次保存失败: %v", err)
	}
	ts := 2 + len(snapshotHeader)
	a, b := slices.Clone(data), slices.Clone(again.Bytes())
	clear(a[ts : ts+8])
	clear(b[ts : ts+8])
	if !bytes.Equal(a, b) {
		t.Fatalf("再次保存的内容不一致")
	}

	// 续打一手
	if !loaded.PlayTrick(1, mustTrick(t, loaded, "9H 9H 10H 10H")) {
		t.Fatalf("读取后应能继续出牌")
	}
}

func TestSnapshotErrors(t *testing.T) {
	g := midRoundGame(t)
	var buf bytes.Buffer
	if err := g.WriteSnapshot(&buf); err != nil {
		t.Fatalf("保存失败: %v", err)
	}
	data := buf.Bytes()

	if _, err := ReadSnapshot(bytes.NewReader(data[:len(data)-3]), WithLogger(log.Discard())); !errors.Is(err, ErrSnapshotTruncated) {
		t.Fatalf("截断的存档应返回 ErrSnapshotTruncated，实际 %v", err)
	}

	bad := slices.Clone(data)
	bad[len(bad)-1] ^= 0xff
	if _, err := ReadSnapshot(bytes.NewReader(bad), WithLogger(log.Discard())); err != nil {
		t.Fatalf("结尾校验不一致只应警告: %v", err)
	}

	// 头部之后依次是阶段、座位数、牌副数
	base := 2 + len(snapshotHeader) + 8 + 4
	corrupt := func(what string, mutate func(b []byte)) {
		t.Helper()
		b := slices.Clone(data)
		mutate(b)
		if _, err := ReadSnapshot(bytes.NewReader(b), WithLogger(log.Discard())); !errors.Is(err, ErrSnapshotCorrupt) {
			t.Fatalf("%s 应返回 ErrSnapshotCorrupt，实际 %v", what, err)
		}
	}
	corrupt("牌副数为 0", func(b []byte) { b[base+2] = 0 })
	corrupt("牌副数超过座位数", func(b []byte) { b[base+2] = 9 })
	// 第一个玩家记录：名字 "p0" 之后是级别
	level := base + 15 + 1 + 2 + len("p0")
	corrupt("级别低于起始级别", func(b []byte) { b[level] = StartLevel - 1 })
	corrupt("级别超过最高级别", func(b []byte) { b[level] = MaxLevel + 1 })

	crowded := midRoundGame(t)
	opening := crowded.OpeningPlay()
	for len(crowded.plays) <= crowded.NumPlayers() {
		crowded.plays = append(crowded.plays, opening)
	}
	var cb bytes.Buffer
	if err := crowded.WriteSnapshot(&cb); err != nil {
		t.Fatalf("保存失败: %v", err)
	}
	if _, err := ReadSnapshot(&cb, WithLogger(log.Discard())); !errors.Is(err, ErrSnapshotCorrupt) {
		t.Fatalf("出牌记录多于座位数应返回 ErrSnapshotCorrupt，实际 %v", err)
	}

	replica, _ := New(4, false)
	if err := replica.WriteSnapshot(&bytes.Buffer{}); !errors.Is(err, ErrNotController) {
		t.Fatalf("副本不能保存，实际 %v", err)
	}
}

func TestSnapshotWritesLeaverForEmptySeat(t *testing.T) {
	g := seatedGame(t, 4, 9)
	g.PlayerLeft(2)

	var buf bytes.Buffer
	if err := g.WriteSnapshot(&buf); err != nil {
		t.Fatalf("保存失败: %v", err)
	}
	if g.Player(2).Occupied() {
		t.Fatalf("保存不应修改内存中的座位")
	}
	loaded, err := ReadSnapshot(&buf, WithLogger(log.Discard()))
	if err != nil {
		t.Fatalf("读取失败: %v", err)
	}
	if loaded.Player(2).Name != leaverName || loaded.DeckSize() != 2*CardsPerDeck {
		t.Fatalf("空座位应以 %s 保存: %q deck=%d", leaverName, loaded.Player(2).Name, loaded.DeckSize())
	}
}

func TestSynchronizeKeepsLocalView(t *testing.T) {
	src := midRoundGame(t)

	replica, _ := New(4, false, WithLogger(log.Discard()))
	replica.PlayerJoined(0, "本地名")

	replica.Synchronize(src, 1)

	if replica.State() != StatePlaying || replica.NextPlayer() != 1 {
		t.Fatalf("同步后状态不一致")
	}
	if replica.Player(0).Name != "本地名" || replica.Player(1).Name != "p1" {
		t.Fatalf("应保留本地已知的名字: %v", replica.Names())
	}
	for i := 0; i < 4; i++ {
		if i == 1 {
			if !slices.Equal(cardIDs(replica.Hand(1)), cardIDs(src.Hand(1))) {
				t.Fatalf("自己的手牌应同步")
			}
			continue
		}
		if len(replica.Hand(i)) != 0 {
			t.Fatalf("副本不应保留座位 %d 的手牌", i)
		}
	}

	// 副本的修改不影响来源
	replica.players[1].Hand = nil
	if len(src.Hand(1)) == 0 {
		t.Fatalf("同步后不应共享手牌")
	}

	server := seatedGame(t, 4, 4)
	server.Synchronize(src, -1)
	if len(server.Hand(2)) != 3 || server.Player(2).Name != "p2" {
		t.Fatalf("权威实例同步应保留全部手牌")
	}
}
