package levelup

import (
	"bufio"
	"encoding/binary"
	"errors"
	"fmt"
	"io"
	"math"
	"slices"
	"time"
)

const (
	snapshotHeader  = "p-levelup saved game"
	SnapshotVersion = 0
	// leaverName 空座位在存档里的名字
	leaverName = "Leaver"
)

var snapshotTrailer = [8]byte{180, 116, 174, 163, 181, 243, 249, 246}

var (
	ErrSnapshotTruncated = errors.New("存档在读取完成前结束")
	ErrSnapshotCorrupt   = errors.New("存档内容无效")
)

// WriteSnapshot 把完整牌局写成二进制存档，只有权威实例可以保存
// 空座位以 "Leaver" 写入，不修改内存中的状态。
func (g *Game) WriteSnapshot(w io.Writer) error {
	if !g.controller {
		return ErrNotController
	}

	bw := bufio.NewWriter(w)
	sw := &snapWriter{w: bw}

	sw.utf(snapshotHeader)
	sw.i64(time.Now().UnixMilli())
	sw.i32(SnapshotVersion)

	sw.u8(int(g.state))
	sw.u8(len(g.players))
	sw.u8(g.numDecks)
	sw.u8(g.currentDealer)
	sw.bool(g.firstRound)
	sw.u8(g.lastDealt)
	sw.u16(g.betCounter)
	sw.u8(int(int8(g.trumpSuit)))
	sw.u8(g.startingPlayer)
	sw.u8(g.trickCards)
	sw.u8(g.nextPlayer)
	sw.u8(g.storedStartingPlayer)
	sw.u16(g.roundCounter)

	sw.u8(len(g.players))
	for _, p := range g.players {
		name := p.Name
		if name == "" {
			name = leaverName
		}
		sw.utf(name)
		sw.u8(p.Level)
		sw.u16(p.Points)
		sw.bool(p.Defending)
		sw.cards(p.Hand)
	}

	sw.cards(g.deck)
	sw.cards(g.bottom)

	sw.u8(len(g.bets))
	for _, bet := range g.bets {
		sw.u8(bet.Player)
		sw.u8(int(bet.Suit))
		sw.u8(bet.Amount)
	}

	sw.trick(g.openingPlay)
	sw.u8(len(g.plays))
	for _, t := range g.plays {
		sw.trick(t)
	}
	sw.u8(len(g.storedPlays))
	for _, t := range g.storedPlays {
		sw.trick(t)
	}

	sw.i64(0)
	sw.raw(snapshotTrailer[:])

	if sw.err != nil {
		return sw.err
	}
	return bw.Flush()
}

// ReadSnapshot 读取存档，得到一个权威实例
// 头部、版本、保留字段和结尾校验不一致时只记录警告。
func ReadSnapshot(r io.Reader, opts ...Option) (*Game, error) {
	sr := &snapReader{r: bufio.NewReader(r)}

	header := sr.utf()
	_ = sr.i64()
	version := sr.i32()

	state := State(sr.u8())
	_ = sr.u8() // 座位数以玩家记录为准
	numDecks := sr.u8()
	dealer := sr.u8()
	firstRound := sr.bool()
	lastDealt := sr.u8()
	betCounter := sr.u16()
	trumpSuit := Suit(int8(sr.u8()))
	starting := sr.u8()
	trickCards := sr.u8()
	next := sr.u8()
	storedStarting := sr.u8()
	roundCounter := sr.u16()

	numPlayers := sr.u8()
	if sr.err != nil {
		return nil, sr.err
	}

	g, err := New(numPlayers, true, opts...)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrSnapshotCorrupt, err)
	}
	if header != snapshotHeader {
		g.log.Warn("读取存档: 头部不一致 (%s)", header)
	}
	if version != SnapshotVersion {
		g.log.Warn("读取存档: 版本不同 (%d)", version)
	}

	for i := range g.players {
		p := newPlayer()
		p.Name = sr.utf()
		p.Level = sr.u8()
		p.Points = sr.u16()
		p.Defending = sr.bool()
		p.Hand = sr.cards()
		g.players[i] = p
	}

	g.deck = sr.cards()
	g.bottom = sr.cards()

	numBets := sr.u8()
	g.bets = make([]Bet, 0, numBets)
	for i := 0; i < numBets; i++ {
		g.bets = append(g.bets, Bet{Player: sr.u8(), Suit: Suit(sr.u8()), Amount: sr.u8()})
	}

	g.openingPlay = sr.trick()
	g.plays = sr.tricks()
	g.storedPlays = sr.tricks()

	if zero := sr.i64(); sr.err == nil && zero != 0 {
		g.log.Warn("读取存档: 保留字段不为零: %d", zero)
	}
	var trailer [8]byte
	sr.read(trailer[:])
	if sr.err != nil {
		return nil, sr.err
	}
	for i := range trailer {
		if trailer[i] != snapshotTrailer[i] {
			g.log.Warn("读取存档: 结尾第 %d 字节不一致: %d", i, trailer[i])
		}
	}

	n := len(g.players)
	if !state.Valid() || dealer >= n || lastDealt >= n || starting >= n || next >= n || storedStarting >= n {
		return nil, fmt.Errorf("%w: 阶段或座位越界", ErrSnapshotCorrupt)
	}
	if trumpSuit != SuitNone && !trumpSuit.Plain() {
		return nil, fmt.Errorf("%w: 主花色 %d", ErrSnapshotCorrupt, int(trumpSuit))
	}
	if numDecks < 1 || numDecks > n {
		return nil, fmt.Errorf("%w: 牌副数 %d", ErrSnapshotCorrupt, numDecks)
	}
	for i, p := range g.players {
		if p.Level < StartLevel || p.Level > MaxLevel {
			return nil, fmt.Errorf("%w: 玩家 %d 级别 %d", ErrSnapshotCorrupt, i, p.Level)
		}
	}
	for _, bet := range g.bets {
		if bet.Player >= n || !bet.Suit.Plain() || bet.Amount < 1 {
			return nil, fmt.Errorf("%w: 亮主记录", ErrSnapshotCorrupt)
		}
	}
	if len(g.plays) > n || len(g.storedPlays) > n {
		return nil, fmt.Errorf("%w: 出牌记录过多", ErrSnapshotCorrupt)
	}

	g.state = state
	g.numDecks = numDecks
	g.currentDealer = dealer
	g.firstRound = firstRound
	g.lastDealt = lastDealt
	g.betCounter = betCounter
	g.trumpSuit = trumpSuit
	g.startingPlayer = starting
	g.trickCards = trickCards
	g.nextPlayer = next
	g.storedStartingPlayer = storedStarting
	g.roundCounter = roundCounter
	g.currentLevel = g.players[dealer].Level
	g.recalculateAll()
	return g, nil
}

// recalculateAll 按当前主重新推导所有牌的 GameSuit/GameValue
func (g *Game) recalculateAll() {
	for _, p := range g.players {
		p.Hand = g.normalize(p.Hand)
	}
	g.deck = g.normalize(g.deck)
	g.bottom = g.normalize(g.bottom)
	renorm := func(t Trick) Trick {
		if t == nil {
			return nil
		}
		return t.withTrump(g.trumpSuit, g.currentLevel)
	}
	g.openingPlay = renorm(g.openingPlay)
	for i := range g.plays {
		g.plays[i] = renorm(g.plays[i])
	}
	for i := range g.storedPlays {
		g.storedPlays[i] = renorm(g.storedPlays[i])
	}
}

// Synchronize 用 src 的状态覆盖本实例
// 本地已知的名字优先保留；副本只保留 pid 自己的手牌。
func (g *Game) Synchronize(src *Game, pid int) {
	g.state = src.state
	g.numDecks = src.numDecks
	g.currentDealer = src.currentDealer
	g.firstRound = src.firstRound
	g.lastDealt = src.lastDealt
	g.betCounter = src.betCounter
	g.trumpSuit = src.trumpSuit
	g.startingPlayer = src.startingPlayer
	g.trickCards = src.trickCards
	g.nextPlayer = src.nextPlayer
	g.storedStartingPlayer = src.storedStartingPlayer
	g.roundCounter = src.roundCounter
	g.currentLevel = src.currentLevel

	players := make([]*Player, len(src.players))
	for i, p := range src.players {
		players[i] = p.clone()
		if i < len(g.players) && g.players[i].Occupied() {
			players[i].Name = g.players[i].Name
		}
		if !g.controller && pid != -1 && i != pid {
			players[i].Hand = nil
		}
	}
	g.players = players

	g.deck = slices.Clone(src.deck)
	g.bottom = slices.Clone(src.bottom)
	g.bets = slices.Clone(src.bets)
	g.openingPlay = src.openingPlay.Clone()
	g.plays = cloneTricks(src.plays)
	g.storedPlays = cloneTricks(src.storedPlays)
	if src.lastResult != nil {
		r := *src.lastResult
		g.lastResult = &r
	}
}

type snapWriter struct {
	w   io.Writer
	err error
	buf [8]byte
}

func (s *snapWriter) raw(b []byte) {
	if s.err != nil {
		return
	}
	_, s.err = s.w.Write(b)
}

func (s *snapWriter) u8(v int) {
	s.buf[0] = byte(v)
	s.raw(s.buf[:1])
}

func (s *snapWriter) bool(v bool) {
	if v {
		s.u8(1)
	} else {
		s.u8(0)
	}
}

func (s *snapWriter) u16(v int) {
	binary.BigEndian.PutUint16(s.buf[:2], uint16(v))
	s.raw(s.buf[:2])
}

func (s *snapWriter) i32(v int) {
	binary.BigEndian.PutUint32(s.buf[:4], uint32(int32(v)))
	s.raw(s.buf[:4])
}

func (s *snapWriter) i64(v int64) {
	binary.BigEndian.PutUint64(s.buf[:8], uint64(v))
	s.raw(s.buf[:8])
}

func (s *snapWriter) utf(v string) {
	if len(v) > math.MaxUint16 {
		v = v[:math.MaxUint16]
	}
	s.u16(len(v))
	s.raw([]byte(v))
}

func (s *snapWriter) cards(cards []Card) {
	s.u16(len(cards))
	for _, c := range cards {
		s.u8(c.ID())
	}
}

func (s *snapWriter) trick(t Trick) {
	s.u8(len(t))
	for _, tuple := range t {
		s.u8(tuple.Card.ID())
		s.u8(tuple.Amount)
	}
}

// snapReader 第一个错误之后的读取都返回零值
type snapReader struct {
	r   io.Reader
	err error
	buf [8]byte
}

func (s *snapReader) read(b []byte) {
	if s.err != nil {
		clear(b)
		return
	}
	if _, err := io.ReadFull(s.r, b); err != nil {
		if errors.Is(err, io.EOF) || errors.Is(err, io.ErrUnexpectedEOF) {
			err = ErrSnapshotTruncated
		}
		s.err = err
		clear(b)
	}
}

func (s *snapReader) u8() int {
	s.read(s.buf[:1])
	return int(s.buf[0])
}

func (s *snapReader) bool() bool {
	return s.u8() != 0
}

func (s *snapReader) u16() int {
	s.read(s.buf[:2])
	return int(binary.BigEndian.Uint16(s.buf[:2]))
}

func (s *snapReader) i32() int {
	s.read(s.buf[:4])
	return int(int32(binary.BigEndian.Uint32(s.buf[:4])))
}

func (s *snapReader) i64() int64 {
	s.read(s.buf[:8])
	return int64(binary.BigEndian.Uint64(s.buf[:8]))
}

func (s *snapReader) utf() string {
	n := s.u16()
	if s.err != nil || n == 0 {
		return ""
	}
	b := make([]byte, n)
	s.read(b)
	return string(b)
}

func (s *snapReader) card() Card {
	id := s.u8()
	if s.err != nil {
		return Card{}
	}
	c, err := CardFromID(id)
	if err != nil {
		s.err = fmt.Errorf("%w: %w", ErrSnapshotCorrupt, err)
	}
	return c
}

func (s *snapReader) cards() []Card {
	n := s.u16()
	cards := make([]Card, 0, n)
	for i := 0; i < n && s.err == nil; i++ {
		cards = append(cards, s.card())
	}
	return cards
}

func (s *snapReader) trick() Trick {
	n := s.u8()
	if n == 0 {
		return nil
	}
	t := make(Trick, 0, n)
	for i := 0; i < n && s.err == nil; i++ {
		c := s.card()
		t = append(t, Tuple{Card: c, Amount: s.u8()})
	}
	return t
}

func (s *snapReader) tricks() []Trick {
	n := s.u8()
	if n == 0 {
		return nil
	}
	out := make([]Trick, 0, n)
	for i := 0; i < n && s.err == nil; i++ {
		out = append(out, s.trick())
	}
	return out
}
