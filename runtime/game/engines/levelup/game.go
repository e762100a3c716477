package levelup

import (
	"errors"
	"fmt"
	"math/rand/v2"
	"slices"
	"time"

	"github.com/uakfdotb/p-levelup/common/log"
)

// State 牌局阶段
type State int

const (
	StateInit State = iota
	StateDealing
	StateBetting
	StateBottom
	StatePlaying
	StateRoundOver
	StateGameOver
)

var stateNames = [...]string{"INIT", "DEALING", "BETTING", "BOTTOM", "PLAYING", "ROUNDOVER", "GAMEOVER"}

func (s State) String() string {
	if s >= 0 && int(s) < len(stateNames) {
		return stateNames[s]
	}
	return fmt.Sprintf("State(%d)", int(s))
}

// Valid 是否为已知阶段
func (s State) Valid() bool {
	return s >= StateInit && s <= StateGameOver
}

const (
	// MinPlayers / MaxPlayers 座位数范围
	MinPlayers = 2
	MaxPlayers = 12

	// BetCountdown 最后一次亮主后等待的叫牌 tick 数
	BetCountdown = 20
	// RoundOverTicks 一局结束后回到 INIT 前的 tick 数
	RoundOverTicks = 30

	maxBottomCards = 10
)

// StopTicking Update 返回该值表示不需要再驱动
const StopTicking time.Duration = -1

const (
	waitDelay      = time.Second
	dealDelay      = 100 * time.Millisecond
	betDelay       = 500 * time.Millisecond
	bottomDelay    = time.Second
	playDelay      = 2 * time.Second
	roundOverDelay = 500 * time.Millisecond
)

var (
	ErrPlayerCount   = errors.New("座位数超出范围")
	ErrNotController = errors.New("只有权威实例可以保存牌局")
)

// Option 构造参数
type Option func(g *Game)

// WithLogger 指定日志
func WithLogger(l *log.Logger) Option {
	return func(g *Game) {
		if l != nil {
			g.log = l
		}
	}
}

// WithRand 指定洗牌用的随机源，测试中用固定种子
func WithRand(rng *rand.Rand) Option {
	return func(g *Game) {
		g.rng = rng
	}
}

// Game 一张牌桌的完整牌局状态
// 不是并发安全的：服务端由牌桌 actor 独占，客户端副本由自己的锁保护。
type Game struct {
	log        *log.Logger
	controller bool
	listeners  []Listener
	rng        *rand.Rand

	numDecks int
	state    State
	deck     []Card
	bottom   []Card
	players  []*Player

	currentLevel  int
	currentDealer int
	firstRound    bool

	lastDealt int

	bets       []Bet
	betCounter int

	trumpSuit Suit

	startingPlayer int
	trickCards     int
	nextPlayer     int

	openingPlay Trick
	plays       []Trick

	storedStartingPlayer int
	storedPlays          []Trick

	roundCounter int
	lastResult   *RoundResult
}

// New 创建牌局，controller 为 true 表示权威实例，负责全部规则校验
func New(numPlayers int, controller bool, opts ...Option) (*Game, error) {
	if numPlayers < MinPlayers || numPlayers > MaxPlayers {
		return nil, fmt.Errorf("%w: %d", ErrPlayerCount, numPlayers)
	}
	g := &Game{
		log:        log.Default().With("game"),
		controller: controller,
		numDecks:   numPlayers / 2,
		players:    make([]*Player, numPlayers),
		firstRound: true,
	}
	for _, opt := range opts {
		opt(g)
	}
	for i := range g.players {
		g.players[i] = newPlayer()
	}
	g.SetState(StateInit)
	return g, nil
}

// init 新一局：重新洗牌，清空底牌、亮主和出牌
func (g *Game) init() {
	if g.controller {
		g.deck = NewDeck(g.numDecks, g.rng)
	} else {
		g.deck = nil
	}
	g.bottom = nil
	g.bets = nil
	g.openingPlay = nil
	g.plays = nil
	g.storedPlays = nil
	g.trickCards = 0

	for _, p := range g.players {
		p.reset()
	}

	g.currentLevel = g.players[g.currentDealer].Level
	g.betCounter = 0
	g.roundCounter = 0
	g.trumpSuit = SuitNone
}

// SetState 切换阶段并执行进入动作，随后通知所有订阅者
func (g *Game) SetState(state State) {
	g.state = state

	switch state {
	case StateInit:
		g.init()
	case StateBottom:
		g.fixTrump()
	}

	g.log.Debug("进入阶段 %s", state)
	g.each(func(l Listener) { l.StateChanged(state) })
}

// fixTrump 按最高亮主定主，首局同时确定庄家和双方
func (g *Game) fixTrump() {
	winning, ok := g.topBet()
	if !ok {
		g.log.Warn("进入 BOTTOM 时没有任何亮主")
		return
	}

	g.trumpSuit = winning.Suit
	for _, p := range g.players {
		p.recalculate(g.trumpSuit, g.currentLevel)
	}
	g.bottom = g.normalize(g.bottom)

	if g.firstRound {
		g.currentDealer = winning.Player
		dealerEven := g.currentDealer%2 == 0
		for i, p := range g.players {
			p.Defending = (i%2 == 0) == dealerEven
		}
	}

	g.nextPlayer = g.currentDealer
	g.startingPlayer = g.currentDealer
	g.storedStartingPlayer = g.currentDealer
}

// Update 推进计时类的阶段，返回到下一次调用前最多等待的时间
// 只有权威实例需要调用。
func (g *Game) Update() time.Duration {
	if !g.controller {
		return StopTicking
	}

	switch g.state {
	case StateInit:
		if !g.Full() {
			return waitDelay
		}
		n := len(g.players)
		numBottom := len(g.deck) % n
		for numBottom+n < maxBottomCards {
			numBottom += n
		}
		if numBottom == 0 {
			numBottom = n
		}
		g.log.Debug("%d 名玩家 %d 张牌，底牌 %d 张", n, len(g.deck), numBottom)

		g.bottom = slices.Clone(g.deck[:numBottom])
		g.deck = g.deck[numBottom:]
		g.lastDealt = mod(g.currentDealer-1, n)
		g.SetState(StateDealing)
		return waitDelay

	case StateDealing:
		if len(g.deck) == 0 {
			g.SetState(StateBetting)
			return waitDelay
		}
		g.lastDealt = mod(g.lastDealt+1, len(g.players))
		card := g.deck[0].WithTrump(g.trumpSuit, g.currentLevel)
		g.deck = g.deck[1:]
		g.players[g.lastDealt].addCard(card, g.handOrder())
		g.eachSeat(g.lastDealt, func(l Listener) { l.CardDealt(card) })
		return dealDelay

	case StateBetting:
		if (len(g.bets) > 0 && g.betCounter >= BetCountdown) ||
			(len(g.bets) == 1 && g.bets[0].Amount == g.numDecks) {
			g.SetState(StateBottom)

			dealer := g.players[g.currentDealer]
			for _, c := range g.bottom {
				dealer.addCard(c, g.handOrder())
			}
			bottom := slices.Clone(g.bottom)
			g.eachSeat(g.currentDealer, func(l Listener) {
				for _, c := range bottom {
					l.CardDealt(c)
				}
				l.BottomRevealed(bottom)
			})
			return betDelay
		}
		g.betCounter++
		g.each(func(l Listener) { l.BetCounterUpdated(g.betCounter) })
		return betDelay

	case StateBottom:
		return bottomDelay

	case StatePlaying:
		return playDelay

	case StateRoundOver:
		g.roundCounter++
		if g.roundCounter >= RoundOverTicks {
			g.SetState(StateInit)
			return waitDelay
		}
		g.each(func(l Listener) { l.RoundCounterUpdated(g.roundCounter) })
		return roundOverDelay

	case StateGameOver:
		return StopTicking

	default:
		g.log.Error("未知阶段: %d", int(g.state))
		return StopTicking
	}
}

// handOrder 当前主下的手牌排序
func (g *Game) handOrder() func(a, b Card) int {
	return HandComparator(g.trumpSuit, g.currentLevel)
}

// Card 按当前主构造一张牌，网络上收到的牌都应经过它
func (g *Game) Card(suit Suit, rank int) Card {
	return NewCard(suit, rank).WithTrump(g.trumpSuit, g.currentLevel)
}

func (g *Game) normalize(cards []Card) []Card {
	if cards == nil {
		return nil
	}
	out := make([]Card, len(cards))
	for i, c := range cards {
		out[i] = c.WithTrump(g.trumpSuit, g.currentLevel)
	}
	return out
}

func (g *Game) validSeat(pid int) bool {
	return pid >= 0 && pid < len(g.players)
}

// mod 非负取模
func mod(a, n int) int {
	return ((a % n) + n) % n
}

// Controller 是否为权威实例
func (g *Game) Controller() bool { return g.controller }

// State 当前阶段
func (g *Game) State() State { return g.state }

// NumPlayers 座位数
func (g *Game) NumPlayers() int { return len(g.players) }

// NumDecks 使用几副牌
func (g *Game) NumDecks() int { return g.numDecks }

// Player 座位 i 的玩家副本，越界返回 nil
func (g *Game) Player(i int) *Player {
	if !g.validSeat(i) {
		return nil
	}
	return g.players[i].clone()
}

// Hand 座位 i 的手牌副本
func (g *Game) Hand(i int) []Card {
	if !g.validSeat(i) {
		return nil
	}
	return slices.Clone(g.players[i].Hand)
}

func (g *Game) CurrentLevel() int         { return g.currentLevel }
func (g *Game) CurrentDealer() int        { return g.currentDealer }
func (g *Game) FirstRound() bool          { return g.firstRound }
func (g *Game) TrumpSuit() Suit           { return g.trumpSuit }
func (g *Game) NextPlayer() int           { return g.nextPlayer }
func (g *Game) StartingPlayer() int       { return g.startingPlayer }
func (g *Game) StoredStartingPlayer() int { return g.storedStartingPlayer }
func (g *Game) TrickCards() int           { return g.trickCards }
func (g *Game) BetCounter() int           { return g.betCounter }
func (g *Game) RoundCounter() int         { return g.roundCounter }
func (g *Game) DeckSize() int             { return len(g.deck) }

// Bottom 底牌副本
func (g *Game) Bottom() []Card { return slices.Clone(g.bottom) }

// OpeningPlay 本轮首家出的牌
func (g *Game) OpeningPlay() Trick { return g.openingPlay.Clone() }

// Plays 本轮已出的牌，按出牌顺序
func (g *Game) Plays() []Trick { return cloneTricks(g.plays) }

// StoredPlays 最近一轮的出牌，下一轮首家出牌前一直保留
func (g *Game) StoredPlays() []Trick { return cloneTricks(g.storedPlays) }

// TotalCards 牌堆、手牌和底牌的总张数
func (g *Game) TotalCards() int {
	n := len(g.deck) + len(g.bottom)
	for _, p := range g.players {
		n += len(p.Hand)
	}
	return n
}
