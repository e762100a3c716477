package app

import (
	"io"
	"strconv"
	"strings"
	"sync"
	"sync/atomic"

	"github.com/pterm/pterm"

	"github.com/uakfdotb/p-levelup/runtime/game/engines/levelup"
)

// Replica 终端读副本牌局用
type Replica interface {
	With(fn func(g *levelup.Game, pid int))
}

// TerminalView 把副本上的事件打印到终端
// 牌局事件回调在副本持锁期间执行，只记录，需要读牌局的输出放到 GameUpdated 里做。
type TerminalView struct {
	levelup.NopListener

	out     io.Writer
	replica Replica

	pid    atomic.Int64
	joined atomic.Bool

	mu        sync.Mutex
	names     map[int]string
	roundOver bool
	lastTurn  int
	lastState levelup.State
}

func NewTerminalView(out io.Writer) *TerminalView {
	t := &TerminalView{
		out:      out,
		names:    make(map[int]string),
		lastTurn: -1,
	}
	t.pid.Store(-1)
	return t
}

// Attach 绑定副本，在收到第一帧之前调用
func (t *TerminalView) Attach(r Replica) {
	t.replica = r
}

// HasJoined 是否已入座
func (t *TerminalView) HasJoined() bool {
	return t.joined.Load()
}

func (t *TerminalView) println(s string) {
	t.mu.Lock()
	defer t.mu.Unlock()
	pterm.Fprintln(t.out, pterm.Gray("[View] ")+s)
}

func (t *TerminalView) name(pid int) string {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.names[pid]
}

func (t *TerminalView) player(pid int) string {
	return pterm.Sprintf("Player %d [%s]", pid, pterm.LightCyan(t.name(pid)))
}

func (t *TerminalView) hand(g *levelup.Game, pid int) string {
	return pterm.BgGreen.Sprint(" " + cardsString(g.Hand(pid)) + " ")
}

func cardsString(cards []levelup.Card) string {
	parts := make([]string, len(cards))
	for i, c := range cards {
		parts[i] = c.String()
	}
	return strings.Join(parts, " ")
}

// 副本 View 回调

func (t *TerminalView) Joined(pid int) {
	if pid < 0 {
		t.println(pterm.LightRed("The server rejected your connection."))
		return
	}
	t.pid.Store(int64(pid))
	t.joined.Store(true)
	t.println(pterm.LightGreen("You have joined the game in position " + strconv.Itoa(pid) + "."))
}

func (t *TerminalView) GameLoaded() {
	t.println(pterm.LightGreen("The game has begun."))
}

// GameUpdated 每处理完一帧回调一次，出牌阶段轮次变化时提示
func (t *TerminalView) GameUpdated() {
	if t.replica == nil {
		return
	}
	t.replica.With(func(g *levelup.Game, pid int) {
		t.mu.Lock()
		for i, name := range g.Names() {
			t.names[i] = name
		}
		roundOver := t.roundOver
		t.roundOver = false
		turnChanged := g.State() == levelup.StatePlaying &&
			(g.NextPlayer() != t.lastTurn || t.lastState != levelup.StatePlaying)
		t.lastState = g.State()
		t.lastTurn = g.NextPlayer()
		t.mu.Unlock()

		if roundOver {
			t.println(pterm.LightYellow("The round is over!"))
			if g.NumPlayers() >= 2 {
				t.println("First team is on " + strconv.Itoa(g.Player(0).Level))
				t.println("Second team is on " + strconv.Itoa(g.Player(1).Level))
			}
			if g.State() == levelup.StateGameOver {
				t.println(pterm.LightYellow("The game has ended!"))
			}
		}
		if !turnChanged {
			return
		}
		if g.NextPlayer() == pid {
			t.println(pterm.LightMagenta("It is now your turn."))
			t.println("Your cards: " + t.hand(g, pid))
		} else {
			t.println("It is " + t.player(g.NextPlayer()) + "'s turn.")
		}
	})
}

func (t *TerminalView) PlayError(reason string) {
	t.println(pterm.LightRed("Server says you made an invalid play: " + reason))
}

func (t *TerminalView) Chat(name, text string) {
	t.println(pterm.Sprintf("%s: %s", pterm.LightCyan(name), text))
}

func (t *TerminalView) DealtCard(card levelup.Card) {
	t.println("You were dealt: " + card.String())
	if t.replica != nil {
		t.replica.With(func(g *levelup.Game, pid int) {
			t.println("Your cards: " + t.hand(g, pid))
		})
	}
}

func (t *TerminalView) BetCounter(n int) {
	t.println("Betting ends in " + strconv.Itoa(n))
}

func (t *TerminalView) RoundCounter(n int) {
	t.println("Next round starts in " + strconv.Itoa(n))
}

func (t *TerminalView) Terminated(reason string) {
	t.joined.Store(false)
	t.println(pterm.LightRed("Disconnected: " + reason))
}

// levelup.Listener 回调，持锁执行

func (t *TerminalView) Player() int {
	return int(t.pid.Load())
}

func (t *TerminalView) PlayerJoined(pid int, name string) {
	t.mu.Lock()
	t.names[pid] = name
	t.mu.Unlock()
	t.println(pterm.Sprintf("Player [%s] has joined the game in position %d", pterm.LightCyan(name), pid))
}

func (t *TerminalView) PlayerLeft(pid int) {
	t.println(t.player(pid) + " has left the game")
	t.mu.Lock()
	delete(t.names, pid)
	t.mu.Unlock()
}

func (t *TerminalView) StateChanged(state levelup.State) {
	t.println("Game state updated to: " + state.String())
	if state == levelup.StateRoundOver || state == levelup.StateGameOver {
		t.mu.Lock()
		t.roundOver = true
		t.mu.Unlock()
	}
}

func (t *TerminalView) Declared(pid int, suit levelup.Suit, amount int) {
	t.println(pterm.Sprintf("%s has declared with %d of %s", t.player(pid), amount, suit))
}

func (t *TerminalView) DeclarationWithdrawn(pid int) {
	t.println(t.player(pid) + " has withdrawn")
}

func (t *TerminalView) DeclarationDefended(pid int, amount int) {
	t.println(pterm.Sprintf("%s has defended with %d", t.player(pid), amount))
}

func (t *TerminalView) CardsPlayed(pid int, trick levelup.Trick) {
	parts := make([]string, 0, len(trick))
	for _, tuple := range trick {
		parts = append(parts, pterm.Sprintf("%d of %s", tuple.Amount, tuple.Card))
	}
	t.println(t.player(pid) + " has played a trick: " + strings.Join(parts, ", "))
}

func (t *TerminalView) BottomRevealed(cards []levelup.Card) {
	t.println("The bottom is: " + pterm.BgYellow.Sprint(" "+cardsString(cards)+" "))
}

func (t *TerminalView) BottomSelected([]levelup.Card) {
	t.println(pterm.LightGreen("You have successfully selected the bottom"))
}

func (t *TerminalView) PlayersSwapped(a, b int) {
	t.mu.Lock()
	t.names[a], t.names[b] = t.names[b], t.names[a]
	t.mu.Unlock()
	t.println(pterm.Sprintf("Positions %d and %d were swapped", a, b))
}

func (t *TerminalView) PlayerRenumbered(pid int) {
	t.pid.Store(int64(pid))
	t.println("You are now in position " + strconv.Itoa(pid))
}

func (t *TerminalView) Resized(n int) {
	t.println("The table now has " + strconv.Itoa(n) + " seats")
}
