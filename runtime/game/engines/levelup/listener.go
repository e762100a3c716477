package levelup

// Listener 游戏事件订阅者
// Player 返回订阅者所在的座位，-1 表示旁观或尚未入座；
// 只发给单个座位的事件（发牌、底牌、换座编号）按它筛选。
// 事件在执行变更的同一个 goroutine 上按注册顺序同步回调。
type Listener interface {
	Player() int

	PlayerJoined(pid int, name string)
	PlayerLeft(pid int)
	StateChanged(state State)

	Declared(pid int, suit Suit, amount int)
	DeclarationWithdrawn(pid int)
	DeclarationDefended(pid int, amount int)
	CardsPlayed(pid int, trick Trick)

	CardDealt(card Card)
	BetCounterUpdated(counter int)

	BottomRevealed(cards []Card)
	BottomSelected(cards []Card)
	RoundCounterUpdated(counter int)

	PlayersSwapped(a, b int)
	PlayerRenumbered(pid int)
	Resized(numPlayers int)
}

// NopListener 全部空实现，嵌入后只需覆盖关心的事件
type NopListener struct{}

func (NopListener) Player() int                             { return -1 }
func (NopListener) PlayerJoined(pid int, name string)       {}
func (NopListener) PlayerLeft(pid int)                      {}
func (NopListener) StateChanged(state State)                {}
func (NopListener) Declared(pid int, suit Suit, amount int) {}
func (NopListener) DeclarationWithdrawn(pid int)            {}
func (NopListener) DeclarationDefended(pid int, amount int) {}
func (NopListener) CardsPlayed(pid int, trick Trick)        {}
func (NopListener) CardDealt(card Card)                     {}
func (NopListener) BetCounterUpdated(counter int)           {}
func (NopListener) BottomRevealed(cards []Card)             {}
func (NopListener) BottomSelected(cards []Card)             {}
func (NopListener) RoundCounterUpdated(counter int)         {}
func (NopListener) PlayersSwapped(a, b int)                 {}
func (NopListener) PlayerRenumbered(pid int)                {}
func (NopListener) Resized(numPlayers int)                  {}

// AddListener 注册订阅者
func (g *Game) AddListener(l Listener) {
	g.listeners = append(g.listeners, l)
}

// RemoveListener 注销订阅者
func (g *Game) RemoveListener(l Listener) {
	for i, x := range g.listeners {
		if x == l {
			g.listeners = append(g.listeners[:i:i], g.listeners[i+1:]...)
			return
		}
	}
}

// each 按注册顺序回调；回调期间注销不影响本轮遍历
func (g *Game) each(fn func(l Listener)) {
	if len(g.listeners) == 0 {
		return
	}
	snapshot := make([]Listener, len(g.listeners))
	copy(snapshot, g.listeners)
	for _, l := range snapshot {
		fn(l)
	}
}

// eachSeat 只回调座位为 pid 的订阅者
func (g *Game) eachSeat(pid int, fn func(l Listener)) {
	g.each(func(l Listener) {
		if l.Player() == pid {
			fn(l)
		}
	})
}
