package levelup

import "fmt"

// PlayerJoined 玩家入座，座位已被占用时返回 false
func (g *Game) PlayerJoined(pid int, name string) bool {
	if !g.validSeat(pid) || g.players[pid].Occupied() || name == "" {
		return false
	}
	g.players[pid].Name = name
	g.each(func(l Listener) { l.PlayerJoined(pid, name) })
	return true
}

// PlayerLeft 玩家离座，手牌和级别保留给下一个入座的人
func (g *Game) PlayerLeft(pid int) {
	if !g.validSeat(pid) {
		return
	}
	g.players[pid].Name = ""
	g.each(func(l Listener) { l.PlayerLeft(pid) })
}

// SwapPlayers 交换两个座位上的玩家名字，牌和级别留在座位上
func (g *Game) SwapPlayers(a, b int) bool {
	if !g.validSeat(a) || !g.validSeat(b) {
		return false
	}
	g.players[a].Name, g.players[b].Name = g.players[b].Name, g.players[a].Name

	g.each(func(l Listener) {
		l.PlayersSwapped(a, b)
		switch l.Player() {
		case a:
			l.PlayerRenumbered(b)
		case b:
			l.PlayerRenumbered(a)
		}
	})
	return true
}

// Resize 调整座位数，保留前面的座位，多出来的座位上的玩家被请离
func (g *Game) Resize(n int) error {
	if n < MinPlayers || n > MaxPlayers {
		return fmt.Errorf("%w: %d", ErrPlayerCount, n)
	}

	kept := make([]*Player, 0, n)
	for i := 0; i < len(g.players) && i < n; i++ {
		kept = append(kept, g.players[i])
	}
	for i := n; i < len(g.players); i++ {
		g.PlayerLeft(i)
	}
	for len(kept) < n {
		kept = append(kept, newPlayer())
	}

	g.players = kept
	g.numDecks = n / 2
	g.currentDealer = mod(g.currentDealer, n)
	g.startingPlayer = mod(g.startingPlayer, n)
	g.nextPlayer = mod(g.nextPlayer, n)
	g.storedStartingPlayer = mod(g.storedStartingPlayer, n)
	if g.state == StateInit {
		g.init()
	}

	g.each(func(l Listener) { l.Resized(n) })
	return nil
}

// Full 所有座位都有人
func (g *Game) Full() bool {
	for _, p := range g.players {
		if !p.Occupied() {
			return false
		}
	}
	return true
}

// FreeSeat 第一个空座位，没有时返回 -1
func (g *Game) FreeSeat() int {
	for i, p := range g.players {
		if !p.Occupied() {
			return i
		}
	}
	return -1
}

// Names 各座位的玩家名字，空字符串表示空座
func (g *Game) Names() []string {
	names := make([]string, len(g.players))
	for i, p := range g.players {
		names[i] = p.Name
	}
	return names
}

// SeatOf 按名字查找座位
func (g *Game) SeatOf(name string) int {
	for i, p := range g.players {
		if p.Occupied() && p.Name == name {
			return i
		}
	}
	return -1
}
