package levelup

// RoundResult 一局的结算结果
type RoundResult struct {
	AttackingPoints int
	// Delta 非负时攻方升 Delta 级并交换攻守，负数时守方升 -Delta 级
	Delta int
}

// AttackersWon 攻方是否上台
func (r RoundResult) AttackersWon() bool {
	return r.Delta >= 0
}

// LevelDelta 攻方得分换算成升级数，0 分视为守方大光
func LevelDelta(attackingPoints, numDecks int) int {
	if attackingPoints == 0 {
		return -3
	}
	return attackingPoints/(numDecks*20) - 2
}

// roundOver 结算：升级、换庄，权威实例随后切到 ROUNDOVER 或 GAMEOVER
func (g *Game) roundOver() {
	attacking := 0
	for _, p := range g.players {
		if !p.Defending {
			attacking += p.Points
		}
	}

	delta := LevelDelta(attacking, g.numDecks)
	g.log.Debug("本局结算 %d（攻方得分 %d）", delta, attacking)

	if delta >= 0 {
		for _, p := range g.players {
			if !p.Defending {
				p.levelUp(delta)
			}
			p.Defending = !p.Defending
		}
		g.currentDealer = mod(g.currentDealer+1, len(g.players))
	} else {
		for _, p := range g.players {
			if p.Defending {
				p.levelUp(-delta)
			}
		}
		g.currentDealer = mod(g.currentDealer+2, len(g.players))
	}

	g.lastResult = &RoundResult{AttackingPoints: attacking, Delta: delta}

	// 副本的阶段由服务端的 STATECHANGE 驱动
	if g.controller {
		if g.GameOver() {
			g.SetState(StateGameOver)
		} else {
			g.SetState(StateRoundOver)
		}
	}

	g.firstRound = false
	g.roundCounter = 0
}

// GameOver 任一玩家到达最高级别
func (g *Game) GameOver() bool {
	for _, p := range g.players {
		if p.Level >= MaxLevel {
			return true
		}
	}
	return false
}

// LastRoundResult 最近一局的结算，尚未结算过时返回 false
func (g *Game) LastRoundResult() (RoundResult, bool) {
	if g.lastResult == nil {
		return RoundResult{}, false
	}
	return *g.lastResult, true
}
