package game

import (
	"context"

	"github.com/uakfdotb/p-levelup/core/domain/entity"
	"github.com/uakfdotb/p-levelup/core/infrastructure/message/transfer"
	"github.com/uakfdotb/p-levelup/runtime/game/engines/levelup"
)

// recorder 旁观订阅者：发布桌子事件，结算后写局记录
type recorder struct {
	levelup.NopListener
	t *Table
}

func (r *recorder) PlayerJoined(pid int, name string) {
	ev := transfer.NewTableEvent(r.t.ID, transfer.PlayerJoin)
	ev.Seat, ev.Name = pid, name
	r.t.publish(ev)
}

func (r *recorder) PlayerLeft(pid int) {
	ev := transfer.NewTableEvent(r.t.ID, transfer.PlayerLeave)
	ev.Seat = pid
	r.t.publish(ev)
}

func (r *recorder) StateChanged(state levelup.State) {
	ev := transfer.NewTableEvent(r.t.ID, transfer.StateChange)
	ev.State = state.String()
	r.t.publish(ev)

	if state == levelup.StateRoundOver || state == levelup.StateGameOver {
		r.roundOver(state == levelup.StateGameOver)
	}
}

func (r *recorder) roundOver(gameOver bool) {
	g := r.t.game
	result, ok := g.LastRoundResult()
	if !ok {
		return
	}
	r.t.rounds++

	seats := make([]entity.SeatRecord, 0, g.NumPlayers())
	for i := 0; i < g.NumPlayers(); i++ {
		p := g.Player(i)
		seats = append(seats, entity.SeatRecord{
			Seat:      i,
			Name:      p.Name,
			Level:     p.Level,
			Points:    p.Points,
			Defending: p.Defending,
		})
	}
	record := entity.NewRoundRecord(r.t.ID, r.t.rounds, seats)
	record.NumDecks = g.NumDecks()
	record.TrumpSuit = g.TrumpSuit().String()
	record.TrumpRank = g.CurrentLevel()
	record.NextDealer = g.CurrentDealer()
	record.AttackingPoints = result.AttackingPoints
	record.Delta = result.Delta
	record.GameOver = gameOver

	r.t.log.Info("第 %d 局结束: 攻方 %d 分, 升级 %d, 升级方 %v",
		record.RoundNumber, record.AttackingPoints, record.Delta, record.Winners())

	typ := transfer.RoundEnd
	if gameOver {
		typ = transfer.GameEnd
	}
	ev := transfer.NewTableEvent(r.t.ID, typ)
	ev.RoundNumber = record.RoundNumber
	ev.AttackingPoints = record.AttackingPoints
	ev.Delta = record.Delta
	ev.AttackersWon = record.AttackersWon()
	ev.Names = record.Winners()
	r.t.publish(ev)

	if r.t.deps.Rounds == nil {
		return
	}
	repo, lg := r.t.deps.Rounds, r.t.log
	go func() {
		ctx, cancel := context.WithTimeout(context.Background(), storageTimeout)
		defer cancel()
		if err := repo.SaveRoundRecord(ctx, record); err != nil {
			lg.Error("保存局记录失败: table=%s round=%d err=%v", record.TableID, record.RoundNumber, err)
		}
	}()
}
