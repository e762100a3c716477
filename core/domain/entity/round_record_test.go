package entity

import "testing"

func TestRoundRecordWinners(t *testing.T) {
	seats := []SeatRecord{
		{Seat: 0, Name: "a", Defending: true},
		{Seat: 1, Name: "b", Defending: false},
		{Seat: 2, Name: "c", Defending: true},
		{Seat: 3, Name: "d", Defending: false},
	}
	r := NewRoundRecord("t1", 1, seats)
	if r.ID.IsZero() || r.CreatedAt.IsZero() {
		t.Fatalf("新记录应生成 ID 和时间")
	}

	r.Delta = 1
	if w := r.Winners(); len(w) != 2 || w[0] != "a" || w[1] != "c" {
		t.Fatalf("攻方升级时赢家应为结算后守庄的一方，实际 %v", w)
	}
	if !r.AttackersWon() {
		t.Fatalf("delta 非负时攻方升级")
	}
	r.Delta = -2
	if r.AttackersWon() {
		t.Fatalf("delta 为负时攻方没有升级")
	}
	if w := r.Winners(); len(w) != 2 || w[0] != "a" {
		t.Fatalf("守方升级时赢家仍是守庄的一方，实际 %v", w)
	}
}
