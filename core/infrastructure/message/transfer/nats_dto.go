package transfer

import "time"

// TableEvent 发布到 nats 的桌子事件，按 Type 使用部分字段
type TableEvent struct {
	Table string    `json:"table"`
	Type  string    `json:"type"`
	Time  time.Time `json:"time"`

	Seat  int      `json:"seat"`
	Name  string   `json:"name,omitempty"`
	Text  string   `json:"text,omitempty"`
	State string   `json:"state,omitempty"`
	Names []string `json:"names,omitempty"`

	RoundNumber     int  `json:"roundNumber,omitempty"`
	AttackingPoints int  `json:"attackingPoints,omitempty"`
	Delta           int  `json:"delta,omitempty"`
	AttackersWon    bool `json:"attackersWon,omitempty"`
}

// NewTableEvent 创建事件，Seat 默认为 -1
func NewTableEvent(table, typ string) *TableEvent {
	return &TableEvent{Table: table, Type: typ, Time: time.Now(), Seat: -1}
}
