package entity

import (
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

// RoundRecord 局记录（每局一个文档）
// 在结算后写入，座位上的级别和攻守已是结算后的值
type RoundRecord struct {
	ID              primitive.ObjectID `bson:"_id"`
	TableID         string             `bson:"table_id"`
	RoundNumber     int                `bson:"round_number"` // 本桌第几局，从 1 开始
	NumDecks        int                `bson:"num_decks"`
	TrumpSuit       string             `bson:"trump_suit"`
	TrumpRank       int                `bson:"trump_rank"`  // 本局打的级
	NextDealer      int                `bson:"next_dealer"` // 结算后的庄家座位
	AttackingPoints int                `bson:"attacking_points"`
	Delta           int                `bson:"delta"` // >= 0 攻方升级，< 0 守方升级
	GameOver        bool               `bson:"game_over"`
	Seats           []SeatRecord       `bson:"seats"`
	CreatedAt       time.Time          `bson:"created_at"`
}

// SeatRecord 座位在本局结束时的情况
type SeatRecord struct {
	Seat      int    `bson:"seat"`
	Name      string `bson:"name"`
	Level     int    `bson:"level"`
	Points    int    `bson:"points"`
	Defending bool   `bson:"defending"`
}

// NewRoundRecord 创建局记录
func NewRoundRecord(tableID string, roundNumber int, seats []SeatRecord) *RoundRecord {
	return &RoundRecord{
		ID:          primitive.NewObjectID(),
		TableID:     tableID,
		RoundNumber: roundNumber,
		Seats:       seats,
		CreatedAt:   time.Now(),
	}
}

// AttackersWon 攻方是否升级
func (r *RoundRecord) AttackersWon() bool {
	return r.Delta >= 0
}

// Winners 升级一方的座位名字
// 攻方升级时结算后已交换攻守，所以升级的一方总是下一局的守方
func (r *RoundRecord) Winners() []string {
	var names []string
	for _, s := range r.Seats {
		if s.Defending {
			names = append(names, s.Name)
		}
	}
	return names
}
