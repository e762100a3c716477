package share

// TableStatus 桌子状态，供状态接口展示
type TableStatus struct {
	ID           string       `json:"id"`
	Loaded       bool         `json:"loaded"`
	State        string       `json:"state"`
	NumPlayers   int          `json:"numPlayers"`
	NumDecks     int          `json:"numDecks"`
	Dealer       int          `json:"dealer"`
	TrumpSuit    string       `json:"trumpSuit"`
	TrumpRank    int          `json:"trumpRank"`
	NextPlayer   int          `json:"nextPlayer"`
	BetCounter   int          `json:"betCounter"`
	RoundCounter int          `json:"roundCounter"`
	Rounds       int          `json:"rounds"`
	Seats        []SeatStatus `json:"seats"`
}

// SeatStatus 座位状态，不包含手牌内容
type SeatStatus struct {
	Seat      int    `json:"seat"`
	Name      string `json:"name"`
	Level     int    `json:"level"`
	Points    int    `json:"points"`
	Defending bool   `json:"defending"`
	Cards     int    `json:"cards"`
	Admin     bool   `json:"admin"`
}
