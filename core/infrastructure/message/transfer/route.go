package transfer

import "fmt"

// TableSubjectPrefix 桌子事件的 nats 主题前缀，完整主题为 levelup.table.<tableID>
const TableSubjectPrefix = "levelup.table"

// 桌子事件类型
const (
	TableOpened    = "table.opened"
	TableLoaded    = "table.loaded"
	TableClosed    = "table.closed"
	PlayerJoin     = "player.join"
	PlayerLeave    = "player.leave"
	PlayerKicked   = "player.kicked"
	StateChange    = "state.change"
	RoundEnd       = "round.end"
	GameEnd        = "game.end"
	ChatMessage    = "chat.message"
	SnapshotSaved  = "snapshot.saved"
	SnapshotLoaded = "snapshot.loaded"
)

// TableSubject 桌子事件的主题
func TableSubject(tableID string) string {
	return fmt.Sprintf("%s.%s", TableSubjectPrefix, tableID)
}
