package game

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/uakfdotb/p-levelup/common/config"
	"github.com/uakfdotb/p-levelup/core/domain/repository"
	"github.com/uakfdotb/p-levelup/core/domain/value_object"
	"github.com/uakfdotb/p-levelup/core/infrastructure/message/protocol"
	"github.com/uakfdotb/p-levelup/core/infrastructure/message/transfer"
	"github.com/uakfdotb/p-levelup/runtime/game/engines/levelup"
)

// ServerName 服务端消息的发送者
const ServerName = "Server"

const storageTimeout = 5 * time.Second

// handleChat 聊天，以触发符开头的按命令处理
// 除了 password 命令，聊天内容总会广播给所有人。
func (t *Table) handleChat(s *seat, text string) {
	hide := false
	trigger := t.deps.Store.String("trigger", config.DefaultTrigger)
	if trigger != "" && strings.HasPrefix(text, trigger) {
		hide = t.handleChatCommand(s, text[len(trigger):])
	}
	if hide {
		return
	}

	t.log.Info("[%s]: %s", s.name, text)
	t.broadcast(protocol.Chat(s.name, text))
	ev := transfer.NewTableEvent(t.ID, transfer.ChatMessage)
	ev.Seat, ev.Name, ev.Text = s.pid, s.name, text
	t.publish(ev)
}

// handleChatCommand 返回 true 表示这条聊天不广播
func (t *Table) handleChatCommand(s *seat, line string) bool {
	parts := strings.SplitN(line, " ", 2)
	cmd := strings.ToLower(parts[0])
	arg := ""
	if len(parts) == 2 {
		arg = parts[1]
	}

	if !s.admin {
		if cmd != "password" {
			return false
		}
		t.login(s, arg)
		return true
	}

	if arg == "" {
		return false
	}
	switch cmd {
	case "savegame":
		t.saveGame(s, arg)
	case "loadgame":
		t.loadGame(s, arg)
	case "kick":
		t.kick(s, arg)
	case "swap":
		t.swap(s, arg)
	case "resize":
		t.resize(s, arg)
	}
	return false
}

// chatTo 以 Server 的名义只发给一个人
func (t *Table) chatTo(s *seat, text string) {
	t.log.Info("[-> %s] %s", s.name, text)
	s.send(protocol.Chat(ServerName, text))
}

// serverChat 以 Server 的名义广播
func (t *Table) serverChat(text string) {
	t.log.Info("[%s]: %s", ServerName, text)
	t.broadcast(protocol.Chat(ServerName, text))
}

// login 密码正确则成为管理员，否则断开
func (t *Table) login(s *seat, plain string) {
	configured := t.deps.Store.String("password_"+strings.ToLower(s.name), "")
	if plain != "" && value_object.NewPassword(configured).Verify(plain) {
		s.admin = true
		t.chatTo(s, "You have logged in successfully")
		return
	}
	t.terminate(s, "管理员密码错误")
}

func (t *Table) saveGame(s *seat, target string) {
	name, err := repository.CleanSnapshotName(target)
	if err != nil || t.deps.Snapshots == nil {
		t.chatTo(s, "Failed to save game!")
		return
	}
	t.log.Info("保存牌局到 %s", name)

	var buf bytes.Buffer
	if err := t.game.WriteSnapshot(&buf); err != nil {
		t.log.Error("序列化牌局失败: %v", err)
		t.chatTo(s, "Failed to save game!")
		return
	}

	ctx, cancel := context.WithTimeout(context.Background(), storageTimeout)
	defer cancel()
	err = t.deps.Snapshots.SaveSnapshot(ctx, name, buf.Bytes())
	switch {
	case errors.Is(err, repository.ErrSnapshotExists):
		t.chatTo(s, "The target file already exists.")
	case err != nil:
		t.log.Error("保存存档失败: %v", err)
		t.chatTo(s, "Failed to save game!")
	default:
		t.chatTo(s, "Game saved successfully as: ["+name+"]")
		ev := transfer.NewTableEvent(t.ID, transfer.SnapshotSaved)
		ev.Seat, ev.Name, ev.Text = s.pid, s.name, name
		t.publish(ev)
	}
}

func (t *Table) loadGame(s *seat, source string) {
	name, err := repository.CleanSnapshotName(source)
	if err != nil || t.deps.Snapshots == nil {
		t.chatTo(s, "The source file does not exist.")
		return
	}
	t.log.Info("从 %s 读取牌局", name)

	ctx, cancel := context.WithTimeout(context.Background(), storageTimeout)
	defer cancel()
	data, err := t.deps.Snapshots.LoadSnapshot(ctx, name)
	if errors.Is(err, repository.ErrSnapshotNotFound) {
		t.chatTo(s, "The source file does not exist.")
		return
	}
	if err != nil {
		t.loadFailed(s, err.Error())
		return
	}

	// 所有座位都要有人，否则读档后会缺人
	for i, n := range t.game.Names() {
		if n == "" {
			t.loadFailed(s, fmt.Sprintf("slot %d is unoccupied", i))
			return
		}
	}

	saved, err := levelup.ReadSnapshot(bytes.NewReader(data), levelup.WithLogger(t.log))
	if err != nil {
		t.log.Warn("读取存档失败: %v", err)
		t.loadFailed(s, "game is null")
		return
	}
	if saved.NumPlayers() != t.game.NumPlayers() {
		t.loadFailed(s, fmt.Sprintf("number of players in saved game (%d) doesn't match current slots (%d)",
			saved.NumPlayers(), t.game.NumPlayers()))
		return
	}

	t.game.Synchronize(saved, -1)

	var buf bytes.Buffer
	if err := t.game.WriteSnapshot(&buf); err != nil {
		t.loadFailed(s, "failed to buffer game data; disconnecting clients")
		for _, other := range t.seats {
			other.p.Close()
		}
		return
	}
	for _, frame := range protocol.SyncFrames(buf.Bytes()) {
		t.broadcast(frame)
	}
	t.log.Info("存档 %s 读取完成, 已同步给所有玩家", name)

	// 存档多半停在牌局中间，直接开局
	t.load()
	t.wake()
	t.serverChat("The saved game has been loaded successfully.")

	ev := transfer.NewTableEvent(t.ID, transfer.SnapshotLoaded)
	ev.Seat, ev.Name, ev.Text = s.pid, s.name, name
	ev.State = t.game.State().String()
	t.publish(ev)
}

func (t *Table) loadFailed(s *seat, reason string) {
	t.chatTo(s, "Loading saved game: error: "+reason)
}

// findSeat 名字完全一致（不区分大小写）优先，否则取最后一个包含它的座位
func (t *Table) findSeat(partial string) *seat {
	partial = strings.ToLower(partial)
	found := -1
	for i, n := range t.game.Names() {
		n = strings.ToLower(n)
		if n == "" {
			continue
		}
		if n == partial {
			found = i
			break
		}
		if strings.Contains(n, partial) {
			found = i
		}
	}
	if found < 0 {
		return nil
	}
	for _, s := range t.seats {
		if s.pid == found {
			return s
		}
	}
	return nil
}

func (t *Table) kick(s *seat, partial string) {
	target := t.findSeat(partial)
	if target == nil {
		t.chatTo(s, "Failed to kick: player not found.")
		return
	}

	t.serverChat(fmt.Sprintf("Player [%s] was kicked by admin [%s].", target.name, s.name))
	if t.deps.Bans != nil {
		t.deps.Bans.Ban(target.name)
	}
	ev := transfer.NewTableEvent(t.ID, transfer.PlayerKicked)
	ev.Seat, ev.Name, ev.Text = target.pid, target.name, s.name
	t.publish(ev)
	t.terminate(target, "被管理员 "+s.name+" 踢出")
}

func (t *Table) swap(s *seat, arg string) {
	ids := strings.Split(arg, " ")
	if len(ids) < 2 {
		return
	}
	a, err1 := strconv.Atoi(ids[0])
	b, err2 := strconv.Atoi(ids[1])
	if err1 != nil || err2 != nil {
		return
	}
	if !t.game.SwapPlayers(a, b) {
		t.chatTo(s, "Failed to swap: invalid seat.")
		return
	}
	t.log.Info("管理员 [%s] 交换座位 %d 和 %d", s.name, a, b)
}

func (t *Table) resize(s *seat, arg string) {
	n, err := strconv.Atoi(strings.TrimSpace(arg))
	if err != nil {
		return
	}
	if err := t.game.Resize(n); err != nil {
		t.log.Warn("调整座位数失败: %v", err)
		t.chatTo(s, "Failed to resize: "+err.Error())
		return
	}
	t.log.Info("管理员 [%s] 把座位数调整为 %d", s.name, n)
	if !t.loaded.Load() && t.game.Full() {
		t.load()
	}
}
