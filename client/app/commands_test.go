package app

import (
	"bytes"
	"errors"
	"strings"
	"testing"

	"github.com/uakfdotb/p-levelup/runtime/game/engines/levelup"
)

type recordingSender struct {
	calls  []string
	bottom []levelup.Card
	played levelup.Trick
}

func (s *recordingSender) Declare(suit levelup.Suit, amount int) error {
	s.calls = append(s.calls, "declare "+suit.String())
	return nil
}

func (s *recordingSender) Withdraw() error {
	s.calls = append(s.calls, "withdraw")
	return nil
}

func (s *recordingSender) Defend(amount int) error {
	s.calls = append(s.calls, "defend")
	return nil
}

func (s *recordingSender) Play(cards []levelup.Card, amounts []int) error {
	trick, err := levelup.NewTrick(cards, amounts)
	if err != nil {
		return err
	}
	s.played = trick
	s.calls = append(s.calls, "play")
	return nil
}

func (s *recordingSender) SelectBottom(cards []levelup.Card) error {
	s.bottom = cards
	s.calls = append(s.calls, "bottom")
	return nil
}

func (s *recordingSender) Chat(text string) error {
	s.calls = append(s.calls, "chat "+text)
	return nil
}

func newTestCommands(joined bool) (*Commands, *recordingSender, *bytes.Buffer) {
	s := &recordingSender{}
	out := &bytes.Buffer{}
	hand := func() []levelup.Card {
		return []levelup.Card{levelup.NewCard(levelup.SuitSpades, levelup.RankAce)}
	}
	return NewCommands(s, func() bool { return joined }, hand, "!", out), s, out
}

func TestCommandsRequireJoin(t *testing.T) {
	c, s, _ := newTestCommands(false)
	if _, err := c.Handle("withdraw"); !errors.Is(err, ErrNotJoined) {
		t.Fatalf("未入座时应返回 ErrNotJoined，实际 %v", err)
	}
	// 选牌是本地操作，不需要入座
	if _, err := c.Handle("select H 10 2"); err != nil {
		t.Fatalf("未入座时也应能选牌: %v", err)
	}
	if len(s.calls) != 0 {
		t.Fatalf("不应发送任何命令: %v", s.calls)
	}
}

func TestDeclareAndDefend(t *testing.T) {
	c, s, _ := newTestCommands(true)
	if _, err := c.Handle("declare s 2"); err != nil {
		t.Fatalf("declare 失败: %v", err)
	}
	if _, err := c.Handle("declare x 2"); err == nil {
		t.Fatalf("无效花色应报错")
	}
	if _, err := c.Handle("defend two"); err == nil {
		t.Fatalf("非整数数量应报错")
	}
	if _, err := c.Handle("defend 2"); err != nil {
		t.Fatalf("defend 失败: %v", err)
	}
	want := []string{"declare S", "defend"}
	if strings.Join(s.calls, ",") != strings.Join(want, ",") {
		t.Fatalf("发送的命令不正确: %v", s.calls)
	}
}

func TestPlayClearsSelection(t *testing.T) {
	c, s, out := newTestCommands(true)
	for _, line := range []string{"select H 10 2", "select T ?+ 1"} {
		if _, err := c.Handle(line); err != nil {
			t.Fatalf("%s 失败: %v", line, err)
		}
	}
	if _, err := c.Handle("select H 1 1"); err == nil {
		t.Fatalf("无效点数应报错")
	}
	c.Handle("qselect")
	if !strings.Contains(out.String(), "2 10H") {
		t.Fatalf("qselect 应列出已选的牌: %q", out.String())
	}

	if _, err := c.Handle("play"); err != nil {
		t.Fatalf("play 失败: %v", err)
	}
	if s.played.Size() != 3 {
		t.Fatalf("应出 3 张牌，实际 %d", s.played.Size())
	}
	if _, err := c.Handle("play"); !errors.Is(err, ErrEmptySelection) {
		t.Fatalf("出牌后选择应被清空，实际 %v", err)
	}
}

func TestBottomExpandsAmounts(t *testing.T) {
	c, s, _ := newTestCommands(true)
	c.Handle("select C 5 2")
	c.Handle("select D K 1")
	if _, err := c.Handle("bottom"); err != nil {
		t.Fatalf("bottom 失败: %v", err)
	}
	if len(s.bottom) != 3 {
		t.Fatalf("底牌应展开为 3 张，实际 %d", len(s.bottom))
	}
	if !s.bottom[0].Same(levelup.NewCard(levelup.SuitClubs, 5)) || !s.bottom[1].Same(s.bottom[0]) {
		t.Fatalf("底牌顺序不正确: %v", s.bottom)
	}

	c.Handle("select C 5 2")
	c.Handle("clear")
	if _, err := c.Handle("bottom"); !errors.Is(err, ErrEmptySelection) {
		t.Fatalf("clear 之后应没有选择，实际 %v", err)
	}
}

func TestChatAndTrigger(t *testing.T) {
	c, s, _ := newTestCommands(true)
	c.Handle("chat hello there")
	c.Handle("!kick bob")
	c.Handle("chat   ")
	if _, err := c.Handle("dance"); !errors.Is(err, ErrUnknownCommand) {
		t.Fatalf("未知命令应返回 ErrUnknownCommand，实际 %v", err)
	}
	want := []string{"chat hello there", "chat !kick bob"}
	if strings.Join(s.calls, ",") != strings.Join(want, ",") {
		t.Fatalf("聊天转发不正确: %v", s.calls)
	}
	out := c.out.(*bytes.Buffer)
	c.Handle("hand")
	if !strings.Contains(out.String(), "Your cards: AS") {
		t.Fatalf("hand 应打印手牌: %q", out.String())
	}
	if quit, _ := c.Handle("quit"); !quit {
		t.Fatalf("quit 应退出")
	}
}
