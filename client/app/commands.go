package app

import (
	"errors"
	"fmt"
	"io"
	"strconv"
	"strings"

	"github.com/pterm/pterm"

	"github.com/uakfdotb/p-levelup/runtime/game/engines/levelup"
)

var (
	ErrNotJoined      = errors.New("还没有入座")
	ErrUnknownCommand = errors.New("未知命令")
	ErrEmptySelection = errors.New("没有选择任何牌")
)

// Sender 向服务端发送玩家操作，由 replica.Client 实现
type Sender interface {
	Declare(suit levelup.Suit, amount int) error
	Withdraw() error
	Defend(amount int) error
	Play(cards []levelup.Card, amounts []int) error
	SelectBottom(cards []levelup.Card) error
	Chat(text string) error
}

// Commands 解析终端输入的命令
// select 选中的牌在 play 或 bottom 之后清空。
type Commands struct {
	sender  Sender
	joined  func() bool
	hand    func() []levelup.Card
	trigger string
	out     io.Writer

	selected []levelup.Card
	amounts  []int
}

// NewCommands hand 返回自己当前的手牌
func NewCommands(sender Sender, joined func() bool, hand func() []levelup.Card, trigger string, out io.Writer) *Commands {
	return &Commands{sender: sender, joined: joined, hand: hand, trigger: trigger, out: out}
}

// Handle 执行一行命令，返回 true 表示退出
func (c *Commands) Handle(line string) (bool, error) {
	line = strings.TrimSpace(line)
	if line == "" {
		return false, nil
	}
	parts := strings.Fields(line)
	switch parts[0] {
	case "quit", "exit":
		return true, nil
	case "select":
		return false, c.selectCard(parts[1:])
	case "qselect":
		c.printSelection()
		return false, nil
	case "clear":
		c.clear()
		return false, nil
	case "hand":
		if c.hand != nil {
			pterm.Fprintln(c.out, "Your cards: "+cardsString(c.hand()))
		}
		return false, nil
	}

	if !c.joined() {
		return false, ErrNotJoined
	}
	if c.trigger != "" && strings.HasPrefix(line, c.trigger) {
		return false, c.sender.Chat(line)
	}

	switch parts[0] {
	case "chat":
		text := strings.TrimSpace(strings.TrimPrefix(line, "chat"))
		if text == "" {
			return false, nil
		}
		return false, c.sender.Chat(text)
	case "declare":
		if len(parts) != 3 {
			return false, fmt.Errorf("用法: declare <suit> <amount>")
		}
		suit := levelup.ParseSuit(parts[1])
		if suit == levelup.SuitNone {
			return false, fmt.Errorf("无法识别的花色: %s", parts[1])
		}
		amount, err := strconv.Atoi(parts[2])
		if err != nil {
			return false, fmt.Errorf("数量必须是整数: %w", err)
		}
		return false, c.sender.Declare(suit, amount)
	case "withdraw":
		return false, c.sender.Withdraw()
	case "defend":
		if len(parts) != 2 {
			return false, fmt.Errorf("用法: defend <amount>")
		}
		amount, err := strconv.Atoi(parts[1])
		if err != nil {
			return false, fmt.Errorf("数量必须是整数: %w", err)
		}
		return false, c.sender.Defend(amount)
	case "play":
		if len(c.selected) == 0 {
			return false, ErrEmptySelection
		}
		err := c.sender.Play(c.selected, c.amounts)
		c.clear()
		return false, err
	case "bottom":
		var bottom []levelup.Card
		for i, card := range c.selected {
			for j := 0; j < c.amounts[i]; j++ {
				bottom = append(bottom, card)
			}
		}
		if len(bottom) == 0 {
			return false, ErrEmptySelection
		}
		c.clear()
		return false, c.sender.SelectBottom(bottom)
	}
	return false, fmt.Errorf("%w: %s", ErrUnknownCommand, parts[0])
}

// selectCard select <suit> <rank> <amount>
func (c *Commands) selectCard(args []string) error {
	if len(args) != 3 {
		return fmt.Errorf("用法: select <suit> <rank> <amount>")
	}
	card := levelup.NewCard(levelup.ParseSuit(args[0]), levelup.ParseRank(args[1]))
	if !card.Valid() {
		return fmt.Errorf("无法识别的牌: %s %s", args[0], args[1])
	}
	amount, err := strconv.Atoi(args[2])
	if err != nil || amount <= 0 {
		return fmt.Errorf("数量必须是正整数: %s", args[2])
	}
	c.selected = append(c.selected, card)
	c.amounts = append(c.amounts, amount)
	return nil
}

func (c *Commands) printSelection() {
	pterm.Fprintln(c.out, "you have selected:")
	for i, card := range c.selected {
		pterm.Fprintln(c.out, pterm.Sprintf("\t%d %s", c.amounts[i], card))
	}
}

func (c *Commands) clear() {
	c.selected = nil
	c.amounts = nil
}
