package app

import (
	"bufio"
	"context"
	"fmt"
	"net"
	"os"
	"os/signal"
	"strconv"
	"strings"
	"syscall"

	"github.com/pterm/pterm"

	"github.com/uakfdotb/p-levelup/common/config"
	"github.com/uakfdotb/p-levelup/common/log"
	"github.com/uakfdotb/p-levelup/runtime/game/engines/levelup"
	"github.com/uakfdotb/p-levelup/runtime/replica"
)

// Run 1.连接服务端并入座 2.读终端命令 3.断线、quit 或收到信号时退出
func Run(ctx context.Context, loaded *config.Loaded) error {
	conf := loaded.Current()
	store := loaded.Store()

	name := strings.TrimSpace(conf.Client.Name)
	if name == "" {
		name, _ = pterm.DefaultInteractiveTextInput.WithDefaultText("Enter your username").Show()
		name = strings.TrimSpace(name)
		pterm.Println()
	}
	if name == "" {
		return fmt.Errorf("用户名不能为空")
	}

	view := NewTerminalView(os.Stdout)
	cli, err := replica.New(store.Int("numplayers", config.DefaultNumPlayers), view,
		replica.WithLogger(log.Default().With("replica")))
	if err != nil {
		return fmt.Errorf("创建副本失败: %w", err)
	}
	view.Attach(cli)

	port := conf.Client.Port
	if port <= 0 {
		port = replica.DefaultPort
	}
	addr := net.JoinHostPort(conf.Client.Host, strconv.Itoa(port))
	spinner, _ := pterm.DefaultSpinner.Start("Connecting to " + addr + " ...")
	if err := cli.Dial(ctx, addr); err != nil {
		spinner.Fail(err.Error())
		return err
	}
	spinner.Success("Connected to " + addr)
	defer cli.Close()

	if err := cli.Join(name); err != nil {
		return fmt.Errorf("入座请求发送失败: %w", err)
	}

	hand := func() (cards []levelup.Card) {
		cli.With(func(g *levelup.Game, pid int) { cards = g.Hand(pid) })
		return cards
	}
	commands := NewCommands(cli, view.HasJoined, hand, store.String("trigger", config.DefaultTrigger), os.Stdout)
	lines := make(chan string)
	go func() {
		defer close(lines)
		scanner := bufio.NewScanner(os.Stdin)
		for scanner.Scan() {
			lines <- scanner.Text()
		}
	}()

	sigs := make(chan os.Signal, 1)
	signal.Notify(sigs, syscall.SIGINT, syscall.SIGTERM)
	defer signal.Stop(sigs)

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-sigs:
			return nil
		case <-cli.Done():
			log.Info("连接已断开: %s", cli.Reason())
			return nil
		case line, ok := <-lines:
			if !ok {
				return nil
			}
			quit, err := commands.Handle(line)
			if err != nil {
				pterm.Error.Println(err.Error())
			}
			if quit {
				return nil
			}
		}
	}
}
