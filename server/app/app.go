package app

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/uakfdotb/p-levelup/common/config"
	lhttp "github.com/uakfdotb/p-levelup/common/http"
	"github.com/uakfdotb/p-levelup/common/log"
	"github.com/uakfdotb/p-levelup/core/container"
)

// Run 1.组装容器 2.启动 TCP、websocket 和状态接口 3.监听配置变化 4.等待信号优雅退出
func Run(ctx context.Context, loaded *config.Loaded) error {
	serverContainer, err := container.NewServerContainer(loaded)
	if err != nil {
		return fmt.Errorf("server 容器初始化失败: %w", err)
	}
	defer func() {
		if err := serverContainer.Close(); err != nil {
			log.Error("关闭 server 容器失败: %v", err)
		}
	}()

	ctx, cancel := context.WithCancel(ctx)
	defer cancel()
	conf := loaded.Current()

	statusAddr := ""
	if conf.Server.StatusPort > 0 {
		statusAddr = fmt.Sprintf("0.0.0.0:%d", conf.Server.StatusPort)
	}
	if err := serverContainer.GameWorker.Start(ctx, statusAddr); err != nil {
		return fmt.Errorf("game worker 启动失败: %w", err)
	}

	connector := serverContainer.Connector
	errCh := make(chan error, 2)
	go func() {
		if err := connector.ListenAndServe(conf.Server.Addr); err != nil {
			errCh <- fmt.Errorf("tcp 服务退出: %w", err)
		}
	}()
	go connector.MonitorPerformance(ctx, time.Minute)

	var ws *lhttp.HttpServer
	if conf.Server.WsAddr != "" {
		ws = lhttp.NewHttpServer(lhttp.WithAddr(conf.Server.WsAddr), lhttp.WithMode("release"))
		ws.Handle(http.MethodGet, "/ws", connector)
		go func() {
			log.Info("websocket 监听地址 %s", conf.Server.WsAddr)
			if err := ws.Start(); err != nil {
				errCh <- fmt.Errorf("websocket 服务退出: %w", err)
			}
		}()
	}

	loaded.Watch(func(c *config.Config, err error) {
		if err != nil {
			log.Warn("配置热更新失败: %v", err)
			return
		}
		log.Info("配置已更新")
	})

	stop := func() {
		log.Info("正在关闭 levelup 服务...")

		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()

		done := make(chan struct{})
		go func() {
			if ws != nil {
				_ = ws.Shutdown(shutdownCtx)
			}
			if err := serverContainer.Close(); err != nil {
				log.Warn("关闭 server 容器失败: %v", err)
			}
			close(done)
		}()

		select {
		case <-done:
			log.Info("levelup 服务已关闭")
		case <-shutdownCtx.Done():
			log.Warn("关闭 levelup 服务超时（5秒），defer 会确保资源最终被释放")
		}
	}

	c := make(chan os.Signal, 1)
	signal.Notify(c, syscall.SIGTERM, syscall.SIGQUIT, syscall.SIGINT, syscall.SIGHUP)
	for {
		select {
		case <-ctx.Done():
			stop()
			return nil
		case err := <-errCh:
			stop()
			return err
		case s := <-c:
			switch s {
			case syscall.SIGTERM, syscall.SIGQUIT, syscall.SIGINT:
				stop()
				log.Info("中断信号，服务停止")
				return nil
			case syscall.SIGHUP:
				stop()
				log.Info("挂起信号，服务停止")
				return nil
			default:
				return nil
			}
		}
	}
}
