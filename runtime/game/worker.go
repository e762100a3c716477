package game

import (
	"context"
	"net"
	"time"

	"github.com/uakfdotb/p-levelup/common/http"
	"github.com/uakfdotb/p-levelup/common/log"
)

/*
	1.管理所有牌桌：一张开放的桌子接受入座，坐满后开局并再开一张
	2.定期收集负载信息
	3.提供状态接口（gin），查看牌桌、座位和负载
*/

type Worker struct {
	TableManager *TableManager
	Monitor      *Monitor

	status *http.HttpServer
	cancel context.CancelFunc
	log    *log.Logger
}

// NewWorker 创建 Worker，maxTables 为 0 表示不限制牌桌数
func NewWorker(deps Deps, maxTables int) *Worker {
	if deps.Log == nil {
		deps.Log = log.Default()
	}
	tableManager := NewTableManager(deps, maxTables)
	return &Worker{
		TableManager: tableManager,
		Monitor:      NewMonitor(tableManager, 5*time.Second, deps.Log.With("monitor")),
		log:          deps.Log,
	}
}

// Start 启动负载收集；statusAddr 非空时启动状态接口
func (w *Worker) Start(ctx context.Context, statusAddr string) error {
	ctx, w.cancel = context.WithCancel(ctx)
	go w.Monitor.Start(ctx)

	if statusAddr == "" {
		return nil
	}
	ln, err := net.Listen("tcp", statusAddr)
	if err != nil {
		w.cancel()
		return err
	}
	w.status = http.NewHttpServer(http.WithAddr(statusAddr), http.WithMode("release"))
	w.status.Use(http.LoggerMiddleware(w.log.With("http")))
	w.Monitor.RegisterRoutes(w.status)
	go func() {
		if err := w.status.Serve(ln); err != nil {
			w.log.Error("状态接口异常退出: %v", err)
		}
	}()
	w.log.Info("状态接口已启动: http://%s/status", ln.Addr())
	return nil
}

// Close 关闭 Worker 和所有牌桌
func (w *Worker) Close() {
	if w.cancel != nil {
		w.cancel()
	}
	if w.status != nil {
		ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
		_ = w.status.Shutdown(ctx)
		cancel()
	}
	w.TableManager.Close()
	w.log.Info("Game Worker 已关闭")
}
