package conn

import (
	"context"
	"errors"
	"net"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"

	"github.com/uakfdotb/p-levelup/common/log"
	"github.com/uakfdotb/p-levelup/common/utils"
)

/*
长连接网关职责：
 1. 连接事件：接受 TCP 或 websocket 连接，维护读写协程
 2. 入座：第一帧必须是 JOIN，交给 Lobby 分配座位
 3. 转发：入座后的帧交给牌桌处理，牌桌的消息经写队列发回客户端
 4. 保护：连接数上限、建连速率、聊天速率
*/

var (
	ErrWorkerClosed = errors.New("connector worker 已关闭")
	ErrRateLimited  = errors.New("连接速率限流")
	ErrAtCapacity   = errors.New("连接达到阈值")
)

type WorkerOption func(worker *Worker)

// WithMaxConnections 最大连接数
func WithMaxConnections(n int) WorkerOption {
	return func(w *Worker) {
		if n > 0 {
			w.maxConnectionCount = n
		}
	}
}

// WithConnectionRate 每秒新建连接数，0 表示不限制
func WithConnectionRate(rate float64, burst int) WorkerOption {
	return func(w *Worker) {
		if rate > 0 {
			w.ConnectionRateLimiter = utils.NewRateLimiter(rate, burst)
		}
	}
}

// WithChatRate 每个连接每秒聊天条数，0 表示不限制
func WithChatRate(rate float64, burst int) WorkerOption {
	return func(w *Worker) {
		w.chatRate, w.chatBurst = rate, burst
	}
}

func WithLogger(lg *log.Logger) WorkerOption {
	return func(w *Worker) {
		if lg != nil {
			w.log = lg
		}
	}
}

type Worker struct {
	lobby Lobby
	log   *log.Logger

	websocketUpgrade *websocket.Upgrader
	upgradeOnce      sync.Once

	ConnectionRateLimiter *utils.RateLimiter
	chatRate              float64
	chatBurst             int

	maxConnectionCount int
	connSemaphore      chan struct{} // 连接信号量
	stats              struct {
		messageProcessed   int64
		messageErrors      int64
		currentConnections int32
	}

	connMap   sync.Map
	wg        sync.WaitGroup
	mu        sync.Mutex
	listeners []net.Listener
	closed    bool
}

func NewWorker(lobby Lobby, opts ...WorkerOption) *Worker {
	w := &Worker{
		lobby:              lobby,
		log:                log.Default(),
		maxConnectionCount: 10000,
	}
	for _, opt := range opts {
		opt(w)
	}
	w.connSemaphore = make(chan struct{}, w.maxConnectionCount)
	return w
}

// ListenAndServe 监听 TCP 地址
func (w *Worker) ListenAndServe(addr string) error {
	ln, err := net.Listen("tcp", addr)
	if err != nil {
		return err
	}
	return w.Serve(ln)
}

// Serve 在 ln 上接受连接，直到 ln 关闭
func (w *Worker) Serve(ln net.Listener) error {
	w.mu.Lock()
	if w.closed {
		w.mu.Unlock()
		ln.Close()
		return ErrWorkerClosed
	}
	w.listeners = append(w.listeners, ln)
	w.mu.Unlock()

	w.log.Info("tcp 监听地址 %s", ln.Addr())
	var tempDelay time.Duration
	for {
		c, err := ln.Accept()
		if err != nil {
			if w.isClosed() {
				return nil
			}
			var ne net.Error
			if errors.As(err, &ne) && ne.Timeout() {
				if tempDelay == 0 {
					tempDelay = 5 * time.Millisecond
				} else {
					tempDelay = min(tempDelay*2, time.Second)
				}
				w.log.Warn("accept 失败: %v, %v 后重试", err, tempDelay)
				time.Sleep(tempDelay)
				continue
			}
			return err
		}
		tempDelay = 0

		if err := w.admit(); err != nil {
			w.log.Warn("拒绝连接 %s: %v", c.RemoteAddr(), err)
			c.Close()
			continue
		}
		if tc, ok := c.(*net.TCPConn); ok {
			tc.SetNoDelay(true)
		}
		w.serveStream(c)
	}
}

// admit 检查建连速率和连接数
func (w *Worker) admit() error {
	if !w.ConnectionRateLimiter.Allow() {
		return ErrRateLimited
	}
	if atomic.LoadInt32(&w.stats.currentConnections) >= int32(w.maxConnectionCount) {
		return ErrAtCapacity
	}
	return nil
}

func (w *Worker) serveStream(s Stream) {
	client := newLongConnection(uuid.NewString(), s, w)
	if !w.addClient(client) {
		s.Close()
		return
	}
	w.log.Info("建立连接: connID=%s, remote=%s", client.ConnID, client.RemoteAddr())
	go func() {
		defer w.wg.Done()
		client.Run()
	}()
}

func (w *Worker) addClient(client *LongConnection) bool {
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.closed {
		return false
	}
	select {
	case w.connSemaphore <- struct{}{}:
		w.connMap.Store(client.ConnID, client)
		atomic.AddInt32(&w.stats.currentConnections, 1)
		w.wg.Add(1)
		return true
	default:
		w.log.Warn("addClient: 连接数达到上限")
		return false
	}
}

func (w *Worker) removeClient(con *LongConnection) {
	if _, ok := w.connMap.LoadAndDelete(con.ConnID); !ok {
		return
	}
	con.Close()
	select {
	case <-w.connSemaphore:
	default:
	}
	atomic.AddInt32(&w.stats.currentConnections, -1)
	w.log.Info("连接断开: connID=%s, remote=%s", con.ConnID, con.RemoteAddr())
}

func (w *Worker) messageProcessed() {
	atomic.AddInt64(&w.stats.messageProcessed, 1)
}

func (w *Worker) messageError() {
	atomic.AddInt64(&w.stats.messageErrors, 1)
}

// CurrentConnections 当前连接数
func (w *Worker) CurrentConnections() int {
	return int(atomic.LoadInt32(&w.stats.currentConnections))
}

// MonitorPerformance 定期打印连接统计，ctx 结束时返回
func (w *Worker) MonitorPerformance(ctx context.Context, interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			w.log.Debug("性能监控: connections=%d, messages_processed=%d, errors=%d",
				atomic.LoadInt32(&w.stats.currentConnections),
				atomic.LoadInt64(&w.stats.messageProcessed),
				atomic.LoadInt64(&w.stats.messageErrors))
		}
	}
}

func (w *Worker) isClosed() bool {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.closed
}

// Close 停止监听，断开所有连接并等待读协程退出
func (w *Worker) Close() {
	w.mu.Lock()
	if w.closed {
		w.mu.Unlock()
		return
	}
	w.closed = true
	listeners := w.listeners
	w.listeners = nil
	w.mu.Unlock()

	for _, ln := range listeners {
		ln.Close()
	}
	w.connMap.Range(func(_, v any) bool {
		v.(*LongConnection).Close()
		return true
	})
	w.wg.Wait()
	w.log.Info("connector worker 已关闭")
}
