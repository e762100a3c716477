package conn

import (
	"errors"
	"io"
	"net/http"
	"sync"

	"github.com/gorilla/websocket"
)

// InitUpgrade 初始化 websocket 升级器
func (w *Worker) InitUpgrade() {
	w.websocketUpgrade = &websocket.Upgrader{
		CheckOrigin: func(r *http.Request) bool {
			return true
		},
		ReadBufferSize:    4096,
		WriteBufferSize:   4096,
		EnableCompression: true,
	}
}

// ServeHTTP 把 websocket 连接接进来，帧格式和 TCP 一样，放在二进制消息里
func (w *Worker) ServeHTTP(writer http.ResponseWriter, r *http.Request) {
	if w.isClosed() {
		http.Error(writer, "Server is closing", http.StatusServiceUnavailable)
		return
	}
	if err := w.admit(); err != nil {
		status := http.StatusServiceUnavailable
		if errors.Is(err, ErrRateLimited) {
			status = http.StatusTooManyRequests
		}
		http.Error(writer, err.Error(), status)
		w.log.Warn("拒绝 websocket 连接 %s: %v", r.RemoteAddr, err)
		return
	}

	w.upgradeOnce.Do(w.InitUpgrade)
	writer.Header().Add("Server", "p-levelup")
	w.log.Debug("WebSocket connection attempt from %s, User-Agent: %s", r.RemoteAddr, r.UserAgent())

	c, err := w.websocketUpgrade.Upgrade(writer, r, nil)
	if err != nil {
		w.log.Warn("websocket 升级失败, err:%v", err)
		return
	}
	c.SetReadLimit(maxWSMessageSize)
	w.serveStream(newWSStream(c))
}

// 单帧最大是一个 SYNCPART，留足余量
const maxWSMessageSize = 64 * 1024

// wsStream 把 websocket 消息拼成字节流
// 每次 Write 发一条二进制消息，Read 依次读完每条二进制消息。
type wsStream struct {
	*websocket.Conn
	r       io.Reader
	writeMu sync.Mutex
}

func newWSStream(c *websocket.Conn) *wsStream {
	return &wsStream{Conn: c}
}

func (s *wsStream) Read(p []byte) (int, error) {
	for {
		if s.r == nil {
			typ, r, err := s.NextReader()
			if err != nil {
				if websocket.IsCloseError(err, websocket.CloseNormalClosure, websocket.CloseGoingAway) {
					return 0, io.EOF
				}
				return 0, err
			}
			if typ != websocket.BinaryMessage {
				continue
			}
			s.r = r
		}
		n, err := s.r.Read(p)
		if err == io.EOF {
			s.r = nil
			if n > 0 {
				return n, nil
			}
			continue
		}
		return n, err
	}
}

func (s *wsStream) Write(p []byte) (int, error) {
	s.writeMu.Lock()
	defer s.writeMu.Unlock()
	if err := s.WriteMessage(websocket.BinaryMessage, p); err != nil {
		return 0, err
	}
	return len(p), nil
}

func (s *wsStream) Close() error {
	s.writeMu.Lock()
	_ = s.WriteMessage(websocket.CloseMessage, websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""))
	s.writeMu.Unlock()
	return s.Conn.Close()
}

// DialWS 客户端用的 websocket 连接
func DialWS(url string) (Stream, error) {
	c, _, err := websocket.DefaultDialer.Dial(url, nil)
	if err != nil {
		return nil, err
	}
	return newWSStream(c), nil
}
