package node

import (
	"github.com/uakfdotb/p-levelup/common/log"

	"github.com/nats-io/nats.go"
)

type Client interface {
	Run(string) error
	SendMessage(string, []byte) error
	Close() error
}

// NatsClient 只负责发布
type NatsClient struct {
	conn *nats.Conn
}

func NewNatsClient() *NatsClient {
	return &NatsClient{}
}

func (nc *NatsClient) IsConnected() bool {
	return nc.conn != nil && nc.conn.IsConnected()
}

func (nc *NatsClient) Run(url string) error {
	log.Info("nats 服务正在连接, url:%s", url)
	var err error
	nc.conn, err = nats.Connect(url, nats.Name("levelup"), nats.MaxReconnects(-1))
	if err != nil {
		log.Error("nats 连接错误,err:%v", err)
		return err
	}
	log.Info("nats 连接成功, url:%s", url)
	return nil
}

func (nc *NatsClient) Close() error {
	if nc.conn == nil {
		return nil
	}
	if err := nc.conn.Drain(); err != nil {
		nc.conn.Close()
	}
	log.Info("NATS 连接已关闭")
	return nil
}

func (nc *NatsClient) SendMessage(subject string, data []byte) error {
	if !nc.IsConnected() {
		return ErrNotConnected
	}
	return nc.conn.Publish(subject, data)
}
