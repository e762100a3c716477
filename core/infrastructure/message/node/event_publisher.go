package node

import (
	"encoding/json"
	"sync"

	"github.com/uakfdotb/p-levelup/common/log"
	"github.com/uakfdotb/p-levelup/core/infrastructure/message/transfer"
)

// Publisher 桌子事件的出口
type Publisher interface {
	Publish(event *transfer.TableEvent)
}

// NopPublisher 没有配置 nats 时使用
type NopPublisher struct{}

func (NopPublisher) Publish(*transfer.TableEvent) {}

// EventPublisher 事件先进入 writeChan，由单独的协程序列化后发布，发布方不会被 nats 阻塞
type EventPublisher struct {
	cli       Client
	writeChan chan *transfer.TableEvent
	done      chan struct{}
	closeOnce sync.Once
	log       *log.Logger
}

func NewEventPublisher(cli Client, lg *log.Logger) *EventPublisher {
	if lg == nil {
		lg = log.Default()
	}
	p := &EventPublisher{
		cli:       cli,
		writeChan: make(chan *transfer.TableEvent, 1024),
		done:      make(chan struct{}),
		log:       lg,
	}
	go p.writeChanMessage()
	return p
}

// Publish 队列满时丢弃
func (p *EventPublisher) Publish(event *transfer.TableEvent) {
	select {
	case <-p.done:
	case p.writeChan <- event:
	default:
		p.log.Warn("nats 事件队列已满, 丢弃 %s", event.Type)
	}
}

func (p *EventPublisher) writeChanMessage() {
	for {
		select {
		case <-p.done:
			return
		case event := <-p.writeChan:
			data, err := json.Marshal(event)
			if err != nil {
				p.log.Error("nats 事件序列化错误: %v", err)
				continue
			}
			if err := p.cli.SendMessage(transfer.TableSubject(event.Table), data); err != nil {
				p.log.Error("nats 发送错误, type=%s err=%v", event.Type, err)
			}
		}
	}
}

func (p *EventPublisher) Close() {
	p.closeOnce.Do(func() {
		close(p.done)
		p.cli.Close()
	})
}
