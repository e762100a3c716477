package replica

import "github.com/uakfdotb/p-levelup/runtime/game/engines/levelup"

// View 客户端表现层
// 回调都在读协程上执行，此时没有持有副本的锁，可以调用 Client.With 读牌局。
// 同时实现 levelup.Listener 的 View 会被注册到副本牌局上，逐条收到牌局事件，
// 那些回调发生在持锁期间，只能读传进来的参数。
type View interface {
	Joined(pid int)
	GameLoaded()
	GameUpdated()
	PlayError(reason string)
	Chat(name, text string)
	DealtCard(card levelup.Card)
	BetCounter(n int)
	RoundCounter(n int)
	Terminated(reason string)
}

// NopView 什么也不做
type NopView struct{}

func (NopView) Joined(int)             {}
func (NopView) GameLoaded()            {}
func (NopView) GameUpdated()           {}
func (NopView) PlayError(string)       {}
func (NopView) Chat(string, string)    {}
func (NopView) DealtCard(levelup.Card) {}
func (NopView) BetCounter(int)         {}
func (NopView) RoundCounter(int)       {}
func (NopView) Terminated(string)      {}
