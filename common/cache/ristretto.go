package cache

import (
	"fmt"
	"strings"
	"time"

	"github.com/dgraph-io/ristretto"
)

// BanList 被踢玩家的名字，过期后自动解除
type BanList struct {
	cache *ristretto.Cache
	ttl   time.Duration
}

// NewBanList ttl 为默认封禁时长
func NewBanList(ttl time.Duration) (*BanList, error) {
	cache, err := ristretto.NewCache(&ristretto.Config{
		NumCounters: 1e4,
		MaxCost:     1 << 20,
		BufferItems: 64,
	})
	if err != nil {
		return nil, fmt.Errorf("创建 ristretto 缓存失败: %w", err)
	}
	return &BanList{cache: cache, ttl: ttl}, nil
}

func banKey(name string) string {
	return strings.ToLower(name)
}

// Ban 使用默认时长封禁
func (b *BanList) Ban(name string) {
	b.BanFor(name, b.ttl)
}

// BanFor ttl <= 0 时不封禁
func (b *BanList) BanFor(name string, ttl time.Duration) {
	if name == "" || ttl <= 0 {
		return
	}
	b.cache.SetWithTTL(banKey(name), struct{}{}, 1, ttl)
	// 写入是异步的，等待生效
	b.cache.Wait()
}

// Banned 名字是否仍在封禁中
func (b *BanList) Banned(name string) bool {
	_, ok := b.cache.Get(banKey(name))
	return ok
}

// Lift 解除封禁
func (b *BanList) Lift(name string) {
	b.cache.Del(banKey(name))
}

func (b *BanList) Close() {
	b.cache.Close()
}
