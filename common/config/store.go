package config

import (
	"strings"
	"sync"

	"github.com/spf13/viper"
)

// Store 按键取值，键不存在时返回默认值
type Store interface {
	Int(key string, def int) int
	String(key string, def string) string
	Bool(key string, def bool) bool
}

// Store 基于 viper，配置热更新后立即可见
func (l *Loaded) Store() Store {
	return &viperStore{v: l.v}
}

type viperStore struct {
	v *viper.Viper
}

func (s *viperStore) Int(key string, def int) int {
	key = strings.ToLower(key)
	if !s.v.IsSet(key) {
		return def
	}
	return s.v.GetInt(key)
}

func (s *viperStore) String(key string, def string) string {
	key = strings.ToLower(key)
	if !s.v.IsSet(key) {
		return def
	}
	return s.v.GetString(key)
}

func (s *viperStore) Bool(key string, def bool) bool {
	key = strings.ToLower(key)
	if !s.v.IsSet(key) {
		return def
	}
	return s.v.GetBool(key)
}

// MapStore 内存实现，测试和嵌入使用
type MapStore struct {
	mu     sync.RWMutex
	values map[string]any
}

func NewMapStore(values map[string]any) *MapStore {
	s := &MapStore{values: make(map[string]any, len(values))}
	for k, v := range values {
		s.values[strings.ToLower(k)] = v
	}
	return s
}

func (s *MapStore) Set(key string, value any) {
	s.mu.Lock()
	s.values[strings.ToLower(key)] = value
	s.mu.Unlock()
}

func (s *MapStore) get(key string) (any, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	v, ok := s.values[strings.ToLower(key)]
	return v, ok
}

func (s *MapStore) Int(key string, def int) int {
	if v, ok := s.get(key); ok {
		if n, ok := v.(int); ok {
			return n
		}
	}
	return def
}

func (s *MapStore) String(key string, def string) string {
	if v, ok := s.get(key); ok {
		if str, ok := v.(string); ok {
			return str
		}
	}
	return def
}

func (s *MapStore) Bool(key string, def bool) bool {
	if v, ok := s.get(key); ok {
		if b, ok := v.(bool); ok {
			return b
		}
	}
	return def
}
