package config

import (
	"fmt"
	"path/filepath"
	"strings"
	"sync"

	"github.com/fsnotify/fsnotify"
	"github.com/spf13/viper"
)

const (
	DefaultAddr          = ":7553"
	DefaultNumPlayers    = 4
	DefaultTrigger       = "!"
	DefaultSavegamesPath = "savegames/"
	DefaultBanTTLSeconds = 600
)

type Config struct {
	AppName  string       `mapstructure:"appName"`
	Log      LogConf      `mapstructure:"log"`
	Server   ServerConf   `mapstructure:"server"`
	Client   ClientConf   `mapstructure:"client"`
	Database DatabaseConf `mapstructure:"database"`
	Nats     NatsConfig   `mapstructure:"nats"`
	Ban      BanConf      `mapstructure:"ban"`
}

type LogConf struct {
	Level string `mapstructure:"level"`
	Path  string `mapstructure:"path"`
}

// ServerConf WsAddr、MetricPort、StatusPort 为空或 0 时不启动对应服务
type ServerConf struct {
	Addr       string `mapstructure:"addr"`
	WsAddr     string `mapstructure:"wsAddr"`
	MetricPort int    `mapstructure:"metricPort"`
	StatusPort int    `mapstructure:"statusPort"`
	MaxTables  int    `mapstructure:"maxTables"`
}

type ClientConf struct {
	Host string `mapstructure:"host"`
	Port int    `mapstructure:"port"`
	Name string `mapstructure:"name"`
}

type DatabaseConf struct {
	MongoConf MongoConf `mapstructure:"mongo"`
	RedisConf RedisConf `mapstructure:"redis"`
}

type MongoConf struct {
	Url         string `mapstructure:"url"`
	Db          string `mapstructure:"db"`
	Username    string `mapstructure:"username"`
	Password    string `mapstructure:"password"`
	MinPoolSize int    `mapstructure:"minPoolSize"`
	MaxPoolSize int    `mapstructure:"maxPoolSize"`
}

type RedisConf struct {
	Addr         string   `mapstructure:"addr"`
	ClusterAddrs []string `mapstructure:"clusterAddrs"`
	Password     string   `mapstructure:"password"`
	PoolSize     int      `mapstructure:"poolSize"`
	MinIdleConns int      `mapstructure:"minIdleConns"`
	Host         string   `mapstructure:"host"`
	Port         int      `mapstructure:"port"`
}

// Enabled 是否配置了 redis
func (r RedisConf) Enabled() bool {
	return r.Addr != "" || len(r.ClusterAddrs) > 0 || (r.Host != "" && r.Port > 0)
}

type NatsConfig struct {
	URL string `json:"url" mapstructure:"url"`
}

type BanConf struct {
	TTLSeconds int `mapstructure:"ttlSeconds"`
}

// Loaded 解析后的配置和底层 viper，Store 读取热更新后的值
type Loaded struct {
	*Config
	v  *viper.Viper
	mu sync.RWMutex
}

// Load 读取配置文件，.cfg/.properties 按 key=value 格式解析
func Load(configFile string) (*Loaded, error) {
	v := viper.New()
	v.SetConfigFile(configFile)
	switch strings.ToLower(filepath.Ext(configFile)) {
	case ".cfg", ".properties":
		v.SetConfigType("properties")
	}
	setDefaults(v)

	if err := v.ReadInConfig(); err != nil {
		return nil, fmt.Errorf("读取配置文件出错: %w", err)
	}
	conf := new(Config)
	if err := v.Unmarshal(conf); err != nil {
		return nil, fmt.Errorf("解析配置文件出错: %w", err)
	}
	return &Loaded{Config: conf, v: v}, nil
}

// Watch 监听配置文件变化，重新解析后回调
func (l *Loaded) Watch(onChange func(*Config, error)) {
	l.v.OnConfigChange(func(in fsnotify.Event) {
		conf := new(Config)
		err := l.v.Unmarshal(conf)
		if err == nil {
			l.mu.Lock()
			l.Config = conf
			l.mu.Unlock()
		}
		if onChange != nil {
			onChange(conf, err)
		}
	})
	l.v.WatchConfig()
}

// Current 最近一次解析的配置
func (l *Loaded) Current() *Config {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return l.Config
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("appName", "levelup")
	v.SetDefault("log.level", "info")
	v.SetDefault("server.addr", DefaultAddr)
	v.SetDefault("client.host", "localhost")
	v.SetDefault("client.port", 7553)
	v.SetDefault("ban.ttlSeconds", DefaultBanTTLSeconds)
	v.SetDefault("numplayers", DefaultNumPlayers)
	v.SetDefault("trigger", DefaultTrigger)
	v.SetDefault("savegames_path", DefaultSavegamesPath)
}
