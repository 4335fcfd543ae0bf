package server

import (
	"time"

	"github.com/pkg/errors"
)

const (
	TransportUDP  = "udp"
	TransportGnet = "gnet"

	// DefaultBufferSize 单个数据报的接收缓冲，超出部分被传输层截断
	DefaultBufferSize = 1024
)

// Config 服务端运行参数；PlayerTTL 与 AutoRegister 可通过 /admin/config 热更新
type Config struct {
	Addr          string
	Transport     string
	BufferSize    int
	PlayerTTL     time.Duration // 0 表示不过期
	SweepInterval time.Duration // 0 表示按 PlayerTTL 自动推导
	AutoRegister  bool          // PlayerUpdate 遇到未知 ID 时是否自动登记
	AdminAddr     string
	LogFile       string
}

func DefaultConfig() Config {
	return Config{
		Addr:         ":5000",
		Transport:    TransportUDP,
		BufferSize:   DefaultBufferSize,
		AutoRegister: true,
		LogFile:      "statesync.log",
	}
}

func (c Config) Validate() error {
	if c.Addr == "" {
		return errors.New("config: empty listen address")
	}
	switch c.Transport {
	case TransportUDP, TransportGnet:
	default:
		return errors.Errorf("config: unknown transport %q", c.Transport)
	}
	if c.BufferSize <= 0 {
		return errors.Errorf("config: buffer size must be positive, got %d", c.BufferSize)
	}
	if c.PlayerTTL < 0 {
		return errors.Errorf("config: negative player ttl %v", c.PlayerTTL)
	}
	if c.SweepInterval < 0 {
		return errors.Errorf("config: negative sweep interval %v", c.SweepInterval)
	}
	return nil
}
