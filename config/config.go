// Package config 定义 linelogd 的运行配置。
//
// 优先级（高者覆盖低者）：命令行参数 > LINELOG_* 环境变量 > YAML 配置文件 > 默认值。
package config

import (
	"fmt"
	"time"

	"github.com/legamerdc/linelog/server"
	"github.com/legamerdc/linelog/sink"
)

type Config struct {
	Listen  ListenConfig  `yaml:"listen"`
	Conn    ConnConfig    `yaml:"conn"`
	Sink    SinkConfig    `yaml:"sink"`
	Logging LoggingConfig `yaml:"logging"`
	Debug   DebugConfig   `yaml:"debug"`
}

type ListenConfig struct {
	Address    string `yaml:"address"` // 空或 0.0.0.0 表示全部接口
	Port       int    `yaml:"port"`    // 0 由内核分配
	Backlog    int    `yaml:"backlog"`
	RecvBuffer int    `yaml:"recv_buffer"` // SO_RCVBUF，0 为系统默认
}

type ConnConfig struct {
	ReadBuffer     int `yaml:"read_buffer"`
	MaxLine        int `yaml:"max_line"`        // 0 不限制（内存无界增长）
	MaxConnections int `yaml:"max_connections"` // 0 不限制
}

type SinkConfig struct {
	Driver       string        `yaml:"driver"` // file / sqlite
	Path         string        `yaml:"path"`
	Sync         bool          `yaml:"sync"`
	Compression  string        `yaml:"compression"` // none / zstd
	RetryInitial time.Duration `yaml:"retry_initial"`
	RetryMax     time.Duration `yaml:"retry_max"`
}

type LoggingConfig struct {
	Level  string `yaml:"level"`  // debug / info / warn / error
	Format string `yaml:"format"` // auto / console / json
}

type DebugConfig struct {
	Gops bool `yaml:"gops"` // 启动 gops agent
}

// ConfigError 某个字段取值非法
type ConfigError struct {
	Field   string
	Value   any
	Message string
}

func (e *ConfigError) Error() string {
	msg := "config: " + e.Field
	if e.Value != nil {
		msg += fmt.Sprintf("=%v", e.Value)
	}
	return msg + ": " + e.Message
}

// Validate 检查配置的一致性
func (c *Config) Validate() error {
	if c.Listen.Port < 0 || c.Listen.Port > 65535 {
		return &ConfigError{Field: "listen.port", Value: c.Listen.Port, Message: "out of range 0-65535"}
	}
	if c.Listen.Backlog < 0 {
		return &ConfigError{Field: "listen.backlog", Value: c.Listen.Backlog, Message: "must not be negative"}
	}
	if c.Listen.RecvBuffer < 0 {
		return &ConfigError{Field: "listen.recv_buffer", Value: c.Listen.RecvBuffer, Message: "must not be negative"}
	}
	if c.Conn.ReadBuffer <= 0 {
		return &ConfigError{Field: "conn.read_buffer", Value: c.Conn.ReadBuffer, Message: "must be positive"}
	}
	if c.Conn.MaxLine < 0 {
		return &ConfigError{Field: "conn.max_line", Value: c.Conn.MaxLine, Message: "must not be negative (0 disables the limit)"}
	}
	if c.Conn.MaxConnections < 0 {
		return &ConfigError{Field: "conn.max_connections", Value: c.Conn.MaxConnections, Message: "must not be negative"}
	}
	switch c.Sink.Driver {
	case sink.DriverFile, sink.DriverSQLite:
	default:
		return &ConfigError{Field: "sink.driver", Value: c.Sink.Driver, Message: "must be file or sqlite"}
	}
	if c.Sink.Path == "" {
		return &ConfigError{Field: "sink.path", Message: "is required"}
	}
	switch c.Sink.Compression {
	case sink.CompressionNone, "":
	case sink.CompressionZstd:
		if c.Sink.Driver != sink.DriverFile {
			return &ConfigError{Field: "sink.compression", Value: c.Sink.Compression, Message: "only supported by the file driver"}
		}
	default:
		return &ConfigError{Field: "sink.compression", Value: c.Sink.Compression, Message: "must be none or zstd"}
	}
	if c.Sink.RetryInitial < 0 || c.Sink.RetryMax < 0 {
		return &ConfigError{Field: "sink.retry_initial", Value: c.Sink.RetryInitial, Message: "durations must not be negative"}
	}
	switch c.Logging.Level {
	case "debug", "info", "warn", "error":
	default:
		return &ConfigError{Field: "logging.level", Value: c.Logging.Level, Message: "must be debug, info, warn or error"}
	}
	switch c.Logging.Format {
	case "auto", "console", "json":
	default:
		return &ConfigError{Field: "logging.format", Value: c.Logging.Format, Message: "must be auto, console or json"}
	}
	return nil
}

// ServerOptions 转换为 reactor 选项
func (c *Config) ServerOptions() server.Options {
	return server.Options{
		Network:        "tcp",
		Address:        c.Listen.Address,
		Port:           c.Listen.Port,
		Backlog:        c.Listen.Backlog,
		RecvBuffer:     c.Listen.RecvBuffer,
		ReadBufferSize: c.Conn.ReadBuffer,
		MaxLineLength:  c.Conn.MaxLine,
		MaxConnections: c.Conn.MaxConnections,
	}
}

// SinkOptions 转换为 sink 选项
func (c *Config) SinkOptions() sink.Options {
	return sink.Options{
		Driver:       c.Sink.Driver,
		Path:         c.Sink.Path,
		Sync:         c.Sink.Sync,
		Compression:  c.Sink.Compression,
		RetryInitial: c.Sink.RetryInitial,
		RetryMax:     c.Sink.RetryMax,
	}
}
