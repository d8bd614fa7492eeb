package config

import "time"

// 默认值集中于此，便于 CLI、配置文件与环境变量共用

const (
	DefaultAddress        = "0.0.0.0"
	DefaultPort           = 9999
	DefaultBacklog        = 128
	DefaultReadBuffer     = 64 << 10
	DefaultMaxLine        = 1 << 20 // 1 MiB，超出即断开连接
	DefaultSinkDriver     = "file"
	DefaultLogPath        = "sql_queries.log"
	DefaultCompression    = "none"
	DefaultRetryInitial   = 100 * time.Millisecond
	DefaultRetryMax       = 30 * time.Second
	DefaultLogLevel       = "info"
	DefaultLogFormat      = "auto"
	DefaultMaxConnections = 0
)

// Default 返回一份可直接运行的配置
func Default() Config {
	return Config{
		Listen: ListenConfig{
			Address: DefaultAddress,
			Port:    DefaultPort,
			Backlog: DefaultBacklog,
		},
		Conn: ConnConfig{
			ReadBuffer:     DefaultReadBuffer,
			MaxLine:        DefaultMaxLine,
			MaxConnections: DefaultMaxConnections,
		},
		Sink: SinkConfig{
			Driver:       DefaultSinkDriver,
			Path:         DefaultLogPath,
			Compression:  DefaultCompression,
			RetryInitial: DefaultRetryInitial,
			RetryMax:     DefaultRetryMax,
		},
		Logging: LoggingConfig{
			Level:  DefaultLogLevel,
			Format: DefaultLogFormat,
		},
	}
}
