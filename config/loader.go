package config

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

// LoadFile 将 YAML 文件叠加到 cfg 上；文件中未出现的字段保持原值。
func LoadFile(cfg *Config, path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("config: read %s: %w", path, err)
	}
	return Decode(cfg, data)
}

// Decode 叠加 YAML 内容，拒绝未知字段
func Decode(cfg *Config, data []byte) error {
	dec := yaml.NewDecoder(bytes.NewReader(data))
	dec.KnownFields(true)
	if err := dec.Decode(cfg); err != nil && !errors.Is(err, io.EOF) {
		return fmt.Errorf("config: decode: %w", err)
	}
	return nil
}

// 所有环境变量使用 LINELOG_ 前缀；非法取值返回 ConfigError。

// LoadFromEnv 用非空环境变量覆盖 cfg，应在解析命令行之前调用
func LoadFromEnv(cfg *Config) error {
	return loadFromEnv(cfg, os.LookupEnv)
}

func loadFromEnv(cfg *Config, lookup func(string) (string, bool)) error {
	var err error
	str := func(key string, dst *string) {
		if v, ok := lookup(key); ok && v != "" {
			*dst = v
		}
	}
	num := func(key string, dst *int) {
		if v, ok := lookup(key); ok && v != "" {
			n, perr := strconv.Atoi(v)
			if perr != nil {
				err = errors.Join(err, &ConfigError{Field: key, Value: v, Message: "not an integer"})
				return
			}
			*dst = n
		}
	}
	dur := func(key string, dst *time.Duration) {
		if v, ok := lookup(key); ok && v != "" {
			d, perr := time.ParseDuration(v)
			if perr != nil {
				err = errors.Join(err, &ConfigError{Field: key, Value: v, Message: "not a duration"})
				return
			}
			*dst = d
		}
	}
	flag := func(key string, dst *bool) {
		if v, ok := lookup(key); ok && v != "" {
			b, perr := envBool(v)
			if perr != nil {
				err = errors.Join(err, &ConfigError{Field: key, Value: v, Message: "not a boolean"})
				return
			}
			*dst = b
		}
	}

	str("LINELOG_ADDRESS", &cfg.Listen.Address)
	num("LINELOG_PORT", &cfg.Listen.Port)
	num("LINELOG_BACKLOG", &cfg.Listen.Backlog)
	num("LINELOG_RECV_BUFFER", &cfg.Listen.RecvBuffer)

	num("LINELOG_READ_BUFFER", &cfg.Conn.ReadBuffer)
	num("LINELOG_MAX_LINE", &cfg.Conn.MaxLine)
	num("LINELOG_MAX_CONNECTIONS", &cfg.Conn.MaxConnections)

	str("LINELOG_SINK_DRIVER", &cfg.Sink.Driver)
	str("LINELOG_LOG_PATH", &cfg.Sink.Path)
	flag("LINELOG_SYNC", &cfg.Sink.Sync)
	str("LINELOG_COMPRESSION", &cfg.Sink.Compression)
	dur("LINELOG_RETRY_INITIAL", &cfg.Sink.RetryInitial)
	dur("LINELOG_RETRY_MAX", &cfg.Sink.RetryMax)

	str("LINELOG_LOG_LEVEL", &cfg.Logging.Level)
	str("LINELOG_LOG_FORMAT", &cfg.Logging.Format)

	flag("LINELOG_GOPS", &cfg.Debug.Gops)
	return err
}

// envBool 在 strconv.ParseBool 之外接受 yes/no 与 on/off（不区分大小写）
func envBool(v string) (bool, error) {
	switch strings.ToLower(v) {
	case "yes", "on":
		return true, nil
	case "no", "off":
		return false, nil
	}
	return strconv.ParseBool(v)
}
