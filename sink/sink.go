// Package sink 将记录逐条追加到持久化目标。
//
// 所有写入都来自同一个 poller 线程，因此实现不加锁；
// 若将来引入多个写者，必须在外层串行化。
package sink

import (
	"errors"
	"fmt"
	"time"

	"go.uber.org/zap"
)

const (
	DriverFile   = "file"
	DriverSQLite = "sqlite"

	CompressionNone = "none"
	CompressionZstd = "zstd"

	// Delim 追加在每条记录之后
	Delim = '\n'
)

var (
	// ErrUnavailable 目标处于重试退避期，记录被丢弃
	ErrUnavailable = errors.New("sink: destination unavailable")
	// ErrClosed Sink 已关闭
	ErrClosed = errors.New("sink: closed")
	// ErrUnknownDriver 未知驱动
	ErrUnknownDriver = errors.New("sink: unknown driver")
)

// Sink 接收一条记录并在返回前完成追加
type Sink interface {
	Write(rec []byte) error
	Close() error
}

// Options 为 Sink 配置
type Options struct {
	Driver       string        // file / sqlite
	Path         string        // 文件路径或 sqlite 数据库路径
	Sync         bool          // 每条记录后 fsync（仅 file）
	Compression  string        // none / zstd（仅 file）
	RetryInitial time.Duration // 打开失败后的首次退避
	RetryMax     time.Duration // 退避上限
}

// WriteError 描述一次失败的追加
type WriteError struct {
	Op   string // open / write / sync / insert
	Path string
	Err  error
}

func (e *WriteError) Error() string {
	return fmt.Sprintf("sink: %s %s: %v", e.Op, e.Path, e.Err)
}

func (e *WriteError) Unwrap() error { return e.Err }

// Open 按驱动构造 Sink。file 驱动惰性打开，首次 Write 时才创建文件。
func Open(opts Options, log *zap.Logger) (Sink, error) {
	if log == nil {
		log = zap.NewNop()
	}
	switch opts.Driver {
	case "", DriverFile:
		return NewFile(opts, log), nil
	case DriverSQLite:
		return OpenSQLite(opts.Path, log)
	default:
		return nil, fmt.Errorf("%w %q", ErrUnknownDriver, opts.Driver)
	}
}
