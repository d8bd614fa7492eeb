package sink

import (
	"io"
	"os"
	"time"

	"github.com/klauspost/compress/zstd"
	"go.uber.org/multierr"
	"go.uber.org/zap"
)

// File 以追加模式持有一个日志文件句柄，跨写入保持打开。
// 每条记录连同 '\n' 以一次 write 提交（O_APPEND 下不会与其他写者交错）。
type File struct {
	opts Options
	log  *zap.Logger

	f        logFile
	zw       *zstd.Encoder // 仅 compression=zstd
	openFile func(path string) (logFile, error)

	buf    []byte
	bo     *backoff
	now    func() time.Time
	closed bool
}

// NewFile 构造文件 Sink，不触碰文件系统
func NewFile(opts Options, log *zap.Logger) *File {
	if log == nil {
		log = zap.NewNop()
	}
	return &File{
		opts: opts,
		log:  log,
		bo:   newBackoff(opts.RetryInitial, opts.RetryMax),
		now:  time.Now,

		openFile: openAppend,
	}
}

// logFile 是 *os.File 中 File 用到的部分
type logFile interface {
	io.Writer
	Sync() error
	Close() error
}

func openAppend(path string) (logFile, error) {
	return os.OpenFile(path, os.O_WRONLY|os.O_APPEND|os.O_CREATE, 0o644)
}

// Write 追加 rec 与一个换行。
// 打开失败后进入退避期，期间直接返回 ErrUnavailable，不阻塞调用方。
func (s *File) Write(rec []byte) error {
	if s.closed {
		return ErrClosed
	}
	if s.f == nil {
		now := s.now()
		if !s.bo.ready(now) {
			return ErrUnavailable
		}
		if err := s.open(); err != nil {
			wait := s.bo.fail(now)
			s.log.Warn("open failed, backing off",
				zap.String("path", s.opts.Path), zap.Duration("retry_in", wait), zap.Error(err))
			return &WriteError{Op: "open", Path: s.opts.Path, Err: err}
		}
		s.bo.reset()
	}

	s.buf = append(append(s.buf[:0], rec...), Delim)
	op := "write"
	var err error
	if s.zw != nil {
		if _, err = s.zw.Write(s.buf); err == nil {
			err = s.zw.Flush()
		}
	} else {
		var n int
		n, err = s.f.Write(s.buf)
		if err != nil && n > 0 && n < len(s.buf) {
			// 已写入半条记录：补一个换行结束残片，避免与下一条记录粘连
			if _, terr := s.f.Write([]byte{Delim}); terr != nil {
				s.log.Debug("terminate partial record", zap.Int("written", n), zap.Error(terr))
			}
		}
	}
	if err == nil && s.opts.Sync {
		op = "sync"
		err = s.f.Sync()
	}
	if err != nil {
		// 丢弃句柄，下一条记录重新打开
		if cerr := s.release(); cerr != nil {
			s.log.Debug("release after failure", zap.Error(cerr))
		}
		return &WriteError{Op: op, Path: s.opts.Path, Err: err}
	}
	if cap(s.buf) > 64<<10 {
		s.buf = nil
	}
	return nil
}

func (s *File) open() error {
	f, err := s.openFile(s.opts.Path)
	if err != nil {
		return err
	}
	if s.opts.Compression == CompressionZstd {
		zw, err := zstd.NewWriter(f, zstd.WithEncoderLevel(zstd.SpeedFastest))
		if err != nil {
			f.Close()
			return err
		}
		s.zw = zw
	}
	s.f = f
	s.log.Info("opened", zap.String("path", s.opts.Path), zap.String("compression", s.compression()))
	return nil
}

func (s *File) release() error {
	var err error
	if s.zw != nil {
		err = multierr.Append(err, s.zw.Close())
		s.zw = nil
	}
	if s.f != nil {
		err = multierr.Append(err, s.f.Close())
		s.f = nil
	}
	return err
}

func (s *File) compression() string {
	if s.opts.Compression == "" {
		return CompressionNone
	}
	return s.opts.Compression
}

// Close 关闭文件；重复调用返回 nil
func (s *File) Close() error {
	if s.closed {
		return nil
	}
	s.closed = true
	return s.release()
}
