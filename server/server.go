//go:build linux || darwin

package server

import (
	"context"
	"errors"
	"net"
	"sync"
	"sync/atomic"
	"time"

	"go.uber.org/multierr"
	"go.uber.org/zap"
	"golang.org/x/sys/unix"

	"github.com/legamerdc/linelog/framer"
	"github.com/legamerdc/linelog/internal/netutil"
	"github.com/legamerdc/linelog/poller"
	"github.com/legamerdc/linelog/sink"
)

// Server 是单线程 reactor：一个 goroutine 独占 poller、连接表、各连接的 Framer 与 sink。
// 除 Stop/Addr/Stats 外的方法都只在 Serve 所在 goroutine 中执行。
type Server struct {
	opts Options
	log  *zap.Logger
	sink sink.Sink

	lfd  int
	addr *net.TCPAddr
	pl   poller.Poller
	reg  *Registry
	rbuf []byte // 中转缓冲，所有连接共用

	stats *Stats

	serving atomic.Bool
	done    chan struct{}

	mu     sync.Mutex // 保护 poller 的 Stop 与 Close 不并发
	closed bool
}

// Listen 创建监听 socket 与 poller 并注册监听 fd，不开始事件循环。
// sink 的生命周期由调用方管理。
func Listen(opts Options, snk sink.Sink, log *zap.Logger) (*Server, error) {
	if snk == nil {
		return nil, errors.New("server: nil sink")
	}
	if log == nil {
		log = zap.NewNop()
	}
	opts = opts.withDefaults()

	lfd, err := openListener(opts.Network, opts.Address, opts.Port, opts.Backlog)
	if err != nil {
		return nil, err
	}
	addr, err := netutil.LocalAddr(lfd)
	if err != nil {
		closeFD(lfd)
		return nil, &SetupError{Step: StepBind, Err: err}
	}
	p, err := poller.New()
	if err != nil {
		closeFD(lfd)
		return nil, &SetupError{Step: StepPoller, Err: err}
	}
	// 将 listener 文件描述符注册（边缘触发）
	if err := p.Register(lfd); err != nil {
		p.Close()
		closeFD(lfd)
		return nil, &SetupError{Step: StepRegister, Addr: addr.String(), Err: err}
	}

	return &Server{
		opts:  opts,
		log:   log,
		sink:  snk,
		lfd:   lfd,
		addr:  addr,
		pl:    p,
		reg:   NewRegistry(opts.MaxLineLength),
		rbuf:  make([]byte, opts.ReadBufferSize),
		stats: newStats(),
		done:  make(chan struct{}),
	}, nil
}

// Addr 返回实际监听地址（Port 为 0 时由内核分配）
func (s *Server) Addr() *net.TCPAddr { return s.addr }

// Stats 返回计数器快照
func (s *Server) Stats() StatsSnapshot { return s.stats.Snapshot() }

// Serve 运行事件循环，直到 Stop 被调用。返回前关闭所有连接、监听 fd 与 poller。
func (s *Server) Serve() error {
	if !s.serving.CompareAndSwap(false, true) {
		return ErrServerClosed
	}
	defer close(s.done)
	defer s.teardown()

	s.log.Info("serving", zap.Stringer("addr", s.addr), zap.Int("backlog", s.opts.Backlog))
	if err := s.pl.Run(s); err != nil {
		s.log.Error("poller wait failed", zap.Error(err))
		return err
	}
	return nil
}

// Stop 唤醒事件循环并等待其退出。可重复调用，也可在 Serve 之前调用。
func (s *Server) Stop(ctx context.Context) error {
	s.mu.Lock()
	if !s.closed {
		if err := s.pl.Stop(); err != nil {
			s.log.Warn("poller wakeup failed", zap.Error(err))
		}
	}
	s.mu.Unlock()

	// 从未 Serve：由这里负责清理
	if s.serving.CompareAndSwap(false, true) {
		s.teardown()
		close(s.done)
		return nil
	}
	select {
	case <-s.done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

func (s *Server) teardown() {
	var err error
	for c := range s.reg.All() {
		s.closeConn(c, ErrServerClosed)
	}
	err = multierr.Append(err, s.pl.Unregister(s.lfd))
	err = multierr.Append(err, closeFD(s.lfd))
	s.mu.Lock()
	s.closed = true
	err = multierr.Append(err, s.pl.Close())
	s.mu.Unlock()
	if err != nil {
		s.log.Warn("teardown", zap.Error(err))
	}
	s.log.Info("stopped", zap.Any("stats", s.stats.Snapshot()))
}

// OnReadable 实现 poller.Handler
func (s *Server) OnReadable(fd poller.FD) {
	if fd == s.lfd {
		s.acceptAll()
		return
	}
	c, ok := s.reg.Get(fd)
	if !ok {
		// 未知 fd：不属于我们，只取消注册
		s.log.Warn("readiness for unknown fd", zap.Int("fd", fd))
		if err := s.pl.Unregister(fd); err != nil {
			s.log.Debug("unregister unknown fd", zap.Int("fd", fd), zap.Error(err))
		}
		return
	}
	s.drain(c)
}

// OnClose 实现 poller.Handler；连接已在 OnReadable 中关闭时为空操作
func (s *Server) OnClose(fd poller.FD, err error) {
	if fd == s.lfd {
		s.log.Error("listener reported error", zap.Error(err))
		return
	}
	if c, ok := s.reg.Get(fd); ok {
		s.closeConn(c, err)
	}
}

// acceptAll 边缘触发：accept 循环直到 EAGAIN
func (s *Server) acceptAll() {
	for {
		fd, sa, err := accept(s.lfd)
		if err != nil {
			switch err {
			case unix.EAGAIN:
				return
			case unix.EINTR, unix.ECONNABORTED:
				continue
			}
			// EMFILE 等：结束本轮，等待下一次就绪
			s.stats.acceptError()
			s.log.Warn("accept failed", zap.Error(err))
			return
		}
		s.admit(fd, sa)
	}
}

func (s *Server) admit(fd int, sa unix.Sockaddr) {
	remote := ""
	if a := netutil.SockaddrToTCPAddr(sa); a != nil {
		remote = a.String()
	}
	if s.opts.MaxConnections > 0 && s.reg.Len() >= s.opts.MaxConnections {
		closeFD(fd)
		s.stats.connRejected()
		s.log.Warn("connection limit reached, rejecting",
			zap.String("remote", remote), zap.Int("limit", s.opts.MaxConnections))
		return
	}
	if s.opts.RecvBuffer > 0 {
		if err := netutil.SetRecvBuf(fd, s.opts.RecvBuffer); err != nil {
			s.log.Debug("set SO_RCVBUF", zap.Int("fd", fd), zap.Error(err))
		}
	}
	// 先注册 poller 再登记，保持两者一致
	if err := s.pl.Register(fd); err != nil {
		closeFD(fd)
		s.stats.acceptError()
		s.log.Warn("register connection failed", zap.String("remote", remote), zap.Error(err))
		return
	}
	c := s.reg.Register(fd, remote)
	s.stats.connOpened()
	s.log.Debug("accepted", connFields(c)...)
}

// drain 读到 EAGAIN、EOF 或错误为止；每次读到的字节立即切行并写入 sink
func (s *Server) drain(c *Conn) {
	c.state = StateDraining
	for {
		n, err := unix.Read(c.fd, s.rbuf)
		if n > 0 {
			c.bytesIn += int64(n)
			s.stats.received(n)
			if ferr := s.frame(c, s.rbuf[:n]); ferr != nil {
				s.stats.overflow()
				s.closeConn(c, ferr)
				return
			}
		}
		switch {
		case err == unix.EINTR:
			continue
		case err == unix.EAGAIN || err == unix.EWOULDBLOCK:
			c.state = StateReadablePending
			return
		case err != nil:
			s.closeConn(c, err)
			return
		case n == 0:
			// 对端关闭
			s.closeConn(c, nil)
			return
		}
	}
}

func (s *Server) frame(c *Conn, p []byte) error {
	for line, err := range c.framer.Feed(p) {
		if err != nil {
			return err
		}
		s.deliver(c, line)
	}
	return nil
}

// deliver 写入失败只记录并计数，连接保持
func (s *Server) deliver(c *Conn, line []byte) {
	c.records++
	if err := s.sink.Write(line); err != nil {
		s.stats.recordDropped()
		if errors.Is(err, sink.ErrUnavailable) {
			s.log.Debug("record dropped", append(connFields(c), zap.Error(err))...)
			return
		}
		s.log.Warn("record dropped", append(connFields(c), zap.Int("len", len(line)), zap.Error(err))...)
		return
	}
	s.stats.recordWritten()
}

// closeConn 每条连接只生效一次：取消注册、关闭 fd、移出连接表
func (s *Server) closeConn(c *Conn, cause error) {
	if _, ok := s.reg.Unregister(c.fd); !ok {
		return
	}
	if err := s.pl.Unregister(c.fd); err != nil {
		s.log.Debug("unregister", zap.Int("fd", c.fd), zap.Error(err))
	}
	if err := closeFD(c.fd); err != nil {
		s.log.Debug("close", zap.Int("fd", c.fd), zap.Error(err))
	}
	c.state = StateClosed
	s.stats.connClosed()

	fields := append(connFields(c),
		zap.Int64("bytes", c.bytesIn),
		zap.Int64("records", c.records),
		zap.Duration("age", time.Since(c.Accepted)))
	if n := c.framer.Len(); n > 0 {
		fields = append(fields, zap.Int("discarded", n))
	}
	switch {
	case cause == nil:
		s.log.Debug("closed by peer", fields...)
	case errors.Is(cause, framer.ErrLineTooLong):
		s.log.Warn("line too long, dropping connection", append(fields, zap.Int("limit", s.opts.MaxLineLength))...)
	case errors.Is(cause, ErrServerClosed):
		s.log.Debug("closed on shutdown", fields...)
	default:
		s.log.Info("closed on error", append(fields, zap.Error(cause))...)
	}
	c.framer.Reset()
}

func connFields(c *Conn) []zap.Field {
	return []zap.Field{
		zap.Uint64("conn", c.ID),
		zap.Stringer("session", c.Session),
		zap.String("remote", c.Remote),
		zap.Int("fd", c.fd),
	}
}
