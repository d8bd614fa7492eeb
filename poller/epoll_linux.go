//go:build linux

package poller

import (
	"os"
	"runtime"
	"sync/atomic"

	"go.uber.org/multierr"
	"golang.org/x/sys/unix"
)

// epoll 实现：连接 fd 以 EPOLLIN|EPOLLRDHUP|EPOLLET 注册，eventfd 用于跨 goroutine 唤醒
type epollPoller struct {
	efd     int
	wfd     int
	stopped atomic.Bool
	closed  bool
}

func New() (Poller, error) {
	efd, err := unix.EpollCreate1(unix.EPOLL_CLOEXEC)
	if err != nil {
		return nil, os.NewSyscallError("epoll_create1", err)
	}
	wfd, err := unix.Eventfd(0, unix.EFD_NONBLOCK|unix.EFD_CLOEXEC)
	if err != nil {
		unix.Close(efd)
		return nil, os.NewSyscallError("eventfd", err)
	}
	p := &epollPoller{efd: efd, wfd: wfd}
	if err := p.ctl(unix.EPOLL_CTL_ADD, wfd, unix.EPOLLIN|unix.EPOLLET); err != nil {
		p.Close()
		return nil, err
	}
	return p, nil
}

func (p *epollPoller) ctl(op, fd int, events uint32) error {
	var ev *unix.EpollEvent
	if op != unix.EPOLL_CTL_DEL {
		ev = &unix.EpollEvent{Events: events, Fd: int32(fd)}
	}
	return os.NewSyscallError("epoll_ctl", unix.EpollCtl(p.efd, op, fd, ev))
}

func (p *epollPoller) Register(fd FD) error {
	return p.ctl(unix.EPOLL_CTL_ADD, fd, unix.EPOLLIN|unix.EPOLLRDHUP|unix.EPOLLET)
}

func (p *epollPoller) Unregister(fd FD) error {
	return p.ctl(unix.EPOLL_CTL_DEL, fd, 0)
}

// wake 计数器已满（EAGAIN）时 Run 必然会被唤醒，视为成功
func (p *epollPoller) wake() error {
	one := [8]byte{1}
	if _, err := unix.Write(p.wfd, one[:]); err != nil && err != unix.EAGAIN {
		return os.NewSyscallError("eventfd write", err)
	}
	return nil
}

func (p *epollPoller) Stop() error {
	p.stopped.Store(true)
	return p.wake()
}

func (p *epollPoller) Close() error {
	if p.closed {
		return nil
	}
	p.closed = true
	return multierr.Combine(unix.Close(p.wfd), unix.Close(p.efd))
}

func (p *epollPoller) Run(h Handler) error {
	defer runtime.KeepAlive(p)
	events := make([]unix.EpollEvent, maxEvents)
	var scratch [8]byte
	for !p.stopped.Load() {
		n, err := unix.EpollWait(p.efd, events, -1)
		if err == unix.EINTR {
			continue
		}
		if err != nil {
			return os.NewSyscallError("epoll_wait", err)
		}
		for _, ev := range events[:n] {
			fd := int(ev.Fd)
			if fd == p.wfd {
				if err := drainWakeup(p.wfd, scratch[:]); err != nil {
					return os.NewSyscallError("eventfd read", err)
				}
				continue
			}
			dispatch(h, fd, ev.Events&(unix.EPOLLERR|unix.EPOLLHUP) != 0)
		}
	}
	return nil
}
