//go:build darwin

package poller

import (
	"os"
	"runtime"
	"sync/atomic"

	"go.uber.org/multierr"
	"golang.org/x/sys/unix"
)

// kqueue 实现：EVFILT_READ + EV_CLEAR 等价于边缘触发，非阻塞管道用于唤醒
type kqueuePoller struct {
	kq      int
	rfd     int // 管道读端，注册到 kqueue
	wfd     int
	stopped atomic.Bool
	closed  bool
}

func New() (Poller, error) {
	kq, err := unix.Kqueue()
	if err != nil {
		return nil, os.NewSyscallError("kqueue", err)
	}
	unix.CloseOnExec(kq)
	var fds [2]int
	if err := unix.Pipe(fds[:]); err != nil {
		unix.Close(kq)
		return nil, os.NewSyscallError("pipe", err)
	}
	p := &kqueuePoller{kq: kq, rfd: fds[0], wfd: fds[1]}
	for _, fd := range fds {
		unix.CloseOnExec(fd)
		if err := unix.SetNonblock(fd, true); err != nil {
			p.Close()
			return nil, os.NewSyscallError("fcntl", err)
		}
	}
	if err := p.change(p.rfd, unix.EV_ADD|unix.EV_CLEAR); err != nil {
		p.Close()
		return nil, err
	}
	return p, nil
}

func (p *kqueuePoller) change(fd int, flags uint16) error {
	kev := []unix.Kevent_t{{Ident: uint64(fd), Filter: unix.EVFILT_READ, Flags: flags}}
	_, err := unix.Kevent(p.kq, kev, nil, nil)
	return os.NewSyscallError("kevent", err)
}

func (p *kqueuePoller) Register(fd FD) error {
	return p.change(fd, unix.EV_ADD|unix.EV_CLEAR)
}

func (p *kqueuePoller) Unregister(fd FD) error {
	return p.change(fd, unix.EV_DELETE)
}

// wake 管道已满（EAGAIN）时 Run 必然会被唤醒，视为成功
func (p *kqueuePoller) wake() error {
	one := [1]byte{1}
	if _, err := unix.Write(p.wfd, one[:]); err != nil && err != unix.EAGAIN {
		return os.NewSyscallError("pipe write", err)
	}
	return nil
}

func (p *kqueuePoller) Stop() error {
	p.stopped.Store(true)
	return p.wake()
}

func (p *kqueuePoller) Close() error {
	if p.closed {
		return nil
	}
	p.closed = true
	return multierr.Combine(unix.Close(p.rfd), unix.Close(p.wfd), unix.Close(p.kq))
}

func (p *kqueuePoller) Run(h Handler) error {
	defer runtime.KeepAlive(p)
	events := make([]unix.Kevent_t, maxEvents)
	scratch := make([]byte, 64)
	for !p.stopped.Load() {
		n, err := unix.Kevent(p.kq, nil, events, nil)
		if err == unix.EINTR {
			continue
		}
		if err != nil {
			return os.NewSyscallError("kevent", err)
		}
		for _, ev := range events[:n] {
			fd := int(ev.Ident)
			switch {
			case fd == p.rfd:
				if err := drainWakeup(p.rfd, scratch); err != nil {
					return os.NewSyscallError("pipe read", err)
				}
			case ev.Filter == unix.EVFILT_READ:
				dispatch(h, fd, ev.Flags&(unix.EV_EOF|unix.EV_ERROR) != 0)
			}
		}
	}
	return nil
}
