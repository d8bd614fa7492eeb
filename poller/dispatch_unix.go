//go:build linux || darwin

package poller

import "golang.org/x/sys/unix"

// dispatch 先读后关：对端发完数据立即关闭时，数据与挂断可能同批到达
func dispatch(h Handler, fd FD, hangup bool) {
	h.OnReadable(fd)
	if hangup {
		h.OnClose(fd, ErrHangup)
	}
}

// drainWakeup 读空唤醒 fd（eventfd 或管道读端）
func drainWakeup(fd int, buf []byte) error {
	for {
		_, err := unix.Read(fd, buf)
		switch err {
		case nil, unix.EINTR:
		case unix.EAGAIN:
			return nil
		default:
			return err
		}
	}
}
