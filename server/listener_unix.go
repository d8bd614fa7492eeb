//go:build linux || darwin

package server

import (
	"net"
	"strconv"
	"strings"

	"golang.org/x/sys/unix"

	"github.com/legamerdc/linelog/internal/netutil"
)

// openListener 依次完成 socket/setsockopt/bind/listen，失败时返回带阶段的 SetupError
func openListener(network, host string, port, backlog int) (int, error) {
	// 仅支持 tcp 与 tcp4/tcp6
	fam, resolveNet := unix.AF_INET, "tcp4"
	if strings.HasSuffix(network, "6") {
		fam, resolveNet = unix.AF_INET6, "tcp6"
	}
	hostport := net.JoinHostPort(host, strconv.Itoa(port))
	addr, err := net.ResolveTCPAddr(resolveNet, hostport)
	if err != nil {
		return -1, &SetupError{Step: StepBind, Addr: hostport, Err: err}
	}

	fd, err := unix.Socket(fam, unix.SOCK_STREAM, 0)
	if err != nil {
		return -1, &SetupError{Step: StepSocket, Addr: hostport, Err: err}
	}
	unix.CloseOnExec(fd)
	if err := netutil.SetReuseAddr(fd, true); err != nil {
		unix.Close(fd)
		return -1, &SetupError{Step: StepSockopt, Addr: hostport, Err: err}
	}
	if err := netutil.SetNonblock(fd, true); err != nil {
		unix.Close(fd)
		return -1, &SetupError{Step: StepSockopt, Addr: hostport, Err: err}
	}
	// 绑定
	if err := unix.Bind(fd, netutil.TCPAddrToSockaddr(addr, fam == unix.AF_INET6)); err != nil {
		unix.Close(fd)
		return -1, &SetupError{Step: StepBind, Addr: hostport, Err: err}
	}
	if err := unix.Listen(fd, backlog); err != nil {
		unix.Close(fd)
		return -1, &SetupError{Step: StepListen, Addr: hostport, Err: err}
	}
	return fd, nil
}

func closeFD(fd int) error { return unix.Close(fd) }
