//go:build linux || darwin

package netutil

import (
	"net"
	"net/netip"

	"golang.org/x/sys/unix"
)

func SetNonblock(fd int, nonblock bool) error {
	return unix.SetNonblock(fd, nonblock)
}

func SetReuseAddr(fd int, enable bool) error {
	v := 0
	if enable {
		v = 1
	}
	return unix.SetsockoptInt(fd, unix.SOL_SOCKET, unix.SO_REUSEADDR, v)
}

func SetRecvBuf(fd int, n int) error {
	return unix.SetsockoptInt(fd, unix.SOL_SOCKET, unix.SO_RCVBUF, n)
}

// SockaddrToTCPAddr 将 unix.Sockaddr 转换为 *net.TCPAddr；未知类型返回 nil
func SockaddrToTCPAddr(sa unix.Sockaddr) *net.TCPAddr {
	switch a := sa.(type) {
	case *unix.SockaddrInet4:
		return &net.TCPAddr{IP: net.IP(a.Addr[:]).To16(), Port: a.Port}
	case *unix.SockaddrInet6:
		return net.TCPAddrFromAddrPort(netip.AddrPortFrom(netip.AddrFrom16(a.Addr), uint16(a.Port)))
	}
	return nil
}

// TCPAddrToSockaddr 构造 bind 所需的 Sockaddr；IP 为空时绑定全部地址
func TCPAddrToSockaddr(addr *net.TCPAddr, v6 bool) unix.Sockaddr {
	if v6 {
		var sa6 unix.SockaddrInet6
		if addr.IP != nil {
			copy(sa6.Addr[:], addr.IP.To16())
		}
		sa6.Port = addr.Port
		return &sa6
	}
	var sa4 unix.SockaddrInet4
	if ip4 := addr.IP.To4(); ip4 != nil {
		copy(sa4.Addr[:], ip4)
	}
	sa4.Port = addr.Port
	return &sa4
}

// LocalAddr 返回 fd 绑定的本地地址
func LocalAddr(fd int) (*net.TCPAddr, error) {
	sa, err := unix.Getsockname(fd)
	if err != nil {
		return nil, err
	}
	return SockaddrToTCPAddr(sa), nil
}
