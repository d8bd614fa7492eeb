//go:build linux

package server

import "golang.org/x/sys/unix"

// accept 取出一个已完成握手的连接，直接以非阻塞 + CLOEXEC 创建
func accept(lfd int) (int, unix.Sockaddr, error) {
	return unix.Accept4(lfd, unix.SOCK_NONBLOCK|unix.SOCK_CLOEXEC)
}
