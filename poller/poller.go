// Package poller 封装就绪通知机制（Linux epoll / Darwin kqueue）。
//
// 所有 fd 以边缘触发方式注册读事件，Handler 必须在回调中读到 EAGAIN 为止。
package poller

import "errors"

// FD 表示文件描述符。
type FD = int

// ErrHangup 对端挂断或 socket 出错（无更具体的错误时使用）
var ErrHangup = errors.New("poller: hangup")

// Handler 是 poller 的事件回调接口。
// 在 Run 所在 goroutine 中调用，要求无阻塞返回。
type Handler interface {
	// OnReadable 在 fd 可读（含对端半关闭、出错）时调用
	OnReadable(fd FD)
	// OnClose 在 fd 报告 ERR/HUP 时于 OnReadable 之后调用，可能针对已关闭的 fd
	OnClose(fd FD, err error)
}

// Poller 提供注册/事件循环。
type Poller interface {
	Register(fd FD) error
	Unregister(fd FD) error
	// Run 阻塞直到 Stop；返回 nil 或等待本身的错误
	Run(h Handler) error
	// Stop 可跨 goroutine 调用，让 Run 在当前批次处理完后返回
	Stop() error
	// Close 释放底层 fd，应在 Run 返回后调用
	Close() error
}

// maxEvents 单次等待最多取回的事件数
const maxEvents = 1024
