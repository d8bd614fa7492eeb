package server

import (
	"errors"
	"fmt"
)

var (
	// ErrServerClosed Serve 在 Stop 之后被调用，或被重复调用
	ErrServerClosed = errors.New("server: closed")
	// ErrPlatformNotSupported 需要 epoll 或 kqueue
	ErrPlatformNotSupported = errors.New("server: platform not supported (requires Linux/Darwin)")
)

// Step 标识启动阶段
type Step string

const (
	StepSocket   Step = "socket"
	StepSockopt  Step = "setsockopt"
	StepBind     Step = "bind"
	StepListen   Step = "listen"
	StepPoller   Step = "poller"
	StepRegister Step = "register"
	StepSink     Step = "sink"
)

// SetupError 启动失败，Step 指出失败的阶段
type SetupError struct {
	Step Step
	Addr string
	Err  error
}

func (e *SetupError) Error() string {
	if e.Addr != "" {
		return fmt.Sprintf("setup %s %s: %v", e.Step, e.Addr, e.Err)
	}
	return fmt.Sprintf("setup %s: %v", e.Step, e.Err)
}

func (e *SetupError) Unwrap() error { return e.Err }
