//go:build !linux && !darwin

package poller

import "errors"

// ErrPlatformNotSupported 非 Linux/Darwin 平台没有可用的就绪通知机制
var ErrPlatformNotSupported = errors.New("poller: platform not supported (requires epoll or kqueue)")

func New() (Poller, error) { return nil, ErrPlatformNotSupported }
