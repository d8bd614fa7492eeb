package linelog

import (
	"errors"

	"github.com/legamerdc/linelog/config"
	"github.com/legamerdc/linelog/server"
)

// 进程退出码
const (
	ExitOK       = 0
	ExitFailure  = 1
	ExitConfig   = 2
	ExitSocket   = 10
	ExitSockopt  = 11
	ExitBind     = 12
	ExitListen   = 13
	ExitPoller   = 14
	ExitRegister = 15
	ExitSink     = 16
)

var stepCodes = map[server.Step]int{
	server.StepSocket:   ExitSocket,
	server.StepSockopt:  ExitSockopt,
	server.StepBind:     ExitBind,
	server.StepListen:   ExitListen,
	server.StepPoller:   ExitPoller,
	server.StepRegister: ExitRegister,
	server.StepSink:     ExitSink,
}

// ExitCode 将 Run 返回的错误映射为退出码，每个启动阶段各不相同
func ExitCode(err error) int {
	if err == nil {
		return ExitOK
	}
	var ce *config.ConfigError
	if errors.As(err, &ce) {
		return ExitConfig
	}
	var se *server.SetupError
	if errors.As(err, &se) {
		if code, ok := stepCodes[se.Step]; ok {
			return code
		}
	}
	return ExitFailure
}
