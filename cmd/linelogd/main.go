// Command linelogd 监听 TCP 端口，把每条以 '\n' 结尾的记录追加到日志文件。
package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/legamerdc/linelog"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	err := newRootCommand(linelog.Run).ExecuteContext(ctx)
	stop()
	if err != nil {
		fmt.Fprintf(os.Stderr, "linelogd: %v\n", err)
		os.Exit(linelog.ExitCode(err))
	}
}
