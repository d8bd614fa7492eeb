// Package linelog 把 TCP 上收到的换行分隔记录逐条追加到日志目标。
//
// 一个 Daemon 由一个 sink 与一个单线程 reactor 组成：
//
//	d, err := linelog.New(cfg, log)
//	if err != nil { ... }
//	err = d.Run(ctx) // ctx 取消后优雅退出
package linelog

import (
	"context"
	"net"
	"time"

	"go.uber.org/multierr"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/legamerdc/linelog/config"
	"github.com/legamerdc/linelog/server"
	"github.com/legamerdc/linelog/sink"
)

// ShutdownTimeout 等待事件循环退出的上限
var ShutdownTimeout = 5 * time.Second

type Daemon struct {
	cfg  config.Config
	log  *zap.Logger
	sink sink.Sink
	srv  *server.Server
}

// New 校验配置、打开 sink 并绑定监听端口。失败时已打开的资源会被释放。
func New(cfg config.Config, log *zap.Logger) (*Daemon, error) {
	if log == nil {
		log = zap.NewNop()
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	snk, err := sink.Open(cfg.SinkOptions(), log.Named("sink"))
	if err != nil {
		return nil, &server.SetupError{Step: server.StepSink, Addr: cfg.Sink.Path, Err: err}
	}
	srv, err := server.Listen(cfg.ServerOptions(), snk, log.Named("server"))
	if err != nil {
		return nil, multierr.Append(err, snk.Close())
	}
	return &Daemon{cfg: cfg, log: log, sink: snk, srv: srv}, nil
}

// Addr 实际监听地址
func (d *Daemon) Addr() *net.TCPAddr { return d.srv.Addr() }

func (d *Daemon) Stats() server.StatsSnapshot { return d.srv.Stats() }

// Run 运行事件循环直到 ctx 取消或循环出错，随后关闭 sink。只能调用一次。
func (d *Daemon) Run(ctx context.Context) (err error) {
	defer func() {
		err = multierr.Append(err, d.sink.Close())
	}()

	d.log.Info("linelog started",
		zap.Stringer("addr", d.srv.Addr()),
		zap.String("sink", d.cfg.Sink.Driver),
		zap.String("path", d.cfg.Sink.Path),
		zap.Int("max_line", d.cfg.Conn.MaxLine))

	g, gctx := errgroup.WithContext(ctx)
	served := make(chan struct{})
	g.Go(func() error {
		defer close(served)
		return d.srv.Serve()
	})
	g.Go(func() error {
		select {
		case <-gctx.Done():
		case <-served:
			return nil
		}
		d.log.Info("shutting down")
		sctx, cancel := context.WithTimeout(context.Background(), ShutdownTimeout)
		defer cancel()
		return d.srv.Stop(sctx)
	})
	return g.Wait()
}

// Run 是 New 加 Daemon.Run
func Run(ctx context.Context, cfg config.Config, log *zap.Logger) error {
	d, err := New(cfg, log)
	if err != nil {
		return err
	}
	return d.Run(ctx)
}
