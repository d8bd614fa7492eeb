package main

import (
	"context"
	"fmt"
	"os"

	"github.com/google/gops/agent"
	"github.com/spf13/cobra"
	"github.com/spf13/pflag"
	"go.uber.org/zap"
	"gopkg.in/yaml.v3"

	"github.com/legamerdc/linelog/config"
	"github.com/legamerdc/linelog/internal/logging"
)

// runFunc 启动守护进程并阻塞到 ctx 取消；测试中替换
type runFunc func(ctx context.Context, cfg config.Config, log *zap.Logger) error

type rootOptions struct {
	configPath  string
	printConfig bool
	flags       config.Config // 仅 Changed 的字段会被采用
}

func newRootCommand(run runFunc) *cobra.Command {
	opts := &rootOptions{flags: config.Default()}

	cmd := &cobra.Command{
		Use:   "linelogd",
		Short: "Append newline-delimited TCP records to a log",
		Long: `linelogd accepts TCP connections and appends every '\n'-terminated
record it receives to a log, one record per line, in arrival order.

Configuration precedence: flags > LINELOG_* environment > --config file > defaults.

Example:
  linelogd --port 9999 --log-path sql_queries.log
  linelogd --config /etc/linelog.yaml --log-format json`,
		Args:          cobra.NoArgs,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := resolveConfig(opts, cmd.Flags())
			if err != nil {
				return err
			}
			if opts.printConfig {
				return writeConfig(cmd, cfg)
			}
			return serve(cmd.Context(), cfg, run)
		},
	}
	cmd.SetFlagErrorFunc(func(_ *cobra.Command, err error) error {
		return &config.ConfigError{Field: "flags", Message: err.Error()}
	})

	fs := cmd.Flags()
	fs.StringVarP(&opts.configPath, "config", "c", "", "YAML configuration file")
	fs.BoolVar(&opts.printConfig, "print-config", false, "print the effective configuration and exit")

	f := &opts.flags
	fs.StringVar(&f.Listen.Address, "address", f.Listen.Address, "listen address")
	fs.IntVarP(&f.Listen.Port, "port", "p", f.Listen.Port, "listen port (0 picks a free port)")
	fs.IntVar(&f.Listen.Backlog, "backlog", f.Listen.Backlog, "listen backlog")
	fs.IntVar(&f.Listen.RecvBuffer, "recv-buffer", f.Listen.RecvBuffer, "SO_RCVBUF for accepted connections (0 keeps the system default)")
	fs.IntVar(&f.Conn.ReadBuffer, "read-buffer", f.Conn.ReadBuffer, "bytes per read call")
	fs.IntVar(&f.Conn.MaxLine, "max-line", f.Conn.MaxLine, "longest record in bytes, excluding the newline; a longer one drops the connection (0 disables)")
	fs.IntVar(&f.Conn.MaxConnections, "max-connections", f.Conn.MaxConnections, "concurrent connection limit (0 disables)")
	fs.StringVar(&f.Sink.Driver, "sink-driver", f.Sink.Driver, "sink driver (file|sqlite)")
	fs.StringVarP(&f.Sink.Path, "log-path", "o", f.Sink.Path, "log file or database path")
	fs.BoolVar(&f.Sink.Sync, "sync", f.Sink.Sync, "fsync after every record")
	fs.StringVar(&f.Sink.Compression, "compression", f.Sink.Compression, "file compression (none|zstd)")
	fs.DurationVar(&f.Sink.RetryInitial, "retry-initial", f.Sink.RetryInitial, "first backoff after the sink fails to open")
	fs.DurationVar(&f.Sink.RetryMax, "retry-max", f.Sink.RetryMax, "backoff ceiling")
	fs.StringVar(&f.Logging.Level, "log-level", f.Logging.Level, "log level (debug|info|warn|error)")
	fs.StringVar(&f.Logging.Format, "log-format", f.Logging.Format, "log format (auto|console|json)")
	fs.BoolVar(&f.Debug.Gops, "gops", f.Debug.Gops, "start the gops diagnostics agent")

	return cmd
}

// resolveConfig 依次叠加默认值、配置文件、环境变量与显式给出的参数
func resolveConfig(opts *rootOptions, fs *pflag.FlagSet) (config.Config, error) {
	cfg := config.Default()
	if opts.configPath != "" {
		if err := config.LoadFile(&cfg, opts.configPath); err != nil {
			return cfg, &config.ConfigError{Field: "config", Value: opts.configPath, Message: err.Error()}
		}
	}
	if err := config.LoadFromEnv(&cfg); err != nil {
		return cfg, err
	}
	applyFlags(&cfg, &opts.flags, fs)
	return cfg, cfg.Validate()
}

func applyFlags(dst, src *config.Config, fs *pflag.FlagSet) {
	fs.Visit(func(fl *pflag.Flag) {
		switch fl.Name {
		case "address":
			dst.Listen.Address = src.Listen.Address
		case "port":
			dst.Listen.Port = src.Listen.Port
		case "backlog":
			dst.Listen.Backlog = src.Listen.Backlog
		case "recv-buffer":
			dst.Listen.RecvBuffer = src.Listen.RecvBuffer
		case "read-buffer":
			dst.Conn.ReadBuffer = src.Conn.ReadBuffer
		case "max-line":
			dst.Conn.MaxLine = src.Conn.MaxLine
		case "max-connections":
			dst.Conn.MaxConnections = src.Conn.MaxConnections
		case "sink-driver":
			dst.Sink.Driver = src.Sink.Driver
		case "log-path":
			dst.Sink.Path = src.Sink.Path
		case "sync":
			dst.Sink.Sync = src.Sink.Sync
		case "compression":
			dst.Sink.Compression = src.Sink.Compression
		case "retry-initial":
			dst.Sink.RetryInitial = src.Sink.RetryInitial
		case "retry-max":
			dst.Sink.RetryMax = src.Sink.RetryMax
		case "log-level":
			dst.Logging.Level = src.Logging.Level
		case "log-format":
			dst.Logging.Format = src.Logging.Format
		case "gops":
			dst.Debug.Gops = src.Debug.Gops
		}
	})
}

func writeConfig(cmd *cobra.Command, cfg config.Config) error {
	enc := yaml.NewEncoder(cmd.OutOrStdout())
	enc.SetIndent(2)
	if err := enc.Encode(cfg); err != nil {
		return err
	}
	return enc.Close()
}

func serve(ctx context.Context, cfg config.Config, run runFunc) error {
	log, err := logging.New(cfg.Logging.Level, cfg.Logging.Format)
	if err != nil {
		return &config.ConfigError{Field: "logging", Message: err.Error()}
	}
	defer log.Sync()

	if cfg.Debug.Gops {
		if err := agent.Listen(agent.Options{}); err != nil {
			fmt.Fprintf(os.Stderr, "gops agent failed: %v\n", err)
		} else {
			defer agent.Close()
			log.Debug("gops agent started")
		}
	}
	return run(ctx, cfg, log)
}
