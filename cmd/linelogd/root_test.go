package main

import (
	"bytes"
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"gopkg.in/yaml.v3"

	"github.com/legamerdc/linelog"
	"github.com/legamerdc/linelog/config"
)

// execute 运行命令并返回传给 run 的配置
func execute(t *testing.T, args ...string) (config.Config, error) {
	t.Helper()
	var got config.Config
	cmd := newRootCommand(func(_ context.Context, cfg config.Config, log *zap.Logger) error {
		require.NotNil(t, log)
		got = cfg
		return nil
	})
	cmd.SetArgs(args)
	cmd.SetOut(&bytes.Buffer{})
	cmd.SetErr(&bytes.Buffer{})
	err := cmd.ExecuteContext(context.Background())
	return got, err
}

func TestRootCommand_Defaults(t *testing.T) {
	cfg, err := execute(t)
	require.NoError(t, err)
	assert.Equal(t, config.Default(), cfg)
}

func TestRootCommand_Flags(t *testing.T) {
	cfg, err := execute(t,
		"-p", "7001",
		"--log-path", "/tmp/q.log",
		"--max-line", "0",
		"--compression", "zstd",
		"--retry-max", "1m",
		"--log-level", "warn",
	)
	require.NoError(t, err)
	assert.Equal(t, 7001, cfg.Listen.Port)
	assert.Equal(t, "/tmp/q.log", cfg.Sink.Path)
	assert.Equal(t, 0, cfg.Conn.MaxLine)
	assert.Equal(t, "zstd", cfg.Sink.Compression)
	assert.Equal(t, time.Minute, cfg.Sink.RetryMax)
	assert.Equal(t, "warn", cfg.Logging.Level)
}

func TestRootCommand_Precedence(t *testing.T) {
	path := filepath.Join(t.TempDir(), "linelog.yaml")
	require.NoError(t, os.WriteFile(path, []byte(`
listen:
  port: 7000
  backlog: 64
sink:
  path: from-file.log
logging:
  level: debug
`), 0o644))
	t.Setenv("LINELOG_PORT", "7100")
	t.Setenv("LINELOG_LOG_PATH", "from-env.log")

	cfg, err := execute(t, "--config", path, "--log-path", "from-flag.log")
	require.NoError(t, err)
	assert.Equal(t, 64, cfg.Listen.Backlog, "file over defaults")
	assert.Equal(t, "debug", cfg.Logging.Level)
	assert.Equal(t, 7100, cfg.Listen.Port, "env over file")
	assert.Equal(t, "from-flag.log", cfg.Sink.Path, "flag over env")
}

func TestRootCommand_ConfigErrors(t *testing.T) {
	_, err := execute(t, "--port", "99999")
	assert.Equal(t, linelog.ExitConfig, linelog.ExitCode(err))

	_, err = execute(t, "--no-such-flag")
	assert.Equal(t, linelog.ExitConfig, linelog.ExitCode(err))

	_, err = execute(t, "--config", filepath.Join(t.TempDir(), "missing.yaml"))
	assert.Equal(t, linelog.ExitConfig, linelog.ExitCode(err))

	t.Setenv("LINELOG_PORT", "ninety")
	_, err = execute(t)
	assert.Equal(t, linelog.ExitConfig, linelog.ExitCode(err))
}

func TestRootCommand_PrintConfig(t *testing.T) {
	cmd := newRootCommand(func(context.Context, config.Config, *zap.Logger) error {
		t.Fatal("run must not be called")
		return nil
	})
	var out bytes.Buffer
	cmd.SetOut(&out)
	cmd.SetArgs([]string{"--print-config", "--port", "4242"})
	require.NoError(t, cmd.Execute())

	cfg := config.Default()
	require.NoError(t, yaml.Unmarshal(out.Bytes(), &cfg))
	assert.Equal(t, 4242, cfg.Listen.Port)
	assert.Equal(t, config.DefaultRetryMax, cfg.Sink.RetryMax)
}

func TestRootCommand_FlagShorthands(t *testing.T) {
	cmd := newRootCommand(nil)
	for name, short := range map[string]string{"port": "p", "log-path": "o", "config": "c"} {
		f := cmd.Flags().Lookup(name)
		require.NotNil(t, f, name)
		assert.Equal(t, short, f.Shorthand)
	}
	assert.Equal(t, "9999", cmd.Flags().Lookup("port").DefValue)
}
