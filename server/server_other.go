//go:build !linux && !darwin

package server

import (
	"context"
	"net"

	"go.uber.org/zap"

	"github.com/legamerdc/linelog/sink"
)

// Server 在不支持的平台上只是占位
type Server struct{}

func Listen(opts Options, snk sink.Sink, log *zap.Logger) (*Server, error) {
	return nil, &SetupError{Step: StepPoller, Err: ErrPlatformNotSupported}
}

func (s *Server) Addr() *net.TCPAddr             { return nil }
func (s *Server) Stats() StatsSnapshot           { return StatsSnapshot{} }
func (s *Server) Serve() error                   { return ErrPlatformNotSupported }
func (s *Server) Stop(ctx context.Context) error { return nil }
