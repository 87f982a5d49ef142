package grpcserver

import (
	"context"
	"net"
	"time"

	"google.golang.org/grpc"
	"google.golang.org/grpc/status"

	"github.com/rzbill/devlog/internal/runtime"
	logpkg "github.com/rzbill/devlog/pkg/log"
)

// Server owns the gRPC server instance and runtime.
type Server struct {
	rt     *runtime.Runtime
	svc    *Service
	grpc   *grpc.Server
	lis    net.Listener
	logger logpkg.Logger
}

// New constructs a gRPC server and registers the management service.
func New(rt *runtime.Runtime, logger logpkg.Logger, opts ...grpc.ServerOption) *Server {
	return NewWithService(rt, NewService(rt.Registry(), rt.CheckHealth, logger), logger, opts...)
}

// NewWithService constructs a gRPC server around a shared Service so that
// other transports can serve the same instance.
func NewWithService(rt *runtime.Runtime, svc *Service, logger logpkg.Logger, opts ...grpc.ServerOption) *Server {
	if logger == nil {
		logger = logpkg.NewLogger(logpkg.WithOutput(&logpkg.NullOutput{}))
	}
	logger = logger.WithComponent("grpc")
	opts = append([]grpc.ServerOption{grpc.ChainUnaryInterceptor(logUnary(logger))}, opts...)
	s := &Server{
		rt:     rt,
		svc:    svc,
		grpc:   grpc.NewServer(opts...),
		logger: logger,
	}
	RegisterLogManagerServer(s.grpc, s.svc)
	return s
}

// ListenAndServe binds to addr and serves until ctx is done.
func (s *Server) ListenAndServe(ctx context.Context, addr string) error {
	l, err := net.Listen("tcp", addr)
	if err != nil {
		return err
	}
	s.lis = l
	s.logger.Info("grpc listening", logpkg.Str("addr", l.Addr().String()))
	errCh := make(chan error, 1)
	go func() { errCh <- s.grpc.Serve(l) }()
	select {
	case <-ctx.Done():
		s.grpc.GracefulStop()
		return nil
	case err := <-errCh:
		return err
	}
}

// Close stops the server and closes the listener.
func (s *Server) Close() {
	if s.grpc != nil {
		s.grpc.GracefulStop()
	}
	if s.lis != nil {
		_ = s.lis.Close()
	}
}

func logUnary(logger logpkg.Logger) grpc.UnaryServerInterceptor {
	return func(ctx context.Context, req interface{}, info *grpc.UnaryServerInfo, handler grpc.UnaryHandler) (interface{}, error) {
		start := time.Now()
		resp, err := handler(ctx, req)
		fields := []logpkg.Field{
			logpkg.Str("method", info.FullMethod),
			logpkg.Duration("took", time.Since(start)),
		}
		if err != nil {
			fields = append(fields, logpkg.Str("code", status.Code(err).String()), logpkg.Err(err))
			logger.Warn("rpc failed", fields...)
		} else {
			logger.Debug("rpc", fields...)
		}
		return resp, err
	}
}
