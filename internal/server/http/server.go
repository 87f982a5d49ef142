package httpserver

import (
	"context"
	"net"
	"net/http"
	"time"

	"github.com/julienschmidt/httprouter"

	"github.com/rzbill/devlog/internal/runtime"
	grpcserver "github.com/rzbill/devlog/internal/server/grpc"
	"github.com/rzbill/devlog/internal/server/http/controllers"
	logpkg "github.com/rzbill/devlog/pkg/log"
)

// shutdownTimeout bounds graceful shutdown; open tail streams are cut after it.
const shutdownTimeout = 5 * time.Second

// Server is the HTTP ops gateway.
type Server struct {
	rt     *runtime.Runtime
	srv    *http.Server
	lis    net.Listener
	logger logpkg.Logger
}

// New builds the gateway over the management service svc. A nil svc gets
// a service bound to rt.
func New(rt *runtime.Runtime, svc *grpcserver.Service, logger logpkg.Logger) *Server {
	if logger == nil {
		logger = logpkg.NewLogger(logpkg.WithOutput(&logpkg.NullOutput{}))
	}
	if svc == nil {
		svc = grpcserver.NewService(rt.Registry(), rt.CheckHealth, logger)
	}
	logger = logger.WithComponent("http")
	router := httprouter.New()
	router.PanicHandler = func(w http.ResponseWriter, r *http.Request, v interface{}) {
		logger.Error("handler panic",
			logpkg.Str("method", r.Method),
			logpkg.Str("path", r.URL.Path),
			logpkg.Any("panic", v))
		w.WriteHeader(http.StatusInternalServerError)
	}
	controllers.NewControllerRegistry(rt, svc, logger).RegisterAllRoutes(router)
	return &Server{
		rt:     rt,
		srv:    &http.Server{Handler: cors(router), ReadHeaderTimeout: 10 * time.Second},
		logger: logger,
	}
}

// Handler returns the routed handler, for embedding or tests.
func (s *Server) Handler() http.Handler { return s.srv.Handler }

// ListenAndServe binds to addr and serves until ctx is done.
func (s *Server) ListenAndServe(ctx context.Context, addr string) error {
	l, err := net.Listen("tcp", addr)
	if err != nil {
		return err
	}
	s.lis = l
	s.logger.Info("http listening", logpkg.Str("addr", l.Addr().String()))
	errCh := make(chan error, 1)
	go func() { errCh <- s.srv.Serve(l) }()
	select {
	case <-ctx.Done():
		cctx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		if err := s.srv.Shutdown(cctx); err != nil {
			_ = s.srv.Close()
		}
		return nil
	case err := <-errCh:
		if err == http.ErrServerClosed {
			return nil
		}
		return err
	}
}

// Close stops the listener immediately.
func (s *Server) Close() {
	_ = s.srv.Close()
	if s.lis != nil {
		_ = s.lis.Close()
	}
}

func cors(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Access-Control-Allow-Origin", "*")
		w.Header().Set("Access-Control-Allow-Headers", "Content-Type, Authorization")
		w.Header().Set("Access-Control-Allow-Methods", "GET, POST, OPTIONS")
		if r.Method == http.MethodOptions {
			w.WriteHeader(http.StatusNoContent)
			return
		}
		next.ServeHTTP(w, r)
	})
}
