package serverrun

import (
	"context"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"

	cfgpkg "github.com/rzbill/devlog/internal/config"
	"github.com/rzbill/devlog/internal/runtime"
	grpcserver "github.com/rzbill/devlog/internal/server/grpc"
	httpserver "github.com/rzbill/devlog/internal/server/http"
	pebblestore "github.com/rzbill/devlog/internal/storage/pebble"
	logpkg "github.com/rzbill/devlog/pkg/log"
)

// Options configures Run.
type Options struct {
	DataDir  string
	GRPCAddr string
	// HTTPAddr enables the REST gateway when non-empty.
	HTTPAddr string
	// Fsync overrides Config.Fsync when not FsyncModeUnspecified.
	Fsync  pebblestore.FsyncMode
	Config cfgpkg.Config
	// Logger overrides the process logger built from Config.Log.
	Logger logpkg.Logger
}

// Run opens the runtime and serves the management API until ctx is
// cancelled or the process receives SIGINT or SIGTERM.
func Run(ctx context.Context, opts Options) error {
	sctx, stop := signal.NotifyContext(ctx, os.Interrupt, syscall.SIGTERM)
	defer stop()
	if opts.DataDir == "" {
		opts.DataDir = cfgpkg.DefaultDataDir()
	}

	procLogger := opts.Logger
	if procLogger == nil {
		l, err := logpkg.ApplyConfig(opts.Config.Log)
		if err != nil {
			lvl := logpkg.InfoLevel
			if v, e := logpkg.ParseLevel(opts.Config.Log.Level); e == nil {
				lvl = v
			}
			l = logpkg.NewLogger(logpkg.WithLevel(lvl), logpkg.WithFormatter(&logpkg.TextFormatter{}))
		}
		procLogger = l
	}
	// Pebble logs through the standard library logger.
	logpkg.RedirectStdLog(procLogger)

	rt, err := runtime.Open(runtime.Options{
		DataDir: filepath.Join(opts.DataDir, "store"),
		Fsync:   opts.Fsync,
		Config:  opts.Config,
		Logger:  procLogger,
	})
	if err != nil {
		return err
	}
	defer rt.Close()

	procLogger.Info("Starting devlog server",
		logpkg.Str("grpc", opts.GRPCAddr),
		logpkg.Str("http", opts.HTTPAddr),
		logpkg.Str("data_dir", opts.DataDir),
		logpkg.Str("header_format", opts.Config.HeaderFormat),
		logpkg.Str("level", opts.Config.Log.Level),
		logpkg.Str("format", opts.Config.Log.Format),
	)

	svc := grpcserver.NewService(rt.Registry(), rt.CheckHealth, procLogger)
	gsrv := grpcserver.NewWithService(rt, svc, procLogger)
	errCh := make(chan error, 2)
	go func() { errCh <- gsrv.ListenAndServe(sctx, opts.GRPCAddr) }()
	var hsrv *httpserver.Server
	if opts.HTTPAddr != "" {
		hsrv = httpserver.New(rt, svc, procLogger)
		go func() { errCh <- hsrv.ListenAndServe(sctx, opts.HTTPAddr) }()
	}

	select {
	case <-sctx.Done():
		// Stop serving before the runtime closes storage.
		gsrv.Close()
		<-errCh
		if hsrv != nil {
			hsrv.Close()
			<-errCh
		}
		procLogger.Info("devlog server stopped")
		return nil
	case err := <-errCh:
		gsrv.Close()
		if hsrv != nil {
			hsrv.Close()
		}
		return err
	}
}
