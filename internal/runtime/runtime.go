package runtime

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"time"

	metrics "github.com/rcrowley/go-metrics"

	cfgpkg "github.com/rzbill/devlog/internal/config"
	"github.com/rzbill/devlog/internal/eventlog"
	"github.com/rzbill/devlog/internal/handler/console"
	"github.com/rzbill/devlog/internal/handler/flash"
	"github.com/rzbill/devlog/internal/handler/memring"
	pebblestore "github.com/rzbill/devlog/internal/storage/pebble"
	logpkg "github.com/rzbill/devlog/pkg/log"
)

// Options for building the Runtime.
type Options struct {
	DataDir string
	// Fsync overrides Config.Fsync when not FsyncModeUnspecified.
	Fsync  pebblestore.FsyncMode
	Config cfgpkg.Config
	// Console receives console log lines; defaults to stdout.
	Console io.Writer
	Metrics metrics.Registry
	Logger  logpkg.Logger
}

// Runtime wires storage, the log registry and the configured logs for a
// single instance.
type Runtime struct {
	db       *pebblestore.DB
	config   cfgpkg.Config
	registry *eventlog.Registry
	metrics  metrics.Registry
	logger   logpkg.Logger
}

// Open initializes storage, registers the configured modules and logs and
// returns a Runtime.
func Open(opts Options) (*Runtime, error) {
	if err := opts.Config.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}
	if opts.Logger == nil {
		opts.Logger = logpkg.NewLogger(logpkg.WithOutput(&logpkg.NullOutput{}))
	}
	if opts.Metrics == nil {
		opts.Metrics = metrics.NewRegistry()
	}
	if opts.Console == nil {
		opts.Console = os.Stdout
	}
	fsync := opts.Fsync
	if fsync == pebblestore.FsyncModeUnspecified {
		fsync = opts.Config.FsyncMode()
	}
	logger := opts.Logger.WithComponent("runtime")

	db, err := pebblestore.Open(pebblestore.Options{
		DataDir:       opts.DataDir,
		Fsync:         fsync,
		FsyncInterval: time.Duration(opts.Config.FsyncIntervalMs) * time.Millisecond,
		Metrics:       pebblestore.NewMetricsHook(opts.Metrics, "devlog.pebble."),
	})
	if err != nil {
		return nil, fmt.Errorf("open storage: %w", err)
	}

	reg, err := eventlog.NewRegistry(eventlog.Options{
		Capabilities: eventlog.Capabilities{
			Format:       opts.Config.Format(),
			ModuleLevels: opts.Config.ModuleLevels,
		},
		MaxUserModules: opts.Config.MaxUserModules,
		MaxEntryLen:    opts.Config.MaxEntryLen,
		PrintfMaxLen:   opts.Config.PrintfMaxLen,
		Metrics:        opts.Metrics,
		Logger:         opts.Logger,
	})
	if err != nil {
		_ = db.Close()
		return nil, err
	}

	rt := &Runtime{db: db, config: opts.Config, registry: reg, metrics: opts.Metrics, logger: logger}
	if err := rt.registerAll(opts); err != nil {
		_ = db.Close()
		return nil, err
	}
	logger.Info("runtime opened",
		logpkg.Str("data_dir", opts.DataDir),
		logpkg.Str("header_format", reg.Format().String()),
		logpkg.Int("logs", len(reg.Logs())))
	return rt, nil
}

func (r *Runtime) registerAll(opts Options) error {
	for _, m := range opts.Config.Modules {
		id, err := r.registry.Modules().Register(m.ID, m.Name)
		if err != nil {
			return fmt.Errorf("register module %q: %w", m.Name, err)
		}
		r.logger.Debug("module registered", logpkg.Str("module", m.Name), logpkg.Int("id", int(id)))
	}
	for _, lc := range opts.Config.Logs {
		h, err := r.newHandler(lc, opts)
		if err != nil {
			return fmt.Errorf("log %q: %w", lc.Name, err)
		}
		if _, err := r.registry.Register(lc.Name, h, lc.LevelValue()); err != nil {
			return err
		}
	}
	return nil
}

func (r *Runtime) newHandler(lc cfgpkg.LogConfig, opts Options) (eventlog.Handler, error) {
	switch lc.Store {
	case cfgpkg.StoreConsole:
		return console.New(opts.Console), nil
	case cfgpkg.StoreMemory:
		return memring.New(lc.Capacity)
	case cfgpkg.StoreFlash:
		policy := eventlog.PolicyOverwrite
		if lc.Policy == "reject" {
			policy = eventlog.PolicyReject
		}
		return flash.New(r.db, flash.Options{
			SectorSize: lc.SectorSize,
			Sectors:    lc.Sectors,
			Policy:     policy,
			MaxEntry:   lc.MaxEntry,
			Hook:       flash.NewMetricsReclaimHook(r.metrics),
			Logger:     opts.Logger,
		})
	}
	return nil, fmt.Errorf("unknown store %q", lc.Store)
}

// Close flushes every log and closes storage.
func (r *Runtime) Close() error {
	if r.db == nil {
		return nil
	}
	var errs []error
	for _, l := range r.registry.Logs() {
		if err := l.Flush(); err != nil {
			errs = append(errs, fmt.Errorf("flush %q: %w", l.Name(), err))
		}
	}
	errs = append(errs, r.db.Close())
	r.db = nil
	return errors.Join(errs...)
}

// CheckHealth performs a simple health check.
func (r *Runtime) CheckHealth(ctx context.Context) error {
	if r.db == nil {
		return errors.New("db not open")
	}
	if err := ctx.Err(); err != nil {
		return err
	}
	return r.db.Check()
}

// Registry returns the log registry.
func (r *Runtime) Registry() *eventlog.Registry { return r.registry }

// Log returns the registered log named name.
func (r *Runtime) Log(name string) (*eventlog.Log, error) { return r.registry.Lookup(name) }

// DB exposes the underlying DB for advanced operations (internal use only).
func (r *Runtime) DB() *pebblestore.DB { return r.db }

// Config returns the runtime configuration.
func (r *Runtime) Config() cfgpkg.Config { return r.config }

// Metrics returns the metrics registry shared by logs and storage.
func (r *Runtime) Metrics() metrics.Registry { return r.metrics }
