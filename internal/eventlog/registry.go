package eventlog

import (
	"errors"
	"fmt"
	"sync"
	"time"

	metrics "github.com/rcrowley/go-metrics"

	"github.com/rzbill/devlog/internal/entry"
	"github.com/rzbill/devlog/internal/logerr"
	logpkg "github.com/rzbill/devlog/pkg/log"
)

// Defaults applied by NewRegistry to zero Options fields.
const (
	DefaultMaxEntryLen  = 65535
	DefaultPrintfMaxLen = 128
)

// Capabilities are the runtime switches that select header layout and
// per-module level filtering.
type Capabilities struct {
	Format       entry.Format
	ModuleLevels bool
}

// Options configures a Registry.
type Options struct {
	Capabilities   Capabilities
	MaxUserModules int
	// MaxEntryLen bounds entry bodies accepted by the core.
	MaxEntryLen  int
	PrintfMaxLen int
	// Clock returns entry timestamps; defaults to Unix microseconds.
	Clock   func() int64
	Metrics metrics.Registry
	Logger  logpkg.Logger
}

// Registry is the set of named logs plus the module table and level filter
// they share. One mutex guards structural changes (log and module
// registration); appends, reads and walks on a registered Log do not take it.
// A Registry is initialized by NewRegistry and lives for the process.
type Registry struct {
	mu      sync.Mutex
	opts    Options
	format  entry.Format
	modules *Modules
	levels  *Levels
	logs    []*Log
	byName  map[string]*Log
	logger  logpkg.Logger
}

// NewRegistry returns an initialized registry with an empty module table and
// log list.
func NewRegistry(opts Options) (*Registry, error) {
	if opts.Capabilities.Format == 0 {
		opts.Capabilities.Format = entry.FormatV3
	}
	if !opts.Capabilities.Format.Valid() {
		return nil, fmt.Errorf("header format %s: %w", opts.Capabilities.Format, logerr.ErrInvalidArgument)
	}
	if opts.MaxEntryLen <= 0 {
		opts.MaxEntryLen = DefaultMaxEntryLen
	}
	if opts.PrintfMaxLen <= 0 {
		opts.PrintfMaxLen = DefaultPrintfMaxLen
	}
	if opts.Clock == nil {
		opts.Clock = func() int64 { return time.Now().UnixMicro() }
	}
	if opts.Metrics == nil {
		opts.Metrics = metrics.NewRegistry()
	}
	if opts.Logger == nil {
		opts.Logger = logpkg.NewLogger(logpkg.WithOutput(&logpkg.NullOutput{}))
	}
	r := &Registry{
		opts:   opts,
		format: opts.Capabilities.Format,
		levels: newLevels(opts.Capabilities.ModuleLevels),
		byName: make(map[string]*Log),
		logger: opts.Logger.WithComponent("eventlog"),
	}
	r.modules = newModules(&r.mu, opts.MaxUserModules)
	return r, nil
}

// Format returns the active header layout.
func (r *Registry) Format() entry.Format { return r.format }

// HeaderSize is the encoded header length of every entry in this registry.
func (r *Registry) HeaderSize() int { return r.format.HeaderSize() }

// Modules returns the module table.
func (r *Registry) Modules() *Modules { return r.modules }

// Levels returns the per-module level filter.
func (r *Registry) Levels() *Levels { return r.levels }

// Metrics returns the registry holding per-log instruments.
func (r *Registry) Metrics() metrics.Registry { return r.opts.Metrics }

// Register binds a new log named name to h. The handler's OnAttach runs once,
// after which the next index is restored from the newest stored entry.
func (r *Registry) Register(name string, h Handler, level uint8) (*Log, error) {
	if name == "" || h == nil {
		return nil, fmt.Errorf("register log: name and handler required: %w", logerr.ErrInvalidArgument)
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, dup := r.byName[name]; dup {
		return nil, fmt.Errorf("log %q: %w", name, logerr.ErrDuplicate)
	}

	l := &Log{
		name:     name,
		reg:      r,
		h:        h,
		notifyCh: make(chan struct{}),
		metrics:  newLogMetrics(r.opts.Metrics, name),
	}
	l.level.Store(uint32(level))
	if a, ok := h.(Attacher); ok {
		if err := a.OnAttach(l); err != nil {
			return nil, fmt.Errorf("attach log %q: %w", name, err)
		}
	}
	if err := l.restoreIndex(); err != nil {
		return nil, fmt.Errorf("restore index of %q: %w", name, err)
	}

	r.logs = append(r.logs, l)
	r.byName[name] = l
	r.logger.Info("log registered",
		logpkg.Str("log", name),
		logpkg.Str("store", h.Store().String()),
		logpkg.Uint32("next_index", l.next))
	return l, nil
}

// Lookup returns the log registered under name.
func (r *Registry) Lookup(name string) (*Log, error) {
	r.mu.Lock()
	l, ok := r.byName[name]
	r.mu.Unlock()
	if !ok {
		return nil, fmt.Errorf("log %q: %w", name, logerr.ErrNotFound)
	}
	return l, nil
}

// Logs returns the registered logs in registration order.
func (r *Registry) Logs() []*Log {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]*Log(nil), r.logs...)
}

// restoreIndex continues numbering after the newest entry a persistent
// handler already holds.
func (l *Log) restoreIndex() error {
	var last entry.Header
	found := false
	err := l.WalkBody(func(_ *Log, _ *Offset, hdr *entry.Header, _ Locator, _ int) error {
		last = *hdr
		found = true
		return nil
	}, &Offset{Mode: WalkLast})
	if err != nil && !errors.Is(err, logerr.ErrUnsupported) {
		return err
	}
	if found {
		l.next = last.Index + 1
	}
	if k, ok := l.h.(IndexKeeper); ok {
		if next, known := k.NextIndex(); known && next > l.next {
			l.next = next
		}
	}
	return nil
}
