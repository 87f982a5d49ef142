package grpcserver

import (
	"context"
	"errors"
	"fmt"
	"math"
	"strconv"
	"time"

	"google.golang.org/protobuf/types/known/structpb"

	"github.com/rzbill/devlog/internal/entry"
	"github.com/rzbill/devlog/internal/eventlog"
	"github.com/rzbill/devlog/internal/handler/console"
	logpkg "github.com/rzbill/devlog/pkg/log"
)

const (
	// DefaultReadLimit bounds the entries returned by one Read call.
	DefaultReadLimit = 256
	// DefaultMaxWait caps the wait_ms long-poll of Read.
	DefaultMaxWait = 30 * time.Second
)

// errLimit stops a read walk once the response is full.
var errLimit = errors.New("read limit reached")

// Service implements LogManagerServer over a log registry.
type Service struct {
	reg     *eventlog.Registry
	health  func(context.Context) error
	logger  logpkg.Logger
	maxWait time.Duration
}

// NewService builds the management service. health may be nil.
func NewService(reg *eventlog.Registry, health func(context.Context) error, logger logpkg.Logger) *Service {
	if logger == nil {
		logger = logpkg.NewLogger(logpkg.WithOutput(&logpkg.NullOutput{}))
	}
	return &Service{reg: reg, health: health, logger: logger.WithComponent("mgmt"), maxWait: DefaultMaxWait}
}

var _ LogManagerServer = (*Service)(nil)

// Read returns stored entries.
//
// Request: log (empty reads every walkable log), ts (-1 newest only, 0 all,
// otherwise since ts), index (lower bound), limit, wait_ms (block for the next
// append when a single log has nothing to return).
// Response: entries[{log, ts, index, module, module_id, level, level_name,
// type, msg}], more, and next_index for single-log reads.
func (s *Service) Read(ctx context.Context, req *structpb.Struct) (*structpb.Struct, error) {
	name := str(req, "log")
	ts := int64(num(req, "ts"))
	index, err := uintArg(req, "index", math.MaxUint32)
	if err != nil {
		return nil, err
	}
	limit := int(num(req, "limit"))
	if limit <= 0 || limit > DefaultReadLimit {
		limit = DefaultReadLimit
	}
	wait := time.Duration(num(req, "wait_ms")) * time.Millisecond
	if wait > s.maxWait {
		wait = s.maxWait
	}

	logs, err := s.selectLogs(name)
	if err != nil {
		return nil, toStatus(err)
	}
	// The signal is taken before the walk so an append racing it still wakes us.
	var sig <-chan struct{}
	if len(logs) == 1 {
		sig = logs[0].AppendSignal()
	}
	entries, more, err := s.collect(logs, ts, uint32(index), limit)
	if err != nil {
		return nil, toStatus(err)
	}
	if len(entries) == 0 && wait > 0 && sig != nil {
		wctx, cancel := context.WithTimeout(ctx, wait)
		werr := eventlog.WaitSignal(wctx, sig)
		cancel()
		if werr == nil {
			if entries, more, err = s.collect(logs, ts, uint32(index), limit); err != nil {
				return nil, toStatus(err)
			}
		} else if ctx.Err() != nil {
			return nil, toStatus(ctx.Err())
		}
	}

	out := map[string]interface{}{"entries": entries, "more": more}
	if len(logs) == 1 {
		out["next_index"] = logs[0].NextIndex()
	}
	return structpb.NewStruct(out)
}

func (s *Service) selectLogs(name string) ([]*eventlog.Log, error) {
	if name != "" {
		l, err := s.reg.Lookup(name)
		if err != nil {
			return nil, err
		}
		return []*eventlog.Log{l}, nil
	}
	var out []*eventlog.Log
	for _, l := range s.reg.Logs() {
		if l.Store() != eventlog.StoreConsole {
			out = append(out, l)
		}
	}
	return out, nil
}

func (s *Service) collect(logs []*eventlog.Log, ts int64, index uint32, limit int) ([]interface{}, bool, error) {
	mods := s.reg.Modules()
	var out []interface{}
	for _, l := range logs {
		err := l.WalkBody(func(l *eventlog.Log, off *eventlog.Offset, hdr *entry.Header, loc eventlog.Locator, bodyLen int) error {
			if len(out) >= limit {
				return errLimit
			}
			body := make([]byte, bodyLen)
			n, err := l.ReadBody(loc, body, 0)
			if err != nil {
				return err
			}
			off.DataLen = n
			out = append(out, map[string]interface{}{
				"log":        l.Name(),
				"ts":         hdr.Timestamp,
				"index":      hdr.Index,
				"module":     mods.NameOr(hdr.Module),
				"module_id":  int(hdr.Module),
				"level":      int(hdr.Level),
				"level_name": entry.LevelName(hdr.Level),
				"type":       hdr.Type.String(),
				"msg":        console.Render(hdr.Type, body[:n]),
			})
			return nil
		}, eventlog.OffsetFromTS(ts, index))
		if errors.Is(err, errLimit) {
			return out, true, nil
		}
		if err != nil {
			return nil, false, fmt.Errorf("read %s: %w", l.Name(), err)
		}
	}
	return out, false, nil
}

// Clear erases one log, or every clearable log when log is empty.
func (s *Service) Clear(_ context.Context, req *structpb.Struct) (*structpb.Struct, error) {
	name := str(req, "log")
	if name != "" {
		l, err := s.reg.Lookup(name)
		if err != nil {
			return nil, toStatus(err)
		}
		if err := l.Clear(); err != nil {
			return nil, toStatus(err)
		}
		s.logger.Info("log cleared", logpkg.Str("log", name))
		return structpb.NewStruct(map[string]interface{}{"cleared": []interface{}{name}})
	}
	var cleared []interface{}
	for _, l := range s.reg.Logs() {
		if _, ok := l.Handler().(eventlog.Clearer); !ok {
			continue
		}
		if err := l.Clear(); err != nil {
			return nil, toStatus(err)
		}
		cleared = append(cleared, l.Name())
	}
	s.logger.Info("logs cleared", logpkg.Int("count", len(cleared)))
	return structpb.NewStruct(map[string]interface{}{"cleared": cleared})
}

// Append writes a text entry. Request: log, msg, module (name or id), level
// (name or number). Response: appended (false when level-filtered), next_index.
func (s *Service) Append(_ context.Context, req *structpb.Struct) (*structpb.Struct, error) {
	l, err := s.reg.Lookup(str(req, "log"))
	if err != nil {
		return nil, toStatus(err)
	}
	module, err := s.moduleArg(req, "module")
	if err != nil {
		return nil, toStatus(err)
	}
	level := entry.LevelInfo
	if has(req, "level") {
		if level, err = levelArg(req, "level"); err != nil {
			return nil, err
		}
	}
	before := l.NextIndex()
	if err := l.AppendBody(module, level, entry.TypeString, []byte(str(req, "msg"))); err != nil {
		return nil, toStatus(err)
	}
	next := l.NextIndex()
	return structpb.NewStruct(map[string]interface{}{"appended": next != before, "next_index": next})
}

// ModuleList returns modules[{id, name}].
func (s *Service) ModuleList(context.Context, *structpb.Struct) (*structpb.Struct, error) {
	var mods []interface{}
	for _, m := range s.reg.Modules().List() {
		mods = append(mods, map[string]interface{}{"id": int(m.ID), "name": m.Name})
	}
	return structpb.NewStruct(map[string]interface{}{"modules": mods})
}

// LevelList returns enabled and levels[{module, name, level}] for modules with
// a non-default minimum.
func (s *Service) LevelList(context.Context, *structpb.Struct) (*structpb.Struct, error) {
	lv := s.reg.Levels()
	var levels []interface{}
	for _, ml := range lv.List() {
		levels = append(levels, map[string]interface{}{
			"module": int(ml.Module),
			"name":   s.reg.Modules().NameOr(ml.Module),
			"level":  int(ml.Level),
		})
	}
	return structpb.NewStruct(map[string]interface{}{"enabled": lv.Enabled(), "levels": levels})
}

// LogsList returns logs[{name, store, level, policy, next_index, appended,
// dropped, failed, bytes}].
func (s *Service) LogsList(context.Context, *structpb.Struct) (*structpb.Struct, error) {
	var logs []interface{}
	for _, l := range s.reg.Logs() {
		st := l.Stats()
		logs = append(logs, map[string]interface{}{
			"name":       l.Name(),
			"store":      l.Store().String(),
			"level":      int(l.Level()),
			"policy":     l.Policy().String(),
			"next_index": l.NextIndex(),
			"appended":   st.Appended,
			"dropped":    st.Dropped,
			"failed":     st.Failed,
			"bytes":      st.Bytes,
		})
	}
	return structpb.NewStruct(map[string]interface{}{"logs": logs})
}

// SetLevel assigns a minimum level. With log set it changes the log-wide
// level; otherwise module (name or id) is required.
func (s *Service) SetLevel(_ context.Context, req *structpb.Struct) (*structpb.Struct, error) {
	if !has(req, "level") {
		return nil, invalid("level required")
	}
	level, err := levelArg(req, "level")
	if err != nil {
		return nil, err
	}
	if name := str(req, "log"); name != "" {
		l, err := s.reg.Lookup(name)
		if err != nil {
			return nil, toStatus(err)
		}
		l.SetLevel(level)
		s.logger.Info("log level set", logpkg.Str("log", name), logpkg.Str("level", entry.LevelName(level)))
		return structpb.NewStruct(map[string]interface{}{"log": name, "level": int(level)})
	}
	if !has(req, "module") {
		return nil, invalid("module or log required")
	}
	module, err := s.moduleArg(req, "module")
	if err != nil {
		return nil, toStatus(err)
	}
	if err := s.reg.Levels().Set(module, level); err != nil {
		return nil, toStatus(err)
	}
	s.logger.Info("module level set",
		logpkg.Str("module", s.reg.Modules().NameOr(module)),
		logpkg.Str("level", entry.LevelName(level)))
	return structpb.NewStruct(map[string]interface{}{"module": int(module), "level": int(level)})
}

// Health reports status "ok" or "not_serving".
func (s *Service) Health(ctx context.Context, _ *structpb.Struct) (*structpb.Struct, error) {
	status := "ok"
	if s.health != nil {
		if err := s.health(ctx); err != nil {
			status = "not_serving"
		}
	}
	return structpb.NewStruct(map[string]interface{}{"status": status})
}

// moduleArg resolves a module given as a number or as a name. A missing value
// is the default module.
func (s *Service) moduleArg(req *structpb.Struct, key string) (uint8, error) {
	v, ok := req.GetFields()[key]
	if !ok {
		return entry.ModuleDefault, nil
	}
	if _, isNum := v.GetKind().(*structpb.Value_NumberValue); isNum {
		id, err := uintArg(req, key, math.MaxUint8)
		return uint8(id), err
	}
	name := v.GetStringValue()
	if id, err := strconv.ParseUint(name, 10, 8); err == nil {
		return uint8(id), nil
	}
	return s.reg.Modules().Lookup(name)
}

func levelArg(req *structpb.Struct, key string) (uint8, error) {
	v := req.GetFields()[key]
	if _, isNum := v.GetKind().(*structpb.Value_NumberValue); isNum {
		n := v.GetNumberValue()
		if n < 0 || n > 255 {
			return 0, invalid(fmt.Sprintf("level %v out of range", n))
		}
		return uint8(n), nil
	}
	level, ok := entry.ParseLevel(v.GetStringValue())
	if !ok {
		return 0, invalid(fmt.Sprintf("unknown level %q", v.GetStringValue()))
	}
	return level, nil
}

// uintArg reads a whole number in [0, hi]. A missing value is 0.
func uintArg(req *structpb.Struct, key string, hi uint64) (uint64, error) {
	n := num(req, key)
	if n < 0 || n > float64(hi) || n != math.Trunc(n) {
		return 0, invalid(fmt.Sprintf("%s %v out of range [0, %d]", key, n, hi))
	}
	return uint64(n), nil
}

func has(req *structpb.Struct, key string) bool {
	_, ok := req.GetFields()[key]
	return ok
}

func str(req *structpb.Struct, key string) string {
	return req.GetFields()[key].GetStringValue()
}

func num(req *structpb.Struct, key string) float64 {
	return req.GetFields()[key].GetNumberValue()
}
