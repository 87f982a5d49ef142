package eventlog

import (
	"io"
	"sync"
	"testing"

	metrics "github.com/rcrowley/go-metrics"

	"github.com/rzbill/devlog/internal/entry"
	"github.com/rzbill/devlog/internal/logerr"
)

// sliceHandler keeps entries in memory and implements only the required
// Handler methods plus Clearer, so the core's flat fallbacks are exercised.
type sliceHandler struct {
	mu      sync.Mutex
	entries [][]byte
	failErr error
}

func (h *sliceHandler) Store() StoreType { return StoreMemory }

func (h *sliceHandler) Append(buf []byte) error {
	h.mu.Lock()
	defer h.mu.Unlock()
	if h.failErr != nil {
		return h.failErr
	}
	h.entries = append(h.entries, append([]byte(nil), buf...))
	return nil
}

func (h *sliceHandler) Read(loc Locator, buf []byte, off int) (int, error) {
	e := loc.([]byte)
	if off > len(e) {
		return 0, io.EOF
	}
	return copy(buf, e[off:]), nil
}

func (h *sliceHandler) Walk(fn RawWalkFunc, _ *Offset) error {
	h.mu.Lock()
	snap := append([][]byte(nil), h.entries...)
	h.mu.Unlock()
	for _, e := range snap {
		if err := fn(e, len(e)); err != nil {
			return err
		}
	}
	return nil
}

func (h *sliceHandler) Flush() error { return nil }

func (h *sliceHandler) Clear() error {
	h.mu.Lock()
	h.entries = nil
	h.mu.Unlock()
	return nil
}

// sinkHandler accepts appends but keeps nothing.
type sinkHandler struct{ n int }

func (*sinkHandler) Store() StoreType          { return StoreConsole }
func (s *sinkHandler) Append(buf []byte) error { s.n++; return nil }
func (*sinkHandler) Read(Locator, []byte, int) (int, error) {
	return 0, logerr.ErrUnsupported
}
func (*sinkHandler) Walk(RawWalkFunc, *Offset) error { return logerr.ErrUnsupported }
func (*sinkHandler) Flush() error                    { return nil }

// testClock returns 100, 200, 300, ...
func testClock() func() int64 {
	var ts int64
	return func() int64 { ts += 100; return ts }
}

func newTestRegistry(t *testing.T, opts Options) *Registry {
	t.Helper()
	if opts.Clock == nil {
		opts.Clock = testClock()
	}
	if opts.Metrics == nil {
		opts.Metrics = metrics.NewRegistry()
	}
	r, err := NewRegistry(opts)
	if err != nil {
		t.Fatalf("new registry: %v", err)
	}
	return r
}

func newTestLog(t *testing.T, opts Options) (*Log, *sliceHandler) {
	t.Helper()
	r := newTestRegistry(t, opts)
	h := &sliceHandler{}
	l, err := r.Register("test", h, 0)
	if err != nil {
		t.Fatalf("register: %v", err)
	}
	return l, h
}

func v3Options() Options {
	return Options{Capabilities: Capabilities{Format: entry.FormatV3, ModuleLevels: true}}
}
