// Package memring is a bounded in-memory event log handler. Capacity is a
// byte budget shared by header and body bytes; when it is exhausted the
// oldest entries are evicted.
package memring

import (
	"fmt"
	"io"
	"sync"

	"github.com/rzbill/devlog/internal/chain"
	"github.com/rzbill/devlog/internal/eventlog"
	"github.com/rzbill/devlog/internal/logerr"
)

// Ring stores entries in append order within a fixed byte budget.
type Ring struct {
	capacity int

	mu      sync.Mutex
	entries [][]byte // oldest first
	used    int
	evicted uint64
}

var (
	_ eventlog.Handler       = (*Ring)(nil)
	_ eventlog.ChainAppender = (*Ring)(nil)
	_ eventlog.BodyAppender  = (*Ring)(nil)
	_ eventlog.ChainReader   = (*Ring)(nil)
	_ eventlog.Clearer       = (*Ring)(nil)
	_ eventlog.Capacity      = (*Ring)(nil)
)

// New returns a ring holding at most capacity bytes of entries.
func New(capacity int) (*Ring, error) {
	if capacity <= 0 {
		return nil, fmt.Errorf("ring capacity %d: %w", capacity, logerr.ErrInvalidArgument)
	}
	return &Ring{capacity: capacity}, nil
}

// Locator references one retained entry. Entries are immutable once stored,
// so a locator stays readable after the entry is evicted.
type Locator struct {
	data []byte
}

func (*Ring) Store() eventlog.StoreType { return eventlog.StoreMemory }

// Append copies buf into the ring.
func (r *Ring) Append(buf []byte) error {
	e := make([]byte, len(buf))
	copy(e, buf)
	return r.push(e)
}

// AppendBody stores hdr and body as one entry without an intermediate buffer.
func (r *Ring) AppendBody(hdr, body []byte) error {
	e := make([]byte, 0, len(hdr)+len(body))
	e = append(e, hdr...)
	e = append(e, body...)
	return r.push(e)
}

// AppendChain flattens c into ring storage and releases it.
func (r *Ring) AppendChain(c *chain.Chain) (chain.Disposition, error) {
	e := make([]byte, c.Len())
	if _, err := c.ReadAt(e, 0); err != nil {
		return chain.ReturnedToCaller, fmt.Errorf("read chain: %v: %w", err, logerr.ErrInvalidArgument)
	}
	if err := r.push(e); err != nil {
		return chain.ReturnedToCaller, err
	}
	c.Release()
	return chain.Consumed, nil
}

func (r *Ring) push(e []byte) error {
	if len(e) > r.capacity {
		return fmt.Errorf("entry of %d bytes exceeds ring capacity %d: %w", len(e), r.capacity, logerr.ErrFull)
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	for r.used+len(e) > r.capacity {
		r.used -= len(r.entries[0])
		r.entries[0] = nil
		r.entries = r.entries[1:]
		r.evicted++
	}
	r.entries = append(r.entries, e)
	r.used += len(e)
	return nil
}

// Read copies entry bytes at off into buf.
func (r *Ring) Read(loc eventlog.Locator, buf []byte, off int) (int, error) {
	l, ok := loc.(Locator)
	if !ok {
		return 0, fmt.Errorf("locator %T: %w", loc, logerr.ErrInvalidArgument)
	}
	if off < 0 || off > len(l.data) {
		return 0, fmt.Errorf("offset %d of %d-byte entry: %w", off, len(l.data), logerr.ErrInvalidArgument)
	}
	n := copy(buf, l.data[off:])
	return n, nil
}

// ReadChain appends the requested range of the entry to c. The bytes alias
// ring storage, which is never modified in place.
func (r *Ring) ReadChain(loc eventlog.Locator, c *chain.Chain, off, n int) (int, error) {
	l, ok := loc.(Locator)
	if !ok {
		return 0, fmt.Errorf("locator %T: %w", loc, logerr.ErrInvalidArgument)
	}
	if off < 0 || off > len(l.data) {
		return 0, fmt.Errorf("offset %d of %d-byte entry: %w", off, len(l.data), logerr.ErrInvalidArgument)
	}
	end := off + n
	if end > len(l.data) {
		end = len(l.data)
	}
	if end > off {
		c.Append(l.data[off:end:end])
	}
	if end-off < n {
		return end - off, io.EOF
	}
	return n, nil
}

// Walk visits a snapshot of the retained entries oldest first, or only the
// newest one for last-only walks.
func (r *Ring) Walk(fn eventlog.RawWalkFunc, off *eventlog.Offset) error {
	snap := r.snapshot(off != nil && off.Mode == eventlog.WalkLast)
	for _, e := range snap {
		if err := fn(Locator{data: e}, len(e)); err != nil {
			return err
		}
	}
	return nil
}

func (r *Ring) snapshot(lastOnly bool) [][]byte {
	r.mu.Lock()
	defer r.mu.Unlock()
	if len(r.entries) == 0 {
		return nil
	}
	if lastOnly {
		return [][]byte{r.entries[len(r.entries)-1]}
	}
	return append([][]byte(nil), r.entries...)
}

func (*Ring) Flush() error { return nil }

// Clear drops every retained entry.
func (r *Ring) Clear() error {
	r.mu.Lock()
	r.entries = nil
	r.used = 0
	r.mu.Unlock()
	return nil
}

func (*Ring) Policy() eventlog.FullPolicy { return eventlog.PolicyOverwrite }

func (r *Ring) MaxEntrySize() int { return r.capacity }

// Stats reports the ring's occupancy.
type Stats struct {
	Entries  int
	Used     int
	Capacity int
	Evicted  uint64
}

// Stats returns current occupancy counters.
func (r *Ring) Stats() Stats {
	r.mu.Lock()
	defer r.mu.Unlock()
	return Stats{Entries: len(r.entries), Used: r.used, Capacity: r.capacity, Evicted: r.evicted}
}
