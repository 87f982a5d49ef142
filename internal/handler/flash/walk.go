package flash

import (
	"fmt"
	"io"

	"github.com/rzbill/devlog/internal/chain"
	"github.com/rzbill/devlog/internal/eventlog"
	"github.com/rzbill/devlog/internal/logerr"
)

// Locator references a record decoded during a walk. It carries the verified
// entry bytes, so reads through it never touch storage.
type Locator struct {
	Seq uint64
	rec Decoded
}

// Walk visits records in storage order. Last-only walks seek straight to
// the newest record.
func (s *Store) Walk(fn eventlog.RawWalkFunc, off *eventlog.Offset) error {
	if err := s.ready(); err != nil {
		return err
	}
	lo, hi := entryBounds(s.name)
	var stop error
	err := s.db.Scan(lo, hi, off != nil && off.Mode == eventlog.WalkLast, func(key, value []byte) error {
		seq := seqFromKey(key)
		dec, ok := DecodeRecord(value)
		if !ok {
			stop = fmt.Errorf("flash log %q record %d: %w", s.name, seq, logerr.ErrCorrupt)
		} else {
			stop = fn(Locator{Seq: seq, rec: dec}, dec.Len())
		}
		return stop
	})
	if stop != nil {
		return stop
	}
	if err != nil {
		return logerr.IO("flash iterate", err)
	}
	return nil
}

// Read copies entry bytes at off into buf.
func (s *Store) Read(loc eventlog.Locator, buf []byte, off int) (int, error) {
	l, ok := loc.(Locator)
	if !ok {
		return 0, fmt.Errorf("locator %T: %w", loc, logerr.ErrInvalidArgument)
	}
	h, b := l.rec.Header, l.rec.Body
	if off < 0 || off > len(h)+len(b) {
		return 0, fmt.Errorf("offset %d of %d-byte entry: %w", off, len(h)+len(b), logerr.ErrInvalidArgument)
	}
	n := 0
	if off < len(h) {
		n = copy(buf, h[off:])
		off = 0
	} else {
		off -= len(h)
	}
	n += copy(buf[n:], b[off:])
	return n, nil
}

// ReadChain appends entry bytes [off, off+n) to c without copying.
func (s *Store) ReadChain(loc eventlog.Locator, c *chain.Chain, off, n int) (int, error) {
	l, ok := loc.(Locator)
	if !ok {
		return 0, fmt.Errorf("locator %T: %w", loc, logerr.ErrInvalidArgument)
	}
	got := 0
	for _, part := range [][]byte{l.rec.Header, l.rec.Body} {
		if got == n {
			break
		}
		if off >= len(part) {
			off -= len(part)
			continue
		}
		end := len(part)
		if want := off + n - got; want < end {
			end = want
		}
		c.Append(part[off:end:end])
		got += end - off
		off = 0
	}
	if got < n {
		return got, io.EOF
	}
	return got, nil
}
