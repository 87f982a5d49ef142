package eventlog

import (
	"fmt"

	"github.com/rzbill/devlog/internal/chain"
	"github.com/rzbill/devlog/internal/entry"
	"github.com/rzbill/devlog/internal/logerr"
)

// WalkFunc is called for each admitted entry; n is the full entry length.
// Returning a non-nil error stops the walk and Walk returns that same value.
type WalkFunc func(l *Log, off *Offset, loc Locator, n int) error

// WalkBodyFunc is called with the decoded header and the body length.
type WalkBodyFunc func(l *Log, off *Offset, hdr *entry.Header, loc Locator, bodyLen int) error

// visit is an admitted entry surfaced by the handler.
type visit struct {
	loc Locator
	n   int
	hdr entry.Header
}

// scan drives the handler's raw walk, decodes headers and applies the offset
// filters in order: timestamp mode, then index bound. In WalkLast mode the
// newest admitted entry is delivered once the handler walk has finished, so a
// handler without a reverse shortcut still yields a single visit.
func (l *Log) scan(off *Offset, fn func(v visit) error) error {
	hsz := l.reg.HeaderSize()
	hbuf := make([]byte, hsz)
	var last *visit

	err := l.h.Walk(func(loc Locator, n int) error {
		if n < hsz {
			return fmt.Errorf("entry of %d bytes: %w", n, logerr.ErrCorrupt)
		}
		got, err := l.h.Read(loc, hbuf, 0)
		if err != nil {
			return err
		}
		hdr, err := entry.Decode(l.reg.format, hbuf[:got])
		if err != nil {
			return err
		}
		if !off.admits(hdr) {
			return nil
		}
		v := visit{loc: loc, n: n, hdr: hdr}
		if off.Mode == WalkLast {
			last = &v
			return nil
		}
		off.DataLen = got
		return fn(v)
	}, off)
	if err != nil || last == nil {
		return err
	}
	off.DataLen = hsz
	return fn(*last)
}

// Walk visits stored entries oldest first, filtered by off. A nil off walks
// everything. Callback errors are returned unchanged; handler failures are
// returned as reported by the handler.
func (l *Log) Walk(fn WalkFunc, off *Offset) error {
	if off == nil {
		off = &Offset{}
	}
	return l.scan(off, func(v visit) error {
		return fn(l, off, v.loc, v.n)
	})
}

// WalkBody is Walk with the header decoded and passed separately from the body.
func (l *Log) WalkBody(fn WalkBodyFunc, off *Offset) error {
	if off == nil {
		off = &Offset{}
	}
	hsz := l.reg.HeaderSize()
	return l.scan(off, func(v visit) error {
		return fn(l, off, &v.hdr, v.loc, v.n-hsz)
	})
}

// Read copies entry bytes (header included) at off into buf.
func (l *Log) Read(loc Locator, buf []byte, off int) (int, error) {
	return l.h.Read(loc, buf, off)
}

// ReadHeader decodes the header of the entry at loc.
func (l *Log) ReadHeader(loc Locator) (entry.Header, error) {
	buf := make([]byte, l.reg.HeaderSize())
	n, err := l.h.Read(loc, buf, 0)
	if err != nil {
		return entry.Header{}, err
	}
	return entry.Decode(l.reg.format, buf[:n])
}

// ReadBody copies body bytes starting at off into buf.
func (l *Log) ReadBody(loc Locator, buf []byte, off int) (int, error) {
	return l.h.Read(loc, buf, l.reg.HeaderSize()+off)
}

// ReadChain appends n entry bytes at off to c.
func (l *Log) ReadChain(loc Locator, c *chain.Chain, off, n int) (int, error) {
	if cr, ok := l.h.(ChainReader); ok {
		return cr.ReadChain(loc, c, off, n)
	}
	return readChainFlat(l.h, loc, c, off, n)
}

// ReadChainBody appends n body bytes at off to c.
func (l *Log) ReadChainBody(loc Locator, c *chain.Chain, off, n int) (int, error) {
	return l.ReadChain(loc, c, l.reg.HeaderSize()+off, n)
}

// Record is a decoded entry copied out of a log.
type Record struct {
	Header entry.Header
	Body   []byte
}

// Entries collects the entries admitted by off.
func (l *Log) Entries(off *Offset) ([]Record, error) {
	var out []Record
	err := l.WalkBody(func(l *Log, off *Offset, hdr *entry.Header, loc Locator, bodyLen int) error {
		body := make([]byte, bodyLen)
		n, err := l.ReadBody(loc, body, 0)
		if err != nil {
			return err
		}
		off.DataLen = n
		out = append(out, Record{Header: *hdr, Body: body[:n]})
		return nil
	}, off)
	return out, err
}
