// Package chain implements scatter-gather buffer chains used by the
// zero-copy append and read paths.
//
// A Chain is an ordered list of segments. Segments obtained from Alloc are
// backed by a slab pool and recycled by Release; segments attached with
// Append/Prepend reference caller memory and are never copied.
package chain

import (
	"errors"
	"io"
)

// Disposition reports who owns a chain after an append attempt.
type Disposition int

const (
	// ReturnedToCaller means the caller still owns the chain and must Release it.
	ReturnedToCaller Disposition = iota
	// Consumed means the callee took ownership; the caller must not touch it.
	Consumed
)

func (d Disposition) String() string {
	if d == Consumed {
		return "consumed"
	}
	return "returned"
}

// ErrReleased is returned when a released chain is used.
var ErrReleased = errors.New("chain: use after release")

type segment struct {
	data []byte
	base []byte // pooled backing buffer, nil for caller memory
	slab int
}

// Chain is a sequence of byte segments. It is not safe for concurrent use.
type Chain struct {
	segs     []segment
	released bool
}

// New returns an empty chain.
func New() *Chain { return &Chain{} }

// FromBytes returns a chain with one segment per argument, without copying.
func FromBytes(parts ...[]byte) *Chain {
	c := &Chain{segs: make([]segment, 0, len(parts))}
	for _, p := range parts {
		c.Append(p)
	}
	return c
}

// Alloc appends a pooled segment of length n and returns it for filling.
func (c *Chain) Alloc(n int) []byte {
	buf, size := getBuf(n)
	buf = buf[:n]
	c.segs = append(c.segs, segment{data: buf, base: buf, slab: size})
	return buf
}

// Append attaches b as the last segment. Empty slices are ignored.
func (c *Chain) Append(b []byte) {
	if len(b) == 0 {
		return
	}
	c.segs = append(c.segs, segment{data: b})
}

// Prepend attaches b as the first segment.
func (c *Chain) Prepend(b []byte) {
	if len(b) == 0 {
		return
	}
	c.segs = append(c.segs, segment{})
	copy(c.segs[1:], c.segs)
	c.segs[0] = segment{data: b}
}

// Len returns the total number of bytes in the chain.
func (c *Chain) Len() int {
	n := 0
	for _, s := range c.segs {
		n += len(s.data)
	}
	return n
}

// NumSegments returns the number of segments.
func (c *Chain) NumSegments() int { return len(c.segs) }

// Segments returns the segment slices in order. The slices alias chain memory.
func (c *Chain) Segments() [][]byte {
	out := make([][]byte, len(c.segs))
	for i, s := range c.segs {
		out[i] = s.data
	}
	return out
}

// Pullup makes the first n bytes contiguous in the first segment and returns
// them. The first segment is only rebuilt when it is shorter than n.
func (c *Chain) Pullup(n int) ([]byte, error) {
	if c.released {
		return nil, ErrReleased
	}
	if n > c.Len() {
		return nil, io.ErrUnexpectedEOF
	}
	if n == 0 {
		return nil, nil
	}
	if len(c.segs[0].data) >= n {
		return c.segs[0].data[:n], nil
	}
	buf, size := getBuf(n)
	buf = buf[:n]
	need := n
	i := 0
	for need > 0 {
		s := &c.segs[i]
		k := copy(buf[n-need:], s.data)
		s.data = s.data[k:]
		need -= k
		if len(s.data) == 0 {
			putBuf(s.base, s.slab)
			i++
		}
	}
	rest := c.segs[i:]
	segs := make([]segment, 0, len(rest)+1)
	segs = append(segs, segment{data: buf, base: buf, slab: size})
	segs = append(segs, rest...)
	c.segs = segs
	return buf, nil
}

// TrimFront drops the first n bytes of the chain.
func (c *Chain) TrimFront(n int) {
	for n > 0 && len(c.segs) > 0 {
		s := &c.segs[0]
		if len(s.data) > n {
			s.data = s.data[n:]
			return
		}
		n -= len(s.data)
		putBuf(s.base, s.slab)
		c.segs = c.segs[1:]
	}
}

// ReadAt copies chain bytes starting at off into p.
func (c *Chain) ReadAt(p []byte, off int64) (int, error) {
	if c.released {
		return 0, ErrReleased
	}
	n := 0
	for _, s := range c.segs {
		if n == len(p) {
			break
		}
		l := int64(len(s.data))
		if off >= l {
			off -= l
			continue
		}
		n += copy(p[n:], s.data[off:])
		off = 0
	}
	if n < len(p) {
		return n, io.EOF
	}
	return n, nil
}

// Bytes flattens the chain into a newly allocated slice.
func (c *Chain) Bytes() []byte {
	out := make([]byte, 0, c.Len())
	for _, s := range c.segs {
		out = append(out, s.data...)
	}
	return out
}

// WriteTo writes every segment to w in order.
func (c *Chain) WriteTo(w io.Writer) (int64, error) {
	if c.released {
		return 0, ErrReleased
	}
	var total int64
	for _, s := range c.segs {
		n, err := w.Write(s.data)
		total += int64(n)
		if err != nil {
			return total, err
		}
	}
	return total, nil
}

// Release returns pooled segments and invalidates the chain. Releasing twice
// is a no-op.
func (c *Chain) Release() {
	if c == nil || c.released {
		return
	}
	for _, s := range c.segs {
		putBuf(s.base, s.slab)
	}
	c.segs = nil
	c.released = true
}

// Released reports whether Release has been called.
func (c *Chain) Released() bool { return c.released }
