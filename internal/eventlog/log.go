package eventlog

import (
	"fmt"
	"sync"
	"sync/atomic"

	"github.com/fxamacker/cbor/v2"

	"github.com/rzbill/devlog/internal/chain"
	"github.com/rzbill/devlog/internal/entry"
	"github.com/rzbill/devlog/internal/logerr"
)

// Log is a named event log bound to one Handler. Logs are created by
// Registry.Register and never destroyed.
type Log struct {
	name  string
	reg   *Registry
	h     Handler
	level atomic.Uint32

	mu       sync.Mutex // serializes appends; guards next and notifyCh
	next     uint32
	notifyCh chan struct{}
	metrics  logMetrics
}

// Name returns the log name.
func (l *Log) Name() string { return l.name }

// Handler returns the bound storage handler.
func (l *Log) Handler() Handler { return l.h }

// Store returns the medium type of the bound handler.
func (l *Log) Store() StoreType { return l.h.Store() }

// Format returns the header layout used by this log.
func (l *Log) Format() entry.Format { return l.reg.format }

// Registry returns the owning registry.
func (l *Log) Registry() *Registry { return l.reg }

// Level returns the log-wide minimum level.
func (l *Log) Level() uint8 { return uint8(l.level.Load()) }

// SetLevel changes the log-wide minimum level.
func (l *Log) SetLevel(level uint8) { l.level.Store(uint32(level)) }

// NextIndex returns the index the next successful append will receive.
func (l *Log) NextIndex() uint32 {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.next
}

// admit applies the log-wide and per-module level gates.
func (l *Log) admit(module, level uint8) bool {
	if level < l.Level() || level < l.reg.levels.Get(module) {
		l.metrics.dropped.Inc(1)
		return false
	}
	return true
}

func (l *Log) checkBody(n int) error {
	if n > l.reg.opts.MaxEntryLen {
		return fmt.Errorf("body %d > %d: %w", n, l.reg.opts.MaxEntryLen, logerr.ErrInvalidArgument)
	}
	return nil
}

// header builds the next header. Caller holds l.mu.
func (l *Log) header(module, level uint8, typ entry.Type) entry.Header {
	return entry.Header{
		Timestamp: l.reg.opts.Clock(),
		Index:     l.next,
		Module:    module,
		Level:     level,
		Type:      typ,
	}
}

// committed advances the index after a successful append. Caller holds l.mu.
func (l *Log) committed(n int) {
	l.next++
	l.metrics.appended.Inc(1)
	l.metrics.bytes.Mark(int64(n))
	close(l.notifyCh)
	l.notifyCh = make(chan struct{})
}

func (l *Log) failed() { l.metrics.failed.Inc(1) }

// AppendTyped appends a flat buffer laid out as HeaderSize bytes of padding
// followed by the body. The header is written into the padding in place.
// Entries below the module or log level are dropped and nil is returned.
func (l *Log) AppendTyped(module, level uint8, typ entry.Type, buf []byte) error {
	hsz := l.reg.HeaderSize()
	if len(buf) < hsz {
		return fmt.Errorf("buffer %d shorter than header %d: %w", len(buf), hsz, logerr.ErrInvalidArgument)
	}
	if !l.admit(module, level) {
		return nil
	}
	if err := l.checkBody(len(buf) - hsz); err != nil {
		return err
	}

	l.mu.Lock()
	defer l.mu.Unlock()
	if err := entry.Put(l.reg.format, buf, l.header(module, level, typ)); err != nil {
		return err
	}
	if err := l.h.Append(buf); err != nil {
		l.failed()
		return err
	}
	l.committed(len(buf))
	return nil
}

// Append appends a text entry from a header-padded flat buffer.
func (l *Log) Append(module, level uint8, buf []byte) error {
	return l.AppendTyped(module, level, entry.TypeString, buf)
}

// AppendBody appends body without requiring header padding.
func (l *Log) AppendBody(module, level uint8, typ entry.Type, body []byte) error {
	if !l.admit(module, level) {
		return nil
	}
	return l.appendBody(module, level, typ, body)
}

// appendBody is AppendBody after the level gate.
func (l *Log) appendBody(module, level uint8, typ entry.Type, body []byte) error {
	if err := l.checkBody(len(body)); err != nil {
		return err
	}

	l.mu.Lock()
	defer l.mu.Unlock()
	hdr := entry.Encode(l.reg.format, l.header(module, level, typ))
	var err error
	if ba, ok := l.h.(BodyAppender); ok {
		err = ba.AppendBody(hdr, body)
	} else {
		err = appendBodyFlat(l.h, hdr, body)
	}
	if err != nil {
		l.failed()
		return err
	}
	l.committed(len(hdr) + len(body))
	return nil
}

// Printf appends a formatted text entry truncated to the registry's
// PrintfMaxLen.
func (l *Log) Printf(module, level uint8, format string, args ...any) error {
	if !l.admit(module, level) {
		return nil
	}
	msg := fmt.Sprintf(format, args...)
	if max := l.reg.opts.PrintfMaxLen; len(msg) > max {
		msg = msg[:max]
	}
	return l.appendBody(module, level, entry.TypeString, []byte(msg))
}

// AppendMap appends v encoded as CBOR with the structured type tag.
func (l *Log) AppendMap(module, level uint8, v any) error {
	if !l.admit(module, level) {
		return nil
	}
	body, err := cbor.Marshal(v)
	if err != nil {
		return fmt.Errorf("encode cbor body: %v: %w", err, logerr.ErrInvalidArgument)
	}
	return l.appendBody(module, level, entry.TypeCBOR, body)
}

// AppendChain appends a chain whose first HeaderSize bytes are header padding
// followed by the body. On success the handler owns the chain (Consumed); on
// failure, or when the entry is filtered out, the caller keeps it
// (ReturnedToCaller) and must Release it.
func (l *Log) AppendChain(module, level uint8, typ entry.Type, c *chain.Chain) (chain.Disposition, error) {
	if c == nil || c.Released() {
		return chain.ReturnedToCaller, fmt.Errorf("nil or released chain: %w", logerr.ErrInvalidArgument)
	}
	if !l.admit(module, level) {
		return chain.ReturnedToCaller, nil
	}
	return l.appendChain(module, level, typ, c)
}

// appendChain is AppendChain after the level gate.
func (l *Log) appendChain(module, level uint8, typ entry.Type, c *chain.Chain) (chain.Disposition, error) {
	hsz := l.reg.HeaderSize()
	if err := l.checkBody(c.Len() - hsz); err != nil {
		return chain.ReturnedToCaller, err
	}
	head, err := c.Pullup(hsz)
	if err != nil {
		return chain.ReturnedToCaller, fmt.Errorf("chain shorter than header: %v: %w", err, logerr.ErrInvalidArgument)
	}

	l.mu.Lock()
	defer l.mu.Unlock()
	if err := entry.Put(l.reg.format, head, l.header(module, level, typ)); err != nil {
		return chain.ReturnedToCaller, err
	}
	n := c.Len()
	var disp chain.Disposition
	if ca, ok := l.h.(ChainAppender); ok {
		disp, err = ca.AppendChain(c)
	} else {
		disp, err = appendChainFlat(l.h, c)
	}
	if err != nil {
		l.failed()
		return disp, err
	}
	l.committed(n)
	return disp, nil
}

// AppendChainAlways is AppendChain for callers that hand over ownership
// unconditionally: the chain is released on failure and on filtering.
func (l *Log) AppendChainAlways(module, level uint8, typ entry.Type, c *chain.Chain) error {
	disp, err := l.AppendChain(module, level, typ, c)
	if disp == chain.ReturnedToCaller {
		c.Release()
	}
	return err
}

// AppendChainBody appends a chain holding only the body. A header segment is
// prepended without copying the body; it is removed again if the chain is
// returned to the caller.
func (l *Log) AppendChainBody(module, level uint8, typ entry.Type, body *chain.Chain) (chain.Disposition, error) {
	if body == nil || body.Released() {
		return chain.ReturnedToCaller, fmt.Errorf("nil or released chain: %w", logerr.ErrInvalidArgument)
	}
	if !l.admit(module, level) {
		return chain.ReturnedToCaller, nil
	}
	hsz := l.reg.HeaderSize()
	body.Prepend(make([]byte, hsz))
	disp, err := l.appendChain(module, level, typ, body)
	if disp == chain.ReturnedToCaller {
		body.TrimFront(hsz)
	}
	return disp, err
}

// Flush forces buffered handler state to durable form.
func (l *Log) Flush() error { return l.h.Flush() }

// Clear erases the stored entries. The index keeps counting from where it was.
func (l *Log) Clear() error {
	c, ok := l.h.(Clearer)
	if !ok {
		return fmt.Errorf("clear %s log: %w", l.h.Store(), logerr.ErrUnsupported)
	}
	l.mu.Lock()
	defer l.mu.Unlock()
	return c.Clear()
}

// Policy returns the handler's declared full-storage policy.
func (l *Log) Policy() FullPolicy {
	if c, ok := l.h.(Capacity); ok {
		return c.Policy()
	}
	return PolicyNone
}
