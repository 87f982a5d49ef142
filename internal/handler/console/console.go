// Package console is a write-only event log handler that renders each entry
// as one text line on a writer, or mirrors it into a process logger.
package console

import (
	"bytes"
	"encoding/hex"
	"fmt"
	"io"
	"strconv"
	"sync"

	"github.com/fxamacker/cbor/v2"

	"github.com/rzbill/devlog/internal/entry"
	"github.com/rzbill/devlog/internal/eventlog"
	"github.com/rzbill/devlog/internal/logerr"
	logpkg "github.com/rzbill/devlog/pkg/log"
)

// Console renders entries as they are appended. Nothing is retained.
type Console struct {
	mu     sync.Mutex
	w      io.Writer
	logger logpkg.Logger
	reg    *eventlog.Registry
	line   bytes.Buffer
}

var (
	_ eventlog.Handler      = (*Console)(nil)
	_ eventlog.BodyAppender = (*Console)(nil)
	_ eventlog.Attacher     = (*Console)(nil)
	_ eventlog.Capacity     = (*Console)(nil)
)

// New returns a console handler writing lines to w.
func New(w io.Writer) *Console { return &Console{w: w} }

// NewMirror returns a console handler that forwards entries to logger at the
// matching severity.
func NewMirror(logger logpkg.Logger) *Console { return &Console{logger: logger} }

// OnAttach records the registry used to decode headers and name modules.
func (c *Console) OnAttach(l *eventlog.Log) error {
	c.reg = l.Registry()
	return nil
}

func (*Console) Store() eventlog.StoreType { return eventlog.StoreConsole }

// Append renders a header-prefixed entry.
func (c *Console) Append(buf []byte) error {
	hsz := c.headerSize()
	if len(buf) < hsz {
		return fmt.Errorf("entry of %d bytes: %w", len(buf), logerr.ErrCorrupt)
	}
	return c.AppendBody(buf[:hsz], buf[hsz:])
}

// AppendBody renders hdr and body without joining them.
func (c *Console) AppendBody(hdr, body []byte) error {
	h, err := entry.Decode(c.format(), hdr)
	if err != nil {
		return err
	}
	text := Render(h.Type, body)
	mod := c.moduleName(h.Module)

	if c.logger != nil {
		c.logger.Log(mirrorLevel(h.Level), text,
			logpkg.Int64("ts", h.Timestamp),
			logpkg.Str("mod", mod),
			logpkg.Uint32("idx", h.Index))
		return nil
	}

	c.mu.Lock()
	defer c.mu.Unlock()
	c.line.Reset()
	c.line.WriteString("[ts=")
	c.line.WriteString(strconv.FormatInt(h.Timestamp, 10))
	c.line.WriteString(" mod=")
	c.line.WriteString(mod)
	c.line.WriteString(" level=")
	c.line.WriteString(entry.LevelName(h.Level))
	c.line.WriteString(" idx=")
	c.line.WriteString(strconv.FormatUint(uint64(h.Index), 10))
	c.line.WriteString("] ")
	c.line.WriteString(text)
	c.line.WriteByte('\n')
	if _, err := c.w.Write(c.line.Bytes()); err != nil {
		return logerr.IO("console write", err)
	}
	return nil
}

// Read is not supported; the console keeps no entries.
func (*Console) Read(eventlog.Locator, []byte, int) (int, error) {
	return 0, fmt.Errorf("read console log: %w", logerr.ErrUnsupported)
}

// Walk is not supported; the console keeps no entries.
func (*Console) Walk(eventlog.RawWalkFunc, *eventlog.Offset) error {
	return fmt.Errorf("walk console log: %w", logerr.ErrUnsupported)
}

func (*Console) Flush() error { return nil }

func (*Console) Policy() eventlog.FullPolicy { return eventlog.PolicyNone }
func (*Console) MaxEntrySize() int           { return 0 }

func (c *Console) format() entry.Format {
	if c.reg == nil {
		return entry.FormatV3
	}
	return c.reg.Format()
}

func (c *Console) headerSize() int { return c.format().HeaderSize() }

func (c *Console) moduleName(id uint8) string {
	if c.reg == nil {
		return strconv.Itoa(int(id))
	}
	return c.reg.Modules().NameOr(id)
}

// Render turns a body into printable text according to its type tag: CBOR in
// diagnostic notation, binary as hex, text unchanged.
func Render(typ entry.Type, body []byte) string {
	switch typ {
	case entry.TypeCBOR:
		if s, err := cbor.Diagnose(body); err == nil {
			return s
		}
		return "cbor:" + hex.EncodeToString(body)
	case entry.TypeBinary:
		return hex.EncodeToString(body)
	default:
		return string(body)
	}
}

func mirrorLevel(level uint8) logpkg.Level {
	if level > entry.LevelCritical {
		return logpkg.CriticalLevel
	}
	return logpkg.Level(level)
}
