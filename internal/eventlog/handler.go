package eventlog

import (
	"github.com/rzbill/devlog/internal/chain"
)

// StoreType identifies the medium behind a Handler.
type StoreType int

const (
	StoreConsole StoreType = iota + 1
	StoreMemory
	StoreFlash
)

func (s StoreType) String() string {
	switch s {
	case StoreConsole:
		return "console"
	case StoreMemory:
		return "memory"
	case StoreFlash:
		return "flash"
	default:
		return "unknown"
	}
}

// FullPolicy declares what a handler does when its storage is exhausted.
type FullPolicy int

const (
	// PolicyNone applies to media that do not retain entries.
	PolicyNone FullPolicy = iota
	// PolicyReject fails new appends with logerr.ErrFull.
	PolicyReject
	// PolicyOverwrite evicts the oldest entries to make room.
	PolicyOverwrite
)

func (p FullPolicy) String() string {
	switch p {
	case PolicyReject:
		return "reject"
	case PolicyOverwrite:
		return "overwrite"
	default:
		return "none"
	}
}

// Locator is an opaque, handler-specific reference to one stored entry. It is
// produced by Handler.Walk and only meaningful to the handler that made it.
type Locator any

// RawWalkFunc receives each stored entry surfaced by a handler. n is the full
// entry length, header included. A non-nil return stops the walk and must be
// returned by the handler unchanged.
type RawWalkFunc func(loc Locator, n int) error

// Handler is the contract every storage medium implements.
//
// Append receives a flat buffer whose first HeaderSize bytes already hold the
// encoded header. Walk surfaces entries oldest first; when off.Mode is
// WalkLast it should surface only the newest entry. Entries must be either
// fully visible or not visible at all to Walk and Read.
type Handler interface {
	Store() StoreType
	Append(buf []byte) error
	Read(loc Locator, buf []byte, off int) (int, error)
	Walk(fn RawWalkFunc, off *Offset) error
	Flush() error
}

// BodyAppender appends a header and a separate body without the caller
// assembling them. Handlers without it get a copy-into-flat default.
type BodyAppender interface {
	AppendBody(hdr, body []byte) error
}

// ChainAppender appends a scatter-gather chain whose first segment starts with
// the encoded header. On success the handler owns the chain and reports
// chain.Consumed; on failure it must report chain.ReturnedToCaller.
type ChainAppender interface {
	AppendChain(c *chain.Chain) (chain.Disposition, error)
}

// ChainReader reads n bytes at off of an entry into the tail of c.
type ChainReader interface {
	ReadChain(loc Locator, c *chain.Chain, off, n int) (int, error)
}

// Attacher is notified exactly once, when the handler is bound to a Log.
type Attacher interface {
	OnAttach(l *Log) error
}

// Clearer erases all stored entries.
type Clearer interface {
	Clear() error
}

// Capacity is implemented by handlers that declare their full-storage policy
// and largest accepted entry (header included, 0 for unbounded).
type Capacity interface {
	Policy() FullPolicy
	MaxEntrySize() int
}

// IndexKeeper is implemented by handlers that persist the index following
// their newest append, so numbering resumes correctly after Clear or after
// every retained entry was overwritten.
type IndexKeeper interface {
	NextIndex() (next uint32, known bool)
}
