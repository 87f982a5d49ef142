package eventlog

import "github.com/rzbill/devlog/internal/entry"

// TimeMode selects the timestamp filter of a walk.
type TimeMode int

const (
	// WalkAll admits every entry.
	WalkAll TimeMode = iota
	// WalkLast visits only the newest entry.
	WalkLast
	// WalkSince admits entries with Timestamp >= Offset.Timestamp.
	WalkSince
)

// Offset describes which entries a walk or read visits.
type Offset struct {
	Mode      TimeMode
	Timestamp int64
	// Index is a lower bound; entries with a smaller index are skipped.
	Index uint32
	// DataLen is set to the byte count of the last successful read.
	DataLen int
	// Arg is passed through to the callback untouched.
	Arg any
}

// OffsetFromTS maps the management wire convention onto an Offset:
// ts == -1 means last entry only, ts == 0 means unfiltered, otherwise since ts.
func OffsetFromTS(ts int64, index uint32) *Offset {
	off := &Offset{Index: index}
	switch {
	case ts < 0:
		off.Mode = WalkLast
	case ts == 0:
		off.Mode = WalkAll
	default:
		off.Mode = WalkSince
		off.Timestamp = ts
	}
	return off
}

func (o *Offset) admits(h entry.Header) bool {
	if o.Mode == WalkSince && h.Timestamp < o.Timestamp {
		return false
	}
	return h.Index >= o.Index
}
