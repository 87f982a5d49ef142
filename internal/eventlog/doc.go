// Package eventlog is the core of devlog: a registry of named event logs,
// each bound to one storage Handler, sharing a module table and a per-module
// minimum level filter.
//
// # Entries
//
// Every entry is a fixed-size header (see package entry) followed by a body of
// at most Options.MaxEntryLen bytes. The header carries a timestamp, a per-log
// index, the module id, the level and, in the v3 layout, a body type tag. The
// index increases by one for every entry the handler accepted; filtered and
// failed appends do not consume an index. Appends to one log are serialized.
//
// # Handlers
//
// A Handler stores flat entries and surfaces them oldest first through Walk.
// Optional interfaces let a handler take bodies separately (BodyAppender),
// take scatter-gather chains (ChainAppender, ChainReader), learn its Log
// (Attacher), erase itself (Clearer) and declare its capacity (Capacity).
// Missing optional interfaces fall back to copying defaults.
//
// API surface
//
//	reg, _ := NewRegistry(Options{Capabilities: Capabilities{Format: entry.FormatV3, ModuleLevels: true}})
//	id, _ := reg.Modules().Register(AutoID, "sensor")
//	ring, _ := memring.New(64 << 10)
//	l, _ := reg.Register("app", ring, entry.LevelDebug)
//
//	_ = l.Printf(id, entry.LevelWarn, "battery %dmV", 3300)
//	_ = l.AppendMap(id, entry.LevelInfo, map[string]any{"temp": 21})
//
//	// Walk everything since a timestamp; a callback error stops the walk
//	// and is returned unchanged.
//	_ = l.WalkBody(func(l *Log, off *Offset, hdr *entry.Header, loc Locator, n int) error {
//		return nil
//	}, &Offset{Mode: WalkSince, Timestamp: ts})
//
//	// Chains: on success the handler owns c, otherwise the caller does.
//	disp, err := l.AppendChainBody(id, entry.LevelInfo, entry.TypeBinary, c)
//
//	// Blocking wait for the next successful append.
//	_ = l.Wait(ctx)
package eventlog
