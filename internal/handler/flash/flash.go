// Package flash is an event log handler that models a circular flash store
// on Pebble. Records are packed into a fixed number of equally sized
// sectors; space is reclaimed one whole sector at a time, oldest first.
package flash

import (
	"errors"
	"fmt"
	"strings"
	"sync"

	"github.com/cockroachdb/pebble"

	"github.com/rzbill/devlog/internal/chain"
	"github.com/rzbill/devlog/internal/entry"
	"github.com/rzbill/devlog/internal/eventlog"
	"github.com/rzbill/devlog/internal/logerr"
	pebblestore "github.com/rzbill/devlog/internal/storage/pebble"
	logpkg "github.com/rzbill/devlog/pkg/log"
)

// Defaults applied by New to zero Options fields.
const (
	DefaultSectorSize = 4096
	DefaultSectors    = 8
)

// Options configures a Store.
type Options struct {
	// SectorSize is the erase unit size in bytes, framing included.
	SectorSize int
	// Sectors is the number of erase units.
	Sectors int
	// Policy is PolicyOverwrite (erase the oldest sector) or PolicyReject.
	Policy eventlog.FullPolicy
	// MaxEntry rejects entries longer than this many bytes, header included.
	// Zero means limited by the sector size only.
	MaxEntry int
	Hook     ReclaimHook
	Logger   logpkg.Logger
}

// Store is a flash-style circular event log store. It binds to exactly one
// Log on attach.
type Store struct {
	db     *pebblestore.DB
	opts   Options
	hook   ReclaimHook
	logger logpkg.Logger

	mu       sync.Mutex
	name     string
	format   entry.Format
	hsz      int
	attached bool
	nextSeq  uint64
	// nextIndex is the log index after the newest append, kept across Clear.
	nextIndex  uint32
	indexKnown bool
	sectors  []sector // oldest first; the last one is active
	erased   uint64
}

var (
	_ eventlog.Handler       = (*Store)(nil)
	_ eventlog.BodyAppender  = (*Store)(nil)
	_ eventlog.ChainAppender = (*Store)(nil)
	_ eventlog.ChainReader   = (*Store)(nil)
	_ eventlog.Attacher      = (*Store)(nil)
	_ eventlog.Clearer       = (*Store)(nil)
	_ eventlog.Capacity      = (*Store)(nil)
	_ eventlog.IndexKeeper   = (*Store)(nil)
)

// New returns a store on db. Entries are keyed by the log name given at
// attach time.
func New(db *pebblestore.DB, opts Options) (*Store, error) {
	if db == nil {
		return nil, fmt.Errorf("flash store: nil db: %w", logerr.ErrInvalidArgument)
	}
	if opts.SectorSize == 0 {
		opts.SectorSize = DefaultSectorSize
	}
	if opts.Sectors == 0 {
		opts.Sectors = DefaultSectors
	}
	if opts.SectorSize <= recordOverhead || opts.Sectors < 1 {
		return nil, fmt.Errorf("flash store: %d sectors of %d bytes: %w", opts.Sectors, opts.SectorSize, logerr.ErrInvalidArgument)
	}
	switch opts.Policy {
	case eventlog.PolicyNone:
		opts.Policy = eventlog.PolicyOverwrite
	case eventlog.PolicyOverwrite, eventlog.PolicyReject:
	default:
		return nil, fmt.Errorf("flash store: policy %v: %w", opts.Policy, logerr.ErrInvalidArgument)
	}
	if opts.Logger == nil {
		opts.Logger = logpkg.NewLogger(logpkg.WithOutput(&logpkg.NullOutput{}))
	}
	hook := opts.Hook
	if hook == nil {
		hook = noopReclaim{}
	}
	return &Store{db: db, opts: opts, hook: hook, logger: opts.Logger.WithComponent("flash")}, nil
}

func (*Store) Store() eventlog.StoreType { return eventlog.StoreFlash }

// OnAttach binds the store to l and restores the sector table.
func (s *Store) OnAttach(l *eventlog.Log) error {
	name := l.Name()
	if strings.ContainsRune(name, '/') {
		return fmt.Errorf("flash log name %q contains '/': %w", name, logerr.ErrInvalidArgument)
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.attached {
		return fmt.Errorf("flash store already bound to %q: %w", s.name, logerr.ErrInvalidArgument)
	}
	s.name = name
	s.format = l.Format()
	s.hsz = s.format.HeaderSize()
	s.nextSeq = 1

	raw, err := s.db.Get(KeyMeta(name))
	switch {
	case errors.Is(err, pebblestore.ErrNotFound):
	case err != nil:
		return logerr.IO("flash load metadata", err)
	default:
		m, err := decodeMeta(raw)
		if err != nil {
			return err
		}
		s.nextSeq, s.sectors = m.nextSeq, m.sectors
		s.nextIndex, s.indexKnown = m.nextIndex, m.indexKnown
	}
	s.attached = true
	s.logger.Debug("flash store attached",
		logpkg.Str("log", name),
		logpkg.Int("sectors_in_use", len(s.sectors)),
		logpkg.Int64("next_seq", int64(s.nextSeq)))
	return nil
}

// Append stores a header-prefixed entry.
func (s *Store) Append(buf []byte) error {
	if err := s.ready(); err != nil {
		return err
	}
	if len(buf) < s.hsz {
		return fmt.Errorf("entry of %d bytes: %w", len(buf), logerr.ErrInvalidArgument)
	}
	return s.appendRecord(len(buf), buf[:s.hsz], buf[s.hsz:])
}

// AppendBody stores hdr and body as one record without joining them first.
func (s *Store) AppendBody(hdr, body []byte) error {
	if err := s.ready(); err != nil {
		return err
	}
	return s.appendRecord(len(hdr)+len(body), hdr, body)
}

// AppendChain frames the chain segments directly into a record. The chain is
// released on success.
func (s *Store) AppendChain(c *chain.Chain) (chain.Disposition, error) {
	if err := s.ready(); err != nil {
		return chain.ReturnedToCaller, err
	}
	hdr, err := c.Pullup(s.hsz)
	if err != nil {
		return chain.ReturnedToCaller, fmt.Errorf("chain shorter than header: %v: %w", err, logerr.ErrInvalidArgument)
	}
	segs := c.Segments()
	parts := make([][]byte, 0, len(segs))
	parts = append(parts, segs[0][s.hsz:])
	parts = append(parts, segs[1:]...)
	if err := s.appendRecord(c.Len(), hdr, parts...); err != nil {
		return chain.ReturnedToCaller, err
	}
	c.Release()
	return chain.Consumed, nil
}

func (s *Store) ready() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if !s.attached {
		return fmt.Errorf("flash store not attached: %w", logerr.ErrInvalidArgument)
	}
	return nil
}

func (s *Store) appendRecord(n int, hdr []byte, body ...[]byte) error {
	if s.opts.MaxEntry > 0 && n > s.opts.MaxEntry {
		return fmt.Errorf("entry of %d bytes exceeds %d: %w", n, s.opts.MaxEntry, logerr.ErrFull)
	}
	h, err := entry.Decode(s.format, hdr)
	if err != nil {
		return fmt.Errorf("flash append: %w", err)
	}
	rec := EncodeRecord(hdr, body...)
	if len(rec) > s.opts.SectorSize {
		return fmt.Errorf("record of %d bytes exceeds sector size %d: %w", len(rec), s.opts.SectorSize, logerr.ErrFull)
	}

	s.mu.Lock()
	seq := s.nextSeq
	secs := append([]sector(nil), s.sectors...)

	type erase struct{ lo, hi []byte }
	var erases []erase
	var reclaimed []Reclaim
	if len(secs) == 0 || secs[len(secs)-1].used+len(rec) > s.opts.SectorSize {
		var nextID uint32
		if len(secs) > 0 {
			nextID = (secs[len(secs)-1].id + 1) % uint32(s.opts.Sectors)
		}
		for len(secs) >= s.opts.Sectors {
			if s.opts.Policy == eventlog.PolicyReject {
				s.mu.Unlock()
				return fmt.Errorf("flash log %q: all %d sectors in use: %w", s.name, s.opts.Sectors, logerr.ErrFull)
			}
			end := seq
			if len(secs) > 1 {
				end = secs[1].firstSeq
			}
			old := secs[0]
			erases = append(erases, erase{KeyEntry(s.name, old.firstSeq), KeyEntry(s.name, end)})
			reclaimed = append(reclaimed, Reclaim{
				Log: s.name, Sector: old.id, FirstSeq: old.firstSeq, LastSeq: end - 1,
				Entries: old.count, Bytes: old.used,
			})
			secs = secs[1:]
		}
		secs = append(secs, sector{id: nextID, firstSeq: seq})
	}
	active := &secs[len(secs)-1]
	active.used += len(rec)
	active.count++

	// Sector erase, record and metadata land in one batch.
	err = s.db.Update(func(b *pebble.Batch) error {
		for _, e := range erases {
			if err := b.DeleteRange(e.lo, e.hi, nil); err != nil {
				return err
			}
		}
		if err := b.Set(KeyEntry(s.name, seq), rec, nil); err != nil {
			return err
		}
		return b.Set(KeyMeta(s.name), encodeMeta(meta{
			nextSeq: seq + 1, nextIndex: h.Index + 1, indexKnown: true, sectors: secs,
		}), nil)
	})
	if err != nil {
		s.mu.Unlock()
		return logerr.IO("flash write", err)
	}
	s.nextSeq = seq + 1
	s.nextIndex, s.indexKnown = h.Index+1, true
	s.sectors = secs
	s.erased += uint64(len(reclaimed))
	s.mu.Unlock()

	s.report(reclaimed)
	return nil
}

func (s *Store) report(reclaimed []Reclaim) {
	for _, rc := range reclaimed {
		s.logger.Debug("flash sector erased",
			logpkg.Str("log", rc.Log),
			logpkg.Uint32("sector", rc.Sector),
			logpkg.Int("entries", rc.Entries))
		s.hook.OnReclaim(rc)
	}
}

// Flush persists buffered writes to sstables.
func (s *Store) Flush() error {
	if err := s.db.Flush(); err != nil {
		return logerr.IO("flash flush", err)
	}
	return nil
}

// Clear erases every sector. Storage sequences keep increasing.
func (s *Store) Clear() error {
	if err := s.ready(); err != nil {
		return err
	}
	s.mu.Lock()
	lo, hi := entryBounds(s.name)
	err := s.db.Update(func(b *pebble.Batch) error {
		if err := b.DeleteRange(lo, hi, nil); err != nil {
			return err
		}
		return b.Set(KeyMeta(s.name), encodeMeta(meta{
			nextSeq: s.nextSeq, nextIndex: s.nextIndex, indexKnown: s.indexKnown,
		}), nil)
	})
	if err != nil {
		s.mu.Unlock()
		return logerr.IO("flash clear", err)
	}
	reclaimed := make([]Reclaim, 0, len(s.sectors))
	for i, sec := range s.sectors {
		end := s.nextSeq
		if i+1 < len(s.sectors) {
			end = s.sectors[i+1].firstSeq
		}
		reclaimed = append(reclaimed, Reclaim{
			Log: s.name, Sector: sec.id, FirstSeq: sec.firstSeq, LastSeq: end - 1,
			Entries: sec.count, Bytes: sec.used,
		})
	}
	s.sectors = nil
	s.erased += uint64(len(reclaimed))
	s.mu.Unlock()

	s.report(reclaimed)
	return nil
}

func (s *Store) Policy() eventlog.FullPolicy { return s.opts.Policy }

// NextIndex reports the persisted log index that follows the newest append,
// including appends whose entries were since erased.
func (s *Store) NextIndex() (uint32, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.nextIndex, s.indexKnown
}

// MaxEntrySize is the largest entry, header included, that fits one sector
// and the configured limit.
func (s *Store) MaxEntrySize() int {
	max := s.opts.SectorSize - recordOverhead
	if s.opts.MaxEntry > 0 && s.opts.MaxEntry < max {
		max = s.opts.MaxEntry
	}
	return max
}

// Stats reports sector occupancy.
type Stats struct {
	SectorsInUse int
	Sectors      int
	SectorSize   int
	Entries      int
	Used         int
	Erased       uint64
	NextSeq      uint64
}

// Stats returns current occupancy counters.
func (s *Store) Stats() Stats {
	s.mu.Lock()
	defer s.mu.Unlock()
	st := Stats{
		SectorsInUse: len(s.sectors),
		Sectors:      s.opts.Sectors,
		SectorSize:   s.opts.SectorSize,
		Erased:       s.erased,
		NextSeq:      s.nextSeq,
	}
	for _, sec := range s.sectors {
		st.Entries += sec.count
		st.Used += sec.used
	}
	return st
}
