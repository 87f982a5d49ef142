package pebblestore

import (
	"errors"
	"time"

	"github.com/cockroachdb/pebble"
)

// ErrNotFound is returned by Get for missing keys.
var ErrNotFound = pebble.ErrNotFound

// ErrClosed is returned by operations on a closed store.
var ErrClosed = errors.New("pebble: closed")

// FsyncMode defines durability behavior for write operations.
type FsyncMode int

const (
	FsyncModeUnspecified FsyncMode = iota
	// FsyncModeAlways syncs the WAL on every committed update.
	FsyncModeAlways
	// FsyncModeInterval lets Pebble coalesce WAL syncs within the configured
	// interval.
	FsyncModeInterval
	// FsyncModeNever leaves syncing to Pebble and the OS.
	FsyncModeNever
)

// ParseFsyncMode maps always|interval|never onto a mode. The empty string
// selects FsyncModeUnspecified.
func ParseFsyncMode(s string) (FsyncMode, error) {
	switch s {
	case "":
		return FsyncModeUnspecified, nil
	case "always":
		return FsyncModeAlways, nil
	case "interval":
		return FsyncModeInterval, nil
	case "never":
		return FsyncModeNever, nil
	}
	return FsyncModeUnspecified, errors.New("pebble: unknown fsync mode " + s)
}

// Options configures the store.
type Options struct {
	DataDir string
	Fsync   FsyncMode
	// FsyncInterval applies to FsyncModeInterval; 5ms when zero.
	FsyncInterval time.Duration
	// PebbleOptions allows advanced tuning. Defaults are used when nil.
	PebbleOptions *pebble.Options
	// Metrics observes point reads, scans and commits. Optional.
	Metrics MetricsHook
}

// MetricsHook receives storage observations.
type MetricsHook interface {
	ObserveWrite(elapsed time.Duration, bytes int)
	ObserveRead(elapsed time.Duration, bytes int)
	ObserveBatchCommit(elapsed time.Duration, numOps int, bytes int)
}

// NoopMetrics discards observations.
type NoopMetrics struct{}

func (NoopMetrics) ObserveWrite(time.Duration, int)            {}
func (NoopMetrics) ObserveRead(time.Duration, int)             {}
func (NoopMetrics) ObserveBatchCommit(time.Duration, int, int) {}

// DB is the key-value store behind flash logs. Every mutation is one atomic
// batch committed with the configured fsync policy.
type DB struct {
	inner     *pebble.DB
	writeSync bool
	metrics   MetricsHook
}

// Open creates or opens the store at opts.DataDir.
func Open(opts Options) (*DB, error) {
	if opts.DataDir == "" {
		return nil, errors.New("pebble: Options.DataDir is required")
	}
	po := opts.PebbleOptions
	if po == nil {
		po = &pebble.Options{}
	}
	switch opts.Fsync {
	case FsyncModeAlways, FsyncModeNever:
	case FsyncModeInterval:
		interval := opts.FsyncInterval
		if interval <= 0 {
			interval = 5 * time.Millisecond
		}
		po.WALMinSyncInterval = func() time.Duration { return interval }
	default:
		po.WALMinSyncInterval = func() time.Duration { return 5 * time.Millisecond }
	}
	inner, err := pebble.Open(opts.DataDir, po)
	if err != nil {
		return nil, err
	}
	m := opts.Metrics
	if m == nil {
		m = NoopMetrics{}
	}
	return &DB{inner: inner, writeSync: opts.Fsync == FsyncModeAlways, metrics: m}, nil
}

// Close closes the store. Closing twice is a no-op.
func (db *DB) Close() error {
	if db == nil || db.inner == nil {
		return nil
	}
	err := db.inner.Close()
	db.inner = nil
	return err
}

// Update runs fn against a fresh batch and commits it atomically. Nothing is
// written when fn fails.
func (db *DB) Update(fn func(b *pebble.Batch) error) error {
	if db.inner == nil {
		return ErrClosed
	}
	b := db.inner.NewBatch()
	defer b.Close()
	if err := fn(b); err != nil {
		return err
	}
	if b.Empty() {
		return nil
	}
	sync := pebble.NoSync
	if db.writeSync {
		sync = pebble.Sync
	}
	start := time.Now()
	size, ops := b.Len(), int(b.Count())
	err := b.Commit(sync)
	db.metrics.ObserveBatchCommit(time.Since(start), ops, size)
	return err
}

// Set writes one key.
func (db *DB) Set(key, value []byte) error {
	start := time.Now()
	if err := db.Update(func(b *pebble.Batch) error { return b.Set(key, value, nil) }); err != nil {
		return err
	}
	db.metrics.ObserveWrite(time.Since(start), len(key)+len(value))
	return nil
}

// Get copies the value for key. Missing keys return ErrNotFound.
func (db *DB) Get(key []byte) ([]byte, error) {
	if db.inner == nil {
		return nil, ErrClosed
	}
	start := time.Now()
	val, closer, err := db.inner.Get(key)
	if err != nil {
		return nil, err
	}
	defer closer.Close()
	buf := append([]byte(nil), val...)
	db.metrics.ObserveRead(time.Since(start), len(buf))
	return buf, nil
}

// ScanFunc receives one key and value of a scan. Both slices are only valid
// for the duration of the call.
type ScanFunc func(key, value []byte) error

// Scan visits keys in [lo, hi) in ascending order, or only the greatest one
// when lastOnly is set. An error from fn ends the scan and is returned as-is.
func (db *DB) Scan(lo, hi []byte, lastOnly bool, fn ScanFunc) error {
	if db.inner == nil {
		return ErrClosed
	}
	start := time.Now()
	iter, err := db.inner.NewIter(&pebble.IterOptions{LowerBound: lo, UpperBound: hi})
	if err != nil {
		return err
	}
	read := 0
	visit := func() error {
		read += len(iter.Value())
		return fn(iter.Key(), iter.Value())
	}
	var ferr error
	if lastOnly {
		if iter.Last() {
			ferr = visit()
		}
	} else {
		for ok := iter.First(); ok && ferr == nil; ok = iter.Next() {
			ferr = visit()
		}
	}
	ierr := iter.Close()
	db.metrics.ObserveRead(time.Since(start), read)
	if ferr != nil {
		return ferr
	}
	return ierr
}

// Flush persists the memtable to sstables.
func (db *DB) Flush() error {
	if db.inner == nil {
		return ErrClosed
	}
	return db.inner.Flush()
}

// Check reports whether the store answers a point read.
func (db *DB) Check() error {
	if db == nil || db.inner == nil {
		return ErrClosed
	}
	_, closer, err := db.inner.Get([]byte("\x00health"))
	if err == nil {
		closer.Close()
		return nil
	}
	if errors.Is(err, pebble.ErrNotFound) {
		return nil
	}
	return err
}
