// Package pebblestore is the key-value layer under flash logs: a Pebble
// database with an fsync policy, atomic batch updates, bounded scans and a
// metrics hook.
//
// Usage:
//
//	db, err := pebblestore.Open(pebblestore.Options{
//	    DataDir: "./data",
//	    Fsync:   pebblestore.FsyncModeInterval,
//	    Metrics: pebblestore.NewMetricsHook(metrics.DefaultRegistry, "devlog.pebble."),
//	})
//	if err != nil { /* handle */ }
//	defer db.Close()
//
//	_ = db.Update(func(b *pebble.Batch) error {
//	    return b.Set([]byte("k"), []byte("v"), nil)
//	})
//	_ = db.Scan([]byte("k"), nil, false, func(key, value []byte) error { return nil })
package pebblestore
