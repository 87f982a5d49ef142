package flash

import (
	"encoding/binary"
)

// Keyspace helpers for Pebble keys.
//
// Layout (byte-wise, lexicographically sortable):
// - log/{name}/m              metadata and sector table
// - log/{name}/e/{seq_be8}    framed entry records

var (
	logPrefix  = []byte("log/")
	metaSuffix = []byte("/m")
	entrySeg   = []byte("/e/")
)

func appendBE8(dst []byte, v uint64) []byte {
	var b [8]byte
	binary.BigEndian.PutUint64(b[:], v)
	return append(dst, b[:]...)
}

// KeyMeta builds the metadata key of a log.
func KeyMeta(name string) []byte {
	k := make([]byte, 0, len(logPrefix)+len(name)+len(metaSuffix))
	k = append(k, logPrefix...)
	k = append(k, name...)
	k = append(k, metaSuffix...)
	return k
}

// KeyEntry builds an entry key with a big-endian storage sequence for
// ordering.
func KeyEntry(name string, seq uint64) []byte {
	k := make([]byte, 0, len(logPrefix)+len(name)+len(entrySeg)+8)
	k = append(k, logPrefix...)
	k = append(k, name...)
	k = append(k, entrySeg...)
	k = appendBE8(k, seq)
	return k
}

// entryBounds returns iterator bounds covering every entry key of a log.
func entryBounds(name string) (lower, upper []byte) {
	lower = KeyEntry(name, 0)
	upper = append(KeyEntry(name, ^uint64(0)), 0x00)
	return lower, upper
}

// seqFromKey extracts the storage sequence from an entry key.
func seqFromKey(k []byte) uint64 {
	return binary.BigEndian.Uint64(k[len(k)-8:])
}
