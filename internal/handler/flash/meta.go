package flash

import (
	"encoding/binary"
	"fmt"

	"github.com/rzbill/devlog/internal/logerr"
)

const metaVersion = 2

// sector is one erase unit in use. Entries of a sector occupy the storage
// sequence range [firstSeq, next sector's firstSeq).
type sector struct {
	id       uint32
	firstSeq uint64
	used     int
	count    int
}

const sectorEncLen = 4 + 8 + 4 + 4

// meta is the persisted state of one flash log.
type meta struct {
	nextSeq uint64
	// nextIndex is the log index the next append receives. indexKnown is
	// false for metadata written before the index was recorded.
	nextIndex  uint32
	indexKnown bool
	sectors    []sector
}

// encodeMeta layout: version(1) | nextSeq(8) | nextIndex(4) | nsectors(4) | sectors...
func encodeMeta(m meta) []byte {
	b := make([]byte, 0, 1+8+4+4+len(m.sectors)*sectorEncLen)
	b = append(b, metaVersion)
	b = binary.BigEndian.AppendUint64(b, m.nextSeq)
	b = binary.BigEndian.AppendUint32(b, m.nextIndex)
	b = binary.BigEndian.AppendUint32(b, uint32(len(m.sectors)))
	for _, s := range m.sectors {
		b = binary.BigEndian.AppendUint32(b, s.id)
		b = binary.BigEndian.AppendUint64(b, s.firstSeq)
		b = binary.BigEndian.AppendUint32(b, uint32(s.used))
		b = binary.BigEndian.AppendUint32(b, uint32(s.count))
	}
	return b
}

// decodeMeta also accepts version 1 metadata, which has no nextIndex field.
func decodeMeta(b []byte) (meta, error) {
	var m meta
	fixed := 0
	switch {
	case len(b) >= 13 && b[0] == 1:
		fixed = 13
		m.nextSeq = binary.BigEndian.Uint64(b[1:9])
	case len(b) >= 17 && b[0] == metaVersion:
		fixed = 17
		m.nextSeq = binary.BigEndian.Uint64(b[1:9])
		m.nextIndex = binary.BigEndian.Uint32(b[9:13])
		m.indexKnown = true
	default:
		return meta{}, fmt.Errorf("flash metadata of %d bytes: %w", len(b), logerr.ErrCorrupt)
	}
	n := int(binary.BigEndian.Uint32(b[fixed-4 : fixed]))
	b = b[fixed:]
	if len(b) != n*sectorEncLen {
		return meta{}, fmt.Errorf("flash sector table of %d bytes for %d sectors: %w", len(b), n, logerr.ErrCorrupt)
	}
	m.sectors = make([]sector, n)
	for i := range m.sectors {
		p := b[i*sectorEncLen:]
		m.sectors[i] = sector{
			id:       binary.BigEndian.Uint32(p[0:4]),
			firstSeq: binary.BigEndian.Uint64(p[4:12]),
			used:     int(binary.BigEndian.Uint32(p[12:16])),
			count:    int(binary.BigEndian.Uint32(p[16:20])),
		}
	}
	return m, nil
}
