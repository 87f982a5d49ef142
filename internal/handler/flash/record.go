package flash

import (
	"encoding/binary"
	"hash/crc32"
)

// Record encoding: uvarint headerLen | header | body | crc32c(header|body)

var castagnoli = crc32.MakeTable(crc32.Castagnoli)

// recordOverhead is the framing cost of a record whose header is shorter
// than 128 bytes.
const recordOverhead = 1 + 4

// EncodeRecord frames header and the concatenation of body parts.
func EncodeRecord(header []byte, body ...[]byte) []byte {
	size := 10 + len(header) + 4
	for _, p := range body {
		size += len(p)
	}
	out := make([]byte, 0, size)
	var tmp [10]byte
	n := binary.PutUvarint(tmp[:], uint64(len(header)))
	out = append(out, tmp[:n]...)
	out = append(out, header...)
	crc := crc32.Update(0, castagnoli, header)
	for _, p := range body {
		out = append(out, p...)
		crc = crc32.Update(crc, castagnoli, p)
	}
	var crcb [4]byte
	binary.BigEndian.PutUint32(crcb[:], crc)
	return append(out, crcb[:]...)
}

// Decoded is a verified record. Header and Body are private copies.
type Decoded struct {
	Header []byte
	Body   []byte
}

// Len returns the entry length, header included.
func (d Decoded) Len() int { return len(d.Header) + len(d.Body) }

// DecodeRecord verifies framing and checksum. It returns false for truncated
// or corrupted records.
func DecodeRecord(b []byte) (Decoded, bool) {
	if len(b) < 1+4 {
		return Decoded{}, false
	}
	hlen, n := binary.Uvarint(b)
	if n <= 0 {
		return Decoded{}, false
	}
	if n+int(hlen)+4 > len(b) {
		return Decoded{}, false
	}
	header := b[n : n+int(hlen)]
	body := b[n+int(hlen) : len(b)-4]
	expect := binary.BigEndian.Uint32(b[len(b)-4:])
	crc := crc32.Update(0, castagnoli, header)
	crc = crc32.Update(crc, castagnoli, body)
	if crc != expect {
		return Decoded{}, false
	}
	return Decoded{Header: append([]byte(nil), header...), Body: append([]byte(nil), body...)}, true
}
