package entry

import (
	"encoding/binary"
	"fmt"

	"github.com/rzbill/devlog/internal/logerr"
)

// Header encoding (packed, little-endian):
//
//	v2: ts(8) | index(4) | module(1) | level(1)            = 14 bytes
//	v3: ts(8) | index(4) | module(1) | level(1) | type(1) = 15 bytes

// Format selects the header layout. Exactly one format is active per registry.
type Format uint8

const (
	FormatV2 Format = 2
	FormatV3 Format = 3
)

const (
	sizeV2 = 14
	sizeV3 = 15
)

// HeaderSize returns the encoded header length for the format.
func (f Format) HeaderSize() int {
	if f == FormatV2 {
		return sizeV2
	}
	return sizeV3
}

func (f Format) String() string {
	switch f {
	case FormatV2:
		return "v2"
	case FormatV3:
		return "v3"
	default:
		return fmt.Sprintf("format(%d)", uint8(f))
	}
}

// Valid reports whether f is a supported layout.
func (f Format) Valid() bool { return f == FormatV2 || f == FormatV3 }

// ParseFormat parses "v2" or "v3" (an empty string selects v3).
func ParseFormat(s string) (Format, error) {
	switch s {
	case "v2", "2":
		return FormatV2, nil
	case "", "v3", "3":
		return FormatV3, nil
	}
	return 0, fmt.Errorf("entry: unknown header format %q: %w", s, logerr.ErrInvalidArgument)
}

// Type tags the interpretation of an entry body.
type Type uint8

const (
	TypeString Type = 0
	TypeCBOR   Type = 1
	TypeBinary Type = 2
)

func (t Type) String() string {
	switch t {
	case TypeString:
		return "text"
	case TypeCBOR:
		return "cbor"
	case TypeBinary:
		return "binary"
	default:
		return fmt.Sprintf("type(%d)", uint8(t))
	}
}

// Header is the fixed-size prefix of every stored entry.
type Header struct {
	Timestamp int64
	Index     uint32
	Module    uint8
	Level     uint8
	Type      Type
}

// Put writes h into dst[:f.HeaderSize()].
func Put(f Format, dst []byte, h Header) error {
	n := f.HeaderSize()
	if len(dst) < n {
		return fmt.Errorf("entry: header buffer %d < %d: %w", len(dst), n, logerr.ErrInvalidArgument)
	}
	binary.LittleEndian.PutUint64(dst[0:8], uint64(h.Timestamp))
	binary.LittleEndian.PutUint32(dst[8:12], h.Index)
	dst[12] = h.Module
	dst[13] = h.Level
	if f == FormatV3 {
		dst[14] = byte(h.Type)
	}
	return nil
}

// Encode returns a newly allocated header.
func Encode(f Format, h Header) []byte {
	b := make([]byte, f.HeaderSize())
	_ = Put(f, b, h)
	return b
}

// Decode parses the header at the start of b. Trailing body bytes are ignored.
func Decode(f Format, b []byte) (Header, error) {
	n := f.HeaderSize()
	if len(b) < n {
		return Header{}, fmt.Errorf("entry: %d bytes, header needs %d: %w", len(b), n, logerr.ErrCorrupt)
	}
	h := Header{
		Timestamp: int64(binary.LittleEndian.Uint64(b[0:8])),
		Index:     binary.LittleEndian.Uint32(b[8:12]),
		Module:    b[12],
		Level:     b[13],
	}
	if f == FormatV3 {
		h.Type = Type(b[14])
	}
	return h, nil
}
