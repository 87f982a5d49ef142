// Package entry encodes and decodes the fixed-size header that prefixes every
// stored log entry.
//
// Two layouts exist. FormatV2 carries timestamp, index, module and level
// (14 bytes); FormatV3 appends a one-byte body type tag (15 bytes). A registry
// uses exactly one of them for all logs.
//
//	hdr := entry.Header{Timestamp: ts, Index: 7, Module: entry.ModuleOS, Level: entry.LevelInfo}
//	b := entry.Encode(entry.FormatV3, hdr)
//	back, _ := entry.Decode(entry.FormatV3, b)
//
// Encoding is structural only: fields are truncated to their declared width
// and no semantic range checks are made.
package entry
