// Package wal implements the append-only write-ahead log that carries every
// persisted graph operation.
//
// A log file is a fixed 32-byte header followed by contiguous records:
//
//	Header:  magic[5]="FXWAL" | version:u16 | flags:u8 | reserved[24]
//	Record:  seq:u64 | ts_ns:u64 | type:u8 | nodeIdLen:u16 | dataLen:u32 |
//	         reserved:u32 | nodeId | data | crc32:u32
//
// All integers are little-endian. The CRC-32 (IEEE, table-driven) covers seq
// through the end of data. Payloads are UArr-encoded values.
//
// Sequence numbers are strictly increasing from 1 with no gaps within a
// file. Records are written once and never mutated; compaction supersedes
// them by atomically swapping in a freshly written file.
//
// Recovery favors partial availability over strict validity: a truncated or
// torn final record is dropped silently (with a warning) when the log is
// opened, and a record whose checksum does not verify is skipped during
// reads without disturbing its neighbors. I/O errors are never swallowed.
package wal
