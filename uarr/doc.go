// Package uarr implements the self-describing binary value format used for
// all persisted payloads.
//
// A UArr record is a flat field map: a fixed header, one fixed-size
// descriptor per top-level field (keyed by a hash of the field name), an
// explicit name table, and a contiguous data region. Bare scalars and arrays
// are wrapped under the synthetic field "__value" and unwrapped again on
// decode, so Decode(Encode(v)) == v for every representable value.
//
// # Layout (little-endian)
//
//	Header (36 B):  magic:u32 | version:u16 | flags:u16 | fieldCount:u32 |
//	                schemaOffset:u32 | dataOffset:u32 | totalBytes:u64 |
//	                nameTableOffset:u64
//	Descriptor (24 B each):  nameHash:u64 | typeTag:u8 | flags:u8 |
//	                reserved:u16 | dataRelOffset:u32 | dataLen:u32 | reserved:u32
//	Name table:     fieldCount x (len:u32 | utf8 bytes), field order
//	Data region:    field bodies at dataOffset+dataRelOffset
//
// Name hashes are FNV-1a over the NFC-normalized field name, so descriptors
// stay fixed-size while the name table keeps records human-readable.
//
// Fields are laid out in sorted key order, which makes encoding
// deterministic; decoding never depends on field order.
//
// Encoding never fails for representable inputs. Decoding fails with a
// *FormatError when the magic mismatches or any declared offset or length
// reaches past the buffer.
package uarr
