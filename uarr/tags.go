package uarr

// Wire constants. See the package documentation for the full layout.
const (
	// Magic identifies a UArr record ("UARR" read as a little-endian u32).
	Magic uint32 = 0x55415252

	// Version is the current format version written by Encode.
	Version uint16 = 1

	headerSize = 36
	descSize   = 24

	// valueField is the synthetic field name wrapping bare scalars and
	// arrays at the top level.
	valueField = "__value"
)

// Tag identifies the wire type of one field or array element.
type Tag uint8

// Type tags. 0x00-0x0C are scalars, 0x10-0x11 variable-length strings,
// 0x20-0x21 containers, 0x30-0x32 domain scalars.
const (
	TagI8        Tag = 0x00
	TagI16       Tag = 0x01
	TagI32       Tag = 0x02
	TagI64       Tag = 0x03
	TagU8        Tag = 0x04
	TagU16       Tag = 0x05
	TagU32       Tag = 0x06
	TagU64       Tag = 0x07
	TagF32       Tag = 0x08
	TagF64       Tag = 0x09
	TagBool      Tag = 0x0A
	TagNull      Tag = 0x0B
	TagUndefined Tag = 0x0C
	TagString    Tag = 0x10
	TagBytes     Tag = 0x11
	TagArray     Tag = 0x20
	TagMap       Tag = 0x21
	TagNodeRef   Tag = 0x30
	TagTime      Tag = 0x31
	TagUUID      Tag = 0x32
)

// String returns the short mnemonic used in dumps and error messages.
func (t Tag) String() string {
	switch t {
	case TagI8:
		return "i8"
	case TagI16:
		return "i16"
	case TagI32:
		return "i32"
	case TagI64:
		return "i64"
	case TagU8:
		return "u8"
	case TagU16:
		return "u16"
	case TagU32:
		return "u32"
	case TagU64:
		return "u64"
	case TagF32:
		return "f32"
	case TagF64:
		return "f64"
	case TagBool:
		return "bool"
	case TagNull:
		return "null"
	case TagUndefined:
		return "undefined"
	case TagString:
		return "string"
	case TagBytes:
		return "bytes"
	case TagArray:
		return "array"
	case TagMap:
		return "map"
	case TagNodeRef:
		return "noderef"
	case TagTime:
		return "timestamp"
	case TagUUID:
		return "uuid"
	default:
		return "unknown"
	}
}
