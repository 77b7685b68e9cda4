package uarr

import (
	"encoding/binary"
	"math"

	"github.com/google/uuid"
)

// Decode parses a UArr record back into a Value.
//
// Records holding a single field named "__value" decode to the bare wrapped
// value; everything else decodes to a Map. The result never depends on the
// order fields were encoded in. Returns a *FormatError when the magic
// mismatches or any declared offset or length reaches past the buffer.
func Decode(buf []byte) (Value, error) {
	if len(buf) < headerSize {
		return nil, formatErrf(0, "record of %d bytes is shorter than the %d-byte header", len(buf), headerSize)
	}
	if got := binary.LittleEndian.Uint32(buf[0:4]); got != Magic {
		return nil, formatErrf(0, "bad magic 0x%08x", got)
	}
	if got := binary.LittleEndian.Uint16(buf[4:6]); got != Version {
		return nil, formatErrf(4, "unsupported version %d", got)
	}

	fieldCount := int(binary.LittleEndian.Uint32(buf[8:12]))
	schemaOffset := int(binary.LittleEndian.Uint32(buf[12:16]))
	dataOffset := int(binary.LittleEndian.Uint32(buf[16:20]))
	total := binary.LittleEndian.Uint64(buf[20:28])
	nameTableOffset := binary.LittleEndian.Uint64(buf[28:36])

	if total > uint64(len(buf)) {
		return nil, formatErrf(20, "declared total %d exceeds buffer of %d bytes", total, len(buf))
	}
	end := int(total)
	if schemaOffset < headerSize || fieldCount < 0 || schemaOffset+descSize*fieldCount > end {
		return nil, formatErrf(12, "schema region [%d, %d) out of bounds", schemaOffset, schemaOffset+descSize*fieldCount)
	}
	if nameTableOffset > uint64(end) {
		return nil, formatErrf(28, "name table offset %d out of bounds", nameTableOffset)
	}
	if dataOffset < headerSize || dataOffset > end {
		return nil, formatErrf(16, "data offset %d out of bounds", dataOffset)
	}

	// Name table: fieldCount length-prefixed strings in field order.
	names := make([]string, fieldCount)
	pos := int(nameTableOffset)
	for i := range names {
		if pos+4 > end {
			return nil, formatErrf(pos, "truncated name table")
		}
		n := int(binary.LittleEndian.Uint32(buf[pos : pos+4]))
		if pos+4+n > end {
			return nil, formatErrf(pos, "name of %d bytes exceeds buffer", n)
		}
		names[i] = string(buf[pos+4 : pos+4+n])
		pos += 4 + n
	}

	fields := make(Map, fieldCount)
	for i := 0; i < fieldCount; i++ {
		desc := buf[schemaOffset+descSize*i:]
		nameHash := binary.LittleEndian.Uint64(desc[0:8])
		tag := Tag(desc[8])
		rel := int(binary.LittleEndian.Uint32(desc[12:16]))
		size := int(binary.LittleEndian.Uint32(desc[16:20]))

		if nameHash != NameHash(names[i]) {
			return nil, formatErrf(schemaOffset+descSize*i, "descriptor %d hash does not match name %q", i, names[i])
		}
		start := dataOffset + rel
		if start < dataOffset || size < 0 || start+size > end {
			return nil, formatErrf(schemaOffset+descSize*i, "field %q data [%d, %d) out of bounds", names[i], start, start+size)
		}

		val, err := decodeBody(tag, buf[start:start+size])
		if err != nil {
			return nil, err
		}
		fields[names[i]] = val
	}

	if len(fields) == 1 {
		if wrapped, ok := fields[valueField]; ok {
			return wrapped, nil
		}
	}
	return fields, nil
}

// decodeBody parses one field body. The body slice is exactly the
// descriptor-declared length.
func decodeBody(tag Tag, body []byte) (Value, error) {
	r := &reader{buf: body}
	v, err := r.value(tag)
	if err != nil {
		return nil, err
	}
	if r.pos != len(body) {
		return nil, formatErrf(r.pos, "%s body has %d trailing bytes", tag, len(body)-r.pos)
	}
	return v, nil
}

// reader is a bounds-checked cursor over one field body. Array elements are
// self-delimiting, so the same routines serve both field and element
// decoding.
type reader struct {
	buf []byte
	pos int
}

func (r *reader) take(n int) ([]byte, error) {
	if n < 0 || r.pos+n > len(r.buf) {
		return nil, formatErrf(r.pos, "value needs %d bytes, %d remain", n, len(r.buf)-r.pos)
	}
	b := r.buf[r.pos : r.pos+n]
	r.pos += n
	return b, nil
}

func (r *reader) u32() (uint32, error) {
	b, err := r.take(4)
	if err != nil {
		return 0, err
	}
	return binary.LittleEndian.Uint32(b), nil
}

func (r *reader) value(tag Tag) (Value, error) {
	switch tag {
	case TagNull:
		return Null{}, nil
	case TagUndefined:
		return Undefined{}, nil
	case TagBool:
		b, err := r.take(1)
		if err != nil {
			return nil, err
		}
		return Bool(b[0] != 0), nil
	case TagI8:
		b, err := r.take(1)
		if err != nil {
			return nil, err
		}
		return Int(int8(b[0])), nil
	case TagI16:
		b, err := r.take(2)
		if err != nil {
			return nil, err
		}
		return Int(int16(binary.LittleEndian.Uint16(b))), nil
	case TagI32:
		b, err := r.take(4)
		if err != nil {
			return nil, err
		}
		return Int(int32(binary.LittleEndian.Uint32(b))), nil
	case TagI64:
		b, err := r.take(8)
		if err != nil {
			return nil, err
		}
		return Int(int64(binary.LittleEndian.Uint64(b))), nil
	case TagU8:
		b, err := r.take(1)
		if err != nil {
			return nil, err
		}
		return Int(b[0]), nil
	case TagU16:
		b, err := r.take(2)
		if err != nil {
			return nil, err
		}
		return Int(binary.LittleEndian.Uint16(b)), nil
	case TagU32:
		b, err := r.take(4)
		if err != nil {
			return nil, err
		}
		return Int(binary.LittleEndian.Uint32(b)), nil
	case TagU64:
		b, err := r.take(8)
		if err != nil {
			return nil, err
		}
		n := binary.LittleEndian.Uint64(b)
		if n > math.MaxInt64 {
			return nil, formatErrf(r.pos-8, "u64 value %d overflows int64", n)
		}
		return Int(n), nil
	case TagF32:
		b, err := r.take(4)
		if err != nil {
			return nil, err
		}
		return Float(math.Float32frombits(binary.LittleEndian.Uint32(b))), nil
	case TagF64:
		b, err := r.take(8)
		if err != nil {
			return nil, err
		}
		return Float(math.Float64frombits(binary.LittleEndian.Uint64(b))), nil
	case TagString:
		b, err := r.lengthPrefixed()
		if err != nil {
			return nil, err
		}
		return String(b), nil
	case TagBytes:
		b, err := r.lengthPrefixed()
		if err != nil {
			return nil, err
		}
		out := make(Bytes, len(b))
		copy(out, b)
		return out, nil
	case TagNodeRef:
		b, err := r.lengthPrefixed()
		if err != nil {
			return nil, err
		}
		return NodeRef(b), nil
	case TagTime:
		b, err := r.take(8)
		if err != nil {
			return nil, err
		}
		return Time(int64(binary.LittleEndian.Uint64(b))), nil
	case TagUUID:
		b, err := r.take(16)
		if err != nil {
			return nil, err
		}
		var u uuid.UUID
		copy(u[:], b)
		return UUID(u), nil
	case TagArray:
		count, err := r.u32()
		if err != nil {
			return nil, err
		}
		// Every element carries at least its tag byte, so the count is
		// bounded by the remaining body.
		if int(count) > len(r.buf)-r.pos {
			return nil, formatErrf(r.pos, "array count %d exceeds remaining %d bytes", count, len(r.buf)-r.pos)
		}
		arr := make(Array, 0, count)
		for i := uint32(0); i < count; i++ {
			tb, err := r.take(1)
			if err != nil {
				return nil, err
			}
			elem, err := r.value(Tag(tb[0]))
			if err != nil {
				return nil, err
			}
			arr = append(arr, elem)
		}
		return arr, nil
	case TagMap:
		b, err := r.lengthPrefixed()
		if err != nil {
			return nil, err
		}
		nested, err := Decode(b)
		if err != nil {
			return nil, err
		}
		if m, ok := nested.(Map); ok {
			return m, nil
		}
		// A nested blob holding a wrapped scalar is still a legal record.
		return nested, nil
	default:
		return nil, formatErrf(r.pos, "unknown type tag 0x%02x", uint8(tag))
	}
}

func (r *reader) lengthPrefixed() ([]byte, error) {
	n, err := r.u32()
	if err != nil {
		return nil, err
	}
	return r.take(int(n))
}
