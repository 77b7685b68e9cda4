package uarr

import (
	"encoding/binary"
	"fmt"
	"math"
	"sort"

	"github.com/google/uuid"
)

// Encode serializes a value into a self-describing UArr record.
//
// Maps encode as-is; any other value is wrapped under the synthetic field
// "__value", which Decode unwraps again. Encoding never fails for
// representable inputs; the only errors are u32 length overflows (a single
// field body past 4 GiB).
func Encode(v Value) ([]byte, error) {
	fields, ok := v.(Map)
	if !ok {
		fields = Map{valueField: v}
	}

	names := make([]string, 0, len(fields))
	for name := range fields {
		names = append(names, name)
	}
	sort.Strings(names)

	type field struct {
		name string
		tag  Tag
		body []byte
	}

	encoded := make([]field, len(names))
	dataSize := 0
	nameTableSize := 0
	for i, name := range names {
		tag, body, err := encodeBody(fields[name])
		if err != nil {
			return nil, fmt.Errorf("field %q: %w", name, err)
		}
		if len(body) > math.MaxUint32 {
			return nil, fmt.Errorf("field %q: body of %d bytes exceeds u32 length", name, len(body))
		}
		encoded[i] = field{name: name, tag: tag, body: body}
		dataSize += len(body)
		nameTableSize += 4 + len(name)
	}

	schemaOffset := headerSize
	nameTableOffset := schemaOffset + descSize*len(encoded)
	dataOffset := nameTableOffset + nameTableSize
	total := dataOffset + dataSize

	buf := make([]byte, total)

	// Header.
	binary.LittleEndian.PutUint32(buf[0:4], Magic)
	binary.LittleEndian.PutUint16(buf[4:6], Version)
	binary.LittleEndian.PutUint16(buf[6:8], 0) // flags
	binary.LittleEndian.PutUint32(buf[8:12], uint32(len(encoded)))
	binary.LittleEndian.PutUint32(buf[12:16], uint32(schemaOffset))
	binary.LittleEndian.PutUint32(buf[16:20], uint32(dataOffset))
	binary.LittleEndian.PutUint64(buf[20:28], uint64(total))
	binary.LittleEndian.PutUint64(buf[28:36], uint64(nameTableOffset))

	// Descriptors, name table, and data region, all in field order.
	rel := uint32(0)
	namePos := nameTableOffset
	dataPos := dataOffset
	for i, f := range encoded {
		desc := buf[schemaOffset+descSize*i:]
		binary.LittleEndian.PutUint64(desc[0:8], NameHash(f.name))
		desc[8] = byte(f.tag)
		desc[9] = 0                                    // flags
		binary.LittleEndian.PutUint16(desc[10:12], 0)  // reserved
		binary.LittleEndian.PutUint32(desc[12:16], rel)
		binary.LittleEndian.PutUint32(desc[16:20], uint32(len(f.body)))
		binary.LittleEndian.PutUint32(desc[20:24], 0) // reserved

		binary.LittleEndian.PutUint32(buf[namePos:namePos+4], uint32(len(f.name)))
		copy(buf[namePos+4:], f.name)
		namePos += 4 + len(f.name)

		copy(buf[dataPos:], f.body)
		dataPos += len(f.body)
		rel += uint32(len(f.body))
	}

	return buf, nil
}

// encodeBody serializes one value body and picks its type tag. Scalar bodies
// are bare fixed-width bytes; strings, byte strings, and node refs carry a
// u32 length prefix so they stay self-delimiting inside arrays; arrays are a
// u32 count followed by (tag, body) pairs; nested maps are a length-prefixed
// nested record.
func encodeBody(v Value) (Tag, []byte, error) {
	switch val := v.(type) {
	case nil:
		return TagNull, nil, nil
	case Null:
		return TagNull, nil, nil
	case Undefined:
		return TagUndefined, nil, nil
	case Bool:
		if val {
			return TagBool, []byte{1}, nil
		}
		return TagBool, []byte{0}, nil
	case Int:
		return encodeInt(int64(val))
	case Float:
		body := make([]byte, 8)
		binary.LittleEndian.PutUint64(body, math.Float64bits(float64(val)))
		return TagF64, body, nil
	case String:
		return TagString, prefixed([]byte(val)), nil
	case Bytes:
		return TagBytes, prefixed(val), nil
	case NodeRef:
		return TagNodeRef, prefixed([]byte(val)), nil
	case Time:
		body := make([]byte, 8)
		binary.LittleEndian.PutUint64(body, uint64(int64(val)))
		return TagTime, body, nil
	case UUID:
		u := uuid.UUID(val)
		body := make([]byte, 16)
		copy(body, u[:])
		return TagUUID, body, nil
	case Array:
		return encodeArray(val)
	case Map:
		nested, err := Encode(val)
		if err != nil {
			return 0, nil, err
		}
		return TagMap, prefixed(nested), nil
	default:
		// Unreachable for sealed Value implementations.
		return 0, nil, fmt.Errorf("unsupported value type %T", v)
	}
}

// encodeInt picks the narrowest lossless width: unsigned tags for
// non-negative values, signed tags otherwise.
func encodeInt(n int64) (Tag, []byte, error) {
	if n >= 0 {
		switch {
		case n <= math.MaxUint8:
			return TagU8, []byte{byte(n)}, nil
		case n <= math.MaxUint16:
			body := make([]byte, 2)
			binary.LittleEndian.PutUint16(body, uint16(n))
			return TagU16, body, nil
		case n <= math.MaxUint32:
			body := make([]byte, 4)
			binary.LittleEndian.PutUint32(body, uint32(n))
			return TagU32, body, nil
		default:
			body := make([]byte, 8)
			binary.LittleEndian.PutUint64(body, uint64(n))
			return TagU64, body, nil
		}
	}
	switch {
	case n >= math.MinInt8:
		return TagI8, []byte{byte(int8(n))}, nil
	case n >= math.MinInt16:
		body := make([]byte, 2)
		binary.LittleEndian.PutUint16(body, uint16(int16(n)))
		return TagI16, body, nil
	case n >= math.MinInt32:
		body := make([]byte, 4)
		binary.LittleEndian.PutUint32(body, uint32(int32(n)))
		return TagI32, body, nil
	default:
		body := make([]byte, 8)
		binary.LittleEndian.PutUint64(body, uint64(n))
		return TagI64, body, nil
	}
}

func encodeArray(arr Array) (Tag, []byte, error) {
	if len(arr) > math.MaxUint32 {
		return 0, nil, fmt.Errorf("array of %d elements exceeds u32 count", len(arr))
	}
	body := make([]byte, 4, 4+len(arr)*2)
	binary.LittleEndian.PutUint32(body, uint32(len(arr)))
	for i, elem := range arr {
		tag, elemBody, err := encodeBody(elem)
		if err != nil {
			return 0, nil, fmt.Errorf("element %d: %w", i, err)
		}
		body = append(body, byte(tag))
		body = append(body, elemBody...)
	}
	return TagArray, body, nil
}

// prefixed returns b with a u32 little-endian length prefix.
func prefixed(b []byte) []byte {
	out := make([]byte, 4+len(b))
	binary.LittleEndian.PutUint32(out, uint32(len(b)))
	copy(out[4:], b)
	return out
}
