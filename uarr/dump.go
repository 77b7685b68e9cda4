package uarr

import (
	"encoding/binary"
	"fmt"
	"strings"
)

// Dump renders the structural layout of an encoded record: header fields,
// then one line per descriptor with its recovered name. It is meant for
// debugging damaged records and for pinning the wire layout in tests, so it
// prints declared offsets verbatim and only validates what it must to walk
// the buffer safely.
func Dump(buf []byte) (string, error) {
	if len(buf) < headerSize {
		return "", formatErrf(0, "record of %d bytes is shorter than the %d-byte header", len(buf), headerSize)
	}
	if got := binary.LittleEndian.Uint32(buf[0:4]); got != Magic {
		return "", formatErrf(0, "bad magic 0x%08x", got)
	}

	version := binary.LittleEndian.Uint16(buf[4:6])
	flags := binary.LittleEndian.Uint16(buf[6:8])
	fieldCount := int(binary.LittleEndian.Uint32(buf[8:12]))
	schemaOffset := int(binary.LittleEndian.Uint32(buf[12:16]))
	dataOffset := int(binary.LittleEndian.Uint32(buf[16:20]))
	total := binary.LittleEndian.Uint64(buf[20:28])
	nameTableOffset := int(binary.LittleEndian.Uint64(buf[28:36]))

	var b strings.Builder
	fmt.Fprintf(&b, "uarr version=%d flags=0x%04x fields=%d total=%d\n", version, flags, fieldCount, total)
	fmt.Fprintf(&b, "schema@%d names@%d data@%d\n", schemaOffset, nameTableOffset, dataOffset)

	if total > uint64(len(buf)) {
		return "", formatErrf(20, "declared total %d exceeds buffer of %d bytes", total, len(buf))
	}
	end := int(total)
	if schemaOffset < headerSize || schemaOffset+descSize*fieldCount > end {
		return "", formatErrf(12, "schema region [%d, %d) out of bounds", schemaOffset, schemaOffset+descSize*fieldCount)
	}

	namePos := nameTableOffset
	for i := 0; i < fieldCount; i++ {
		if namePos+4 > end {
			return "", formatErrf(namePos, "truncated name table")
		}
		n := int(binary.LittleEndian.Uint32(buf[namePos : namePos+4]))
		if namePos+4+n > end {
			return "", formatErrf(namePos, "name of %d bytes exceeds buffer", n)
		}
		name := string(buf[namePos+4 : namePos+4+n])
		namePos += 4 + n

		desc := buf[schemaOffset+descSize*i:]
		hash := binary.LittleEndian.Uint64(desc[0:8])
		tag := Tag(desc[8])
		fflags := desc[9]
		rel := binary.LittleEndian.Uint32(desc[12:16])
		size := binary.LittleEndian.Uint32(desc[16:20])
		fmt.Fprintf(&b, "[%d] %q hash=0x%016x tag=%s flags=0x%02x off=%d len=%d\n",
			i, name, hash, tag, fflags, rel, size)
	}

	return b.String(), nil
}
