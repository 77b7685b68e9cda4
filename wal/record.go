package wal

import (
	"encoding/binary"
	"hash/crc32"
	"math"

	"github.com/fxd-io/fxdisk/uarr"
)

// Type identifies what a record describes.
type Type uint8

// Record types.
const (
	TypeNodeCreate Type = 0x01 // full node description
	TypeNodePatch  Type = 0x02 // value/meta update for an existing node
	TypeLinkAdd    Type = 0x03 // prototype link set
	TypeLinkDel    Type = 0x04 // prototype link cleared
	TypeSignal     Type = 0x05 // durable mutation signal
	TypeCheckpoint Type = 0x06 // save-completion marker
)

// String returns the record type name used in logs and dumps.
func (t Type) String() string {
	switch t {
	case TypeNodeCreate:
		return "NODE_CREATE"
	case TypeNodePatch:
		return "NODE_PATCH"
	case TypeLinkAdd:
		return "LINK_ADD"
	case TypeLinkDel:
		return "LINK_DEL"
	case TypeSignal:
		return "SIGNAL"
	case TypeCheckpoint:
		return "CHECKPOINT"
	default:
		return "UNKNOWN"
	}
}

// Record is one committed log entry. Data holds the UArr-encoded payload
// exactly as written.
type Record struct {
	Seq       uint64
	Timestamp uint64 // nanoseconds since the Unix epoch
	Type      Type
	NodeID    string
	Data      []byte
}

// Payload decodes the record's UArr payload.
func (r Record) Payload() (uarr.Value, error) {
	return uarr.Decode(r.Data)
}

// File framing constants.
const (
	fileHeaderSize = 32
	recHeaderSize  = 27
	crcSize        = 4

	fileVersion uint16 = 1

	// maxDataLen bounds a declared payload length during scans so a
	// corrupted length field cannot demand an absurd allocation.
	maxDataLen = 1 << 30
)

var fileMagic = [5]byte{'F', 'X', 'W', 'A', 'L'}

// encodeRecord frames one record: header, nodeId, data, then the CRC-32
// trailer covering everything before it.
func encodeRecord(r Record) ([]byte, error) {
	if len(r.NodeID) > math.MaxUint16 {
		return nil, &IntegrityError{Seq: r.Seq, Msg: "node id exceeds u16 length"}
	}
	if len(r.Data) > maxDataLen {
		return nil, &IntegrityError{Seq: r.Seq, Msg: "payload exceeds maximum record size"}
	}

	n := recHeaderSize + len(r.NodeID) + len(r.Data) + crcSize
	buf := make([]byte, n)
	binary.LittleEndian.PutUint64(buf[0:8], r.Seq)
	binary.LittleEndian.PutUint64(buf[8:16], r.Timestamp)
	buf[16] = byte(r.Type)
	binary.LittleEndian.PutUint16(buf[17:19], uint16(len(r.NodeID)))
	binary.LittleEndian.PutUint32(buf[19:23], uint32(len(r.Data)))
	binary.LittleEndian.PutUint32(buf[23:27], 0) // reserved
	copy(buf[recHeaderSize:], r.NodeID)
	copy(buf[recHeaderSize+len(r.NodeID):], r.Data)
	binary.LittleEndian.PutUint32(buf[n-crcSize:], crc32.ChecksumIEEE(buf[:n-crcSize]))
	return buf, nil
}

// fileHeader builds the fixed 32-byte log header.
func fileHeader() []byte {
	buf := make([]byte, fileHeaderSize)
	copy(buf[0:5], fileMagic[:])
	binary.LittleEndian.PutUint16(buf[5:7], fileVersion)
	buf[7] = 0 // flags
	return buf
}
