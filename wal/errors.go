package wal

import (
	"errors"
	"fmt"
)

// Header validation failures on Open.
var (
	ErrBadMagic   = errors.New("wal: bad file magic")
	ErrBadVersion = errors.New("wal: unsupported file version")
)

// IntegrityError reports a single record that failed verification: a CRC
// mismatch on read, or a record too large to frame on write. During replay
// an integrity failure skips only the record it names.
type IntegrityError struct {
	Seq  uint64
	Want uint32
	Got  uint32
	Msg  string
}

// Error implements the error interface.
func (e *IntegrityError) Error() string {
	if e.Msg != "" {
		return fmt.Sprintf("wal: record %d: %s", e.Seq, e.Msg)
	}
	return fmt.Sprintf("wal: record %d: checksum mismatch (want %08x, got %08x)", e.Seq, e.Want, e.Got)
}
