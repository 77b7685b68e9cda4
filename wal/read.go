package wal

import (
	"bufio"
	"encoding/binary"
	"errors"
	"fmt"
	"hash/crc32"
	"io"
	"iter"
	"os"
)

// errTornRecord marks an incomplete record at the end of the file. It never
// escapes the package; scans treat it as end-of-log.
var errTornRecord = errors.New("wal: torn record at tail")

// nextRecord reads one framed record. It returns io.EOF at a clean end of
// file and errTornRecord when the file ends mid-record. crcOK reports
// whether the trailer checksum verified; framing errors that make further
// progress impossible are folded into errTornRecord.
func nextRecord(br *bufio.Reader) (rec Record, size int64, crcOK bool, err error) {
	hdr := make([]byte, recHeaderSize)
	if _, err := io.ReadFull(br, hdr); err != nil {
		if err == io.EOF {
			return Record{}, 0, false, io.EOF
		}
		if err == io.ErrUnexpectedEOF {
			return Record{}, 0, false, errTornRecord
		}
		return Record{}, 0, false, err
	}

	nodeLen := int(binary.LittleEndian.Uint16(hdr[17:19]))
	dataLen := int(binary.LittleEndian.Uint32(hdr[19:23]))
	if dataLen > maxDataLen {
		// A length this large means the framing itself is gone; there
		// is no trustworthy boundary to resume from.
		return Record{}, 0, false, errTornRecord
	}

	body := make([]byte, nodeLen+dataLen+crcSize)
	if _, err := io.ReadFull(br, body); err != nil {
		if err == io.EOF || err == io.ErrUnexpectedEOF {
			return Record{}, 0, false, errTornRecord
		}
		return Record{}, 0, false, err
	}

	rec = Record{
		Seq:       binary.LittleEndian.Uint64(hdr[0:8]),
		Timestamp: binary.LittleEndian.Uint64(hdr[8:16]),
		Type:      Type(hdr[16]),
		NodeID:    string(body[:nodeLen]),
		Data:      body[nodeLen : nodeLen+dataLen],
	}

	crc := crc32.NewIEEE()
	crc.Write(hdr)
	crc.Write(body[:nodeLen+dataLen])
	want := binary.LittleEndian.Uint32(body[nodeLen+dataLen:])
	size = int64(recHeaderSize + nodeLen + dataLen + crcSize)
	return rec, size, crc.Sum32() == want, nil
}

// ReadFrom iterates records with Seq >= cursor in write order. Each range
// opens a fresh read handle, so the log can be re-scanned any number of
// times and read concurrently with appends.
//
// Records that fail their checksum are skipped with a warning; a torn tail
// ends the iteration. I/O errors are yielded to the caller.
func (l *Log) ReadFrom(cursor uint64) iter.Seq2[Record, error] {
	return func(yield func(Record, error) bool) {
		f, err := os.Open(l.path)
		if err != nil {
			yield(Record{}, fmt.Errorf("opening wal for read: %w", err))
			return
		}
		defer f.Close()

		if err := checkHeader(f); err != nil {
			yield(Record{}, err)
			return
		}
		if _, err := f.Seek(fileHeaderSize, io.SeekStart); err != nil {
			yield(Record{}, fmt.Errorf("seeking wal records: %w", err))
			return
		}

		br := bufio.NewReader(f)
		for {
			rec, _, crcOK, err := nextRecord(br)
			if err == io.EOF {
				return
			}
			if err == errTornRecord {
				l.logger.Warn("wal read stopped at torn tail")
				return
			}
			if err != nil {
				yield(Record{}, fmt.Errorf("reading wal record: %w", err))
				return
			}
			if !crcOK {
				l.logger.Warn("skipping wal record with bad checksum", "seq", rec.Seq)
				continue
			}
			if rec.Seq < cursor {
				continue
			}
			if !yield(rec, nil) {
				return
			}
		}
	}
}
