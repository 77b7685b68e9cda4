package wal

import (
	"bufio"
	"bytes"
	"context"
	"encoding/binary"
	"fmt"
	"io"
	"os"
	"sync"
	"time"

	"github.com/charmbracelet/log"

	"github.com/fxd-io/fxdisk/uarr"
)

// Log is an open write-ahead log. It is safe for concurrent use; a single
// mutex serializes appends so sequence numbers stay gapless.
type Log struct {
	mu sync.Mutex

	path   string
	f      *os.File
	logger *log.Logger
	clock  func() time.Time
	sync   bool

	lastSeq  uint64
	count    uint64 // records with valid checksums
	byteSize int64  // header plus all framed records
}

// Stats describes the current state of the log file.
type Stats struct {
	LastSeq     uint64
	RecordCount uint64
	ByteSize    int64
}

// Option configures a Log at Open time.
type Option func(*Log)

// WithSync makes every append fsync before returning.
func WithSync(on bool) Option {
	return func(l *Log) { l.sync = on }
}

// WithClock substitutes the timestamp source. Tests use this for
// deterministic record timestamps.
func WithClock(now func() time.Time) Option {
	return func(l *Log) { l.clock = now }
}

// WithLogger routes recovery and integrity warnings to the given logger.
func WithLogger(logger *log.Logger) Option {
	return func(l *Log) { l.logger = logger }
}

// Open opens the log at path, creating it with a fresh header if absent.
// An existing file is scanned to recover the last sequence number; a torn
// record at the tail is truncated away so the next append lands on a clean
// boundary.
func Open(path string, opts ...Option) (*Log, error) {
	f, err := os.OpenFile(path, os.O_RDWR|os.O_CREATE, 0o644)
	if err != nil {
		return nil, fmt.Errorf("opening wal: %w", err)
	}

	l := &Log{
		path:   path,
		f:      f,
		logger: log.New(io.Discard),
		clock:  time.Now,
	}
	for _, opt := range opts {
		opt(l)
	}

	if err := l.recover(); err != nil {
		f.Close()
		return nil, err
	}
	return l, nil
}

// recover validates the header (writing one into an empty file), scans all
// records to restore counters, and drops any torn tail.
func (l *Log) recover() error {
	info, err := l.f.Stat()
	if err != nil {
		return fmt.Errorf("stat wal: %w", err)
	}

	if info.Size() == 0 {
		if _, err := l.f.Write(fileHeader()); err != nil {
			return fmt.Errorf("writing wal header: %w", err)
		}
		if err := l.f.Sync(); err != nil {
			return fmt.Errorf("syncing wal header: %w", err)
		}
		l.byteSize = fileHeaderSize
		return nil
	}

	if err := checkHeader(l.f); err != nil {
		return err
	}

	br := bufio.NewReader(io.NewSectionReader(l.f, fileHeaderSize, info.Size()-fileHeaderSize))
	end := int64(fileHeaderSize)
	for {
		rec, size, crcOK, err := nextRecord(br)
		if err == io.EOF {
			break
		}
		if err == errTornRecord {
			l.logger.Warn("dropping torn record at wal tail", "offset", end)
			break
		}
		if err != nil {
			return fmt.Errorf("scanning wal: %w", err)
		}
		l.lastSeq = rec.Seq
		if crcOK {
			l.count++
		}
		end += size
	}

	if end < info.Size() {
		if err := l.f.Truncate(end); err != nil {
			return fmt.Errorf("truncating wal tail: %w", err)
		}
	}
	if _, err := l.f.Seek(end, io.SeekStart); err != nil {
		return fmt.Errorf("seeking wal end: %w", err)
	}
	l.byteSize = end
	return nil
}

// checkHeader reads and validates the 32-byte file header at offset 0.
func checkHeader(r io.ReaderAt) error {
	hdr := make([]byte, fileHeaderSize)
	if _, err := r.ReadAt(hdr, 0); err != nil {
		return fmt.Errorf("reading wal header: %w", err)
	}
	if !bytes.Equal(hdr[0:5], fileMagic[:]) {
		return ErrBadMagic
	}
	if v := binary.LittleEndian.Uint16(hdr[5:7]); v != fileVersion {
		return fmt.Errorf("%w: %d", ErrBadVersion, v)
	}
	return nil
}

// Append encodes payload as UArr, frames it as a record with the next
// sequence number, and writes it. With WithSync(true) the record is durable
// when Append returns. The assigned sequence number is returned.
func (l *Log) Append(ctx context.Context, typ Type, nodeID string, payload uarr.Value) (uint64, error) {
	if err := ctx.Err(); err != nil {
		return 0, err
	}

	data, err := uarr.Encode(payload)
	if err != nil {
		return 0, fmt.Errorf("encoding wal payload: %w", err)
	}

	l.mu.Lock()
	defer l.mu.Unlock()

	rec := Record{
		Seq:       l.lastSeq + 1,
		Timestamp: uint64(l.clock().UnixNano()),
		Type:      typ,
		NodeID:    nodeID,
		Data:      data,
	}
	buf, err := encodeRecord(rec)
	if err != nil {
		return 0, err
	}

	if _, err := l.f.Write(buf); err != nil {
		return 0, fmt.Errorf("appending wal record %d: %w", rec.Seq, err)
	}
	if l.sync {
		if err := l.f.Sync(); err != nil {
			return 0, fmt.Errorf("syncing wal record %d: %w", rec.Seq, err)
		}
	}

	l.lastSeq = rec.Seq
	l.count++
	l.byteSize += int64(len(buf))
	return rec.Seq, nil
}

// Stats reports the last assigned sequence, the number of checksum-valid
// records, and the file size in bytes.
func (l *Log) Stats() Stats {
	l.mu.Lock()
	defer l.mu.Unlock()
	return Stats{LastSeq: l.lastSeq, RecordCount: l.count, ByteSize: l.byteSize}
}

// Path returns the log's file path.
func (l *Log) Path() string { return l.path }

// Close releases the write handle. Further appends fail.
func (l *Log) Close() error {
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.f == nil {
		return nil
	}
	err := l.f.Close()
	l.f = nil
	return err
}
