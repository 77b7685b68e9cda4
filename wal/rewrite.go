package wal

import (
	"fmt"
	"io"
	"iter"
	"os"

	"github.com/fxd-io/fxdisk/uarr"
)

// Entry is one record to be written during a Rewrite. Sequence numbers and
// timestamps are assigned by the log.
type Entry struct {
	Type    Type
	NodeID  string
	Payload uarr.Value
}

// Rewrite replaces the log's contents with the given entries, renumbered
// from 1. The new file is written beside the old one and swapped in with an
// atomic rename, so a crash mid-rewrite leaves the original log intact.
func (l *Log) Rewrite(entries iter.Seq[Entry]) error {
	l.mu.Lock()
	defer l.mu.Unlock()

	tmpPath := l.path + ".compact"
	tmp, err := os.OpenFile(tmpPath, os.O_RDWR|os.O_CREATE|os.O_TRUNC, 0o644)
	if err != nil {
		return fmt.Errorf("creating compaction file: %w", err)
	}
	// Keep the original untouched on any failure below.
	fail := func(err error) error {
		tmp.Close()
		os.Remove(tmpPath)
		return err
	}

	if _, err := tmp.Write(fileHeader()); err != nil {
		return fail(fmt.Errorf("writing compaction header: %w", err))
	}

	var seq uint64
	var size = int64(fileHeaderSize)
	for e := range entries {
		seq++
		data, err := uarr.Encode(e.Payload)
		if err != nil {
			return fail(fmt.Errorf("encoding compaction record %d: %w", seq, err))
		}
		buf, err := encodeRecord(Record{
			Seq:       seq,
			Timestamp: uint64(l.clock().UnixNano()),
			Type:      e.Type,
			NodeID:    e.NodeID,
			Data:      data,
		})
		if err != nil {
			return fail(err)
		}
		if _, err := tmp.Write(buf); err != nil {
			return fail(fmt.Errorf("writing compaction record %d: %w", seq, err))
		}
		size += int64(len(buf))
	}

	if err := tmp.Sync(); err != nil {
		return fail(fmt.Errorf("syncing compaction file: %w", err))
	}
	if err := tmp.Close(); err != nil {
		return fail(fmt.Errorf("closing compaction file: %w", err))
	}

	if err := l.f.Close(); err != nil {
		os.Remove(tmpPath)
		return fmt.Errorf("closing wal before swap: %w", err)
	}
	if err := os.Rename(tmpPath, l.path); err != nil {
		return fmt.Errorf("swapping compacted wal: %w", err)
	}

	f, err := os.OpenFile(l.path, os.O_RDWR, 0o644)
	if err != nil {
		return fmt.Errorf("reopening compacted wal: %w", err)
	}
	if _, err := f.Seek(0, io.SeekEnd); err != nil {
		f.Close()
		return fmt.Errorf("seeking compacted wal end: %w", err)
	}

	l.f = f
	l.lastSeq = seq
	l.count = seq
	l.byteSize = size
	return nil
}
