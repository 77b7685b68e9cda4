package signal

import (
	"context"
	"fmt"

	"github.com/fxd-io/fxdisk/uarr"
	"github.com/fxd-io/fxdisk/wal"
)

// Backend persists signal records. A backend sees records in append order
// and returns them the same way; the stream renumbers on Restore, so a
// backend only needs to preserve order, not sequence values.
type Backend interface {
	Append(Record) error
	ReadAll() ([]Record, error)
	Close() error
}

// WALBackend persists each signal as a SIGNAL record in a write-ahead log.
// The log may be shared with other record types; ReadAll only considers
// SIGNAL records.
type WALBackend struct {
	log *wal.Log
}

// NewWALBackend wraps an open log. The backend does not own the log; Close
// is a no-op and the caller closes the log itself.
func NewWALBackend(l *wal.Log) *WALBackend {
	return &WALBackend{log: l}
}

// Append writes rec as one SIGNAL record.
func (b *WALBackend) Append(rec Record) error {
	payload := uarr.Map{
		"kind":        uarr.Int(int64(rec.Kind)),
		"baseVersion": uarr.Int(int64(rec.BaseVersion)),
		"newVersion":  uarr.Int(int64(rec.NewVersion)),
		"ts":          uarr.Time(rec.Timestamp),
		"delta":       rec.Delta,
	}
	_, err := b.log.Append(context.Background(), wal.TypeSignal, rec.SourceNodeID, payload)
	return err
}

// ReadAll returns every SIGNAL record in the log, in write order.
func (b *WALBackend) ReadAll() ([]Record, error) {
	var recs []Record
	for walRec, err := range b.log.ReadFrom(0) {
		if err != nil {
			return nil, fmt.Errorf("reading signal log: %w", err)
		}
		if walRec.Type != wal.TypeSignal {
			continue
		}
		v, err := walRec.Payload()
		if err != nil {
			return nil, fmt.Errorf("decoding signal %d: %w", walRec.Seq, err)
		}
		m, ok := v.(uarr.Map)
		if !ok {
			return nil, fmt.Errorf("decoding signal %d: payload is %T, want map", walRec.Seq, v)
		}
		recs = append(recs, Record{
			Seq:          uint64(len(recs)),
			Timestamp:    intField(m, "ts"),
			Kind:         Kind(intField(m, "kind")),
			BaseVersion:  uint64(intField(m, "baseVersion")),
			NewVersion:   uint64(intField(m, "newVersion")),
			SourceNodeID: walRec.NodeID,
			Delta:        m["delta"],
		})
	}
	return recs, nil
}

// Close is a no-op; the caller owns the log.
func (b *WALBackend) Close() error { return nil }

func intField(m uarr.Map, key string) int64 {
	switch v := m[key].(type) {
	case uarr.Int:
		return int64(v)
	case uarr.Time:
		return int64(v)
	default:
		return 0
	}
}
