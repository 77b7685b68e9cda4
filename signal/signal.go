package signal

import (
	"fmt"
	"io"
	"slices"
	"sync"
	"sync/atomic"
	"time"

	"github.com/charmbracelet/log"

	"github.com/fxd-io/fxdisk/uarr"
)

// Kind classifies what a signal describes about its source node.
type Kind uint8

// Signal kinds.
const (
	KindValue    Kind = 0x01 // node value changed
	KindChildren Kind = 0x02 // child set changed
	KindMetadata Kind = 0x03 // metadata or links changed
	KindCustom   Kind = 0x04 // host-defined
)

// String returns the kind name used in logs.
func (k Kind) String() string {
	switch k {
	case KindValue:
		return "VALUE"
	case KindChildren:
		return "CHILDREN"
	case KindMetadata:
		return "METADATA"
	case KindCustom:
		return "CUSTOM"
	default:
		return "UNKNOWN"
	}
}

// Record is one mutation signal. Seq and Timestamp are assigned by the
// stream on Append; version chaining is the caller's contract, the stream
// carries the fields opaquely.
type Record struct {
	Seq          uint64
	Timestamp    int64 // nanoseconds since the Unix epoch
	Kind         Kind
	BaseVersion  uint64
	NewVersion   uint64
	SourceNodeID string
	Delta        uarr.Value
}

// Stream is an ordered in-memory signal log with subscriber fan-out. All
// methods are safe for concurrent use.
type Stream struct {
	mu      sync.Mutex
	records []Record
	subs    []*subscriber

	backend     Backend
	clock       func() time.Time
	logger      *log.Logger
	replayBatch int
}

// StreamOption configures a Stream at construction.
type StreamOption func(*Stream)

// WithBackend attaches a durable backend. Every record is committed to the
// backend before it enters the in-memory log or reaches a subscriber.
func WithBackend(b Backend) StreamOption {
	return func(s *Stream) { s.backend = b }
}

// WithClock substitutes the timestamp source.
func WithClock(now func() time.Time) StreamOption {
	return func(s *Stream) { s.clock = now }
}

// WithLogger routes subscriber-panic reports to the given logger.
func WithLogger(logger *log.Logger) StreamOption {
	return func(s *Stream) { s.logger = logger }
}

// WithReplayBatch sizes the history batches copied out under the lock
// during subscription replay.
func WithReplayBatch(n int) StreamOption {
	return func(s *Stream) {
		if n > 0 {
			s.replayBatch = n
		}
	}
}

// NewStream returns an empty stream.
func NewStream(opts ...StreamOption) *Stream {
	s := &Stream{
		clock:       time.Now,
		logger:      log.New(io.Discard),
		replayBatch: 100,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Append assigns the next sequence number and a timestamp to rec, commits
// it to the backend when one is attached, and synchronously delivers it to
// matching subscribers before returning. The completed record is returned.
//
// Callbacks may call Append; the nested record is delivered in order.
func (s *Stream) Append(rec Record) (Record, error) {
	s.mu.Lock()
	rec.Seq = uint64(len(s.records))
	rec.Timestamp = s.clock().UnixNano()
	if s.backend != nil {
		if err := s.backend.Append(rec); err != nil {
			s.mu.Unlock()
			return Record{}, fmt.Errorf("signal backend: %w", err)
		}
	}
	s.records = append(s.records, rec)
	subs := slices.Clone(s.subs)
	s.mu.Unlock()

	for _, sub := range subs {
		s.drain(sub)
	}
	return rec, nil
}

// Cursor returns the sequence number the next appended record will get.
func (s *Stream) Cursor() uint64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	return uint64(len(s.records))
}

// ReadRange returns a copy of the records with from <= Seq < to, clamped to
// what the stream holds.
func (s *Stream) ReadRange(from, to uint64) []Record {
	s.mu.Lock()
	defer s.mu.Unlock()
	n := uint64(len(s.records))
	if from >= n || from >= to {
		return nil
	}
	if to > n {
		to = n
	}
	return slices.Clone(s.records[from:to])
}

// Restore replaces the in-memory log with the backend's contents. Call it
// once before use; calling it again reloads rather than duplicates. Records
// are renumbered by position so appends continue gap-free.
func (s *Stream) Restore() error {
	if s.backend == nil {
		return fmt.Errorf("signal: no backend to restore from")
	}
	recs, err := s.backend.ReadAll()
	if err != nil {
		return fmt.Errorf("signal restore: %w", err)
	}
	for i := range recs {
		recs[i].Seq = uint64(i)
	}
	s.mu.Lock()
	s.records = recs
	s.mu.Unlock()
	return nil
}

// drain delivers records from sub's cursor to the end of the log. History
// is copied out in replayBatch-sized chunks so the lock is not held per
// record, but the cursor still advances one record at a time, whether or
// not the record matches the filter. Re-checking the cursor before each
// delivery means a nested Append (which drains too) never causes a
// duplicate or out-of-order delivery; if another drain got there first,
// the stale batch is abandoned and refetched.
func (s *Stream) drain(sub *subscriber) {
	batch := make([]Record, 0, s.replayBatch)
	for {
		if !sub.active.Load() {
			return
		}
		s.mu.Lock()
		cur := sub.cursor
		end := uint64(len(s.records))
		if cur >= end {
			s.mu.Unlock()
			return
		}
		if end-cur > uint64(s.replayBatch) {
			end = cur + uint64(s.replayBatch)
		}
		batch = append(batch[:0], s.records[cur:end]...)
		s.mu.Unlock()

		for _, rec := range batch {
			if !sub.active.Load() {
				return
			}
			s.mu.Lock()
			if sub.cursor != rec.Seq {
				s.mu.Unlock()
				break
			}
			sub.cursor = rec.Seq + 1
			s.mu.Unlock()

			if sub.matches(rec.Kind) {
				s.invoke(sub, rec)
			}
		}
	}
}

// invoke runs one callback, containing any panic to this subscriber.
func (s *Stream) invoke(sub *subscriber, rec Record) {
	defer func() {
		if r := recover(); r != nil {
			s.logger.Error("signal subscriber panicked", "seq", rec.Seq, "panic", r)
		}
	}()
	sub.cb(rec)
}

// subscriber is one registered callback with its own delivery cursor.
// cursor is guarded by the stream mutex; active is atomic so unsubscribe
// needs no lock.
type subscriber struct {
	active atomic.Bool
	cursor uint64
	kinds  []Kind
	cb     func(Record)
}

func (sub *subscriber) matches(k Kind) bool {
	if len(sub.kinds) == 0 {
		return true
	}
	return slices.Contains(sub.kinds, k)
}
