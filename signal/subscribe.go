package signal

// Options controls where a subscription starts and what it sees.
type Options struct {
	// Kinds filters delivery; empty means every kind.
	Kinds []Kind

	// Cursor is the first sequence number to deliver. Ignored when Tail
	// is set.
	Cursor uint64

	// Tail starts the subscription at the current end of the log, skipping
	// all history.
	Tail bool
}

// Subscribe registers cb and returns its unsubscribe function. Unless
// opts.Tail is set, all matching history from opts.Cursor is replayed
// synchronously, in ascending order, before Subscribe returns; live
// deliveries then continue from where replay ended. Per subscriber,
// delivered sequence numbers are strictly increasing with no duplicates
// across the replay and live paths.
//
// Unsubscribing takes effect immediately; it may be called from inside the
// callback itself.
func (s *Stream) Subscribe(opts Options, cb func(Record)) (unsubscribe func()) {
	sub := &subscriber{kinds: opts.Kinds, cb: cb}
	sub.active.Store(true)

	s.mu.Lock()
	if opts.Tail {
		sub.cursor = uint64(len(s.records))
	} else {
		sub.cursor = opts.Cursor
	}
	s.subs = append(s.subs, sub)
	s.mu.Unlock()

	if !opts.Tail {
		s.drain(sub)
	}
	return func() { sub.active.Store(false) }
}

// Tail subscribes to future records of one kind, skipping history.
func (s *Stream) Tail(kind Kind, cb func(Record)) (unsubscribe func()) {
	return s.Subscribe(Options{Kinds: []Kind{kind}, Tail: true}, cb)
}
