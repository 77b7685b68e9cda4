// Package signal implements an ordered, replayable stream of graph mutation
// signals with synchronous subscriber fan-out.
//
// A Stream is an explicitly owned instance; there is no package-global
// stream. Every appended record gets the next sequence number (starting at
// 0, the log index) and is delivered to matching subscribers before Append
// returns. Subscribers track their own cursors, so replay of history and
// live delivery compose without duplicates: each subscriber sees a strictly
// increasing sequence exactly once.
//
// Subscriber callbacks run on the appending goroutine and may themselves
// append; the stream mutex is never held across a callback. A panicking
// subscriber is recovered and logged without disturbing the others.
//
// Durability is delegated to an optional Backend. Two are provided: one
// over SQLite and one over the write-ahead log's SIGNAL records.
package signal
