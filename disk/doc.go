// Package disk orchestrates durable persistence for a node-addressable
// graph. It owns no graph state of its own: the live tree belongs to the
// host, reached through the Graph interface, and every mutation that must
// survive a crash flows through the write-ahead log.
//
// A full Save re-describes the whole tree as NODE_CREATE records plus a
// trailing CHECKPOINT. Load replays the log from the beginning, rebuilding
// hierarchy by mapping node ids to dotted paths; records are tolerated out
// of parent order, and structurally broken references degrade with warnings
// rather than aborting the load. Compact rewrites the log so it contains
// exactly one record per live node.
package disk
