package disk

import (
	"context"
	"errors"
	"fmt"
	"io"

	"github.com/charmbracelet/log"

	"github.com/fxd-io/fxdisk/signal"
	"github.com/fxd-io/fxdisk/uarr"
	"github.com/fxd-io/fxdisk/wal"
)

// Config wires an orchestrator to its collaborators. Graph and Log are
// required; everything else is optional.
type Config struct {
	Graph Graph
	Log   *wal.Log

	// Snippets, when set, is kept in step with snippet-typed nodes as they
	// are saved, loaded, and patched.
	Snippets *SnippetIndex

	// Signals, when set, receives a mutation signal for every incremental
	// record the orchestrator writes.
	Signals *signal.Stream

	// ReservedRoots names root children Load must not clear.
	ReservedRoots []string

	Logger *log.Logger
}

// Disk is the persistence orchestrator. One instance owns one log; the host
// serializes Save/Load/Compact against its own graph mutations.
type Disk struct {
	graph    Graph
	log      *wal.Log
	snippets *SnippetIndex
	signals  *signal.Stream
	reserved []string
	logger   *log.Logger
}

// New validates cfg and returns an orchestrator.
func New(cfg Config) (*Disk, error) {
	if cfg.Graph == nil {
		return nil, errors.New("disk: config missing graph")
	}
	if cfg.Log == nil {
		return nil, errors.New("disk: config missing wal")
	}
	logger := cfg.Logger
	if logger == nil {
		logger = log.New(io.Discard)
	}
	return &Disk{
		graph:    cfg.Graph,
		log:      cfg.Log,
		snippets: cfg.Snippets,
		signals:  cfg.Signals,
		reserved: cfg.ReservedRoots,
		logger:   logger,
	}, nil
}

// Open is the convenience constructor driven by Options: it opens the log
// at opts.WALPath and wires it to graph.
func Open(graph Graph, opts Options, extra ...func(*Config)) (*Disk, error) {
	l, err := wal.Open(opts.WALPath, wal.WithSync(opts.SyncOnAppend))
	if err != nil {
		return nil, err
	}
	cfg := Config{Graph: graph, Log: l, ReservedRoots: opts.ReservedRoots}
	for _, fn := range extra {
		fn(&cfg)
	}
	d, err := New(cfg)
	if err != nil {
		l.Close()
		return nil, err
	}
	return d, nil
}

// Close releases the underlying log. Only needed when the orchestrator was
// built with Open; a log passed in through Config belongs to the caller.
func (d *Disk) Close() error {
	return d.log.Close()
}

// Save walks the tree depth-first from the root and writes one NODE_CREATE
// per node, then a CHECKPOINT carrying the node count. Every save fully
// re-describes the tree; it never emits patches.
func (d *Disk) Save(ctx context.Context) error {
	count, err := d.saveSubtree(ctx, d.graph.Root())
	if err != nil {
		return err
	}
	_, err = d.log.Append(ctx, wal.TypeCheckpoint, "", uarr.Map{
		"nodes": uarr.Int(count),
	})
	if err != nil {
		return fmt.Errorf("writing checkpoint: %w", err)
	}
	return nil
}

func (d *Disk) saveSubtree(ctx context.Context, n Node) (int64, error) {
	if _, err := d.log.Append(ctx, wal.TypeNodeCreate, n.ID(), nodePayload(n)); err != nil {
		return 0, fmt.Errorf("saving node %s: %w", n.ID(), err)
	}
	count := int64(1)
	for _, child := range n.Children() {
		sub, err := d.saveSubtree(ctx, child)
		if err != nil {
			return 0, err
		}
		count += sub
	}
	return count, nil
}

// Compact rewrites the log so it contains exactly one NODE_CREATE per node
// currently resident in the graph. The swap is atomic; a crash mid-compact
// leaves the previous log intact. Compaction is never implicit.
func (d *Disk) Compact(ctx context.Context) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	var entries []wal.Entry
	var walk func(n Node)
	walk = func(n Node) {
		entries = append(entries, wal.Entry{
			Type:    wal.TypeNodeCreate,
			NodeID:  n.ID(),
			Payload: nodePayload(n),
		})
		for _, child := range n.Children() {
			walk(child)
		}
	}
	walk(d.graph.Root())

	if err := d.log.Rewrite(func(yield func(wal.Entry) bool) {
		for _, e := range entries {
			if !yield(e) {
				return
			}
		}
	}); err != nil {
		return fmt.Errorf("compacting: %w", err)
	}
	return nil
}

// Stats reports the underlying log's statistics.
func (d *Disk) Stats() wal.Stats {
	return d.log.Stats()
}

// RecordPatch persists a value/meta update for an existing node between full
// saves, and forwards it to the signal stream when one is wired.
func (d *Disk) RecordPatch(ctx context.Context, nodeID string, value, meta uarr.Value) error {
	payload := uarr.Map{"value": value}
	if meta != nil {
		payload["meta"] = meta
	}
	if _, err := d.log.Append(ctx, wal.TypeNodePatch, nodeID, payload); err != nil {
		return fmt.Errorf("recording patch for %s: %w", nodeID, err)
	}
	d.emit(signal.Record{
		Kind:         signal.KindValue,
		SourceNodeID: nodeID,
		Delta:        value,
	})
	return nil
}

// RecordLink persists a prototype link set.
func (d *Disk) RecordLink(ctx context.Context, nodeID, proto string) error {
	payload := uarr.Map{"proto": uarr.NodeRef(proto)}
	if _, err := d.log.Append(ctx, wal.TypeLinkAdd, nodeID, payload); err != nil {
		return fmt.Errorf("recording link for %s: %w", nodeID, err)
	}
	d.emit(signal.Record{
		Kind:         signal.KindMetadata,
		SourceNodeID: nodeID,
		Delta:        uarr.Map{"proto": uarr.NodeRef(proto)},
	})
	return nil
}

// RecordUnlink persists a prototype link removal.
func (d *Disk) RecordUnlink(ctx context.Context, nodeID string) error {
	if _, err := d.log.Append(ctx, wal.TypeLinkDel, nodeID, uarr.Map{}); err != nil {
		return fmt.Errorf("recording unlink for %s: %w", nodeID, err)
	}
	d.emit(signal.Record{
		Kind:         signal.KindMetadata,
		SourceNodeID: nodeID,
		Delta:        uarr.Map{"proto": uarr.Null{}},
	})
	return nil
}

func (d *Disk) emit(rec signal.Record) {
	if d.signals == nil {
		return
	}
	if _, err := d.signals.Append(rec); err != nil {
		d.logger.Warn("signal append failed", "node", rec.SourceNodeID, "err", err)
	}
}
