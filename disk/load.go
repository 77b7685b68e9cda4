package disk

import (
	"context"
	"fmt"

	"github.com/fxd-io/fxdisk/wal"
)

// Load clears the graph below its reserved roots and replays the whole log,
// reconstructing hierarchy from node ids. Structural problems in individual
// records degrade with a warning; only I/O and replay failures abort.
func (d *Disk) Load(ctx context.Context) error {
	if err := d.graph.ClearBelowRoot(d.reserved); err != nil {
		return fmt.Errorf("clearing graph: %w", err)
	}

	ld := &loader{
		d:       d,
		paths:   make(map[string]string),
		pending: make(map[string][]nodeRecord),
	}

	for rec, err := range d.log.ReadFrom(0) {
		if err != nil {
			return fmt.Errorf("replaying log: %w", err)
		}
		if err := ctx.Err(); err != nil {
			return err
		}

		switch rec.Type {
		case wal.TypeNodeCreate:
			nr, err := parseNodeRecord(rec)
			if err != nil {
				d.logger.Warn("skipping malformed node record", "err", err)
				continue
			}
			ld.place(nr)
		case wal.TypeNodePatch:
			ld.patch(rec)
		case wal.TypeLinkAdd:
			ld.setLink(rec, true)
		case wal.TypeLinkDel:
			ld.setLink(rec, false)
		case wal.TypeSignal, wal.TypeCheckpoint:
			// Not graph state.
		default:
			d.logger.Warn("skipping record of unknown type", "seq", rec.Seq, "type", uint8(rec.Type))
		}
	}

	ld.flushOrphans()
	return nil
}

// loader carries per-replay state: resolved id->path mappings and records
// parked until their parent appears.
type loader struct {
	d       *Disk
	paths   map[string]string
	pending map[string][]nodeRecord
}

// place resolves a node's path and creates it, or parks it until its parent
// shows up. Records may arrive in any parent order.
func (ld *loader) place(nr nodeRecord) {
	if !nr.hasParent {
		ld.create(nr, nr.id)
		return
	}
	parentPath, ok := ld.paths[nr.parentID]
	if !ok {
		ld.pending[nr.parentID] = append(ld.pending[nr.parentID], nr)
		return
	}
	ld.create(nr, parentPath+"."+nr.keyName)
}

// create materializes the node in the graph and releases any records that
// were waiting for it. Creating an id that already exists replaces its
// description; a full save after an earlier one re-creates every node.
func (ld *loader) create(nr nodeRecord, path string) {
	_, err := ld.d.graph.Create(NodeSpec{
		ID:       nr.id,
		ParentID: nr.parentID,
		Path:     path,
		KeyName:  nr.keyName,
		Kind:     nr.kind,
		Value:    nr.value,
		Meta:     nr.meta,
		Proto:    nr.proto,
	})
	if err != nil {
		ld.d.logger.Warn("graph rejected node", "node", nr.id, "err", err)
		return
	}

	ld.paths[nr.id] = path
	if nr.kind == "snippet" && ld.d.snippets != nil {
		ld.d.snippets.Put(nr.id, path)
	}

	waiters := ld.pending[nr.id]
	delete(ld.pending, nr.id)
	for _, w := range waiters {
		ld.place(w)
	}
}

// patch applies a NODE_PATCH to an already-resolved node. A patch for an
// unknown id is dropped; it references state this log never established.
func (ld *loader) patch(rec wal.Record) {
	if _, ok := ld.paths[rec.NodeID]; !ok {
		ld.d.logger.Warn("dropping patch for unknown node", "node", rec.NodeID, "seq", rec.Seq)
		return
	}
	m, err := payloadMap(rec)
	if err != nil {
		ld.d.logger.Warn("skipping malformed patch", "err", err)
		return
	}
	if err := ld.d.graph.Update(rec.NodeID, m["value"], m["meta"]); err != nil {
		ld.d.logger.Warn("graph rejected patch", "node", rec.NodeID, "err", err)
	}
}

// setLink applies a LINK_ADD or LINK_DEL to an already-resolved node.
func (ld *loader) setLink(rec wal.Record, add bool) {
	if _, ok := ld.paths[rec.NodeID]; !ok {
		ld.d.logger.Warn("dropping link for unknown node", "node", rec.NodeID, "seq", rec.Seq)
		return
	}
	proto := ""
	if add {
		m, err := payloadMap(rec)
		if err != nil {
			ld.d.logger.Warn("skipping malformed link", "err", err)
			return
		}
		proto = stringField(m, "proto")
	}
	if err := ld.d.graph.SetProto(rec.NodeID, proto); err != nil {
		ld.d.logger.Warn("graph rejected link", "node", rec.NodeID, "err", err)
	}
}

// flushOrphans creates every node whose parent never appeared, degraded to
// its bare key name so its subtree is still reachable.
func (ld *loader) flushOrphans() {
	for len(ld.pending) > 0 {
		var parentID string
		for id := range ld.pending {
			parentID = id
			break
		}
		waiters := ld.pending[parentID]
		delete(ld.pending, parentID)
		for _, w := range waiters {
			path := w.keyName
			if path == "" {
				path = w.id
			}
			ld.d.logger.Warn("parent never appeared, degrading node", "node", w.id, "parent", parentID)
			ld.create(w, path)
		}
	}
}
