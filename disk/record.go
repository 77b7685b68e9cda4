package disk

import (
	"fmt"

	"github.com/fxd-io/fxdisk/uarr"
	"github.com/fxd-io/fxdisk/wal"
)

// nodePayload builds the NODE_CREATE payload that fully describes one node.
// Nil values encode as null; meta and proto are omitted when absent.
func nodePayload(n Node) uarr.Map {
	p := uarr.Map{
		"id":      uarr.String(n.ID()),
		"keyName": uarr.String(n.KeyName()),
		"type":    uarr.String(n.Kind()),
		"value":   n.Value(),
	}
	if pid := n.ParentID(); pid != "" {
		p["parentId"] = uarr.NodeRef(pid)
	} else {
		p["parentId"] = uarr.Null{}
	}
	if m := n.Meta(); m != nil {
		p["meta"] = m
	}
	if proto := n.Proto(); proto != "" {
		p["proto"] = uarr.NodeRef(proto)
	}
	return p
}

// nodeRecord is a parsed NODE_CREATE payload.
type nodeRecord struct {
	id        string
	parentID  string
	hasParent bool
	keyName   string
	kind      string
	value     uarr.Value
	meta      uarr.Value
	proto     string
}

// parseNodeRecord decodes and validates a NODE_CREATE record.
func parseNodeRecord(rec wal.Record) (nodeRecord, error) {
	m, err := payloadMap(rec)
	if err != nil {
		return nodeRecord{}, err
	}

	nr := nodeRecord{
		id:      stringField(m, "id"),
		keyName: stringField(m, "keyName"),
		kind:    stringField(m, "type"),
		value:   m["value"],
		meta:    m["meta"],
		proto:   stringField(m, "proto"),
	}
	if nr.id == "" {
		return nodeRecord{}, fmt.Errorf("record %d: node payload missing id", rec.Seq)
	}
	if pid := stringField(m, "parentId"); pid != "" {
		nr.parentID = pid
		nr.hasParent = true
	}
	return nr, nil
}

// payloadMap decodes a record payload and requires it to be a map.
func payloadMap(rec wal.Record) (uarr.Map, error) {
	v, err := rec.Payload()
	if err != nil {
		return nil, fmt.Errorf("record %d: %w", rec.Seq, err)
	}
	m, ok := v.(uarr.Map)
	if !ok {
		return nil, fmt.Errorf("record %d: payload is %T, want map", rec.Seq, v)
	}
	return m, nil
}

// stringField extracts a textual field, accepting either the string or the
// node-reference tag. Missing, null, or non-textual fields yield "".
func stringField(m uarr.Map, key string) string {
	switch v := m[key].(type) {
	case uarr.String:
		return string(v)
	case uarr.NodeRef:
		return string(v)
	default:
		return ""
	}
}
