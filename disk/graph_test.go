package disk

import (
	"fmt"
	"slices"

	"github.com/fxd-io/fxdisk/uarr"
)

// memNode and memGraph are the host-graph stand-ins for tests: a plain
// in-memory tree that upserts on Create, the way a real host graph treats a
// replayed full save.
type memNode struct {
	id       string
	parentID string
	keyName  string
	kind     string
	proto    string
	value    uarr.Value
	meta     uarr.Value
	children []*memNode
}

func (n *memNode) ID() string        { return n.id }
func (n *memNode) ParentID() string  { return n.parentID }
func (n *memNode) KeyName() string   { return n.keyName }
func (n *memNode) Kind() string      { return n.kind }
func (n *memNode) Value() uarr.Value { return n.value }
func (n *memNode) Meta() uarr.Value  { return n.meta }
func (n *memNode) Proto() string     { return n.proto }

func (n *memNode) Children() []Node {
	out := make([]Node, len(n.children))
	for i, c := range n.children {
		out[i] = c
	}
	return out
}

type memGraph struct {
	root *memNode
	byID map[string]*memNode
}

func newMemGraph() *memGraph {
	root := &memNode{id: "root", keyName: "root", kind: "map"}
	return &memGraph{root: root, byID: map[string]*memNode{root.id: root}}
}

func (g *memGraph) Root() Node { return g.root }

func (g *memGraph) Create(spec NodeSpec) (Node, error) {
	if n, ok := g.byID[spec.ID]; ok {
		n.keyName = spec.KeyName
		n.kind = spec.Kind
		n.value = spec.Value
		n.meta = spec.Meta
		n.proto = spec.Proto
		return n, nil
	}

	n := &memNode{
		id:       spec.ID,
		parentID: spec.ParentID,
		keyName:  spec.KeyName,
		kind:     spec.Kind,
		value:    spec.Value,
		meta:     spec.Meta,
		proto:    spec.Proto,
	}
	parent := g.byID[spec.ParentID]
	if parent == nil {
		// Degraded placement: unknown parents hang off the root.
		parent = g.root
	}
	parent.children = append(parent.children, n)
	g.byID[n.id] = n
	return n, nil
}

func (g *memGraph) Update(id string, value, meta uarr.Value) error {
	n, ok := g.byID[id]
	if !ok {
		return fmt.Errorf("no node %s", id)
	}
	n.value = value
	if meta != nil {
		n.meta = meta
	}
	return nil
}

func (g *memGraph) SetProto(id, proto string) error {
	n, ok := g.byID[id]
	if !ok {
		return fmt.Errorf("no node %s", id)
	}
	n.proto = proto
	return nil
}

func (g *memGraph) ClearBelowRoot(reserved []string) error {
	var kept []*memNode
	for _, c := range g.root.children {
		if slices.Contains(reserved, c.keyName) {
			kept = append(kept, c)
			continue
		}
		g.forget(c)
	}
	g.root.children = kept
	return nil
}

func (g *memGraph) forget(n *memNode) {
	delete(g.byID, n.id)
	for _, c := range n.children {
		g.forget(c)
	}
}

// addChild is the test-side builder for trees that predate any log.
func (g *memGraph) addChild(parentID, id, keyName, kind string, value uarr.Value) *memNode {
	n := &memNode{id: id, parentID: parentID, keyName: keyName, kind: kind, value: value}
	parent := g.byID[parentID]
	parent.children = append(parent.children, n)
	g.byID[id] = n
	return n
}

func (g *memGraph) nodeCount() int { return len(g.byID) }
