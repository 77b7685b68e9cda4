package disk

import "github.com/fxd-io/fxdisk/uarr"

// Node is the orchestrator's read view of one graph node. The host's graph
// implements it; the orchestrator never holds nodes between operations.
type Node interface {
	ID() string
	ParentID() string // empty for the root
	KeyName() string
	Kind() string
	Value() uarr.Value
	Meta() uarr.Value // nil when the node carries none
	Proto() string    // prototype link target id, empty when unset
	Children() []Node
}

// NodeSpec describes a node to be created during Load. Path is the dotted
// location the orchestrator resolved for it.
type NodeSpec struct {
	ID       string
	ParentID string
	Path     string
	KeyName  string
	Kind     string
	Value    uarr.Value
	Meta     uarr.Value
	Proto    string
}

// Graph is the host graph's mutation surface. Nodes are only ever created
// through Create; the orchestrator never fabricates them.
type Graph interface {
	Root() Node
	Create(spec NodeSpec) (Node, error)
	Update(id string, value, meta uarr.Value) error
	SetProto(id, proto string) error

	// ClearBelowRoot removes the root's children ahead of a load, keeping
	// any whose key name appears in reserved.
	ClearBelowRoot(reserved []string) error
}
