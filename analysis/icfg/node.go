package icfg

import (
	"fmt"
	"strings"
)

// NodeID identifies a node across the entire ICFG. Ids are dense and assigned
// in function import order, then in the order of the function's node list.
type NodeID int

func (id NodeID) String() string {
	return fmt.Sprintf("n%d", int(id))
}

// Kind classifies a control-flow point.
type Kind int

const (
	Statement Kind = iota
	Entry
	Exit
	CallSite
	ReturnSite
	UnresolvedExternal
)

var kindNames = [...]string{
	Statement:          "STATEMENT",
	Entry:              "ENTRY",
	Exit:               "EXIT",
	CallSite:           "CALL_SITE",
	ReturnSite:         "RETURN_SITE",
	UnresolvedExternal: "UNRESOLVED_EXTERNAL",
}

func (k Kind) String() string {
	if k < 0 || int(k) >= len(kindNames) {
		return fmt.Sprintf("Kind(%d)", int(k))
	}
	return kindNames[k]
}

// ParseKind is the inverse of Kind.String. Matching is case-insensitive and
// the empty string denotes a plain statement.
func ParseKind(s string) (Kind, error) {
	if s == "" {
		return Statement, nil
	}
	for k, name := range kindNames {
		if strings.EqualFold(name, s) {
			return Kind(k), nil
		}
	}
	return Statement, fmt.Errorf("unknown node kind %q", s)
}

// EdgeKind classifies the control transfer represented by an edge.
type EdgeKind int

const (
	Intra EdgeKind = iota
	Call
	Return
)

var edgeKindNames = [...]string{
	Intra:  "intra",
	Call:   "call",
	Return: "return",
}

func (k EdgeKind) String() string {
	if k < 0 || int(k) >= len(edgeKindNames) {
		return fmt.Sprintf("EdgeKind(%d)", int(k))
	}
	return edgeKindNames[k]
}

func ParseEdgeKind(s string) (EdgeKind, error) {
	for k, name := range edgeKindNames {
		if strings.EqualFold(name, s) {
			return EdgeKind(k), nil
		}
	}
	return Intra, fmt.Errorf("unknown edge kind %q", s)
}

// Node is a control-flow point of the ICFG. Nodes are created by the builder
// and never change afterwards.
type Node struct {
	id    NodeID
	local int
	label string
	repr  string
	kind  Kind
	fun   Identity
}

func (n *Node) ID() NodeID { return n.id }

// Local is the id the node had in its function graph.
func (n *Node) Local() int { return n.local }

func (n *Node) Label() string { return n.label }

// Repr is the statement payload supplied by the front end, passed through
// unmodified.
func (n *Node) Repr() string { return n.repr }

func (n *Node) Kind() Kind { return n.kind }

// Function is the identity of the function the node belongs to.
func (n *Node) Function() Identity { return n.fun }

func (n *Node) String() string {
	return fmt.Sprintf("%s[%s %s:%d]", n.id, n.kind, n.fun, n.local)
}

// Edge is a directed control transfer between two nodes. Multiple edges
// between the same pair of nodes are allowed.
type Edge struct {
	Src, Dst NodeID
	Kind     EdgeKind
}

func (e Edge) String() string {
	return fmt.Sprintf("%s -%s-> %s", e.Src, e.Kind, e.Dst)
}
