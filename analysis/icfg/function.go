package icfg

import (
	"encoding/binary"
	"fmt"
	"unicode/utf8"

	"github.com/cespare/xxhash/v2"
)

// LocalNode is a node of a function graph as supplied by the front end.
// Ids are local to the function.
type LocalNode struct {
	ID    int
	Label string
	Repr  string
	// Kind is a hint from the front end. ENTRY and EXIT hints are equivalent
	// to setting the corresponding flag; other kinds are computed by the builder.
	Kind  Kind
	Entry bool
	Exit  bool
	// Call marks the node as a call site.
	Call bool
	// ReturnSite is the local id of the node control resumes at after the
	// call. When nil, the first intra-procedural successor is used.
	ReturnSite *int
}

// LocalEdge is an intra-procedural edge between local node ids.
type LocalEdge struct {
	Src, Dst int
}

// FunctionGraph is the intra-procedural CFG of one function.
type FunctionGraph struct {
	Identity Identity
	Nodes    []LocalNode
	Edges    []LocalEdge
}

func (f *FunctionGraph) String() string {
	return fmt.Sprintf("%s (%d nodes, %d edges)", f.Identity, len(f.Nodes), len(f.Edges))
}

// Fingerprint is a content hash over the identity, nodes and edges of the
// function graph. Two function graphs with equal fingerprints are treated as
// the same declaration.
func (f *FunctionGraph) Fingerprint() uint64 {
	d := xxhash.New()
	var buf [8]byte
	str := func(s string) {
		binary.LittleEndian.PutUint64(buf[:], uint64(len(s)))
		d.Write(buf[:])
		d.WriteString(s)
	}
	num := func(i int) {
		binary.LittleEndian.PutUint64(buf[:], uint64(i))
		d.Write(buf[:])
	}
	flag := func(b bool) {
		if b {
			num(1)
		} else {
			num(0)
		}
	}

	str(f.Identity.Scope)
	str(f.Identity.Signature)
	num(len(f.Nodes))
	for _, n := range f.Nodes {
		num(n.ID)
		str(n.Label)
		str(n.Repr)
		num(int(n.Kind))
		flag(n.Entry)
		flag(n.Exit)
		flag(n.Call)
		flag(n.ReturnSite != nil)
		if n.ReturnSite != nil {
			num(*n.ReturnSite)
		}
	}
	num(len(f.Edges))
	for _, e := range f.Edges {
		num(e.Src)
		num(e.Dst)
	}
	return d.Sum64()
}

// layout is the validated shape of a function graph.
type layout struct {
	// index maps local ids to positions in the node list.
	index map[int]int
	entry int
	exits []int
	// succ holds the intra successors of every position, in edge order.
	succ [][]int
}

func (n LocalNode) isEntry() bool { return n.Entry || n.Kind == Entry }
func (n LocalNode) isExit() bool  { return n.Exit || n.Kind == Exit }
func (n LocalNode) isCall() bool {
	return n.Call || n.Kind == CallSite || n.Kind == UnresolvedExternal
}

// validate checks the structural invariants of the function graph: unique
// local ids, exactly one entry, and edges between known nodes.
func (f *FunctionGraph) validate() (*layout, error) {
	l := &layout{
		index: make(map[int]int, len(f.Nodes)),
		entry: -1,
		succ:  make([][]int, len(f.Nodes)),
	}

	for i, n := range f.Nodes {
		if _, dup := l.index[n.ID]; dup {
			return nil, fmt.Errorf("%w: %s: duplicate local node id %d", ErrMalformedFunction, f.Identity, n.ID)
		}
		l.index[n.ID] = i

		// Exporters must pass labels and reprs through unchanged.
		if !utf8.ValidString(n.Label) || !utf8.ValidString(n.Repr) {
			return nil, fmt.Errorf("%w: %s: node %d is not valid UTF-8", ErrMalformedFunction, f.Identity, n.ID)
		}

		if n.isEntry() {
			if l.entry >= 0 {
				return nil, fmt.Errorf("%w: %s: nodes %d and %d are both entry nodes",
					ErrMalformedFunction, f.Identity, f.Nodes[l.entry].ID, n.ID)
			}
			l.entry = i
		}
		if n.isExit() {
			l.exits = append(l.exits, i)
		}
	}

	if l.entry < 0 {
		return nil, fmt.Errorf("%w: %s: no entry node", ErrMalformedFunction, f.Identity)
	}

	for _, e := range f.Edges {
		src, ok := l.index[e.Src]
		if !ok {
			return nil, fmt.Errorf("%w: %s: intra edge %d -> %d: source", ErrDanglingEdge, f.Identity, e.Src, e.Dst)
		}
		dst, ok := l.index[e.Dst]
		if !ok {
			return nil, fmt.Errorf("%w: %s: intra edge %d -> %d: destination", ErrDanglingEdge, f.Identity, e.Src, e.Dst)
		}
		l.succ[src] = append(l.succ[src], dst)
	}

	for _, n := range f.Nodes {
		if n.ReturnSite == nil {
			continue
		}
		if _, ok := l.index[*n.ReturnSite]; !ok {
			return nil, fmt.Errorf("%w: %s: return site %d of call site %d",
				ErrDanglingEdge, f.Identity, *n.ReturnSite, n.ID)
		}
	}

	return l, nil
}

// returnSite computes the position of the return site of the call site at
// position i: the explicit return site, the first intra successor, or the
// call site itself.
func (l *layout) returnSite(f *FunctionGraph, i int) int {
	if rs := f.Nodes[i].ReturnSite; rs != nil {
		return l.index[*rs]
	}
	if len(l.succ[i]) > 0 {
		return l.succ[i][0]
	}
	return i
}
