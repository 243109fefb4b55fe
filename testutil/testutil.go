package testutil

import (
	"testing"

	"github.com/cs-au-dk/icfg/analysis/icfg"
	"github.com/cs-au-dk/icfg/analysis/resolve"
	"github.com/cs-au-dk/icfg/frontend"
)

// FunBuilder assembles function graphs for tests.
//
//	foo := Fun("C.foo()").Entry(0).Call(1, "bar()").Exit(2).Chain(0, 1, 2).Graph()
type FunBuilder struct {
	fun *icfg.FunctionGraph
}

func Fun(identity string) *FunBuilder {
	return &FunBuilder{&icfg.FunctionGraph{Identity: icfg.ParseIdentity(identity)}}
}

func (b *FunBuilder) add(n icfg.LocalNode) *FunBuilder {
	b.fun.Nodes = append(b.fun.Nodes, n)
	return b
}

func (b *FunBuilder) Entry(id int) *FunBuilder {
	return b.add(icfg.LocalNode{ID: id, Entry: true, Repr: "ENTRY_POINT"})
}

func (b *FunBuilder) Exit(id int) *FunBuilder {
	return b.add(icfg.LocalNode{ID: id, Exit: true, Repr: "RETURN"})
}

func (b *FunBuilder) Stmt(id int, repr string) *FunBuilder {
	return b.add(icfg.LocalNode{ID: id, Repr: repr})
}

// Node adds an arbitrary node.
func (b *FunBuilder) Node(n icfg.LocalNode) *FunBuilder {
	return b.add(n)
}

func (b *FunBuilder) Call(id int, repr string) *FunBuilder {
	return b.add(icfg.LocalNode{ID: id, Call: true, Repr: repr})
}

// CallReturningTo adds a call site with an explicit return site.
func (b *FunBuilder) CallReturningTo(id, returnSite int, repr string) *FunBuilder {
	return b.add(icfg.LocalNode{ID: id, Call: true, Repr: repr, ReturnSite: &returnSite})
}

func (b *FunBuilder) Edge(src, dst int) *FunBuilder {
	b.fun.Edges = append(b.fun.Edges, icfg.LocalEdge{Src: src, Dst: dst})
	return b
}

// Chain adds edges between consecutive ids.
func (b *FunBuilder) Chain(ids ...int) *FunBuilder {
	for i := 1; i < len(ids); i++ {
		b.Edge(ids[i-1], ids[i])
	}
	return b
}

func (b *FunBuilder) Graph() *icfg.FunctionGraph {
	return b.fun
}

// CallTable maps call sites to their callees without going through the
// resolver.
type CallTable icfg.CallSites

// Link resolves the call site at the given local id of a function to the
// given callees. Without callees the site is left without a target.
func (c CallTable) Link(fun string, local int, callees ...string) CallTable {
	res := icfg.Resolution{Target: "test"}
	if len(callees) == 0 {
		res.Reason = icfg.NoTarget
	}
	for _, callee := range callees {
		res.Callees = append(res.Callees, icfg.ParseIdentity(callee))
	}
	c[icfg.SiteKey{Function: icfg.ParseIdentity(fun), Local: local}] = res
	return c
}

func Calls() CallTable {
	return CallTable{}
}

// Build constructs an ICFG with default options, failing the test on error.
func Build(t *testing.T, funs []*icfg.FunctionGraph, calls CallTable) *icfg.Graph {
	t.Helper()
	g, err := icfg.Build(funs, icfg.CallSites(calls), icfg.DefaultOptions())
	if err != nil {
		t.Fatal("Failed to build ICFG:", err)
	}
	return g
}

// LoadManifest adapts a YAML manifest given as a string.
func LoadManifest(t *testing.T, manifest string) *frontend.Program {
	t.Helper()
	p, err := frontend.Parse([]byte(manifest), frontend.YAML)
	if err != nil {
		t.Fatal("Failed to parse manifest:", err)
	}
	prog, err := frontend.Adapt(p)
	if err != nil {
		t.Fatal("Failed to adapt manifest:", err)
	}
	return prog
}

// BuildManifest resolves and builds a YAML manifest given as a string.
func BuildManifest(t *testing.T, manifest string) *icfg.Graph {
	t.Helper()
	g, err := LoadManifest(t, manifest).Build(resolve.DefaultOptions(), icfg.DefaultOptions())
	if err != nil {
		t.Fatal("Failed to build ICFG:", err)
	}
	return g
}

// EdgesOfKind filters the edges of a graph.
func EdgesOfKind(g *icfg.Graph, kind icfg.EdgeKind) (ret []icfg.Edge) {
	for _, e := range g.Edges() {
		if e.Kind == kind {
			ret = append(ret, e)
		}
	}
	return
}

// NodeByRepr finds the first node of a function with the given payload.
func NodeByRepr(t *testing.T, g *icfg.Graph, fun, repr string) *icfg.Node {
	t.Helper()
	for _, n := range g.FunctionNodes(icfg.ParseIdentity(fun)) {
		if n.Repr() == repr {
			return n
		}
	}
	t.Fatalf("No node %q in %s", repr, fun)
	return nil
}
