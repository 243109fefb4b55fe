package icfg_test

import (
	"bytes"
	"errors"
	"fmt"
	"reflect"
	"strings"
	"testing"

	"github.com/cs-au-dk/icfg/analysis/icfg"
	T "github.com/cs-au-dk/icfg/testutil"
)

func id(s string) icfg.Identity {
	return icfg.ParseIdentity(s)
}

// fooBar is the program where foo calls bar at two distinct call sites.
func fooBar() ([]*icfg.FunctionGraph, T.CallTable) {
	foo := T.Fun("C.foo()").
		Entry(0).
		Call(1, "bar()").
		Node(icfg.LocalNode{ID: 2, Call: true, Exit: true, Repr: "bar()"}).
		Chain(0, 1, 2).
		Graph()
	bar := T.Fun("C.bar()").Entry(0).Exit(1).Chain(0, 1).Graph()

	calls := T.Calls().
		Link("C.foo()", 1, "C.bar()").
		Link("C.foo()", 2, "C.bar()")
	return []*icfg.FunctionGraph{foo, bar}, calls
}

func TestFooCallsBarTwice(t *testing.T) {
	funs, calls := fooBar()
	g := T.Build(t, funs, calls)

	if g.NumNodes() != 5 {
		t.Errorf("Expected 5 nodes, got %d", g.NumNodes())
	}

	barEntry, barExits, ok := g.FunIO(id("C.bar()"))
	if !ok {
		t.Fatal("bar was not imported")
	}

	callEdges := T.EdgesOfKind(g, icfg.Call)
	if len(callEdges) != 2 {
		t.Fatalf("Expected 2 call edges, got %v", callEdges)
	}
	for _, e := range callEdges {
		if e.Dst != barEntry {
			t.Errorf("Expected %v to target bar's entry %v", e, barEntry)
		}
	}
	if callEdges[0].Src == callEdges[1].Src {
		t.Error("Expected the call edges to leave distinct call sites")
	}

	returnEdges := T.EdgesOfKind(g, icfg.Return)
	if len(returnEdges) != 2 {
		t.Fatalf("Expected 2 return edges, got %v", returnEdges)
	}
	for _, e := range returnEdges {
		if e.Src != barExits[0] {
			t.Errorf("Expected %v to leave bar's exit %v", e, barExits[0])
		}
	}

	expected := []icfg.Edge{
		{Src: 0, Dst: 1, Kind: icfg.Intra},
		{Src: 1, Dst: 2, Kind: icfg.Intra},
		{Src: 3, Dst: 4, Kind: icfg.Intra},
		{Src: 1, Dst: 3, Kind: icfg.Call},
		{Src: 4, Dst: 2, Kind: icfg.Return},
		{Src: 2, Dst: 3, Kind: icfg.Call},
		{Src: 4, Dst: 2, Kind: icfg.Return},
	}
	if edges := g.Edges(); !reflect.DeepEqual(edges, expected) {
		t.Errorf("Expected edges\n%v\ngot\n%v", expected, edges)
	}

	kinds := []icfg.Kind{icfg.Entry, icfg.CallSite, icfg.CallSite, icfg.Entry, icfg.Exit}
	for i, kind := range kinds {
		if n := g.Node(icfg.NodeID(i)); n.Kind() != kind {
			t.Errorf("Expected %v to be %s", n, kind)
		}
	}
}

func TestInterfaceFanOut(t *testing.T) {
	caller := T.Fun("C.g()").Entry(0).Call(1, "i.f()").Exit(2).Chain(0, 1, 2).Graph()
	a := T.Fun("A.f()").Entry(0).Exit(1).Chain(0, 1).Graph()
	b := T.Fun("B.f()").Entry(0).Stmt(1, "IF x").Exit(2).Exit(3).Edge(0, 1).Edge(1, 2).Edge(1, 3).Graph()

	g := T.Build(t, []*icfg.FunctionGraph{caller, a, b}, T.Calls().Link("C.g()", 1, "A.f()", "B.f()"))

	site := icfg.NodeID(1)
	var calls []icfg.NodeID
	for _, e := range g.Successors(site) {
		if e.Kind == icfg.Call {
			calls = append(calls, e.Dst)
		}
	}
	aEntry, aExits, _ := g.FunIO(id("A.f()"))
	bEntry, bExits, _ := g.FunIO(id("B.f()"))
	if expected := []icfg.NodeID{aEntry, bEntry}; !reflect.DeepEqual(calls, expected) {
		t.Errorf("Expected call edges to %v in declaration order, got %v", expected, calls)
	}

	// Every exit of every candidate returns to the return site.
	returnSite := icfg.NodeID(2)
	var returns []icfg.NodeID
	for _, e := range g.Predecessors(returnSite) {
		if e.Kind == icfg.Return {
			returns = append(returns, e.Src)
		}
	}
	if expected := append(aExits, bExits...); !reflect.DeepEqual(returns, expected) {
		t.Errorf("Expected returns from %v, got %v", expected, returns)
	}

	if s := g.Stats(); s.MaxFanOut != 2 || s.CalledFuncs != 2 {
		t.Errorf("Expected fan-out 2 into 2 functions, got %+v", s)
	}
}

func TestCallReturnPairing(t *testing.T) {
	g := T.BuildManifest(t, `
contracts:
  - name: I
    kind: interface
    functions:
      - signature: f()
  - name: A
    bases: [I]
    functions:
      - signature: f()
        nodes:
          - {id: 0, entry: true}
          - {id: 1, repr: "IF flag"}
          - {id: 2, exit: true, repr: "RETURN 1"}
          - {id: 3, exit: true, repr: "RETURN 2"}
          - {id: 4, exit: true, repr: "REVERT"}
        edges: [{src: 0, dst: 1}, {src: 1, dst: 2}, {src: 1, dst: 3}, {src: 1, dst: 4}]
  - name: B
    bases: [I]
    functions:
      - signature: f()
        nodes:
          - {id: 0, entry: true}
          - {id: 1, exit: true}
        edges: [{src: 0, dst: 1}]
  - name: Main
    functions:
      - signature: run(address)
        nodes:
          - {id: 0, entry: true}
          - {id: 1, call: {kind: high_level, receiver: I, function: f}}
          - {id: 2, call: {function: helper}}
          - {id: 3, exit: true}
        edges: [{src: 0, dst: 1}, {src: 1, dst: 2}, {src: 2, dst: 3}]
      - signature: helper()
        nodes:
          - {id: 0, entry: true, exit: true}
`)

	for _, call := range T.EdgesOfKind(g, icfg.Call) {
		callee := g.Node(call.Dst).Function()
		_, exits, _ := g.FunIO(callee)

		var returnSite icfg.NodeID = -1
		for _, e := range g.Successors(call.Src) {
			if e.Kind == icfg.Intra {
				returnSite = e.Dst
				break
			}
		}

		returns := 0
		for _, e := range g.Predecessors(returnSite) {
			if e.Kind == icfg.Return && g.Node(e.Src).Function() == callee {
				returns++
			}
		}
		if returns != len(exits) {
			t.Errorf("Call %v into %s with %d exits has %d return edges", call, callee, len(exits), returns)
		}
	}

	if s := g.Stats(); s.CallEdges != 3 || s.ReturnEdges != 5 {
		t.Errorf("Expected 3 call and 5 return edges, got %s", s)
	}
}

func TestUnresolvedCall(t *testing.T) {
	h := T.Fun("C.h()").Entry(0).Call(1, "addr.call(data)").Call(2, "ext.f()").Exit(3).Chain(0, 1, 2, 3).Graph()
	calls := T.Calls().Link("C.h()", 2, "X.f()")
	g := T.Build(t, []*icfg.FunctionGraph{h}, calls)

	for _, n := range []*icfg.Node{g.Node(1), g.Node(2)} {
		if n.Kind() != icfg.UnresolvedExternal {
			t.Errorf("Expected %v to be UNRESOLVED_EXTERNAL", n)
		}
	}
	if len(T.EdgesOfKind(g, icfg.Call)) != 0 {
		t.Error("Expected no call edges")
	}

	// The node stays linked to its neighbours.
	if preds := g.Predecessors(1); len(preds) != 1 || preds[0].Src != 0 {
		t.Errorf("Expected n0 -> n1, got %v", preds)
	}
	if succs := g.Successors(1); len(succs) != 1 || succs[0].Dst != 2 {
		t.Errorf("Expected n1 -> n2, got %v", succs)
	}

	unresolved := g.Unresolved()
	expected := []icfg.UnresolvedCall{
		{Site: 1, Reason: icfg.NoTarget},
		{Site: 2, Reason: icfg.UnknownCallee, Target: "test"},
	}
	if !reflect.DeepEqual(unresolved, expected) {
		t.Errorf("Expected %v, got %v", expected, unresolved)
	}
}

func TestRecursionDoesNotExpand(t *testing.T) {
	r := T.Fun("C.r(uint256)").
		Entry(0).
		Stmt(1, "IF n < 2").
		Call(2, "r(n - 1)").
		Call(3, "r(n - 2)").
		Exit(4).
		Chain(0, 1, 2, 3, 4).
		Edge(1, 4).
		Graph()
	calls := T.Calls().
		Link("C.r(uint256)", 2, "C.r(uint256)").
		Link("C.r(uint256)", 3, "C.r(uint256)")

	g := T.Build(t, []*icfg.FunctionGraph{r}, calls)
	if g.NumNodes() != 5 {
		t.Errorf("Expected 5 nodes, got %d", g.NumNodes())
	}

	entry, _, _ := g.FunIO(id("C.r(uint256)"))
	callEdges := T.EdgesOfKind(g, icfg.Call)
	if len(callEdges) != 2 {
		t.Fatalf("Expected 2 call edges, got %v", callEdges)
	}
	for _, e := range callEdges {
		if e.Dst != entry {
			t.Errorf("Expected %v to target the entry %v", e, entry)
		}
	}

	scc := g.AsGraph().SCC([]icfg.NodeID{entry})
	if !scc.Cyclic(scc.ComponentOf(entry)) {
		t.Error("Expected recursion to produce a cycle through the entry")
	}
}

func TestMutualRecursion(t *testing.T) {
	even := T.Fun("C.even(uint256)").Entry(0).Call(1, "odd(n-1)").Exit(2).Chain(0, 1, 2).Graph()
	odd := T.Fun("C.odd(uint256)").Entry(0).Call(1, "even(n-1)").Exit(2).Chain(0, 1, 2).Graph()
	calls := T.Calls().
		Link("C.even(uint256)", 1, "C.odd(uint256)").
		Link("C.odd(uint256)", 1, "C.even(uint256)")

	g := T.Build(t, []*icfg.FunctionGraph{even, odd}, calls)
	if g.NumNodes() != 6 || g.NumEdges() != 8 {
		t.Errorf("Expected 6 nodes and 8 edges, got %d and %d", g.NumNodes(), g.NumEdges())
	}
	if reached := g.Reachable(0); len(reached) != 6 {
		t.Errorf("Expected every node to be reachable from even's entry, got %v", reached)
	}
}

func TestForwardReference(t *testing.T) {
	funs, calls := fooBar()
	// bar is imported after foo, and foo after bar.
	forward := T.Build(t, funs, calls)
	backward := T.Build(t, []*icfg.FunctionGraph{funs[1], funs[0]}, calls)

	for _, g := range []*icfg.Graph{forward, backward} {
		if s := g.Stats(); s.CallEdges != 2 || s.ReturnEdges != 2 {
			t.Errorf("Expected 2 call and 2 return edges, got %s", s)
		}
	}
}

func TestNoExit(t *testing.T) {
	spin := T.Fun("C.spin()").Entry(0).Stmt(1, "WHILE true").Edge(0, 1).Edge(1, 1).Graph()
	main := T.Fun("C.main()").Entry(0).Call(1, "spin()").Exit(2).Chain(0, 1, 2).Graph()

	g := T.Build(t, []*icfg.FunctionGraph{main, spin}, T.Calls().Link("C.main()", 1, "C.spin()"))
	if s := g.Stats(); s.CallEdges != 1 || s.ReturnEdges != 0 {
		t.Errorf("Expected a call edge without return edges, got %s", s)
	}
}

func TestIdempotentImport(t *testing.T) {
	funs, calls := fooBar()
	barCopy := *funs[1]
	g := T.Build(t, append(funs, funs[1], &barCopy), calls)

	if g.NumNodes() != 5 {
		t.Errorf("Expected bar to be imported once, got %d nodes", g.NumNodes())
	}
	if s := g.Stats(); s.DuplicateFuncs != 2 || s.Functions != 2 {
		t.Errorf("Expected 2 functions and 2 duplicates, got %+v", s)
	}

	// The nodes of bar appear unchanged.
	nodes := g.FunctionNodes(id("C.bar()"))
	if len(nodes) != 2 {
		t.Fatalf("Expected 2 nodes in bar, got %v", nodes)
	}
	for i, n := range nodes {
		if orig := funs[1].Nodes[i]; n.Local() != orig.ID || n.Repr() != orig.Repr {
			t.Errorf("Node %v differs from %+v", n, orig)
		}
	}
}

func TestDeterminism(t *testing.T) {
	var funs []*icfg.FunctionGraph
	calls := T.Calls()
	const size = 40
	name := func(i int) string { return fmt.Sprintf("C%d.f%d()", i%3, i) }
	for i := 0; i < size; i++ {
		funs = append(funs, T.Fun(name(i)).
			Entry(0).
			Call(1, "next()").
			Call(2, "prev()").
			Exit(3).
			Chain(0, 1, 2, 3).
			Graph())
		calls.Link(name(i), 1, name((i+1)%size))
		calls.Link(name(i), 2, name((i+size-1)%size), name(i))
	}

	build := func(workers int) *icfg.Graph {
		opts := icfg.DefaultOptions()
		opts.Workers = workers
		g, err := icfg.Build(funs, icfg.CallSites(calls), opts)
		if err != nil {
			t.Fatal(err)
		}
		return g
	}

	type node struct {
		ID    icfg.NodeID
		Label string
		Kind  icfg.Kind
		Fun   icfg.Identity
	}
	summary := func(g *icfg.Graph) (ret []node) {
		g.ForEach(func(n *icfg.Node) {
			ret = append(ret, node{n.ID(), n.Label(), n.Kind(), n.Function()})
		})
		return
	}

	first := build(1)
	for _, workers := range []int{1, 4, 16} {
		g := build(workers)
		if !reflect.DeepEqual(summary(first), summary(g)) {
			t.Errorf("Nodes differ with %d workers", workers)
		}
		if !reflect.DeepEqual(first.Edges(), g.Edges()) {
			t.Errorf("Edges differ with %d workers", workers)
		}
	}
}

func TestStructuralErrors(t *testing.T) {
	entryOnly := func(name string) *icfg.FunctionGraph {
		return T.Fun(name).Entry(0).Exit(1).Chain(0, 1).Graph()
	}
	rs := 7

	tests := []struct {
		name string
		funs []*icfg.FunctionGraph
		err  error
	}{
		{"collision", []*icfg.FunctionGraph{
			entryOnly("C.f()"),
			T.Fun("C.f()").Entry(0).Stmt(1, "x = 1").Exit(2).Chain(0, 1, 2).Graph(),
		}, icfg.ErrIdentityCollision},
		{"dangling-edge", []*icfg.FunctionGraph{
			T.Fun("C.f()").Entry(0).Exit(1).Chain(0, 1, 9).Graph(),
		}, icfg.ErrDanglingEdge},
		{"dangling-return-site", []*icfg.FunctionGraph{
			T.Fun("C.f()").Entry(0).Node(icfg.LocalNode{ID: 1, Call: true, ReturnSite: &rs}).Chain(0, 1).Graph(),
		}, icfg.ErrDanglingEdge},
		{"no-entry", []*icfg.FunctionGraph{
			T.Fun("C.f()").Stmt(0, "x").Exit(1).Chain(0, 1).Graph(),
		}, icfg.ErrMalformedFunction},
		{"two-entries", []*icfg.FunctionGraph{
			T.Fun("C.f()").Entry(0).Entry(1).Graph(),
		}, icfg.ErrMalformedFunction},
		{"duplicate-node", []*icfg.FunctionGraph{
			T.Fun("C.f()").Entry(0).Exit(0).Graph(),
		}, icfg.ErrMalformedFunction},
		{"invalid-utf8", []*icfg.FunctionGraph{
			T.Fun("C.f()").Entry(0).Stmt(1, "bad\xffutf8").Exit(2).Chain(0, 1, 2).Graph(),
		}, icfg.ErrMalformedFunction},
	}

	for _, test := range tests {
		t.Run(test.name, func(t *testing.T) {
			g, err := icfg.Build(test.funs, nil, icfg.DefaultOptions())
			if !errors.Is(err, test.err) {
				t.Errorf("Expected %v, got %v", test.err, err)
			}
			if g != nil {
				t.Error("Expected no partial graph")
			}
			if err != nil && !strings.Contains(err.Error(), "C.f()") {
				t.Errorf("Expected the error to name the function, got %q", err)
			}
		})
	}
}

func TestCeilings(t *testing.T) {
	funs, calls := fooBar()

	tests := []struct {
		name               string
		maxNodes, maxEdges int
		fails              bool
	}{
		{"unlimited", 0, 0, false},
		{"nodes", 4, 0, true},
		{"exact-nodes", 5, 0, false},
		{"intra-edges", 0, 2, true},
		{"call-edges", 0, 6, true},
		{"exact-edges", 0, 7, false},
	}

	for _, test := range tests {
		t.Run(test.name, func(t *testing.T) {
			_, err := icfg.Build(funs, icfg.CallSites(calls), icfg.Options{
				MaxNodes: test.maxNodes,
				MaxEdges: test.maxEdges,
			})
			if test.fails && !errors.Is(err, icfg.ErrGraphTooLarge) {
				t.Errorf("Expected ErrGraphTooLarge, got %v", err)
			}
			if !test.fails && err != nil {
				t.Errorf("Unexpected error: %v", err)
			}
		})
	}
}

func TestKindPrecedence(t *testing.T) {
	f := T.Fun("C.f()").
		Node(icfg.LocalNode{ID: 0, Entry: true, Call: true}).
		Stmt(1, "x = g()").
		Node(icfg.LocalNode{ID: 2, Exit: true, Call: true}).
		Call(3, "g()").
		Exit(4).
		Chain(0, 1, 2).
		Chain(3, 4).
		Edge(1, 3).
		Graph()
	g := T.Fun("C.g()").Entry(0).Exit(1).Chain(0, 1).Graph()

	calls := T.Calls().Link("C.f()", 0, "C.g()").Link("C.f()", 2, "C.g()").Link("C.f()", 3, "C.g()")
	graph := T.Build(t, []*icfg.FunctionGraph{f, g}, calls)

	expected := []icfg.Kind{icfg.Entry, icfg.ReturnSite, icfg.CallSite, icfg.CallSite, icfg.Exit}
	for i, kind := range expected {
		if n := graph.Node(icfg.NodeID(i)); n.Kind() != kind {
			t.Errorf("Expected %v to be %s", n, kind)
		}
	}

	// Default labels.
	if l := graph.Node(0).Label(); l != "C.f()" {
		t.Errorf("Expected entry label C.f(), got %q", l)
	}
	if l := graph.Node(1).Label(); l != "RETURN_SITE" {
		t.Errorf("Expected kind label, got %q", l)
	}
}

func TestQueries(t *testing.T) {
	funs, calls := fooBar()
	g := T.Build(t, funs, calls)

	for name, expected := range map[string]string{
		"C.bar()": "C.bar()",
		"bar()":   "C.bar()",
		"foo":     "C.foo()",
	} {
		if fun, ok := g.FunctionByName(name); !ok || fun != id(expected) {
			t.Errorf("FunctionByName(%q) = %v, %v", name, fun, ok)
		}
	}
	if _, ok := g.FunctionByName("baz"); ok {
		t.Error("Expected no function named baz")
	}

	if reached := g.Reachable(3); !reflect.DeepEqual(reached, []icfg.NodeID{2, 3, 4}) {
		t.Errorf("Expected n3 to reach n2, n3 and n4, got %v", reached)
	}
	if g.Node(5) != nil || g.Node(-1) != nil {
		t.Error("Expected out of range nodes to be nil")
	}

	if funs := g.Functions(); !reflect.DeepEqual(funs, []icfg.Identity{id("C.foo()"), id("C.bar()")}) {
		t.Errorf("Unexpected function order %v", funs)
	}

	var buf bytes.Buffer
	g.WriteMetrics(&buf)
	for _, line := range []string{
		`icfg_edges_total{kind="call"} 2`,
		`icfg_edges_total{kind="return"} 2`,
		`icfg_nodes_total 5`,
	} {
		if !strings.Contains(buf.String(), line) {
			t.Errorf("Expected metrics to contain %q, got\n%s", line, buf.String())
		}
	}

	buf.Reset()
	if !g.PrintFunction(&buf, id("C.foo()")) {
		t.Fatal("Expected foo to be printed")
	}
	if out := buf.String(); !strings.Contains(out, "Calls: C.bar()") {
		t.Errorf("Expected the listing to show calls, got\n%s", out)
	}
}

func TestStatsDoNotChangeMetrics(t *testing.T) {
	funs, calls := fooBar()
	g := T.Build(t, funs, calls)

	var before, after bytes.Buffer
	g.WriteMetrics(&before)
	g.Stats()
	g.WriteMetrics(&after)

	if before.String() != after.String() {
		t.Errorf("Metrics changed after reading stats:\n%s\n%s", before.String(), after.String())
	}
	for _, line := range []string{
		`icfg_call_sites_unresolved_total 0`,
		`icfg_functions_deduplicated_total 0`,
	} {
		if !strings.Contains(before.String(), line) {
			t.Errorf("Expected untouched counters to be exported, missing %q in\n%s", line, before.String())
		}
	}
}

func TestReachableIgnoresUnknownNodes(t *testing.T) {
	funs, calls := fooBar()
	g := T.Build(t, funs, calls)

	if reached := g.Reachable(3, 3, 42, -1); !reflect.DeepEqual(reached, []icfg.NodeID{2, 3, 4}) {
		t.Errorf("Expected n2, n3 and n4, got %v", reached)
	}
	if reached := g.Reachable(42); len(reached) != 0 {
		t.Errorf("Expected nothing reachable from an unknown node, got %v", reached)
	}
}

func TestEntryUnresolvedCall(t *testing.T) {
	f := T.Fun("C.f()").
		Node(icfg.LocalNode{ID: 0, Entry: true, Call: true, Repr: "addr.call()"}).
		Exit(1).
		Chain(0, 1).
		Graph()
	g := T.Build(t, []*icfg.FunctionGraph{f}, T.Calls().Link("C.f()", 0))

	if k := g.Node(0).Kind(); k != icfg.Entry {
		t.Errorf("Expected the entry kind to take precedence, got %s", k)
	}
	unresolved := g.Unresolved()
	if len(unresolved) != 1 || unresolved[0].Site != 0 || unresolved[0].Reason != icfg.NoTarget {
		t.Errorf("Expected the entry to be recorded as an unresolved call site, got %+v", unresolved)
	}
	if n := len(T.EdgesOfKind(g, icfg.Call)); n != 0 {
		t.Errorf("Expected no call edges, got %d", n)
	}
}
