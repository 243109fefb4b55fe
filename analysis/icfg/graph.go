package icfg

import (
	"fmt"
	"io"
	"strings"

	"github.com/VictoriaMetrics/metrics"
	"github.com/benbjohnson/immutable"
	"golang.org/x/tools/container/intsets"

	"github.com/cs-au-dk/icfg/utils/graph"
)

// funEntry is used for book-keeping information about an imported function.
// It exposes entry/exit nodes and the contiguous id range of its body.
type funEntry struct {
	entry NodeID
	exits []NodeID
	first NodeID
	count int
}

// Graph is the interprocedural control flow graph of a project. It is
// read-only once returned by Build.
type Graph struct {
	nodes []*Node
	edges []Edge
	// out and in hold edge indices per node, in edge order.
	out, in [][]int

	// funs maps function identities to their book-keeping information.
	funs  *immutable.Map[Identity, *funEntry]
	order []Identity

	unresolved []UnresolvedCall
	metrics    *metrics.Set
	// counters holds every counter of metrics by name. It is complete after
	// Build, so reading it never registers new metrics.
	counters map[string]*metrics.Counter
}

// NumNodes returns the number of nodes in the graph.
func (g *Graph) NumNodes() int { return len(g.nodes) }

// NumEdges returns the number of edges in the graph.
func (g *Graph) NumEdges() int { return len(g.edges) }

// Node returns the node with the given id, or nil if there is none.
func (g *Graph) Node(id NodeID) *Node {
	if id < 0 || int(id) >= len(g.nodes) {
		return nil
	}
	return g.nodes[id]
}

// Nodes returns all nodes ordered by id.
func (g *Graph) Nodes() []*Node {
	return append([]*Node(nil), g.nodes...)
}

// Edges returns all edges: intra-procedural edges in import order, followed
// by call and return edges in call site order.
func (g *Graph) Edges() []Edge {
	return append([]Edge(nil), g.edges...)
}

// Successors returns the outgoing edges of a node.
func (g *Graph) Successors(id NodeID) (ret []Edge) {
	for _, i := range g.out[id] {
		ret = append(ret, g.edges[i])
	}
	return
}

// Predecessors returns the incoming edges of a node.
func (g *Graph) Predecessors(id NodeID) (ret []Edge) {
	for _, i := range g.in[id] {
		ret = append(ret, g.edges[i])
	}
	return
}

// Functions returns the identities of all imported functions in import order.
func (g *Graph) Functions() []Identity {
	return append([]Identity(nil), g.order...)
}

// FunIO yields the entry and exit nodes of a given function.
func (g *Graph) FunIO(fun Identity) (entry NodeID, exits []NodeID, ok bool) {
	fe, ok := g.funs.Get(fun)
	if !ok {
		return -1, nil, false
	}
	return fe.entry, append([]NodeID(nil), fe.exits...), true
}

// FunctionNodes returns the nodes of a function in the order they were supplied.
func (g *Graph) FunctionNodes(fun Identity) []*Node {
	fe, ok := g.funs.Get(fun)
	if !ok {
		return nil
	}
	return append([]*Node(nil), g.nodes[fe.first:int(fe.first)+fe.count]...)
}

// FunctionByName retrieves a function identity by name. The search strategy is:
//
//  1. Attempt a fully qualified match (Scope.signature)
//  2. Match a signature across all scopes
//  3. Match a function name (signature without parameters) across all scopes
//
// Ties are broken by import order.
func (g *Graph) FunctionByName(name string) (Identity, bool) {
	for _, fun := range g.order {
		if fun.String() == name {
			return fun, true
		}
	}
	for _, fun := range g.order {
		if fun.Signature == name {
			return fun, true
		}
	}
	for _, fun := range g.order {
		if fun.Name() == name {
			return fun, true
		}
	}
	return Identity{}, false
}

// Unresolved returns the call sites that did not receive a call edge.
func (g *Graph) Unresolved() []UnresolvedCall {
	return append([]UnresolvedCall(nil), g.unresolved...)
}

// ForEach executes the given procedure for each node in id order.
func (g *Graph) ForEach(do func(*Node)) {
	for _, n := range g.nodes {
		do(n)
	}
}

// AsGraph exposes the ICFG to the generic graph algorithms. Successor lists
// keep edge multiplicity.
func (g *Graph) AsGraph() graph.Graph[NodeID] {
	return graph.OfHashable(func(id NodeID) (ret []NodeID) {
		for _, i := range g.out[id] {
			ret = append(ret, g.edges[i].Dst)
		}
		return
	})
}

// Reachable returns the ids of all nodes reachable from the given nodes
// (inclusive), sorted.
func (g *Graph) Reachable(from ...NodeID) []NodeID {
	starts := make([]NodeID, 0, len(from))
	for _, id := range from {
		if g.Node(id) != nil {
			starts = append(starts, id)
		}
	}

	var reached intsets.Sparse
	for _, id := range g.AsGraph().ReachableFrom(starts...) {
		reached.Insert(int(id))
	}

	ids := reached.AppendTo(nil)
	ret := make([]NodeID, len(ids))
	for i, id := range ids {
		ret[i] = NodeID(id)
	}
	return ret
}

// Stats summarizes the shape of the graph.
type Stats struct {
	Functions      int
	Nodes          int
	Edges          int
	IntraEdges     int
	CallEdges      int
	ReturnEdges    int
	CallSites      int
	Unresolved     int
	CalledFuncs    int
	MaxFanOut      int
	DuplicateFuncs int
}

func (s Stats) String() string {
	return fmt.Sprintf("%d functions, %d nodes, %d edges (%d intra, %d call, %d return), %d call sites, %d unresolved",
		s.Functions, s.Nodes, s.Edges, s.IntraEdges, s.CallEdges, s.ReturnEdges, s.CallSites, s.Unresolved)
}

const (
	metricFunctions   = "icfg_functions_imported_total"
	metricDuplicates  = "icfg_functions_deduplicated_total"
	metricNodes       = "icfg_nodes_total"
	metricCallSites   = "icfg_call_sites_total"
	metricUnresolved  = "icfg_call_sites_unresolved_total"
	metricCalledFuncs = "icfg_functions_called_total"
	metricMaxFanOut   = "icfg_call_site_max_fan_out"
)

func edgeMetric(k EdgeKind) string {
	return fmt.Sprintf(`icfg_edges_total{kind=%q}`, k)
}

// newMetricSet registers every construction counter at zero, so the exported
// set does not depend on which counters were touched.
func newMetricSet() (*metrics.Set, map[string]*metrics.Counter) {
	s := metrics.NewSet()
	counters := make(map[string]*metrics.Counter)
	for _, name := range []string{
		metricFunctions, metricDuplicates, metricNodes, metricCallSites,
		metricUnresolved, metricCalledFuncs, metricMaxFanOut,
		edgeMetric(Intra), edgeMetric(Call), edgeMetric(Return),
	} {
		counters[name] = s.NewCounter(name)
	}
	return s, counters
}

// Stats reports the construction counters of the graph.
func (g *Graph) Stats() Stats {
	get := func(name string) int {
		return int(g.counters[name].Get())
	}
	s := Stats{
		Functions:      get(metricFunctions),
		Nodes:          get(metricNodes),
		IntraEdges:     get(edgeMetric(Intra)),
		CallEdges:      get(edgeMetric(Call)),
		ReturnEdges:    get(edgeMetric(Return)),
		CallSites:      get(metricCallSites),
		Unresolved:     get(metricUnresolved),
		CalledFuncs:    get(metricCalledFuncs),
		MaxFanOut:      get(metricMaxFanOut),
		DuplicateFuncs: get(metricDuplicates),
	}
	s.Edges = s.IntraEdges + s.CallEdges + s.ReturnEdges
	return s
}

// WriteMetrics writes the construction counters in Prometheus text format.
func (g *Graph) WriteMetrics(w io.Writer) {
	g.metrics.WritePrometheus(w)
}

// String renders a compact listing of the graph, one node per line followed
// by its outgoing edges.
func (g *Graph) String() string {
	var b strings.Builder
	g.ForEach(func(n *Node) {
		fmt.Fprintf(&b, "%s %q\n", n, n.label)
		for _, e := range g.Successors(n.id) {
			fmt.Fprintf(&b, "\t-%s-> %s\n", e.Kind, e.Dst)
		}
	})
	return b.String()
}
