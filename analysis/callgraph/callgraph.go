package callgraph

import (
	"sort"
	"strconv"

	uf "github.com/spakin/disjoint"
	"github.com/zboralski/lattice"
	"github.com/zboralski/lattice/render"

	"github.com/cs-au-dk/icfg/analysis/icfg"
	"github.com/cs-au-dk/icfg/utils/dot"
	"github.com/cs-au-dk/icfg/utils/graph"
)

type pair struct {
	caller, callee icfg.Identity
}

// CallGraph is the function-level projection of an ICFG: there is an edge
// from a caller to a callee when some call site of the caller has a call
// edge into the callee.
type CallGraph struct {
	functions []icfg.Identity
	position  map[icfg.Identity]int
	callees   map[icfg.Identity][]icfg.Identity
	// sites counts the call edges between two functions.
	sites map[pair]int
}

// Project computes the call graph of an ICFG. Callees are listed in the
// order of their first call edge.
func Project(g *icfg.Graph) *CallGraph {
	cg := &CallGraph{
		functions: g.Functions(),
		position:  make(map[icfg.Identity]int),
		callees:   make(map[icfg.Identity][]icfg.Identity),
		sites:     make(map[pair]int),
	}
	for i, fun := range cg.functions {
		cg.position[fun] = i
	}

	for _, e := range g.Edges() {
		if e.Kind != icfg.Call {
			continue
		}
		p := pair{g.Node(e.Src).Function(), g.Node(e.Dst).Function()}
		if cg.sites[p] == 0 {
			cg.callees[p.caller] = append(cg.callees[p.caller], p.callee)
		}
		cg.sites[p]++
	}
	return cg
}

func (cg *CallGraph) Functions() []icfg.Identity {
	return cg.functions
}

func (cg *CallGraph) Callees(fun icfg.Identity) []icfg.Identity {
	return cg.callees[fun]
}

// CallSites returns the number of call edges from caller into callee.
func (cg *CallGraph) CallSites(caller, callee icfg.Identity) int {
	return cg.sites[pair{caller, callee}]
}

// Roots returns the functions that are never called, in import order.
func (cg *CallGraph) Roots() (ret []icfg.Identity) {
	called := make(map[icfg.Identity]bool)
	for p := range cg.sites {
		called[p.callee] = true
	}
	for _, fun := range cg.functions {
		if !called[fun] {
			ret = append(ret, fun)
		}
	}
	return
}

func (cg *CallGraph) AsGraph() graph.Graph[icfg.Identity] {
	return graph.OfHashable(func(fun icfg.Identity) []icfg.Identity {
		return cg.callees[fun]
	})
}

func (cg *CallGraph) sortByPosition(funs []icfg.Identity) {
	sort.Slice(funs, func(i, j int) bool {
		return cg.position[funs[i]] < cg.position[funs[j]]
	})
}

func (cg *CallGraph) sortGroups(groups [][]icfg.Identity) {
	for _, group := range groups {
		cg.sortByPosition(group)
	}
	sort.Slice(groups, func(i, j int) bool {
		return cg.position[groups[i][0]] < cg.position[groups[j][0]]
	})
}

// RecursionGroups returns the sets of functions that are recursive or
// mutually recursive. Functions and groups are ordered by import order.
func (cg *CallGraph) RecursionGroups() (groups [][]icfg.Identity) {
	scc := cg.AsGraph().SCC(cg.functions)
	for i, comp := range scc.Components {
		if scc.Cyclic(i) {
			groups = append(groups, append([]icfg.Identity(nil), comp...))
		}
	}
	cg.sortGroups(groups)
	return
}

// Clusters partitions the functions into groups connected by calls,
// ignoring call direction.
func (cg *CallGraph) Clusters() [][]icfg.Identity {
	elements := make(map[icfg.Identity]*uf.Element, len(cg.functions))
	for _, fun := range cg.functions {
		elements[fun] = uf.NewElement()
	}
	for p := range cg.sites {
		uf.Union(elements[p.caller], elements[p.callee])
	}

	sets := make(map[*uf.Element][]icfg.Identity)
	for _, fun := range cg.functions {
		rep := elements[fun].Find()
		sets[rep] = append(sets[rep], fun)
	}

	groups := make([][]icfg.Identity, 0, len(sets))
	for _, set := range sets {
		groups = append(groups, set)
	}
	cg.sortGroups(groups)
	return groups
}

// Lattice converts the call graph for rendering.
func (cg *CallGraph) Lattice() *lattice.Graph {
	lg := &lattice.Graph{}
	for _, fun := range cg.functions {
		lg.Nodes = append(lg.Nodes, fun.String())
		for _, callee := range cg.callees[fun] {
			lg.Edges = append(lg.Edges, lattice.Edge{
				Caller: fun.String(),
				Callee: callee.String(),
			})
		}
	}
	lg.Dedup()
	return lg
}

// DOT renders the call graph with the lattice renderer.
func (cg *CallGraph) DOT(title string) string {
	return render.DOT(cg.Lattice(), title)
}

// ToDotGraph renders the call graph with functions clustered by their scope.
// Edges carrying more than one call site are labeled with their count.
func (cg *CallGraph) ToDotGraph(title string) *dot.DotGraph {
	return cg.AsGraph().ToDotGraph(title, cg.functions, &graph.VisualizationConfig[icfg.Identity]{
		NodeAttrs: func(fun icfg.Identity) (string, dot.DotAttrs) {
			return fun.String(), dot.DotAttrs{"label": fun.Signature}
		},
		EdgeAttrs: func(from, to icfg.Identity) dot.DotAttrs {
			if n := cg.sites[pair{from, to}]; n > 1 {
				return dot.DotAttrs{"label": strconv.Itoa(n)}
			}
			return nil
		},
		ClusterKey: func(fun icfg.Identity) any {
			return fun.Scope
		},
		ClusterAttrs: func(key any) (string, dot.DotAttrs) {
			return key.(string), dot.DotAttrs{"label": key.(string)}
		},
	})
}
