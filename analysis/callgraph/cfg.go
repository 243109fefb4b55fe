package callgraph

import (
	"github.com/zboralski/lattice"
	"github.com/zboralski/lattice/render"

	"github.com/cs-au-dk/icfg/analysis/icfg"
)

// FunctionCFG converts the nodes of one function into a lattice CFG with a
// block per node. Calls list every callee of a call site, and unresolved
// call sites list their target description.
func FunctionCFG(g *icfg.Graph, fun icfg.Identity) (*lattice.FuncCFG, bool) {
	nodes := g.FunctionNodes(fun)
	if nodes == nil {
		return nil, false
	}

	index := make(map[icfg.NodeID]int, len(nodes))
	for i, n := range nodes {
		index[n.ID()] = i
	}

	unresolved := make(map[icfg.NodeID]string)
	for _, u := range g.Unresolved() {
		target := u.Target
		if target == "" {
			target = "?"
		}
		unresolved[u.Site] = target
	}

	lcfg := &lattice.FuncCFG{Name: fun.String()}
	for i, n := range nodes {
		b := &lattice.BasicBlock{
			ID:    i,
			Start: i,
			End:   i + 1,
			Term:  n.Kind() == icfg.Exit,
		}

		var intra []icfg.Edge
		for _, e := range g.Successors(n.ID()) {
			switch e.Kind {
			case icfg.Intra:
				intra = append(intra, e)
			case icfg.Call:
				b.Calls = append(b.Calls, lattice.CallSite{
					Offset: i,
					Callee: g.Node(e.Dst).Function().String(),
				})
			}
		}
		if target, ok := unresolved[n.ID()]; ok {
			b.Calls = append(b.Calls, lattice.CallSite{Offset: i, Callee: target})
		}

		for j, e := range intra {
			cond := ""
			if len(intra) == 2 {
				cond = [...]string{"T", "F"}[j]
			}
			b.Succs = append(b.Succs, lattice.Successor{BlockID: index[e.Dst], Cond: cond})
		}
		if len(intra) == 0 {
			b.Term = true
		}

		lcfg.Blocks = append(lcfg.Blocks, b)
	}
	return lcfg, true
}

// FunctionCFGDOT renders the CFG of a function with the lattice renderer.
func FunctionCFGDOT(g *icfg.Graph, fun icfg.Identity) (string, bool) {
	lcfg, ok := FunctionCFG(g, fun)
	if !ok {
		return "", false
	}
	return render.DOTCFG(&lattice.CFGGraph{Funcs: []*lattice.FuncCFG{lcfg}}, fun.String()), true
}
