package icfg

import (
	"fmt"
	"io"
	"os"
	"strings"
)

func (g *Graph) printNode(w io.Writer, id NodeID, visited map[NodeID]bool) {
	if visited[id] {
		return
	}
	visited[id] = true

	n := g.nodes[id]
	var successors, calls, returns []string
	for _, e := range g.Successors(id) {
		switch e.Kind {
		case Call:
			calls = append(calls, g.nodes[e.Dst].fun.String())
		case Return:
			returns = append(returns, e.Dst.String())
		default:
			successors = append(successors, e.Dst.String())
		}
	}

	fmt.Fprintln(w, n)
	if n.repr != "" {
		fmt.Fprintln(w, "\t"+n.repr)
	}
	if len(successors) > 0 {
		fmt.Fprintln(w, "Successors:", strings.Join(successors, "; "))
	}
	if len(calls) > 0 {
		fmt.Fprintln(w, "Calls:", strings.Join(calls, "; "))
	}
	if len(returns) > 0 {
		fmt.Fprintln(w, "Returns to:", strings.Join(returns, "; "))
	}
	fmt.Fprintln(w)

	// Only intra successors are followed to keep the listing within the function.
	for _, e := range g.Successors(id) {
		if e.Kind == Intra {
			g.printNode(w, e.Dst, visited)
		}
	}
}

// PrintFunction lists the nodes of a function reachable from its entry
// through intra-procedural edges.
func (g *Graph) PrintFunction(w io.Writer, fun Identity) bool {
	entry, _, ok := g.FunIO(fun)
	if !ok {
		return false
	}
	g.printNode(w, entry, make(map[NodeID]bool))
	return true
}

// PrintGraph lists every function of the graph on standard output.
func PrintGraph(g *Graph) {
	for _, fun := range g.order {
		fmt.Println("==", fun, "==")
		g.PrintFunction(os.Stdout, fun)
	}
	for _, u := range g.unresolved {
		fmt.Printf("Unresolved: %s (%s): %s\n", u.Site, u.Target, u.Reason)
	}
}
