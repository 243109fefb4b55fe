package main

import (
	"fmt"
	"io"
	"os"

	"github.com/cs-au-dk/icfg/analysis/callgraph"
	"github.com/cs-au-dk/icfg/analysis/icfg"
)

// gatherMetrics prints the construction metrics when -metrics is set.
func gatherMetrics(g *icfg.Graph) {
	if !opts.Metrics() {
		return
	}
	writeMetrics(os.Stdout, g)
}

// writeMetrics writes the construction counters of the graph in Prometheus
// text format, followed by a summary of its call graph.
func writeMetrics(w io.Writer, g *icfg.Graph) {
	msg := "================ Results =====================\n\n"
	fmt.Fprint(w, msg)
	g.WriteMetrics(w)

	cg := callgraph.Project(g)
	s := g.Stats()

	msg = "\n"
	msg += "Functions called: " + fmt.Sprint(s.CalledFuncs) + "/" + fmt.Sprint(s.Functions) + "\n"
	msg += "Duplicate function graphs: " + fmt.Sprint(s.DuplicateFuncs) + "\n"
	msg += "Root functions: " + fmt.Sprint(len(cg.Roots())) + "\n"
	if groups := cg.RecursionGroups(); len(groups) > 0 {
		msg += "Recursion groups: {\n"
		for _, group := range groups {
			msg += "  " + fmt.Sprint(group) + "\n"
		}
		msg += "}\n"
	}
	msg += "Call graph components: " + fmt.Sprint(len(cg.Clusters())) + "\n"
	msg += "================ Results ====================="
	fmt.Fprintln(w, msg)
}
