package export

import (
	"fmt"
	"io"

	"github.com/cs-au-dk/icfg/analysis/icfg"
	"github.com/cs-au-dk/icfg/utils/dot"
)

type DOTOptions struct {
	Title string
	// LabelWidth is the number of runes of the node payload shown in labels.
	// Zero shows the full payload.
	LabelWidth int
	// Cluster groups the nodes of every function in a subgraph.
	Cluster bool
}

func DefaultDOTOptions() DOTOptions {
	return DOTOptions{Title: "ICFG", LabelWidth: 80}
}

func truncate(s string, width int) string {
	if width <= 0 {
		return s
	}
	runes := []rune(s)
	if len(runes) <= width {
		return s
	}
	return string(runes[:width])
}

func nodeAttrs(n *icfg.Node, opts DOTOptions) dot.DotAttrs {
	label := n.Label()
	if repr := truncate(n.Repr(), opts.LabelWidth); repr != "" {
		label += "\n" + repr
	}

	attrs := dot.DotAttrs{"label": label}
	switch n.Kind() {
	case icfg.Entry, icfg.Exit:
		attrs["shape"] = "ellipse"
	case icfg.UnresolvedExternal:
		attrs["color"] = "red"
	}
	return attrs
}

func edgeAttrs(e icfg.Edge) dot.DotAttrs {
	attrs := dot.DotAttrs{"kind": e.Kind.String()}
	switch e.Kind {
	case icfg.Call:
		attrs["style"] = "bold"
	case icfg.Return:
		attrs["style"] = "dashed"
	}
	return attrs
}

// ToDOT converts a graph into a DOT graph with one statement per node and one
// per edge. Labels are escaped when written.
func ToDOT(g *icfg.Graph, opts DOTOptions) *dot.DotGraph {
	dg := &dot.DotGraph{
		Title: opts.Title,
		NodeAttrs: dot.DotAttrs{
			"shape":    "box",
			"fontname": "DejaVu Sans",
		},
	}

	dnodes := make([]*dot.DotNode, g.NumNodes())
	g.ForEach(func(n *icfg.Node) {
		dnodes[n.ID()] = &dot.DotNode{
			ID:    n.ID().String(),
			Attrs: nodeAttrs(n, opts),
		}
	})

	if opts.Cluster {
		for i, fun := range g.Functions() {
			cluster := dot.NewDotCluster(fmt.Sprintf("f%d", i))
			cluster.Attrs["label"] = fun.String()
			for _, n := range g.FunctionNodes(fun) {
				cluster.Nodes = append(cluster.Nodes, dnodes[n.ID()])
			}
			dg.Clusters = append(dg.Clusters, cluster)
		}
	} else {
		dg.Nodes = dnodes
	}

	for _, e := range g.Edges() {
		dg.Edges = append(dg.Edges, &dot.DotEdge{
			From:  dnodes[e.Src],
			To:    dnodes[e.Dst],
			Attrs: edgeAttrs(e),
		})
	}
	return dg
}

func WriteDOT(w io.Writer, g *icfg.Graph, opts DOTOptions) error {
	return ToDOT(g, opts).WriteDot(w)
}
