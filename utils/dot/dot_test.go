package dot

import (
	"testing"
)

func sampleGraph() *DotGraph {
	a := &DotNode{ID: "a", Attrs: DotAttrs{"label": "first \"node\"", "color": "red"}}
	b := &DotNode{ID: "b", Attrs: DotAttrs{"label": "second\nline"}}
	c := &DotNode{ID: "c", Attrs: DotAttrs{"label": "c"}}

	cluster := NewDotCluster("f")
	cluster.Attrs["label"] = "f"
	cluster.Nodes = append(cluster.Nodes, c)

	return &DotGraph{
		Title:     "Sample",
		Attrs:     DotAttrs{"rankdir": "TB"},
		NodeAttrs: DotAttrs{"shape": "box"},
		Clusters:  []*DotCluster{cluster},
		Nodes:     []*DotNode{a, b},
		Edges: []*DotEdge{
			{From: a, To: b, Attrs: DotAttrs{"style": "bold"}},
			{From: b, To: c, Attrs: DotAttrs{"style": "dashed"}},
			{From: b, To: c, Attrs: DotAttrs{"style": "dashed"}},
		},
	}
}

func TestWriteDot(t *testing.T) {
	out, err := sampleGraph().Bytes()
	if err != nil {
		t.Fatal(err)
	}

	expected := `digraph "Sample" {
	rankdir="TB";
	node [ shape="box" ];
	subgraph "cluster_f" {
		label="f";
		"c" [ label="c" ];
	}
	"a" [ color="red", label="first \"node\"" ];
	"b" [ label="second\nline" ];
	"a" -> "b" [ style="bold" ];
	"b" -> "c" [ style="dashed" ];
	"b" -> "c" [ style="dashed" ];
}
`
	if string(out) != expected {
		t.Errorf("Unexpected DOT output.\nExpected:\n%s\nGot:\n%s", expected, out)
	}
}

func TestCount(t *testing.T) {
	g := sampleGraph()
	out, err := g.Bytes()
	if err != nil {
		t.Fatal(err)
	}

	nodes, edges, err := Count(out)
	if err != nil {
		t.Fatal("Failed to parse DOT output:", err)
	}
	if nodes != g.CountNodes() {
		t.Errorf("Expected %d nodes, got %d", g.CountNodes(), nodes)
	}
	if edges != len(g.Edges) {
		t.Errorf("Expected %d edges, got %d", len(g.Edges), edges)
	}
}
