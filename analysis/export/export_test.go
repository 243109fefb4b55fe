package export

import (
	"bytes"
	"errors"
	"strings"
	"testing"

	"github.com/sebdah/goldie/v2"

	"github.com/cs-au-dk/icfg/analysis/icfg"
	T "github.com/cs-au-dk/icfg/testutil"
	"github.com/cs-au-dk/icfg/utils/dot"
)

func tokenGraph(t *testing.T) *icfg.Graph {
	transfer := T.Fun("Token.transfer(address,uint256)").
		Entry(0).
		Node(icfg.LocalNode{ID: 1, Label: "EXPRESSION", Repr: `require(bool,string)(balance >= amount, "insufficient")`}).
		Call(2, "_move(to, amount)").
		Node(icfg.LocalNode{ID: 3, Exit: true, Repr: "RETURN true"}).
		Chain(0, 1, 2, 3).
		Graph()
	move := T.Fun("Token._move(address,uint256)").
		Entry(0).
		Node(icfg.LocalNode{ID: 1, Label: "EXPRESSION", Repr: "balances[to] += amount // ünïcode"}).
		Call(2, `to.call("")`).
		Node(icfg.LocalNode{ID: 3, Exit: true, Repr: "END"}).
		Chain(0, 1, 2, 3).
		Graph()

	calls := T.Calls().Link("Token.transfer(address,uint256)", 2, "Token._move(address,uint256)")
	return T.Build(t, []*icfg.FunctionGraph{transfer, move}, calls)
}

func TestJSONGolden(t *testing.T) {
	var buf bytes.Buffer
	if err := WriteJSON(&buf, tokenGraph(t)); err != nil {
		t.Fatal(err)
	}
	goldie.New(t).Assert(t, "icfg_json", buf.Bytes())
}

func TestDOTGolden(t *testing.T) {
	g := tokenGraph(t)

	opts := DefaultDOTOptions()
	opts.LabelWidth = 48
	var buf bytes.Buffer
	if err := WriteDOT(&buf, g, opts); err != nil {
		t.Fatal(err)
	}
	goldie.New(t).Assert(t, "icfg_dot", buf.Bytes())

	opts = DefaultDOTOptions()
	opts.LabelWidth = 0
	opts.Cluster = true
	buf.Reset()
	if err := WriteDOT(&buf, g, opts); err != nil {
		t.Fatal(err)
	}
	goldie.New(t).Assert(t, "icfg_dot_cluster", buf.Bytes())
}

func TestJSONRoundTrip(t *testing.T) {
	g := tokenGraph(t)
	var buf bytes.Buffer
	if err := WriteJSON(&buf, g); err != nil {
		t.Fatal(err)
	}

	decoded, err := Decode(&buf)
	if err != nil {
		t.Fatal(err)
	}
	if len(decoded.Nodes) != g.NumNodes() || len(decoded.Edges) != g.NumEdges() {
		t.Errorf("Expected %d nodes and %d edges, decoded %d and %d",
			g.NumNodes(), g.NumEdges(), len(decoded.Nodes), len(decoded.Edges))
	}
	for _, n := range decoded.Nodes {
		if orig := g.Node(icfg.NodeID(n.ID)); orig.Repr() != n.Repr || orig.Label() != n.Label {
			t.Errorf("Node %d changed: %+v", n.ID, n)
		}
	}
}

func TestDecodeRejectsDanglingEdges(t *testing.T) {
	data := `{"nodes": [{"id": 0, "label": "a", "repr": ""}], "edges": [{"src": 0, "dst": 3}]}`
	if _, err := Decode(strings.NewReader(data)); !errors.Is(err, icfg.ErrDanglingEdge) {
		t.Errorf("Expected ErrDanglingEdge, got %v", err)
	}
}

func TestDOTRoundTrip(t *testing.T) {
	g := tokenGraph(t)

	for _, cluster := range []bool{false, true} {
		opts := DefaultDOTOptions()
		opts.Cluster = cluster
		var buf bytes.Buffer
		if err := WriteDOT(&buf, g, opts); err != nil {
			t.Fatal(err)
		}

		nodes, edges, err := dot.Count(buf.Bytes())
		if err != nil {
			t.Fatal("Failed to parse DOT export:", err)
		}
		if nodes != g.NumNodes() || edges != g.NumEdges() {
			t.Errorf("Expected %d nodes and %d edges, parsed %d and %d (cluster: %v)",
				g.NumNodes(), g.NumEdges(), nodes, edges, cluster)
		}
	}
}

func TestExportDoesNotMutate(t *testing.T) {
	g := tokenGraph(t)
	before := g.String()

	var buf bytes.Buffer
	WriteJSON(&buf, g)
	WriteDOT(&buf, g, DefaultDOTOptions())

	if after := g.String(); after != before {
		t.Errorf("Graph changed during export:\n%s\n%s", before, after)
	}
}

func TestTruncate(t *testing.T) {
	for _, test := range []struct {
		in    string
		width int
		out   string
	}{
		{"short", 80, "short"},
		{"ünïcode", 3, "ünï"},
		{"unbounded", 0, "unbounded"},
	} {
		if out := truncate(test.in, test.width); out != test.out {
			t.Errorf("truncate(%q, %d) = %q, expected %q", test.in, test.width, out, test.out)
		}
	}
}
