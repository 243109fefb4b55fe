package graph

import (
	"reflect"
	"testing"

	"github.com/cs-au-dk/icfg/utils/dot"
)

var edges = map[int][]int{
	0:  {1, 8},
	1:  {4, 5, 2},
	2:  {6, 3, 9},
	3:  {2, 7},
	4:  {0, 5},
	5:  {6},
	6:  {5},
	7:  {3, 6},
	8:  {},
	9:  {10, 11},
	10: {12, 13},
	11: {12, 13},
	12: {},
	13: {},
}

var _sampleGraph = FromAdjacency(edges)

func TestBFS(t *testing.T) {
	reached := _sampleGraph.ReachableFrom(9)
	if expected := []int{9, 10, 11, 12, 13}; !reflect.DeepEqual(reached, expected) {
		t.Errorf("Expected %v, got %v", expected, reached)
	}

	if all := _sampleGraph.ReachableFrom(0); len(all) != len(edges) {
		t.Errorf("Expected every node to be reachable from 0, got %v", all)
	}

	visited := 0
	stopped := _sampleGraph.BFSV(func(node int) bool {
		visited++
		return node == 4
	}, 0)
	if !stopped {
		t.Error("Expected the search to stop early")
	}
	// 0, 1, 8, 4
	if visited != 4 {
		t.Errorf("Expected 4 visited nodes, got %d", visited)
	}
}

func TestToDotGraph(t *testing.T) {
	nodes := []int{9, 10, 11}
	dg := _sampleGraph.ToDotGraph("sample", nodes, &VisualizationConfig[int]{
		ClusterKey: func(node int) any { return node % 2 },
		EdgeAttrs: func(from, to int) dot.DotAttrs {
			return dot.DotAttrs{"style": "bold"}
		},
	})

	if len(dg.Clusters) != 2 || dg.CountNodes() != 3 {
		t.Errorf("Expected 3 nodes in 2 clusters, got %d clusters and %d nodes", len(dg.Clusters), dg.CountNodes())
	}
	// 9 -> 10, 9 -> 11. Edges leaving the node set are dropped.
	if len(dg.Edges) != 2 {
		t.Fatalf("Expected 2 edges, got %d", len(dg.Edges))
	}
	if e := dg.Edges[0]; e.From.ID != "9" || e.To.ID != "10" || e.Attrs["style"] != "bold" {
		t.Errorf("Unexpected first edge %v -> %v %v", e.From, e.To, e.Attrs)
	}
}
