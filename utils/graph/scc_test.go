package graph

import (
	"reflect"
	"testing"
)

func TestSCC(t *testing.T) {
	scc := _sampleGraph.SCC([]int{0})

	expected := [][]int{{6, 5}, {12}, {13}, {10}, {11}, {9}, {7, 3, 2}, {8}, {4, 1, 0}}
	if !reflect.DeepEqual(scc.Components, expected) {
		t.Fatalf("Expected components %v, got %v", expected, scc.Components)
	}

	for i, comp := range scc.Components {
		for _, node := range comp {
			if c := scc.ComponentOf(node); c != i {
				t.Errorf("Expected %d to be in component %d, got %d", node, i, c)
			}
			// Edges only lead to components with a lower or equal index.
			for _, succ := range edges[node] {
				if c := scc.ComponentOf(succ); c > i {
					t.Errorf("Edge %d -> %d leads to later component %d", node, succ, c)
				}
			}
		}
	}

	if scc.ComponentOf(100) != -1 {
		t.Error("Expected unknown node to have no component")
	}
}

func TestSCCCyclic(t *testing.T) {
	selfLoop := FromAdjacency(map[int][]int{0: {1}, 1: {1}})
	scc := selfLoop.SCC([]int{0})
	if scc.Cyclic(scc.ComponentOf(0)) {
		t.Error("Expected {0} to be acyclic")
	}
	if !scc.Cyclic(scc.ComponentOf(1)) {
		t.Error("Expected self loop on 1 to be cyclic")
	}

	scc = _sampleGraph.SCC([]int{0})
	for node, cyclic := range map[int]bool{5: true, 2: true, 0: true, 8: false, 9: false} {
		if c := scc.Cyclic(scc.ComponentOf(node)); c != cyclic {
			t.Errorf("Expected component of %d to have Cyclic = %v", node, cyclic)
		}
	}
}
