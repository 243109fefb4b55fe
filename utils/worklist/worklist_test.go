package worklist

import (
	"reflect"
	"testing"
)

func TestRunOrder(t *testing.T) {
	var order []int
	Run([]int{1, 2}, func(next int, push func(int)) {
		order = append(order, next)
		if next < 4 {
			push(next * 3)
		}
	})

	if expected := []int{1, 2, 3, 6, 9}; !reflect.DeepEqual(order, expected) {
		t.Errorf("Expected %v, got %v", expected, order)
	}
}

func TestQueue(t *testing.T) {
	var q Queue[string]
	if _, ok := q.Pop(); ok {
		t.Error("Expected an empty queue")
	}

	q.Push("a")
	q.Push("b")
	if el, _ := q.Pop(); el != "a" {
		t.Errorf("Expected a, got %s", el)
	}
	q.Push("c")
	if q.Len() != 2 {
		t.Errorf("Expected 2 queued elements, got %d", q.Len())
	}
	for _, expected := range []string{"b", "c"} {
		if el, ok := q.Pop(); !ok || el != expected {
			t.Errorf("Expected %s, got %q", expected, el)
		}
	}
	if q.Len() != 0 {
		t.Errorf("Expected a drained queue, got %d elements", q.Len())
	}
}
