// Package worklist provides the FIFO queue driving breadth-first traversals.
package worklist

// Queue is a FIFO queue of pending elements. Popped slots are reclaimed once
// the queue drains.
type Queue[T any] struct {
	items []T
	head  int
}

func (q *Queue[T]) Push(el T) {
	q.items = append(q.items, el)
}

// Pop removes the oldest element. It reports false on an empty queue.
func (q *Queue[T]) Pop() (el T, ok bool) {
	if q.head == len(q.items) {
		return el, false
	}
	el = q.items[q.head]
	var zero T
	q.items[q.head] = zero
	q.head++
	if q.head == len(q.items) {
		q.items, q.head = q.items[:0], 0
	}
	return el, true
}

func (q *Queue[T]) Len() int {
	return len(q.items) - q.head
}

// Run seeds a queue with start and hands every element to do, in FIFO order,
// until the queue is empty. Elements passed to push are processed after the
// ones already queued.
func Run[T any](start []T, do func(next T, push func(T))) {
	var q Queue[T]
	for _, el := range start {
		q.Push(el)
	}
	for {
		next, ok := q.Pop()
		if !ok {
			return
		}
		do(next, q.Push)
	}
}
