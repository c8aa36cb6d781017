// Package queue provides the tracked FIFO backing the master's transmit
// pipeline. APB completes transfers strictly in issue order, so a plain FIFO
// with depth bookkeeping is the whole story.
package queue

import "fmt"

// UnlimitedCapacity disables the capacity check.
const UnlimitedCapacity = -1

// MutateFunc is invoked after queue length or capacity changes.
type MutateFunc func(length int, capacity int)

// Hooks defines callbacks for queue lifecycle events.
type Hooks[T any] struct {
	OnEnqueue func(item T, cycle int)
	OnDequeue func(item T, cycle int)
}

// FIFO maintains items in issue order with depth bookkeeping and hooks.
type FIFO[T any] struct {
	name     string
	capacity int
	items    []T
	hooks    Hooks[T]
	mutate   MutateFunc

	maxDepth int
}

// NewFIFO constructs a tracked FIFO with optional hooks and mutate callback.
func NewFIFO[T any](name string, capacity int, mutate MutateFunc, hooks Hooks[T]) *FIFO[T] {
	q := &FIFO[T]{
		name:     name,
		capacity: capacity,
		hooks:    hooks,
		mutate:   mutate,
	}
	q.notify()
	return q
}

// Name returns the queue name.
func (q *FIFO[T]) Name() string {
	if q == nil {
		return ""
	}
	return q.name
}

// Capacity returns current capacity (-1 for unlimited).
func (q *FIFO[T]) Capacity() int {
	if q == nil {
		return 0
	}
	return q.capacity
}

// Len returns the number of queued items.
func (q *FIFO[T]) Len() int {
	if q == nil {
		return 0
	}
	return len(q.items)
}

// MaxDepth returns the largest length the queue has reached.
func (q *FIFO[T]) MaxDepth() int {
	if q == nil {
		return 0
	}
	return q.maxDepth
}

// CanAccept checks whether count additional entries fit within capacity.
func (q *FIFO[T]) CanAccept(count int) bool {
	if q == nil {
		return false
	}
	if q.capacity < 0 {
		return true
	}
	return len(q.items)+count <= q.capacity
}

// Enqueue appends an item. Returns an error if capacity is exceeded.
func (q *FIFO[T]) Enqueue(item T, cycle int) error {
	if q == nil {
		return fmt.Errorf("fifo is nil")
	}
	if q.capacity >= 0 && len(q.items) >= q.capacity {
		return fmt.Errorf("fifo %s full: capacity %d", q.name, q.capacity)
	}
	q.items = append(q.items, item)
	if len(q.items) > q.maxDepth {
		q.maxDepth = len(q.items)
	}
	if q.hooks.OnEnqueue != nil {
		q.hooks.OnEnqueue(item, cycle)
	}
	q.notify()
	return nil
}

// PopFront removes and returns the head item.
func (q *FIFO[T]) PopFront(cycle int) (T, bool) {
	var zero T
	if q == nil || len(q.items) == 0 {
		return zero, false
	}
	item := q.items[0]
	q.items = q.items[1:]
	if q.hooks.OnDequeue != nil {
		q.hooks.OnDequeue(item, cycle)
	}
	q.notify()
	return item, true
}

// Peek returns the head item without removing it.
func (q *FIFO[T]) Peek() (T, bool) {
	var zero T
	if q == nil || len(q.items) == 0 {
		return zero, false
	}
	return q.items[0], true
}

// Drain removes every queued item and returns them in order.
func (q *FIFO[T]) Drain(cycle int) []T {
	if q == nil || len(q.items) == 0 {
		return nil
	}
	drained := make([]T, 0, len(q.items))
	for len(q.items) > 0 {
		item, _ := q.PopFront(cycle)
		drained = append(drained, item)
	}
	return drained
}

func (q *FIFO[T]) notify() {
	if q == nil || q.mutate == nil {
		return
	}
	q.mutate(len(q.items), q.capacity)
}
